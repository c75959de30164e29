package pipeline

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
)

const testVertex = `struct Vertex {
    @location(0) position: vec2<f32>,
}

@group(0) @binding(0) var<uniform> offset: vec4<f32>;

@vertex
fn vs_main(v: Vertex) -> @builtin(position) vec4<f32> {
    return vec4<f32>(v.position, 0.0, 1.0) + offset;
}
`

const testFragment = `@group(0) @binding(0) var<uniform> offset: vec4<f32>;
@group(0) @binding(1) var tex_sampler: sampler;

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return offset;
}
`

func testShaders(t *testing.T) (shader.Shader, shader.Shader) {
	t.Helper()
	vs, err := shader.NewShaderFromSource("test_vs", shader.StageVertex, testVertex)
	require.NoError(t, err)
	fs, err := shader.NewShaderFromSource("test_fs", shader.StageFragment, testFragment)
	require.NoError(t, err)
	return vs, fs
}

func TestDefaults(t *testing.T) {
	p := NewPipeline("plain")
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, p.Topology())
	assert.Equal(t, wgpu.FrontFaceCCW, p.FrontFace())
	assert.Equal(t, wgpu.CullModeNone, p.CullMode())
	assert.Equal(t, wgpu.TextureFormatUndefined, p.DepthFormat())
	assert.Equal(t, uint32(1), p.SampleCount())
	assert.False(t, p.BlendEnabled())
	assert.Nil(t, p.RenderPipeline())
	assert.Nil(t, p.Shader(shader.StageVertex))
}

func TestDescriptorWithoutDepth(t *testing.T) {
	vs, fs := testShaders(t)
	p := NewPipeline("lit",
		WithVertexShader(vs),
		WithFragmentShader(fs),
		WithFormat(wgpu.TextureFormatRGBA8Unorm),
		WithSampleCount(4),
		WithCullMode(wgpu.CullModeBack),
	)

	desc := p.Descriptor(&wgpu.ShaderModule{}, &wgpu.ShaderModule{}, &wgpu.PipelineLayout{})
	assert.Equal(t, "lit Render Pipeline", desc.Label)
	assert.Nil(t, desc.DepthStencil)
	assert.Equal(t, "vs_main", desc.Vertex.EntryPoint)
	assert.Equal(t, "fs_main", desc.Fragment.EntryPoint)
	require.Len(t, desc.Vertex.Buffers, 1)
	assert.Equal(t, uint64(8), desc.Vertex.Buffers[0].ArrayStride)
	require.Len(t, desc.Fragment.Targets, 1)
	assert.Equal(t, wgpu.TextureFormatRGBA8Unorm, desc.Fragment.Targets[0].Format)
	assert.Nil(t, desc.Fragment.Targets[0].Blend)
	assert.Equal(t, uint32(4), desc.Multisample.Count)
	assert.Equal(t, uint32(0xFFFFFFFF), desc.Multisample.Mask)
	assert.Equal(t, wgpu.CullModeBack, desc.Primitive.CullMode)
}

func TestDescriptorWithDepthAndBlend(t *testing.T) {
	vs, fs := testShaders(t)
	layouts := []wgpu.VertexBufferLayout{{ArrayStride: 32}}
	p := NewPipeline("geometry",
		WithVertexShader(vs),
		WithFragmentShader(fs),
		WithVertexLayouts(layouts),
		WithDepthFormat(wgpu.TextureFormatDepth24Plus),
		WithDepthTestEnabled(false),
		WithDepthBias(2, 1.5),
		WithBlendEnabled(true),
	)

	desc := p.Descriptor(nil, nil, nil)
	require.NotNil(t, desc.DepthStencil)
	assert.Equal(t, wgpu.TextureFormatDepth24Plus, desc.DepthStencil.Format)
	assert.Equal(t, wgpu.CompareFunctionAlways, desc.DepthStencil.DepthCompare)
	assert.Equal(t, int32(2), desc.DepthStencil.DepthBias)
	assert.Same(t, p.BlendState(), desc.Fragment.Targets[0].Blend)
	assert.Equal(t, layouts, desc.Vertex.Buffers)
}

func TestBuildCreatesObjects(t *testing.T) {
	vs, fs := testShaders(t)
	log := &gputest.Log{}
	dev := &gputest.Device{Log: log}
	p := NewPipeline("lit", WithVertexShader(vs), WithFragmentShader(fs))
	bgl := &wgpu.BindGroupLayout{}

	require.NoError(t, p.Build(dev, shader.NewCompiler(), []*wgpu.BindGroupLayout{bgl}))
	assert.NotNil(t, p.RenderPipeline())
	assert.Equal(t, []string{
		"CreateShaderModule test_vs",
		"CreateShaderModule test_fs",
		"CreatePipelineLayout",
		"CreateRenderPipeline lit Render Pipeline",
	}, log.Calls)
	require.Len(t, dev.PipelineLayouts, 1)
	assert.Equal(t, []*wgpu.BindGroupLayout{bgl}, dev.PipelineLayouts[0].BindGroupLayouts)

	first := p.RenderPipeline()
	require.NoError(t, p.Build(dev, shader.NewCompiler(), []*wgpu.BindGroupLayout{bgl}))
	assert.True(t, dev.WasReleased(first))
	assert.NotSame(t, first, p.RenderPipeline())
}

func TestBuildFailureKeepsPrevious(t *testing.T) {
	vs, fs := testShaders(t)
	dev := &gputest.Device{}
	p := NewPipeline("lit", WithVertexShader(vs), WithFragmentShader(fs))
	require.NoError(t, p.Build(dev, shader.NewCompiler(), nil))
	previous := p.RenderPipeline()

	dev.Fail = map[string]bool{"CreateRenderPipeline": true}
	err := p.Build(dev, shader.NewCompiler(), nil)
	assert.ErrorIs(t, err, gputest.ErrInjected)
	assert.Same(t, previous, p.RenderPipeline())
	assert.False(t, dev.WasReleased(previous))
	// the two modules and the layout from the failed attempt
	assert.Len(t, dev.Released, 3)
}

func TestBuildRequiresShaders(t *testing.T) {
	err := NewPipeline("empty").Build(&gputest.Device{}, shader.NewCompiler(), nil)
	assert.ErrorIs(t, err, ErrMissingShader)
}

func TestMergeBindGroupLayouts(t *testing.T) {
	vs, fs := testShaders(t)
	merged := MergeBindGroupLayouts(vs, fs, 1)
	require.Len(t, merged, 1)
	require.Len(t, merged[0], 2)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, merged[0][0].Visibility)
	assert.Equal(t, wgpu.ShaderStageFragment, merged[0][1].Visibility)
	assert.Equal(t, uint64(16), merged[0][0].Buffer.MinBindingSize)
}
