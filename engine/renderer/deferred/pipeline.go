// Package deferred resolves the G-buffer into the final lit image with a full-screen pass.
package deferred

import (
	_ "embed"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/quad"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
)

// VertexSource is the deferred vertex shader.
//
//go:embed assets/deferred_vs.wgsl
var VertexSource string

// FragmentSource is the deferred fragment shader. It includes the DeferredUniforms struct through
// the deferred_uniforms key.
//
//go:embed assets/deferred_fs.wgsl
var FragmentSource string

// Bind group 0 slots.
const (
	BindingSampler uint32 = iota
	BindingDiffuse
	BindingNormal
	BindingLight
	BindingDepth
	BindingUniforms
)

// uniformsKey is the struct registry key used by the fragment shader.
const uniformsKey = "deferred_uniforms"

// Pipeline owns the deferred render pipeline, its bind group layout and the uniform buffer
// holding DeferredUniforms. The layout and buffer live as long as the Pipeline; the render
// pipeline is recreated by Rebuild.
type Pipeline struct {
	quad     quad.Pipeline
	pipeline pipeline.Pipeline

	vertexShader   shader.Shader
	fragmentShader shader.Shader
	vertexPath     string
	fragmentPath   string

	bindGroupLayout *wgpu.BindGroupLayout
	uniformBuffer   *wgpu.Buffer
	logger          *log.Logger
}

// BindGroupLayoutEntries returns the entries of the single deferred bind group layout.
// The four G-buffer textures are multisampled, so they are bound as unfilterable float.
//
// Returns:
//   - []wgpu.BindGroupLayoutEntry: six fragment-visible entries in binding order
func BindGroupLayoutEntries() []wgpu.BindGroupLayoutEntry {
	texture := func(binding uint32) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
				Multisampled:  true,
			},
		}
	}
	return []wgpu.BindGroupLayoutEntry{
		{
			Binding:    BindingSampler,
			Visibility: wgpu.ShaderStageFragment,
			Sampler: wgpu.SamplerBindingLayout{
				Type: wgpu.SamplerBindingTypeFiltering,
			},
		},
		texture(BindingDiffuse),
		texture(BindingNormal),
		texture(BindingLight),
		texture(BindingDepth),
		{
			Binding:    BindingUniforms,
			Visibility: wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: false,
				MinBindingSize:   uint64(light.DeferredUniforms{}.Size()),
			},
		},
	}
}

// NewPipeline compiles the deferred shaders and creates the bind group layout, the render
// pipeline and the uniform buffer. The uniform buffer starts with an identity inverse projection
// and no lights.
//
// Parameters:
//   - device: the device to create objects on
//   - compiler: the shader compiler
//   - q: the quad pipeline whose geometry and raster state the pass reuses
//   - sampleCount: the multisample count of the G-buffer and output
//   - opts: builder options
//
// Returns:
//   - *Pipeline: the deferred pipeline
//   - error: shader load, compile or creation failure
func NewPipeline(device gpu.Device, compiler shader.Compiler, q quad.Pipeline, sampleCount uint32, opts ...PipelineBuilderOption) (*Pipeline, error) {
	p := &Pipeline{quad: q}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = common.Coalesce(p.logger, logger.Named("deferred"))

	if err := p.loadShaders(); err != nil {
		return nil, err
	}

	var err error
	p.bindGroupLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "deferred bind group",
		Entries: BindGroupLayoutEntries(),
	})
	if err != nil {
		return nil, fmt.Errorf("deferred: failed to create bind group layout: %w", err)
	}

	p.uniformBuffer, err = device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "deferred uniform buffer",
		Contents: light.NewDeferredUniforms().Marshal(),
		Usage:    wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		gpu.Release(device, p.bindGroupLayout)
		return nil, fmt.Errorf("deferred: failed to create uniform buffer: %w", err)
	}

	p.pipeline, err = p.build(device, compiler, sampleCount)
	if err != nil {
		gpu.Release(device, p.uniformBuffer, p.bindGroupLayout)
		return nil, err
	}
	return p, nil
}

// loadShaders reads the shader pair from disk when paths are configured, else from the embedded sources.
func (p *Pipeline) loadShaders() error {
	withUniforms := shader.WithStruct(uniformsKey, light.DeferredUniformsSource, "DeferredUniforms")

	var err error
	if p.vertexPath != "" {
		p.vertexShader, err = shader.NewShader("deferred_vs", shader.StageVertex, p.vertexPath)
	} else {
		p.vertexShader, err = shader.NewShaderFromSource("deferred_vs", shader.StageVertex, VertexSource)
	}
	if err != nil {
		return err
	}

	if p.fragmentPath != "" {
		p.fragmentShader, err = shader.NewShader("deferred_fs", shader.StageFragment, p.fragmentPath, withUniforms)
	} else {
		p.fragmentShader, err = shader.NewShaderFromSource("deferred_fs", shader.StageFragment, FragmentSource, withUniforms)
	}
	return err
}

// build creates a render pipeline from the current shaders. Raster, blend, topology and vertex
// state come from the quad pipeline; the pass has no depth/stencil attachment.
func (p *Pipeline) build(device gpu.Device, compiler shader.Compiler, sampleCount uint32) (pipeline.Pipeline, error) {
	next := pipeline.NewPipeline("deferred", append(p.quad.StateOptions(),
		pipeline.WithVertexShader(p.vertexShader),
		pipeline.WithFragmentShader(p.fragmentShader),
		pipeline.WithSampleCount(sampleCount),
		pipeline.WithDepthFormat(wgpu.TextureFormatUndefined),
	)...)
	if err := next.Build(device, compiler, p.BindGroupLayouts()); err != nil {
		return nil, fmt.Errorf("deferred: failed to build pipeline: %w", err)
	}
	return next, nil
}

// Rebuild recreates the render pipeline for a new sample count. The bind group layout and uniform
// buffer are reused, so bind groups created against the old pipeline stay valid. On failure the
// previous pipeline stays in use.
//
// Parameters:
//   - device: the device to create objects on
//   - compiler: the shader compiler
//   - sampleCount: the new multisample count
//
// Returns:
//   - error: compile or creation failure
func (p *Pipeline) Rebuild(device gpu.Device, compiler shader.Compiler, sampleCount uint32) error {
	next, err := p.build(device, compiler, sampleCount)
	if err != nil {
		return err
	}
	p.pipeline.Release(device)
	p.pipeline = next
	p.logger.Debug("rebuilt deferred pipeline", "samples", sampleCount)
	return nil
}

// Reload re-reads both shaders from disk and rebuilds at the current sample count. Shaders
// created from embedded sources are unchanged. On failure the previous shaders and pipeline stay.
//
// Parameters:
//   - device: the device to create objects on
//   - compiler: the shader compiler
//
// Returns:
//   - error: read, preprocess, compile or creation failure
func (p *Pipeline) Reload(device gpu.Device, compiler shader.Compiler) error {
	vs, err := p.vertexShader.Reload()
	if err != nil {
		return err
	}
	fs, err := p.fragmentShader.Reload()
	if err != nil {
		return err
	}

	prevVS, prevFS := p.vertexShader, p.fragmentShader
	p.vertexShader, p.fragmentShader = vs, fs
	if err := p.Rebuild(device, compiler, p.SampleCount()); err != nil {
		p.vertexShader, p.fragmentShader = prevVS, prevFS
		return err
	}
	p.logger.Info("reloaded deferred shaders")
	return nil
}

// ShaderPaths returns the on-disk shader sources, empty when the embedded sources are used.
func (p *Pipeline) ShaderPaths() []string {
	var paths []string
	for _, path := range []string{p.vertexPath, p.fragmentPath} {
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

// RenderPipeline returns the current render pipeline.
func (p *Pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.pipeline.RenderPipeline()
}

// BindGroupLayouts returns the layouts indexed by group. There is exactly one.
func (p *Pipeline) BindGroupLayouts() []*wgpu.BindGroupLayout {
	return []*wgpu.BindGroupLayout{p.bindGroupLayout}
}

// UniformBuffer returns the buffer bound at BindingUniforms.
func (p *Pipeline) UniformBuffer() *wgpu.Buffer {
	return p.uniformBuffer
}

// SampleCount returns the multisample count of the current render pipeline.
func (p *Pipeline) SampleCount() uint32 {
	return p.pipeline.SampleCount()
}

// Shader returns the current shader for stage.
func (p *Pipeline) Shader(stage shader.Stage) shader.Shader {
	return p.pipeline.Shader(stage)
}

// Release frees the render pipeline, bind group layout and uniform buffer.
func (p *Pipeline) Release(device gpu.Device) {
	p.pipeline.Release(device)
	gpu.Release(device, p.uniformBuffer, p.bindGroupLayout)
	p.uniformBuffer = nil
	p.bindGroupLayout = nil
}
