package shader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/gputest"
)

const lightsStruct = `struct PointLight {
    origin: vec3<f32>,
    radius: f32,
}

struct Lights {
    inv_projection: mat4x4<f32>,
    count: u32,
    _pad0: u32,
    _pad1: u32,
    _pad2: u32,
    items: array<PointLight, 32>,
}
`

const fragmentSource = `//@oxy:include lights
//@oxy:include lights

@group(0) @binding(0) var tex_sampler: sampler;
@group(0) @binding(1) var diffuse: texture_multisampled_2d<f32>;
/* @group(0) @binding(9) var ignored: sampler; */
// @group(0) @binding(8) var also_ignored: sampler;
//@oxy:group 0 5 uniform lights lights

@fragment
fn main_fs(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    return textureLoad(diffuse, vec2<i32>(pos.xy), 0) * f32(lights.count);
}
`

const vertexSource = `struct QuadVertex {
    @location(0) position: vec2f,
    @location(1) texcoord: vec2<f32>,
}

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) texcoord: vec2<f32>,
}

@vertex
fn main_vs(v: QuadVertex) -> VertexOutput {
    var out: VertexOutput;
    out.clip = vec4<f32>(v.position, 0.0, 1.0);
    out.texcoord = v.texcoord;
    return out;
}
`

func newFragment(t *testing.T) Shader {
	t.Helper()
	s, err := NewShaderFromSource("lit", StageFragment, fragmentSource, WithStruct("lights", lightsStruct, "Lights"))
	require.NoError(t, err)
	return s
}

func TestPreProcessorExpandsDirectives(t *testing.T) {
	s := newFragment(t)

	assert.Contains(t, s.Source(), "@group(0) @binding(5) var<uniform> lights: Lights;")
	assert.Equal(t, 1, countOf(s.Source(), "struct Lights {"))
	require.Len(t, s.Declarations(), 1)
	d := s.Declarations()[0]
	assert.Equal(t, AnnotationTypeGroup, d.Type)
	assert.Equal(t, 5, d.Binding)
	assert.Equal(t, "lights", d.Key)
}

func TestPreProcessorErrors(t *testing.T) {
	cases := map[string]string{
		"unknown key":      "//@oxy:include nope\n@fragment fn f() {}",
		"unknown type":     "//@oxy:frobnicate x\n@fragment fn f() {}",
		"bad group":        "//@oxy:group x 0 uniform a lights\n@fragment fn f() {}",
		"bad address":      "//@oxy:group 0 0 private a lights\n@fragment fn f() {}",
		"missing argument": "//@oxy:include\n@fragment fn f() {}",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewShaderFromSource("bad", StageFragment, src, WithStruct("lights", lightsStruct, "Lights"))
			assert.Error(t, err)
		})
	}
}

func TestReflectBindGroups(t *testing.T) {
	s := newFragment(t)
	assert.Equal(t, "main_fs", s.EntryPoint())
	assert.Empty(t, s.VertexLayouts())

	entries := s.BindGroupLayoutEntries(0)
	require.Len(t, entries, 3)

	assert.Equal(t, uint32(0), entries[0].Binding)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, entries[0].Sampler.Type)

	assert.Equal(t, uint32(1), entries[1].Binding)
	assert.True(t, entries[1].Texture.Multisampled)
	assert.Equal(t, wgpu.TextureViewDimension2D, entries[1].Texture.ViewDimension)
	assert.Equal(t, wgpu.TextureSampleTypeUnfilterableFloat, entries[1].Texture.SampleType)

	assert.Equal(t, uint32(5), entries[2].Binding)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[2].Buffer.Type)
	assert.Equal(t, uint64(592), entries[2].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageFragment, entries[2].Visibility)

	assert.Equal(t, "diffuse", s.BindingVarName(0, 1))
	assert.Empty(t, s.BindingVarName(3, 0))
	assert.Nil(t, s.BindGroupLayoutEntries(1))
}

func TestReflectVertexLayout(t *testing.T) {
	s, err := NewShaderFromSource("quad", StageVertex, vertexSource)
	require.NoError(t, err)
	assert.Equal(t, "main_vs", s.EntryPoint())

	layouts := s.VertexLayouts()
	require.Len(t, layouts, 1)
	assert.Equal(t, uint64(16), layouts[0].ArrayStride)
	require.Len(t, layouts[0].Attributes, 2)
	assert.Equal(t, wgpu.VertexFormatFloat32x2, layouts[0].Attributes[0].Format)
	assert.Equal(t, uint64(8), layouts[0].Attributes[1].Offset)
	assert.Equal(t, uint32(1), layouts[0].Attributes[1].ShaderLocation)
}

func TestMissingEntryPoint(t *testing.T) {
	_, err := NewShaderFromSource("quad", StageFragment, vertexSource)
	assert.ErrorIs(t, err, ErrNoEntryPoint)
}

func TestStructLayouts(t *testing.T) {
	structs := parseStructs(stripComments(lightsStruct + `
struct Mixed {
    a: f32,
    b: vec3f,
    c: vec2<f32>,
    d: array<vec4<f32>>,
}`))
	r := newLayoutResolver(structs)

	l, ok := r.resolve("PointLight")
	require.True(t, ok)
	assert.Equal(t, typeLayout{16, 16}, l)

	l, ok = r.resolve("Lights")
	require.True(t, ok)
	assert.Equal(t, typeLayout{592, 16}, l)

	l, ok = r.resolve("Mixed")
	require.True(t, ok)
	assert.Equal(t, uint64(64), l.size)

	_, ok = r.resolve("Unknown")
	assert.False(t, ok)
}

func TestNewShaderFromPathAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(vertexSource), 0o644))

	s, err := NewShader("quad", StageVertex, path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())

	edited := []byte(vertexSource + "\n@vertex fn unused() -> @builtin(position) vec4<f32> { return vec4<f32>(); }\n")
	require.NoError(t, os.WriteFile(path, edited, 0o644))
	reloaded, err := s.Reload()
	require.NoError(t, err)
	assert.Contains(t, reloaded.Source(), "fn unused")

	_, err = NewShader("missing", StageVertex, filepath.Join(t.TempDir(), "none.wgsl"))
	assert.Error(t, err)
}

func TestCompilerValidatesBeforeCreate(t *testing.T) {
	s := newFragment(t)
	dev := &gputest.Device{}

	failing := NewCompiler(WithValidation(true), withValidator(func(string) ([]byte, error) {
		return nil, errors.New("unknown identifier 'x'")
	}))
	_, err := failing.Compile(dev, s)
	assert.ErrorContains(t, err, "failed validation")
	assert.Empty(t, dev.ShaderModules)

	gap := NewCompiler(WithValidation(true), withValidator(func(string) ([]byte, error) {
		return nil, errors.New("texture_multisampled_2d not yet implemented")
	}))
	_, err = gap.Compile(dev, s)
	require.NoError(t, err)

	unchecked := NewCompiler(withValidator(func(string) ([]byte, error) {
		t.Fatal("validator must not run")
		return nil, nil
	}))
	_, err = unchecked.Compile(dev, s)
	require.NoError(t, err)

	require.Len(t, dev.ShaderModules, 2)
	assert.Equal(t, "lit", dev.ShaderModules[0].Label)
	assert.Equal(t, s.Source(), dev.ShaderModules[0].WGSLDescriptor.Code)
}

func TestCompilerPropagatesDeviceError(t *testing.T) {
	dev := &gputest.Device{Fail: map[string]bool{"CreateShaderModule": true}}
	_, err := NewCompiler().Compile(dev, newFragment(t))
	assert.ErrorIs(t, err, gputest.ErrInjected)
}

func TestWatcherMarksChangedFiles(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "deferred.wgsl")
	other := filepath.Join(dir, "other.wgsl")
	require.NoError(t, os.WriteFile(watched, []byte("a"), 0o644))

	w, err := NewWatcher(nil)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(watched))

	require.NoError(t, os.WriteFile(other, []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(watched, []byte("c"), 0o644))

	abs, _ := filepath.Abs(watched)
	var got []string
	require.Eventually(t, func() bool {
		got = append(got, w.Drain()...)
		return len(got) > 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{abs}, dedupe(got))
	assert.Empty(t, w.Drain())

	require.NoError(t, w.Close())
	assert.Error(t, w.Watch(watched))
}

func countOf(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
