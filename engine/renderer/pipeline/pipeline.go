// Package pipeline holds render pipeline configuration and turns it into GPU render pipelines.
package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
)

// ErrMissingShader is returned by Build when the vertex or fragment shader is unset.
var ErrMissingShader = errors.New("pipeline: both vertex and fragment shaders must be set")

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for labels and logs
	pipelineKey string

	vertexShader, fragmentShader shader.Shader

	// GPU objects owned by the pipeline once Build succeeds
	renderPipeline *wgpu.RenderPipeline
	pipelineLayout *wgpu.PipelineLayout
	vertexModule   *wgpu.ShaderModule
	fragmentModule *wgpu.ShaderModule

	// The following properties configure the pipeline during creation and can be set with the builder options.

	format              wgpu.TextureFormat
	sampleCount         uint32
	vertexLayouts       []wgpu.VertexBufferLayout
	depthFormat         wgpu.TextureFormat
	depthTestEnabled    bool
	depthWriteEnabled   bool
	depthBias           int32
	depthBiasSlopeScale float32
	blendEnabled        bool
	cullMode            wgpu.CullMode
	topology            wgpu.PrimitiveTopology
	frontFace           wgpu.FrontFace
	writeMask           wgpu.ColorWriteMask
	blendState          *wgpu.BlendState
}

// Pipeline describes a render pipeline with one color target: its shaders, its raster, blend
// and depth settings, and, after Build, the GPU objects created from them.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader for the given stage, or nil if not set.
	//
	// Parameters:
	//   - stage: the stage to look up
	//
	// Returns:
	//   - shader.Shader: the shader for the stage
	Shader(stage shader.Stage) shader.Shader

	// RenderPipeline returns the GPU pipeline, nil before Build.
	RenderPipeline() *wgpu.RenderPipeline

	// Format returns the color target format.
	Format() wgpu.TextureFormat

	// SampleCount returns the multisample count of the color target.
	SampleCount() uint32

	// VertexLayouts returns the vertex buffer layouts. When none were set explicitly they are
	// reflected from the vertex shader.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the layouts in buffer slot order
	VertexLayouts() []wgpu.VertexBufferLayout

	// DepthFormat returns the depth attachment format. TextureFormatUndefined means the pipeline
	// has no depth/stencil state.
	DepthFormat() wgpu.TextureFormat

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	DepthWriteEnabled() bool

	// DepthBias returns the constant depth bias.
	DepthBias() int32

	// DepthBiasSlopeScale returns the slope scaled depth bias.
	DepthBiasSlopeScale() float32

	// BlendEnabled returns whether blending is enabled for this pipeline.
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state configured for this pipeline.
	BlendState() *wgpu.BlendState

	// Descriptor assembles the render pipeline descriptor from the configuration.
	//
	// Parameters:
	//   - vs: the compiled vertex module
	//   - fs: the compiled fragment module
	//   - layout: the pipeline layout
	//
	// Returns:
	//   - *wgpu.RenderPipelineDescriptor: the descriptor
	Descriptor(vs, fs *wgpu.ShaderModule, layout *wgpu.PipelineLayout) *wgpu.RenderPipelineDescriptor

	// Build compiles both shaders and creates the pipeline layout and render pipeline. On success
	// any objects from a previous Build are released; on failure the previous objects stay.
	//
	// Parameters:
	//   - device: the device to create objects on
	//   - compiler: the shader compiler
	//   - bindGroupLayouts: the bind group layouts indexed by group, owned by the caller
	//
	// Returns:
	//   - error: a missing shader, compile or creation failure
	Build(device gpu.Device, compiler shader.Compiler, bindGroupLayouts []*wgpu.BindGroupLayout) error

	// Release frees the GPU objects created by Build.
	//
	// Parameters:
	//   - device: the device that created them
	Release(device gpu.Device)
}

var _ Pipeline = &pipeline{}

// NewPipeline creates an unbuilt render pipeline. Defaults: triangle list, CCW, no culling, depth
// disabled, blending off, one sample, BGRA8Unorm target.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline with the given configuration
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		format:            wgpu.TextureFormatBGRA8Unorm,
		sampleCount:       1,
		depthFormat:       wgpu.TextureFormatUndefined,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		blendEnabled:      false,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(stage shader.Stage) shader.Shader {
	switch stage {
	case shader.StageVertex:
		return p.vertexShader
	case shader.StageFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) Format() wgpu.TextureFormat {
	return p.format
}

func (p *pipeline) SampleCount() uint32 {
	return p.sampleCount
}

func (p *pipeline) VertexLayouts() []wgpu.VertexBufferLayout {
	if p.vertexLayouts != nil || p.vertexShader == nil {
		return p.vertexLayouts
	}
	return p.vertexShader.VertexLayouts()
}

func (p *pipeline) DepthFormat() wgpu.TextureFormat {
	return p.depthFormat
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthBias() int32 {
	return p.depthBias
}

func (p *pipeline) DepthBiasSlopeScale() float32 {
	return p.depthBiasSlopeScale
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) Descriptor(vs, fs *wgpu.ShaderModule, layout *wgpu.PipelineLayout) *wgpu.RenderPipelineDescriptor {
	target := wgpu.ColorTargetState{
		Format:    p.format,
		WriteMask: p.writeMask,
	}
	if p.blendEnabled {
		target.Blend = p.blendState
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.pipelineKey + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: p.vertexShader.EntryPoint(),
			Buffers:    p.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: p.fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.topology,
			FrontFace: p.frontFace,
			CullMode:  p.cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: p.sampleCount,
			Mask:  0xFFFFFFFF,
		},
	}

	if p.depthFormat != wgpu.TextureFormatUndefined {
		depthCompare := wgpu.CompareFunctionLess
		if !p.depthTestEnabled {
			depthCompare = wgpu.CompareFunctionAlways
		}
		desc.DepthStencil = &wgpu.DepthStencilState{
			Format:              p.depthFormat,
			DepthWriteEnabled:   p.depthWriteEnabled,
			DepthCompare:        depthCompare,
			DepthBias:           p.depthBias,
			DepthBiasSlopeScale: p.depthBiasSlopeScale,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}
	return desc
}

func (p *pipeline) Build(device gpu.Device, compiler shader.Compiler, bindGroupLayouts []*wgpu.BindGroupLayout) error {
	if p.vertexShader == nil || p.fragmentShader == nil {
		return fmt.Errorf("%w: %s", ErrMissingShader, p.pipelineKey)
	}

	vs, err := compiler.Compile(device, p.vertexShader)
	if err != nil {
		return err
	}
	fs, err := compiler.Compile(device, p.fragmentShader)
	if err != nil {
		gpu.Release(device, vs)
		return err
	}

	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.pipelineKey,
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		gpu.Release(device, fs, vs)
		return fmt.Errorf("pipeline: failed to create %s layout: %w", p.pipelineKey, err)
	}

	created, err := device.CreateRenderPipeline(p.Descriptor(vs, fs, layout))
	if err != nil {
		gpu.Release(device, layout, fs, vs)
		return fmt.Errorf("pipeline: failed to create %s: %w", p.pipelineKey, err)
	}

	p.Release(device)
	p.renderPipeline = created
	p.pipelineLayout = layout
	p.vertexModule = vs
	p.fragmentModule = fs
	return nil
}

func (p *pipeline) Release(device gpu.Device) {
	gpu.Release(device, p.renderPipeline, p.pipelineLayout, p.fragmentModule, p.vertexModule)
	p.renderPipeline = nil
	p.pipelineLayout = nil
	p.vertexModule = nil
	p.fragmentModule = nil
}

// MergeBindGroupLayouts combines the reflected bind group entries of a vertex and a fragment
// shader into entries per group index. Bindings present in both stages have their visibility
// ORed together. Entries are sorted by binding.
//
// Parameters:
//   - vertex: the vertex shader
//   - fragment: the fragment shader
//   - groups: the number of group indices to merge, starting at 0
//
// Returns:
//   - [][]wgpu.BindGroupLayoutEntry: merged entries indexed by group
func MergeBindGroupLayouts(vertex, fragment shader.Shader, groups uint32) [][]wgpu.BindGroupLayoutEntry {
	merged := make([][]wgpu.BindGroupLayoutEntry, groups)
	for g := uint32(0); g < groups; g++ {
		entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry)
		for _, e := range vertex.BindGroupLayoutEntries(g) {
			entryMap[e.Binding] = e
		}
		for _, e := range fragment.BindGroupLayoutEntries(g) {
			if existing, ok := entryMap[e.Binding]; ok {
				existing.Visibility |= e.Visibility
				entryMap[e.Binding] = existing
			} else {
				entryMap[e.Binding] = e
			}
		}

		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
		for _, e := range entryMap {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		merged[g] = entries
	}
	return merged
}
