// Package quad provides the full-screen quad shared by screen-space passes: its vertex buffer,
// vertex layout and the raster and color state other passes copy.
package quad

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
)

// quadPipeline is the implementation of the Pipeline interface.
type quadPipeline struct {
	format          wgpu.TextureFormat
	pipeline        pipeline.Pipeline
	bindGroupLayout *wgpu.BindGroupLayout
	vertexBuffer    *wgpu.Buffer
}

// Pipeline draws a textured full-screen quad and exposes the quad geometry and pipeline state.
type Pipeline interface {
	// RenderPipeline returns the quad render pipeline.
	RenderPipeline() *wgpu.RenderPipeline

	// BindGroupLayout returns the layout of group 0 (sampler at 0, texture at 1).
	BindGroupLayout() *wgpu.BindGroupLayout

	// VertexBuffer returns the buffer holding the six quad vertices.
	VertexBuffer() *wgpu.Buffer

	// VertexCount returns the number of vertices in VertexBuffer.
	VertexCount() uint32

	// VertexLayouts returns the quad vertex buffer layouts.
	VertexLayouts() []wgpu.VertexBufferLayout

	// Format returns the color target format.
	Format() wgpu.TextureFormat

	// SampleCount returns the multisample count the pipeline was built for.
	SampleCount() uint32

	// StateOptions returns the pipeline options other full-screen passes reuse: topology, winding,
	// culling, blending, write mask, color format and vertex layout. Depth state and the sample
	// count are left to the caller.
	//
	// Returns:
	//   - []pipeline.PipelineBuilderOption: the shared options
	StateOptions() []pipeline.PipelineBuilderOption

	// NewBindGroup binds a sampler and texture view for drawing with this pipeline.
	//
	// Parameters:
	//   - device: the device to create the bind group on
	//   - sampler: the sampler to bind at 0
	//   - view: the texture view to bind at 1
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group
	//   - error: creation failure
	NewBindGroup(device gpu.Device, sampler *wgpu.Sampler, view *wgpu.TextureView) (*wgpu.BindGroup, error)

	// Rebuild recreates the render pipeline for a new sample count, reusing the bind group layout.
	//
	// Parameters:
	//   - device: the device to create objects on
	//   - compiler: the shader compiler
	//   - sampleCount: the new multisample count
	//
	// Returns:
	//   - error: compile or creation failure; the previous pipeline stays in use
	Rebuild(device gpu.Device, compiler shader.Compiler, sampleCount uint32) error

	// Release frees the GPU objects owned by the quad pipeline.
	Release(device gpu.Device)
}

var _ Pipeline = &quadPipeline{}

// NewPipeline creates the quad vertex buffer, bind group layout and render pipeline.
//
// Parameters:
//   - device: the device to create objects on
//   - compiler: the shader compiler
//   - format: the color target format
//   - sampleCount: the multisample count of the color target
//
// Returns:
//   - Pipeline: the quad pipeline
//   - error: shader, buffer or pipeline creation failure
func NewPipeline(device gpu.Device, compiler shader.Compiler, format wgpu.TextureFormat, sampleCount uint32) (Pipeline, error) {
	vs, err := shader.NewShaderFromSource("quad_vs", shader.StageVertex, VertexSource)
	if err != nil {
		return nil, err
	}
	fs, err := shader.NewShaderFromSource("quad_fs", shader.StageFragment, FragmentSource)
	if err != nil {
		return nil, err
	}

	q := &quadPipeline{format: format}
	q.pipeline = pipeline.NewPipeline("quad", append(q.StateOptions(),
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithSampleCount(sampleCount),
	)...)

	q.bindGroupLayout, err = device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "quad bind group layout",
		Entries: pipeline.MergeBindGroupLayouts(vs, fs, 1)[0],
	})
	if err != nil {
		return nil, fmt.Errorf("quad: failed to create bind group layout: %w", err)
	}

	q.vertexBuffer, err = device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "quad vertex buffer",
		Contents: marshalVertices(Vertices[:]),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		gpu.Release(device, q.bindGroupLayout)
		return nil, fmt.Errorf("quad: failed to create vertex buffer: %w", err)
	}

	if err := q.pipeline.Build(device, compiler, []*wgpu.BindGroupLayout{q.bindGroupLayout}); err != nil {
		gpu.Release(device, q.vertexBuffer, q.bindGroupLayout)
		return nil, err
	}
	return q, nil
}

func (q *quadPipeline) RenderPipeline() *wgpu.RenderPipeline {
	return q.pipeline.RenderPipeline()
}

func (q *quadPipeline) BindGroupLayout() *wgpu.BindGroupLayout {
	return q.bindGroupLayout
}

func (q *quadPipeline) VertexBuffer() *wgpu.Buffer {
	return q.vertexBuffer
}

func (q *quadPipeline) VertexCount() uint32 {
	return uint32(len(Vertices))
}

func (q *quadPipeline) VertexLayouts() []wgpu.VertexBufferLayout {
	return []wgpu.VertexBufferLayout{VertexLayout}
}

func (q *quadPipeline) Format() wgpu.TextureFormat {
	return q.format
}

func (q *quadPipeline) SampleCount() uint32 {
	return q.pipeline.SampleCount()
}

func (q *quadPipeline) StateOptions() []pipeline.PipelineBuilderOption {
	return []pipeline.PipelineBuilderOption{
		pipeline.WithTopology(wgpu.PrimitiveTopologyTriangleList),
		pipeline.WithFrontFace(wgpu.FrontFaceCCW),
		pipeline.WithCullMode(wgpu.CullModeNone),
		pipeline.WithBlendEnabled(false),
		pipeline.WithWriteMask(wgpu.ColorWriteMaskAll),
		pipeline.WithFormat(q.format),
		pipeline.WithVertexLayouts(q.VertexLayouts()),
	}
}

func (q *quadPipeline) NewBindGroup(device gpu.Device, sampler *wgpu.Sampler, view *wgpu.TextureView) (*wgpu.BindGroup, error) {
	bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "quad bind group",
		Layout: q.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Sampler: sampler},
			{Binding: 1, TextureView: view},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("quad: failed to create bind group: %w", err)
	}
	return bg, nil
}

func (q *quadPipeline) Rebuild(device gpu.Device, compiler shader.Compiler, sampleCount uint32) error {
	next := pipeline.NewPipeline("quad", append(q.StateOptions(),
		pipeline.WithVertexShader(q.pipeline.Shader(shader.StageVertex)),
		pipeline.WithFragmentShader(q.pipeline.Shader(shader.StageFragment)),
		pipeline.WithSampleCount(sampleCount),
	)...)
	if err := next.Build(device, compiler, []*wgpu.BindGroupLayout{q.bindGroupLayout}); err != nil {
		return err
	}
	q.pipeline.Release(device)
	q.pipeline = next
	return nil
}

func (q *quadPipeline) Release(device gpu.Device) {
	q.pipeline.Release(device)
	gpu.Release(device, q.vertexBuffer, q.bindGroupLayout)
	q.vertexBuffer = nil
	q.bindGroupLayout = nil
}
