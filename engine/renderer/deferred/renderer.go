package deferred

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/light"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/quad"
)

// State is the slice of the graphics state the deferred pass draws with.
type State interface {
	Device() gpu.Device
	Queue() gpu.Queue
	DiffuseSampler() *wgpu.Sampler
	QuadPipeline() quad.Pipeline
	DeferredPipeline() *Pipeline
	Logger() *log.Logger
}

// Renderer binds one set of G-buffer views and records the deferred lighting draw.
// Create a new Renderer whenever any of the views change.
type Renderer struct {
	bindGroup *wgpu.BindGroup
}

// NewRenderer creates the deferred bind group over the given G-buffer views, the state's diffuse
// sampler and the deferred uniform buffer.
//
// Parameters:
//   - state: the graphics state
//   - diffuse: the multisampled diffuse color view
//   - normal: the multisampled normal view
//   - lighting: the multisampled light accumulation view
//   - depth: the multisampled linear depth view
//
// Returns:
//   - *Renderer: the renderer
//   - error: bind group creation failure
func NewRenderer(state State, diffuse, normal, lighting, depth *wgpu.TextureView) (*Renderer, error) {
	dp := state.DeferredPipeline()
	bg, err := state.Device().CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "deferred bind group",
		Layout: dp.BindGroupLayouts()[0],
		Entries: []wgpu.BindGroupEntry{
			{Binding: BindingSampler, Sampler: state.DiffuseSampler()},
			{Binding: BindingDiffuse, TextureView: diffuse},
			{Binding: BindingNormal, TextureView: normal},
			{Binding: BindingLight, TextureView: lighting},
			{Binding: BindingDepth, TextureView: depth},
			{Binding: BindingUniforms, Buffer: dp.UniformBuffer(), Offset: 0, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("deferred: failed to create bind group: %w", err)
	}
	return &Renderer{bindGroup: bg}, nil
}

// BindGroup returns the deferred bind group.
func (r *Renderer) BindGroup() *wgpu.BindGroup {
	return r.bindGroup
}

// UpdateUniforms writes u over the whole deferred uniform buffer. The write is queued ahead of any
// later submission, so draws recorded after it observe the new values.
//
// Parameters:
//   - state: the graphics state
//   - u: the lighting uniforms for this frame
func (r *Renderer) UpdateUniforms(state State, u light.DeferredUniforms) {
	if err := state.Queue().WriteBuffer(state.DeferredPipeline().UniformBuffer(), 0, u.Marshal()); err != nil {
		state.Logger().Error("failed to write deferred uniforms", "err", err)
	}
}

// RecordDraw updates the uniforms and records the full-screen lighting draw into pass.
//
// Parameters:
//   - state: the graphics state
//   - pass: an open render pass whose color attachment matches the deferred pipeline
//   - u: the lighting uniforms for this frame
func (r *Renderer) RecordDraw(state State, pass gpu.RenderPass, u light.DeferredUniforms) {
	r.UpdateUniforms(state, u)
	q := state.QuadPipeline()
	pass.SetPipeline(state.DeferredPipeline().RenderPipeline())
	pass.SetVertexBuffer(0, q.VertexBuffer(), 0, wgpu.WholeSize)
	pass.SetBindGroup(0, r.bindGroup, nil)
	pass.Draw(q.VertexCount(), 1, 0, 0)
}

// Release frees the bind group.
func (r *Renderer) Release(device gpu.Device) {
	gpu.Release(device, r.bindGroup)
	r.bindGroup = nil
}
