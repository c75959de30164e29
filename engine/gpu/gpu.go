// Package gpu declares the narrow slices of the WebGPU device, queue and render pass that the
// renderer packages depend on. *wgpu.Device, *wgpu.Queue and *wgpu.RenderPassEncoder satisfy them
// directly, which lets the arena and the deferred pass be driven without a physical adapter.
package gpu

import (
	"reflect"

	"github.com/cogentcore/webgpu/wgpu"
)

// Device creates GPU objects.
type Device interface {
	CreateBuffer(descriptor *wgpu.BufferDescriptor) (*wgpu.Buffer, error)
	CreateBufferInit(descriptor *wgpu.BufferInitDescriptor) (*wgpu.Buffer, error)
	CreateBindGroupLayout(descriptor *wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error)
	CreateBindGroup(descriptor *wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error)
	CreatePipelineLayout(descriptor *wgpu.PipelineLayoutDescriptor) (*wgpu.PipelineLayout, error)
	CreateShaderModule(descriptor *wgpu.ShaderModuleDescriptor) (*wgpu.ShaderModule, error)
	CreateRenderPipeline(descriptor *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error)
	CreateSampler(descriptor *wgpu.SamplerDescriptor) (*wgpu.Sampler, error)
	CreateTexture(descriptor *wgpu.TextureDescriptor) (*wgpu.Texture, error)
}

// Queue transfers host data into GPU buffers. Writes are ordered with respect to later submissions.
type Queue interface {
	WriteBuffer(buffer *wgpu.Buffer, bufferOffset uint64, data []byte) error
}

// RenderPass records draw state and draw calls into an open render pass.
type RenderPass interface {
	SetPipeline(pipeline *wgpu.RenderPipeline)
	SetVertexBuffer(slot uint32, buffer *wgpu.Buffer, offset, size uint64)
	SetBindGroup(groupIndex uint32, group *wgpu.BindGroup, dynamicOffsets []uint32)
	Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32)
}

// Releasable is implemented by every wgpu handle.
type Releasable interface {
	Release()
}

// HandleReleaser is an optional Device extension that takes over releasing handles it created.
type HandleReleaser interface {
	ReleaseHandle(h Releasable)
}

// Release frees handles created by device in order. Nil handles are skipped.
//
// Parameters:
//   - device: the device that created the handles
//   - handles: the handles to release
func Release(device Device, handles ...Releasable) {
	hr, _ := device.(HandleReleaser)
	for _, h := range handles {
		if h == nil {
			continue
		}
		if v := reflect.ValueOf(h); v.Kind() == reflect.Pointer && v.IsNil() {
			continue
		}
		if hr != nil {
			hr.ReleaseHandle(h)
			continue
		}
		h.Release()
	}
}

// TextureViewCreator is an optional Device extension that creates views of textures it created.
type TextureViewCreator interface {
	CreateTextureView(texture *wgpu.Texture, descriptor *wgpu.TextureViewDescriptor) (*wgpu.TextureView, error)
}

// CreateView creates a view of texture, deferring to device when it implements TextureViewCreator.
//
// Parameters:
//   - device: the device that created texture
//   - texture: the texture to view
//   - descriptor: the view descriptor, nil for the default view
//
// Returns:
//   - *wgpu.TextureView: the view
//   - error: creation failure
func CreateView(device Device, texture *wgpu.Texture, descriptor *wgpu.TextureViewDescriptor) (*wgpu.TextureView, error) {
	if vc, ok := device.(TextureViewCreator); ok {
		return vc.CreateTextureView(texture, descriptor)
	}
	return texture.CreateView(descriptor)
}

var (
	_ Device     = (*wgpu.Device)(nil)
	_ Queue      = (*wgpu.Queue)(nil)
	_ RenderPass = (*wgpu.RenderPassEncoder)(nil)
)
