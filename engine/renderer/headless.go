package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

// ErrFrameInProgress is returned when RenderFrame is re-entered from its own record callback.
var ErrFrameInProgress = errors.New("renderer: frame already in progress")

// HeadlessDevice is a surfaceless adapter, device and queue for offscreen rendering.
type HeadlessDevice struct {
	mu      sync.Mutex
	inFrame bool

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
}

// RequestHeadlessDevice creates an instance, picks an adapter and opens a device on it.
// The calling goroutine is locked to its OS thread, as wgpu-native expects.
//
// Parameters:
//   - forceFallbackAdapter: request the software fallback adapter
//
// Returns:
//   - *HeadlessDevice: the opened device
//   - error: no suitable adapter, or device creation failure
func RequestHeadlessDevice(forceFallbackAdapter bool) (*HeadlessDevice, error) {
	runtime.LockOSThread()
	h := &HeadlessDevice{instance: wgpu.CreateInstance(nil)}

	a, err := h.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
	})
	if err != nil {
		h.Release()
		return nil, fmt.Errorf("renderer: failed to request adapter: %w", err)
	}
	h.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Headless Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		h.Release()
		return nil, fmt.Errorf("renderer: failed to request device: %w", err)
	}
	h.device = d
	h.queue = d.GetQueue()
	return h, nil
}

// Device returns the wgpu device.
func (h *HeadlessDevice) Device() *wgpu.Device {
	return h.device
}

// Queue returns the device queue.
func (h *HeadlessDevice) Queue() *wgpu.Queue {
	return h.queue
}

// RenderFrame encodes one render pass described by descriptor, lets record fill it and submits the
// result to the queue. Queue writes made inside record are ordered before the submitted draws.
//
// Parameters:
//   - descriptor: the render pass descriptor, typically from a GBuffer
//   - record: records draw calls into the open pass
//
// Returns:
//   - error: an encoder or finish failure, or ErrFrameInProgress
func (h *HeadlessDevice) RenderFrame(descriptor *wgpu.RenderPassDescriptor, record func(pass gpu.RenderPass)) error {
	h.mu.Lock()
	if h.inFrame {
		h.mu.Unlock()
		return ErrFrameInProgress
	}
	h.inFrame = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		h.inFrame = false
		h.mu.Unlock()
	}()

	encoder, err := h.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("renderer: failed to create command encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(descriptor)
	record(pass)
	pass.End()
	pass.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("renderer: failed to finish command encoder: %w", err)
	}
	defer commandBuffer.Release()

	h.queue.Submit(commandBuffer)
	return nil
}

// Release frees the queue, device, adapter and instance.
func (h *HeadlessDevice) Release() {
	if h.queue != nil {
		h.queue.Release()
		h.queue = nil
	}
	if h.device != nil {
		h.device.Release()
		h.device = nil
	}
	if h.adapter != nil {
		h.adapter.Release()
		h.adapter = nil
	}
	if h.instance != nil {
		h.instance.Release()
		h.instance = nil
	}
}
