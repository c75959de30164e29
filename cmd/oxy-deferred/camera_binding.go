package main

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/uniform"
)

// cameraGroup is the bind group index the geometry pass reads the camera from.
const cameraGroup = 0

// cameraBinding exposes the camera arena to the geometry pass as a dynamic-offset uniform.
type cameraBinding struct {
	device gpu.Device
	layout *wgpu.BindGroupLayout
	group  *wgpu.BindGroup
}

func newCameraBinding(device gpu.Device, arena *uniform.DynamicUniformBuffer[camera.GPUCameraUniform]) (*cameraBinding, error) {
	layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "camera bind group layout",
		Entries: []wgpu.BindGroupLayoutEntry{arena.BindGroupLayoutEntry(0, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create camera bind group layout: %w", err)
	}
	group, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "camera bind group",
		Layout:  layout,
		Entries: []wgpu.BindGroupEntry{arena.BindGroupEntry(0)},
	})
	if err != nil {
		gpu.Release(device, layout)
		return nil, fmt.Errorf("failed to create camera bind group: %w", err)
	}
	return &cameraBinding{device: device, layout: layout, group: group}, nil
}

// Bind selects block as the camera for every draw recorded after it.
func (c *cameraBinding) Bind(pass gpu.RenderPass, block *uniform.Block[camera.GPUCameraUniform]) {
	pass.SetBindGroup(cameraGroup, c.group, []uint32{block.Offset()})
}

func (c *cameraBinding) Release() {
	gpu.Release(c.device, c.group, c.layout)
	c.group, c.layout = nil, nil
}
