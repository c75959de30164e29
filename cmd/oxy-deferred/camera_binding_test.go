package main

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-deferred/engine/camera"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/uniform"
)

func newCameraArena(dev *gputest.Device) *uniform.DynamicUniformBuffer[camera.GPUCameraUniform] {
	return uniform.NewDynamicUniformBuffer[camera.GPUCameraUniform](dev,
		uniform.WithLabel("camera arena"),
		uniform.WithLogger(log.New(io.Discard)),
	)
}

func TestCameraBindingUsesBlockOffset(t *testing.T) {
	dev := &gputest.Device{}
	arena := newCameraArena(dev)
	binding, err := newCameraBinding(dev, arena)
	require.NoError(t, err)

	require.Len(t, dev.BindGroupLayouts, 1)
	entry := dev.BindGroupLayouts[0].Entries[0]
	assert.True(t, entry.Buffer.HasDynamicOffset)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entry.Buffer.Type)
	require.Len(t, dev.BindGroups, 1)
	assert.Same(t, arena.Buffer(), dev.BindGroups[0].Entries[0].Buffer)

	first := arena.Allocate(camera.GPUCameraUniform{})
	second := arena.Allocate(camera.GPUCameraUniform{})

	pass := &gputest.Pass{}
	binding.Bind(pass, second)
	assert.Equal(t, []uint32{second.Offset()}, pass.DynamicOffsets[cameraGroup])
	assert.NotZero(t, second.Offset())
	binding.Bind(pass, first)
	assert.Equal(t, []uint32{0}, pass.DynamicOffsets[cameraGroup])
	assert.NotNil(t, pass.BindGroups[cameraGroup])

	first.Release()
	second.Release()
	binding.Release()
	assert.Len(t, dev.Released, 2)
}

func TestCameraBindingReleasesLayoutOnFailure(t *testing.T) {
	dev := &gputest.Device{}
	arena := newCameraArena(dev)
	dev.Fail = map[string]bool{"CreateBindGroup": true}

	_, err := newCameraBinding(dev, arena)
	assert.ErrorIs(t, err, gputest.ErrInjected)
	assert.Len(t, dev.Released, 1)
}
