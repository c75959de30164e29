package common

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func TestSamplerDescriptorDefaults(t *testing.T) {
	desc := DefaultSamplerStagingData().Descriptor("diffuse")

	assert.Equal(t, "diffuse", desc.Label)
	assert.Equal(t, wgpu.FilterModeLinear, desc.MagFilter)
	assert.Equal(t, wgpu.FilterModeLinear, desc.MinFilter)
	assert.Equal(t, wgpu.MipmapFilterModeLinear, desc.MipmapFilter)
	assert.Equal(t, wgpu.AddressModeClampToEdge, desc.AddressModeU)
	assert.Equal(t, wgpu.AddressModeClampToEdge, desc.AddressModeW)
	assert.Equal(t, float32(32), desc.LodMaxClamp)
	assert.Equal(t, uint16(1), desc.MaxAnisotropy)
}

func TestSamplerDescriptorKeepsNearestAndRepeat(t *testing.T) {
	data := DefaultSamplerStagingData()
	data.MagFilter = wgpu.FilterModeNearest
	data.MipmapFilter = wgpu.MipmapFilterModeNearest
	data.AddressModeU = wgpu.AddressModeRepeat

	desc := data.Descriptor("x")
	assert.Equal(t, wgpu.FilterModeNearest, desc.MagFilter)
	assert.Equal(t, wgpu.MipmapFilterModeNearest, desc.MipmapFilter)
	assert.Equal(t, wgpu.AddressModeRepeat, desc.AddressModeU)
	assert.Equal(t, wgpu.FilterModeLinear, desc.MinFilter)

	// a bare literal is nearest/repeat throughout
	bare := SamplerStagingData{}.Descriptor("bare")
	assert.Equal(t, wgpu.FilterModeNearest, bare.MinFilter)
	assert.Equal(t, wgpu.AddressModeRepeat, bare.AddressModeV)
	assert.Equal(t, uint16(1), bare.MaxAnisotropy)
}
