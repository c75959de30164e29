package light

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// MaxLights is the number of point-light slots in DeferredUniforms. It must match the
// array length in DeferredUniformsSource.
const MaxLights = 32

// DeferredUniformsSource is the canonical WGSL definition of the PointLight and DeferredUniforms structs.
//
//go:embed assets/deferred_uniforms.wgsl
var DeferredUniformsSource string

// GPUPointLight is one entry of DeferredUniforms.Lights.
// Size: 16 bytes (vec3<f32> origin followed by f32 radius).
type GPUPointLight struct {
	Origin [3]float32 // offset 0
	Radius float32    // offset 12
}

// gpuPointLightSize is the encoded size and array stride of GPUPointLight.
const gpuPointLightSize = 16

func (p GPUPointLight) put(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.Origin[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.Origin[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(p.Origin[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(p.Radius))
}

// DeferredUniforms is the per-frame lighting state read by the deferred fragment shader.
// Matches the WGSL DeferredUniforms struct in DeferredUniformsSource:
//
//	offset   0: inv_projection mat4x4<f32>, column-major
//	offset  64: light_count u32
//	offset  68: three u32 padding words, always zero
//	offset  80: lights array<PointLight, MaxLights>
//
// Size: 592 bytes. Declared alignment is 256 so the struct is also valid in a dynamic uniform arena.
type DeferredUniforms struct {
	InvProjection common.Mat4
	LightCount    uint32
	Lights        [MaxLights]GPUPointLight
}

const deferredLightsOffset = 80

// NewDeferredUniforms returns uniforms with an identity inverse projection and no lights.
func NewDeferredUniforms() DeferredUniforms {
	return DeferredUniforms{InvProjection: common.Identity()}
}

// Size returns the encoded size of DeferredUniforms in bytes.
//
// Returns:
//   - int: 592
func (u DeferredUniforms) Size() int {
	return deferredLightsOffset + MaxLights*gpuPointLightSize
}

// Alignment returns the GPU alignment of the struct.
func (u DeferredUniforms) Alignment() int {
	return 256
}

// Marshal serializes the uniforms into a byte buffer suitable for GPU upload.
// LightCount is clamped to MaxLights.
//
// Returns:
//   - []byte: 592-byte buffer ready for GPU upload
func (u DeferredUniforms) Marshal() []byte {
	buf := make([]byte, u.Size())
	for i, v := range u.InvProjection {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[64:68], min(u.LightCount, MaxLights))
	// 68..80 is padding and stays zero.
	for i, l := range u.Lights {
		off := deferredLightsOffset + i*gpuPointLightSize
		l.put(buf[off : off+gpuPointLightSize])
	}
	return buf
}
