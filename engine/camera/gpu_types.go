package camera

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

// GPUCameraUniformSource is the canonical WGSL definition of the CameraUniform struct.
//
//go:embed assets/camera_uniform.wgsl
var GPUCameraUniformSource string

// GPUCameraUniform is the per-draw camera block consumed by geometry passes.
// Layout: view_proj mat4x4<f32> at 0, camera_position vec3<f32> at 64, padding to 80.
// Declared with 256-byte alignment so camera blocks can be packed into a dynamic uniform arena.
type GPUCameraUniform struct {
	ViewProj       common.Mat4
	CameraPosition [3]float32
}

// Size returns the encoded size in bytes.
//
// Returns:
//   - int: 80
func (g GPUCameraUniform) Size() int {
	return 80
}

// Alignment returns the GPU-side alignment of the block.
func (g GPUCameraUniform) Alignment() int {
	return 256
}

// Marshal serializes the uniform into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the 80-byte encoding
func (g GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ViewProj[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.CameraPosition[i]))
	}
	return buf
}
