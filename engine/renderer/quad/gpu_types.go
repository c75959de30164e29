package quad

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
)

// VertexSource passes QuadVertex through to clip space.
//
//go:embed assets/quad_vs.wgsl
var VertexSource string

// FragmentSource samples a single texture across the quad.
//
//go:embed assets/quad_fs.wgsl
var FragmentSource string

// QuadVertex is one corner of the full-screen quad.
// Size: 16 bytes (vec2<f32> position, vec2<f32> texcoord).
type QuadVertex struct {
	Position [2]float32 // offset 0, normalized device coordinates
	Texcoord [2]float32 // offset 8, origin at the top-left
}

// quadVertexSize is the array stride of QuadVertex.
const quadVertexSize = 16

// Vertices covers clip space with two counter-clockwise triangles.
var Vertices = [6]QuadVertex{
	{Position: [2]float32{-1, -1}, Texcoord: [2]float32{0, 1}},
	{Position: [2]float32{1, -1}, Texcoord: [2]float32{1, 1}},
	{Position: [2]float32{1, 1}, Texcoord: [2]float32{1, 0}},
	{Position: [2]float32{-1, -1}, Texcoord: [2]float32{0, 1}},
	{Position: [2]float32{1, 1}, Texcoord: [2]float32{1, 0}},
	{Position: [2]float32{-1, 1}, Texcoord: [2]float32{0, 0}},
}

// VertexLayout is the buffer layout of QuadVertex at slot 0.
var VertexLayout = wgpu.VertexBufferLayout{
	ArrayStride: quadVertexSize,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
	},
}

// Marshal serializes the vertex into 16 little-endian bytes.
func (v QuadVertex) Marshal() []byte {
	buf := make([]byte, quadVertexSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(v.Texcoord[0]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(v.Texcoord[1]))
	return buf
}

// marshalVertices packs vs back to back.
func marshalVertices(vs []QuadVertex) []byte {
	buf := make([]byte, 0, len(vs)*quadVertexSize)
	for _, v := range vs {
		buf = append(buf, v.Marshal()...)
	}
	return buf
}
