package light

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

func f32At(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

func TestDeferredUniformsLayout(t *testing.T) {
	u := NewDeferredUniforms()
	u.InvProjection[12] = 5 // column 3, row 0
	u.LightCount = 2
	u.Lights[0] = GPUPointLight{Origin: [3]float32{1, 2, 3}, Radius: 4}
	u.Lights[1] = GPUPointLight{Origin: [3]float32{-1, -2, -3}, Radius: 0.5}

	buf := u.Marshal()
	require.Len(t, buf, 592)
	assert.Equal(t, 592, u.Size())
	assert.Equal(t, 256, u.Alignment())

	assert.Equal(t, float32(1), f32At(buf, 0))
	assert.Equal(t, float32(5), f32At(buf, 48))
	assert.Equal(t, float32(1), f32At(buf, 60))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(buf[64:]))
	assert.Equal(t, make([]byte, 12), buf[68:80])

	assert.Equal(t, []float32{1, 2, 3, 4}, []float32{f32At(buf, 80), f32At(buf, 84), f32At(buf, 88), f32At(buf, 92)})
	assert.Equal(t, []float32{-1, -2, -3, 0.5}, []float32{f32At(buf, 96), f32At(buf, 100), f32At(buf, 104), f32At(buf, 108)})
	assert.Equal(t, make([]byte, 592-112), buf[112:])
}

func TestMarshalClampsLightCount(t *testing.T) {
	u := DeferredUniforms{LightCount: 1000}
	assert.Equal(t, uint32(MaxLights), binary.LittleEndian.Uint32(u.Marshal()[64:]))
}

func TestWGSLMatchesMaxLights(t *testing.T) {
	assert.True(t, strings.Contains(DeferredUniformsSource, "array<PointLight, 32>"))
	assert.Equal(t, 32, MaxLights)
}

func TestNewPointLight(t *testing.T) {
	l := NewPointLight(WithPosition(1, 2, 3), WithRadius(-2))
	assert.Equal(t, [3]float32{1, 2, 3}, l.Position())
	assert.Zero(t, l.Radius())
	assert.True(t, l.Enabled())

	l.SetEnabled(false)
	assert.False(t, l.Enabled())
	assert.False(t, NewPointLight(WithEnabled(false)).Enabled())
}

func TestBuildDeferredUniformsSkipsDisabled(t *testing.T) {
	lights := []Light{
		NewPointLight(WithPosition(1, 0, 0), WithRadius(2)),
		NewPointLight(WithEnabled(false)),
		nil,
		NewPointLight(WithPosition(0, 1, 0), WithRadius(3)),
	}
	u, dropped := BuildDeferredUniforms(common.Identity(), lights, PackOptions{})
	assert.Zero(t, dropped)
	assert.Equal(t, uint32(2), u.LightCount)
	assert.Equal(t, GPUPointLight{Origin: [3]float32{1, 0, 0}, Radius: 2}, u.Lights[0])
	assert.Equal(t, GPUPointLight{Origin: [3]float32{0, 1, 0}, Radius: 3}, u.Lights[1])
	assert.Equal(t, GPUPointLight{}, u.Lights[2])
	assert.Equal(t, common.Identity(), u.InvProjection)
}

func TestBuildDeferredUniformsCapsAtMaxLights(t *testing.T) {
	lights := make([]Light, MaxLights+5)
	for i := range lights {
		lights[i] = NewPointLight(WithPosition(float32(i), 0, 0))
	}
	u, dropped := BuildDeferredUniforms(common.Identity(), lights, PackOptions{})
	assert.Equal(t, uint32(MaxLights), u.LightCount)
	assert.Equal(t, 5, dropped)
	assert.Equal(t, float32(MaxLights-1), u.Lights[MaxLights-1].Origin[0])
}

func TestBuildDeferredUniformsCullsAndTransforms(t *testing.T) {
	view := common.LookAt([3]float32{0, 0, 5}, [3]float32{0, 0, 0}, [3]float32{0, 1, 0})
	proj := common.Perspective(float32(math.Pi/2), 1, 0.1, 100)
	frustum := common.ExtractFrustum(common.Mul4(proj, view))

	lights := []Light{
		NewPointLight(WithPosition(0, 0, 0), WithRadius(1)),
		NewPointLight(WithPosition(0, 0, 50), WithRadius(1)),
	}
	u, _ := BuildDeferredUniforms(common.Identity(), lights, PackOptions{Frustum: &frustum, View: &view})
	require.Equal(t, uint32(1), u.LightCount)
	assert.InDelta(t, -5, u.Lights[0].Origin[2], 1e-5)
}
