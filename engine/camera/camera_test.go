package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

func TestInverseProjection(t *testing.T) {
	c := NewCamera(WithAspect(16.0/9.0), WithClipPlanes(0.5, 200))
	got := common.Mul4(c.ProjectionMatrix(), c.InverseProjectionMatrix())
	want := common.Identity()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5)
	}
}

func TestLookAtUpdatesMatrices(t *testing.T) {
	c := NewCamera()
	before := c.ViewProjectionMatrix()
	c.LookAt([3]float32{10, 0, 0}, [3]float32{0, 0, 0})
	assert.NotEqual(t, before, c.ViewProjectionMatrix())
	assert.Equal(t, [3]float32{10, 0, 0}, c.Uniform().CameraPosition)
	assert.True(t, c.Frustum().IntersectsSphere([3]float32{0, 0, 0}, 0.1))
	assert.False(t, c.Frustum().IntersectsSphere([3]float32{20, 0, 0}, 0.1))
}

func TestSetAspectIgnoresNonPositive(t *testing.T) {
	c := NewCamera()
	c.SetAspect(0)
	assert.Equal(t, float32(1), c.Aspect())
	c.SetAspect(2)
	assert.Equal(t, float32(2), c.Aspect())
}

func TestUniformEncoding(t *testing.T) {
	u := GPUCameraUniform{ViewProj: common.Identity(), CameraPosition: [3]float32{1, 2, 3}}
	buf := u.Marshal()
	assert.Len(t, buf, 80)
	assert.Equal(t, make([]byte, 4), buf[76:80])
	assert.Equal(t, 256, u.Alignment())
}
