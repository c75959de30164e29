package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertMatNear(t *testing.T, want, got Mat4) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "element %d", i)
	}
}

func TestMul4Identity(t *testing.T) {
	m := LookAt([3]float32{1, 2, 3}, [3]float32{0, 0, 0}, [3]float32{0, 1, 0})
	assert.Equal(t, m, Mul4(Identity(), m))
	assert.Equal(t, m, Mul4(m, Identity()))
}

func TestInvert4RoundTrip(t *testing.T) {
	proj := Perspective(float32(math.Pi/3), 16.0/9.0, 0.1, 100)
	inv, ok := Invert4(proj)
	require.True(t, ok)
	assertMatNear(t, Identity(), Mul4(proj, inv))

	view := LookAt([3]float32{4, 3, -2}, [3]float32{0, 1, 0}, [3]float32{0, 1, 0})
	inv, ok = Invert4(view)
	require.True(t, ok)
	assertMatNear(t, Identity(), Mul4(inv, view))
}

func TestInvert4Singular(t *testing.T) {
	inv, ok := Invert4(Mat4{})
	assert.False(t, ok)
	assert.Equal(t, Identity(), inv)
}

func TestPerspectiveDepthRange(t *testing.T) {
	proj := Perspective(float32(math.Pi/2), 1, 1, 10)
	near := MulVec4(proj, [4]float32{0, 0, -1, 1})
	far := MulVec4(proj, [4]float32{0, 0, -10, 1})
	assert.InDelta(t, 0, near[2]/near[3], 1e-6)
	assert.InDelta(t, 1, far[2]/far[3], 1e-6)
}

func TestLookAtMovesEyeToOrigin(t *testing.T) {
	eye := [3]float32{3, -2, 7}
	view := LookAt(eye, [3]float32{0, 0, 0}, [3]float32{0, 1, 0})
	p := MulVec4(view, [4]float32{eye[0], eye[1], eye[2], 1})
	assert.InDeltaSlice(t, []float32{0, 0, 0, 1}, p[:], 1e-5)
}

func TestFrustumIntersectsSphere(t *testing.T) {
	vp := Mul4(Perspective(float32(math.Pi/2), 1, 0.1, 50), Identity())
	f := ExtractFrustum(vp)

	assert.True(t, f.IntersectsSphere([3]float32{0, 0, -10}, 1))
	assert.False(t, f.IntersectsSphere([3]float32{0, 0, 10}, 1))
	assert.False(t, f.IntersectsSphere([3]float32{0, 0, -100}, 1))
	assert.False(t, f.IntersectsSphere([3]float32{-30, 0, -10}, 1))
	assert.True(t, f.IntersectsSphere([3]float32{-10.5, 0, -10}, 1))
}

func TestAlignUpAndCoalesce(t *testing.T) {
	assert.Equal(t, uint64(768), AlignUp(592, 256))
	assert.Equal(t, uint64(256), AlignUp(256, 256))
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Zero(t, Coalesce(0, 0))
}
