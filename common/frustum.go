package common

import "math"

// Plane is ax + by + cz + d = 0 with (a, b, c) stored in Normal and d in Distance.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// Frustum holds six inward-facing planes: left, right, bottom, top, near, far.
type Frustum struct {
	Planes [6]Plane
}

// ExtractFrustum derives the frustum planes of a combined projection * view matrix
// (Gribb/Hartmann). Near uses row 2 alone because WebGPU clip depth is [0, 1].
//
// Parameters:
//   - viewProj: the column-major view-projection matrix
//
// Returns:
//   - Frustum: the frustum with normalized planes
func ExtractFrustum(viewProj Mat4) Frustum {
	row := func(r int) [4]float32 {
		return [4]float32{viewProj.At(r, 0), viewProj.At(r, 1), viewProj.At(r, 2), viewProj.At(r, 3)}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	combos := [6][4]float32{}
	for i := 0; i < 4; i++ {
		combos[0][i] = r3[i] + r0[i]
		combos[1][i] = r3[i] - r0[i]
		combos[2][i] = r3[i] + r1[i]
		combos[3][i] = r3[i] - r1[i]
		combos[4][i] = r2[i]
		combos[5][i] = r3[i] - r2[i]
	}

	var f Frustum
	for i, c := range combos {
		p := Plane{Normal: [3]float32{c[0], c[1], c[2]}, Distance: c[3]}
		if l := float32(math.Sqrt(float64(dot3(p.Normal, p.Normal)))); l > 0 {
			p.Normal = [3]float32{p.Normal[0] / l, p.Normal[1] / l, p.Normal[2] / l}
			p.Distance /= l
		}
		f.Planes[i] = p
	}
	return f
}

// IntersectsSphere reports whether a sphere overlaps the frustum.
//
// Parameters:
//   - center: sphere center in world space
//   - radius: sphere radius
//
// Returns:
//   - bool: false only if the sphere lies entirely outside at least one plane
func (f Frustum) IntersectsSphere(center [3]float32, radius float32) bool {
	for _, p := range f.Planes {
		if dot3(p.Normal, center)+p.Distance < -radius {
			return false
		}
	}
	return true
}
