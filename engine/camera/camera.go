// Package camera provides the perspective camera whose inverse projection drives deferred lighting.
package camera

import (
	"math"

	"github.com/Carmen-Shannon/oxy-deferred/common"
)

type cameraImpl struct {
	position [3]float32
	target   [3]float32
	up       [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewMatrix              common.Mat4
	projectionMatrix        common.Mat4
	viewProjectionMatrix    common.Mat4
	inverseProjectionMatrix common.Mat4
}

// Camera holds perspective settings and a look-at pose, and keeps the derived matrices current.
type Camera interface {
	// Position returns the eye position in world space.
	//
	// Returns:
	//   - [3]float32: the eye position
	Position() [3]float32

	// Target returns the point the camera looks at.
	//
	// Returns:
	//   - [3]float32: the look-at target
	Target() [3]float32

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// ViewMatrix returns the world-to-view transform.
	ViewMatrix() common.Mat4

	// ProjectionMatrix returns the view-to-clip transform.
	ProjectionMatrix() common.Mat4

	// ViewProjectionMatrix returns ProjectionMatrix * ViewMatrix.
	ViewProjectionMatrix() common.Mat4

	// InverseProjectionMatrix returns the inverse of ProjectionMatrix, used to reconstruct
	// view-space positions from depth.
	InverseProjectionMatrix() common.Mat4

	// Frustum returns the world-space view frustum.
	Frustum() common.Frustum

	// Uniform returns the GPU camera block for the current pose.
	Uniform() GPUCameraUniform

	// LookAt moves the camera to eye and points it at target.
	//
	// Parameters:
	//   - eye: the new position
	//   - target: the new look-at point
	LookAt(eye, target [3]float32)

	// SetAspect updates the aspect ratio, typically after a resize.
	//
	// Parameters:
	//   - aspect: width / height
	SetAspect(aspect float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera at (0, 0, 5) looking at the origin with a 45 degree field of view.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		position: [3]float32{0, 0, 5},
		up:       [3]float32{0, 1, 0},
		fov:      45.0 * (math.Pi / 180.0),
		aspect:   1.0,
		near:     0.1,
		far:      100.0,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() [3]float32 {
	return c.position
}

func (c *cameraImpl) Target() [3]float32 {
	return c.target
}

func (c *cameraImpl) Fov() float32 {
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	return c.near
}

func (c *cameraImpl) Far() float32 {
	return c.far
}

func (c *cameraImpl) ViewMatrix() common.Mat4 {
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() common.Mat4 {
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() common.Mat4 {
	return c.viewProjectionMatrix
}

func (c *cameraImpl) InverseProjectionMatrix() common.Mat4 {
	return c.inverseProjectionMatrix
}

func (c *cameraImpl) Frustum() common.Frustum {
	return common.ExtractFrustum(c.viewProjectionMatrix)
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	return GPUCameraUniform{ViewProj: c.viewProjectionMatrix, CameraPosition: c.position}
}

func (c *cameraImpl) LookAt(eye, target [3]float32) {
	c.position = eye
	c.target = target
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect <= 0 {
		return
	}
	c.aspect = aspect
	c.updateMatrices()
}

// updateMatrices recalculates the view, projection, view-projection and inverse projection matrices.
func (c *cameraImpl) updateMatrices() {
	c.viewMatrix = common.LookAt(c.position, c.target, c.up)
	c.projectionMatrix = common.Perspective(c.fov, c.aspect, c.near, c.far)
	c.viewProjectionMatrix = common.Mul4(c.projectionMatrix, c.viewMatrix)
	c.inverseProjectionMatrix, _ = common.Invert4(c.projectionMatrix)
}
