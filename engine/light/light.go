// Package light holds the point lights resolved by the deferred pass and their GPU encoding.
package light

// pointLightImpl is the implementation of the Light interface.
type pointLightImpl struct {
	position [3]float32
	radius   float32
	enabled  bool
}

// Light is a point light contributing to the deferred lighting resolve.
//
// Lights are owned by the caller and packed into DeferredUniforms each frame by BuildDeferredUniforms.
type Light interface {
	// Position returns the world-space position of the light.
	//
	// Returns:
	//   - [3]float32: position as (x, y, z)
	Position() [3]float32

	// Radius returns the distance at which the light's contribution reaches zero.
	//
	// Returns:
	//   - float32: the radius in world units
	Radius() float32

	// Enabled reports whether the light should be packed for the GPU.
	//
	// Returns:
	//   - bool: true if the light is active
	Enabled() bool

	// SetPosition moves the light.
	//
	// Parameters:
	//   - x, y, z: the new world-space position
	SetPosition(x, y, z float32)

	// SetRadius sets the falloff radius. Negative values are clamped to zero.
	//
	// Parameters:
	//   - radius: the new radius
	SetRadius(radius float32)

	// SetEnabled toggles the light.
	//
	// Parameters:
	//   - enabled: whether the light is active
	SetEnabled(enabled bool)
}

var _ Light = &pointLightImpl{}

// NewPointLight creates an enabled point light with radius 1 at the origin, then applies opts.
//
// Parameters:
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: the configured light
func NewPointLight(opts ...LightBuilderOption) Light {
	l := &pointLightImpl{
		radius:  1,
		enabled: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *pointLightImpl) Position() [3]float32 {
	return l.position
}

func (l *pointLightImpl) Radius() float32 {
	return l.radius
}

func (l *pointLightImpl) Enabled() bool {
	return l.enabled
}

func (l *pointLightImpl) SetPosition(x, y, z float32) {
	l.position = [3]float32{x, y, z}
}

func (l *pointLightImpl) SetRadius(radius float32) {
	l.radius = max(radius, 0)
}

func (l *pointLightImpl) SetEnabled(enabled bool) {
	l.enabled = enabled
}
