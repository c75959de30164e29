package light

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*pointLightImpl)

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - x: the x position component
//   - y: the y position component
//   - z: the z position component
//
// Returns:
//   - LightBuilderOption: a function that applies the position option
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *pointLightImpl) {
		l.SetPosition(x, y, z)
	}
}

// WithRadius is an option builder that sets the falloff radius of the light.
//
// Parameters:
//   - radius: the radius in world units
//
// Returns:
//   - LightBuilderOption: a function that applies the radius option
func WithRadius(radius float32) LightBuilderOption {
	return func(l *pointLightImpl) {
		l.SetRadius(radius)
	}
}

// WithEnabled is an option builder that sets whether the light starts active.
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *pointLightImpl) {
		l.enabled = enabled
	}
}
