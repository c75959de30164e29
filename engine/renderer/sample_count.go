package renderer

import "errors"

// ErrUnsupportedSampleCount is returned for sample counts the deferred pass cannot read.
var ErrUnsupportedSampleCount = errors.New("renderer: unsupported MSAA sample count")

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1). The G-buffer is bound as
	// multisampled textures, so GraphicsState rejects it.
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA16x MSAASampleCount = 16
)

// Multisampled reports whether c is a supported multisampled count.
func (c MSAASampleCount) Multisampled() bool {
	switch c {
	case MSAA4x, MSAA8x, MSAA16x:
		return true
	default:
		return false
	}
}
