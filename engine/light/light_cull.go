package light

import "github.com/Carmen-Shannon/oxy-deferred/common"

// PackOptions controls how BuildDeferredUniforms selects lights.
type PackOptions struct {
	// Frustum, when non-nil, drops lights whose sphere lies entirely outside it.
	Frustum *common.Frustum
	// View transforms world-space light positions into view space, which is where the deferred
	// shader reconstructs fragment positions from depth. The zero value means identity.
	View *common.Mat4
}

// BuildDeferredUniforms packs the enabled lights into a DeferredUniforms value.
// Lights are taken in order; at most MaxLights are packed and the unused slots stay zeroed.
//
// Parameters:
//   - invProjection: the camera's inverse projection matrix
//   - lights: candidate lights
//   - opts: culling and transform options
//
// Returns:
//   - DeferredUniforms: the packed uniforms
//   - int: how many enabled, visible lights were dropped for lack of slots
func BuildDeferredUniforms(invProjection common.Mat4, lights []Light, opts PackOptions) (DeferredUniforms, int) {
	u := DeferredUniforms{InvProjection: invProjection}
	dropped := 0
	for _, l := range lights {
		if l == nil || !l.Enabled() {
			continue
		}
		pos := l.Position()
		if opts.Frustum != nil && !opts.Frustum.IntersectsSphere(pos, l.Radius()) {
			continue
		}
		if u.LightCount == MaxLights {
			dropped++
			continue
		}
		if opts.View != nil {
			v := common.MulVec4(*opts.View, [4]float32{pos[0], pos[1], pos[2], 1})
			pos = [3]float32{v[0], v[1], v[2]}
		}
		u.Lights[u.LightCount] = GPUPointLight{Origin: pos, Radius: l.Radius()}
		u.LightCount++
	}
	return u, dropped
}
