package renderer

import (
	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/deferred"
	"github.com/Carmen-Shannon/oxy-deferred/engine/renderer/shader"
)

// GraphicsStateBuilderOption is a functional option applied to a GraphicsState during construction via NewGraphicsState.
type GraphicsStateBuilderOption func(*graphicsState)

// WithMSAA sets the multisample anti-aliasing sample count. When not specified, the default is MSAA4x.
// Higher values (MSAA8x, MSAA16x) are adapter-dependent and may not be supported by all hardware.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAA4x, MSAA8x, or MSAA16x)
//
// Returns:
//   - GraphicsStateBuilderOption: a function that applies the MSAA option
func WithMSAA(count MSAASampleCount) GraphicsStateBuilderOption {
	return func(s *graphicsState) {
		s.sampleCount = count
	}
}

// WithFormat sets the color format of the deferred output. Defaults to BGRA8Unorm.
//
// Parameters:
//   - format: the output texture format
//
// Returns:
//   - GraphicsStateBuilderOption: a function that applies the format option
func WithFormat(format wgpu.TextureFormat) GraphicsStateBuilderOption {
	return func(s *graphicsState) {
		s.format = format
	}
}

// WithCompiler overrides the shader compiler.
func WithCompiler(c shader.Compiler) GraphicsStateBuilderOption {
	return func(s *graphicsState) {
		s.compiler = c
	}
}

// WithLogger overrides the renderer logger.
func WithLogger(l *log.Logger) GraphicsStateBuilderOption {
	return func(s *graphicsState) {
		s.logger = l
	}
}

// WithDiffuseSampler sets the diffuse sampler configuration. Without it the sampler uses
// common.DefaultSamplerStagingData.
//
// Parameters:
//   - data: the sampler configuration
//
// Returns:
//   - GraphicsStateBuilderOption: a function that applies the sampler option
func WithDiffuseSampler(data common.SamplerStagingData) GraphicsStateBuilderOption {
	return func(s *graphicsState) {
		s.samplerData = data
	}
}

// WithDeferredShaderPaths loads the deferred shaders from disk so they can be reloaded.
//
// Parameters:
//   - vertexPath: path of the deferred vertex shader
//   - fragmentPath: path of the deferred fragment shader
//
// Returns:
//   - GraphicsStateBuilderOption: a function that applies the shader path option
func WithDeferredShaderPaths(vertexPath, fragmentPath string) GraphicsStateBuilderOption {
	return func(s *graphicsState) {
		s.deferredOpts = append(s.deferredOpts, deferred.WithShaderPaths(vertexPath, fragmentPath))
	}
}
