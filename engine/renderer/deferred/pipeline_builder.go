package deferred

import "github.com/charmbracelet/log"

// PipelineBuilderOption is a functional option used to configure a deferred Pipeline during construction.
type PipelineBuilderOption func(*Pipeline)

// WithShaderPaths loads the deferred shaders from disk instead of the embedded sources, which
// enables Reload.
//
// Parameters:
//   - vertexPath: path of the vertex shader WGSL
//   - fragmentPath: path of the fragment shader WGSL
//
// Returns:
//   - PipelineBuilderOption: a function that sets the shader paths
func WithShaderPaths(vertexPath, fragmentPath string) PipelineBuilderOption {
	return func(p *Pipeline) {
		p.vertexPath = vertexPath
		p.fragmentPath = fragmentPath
	}
}

// WithLogger overrides the pipeline logger.
func WithLogger(l *log.Logger) PipelineBuilderOption {
	return func(p *Pipeline) {
		p.logger = l
	}
}
