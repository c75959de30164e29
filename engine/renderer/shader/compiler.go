package shader

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
)

// compiler is the implementation of the Compiler interface.
type compiler struct {
	validate   bool
	logger     *log.Logger
	validateFn func(string) ([]byte, error)
}

// Compiler turns reflected shaders into GPU shader modules.
type Compiler interface {
	// Compile creates the GPU module for s, validating the WGSL first when enabled.
	//
	// Parameters:
	//   - device: the device that owns the module
	//   - s: the shader to compile
	//
	// Returns:
	//   - *wgpu.ShaderModule: the compiled module
	//   - error: validation or device failure
	Compile(device gpu.Device, s Shader) (*wgpu.ShaderModule, error)

	// Validate runs the offline WGSL front end over source without touching a device.
	// Frontend gaps (features naga does not implement yet) are reported as nil.
	Validate(key, source string) error
}

var _ Compiler = &compiler{}

// NewCompiler creates a Compiler. Validation is off unless WithValidation(true) is given.
//
// Parameters:
//   - opts: builder options
//
// Returns:
//   - Compiler: the compiler
func NewCompiler(opts ...CompilerBuilderOption) Compiler {
	c := &compiler{
		validateFn: func(source string) ([]byte, error) { return naga.Compile(source) },
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = common.Coalesce(c.logger, logger.Named("shader"))
	return c
}

func (c *compiler) Compile(device gpu.Device, s Shader) (*wgpu.ShaderModule, error) {
	if c.validate {
		if err := c.Validate(s.Key(), s.Source()); err != nil {
			return nil, err
		}
	}
	module, err := device.CreateShaderModule(s.Module())
	if err != nil {
		return nil, fmt.Errorf("shader: failed to create %s module: %w", s.Key(), err)
	}
	c.logger.Debug("compiled shader", "key", s.Key(), "stage", s.Stage(), "entry", s.EntryPoint())
	return module, nil
}

func (c *compiler) Validate(key, source string) error {
	if _, err := c.validateFn(source); err != nil {
		if isFrontendGap(err) {
			c.logger.Warn("skipping shader validation", "key", key, "reason", err)
			return nil
		}
		return fmt.Errorf("shader: %s failed validation: %w", key, err)
	}
	return nil
}

// isFrontendGap reports errors caused by naga features that are not implemented yet.
func isFrontendGap(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported")
}

// CompilerBuilderOption is a functional option used to configure a Compiler during construction.
type CompilerBuilderOption func(*compiler)

// WithValidation toggles naga validation before module creation.
//
// Parameters:
//   - enabled: whether to validate
//
// Returns:
//   - CompilerBuilderOption: a function that sets validation
func WithValidation(enabled bool) CompilerBuilderOption {
	return func(c *compiler) {
		c.validate = enabled
	}
}

// WithCompilerLogger overrides the compiler's logger.
func WithCompilerLogger(l *log.Logger) CompilerBuilderOption {
	return func(c *compiler) {
		c.logger = l
	}
}

// withValidator replaces the WGSL front end, used by tests.
func withValidator(fn func(string) ([]byte, error)) CompilerBuilderOption {
	return func(c *compiler) {
		c.validateFn = fn
	}
}
