package uniform

import "github.com/charmbracelet/log"

type dynamicUniformBufferConfig struct {
	label     string
	capacity  uint64
	alignment uint64
	logger    *log.Logger
}

// DynamicUniformBufferBuilderOption is a functional option used to configure a DynamicUniformBuffer during construction.
type DynamicUniformBufferBuilderOption func(*dynamicUniformBufferConfig)

// WithCapacity sets the arena size in bytes. Defaults to DefaultCapacity.
//
// Parameters:
//   - capacity: total bytes, normally the device's maxUniformBufferBindingSize or less
//
// Returns:
//   - DynamicUniformBufferBuilderOption: a function that sets the capacity
func WithCapacity(capacity uint64) DynamicUniformBufferBuilderOption {
	return func(c *dynamicUniformBufferConfig) {
		c.capacity = capacity
	}
}

// WithAlignment sets the dynamic offset alignment unit. Defaults to DefaultAlignment.
//
// Parameters:
//   - alignment: the device's minUniformBufferOffsetAlignment
//
// Returns:
//   - DynamicUniformBufferBuilderOption: a function that sets the alignment
func WithAlignment(alignment uint64) DynamicUniformBufferBuilderOption {
	return func(c *dynamicUniformBufferConfig) {
		c.alignment = alignment
	}
}

// WithLabel sets the GPU debug label.
func WithLabel(label string) DynamicUniformBufferBuilderOption {
	return func(c *dynamicUniformBufferConfig) {
		c.label = label
	}
}

// WithLogger overrides the logger used for refused clears.
func WithLogger(l *log.Logger) DynamicUniformBufferBuilderOption {
	return func(c *dynamicUniformBufferConfig) {
		c.logger = l
	}
}
