package shader

// ShaderBuilderOption is a functional option used to configure a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithStruct registers a WGSL struct for @oxy:include and @oxy:group directives.
//
// Parameters:
//   - key: the name used in directives
//   - source: the WGSL struct definition
//   - typeName: the WGSL struct name emitted in generated declarations
//
// Returns:
//   - ShaderBuilderOption: a function that registers the struct
func WithStruct(key, source, typeName string) ShaderBuilderOption {
	return func(s *shader) {
		s.structs[key] = StructSource{Source: source, Type: typeName}
	}
}
