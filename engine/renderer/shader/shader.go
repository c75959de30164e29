// Package shader loads WGSL modules, expands @oxy: directives and reflects the pipeline layout
// metadata (entry point, vertex buffers, bind groups) needed to build render pipelines.
package shader

import (
	"errors"
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

// Stage identifies the pipeline stage a shader module is used for.
type Stage int

const (
	// StageVertex marks a module whose @vertex entry point is used.
	StageVertex Stage = iota
	// StageFragment marks a module whose @fragment entry point is used.
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

func (s Stage) visibility() wgpu.ShaderStage {
	switch s {
	case StageVertex:
		return wgpu.ShaderStageVertex
	case StageFragment:
		return wgpu.ShaderStageFragment
	default:
		return wgpu.ShaderStageNone
	}
}

// ErrNoEntryPoint is returned when a module has no entry point for its stage.
var ErrNoEntryPoint = errors.New("shader: no entry point for stage")

// shader is the implementation of the Shader interface.
type shader struct {
	key    string
	stage  Stage
	path   string
	source string
	refl   reflection
	module *wgpu.ShaderModuleDescriptor
	decls  []Annotation

	structs map[string]StructSource
}

// Shader is a loaded, preprocessed and reflected WGSL module for one stage.
type Shader interface {
	// Key returns the identifier used for labels and lookups.
	//
	// Returns:
	//   - string: the shader's key
	Key() string

	// Stage returns the pipeline stage of the module.
	Stage() Stage

	// Path returns the file the source was read from, or "" for in-memory sources.
	Path() string

	// Source returns the preprocessed WGSL.
	Source() string

	// EntryPoint returns the name of the stage's entry function.
	EntryPoint() string

	// VertexLayouts returns the vertex buffer layouts reflected from @location-only structs,
	// in declaration order. Always empty for fragment shaders.
	VertexLayouts() []wgpu.VertexBufferLayout

	// BindGroupLayoutEntries returns the reflected layout entries of a bind group, sorted by binding.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - []wgpu.BindGroupLayoutEntry: the entries, or nil if the group is unused
	BindGroupLayoutEntries(group uint32) []wgpu.BindGroupLayoutEntry

	// BindingVarName returns the variable declared at group/binding, or "".
	BindingVarName(group, binding uint32) string

	// Declarations returns the @oxy:group directives that generated bindings.
	Declarations() []Annotation

	// Module returns the descriptor used to create the GPU shader module.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: a descriptor carrying the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// Reload re-reads Path with the same options. In-memory shaders return themselves.
	//
	// Returns:
	//   - Shader: the freshly loaded shader
	//   - error: read, preprocess or reflection failure
	Reload() (Shader, error)
}

var _ Shader = &shader{}

// NewShader reads WGSL from sourcePath and prepares it for pipeline creation.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - stage: the stage the module is used for
//   - sourcePath: the file path to read WGSL source from
//   - opts: builder options such as WithStruct
//
// Returns:
//   - Shader: the loaded shader
//   - error: read, preprocess or reflection failure
func NewShader(key string, stage Stage, sourcePath string, opts ...ShaderBuilderOption) (Shader, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to read %s source %q: %w", key, sourcePath, err)
	}
	s, err := newShader(key, stage, string(data), opts)
	if err != nil {
		return nil, err
	}
	s.path = sourcePath
	return s, nil
}

// NewShaderFromSource prepares in-memory WGSL, typically an embedded asset.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - stage: the stage the module is used for
//   - source: the WGSL source
//   - opts: builder options such as WithStruct
//
// Returns:
//   - Shader: the loaded shader
//   - error: preprocess or reflection failure
func NewShaderFromSource(key string, stage Stage, source string, opts ...ShaderBuilderOption) (Shader, error) {
	return newShader(key, stage, source, opts)
}

func newShader(key string, stage Stage, raw string, opts []ShaderBuilderOption) (*shader, error) {
	s := &shader{
		key:     key,
		stage:   stage,
		structs: map[string]StructSource{},
	}
	for _, opt := range opts {
		opt(s)
	}

	pp := NewPreProcessor(s.structs)
	source, err := pp.Process(raw)
	if err != nil {
		return nil, fmt.Errorf("shader: failed to pre-process %s: %w", key, err)
	}
	s.source = source
	s.decls = pp.Declarations()
	s.refl = reflectModule(source, stage)
	if s.refl.entryPoint == "" {
		return nil, fmt.Errorf("%w: %s has no @%s function", ErrNoEntryPoint, key, stage)
	}
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Stage() Stage {
	return s.stage
}

func (s *shader) Path() string {
	return s.path
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.refl.entryPoint
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.refl.vertexLayouts
}

func (s *shader) BindGroupLayoutEntries(group uint32) []wgpu.BindGroupLayoutEntry {
	return s.refl.bindGroups[group]
}

func (s *shader) BindingVarName(group, binding uint32) string {
	return s.refl.varNames[group][binding]
}

func (s *shader) Declarations() []Annotation {
	return s.decls
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) Reload() (Shader, error) {
	if s.path == "" {
		return s, nil
	}
	structs := s.structs
	return NewShader(s.key, s.stage, s.path, func(n *shader) {
		for k, v := range structs {
			n.structs[k] = v
		}
	})
}
