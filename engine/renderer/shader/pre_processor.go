package shader

import (
	"fmt"
	"strings"
)

// StructSource is a registered WGSL struct definition.
type StructSource struct {
	// Source is the WGSL text injected by @oxy:include.
	Source string
	// Type is the struct name emitted in generated @oxy:group declarations.
	Type string
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	structs      map[string]StructSource
	declarations []Annotation
}

// PreProcessor expands @oxy: directives in WGSL source.
type PreProcessor interface {
	// Process replaces every directive with its generated WGSL and records group directives.
	//
	// Parameters:
	//   - source: raw WGSL source
	//
	// Returns:
	//   - string: the expanded source
	//   - error: a malformed directive or unknown struct key
	Process(source string) (string, error)

	// Declarations returns the group directives found by the last Process call, in source order.
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a pre-processor over the given struct registry.
//
// Parameters:
//   - structs: registry keyed by the name used in directives
//
// Returns:
//   - PreProcessor: the pre-processor
func NewPreProcessor(structs map[string]StructSource) PreProcessor {
	reg := make(map[string]StructSource, len(structs))
	for k, v := range structs {
		reg[k] = v
	}
	return &preProcessor{structs: reg}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = nil
	included := map[string]bool{}

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		entry, ok := p.structs[a.Key]
		if !ok {
			return "", fmt.Errorf("line %d: unknown struct key %q", a.Line, a.Key)
		}

		switch a.Type {
		case AnnotationTypeInclude:
			// A struct may only be declared once per module.
			if !included[a.Key] {
				out = append(out, strings.TrimRight(entry.Source, "\n"))
				included[a.Key] = true
			}
		case AnnotationTypeGroup:
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
				a.Group, a.Binding, addressSpaces[a.AddressSpace], a.VarName, entry.Type))
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
