package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// annotationPrefix marks a pre-processor directive inside a WGSL line comment.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of @oxy: directive.
type AnnotationType string

const (
	// AnnotationTypeInclude injects a registered struct source at the directive.
	//
	// Syntax: //@oxy:include <struct_key>
	AnnotationTypeInclude AnnotationType = "include"

	// AnnotationTypeGroup generates an @group/@binding variable declaration for a registered struct.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <struct_key>
	//
	// Example: //@oxy:group 0 5 uniform uniforms deferred_uniforms
	AnnotationTypeGroup AnnotationType = "group"
)

// addressSpaces maps the address space argument of a group directive to its WGSL var<> syntax.
var addressSpaces = map[string]string{
	"uniform":            "var<uniform>",
	"storage_read":       "var<storage, read>",
	"storage_read_write": "var<storage, read_write>",
}

// Annotation is one parsed @oxy: directive.
type Annotation struct {
	Type AnnotationType
	// Line is the 1-based source line of the directive.
	Line int
	// Key is the struct registry key, for both include and group.
	Key string
	// Group, Binding, AddressSpace and VarName are set for group directives only.
	Group        int
	Binding      int
	AddressSpace string
	VarName      string
}

// parseAnnotation parses one source line. Lines without the prefix yield (nil, nil).
//
// Parameters:
//   - line: the raw WGSL source line
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the directive, or nil for ordinary lines
//   - error: a descriptive error for malformed directives
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case AnnotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy:include takes exactly one struct key", lineNum)
		}
		return &Annotation{Type: AnnotationTypeInclude, Line: lineNum, Key: args[1]}, nil

	case AnnotationTypeGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy:group takes group, binding, address space, name and struct key", lineNum)
		}
		group, err := strconv.Atoi(args[1])
		if err != nil || group < 0 {
			return nil, fmt.Errorf("line %d: invalid group index %q", lineNum, args[1])
		}
		binding, err := strconv.Atoi(args[2])
		if err != nil || binding < 0 {
			return nil, fmt.Errorf("line %d: invalid binding index %q", lineNum, args[2])
		}
		if _, ok := addressSpaces[args[3]]; !ok {
			return nil, fmt.Errorf("line %d: unknown address space %q", lineNum, args[3])
		}
		return &Annotation{
			Type:         AnnotationTypeGroup,
			Line:         lineNum,
			Group:        group,
			Binding:      binding,
			AddressSpace: args[3],
			VarName:      args[4],
			Key:          args[5],
		}, nil

	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation %q", lineNum, args[0])
	}
}
