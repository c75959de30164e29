package shader

import (
	"strconv"
	"strings"
)

// typeLayout is the size and alignment of a WGSL type in the uniform/storage address spaces.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
type typeLayout struct {
	size  uint64
	align uint64
}

// scalarLayouts covers scalars, vectors, f32 matrices and atomics. Shorthand aliases
// (vec3f, mat4x4f) are normalized by canonicalType before lookup.
var scalarLayouts = map[string]typeLayout{
	"f32": {4, 4}, "i32": {4, 4}, "u32": {4, 4}, "f16": {2, 2}, "bool": {4, 4},

	"vec2<f32>": {8, 8}, "vec3<f32>": {12, 16}, "vec4<f32>": {16, 16},
	"vec2<i32>": {8, 8}, "vec3<i32>": {12, 16}, "vec4<i32>": {16, 16},
	"vec2<u32>": {8, 8}, "vec3<u32>": {12, 16}, "vec4<u32>": {16, 16},
	"vec2<f16>": {4, 4}, "vec3<f16>": {6, 8}, "vec4<f16>": {8, 8},

	"mat2x2<f32>": {16, 8}, "mat3x2<f32>": {24, 8}, "mat4x2<f32>": {32, 8},
	"mat2x3<f32>": {32, 16}, "mat3x3<f32>": {48, 16}, "mat4x3<f32>": {64, 16},
	"mat2x4<f32>": {32, 16}, "mat3x4<f32>": {48, 16}, "mat4x4<f32>": {64, 16},

	"atomic<u32>": {4, 4}, "atomic<i32>": {4, 4},
}

// shorthandSuffix maps the predeclared alias suffixes to their component type.
var shorthandSuffix = map[byte]string{'f': "f32", 'i': "i32", 'u': "u32", 'h': "f16"}

// canonicalType rewrites predeclared aliases like vec3f or mat4x4f to their generic spelling
// and strips whitespace inside angle brackets.
func canonicalType(t string) string {
	t = strings.Join(strings.Fields(t), "")
	t = strings.ReplaceAll(t, ",", ", ")
	if strings.Contains(t, "<") || len(t) < 5 {
		return t
	}
	if comp, ok := shorthandSuffix[t[len(t)-1]]; ok {
		base := t[:len(t)-1]
		if strings.HasPrefix(base, "vec") || strings.HasPrefix(base, "mat") {
			return base + "<" + comp + ">"
		}
	}
	return t
}

// alignTo rounds v up to a multiple of a. a must be a power of two.
func alignTo(a, v uint64) uint64 {
	if a == 0 {
		return v
	}
	return (v + a - 1) &^ (a - 1)
}

// layoutResolver computes layouts of struct types declared in one module.
type layoutResolver struct {
	structs  map[string]parsedStruct
	resolved map[string]typeLayout
	visiting map[string]bool
}

func newLayoutResolver(structs []parsedStruct) *layoutResolver {
	r := &layoutResolver{
		structs:  make(map[string]parsedStruct, len(structs)),
		resolved: map[string]typeLayout{},
		visiting: map[string]bool{},
	}
	for _, s := range structs {
		r.structs[s.name] = s
	}
	return r
}

// resolve returns the layout of t. A runtime-sized array resolves to a single element stride,
// the smallest useful binding size.
func (r *layoutResolver) resolve(t string) (typeLayout, bool) {
	t = canonicalType(t)
	if l, ok := scalarLayouts[t]; ok {
		return l, true
	}
	if l, ok := r.resolved[t]; ok {
		return l, true
	}
	if inner, ok := strings.CutPrefix(t, "array<"); ok {
		return r.resolveArray(strings.TrimSuffix(inner, ">"))
	}
	if s, ok := r.structs[t]; ok {
		if r.visiting[t] {
			return typeLayout{}, false
		}
		r.visiting[t] = true
		l, ok := r.resolveStruct(s)
		delete(r.visiting, t)
		if ok {
			r.resolved[t] = l
		}
		return l, ok
	}
	return typeLayout{}, false
}

func (r *layoutResolver) resolveArray(inner string) (typeLayout, bool) {
	elemType, countStr, sized := cutTopLevelComma(inner)
	elem, ok := r.resolve(elemType)
	if !ok {
		return typeLayout{}, false
	}
	stride := alignTo(elem.align, elem.size)
	if !sized {
		return typeLayout{stride, elem.align}, true
	}
	count, err := strconv.ParseUint(strings.TrimSpace(countStr), 10, 64)
	if err != nil {
		return typeLayout{}, false
	}
	return typeLayout{count * stride, elem.align}, true
}

// resolveStruct places each member at its aligned offset and rounds the total up to the
// struct alignment. A trailing runtime-sized array contributes one element.
func (r *layoutResolver) resolveStruct(s parsedStruct) (typeLayout, bool) {
	var offset uint64
	align := uint64(1)
	for _, f := range s.fields {
		if f.isBuiltin {
			continue
		}
		l, ok := r.resolve(f.typeName)
		if !ok {
			return typeLayout{}, false
		}
		offset = alignTo(l.align, offset) + l.size
		align = max(align, l.align)
	}
	return typeLayout{alignTo(align, offset), align}, true
}

// cutTopLevelComma splits "T, N" at the last comma outside angle brackets.
func cutTopLevelComma(s string) (before, after string, found bool) {
	depth := 0
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case '>':
			depth++
		case '<':
			depth--
		case ',':
			if depth == 0 {
				return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]), true
			}
		}
	}
	return strings.TrimSpace(s), "", false
}
