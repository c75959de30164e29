package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// vertexFormats maps WGSL vertex input types to their vertex format and byte size.
var vertexFormats = map[string]struct {
	format wgpu.VertexFormat
	size   uint64
}{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"vec2<u32>": {wgpu.VertexFormatUint32x2, 8},
	"vec4<u32>": {wgpu.VertexFormatUint32x4, 16},
	"i32":       {wgpu.VertexFormatSint32, 4},
	"vec2<i32>": {wgpu.VertexFormatSint32x2, 8},
	"vec4<i32>": {wgpu.VertexFormatSint32x4, 16},
}

// textureDimensions maps sampled texture base names to view dimension and multisampling.
var textureDimensions = map[string]struct {
	dim          wgpu.TextureViewDimension
	multisampled bool
}{
	"texture_2d":                    {wgpu.TextureViewDimension2D, false},
	"texture_2d_array":              {wgpu.TextureViewDimension2DArray, false},
	"texture_3d":                    {wgpu.TextureViewDimension3D, false},
	"texture_cube":                  {wgpu.TextureViewDimensionCube, false},
	"texture_multisampled_2d":       {wgpu.TextureViewDimension2D, true},
	"texture_depth_2d":              {wgpu.TextureViewDimension2D, false},
	"texture_depth_multisampled_2d": {wgpu.TextureViewDimension2D, true},
}

var sampleTypes = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var (
	structRegex   = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRegex  = regexp.MustCompile(`@builtin\(\w+\)`)
	memberRegex   = regexp.MustCompile(`^(?:@\w+(?:\([^)]*\))?\s*)*(\w+)\s*:\s*(.+)$`)
	bindingRegex  = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)

	entryRegexes = map[Stage]*regexp.Regexp{
		StageVertex:   regexp.MustCompile(`@vertex\s+fn\s+(\w+)`),
		StageFragment: regexp.MustCompile(`@fragment\s+fn\s+(\w+)`),
	}
)

// parsedField is one member of a WGSL struct.
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct is a WGSL struct declaration.
type parsedStruct struct {
	name   string
	fields []parsedField
}

// reflection is the pipeline-relevant metadata recovered from one WGSL module.
type reflection struct {
	entryPoint    string
	vertexLayouts []wgpu.VertexBufferLayout
	bindGroups    map[uint32][]wgpu.BindGroupLayoutEntry
	varNames      map[uint32]map[uint32]string
}

// reflectModule scans preprocessed WGSL for the entry point of stage, vertex input structs and
// resource bindings. Binding visibility is set to the stage.
func reflectModule(source string, stage Stage) reflection {
	cleaned := stripComments(source)
	structs := parseStructs(cleaned)
	layouts := newLayoutResolver(structs)

	r := reflection{
		bindGroups: map[uint32][]wgpu.BindGroupLayoutEntry{},
		varNames:   map[uint32]map[uint32]string{},
	}
	if re, ok := entryRegexes[stage]; ok {
		if m := re.FindStringSubmatch(cleaned); m != nil {
			r.entryPoint = m[1]
		}
	}

	if stage == StageVertex {
		for _, s := range structs {
			if l, ok := vertexLayout(s); ok {
				r.vertexLayouts = append(r.vertexLayouts, l)
			}
		}
	}

	for _, m := range bindingRegex.FindAllStringSubmatch(cleaned, -1) {
		group64, _ := strconv.ParseUint(m[1], 10, 32)
		binding64, _ := strconv.ParseUint(m[2], 10, 32)
		group, binding := uint32(group64), uint32(binding64)

		entry := bindingEntry(binding, stage.visibility(), strings.TrimSpace(m[3]), strings.TrimSpace(m[5]))
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if l, ok := layouts.resolve(m[5]); ok {
				entry.Buffer.MinBindingSize = l.size
			}
		}
		r.bindGroups[group] = append(r.bindGroups[group], entry)
		if r.varNames[group] == nil {
			r.varNames[group] = map[uint32]string{}
		}
		r.varNames[group][binding] = m[4]
	}
	for _, entries := range r.bindGroups {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
	}
	return r
}

// parseStructs extracts every struct block from comment-free source.
func parseStructs(source string) []parsedStruct {
	var out []parsedStruct
	for _, m := range structRegex.FindAllStringSubmatch(source, -1) {
		s := parsedStruct{name: m[1]}
		for _, member := range splitMembers(m[2]) {
			member = strings.TrimSpace(member)
			fm := memberRegex.FindStringSubmatch(member)
			if fm == nil {
				continue
			}
			f := parsedField{
				name:      fm[1],
				typeName:  canonicalType(fm[2]),
				location:  -1,
				isBuiltin: builtinRegex.MatchString(member),
			}
			if lm := locationRegex.FindStringSubmatch(member); lm != nil {
				f.location, _ = strconv.Atoi(lm[1])
			}
			s.fields = append(s.fields, f)
		}
		out = append(out, s)
	}
	return out
}

// vertexLayout builds a buffer layout from a struct whose members all carry @location.
// Structs with builtins are stage outputs and are rejected.
func vertexLayout(s parsedStruct) (wgpu.VertexBufferLayout, bool) {
	if len(s.fields) == 0 {
		return wgpu.VertexBufferLayout{}, false
	}
	attrs := make([]wgpu.VertexAttribute, 0, len(s.fields))
	var offset uint64
	for _, f := range s.fields {
		if f.isBuiltin || f.location < 0 {
			return wgpu.VertexBufferLayout{}, false
		}
		vf, ok := vertexFormats[f.typeName]
		if !ok {
			return wgpu.VertexBufferLayout{}, false
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         vf.format,
			Offset:         offset,
			ShaderLocation: uint32(f.location),
		})
		offset += vf.size
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, true
}

// bindingEntry classifies a resource declaration into a layout entry.
func bindingEntry(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(addressSpace, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		if strings.Contains(addressSpace, "read_write") {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		}
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case typeName == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(typeName, "texture_"):
		base, param, _ := strings.Cut(typeName, "<")
		param = strings.TrimSpace(strings.TrimSuffix(param, ">"))
		if d, ok := textureDimensions[base]; ok {
			entry.Texture.ViewDimension = d.dim
			entry.Texture.Multisampled = d.multisampled
		}
		if strings.HasPrefix(base, "texture_depth_") {
			entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		} else if st, ok := sampleTypes[param]; ok {
			entry.Texture.SampleType = st
			// Multisampled float textures cannot be filtered.
			if st == wgpu.TextureSampleTypeFloat && entry.Texture.Multisampled {
				entry.Texture.SampleType = wgpu.TextureSampleTypeUnfilterableFloat
			}
		}
	}
	return entry
}

// splitMembers splits a struct body at commas outside angle brackets.
func splitMembers(body string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, body[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, body[start:])
}

// stripComments removes // line comments and nested /* */ block comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		c := source[i]
		next := byte(0)
		if i+1 < len(source) {
			next = source[i+1]
		}
		switch {
		case c == '/' && next == '*':
			depth++
			i++
		case c == '*' && next == '/' && depth > 0:
			depth--
			i++
		case depth > 0:
			if c == '\n' {
				sb.WriteByte('\n')
			}
		case c == '/' && next == '/':
			for i < len(source) && source[i] != '\n' {
				i++
			}
			if i < len(source) {
				sb.WriteByte('\n')
			}
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
