// Package gputest provides in-memory stand-ins for the gpu interfaces. They hand out zero-valued
// wgpu handles that must never be released, and record every call for assertions.
package gputest

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
)

// ErrInjected is returned by Device methods named in Device.Fail.
var ErrInjected = errors.New("gputest: injected failure")

// Log is an ordered list of call names shared between fakes.
type Log struct {
	Calls []string
}

func (l *Log) add(format string, args ...any) {
	if l != nil {
		l.Calls = append(l.Calls, fmt.Sprintf(format, args...))
	}
}

// Device records descriptors passed to each constructor.
type Device struct {
	Log  *Log
	Fail map[string]bool

	Buffers          []*wgpu.BufferDescriptor
	BufferInits      []*wgpu.BufferInitDescriptor
	BindGroupLayouts []*wgpu.BindGroupLayoutDescriptor
	BindGroups       []*wgpu.BindGroupDescriptor
	PipelineLayouts  []*wgpu.PipelineLayoutDescriptor
	ShaderModules    []*wgpu.ShaderModuleDescriptor
	RenderPipelines  []*wgpu.RenderPipelineDescriptor
	Samplers         []*wgpu.SamplerDescriptor
	Textures         []*wgpu.TextureDescriptor

	// InitContents maps buffers created by CreateBufferInit to their initial bytes.
	InitContents map[*wgpu.Buffer][]byte

	// Views maps views created by CreateTextureView to their texture.
	Views map[*wgpu.TextureView]*wgpu.Texture

	// Released lists handles passed to gpu.Release, in order.
	Released []gpu.Releasable
}

func (d *Device) fail(name string) error {
	if d.Fail[name] {
		return fmt.Errorf("%s: %w", name, ErrInjected)
	}
	return nil
}

func (d *Device) CreateBuffer(desc *wgpu.BufferDescriptor) (*wgpu.Buffer, error) {
	d.Log.add("CreateBuffer")
	if err := d.fail("CreateBuffer"); err != nil {
		return nil, err
	}
	d.Buffers = append(d.Buffers, desc)
	return &wgpu.Buffer{}, nil
}

func (d *Device) CreateBufferInit(desc *wgpu.BufferInitDescriptor) (*wgpu.Buffer, error) {
	d.Log.add("CreateBufferInit")
	if err := d.fail("CreateBufferInit"); err != nil {
		return nil, err
	}
	d.BufferInits = append(d.BufferInits, desc)
	buf := &wgpu.Buffer{}
	if d.InitContents == nil {
		d.InitContents = map[*wgpu.Buffer][]byte{}
	}
	d.InitContents[buf] = append([]byte(nil), desc.Contents...)
	return buf, nil
}

func (d *Device) CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error) {
	d.Log.add("CreateBindGroupLayout")
	if err := d.fail("CreateBindGroupLayout"); err != nil {
		return nil, err
	}
	d.BindGroupLayouts = append(d.BindGroupLayouts, desc)
	return &wgpu.BindGroupLayout{}, nil
}

func (d *Device) CreateBindGroup(desc *wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error) {
	d.Log.add("CreateBindGroup")
	if err := d.fail("CreateBindGroup"); err != nil {
		return nil, err
	}
	d.BindGroups = append(d.BindGroups, desc)
	return &wgpu.BindGroup{}, nil
}

func (d *Device) CreatePipelineLayout(desc *wgpu.PipelineLayoutDescriptor) (*wgpu.PipelineLayout, error) {
	d.Log.add("CreatePipelineLayout")
	if err := d.fail("CreatePipelineLayout"); err != nil {
		return nil, err
	}
	d.PipelineLayouts = append(d.PipelineLayouts, desc)
	return &wgpu.PipelineLayout{}, nil
}

func (d *Device) CreateShaderModule(desc *wgpu.ShaderModuleDescriptor) (*wgpu.ShaderModule, error) {
	d.Log.add("CreateShaderModule %s", desc.Label)
	if err := d.fail("CreateShaderModule"); err != nil {
		return nil, err
	}
	d.ShaderModules = append(d.ShaderModules, desc)
	return &wgpu.ShaderModule{}, nil
}

func (d *Device) CreateRenderPipeline(desc *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	d.Log.add("CreateRenderPipeline %s", desc.Label)
	if err := d.fail("CreateRenderPipeline"); err != nil {
		return nil, err
	}
	d.RenderPipelines = append(d.RenderPipelines, desc)
	return &wgpu.RenderPipeline{}, nil
}

func (d *Device) CreateSampler(desc *wgpu.SamplerDescriptor) (*wgpu.Sampler, error) {
	d.Log.add("CreateSampler")
	if err := d.fail("CreateSampler"); err != nil {
		return nil, err
	}
	d.Samplers = append(d.Samplers, desc)
	return &wgpu.Sampler{}, nil
}

func (d *Device) CreateTexture(desc *wgpu.TextureDescriptor) (*wgpu.Texture, error) {
	d.Log.add("CreateTexture %s", desc.Label)
	if err := d.fail("CreateTexture"); err != nil {
		return nil, err
	}
	d.Textures = append(d.Textures, desc)
	return &wgpu.Texture{}, nil
}

// CreateTextureView returns a fake view and remembers which texture it belongs to.
func (d *Device) CreateTextureView(texture *wgpu.Texture, _ *wgpu.TextureViewDescriptor) (*wgpu.TextureView, error) {
	d.Log.add("CreateTextureView")
	if err := d.fail("CreateTextureView"); err != nil {
		return nil, err
	}
	view := &wgpu.TextureView{}
	if d.Views == nil {
		d.Views = map[*wgpu.TextureView]*wgpu.Texture{}
	}
	d.Views[view] = texture
	return view, nil
}

// ReleaseHandle records h instead of freeing it; fake handles have no native object behind them.
func (d *Device) ReleaseHandle(h gpu.Releasable) {
	d.Log.add("Release %T", h)
	d.Released = append(d.Released, h)
}

// WasReleased reports whether h was released through gpu.Release.
func (d *Device) WasReleased(h gpu.Releasable) bool {
	for _, r := range d.Released {
		if r == h {
			return true
		}
	}
	return false
}

// Write is one recorded queue transfer.
type Write struct {
	Buffer *wgpu.Buffer
	Offset uint64
	Data   []byte
}

// Queue keeps a byte image per buffer so tests can read back what the GPU would hold.
type Queue struct {
	Log    *Log
	Err    error
	Writes []Write

	contents map[*wgpu.Buffer][]byte
}

func (q *Queue) WriteBuffer(buffer *wgpu.Buffer, offset uint64, data []byte) error {
	q.Log.add("WriteBuffer")
	if q.Err != nil {
		return q.Err
	}
	cp := append([]byte(nil), data...)
	q.Writes = append(q.Writes, Write{Buffer: buffer, Offset: offset, Data: cp})

	if q.contents == nil {
		q.contents = map[*wgpu.Buffer][]byte{}
	}
	cur := q.contents[buffer]
	if end := int(offset) + len(cp); end > len(cur) {
		grown := make([]byte, end)
		copy(grown, cur)
		cur = grown
	}
	copy(cur[offset:], cp)
	q.contents[buffer] = cur
	return nil
}

// Contents returns the accumulated bytes written to buffer.
func (q *Queue) Contents(buffer *wgpu.Buffer) []byte {
	return q.contents[buffer]
}

// Draw is one recorded draw call.
type Draw struct {
	VertexCount, InstanceCount, FirstVertex, FirstInstance uint32
}

// Pass records the state a render pass would see.
type Pass struct {
	Log *Log

	Pipeline       *wgpu.RenderPipeline
	VertexBuffers  map[uint32]*wgpu.Buffer
	VertexSizes    map[uint32]uint64
	BindGroups     map[uint32]*wgpu.BindGroup
	DynamicOffsets map[uint32][]uint32
	Draws          []Draw
}

func (p *Pass) SetPipeline(pipeline *wgpu.RenderPipeline) {
	p.Log.add("SetPipeline")
	p.Pipeline = pipeline
}

func (p *Pass) SetVertexBuffer(slot uint32, buffer *wgpu.Buffer, offset, size uint64) {
	p.Log.add("SetVertexBuffer %d", slot)
	if p.VertexBuffers == nil {
		p.VertexBuffers = map[uint32]*wgpu.Buffer{}
		p.VertexSizes = map[uint32]uint64{}
	}
	p.VertexBuffers[slot] = buffer
	p.VertexSizes[slot] = size
}

func (p *Pass) SetBindGroup(index uint32, group *wgpu.BindGroup, dynamicOffsets []uint32) {
	p.Log.add("SetBindGroup %d", index)
	if p.BindGroups == nil {
		p.BindGroups = map[uint32]*wgpu.BindGroup{}
		p.DynamicOffsets = map[uint32][]uint32{}
	}
	p.BindGroups[index] = group
	p.DynamicOffsets[index] = dynamicOffsets
}

func (p *Pass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.Log.add("Draw %d %d %d %d", vertexCount, instanceCount, firstVertex, firstInstance)
	p.Draws = append(p.Draws, Draw{vertexCount, instanceCount, firstVertex, firstInstance})
}

var (
	_ gpu.Device             = &Device{}
	_ gpu.HandleReleaser     = &Device{}
	_ gpu.TextureViewCreator = &Device{}
	_ gpu.Queue              = &Queue{}
	_ gpu.RenderPass         = &Pass{}
)
