// Package uniform packs many small uniform blocks into a single GPU buffer addressed with dynamic offsets.
package uniform

import (
	"fmt"
	"math"

	"github.com/charmbracelet/log"
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/oxy-deferred/common"
	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu"
	"github.com/Carmen-Shannon/oxy-deferred/engine/logger"
)

const (
	// DefaultCapacity is the maximum uniform binding range guaranteed by WebGPU.
	DefaultCapacity uint64 = 16384
	// DefaultAlignment is the WebGPU minUniformBufferOffsetAlignment default.
	DefaultAlignment uint64 = 256
)

// Element is a fixed-layout value that can live in a DynamicUniformBuffer.
type Element interface {
	// Size returns the encoded size in bytes.
	Size() int
	// Alignment returns the GPU-side alignment of the type in bytes.
	Alignment() int
	// Marshal encodes the value as exactly Size little-endian bytes.
	Marshal() []byte
}

// DynamicUniformBuffer is a fixed-capacity bump arena of equally sized uniform blocks of type T.
//
// Blocks are staged on the host and uploaded by Flush in one transfer. The arena is never
// resized; Clear resets it once every block handed out since the previous reset has been released.
type DynamicUniformBuffer[T Element] struct {
	label     string
	capacity  uint64
	alignment uint64
	blockSize uint64
	allocated uint64

	staging []byte
	device  gpu.Device
	buffer  *wgpu.Buffer
	epoch   *epoch
	logger  *log.Logger
}

// NewDynamicUniformBuffer creates the GPU buffer and its host staging mirror.
// Panics if T's alignment is not a multiple of the arena alignment, the capacity does not fit a
// 32-bit dynamic offset, or the buffer cannot be created.
//
// Parameters:
//   - device: the device that owns the buffer
//   - options: functional options applied before the buffer is created
//
// Returns:
//   - *DynamicUniformBuffer[T]: the empty arena
func NewDynamicUniformBuffer[T Element](device gpu.Device, options ...DynamicUniformBufferBuilderOption) *DynamicUniformBuffer[T] {
	cfg := dynamicUniformBufferConfig{
		label:     "dynamic uniform buffer",
		capacity:  DefaultCapacity,
		alignment: DefaultAlignment,
	}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.alignment == 0 {
		panic("uniform: alignment must be non-zero")
	}
	// dynamic offsets are 32-bit
	if cfg.capacity > math.MaxUint32 {
		panic(fmt.Sprintf("uniform: capacity %d exceeds the dynamic offset range", cfg.capacity))
	}

	var zero T
	elemAlign := uint64(zero.Alignment())
	if elemAlign == 0 || elemAlign%cfg.alignment != 0 {
		panic(fmt.Sprintf("uniform: element alignment %d is not a multiple of %d", elemAlign, cfg.alignment))
	}

	buf, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: cfg.label,
		Size:  cfg.capacity,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(fmt.Sprintf("uniform: failed to create %s: %v", cfg.label, err))
	}

	return &DynamicUniformBuffer[T]{
		label:     cfg.label,
		capacity:  cfg.capacity,
		alignment: cfg.alignment,
		blockSize: common.AlignUp(max(cfg.alignment, uint64(zero.Size())), elemAlign),
		staging:   make([]byte, cfg.capacity),
		device:    device,
		buffer:    buf,
		epoch:     &epoch{},
		logger:    common.Coalesce(cfg.logger, logger.Named("uniform")),
	}
}

// BlockSize returns the stride between consecutive blocks. It is at least the alignment unit,
// at least the element size, and a multiple of the alignment unit.
func (d *DynamicUniformBuffer[T]) BlockSize() uint64 {
	return d.blockSize
}

// Allocate reserves the next block, stages v into it and returns its handle.
// Running out of space is a sizing error and panics; use TryAllocate to handle it instead.
//
// Parameters:
//   - v: initial block contents
//
// Returns:
//   - *Block[T]: the live handle
func (d *DynamicUniformBuffer[T]) Allocate(v T) *Block[T] {
	b, err := d.TryAllocate(v)
	if err != nil {
		panic(fmt.Sprintf("uniform: not enough space to allocate %d bytes at offset %d in %s (capacity %d)",
			d.blockSize, d.allocated, d.label, d.capacity))
	}
	return b
}

// TryAllocate behaves like Allocate but reports exhaustion as ErrCapacityExceeded, leaving the arena untouched.
func (d *DynamicUniformBuffer[T]) TryAllocate(v T) (*Block[T], error) {
	if d.allocated+d.blockSize > d.capacity {
		return nil, fmt.Errorf("%w: %d bytes at offset %d, capacity %d", ErrCapacityExceeded, d.blockSize, d.allocated, d.capacity)
	}

	b := &Block[T]{owner: d, epoch: d.epoch, addr: d.allocated}
	d.stage(b.addr, v)
	d.allocated += d.blockSize
	d.epoch.live++
	return b, nil
}

// Write replaces the staged contents of b. The GPU buffer is not touched until Flush.
// Panics if b was released or allocated from another arena.
func (d *DynamicUniformBuffer[T]) Write(b *Block[T], v T) {
	if b == nil || b.owner != d || b.released || b.epoch != d.epoch {
		panic(fmt.Errorf("uniform: write to %s: %w", d.label, ErrReleasedBlock))
	}
	d.stage(b.addr, v)
}

// stage copies v's encoding to addr and zeroes the remainder of the block.
func (d *DynamicUniformBuffer[T]) stage(addr uint64, v T) {
	data := v.Marshal()
	if len(data) != v.Size() {
		panic(fmt.Sprintf("uniform: element marshaled to %d bytes, declared size %d", len(data), v.Size()))
	}
	block := d.staging[addr : addr+d.blockSize]
	n := copy(block, data)
	clear(block[n:])
}

// Clear resets the arena so the next allocation starts at offset zero.
// It fails with ErrOutstandingBlocks, leaving every existing block valid, while any block
// allocated since the last successful Clear is unreleased.
func (d *DynamicUniformBuffer[T]) Clear() error {
	if live := d.epoch.live; live > 0 {
		d.logger.Warn("clear refused", "buffer", d.label, "live", live, "allocated", d.allocated)
		return fmt.Errorf("can't clear %s: %w (%d live)", d.label, ErrOutstandingBlocks, live)
	}
	d.allocated = 0
	d.epoch = &epoch{}
	return nil
}

// Flush uploads the whole staging mirror to the GPU buffer in one queue write.
func (d *DynamicUniformBuffer[T]) Flush(queue gpu.Queue) error {
	if err := queue.WriteBuffer(d.buffer, 0, d.staging); err != nil {
		return fmt.Errorf("uniform: failed to flush %s: %w", d.label, err)
	}
	return nil
}

// Buffer returns the GPU buffer for binding.
func (d *DynamicUniformBuffer[T]) Buffer() *wgpu.Buffer {
	return d.buffer
}

// Allocated returns the current cursor position in bytes.
func (d *DynamicUniformBuffer[T]) Allocated() uint64 {
	return d.allocated
}

// Capacity returns the arena size in bytes.
func (d *DynamicUniformBuffer[T]) Capacity() uint64 {
	return d.capacity
}

// Live returns the number of unreleased blocks from the current epoch.
func (d *DynamicUniformBuffer[T]) Live() int {
	return d.epoch.live
}

// BindGroupLayoutEntry describes the arena as a dynamic-offset uniform binding of one element.
//
// Parameters:
//   - binding: the binding index in the layout
//   - visibility: the shader stages that read the block
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the layout entry
func (d *DynamicUniformBuffer[T]) BindGroupLayoutEntry(binding uint32, visibility wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
	var zero T
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
		Buffer: wgpu.BufferBindingLayout{
			Type:             wgpu.BufferBindingTypeUniform,
			HasDynamicOffset: true,
			MinBindingSize:   uint64(zero.Size()),
		},
	}
}

// BindGroupEntry binds a single block-sized window of the arena; the dynamic offset selects the block.
func (d *DynamicUniformBuffer[T]) BindGroupEntry(binding uint32) wgpu.BindGroupEntry {
	var zero T
	return wgpu.BindGroupEntry{
		Binding: binding,
		Buffer:  d.buffer,
		Offset:  0,
		Size:    uint64(zero.Size()),
	}
}

// Release frees the GPU buffer.
func (d *DynamicUniformBuffer[T]) Release() {
	gpu.Release(d.device, d.buffer)
	d.buffer = nil
}
