package uniform

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-deferred/engine/gpu/gputest"
)

// tint is a 16-byte uniform padded to the dynamic offset alignment.
type tint [4]float32

func (tint) Size() int      { return 16 }
func (tint) Alignment() int { return 256 }
func (t tint) Marshal() []byte {
	out := make([]byte, 16)
	for i, v := range t {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// wide spans more than one alignment unit.
type wide [100]uint32

func (wide) Size() int      { return 400 }
func (wide) Alignment() int { return 256 }
func (w wide) Marshal() []byte {
	out := make([]byte, 400)
	for i, v := range w {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

// loose only asks for 16-byte alignment.
type loose struct{}

func (loose) Size() int       { return 16 }
func (loose) Alignment() int  { return 16 }
func (loose) Marshal() []byte { return make([]byte, 16) }

// short lies about its encoded size.
type short struct{}

func (short) Size() int       { return 16 }
func (short) Alignment() int  { return 256 }
func (short) Marshal() []byte { return make([]byte, 8) }

func newTintBuffer(t *testing.T, opts ...DynamicUniformBufferBuilderOption) (*DynamicUniformBuffer[tint], *gputest.Device) {
	t.Helper()
	dev := &gputest.Device{}
	return NewDynamicUniformBuffer[tint](dev, opts...), dev
}

func TestNewCreatesUniformBuffer(t *testing.T) {
	buf, dev := newTintBuffer(t)

	require.Len(t, dev.Buffers, 1)
	assert.Equal(t, DefaultCapacity, dev.Buffers[0].Size)
	assert.Equal(t, "dynamic uniform buffer", dev.Buffers[0].Label)
	assert.Same(t, buf.Buffer(), buf.Buffer())
	assert.Equal(t, DefaultCapacity, buf.Capacity())
	assert.Zero(t, buf.Allocated())
}

func TestNewPanicsOnMisalignedElement(t *testing.T) {
	assert.PanicsWithValue(t, "uniform: element alignment 16 is not a multiple of 256", func() {
		NewDynamicUniformBuffer[loose](&gputest.Device{})
	})
}

func TestNewPanicsOnOversizedCapacity(t *testing.T) {
	dev := &gputest.Device{}
	assert.PanicsWithValue(t, "uniform: capacity 4294967296 exceeds the dynamic offset range", func() {
		NewDynamicUniformBuffer[tint](dev, WithCapacity(math.MaxUint32+1))
	})
	assert.Empty(t, dev.Buffers)
}

func TestNewPanicsOnDeviceFailure(t *testing.T) {
	dev := &gputest.Device{Fail: map[string]bool{"CreateBuffer": true}}
	assert.Panics(t, func() { NewDynamicUniformBuffer[tint](dev) })
}

func TestBlockSize(t *testing.T) {
	small, _ := newTintBuffer(t)
	assert.Equal(t, uint64(256), small.BlockSize())

	big := NewDynamicUniformBuffer[wide](&gputest.Device{})
	assert.Equal(t, uint64(512), big.BlockSize())

	for _, b := range []uint64{small.BlockSize(), big.BlockSize()} {
		assert.GreaterOrEqual(t, b, DefaultAlignment)
		assert.Zero(t, b%DefaultAlignment)
	}
	assert.GreaterOrEqual(t, big.BlockSize(), uint64(wide{}.Size()))
}

func TestAllocateOffsetsAreContiguous(t *testing.T) {
	buf, _ := newTintBuffer(t)
	for i := 0; i < 10; i++ {
		b := buf.Allocate(tint{float32(i)})
		assert.Equal(t, uint32(uint64(i)*buf.BlockSize()), b.Offset())
	}
	assert.Equal(t, 10*buf.BlockSize(), buf.Allocated())
	assert.Equal(t, 10, buf.Live())
}

func TestAllocatePanicsWhenFull(t *testing.T) {
	buf, _ := newTintBuffer(t, WithCapacity(512))
	buf.Allocate(tint{})
	buf.Allocate(tint{})

	assert.PanicsWithValue(t,
		"uniform: not enough space to allocate 256 bytes at offset 512 in dynamic uniform buffer (capacity 512)",
		func() { buf.Allocate(tint{}) })
	assert.Equal(t, uint64(512), buf.Allocated())
}

func TestTryAllocateReportsExhaustion(t *testing.T) {
	buf, _ := newTintBuffer(t, WithCapacity(256))
	_, err := buf.TryAllocate(tint{})
	require.NoError(t, err)

	b, err := buf.TryAllocate(tint{})
	assert.Nil(t, b)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, 1, buf.Live())
	assert.Equal(t, uint64(256), buf.Allocated())
}

func TestClearLifecycle(t *testing.T) {
	buf, _ := newTintBuffer(t)

	blocks := []*Block[tint]{
		buf.Allocate(tint{1}),
		buf.Allocate(tint{2}),
		buf.Allocate(tint{3}),
	}
	offsets := []uint32{blocks[0].Offset(), blocks[1].Offset(), blocks[2].Offset()}
	assert.Equal(t, []uint32{0, 256, 512}, offsets)

	err := buf.Clear()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutstandingBlocks))
	assert.Equal(t, uint64(768), buf.Allocated())

	// Failed clear leaves every handle writable.
	buf.Write(blocks[1], tint{9})

	blocks[0].Release()
	blocks[1].Release()
	assert.ErrorIs(t, buf.Clear(), ErrOutstandingBlocks)

	blocks[2].Release()
	blocks[2].Release()
	require.NoError(t, buf.Clear())
	assert.Zero(t, buf.Allocated())
	assert.Zero(t, buf.Live())

	next := buf.Allocate(tint{4})
	assert.Equal(t, uint32(0), next.Offset())
}

func TestClearOnEmptyArena(t *testing.T) {
	buf, _ := newTintBuffer(t)
	require.NoError(t, buf.Clear())
	require.NoError(t, buf.Clear())
}

func TestWriteAndFlush(t *testing.T) {
	buf, _ := newTintBuffer(t)
	a := buf.Allocate(tint{1, 2, 3, 4})
	b := buf.Allocate(tint{5, 6, 7, 8})

	buf.Write(a, tint{10, 20, 30, 40})

	q := &gputest.Queue{}
	require.NoError(t, buf.Flush(q))

	require.Len(t, q.Writes, 1)
	assert.Zero(t, q.Writes[0].Offset)
	assert.Len(t, q.Writes[0].Data, int(DefaultCapacity))

	got := q.Contents(buf.Buffer())
	assert.Equal(t, tint{10, 20, 30, 40}.Marshal(), got[a.Offset():a.Offset()+16])
	assert.Equal(t, tint{5, 6, 7, 8}.Marshal(), got[b.Offset():b.Offset()+16])
}

func TestLastWriteWinsWithoutResidue(t *testing.T) {
	buf := NewDynamicUniformBuffer[wide](&gputest.Device{})
	var first wide
	for i := range first {
		first[i] = 0xFFFFFFFF
	}
	blk := buf.Allocate(first)
	buf.Write(blk, wide{7})

	q := &gputest.Queue{}
	require.NoError(t, buf.Flush(q))

	got := q.Contents(buf.Buffer())[blk.Offset() : uint64(blk.Offset())+buf.BlockSize()]
	want := make([]byte, buf.BlockSize())
	copy(want, wide{7}.Marshal())
	assert.Equal(t, want, got)
}

func TestWriteThroughReleasedBlockPanics(t *testing.T) {
	buf, _ := newTintBuffer(t)
	blk := buf.Allocate(tint{})
	blk.Release()
	assert.True(t, blk.Released())

	assert.Panics(t, func() { buf.Write(blk, tint{1}) })
}

func TestWriteThroughForeignBlockPanics(t *testing.T) {
	a, _ := newTintBuffer(t)
	b, _ := newTintBuffer(t)
	blk := a.Allocate(tint{})

	assert.Panics(t, func() { b.Write(blk, tint{1}) })
}

func TestMarshalSizeMismatchPanics(t *testing.T) {
	buf := NewDynamicUniformBuffer[short](&gputest.Device{})
	assert.Panics(t, func() { buf.Allocate(short{}) })
}

func TestFlushPropagatesQueueError(t *testing.T) {
	buf, _ := newTintBuffer(t)
	q := &gputest.Queue{Err: errors.New("lost")}
	assert.ErrorContains(t, buf.Flush(q), "lost")
}

func TestBindGroupEntries(t *testing.T) {
	buf, _ := newTintBuffer(t)

	layout := buf.BindGroupLayoutEntry(3, 0)
	assert.Equal(t, uint32(3), layout.Binding)
	assert.True(t, layout.Buffer.HasDynamicOffset)
	assert.Equal(t, uint64(16), layout.Buffer.MinBindingSize)

	entry := buf.BindGroupEntry(3)
	assert.Same(t, buf.Buffer(), entry.Buffer)
	assert.Equal(t, uint64(16), entry.Size)
}

func TestReleaseFreesBufferOnce(t *testing.T) {
	buf, dev := newTintBuffer(t)
	gpuBuf := buf.Buffer()

	buf.Release()
	buf.Release()

	require.Len(t, dev.Released, 1)
	assert.True(t, dev.WasReleased(gpuBuf))
	assert.Nil(t, buf.Buffer())
}
