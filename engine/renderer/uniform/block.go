package uniform

// epoch is the liveness token shared by every block allocated between two successful clears.
// live counts the blocks that have not been released yet.
type epoch struct {
	live int
}

// Block is a claim on one BlockSize range of a DynamicUniformBuffer.
// It exposes only the dynamic offset; contents are changed through DynamicUniformBuffer.Write.
// A Block must be released before the owning buffer can be cleared.
type Block[T Element] struct {
	owner    *DynamicUniformBuffer[T]
	epoch    *epoch
	addr     uint64
	released bool
}

// Offset returns the byte offset of the block, suitable as a bind-time dynamic offset.
func (b *Block[T]) Offset() uint32 {
	return uint32(b.addr)
}

// Release drops the claim on the block. Calling Release more than once has no further effect.
func (b *Block[T]) Release() {
	if b == nil || b.released {
		return
	}
	b.released = true
	b.epoch.live--
}

// Released reports whether Release has been called.
func (b *Block[T]) Released() bool {
	return b.released
}
