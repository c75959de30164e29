package uniform

import "errors"

var (
	// ErrOutstandingBlocks is returned by Clear while blocks allocated since the last reset are still held.
	ErrOutstandingBlocks = errors.New("uniform: outstanding references to allocated blocks")
	// ErrCapacityExceeded is returned by TryAllocate when the next block would not fit.
	ErrCapacityExceeded = errors.New("uniform: not enough space in dynamic uniform buffer")
	// ErrReleasedBlock is the panic value cause for writes through a released or foreign block.
	ErrReleasedBlock = errors.New("uniform: block is released or belongs to another buffer")
)
