package bind_group_provider

import (
	"errors"
	"fmt"
)

var (
	// ErrPartialWrite is returned for a write that does not cover its whole binding.
	ErrPartialWrite = errors.New("buffer write must replace the whole binding")

	// ErrUnknownBinding is returned for a write to a binding with no allocated buffer.
	ErrUnknownBinding = errors.New("buffer write targets an unallocated binding")
)

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// ValidateWrite checks that a write replaces the full contents of its binding: offset 0 and
// exactly as many bytes as were allocated. Uniform blocks are always written whole so the
// GPU never reads a half-updated block.
//
// Parameters:
//   - w: the write to check
//
// Returns:
//   - error: ErrUnknownBinding or ErrPartialWrite wrapped with the offending values, nil if valid
func ValidateWrite(w BufferWrite) error {
	if w.Provider == nil {
		return fmt.Errorf("%w: nil provider", ErrUnknownBinding)
	}
	size, ok := w.Provider.BufferSize(w.Binding)
	if !ok {
		return fmt.Errorf("%w: %s binding %d", ErrUnknownBinding, w.Provider.Label(), w.Binding)
	}
	if w.Offset != 0 || uint64(len(w.Data)) != size {
		return fmt.Errorf("%w: %s binding %d got %d bytes at offset %d, want %d bytes at offset 0",
			ErrPartialWrite, w.Provider.Label(), w.Binding, len(w.Data), w.Offset, size)
	}
	return nil
}
