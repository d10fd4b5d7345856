package block

import "unsafe"

type (
	// Buffer is a non-owning view over a contiguous region of items. The
	// underlying storage belongs to the scheduler and the view is valid
	// only for the duration of the work call that supplied it. Size is
	// always a count of items of the view's declared type, never bytes.
	Buffer struct {
		mem  unsafe.Pointer
		size int
	}

	// InputItems holds one readable view per input port.
	InputItems []Buffer

	// OutputItems holds one writable view per output port.
	OutputItems []Buffer
)

// Wrap returns a view over size items starting at mem.
func Wrap(mem unsafe.Pointer, size int) Buffer {
	return Buffer{mem: mem, size: size}
}

// Of returns a view over the provided slice.
func Of[T any](items []T) Buffer {
	if len(items) == 0 {
		return Buffer{}
	}
	return Buffer{mem: unsafe.Pointer(&items[0]), size: len(items)}
}

// Get returns the raw handle to the viewed region.
func (b Buffer) Get() unsafe.Pointer {
	return b.mem
}

// Size returns the number of items in the view.
func (b Buffer) Size() int {
	return b.size
}

// As reinterprets the view as a slice of T. The cast is unchecked: the
// caller asserts that the viewed items are compatible with T. The
// resulting slice keeps the view's item count.
func As[T any](b Buffer) []T {
	if b.mem == nil {
		return nil
	}
	return unsafe.Slice((*T)(b.mem), b.size)
}
