package engine

import (
	"fmt"
	"unsafe"
)

const arenaAlign = 16

// Arena is a fixed-size byte region that tensor storage is carved from.
// It never grows.
type Arena struct {
	buf  []byte
	used int
}

func NewArena(size int) *Arena {
	return &Arena{buf: make([]byte, size)}
}

func (a *Arena) Size() int { return len(a.buf) }

func (a *Arena) Used() int { return a.used }

// Alloc carves n bytes starting at a 16-byte offset.
func (a *Arena) Alloc(n int) ([]byte, error) {
	start := (a.used + arenaAlign - 1) &^ (arenaAlign - 1)
	if n < 0 || start+n > len(a.buf) {
		return nil, fmt.Errorf("%w: need %d bytes, %d of %d free", ErrAllocation, n, len(a.buf)-start, len(a.buf))
	}
	a.used = start + n
	return a.buf[start : start+n : start+n], nil
}

// AllocInt8 carves n int8 elements sharing the arena's memory.
func (a *Arena) AllocInt8(n int) ([]int8, error) {
	b, err := a.Alloc(n)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []int8{}, nil
	}
	return unsafe.Slice((*int8)(unsafe.Pointer(&b[0])), n), nil
}

// Reset releases every allocation. Slices handed out earlier alias new ones afterwards.
func (a *Arena) Reset() {
	a.used = 0
	clear(a.buf)
}
