// Package arena implements the bump allocator and allocator-parameterized
// typed containers component (A): a region-growing allocator that never
// moves prior allocations, plus a dynamic array, hash map, hash set and bit
// array built on top of it. Every container takes an *Arena so that higher
// layers (object repository, chunk sidebands, session state) can be reset or
// torn down as one unit instead of individually freed.
package arena

import (
	"github.com/nmoscene/nmofile/internal/nmoerr"
)

const defaultRegionSize = 64 * 1024

// Arena is a bump allocator: allocations are carved sequentially out of
// growing regions and are never relocated. Reset rewinds every region's
// cursor to zero without releasing the underlying storage, so a session can
// be reused across loads without additional GC pressure.
type Arena struct {
	regions    []region
	regionSize int
	maxBytes   int // 0 = unbounded; used by tests to exercise OutOfMemory
	used       int
	allocated  int
}

type region struct {
	buf    []byte
	cursor int
}

// New creates an Arena that grows in regionSize chunks (0 picks a default).
// maxBytes bounds total allocation and is the only source of OutOfMemory in
// this pure-Go reimplementation; 0 means unbounded.
func New(regionSize, maxBytes int) *Arena {
	if regionSize <= 0 {
		regionSize = defaultRegionSize
	}
	return &Arena{regionSize: regionSize, maxBytes: maxBytes}
}

// Reserve ensures at least n bytes of headroom exist in the current region,
// growing by adding a fresh region if necessary (prior allocations are never
// moved).
func (a *Arena) Reserve(n int) error {
	if n <= 0 {
		return nil
	}
	if len(a.regions) > 0 {
		r := &a.regions[len(a.regions)-1]
		if len(r.buf)-r.cursor >= n {
			return nil
		}
	}
	return a.grow(n)
}

func (a *Arena) grow(min int) error {
	size := a.regionSize
	if min > size {
		size = min
	}
	if a.maxBytes > 0 && a.allocated+size > a.maxBytes {
		return nmoerr.New(nmoerr.OutOfMemory, "arena: region of %d bytes would exceed max %d", size, a.maxBytes)
	}
	a.regions = append(a.regions, region{buf: make([]byte, size)})
	a.allocated += size
	return nil
}

// Alloc returns a zeroed, align-aligned byte span of exactly n bytes. The
// returned slice is only valid until the next Reset.
func (a *Arena) Alloc(n, align int) ([]byte, error) {
	if n < 0 {
		return nil, nmoerr.New(nmoerr.InvalidArgument, "arena: negative allocation size %d", n)
	}
	if align <= 0 {
		align = 1
	}
	if len(a.regions) == 0 {
		if err := a.grow(n + align); err != nil {
			return nil, err
		}
	}
	r := &a.regions[len(a.regions)-1]
	padded := alignUp(r.cursor, align) - r.cursor
	need := padded + n
	if len(r.buf)-r.cursor < need {
		if err := a.grow(n + align); err != nil {
			return nil, err
		}
		r = &a.regions[len(a.regions)-1]
		padded = alignUp(r.cursor, align) - r.cursor
		need = padded + n
	}
	r.cursor += padded
	out := r.buf[r.cursor : r.cursor+n]
	clear(out) // regions are reused after Reset
	r.cursor += n
	a.used += need
	return out, nil
}

func alignUp(x, align int) int {
	if align <= 1 {
		return x
	}
	rem := x % align
	if rem == 0 {
		return x
	}
	return x + (align - rem)
}

// BytesUsed returns live bytes handed out since the last Reset.
func (a *Arena) BytesUsed() int { return a.used }

// TotalAllocated returns the sum of all region sizes ever grown (never
// shrinks, even across Reset).
func (a *Arena) TotalAllocated() int { return a.allocated }

// Reset rewinds all regions to empty without releasing their storage.
func (a *Arena) Reset() {
	for i := range a.regions {
		a.regions[i].cursor = 0
	}
	a.used = 0
}

// InternString copies s into the arena and returns a fresh Go string backed
// by arena-owned bytes, matching the "names are arena-interned" invariant on
// Object without requiring unsafe string aliasing.
func (a *Arena) InternString(s string) (string, error) {
	buf, err := a.Alloc(len(s), 1)
	if err != nil {
		return "", err
	}
	copy(buf, s)
	return string(buf), nil
}
