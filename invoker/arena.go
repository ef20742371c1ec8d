package invoker

import (
	"sync"

	ffiengine "github.com/wippyai/ffi-engine"
)

// Arena tracks the temporary buffers allocated while marshalling one call.
// It is created at call entry and drained at a single exit point, so every
// copy-binding allocation is released exactly once on both the success and
// the failure path. Return-side Allocate buffers are never registered;
// their ownership transfers to the caller.
type allocation struct {
	addr  uint64
	size  uint64
	align uint64
}

type Arena struct {
	allocations []allocation
}

var arenaPool = sync.Pool{
	New: func() any {
		return &Arena{allocations: make([]allocation, 0, 8)}
	},
}

// NewArena fetches a cleared arena from the pool.
func NewArena() *Arena {
	return arenaPool.Get().(*Arena)
}

const maxPooledArenaCapacity = 128

// Release returns the arena to the pool. Must be called after Free; the
// arena is invalid afterwards.
func (a *Arena) Release() {
	// Only pool small arenas to prevent memory bloat
	if cap(a.allocations) > maxPooledArenaCapacity {
		return
	}
	a.Reset()
	arenaPool.Put(a)
}

// FreeAndRelease frees all tracked buffers and returns the arena to the pool.
func (a *Arena) FreeAndRelease(alloc ffiengine.Allocator) {
	a.Free(alloc)
	a.Release()
}

// Add registers one allocation for release at call exit.
func (a *Arena) Add(addr, size, align uint64) {
	a.allocations = append(a.allocations, allocation{addr: addr, size: size, align: align})
}

// Free releases every tracked buffer.
func (a *Arena) Free(alloc ffiengine.Allocator) {
	if alloc == nil {
		return
	}
	for _, al := range a.allocations {
		if al.addr != 0 {
			alloc.Free(al.addr, al.size, al.align)
		}
	}
}

// Reset clears the arena without freeing.
func (a *Arena) Reset() {
	a.allocations = a.allocations[:0]
}

// Count returns the number of tracked allocations.
func (a *Arena) Count() int {
	return len(a.allocations)
}
