package native

import (
	"context"
	"sync"

	ffiengine "github.com/wippyai/ffi-engine"
	"github.com/wippyai/ffi-engine/abi"
)

// Func is a native callee. It reads its arguments from classified register
// state and the stack block, may touch native memory, and writes results
// into the return registers before returning. A returned error is opaque
// to the engine; it is transported to the caller unmasked.
type Func func(ctx context.Context, regs *abi.Registers, mem ffiengine.Memory) error

// Resolver maps a native function address to its callee. The trampoline
// resolves the call-target slot of the staging buffer through this.
type Resolver interface {
	Resolve(addr uint64) (Func, bool)
}

// Table is the in-process function table backend: registration hands out
// stable fake addresses, resolution looks them back up. Safe for
// concurrent use.
type Table struct {
	mu    sync.RWMutex
	next  uint64
	funcs map[uint64]Func
}

const tableBase = 0x1000

// NewTable creates an empty function table.
func NewTable() *Table {
	return &Table{next: tableBase, funcs: make(map[uint64]Func)}
}

// Register adds a callee and returns its address. Addresses are never zero
// and never reused.
func (t *Table) Register(fn Func) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	addr := t.next
	t.next += 16
	t.funcs[addr] = fn
	return addr
}

// Resolve implements Resolver.
func (t *Table) Resolve(addr uint64) (Func, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	fn, ok := t.funcs[addr]
	return fn, ok
}
