package invoker

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/wippyai/ffi-engine/abi"
)

// BufferLayout is the byte layout of the staging buffer shared between the
// generic interpreter and the trampoline. The header carries the call
// target address, the stack-argument byte count and the stack-args offset;
// one argument area and one return area follow per register class. A call
// with stack arguments appends its stack block after Size and records the
// block's offset in the stack-args slot. The layout is an internal
// contract, not a stable format.
type BufferLayout struct {
	Size       uint64
	Target     uint64
	StackBytes uint64
	StackArgs  uint64
	Args       []uint64
	Rets       []uint64
}

var layoutCache sync.Map // *abi.Descriptor -> *BufferLayout

// LayoutOf returns the buffer layout for a descriptor, computing it once
// and memoizing by descriptor identity.
func LayoutOf(d *abi.Descriptor) *BufferLayout {
	if cached, ok := layoutCache.Load(d); ok {
		return cached.(*BufferLayout)
	}
	l := computeLayout(d)
	actual, _ := layoutCache.LoadOrStore(d, l)
	return actual.(*BufferLayout)
}

func computeLayout(d *abi.Descriptor) *BufferLayout {
	l := &BufferLayout{
		Target:     0,
		StackBytes: 8,
		StackArgs:  16,
		Args:       make([]uint64, len(d.Classes)),
		Rets:       make([]uint64, len(d.Classes)),
	}
	off := uint64(24)
	for i := range d.Classes {
		c := &d.Classes[i]
		if c.Kind == abi.StorageStack {
			continue
		}
		l.Args[i] = off
		off += uint64(len(c.ArgRegs)) * c.Size
	}
	for i := range d.Classes {
		c := &d.Classes[i]
		if c.Kind == abi.StorageStack {
			continue
		}
		l.Rets[i] = off
		off += uint64(len(c.RetRegs)) * c.Size
	}
	l.Size = off
	return l
}

// ArgOffset returns the buffer offset of a register argument slot.
func (l *BufferLayout) ArgOffset(d *abi.Descriptor, s abi.Slot) uint64 {
	return l.Args[s.Class] + uint64(s.Index)*d.Classes[s.Class].Size
}

// RetOffset returns the buffer offset of a register return slot.
func (l *BufferLayout) RetOffset(d *abi.Descriptor, s abi.Slot) uint64 {
	return l.Rets[s.Class] + uint64(s.Index)*d.Classes[s.Class].Size
}

// Dump renders the buffer contents register by register. Diagnostic only,
// gated by the engine's debug flag; not part of the stable contract.
func (l *BufferLayout) Dump(d *abi.Descriptor, buf []byte) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "target      %#016x\n", binary.LittleEndian.Uint64(buf[l.Target:]))
	fmt.Fprintf(&sb, "stack bytes %d\n", binary.LittleEndian.Uint64(buf[l.StackBytes:]))
	fmt.Fprintf(&sb, "stack args  %#016x\n", binary.LittleEndian.Uint64(buf[l.StackArgs:]))
	for i := range d.Classes {
		c := &d.Classes[i]
		if c.Kind == abi.StorageStack {
			continue
		}
		for j, name := range c.ArgRegs {
			off := l.Args[i] + uint64(j)*c.Size
			fmt.Fprintf(&sb, "arg %-6s %#016x\n", name, binary.LittleEndian.Uint64(buf[off:]))
		}
		for j, name := range c.RetRegs {
			off := l.Rets[i] + uint64(j)*c.Size
			fmt.Fprintf(&sb, "ret %-6s %#016x\n", name, binary.LittleEndian.Uint64(buf[off:]))
		}
	}
	return sb.String()
}
