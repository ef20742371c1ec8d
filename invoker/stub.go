package invoker

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	ffiengine "github.com/wippyai/ffi-engine"
	"github.com/wippyai/ffi-engine/abi"
	"github.com/wippyai/ffi-engine/errors"
	"github.com/wippyai/ffi-engine/native"
)

// Stub is the generic trampoline for one descriptor: it loads the argument
// registers and the stack block from a staging buffer, performs the
// downcall, and stores the return registers back into the buffer. Stubs
// are stateless and read-only after generation; every calling sequence
// bound against the same descriptor shares one.
type Stub struct {
	desc   *abi.Descriptor
	layout *BufferLayout
}

var stubCache sync.Map // *abi.Descriptor -> *Stub

// StubFor returns the trampoline for a descriptor, generating it on first
// use. Construction is pure, so a rare duplicate under a first-use race is
// benign; exactly one winner is ever observed by callers.
func StubFor(d *abi.Descriptor) *Stub {
	if cached, ok := stubCache.Load(d); ok {
		return cached.(*Stub)
	}
	s := &Stub{desc: d, layout: LayoutOf(d)}
	actual, _ := stubCache.LoadOrStore(d, s)
	return actual.(*Stub)
}

// Invoke runs the trampoline against a staging buffer. The stack block,
// when present, is located through the stack-args header slot.
func (s *Stub) Invoke(ctx context.Context, res native.Resolver, mem ffiengine.Memory, buf []byte) error {
	d, l := s.desc, s.layout

	regs := d.NewRegisters()
	if n := binary.LittleEndian.Uint64(buf[l.StackBytes:]); n > 0 {
		off := binary.LittleEndian.Uint64(buf[l.StackArgs:])
		regs.Stack = buf[off : off+n]
	}
	for i := range d.Classes {
		c := &d.Classes[i]
		switch c.Kind {
		case abi.StorageInteger:
			for j := range c.ArgRegs {
				regs.Integer[j] = binary.LittleEndian.Uint64(buf[l.Args[i]+uint64(j)*c.Size:])
			}
		case abi.StorageVector:
			for j := range c.ArgRegs {
				regs.Vector[j] = binary.LittleEndian.Uint64(buf[l.Args[i]+uint64(j)*c.Size:])
			}
		}
	}

	target := binary.LittleEndian.Uint64(buf[l.Target:])
	fn, ok := res.Resolve(target)
	if !ok {
		return errors.NotFound(errors.PhaseNative, "function at", fmt.Sprintf("%#x", target))
	}
	if err := fn(ctx, regs, mem); err != nil {
		return err
	}

	for i := range d.Classes {
		c := &d.Classes[i]
		switch c.Kind {
		case abi.StorageInteger:
			for j := range c.RetRegs {
				binary.LittleEndian.PutUint64(buf[l.Rets[i]+uint64(j)*c.Size:], regs.RetInteger[j])
			}
		case abi.StorageVector:
			for j := range c.RetRegs {
				binary.LittleEndian.PutUint64(buf[l.Rets[i]+uint64(j)*c.Size:], regs.RetVector[j])
			}
		}
	}
	return nil
}
