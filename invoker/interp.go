package invoker

import (
	"context"
	"encoding/binary"
	"fmt"

	"go.uber.org/zap"

	"github.com/wippyai/ffi-engine/binding"
	"github.com/wippyai/ffi-engine/errors"
	"github.com/wippyai/ffi-engine/memory"
)

// Generic execution strategy: marshal every argument into the staging
// buffer per the buffer layout, perform the downcall through the shared
// trampoline, then extract the return value from the same buffer.

func (c *Callable) invokeGeneric(ctx context.Context, args []any) (result any, err error) {
	ar := NewArena()
	defer ar.FreeAndRelease(c.alloc)

	buf := make([]byte, c.layout.Size+c.stackBytes)
	binary.LittleEndian.PutUint64(buf[c.layout.Target:], c.addr)
	binary.LittleEndian.PutUint64(buf[c.layout.StackBytes:], c.stackBytes)
	var stack []byte
	if c.stackBytes > 0 {
		// The stack block trails the fixed header and register areas; the
		// stack-args header slot records where it starts.
		binary.LittleEndian.PutUint64(buf[c.layout.StackArgs:], c.layout.Size)
		stack = buf[c.layout.Size:]
	}

	for i, arg := range args {
		if err := c.unbox(arg, c.seq.Arg(i), buf, stack, ar); err != nil {
			return nil, err
		}
	}

	// Return-side buffers are reserved before the downcall so that an
	// allocation failure never follows a native call with side effects.
	// They become caller owned with the result; until then a failed call
	// releases them.
	prealloc, retAr, err := c.preallocReturns()
	if err != nil {
		return nil, err
	}
	if retAr != nil {
		defer func() {
			if err != nil {
				retAr.FreeAndRelease(c.alloc)
			} else {
				retAr.Release()
			}
		}()
	}

	if c.debug {
		Logger().Debug("staging buffer before downcall",
			zap.Uint64("addr", c.addr),
			zap.String("dump", c.layout.Dump(c.desc, buf)))
	}

	if err := c.stub.Invoke(ctx, c.res, c.mem, buf); err != nil {
		return nil, err
	}

	if c.debug {
		Logger().Debug("staging buffer after downcall",
			zap.Uint64("addr", c.addr),
			zap.String("dump", c.layout.Dump(c.desc, buf)))
	}

	if len(c.seq.Ret()) == 0 {
		return nil, nil
	}
	return c.box(c.seq.Ret(), buf, prealloc)
}

// preallocReturns allocates every return-side Allocate buffer up front.
// The scratch arena only tracks them while the call is in flight; once
// the result is produced their ownership transfers to the caller.
func (c *Callable) preallocReturns() ([]*memory.Segment, *Arena, error) {
	var segs []*memory.Segment
	var ar *Arena
	for _, b := range c.seq.Ret() {
		al, ok := b.(binding.Allocate)
		if !ok {
			continue
		}
		if ar == nil {
			ar = NewArena()
		}
		seg, err := memory.AllocSegment(c.mem, c.alloc, al.Size, al.Align)
		if err != nil {
			ar.FreeAndRelease(c.alloc)
			return nil, nil, err
		}
		ar.Add(uint64(seg.Base()), al.Size, al.Align)
		segs = append(segs, seg)
	}
	return segs, ar, nil
}

// unbox runs one argument's binding list left to right, maintaining a
// small working-value stack, and writes every Move into its slot.
func (c *Callable) unbox(v any, bindings []binding.Binding, buf, stack []byte, ar *Arena) error {
	stk := make([]any, 1, 4)
	stk[0] = v

	pop := func() (any, bool) {
		if len(stk) == 0 {
			return nil, false
		}
		top := stk[len(stk)-1]
		stk = stk[:len(stk)-1]
		return top, true
	}

	for _, b := range bindings {
		switch b := b.(type) {
		case binding.Move:
			v, ok := pop()
			if !ok {
				return errors.InvalidData(errors.PhaseMarshal, nil, "move with empty working stack")
			}
			raw, err := rawOf(b.Type, v)
			if err != nil {
				return err
			}
			if c.desc.IsStack(b.Slot) {
				off := uint64(b.Slot.Index) * c.desc.StackSlotSize()
				if off+8 > uint64(len(stack)) {
					return errors.OutOfBounds(errors.PhaseMarshal, off, 8, uint64(len(stack)))
				}
				binary.LittleEndian.PutUint64(stack[off:], raw)
			} else {
				binary.LittleEndian.PutUint64(buf[c.layout.ArgOffset(c.desc, b.Slot):], raw)
			}

		case binding.Dup:
			if len(stk) == 0 {
				return errors.InvalidData(errors.PhaseMarshal, nil, "dup with empty working stack")
			}
			stk = append(stk, stk[len(stk)-1])

		case binding.ConvertAddress:
			v, ok := pop()
			if !ok {
				return errors.InvalidData(errors.PhaseMarshal, nil, "convert-address with empty working stack")
			}
			addr, isAddr := v.(memory.Address)
			if !isAddr {
				return errors.TypeMismatch(errors.PhaseMarshal, nil, typeName(v), "address")
			}
			stk = append(stk, uint64(addr))

		case binding.BaseAddress:
			v, ok := pop()
			if !ok {
				return errors.InvalidData(errors.PhaseMarshal, nil, "base-address with empty working stack")
			}
			seg, isSeg := v.(*memory.Segment)
			if !isSeg {
				return errors.TypeMismatch(errors.PhaseMarshal, nil, typeName(v), "segment")
			}
			stk = append(stk, seg.Base())

		case binding.Dereference:
			v, ok := pop()
			if !ok {
				return errors.InvalidData(errors.PhaseMarshal, nil, "dereference with empty working stack")
			}
			addr, isAddr := addressOf(v)
			if !isAddr {
				return errors.TypeMismatch(errors.PhaseMarshal, nil, typeName(v), "address or segment")
			}
			raw, err := memory.ReadScalar(c.mem, addr+b.Offset, b.Type)
			if err != nil {
				return err
			}
			stk = append(stk, valueOf(b.Type, raw))

		case binding.Copy:
			v, ok := pop()
			if !ok {
				return errors.InvalidData(errors.PhaseMarshal, nil, "copy with empty working stack")
			}
			seg, err := c.copyToArena(v, b, ar)
			if err != nil {
				return err
			}
			stk = append(stk, seg)

		case binding.Allocate:
			// A scratch buffer for the callee; it lives in the call arena
			// and is released when the call completes.
			seg, err := memory.AllocSegment(c.mem, c.alloc, b.Size, b.Align)
			if err != nil {
				return err
			}
			ar.Add(uint64(seg.Base()), b.Size, b.Align)
			stk = append(stk, seg)

		default:
			// Validation rejects these at bind time; reaching here means
			// the sequence changed after binding.
			return errors.UnsupportedBinding(errors.PhaseMarshal, nil, b.Tag().String())
		}
	}

	if len(stk) != 0 {
		return errors.InvalidData(errors.PhaseMarshal, nil, "unconsumed working values after argument recipe")
	}
	return nil
}

// copyToArena clones the source aggregate into a fresh native buffer whose
// lifetime is the current call.
func (c *Callable) copyToArena(v any, b binding.Copy, ar *Arena) (*memory.Segment, error) {
	addr, ok := addressOf(v)
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseMarshal, nil, typeName(v), "address or segment")
	}
	src, err := c.mem.Read(addr, b.Size)
	if err != nil {
		return nil, err
	}
	dst, err := c.alloc.Alloc(b.Size, b.Align)
	if err != nil {
		return nil, err
	}
	ar.Add(dst, b.Size, b.Align)
	if err := c.mem.Write(dst, src); err != nil {
		return nil, err
	}
	return memory.NewSegment(c.mem, dst, b.Size), nil
}

// box runs the return binding list against the staging buffer. Moves read
// their slot into the working stack; Dereference stores a value through an
// address produced earlier in the list; the final working value (if any)
// becomes the managed result.
func (c *Callable) box(bindings []binding.Binding, buf []byte, prealloc []*memory.Segment) (any, error) {
	var stk []any
	allocIdx := 0

	pop := func() (any, bool) {
		if len(stk) == 0 {
			return nil, false
		}
		top := stk[len(stk)-1]
		stk = stk[:len(stk)-1]
		return top, true
	}

	for _, b := range bindings {
		switch b := b.(type) {
		case binding.Move:
			raw := binary.LittleEndian.Uint64(buf[c.layout.RetOffset(c.desc, b.Slot):])
			stk = append(stk, valueOf(b.Type, raw))

		case binding.Dup:
			if len(stk) == 0 {
				return nil, errors.InvalidData(errors.PhaseUnmarshal, nil, "dup with empty working stack")
			}
			stk = append(stk, stk[len(stk)-1])

		case binding.ConvertAddress:
			v, ok := pop()
			if !ok {
				return nil, errors.InvalidData(errors.PhaseUnmarshal, nil, "convert-address with empty working stack")
			}
			raw, isAddr := addressOf(v)
			if !isAddr {
				return nil, errors.TypeMismatch(errors.PhaseUnmarshal, nil, typeName(v), "raw pointer")
			}
			stk = append(stk, memory.Address(raw))

		case binding.BaseAddress:
			v, ok := pop()
			if !ok {
				return nil, errors.InvalidData(errors.PhaseUnmarshal, nil, "base-address with empty working stack")
			}
			seg, isSeg := v.(*memory.Segment)
			if !isSeg {
				return nil, errors.TypeMismatch(errors.PhaseUnmarshal, nil, typeName(v), "segment")
			}
			stk = append(stk, seg.Base())

		case binding.Dereference:
			v, ok := pop()
			if !ok {
				return nil, errors.InvalidData(errors.PhaseUnmarshal, nil, "dereference with empty working stack")
			}
			target, ok := pop()
			if !ok {
				return nil, errors.InvalidData(errors.PhaseUnmarshal, nil, "dereference without target address")
			}
			addr, isAddr := addressOf(target)
			if !isAddr {
				return nil, errors.TypeMismatch(errors.PhaseUnmarshal, nil, typeName(target), "address or segment")
			}
			raw, err := rawOf(b.Type, v)
			if err != nil {
				return nil, err
			}
			if err := memory.WriteScalar(c.mem, addr+b.Offset, b.Type, raw); err != nil {
				return nil, err
			}

		case binding.Allocate:
			if allocIdx >= len(prealloc) {
				return nil, errors.InvalidData(errors.PhaseUnmarshal, nil, "allocate without reserved buffer")
			}
			stk = append(stk, prealloc[allocIdx])
			allocIdx++

		case binding.Copy:
			// The callee's storage may be reused after the call returns;
			// the caller receives an independent clone it owns.
			v, ok := pop()
			if !ok {
				return nil, errors.InvalidData(errors.PhaseUnmarshal, nil, "copy with empty working stack")
			}
			addr, isAddr := addressOf(v)
			if !isAddr {
				return nil, errors.TypeMismatch(errors.PhaseUnmarshal, nil, typeName(v), "address or segment")
			}
			src, err := c.mem.Read(addr, b.Size)
			if err != nil {
				return nil, err
			}
			dst, err := memory.AllocSegment(c.mem, c.alloc, b.Size, b.Align)
			if err != nil {
				return nil, err
			}
			if err := c.mem.Write(uint64(dst.Base()), src); err != nil {
				return nil, err
			}
			stk = append(stk, dst)

		default:
			return nil, errors.UnsupportedBinding(errors.PhaseUnmarshal, nil, b.Tag().String())
		}
	}

	if len(stk) == 0 {
		return nil, nil
	}
	if len(stk) > 1 {
		return nil, errors.InvalidData(errors.PhaseUnmarshal, nil, "unconsumed working values after return recipe")
	}
	return stk[0], nil
}

func typeName(v any) string {
	switch v.(type) {
	case memory.Address:
		return "address"
	case *memory.Segment:
		return "segment"
	case uint64:
		return "raw pointer"
	default:
		return fmt.Sprintf("%T", v)
	}
}
