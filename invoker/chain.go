package invoker

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/wippyai/ffi-engine/abi"
	"github.com/wippyai/ffi-engine/binding"
	"github.com/wippyai/ffi-engine/errors"
	"github.com/wippyai/ffi-engine/memory"
)

// Specialized execution strategy: at bind time every binding is compiled
// into a closure over a shared call state, and arguments are placed into
// the register file directly. The staging buffer and trampoline are never
// touched on this path.

// chainState is the mutable state of one specialized invocation. A fresh
// value lives on the stack of each call, so bound chains stay reentrant.
type chainState struct {
	stk      []any
	regs     *abi.Registers
	ar       *Arena
	prealloc []*memory.Segment
	allocIdx int
}

func (st *chainState) pop() (any, bool) {
	if len(st.stk) == 0 {
		return nil, false
	}
	top := st.stk[len(st.stk)-1]
	st.stk = st.stk[:len(st.stk)-1]
	return top, true
}

// chainOp is one compiled binding.
type chainOp func(c *Callable, st *chainState) error

// chain is a compiled calling sequence: one op program per argument and
// one for the return recipe.
type chain struct {
	argOps     [][]chainOp
	retOps     []chainOp
	retAllocs  []binding.Allocate
	needsArena bool
}

// buildChain compiles a sequence for direct execution. ok reports whether
// the sequence is eligible; a false with nil error means the caller should
// fall back to the interpreter. A non-nil error is a construction failure.
func buildChain(d *abi.Descriptor, seq *binding.CallingSequence) (*chain, bool, error) {
	ch := &chain{}

	for i := 0; i < seq.NumArgs(); i++ {
		var ops []chainOp
		for _, b := range seq.Arg(i) {
			op, ok, err := compileArg(d, b, ch)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				return nil, false, nil
			}
			ops = append(ops, op)
		}
		ch.argOps = append(ch.argOps, ops)
	}

	for _, b := range seq.Ret() {
		op, ok, err := compileRet(d, b, ch)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		ch.retOps = append(ch.retOps, op)
	}

	return ch, true, nil
}

func compileArg(d *abi.Descriptor, b binding.Binding, ch *chain) (chainOp, bool, error) {
	switch b := b.(type) {
	case binding.Move:
		kind := d.Classes[b.Slot.Class].Kind
		slotSize := d.StackSlotSize()
		t, index := b.Type, b.Slot.Index
		return func(c *Callable, st *chainState) error {
			v, ok := st.pop()
			if !ok {
				return errors.InvalidData(errors.PhaseMarshal, nil, "move with empty working stack")
			}
			raw, err := rawOf(t, v)
			if err != nil {
				return err
			}
			switch kind {
			case abi.StorageInteger:
				st.regs.Integer[index] = raw
			case abi.StorageVector:
				st.regs.Vector[index] = raw
			default:
				off := uint64(index) * slotSize
				if off+8 > uint64(len(st.regs.Stack)) {
					return errors.OutOfBounds(errors.PhaseMarshal, off, 8, uint64(len(st.regs.Stack)))
				}
				binary.LittleEndian.PutUint64(st.regs.Stack[off:], raw)
			}
			return nil
		}, true, nil

	case binding.Dup:
		return func(c *Callable, st *chainState) error {
			if len(st.stk) == 0 {
				return errors.InvalidData(errors.PhaseMarshal, nil, "dup with empty working stack")
			}
			st.stk = append(st.stk, st.stk[len(st.stk)-1])
			return nil
		}, true, nil

	case binding.ConvertAddress:
		return func(c *Callable, st *chainState) error {
			v, ok := st.pop()
			if !ok {
				return errors.InvalidData(errors.PhaseMarshal, nil, "convert-address with empty working stack")
			}
			addr, isAddr := v.(memory.Address)
			if !isAddr {
				return errors.TypeMismatch(errors.PhaseMarshal, nil, typeName(v), "address")
			}
			st.stk = append(st.stk, uint64(addr))
			return nil
		}, true, nil

	case binding.BaseAddress:
		return func(c *Callable, st *chainState) error {
			v, ok := st.pop()
			if !ok {
				return errors.InvalidData(errors.PhaseMarshal, nil, "base-address with empty working stack")
			}
			seg, isSeg := v.(*memory.Segment)
			if !isSeg {
				return errors.TypeMismatch(errors.PhaseMarshal, nil, typeName(v), "segment")
			}
			st.stk = append(st.stk, seg.Base())
			return nil
		}, true, nil

	case binding.Dereference:
		offset, t := b.Offset, b.Type
		return func(c *Callable, st *chainState) error {
			v, ok := st.pop()
			if !ok {
				return errors.InvalidData(errors.PhaseMarshal, nil, "dereference with empty working stack")
			}
			addr, isAddr := addressOf(v)
			if !isAddr {
				return errors.TypeMismatch(errors.PhaseMarshal, nil, typeName(v), "address or segment")
			}
			raw, err := memory.ReadScalar(c.mem, addr+offset, t)
			if err != nil {
				return err
			}
			st.stk = append(st.stk, valueOf(t, raw))
			return nil
		}, true, nil

	case binding.Copy:
		ch.needsArena = true
		cp := b
		return func(c *Callable, st *chainState) error {
			v, ok := st.pop()
			if !ok {
				return errors.InvalidData(errors.PhaseMarshal, nil, "copy with empty working stack")
			}
			seg, err := c.copyToArena(v, cp, st.ar)
			if err != nil {
				return err
			}
			st.stk = append(st.stk, seg)
			return nil
		}, true, nil

	case binding.Allocate:
		// Scratch-buffer arguments are rare; they take the generic path.
		return nil, false, nil

	default:
		return nil, false, errors.UnsupportedBinding(errors.PhaseBind, nil, b.Tag().String())
	}
}

func compileRet(d *abi.Descriptor, b binding.Binding, ch *chain) (chainOp, bool, error) {
	switch b := b.(type) {
	case binding.Move:
		// Validation has rejected stack-class return slots, so the slot is
		// always a register here.
		kind := d.Classes[b.Slot.Class].Kind
		t, index := b.Type, b.Slot.Index
		return func(c *Callable, st *chainState) error {
			var raw uint64
			if kind == abi.StorageVector {
				raw = st.regs.RetVector[index]
			} else {
				raw = st.regs.RetInteger[index]
			}
			st.stk = append(st.stk, valueOf(t, raw))
			return nil
		}, true, nil

	case binding.Dup:
		return func(c *Callable, st *chainState) error {
			if len(st.stk) == 0 {
				return errors.InvalidData(errors.PhaseUnmarshal, nil, "dup with empty working stack")
			}
			st.stk = append(st.stk, st.stk[len(st.stk)-1])
			return nil
		}, true, nil

	case binding.ConvertAddress:
		return func(c *Callable, st *chainState) error {
			v, ok := st.pop()
			if !ok {
				return errors.InvalidData(errors.PhaseUnmarshal, nil, "convert-address with empty working stack")
			}
			raw, isAddr := addressOf(v)
			if !isAddr {
				return errors.TypeMismatch(errors.PhaseUnmarshal, nil, typeName(v), "raw pointer")
			}
			st.stk = append(st.stk, memory.Address(raw))
			return nil
		}, true, nil

	case binding.BaseAddress:
		return func(c *Callable, st *chainState) error {
			v, ok := st.pop()
			if !ok {
				return errors.InvalidData(errors.PhaseUnmarshal, nil, "base-address with empty working stack")
			}
			seg, isSeg := v.(*memory.Segment)
			if !isSeg {
				return errors.TypeMismatch(errors.PhaseUnmarshal, nil, typeName(v), "segment")
			}
			st.stk = append(st.stk, seg.Base())
			return nil
		}, true, nil

	case binding.Dereference:
		offset, t := b.Offset, b.Type
		return func(c *Callable, st *chainState) error {
			v, ok := st.pop()
			if !ok {
				return errors.InvalidData(errors.PhaseUnmarshal, nil, "dereference with empty working stack")
			}
			target, ok := st.pop()
			if !ok {
				return errors.InvalidData(errors.PhaseUnmarshal, nil, "dereference without target address")
			}
			addr, isAddr := addressOf(target)
			if !isAddr {
				return errors.TypeMismatch(errors.PhaseUnmarshal, nil, typeName(target), "address or segment")
			}
			raw, err := rawOf(t, v)
			if err != nil {
				return err
			}
			return memory.WriteScalar(c.mem, addr+offset, t, raw)
		}, true, nil

	case binding.Allocate:
		ch.retAllocs = append(ch.retAllocs, b)
		return func(c *Callable, st *chainState) error {
			if st.allocIdx >= len(st.prealloc) {
				return errors.InvalidData(errors.PhaseUnmarshal, nil, "allocate without reserved buffer")
			}
			st.stk = append(st.stk, st.prealloc[st.allocIdx])
			st.allocIdx++
			return nil
		}, true, nil

	case binding.Copy:
		// A return-side copy produces a caller-owned clone whose source
		// may be call-scoped. Interpreter only.
		return nil, false, nil

	default:
		return nil, false, errors.UnsupportedBinding(errors.PhaseBind, nil, b.Tag().String())
	}
}

func (c *Callable) invokeDirect(ctx context.Context, args []any) (result any, err error) {
	st := &chainState{regs: c.desc.NewRegisters()}
	if c.stackBytes > 0 {
		st.regs.Stack = make([]byte, c.stackBytes)
	}
	if c.chain.needsArena {
		st.ar = NewArena()
		defer st.ar.FreeAndRelease(c.alloc)
	}

	for i, arg := range args {
		st.stk = append(st.stk[:0], arg)
		for _, op := range c.chain.argOps[i] {
			if err := op(c, st); err != nil {
				return nil, err
			}
		}
		if len(st.stk) != 0 {
			return nil, errors.InvalidData(errors.PhaseMarshal, nil, "unconsumed working values after argument recipe")
		}
	}

	// Return-side buffers are reserved before the downcall; a failed call
	// releases them, a completed call hands them to the caller.
	if len(c.chain.retAllocs) > 0 {
		retAr := NewArena()
		defer func() {
			if err != nil {
				retAr.FreeAndRelease(c.alloc)
			} else {
				retAr.Release()
			}
		}()
		for _, al := range c.chain.retAllocs {
			seg, segErr := memory.AllocSegment(c.mem, c.alloc, al.Size, al.Align)
			if segErr != nil {
				return nil, segErr
			}
			retAr.Add(uint64(seg.Base()), al.Size, al.Align)
			st.prealloc = append(st.prealloc, seg)
		}
	}

	fn, ok := c.res.Resolve(c.addr)
	if !ok {
		return nil, errors.NotFound(errors.PhaseNative, "function at", fmt.Sprintf("%#x", c.addr))
	}
	if err := fn(ctx, st.regs, c.mem); err != nil {
		return nil, err
	}

	st.stk = st.stk[:0]
	for _, op := range c.chain.retOps {
		if err := op(c, st); err != nil {
			return nil, err
		}
	}

	if len(st.stk) == 0 {
		return nil, nil
	}
	if len(st.stk) > 1 {
		return nil, errors.InvalidData(errors.PhaseUnmarshal, nil, "unconsumed working values after return recipe")
	}
	return st.stk[0], nil
}
