package binding

import (
	"strconv"
	"strings"

	"github.com/wippyai/ffi-engine/abi"
	"github.com/wippyai/ffi-engine/errors"
)

// CallingSequence is the full marshalling recipe for one (native signature,
// managed signature) pair: one binding list per managed argument plus one
// for the return value. It is produced by an external classifier and
// treated by the engine as an opaque, immutable contract: the engine
// validates it once at bind time and never re-derives classification.
type CallingSequence struct {
	args [][]Binding
	ret  []Binding
}

// NewSequence builds a calling sequence from per-argument binding lists and
// the return binding list. The lists are copied; later mutation of the
// inputs does not affect the sequence.
func NewSequence(args [][]Binding, ret []Binding) *CallingSequence {
	cs := &CallingSequence{
		args: make([][]Binding, len(args)),
		ret:  append([]Binding(nil), ret...),
	}
	for i, l := range args {
		cs.args[i] = append([]Binding(nil), l...)
	}
	return cs
}

// NumArgs returns the managed argument count.
func (cs *CallingSequence) NumArgs() int { return len(cs.args) }

// Arg returns the binding list for managed argument i. The returned slice
// is shared; callers must not mutate it.
func (cs *CallingSequence) Arg(i int) []Binding { return cs.args[i] }

// Ret returns the return-value binding list.
func (cs *CallingSequence) Ret() []Binding { return cs.ret }

// MoveBindings returns every argument-side Move in argument order. This is
// the flat scalar shape the raw call primitive expects.
func (cs *CallingSequence) MoveBindings() []Move {
	var moves []Move
	for _, l := range cs.args {
		for _, b := range l {
			if m, ok := b.(Move); ok {
				moves = append(moves, m)
			}
		}
	}
	return moves
}

// ReturnMoves returns the Move bindings on the return side. More than one
// forces the generic execution strategy.
func (cs *CallingSequence) ReturnMoves() []Move {
	var moves []Move
	for _, b := range cs.ret {
		if m, ok := b.(Move); ok {
			moves = append(moves, m)
		}
	}
	return moves
}

// StackBytes computes the stack-argument block size for a descriptor:
// the number of argument Moves targeting the stack class times the stack
// slot size.
func (cs *CallingSequence) StackBytes(d *abi.Descriptor) uint64 {
	var n uint64
	for _, m := range cs.MoveBindings() {
		if d.IsStack(m.Slot) {
			n++
		}
	}
	return n * d.StackSlotSize()
}

// Validate checks every binding against the descriptor: all operator tags
// must belong to the closed set and every Move slot must name a location
// the descriptor actually has. Called once at bind time.
func (cs *CallingSequence) Validate(d *abi.Descriptor) error {
	for i, l := range cs.args {
		if err := validateList(d, l, []string{"arg", strconv.Itoa(i)}, false); err != nil {
			return err
		}
	}
	return validateList(d, cs.ret, []string{"ret"}, true)
}

func validateList(d *abi.Descriptor, list []Binding, path []string, ret bool) error {
	for _, b := range list {
		switch b := b.(type) {
		case Move:
			if limit, ok := d.CheckSlot(b.Slot, ret); !ok {
				return errors.SlotOutOfRange(path, b.Slot.Class, b.Slot.Index, limit)
			}
		case Dup, ConvertAddress, BaseAddress, Dereference:
		case Copy:
			if b.Size == 0 {
				return errors.InvalidData(errors.PhaseBind, path, "copy of zero bytes")
			}
		case Allocate:
			if b.Size == 0 {
				return errors.InvalidData(errors.PhaseBind, path, "allocation of zero bytes")
			}
		default:
			return errors.UnsupportedBinding(errors.PhaseBind, path, b.Tag().String())
		}
	}
	return nil
}

// String renders the recipe for diagnostics.
func (cs *CallingSequence) String() string {
	var sb strings.Builder
	for i, l := range cs.args {
		sb.WriteString("arg ")
		sb.WriteString(strconv.Itoa(i))
		sb.WriteString(": ")
		writeList(&sb, l)
		sb.WriteByte('\n')
	}
	sb.WriteString("ret: ")
	writeList(&sb, cs.ret)
	return sb.String()
}

func writeList(sb *strings.Builder, list []Binding) {
	if len(list) == 0 {
		sb.WriteString("(none)")
		return
	}
	for i, b := range list {
		if i > 0 {
			sb.WriteString(" -> ")
		}
		sb.WriteString(b.String())
	}
}
