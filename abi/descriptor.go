package abi

import "fmt"

// StorageKind is the category of physical location a storage class covers.
type StorageKind uint8

const (
	StorageInteger StorageKind = iota
	StorageVector
	StorageStack
)

var storageKindNames = [...]string{
	StorageInteger: "integer",
	StorageVector:  "vector",
	StorageStack:   "stack",
}

func (k StorageKind) String() string {
	if int(k) < len(storageKindNames) {
		return storageKindNames[k]
	}
	return "unknown"
}

// Conventional class-table indices. Both shipped descriptors follow this
// ordering; classifiers address classes by these indices.
const (
	ClassInteger = 0
	ClassVector  = 1
	ClassStack   = 2
)

// StorageClass describes one register file (or the stack) of a calling
// convention: its per-location width and the ordered locations available
// for arguments and for return values. Register names are diagnostic only.
type StorageClass struct {
	Kind    StorageKind
	Name    string
	Size    uint64
	ArgRegs []string
	RetRegs []string
}

// Descriptor is the immutable per-target description of available storage.
// Descriptors are created once per target triple and shared read-only;
// descriptor identity keys the buffer-layout and trampoline caches.
type Descriptor struct {
	Arch        string
	Classes     []StorageClass
	StackAlign  uint64
	ShadowSpace uint64
}

// Slot is a concrete location inside a Descriptor: a storage class index
// plus a register (or stack slot) index within that class.
type Slot struct {
	Class int
	Index int
}

// IsStack reports whether the slot lives in a stack storage class.
func (d *Descriptor) IsStack(s Slot) bool {
	return s.Class >= 0 && s.Class < len(d.Classes) && d.Classes[s.Class].Kind == StorageStack
}

// StackSlotSize returns the byte width of one stack argument slot.
func (d *Descriptor) StackSlotSize() uint64 {
	for i := range d.Classes {
		if d.Classes[i].Kind == StorageStack {
			return d.Classes[i].Size
		}
	}
	return 8
}

// CheckSlot validates a slot against the descriptor. ret selects the
// return-location table of the class instead of the argument table.
// It returns the number of locations in the class when the slot is invalid.
func (d *Descriptor) CheckSlot(s Slot, ret bool) (limit int, ok bool) {
	if s.Class < 0 || s.Class >= len(d.Classes) || s.Index < 0 {
		return 0, false
	}
	c := &d.Classes[s.Class]
	if c.Kind == StorageStack {
		// Argument stack slots are unbounded; the sequence's stack-byte
		// count sizes them. Return values never travel on the stack block.
		if ret {
			return 0, false
		}
		return 0, true
	}
	regs := c.ArgRegs
	if ret {
		regs = c.RetRegs
	}
	if s.Index >= len(regs) {
		return len(regs), false
	}
	return len(regs), true
}

// SlotName renders a slot for diagnostics, e.g. "rdi", "v0", "stack[3]".
func (d *Descriptor) SlotName(s Slot, ret bool) string {
	if s.Class < 0 || s.Class >= len(d.Classes) {
		return fmt.Sprintf("class%d[%d]", s.Class, s.Index)
	}
	c := &d.Classes[s.Class]
	if c.Kind == StorageStack {
		return fmt.Sprintf("stack[%d]", s.Index)
	}
	regs := c.ArgRegs
	if ret {
		regs = c.RetRegs
	}
	if s.Index >= 0 && s.Index < len(regs) {
		return regs[s.Index]
	}
	return fmt.Sprintf("%s[%d]", c.Name, s.Index)
}

// Registers is the materialized register file exchanged with a native
// callee: argument registers in classifier order, return registers the
// callee fills before returning, and the raw stack-argument block.
type Registers struct {
	Integer    []uint64
	Vector     []uint64
	RetInteger []uint64
	RetVector  []uint64
	Stack      []byte
}

// NewRegisters builds a zeroed register file sized for the descriptor.
func (d *Descriptor) NewRegisters() *Registers {
	r := &Registers{}
	for i := range d.Classes {
		c := &d.Classes[i]
		switch c.Kind {
		case StorageInteger:
			r.Integer = make([]uint64, len(c.ArgRegs))
			r.RetInteger = make([]uint64, len(c.RetRegs))
		case StorageVector:
			r.Vector = make([]uint64, len(c.ArgRegs))
			r.RetVector = make([]uint64, len(c.RetRegs))
		}
	}
	return r
}
