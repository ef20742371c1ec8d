package abi

import "testing"

func TestDescriptor_CheckSlot(t *testing.T) {
	d := SystemV()

	tests := []struct {
		name string
		slot Slot
		ret  bool
		ok   bool
	}{
		{"first integer arg", Slot{Class: ClassInteger, Index: 0}, false, true},
		{"last integer arg", Slot{Class: ClassInteger, Index: 5}, false, true},
		{"integer arg past r9", Slot{Class: ClassInteger, Index: 6}, false, false},
		{"second integer ret", Slot{Class: ClassInteger, Index: 1}, true, true},
		{"integer ret past rdx", Slot{Class: ClassInteger, Index: 2}, true, false},
		{"last vector arg", Slot{Class: ClassVector, Index: 7}, false, true},
		{"vector ret past xmm1", Slot{Class: ClassVector, Index: 2}, true, false},
		{"deep stack slot", Slot{Class: ClassStack, Index: 1000}, false, true},
		{"stack slot on return path", Slot{Class: ClassStack, Index: 0}, true, false},
		{"negative index", Slot{Class: ClassInteger, Index: -1}, false, false},
		{"unknown class", Slot{Class: 9, Index: 0}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := d.CheckSlot(tt.slot, tt.ret); ok != tt.ok {
				t.Errorf("CheckSlot(%+v, ret=%v) = %v, want %v", tt.slot, tt.ret, ok, tt.ok)
			}
		})
	}
}

func TestDescriptor_SlotName(t *testing.T) {
	d := SystemV()
	if got := d.SlotName(Slot{Class: ClassInteger, Index: 0}, false); got != "rdi" {
		t.Errorf("SlotName = %q, want rdi", got)
	}
	if got := d.SlotName(Slot{Class: ClassInteger, Index: 0}, true); got != "rax" {
		t.Errorf("SlotName ret = %q, want rax", got)
	}
	if got := d.SlotName(Slot{Class: ClassStack, Index: 3}, false); got != "stack[3]" {
		t.Errorf("SlotName stack = %q", got)
	}
}

func TestDescriptor_NewRegisters(t *testing.T) {
	for _, d := range []*Descriptor{SystemV(), AAPCS64()} {
		r := d.NewRegisters()
		if len(r.Integer) != len(d.Classes[ClassInteger].ArgRegs) {
			t.Errorf("%s: %d integer arg registers", d.Arch, len(r.Integer))
		}
		if len(r.RetInteger) != len(d.Classes[ClassInteger].RetRegs) {
			t.Errorf("%s: %d integer ret registers", d.Arch, len(r.RetInteger))
		}
		if len(r.Vector) != len(d.Classes[ClassVector].ArgRegs) {
			t.Errorf("%s: %d vector arg registers", d.Arch, len(r.Vector))
		}
	}
}

func TestDescriptor_Stack(t *testing.T) {
	d := SystemV()
	if !d.IsStack(Slot{Class: ClassStack, Index: 0}) {
		t.Error("stack slot not recognized")
	}
	if d.IsStack(Slot{Class: ClassInteger, Index: 0}) {
		t.Error("register slot reported as stack")
	}
	if d.StackSlotSize() != 8 {
		t.Errorf("StackSlotSize = %d, want 8", d.StackSlotSize())
	}
}

func TestType_SizeAndString(t *testing.T) {
	tests := []struct {
		t    Type
		size uint64
		name string
	}{
		{TypeI8, 1, "i8"},
		{TypeI16, 2, "i16"},
		{TypeI32, 4, "i32"},
		{TypeI64, 8, "i64"},
		{TypeF32, 4, "f32"},
		{TypeF64, 8, "f64"},
		{TypePointer, 8, "pointer"},
	}
	for _, tt := range tests {
		if tt.t.Size() != tt.size {
			t.Errorf("%s.Size() = %d, want %d", tt.name, tt.t.Size(), tt.size)
		}
		if tt.t.String() != tt.name {
			t.Errorf("String() = %q, want %q", tt.t.String(), tt.name)
		}
	}
	if !TypeF32.IsVector() || !TypeF64.IsVector() {
		t.Error("float types must classify as vector")
	}
	if TypeI64.IsVector() || TypePointer.IsVector() {
		t.Error("integer types must not classify as vector")
	}
}
