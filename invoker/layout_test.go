package invoker

import (
	"context"
	"encoding/binary"
	"strings"
	"sync"
	"testing"

	ffiengine "github.com/wippyai/ffi-engine"
	"github.com/wippyai/ffi-engine/abi"
	"github.com/wippyai/ffi-engine/native"
)

func TestLayoutOf_Memoized(t *testing.T) {
	d := abi.SystemV()
	a := LayoutOf(d)
	b := LayoutOf(d)
	if a != b {
		t.Error("layouts for the same descriptor must be identical")
	}
	if LayoutOf(abi.AAPCS64()) == a {
		t.Error("distinct descriptors must not share a layout")
	}
}

func TestLayout_NonOverlappingAreas(t *testing.T) {
	for _, d := range []*abi.Descriptor{abi.SystemV(), abi.AAPCS64()} {
		l := LayoutOf(d)

		type area struct {
			name       string
			start, end uint64
		}
		areas := []area{
			{"target", l.Target, l.Target + 8},
			{"stack bytes", l.StackBytes, l.StackBytes + 8},
			{"stack args", l.StackArgs, l.StackArgs + 8},
		}
		for i := range d.Classes {
			c := &d.Classes[i]
			if c.Kind == abi.StorageStack {
				continue
			}
			areas = append(areas,
				area{c.Name + " args", l.Args[i], l.Args[i] + uint64(len(c.ArgRegs))*c.Size},
				area{c.Name + " rets", l.Rets[i], l.Rets[i] + uint64(len(c.RetRegs))*c.Size},
			)
		}

		for i := range areas {
			if areas[i].end > l.Size {
				t.Errorf("%s: area %s exceeds buffer size", d.Arch, areas[i].name)
			}
			for j := i + 1; j < len(areas); j++ {
				a, b := areas[i], areas[j]
				if a.start < b.end && b.start < a.end {
					t.Errorf("%s: areas %s and %s overlap", d.Arch, a.name, b.name)
				}
			}
		}
	}
}

func TestLayout_SlotOffsets(t *testing.T) {
	d := abi.SystemV()
	l := LayoutOf(d)

	s0 := abi.Slot{Class: abi.ClassInteger, Index: 0}
	s1 := abi.Slot{Class: abi.ClassInteger, Index: 1}
	if l.ArgOffset(d, s1)-l.ArgOffset(d, s0) != d.Classes[abi.ClassInteger].Size {
		t.Error("adjacent integer slots must be one register width apart")
	}
	if l.RetOffset(d, s0) == l.ArgOffset(d, s0) {
		t.Error("argument and return areas must be distinct")
	}
}

func TestLayout_Dump(t *testing.T) {
	d := abi.SystemV()
	l := LayoutOf(d)
	buf := make([]byte, l.Size)
	out := l.Dump(d, buf)
	for _, want := range []string{"target", "rdi", "rax", "xmm0"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump is missing %q:\n%s", want, out)
		}
	}
}

func TestStub_StackBlockThroughHeader(t *testing.T) {
	d := abi.SystemV()
	l := LayoutOf(d)
	s := StubFor(d)

	table := native.NewTable()
	var seen []uint64
	addr := table.Register(func(ctx context.Context, regs *abi.Registers, mem ffiengine.Memory) error {
		seen = append(seen,
			binary.LittleEndian.Uint64(regs.Stack[0:]),
			binary.LittleEndian.Uint64(regs.Stack[8:]))
		return nil
	})

	// Two stack slots appended after the fixed areas, located through the
	// stack-args header slot.
	buf := make([]byte, l.Size+16)
	binary.LittleEndian.PutUint64(buf[l.Target:], addr)
	binary.LittleEndian.PutUint64(buf[l.StackBytes:], 16)
	binary.LittleEndian.PutUint64(buf[l.StackArgs:], l.Size)
	binary.LittleEndian.PutUint64(buf[l.Size:], 7)
	binary.LittleEndian.PutUint64(buf[l.Size+8:], 8)

	if err := s.Invoke(context.Background(), table, nil, buf); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if len(seen) != 2 || seen[0] != 7 || seen[1] != 8 {
		t.Errorf("stack block seen by callee = %v, want [7 8]", seen)
	}
}

func TestStubFor_SharedPerDescriptor(t *testing.T) {
	d := abi.SystemV()

	const n = 32
	stubs := make([]*Stub, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			stubs[i] = StubFor(d)
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if stubs[i] != stubs[0] {
			t.Fatal("concurrent StubFor calls returned different trampolines")
		}
	}
	if StubFor(abi.AAPCS64()) == stubs[0] {
		t.Error("distinct descriptors must not share a trampoline")
	}
}
