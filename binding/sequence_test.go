package binding

import (
	goerrors "errors"
	"strings"
	"testing"

	"github.com/wippyai/ffi-engine/abi"
	"github.com/wippyai/ffi-engine/errors"
)

func move(class, index int, t abi.Type) Move {
	return Move{Slot: abi.Slot{Class: class, Index: index}, Type: t}
}

type opaqueBinding struct{}

func (opaqueBinding) Tag() Tag       { return Tag(42) }
func (opaqueBinding) String() string { return "opaque" }

func TestSequence_Validate(t *testing.T) {
	d := abi.SystemV()

	tests := []struct {
		name     string
		args     [][]Binding
		ret      []Binding
		wantKind errors.Kind
	}{
		{
			name: "valid scalar",
			args: [][]Binding{{move(abi.ClassInteger, 0, abi.TypeI32)}},
			ret:  []Binding{move(abi.ClassInteger, 0, abi.TypeI32)},
		},
		{
			name: "valid aggregate",
			args: [][]Binding{{Copy{Size: 16, Align: 8}, BaseAddress{}, move(abi.ClassInteger, 0, abi.TypePointer)}},
		},
		{
			name: "stack slots unbounded",
			args: [][]Binding{{move(abi.ClassStack, 40, abi.TypeI64)}},
		},
		{
			name:     "return move on the stack",
			ret:      []Binding{move(abi.ClassStack, 0, abi.TypeI64)},
			wantKind: errors.KindSlotOutOfRange,
		},
		{
			name:     "register index out of range",
			args:     [][]Binding{{move(abi.ClassInteger, 6, abi.TypeI64)}},
			wantKind: errors.KindSlotOutOfRange,
		},
		{
			name:     "return register out of range",
			ret:      []Binding{move(abi.ClassInteger, 2, abi.TypeI64)},
			wantKind: errors.KindSlotOutOfRange,
		},
		{
			name:     "negative class",
			args:     [][]Binding{{move(-1, 0, abi.TypeI64)}},
			wantKind: errors.KindSlotOutOfRange,
		},
		{
			name:     "zero-size copy",
			args:     [][]Binding{{Copy{Size: 0, Align: 8}}},
			wantKind: errors.KindInvalidData,
		},
		{
			name:     "zero-size allocate",
			ret:      []Binding{Allocate{Size: 0, Align: 8}},
			wantKind: errors.KindInvalidData,
		},
		{
			name:     "unknown operator",
			args:     [][]Binding{{opaqueBinding{}}},
			wantKind: errors.KindUnsupportedBinding,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSequence(tt.args, tt.ret).Validate(d)
			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var ferr *errors.Error
			if !goerrors.As(err, &ferr) || ferr.Kind != tt.wantKind {
				t.Errorf("Validate() = %v, want kind %v", err, tt.wantKind)
			}
		})
	}
}

func TestSequence_StackBytes(t *testing.T) {
	d := abi.SystemV()
	seq := NewSequence([][]Binding{
		{move(abi.ClassInteger, 0, abi.TypeI64)},
		{move(abi.ClassStack, 0, abi.TypeI64)},
		{move(abi.ClassStack, 1, abi.TypeI64)},
	}, nil)
	if got := seq.StackBytes(d); got != 16 {
		t.Errorf("StackBytes = %d, want 16", got)
	}
	if got := NewSequence(nil, nil).StackBytes(d); got != 0 {
		t.Errorf("empty sequence StackBytes = %d, want 0", got)
	}
}

func TestSequence_Moves(t *testing.T) {
	seq := NewSequence([][]Binding{
		{Copy{Size: 8, Align: 8}, BaseAddress{}, move(abi.ClassInteger, 0, abi.TypePointer)},
		{move(abi.ClassVector, 0, abi.TypeF64)},
	}, []Binding{
		Allocate{Size: 16, Align: 8},
		Dup{},
		move(abi.ClassInteger, 0, abi.TypeI64),
		Dereference{Offset: 0, Type: abi.TypeI64},
	})

	if got := len(seq.MoveBindings()); got != 2 {
		t.Errorf("MoveBindings = %d entries, want 2", got)
	}
	if got := len(seq.ReturnMoves()); got != 1 {
		t.Errorf("ReturnMoves = %d entries, want 1", got)
	}
}

func TestSequence_CopiesInput(t *testing.T) {
	args := [][]Binding{{move(abi.ClassInteger, 0, abi.TypeI64)}}
	seq := NewSequence(args, nil)
	args[0][0] = move(abi.ClassInteger, 5, abi.TypeI64)
	if seq.Arg(0)[0].(Move).Slot.Index != 0 {
		t.Error("sequence shares storage with its input")
	}
}

func TestSequence_String(t *testing.T) {
	seq := NewSequence([][]Binding{
		{Copy{Size: 8, Align: 8}, BaseAddress{}, move(abi.ClassInteger, 0, abi.TypePointer)},
	}, nil)
	out := seq.String()
	for _, want := range []string{"arg 0", "copy size=8", "base-address", "->", "ret: (none)"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}
}

func TestTag_String(t *testing.T) {
	if TagConvertAddress.String() != "convert-address" {
		t.Errorf("TagConvertAddress = %q", TagConvertAddress.String())
	}
	if Tag(42).String() != "tag(42)" {
		t.Errorf("unknown tag = %q", Tag(42).String())
	}
}
