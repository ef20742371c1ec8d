package memory

import (
	"math"
	"testing"

	"github.com/wippyai/ffi-engine/abi"
)

// sext returns the sign-extended raw register form of a signed value.
func sext(v int64) uint64 { return uint64(v) }

func TestSegment_AllocAndCopy(t *testing.T) {
	h := NewHeap(4096)
	seg, err := AllocSegment(h, h, 16, 8)
	if err != nil {
		t.Fatalf("AllocSegment failed: %v", err)
	}
	if seg.Size() != 16 {
		t.Errorf("Size = %d, want 16", seg.Size())
	}
	if uint64(seg.Base())%8 != 0 {
		t.Errorf("Base = %#x, misaligned", seg.Base())
	}

	src := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	if err := seg.CopyFrom(src); err != nil {
		t.Fatal(err)
	}
	back, err := seg.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	for i := range src {
		if back[i] != src[i] {
			t.Fatalf("Bytes = %v, want %v", back, src)
		}
	}
}

func TestScalar_RoundTrip(t *testing.T) {
	h := NewHeap(4096)
	addr, err := h.Alloc(64, 8)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		typ  abi.Type
		raw  uint64
	}{
		{"i8 negative", abi.TypeI8, sext(int64(int8(-5)))},
		{"i16 negative", abi.TypeI16, sext(int64(int16(-300)))},
		{"i32 negative", abi.TypeI32, sext(int64(int32(-70000)))},
		{"i64", abi.TypeI64, sext(int64(-1 << 40))},
		{"f32", abi.TypeF32, uint64(math.Float32bits(3.25))},
		{"f64", abi.TypeF64, math.Float64bits(-2.5)},
		{"pointer", abi.TypePointer, 0xdeadbeef},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := WriteScalar(h, addr, tt.typ, tt.raw); err != nil {
				t.Fatalf("WriteScalar failed: %v", err)
			}
			got, err := ReadScalar(h, addr, tt.typ)
			if err != nil {
				t.Fatalf("ReadScalar failed: %v", err)
			}
			if got != tt.raw {
				t.Errorf("round trip = %#x, want %#x", got, tt.raw)
			}
		})
	}
}

func TestScalar_SignExtension(t *testing.T) {
	h := NewHeap(64)
	addr, _ := h.Alloc(8, 8)

	// A narrow store followed by a typed read must sign-extend.
	if err := h.WriteU8(addr, 0xff); err != nil {
		t.Fatal(err)
	}
	raw, err := ReadScalar(h, addr, abi.TypeI8)
	if err != nil {
		t.Fatal(err)
	}
	if int64(raw) != -1 {
		t.Errorf("i8 read = %d, want -1", int64(raw))
	}
}

func TestFloatFromRaw(t *testing.T) {
	if Float64FromRaw(math.Float64bits(1.5)) != 1.5 {
		t.Error("f64 raw conversion broken")
	}
	if Float32FromRaw(uint64(math.Float32bits(0.5))) != 0.5 {
		t.Error("f32 raw conversion broken")
	}
}
