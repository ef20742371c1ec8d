package memory

import (
	"math"

	ffiengine "github.com/wippyai/ffi-engine"
	"github.com/wippyai/ffi-engine/abi"
	"github.com/wippyai/ffi-engine/errors"
)

// Segment is an addressable-buffer handle: a sized view of native memory.
// It is the managed representation of an aggregate value.
type Segment struct {
	mem  ffiengine.Memory
	base uint64
	size uint64
}

// NewSegment wraps an existing region of native memory.
func NewSegment(mem ffiengine.Memory, base, size uint64) *Segment {
	return &Segment{mem: mem, base: base, size: size}
}

// AllocSegment allocates a fresh region and wraps it.
func AllocSegment(mem ffiengine.Memory, alloc ffiengine.Allocator, size, align uint64) (*Segment, error) {
	addr, err := alloc.Alloc(size, align)
	if err != nil {
		return nil, err
	}
	return NewSegment(mem, addr, size), nil
}

// Base returns the address of the segment's first byte.
func (s *Segment) Base() Address { return Address(s.base) }

// Size returns the segment length in bytes.
func (s *Segment) Size() uint64 { return s.size }

// Bytes returns a copy of the segment contents.
func (s *Segment) Bytes() ([]byte, error) {
	return s.mem.Read(s.base, s.size)
}

// CopyFrom copies min(len, size) bytes into the segment.
func (s *Segment) CopyFrom(data []byte) error {
	if uint64(len(data)) > s.size {
		data = data[:s.size]
	}
	return s.mem.Write(s.base, data)
}

// ReadScalar performs a typed read at addr, returning the value widened to
// a raw 64-bit pattern (integers sign-extended, floats as their bit image).
func ReadScalar(mem ffiengine.Memory, addr uint64, t abi.Type) (uint64, error) {
	switch t {
	case abi.TypeI8:
		v, err := mem.ReadU8(addr)
		return uint64(int64(int8(v))), err
	case abi.TypeI16:
		v, err := mem.ReadU16(addr)
		return uint64(int64(int16(v))), err
	case abi.TypeI32:
		v, err := mem.ReadU32(addr)
		return uint64(int64(int32(v))), err
	case abi.TypeF32:
		v, err := mem.ReadU32(addr)
		return uint64(v), err
	case abi.TypeI64, abi.TypeF64, abi.TypePointer:
		return mem.ReadU64(addr)
	default:
		return 0, errors.InvalidData(errors.PhaseUnmarshal, nil, "unknown scalar type "+t.String())
	}
}

// WriteScalar performs a typed write of a raw 64-bit pattern at addr,
// truncating to the type's width.
func WriteScalar(mem ffiengine.Memory, addr uint64, t abi.Type, raw uint64) error {
	switch t {
	case abi.TypeI8:
		return mem.WriteU8(addr, uint8(raw))
	case abi.TypeI16:
		return mem.WriteU16(addr, uint16(raw))
	case abi.TypeI32, abi.TypeF32:
		return mem.WriteU32(addr, uint32(raw))
	case abi.TypeI64, abi.TypeF64, abi.TypePointer:
		return mem.WriteU64(addr, raw)
	default:
		return errors.InvalidData(errors.PhaseMarshal, nil, "unknown scalar type "+t.String())
	}
}

// Float64FromRaw and Float32FromRaw decode float register images.
func Float64FromRaw(raw uint64) float64 { return math.Float64frombits(raw) }
func Float32FromRaw(raw uint64) float32 { return math.Float32frombits(uint32(raw)) }
