package invoker

import (
	"fmt"
	"math"

	"github.com/wippyai/ffi-engine/abi"
	"github.com/wippyai/ffi-engine/errors"
	"github.com/wippyai/ffi-engine/memory"
)

// rawOf converts a managed working value into the raw 64-bit register
// image a move of type t writes. Integers are sign-extended, floats keep
// their bit pattern in the low lanes.
func rawOf(t abi.Type, v any) (uint64, error) {
	switch t {
	case abi.TypeI8:
		if x, ok := v.(int8); ok {
			return uint64(int64(x)), nil
		}
	case abi.TypeI16:
		if x, ok := v.(int16); ok {
			return uint64(int64(x)), nil
		}
	case abi.TypeI32:
		if x, ok := v.(int32); ok {
			return uint64(int64(x)), nil
		}
	case abi.TypeI64:
		if x, ok := v.(int64); ok {
			return uint64(x), nil
		}
	case abi.TypeF32:
		if x, ok := v.(float32); ok {
			return uint64(math.Float32bits(x)), nil
		}
	case abi.TypeF64:
		if x, ok := v.(float64); ok {
			return math.Float64bits(x), nil
		}
	case abi.TypePointer:
		switch x := v.(type) {
		case memory.Address:
			return uint64(x), nil
		case uint64:
			return x, nil
		}
	default:
		return 0, errors.InvalidData(errors.PhaseMarshal, nil, "unknown move type "+t.String())
	}
	return 0, errors.TypeMismatch(errors.PhaseMarshal, nil, fmt.Sprintf("%T", v), t.String())
}

// valueOf is the inverse of rawOf: it rebuilds the managed working value a
// move of type t read from its slot. Pointers stay raw until a
// convert-address binding boxes them.
func valueOf(t abi.Type, raw uint64) any {
	switch t {
	case abi.TypeI8:
		return int8(raw)
	case abi.TypeI16:
		return int16(raw)
	case abi.TypeI32:
		return int32(raw)
	case abi.TypeI64:
		return int64(raw)
	case abi.TypeF32:
		return math.Float32frombits(uint32(raw))
	case abi.TypeF64:
		return math.Float64frombits(raw)
	default:
		return raw
	}
}

// addressOf extracts a native address from an addressable working value.
func addressOf(v any) (uint64, bool) {
	switch x := v.(type) {
	case memory.Address:
		return uint64(x), true
	case *memory.Segment:
		return uint64(x.Base()), true
	case uint64:
		return x, true
	}
	return 0, false
}
