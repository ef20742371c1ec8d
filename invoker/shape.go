package invoker

import (
	"fmt"

	"github.com/wippyai/ffi-engine/errors"
	"github.com/wippyai/ffi-engine/memory"
)

// Carrier is the managed-side type of one argument or return value.
type Carrier uint8

const (
	CarrierNone Carrier = iota
	CarrierInt8
	CarrierInt16
	CarrierInt32
	CarrierInt64
	CarrierFloat32
	CarrierFloat64
	CarrierAddress
	CarrierSegment
)

var carrierNames = [...]string{
	CarrierNone:    "void",
	CarrierInt8:    "int8",
	CarrierInt16:   "int16",
	CarrierInt32:   "int32",
	CarrierInt64:   "int64",
	CarrierFloat32: "float32",
	CarrierFloat64: "float64",
	CarrierAddress: "address",
	CarrierSegment: "segment",
}

func (c Carrier) String() string {
	if int(c) < len(carrierNames) {
		return carrierNames[c]
	}
	return "unknown"
}

func (c Carrier) accepts(v any) bool {
	switch c {
	case CarrierInt8:
		_, ok := v.(int8)
		return ok
	case CarrierInt16:
		_, ok := v.(int16)
		return ok
	case CarrierInt32:
		_, ok := v.(int32)
		return ok
	case CarrierInt64:
		_, ok := v.(int64)
		return ok
	case CarrierFloat32:
		_, ok := v.(float32)
		return ok
	case CarrierFloat64:
		_, ok := v.(float64)
		return ok
	case CarrierAddress:
		_, ok := v.(memory.Address)
		return ok
	case CarrierSegment:
		_, ok := v.(*memory.Segment)
		return ok
	default:
		return false
	}
}

// Shape is the managed method shape a Callable accepts: one carrier per
// argument and one for the return value (CarrierNone for void).
type Shape struct {
	Args []Carrier
	Ret  Carrier
}

// Check validates a flat argument list against the shape. It runs before
// any native work; a mismatch surfaces as a call-time error.
func (s Shape) Check(args []any) error {
	if len(args) != len(s.Args) {
		return errors.ArityMismatch(len(s.Args), len(args))
	}
	for i, v := range args {
		if !s.Args[i].accepts(v) {
			return errors.TypeMismatch(errors.PhaseCall,
				[]string{"arg", fmt.Sprintf("%d", i)},
				fmt.Sprintf("%T", v), s.Args[i].String())
		}
	}
	return nil
}
