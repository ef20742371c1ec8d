package abi

// Type is the scalar carrier type a Move binding transports through a
// storage slot.
type Type uint8

const (
	TypeI8 Type = iota
	TypeI16
	TypeI32
	TypeI64
	TypeF32
	TypeF64
	TypePointer
)

var typeNames = [...]string{
	TypeI8:      "i8",
	TypeI16:     "i16",
	TypeI32:     "i32",
	TypeI64:     "i64",
	TypeF32:     "f32",
	TypeF64:     "f64",
	TypePointer: "pointer",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// Size returns the value width in bytes.
func (t Type) Size() uint64 {
	switch t {
	case TypeI8:
		return 1
	case TypeI16:
		return 2
	case TypeI32, TypeF32:
		return 4
	default:
		return 8
	}
}

// IsVector reports whether the type travels in a vector register class.
func (t Type) IsVector() bool {
	return t == TypeF32 || t == TypeF64
}
