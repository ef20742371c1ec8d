package binding

import (
	"fmt"

	"github.com/wippyai/ffi-engine/abi"
)

// Tag discriminates the closed set of binding operators.
type Tag uint8

const (
	TagMove Tag = iota + 1
	TagDup
	TagConvertAddress
	TagBaseAddress
	TagDereference
	TagCopy
	TagAllocate
)

var tagNames = [...]string{
	TagMove:           "move",
	TagDup:            "dup",
	TagConvertAddress: "convert-address",
	TagBaseAddress:    "base-address",
	TagDereference:    "dereference",
	TagCopy:           "copy",
	TagAllocate:       "allocate",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) && tagNames[t] != "" {
		return tagNames[t]
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// Binding is one primitive step of a marshalling recipe. The set of
// implementations below is closed: both execution strategies dispatch on
// the concrete type with an exhaustive switch whose default is a hard
// construction error, so an operator the engine does not know is rejected
// at bind time, never guessed at.
type Binding interface {
	Tag() Tag
	String() string
}

// Move transfers the working value to (arguments) or from (returns) a
// concrete storage slot.
type Move struct {
	Slot abi.Slot
	Type abi.Type
}

func (Move) Tag() Tag { return TagMove }
func (b Move) String() string {
	return fmt.Sprintf("move %s class=%d idx=%d", b.Type, b.Slot.Class, b.Slot.Index)
}

// Dup duplicates the working value so two downstream bindings can each
// consume a copy.
type Dup struct{}

func (Dup) Tag() Tag       { return TagDup }
func (Dup) String() string { return "dup" }

// ConvertAddress converts between an address handle and its raw pointer
// scalar: handle to scalar on the argument path, scalar to handle on the
// return path.
type ConvertAddress struct{}

func (ConvertAddress) Tag() Tag       { return TagConvertAddress }
func (ConvertAddress) String() string { return "convert-address" }

// BaseAddress replaces an addressable buffer handle with the address of
// its first byte.
type BaseAddress struct{}

func (BaseAddress) Tag() Tag       { return TagBaseAddress }
func (BaseAddress) String() string { return "base-address" }

// Dereference performs a typed read (arguments) or write (returns) at a
// fixed offset from the working address.
type Dereference struct {
	Offset uint64
	Type   abi.Type
}

func (Dereference) Tag() Tag { return TagDereference }
func (b Dereference) String() string {
	return fmt.Sprintf("dereference %s +%d", b.Type, b.Offset)
}

// Copy allocates a fresh native buffer, copies Size bytes of the source
// aggregate into it and substitutes its handle as the working value. The
// allocation is registered in the call arena and released at call exit.
type Copy struct {
	Size  uint64
	Align uint64
}

func (Copy) Tag() Tag { return TagCopy }
func (b Copy) String() string {
	return fmt.Sprintf("copy size=%d align=%d", b.Size, b.Align)
}

// Allocate allocates a buffer on the return path to receive an aggregate
// returned by value. Ownership of the buffer transfers to the call's
// result; the engine does not release it.
type Allocate struct {
	Size  uint64
	Align uint64
}

func (Allocate) Tag() Tag { return TagAllocate }
func (b Allocate) String() string {
	return fmt.Sprintf("allocate size=%d align=%d", b.Size, b.Align)
}
