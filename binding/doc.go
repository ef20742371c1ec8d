// Package binding defines the recipe IR the invocation engine executes.
//
// A Binding is one primitive step transforming a value between its managed
// representation and the native ABI representation. A CallingSequence
// groups one binding list per managed argument plus one for the return
// value; an external classifier produces it, the engine only executes it.
//
// Each list is a program for a tiny stack machine with a single working
// value:
//
//	move            write the value to a storage slot (or read it, on return)
//	dup             duplicate the value for two downstream consumers
//	convert-address address handle <-> raw pointer scalar
//	base-address    buffer handle -> address of its first byte
//	dereference     typed read/write at a fixed offset from an address
//	copy            clone an aggregate into a fresh arena-tracked buffer
//	allocate        return-path buffer, ownership transfers to the caller
//
// The operator set is closed; a sequence carrying any other implementation
// of the Binding interface fails validation at bind time.
package binding
