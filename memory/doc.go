// Package memory provides the simulated native address space the engine
// marshals call data through.
//
// Heap is a linear bounds-checked memory with a bump allocator; it stands
// in for the native heap a real target would provide. Segment is the
// managed handle for an aggregate living in that memory, and Address is
// the raw pointer scalar the convert-address binding exchanges it for.
//
// Freed blocks are accounted but not reclaimed, which keeps allocation
// accounting observable for tests and diagnostics.
package memory
