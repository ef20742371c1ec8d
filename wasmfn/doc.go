// Package wasmfn backs the invoker with WebAssembly functions.
//
// A Registry owns a wazero runtime and a function table. Loading a core
// wasm binary and exporting one of its functions yields an address an
// Engine can bind against; at call time the bridge moves classified
// register values onto the wasm value stack and the single result back
// into the return registers. Scalar signatures only; aggregates reach a
// wasm callee the same way they reach any other, by address into native
// memory.
package wasmfn
