// Package native defines the backend contract the invocation engine calls
// through: a Resolver that maps native function addresses to callees
// operating on classified register state.
//
// Table is the default in-process backend used by tests and the demo CLI.
// The wasmfn package provides a wazero-backed Resolver that exposes
// WebAssembly module exports as native callees.
package native
