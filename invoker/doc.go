// Package invoker executes bound native calls.
//
// An Engine pairs a target descriptor with a backend resolver and native
// memory. Bind validates a calling sequence once and returns an immutable
// Callable; Call marshals managed arguments through the sequence's binding
// recipes, performs the downcall, and unmarshals the result.
//
// Two execution strategies exist. The interpreted path stages classified
// argument values in a per-call buffer whose layout is memoized per
// descriptor, then runs a shared trampoline that loads registers from the
// buffer and stores return registers back. The direct path, chosen at bind
// time for sequences with at most one return move, compiles every binding
// into a closure and fills the register file without a staging buffer.
// Both paths produce identical observable results.
//
// Call-scoped native buffers (argument copies) are tracked in an Arena and
// released when the call returns, on success or failure. Buffers produced
// for the returned value are reserved before the downcall and handed to
// the caller with the result.
package invoker
