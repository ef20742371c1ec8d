// Package ffiengine provides a foreign-function binding and invocation engine.
//
// Managed code binds a native function address together with a
// classifier-supplied calling sequence (a per-argument marshalling recipe)
// into a Callable. Each call marshals managed values into the target ABI's
// register and stack locations, performs the downcall through a shared
// per-ABI trampoline, and unmarshals the result.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	ffiengine/       Root package with core Memory and Allocator interfaces
//	├── abi/         ABI descriptors, storage classes and slots, register state
//	├── binding/     The Binding recipe IR and CallingSequence
//	├── memory/      Simulated native heap: linear memory, allocator, segments
//	├── native/      Native function table (address -> callee) and backend contract
//	├── invoker/     Buffer layout, interpreter, specialized chains, stub cache
//	├── wasmfn/      wazero-backed native callees (wasm exports as functions)
//	└── errors/      Structured error types for debugging
//
// # Quick Start
//
// Bind and call a register-classified int32 add function:
//
//	desc := abi.SystemV()
//	table := native.NewTable()
//	heap := memory.NewHeap(1 << 20)
//
//	addr := table.Register(func(ctx context.Context, regs *abi.Registers, mem ffiengine.Memory) error {
//	    regs.RetInteger[0] = uint64(int32(regs.Integer[0]) + int32(regs.Integer[1]))
//	    return nil
//	})
//
//	seq := binding.NewSequence([][]binding.Binding{
//	    {binding.Move{Slot: abi.Slot{Class: abi.ClassInteger, Index: 0}, Type: abi.TypeI32}},
//	    {binding.Move{Slot: abi.Slot{Class: abi.ClassInteger, Index: 1}, Type: abi.TypeI32}},
//	}, []binding.Binding{
//	    binding.Move{Slot: abi.Slot{Class: abi.ClassInteger, Index: 0}, Type: abi.TypeI32},
//	})
//
//	eng := invoker.NewEngine(desc, table, heap, heap)
//	fn, _ := eng.Bind(addr, seq, invoker.Shape{
//	    Args: []invoker.Carrier{invoker.CarrierInt32, invoker.CarrierInt32},
//	    Ret:  invoker.CarrierInt32,
//	})
//
//	sum, _ := fn.Call(ctx, int32(3), int32(4)) // int32(7)
//
// # Execution Strategies
//
// Every Callable carries one of two strategies, chosen once at bind time:
//
//	direct       Specialized pipeline around the raw register call; used
//	             whenever the return side has at most one Move binding.
//	interpreted  Generic staging-buffer interpreter; the fallback for
//	             multi-register returns. Observably identical to direct.
//
// # Thread Safety
//
// Descriptors, calling sequences, buffer layouts, trampolines and Callables
// are immutable after construction and safe for concurrent use. All per-call
// state (staging buffer, call arena) is call-local.
//
// # Resource Model
//
// Temporary buffers allocated while marshalling one call are released exactly
// once when the call scope ends, on both success and failure paths. The one
// exception is the return-side Allocate buffer, whose ownership transfers to
// the caller.
package ffiengine
