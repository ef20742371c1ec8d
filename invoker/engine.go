package invoker

import (
	"context"

	"go.uber.org/zap"

	ffiengine "github.com/wippyai/ffi-engine"
	"github.com/wippyai/ffi-engine/abi"
	"github.com/wippyai/ffi-engine/binding"
	"github.com/wippyai/ffi-engine/errors"
	"github.com/wippyai/ffi-engine/native"
)

// Strategy identifies which execution path a Callable was bound to.
type Strategy uint8

const (
	// StrategyDirect composes binding adapters straight around the raw
	// register call, skipping the staging buffer for arguments.
	StrategyDirect Strategy = iota
	// StrategyInterpreted runs the generic staging-buffer interpreter.
	StrategyInterpreted
)

func (s Strategy) String() string {
	if s == StrategyDirect {
		return "direct"
	}
	return "interpreted"
}

// Engine binds native functions for one target descriptor against one
// backend and native memory. Engines are cheap and immutable; all
// per-call state lives on the call stack.
type Engine struct {
	desc   *abi.Descriptor
	res    native.Resolver
	mem    ffiengine.Memory
	alloc  ffiengine.Allocator
	debug  bool
	noSpec bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithDebug enables staging-buffer dumps around every downcall through the
// package logger. Diagnostic only.
func WithDebug() Option {
	return func(e *Engine) { e.debug = true }
}

// WithoutSpecialization forces every bind onto the interpreted strategy.
// Useful for differential testing and for diagnosing a suspect fast path.
func WithoutSpecialization() Option {
	return func(e *Engine) { e.noSpec = true }
}

// NewEngine creates an engine for a descriptor, backend and native memory.
func NewEngine(desc *abi.Descriptor, res native.Resolver, mem ffiengine.Memory, alloc ffiengine.Allocator, opts ...Option) *Engine {
	e := &Engine{desc: desc, res: res, mem: mem, alloc: alloc}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Callable is a bound native function. It is immutable and safe for
// concurrent use; every invocation is fully independent.
type Callable struct {
	desc       *abi.Descriptor
	res        native.Resolver
	mem        ffiengine.Memory
	alloc      ffiengine.Allocator
	addr       uint64
	seq        *binding.CallingSequence
	shape      Shape
	layout     *BufferLayout
	stub       *Stub
	stackBytes uint64
	strategy   Strategy
	chain      *chain
	debug      bool
}

// Bind validates a calling sequence and pairs it with a native function
// address, choosing the execution strategy once. Construction errors are
// final; they are never retried at call time.
func (e *Engine) Bind(addr uint64, seq *binding.CallingSequence, shape Shape) (*Callable, error) {
	if e.res == nil {
		return nil, errors.NotInitialized(errors.PhaseBind, "backend resolver")
	}
	if e.mem == nil || e.alloc == nil {
		return nil, errors.NotInitialized(errors.PhaseBind, "native memory")
	}
	if seq.NumArgs() != len(shape.Args) {
		return nil, errors.New(errors.PhaseBind, errors.KindInvalidData).
			Detail("sequence has %d arguments, shape has %d", seq.NumArgs(), len(shape.Args)).
			Build()
	}
	if err := seq.Validate(e.desc); err != nil {
		return nil, err
	}

	c := &Callable{
		desc:       e.desc,
		res:        e.res,
		mem:        e.mem,
		alloc:      e.alloc,
		addr:       addr,
		seq:        seq,
		shape:      shape,
		layout:     LayoutOf(e.desc),
		stub:       StubFor(e.desc),
		stackBytes: seq.StackBytes(e.desc),
		strategy:   StrategyInterpreted,
		debug:      e.debug,
	}

	// At most one return move permits the specialized path; a
	// multi-register return always takes the interpreter.
	if !e.noSpec && len(seq.ReturnMoves()) <= 1 {
		ch, ok, err := buildChain(e.desc, seq)
		if err != nil {
			return nil, err
		}
		if ok {
			c.strategy = StrategyDirect
			c.chain = ch
		}
	}

	Logger().Debug("bound native function",
		zap.String("arch", e.desc.Arch),
		zap.Uint64("addr", addr),
		zap.String("strategy", c.strategy.String()),
		zap.Uint64("stack_bytes", c.stackBytes),
	)
	return c, nil
}

// Strategy reports the execution path chosen at bind time.
func (c *Callable) Strategy() Strategy { return c.strategy }

// Call invokes the bound function with a flat ordered argument list
// matching the method shape. Multiple goroutines may call the same
// Callable concurrently.
func (c *Callable) Call(ctx context.Context, args ...any) (any, error) {
	if err := c.shape.Check(args); err != nil {
		return nil, err
	}
	if c.strategy == StrategyDirect {
		return c.invokeDirect(ctx, args)
	}
	return c.invokeGeneric(ctx, args)
}
