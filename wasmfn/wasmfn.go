package wasmfn

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	ffiengine "github.com/wippyai/ffi-engine"
	"github.com/wippyai/ffi-engine/abi"
	"github.com/wippyai/ffi-engine/errors"
	"github.com/wippyai/ffi-engine/native"
)

// Registry hosts WebAssembly modules and exposes their exported functions
// as native callees. It implements native.Resolver, so an engine can be
// pointed straight at it.
type Registry struct {
	mu      sync.Mutex
	runtime wazero.Runtime
	table   *native.Table
}

// NewRegistry creates a registry backed by a fresh wazero runtime.
func NewRegistry(ctx context.Context) *Registry {
	return &Registry{
		runtime: wazero.NewRuntime(ctx),
		table:   native.NewTable(),
	}
}

// Resolve implements native.Resolver.
func (r *Registry) Resolve(addr uint64) (native.Func, bool) {
	return r.table.Resolve(addr)
}

// Close releases the underlying runtime. All addresses handed out by the
// registry become dangling.
func (r *Registry) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}

// Module is one instantiated wasm module inside a Registry.
type Module struct {
	registry *Registry
	instance api.Module
}

// Load compiles and instantiates a core wasm binary. Modules are
// instantiated anonymously so several copies can coexist.
func (r *Registry) Load(ctx context.Context, wasmBytes []byte) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	compiled, err := r.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "compile module")
	}
	instance, err := r.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "instantiate module")
	}
	return &Module{registry: r, instance: instance}, nil
}

// Export registers an exported wasm function as a native callee and
// returns its address. Integer parameters are taken from the integer
// argument registers in order, float parameters from the vector registers;
// a single result goes to the first return register of its class.
func (m *Module) Export(name string) (uint64, error) {
	fn := m.instance.ExportedFunction(name)
	if fn == nil {
		return 0, errors.NotFound(errors.PhaseLoad, "export", name)
	}

	def := fn.Definition()
	params := def.ParamTypes()
	results := def.ResultTypes()
	if len(results) > 1 {
		return 0, errors.InvalidData(errors.PhaseLoad, []string{"export", name}, "multi-value results are not supported")
	}

	adapter, err := adapt(fn, name, params, results)
	if err != nil {
		return 0, err
	}
	return m.registry.table.Register(adapter), nil
}

// adapt builds the register-to-wasm-stack bridge for one function.
func adapt(fn api.Function, name string, params, results []api.ValueType) (native.Func, error) {
	for _, p := range params {
		switch p {
		case api.ValueTypeI32, api.ValueTypeI64, api.ValueTypeF32, api.ValueTypeF64:
		default:
			return nil, errors.InvalidData(errors.PhaseLoad, []string{"export", name}, "unsupported parameter type")
		}
	}

	return func(ctx context.Context, regs *abi.Registers, mem ffiengine.Memory) error {
		stack := make([]uint64, 0, len(params))
		intIdx, vecIdx := 0, 0
		for _, p := range params {
			switch p {
			case api.ValueTypeI32, api.ValueTypeI64:
				if intIdx >= len(regs.Integer) {
					return errors.SlotOutOfRange([]string{"call", name}, abi.ClassInteger, intIdx, len(regs.Integer))
				}
				v := regs.Integer[intIdx]
				if p == api.ValueTypeI32 {
					// Registers hold i32 values sign-extended; wazero wants
					// the zero-extended encoding.
					v = uint64(uint32(v))
				}
				stack = append(stack, v)
				intIdx++
			default:
				if vecIdx >= len(regs.Vector) {
					return errors.SlotOutOfRange([]string{"call", name}, abi.ClassVector, vecIdx, len(regs.Vector))
				}
				stack = append(stack, regs.Vector[vecIdx])
				vecIdx++
			}
		}

		out, err := fn.Call(ctx, stack...)
		if err != nil {
			return errors.Wrap(errors.PhaseNative, errors.KindInvalidData, err, "wasm call "+name)
		}
		if len(results) == 1 {
			switch results[0] {
			case api.ValueTypeF32, api.ValueTypeF64:
				regs.RetVector[0] = out[0]
			default:
				regs.RetInteger[0] = out[0]
			}
		}
		return nil
	}, nil
}
