package main

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	ffiengine "github.com/wippyai/ffi-engine"
	"github.com/wippyai/ffi-engine/abi"
	"github.com/wippyai/ffi-engine/binding"
	"github.com/wippyai/ffi-engine/invoker"
	"github.com/wippyai/ffi-engine/memory"
	"github.com/wippyai/ffi-engine/native"
)

// workbench wires a demo function table to an engine so every execution
// path can be exercised from the command line.
type workbench struct {
	desc  *abi.Descriptor
	table *native.Table
	heap  *memory.Heap
	eng   *invoker.Engine
	demos []*demo
}

// demo is one bound native function plus enough metadata to parse its
// arguments from the command line and render its result.
type demo struct {
	name      string
	signature string
	callable  *invoker.Callable
	parsers   []argParser
	show      func(any) string
}

type argParser struct {
	hint  string
	parse func(*workbench, string) (any, error)
}

func newWorkbench(arch string, noSpec, debug bool) (*workbench, error) {
	var desc *abi.Descriptor
	switch arch {
	case "sysv", "x86_64":
		desc = abi.SystemV()
	case "aapcs64", "aarch64":
		desc = abi.AAPCS64()
	default:
		return nil, fmt.Errorf("unknown arch %q (want sysv or aapcs64)", arch)
	}

	var opts []invoker.Option
	if noSpec {
		opts = append(opts, invoker.WithoutSpecialization())
	}
	if debug {
		opts = append(opts, invoker.WithDebug())
	}

	w := &workbench{
		desc:  desc,
		table: native.NewTable(),
		heap:  memory.NewHeap(1 << 20),
	}
	w.eng = invoker.NewEngine(desc, w.table, w.heap, w.heap, opts...)
	if err := w.register(); err != nil {
		return nil, err
	}
	return w, nil
}

func intMove(index int, t abi.Type) binding.Move {
	return binding.Move{Slot: abi.Slot{Class: abi.ClassInteger, Index: index}, Type: t}
}

func vecMove(index int, t abi.Type) binding.Move {
	return binding.Move{Slot: abi.Slot{Class: abi.ClassVector, Index: index}, Type: t}
}

func stackMove(index int, t abi.Type) binding.Move {
	return binding.Move{Slot: abi.Slot{Class: abi.ClassStack, Index: index}, Type: t}
}

var (
	parseI32 = argParser{hint: "i32", parse: func(w *workbench, s string) (any, error) {
		v, err := strconv.ParseInt(s, 10, 32)
		return int32(v), err
	}}
	parseI64 = argParser{hint: "i64", parse: func(w *workbench, s string) (any, error) {
		return strconv.ParseInt(s, 10, 64)
	}}
	parseF64 = argParser{hint: "f64", parse: func(w *workbench, s string) (any, error) {
		return strconv.ParseFloat(s, 64)
	}}
	// parsePair builds a two-field i64 aggregate from "a:b".
	parsePair = argParser{hint: "i64:i64", parse: func(w *workbench, s string) (any, error) {
		parts := strings.SplitN(s, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("want two fields separated by ':', got %q", s)
		}
		a, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return nil, err
		}
		b, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, err
		}
		seg, err := memory.AllocSegment(w.heap, w.heap, 16, 8)
		if err != nil {
			return nil, err
		}
		if err := w.heap.WriteU64(uint64(seg.Base()), uint64(a)); err != nil {
			return nil, err
		}
		if err := w.heap.WriteU64(uint64(seg.Base())+8, uint64(b)); err != nil {
			return nil, err
		}
		return seg, nil
	}}
)

func showPlain(v any) string { return fmt.Sprintf("%v", v) }

func (w *workbench) register() error {
	specs := []struct {
		name      string
		signature string
		fn        native.Func
		args      [][]binding.Binding
		ret       []binding.Binding
		shape     invoker.Shape
		parsers   []argParser
		show      func(any) string
	}{
		{
			name:      "add",
			signature: "add(a: i32, b: i32) -> i32",
			fn: func(ctx context.Context, regs *abi.Registers, mem ffiengine.Memory) error {
				regs.RetInteger[0] = uint64(int64(int32(regs.Integer[0]) + int32(regs.Integer[1])))
				return nil
			},
			args: [][]binding.Binding{
				{intMove(0, abi.TypeI32)},
				{intMove(1, abi.TypeI32)},
			},
			ret: []binding.Binding{intMove(0, abi.TypeI32)},
			shape: invoker.Shape{
				Args: []invoker.Carrier{invoker.CarrierInt32, invoker.CarrierInt32},
				Ret:  invoker.CarrierInt32,
			},
			parsers: []argParser{parseI32, parseI32},
			show:    showPlain,
		},
		{
			name:      "hypot",
			signature: "hypot(x: f64, y: f64) -> f64",
			fn: func(ctx context.Context, regs *abi.Registers, mem ffiengine.Memory) error {
				x := memory.Float64FromRaw(regs.Vector[0])
				y := memory.Float64FromRaw(regs.Vector[1])
				regs.RetVector[0] = math.Float64bits(math.Hypot(x, y))
				return nil
			},
			args: [][]binding.Binding{
				{vecMove(0, abi.TypeF64)},
				{vecMove(1, abi.TypeF64)},
			},
			ret: []binding.Binding{vecMove(0, abi.TypeF64)},
			shape: invoker.Shape{
				Args: []invoker.Carrier{invoker.CarrierFloat64, invoker.CarrierFloat64},
				Ret:  invoker.CarrierFloat64,
			},
			parsers: []argParser{parseF64, parseF64},
			show:    showPlain,
		},
		{
			name:      "sum8",
			signature: "sum8(a..h: i64 x8) -> i64",
			fn: func(ctx context.Context, regs *abi.Registers, mem ffiengine.Memory) error {
				var sum int64
				for _, r := range regs.Integer {
					sum += int64(r)
				}
				for off := 0; off+8 <= len(regs.Stack); off += 8 {
					var v uint64
					for i := 0; i < 8; i++ {
						v |= uint64(regs.Stack[off+i]) << (8 * i)
					}
					sum += int64(v)
				}
				regs.RetInteger[0] = uint64(sum)
				return nil
			},
			args:    sum8Args(w.desc),
			ret:     []binding.Binding{intMove(0, abi.TypeI64)},
			shape:   scalarShape(8, invoker.CarrierInt64, invoker.CarrierInt64),
			parsers: repeatParser(parseI64, 8),
			show:    showPlain,
		},
		{
			name:      "dot",
			signature: "dot(u: pair, v: pair) -> i64",
			fn: func(ctx context.Context, regs *abi.Registers, mem ffiengine.Memory) error {
				u, v := regs.Integer[0], regs.Integer[1]
				u0, err := mem.ReadU64(u)
				if err != nil {
					return err
				}
				u1, err := mem.ReadU64(u + 8)
				if err != nil {
					return err
				}
				v0, err := mem.ReadU64(v)
				if err != nil {
					return err
				}
				v1, err := mem.ReadU64(v + 8)
				if err != nil {
					return err
				}
				regs.RetInteger[0] = uint64(int64(u0)*int64(v0) + int64(u1)*int64(v1))
				return nil
			},
			args: [][]binding.Binding{
				{binding.Copy{Size: 16, Align: 8}, binding.BaseAddress{}, intMove(0, abi.TypePointer)},
				{binding.Copy{Size: 16, Align: 8}, binding.BaseAddress{}, intMove(1, abi.TypePointer)},
			},
			ret: []binding.Binding{intMove(0, abi.TypeI64)},
			shape: invoker.Shape{
				Args: []invoker.Carrier{invoker.CarrierSegment, invoker.CarrierSegment},
				Ret:  invoker.CarrierInt64,
			},
			parsers: []argParser{parsePair, parsePair},
			show:    showPlain,
		},
		{
			name:      "minmax",
			signature: "minmax(a: i64, b: i64) -> pair",
			fn: func(ctx context.Context, regs *abi.Registers, mem ffiengine.Memory) error {
				a, b := int64(regs.Integer[0]), int64(regs.Integer[1])
				lo, hi := a, b
				if b < a {
					lo, hi = b, a
				}
				regs.RetInteger[0] = uint64(lo)
				regs.RetInteger[1] = uint64(hi)
				return nil
			},
			args: [][]binding.Binding{
				{intMove(0, abi.TypeI64)},
				{intMove(1, abi.TypeI64)},
			},
			ret: []binding.Binding{
				binding.Allocate{Size: 16, Align: 8},
				binding.Dup{},
				intMove(0, abi.TypeI64),
				binding.Dereference{Offset: 0, Type: abi.TypeI64},
				binding.Dup{},
				intMove(1, abi.TypeI64),
				binding.Dereference{Offset: 8, Type: abi.TypeI64},
			},
			shape: invoker.Shape{
				Args: []invoker.Carrier{invoker.CarrierInt64, invoker.CarrierInt64},
				Ret:  invoker.CarrierSegment,
			},
			parsers: []argParser{parseI64, parseI64},
			show:    w.showPair,
		},
	}

	for _, s := range specs {
		addr := w.table.Register(s.fn)
		seq := binding.NewSequence(s.args, s.ret)
		callable, err := w.eng.Bind(addr, seq, s.shape)
		if err != nil {
			return fmt.Errorf("bind %s: %w", s.name, err)
		}
		w.demos = append(w.demos, &demo{
			name:      s.name,
			signature: s.signature,
			callable:  callable,
			parsers:   s.parsers,
			show:      s.show,
		})
	}
	return nil
}

func sum8Args(d *abi.Descriptor) [][]binding.Binding {
	nregs := len(d.Classes[abi.ClassInteger].ArgRegs)
	args := make([][]binding.Binding, 8)
	for i := range args {
		if i < nregs {
			args[i] = []binding.Binding{intMove(i, abi.TypeI64)}
		} else {
			args[i] = []binding.Binding{stackMove(i-nregs, abi.TypeI64)}
		}
	}
	return args
}

func scalarShape(n int, arg, ret invoker.Carrier) invoker.Shape {
	s := invoker.Shape{Args: make([]invoker.Carrier, n), Ret: ret}
	for i := range s.Args {
		s.Args[i] = arg
	}
	return s
}

func repeatParser(p argParser, n int) []argParser {
	out := make([]argParser, n)
	for i := range out {
		out[i] = p
	}
	return out
}

func (w *workbench) showPair(v any) string {
	seg, ok := v.(*memory.Segment)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	a, err := w.heap.ReadU64(uint64(seg.Base()))
	if err != nil {
		return fmt.Sprintf("<unreadable: %v>", err)
	}
	b, err := w.heap.ReadU64(uint64(seg.Base()) + 8)
	if err != nil {
		return fmt.Sprintf("<unreadable: %v>", err)
	}
	return fmt.Sprintf("{%d, %d}", int64(a), int64(b))
}

func (w *workbench) find(name string) *demo {
	for _, d := range w.demos {
		if d.name == name {
			return d
		}
	}
	return nil
}

// call parses raw argument strings for a demo and invokes it.
func (w *workbench) call(ctx context.Context, d *demo, raw []string) (string, error) {
	if len(raw) != len(d.parsers) {
		return "", fmt.Errorf("%s takes %d arguments, got %d", d.name, len(d.parsers), len(raw))
	}
	args := make([]any, len(raw))
	for i, s := range raw {
		v, err := d.parsers[i].parse(w, strings.TrimSpace(s))
		if err != nil {
			return "", fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = v
	}
	result, err := d.callable.Call(ctx, args...)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "(void)", nil
	}
	return d.show(result), nil
}
