package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/wippyai/ffi-engine/invoker"
)

func main() {
	var (
		arch        = flag.String("arch", "sysv", "Target descriptor (sysv or aapcs64)")
		fnName      = flag.String("fn", "", "Demo function to call")
		argList     = flag.String("args", "", "Comma-separated arguments")
		list        = flag.Bool("list", false, "List demo functions and exit")
		dumpLayout  = flag.Bool("dump-layout", false, "Print the staging buffer layout and exit")
		noSpec      = flag.Bool("no-spec", false, "Disable the specialized execution path")
		debug       = flag.Bool("debug", false, "Log staging buffers around each downcall")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if err := run(*arch, *fnName, *argList, *list, *dumpLayout, *noSpec, *debug, *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(arch, fnName, argList string, list, dumpLayout, noSpec, debug, interactive bool) error {
	w, err := newWorkbench(arch, noSpec, debug)
	if err != nil {
		return err
	}

	if dumpLayout {
		l := invoker.LayoutOf(w.desc)
		fmt.Printf("Descriptor: %s\n", w.desc.Arch)
		fmt.Printf("Buffer size: %d bytes\n\n", l.Size)
		fmt.Print(l.Dump(w.desc, make([]byte, l.Size)))
		return nil
	}

	if list {
		fmt.Printf("Demo functions (%s):\n", w.desc.Arch)
		for _, d := range w.demos {
			fmt.Printf("  %-40s [%s]\n", d.signature, d.callable.Strategy())
		}
		return nil
	}

	if interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		return runInteractive(w)
	}

	if fnName == "" {
		fmt.Fprintln(os.Stderr, "Usage: ffi-run -fn <name> -args <a,b,...> [-arch sysv|aapcs64]")
		fmt.Fprintln(os.Stderr, "       ffi-run -list")
		fmt.Fprintln(os.Stderr, "       ffi-run -dump-layout")
		fmt.Fprintln(os.Stderr, "       ffi-run -i  (interactive mode)")
		os.Exit(1)
	}

	d := w.find(fnName)
	if d == nil {
		return fmt.Errorf("no demo function %q (use -list)", fnName)
	}

	var raw []string
	if argList != "" {
		raw = strings.Split(argList, ",")
	}

	fmt.Printf("Calling %s via %s strategy...\n", d.name, d.callable.Strategy())
	out, err := w.call(context.Background(), d, raw)
	if err != nil {
		return err
	}
	fmt.Printf("Result: %s\n", out)
	return nil
}
