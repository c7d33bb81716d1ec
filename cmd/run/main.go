package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/gc-runtime/gcstack"
	"github.com/wippyai/gc-runtime/native"
	"github.com/wippyai/gc-runtime/native/wazerort"
	"github.com/wippyai/gc-runtime/session"
	"github.com/wippyai/gc-runtime/taskpool"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to guest wasm file")
		funcName    = flag.String("func", "", "Guest function to call")
		argsStr     = flag.String("args", "", "Pointer-word arguments (comma-separated integers, 0x prefix ok)")
		stackSlots  = flag.Int("stack-slots", session.DefaultStackSlots, "Shadow-stack page size in slots")
		tasks       = flag.Int("tasks", 0, "Run the call as N concurrent pool tasks")
		stacks      = flag.Int("stacks", taskpool.DefaultStacks, "Task stack cap for -tasks mode")
		list        = flag.Bool("list", false, "List exported guest functions and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging to stderr")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -wasm <file.wasm> [-func name] [-args 1,2,3]")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -func name -tasks 8")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync() //nolint:errcheck
		session.SetLogger(logger)
		taskpool.SetLogger(logger)
		wazerort.SetLogger(logger)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*wasmFile, *stackSlots); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*wasmFile, *funcName, *argsStr, *stackSlots, *tasks, *stacks, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type funcInfo struct {
	name    string
	params  int
	results int
}

func (f funcInfo) String() string {
	params := make([]string, f.params)
	for i := range params {
		params[i] = fmt.Sprintf("arg%d: i64", i)
	}
	result := ""
	if f.results > 0 {
		result = " -> i64"
	}
	return fmt.Sprintf("%s(%s)%s", f.name, strings.Join(params, ", "), result)
}

// listExports compiles the guest without instantiating it, to read the
// export surface.
func listExports(ctx context.Context, data []byte) ([]funcInfo, error) {
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx) //nolint:errcheck

	compiled, err := rt.CompileModule(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("compile guest: %w", err)
	}
	defer compiled.Close(ctx) //nolint:errcheck

	var funcs []funcInfo
	for name, def := range compiled.ExportedFunctions() {
		funcs = append(funcs, funcInfo{
			name:    name,
			params:  len(def.ParamTypes()),
			results: len(def.ResultTypes()),
		})
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].name < funcs[j].name })
	return funcs, nil
}

func parseArgs(argsStr string) ([]gcstack.Handle, error) {
	if argsStr == "" {
		return nil, nil
	}
	var handles []gcstack.Handle
	for _, s := range strings.Split(argsStr, ",") {
		w, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", s, err)
		}
		h, err := gcstack.Unrooted{}.Root(native.Ptr(w))
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

func run(wasmFile, funcName, argsStr string, stackSlots, tasks, stacks int, listOnly bool) error {
	ctx := context.Background()

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	funcs, err := listExports(ctx, data)
	if err != nil {
		return err
	}

	fmt.Printf("Guest: %s (%d bytes)\n\nExported functions:\n", wasmFile, len(data))
	for _, f := range funcs {
		fmt.Printf("  %s\n", f)
	}
	if listOnly {
		return nil
	}

	if funcName == "" {
		fmt.Printf("\nNo function specified; use -func to call one.\n")
		return nil
	}

	args, err := parseArgs(argsStr)
	if err != nil {
		return err
	}

	backend := wazerort.New(wazerort.Config{Guest: data})
	if tasks > 0 {
		return runPooled(ctx, backend, funcName, args, tasks, stacks, stackSlots)
	}

	sess, err := session.New(ctx, backend, session.WithStackSlots(stackSlots))
	if err != nil {
		return err
	}
	defer sess.Close(ctx) //nolint:errcheck

	fmt.Printf("\nCalling %s...\n", funcName)
	return sess.Scope(ctx, func(frame *gcstack.Frame) error {
		h, err := gcstack.Call(ctx, sess.Runtime(), frame, funcName, args...)
		if err != nil {
			if exc, ok := err.(*gcstack.Exception); ok {
				fmt.Printf("Guest threw: %s\n", exc.Value)
				return nil
			}
			return err
		}

		fmt.Printf("Result: %s\n", h)
		for _, info := range sess.StackSnapshot() {
			fmt.Printf("  frame depth=%d roots=%d/%d\n", info.Depth, info.NRoots, info.Capacity)
		}
		return nil
	})
}

// runPooled fans the same call out over pool tasks.
func runPooled(ctx context.Context, backend *wazerort.Runtime, funcName string, args []gcstack.Handle, tasks, stacks, stackSlots int) error {
	pool, err := taskpool.New(ctx, backend, taskpool.Config{
		Stacks:     stacks,
		StackSlots: stackSlots,
	})
	if err != nil {
		return err
	}
	defer pool.Close(ctx) //nolint:errcheck

	fmt.Printf("\nCalling %s from %d tasks (%d stacks)...\n", funcName, tasks, stacks)

	results := make([]<-chan error, tasks)
	for i := 0; i < tasks; i++ {
		i := i
		results[i] = pool.Spawn(ctx, func(t *taskpool.Task) error {
			h, err := t.Call(ctx, funcName, args...)
			if err != nil {
				return err
			}
			fmt.Printf("  task %d: %s\n", i, h)
			return nil
		})
	}

	var firstErr error
	for i, ch := range results {
		if err := <-ch; err != nil {
			fmt.Printf("  task %d failed: %v\n", i, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	s := pool.Stats()
	fmt.Printf("Pool: %d/%d stacks created, %d free\n", s.Created, s.Stacks, s.Free)
	return firstErr
}
