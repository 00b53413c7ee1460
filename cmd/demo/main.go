// Demo binary that evaluates a JavaScript file from the command line and
// prints the completion value. With -n greater than one, the script runs in
// that many contexts concurrently to exercise the dispatch pool.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/embedvm/jsvm"
	"github.com/embedvm/jsvm/types"
)

const usage = "Usage: demo [-n contexts] [-mem mebibytes] [-timeout duration] <script.js>"

func main() {
	contexts := flag.Int("n", 1, "number of contexts to run the script in")
	memMebi := flag.Uint64("mem", 64, "per-runtime memory ceiling in MiB, 0 for unbounded")
	timeout := flag.Duration("timeout", 10*time.Second, "per-evaluation deadline")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
	if err := run(flag.Arg(0), *contexts, *memMebi, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(file string, contexts int, memMebi uint64, timeout time.Duration) error {
	src, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	vm, err := jsvm.NewVM(types.VMConfig{}, jsvm.WithLogger(logger))
	if err != nil {
		return err
	}
	defer vm.Close()

	rt, err := vm.NewRuntime(types.RuntimeConfig{
		MemoryLimitBytes: types.NewSizeMebi(memMebi),
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < contexts; i++ {
		i := i
		g.Go(func() error {
			c, err := rt.NewContext()
			if err != nil {
				return err
			}
			defer c.Close()

			v, err := c.Eval(ctx, string(src))
			if err != nil {
				return fmt.Errorf("context %d: %w", i, err)
			}
			out := v.String()
			if v.Kind == types.KindHandle {
				if s, err := c.JSONStringify(ctx, v); err == nil && s != "" {
					out = s
				}
			}
			fmt.Printf("context %d: %s\n", i, out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("done",
		zap.Int("contexts", contexts),
		zap.Uint64("memory_high_water", rt.MemoryHighWater()))
	return nil
}
