// Package jsvm bridges an embedded JavaScript engine to hosts that cannot
// hold native engine values directly. Engine values cross the boundary as
// primitives or as opaque handles backed by a per-context heap reference
// table, every failure crosses as a classified BridgeError, and all engine
// work runs on a bounded dispatch pool that executes at most one operation
// per runtime at a time.
package jsvm

import (
	"sync"

	"go.uber.org/zap"

	"github.com/embedvm/jsvm/internal/dispatch"
	"github.com/embedvm/jsvm/types"
)

// VM is the main entry point to this library. It owns the shared dispatch
// pool and the runtimes created from it.
type VM struct {
	pool   *dispatch.Pool
	logger *zap.Logger

	mu       sync.Mutex
	runtimes map[*Runtime]struct{}
	closed   bool
}

// Option configures a VM.
type Option func(*VM)

// WithLogger attaches a structured logger. The default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(vm *VM) {
		if logger != nil {
			vm.logger = logger
		}
	}
}

// NewVM creates a bridge with a fixed-size dispatch pool. The pool size
// cannot be changed afterwards.
func NewVM(cfg types.VMConfig, opts ...Option) (*VM, error) {
	vm := &VM{
		logger:   zap.NewNop(),
		runtimes: make(map[*Runtime]struct{}),
	}
	for _, opt := range opts {
		opt(vm)
	}
	size := cfg.PoolSizeOrDefault()
	vm.pool = dispatch.NewPool(size)
	vm.logger.Info("bridge started", zap.Int("pool_size", size))
	return vm, nil
}

// Close destroys every runtime, then shuts the pool down: queued
// submissions fail with ShuttingDown and all executor goroutines are
// joined before Close returns. Close is idempotent.
func (vm *VM) Close() {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return
	}
	vm.closed = true
	runtimes := make([]*Runtime, 0, len(vm.runtimes))
	for rt := range vm.runtimes {
		runtimes = append(runtimes, rt)
	}
	vm.mu.Unlock()

	for _, rt := range runtimes {
		rt.Close()
	}
	vm.pool.Close()
	vm.logger.Info("bridge stopped")
}

// NewRuntime creates an engine runtime with its own limits. Configuration
// is scoped to the runtime; nothing is shared across runtimes.
func (vm *VM) NewRuntime(cfg types.RuntimeConfig) (*Runtime, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return nil, types.NewShuttingDown()
	}
	rt := newRuntime(vm, cfg)
	vm.runtimes[rt] = struct{}{}
	vm.logger.Debug("runtime created",
		zap.Uint64("memory_limit_bytes", cfg.MemoryLimitBytes.Bytes()))
	return rt, nil
}

func (vm *VM) removeRuntime(rt *Runtime) {
	vm.mu.Lock()
	delete(vm.runtimes, rt)
	vm.mu.Unlock()
}
