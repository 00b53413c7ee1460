package jsvm

import (
	"sync"

	"go.uber.org/zap"

	"github.com/embedvm/jsvm/internal/dispatch"
	"github.com/embedvm/jsvm/internal/guard"
	"github.com/embedvm/jsvm/types"
)

// Runtime is one engine instance: it owns contexts, a memory ceiling and
// the cooperative interrupt flag. Operations on one runtime never overlap;
// they are admitted to the shared pool one at a time in submission order.
type Runtime struct {
	vm     *VM
	cfg    types.RuntimeConfig
	queue  *dispatch.Serial
	guard  *guard.Guard
	logger *zap.Logger

	mu       sync.Mutex
	contexts map[*Context]struct{}
	closed   bool

	intMu     sync.Mutex
	interrupt func(cause *types.BridgeError) // set while an operation runs
}

func newRuntime(vm *VM, cfg types.RuntimeConfig) *Runtime {
	return &Runtime{
		vm:       vm,
		cfg:      cfg,
		queue:    dispatch.NewSerial(vm.pool),
		guard:    guard.New(cfg.MemoryLimitBytes.Bytes(), cfg.CheckpointIntervalOrDefault()),
		logger:   vm.logger,
		contexts: make(map[*Context]struct{}),
	}
}

// NewContext creates an execution scope (global object, module registry)
// owned by this runtime for its whole lifetime.
func (rt *Runtime) NewContext() (*Context, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return nil, types.NewRuntimeInvalid()
	}
	c := newContext(rt)
	rt.contexts[c] = struct{}{}
	rt.logger.Debug("context created", zap.Uint64("context_id", c.id))
	return c, nil
}

// Interrupt trips the interrupt flag of the operation currently running on
// this runtime, if any. The operation unwinds at the engine's next yield
// point and its caller receives a Cancelled error; queued operations are
// not affected.
func (rt *Runtime) Interrupt() {
	// invoked under the lock: releasing it first would let the interrupt
	// land after the target operation finished and the next one cleared
	// the flag, cancelling the wrong operation
	rt.intMu.Lock()
	defer rt.intMu.Unlock()
	if rt.interrupt != nil {
		rt.interrupt(types.NewCancelled("interrupted by host"))
	}
}

// MemoryHighWater returns the largest heap growth the memory guard has
// observed for any operation on this runtime.
func (rt *Runtime) MemoryHighWater() uint64 {
	return rt.guard.HighWater()
}

// Close destroys the runtime: the in-flight operation is interrupted,
// queued operations fail with RuntimeInvalid, and only then are the heap
// reference tables of all contexts released, so a release can never race
// an in-progress resolve. Close is idempotent.
func (rt *Runtime) Close() {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return
	}
	rt.closed = true
	contexts := make([]*Context, 0, len(rt.contexts))
	for c := range rt.contexts {
		contexts = append(contexts, c)
	}
	rt.mu.Unlock()

	rt.intMu.Lock()
	if rt.interrupt != nil {
		rt.interrupt(types.NewCancelled("runtime closed"))
	}
	rt.intMu.Unlock()

	rt.queue.Close(types.NewRuntimeInvalid())

	for _, c := range contexts {
		c.closed.Store(true)
		c.table.ReleaseAll()
	}
	rt.vm.removeRuntime(rt)
	rt.logger.Debug("runtime closed")
}

func (rt *Runtime) removeContext(c *Context) {
	rt.mu.Lock()
	delete(rt.contexts, c)
	rt.mu.Unlock()
}

func (rt *Runtime) isClosed() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.closed
}

func (rt *Runtime) setInterrupt(fn func(cause *types.BridgeError)) {
	rt.intMu.Lock()
	rt.interrupt = fn
	rt.intMu.Unlock()
}
