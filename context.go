package jsvm

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/embedvm/jsvm/internal/dispatch"
	"github.com/embedvm/jsvm/internal/engine"
	"github.com/embedvm/jsvm/internal/guard"
	"github.com/embedvm/jsvm/internal/heap"
	"github.com/embedvm/jsvm/internal/marshal"
	"github.com/embedvm/jsvm/types"
)

var nextContextID atomic.Uint64

// Context is an execution scope within a Runtime. Every operation takes a
// context.Context whose cancellation or deadline trips the engine's
// cooperative interrupt flag, and returns either a well-typed value or a
// BridgeError, never a raw engine fault.
type Context struct {
	rt     *Runtime
	id     uint64
	eng    *engine.Context
	table  *heap.Table
	closed atomic.Bool
}

func newContext(rt *Runtime) *Context {
	printer := &consolePrinter{
		logger: rt.logger.With(zap.String("source", "console")),
		limit:  rt.cfg.LogTruncateOrDefault(),
	}
	return &Context{
		rt: rt,
		id: nextContextID.Add(1),
		eng: engine.New(engine.Config{
			MaxStackSize: rt.cfg.MaxStackSize,
			Console:      printer,
		}),
		table: heap.NewTable(),
	}
}

// Eval evaluates a script and returns its completion value, blocking until
// the operation leaves the dispatch pool.
func (c *Context) Eval(ctx context.Context, src string) (types.Value, error) {
	return c.run(ctx, func() (types.Value, error) {
		v, err := c.eng.Eval("<eval>", src)
		if err != nil {
			return types.Undefined(), err
		}
		return marshal.FromNative(c.eng, c.table, v)
	})
}

// EvalAsync is Eval in asynchronous mode: it returns immediately with a
// Future for the completion value.
func (c *Context) EvalAsync(ctx context.Context, src string) (*Future, error) {
	fut, err := c.submit(ctx, func() (types.Value, error) {
		v, err := c.eng.Eval("<eval>", src)
		if err != nil {
			return types.Undefined(), err
		}
		return marshal.FromNative(c.eng, c.table, v)
	})
	if err != nil {
		return nil, err
	}
	return &Future{inner: fut}, nil
}

// Call invokes the function referenced by fn with the given receiver and
// arguments.
func (c *Context) Call(ctx context.Context, fn types.Value, this types.Value, args ...types.Value) (types.Value, error) {
	return c.run(ctx, func() (types.Value, error) {
		fnVal, err := marshal.ToNative(c.eng, c.table, fn)
		if err != nil {
			return types.Undefined(), err
		}
		thisVal, err := marshal.ToNative(c.eng, c.table, this)
		if err != nil {
			return types.Undefined(), err
		}
		argVals, err := marshal.ToNativeAll(c.eng, c.table, args)
		if err != nil {
			return types.Undefined(), err
		}
		res, err := c.eng.Call(fnVal, thisVal, argVals...)
		if err != nil {
			return types.Undefined(), err
		}
		return marshal.FromNative(c.eng, c.table, res)
	})
}

// Global returns a handle to the context's global object.
func (c *Context) Global(ctx context.Context) (types.Value, error) {
	return c.run(ctx, func() (types.Value, error) {
		return marshal.FromNative(c.eng, c.table, c.eng.GlobalObject())
	})
}

// NewObject creates an empty object and returns its handle.
func (c *Context) NewObject(ctx context.Context) (types.Value, error) {
	return c.run(ctx, func() (types.Value, error) {
		return marshal.FromNative(c.eng, c.table, c.eng.NewObject())
	})
}

// GetProp reads a named property from the value referenced by target.
func (c *Context) GetProp(ctx context.Context, target types.Value, name string) (types.Value, error) {
	return c.run(ctx, func() (types.Value, error) {
		obj, err := marshal.ToNative(c.eng, c.table, target)
		if err != nil {
			return types.Undefined(), err
		}
		v, err := c.eng.GetProp(obj, name)
		if err != nil {
			return types.Undefined(), err
		}
		return marshal.FromNative(c.eng, c.table, v)
	})
}

// SetProp writes a named property on the value referenced by target.
func (c *Context) SetProp(ctx context.Context, target types.Value, name string, val types.Value) error {
	_, err := c.run(ctx, func() (types.Value, error) {
		obj, err := marshal.ToNative(c.eng, c.table, target)
		if err != nil {
			return types.Undefined(), err
		}
		v, err := marshal.ToNative(c.eng, c.table, val)
		if err != nil {
			return types.Undefined(), err
		}
		return types.Undefined(), c.eng.SetProp(obj, name, v)
	})
	return err
}

// TypeOf reports the JavaScript typeof of the given value.
func (c *Context) TypeOf(ctx context.Context, val types.Value) (string, error) {
	res, err := c.run(ctx, func() (types.Value, error) {
		v, err := marshal.ToNative(c.eng, c.table, val)
		if err != nil {
			return types.Undefined(), err
		}
		return types.NewString(c.eng.TypeOf(v)), nil
	})
	if err != nil {
		return "", err
	}
	return res.Str, nil
}

// JSONStringify serializes the given value with the context's own
// JSON.stringify. Unserializable values yield an empty string.
func (c *Context) JSONStringify(ctx context.Context, val types.Value) (string, error) {
	res, err := c.run(ctx, func() (types.Value, error) {
		v, err := marshal.ToNative(c.eng, c.table, val)
		if err != nil {
			return types.Undefined(), err
		}
		s, err := c.eng.JSONStringify(v)
		if err != nil {
			return types.Undefined(), err
		}
		return types.NewString(s), nil
	})
	if err != nil {
		return "", err
	}
	return res.Str, nil
}

// PromiseState reports the settlement state of the promise referenced by
// val: "pending", "fulfilled" or "rejected". The engine runs microtasks to
// completion inside each operation, so promises settled by script code are
// already settled when the submitting call returns.
func (c *Context) PromiseState(ctx context.Context, val types.Value) (string, error) {
	res, err := c.run(ctx, func() (types.Value, error) {
		v, err := marshal.ToNative(c.eng, c.table, val)
		if err != nil {
			return types.Undefined(), err
		}
		state, ok := c.eng.PromiseState(v)
		if !ok {
			return types.Undefined(), types.NewEngineException("value is not a promise", "")
		}
		return types.NewString(state), nil
	})
	if err != nil {
		return "", err
	}
	return res.Str, nil
}

// PromiseResult returns the value a fulfilled promise settled with or the
// reason a rejected one carries. A pending promise yields undefined.
func (c *Context) PromiseResult(ctx context.Context, val types.Value) (types.Value, error) {
	return c.run(ctx, func() (types.Value, error) {
		v, err := marshal.ToNative(c.eng, c.table, val)
		if err != nil {
			return types.Undefined(), err
		}
		res, ok := c.eng.PromiseResult(v)
		if !ok {
			return types.Undefined(), types.NewEngineException("value is not a promise", "")
		}
		return marshal.FromNative(c.eng, c.table, res)
	})
}

// Release drops the strong reference held for h. A second release of the
// same handle is a no-op success: host finalizers may run more than once.
func (c *Context) Release(h types.Handle) {
	c.table.Release(h)
}

// HandleCount returns the number of outstanding handles.
func (c *Context) HandleCount() int {
	return c.table.Len()
}

// Close destroys the context. In-flight operations finish first, then
// every outstanding handle is released, so a release never races an
// in-progress resolve. Close is idempotent.
func (c *Context) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	fut := dispatch.NewFuture()
	release := func() {
		c.table.ReleaseAll()
		fut.Complete(types.Undefined(), nil)
	}
	job := dispatch.NewJob(release, func(error) { release() })
	if err := c.rt.queue.Submit(job); err != nil {
		// queue already closed, nothing can be running
		c.table.ReleaseAll()
	} else {
		<-fut.Done()
	}
	c.rt.removeContext(c)
	c.rt.logger.Debug("context closed", zap.Uint64("context_id", c.id))
}

// run submits fn and blocks for its result.
func (c *Context) run(ctx context.Context, fn func() (types.Value, error)) (types.Value, error) {
	fut, err := c.submit(ctx, fn)
	if err != nil {
		return types.Undefined(), err
	}
	return fut.Wait(ctx)
}

// submit queues fn on the runtime's serial queue and returns its future.
func (c *Context) submit(ctx context.Context, fn func() (types.Value, error)) (*dispatch.Future, error) {
	if c.closed.Load() {
		return nil, types.NewContextInvalid()
	}
	if c.rt.isClosed() {
		return nil, types.NewRuntimeInvalid()
	}
	fut := dispatch.NewFuture()
	job := dispatch.NewJob(
		func() { fut.Complete(c.invoke(ctx, fn)) },
		func(err error) { fut.Complete(types.Undefined(), err) },
	)
	if err := c.rt.queue.Submit(job); err != nil {
		return nil, err
	}
	return fut, nil
}

// invoke runs one engine operation on a pool worker with the cancellation
// watcher and the memory guard armed.
func (c *Context) invoke(ctx context.Context, fn func() (types.Value, error)) (types.Value, error) {
	if c.closed.Load() {
		return types.Undefined(), types.NewContextInvalid()
	}
	if err := ctx.Err(); err != nil {
		return types.Undefined(), types.NewCancelled(err.Error())
	}

	// a late interrupt aimed at the previous operation must not leak in
	c.eng.ClearInterrupt()

	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.eng.Interrupt(types.NewCancelled(ctx.Err().Error()))
		case <-watchDone:
		}
	}()
	stopGuard := c.rt.guard.Watch(c.eng.Interrupt)
	c.rt.setInterrupt(c.eng.Interrupt)

	v, err := fn()

	c.rt.setInterrupt(nil)
	stopGuard()
	close(watchDone)

	if err != nil {
		// copy before truncating so classification sentinels stay pristine
		be := *engine.Translate(err)
		limit := c.rt.cfg.LogTruncateOrDefault()
		be.Msg = guard.TruncateLog(be.Msg, limit)
		be.Stack = guard.TruncateLog(be.Stack, limit)
		return types.Undefined(), &be
	}
	return v, nil
}

// consolePrinter feeds script console output through the log truncation
// ceiling into the structured logger.
type consolePrinter struct {
	logger *zap.Logger
	limit  int
}

func (p *consolePrinter) Log(s string) {
	p.logger.Info(guard.TruncateLog(s, p.limit))
}

func (p *consolePrinter) Warn(s string) {
	p.logger.Warn(guard.TruncateLog(s, p.limit))
}

func (p *consolePrinter) Error(s string) {
	p.logger.Error(guard.TruncateLog(s, p.limit))
}
