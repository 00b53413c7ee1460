package dispatch

import (
	"context"
	"sync"

	"github.com/embedvm/jsvm/types"
)

// Future carries the eventual result of a submitted operation. Callers may
// block on Wait or select on Done, so both blocking and asynchronous host
// call conventions are supported.
type Future struct {
	once sync.Once
	done chan struct{}
	val  types.Value
	err  error
}

// NewFuture creates an incomplete future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Complete resolves the future exactly once; later calls are ignored.
func (f *Future) Complete(val types.Value, err error) {
	f.once.Do(func() {
		f.val = val
		f.err = err
		close(f.done)
	})
}

// Done is closed when the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx ends. Abandoning the
// wait does not stop the operation; it completes (or is interrupted by its
// own watcher) independently.
func (f *Future) Wait(ctx context.Context) (types.Value, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return types.Undefined(), types.NewCancelled(ctx.Err().Error())
	}
}
