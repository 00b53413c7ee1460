package jsvm

import (
	"context"

	"github.com/embedvm/jsvm/internal/dispatch"
	"github.com/embedvm/jsvm/types"
)

// Boundary types re-exported for callers that only import the root package.
type (
	// Value is the tagged union crossing the boundary.
	Value = types.Value
	// Handle is an opaque reference to an engine value held by a context.
	Handle = types.Handle
	// BridgeError is the classified failure object.
	BridgeError = types.BridgeError
	// VMConfig configures the bridge as a whole.
	VMConfig = types.VMConfig
	// RuntimeConfig configures one runtime.
	RuntimeConfig = types.RuntimeConfig
)

// Future is the asynchronous completion token returned by the ...Async
// operation variants.
type Future struct {
	inner *dispatch.Future
}

// Done is closed when the result is available.
func (f *Future) Done() <-chan struct{} {
	return f.inner.Done()
}

// Wait blocks until the result is available or ctx ends.
func (f *Future) Wait(ctx context.Context) (types.Value, error) {
	return f.inner.Wait(ctx)
}
