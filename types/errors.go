package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a BridgeError. Every failure crossing the boundary
// carries exactly one kind.
type ErrorKind string

const (
	// ErrorKindHandleInvalid means the handle is unknown, already released,
	// or was issued by a different context.
	ErrorKindHandleInvalid ErrorKind = "handle_invalid"
	// ErrorKindContextInvalid means the operation targeted a destroyed context.
	ErrorKindContextInvalid ErrorKind = "context_invalid"
	// ErrorKindRuntimeInvalid means the operation targeted a destroyed runtime.
	ErrorKindRuntimeInvalid ErrorKind = "runtime_invalid"
	// ErrorKindEngineException is a JavaScript-level exception thrown during
	// evaluation. Msg carries the error message, Stack the script stack trace.
	ErrorKindEngineException ErrorKind = "engine_exception"
	// ErrorKindResourceExhausted means the configured memory ceiling or the
	// engine call stack limit was breached.
	ErrorKindResourceExhausted ErrorKind = "resource_exhausted"
	// ErrorKindCancelled means the operation was interrupted by the
	// cooperative flag or a deadline.
	ErrorKindCancelled ErrorKind = "cancelled"
	// ErrorKindShuttingDown means the operation was submitted after pool
	// shutdown began.
	ErrorKindShuttingDown ErrorKind = "shutting_down"
)

// BridgeError is the classified failure object returned across the boundary.
// Native-side failures are never allowed to propagate as raw control flow;
// they all become a BridgeError at the point of the failing call.
type BridgeError struct {
	Kind  ErrorKind `json:"kind"`
	Msg   string    `json:"msg,omitempty"`
	Stack string    `json:"stack,omitempty"`
}

var _ error = (*BridgeError)(nil)

func (e *BridgeError) Error() string {
	if e == nil {
		return "(nil)"
	}
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is matches two BridgeErrors by kind, so errors.Is(err, ErrCancelled)
// works regardless of message and stack text.
func (e *BridgeError) Is(target error) bool {
	t, ok := target.(*BridgeError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is matching. Returned errors are always freshly
// constructed values carrying a message; these exist for classification only.
var (
	ErrHandleInvalid     = &BridgeError{Kind: ErrorKindHandleInvalid}
	ErrContextInvalid    = &BridgeError{Kind: ErrorKindContextInvalid}
	ErrRuntimeInvalid    = &BridgeError{Kind: ErrorKindRuntimeInvalid}
	ErrEngineException   = &BridgeError{Kind: ErrorKindEngineException}
	ErrResourceExhausted = &BridgeError{Kind: ErrorKindResourceExhausted}
	ErrCancelled         = &BridgeError{Kind: ErrorKindCancelled}
	ErrShuttingDown      = &BridgeError{Kind: ErrorKindShuttingDown}
)

// NewHandleInvalid creates a HandleInvalid error for the given handle.
func NewHandleInvalid(h Handle) *BridgeError {
	return &BridgeError{Kind: ErrorKindHandleInvalid, Msg: fmt.Sprintf("unknown or released handle %s", h)}
}

// NewContextInvalid creates a ContextInvalid error.
func NewContextInvalid() *BridgeError {
	return &BridgeError{Kind: ErrorKindContextInvalid, Msg: "context was destroyed"}
}

// NewRuntimeInvalid creates a RuntimeInvalid error.
func NewRuntimeInvalid() *BridgeError {
	return &BridgeError{Kind: ErrorKindRuntimeInvalid, Msg: "runtime was destroyed"}
}

// NewEngineException creates an EngineException with message and stack text.
func NewEngineException(msg, stack string) *BridgeError {
	return &BridgeError{Kind: ErrorKindEngineException, Msg: msg, Stack: stack}
}

// NewResourceExhausted creates a ResourceExhausted error.
func NewResourceExhausted(msg string) *BridgeError {
	return &BridgeError{Kind: ErrorKindResourceExhausted, Msg: msg}
}

// NewCancelled creates a Cancelled error.
func NewCancelled(msg string) *BridgeError {
	return &BridgeError{Kind: ErrorKindCancelled, Msg: msg}
}

// NewShuttingDown creates a ShuttingDown error.
func NewShuttingDown() *BridgeError {
	return &BridgeError{Kind: ErrorKindShuttingDown, Msg: "dispatch pool is shutting down"}
}

// AsBridgeError extracts a BridgeError from err, if it carries one.
func AsBridgeError(err error) (*BridgeError, bool) {
	var be *BridgeError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
