package engine

import (
	"github.com/dop251/goja"

	"github.com/embedvm/jsvm/types"
)

// Translate classifies a failed engine call into a BridgeError. It is
// called at the point of the failing call; goja reports pending exceptions
// as the returned error and leaves no exception state behind, so
// translation also serves as the clear step. A nil error translates to nil.
func Translate(err error) *types.BridgeError {
	if err == nil {
		return nil
	}
	if be, ok := types.AsBridgeError(err); ok {
		return be
	}
	switch e := err.(type) {
	case *goja.StackOverflowError:
		return types.NewResourceExhausted("engine call stack exceeded")
	case *goja.InterruptedError:
		return translateInterrupt(e)
	case *goja.Exception:
		msg, stack := describeException(e)
		return types.NewEngineException(msg, stack)
	}
	return types.NewEngineException(err.Error(), "")
}

// translateInterrupt recovers the cause handed to Interrupt. The memory
// guard interrupts with a ResourceExhausted cause, deadlines and host
// cancellation with a Cancelled one.
func translateInterrupt(e *goja.InterruptedError) *types.BridgeError {
	switch v := e.Value().(type) {
	case *types.BridgeError:
		return v
	case error:
		return types.NewCancelled(v.Error())
	case string:
		return types.NewCancelled(v)
	default:
		return types.NewCancelled("operation interrupted")
	}
}

// describeException pulls message and stack text from a thrown value.
// Error objects carry both as ordinary properties; for anything else the
// thrown value itself is the message and the engine rendering supplies the
// stack.
func describeException(exc *goja.Exception) (msg, stack string) {
	v := exc.Value()
	if obj, ok := v.(*goja.Object); ok {
		if m := obj.Get("message"); m != nil && !goja.IsUndefined(m) {
			msg = m.String()
		}
		if s := obj.Get("stack"); s != nil && !goja.IsUndefined(s) {
			stack = s.String()
		}
	}
	if msg == "" && v != nil {
		msg = v.String()
	}
	if stack == "" {
		stack = exc.String()
	}
	return msg, stack
}
