// Package engine is a thin façade over the embedded goja engine. It wraps
// context construction, evaluation, invocation and the cooperative
// interrupt flag, and translates engine failures into the boundary error
// taxonomy. It adds no invariants of its own.
package engine

import (
	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"

	"github.com/embedvm/jsvm/types"
)

// Config carries the per-context engine knobs. It is passed explicitly at
// construction; there is no ambient engine-wide state.
type Config struct {
	// MaxStackSize caps the engine call stack. Zero keeps the engine default.
	MaxStackSize int
	// Console receives script console output. Nil falls back to the
	// engine's default stdout printer.
	Console console.Printer
}

// Context wraps one goja runtime, which is a single JavaScript realm with
// its own global object. Engine state is not safe for concurrent mutation;
// callers must serialize all methods except Interrupt and ClearInterrupt,
// which are safe from any goroutine.
type Context struct {
	vm        *goja.Runtime
	stringify goja.Callable
}

// New creates a fresh engine context.
func New(cfg Config) *Context {
	vm := goja.New()
	if cfg.MaxStackSize > 0 {
		vm.SetMaxCallStackSize(cfg.MaxStackSize)
	}
	registry := new(require.Registry)
	registry.Enable(vm)
	if cfg.Console != nil {
		registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(cfg.Console))
	}
	console.Enable(vm)

	c := &Context{vm: vm}
	if jsonObj, ok := vm.Get("JSON").(*goja.Object); ok {
		if fn, ok := goja.AssertFunction(jsonObj.Get("stringify")); ok {
			c.stringify = fn
		}
	}
	return c
}

// Eval runs a script and returns its completion value.
func (c *Context) Eval(name, src string) (goja.Value, error) {
	return c.vm.RunScript(name, src)
}

// Call invokes fn with the given receiver and arguments.
func (c *Context) Call(fn, this goja.Value, args ...goja.Value) (goja.Value, error) {
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, types.NewEngineException("value is not a function", "")
	}
	return callable(this, args...)
}

// GetProp reads a named property. Reading from null or undefined fails the
// way the engine fails it, as an exception.
func (c *Context) GetProp(target goja.Value, name string) (v goja.Value, err error) {
	defer c.catch(&err)
	obj := target.ToObject(c.vm)
	return obj.Get(name), nil
}

// SetProp writes a named property.
func (c *Context) SetProp(target goja.Value, name string, v goja.Value) (err error) {
	defer c.catch(&err)
	obj := target.ToObject(c.vm)
	return obj.Set(name, v)
}

// GlobalObject returns the realm's global object.
func (c *Context) GlobalObject() *goja.Object {
	return c.vm.GlobalObject()
}

// NewObject creates an empty object in the realm.
func (c *Context) NewObject() *goja.Object {
	return c.vm.NewObject()
}

// NewArrayBuffer creates an ArrayBuffer owning data.
func (c *Context) NewArrayBuffer(data []byte) goja.Value {
	return c.vm.ToValue(c.vm.NewArrayBuffer(data))
}

// ToValue converts a plain Go value into an engine value.
func (c *Context) ToValue(v any) goja.Value {
	return c.vm.ToValue(v)
}

// JSONStringify serializes v with the realm's own JSON.stringify.
// Unserializable values (functions, undefined) yield an empty string.
func (c *Context) JSONStringify(v goja.Value) (string, error) {
	if c.stringify == nil {
		return "", types.NewEngineException("JSON.stringify is not available in this context", "")
	}
	res, err := c.stringify(goja.Undefined(), v)
	if err != nil {
		return "", err
	}
	if res == nil || goja.IsUndefined(res) {
		return "", nil
	}
	return res.String(), nil
}

// TypeOf reports the JavaScript typeof of v.
func (c *Context) TypeOf(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if goja.IsNull(v) {
		return "object"
	}
	if _, ok := v.(*goja.Symbol); ok {
		return "symbol"
	}
	if _, ok := goja.AssertFunction(v); ok {
		return "function"
	}
	switch v.Export().(type) {
	case bool:
		return "boolean"
	case string:
		return "string"
	case int64, float64:
		return "number"
	}
	return "object"
}

// PromiseState reports "pending", "fulfilled" or "rejected" for a promise
// value. ok is false when v is not a promise.
func (c *Context) PromiseState(v goja.Value) (state string, ok bool) {
	p, ok := c.asPromise(v)
	if !ok {
		return "", false
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return "fulfilled", true
	case goja.PromiseStateRejected:
		return "rejected", true
	default:
		return "pending", true
	}
}

// PromiseResult returns the value a settled promise fulfilled with or the
// reason it rejected with. Pending promises yield nil; ok is false when v
// is not a promise.
func (c *Context) PromiseResult(v goja.Value) (goja.Value, bool) {
	p, ok := c.asPromise(v)
	if !ok {
		return nil, false
	}
	if p.State() == goja.PromiseStatePending {
		return nil, true
	}
	return p.Result(), true
}

func (c *Context) asPromise(v goja.Value) (*goja.Promise, bool) {
	if v == nil {
		return nil, false
	}
	p, ok := v.Export().(*goja.Promise)
	return p, ok
}

// Interrupt trips the cooperative interrupt flag. The engine observes it at
// defined yield points and unwinds through its own exception path. Safe to
// call from any goroutine.
func (c *Context) Interrupt(cause *types.BridgeError) {
	c.vm.Interrupt(cause)
}

// ClearInterrupt resets the interrupt flag. Called before every operation
// so a late interrupt aimed at a finished operation cannot leak into the
// next one.
func (c *Context) ClearInterrupt() {
	c.vm.ClearInterrupt()
}

// catch converts engine panics from direct object access into ordinary
// error returns. Anything that is not an engine failure keeps panicking.
func (c *Context) catch(err *error) {
	if r := recover(); r != nil {
		switch e := r.(type) {
		case *goja.Exception:
			*err = e
		case *goja.InterruptedError:
			*err = e
		case *goja.StackOverflowError:
			*err = e
		default:
			panic(r)
		}
	}
}
