// Package marshal converts between native engine values and the boundary's
// tagged-union representation. Primitives cross by value, strings and byte
// buffers cross as copies, and everything object-like crosses as a handle
// registered in the context's heap reference table.
package marshal

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/embedvm/jsvm/internal/engine"
	"github.com/embedvm/jsvm/internal/heap"
	"github.com/embedvm/jsvm/types"
)

// FromNative inspects the native value's runtime type and produces the
// corresponding boundary value. Object-like values (objects, functions,
// errors, arrays, promises, symbols) are registered as new handles.
func FromNative(eng *engine.Context, table *heap.Table, v goja.Value) (types.Value, error) {
	if v == nil || goja.IsUndefined(v) {
		return types.Undefined(), nil
	}
	if goja.IsNull(v) {
		return types.Null(), nil
	}
	switch ex := v.Export().(type) {
	case bool:
		return types.NewBool(ex), nil
	case string:
		return types.NewString(ex), nil
	case int64:
		return types.NewNumber(float64(ex)), nil
	case float64:
		return types.NewNumber(ex), nil
	case goja.ArrayBuffer:
		// Copied, not aliased: the host copy must stay valid after the
		// engine reclaims or mutates the buffer.
		return types.NewBytes(append([]byte(nil), ex.Bytes()...)), nil
	case []byte:
		// Uint8Array and Uint8ClampedArray export as slices sharing the
		// underlying buffer.
		return types.NewBytes(append([]byte(nil), ex...)), nil
	case []int8, []int16, []uint16, []int32, []uint32, []int64, []uint64, []float32, []float64:
		// The other typed-array views export as element slices. Copy the
		// byte range the view covers, not the whole backing buffer. Plain
		// Go slices injected by the host export the same way but have no
		// backing buffer and stay handles.
		if b, ok := viewedBytes(v); ok {
			return types.NewBytes(b), nil
		}
	}
	h, err := table.Register(v)
	if err != nil {
		return types.Undefined(), err
	}
	return types.NewHandle(h), nil
}

// ToNative converts a boundary value into a native value inside the given
// context. Handle inputs resolve through the heap reference table and fail
// with HandleInvalid when the entry is gone.
func ToNative(eng *engine.Context, table *heap.Table, mv types.Value) (goja.Value, error) {
	switch mv.Kind {
	case types.KindUndefined:
		return goja.Undefined(), nil
	case types.KindNull:
		return goja.Null(), nil
	case types.KindBool:
		return eng.ToValue(mv.Bool), nil
	case types.KindNumber:
		return eng.ToValue(mv.Number), nil
	case types.KindString:
		return eng.ToValue(mv.Str), nil
	case types.KindBytes:
		return eng.NewArrayBuffer(append([]byte(nil), mv.Bytes...)), nil
	case types.KindHandle:
		return table.Resolve(mv.Handle)
	default:
		return nil, types.NewEngineException(fmt.Sprintf("unsupported value kind %s", mv.Kind), "")
	}
}

// viewedBytes copies the byte range a typed-array view covers out of its
// backing buffer. ok is false when v is not backed by an ArrayBuffer.
func viewedBytes(v goja.Value) ([]byte, bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	buf := obj.Get("buffer")
	if buf == nil {
		return nil, false
	}
	ab, ok := buf.Export().(goja.ArrayBuffer)
	if !ok {
		return nil, false
	}
	off := obj.Get("byteOffset")
	length := obj.Get("byteLength")
	if off == nil || length == nil {
		return nil, false
	}
	lo, n := int(off.ToInteger()), int(length.ToInteger())
	data := ab.Bytes()
	if lo < 0 || n < 0 || lo+n > len(data) {
		return nil, false
	}
	return append([]byte(nil), data[lo:lo+n]...), true
}

// ToNativeAll converts a slice of boundary values, failing on the first
// invalid element.
func ToNativeAll(eng *engine.Context, table *heap.Table, mvs []types.Value) ([]goja.Value, error) {
	out := make([]goja.Value, len(mvs))
	for i, mv := range mvs {
		v, err := ToNative(eng, table, mv)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
