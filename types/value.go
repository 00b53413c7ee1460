// Package types provides the boundary types shared between the host-facing
// API and the bridge internals: marshalled values, handles, configuration
// and the error taxonomy.
package types

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

// Handle is an opaque, boundary-visible identifier for one entry in a
// context's heap reference table. A handle is valid only for the context
// that issued it. The zero handle is never issued.
type Handle uint64

// IsNil reports whether the handle is the never-issued zero value.
func (h Handle) IsNil() bool { return h == 0 }

func (h Handle) String() string { return fmt.Sprintf("Handle(%d)", uint64(h)) }

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	KindUndefined ValueKind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindBytes
	KindHandle
)

func (k ValueKind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindHandle:
		return "handle"
	default:
		return fmt.Sprintf("ValueKind(%d)", uint8(k))
	}
}

// Value is the tagged union crossing the boundary. Exactly the field
// selected by Kind is meaningful. Object-like engine values never cross as
// pointers; they cross as KindHandle. Strings and byte buffers are copies
// with lifetimes independent of the engine side.
type Value struct {
	Kind   ValueKind `json:"kind"`
	Bool   bool      `json:"bool,omitempty"`
	Number float64   `json:"number,omitempty"`
	Str    string    `json:"str,omitempty"`
	Bytes  []byte    `json:"bytes,omitempty"`
	Handle Handle    `json:"handle,omitempty"`
}

// Undefined returns the undefined value.
func Undefined() Value { return Value{Kind: KindUndefined} }

// Null returns the null value.
func Null() Value { return Value{Kind: KindNull} }

// NewBool wraps a boolean.
func NewBool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// NewNumber wraps an IEEE-754 double. NaN and signed zero are preserved
// across the boundary.
func NewNumber(f float64) Value { return Value{Kind: KindNumber, Number: f} }

// NewString wraps a string. Go strings are immutable, so no further copy is
// needed to keep the host side independent of the engine side.
func NewString(s string) Value { return Value{Kind: KindString, Str: s} }

// NewBytes wraps a byte buffer. The slice is owned by the Value; callers
// must not mutate it afterwards.
func NewBytes(b []byte) Value { return Value{Kind: KindBytes, Bytes: b} }

// NewHandle wraps a handle reference.
func NewHandle(h Handle) Value { return Value{Kind: KindHandle, Handle: h} }

// IsUndefined reports whether the value is undefined.
func (v Value) IsUndefined() bool { return v.Kind == KindUndefined }

// IsNullish reports whether the value is null or undefined.
func (v Value) IsNullish() bool { return v.Kind == KindUndefined || v.Kind == KindNull }

func (v Value) String() string {
	switch v.Kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.Str)
	case KindBytes:
		return fmt.Sprintf("bytes(%d) %s", len(v.Bytes), base64.StdEncoding.EncodeToString(v.Bytes))
	case KindHandle:
		return v.Handle.String()
	default:
		return fmt.Sprintf("Value{kind=%d}", uint8(v.Kind))
	}
}
