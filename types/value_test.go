package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueConstructors(t *testing.T) {
	assert.Equal(t, KindUndefined, Undefined().Kind)
	assert.Equal(t, KindNull, Null().Kind)

	v := NewBool(true)
	assert.Equal(t, KindBool, v.Kind)
	assert.True(t, v.Bool)

	v = NewNumber(math.Pi)
	assert.Equal(t, KindNumber, v.Kind)
	assert.Equal(t, math.Pi, v.Number)

	v = NewString("s")
	assert.Equal(t, KindString, v.Kind)
	assert.Equal(t, "s", v.Str)

	v = NewBytes([]byte{1})
	assert.Equal(t, KindBytes, v.Kind)
	assert.Equal(t, []byte{1}, v.Bytes)

	v = NewHandle(Handle(42))
	assert.Equal(t, KindHandle, v.Kind)
	assert.Equal(t, Handle(42), v.Handle)
}

func TestNullish(t *testing.T) {
	assert.True(t, Undefined().IsUndefined())
	assert.True(t, Undefined().IsNullish())
	assert.True(t, Null().IsNullish())
	assert.False(t, NewNumber(0).IsNullish())
}

func TestHandleZeroIsNil(t *testing.T) {
	assert.True(t, Handle(0).IsNil())
	assert.False(t, Handle(1).IsNil())
	assert.Equal(t, "Handle(7)", Handle(7).String())
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "undefined", Undefined().String())
	assert.Equal(t, "null", Null().String())
	assert.Equal(t, "true", NewBool(true).String())
	assert.Equal(t, "1.5", NewNumber(1.5).String())
	assert.Equal(t, `"s"`, NewString("s").String())
	assert.Equal(t, "Handle(3)", NewHandle(Handle(3)).String())
	assert.Contains(t, NewBytes([]byte{1, 2}).String(), "bytes(2)")
}

func TestValueKindString(t *testing.T) {
	assert.Equal(t, "number", KindNumber.String())
	assert.Equal(t, "handle", KindHandle.String())
	assert.Equal(t, "ValueKind(99)", ValueKind(99).String())
}
