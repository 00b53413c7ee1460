package marshal

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/embedvm/jsvm/internal/engine"
	"github.com/embedvm/jsvm/internal/heap"
	"github.com/embedvm/jsvm/types"
)

func newTestContext() (*engine.Context, *heap.Table) {
	return engine.New(engine.Config{}), heap.NewTable()
}

func TestPrimitiveRoundTrips(t *testing.T) {
	eng, table := newTestContext()

	cases := []types.Value{
		types.Undefined(),
		types.Null(),
		types.NewBool(true),
		types.NewBool(false),
		types.NewNumber(0),
		types.NewNumber(-1.5),
		types.NewNumber(math.MaxFloat64),
		types.NewString(""),
		types.NewString("héllo wörld"),
	}
	for _, in := range cases {
		native, err := ToNative(eng, table, in)
		require.NoError(t, err, in.String())
		out, err := FromNative(eng, table, native)
		require.NoError(t, err, in.String())
		assert.Equal(t, in, out, in.String())
	}
}

func TestNumberPreservesNaN(t *testing.T) {
	eng, table := newTestContext()

	native, err := ToNative(eng, table, types.NewNumber(math.NaN()))
	require.NoError(t, err)
	out, err := FromNative(eng, table, native)
	require.NoError(t, err)
	require.Equal(t, types.KindNumber, out.Kind)
	assert.True(t, math.IsNaN(out.Number))
}

func TestNumberPreservesSignedZero(t *testing.T) {
	eng, table := newTestContext()

	native, err := ToNative(eng, table, types.NewNumber(math.Copysign(0, -1)))
	require.NoError(t, err)
	out, err := FromNative(eng, table, native)
	require.NoError(t, err)
	require.Equal(t, types.KindNumber, out.Kind)
	assert.True(t, math.Signbit(out.Number), "negative zero lost its sign")
}

func TestBytesAreCopiedIn(t *testing.T) {
	eng, table := newTestContext()

	buf := []byte{1, 2, 3}
	native, err := ToNative(eng, table, types.NewBytes(buf))
	require.NoError(t, err)

	// mutating the host copy must not leak into the engine copy
	buf[0] = 9
	out, err := FromNative(eng, table, native)
	require.NoError(t, err)
	require.Equal(t, types.KindBytes, out.Kind)
	assert.Equal(t, []byte{1, 2, 3}, out.Bytes)
}

func TestBytesAreCopiedOut(t *testing.T) {
	eng, table := newTestContext()

	v, err := eng.Eval("test.js", "globalThis.arr = new Uint8Array([10, 20, 30]); arr")
	require.NoError(t, err)

	first, err := FromNative(eng, table, v)
	require.NoError(t, err)
	require.Equal(t, types.KindBytes, first.Kind)

	// two crossings produce independent host copies
	second, err := FromNative(eng, table, v)
	require.NoError(t, err)
	first.Bytes[0] = 99
	assert.Equal(t, []byte{10, 20, 30}, second.Bytes)
}

func TestTypedArraysMarshalToBytes(t *testing.T) {
	eng, table := newTestContext()

	v, err := eng.Eval("test.js", "new Int32Array([1, -2, 3])")
	require.NoError(t, err)
	out, err := FromNative(eng, table, v)
	require.NoError(t, err)
	require.Equal(t, types.KindBytes, out.Kind)
	require.Len(t, out.Bytes, 12)
	assert.Equal(t, int32(1), int32(binary.NativeEndian.Uint32(out.Bytes[0:4])))
	assert.Equal(t, int32(-2), int32(binary.NativeEndian.Uint32(out.Bytes[4:8])))
	assert.Equal(t, int32(3), int32(binary.NativeEndian.Uint32(out.Bytes[8:12])))

	v, err = eng.Eval("test.js", "new Float64Array([1.5, -0.25])")
	require.NoError(t, err)
	out, err = FromNative(eng, table, v)
	require.NoError(t, err)
	require.Equal(t, types.KindBytes, out.Kind)
	require.Len(t, out.Bytes, 16)
	assert.Equal(t, 1.5, math.Float64frombits(binary.NativeEndian.Uint64(out.Bytes[0:8])))
	assert.Equal(t, -0.25, math.Float64frombits(binary.NativeEndian.Uint64(out.Bytes[8:16])))
}

func TestTypedArrayViewCopiesOnlyItsRange(t *testing.T) {
	eng, table := newTestContext()

	v, err := eng.Eval("test.js", "new Int32Array([1, 2, 3, 4]).subarray(1, 3)")
	require.NoError(t, err)
	out, err := FromNative(eng, table, v)
	require.NoError(t, err)
	require.Equal(t, types.KindBytes, out.Kind)
	require.Len(t, out.Bytes, 8)
	assert.Equal(t, int32(2), int32(binary.NativeEndian.Uint32(out.Bytes[0:4])))
	assert.Equal(t, int32(3), int32(binary.NativeEndian.Uint32(out.Bytes[4:8])))
}

func TestHostSlicesStayHandles(t *testing.T) {
	eng, table := newTestContext()

	// a Go slice wrapped by the engine has no backing ArrayBuffer
	out, err := FromNative(eng, table, eng.ToValue([]int32{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, types.KindHandle, out.Kind)
}

func TestArrayBufferMarshalsToBytes(t *testing.T) {
	eng, table := newTestContext()

	v, err := eng.Eval("test.js", "new Uint8Array([1, 2, 3, 4]).buffer")
	require.NoError(t, err)

	out, err := FromNative(eng, table, v)
	require.NoError(t, err)
	require.Equal(t, types.KindBytes, out.Kind)
	assert.Equal(t, []byte{1, 2, 3, 4}, out.Bytes)
}

func TestObjectsBecomeHandles(t *testing.T) {
	eng, table := newTestContext()

	for _, src := range []string{"({})", "[1, 2]", "(function () {})", "new Error('e')"} {
		v, err := eng.Eval("test.js", src)
		require.NoError(t, err, src)

		out, err := FromNative(eng, table, v)
		require.NoError(t, err, src)
		require.Equal(t, types.KindHandle, out.Kind, src)
		require.False(t, out.Handle.IsNil(), src)

		resolved, err := table.Resolve(out.Handle)
		require.NoError(t, err, src)
		assert.Equal(t, v, resolved, src)
	}
}

func TestHandleRoundTrip(t *testing.T) {
	eng, table := newTestContext()

	v, err := eng.Eval("test.js", "({ tag: 'same' })")
	require.NoError(t, err)
	out, err := FromNative(eng, table, v)
	require.NoError(t, err)

	native, err := ToNative(eng, table, out)
	require.NoError(t, err)
	assert.Equal(t, v, native, "handle did not resolve to the same native value")
}

func TestReleasedHandleFailsToNative(t *testing.T) {
	eng, table := newTestContext()

	v, err := eng.Eval("test.js", "({})")
	require.NoError(t, err)
	out, err := FromNative(eng, table, v)
	require.NoError(t, err)

	table.Release(out.Handle)
	_, err = ToNative(eng, table, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrHandleInvalid))
}

func TestStringsAreIndependent(t *testing.T) {
	eng, table := newTestContext()

	v, err := eng.Eval("test.js", "'boundary'")
	require.NoError(t, err)
	out, err := FromNative(eng, table, v)
	require.NoError(t, err)
	require.Equal(t, types.KindString, out.Kind)
	assert.Equal(t, "boundary", out.Str)
}
