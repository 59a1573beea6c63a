package builtins

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "jscore/pkg/errors"
	"jscore/pkg/vm"
)

// resizable creates new ArrayBuffer(length, { maxByteLength: max }).
func (h *harness) resizable(length, max float64) vm.Value {
	h.t.Helper()
	options := h.vm.NewObject()
	options.SetOwn("maxByteLength", n(max))
	buf, err := h.construct("ArrayBuffer", n(length), options.Value())
	require.NoError(h.t, err)
	return buf
}

func TestArrayBufferResize(t *testing.T) {
	h := newHarness(t)
	buf := h.resizable(8, 16)

	assert.True(t, h.get(buf, "resizable").AsBoolean())
	assert.Equal(t, float64(16), h.get(buf, "maxByteLength").AsNumber())

	h.must(buf, "resize", n(12))
	assert.Equal(t, float64(12), h.get(buf, "byteLength").AsNumber())
	_, err := h.invoke(buf, "resize", n(17))
	h.requireKind(err, errs.KindRangeError)

	slice := h.must(buf, "slice", n(2), n(-2))
	assert.Equal(t, float64(8), h.get(slice, "byteLength").AsNumber())
	assert.False(t, h.get(slice, "resizable").AsBoolean())

	fixed, err := h.construct("ArrayBuffer", n(4))
	require.NoError(t, err)
	assert.Equal(t, float64(4), h.get(fixed, "maxByteLength").AsNumber())
	_, err = h.invoke(fixed, "resize", n(2))
	h.requireKind(err, errs.KindTypeError)

	moved := h.must(fixed, "transfer")
	assert.True(t, h.get(fixed, "detached").AsBoolean())
	assert.Equal(t, float64(4), h.get(moved, "byteLength").AsNumber())
	_, err = h.invoke(fixed, "slice")
	h.requireKind(err, errs.KindTypeError)

	view, err := h.construct("Uint8Array", n(1))
	require.NoError(t, err)
	assert.True(t, h.must(h.global("ArrayBuffer"), "isView", view).AsBoolean())
	assert.False(t, h.must(h.global("ArrayBuffer"), "isView", buf).AsBoolean())
}

func TestTypedArrayFromOf(t *testing.T) {
	h := newHarness(t)

	u8 := h.must(h.global("Uint8Array"), "from", h.array(n(1), n(2), n(300)))
	assert.Equal(t, "1,2,44", h.str(h.must(u8, "join")))
	assert.Equal(t, "Uint8Array", h.get(u8, "constructor", "name").AsString())

	i8 := h.must(h.global("Int8Array"), "of", n(127), n(128))
	assert.Equal(t, "127,-128", h.str(h.must(i8, "join")))

	double := h.vm.NewNativeFunction("double", 1, func(call vm.FunctionCall) (vm.Value, error) {
		f, err := call.VM.ToNumber(call.Argument(0))
		return n(f * 2), err
	})
	f64 := h.must(h.global("Float64Array"), "from", s("123"), double.Value())
	assert.Equal(t, "2,4,6", h.str(h.must(f64, "join")))

	clamped := h.must(h.global("Uint8ClampedArray"), "of", n(-5), n(300), n(1.5))
	assert.Equal(t, "0,255,2", h.str(h.must(clamped, "join")))

	_, err := h.construct("BigInt64Array", u8)
	h.requireKind(err, errs.KindTypeError)

	abstract, err := h.global("Uint8Array").AsObject().GetPrototypeOf(h.vm)
	require.NoError(t, err)
	_, err = h.vm.Construct(abstract.Value(), nil, nil)
	h.requireKind(err, errs.KindTypeError)
}

func TestTypedArrayTracksResizableBuffer(t *testing.T) {
	h := newHarness(t)
	buf := h.resizable(4, 8)

	tracking, err := h.construct("Uint16Array", buf)
	require.NoError(t, err)
	fixed, err := h.construct("Uint8Array", buf, n(1), n(2))
	require.NoError(t, err)
	assert.Equal(t, float64(2), h.get(tracking, "length").AsNumber())

	h.must(buf, "resize", n(8))
	assert.Equal(t, float64(4), h.get(tracking, "length").AsNumber())
	assert.Equal(t, float64(8), h.get(tracking, "byteLength").AsNumber())

	// Shrinking below a fixed view's end puts it out of bounds.
	h.must(buf, "resize", n(2))
	assert.Equal(t, float64(1), h.get(tracking, "length").AsNumber())
	assert.Equal(t, float64(0), h.get(fixed, "length").AsNumber())
	assert.Equal(t, float64(0), h.get(fixed, "byteOffset").AsNumber())
	_, err = h.invoke(fixed, "join")
	h.requireKind(err, errs.KindTypeError)

	// Writes past the end are ignored rather than thrown.
	require.NoError(t, h.vm.Put(tracking.AsObject(), vm.IndexKey(5), n(1), true))
	assert.True(t, h.get(tracking, "5").IsUndefined())
}

func TestTypedArraySubarraySharesBuffer(t *testing.T) {
	h := newHarness(t)
	u8 := h.must(h.global("Uint8Array"), "of", n(1), n(2), n(3), n(4))

	sub := h.must(u8, "subarray", n(1), n(-1))
	assert.Equal(t, float64(2), h.get(sub, "length").AsNumber())
	assert.Equal(t, float64(1), h.get(sub, "byteOffset").AsNumber())
	assert.Same(t, h.get(u8, "buffer").AsObject(), h.get(sub, "buffer").AsObject())

	require.NoError(t, h.vm.Put(sub.AsObject(), vm.IndexKey(0), n(9), true))
	assert.Equal(t, "1,9,3,4", h.str(h.must(u8, "join")))

	assert.True(t, h.must(u8, "includes", n(9)).AsBoolean())
	assert.Equal(t, float64(3), h.must(u8, "indexOf", n(4)).AsNumber())
	assert.Equal(t, float64(4), h.must(u8, "at", n(-1)).AsNumber())

	h.must(u8, "fill", n(0))
	assert.Equal(t, "0,0", h.str(h.must(sub, "join")))

	tag, err := h.vm.Get(u8.AsObject(), vm.SymbolKey(vm.SymToStringTag))
	require.NoError(t, err)
	assert.Equal(t, "Uint8Array", tag.AsString())
}

func TestDataViewGetSet(t *testing.T) {
	h := newHarness(t)
	buf, err := h.construct("ArrayBuffer", n(8))
	require.NoError(t, err)
	view, err := h.construct("DataView", buf)
	require.NoError(t, err)

	h.must(view, "setUint16", n(0), n(0x1234))
	assert.Equal(t, float64(0x12), h.must(view, "getUint8", n(0)).AsNumber(), "big-endian by default")
	h.must(view, "setUint16", n(2), n(0x1234), vm.True)
	assert.Equal(t, float64(0x34), h.must(view, "getUint8", n(2)).AsNumber())
	assert.Equal(t, float64(0x3412), h.must(view, "getUint16", n(2)).AsNumber())

	h.must(view, "setInt8", n(4), n(-1))
	assert.Equal(t, float64(255), h.must(view, "getUint8", n(4)).AsNumber())

	h.must(view, "setFloat64", n(0), n(1.5))
	assert.Equal(t, 1.5, h.must(view, "getFloat64", n(0)).AsNumber())
	h.must(view, "setFloat32", n(0), vm.NaN)
	assert.True(t, math.IsNaN(h.must(view, "getFloat32", n(0)).AsNumber()))

	h.must(view, "setBigInt64", n(0), vm.NewBigIntFromInt64(-1))
	got := h.must(view, "getBigUint64", n(0))
	want := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(1))
	assert.Equal(t, want.String(), got.AsBigInt().String())
	_, err = h.invoke(view, "setBigInt64", n(0), n(1))
	h.requireKind(err, errs.KindTypeError)

	_, err = h.invoke(view, "getUint32", n(6))
	h.requireKind(err, errs.KindRangeError)
}

func TestDataViewConstruction(t *testing.T) {
	h := newHarness(t)
	buf, err := h.construct("ArrayBuffer", n(8))
	require.NoError(t, err)

	view, err := h.construct("DataView", buf, n(2), n(4))
	require.NoError(t, err)
	assert.Equal(t, float64(2), h.get(view, "byteOffset").AsNumber())
	assert.Equal(t, float64(4), h.get(view, "byteLength").AsNumber())
	assert.Same(t, buf.AsObject(), h.get(view, "buffer").AsObject())

	_, err = h.construct("DataView", buf, n(9))
	h.requireKind(err, errs.KindRangeError)
	assert.Contains(t, err.Error(), "Start offset 9 is out of range for buffer length 8")
	_, err = h.construct("DataView", buf, n(4), n(5))
	h.requireKind(err, errs.KindRangeError)
	_, err = h.construct("DataView", h.vm.NewObject().Value())
	h.requireKind(err, errs.KindTypeError)

	// A length-tracking view follows its buffer.
	rb := h.resizable(4, 8)
	tracking, err := h.construct("DataView", rb)
	require.NoError(t, err)
	h.must(rb, "resize", n(8))
	assert.Equal(t, float64(8), h.get(tracking, "byteLength").AsNumber())
}
