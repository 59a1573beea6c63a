package vm

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "jscore/pkg/errors"
)

func TestToPrimitiveUsesToPrimitiveMethod(t *testing.T) {
	machine := newTestVM(t)
	var hints []string
	obj := machine.NewObject()
	obj.SetOwnMethod(SymbolKey(SymToPrimitive), nativeFn(machine, "[Symbol.toPrimitive]", func(call FunctionCall) (Value, error) {
		hints = append(hints, call.Argument(0).AsString())
		return IntegerValue(7), nil
	}))

	for _, hint := range []Hint{HintDefault, HintNumber, HintString} {
		v, err := machine.ToPrimitive(obj.Value(), hint)
		require.NoError(t, err)
		assert.Equal(t, int32(7), v.AsInteger())
	}
	assert.Equal(t, []string{"default", "number", "string"}, hints)

	bad := machine.NewObject()
	bad.SetOwnMethod(SymbolKey(SymToPrimitive), nativeFn(machine, "[Symbol.toPrimitive]", func(call FunctionCall) (Value, error) {
		return call.VM.NewObject().Value(), nil
	}))
	_, err := machine.ToPrimitive(bad.Value(), HintDefault)
	requireErrorKind(t, err, errs.KindTypeError)
}

func TestOrdinaryToPrimitiveOrder(t *testing.T) {
	machine := newTestVM(t)
	var calls []string
	obj := machine.NewObject()
	obj.SetOwnMethod(StringKey("valueOf"), nativeFn(machine, "valueOf", func(FunctionCall) (Value, error) {
		calls = append(calls, "valueOf")
		return IntegerValue(42), nil
	}))
	obj.SetOwnMethod(StringKey("toString"), nativeFn(machine, "toString", func(FunctionCall) (Value, error) {
		calls = append(calls, "toString")
		return NewString("str"), nil
	}))

	v, err := machine.ToPrimitive(obj.Value(), HintString)
	require.NoError(t, err)
	assert.Equal(t, "str", v.AsString())

	v, err = machine.ToPrimitive(obj.Value(), HintNumber)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v.AsInteger())

	v, err = machine.ToPrimitive(obj.Value(), HintDefault)
	require.NoError(t, err)
	assert.Equal(t, int32(42), v.AsInteger())
	assert.Equal(t, []string{"toString", "valueOf", "valueOf"}, calls)

	// valueOf returning an object falls through to toString.
	calls = nil
	obj.SetOwnMethod(StringKey("valueOf"), nativeFn(machine, "valueOf", func(call FunctionCall) (Value, error) {
		calls = append(calls, "valueOf")
		return call.VM.NewObject().Value(), nil
	}))
	v, err = machine.ToPrimitive(obj.Value(), HintNumber)
	require.NoError(t, err)
	assert.Equal(t, "str", v.AsString())
	assert.Equal(t, []string{"valueOf", "toString"}, calls)

	_, err = machine.ToPrimitive(machine.Realm().NewObjectWithPrototype(nil).Value(), HintDefault)
	requireErrorKind(t, err, errs.KindTypeError)
}

func TestCoercionIdempotence(t *testing.T) {
	machine := newTestVM(t)
	primitives := []Value{
		Undefined, Null, True, False,
		IntegerValue(0), NumberValue(math.Copysign(0, -1)), NumberValue(1.5), NaN,
		NumberValue(math.Inf(-1)), NewBigIntFromInt64(-12), NewString(""), NewString(" 12 "),
		NewSymbol("s").Value(),
	}
	for _, p := range primitives {
		once, err := machine.ToPrimitive(p, HintDefault)
		require.NoError(t, err)
		assert.True(t, SameValue(p, once), "ToPrimitive(%s)", p.String())

		if p.IsSymbol() {
			continue
		}
		s1, err := machine.ToStringValue(p)
		require.NoError(t, err)
		s2, err := machine.ToStringValue(s1)
		require.NoError(t, err)
		assert.Equal(t, s1.AsString(), s2.AsString())

		if p.IsBigInt() {
			continue
		}
		n1, err := machine.ToNumber(p)
		require.NoError(t, err)
		n2, err := machine.ToNumber(NumberValue(n1))
		require.NoError(t, err)
		assert.True(t, SameValue(NumberValue(n1), NumberValue(n2)), "ToNumber(%s)", p.String())
	}
}

func TestToNumberRejectsSymbolAndBigInt(t *testing.T) {
	machine := newTestVM(t)
	_, err := machine.ToNumber(NewSymbol("x").Value())
	requireErrorKind(t, err, errs.KindTypeError)
	_, err = machine.ToNumber(NewBigIntFromInt64(1))
	requireErrorKind(t, err, errs.KindTypeError)

	v, err := machine.ToNumeric(NewBigIntFromInt64(3))
	require.NoError(t, err)
	assert.True(t, v.IsBigInt())
}

func TestToNumberPrimitives(t *testing.T) {
	machine := newTestVM(t)
	tests := []struct {
		in   Value
		want float64
	}{
		{Null, 0},
		{True, 1},
		{False, 0},
		{NewString(""), 0},
		{NewString(" 0x10 "), 16},
		{NewString("1e3"), 1000},
	}
	for _, tt := range tests {
		got, err := machine.ToNumber(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in.String())
	}
	got, err := machine.ToNumber(Undefined)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got))
}

func TestToBigInt(t *testing.T) {
	machine := newTestVM(t)
	tests := []struct {
		in   Value
		want int64
	}{
		{True, 1},
		{False, 0},
		{NewString(" 42 "), 42},
		{NewString("0x10"), 16},
		{NewString("-7"), -7},
		{NewString(""), 0},
		{NewBigIntFromInt64(9), 9},
	}
	for _, tt := range tests {
		got, err := machine.ToBigInt(tt.in)
		require.NoError(t, err, tt.in.String())
		assert.Equal(t, big.NewInt(tt.want).String(), got.String(), tt.in.String())
	}

	for _, v := range []Value{IntegerValue(1), Undefined, Null, NewSymbol("s").Value()} {
		_, err := machine.ToBigInt(v)
		requireErrorKind(t, err, errs.KindTypeError)
	}
	for _, s := range []string{"1.5", "1n", "abc", "-0x10"} {
		_, err := machine.ToBigInt(NewString(s))
		requireErrorKind(t, err, errs.KindSyntaxError)
	}
}

func TestIntegerConversions(t *testing.T) {
	machine := newTestVM(t)

	i32, err := machine.ToInt32(NumberValue(1<<32 + 5))
	require.NoError(t, err)
	assert.Equal(t, int32(5), i32)

	i32, err = machine.ToInt32(NumberValue(1 << 31))
	require.NoError(t, err)
	assert.Equal(t, int32(math.MinInt32), i32)

	i32, err = machine.ToInt32(NaN)
	require.NoError(t, err)
	assert.Equal(t, int32(0), i32)

	u32, err := machine.ToUint32(IntegerValue(-1))
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), u32)

	u16, err := machine.ToUint16(NumberValue(65537))
	require.NoError(t, err)
	assert.Equal(t, uint16(1), u16)

	i8, err := machine.ToInt8(IntegerValue(200))
	require.NoError(t, err)
	assert.Equal(t, int8(-56), i8)

	for in, want := range map[float64]uint8{300: 255, -5: 0, 1.5: 2, 2.5: 2, 0.4: 0} {
		got, err := machine.ToUint8Clamp(NumberValue(in))
		require.NoError(t, err)
		assert.Equal(t, want, got, "ToUint8Clamp(%v)", in)
	}
}

func TestToIndexAndLength(t *testing.T) {
	machine := newTestVM(t)

	idx, err := machine.ToIndex(Undefined)
	require.NoError(t, err)
	assert.Equal(t, int64(0), idx)

	idx, err = machine.ToIndex(NumberValue(3.9))
	require.NoError(t, err)
	assert.Equal(t, int64(3), idx)

	_, err = machine.ToIndex(IntegerValue(-1))
	requireErrorKind(t, err, errs.KindRangeError)
	_, err = machine.ToIndex(NumberValue(1 << 53))
	requireErrorKind(t, err, errs.KindRangeError)

	n, err := machine.ToLength(NumberValue(math.Inf(1)))
	require.NoError(t, err)
	assert.Equal(t, int64(maxSafeInteger), n)

	n, err = machine.ToLength(IntegerValue(-4))
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestToPropertyKeyAndObject(t *testing.T) {
	machine := newTestVM(t)

	key, err := machine.ToPropertyKey(NumberValue(1.5))
	require.NoError(t, err)
	assert.Equal(t, "1.5", key.Name())

	sym := NewSymbol("k")
	key, err = machine.ToPropertyKey(sym.Value())
	require.NoError(t, err)
	assert.Same(t, sym, key.Symbol())

	_, err = machine.ToObject(Undefined)
	requireErrorKind(t, err, errs.KindTypeError)
	_, err = machine.ToObject(Null)
	requireErrorKind(t, err, errs.KindTypeError)

	wrapper, err := machine.ToObject(NewString("ab"))
	require.NoError(t, err)
	assert.Equal(t, KindString, wrapper.Kind())
	pv, ok := wrapper.PrimitiveValue()
	require.True(t, ok)
	assert.Equal(t, "ab", pv.AsString())
}

func TestToBoolean(t *testing.T) {
	machine := newTestVM(t)
	falsy := []Value{Undefined, Null, False, IntegerValue(0), NumberValue(math.Copysign(0, -1)), NaN, NewString(""), NewBigIntFromInt64(0)}
	for _, v := range falsy {
		assert.False(t, ToBoolean(v), v.String())
	}
	truthy := []Value{True, IntegerValue(-1), NewString("0"), NewBigIntFromInt64(2), NewSymbol("").Value(), machine.NewObject().Value()}
	for _, v := range truthy {
		assert.True(t, ToBoolean(v), v.String())
	}
}
