package vm

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueTypeOf(t *testing.T) {
	machine := newTestVM(t)
	fn := nativeFn(machine, "f", func(FunctionCall) (Value, error) { return Undefined, nil })

	tests := []struct {
		value Value
		want  string
	}{
		{Undefined, "undefined"},
		{Null, "object"},
		{True, "boolean"},
		{IntegerValue(1), "number"},
		{NumberValue(1.5), "number"},
		{NaN, "number"},
		{NewBigIntFromInt64(1), "bigint"},
		{NewString("s"), "string"},
		{NewSymbol("s").Value(), "symbol"},
		{machine.NewObject().Value(), "object"},
		{fn, "function"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.value.TypeOf(), tt.value.String())
	}
}

func TestNumberValueForms(t *testing.T) {
	assert.Equal(t, TypeIntegerNumber, NumberValue(42).Type())
	assert.Equal(t, TypeFloatNumber, NumberValue(0.5).Type())
	assert.Equal(t, TypeFloatNumber, NumberValue(math.Copysign(0, -1)).Type())
	assert.Equal(t, TypeFloatNumber, NumberValue(1<<40).Type())
	assert.True(t, math.Signbit(NumberValue(math.Copysign(0, -1)).AsNumber()))
}

func TestStringCodeUnits(t *testing.T) {
	s := NewString("a\U0001F600b")
	assert.Equal(t, 4, s.StringLength())
	assert.Equal(t, uint16('a'), s.CodeUnitAt(0))
	assert.Equal(t, uint16(0xD83D), s.CodeUnitAt(1))
	assert.Equal(t, uint16(0xDE00), s.CodeUnitAt(2))
	assert.Equal(t, []uint16{'a', 0xD83D, 0xDE00, 'b'}, s.CodeUnits())

	ascii := NewString("hello")
	assert.Equal(t, 5, ascii.StringLength())
	assert.Equal(t, uint16('e'), ascii.CodeUnitAt(1))

	fromUnits := NewStringFromUTF16([]uint16{'h', 'i'})
	assert.Equal(t, "hi", fromUnits.AsString())
}

func TestBigIntValueIsCopied(t *testing.T) {
	b := big.NewInt(7)
	v := NewBigInt(b)
	b.SetInt64(8)
	assert.Equal(t, int64(7), v.AsBigInt().Int64())
	assert.Equal(t, "7n", v.String())
}

func TestLoneSurrogatesKeepIdentity(t *testing.T) {
	machine := newTestVM(t)
	high := NewStringFromUTF16([]uint16{0xD800})
	low := NewStringFromUTF16([]uint16{0xDC00})
	replacement := NewString("\uFFFD")

	assert.False(t, IsStrictlyEqual(high, low))
	assert.False(t, IsStrictlyEqual(high, replacement))
	assert.False(t, SameValue(high, replacement))
	assert.True(t, IsStrictlyEqual(high, NewStringFromUTF16([]uint16{0xD800})))

	s, err := machine.ToString(high)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0xD800}, NewString(s).CodeUnits())

	// Halves joined in Go form the same string as the pair.
	pair := NewString(high.AsString() + NewStringFromUTF16([]uint16{0xDE00}).AsString())
	assert.True(t, IsStrictlyEqual(pair, NewString("\U00010200")))
	assert.Equal(t, 2, pair.StringLength())

	o := machine.NewObject()
	for i, v := range []Value{high, low, replacement} {
		key, err := machine.ToPropertyKey(v)
		require.NoError(t, err)
		require.NoError(t, machine.Put(o, key, IntegerValue(int32(i)), true))
	}
	keys, err := o.OwnPropertyKeys(machine)
	require.NoError(t, err)
	require.Len(t, keys, 3)
	assert.Equal(t, []uint16{0xD800}, keys[0].Value().CodeUnits())
	assert.Equal(t, []uint16{0xDC00}, keys[1].Value().CodeUnits())
	got, err := machine.Get(o, StringKey(low.AsString()))
	require.NoError(t, err)
	assert.Equal(t, int32(1), got.AsInteger())
}

func TestStringObjectIndexesCodeUnits(t *testing.T) {
	machine := newTestVM(t)
	so, err := machine.ToObject(NewString("\U0001F600"))
	require.NoError(t, err)

	first, err := machine.Get(so, IndexKey(0))
	require.NoError(t, err)
	second, err := machine.Get(so, IndexKey(1))
	require.NoError(t, err)
	assert.False(t, IsStrictlyEqual(first, second))

	s, err := machine.ToString(first)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0xD83D}, NewString(s).CodeUnits())
	s, err = machine.ToString(second)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0xDE00}, NewString(s).CodeUnits())
}
