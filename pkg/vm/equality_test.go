package vm

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "jscore/pkg/errors"
)

func TestSameValueFamily(t *testing.T) {
	negZero := NumberValue(math.Copysign(0, -1))
	posZero := IntegerValue(0)

	assert.True(t, SameValue(NaN, NaN))
	assert.False(t, SameValue(posZero, negZero))
	assert.True(t, SameValueZero(NaN, NaN))
	assert.True(t, SameValueZero(posZero, negZero))
	assert.False(t, IsStrictlyEqual(NaN, NaN))
	assert.True(t, IsStrictlyEqual(posZero, negZero))

	// Both number forms are the same type.
	assert.True(t, IsStrictlyEqual(IntegerValue(2), NumberValue(2.0)))
	assert.True(t, SameValue(IntegerValue(2), Value{typ: TypeFloatNumber, payload: math.Float64bits(2)}))

	// Number and BigInt are never strictly equal.
	assert.False(t, IsStrictlyEqual(IntegerValue(1), NewBigIntFromInt64(1)))
	assert.False(t, SameValue(IntegerValue(1), NewBigIntFromInt64(1)))
	assert.True(t, IsStrictlyEqual(NewBigIntFromInt64(5), NewBigInt(big.NewInt(5))))

	assert.True(t, IsStrictlyEqual(NewString("ab"), NewString("ab")))
	s := NewSymbol("x")
	assert.True(t, IsStrictlyEqual(s.Value(), s.Value()))
	assert.False(t, IsStrictlyEqual(s.Value(), NewSymbol("x").Value()))
}

func TestLooselyEqualBigIntBoolean(t *testing.T) {
	machine := newTestVM(t)
	two64, _ := new(big.Int).SetString("18446744073709551616", 10)

	tests := []struct {
		x, y Value
		want bool
	}{
		{NewBigIntFromInt64(0), False, true},
		{NewBigIntFromInt64(1), True, true},
		{NewBigIntFromInt64(2), True, false},
		{NewBigIntFromInt64(-1), True, false},
		{NewBigIntFromInt64(0), True, false},
		{True, NewBigIntFromInt64(1), true},
		{False, NewBigIntFromInt64(0), true},
		{NewBigIntFromInt64(0), NewString(""), true},
		{NewBigIntFromInt64(1), NewString("1"), true},
		{NewString(" 0x10 "), NewBigIntFromInt64(16), true},
		{NewBigIntFromInt64(1), NewString("1.0"), false},
		{NewBigIntFromInt64(1), NewString("x"), false},
		{NewBigIntFromInt64(1), IntegerValue(1), true},
		{NewBigIntFromInt64(1), NumberValue(1.5), false},
		{NewBigIntFromInt64(1), NaN, false},
		{NewBigIntFromInt64(1), NumberValue(math.Inf(1)), false},
		{NumberValue(math.Inf(-1)), NewBigIntFromInt64(-1), false},
		{NewBigInt(two64), NumberValue(1 << 64), true},
		{NumberValue(1 << 64), NewBigInt(new(big.Int).Add(two64, big.NewInt(1))), false},
	}
	for _, tt := range tests {
		got, err := machine.IsLooselyEqual(tt.x, tt.y)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s == %s", tt.x.String(), tt.y.String())
	}
}

func TestLooselyEqualMixed(t *testing.T) {
	machine := newTestVM(t)
	sym := NewSymbol("s")
	obj := machine.NewObject()
	obj.SetOwnMethod(StringKey("valueOf"), nativeFn(machine, "valueOf", func(FunctionCall) (Value, error) {
		return IntegerValue(3), nil
	}))

	tests := []struct {
		x, y Value
		want bool
	}{
		{Null, Undefined, true},
		{Null, IntegerValue(0), false},
		{Undefined, False, false},
		{NewString("1"), IntegerValue(1), true},
		{True, NewString("1"), true},
		{NewString(""), IntegerValue(0), true},
		{NaN, NaN, false},
		{sym.Value(), sym.Value(), true},
		{sym.Value(), NewString("Symbol(s)"), false},
		{obj.Value(), IntegerValue(3), true},
		{NewString("3"), obj.Value(), true},
		{obj.Value(), obj.Value(), true},
		{obj.Value(), machine.NewObject().Value(), false},
	}
	for _, tt := range tests {
		got, err := machine.IsLooselyEqual(tt.x, tt.y)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s == %s", tt.x.String(), tt.y.String())
	}
}

func TestLooselyEqualBigIntMalformedString(t *testing.T) {
	machine := newTestVM(t)
	// Loose equality treats an unparsable string as unequal to every
	// BigInt; only ToBigInt reports the SyntaxError.
	for _, s := range []string{"1x", "1.5", "0x", "1n"} {
		got, err := machine.IsLooselyEqual(NewBigIntFromInt64(1), NewString(s))
		require.NoError(t, err, "1n == %q", s)
		assert.False(t, got, "1n == %q", s)
		got, err = machine.IsLooselyEqual(NewString(s), NewBigIntFromInt64(1))
		require.NoError(t, err)
		assert.False(t, got)
	}
	got, err := machine.IsLooselyEqual(NewBigIntFromInt64(16), NewString(" 0x10 "))
	require.NoError(t, err)
	assert.True(t, got)

	_, err = machine.ToBigInt(NewString("1x"))
	requireErrorKind(t, err, errs.KindSyntaxError)
}

func TestRelationalComparison(t *testing.T) {
	machine := newTestVM(t)

	c, err := machine.IsLessThan(NewBigIntFromInt64(1), NewString("2"), true)
	require.NoError(t, err)
	assert.Equal(t, ComparisonTrue, c)

	c, err = machine.IsLessThan(NewBigIntFromInt64(1), NewString("x"), true)
	require.NoError(t, err)
	assert.Equal(t, ComparisonUndefined, c)

	c, err = machine.IsLessThan(NewString("1.5"), NewBigIntFromInt64(2), true)
	require.NoError(t, err)
	assert.Equal(t, ComparisonUndefined, c)

	c, err = machine.IsLessThan(NewBigIntFromInt64(1), NumberValue(1.5), true)
	require.NoError(t, err)
	assert.Equal(t, ComparisonTrue, c)

	c, err = machine.IsLessThan(NaN, IntegerValue(1), true)
	require.NoError(t, err)
	assert.Equal(t, ComparisonUndefined, c)

	lt, err := machine.LessThan(NewString("a"), NewString("b"))
	require.NoError(t, err)
	assert.True(t, lt)

	// Undefined results make both <= and >= false.
	le, err := machine.LessThanOrEqual(NaN, IntegerValue(1))
	require.NoError(t, err)
	assert.False(t, le)
	ge, err := machine.GreaterThanOrEqual(NaN, IntegerValue(1))
	require.NoError(t, err)
	assert.False(t, ge)

	gt, err := machine.GreaterThan(NewBigIntFromInt64(3), IntegerValue(2))
	require.NoError(t, err)
	assert.True(t, gt)
}

func TestCompareUTF16(t *testing.T) {
	// U+FF61 precedes U+1F600 by code point but follows its lead
	// surrogate by code unit.
	assert.Equal(t, 1, CompareUTF16("\uff61", "\U0001F600"))
	assert.Equal(t, -1, CompareUTF16("a", "ab"))
	assert.Equal(t, 0, CompareUTF16("same", "same"))

	lone := NewStringFromUTF16([]uint16{0xD83D, 0xE000}).AsString()
	assert.Equal(t, 1, CompareUTF16(lone, "\U0001F600"))
	assert.Equal(t, -1, CompareUTF16(NewStringFromUTF16([]uint16{0xD800}).AsString(), "\U0001F600"))
}
