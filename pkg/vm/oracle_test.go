package vm_test

import (
	"math"
	"math/big"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jscore/pkg/builtins"
	"jscore/pkg/vm"
)

// The tests in this file compare results against goja, an independent
// ECMAScript implementation, over inputs that both can express.

func newMachine(t *testing.T) *vm.VM {
	t.Helper()
	machine, err := vm.New(vm.Options{Initializers: builtins.Standard()})
	require.NoError(t, err)
	return machine
}

// oracleFunc compiles a JavaScript function expression in goja.
func oracleFunc(t *testing.T, rt *goja.Runtime, src string) goja.Callable {
	t.Helper()
	v, err := rt.RunString("(" + src + ")")
	require.NoError(t, err)
	fn, ok := goja.AssertFunction(v)
	require.True(t, ok, "%s is not a function", src)
	return fn
}

func sameNumber(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b && math.Signbit(a) == math.Signbit(b)
}

func TestLooseEqualityMatchesOracle(t *testing.T) {
	machine := newMachine(t)
	rt := goja.New()

	operands := []struct {
		src string
		v   vm.Value
	}{
		{"undefined", vm.Undefined},
		{"null", vm.Null},
		{"true", vm.True},
		{"false", vm.False},
		{"0", vm.IntegerValue(0)},
		{"-0", vm.NumberValue(math.Copysign(0, -1))},
		{"1", vm.IntegerValue(1)},
		{"16", vm.IntegerValue(16)},
		{"1.5", vm.NumberValue(1.5)},
		{"NaN", vm.NaN},
		{"Infinity", vm.NumberValue(math.Inf(1))},
		{`""`, vm.NewString("")},
		{`"0"`, vm.NewString("0")},
		{`"1"`, vm.NewString("1")},
		{`" 1 "`, vm.NewString(" 1 ")},
		{`"0x10"`, vm.NewString("0x10")},
		{`"1.5"`, vm.NewString("1.5")},
		{`"abc"`, vm.NewString("abc")},
		{"0n", vm.NewBigIntFromInt64(0)},
		{"1n", vm.NewBigIntFromInt64(1)},
		{"16n", vm.NewBigIntFromInt64(16)},
		{"-1n", vm.NewBigIntFromInt64(-1)},
		{"18446744073709551616n", vm.NewBigInt(new(big.Int).Lsh(big.NewInt(1), 64))},
		{"18446744073709551616", vm.NumberValue(1 << 64)},
	}

	// goja truncates BigInts wider than 64 bits when comparing them with
	// booleans, so those pairs are checked against the known answer.
	wideBigIntVsBoolean := func(a, b string) bool {
		return a == "18446744073709551616n" && (b == "true" || b == "false")
	}

	for _, x := range operands {
		for _, y := range operands {
			if wideBigIntVsBoolean(x.src, y.src) || wideBigIntVsBoolean(y.src, x.src) {
				got, err := machine.IsLooselyEqual(x.v, y.v)
				require.NoError(t, err)
				assert.False(t, got, "%s == %s", x.src, y.src)
				continue
			}
			want, err := rt.RunString("(" + x.src + ") == (" + y.src + ")")
			require.NoError(t, err)
			got, err := machine.IsLooselyEqual(x.v, y.v)
			require.NoError(t, err)
			assert.Equal(t, want.ToBoolean(), got, "%s == %s", x.src, y.src)
		}
	}
}

func TestNumberToStringMatchesOracle(t *testing.T) {
	rt := goja.New()
	format := oracleFunc(t, rt, "function (x, radix) { return x.toString(radix) }")
	rng := rand.New(rand.NewPCG(262, 1))

	var samples []float64
	for range 1000 {
		samples = append(samples, math.Float64frombits(rng.Uint64()))
		samples = append(samples, rng.NormFloat64()*math.Pow(10, float64(rng.IntN(40)-20)))
		samples = append(samples, float64(rng.Int64N(1<<53))-(1<<52))
	}
	samples = append(samples, 0, math.Copysign(0, -1), math.Inf(1), math.Inf(-1), math.NaN(),
		1e21, 1e-7, 123e-20, 5e-324, math.MaxFloat64)

	for _, f := range samples {
		want, err := format(goja.Undefined(), rt.ToValue(f), rt.ToValue(10))
		require.NoError(t, err)
		assert.Equal(t, want.String(), vm.NumberToString(f, 10), "(%v).toString()", f)
	}

	// Non-decimal radices go through the same ftoa code as goja, so only
	// values with short expansions are compared exactly.
	for _, f := range []float64{255, -255, 0.5, 0.25, 1 << 40, 35, 3.75} {
		for _, radix := range []int{2, 8, 16, 36} {
			want, err := format(goja.Undefined(), rt.ToValue(f), rt.ToValue(radix))
			require.NoError(t, err)
			assert.Equal(t, want.String(), vm.NumberToString(f, radix), "(%v).toString(%d)", f, radix)
		}
	}
}

func TestStringToNumberMatchesOracle(t *testing.T) {
	rt := goja.New()
	toNumber := oracleFunc(t, rt, "function (s) { return Number(s) }")

	inputs := []string{
		"", " ", "\t\n", "12", "  12  ", "-12", "+12", "1e3", "1E-3", ".5", "5.", ".",
		"0x1F", "0X1f", "0b101", "0o17", "-0x10", "0x", "0b2",
		"Infinity", "-Infinity", "+Infinity", "infinity", "INFINITY",
		"1_000", "12px", "1e", "e1", "--1", "1.2.3",
		"\u00a012\u2028", "\ufeff7", "0.0000001", "-0", "1e400", "-1e400",
		"123456789012345678901234567890",
	}
	for _, s := range inputs {
		want, err := toNumber(goja.Undefined(), rt.ToValue(s))
		require.NoError(t, err)
		got := vm.StringToNumber(s)
		assert.True(t, sameNumber(want.ToFloat(), got), "Number(%q) = %v, want %v", s, got, want.ToFloat())
	}
}

func TestToPrimitiveMatchesOracle(t *testing.T) {
	machine := newMachine(t)
	rt := goja.New()
	describe := oracleFunc(t, rt, `function (hint) {
		var log = [];
		var o = {
			valueOf: function () { log.push("valueOf"); return 42 },
			toString: function () { log.push("toString"); return "str" }
		};
		var v = hint === "string" ? String(o) : hint === "number" ? +o : o + "";
		return log.join(",") + "=" + v;
	}`)

	for _, hint := range []vm.Hint{vm.HintDefault, vm.HintNumber, vm.HintString} {
		var log []string
		o := machine.NewObject()
		o.SetOwnMethod(vm.StringKey("valueOf"), machine.NewNativeFunction("valueOf", 0, func(vm.FunctionCall) (vm.Value, error) {
			log = append(log, "valueOf")
			return vm.IntegerValue(42), nil
		}).Value())
		o.SetOwnMethod(vm.StringKey("toString"), machine.NewNativeFunction("toString", 0, func(vm.FunctionCall) (vm.Value, error) {
			log = append(log, "toString")
			return vm.NewString("str"), nil
		}).Value())

		prim, err := machine.ToPrimitive(o.Value(), hint)
		require.NoError(t, err)
		got, err := machine.ToString(prim)
		require.NoError(t, err)

		want, err := describe(goja.Undefined(), rt.ToValue(hint.String()))
		require.NoError(t, err)
		assert.Equal(t, want.String(), strings.Join(log, ",")+"="+got, "hint %s", hint)
	}
}
