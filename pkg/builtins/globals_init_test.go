package builtins

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jscore/pkg/vm"
)

func TestParseFloat(t *testing.T) {
	h := newHarness(t)
	parseFloat := h.global("parseFloat")
	tests := []struct {
		in   string
		want float64
	}{
		{"3.14abc", 3.14},
		{"  \n-2.5e3x", -2500},
		{".5e1", 5},
		{"1.", 1},
		{"+Infinityx", math.Inf(1)},
		{"-Infinity", math.Inf(-1)},
		{"1e400", math.Inf(1)},
		{"abc", math.NaN()},
		{"", math.NaN()},
		{"0x10", 0},
	}
	for _, tt := range tests {
		got, err := h.vm.Call(parseFloat, vm.Undefined, s(tt.in))
		require.NoError(t, err)
		if math.IsNaN(tt.want) {
			assert.True(t, math.IsNaN(got.AsNumber()), "parseFloat(%q) = %v", tt.in, got.AsNumber())
			continue
		}
		assert.Equal(t, tt.want, got.AsNumber(), "parseFloat(%q)", tt.in)
	}
}

func TestParseInt(t *testing.T) {
	h := newHarness(t)
	parseInt := h.global("parseInt")
	tests := []struct {
		in    string
		radix vm.Value
		want  float64
	}{
		{"12px", vm.Undefined, 12},
		{"  -42", vm.Undefined, -42},
		{"0x1F", vm.Undefined, 31},
		{"-0x10", n(16), -16},
		{"0x10", n(10), 0},
		{"z", n(36), 35},
		{"777", n(8), 511},
		{"10", n(1), math.NaN()},
		{"10", n(37), math.NaN()},
		{"xyz", vm.Undefined, math.NaN()},
	}
	for _, tt := range tests {
		got, err := h.vm.Call(parseInt, vm.Undefined, s(tt.in), tt.radix)
		require.NoError(t, err)
		if math.IsNaN(tt.want) {
			assert.True(t, math.IsNaN(got.AsNumber()), "parseInt(%q) = %v", tt.in, got.AsNumber())
			continue
		}
		assert.Equal(t, tt.want, got.AsNumber(), "parseInt(%q, %s)", tt.in, tt.radix.String())
	}
}

func TestGlobalValueProperties(t *testing.T) {
	h := newHarness(t)

	got, err := h.vm.Call(h.global("isNaN"), vm.Undefined, s("abc"))
	require.NoError(t, err)
	assert.True(t, got.AsBoolean())
	got, err = h.vm.Call(h.global("isFinite"), vm.Undefined, s("12"))
	require.NoError(t, err)
	assert.True(t, got.AsBoolean())

	assert.True(t, math.IsInf(h.global("Infinity").AsNumber(), 1))
	assert.True(t, h.global("undefined").IsUndefined())

	// NaN is a constant.
	global := h.vm.Realm().GlobalObject
	require.Error(t, h.vm.Put(global, vm.StringKey("NaN"), n(1), true))
	assert.True(t, math.IsNaN(h.global("NaN").AsNumber()))
}
