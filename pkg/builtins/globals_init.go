package builtins

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"

	"jscore/pkg/vm"
)

// decimalPrefix matches the longest StrDecimalLiteral prefix parseFloat
// accepts. Infinity is handled separately.
var decimalPrefix = regexp2.MustCompile(`^[+-]?(?:\d+\.?\d*(?:[eE][+-]?\d+)?|\.\d+(?:[eE][+-]?\d+)?)`, regexp2.ECMAScript)

type GlobalsInitializer struct{}

func (g *GlobalsInitializer) Name() string {
	return "Globals"
}

func (g *GlobalsInitializer) Priority() int {
	return PriorityGlobals
}

func (g *GlobalsInitializer) InitRealm(r *vm.Realm) error {
	global := r.GlobalObject

	// Value properties are non-writable and non-configurable.
	global.SetOwnConstant(vm.StringKey("undefined"), vm.Undefined)
	global.SetOwnConstant(vm.StringKey("NaN"), vm.NaN)
	global.SetOwnConstant(vm.StringKey("Infinity"), vm.NumberValue(math.Inf(1)))

	method(r, global, "isNaN", 1, func(call vm.FunctionCall) (vm.Value, error) {
		f, err := call.VM.ToNumber(call.Argument(0))
		return vm.BooleanValue(math.IsNaN(f)), err
	})

	method(r, global, "isFinite", 1, func(call vm.FunctionCall) (vm.Value, error) {
		f, err := call.VM.ToNumber(call.Argument(0))
		return vm.BooleanValue(!math.IsNaN(f) && !math.IsInf(f, 0)), err
	})

	method(r, global, "parseFloat", 1, func(call vm.FunctionCall) (vm.Value, error) {
		s, err := call.VM.ToString(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		return vm.NumberValue(parseFloatPrefix(strings.TrimLeftFunc(s, isTrimmable))), nil
	})

	method(r, global, "parseInt", 2, func(call vm.FunctionCall) (vm.Value, error) {
		s, err := call.VM.ToString(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		radix, err := call.VM.ToInt32(call.Argument(1))
		if err != nil {
			return vm.Undefined, err
		}
		return vm.NumberValue(parseIntPrefix(strings.TrimLeftFunc(s, isTrimmable), int(radix))), nil
	})

	return nil
}

func parseFloatPrefix(s string) float64 {
	for _, inf := range []string{"Infinity", "+Infinity"} {
		if strings.HasPrefix(s, inf) {
			return math.Inf(1)
		}
	}
	if strings.HasPrefix(s, "-Infinity") {
		return math.Inf(-1)
	}
	m, err := decimalPrefix.FindStringMatch(s)
	if err != nil || m == nil {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(m.String(), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}

func parseIntPrefix(s string, radix int) float64 {
	sign := 1.0
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	stripPrefix := true
	switch {
	case radix == 0:
		radix = 10
	case radix < 2 || radix > 36:
		return math.NaN()
	case radix != 16:
		stripPrefix = false
	}
	if stripPrefix && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		s = s[2:]
		radix = 16
	}

	end := 0
	for end < len(s) && digitValue(s[end]) < radix {
		end++
	}
	if end == 0 {
		return math.NaN()
	}
	digits := s[:end]
	if radix == 10 {
		// Decimal strings round correctly through ParseFloat.
		f, _ := strconv.ParseFloat(digits, 64)
		return sign * f
	}
	result := 0.0
	for i := 0; i < len(digits); i++ {
		result = result*float64(radix) + float64(digitValue(digits[i]))
	}
	return sign * result
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return 36
}
