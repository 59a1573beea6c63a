package builtins

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf16"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"jscore/pkg/vm"
)

type StringInitializer struct{}

func (s *StringInitializer) Name() string {
	return "String"
}

func (s *StringInitializer) Priority() int {
	return PriorityString
}

func (s *StringInitializer) InitRealm(r *vm.Realm) error {
	stringProto := r.StringPrototype

	// String(value) renders symbols descriptively; new String(value) wraps.
	call := func(call vm.FunctionCall) (vm.Value, error) {
		if len(call.Args) == 0 {
			return vm.NewString(""), nil
		}
		if v := call.Args[0]; v.IsSymbol() {
			return vm.NewString(v.AsSymbol().String()), nil
		}
		return call.VM.ToStringValue(call.Args[0])
	}
	construct := func(call vm.FunctionCall) (vm.Value, error) {
		str := vm.NewString("")
		if len(call.Args) > 0 {
			var err error
			if str, err = call.VM.ToStringValue(call.Args[0]); err != nil {
				return vm.Undefined, err
			}
		}
		proto, err := call.VM.GetPrototypeFromConstructor(call.NewTarget, r.StringPrototype)
		if err != nil {
			return vm.Undefined, err
		}
		return call.VM.NewPrimitiveWrapper(str, proto).Value(), nil
	}
	ctor := r.NewNativeConstructor("String", 1, call, construct, stringProto)
	r.SetGlobal("String", ctor.Value())

	// String.fromCharCode(...codeUnits)
	method(r, ctor, "fromCharCode", 1, func(call vm.FunctionCall) (vm.Value, error) {
		units := make([]uint16, 0, len(call.Args))
		for _, a := range call.Args {
			u, err := call.VM.ToUint16(a)
			if err != nil {
				return vm.Undefined, err
			}
			units = append(units, uint16(u))
		}
		return vm.NewStringFromUTF16(units), nil
	})

	// String.fromCodePoint(...codePoints)
	method(r, ctor, "fromCodePoint", 1, func(call vm.FunctionCall) (vm.Value, error) {
		units := make([]uint16, 0, len(call.Args))
		for _, a := range call.Args {
			f, err := call.VM.ToNumber(a)
			if err != nil {
				return vm.Undefined, err
			}
			if f != math.Trunc(f) || f < 0 || f > 0x10FFFF {
				return vm.Undefined, call.VM.NewRangeError("Invalid code point %s", vm.NumberToString(f, 10))
			}
			units = utf16.AppendRune(units, rune(f))
		}
		return vm.NewStringFromUTF16(units), nil
	})

	s.initPrototype(r, stringProto)
	return nil
}

func (s *StringInitializer) initPrototype(r *vm.Realm, stringProto *vm.Object) {
	valueOf := func(call vm.FunctionCall) (vm.Value, error) {
		return thisStringValue(call, "String.prototype.valueOf")
	}
	method(r, stringProto, "toString", 0, valueOf)
	method(r, stringProto, "valueOf", 0, valueOf)

	method(r, stringProto, "charAt", 1, stringMethod(func(call vm.FunctionCall, str vm.Value) (vm.Value, error) {
		pos, err := call.VM.ToIntegerOrInfinity(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		if pos < 0 || pos >= float64(str.StringLength()) {
			return vm.NewString(""), nil
		}
		return vm.NewStringFromUTF16([]uint16{str.CodeUnitAt(int(pos))}), nil
	}))

	method(r, stringProto, "charCodeAt", 1, stringMethod(func(call vm.FunctionCall, str vm.Value) (vm.Value, error) {
		pos, err := call.VM.ToIntegerOrInfinity(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		if pos < 0 || pos >= float64(str.StringLength()) {
			return vm.NaN, nil
		}
		return vm.IntegerValue(int32(str.CodeUnitAt(int(pos)))), nil
	}))

	method(r, stringProto, "codePointAt", 1, stringMethod(func(call vm.FunctionCall, str vm.Value) (vm.Value, error) {
		pos, err := call.VM.ToIntegerOrInfinity(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		n := str.StringLength()
		if pos < 0 || pos >= float64(n) {
			return vm.Undefined, nil
		}
		i := int(pos)
		first := str.CodeUnitAt(i)
		if utf16.IsSurrogate(rune(first)) && first <= 0xDBFF && i+1 < n {
			if cp := utf16.DecodeRune(rune(first), rune(str.CodeUnitAt(i+1))); cp != unicode.ReplacementChar {
				return vm.IntegerValue(int32(cp)), nil
			}
		}
		return vm.IntegerValue(int32(first)), nil
	}))

	method(r, stringProto, "at", 1, stringMethod(func(call vm.FunctionCall, str vm.Value) (vm.Value, error) {
		rel, err := call.VM.ToIntegerOrInfinity(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		n := float64(str.StringLength())
		k := rel
		if rel < 0 {
			k = n + rel
		}
		if k < 0 || k >= n {
			return vm.Undefined, nil
		}
		return vm.NewStringFromUTF16([]uint16{str.CodeUnitAt(int(k))}), nil
	}))

	method(r, stringProto, "indexOf", 1, stringMethod(func(call vm.FunctionCall, str vm.Value) (vm.Value, error) {
		search, err := call.VM.ToStringValue(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		pos, err := call.VM.ToIntegerOrInfinity(call.Argument(1))
		if err != nil {
			return vm.Undefined, err
		}
		start := int(math.Min(math.Max(pos, 0), float64(str.StringLength())))
		return vm.IntegerValue(int32(indexOfUnits(str.CodeUnits(), search.CodeUnits(), start))), nil
	}))

	method(r, stringProto, "includes", 1, stringMethod(func(call vm.FunctionCall, str vm.Value) (vm.Value, error) {
		search, err := searchString(call, "includes")
		if err != nil {
			return vm.Undefined, err
		}
		pos, err := call.VM.ToIntegerOrInfinity(call.Argument(1))
		if err != nil {
			return vm.Undefined, err
		}
		start := int(math.Min(math.Max(pos, 0), float64(str.StringLength())))
		return vm.BooleanValue(indexOfUnits(str.CodeUnits(), search.CodeUnits(), start) >= 0), nil
	}))

	method(r, stringProto, "startsWith", 1, stringMethod(func(call vm.FunctionCall, str vm.Value) (vm.Value, error) {
		search, err := searchString(call, "startsWith")
		if err != nil {
			return vm.Undefined, err
		}
		pos, err := call.VM.ToIntegerOrInfinity(call.Argument(1))
		if err != nil {
			return vm.Undefined, err
		}
		units, sub := str.CodeUnits(), search.CodeUnits()
		start := int(math.Min(math.Max(pos, 0), float64(len(units))))
		if start+len(sub) > len(units) {
			return vm.False, nil
		}
		return vm.BooleanValue(equalUnits(units[start:start+len(sub)], sub)), nil
	}))

	method(r, stringProto, "endsWith", 1, stringMethod(func(call vm.FunctionCall, str vm.Value) (vm.Value, error) {
		search, err := searchString(call, "endsWith")
		if err != nil {
			return vm.Undefined, err
		}
		units, sub := str.CodeUnits(), search.CodeUnits()
		end := len(units)
		if p := call.Argument(1); !p.IsUndefined() {
			pos, err := call.VM.ToIntegerOrInfinity(p)
			if err != nil {
				return vm.Undefined, err
			}
			end = int(math.Min(math.Max(pos, 0), float64(len(units))))
		}
		start := end - len(sub)
		if start < 0 {
			return vm.False, nil
		}
		return vm.BooleanValue(equalUnits(units[start:end], sub)), nil
	}))

	method(r, stringProto, "slice", 2, stringMethod(func(call vm.FunctionCall, str vm.Value) (vm.Value, error) {
		n := int64(str.StringLength())
		from, err := relativeIndex(call.VM, call.Argument(0), n, 0)
		if err != nil {
			return vm.Undefined, err
		}
		to, err := relativeIndex(call.VM, call.Argument(1), n, n)
		if err != nil {
			return vm.Undefined, err
		}
		if from >= to {
			return vm.NewString(""), nil
		}
		return vm.NewStringFromUTF16(str.CodeUnits()[from:to]), nil
	}))

	method(r, stringProto, "substring", 2, stringMethod(func(call vm.FunctionCall, str vm.Value) (vm.Value, error) {
		n := float64(str.StringLength())
		clamp := func(v vm.Value, dflt float64) (int, error) {
			if v.IsUndefined() {
				return int(dflt), nil
			}
			f, err := call.VM.ToIntegerOrInfinity(v)
			return int(math.Min(math.Max(f, 0), n)), err
		}
		start, err := clamp(call.Argument(0), 0)
		if err != nil {
			return vm.Undefined, err
		}
		end, err := clamp(call.Argument(1), n)
		if err != nil {
			return vm.Undefined, err
		}
		if start > end {
			start, end = end, start
		}
		return vm.NewStringFromUTF16(str.CodeUnits()[start:end]), nil
	}))

	method(r, stringProto, "concat", 1, stringMethod(func(call vm.FunctionCall, str vm.Value) (vm.Value, error) {
		var sb strings.Builder
		sb.WriteString(str.AsString())
		for _, a := range call.Args {
			s, err := call.VM.ToString(a)
			if err != nil {
				return vm.Undefined, err
			}
			sb.WriteString(s)
		}
		return vm.NewString(sb.String()), nil
	}))

	method(r, stringProto, "repeat", 1, stringMethod(func(call vm.FunctionCall, str vm.Value) (vm.Value, error) {
		count, err := call.VM.ToIntegerOrInfinity(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		if count < 0 || math.IsInf(count, 1) {
			return vm.Undefined, call.VM.NewRangeError("Invalid count value: %s", vm.NumberToString(count, 10))
		}
		if str.StringLength() == 0 || count == 0 {
			return vm.NewString(""), nil
		}
		if count*float64(str.StringLength()) > 1<<29 {
			return vm.Undefined, call.VM.NewRangeError("Invalid string length")
		}
		return vm.NewString(strings.Repeat(str.AsString(), int(count))), nil
	}))

	method(r, stringProto, "split", 2, stringMethod(func(call vm.FunctionCall, str vm.Value) (vm.Value, error) {
		limit := uint32(math.MaxUint32)
		if l := call.Argument(1); !l.IsUndefined() {
			var err error
			if limit, err = call.VM.ToUint32(l); err != nil {
				return vm.Undefined, err
			}
		}
		sepArg := call.Argument(0)
		sep, err := call.VM.ToStringValue(sepArg)
		if err != nil {
			return vm.Undefined, err
		}
		if limit == 0 {
			return call.VM.NewArray().Value(), nil
		}
		if sepArg.IsUndefined() {
			return call.VM.NewArray(str).Value(), nil
		}
		return call.VM.CreateArrayFromList(splitUnits(str.CodeUnits(), sep.CodeUnits(), int(limit))).Value(), nil
	}))

	trim := func(name string, left, right bool) {
		method(r, stringProto, name, 0, stringMethod(func(call vm.FunctionCall, str vm.Value) (vm.Value, error) {
			s := str.AsString()
			switch {
			case left && right:
				s = vm.TrimJSSpace(s)
			case left:
				s = strings.TrimLeftFunc(s, isTrimmable)
			default:
				s = strings.TrimRightFunc(s, isTrimmable)
			}
			return vm.NewString(s), nil
		}))
	}
	trim("trim", true, true)
	trim("trimStart", true, false)
	trim("trimEnd", false, true)

	// Full Unicode case mapping, including the length-changing mappings
	// (e.g. "ß" → "SS").
	upper, lower := cases.Upper(language.Und), cases.Lower(language.Und)
	caseMethod := func(name string, c cases.Caser) {
		method(r, stringProto, name, 0, stringMethod(func(call vm.FunctionCall, str vm.Value) (vm.Value, error) {
			return vm.NewString(c.String(str.AsString())), nil
		}))
	}
	caseMethod("toUpperCase", upper)
	caseMethod("toLowerCase", lower)
	caseMethod("toLocaleUpperCase", upper)
	caseMethod("toLocaleLowerCase", lower)

	method(r, stringProto, "normalize", 0, stringMethod(func(call vm.FunctionCall, str vm.Value) (vm.Value, error) {
		form := "NFC"
		if f := call.Argument(0); !f.IsUndefined() {
			var err error
			if form, err = call.VM.ToString(f); err != nil {
				return vm.Undefined, err
			}
		}
		var nf norm.Form
		switch form {
		case "NFC":
			nf = norm.NFC
		case "NFD":
			nf = norm.NFD
		case "NFKC":
			nf = norm.NFKC
		case "NFKD":
			nf = norm.NFKD
		default:
			return vm.Undefined, call.VM.NewRangeError("The normalization form should be one of NFC, NFD, NFKC, NFKD.")
		}
		return vm.NewString(nf.String(str.AsString())), nil
	}))

	symbolMethod(r, stringProto, vm.SymIterator, 0, stringMethod(func(call vm.FunctionCall, str vm.Value) (vm.Value, error) {
		return call.VM.CreateStringIterator(str).Value(), nil
	}))
}

// thisStringValue unwraps a string primitive or String object.
func thisStringValue(call vm.FunctionCall, method string) (vm.Value, error) {
	if call.This.IsString() {
		return call.This, nil
	}
	if call.This.IsObject() && call.This.AsObject().Kind() == vm.KindString {
		v, _ := call.This.AsObject().PrimitiveValue()
		return v, nil
	}
	return vm.Undefined, call.VM.NewTypeError("%s requires that 'this' be a String", method)
}

// stringMethod coerces this with RequireObjectCoercible and ToString before
// running fn.
func stringMethod(fn func(call vm.FunctionCall, str vm.Value) (vm.Value, error)) vm.NativeFunction {
	return func(call vm.FunctionCall) (vm.Value, error) {
		if call.This.IsNullish() {
			return vm.Undefined, call.VM.NewTypeError("String.prototype method called on null or undefined")
		}
		str, err := call.VM.ToStringValue(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		return fn(call, str)
	}
}

// searchString rejects regular expressions the way includes/startsWith/
// endsWith require. Without a RegExp builtin only objects with a truthy
// @@match are treated as such.
func searchString(call vm.FunctionCall, method string) (vm.Value, error) {
	arg := call.Argument(0)
	if arg.IsObject() {
		m, err := call.VM.Get(arg.AsObject(), vm.SymbolKey(vm.SymMatch))
		if err != nil {
			return vm.Undefined, err
		}
		if !m.IsUndefined() && vm.ToBoolean(m) {
			return vm.Undefined, call.VM.NewTypeError("First argument to String.prototype.%s must not be a regular expression", method)
		}
	}
	return call.VM.ToStringValue(arg)
}

func indexOfUnits(units, sub []uint16, start int) int {
	for i := start; i+len(sub) <= len(units); i++ {
		if equalUnits(units[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func equalUnits(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func splitUnits(units, sep []uint16, limit int) []vm.Value {
	var out []vm.Value
	if len(sep) == 0 {
		for i := 0; i < len(units) && len(out) < limit; i++ {
			out = append(out, vm.NewStringFromUTF16(units[i:i+1]))
		}
		return out
	}
	start := 0
	for len(out) < limit {
		i := indexOfUnits(units, sep, start)
		if i < 0 {
			out = append(out, vm.NewStringFromUTF16(units[start:]))
			break
		}
		out = append(out, vm.NewStringFromUTF16(units[start:i]))
		start = i + len(sep)
	}
	return out
}

func isTrimmable(r rune) bool {
	return vm.TrimJSSpace(string(r)) == ""
}
