package builtins

import (
	"math"
	"math/big"

	"jscore/pkg/vm"
)

type NumberInitializer struct{}

func (n *NumberInitializer) Name() string {
	return "Number"
}

func (n *NumberInitializer) Priority() int {
	return PriorityNumber
}

func (n *NumberInitializer) InitRealm(r *vm.Realm) error {
	numberProto := r.NumberPrototype

	// Number(value) converts BigInts by their mathematical value.
	toNumber := func(call vm.FunctionCall) (vm.Value, error) {
		if len(call.Args) == 0 {
			return vm.IntegerValue(0), nil
		}
		prim, err := call.VM.ToNumeric(call.Args[0])
		if err != nil {
			return vm.Undefined, err
		}
		if prim.IsBigInt() {
			f, _ := new(big.Float).SetInt(prim.AsBigInt()).Float64()
			return vm.NumberValue(f), nil
		}
		return prim, nil
	}
	construct := func(call vm.FunctionCall) (vm.Value, error) {
		v, err := toNumber(call)
		if err != nil {
			return vm.Undefined, err
		}
		proto, err := call.VM.GetPrototypeFromConstructor(call.NewTarget, r.NumberPrototype)
		if err != nil {
			return vm.Undefined, err
		}
		return call.VM.NewPrimitiveWrapper(v, proto).Value(), nil
	}
	ctor := r.NewNativeConstructor("Number", 1, toNumber, construct, numberProto)
	r.SetGlobal("Number", ctor.Value())

	ctor.SetOwnConstant(vm.StringKey("MAX_SAFE_INTEGER"), vm.NumberValue(maxSafeLength))
	ctor.SetOwnConstant(vm.StringKey("MIN_SAFE_INTEGER"), vm.NumberValue(-maxSafeLength))
	ctor.SetOwnConstant(vm.StringKey("MAX_VALUE"), vm.NumberValue(math.MaxFloat64))
	ctor.SetOwnConstant(vm.StringKey("MIN_VALUE"), vm.NumberValue(5e-324))
	ctor.SetOwnConstant(vm.StringKey("EPSILON"), vm.NumberValue(math.Nextafter(1, 2)-1))
	ctor.SetOwnConstant(vm.StringKey("POSITIVE_INFINITY"), vm.NumberValue(math.Inf(1)))
	ctor.SetOwnConstant(vm.StringKey("NEGATIVE_INFINITY"), vm.NumberValue(math.Inf(-1)))
	ctor.SetOwnConstant(vm.StringKey("NaN"), vm.NaN)

	method(r, ctor, "isFinite", 1, func(call vm.FunctionCall) (vm.Value, error) {
		v := call.Argument(0)
		return vm.BooleanValue(v.IsNumber() && !math.IsInf(v.AsNumber(), 0) && !math.IsNaN(v.AsNumber())), nil
	})
	method(r, ctor, "isNaN", 1, func(call vm.FunctionCall) (vm.Value, error) {
		v := call.Argument(0)
		return vm.BooleanValue(v.IsNumber() && math.IsNaN(v.AsNumber())), nil
	})
	method(r, ctor, "isInteger", 1, func(call vm.FunctionCall) (vm.Value, error) {
		return vm.BooleanValue(isIntegralNumber(call.Argument(0))), nil
	})
	method(r, ctor, "isSafeInteger", 1, func(call vm.FunctionCall) (vm.Value, error) {
		v := call.Argument(0)
		return vm.BooleanValue(isIntegralNumber(v) && math.Abs(v.AsNumber()) <= maxSafeLength), nil
	})

	// Number.prototype.toString([radix])
	method(r, numberProto, "toString", 1, func(call vm.FunctionCall) (vm.Value, error) {
		x, err := thisNumberValue(call, "Number.prototype.toString")
		if err != nil {
			return vm.Undefined, err
		}
		radix := 10.0
		if rv := call.Argument(0); !rv.IsUndefined() {
			if radix, err = call.VM.ToIntegerOrInfinity(rv); err != nil {
				return vm.Undefined, err
			}
		}
		if radix < 2 || radix > 36 {
			return vm.Undefined, call.VM.NewRangeError("toString() radix must be between 2 and 36")
		}
		return vm.NewString(vm.NumberToString(x, int(radix))), nil
	})

	method(r, numberProto, "toLocaleString", 0, func(call vm.FunctionCall) (vm.Value, error) {
		x, err := thisNumberValue(call, "Number.prototype.toLocaleString")
		if err != nil {
			return vm.Undefined, err
		}
		return vm.NewString(vm.NumberToString(x, 10)), nil
	})

	method(r, numberProto, "valueOf", 0, func(call vm.FunctionCall) (vm.Value, error) {
		x, err := thisNumberValue(call, "Number.prototype.valueOf")
		if err != nil {
			return vm.Undefined, err
		}
		return vm.NumberValue(x), nil
	})

	return nil
}

// thisNumberValue unwraps a number primitive or Number object.
func thisNumberValue(call vm.FunctionCall, method string) (float64, error) {
	if call.This.IsNumber() {
		return call.This.AsNumber(), nil
	}
	if call.This.IsObject() {
		if v, ok := call.This.AsObject().PrimitiveValue(); ok && v.IsNumber() {
			return v.AsNumber(), nil
		}
	}
	return 0, call.VM.NewTypeError("%s requires that 'this' be a Number", method)
}

func isIntegralNumber(v vm.Value) bool {
	if !v.IsNumber() {
		return false
	}
	f := v.AsNumber()
	return !math.IsInf(f, 0) && !math.IsNaN(f) && math.Trunc(f) == f
}
