package builtins

import (
	"math/big"

	"jscore/pkg/vm"
)

type BigIntInitializer struct{}

func (b *BigIntInitializer) Name() string {
	return "BigInt"
}

func (b *BigIntInitializer) Priority() int {
	return PriorityBigInt
}

func (b *BigIntInitializer) InitRealm(r *vm.Realm) error {
	bigintProto := r.BigIntPrototype

	// BigInt(value) is not a constructor: new BigInt throws.
	call := func(call vm.FunctionCall) (vm.Value, error) {
		prim, err := call.VM.ToPrimitive(call.Argument(0), vm.HintNumber)
		if err != nil {
			return vm.Undefined, err
		}
		if prim.IsNumber() {
			n, err := call.VM.NumberToBigInt(prim.AsNumber())
			if err != nil {
				return vm.Undefined, err
			}
			return vm.NewBigInt(n), nil
		}
		n, err := call.VM.ToBigInt(prim)
		if err != nil {
			return vm.Undefined, err
		}
		return vm.NewBigInt(n), nil
	}
	ctor := r.NewNativeFunction("BigInt", 1, call)
	ctor.SetOwnConstant(vm.StringKey("prototype"), bigintProto.Value())
	bigintProto.SetOwnMethod(vm.StringKey("constructor"), ctor.Value())
	r.SetGlobal("BigInt", ctor.Value())

	// BigInt.asIntN / asUintN
	asN := func(signed bool) vm.NativeFunction {
		return func(call vm.FunctionCall) (vm.Value, error) {
			bits, err := call.VM.ToIndex(call.Argument(0))
			if err != nil {
				return vm.Undefined, err
			}
			n, err := call.VM.ToBigInt(call.Argument(1))
			if err != nil {
				return vm.Undefined, err
			}
			mod := new(big.Int).Lsh(big.NewInt(1), uint(bits))
			res := new(big.Int).Mod(n, mod)
			if signed && bits > 0 && res.Cmp(new(big.Int).Rsh(mod, 1)) >= 0 {
				res.Sub(res, mod)
			}
			return vm.NewBigInt(res), nil
		}
	}
	method(r, ctor, "asIntN", 2, asN(true))
	method(r, ctor, "asUintN", 2, asN(false))

	// BigInt.prototype.toString([radix])
	method(r, bigintProto, "toString", 0, func(call vm.FunctionCall) (vm.Value, error) {
		x, err := thisBigIntValue(call, "BigInt.prototype.toString")
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
		return vm.NewString(vm.BigIntToString(x, int(radix))), nil
	})

	method(r, bigintProto, "toLocaleString", 0, func(call vm.FunctionCall) (vm.Value, error) {
		x, err := thisBigIntValue(call, "BigInt.prototype.toLocaleString")
		if err != nil {
			return vm.Undefined, err
		}
		return vm.NewString(vm.BigIntToString(x, 10)), nil
	})

	method(r, bigintProto, "valueOf", 0, func(call vm.FunctionCall) (vm.Value, error) {
		x, err := thisBigIntValue(call, "BigInt.prototype.valueOf")
		if err != nil {
			return vm.Undefined, err
		}
		return vm.NewBigInt(x), nil
	})

	toStringTag(bigintProto, "BigInt")
	return nil
}

// thisBigIntValue unwraps a bigint primitive or BigInt object.
func thisBigIntValue(call vm.FunctionCall, method string) (*big.Int, error) {
	if call.This.IsBigInt() {
		return call.This.AsBigInt(), nil
	}
	if call.This.IsObject() {
		if v, ok := call.This.AsObject().PrimitiveValue(); ok && v.IsBigInt() {
			return v.AsBigInt(), nil
		}
	}
	return nil, call.VM.NewTypeError("%s requires that 'this' be a BigInt", method)
}
