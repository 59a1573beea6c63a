package builtins

import (
	"jscore/pkg/vm"
)

type BooleanInitializer struct{}

func (b *BooleanInitializer) Name() string {
	return "Boolean"
}

func (b *BooleanInitializer) Priority() int {
	return PriorityBoolean
}

func (b *BooleanInitializer) InitRealm(r *vm.Realm) error {
	booleanProto := r.BooleanPrototype

	call := func(call vm.FunctionCall) (vm.Value, error) {
		return vm.BooleanValue(vm.ToBoolean(call.Argument(0))), nil
	}
	construct := func(call vm.FunctionCall) (vm.Value, error) {
		proto, err := call.VM.GetPrototypeFromConstructor(call.NewTarget, r.BooleanPrototype)
		if err != nil {
			return vm.Undefined, err
		}
		return call.VM.NewPrimitiveWrapper(vm.BooleanValue(vm.ToBoolean(call.Argument(0))), proto).Value(), nil
	}
	ctor := r.NewNativeConstructor("Boolean", 1, call, construct, booleanProto)
	r.SetGlobal("Boolean", ctor.Value())

	method(r, booleanProto, "toString", 0, func(call vm.FunctionCall) (vm.Value, error) {
		b, err := thisBooleanValue(call, "Boolean.prototype.toString")
		if err != nil {
			return vm.Undefined, err
		}
		if b {
			return vm.NewString("true"), nil
		}
		return vm.NewString("false"), nil
	})

	method(r, booleanProto, "valueOf", 0, func(call vm.FunctionCall) (vm.Value, error) {
		b, err := thisBooleanValue(call, "Boolean.prototype.valueOf")
		return vm.BooleanValue(b), err
	})

	return nil
}

func thisBooleanValue(call vm.FunctionCall, method string) (bool, error) {
	if call.This.IsBoolean() {
		return call.This.AsBoolean(), nil
	}
	if call.This.IsObject() {
		if v, ok := call.This.AsObject().PrimitiveValue(); ok && v.IsBoolean() {
			return v.AsBoolean(), nil
		}
	}
	return false, call.VM.NewTypeError("%s requires that 'this' be a Boolean", method)
}
