package builtins

import (
	"math"

	"jscore/pkg/vm"
)

// FunctionInitializer implements the Function builtin
type FunctionInitializer struct{}

func (f *FunctionInitializer) Name() string {
	return "Function"
}

func (f *FunctionInitializer) Priority() int {
	return PriorityFunction // Must be after Object but before others
}

func (f *FunctionInitializer) InitRealm(r *vm.Realm) error {
	functionProto := r.FunctionPrototype

	// There is no source compiler, so Function("...") cannot build a body.
	compile := func(call vm.FunctionCall) (vm.Value, error) {
		return vm.Undefined, call.VM.NewSyntaxError("Dynamic function compilation is not supported")
	}
	ctor := r.NewNativeConstructor("Function", 1, compile, compile, functionProto)
	r.SetGlobal("Function", ctor.Value())

	// Function.prototype.call
	method(r, functionProto, "call", 1, func(call vm.FunctionCall) (vm.Value, error) {
		if !call.This.IsCallable() {
			return vm.Undefined, call.VM.NewTypeError("Function.prototype.call called on non-function")
		}
		var args []vm.Value
		if len(call.Args) > 1 {
			args = call.Args[1:]
		}
		return call.VM.Call(call.This, call.Argument(0), args...)
	})

	// Function.prototype.apply
	method(r, functionProto, "apply", 2, func(call vm.FunctionCall) (vm.Value, error) {
		if !call.This.IsCallable() {
			return vm.Undefined, call.VM.NewTypeError("Function.prototype.apply called on non-function")
		}
		argArray := call.Argument(1)
		if argArray.IsNullish() {
			return call.VM.Call(call.This, call.Argument(0))
		}
		args, err := call.VM.CreateListFromArrayLike(argArray, false)
		if err != nil {
			return vm.Undefined, err
		}
		return call.VM.Call(call.This, call.Argument(0), args...)
	})

	// Function.prototype.bind
	method(r, functionProto, "bind", 1, func(call vm.FunctionCall) (vm.Value, error) {
		if !call.This.IsCallable() {
			return vm.Undefined, call.VM.NewTypeError("Bind must be called on a function")
		}
		target := call.This.AsObject()
		var boundArgs []vm.Value
		if len(call.Args) > 1 {
			boundArgs = call.Args[1:]
		}
		bound, err := call.VM.BoundFunctionCreate(target, call.Argument(0), boundArgs)
		if err != nil {
			return vm.Undefined, err
		}
		length, err := boundLength(call.VM, target, len(boundArgs))
		if err != nil {
			return vm.Undefined, err
		}
		bound.SetOwnReadonly(vm.StringKey("length"), vm.NumberValue(length))

		name, err := call.VM.Get(target, vm.StringKey("name"))
		if err != nil {
			return vm.Undefined, err
		}
		if !name.IsString() {
			name = vm.NewString("")
		}
		vm.SetFunctionName(bound, vm.StringKey(name.AsString()), "bound")
		return bound.Value(), nil
	})

	// Function.prototype.toString
	method(r, functionProto, "toString", 0, func(call vm.FunctionCall) (vm.Value, error) {
		if !call.This.IsCallable() {
			return vm.Undefined, call.VM.NewTypeError("Function.prototype.toString requires that 'this' be a Function")
		}
		name, _ := call.This.AsObject().OwnDataValue(vm.StringKey("name"))
		s := "function () { [native code] }"
		if name.IsString() && name.AsString() != "" {
			s = "function " + name.AsString() + "() { [native code] }"
		}
		return vm.NewString(s), nil
	})

	// Function.prototype[@@hasInstance] is non-writable and non-configurable.
	hasInstance := r.NewNativeFunction("[Symbol.hasInstance]", 1, func(call vm.FunctionCall) (vm.Value, error) {
		ok, err := call.VM.OrdinaryHasInstance(call.This, call.Argument(0))
		return vm.BooleanValue(ok), err
	})
	functionProto.SetOwnConstant(vm.SymbolKey(vm.SymHasInstance), hasInstance.Value())

	return nil
}

// boundLength is max(0, target.length - boundArgs) when the target has an
// own numeric length.
func boundLength(machine *vm.VM, target *vm.Object, boundArgs int) (float64, error) {
	has, err := machine.HasOwnProperty(target, vm.StringKey("length"))
	if err != nil || !has {
		return 0, err
	}
	l, err := machine.Get(target, vm.StringKey("length"))
	if err != nil || !l.IsNumber() {
		return 0, err
	}
	n := l.AsNumber()
	switch {
	case math.IsInf(n, 1):
		return n, nil
	case math.IsInf(n, -1), math.IsNaN(n):
		return 0, nil
	}
	return math.Max(0, math.Trunc(n)-float64(boundArgs)), nil
}
