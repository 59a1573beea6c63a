package builtins

import (
	"jscore/pkg/vm"
)

// ReflectInitializer installs the Reflect namespace. Each function is a thin
// wrapper over the matching internal method.
type ReflectInitializer struct{}

func (ri *ReflectInitializer) Name() string {
	return "Reflect"
}

func (ri *ReflectInitializer) Priority() int {
	return PriorityReflect
}

func (ri *ReflectInitializer) InitRealm(r *vm.Realm) error {
	reflect := r.NewObject()
	toStringTag(reflect, "Reflect")
	r.SetGlobal("Reflect", reflect.Value())

	method(r, reflect, "apply", 3, func(call vm.FunctionCall) (vm.Value, error) {
		target := call.Argument(0)
		if !target.IsCallable() {
			return vm.Undefined, call.VM.NewTypeError("Function.prototype.apply was called on %s, which is not a function", target.String())
		}
		args, err := call.VM.CreateListFromArrayLike(call.Argument(2), false)
		if err != nil {
			return vm.Undefined, err
		}
		return call.VM.Call(target, call.Argument(1), args...)
	})

	method(r, reflect, "construct", 2, func(call vm.FunctionCall) (vm.Value, error) {
		target := call.Argument(0)
		if !target.IsConstructor() {
			return vm.Undefined, call.VM.NewTypeError("%s is not a constructor", target.String())
		}
		newTarget := target
		if len(call.Args) > 2 {
			newTarget = call.Args[2]
			if !newTarget.IsConstructor() {
				return vm.Undefined, call.VM.NewTypeError("%s is not a constructor", newTarget.String())
			}
		}
		args, err := call.VM.CreateListFromArrayLike(call.Argument(1), false)
		if err != nil {
			return vm.Undefined, err
		}
		return call.VM.Construct(target, args, newTarget.AsObject())
	})

	method(r, reflect, "defineProperty", 3, func(call vm.FunctionCall) (vm.Value, error) {
		o, key, err := reflectTarget(call, "defineProperty")
		if err != nil {
			return vm.Undefined, err
		}
		desc, err := call.VM.ToPropertyDescriptor(call.Argument(2))
		if err != nil {
			return vm.Undefined, err
		}
		ok, err := o.DefineOwnProperty(call.VM, key, desc)
		return vm.BooleanValue(ok), err
	})

	method(r, reflect, "deleteProperty", 2, func(call vm.FunctionCall) (vm.Value, error) {
		o, key, err := reflectTarget(call, "deleteProperty")
		if err != nil {
			return vm.Undefined, err
		}
		ok, err := o.Delete(call.VM, key)
		return vm.BooleanValue(ok), err
	})

	method(r, reflect, "get", 2, func(call vm.FunctionCall) (vm.Value, error) {
		o, key, err := reflectTarget(call, "get")
		if err != nil {
			return vm.Undefined, err
		}
		receiver := o.Value()
		if len(call.Args) > 2 {
			receiver = call.Args[2]
		}
		return o.Get(call.VM, key, receiver)
	})

	method(r, reflect, "getOwnPropertyDescriptor", 2, func(call vm.FunctionCall) (vm.Value, error) {
		o, key, err := reflectTarget(call, "getOwnPropertyDescriptor")
		if err != nil {
			return vm.Undefined, err
		}
		desc, ok, err := o.GetOwnProperty(call.VM, key)
		if err != nil {
			return vm.Undefined, err
		}
		return call.VM.FromPropertyDescriptor(desc, ok), nil
	})

	method(r, reflect, "getPrototypeOf", 1, func(call vm.FunctionCall) (vm.Value, error) {
		o, err := argObject(call, 0, "Reflect.getPrototypeOf")
		if err != nil {
			return vm.Undefined, err
		}
		p, err := o.GetPrototypeOf(call.VM)
		if err != nil || p == nil {
			return vm.Null, err
		}
		return p.Value(), nil
	})

	method(r, reflect, "has", 2, func(call vm.FunctionCall) (vm.Value, error) {
		o, key, err := reflectTarget(call, "has")
		if err != nil {
			return vm.Undefined, err
		}
		ok, err := o.HasProperty(call.VM, key)
		return vm.BooleanValue(ok), err
	})

	method(r, reflect, "isExtensible", 1, func(call vm.FunctionCall) (vm.Value, error) {
		o, err := argObject(call, 0, "Reflect.isExtensible")
		if err != nil {
			return vm.Undefined, err
		}
		ok, err := o.IsExtensible(call.VM)
		return vm.BooleanValue(ok), err
	})

	method(r, reflect, "ownKeys", 1, func(call vm.FunctionCall) (vm.Value, error) {
		o, err := argObject(call, 0, "Reflect.ownKeys")
		if err != nil {
			return vm.Undefined, err
		}
		keys, err := o.OwnPropertyKeys(call.VM)
		if err != nil {
			return vm.Undefined, err
		}
		list := make([]vm.Value, len(keys))
		for i, k := range keys {
			list[i] = k.Value()
		}
		return call.VM.CreateArrayFromList(list).Value(), nil
	})

	method(r, reflect, "preventExtensions", 1, func(call vm.FunctionCall) (vm.Value, error) {
		o, err := argObject(call, 0, "Reflect.preventExtensions")
		if err != nil {
			return vm.Undefined, err
		}
		ok, err := o.PreventExtensions(call.VM)
		return vm.BooleanValue(ok), err
	})

	method(r, reflect, "set", 3, func(call vm.FunctionCall) (vm.Value, error) {
		o, key, err := reflectTarget(call, "set")
		if err != nil {
			return vm.Undefined, err
		}
		receiver := o.Value()
		if len(call.Args) > 3 {
			receiver = call.Args[3]
		}
		ok, err := o.Set(call.VM, key, call.Argument(2), receiver)
		return vm.BooleanValue(ok), err
	})

	method(r, reflect, "setPrototypeOf", 2, func(call vm.FunctionCall) (vm.Value, error) {
		o, err := argObject(call, 0, "Reflect.setPrototypeOf")
		if err != nil {
			return vm.Undefined, err
		}
		protoArg := call.Argument(1)
		if !protoArg.IsObject() && !protoArg.IsNull() {
			return vm.Undefined, call.VM.NewTypeError("Object prototype may only be an Object or null: %s", protoArg.String())
		}
		var p *vm.Object
		if protoArg.IsObject() {
			p = protoArg.AsObject()
		}
		ok, err := o.SetPrototypeOf(call.VM, p)
		return vm.BooleanValue(ok), err
	})

	return nil
}

// reflectTarget validates the target argument and converts the key argument.
func reflectTarget(call vm.FunctionCall, name string) (*vm.Object, vm.PropertyKey, error) {
	o, err := argObject(call, 0, "Reflect."+name)
	if err != nil {
		return nil, vm.PropertyKey{}, err
	}
	key, err := call.VM.ToPropertyKey(call.Argument(1))
	return o, key, err
}
