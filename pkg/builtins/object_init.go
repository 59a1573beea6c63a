package builtins

import (
	"jscore/pkg/vm"
)

type ObjectInitializer struct{}

func (o *ObjectInitializer) Name() string  { return "Object" }
func (o *ObjectInitializer) Priority() int { return PriorityObject }

func (o *ObjectInitializer) InitRealm(r *vm.Realm) error {
	proto := r.ObjectPrototype

	var ctor *vm.Object
	construct := func(call vm.FunctionCall) (vm.Value, error) {
		if call.NewTarget != nil && call.NewTarget != ctor {
			obj, err := call.VM.OrdinaryCreateFromConstructor(call.NewTarget, r.ObjectPrototype)
			if err != nil {
				return vm.Undefined, err
			}
			return obj.Value(), nil
		}
		v := call.Argument(0)
		if v.IsNullish() {
			return r.NewObject().Value(), nil
		}
		obj, err := call.VM.ToObject(v)
		if err != nil {
			return vm.Undefined, err
		}
		return obj.Value(), nil
	}
	ctor = r.NewNativeConstructor("Object", 1, construct, construct, proto)
	r.SetGlobal("Object", ctor.Value())

	o.initStatics(r, ctor)
	o.initPrototype(r, proto)
	return nil
}

func (o *ObjectInitializer) initStatics(r *vm.Realm, ctor *vm.Object) {
	// Object.getPrototypeOf(O)
	method(r, ctor, "getPrototypeOf", 1, func(call vm.FunctionCall) (vm.Value, error) {
		obj, err := call.VM.ToObject(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		p, err := obj.GetPrototypeOf(call.VM)
		if err != nil || p == nil {
			return vm.Null, err
		}
		return p.Value(), nil
	})

	// Object.setPrototypeOf(O, proto)
	method(r, ctor, "setPrototypeOf", 2, func(call vm.FunctionCall) (vm.Value, error) {
		target, protoArg := call.Argument(0), call.Argument(1)
		if target.IsNullish() {
			return vm.Undefined, call.VM.NewTypeError("Object.setPrototypeOf called on null or undefined")
		}
		if !protoArg.IsObject() && !protoArg.IsNull() {
			return vm.Undefined, call.VM.NewTypeError("Object prototype may only be an Object or null: %s", protoArg.String())
		}
		if !target.IsObject() {
			return target, nil
		}
		var p *vm.Object
		if protoArg.IsObject() {
			p = protoArg.AsObject()
		}
		ok, err := target.AsObject().SetPrototypeOf(call.VM, p)
		if err != nil {
			return vm.Undefined, err
		}
		if !ok {
			return vm.Undefined, call.VM.NewTypeError("Cannot set prototype of %s", target.String())
		}
		return target, nil
	})

	// Object.create(proto [, properties])
	method(r, ctor, "create", 2, func(call vm.FunctionCall) (vm.Value, error) {
		protoArg := call.Argument(0)
		if !protoArg.IsObject() && !protoArg.IsNull() {
			return vm.Undefined, call.VM.NewTypeError("Object prototype may only be an Object or null: %s", protoArg.String())
		}
		var p *vm.Object
		if protoArg.IsObject() {
			p = protoArg.AsObject()
		}
		obj := call.VM.Realm().NewObjectWithPrototype(p)
		if props := call.Argument(1); !props.IsUndefined() {
			if err := objectDefineProperties(call.VM, obj, props); err != nil {
				return vm.Undefined, err
			}
		}
		return obj.Value(), nil
	})

	// Object.defineProperty(O, P, Attributes)
	method(r, ctor, "defineProperty", 3, func(call vm.FunctionCall) (vm.Value, error) {
		obj, err := argObject(call, 0, "Object.defineProperty")
		if err != nil {
			return vm.Undefined, err
		}
		key, err := call.VM.ToPropertyKey(call.Argument(1))
		if err != nil {
			return vm.Undefined, err
		}
		desc, err := call.VM.ToPropertyDescriptor(call.Argument(2))
		if err != nil {
			return vm.Undefined, err
		}
		if err := call.VM.DefinePropertyOrThrow(obj, key, desc); err != nil {
			return vm.Undefined, err
		}
		return obj.Value(), nil
	})

	// Object.defineProperties(O, Properties)
	method(r, ctor, "defineProperties", 2, func(call vm.FunctionCall) (vm.Value, error) {
		obj, err := argObject(call, 0, "Object.defineProperties")
		if err != nil {
			return vm.Undefined, err
		}
		if err := objectDefineProperties(call.VM, obj, call.Argument(1)); err != nil {
			return vm.Undefined, err
		}
		return obj.Value(), nil
	})

	// Object.getOwnPropertyDescriptor(O, P)
	method(r, ctor, "getOwnPropertyDescriptor", 2, func(call vm.FunctionCall) (vm.Value, error) {
		obj, err := call.VM.ToObject(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		key, err := call.VM.ToPropertyKey(call.Argument(1))
		if err != nil {
			return vm.Undefined, err
		}
		desc, ok, err := obj.GetOwnProperty(call.VM, key)
		if err != nil {
			return vm.Undefined, err
		}
		return call.VM.FromPropertyDescriptor(desc, ok), nil
	})

	// Object.getOwnPropertyDescriptors(O)
	method(r, ctor, "getOwnPropertyDescriptors", 1, func(call vm.FunctionCall) (vm.Value, error) {
		obj, err := call.VM.ToObject(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		keys, err := obj.OwnPropertyKeys(call.VM)
		if err != nil {
			return vm.Undefined, err
		}
		out := call.VM.NewObject()
		for _, k := range keys {
			desc, ok, err := obj.GetOwnProperty(call.VM, k)
			if err != nil {
				return vm.Undefined, err
			}
			if ok {
				if _, err := call.VM.CreateDataProperty(out, k, call.VM.FromPropertyDescriptor(desc, true)); err != nil {
					return vm.Undefined, err
				}
			}
		}
		return out.Value(), nil
	})

	// Object.getOwnPropertyNames(O) / Object.getOwnPropertySymbols(O)
	ownKeys := func(symbols bool) vm.NativeFunction {
		return func(call vm.FunctionCall) (vm.Value, error) {
			obj, err := call.VM.ToObject(call.Argument(0))
			if err != nil {
				return vm.Undefined, err
			}
			keys, err := obj.OwnPropertyKeys(call.VM)
			if err != nil {
				return vm.Undefined, err
			}
			var list []vm.Value
			for _, k := range keys {
				if k.IsSymbol() == symbols {
					list = append(list, k.Value())
				}
			}
			return call.VM.CreateArrayFromList(list).Value(), nil
		}
	}
	method(r, ctor, "getOwnPropertyNames", 1, ownKeys(false))
	method(r, ctor, "getOwnPropertySymbols", 1, ownKeys(true))

	// Object.keys / Object.values / Object.entries
	enumerable := func(kind vm.ArrayIterationKind) vm.NativeFunction {
		return func(call vm.FunctionCall) (vm.Value, error) {
			obj, err := call.VM.ToObject(call.Argument(0))
			if err != nil {
				return vm.Undefined, err
			}
			list, err := enumerableOwnProperties(call.VM, obj, kind)
			if err != nil {
				return vm.Undefined, err
			}
			return call.VM.CreateArrayFromList(list).Value(), nil
		}
	}
	method(r, ctor, "keys", 1, enumerable(vm.IterateKeys))
	method(r, ctor, "values", 1, enumerable(vm.IterateValues))
	method(r, ctor, "entries", 1, enumerable(vm.IterateEntries))

	// Object.assign(target, ...sources)
	method(r, ctor, "assign", 2, func(call vm.FunctionCall) (vm.Value, error) {
		to, err := call.VM.ToObject(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		for _, source := range call.Args[min(len(call.Args), 1):] {
			if source.IsNullish() {
				continue
			}
			from, err := call.VM.ToObject(source)
			if err != nil {
				return vm.Undefined, err
			}
			keys, err := from.OwnPropertyKeys(call.VM)
			if err != nil {
				return vm.Undefined, err
			}
			for _, k := range keys {
				desc, ok, err := from.GetOwnProperty(call.VM, k)
				if err != nil {
					return vm.Undefined, err
				}
				if !ok || !desc.Enumerable {
					continue
				}
				v, err := call.VM.Get(from, k)
				if err != nil {
					return vm.Undefined, err
				}
				if err := call.VM.Put(to, k, v, true); err != nil {
					return vm.Undefined, err
				}
			}
		}
		return to.Value(), nil
	})

	// Object.fromEntries(iterable)
	method(r, ctor, "fromEntries", 1, func(call vm.FunctionCall) (vm.Value, error) {
		iterable := call.Argument(0)
		if iterable.IsNullish() {
			return vm.Undefined, call.VM.NewTypeError("%s is not iterable", iterable.String())
		}
		out := call.VM.NewObject()
		err := call.VM.ForOf(iterable, func(entry vm.Value) (bool, error) {
			if !entry.IsObject() {
				return false, call.VM.NewTypeError("Iterator value %s is not an entry object", entry.String())
			}
			k, err := call.VM.Get(entry.AsObject(), vm.StringKey("0"))
			if err != nil {
				return false, err
			}
			v, err := call.VM.Get(entry.AsObject(), vm.StringKey("1"))
			if err != nil {
				return false, err
			}
			key, err := call.VM.ToPropertyKey(k)
			if err != nil {
				return false, err
			}
			_, err = call.VM.CreateDataProperty(out, key, v)
			return err == nil, err
		})
		if err != nil {
			return vm.Undefined, err
		}
		return out.Value(), nil
	})

	// Object.is(a, b)
	method(r, ctor, "is", 2, func(call vm.FunctionCall) (vm.Value, error) {
		return vm.BooleanValue(vm.SameValue(call.Argument(0), call.Argument(1))), nil
	})

	// Object.hasOwn(O, P)
	method(r, ctor, "hasOwn", 2, func(call vm.FunctionCall) (vm.Value, error) {
		obj, err := call.VM.ToObject(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		key, err := call.VM.ToPropertyKey(call.Argument(1))
		if err != nil {
			return vm.Undefined, err
		}
		has, err := call.VM.HasOwnProperty(obj, key)
		return vm.BooleanValue(has), err
	})

	// Integrity levels
	setLevel := func(level vm.IntegrityLevel, name string) vm.NativeFunction {
		return func(call vm.FunctionCall) (vm.Value, error) {
			v := call.Argument(0)
			if !v.IsObject() {
				return v, nil
			}
			ok, err := call.VM.SetIntegrityLevel(v.AsObject(), level)
			if err != nil {
				return vm.Undefined, err
			}
			if !ok {
				return vm.Undefined, call.VM.NewTypeError("Cannot %s %s", name, v.String())
			}
			return v, nil
		}
	}
	testLevel := func(level vm.IntegrityLevel) vm.NativeFunction {
		return func(call vm.FunctionCall) (vm.Value, error) {
			v := call.Argument(0)
			if !v.IsObject() {
				return vm.True, nil
			}
			ok, err := call.VM.TestIntegrityLevel(v.AsObject(), level)
			return vm.BooleanValue(ok), err
		}
	}
	method(r, ctor, "freeze", 1, setLevel(vm.Frozen, "freeze"))
	method(r, ctor, "seal", 1, setLevel(vm.Sealed, "seal"))
	method(r, ctor, "isFrozen", 1, testLevel(vm.Frozen))
	method(r, ctor, "isSealed", 1, testLevel(vm.Sealed))

	// Object.preventExtensions(O)
	method(r, ctor, "preventExtensions", 1, func(call vm.FunctionCall) (vm.Value, error) {
		v := call.Argument(0)
		if !v.IsObject() {
			return v, nil
		}
		ok, err := v.AsObject().PreventExtensions(call.VM)
		if err != nil {
			return vm.Undefined, err
		}
		if !ok {
			return vm.Undefined, call.VM.NewTypeError("Cannot prevent extensions of %s", v.String())
		}
		return v, nil
	})

	// Object.isExtensible(O)
	method(r, ctor, "isExtensible", 1, func(call vm.FunctionCall) (vm.Value, error) {
		v := call.Argument(0)
		if !v.IsObject() {
			return vm.False, nil
		}
		ok, err := v.AsObject().IsExtensible(call.VM)
		return vm.BooleanValue(ok), err
	})
}

func (o *ObjectInitializer) initPrototype(r *vm.Realm, proto *vm.Object) {
	// Object.prototype.hasOwnProperty(V)
	method(r, proto, "hasOwnProperty", 1, func(call vm.FunctionCall) (vm.Value, error) {
		key, err := call.VM.ToPropertyKey(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		obj, err := call.VM.ToObject(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		has, err := call.VM.HasOwnProperty(obj, key)
		return vm.BooleanValue(has), err
	})

	// Object.prototype.propertyIsEnumerable(V)
	method(r, proto, "propertyIsEnumerable", 1, func(call vm.FunctionCall) (vm.Value, error) {
		key, err := call.VM.ToPropertyKey(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		obj, err := call.VM.ToObject(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		desc, ok, err := obj.GetOwnProperty(call.VM, key)
		return vm.BooleanValue(ok && desc.Enumerable), err
	})

	// Object.prototype.isPrototypeOf(V)
	method(r, proto, "isPrototypeOf", 1, func(call vm.FunctionCall) (vm.Value, error) {
		v := call.Argument(0)
		if !v.IsObject() {
			return vm.False, nil
		}
		obj, err := call.VM.ToObject(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		cur := v.AsObject()
		for {
			p, err := cur.GetPrototypeOf(call.VM)
			if err != nil {
				return vm.Undefined, err
			}
			if p == nil {
				return vm.False, nil
			}
			if p == obj {
				return vm.True, nil
			}
			cur = p
		}
	})

	// Object.prototype.valueOf()
	method(r, proto, "valueOf", 0, func(call vm.FunctionCall) (vm.Value, error) {
		obj, err := call.VM.ToObject(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		return obj.Value(), nil
	})

	// Object.prototype.toString()
	method(r, proto, "toString", 0, func(call vm.FunctionCall) (vm.Value, error) {
		s, err := objectToString(call.VM, call.This)
		if err != nil {
			return vm.Undefined, err
		}
		return vm.NewString(s), nil
	})

	// Object.prototype.toLocaleString()
	method(r, proto, "toLocaleString", 0, func(call vm.FunctionCall) (vm.Value, error) {
		return call.VM.Invoke(call.This, vm.StringKey("toString"))
	})

	// Object.prototype.__proto__
	protoGetter := r.NewNativeFunction("get __proto__", 0, func(call vm.FunctionCall) (vm.Value, error) {
		obj, err := call.VM.ToObject(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		p, err := obj.GetPrototypeOf(call.VM)
		if err != nil || p == nil {
			return vm.Null, err
		}
		return p.Value(), nil
	})
	protoSetter := r.NewNativeFunction("set __proto__", 1, func(call vm.FunctionCall) (vm.Value, error) {
		if call.This.IsNullish() {
			return vm.Undefined, call.VM.NewTypeError("Object.prototype.__proto__ called on null or undefined")
		}
		p := call.Argument(0)
		if !call.This.IsObject() || (!p.IsObject() && !p.IsNull()) {
			return vm.Undefined, nil
		}
		var next *vm.Object
		if p.IsObject() {
			next = p.AsObject()
		}
		ok, err := call.This.AsObject().SetPrototypeOf(call.VM, next)
		if err != nil {
			return vm.Undefined, err
		}
		if !ok {
			return vm.Undefined, call.VM.NewTypeError("Cyclic __proto__ value")
		}
		return vm.Undefined, nil
	})
	proto.SetOwnAccessor(vm.StringKey("__proto__"), protoGetter.Value(), protoSetter.Value())
}

// objectDefineProperties reads all descriptors before defining any of them.
func objectDefineProperties(machine *vm.VM, obj *vm.Object, properties vm.Value) error {
	props, err := machine.ToObject(properties)
	if err != nil {
		return err
	}
	keys, err := props.OwnPropertyKeys(machine)
	if err != nil {
		return err
	}
	type pending struct {
		key  vm.PropertyKey
		desc vm.PropertyDescriptor
	}
	var descriptors []pending
	for _, k := range keys {
		propDesc, ok, err := props.GetOwnProperty(machine, k)
		if err != nil {
			return err
		}
		if !ok || !propDesc.Enumerable {
			continue
		}
		descObj, err := machine.Get(props, k)
		if err != nil {
			return err
		}
		desc, err := machine.ToPropertyDescriptor(descObj)
		if err != nil {
			return err
		}
		descriptors = append(descriptors, pending{key: k, desc: desc})
	}
	for _, p := range descriptors {
		if err := machine.DefinePropertyOrThrow(obj, p.key, p.desc); err != nil {
			return err
		}
	}
	return nil
}

// enumerableOwnProperties backs Object.keys, values and entries.
func enumerableOwnProperties(machine *vm.VM, obj *vm.Object, kind vm.ArrayIterationKind) ([]vm.Value, error) {
	keys, err := obj.OwnPropertyKeys(machine)
	if err != nil {
		return nil, err
	}
	var out []vm.Value
	for _, k := range keys {
		if k.IsSymbol() {
			continue
		}
		desc, ok, err := obj.GetOwnProperty(machine, k)
		if err != nil {
			return nil, err
		}
		if !ok || !desc.Enumerable {
			continue
		}
		if kind == vm.IterateKeys {
			out = append(out, k.Value())
			continue
		}
		v, err := machine.Get(obj, k)
		if err != nil {
			return nil, err
		}
		if kind == vm.IterateValues {
			out = append(out, v)
		} else {
			out = append(out, machine.NewArray(k.Value(), v).Value())
		}
	}
	return out, nil
}

// objectToString implements Object.prototype.toString.
func objectToString(machine *vm.VM, this vm.Value) (string, error) {
	switch {
	case this.IsUndefined():
		return "[object Undefined]", nil
	case this.IsNull():
		return "[object Null]", nil
	}
	obj, err := machine.ToObject(this)
	if err != nil {
		return "", err
	}
	isArray, err := machine.IsArray(obj.Value())
	if err != nil {
		return "", err
	}
	builtinTag := "Object"
	switch {
	case isArray:
		builtinTag = "Array"
	case obj.Kind() == vm.KindArguments:
		builtinTag = "Arguments"
	case obj.IsCallable():
		builtinTag = "Function"
	case obj.Kind() == vm.KindError:
		builtinTag = "Error"
	case obj.Kind() == vm.KindString:
		builtinTag = "String"
	case obj.Kind() == vm.KindPrimitiveWrapper:
		if pv, _ := obj.PrimitiveValue(); pv.IsBoolean() {
			builtinTag = "Boolean"
		} else if pv.IsNumber() {
			builtinTag = "Number"
		}
	}
	tag, err := machine.Get(obj, vm.SymbolKey(vm.SymToStringTag))
	if err != nil {
		return "", err
	}
	if tag.IsString() {
		builtinTag = tag.AsString()
	}
	return "[object " + builtinTag + "]", nil
}
