package builtins

import (
	"strings"

	"jscore/pkg/vm"
)

// TypedArrayInitializer installs the abstract %TypedArray% constructor and
// the eleven concrete typed array constructors.
type TypedArrayInitializer struct{}

func (t *TypedArrayInitializer) Name() string {
	return "TypedArray"
}

func (t *TypedArrayInitializer) Priority() int {
	return PriorityTypedArray
}

func (t *TypedArrayInitializer) InitRealm(r *vm.Realm) error {
	abstract := func(call vm.FunctionCall) (vm.Value, error) {
		return vm.Undefined, call.VM.NewTypeError("Abstract class TypedArray not directly constructable")
	}
	base := r.NewNativeConstructor("TypedArray", 0, abstract, abstract, r.TypedArrayPrototype)

	getter(r, base, vm.SymbolKey(vm.SymSpecies), func(call vm.FunctionCall) (vm.Value, error) {
		return call.This, nil
	})

	// %TypedArray%.from(source [, mapfn [, thisArg]])
	method(r, base, "from", 1, func(call vm.FunctionCall) (vm.Value, error) {
		c := call.This
		if !c.IsConstructor() {
			return vm.Undefined, call.VM.NewTypeError("%s is not a constructor", c.String())
		}
		mapfn, thisArg := call.Argument(1), call.Argument(2)
		if !mapfn.IsUndefined() && !mapfn.IsCallable() {
			return vm.Undefined, call.VM.NewTypeError("%s is not a function", mapfn.String())
		}
		values, err := typedArraySourceValues(call.VM, call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		if !mapfn.IsUndefined() {
			for k, v := range values {
				if values[k], err = call.VM.Call(mapfn, thisArg, v, numberValue(k)); err != nil {
					return vm.Undefined, err
				}
			}
		}
		return typedArrayCreateFromList(call.VM, c, values)
	})

	// %TypedArray%.of(...items)
	method(r, base, "of", 0, func(call vm.FunctionCall) (vm.Value, error) {
		c := call.This
		if !c.IsConstructor() {
			return vm.Undefined, call.VM.NewTypeError("%s is not a constructor", c.String())
		}
		return typedArrayCreateFromList(call.VM, c, append([]vm.Value(nil), call.Args...))
	})

	t.initPrototype(r, r.TypedArrayPrototype)

	for _, kind := range vm.TypedArrayKinds {
		ctor, err := t.newConstructor(r, kind, base)
		if err != nil {
			return err
		}
		r.SetGlobal(kind.Name(), ctor.Value())
	}
	return nil
}

// newConstructor builds one concrete constructor such as Uint8Array.
func (t *TypedArrayInitializer) newConstructor(r *vm.Realm, kind vm.TypedArrayKind, base *vm.Object) (*vm.Object, error) {
	proto := r.TypedArrayPrototypes[kind]
	construct := func(call vm.FunctionCall) (vm.Value, error) {
		o, err := constructTypedArray(call, kind)
		if err != nil {
			return vm.Undefined, err
		}
		return o.Value(), nil
	}
	ctor := r.NewNativeConstructor(kind.Name(), 3, nil, construct, proto)
	if _, err := ctor.SetPrototypeOf(r.VM(), base); err != nil {
		return nil, err
	}
	bytes := numberValue(kind.BytesPerElement())
	ctor.SetOwnConstant(vm.StringKey("BYTES_PER_ELEMENT"), bytes)
	proto.SetOwnConstant(vm.StringKey("BYTES_PER_ELEMENT"), bytes)
	return ctor, nil
}

// constructTypedArray dispatches on the first argument: a length, an
// ArrayBuffer, another typed array, or an iterable / array-like object.
func constructTypedArray(call vm.FunctionCall, kind vm.TypedArrayKind) (*vm.Object, error) {
	first := call.Argument(0)
	if !first.IsObject() {
		length, err := call.VM.ToIndex(first)
		if err != nil {
			return nil, err
		}
		return call.VM.AllocateTypedArray(kind, call.NewTarget, length)
	}
	src := first.AsObject()
	if src.Kind() == vm.KindArrayBuffer {
		return call.VM.NewTypedArrayFromBuffer(kind, call.NewTarget, src, call.Argument(1), call.Argument(2))
	}
	if src.Kind() == vm.KindTypedArray {
		if src.IsTypedArrayOutOfBounds() {
			return nil, call.VM.NewTypeError("Cannot perform Construct on a detached ArrayBuffer")
		}
		if src.TypedArrayKind().IsBigInt() != kind.IsBigInt() {
			return nil, call.VM.NewTypeError("Content type of %s does not match %s", src.TypedArrayKind().Name(), kind.Name())
		}
	}
	values, err := typedArraySourceValues(call.VM, first)
	if err != nil {
		return nil, err
	}
	return call.VM.NewTypedArrayFromList(kind, call.NewTarget, values)
}

// typedArraySourceValues reads an iterable, or failing that an array-like.
func typedArraySourceValues(machine *vm.VM, source vm.Value) ([]vm.Value, error) {
	usingIterator, err := machine.GetMethod(source, vm.SymbolKey(vm.SymIterator))
	if err != nil {
		return nil, err
	}
	if !usingIterator.IsUndefined() {
		rec, err := machine.GetIteratorFromMethod(source, usingIterator)
		if err != nil {
			return nil, err
		}
		var values []vm.Value
		for {
			v, ok, err := machine.IteratorStepValue(rec)
			if err != nil {
				return nil, err
			}
			if !ok {
				return values, nil
			}
			values = append(values, v)
		}
	}
	o, err := machine.ToObject(source)
	if err != nil {
		return nil, err
	}
	return machine.CreateListFromArrayLike(o.Value(), false)
}

// typedArrayCreateFromList constructs c with a length and fills it.
func typedArrayCreateFromList(machine *vm.VM, c vm.Value, values []vm.Value) (vm.Value, error) {
	target, err := machine.Construct(c, []vm.Value{numberValue(len(values))}, nil)
	if err != nil {
		return vm.Undefined, err
	}
	o, n, err := machine.ValidateTypedArray(target, "TypedArrayCreate")
	if err != nil {
		return vm.Undefined, err
	}
	if n < len(values) {
		return vm.Undefined, machine.NewTypeError("Derived TypedArray constructor created an array which was too small")
	}
	for k, v := range values {
		if err := machine.Put(o, vm.IndexKey(int64(k)), v, true); err != nil {
			return vm.Undefined, err
		}
	}
	return target, nil
}

func (t *TypedArrayInitializer) initPrototype(r *vm.Realm, proto *vm.Object) {
	// Accessors read the live view; out-of-bounds views report 0.
	view := func(name string, read func(o *vm.Object) vm.Value) {
		getter(r, proto, vm.StringKey(name), func(call vm.FunctionCall) (vm.Value, error) {
			if !call.This.IsObject() || call.This.AsObject().Kind() != vm.KindTypedArray {
				return vm.Undefined, call.VM.NewTypeError("Method get %%TypedArray%%.prototype.%s called on incompatible receiver %s", name, call.This.String())
			}
			return read(call.This.AsObject()), nil
		})
	}
	view("buffer", func(o *vm.Object) vm.Value { return o.TypedArrayBuffer().Value() })
	view("byteLength", func(o *vm.Object) vm.Value { return numberValue(o.TypedArrayByteLength()) })
	view("byteOffset", func(o *vm.Object) vm.Value { return numberValue(o.TypedArrayByteOffset()) })
	view("length", func(o *vm.Object) vm.Value { return numberValue(o.TypedArrayLength()) })

	// %TypedArray%.prototype[@@toStringTag] is undefined for non-views.
	getter(r, proto, vm.SymbolKey(vm.SymToStringTag), func(call vm.FunctionCall) (vm.Value, error) {
		if !call.This.IsObject() || call.This.AsObject().Kind() != vm.KindTypedArray {
			return vm.Undefined, nil
		}
		return vm.NewString(call.This.AsObject().TypedArrayKind().Name()), nil
	})

	method(r, proto, "sort", 1, func(call vm.FunctionCall) (vm.Value, error) {
		o, err := call.VM.TypedArraySort(call.This, call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		return o.Value(), nil
	})

	method(r, proto, "fill", 1, func(call vm.FunctionCall) (vm.Value, error) {
		o, err := call.VM.TypedArrayFill(call.This, call.Argument(0), call.Argument(1), call.Argument(2))
		if err != nil {
			return vm.Undefined, err
		}
		return o.Value(), nil
	})

	method(r, proto, "at", 1, func(call vm.FunctionCall) (vm.Value, error) {
		return call.VM.TypedArrayAt(call.This, call.Argument(0))
	})

	// %TypedArray%.prototype.set(source [, offset])
	method(r, proto, "set", 1, func(call vm.FunctionCall) (vm.Value, error) {
		o, _, err := call.VM.ValidateTypedArray(call.This, "%TypedArray%.prototype.set")
		if err != nil {
			return vm.Undefined, err
		}
		offset, err := call.VM.ToIntegerOrInfinity(call.Argument(1))
		if err != nil {
			return vm.Undefined, err
		}
		if offset < 0 {
			return vm.Undefined, call.VM.NewRangeError("offset is out of bounds")
		}
		source := call.Argument(0)
		var values []vm.Value
		if source.IsObject() && source.AsObject().Kind() == vm.KindTypedArray {
			src, n, err := call.VM.ValidateTypedArray(source, "%TypedArray%.prototype.set")
			if err != nil {
				return vm.Undefined, err
			}
			if src.TypedArrayKind().IsBigInt() != o.TypedArrayKind().IsBigInt() {
				return vm.Undefined, call.VM.NewTypeError("Content type of %s does not match %s", src.TypedArrayKind().Name(), o.TypedArrayKind().Name())
			}
			// Read everything first so overlapping views copy correctly.
			values = make([]vm.Value, n)
			for k := range values {
				if values[k], err = call.VM.Get(src, vm.IndexKey(int64(k))); err != nil {
					return vm.Undefined, err
				}
			}
		} else {
			src, err := call.VM.ToObject(source)
			if err != nil {
				return vm.Undefined, err
			}
			if values, err = call.VM.CreateListFromArrayLike(src.Value(), false); err != nil {
				return vm.Undefined, err
			}
		}
		if offset+float64(len(values)) > float64(o.TypedArrayLength()) {
			return vm.Undefined, call.VM.NewRangeError("offset is out of bounds")
		}
		for k, v := range values {
			if err := call.VM.Put(o, vm.IndexKey(int64(offset)+int64(k)), v, true); err != nil {
				return vm.Undefined, err
			}
		}
		return vm.Undefined, nil
	})

	// %TypedArray%.prototype.subarray(begin, end) shares the buffer.
	method(r, proto, "subarray", 2, func(call vm.FunctionCall) (vm.Value, error) {
		if !call.This.IsObject() || call.This.AsObject().Kind() != vm.KindTypedArray {
			return vm.Undefined, call.VM.NewTypeError("this is not a typed array.")
		}
		o := call.This.AsObject()
		n := int64(o.TypedArrayLength())
		begin, err := relativeIndex(call.VM, call.Argument(0), n, 0)
		if err != nil {
			return vm.Undefined, err
		}
		end, err := relativeIndex(call.VM, call.Argument(1), n, n)
		if err != nil {
			return vm.Undefined, err
		}
		size := int64(o.TypedArrayKind().BytesPerElement())
		byteOffset := numberValue(o.TypedArrayByteOffset() + int(begin*size))
		length := numberValue(int(max(end-begin, 0)))
		sub, err := call.VM.NewTypedArrayFromBuffer(o.TypedArrayKind(), nil, o.TypedArrayBuffer(), byteOffset, length)
		if err != nil {
			return vm.Undefined, err
		}
		return sub.Value(), nil
	})

	method(r, proto, "join", 1, func(call vm.FunctionCall) (vm.Value, error) {
		o, n, err := call.VM.ValidateTypedArray(call.This, "%TypedArray%.prototype.join")
		if err != nil {
			return vm.Undefined, err
		}
		sep := ","
		if s := call.Argument(0); !s.IsUndefined() {
			if sep, err = call.VM.ToString(s); err != nil {
				return vm.Undefined, err
			}
		}
		// The separator's ToString may have shrunk the buffer.
		parts := make([]string, n)
		for k := range parts {
			e, err := call.VM.Get(o, vm.IndexKey(int64(k)))
			if err != nil {
				return vm.Undefined, err
			}
			if e.IsUndefined() {
				continue
			}
			if parts[k], err = call.VM.ToString(e); err != nil {
				return vm.Undefined, err
			}
		}
		return vm.NewString(strings.Join(parts, sep)), nil
	})

	method(r, proto, "includes", 1, func(call vm.FunctionCall) (vm.Value, error) {
		o, n, err := call.VM.ValidateTypedArray(call.This, "%TypedArray%.prototype.includes")
		if err != nil || n == 0 {
			return vm.False, err
		}
		k, err := relativeIndex(call.VM, call.Argument(1), int64(n), 0)
		if err != nil {
			return vm.Undefined, err
		}
		for ; k < int64(n); k++ {
			e, err := call.VM.Get(o, vm.IndexKey(k))
			if err != nil {
				return vm.Undefined, err
			}
			if vm.SameValueZero(e, call.Argument(0)) {
				return vm.True, nil
			}
		}
		return vm.False, nil
	})

	method(r, proto, "indexOf", 1, func(call vm.FunctionCall) (vm.Value, error) {
		o, n, err := call.VM.ValidateTypedArray(call.This, "%TypedArray%.prototype.indexOf")
		if err != nil || n == 0 {
			return vm.IntegerValue(-1), err
		}
		k, err := relativeIndex(call.VM, call.Argument(1), int64(n), 0)
		if err != nil {
			return vm.Undefined, err
		}
		for ; k < int64(n); k++ {
			key := vm.IndexKey(k)
			has, err := o.HasProperty(call.VM, key)
			if err != nil {
				return vm.Undefined, err
			}
			if !has {
				continue
			}
			e, err := call.VM.Get(o, key)
			if err != nil {
				return vm.Undefined, err
			}
			if vm.IsStrictlyEqual(e, call.Argument(0)) {
				return vm.NumberValue(float64(k)), nil
			}
		}
		return vm.IntegerValue(-1), nil
	})

	method(r, proto, "forEach", 1, func(call vm.FunctionCall) (vm.Value, error) {
		o, n, err := call.VM.ValidateTypedArray(call.This, "%TypedArray%.prototype.forEach")
		if err != nil {
			return vm.Undefined, err
		}
		callback := call.Argument(0)
		if !callback.IsCallable() {
			return vm.Undefined, call.VM.NewTypeError("%s is not a function", callback.String())
		}
		for k := 0; k < n; k++ {
			e, err := call.VM.Get(o, vm.IndexKey(int64(k)))
			if err != nil {
				return vm.Undefined, err
			}
			if _, err := call.VM.Call(callback, call.Argument(1), e, numberValue(k), o.Value()); err != nil {
				return vm.Undefined, err
			}
		}
		return vm.Undefined, nil
	})

	iterate := func(kind vm.ArrayIterationKind) vm.NativeFunction {
		return func(call vm.FunctionCall) (vm.Value, error) {
			o, _, err := call.VM.ValidateTypedArray(call.This, "%TypedArray%.prototype.values")
			if err != nil {
				return vm.Undefined, err
			}
			return call.VM.CreateArrayIterator(o, kind).Value(), nil
		}
	}
	method(r, proto, "keys", 0, iterate(vm.IterateKeys))
	method(r, proto, "entries", 0, iterate(vm.IterateEntries))
	values := method(r, proto, "values", 0, iterate(vm.IterateValues))
	proto.SetOwnMethod(vm.SymbolKey(vm.SymIterator), values.Value())

	// %TypedArray%.prototype.toString is Array.prototype.toString.
	if toString, ok := r.ArrayPrototype.OwnDataValue(vm.StringKey("toString")); ok {
		proto.SetOwnMethod(vm.StringKey("toString"), toString)
	}
}
