package vm

import errs "jscore/pkg/errors"

// FunctionCall carries the arguments of a [[Call]] or [[Construct]].
// NewTarget is nil for [[Call]].
type FunctionCall struct {
	VM        *VM
	This      Value
	Args      []Value
	NewTarget *Object
}

// Argument returns the i-th argument or Undefined.
func (c FunctionCall) Argument(i int) Value {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return Undefined
}

// NativeFunction is the Go implementation of a function object.
type NativeFunction func(call FunctionCall) (Value, error)

// NewNativeFunction creates a function object that is callable but not a
// constructor.
func (r *Realm) NewNativeFunction(name string, length int, fn NativeFunction) *Object {
	f := newObject(r, KindFunction, r.FunctionPrototype, nil)
	f.call = fn
	f.SetOwnReadonly(StringKey("length"), IntegerValue(int32(length)))
	f.SetOwnReadonly(StringKey("name"), NewString(name))
	return f
}

// NewNativeConstructor creates a constructor. Calling it without new runs
// call (or throws a TypeError when call is nil); new runs construct.
// The constructor's "prototype" and the prototype's "constructor" are linked.
func (r *Realm) NewNativeConstructor(name string, length int, call, construct NativeFunction, prototype *Object) *Object {
	if call == nil {
		call = func(c FunctionCall) (Value, error) {
			return Undefined, c.VM.NewTypeError("Constructor %s requires 'new'", name)
		}
	}
	f := r.NewNativeFunction(name, length, call)
	f.construct = construct
	if prototype != nil {
		f.SetOwnConstant(StringKey("prototype"), prototype.Value())
		prototype.SetOwnMethod(StringKey("constructor"), f.Value())
	}
	return f
}

// NewNativeFunction creates a native function in the current realm.
func (vm *VM) NewNativeFunction(name string, length int, fn NativeFunction) *Object {
	return vm.realm.NewNativeFunction(name, length, fn)
}

// GetPrototypeFromConstructor reads newTarget.prototype, falling back to
// fallback when it is not an object.
func (vm *VM) GetPrototypeFromConstructor(newTarget *Object, fallback *Object) (*Object, error) {
	if newTarget == nil {
		return fallback, nil
	}
	proto, err := newTarget.Get(vm, StringKey("prototype"), newTarget.Value())
	if err != nil {
		return nil, err
	}
	if !proto.IsObject() {
		return fallback, nil
	}
	return proto.AsObject(), nil
}

// OrdinaryCreateFromConstructor creates an ordinary object whose prototype
// comes from newTarget.
func (vm *VM) OrdinaryCreateFromConstructor(newTarget *Object, fallback *Object) (*Object, error) {
	proto, err := vm.GetPrototypeFromConstructor(newTarget, fallback)
	if err != nil {
		return nil, err
	}
	return newObject(vm.realm, KindOrdinary, proto, nil), nil
}

// NewErrorFromConstructor creates an error object for new Error(...) and
// friends.
func (vm *VM) NewErrorFromConstructor(newTarget *Object, fallback *Object, kind errs.Kind) (*Object, error) {
	proto, err := vm.GetPrototypeFromConstructor(newTarget, fallback)
	if err != nil {
		return nil, err
	}
	o := vm.NewErrorObject(kind, "")
	o.removeProperty(StringKey("message"))
	o.prototype = proto
	return o, nil
}

// NewPrimitiveWrapper creates a Boolean, Number, Symbol or BigInt wrapper.
func (vm *VM) NewPrimitiveWrapper(v Value, proto *Object) *Object {
	if v.IsString() {
		return newStringObject(vm.realm, v, proto)
	}
	return newObject(vm.realm, KindPrimitiveWrapper, proto, v)
}

// PrimitiveValue returns the wrapped value of a primitive wrapper or String
// object.
func (o *Object) PrimitiveValue() (Value, bool) {
	switch o.kind {
	case KindPrimitiveWrapper:
		return o.slots.(Value), true
	case KindString:
		return o.slots.(*stringSlots).value, true
	}
	return Undefined, false
}

// SetFunctionName defines the "name" property of a fresh function.
func SetFunctionName(f *Object, key PropertyKey, prefix string) {
	name := key.name
	if key.sym != nil {
		if d, ok := key.sym.Description(); ok {
			name = "[" + d + "]"
		} else {
			name = ""
		}
	}
	if prefix != "" {
		name = prefix + " " + name
	}
	f.SetOwnReadonly(StringKey("name"), NewString(name))
}
