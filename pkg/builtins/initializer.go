package builtins

import (
	"jscore/pkg/vm"
)

// Priority constants for initialization order
const (
	PriorityObject         = 0  // Object must be first (base prototype)
	PriorityFunction       = 1  // Function second (inherits from Object)
	PriorityIterator       = 2  // Iterator prototypes (needed for iterables)
	PriorityArray          = 3  // Array third (implements Iterable)
	PriorityGenerator      = 5  // Generator prototypes
	PriorityAsyncGenerator = 6  // AsyncGenerator prototypes (like Generator but returns Promises)
	PriorityString         = 10 // String primitives
	PriorityNumber         = 11 // Number primitives
	PriorityBoolean        = 12 // Boolean primitives
	PriorityBigInt         = 13 // BigInt primitives
	PrioritySymbol         = 14 // Symbol primitives and well-known symbols
	PriorityError          = 20 // Error constructors
	PriorityPromise        = 30 // Promise constructor
	PriorityArrayBuffer    = 40 // ArrayBuffer constructor
	PriorityTypedArray     = 41 // %TypedArray% and the concrete constructors
	PriorityDataView       = 42 // DataView constructor
	PriorityProxy          = 50 // Proxy constructor
	PriorityReflect        = 51 // Reflect namespace
	PriorityGlobals        = 90 // Global constants and functions
)

// method installs a builtin method as a writable, configurable,
// non-enumerable property.
func method(r *vm.Realm, o *vm.Object, name string, length int, fn vm.NativeFunction) *vm.Object {
	f := r.NewNativeFunction(name, length, fn)
	o.SetOwnMethod(vm.StringKey(name), f.Value())
	return f
}

// symbolMethod installs a method keyed by a well-known symbol. Its name is
// "[description]".
func symbolMethod(r *vm.Realm, o *vm.Object, sym *vm.Symbol, length int, fn vm.NativeFunction) *vm.Object {
	f := r.NewNativeFunction("", length, fn)
	vm.SetFunctionName(f, vm.SymbolKey(sym), "")
	o.SetOwnMethod(vm.SymbolKey(sym), f.Value())
	return f
}

// getter installs an accessor with only a getter.
func getter(r *vm.Realm, o *vm.Object, key vm.PropertyKey, fn vm.NativeFunction) {
	f := r.NewNativeFunction("", 0, fn)
	vm.SetFunctionName(f, key, "get")
	o.SetOwnAccessor(key, f.Value(), vm.Undefined)
}

// toStringTag installs a non-writable @@toStringTag.
func toStringTag(o *vm.Object, tag string) {
	o.SetOwnReadonly(vm.SymbolKey(vm.SymToStringTag), vm.NewString(tag))
}

// thisObject requires this to be an object.
func thisObject(call vm.FunctionCall, method string) (*vm.Object, error) {
	if !call.This.IsObject() {
		return nil, call.VM.NewTypeError("%s called on non-object", method)
	}
	return call.This.AsObject(), nil
}

// argObject requires argument i to be an object.
func argObject(call vm.FunctionCall, i int, method string) (*vm.Object, error) {
	v := call.Argument(i)
	if !v.IsObject() {
		return nil, call.VM.NewTypeError("%s called on non-object", method)
	}
	return v.AsObject(), nil
}

func numberValue(n int) vm.Value {
	return vm.NumberValue(float64(n))
}
