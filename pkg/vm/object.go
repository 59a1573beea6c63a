package vm

import (
	"sort"
	"unsafe"
)

// ObjectKind selects the internal-method table an object dispatches through
// and the shape of its slots.
type ObjectKind uint8

const (
	KindOrdinary ObjectKind = iota
	KindFunction
	KindBoundFunction
	KindArray
	KindString
	KindArguments
	KindTypedArray
	KindArrayBuffer
	KindDataView
	KindProxy
	KindModuleNamespace
	KindError
	KindPrimitiveWrapper
	KindPromise
	KindGenerator
	KindAsyncGenerator
	KindIterator

	numObjectKinds
)

var objectKindNames = [numObjectKinds]string{
	KindOrdinary:         "Object",
	KindFunction:         "Function",
	KindBoundFunction:    "BoundFunction",
	KindArray:            "Array",
	KindString:           "String",
	KindArguments:        "Arguments",
	KindTypedArray:       "TypedArray",
	KindArrayBuffer:      "ArrayBuffer",
	KindDataView:         "DataView",
	KindProxy:            "Proxy",
	KindModuleNamespace:  "Module",
	KindError:            "Error",
	KindPrimitiveWrapper: "PrimitiveWrapper",
	KindPromise:          "Promise",
	KindGenerator:        "Generator",
	KindAsyncGenerator:   "AsyncGenerator",
	KindIterator:         "Iterator",
}

func (k ObjectKind) String() string {
	if k < numObjectKinds {
		return objectKindNames[k]
	}
	return "Unknown"
}

// Object is a heap object. Own properties are kept in insertion order; the
// kind tag decides how the internal methods interpret them.
type Object struct {
	kind       ObjectKind
	prototype  *Object
	extensible bool

	props map[PropertyKey]*property
	keys  []PropertyKey

	realm     *Realm
	call      NativeFunction
	construct NativeFunction

	slots any
}

func newObject(realm *Realm, kind ObjectKind, proto *Object, slots any) *Object {
	return &Object{
		kind:       kind,
		prototype:  proto,
		extensible: true,
		realm:      realm,
		slots:      slots,
	}
}

func (o *Object) Kind() ObjectKind { return o.kind }

// Realm returns the realm the object was created in.
func (o *Object) Realm() *Realm { return o.realm }

func (o *Object) Value() Value {
	return Value{typ: TypeObject, obj: unsafe.Pointer(o)}
}

func (o *Object) IsCallable() bool    { return o.call != nil }
func (o *Object) IsConstructor() bool { return o.construct != nil }

func (o *Object) ownStored(key PropertyKey) *property {
	if o.props == nil {
		return nil
	}
	return o.props[key]
}

func (o *Object) storeProperty(key PropertyKey, p *property) {
	if o.props == nil {
		o.props = make(map[PropertyKey]*property)
	}
	if _, exists := o.props[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.props[key] = p
}

func (o *Object) removeProperty(key PropertyKey) {
	if _, exists := o.props[key]; !exists {
		return
	}
	delete(o.props, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// storedKeys returns own stored keys ordered as array indices ascending,
// then strings in creation order, then symbols in creation order.
func (o *Object) storedKeys() (indices []uint32, strs []PropertyKey, syms []PropertyKey) {
	for _, k := range o.keys {
		if k.sym != nil {
			syms = append(syms, k)
		} else if idx, ok := k.ArrayIndex(); ok {
			indices = append(indices, idx)
		} else {
			strs = append(strs, k)
		}
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return
}

// SetOwn stores a writable, enumerable, configurable data property without
// running any checks. It is meant for building fresh objects.
func (o *Object) SetOwn(name string, v Value) {
	o.storeProperty(StringKey(name), &property{value: v, writable: true, enumerable: true, configurable: true})
}

// SetOwnMethod stores a writable, non-enumerable, configurable data property,
// the layout of built-in methods.
func (o *Object) SetOwnMethod(key PropertyKey, v Value) {
	o.storeProperty(key, &property{value: v, writable: true, configurable: true})
}

// SetOwnConstant stores a non-writable, non-enumerable, non-configurable data
// property.
func (o *Object) SetOwnConstant(key PropertyKey, v Value) {
	o.storeProperty(key, &property{value: v})
}

// SetOwnReadonly stores a non-writable, non-enumerable, configurable data
// property, the layout of function "name" and "length".
func (o *Object) SetOwnReadonly(key PropertyKey, v Value) {
	o.storeProperty(key, &property{value: v, configurable: true})
}

// SetOwnAccessor stores a non-enumerable, configurable accessor property.
func (o *Object) SetOwnAccessor(key PropertyKey, getter, setter Value) {
	o.storeProperty(key, &property{accessor: true, getter: getter, setter: setter, configurable: true})
}

// OwnDataValue reads an own stored data property without dispatching. It is
// for diagnostics and host inspection only.
func (o *Object) OwnDataValue(key PropertyKey) (Value, bool) {
	p := o.ownStored(key)
	if p == nil || p.accessor {
		return Undefined, false
	}
	return p.value, true
}

// peekDataValue walks the prototype chain of ordinary storage looking for a
// data property, stopping at proxies. It never runs user code.
func (o *Object) peekDataValue(key PropertyKey) (Value, bool) {
	for cur, depth := o, 0; cur != nil && depth < 64; cur, depth = cur.prototype, depth+1 {
		if cur.kind == KindProxy {
			return Undefined, false
		}
		if p := cur.ownStored(key); p != nil {
			if p.accessor {
				return Undefined, false
			}
			return p.value, true
		}
	}
	return Undefined, false
}
