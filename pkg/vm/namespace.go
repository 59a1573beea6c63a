package vm

import "sort"

// ModuleExport reads an exported binding. initialized is false while the
// binding is in its temporal dead zone.
type ModuleExport func() (v Value, initialized bool)

type namespaceSlots struct {
	names   []string
	exports map[string]ModuleExport
}

func namespaceInternalMethods() *internalMethods {
	return &internalMethods{
		getPrototypeOf:    func(*VM, *Object) (*Object, error) { return nil, nil },
		setPrototypeOf:    namespaceSetPrototypeOf,
		isExtensible:      func(*VM, *Object) (bool, error) { return false, nil },
		preventExtensions: func(*VM, *Object) (bool, error) { return true, nil },
		getOwnProperty:    namespaceGetOwnProperty,
		defineOwnProperty: namespaceDefineOwnProperty,
		hasProperty:       namespaceHasProperty,
		get:               namespaceGet,
		set:               func(*VM, *Object, PropertyKey, Value, Value) (bool, error) { return false, nil },
		delete:            namespaceDelete,
		ownPropertyKeys:   namespaceOwnPropertyKeys,
	}
}

// NewModuleNamespace creates a module namespace exotic object over the given
// exports.
func (vm *VM) NewModuleNamespace(exports map[string]ModuleExport) *Object {
	slots := &namespaceSlots{exports: make(map[string]ModuleExport, len(exports))}
	for name, read := range exports {
		slots.names = append(slots.names, name)
		slots.exports[name] = read
	}
	sort.Slice(slots.names, func(i, j int) bool {
		return CompareUTF16(slots.names[i], slots.names[j]) < 0
	})
	o := newObject(vm.realm, KindModuleNamespace, nil, slots)
	o.SetOwnConstant(SymbolKey(SymToStringTag), NewString("Module"))
	o.extensible = false
	return o
}

func namespaceSetPrototypeOf(vm *VM, o *Object, proto *Object) (bool, error) {
	return proto == nil, nil
}

func (vm *VM) namespaceValue(o *Object, name string) (Value, bool, error) {
	read, ok := o.slots.(*namespaceSlots).exports[name]
	if !ok {
		return Undefined, false, nil
	}
	v, initialized := read()
	if !initialized {
		return Undefined, true, vm.NewReferenceError("Cannot access '%s' before initialization", name)
	}
	return v, true, nil
}

func namespaceGetOwnProperty(vm *VM, o *Object, key PropertyKey) (PropertyDescriptor, bool, error) {
	if key.IsSymbol() {
		return ordinaryGetOwnProperty(vm, o, key)
	}
	v, ok, err := vm.namespaceValue(o, key.name)
	if err != nil || !ok {
		return PropertyDescriptor{}, false, err
	}
	return DataDescriptor(v, true, true, false), true, nil
}

func namespaceDefineOwnProperty(vm *VM, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	if key.IsSymbol() {
		return ordinaryDefineOwnProperty(vm, o, key, desc)
	}
	current, ok, err := namespaceGetOwnProperty(vm, o, key)
	if err != nil || !ok {
		return false, err
	}
	if desc.HasConfigurable && desc.Configurable {
		return false, nil
	}
	if desc.HasEnumerable && !desc.Enumerable {
		return false, nil
	}
	if desc.IsAccessor() {
		return false, nil
	}
	if desc.HasWritable && !desc.Writable {
		return false, nil
	}
	if desc.HasValue {
		return SameValue(desc.Value, current.Value), nil
	}
	return true, nil
}

func namespaceHasProperty(vm *VM, o *Object, key PropertyKey) (bool, error) {
	if key.IsSymbol() {
		return ordinaryHasProperty(vm, o, key)
	}
	_, ok := o.slots.(*namespaceSlots).exports[key.name]
	return ok, nil
}

func namespaceGet(vm *VM, o *Object, key PropertyKey, receiver Value) (Value, error) {
	if key.IsSymbol() {
		return ordinaryGet(vm, o, key, receiver)
	}
	v, _, err := vm.namespaceValue(o, key.name)
	return v, err
}

func namespaceDelete(vm *VM, o *Object, key PropertyKey) (bool, error) {
	if key.IsSymbol() {
		return ordinaryDelete(vm, o, key)
	}
	_, ok := o.slots.(*namespaceSlots).exports[key.name]
	return !ok, nil
}

func namespaceOwnPropertyKeys(vm *VM, o *Object) ([]PropertyKey, error) {
	slots := o.slots.(*namespaceSlots)
	keys := make([]PropertyKey, 0, len(slots.names)+1)
	for _, name := range slots.names {
		keys = append(keys, StringKey(name))
	}
	_, _, syms := o.storedKeys()
	return append(keys, syms...), nil
}
