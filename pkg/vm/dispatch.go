package vm

// internalMethods is one row of the dispatch table. Every object kind maps to
// exactly one row; exotic kinds start from the ordinary row and override the
// methods they redefine.
type internalMethods struct {
	getPrototypeOf    func(vm *VM, o *Object) (*Object, error)
	setPrototypeOf    func(vm *VM, o *Object, proto *Object) (bool, error)
	isExtensible      func(vm *VM, o *Object) (bool, error)
	preventExtensions func(vm *VM, o *Object) (bool, error)
	getOwnProperty    func(vm *VM, o *Object, key PropertyKey) (PropertyDescriptor, bool, error)
	defineOwnProperty func(vm *VM, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error)
	hasProperty       func(vm *VM, o *Object, key PropertyKey) (bool, error)
	get               func(vm *VM, o *Object, key PropertyKey, receiver Value) (Value, error)
	set               func(vm *VM, o *Object, key PropertyKey, v Value, receiver Value) (bool, error)
	delete            func(vm *VM, o *Object, key PropertyKey) (bool, error)
	ownPropertyKeys   func(vm *VM, o *Object) ([]PropertyKey, error)
}

var dispatchTable [numObjectKinds]*internalMethods

func init() {
	ordinary := ordinaryInternalMethods()
	for k := range dispatchTable {
		dispatchTable[k] = ordinary
	}
	dispatchTable[KindArray] = arrayInternalMethods()
	dispatchTable[KindString] = stringInternalMethods()
	dispatchTable[KindArguments] = argumentsInternalMethods()
	dispatchTable[KindTypedArray] = typedArrayInternalMethods()
	dispatchTable[KindProxy] = proxyInternalMethods()
	dispatchTable[KindModuleNamespace] = namespaceInternalMethods()
}

func (o *Object) methods() *internalMethods {
	return dispatchTable[o.kind]
}

// GetPrototypeOf is [[GetPrototypeOf]].
func (o *Object) GetPrototypeOf(vm *VM) (*Object, error) {
	return o.methods().getPrototypeOf(vm, o)
}

// SetPrototypeOf is [[SetPrototypeOf]]; proto may be nil for null.
func (o *Object) SetPrototypeOf(vm *VM, proto *Object) (bool, error) {
	return o.methods().setPrototypeOf(vm, o, proto)
}

// IsExtensible is [[IsExtensible]].
func (o *Object) IsExtensible(vm *VM) (bool, error) {
	return o.methods().isExtensible(vm, o)
}

// PreventExtensions is [[PreventExtensions]].
func (o *Object) PreventExtensions(vm *VM) (bool, error) {
	return o.methods().preventExtensions(vm, o)
}

// GetOwnProperty is [[GetOwnProperty]]. The bool reports presence.
func (o *Object) GetOwnProperty(vm *VM, key PropertyKey) (PropertyDescriptor, bool, error) {
	return o.methods().getOwnProperty(vm, o, key)
}

// DefineOwnProperty is [[DefineOwnProperty]].
func (o *Object) DefineOwnProperty(vm *VM, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	return o.methods().defineOwnProperty(vm, o, key, desc)
}

// HasProperty is [[HasProperty]].
func (o *Object) HasProperty(vm *VM, key PropertyKey) (bool, error) {
	return o.methods().hasProperty(vm, o, key)
}

// Get is [[Get]].
func (o *Object) Get(vm *VM, key PropertyKey, receiver Value) (Value, error) {
	return o.methods().get(vm, o, key, receiver)
}

// Set is [[Set]]. A false result means the assignment failed silently.
func (o *Object) Set(vm *VM, key PropertyKey, v Value, receiver Value) (bool, error) {
	return o.methods().set(vm, o, key, v, receiver)
}

// Delete is [[Delete]].
func (o *Object) Delete(vm *VM, key PropertyKey) (bool, error) {
	return o.methods().delete(vm, o, key)
}

// OwnPropertyKeys is [[OwnPropertyKeys]].
func (o *Object) OwnPropertyKeys(vm *VM) ([]PropertyKey, error) {
	return o.methods().ownPropertyKeys(vm, o)
}
