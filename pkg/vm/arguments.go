package vm

// Binding is a mutable variable cell shared between a function's parameters
// and its mapped arguments object.
type Binding struct {
	Value Value
}

type argumentsSlots struct {
	mapped map[uint32]*Binding
}

func argumentsInternalMethods() *internalMethods {
	m := derivedInternalMethods()
	m.getOwnProperty = argumentsGetOwnProperty
	m.defineOwnProperty = argumentsDefineOwnProperty
	m.get = argumentsGet
	m.set = argumentsSet
	m.delete = argumentsDelete
	return m
}

func (a *argumentsSlots) binding(key PropertyKey) (*Binding, uint32) {
	if len(a.mapped) == 0 {
		return nil, 0
	}
	idx, ok := key.ArrayIndex()
	if !ok {
		return nil, 0
	}
	return a.mapped[idx], idx
}

// CreateUnmappedArgumentsObject creates the arguments object of a strict
// function.
func (vm *VM) CreateUnmappedArgumentsObject(args []Value) *Object {
	r := vm.realm
	o := newObject(r, KindArguments, r.ObjectPrototype, &argumentsSlots{})
	o.SetOwnMethod(lengthKey, IntegerValue(int32(len(args))))
	for i, v := range args {
		o.SetOwn(IndexKey(int64(i)).name, v)
	}
	vm.installArgumentsIterator(o)
	thrower := r.ThrowTypeError.Value()
	o.storeProperty(StringKey("callee"), &property{accessor: true, getter: thrower, setter: thrower})
	return o
}

// CreateMappedArgumentsObject creates a sloppy-mode arguments object whose
// first len(params) indices alias the parameter bindings. Each binding is
// initialized with its argument.
func (vm *VM) CreateMappedArgumentsObject(callee *Object, params []*Binding, args []Value) *Object {
	r := vm.realm
	slots := &argumentsSlots{mapped: make(map[uint32]*Binding)}
	o := newObject(r, KindArguments, r.ObjectPrototype, slots)
	for i, v := range args {
		o.SetOwn(IndexKey(int64(i)).name, v)
	}
	o.SetOwnMethod(lengthKey, IntegerValue(int32(len(args))))
	for i := len(params) - 1; i >= 0; i-- {
		if i >= len(args) || params[i] == nil {
			continue
		}
		params[i].Value = args[i]
		slots.mapped[uint32(i)] = params[i]
	}
	vm.installArgumentsIterator(o)
	if callee != nil {
		o.SetOwnMethod(StringKey("callee"), callee.Value())
	}
	return o
}

func (vm *VM) installArgumentsIterator(o *Object) {
	if values := vm.realm.ArrayProtoValues; values != nil {
		o.SetOwnMethod(SymbolKey(SymIterator), values.Value())
	}
}

func argumentsGetOwnProperty(vm *VM, o *Object, key PropertyKey) (PropertyDescriptor, bool, error) {
	desc, ok, _ := ordinaryGetOwnProperty(vm, o, key)
	if !ok {
		return desc, false, nil
	}
	if b, _ := o.slots.(*argumentsSlots).binding(key); b != nil {
		desc.Value = b.Value
	}
	return desc, true, nil
}

func argumentsDefineOwnProperty(vm *VM, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	slots := o.slots.(*argumentsSlots)
	b, idx := slots.binding(key)
	newDesc := desc
	if b != nil && desc.IsData() && !desc.HasValue && desc.HasWritable && !desc.Writable {
		newDesc.Value, newDesc.HasValue = b.Value, true
	}
	ok, err := ordinaryDefineOwnProperty(vm, o, key, newDesc)
	if err != nil || !ok {
		return false, err
	}
	if b != nil {
		if desc.IsAccessor() {
			delete(slots.mapped, idx)
		} else {
			if desc.HasValue {
				b.Value = desc.Value
			}
			if desc.HasWritable && !desc.Writable {
				delete(slots.mapped, idx)
			}
		}
	}
	return true, nil
}

func argumentsGet(vm *VM, o *Object, key PropertyKey, receiver Value) (Value, error) {
	if b, _ := o.slots.(*argumentsSlots).binding(key); b != nil {
		return b.Value, nil
	}
	return ordinaryGet(vm, o, key, receiver)
}

func argumentsSet(vm *VM, o *Object, key PropertyKey, v Value, receiver Value) (bool, error) {
	if receiver.IsObject() && receiver.AsObject() == o {
		if b, _ := o.slots.(*argumentsSlots).binding(key); b != nil {
			b.Value = v
		}
	}
	return ordinarySet(vm, o, key, v, receiver)
}

func argumentsDelete(vm *VM, o *Object, key PropertyKey) (bool, error) {
	slots := o.slots.(*argumentsSlots)
	b, idx := slots.binding(key)
	ok, err := ordinaryDelete(vm, o, key)
	if err != nil {
		return false, err
	}
	if ok && b != nil {
		delete(slots.mapped, idx)
	}
	return ok, nil
}
