package vm

func ordinaryInternalMethods() *internalMethods {
	return &internalMethods{
		getPrototypeOf:    ordinaryGetPrototypeOf,
		setPrototypeOf:    ordinarySetPrototypeOf,
		isExtensible:      ordinaryIsExtensible,
		preventExtensions: ordinaryPreventExtensions,
		getOwnProperty:    ordinaryGetOwnProperty,
		defineOwnProperty: ordinaryDefineOwnProperty,
		hasProperty:       ordinaryHasProperty,
		get:               ordinaryGet,
		set:               ordinarySet,
		delete:            ordinaryDelete,
		ownPropertyKeys:   ordinaryOwnPropertyKeys,
	}
}

// derivedInternalMethods copies the ordinary row so an exotic kind can
// override selected entries.
func derivedInternalMethods() *internalMethods {
	m := *ordinaryInternalMethods()
	return &m
}

func ordinaryGetPrototypeOf(vm *VM, o *Object) (*Object, error) {
	return o.prototype, nil
}

func ordinarySetPrototypeOf(vm *VM, o *Object, proto *Object) (bool, error) {
	if proto == o.prototype {
		return true, nil
	}
	if !o.extensible {
		return false, nil
	}
	for p := proto; p != nil; {
		if p == o {
			return false, nil
		}
		// A proxy in the chain may report anything; stop looking there.
		if p.kind == KindProxy {
			break
		}
		p = p.prototype
	}
	o.prototype = proto
	return true, nil
}

func ordinaryIsExtensible(vm *VM, o *Object) (bool, error) {
	return o.extensible, nil
}

func ordinaryPreventExtensions(vm *VM, o *Object) (bool, error) {
	o.extensible = false
	return true, nil
}

func ordinaryGetOwnProperty(vm *VM, o *Object, key PropertyKey) (PropertyDescriptor, bool, error) {
	p := o.ownStored(key)
	if p == nil {
		return PropertyDescriptor{}, false, nil
	}
	return p.descriptor(), true, nil
}

func ordinaryDefineOwnProperty(vm *VM, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	current, ok, err := o.GetOwnProperty(vm, key)
	if err != nil {
		return false, err
	}
	extensible, err := o.IsExtensible(vm)
	if err != nil {
		return false, err
	}
	return ValidateAndApplyPropertyDescriptor(o, key, extensible, desc, current, ok), nil
}

func ordinaryHasProperty(vm *VM, o *Object, key PropertyKey) (bool, error) {
	_, ok, err := o.GetOwnProperty(vm, key)
	if err != nil || ok {
		return ok, err
	}
	parent, err := o.GetPrototypeOf(vm)
	if err != nil || parent == nil {
		return false, err
	}
	return parent.HasProperty(vm, key)
}

func ordinaryGet(vm *VM, o *Object, key PropertyKey, receiver Value) (Value, error) {
	desc, ok, err := o.GetOwnProperty(vm, key)
	if err != nil {
		return Undefined, err
	}
	if !ok {
		parent, err := o.GetPrototypeOf(vm)
		if err != nil || parent == nil {
			return Undefined, err
		}
		return parent.Get(vm, key, receiver)
	}
	if desc.IsData() {
		return desc.Value, nil
	}
	if desc.Get.IsUndefined() {
		return Undefined, nil
	}
	return vm.Call(desc.Get, receiver)
}

func ordinarySet(vm *VM, o *Object, key PropertyKey, v Value, receiver Value) (bool, error) {
	ownDesc, ok, err := o.GetOwnProperty(vm, key)
	if err != nil {
		return false, err
	}
	return ordinarySetWithOwnDescriptor(vm, o, key, v, receiver, ownDesc, ok)
}

func ordinarySetWithOwnDescriptor(vm *VM, o *Object, key PropertyKey, v Value, receiver Value, ownDesc PropertyDescriptor, hasOwn bool) (bool, error) {
	if !hasOwn {
		parent, err := o.GetPrototypeOf(vm)
		if err != nil {
			return false, err
		}
		if parent != nil {
			return parent.Set(vm, key, v, receiver)
		}
		ownDesc = DataDescriptor(Undefined, true, true, true)
	}
	if ownDesc.IsData() {
		if !ownDesc.Writable {
			return false, nil
		}
		if !receiver.IsObject() {
			return false, nil
		}
		recv := receiver.AsObject()
		existing, exists, err := recv.GetOwnProperty(vm, key)
		if err != nil {
			return false, err
		}
		if exists {
			if existing.IsAccessor() || !existing.Writable {
				return false, nil
			}
			return recv.DefineOwnProperty(vm, key, PropertyDescriptor{Value: v, HasValue: true})
		}
		return recv.DefineOwnProperty(vm, key, DataDescriptor(v, true, true, true))
	}
	if ownDesc.Set.IsUndefined() {
		return false, nil
	}
	if _, err := vm.Call(ownDesc.Set, receiver, v); err != nil {
		return false, err
	}
	return true, nil
}

func ordinaryDelete(vm *VM, o *Object, key PropertyKey) (bool, error) {
	desc, ok, err := o.GetOwnProperty(vm, key)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	if desc.Configurable {
		o.removeProperty(key)
		return true, nil
	}
	return false, nil
}

func ordinaryOwnPropertyKeys(vm *VM, o *Object) ([]PropertyKey, error) {
	indices, strs, syms := o.storedKeys()
	keys := make([]PropertyKey, 0, len(o.keys))
	for _, idx := range indices {
		keys = append(keys, IndexKey(int64(idx)))
	}
	keys = append(keys, strs...)
	return append(keys, syms...), nil
}
