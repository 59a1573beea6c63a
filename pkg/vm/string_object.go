package vm

type stringSlots struct {
	value Value
}

func stringInternalMethods() *internalMethods {
	m := derivedInternalMethods()
	m.getOwnProperty = stringGetOwnProperty
	m.defineOwnProperty = stringDefineOwnProperty
	m.ownPropertyKeys = stringOwnPropertyKeys
	return m
}

func newStringObject(r *Realm, s Value, proto *Object) *Object {
	o := newObject(r, KindString, proto, &stringSlots{value: s})
	o.SetOwnConstant(lengthKey, IntegerValue(int32(s.StringLength())))
	return o
}

// stringIndexProperty returns the read-only index property a String object
// exposes for key, if any.
func stringIndexProperty(o *Object, key PropertyKey) (PropertyDescriptor, bool) {
	if key.IsSymbol() {
		return PropertyDescriptor{}, false
	}
	idx, ok := key.NumericIndex()
	if !ok || idx != float64(int64(idx)) || idx < 0 || (idx == 0 && isNegativeZero(idx)) {
		return PropertyDescriptor{}, false
	}
	s := o.slots.(*stringSlots).value
	if int64(idx) >= int64(s.StringLength()) {
		return PropertyDescriptor{}, false
	}
	ch := NewStringFromUTF16([]uint16{s.CodeUnitAt(int(idx))})
	return DataDescriptor(ch, false, true, false), true
}

func stringGetOwnProperty(vm *VM, o *Object, key PropertyKey) (PropertyDescriptor, bool, error) {
	if desc, ok, _ := ordinaryGetOwnProperty(vm, o, key); ok {
		return desc, true, nil
	}
	desc, ok := stringIndexProperty(o, key)
	return desc, ok, nil
}

func stringDefineOwnProperty(vm *VM, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	if current, ok := stringIndexProperty(o, key); ok {
		return IsCompatiblePropertyDescriptor(o.extensible, desc, current, true), nil
	}
	return ordinaryDefineOwnProperty(vm, o, key, desc)
}

func stringOwnPropertyKeys(vm *VM, o *Object) ([]PropertyKey, error) {
	n := o.slots.(*stringSlots).value.StringLength()
	indices, strs, syms := o.storedKeys()
	keys := make([]PropertyKey, 0, n+len(o.keys))
	for i := 0; i < n; i++ {
		keys = append(keys, IndexKey(int64(i)))
	}
	for _, idx := range indices {
		if int(idx) >= n {
			keys = append(keys, IndexKey(int64(idx)))
		}
	}
	keys = append(keys, strs...)
	return append(keys, syms...), nil
}
