package vm

import (
	"math"
	"sort"
)

type arraySlots struct {
	length         uint32
	lengthWritable bool
}

var lengthKey = StringKey("length")

func arrayInternalMethods() *internalMethods {
	m := derivedInternalMethods()
	m.getOwnProperty = arrayGetOwnProperty
	m.defineOwnProperty = arrayDefineOwnProperty
	m.ownPropertyKeys = arrayOwnPropertyKeys
	return m
}

// ArrayCreate creates an array exotic object with the given length.
func (vm *VM) ArrayCreate(length int64, proto *Object) (*Object, error) {
	if length < 0 || length > math.MaxUint32 {
		return nil, vm.NewRangeError("Invalid array length")
	}
	if proto == nil {
		proto = vm.realm.ArrayPrototype
	}
	return newObject(vm.realm, KindArray, proto, &arraySlots{length: uint32(length), lengthWritable: true}), nil
}

// NewArray creates an array from the given elements.
func (vm *VM) NewArray(elems ...Value) *Object {
	return vm.CreateArrayFromList(elems)
}

// CreateArrayFromList creates a dense array holding list.
func (vm *VM) CreateArrayFromList(list []Value) *Object {
	a := newObject(vm.realm, KindArray, vm.realm.ArrayPrototype, &arraySlots{length: uint32(len(list)), lengthWritable: true})
	for i, v := range list {
		a.storeProperty(IndexKey(int64(i)), &property{value: v, writable: true, enumerable: true, configurable: true})
	}
	return a
}

// ArrayLength returns the length of an array exotic object.
func (o *Object) ArrayLength() uint32 {
	return o.slots.(*arraySlots).length
}

func arrayLengthDescriptor(a *arraySlots) PropertyDescriptor {
	return DataDescriptor(NumberValue(float64(a.length)), a.lengthWritable, false, false)
}

func arrayGetOwnProperty(vm *VM, o *Object, key PropertyKey) (PropertyDescriptor, bool, error) {
	if key == lengthKey {
		return arrayLengthDescriptor(o.slots.(*arraySlots)), true, nil
	}
	return ordinaryGetOwnProperty(vm, o, key)
}

func arrayDefineOwnProperty(vm *VM, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	a := o.slots.(*arraySlots)
	if key == lengthKey {
		return vm.arraySetLength(o, a, desc)
	}
	if idx, ok := key.ArrayIndex(); ok {
		if idx >= a.length && !a.lengthWritable {
			return false, nil
		}
		ok, err := ordinaryDefineOwnProperty(vm, o, key, desc)
		if err != nil || !ok {
			return false, err
		}
		if idx >= a.length {
			a.length = idx + 1
		}
		return true, nil
	}
	return ordinaryDefineOwnProperty(vm, o, key, desc)
}

// applyLengthDescriptor validates desc against the current length property
// and applies it.
func applyLengthDescriptor(a *arraySlots, desc PropertyDescriptor, newLen uint32) bool {
	if !IsCompatiblePropertyDescriptor(true, desc, arrayLengthDescriptor(a), true) {
		return false
	}
	if desc.HasValue {
		a.length = newLen
	}
	if desc.HasWritable {
		a.lengthWritable = desc.Writable
	}
	return true
}

func (vm *VM) arraySetLength(o *Object, a *arraySlots, desc PropertyDescriptor) (bool, error) {
	if !desc.HasValue {
		return applyLengthDescriptor(a, desc, a.length), nil
	}
	newLen, err := vm.ToUint32(desc.Value)
	if err != nil {
		return false, err
	}
	numberLen, err := vm.ToNumber(desc.Value)
	if err != nil {
		return false, err
	}
	if float64(newLen) != numberLen {
		return false, vm.NewRangeError("Invalid array length")
	}
	newLenDesc := desc
	newLenDesc.Value = NumberValue(float64(newLen))

	oldLen := a.length
	if newLen >= oldLen {
		return applyLengthDescriptor(a, newLenDesc, newLen), nil
	}
	if !a.lengthWritable {
		return false, nil
	}
	newWritable := true
	if newLenDesc.HasWritable && !newLenDesc.Writable {
		newWritable = false
		newLenDesc.Writable = true
	}
	if !applyLengthDescriptor(a, newLenDesc, newLen) {
		return false, nil
	}

	// Delete elements from the top down, stopping at the first that refuses.
	indices, _, _ := o.storedKeys()
	for i := len(indices) - 1; i >= 0 && indices[i] >= newLen; i-- {
		idx := indices[i]
		deleted, err := o.Delete(vm, IndexKey(int64(idx)))
		if err != nil {
			return false, err
		}
		if !deleted {
			a.length = idx + 1
			if !newWritable {
				a.lengthWritable = false
			}
			return false, nil
		}
	}
	if !newWritable {
		a.lengthWritable = false
	}
	return true, nil
}

func arrayOwnPropertyKeys(vm *VM, o *Object) ([]PropertyKey, error) {
	indices, strs, syms := o.storedKeys()
	keys := make([]PropertyKey, 0, len(o.keys)+1)
	for _, idx := range indices {
		keys = append(keys, IndexKey(int64(idx)))
	}
	keys = append(keys, lengthKey)
	keys = append(keys, strs...)
	return append(keys, syms...), nil
}

// SortCompare is the comparator of the generic sort: undefined sorts last,
// comparefn wins when given, otherwise string order.
func (vm *VM) SortCompare(x, y Value, comparefn Value) (float64, error) {
	if x.IsUndefined() && y.IsUndefined() {
		return 0, nil
	}
	if x.IsUndefined() {
		return 1, nil
	}
	if y.IsUndefined() {
		return -1, nil
	}
	if !comparefn.IsUndefined() {
		r, err := vm.Call(comparefn, Undefined, x, y)
		if err != nil {
			return 0, err
		}
		f, err := vm.ToNumber(r)
		if err != nil || math.IsNaN(f) {
			return 0, err
		}
		return f, nil
	}
	xs, err := vm.ToString(x)
	if err != nil {
		return 0, err
	}
	ys, err := vm.ToString(y)
	if err != nil {
		return 0, err
	}
	return float64(CompareUTF16(xs, ys)), nil
}

// SortValues stably sorts items with cmp, stopping at the first error.
func SortValues(items []Value, cmp func(x, y Value) (float64, error)) error {
	var sortErr error
	sort.SliceStable(items, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		c, err := cmp(items[i], items[j])
		if err != nil {
			sortErr = err
			return false
		}
		return c < 0
	})
	return sortErr
}
