package vm

import (
	"encoding/binary"
	"math"
	"math/big"
)

// TypedArrayKind represents the different typed array types
type TypedArrayKind uint8

const (
	TypedArrayInt8 TypedArrayKind = iota
	TypedArrayUint8
	TypedArrayUint8Clamped
	TypedArrayInt16
	TypedArrayUint16
	TypedArrayInt32
	TypedArrayUint32
	TypedArrayFloat32
	TypedArrayFloat64
	TypedArrayBigInt64
	TypedArrayBigUint64

	numTypedArrayKinds
)

// TypedArrayKinds lists every element kind.
var TypedArrayKinds = []TypedArrayKind{
	TypedArrayInt8, TypedArrayUint8, TypedArrayUint8Clamped,
	TypedArrayInt16, TypedArrayUint16, TypedArrayInt32, TypedArrayUint32,
	TypedArrayFloat32, TypedArrayFloat64, TypedArrayBigInt64, TypedArrayBigUint64,
}

// BytesPerElement returns the element size of the kind.
func (kind TypedArrayKind) BytesPerElement() int {
	switch kind {
	case TypedArrayInt8, TypedArrayUint8, TypedArrayUint8Clamped:
		return 1
	case TypedArrayInt16, TypedArrayUint16:
		return 2
	case TypedArrayInt32, TypedArrayUint32, TypedArrayFloat32:
		return 4
	default:
		return 8
	}
}

// Name returns the constructor name for this kind.
func (kind TypedArrayKind) Name() string {
	switch kind {
	case TypedArrayInt8:
		return "Int8Array"
	case TypedArrayUint8:
		return "Uint8Array"
	case TypedArrayUint8Clamped:
		return "Uint8ClampedArray"
	case TypedArrayInt16:
		return "Int16Array"
	case TypedArrayUint16:
		return "Uint16Array"
	case TypedArrayInt32:
		return "Int32Array"
	case TypedArrayUint32:
		return "Uint32Array"
	case TypedArrayFloat32:
		return "Float32Array"
	case TypedArrayFloat64:
		return "Float64Array"
	case TypedArrayBigInt64:
		return "BigInt64Array"
	case TypedArrayBigUint64:
		return "BigUint64Array"
	default:
		return "TypedArray"
	}
}

// IsBigInt reports whether elements are BigInts.
func (kind TypedArrayKind) IsBigInt() bool {
	return kind == TypedArrayBigInt64 || kind == TypedArrayBigUint64
}

// typedArraySlots describes a view. The element count is never cached: it
// is derived from the buffer's current byte length on each access.
type typedArraySlots struct {
	kind           TypedArrayKind
	buffer         *Object
	byteOffset     int
	length         int
	lengthTracking bool
}

func (t *typedArraySlots) bufferSlots() *arrayBufferSlots {
	return t.buffer.slots.(*arrayBufferSlots)
}

func (t *typedArraySlots) isOutOfBounds() bool {
	b := t.bufferSlots()
	if b.detached {
		return true
	}
	bufLen := len(b.data)
	if t.byteOffset > bufLen {
		return true
	}
	return !t.lengthTracking && t.byteOffset+t.length*t.kind.BytesPerElement() > bufLen
}

func (t *typedArraySlots) currentLength() int {
	if t.isOutOfBounds() {
		return 0
	}
	if t.lengthTracking {
		return (len(t.bufferSlots().data) - t.byteOffset) / t.kind.BytesPerElement()
	}
	return t.length
}

func (t *typedArraySlots) isValidIndex(idx float64) bool {
	if t.bufferSlots().detached {
		return false
	}
	if idx != math.Trunc(idx) || isNegativeZero(idx) {
		return false
	}
	return idx >= 0 && idx < float64(t.currentLength())
}

func (t *typedArraySlots) element(idx float64) (Value, bool) {
	if !t.isValidIndex(idx) {
		return Undefined, false
	}
	size := t.kind.BytesPerElement()
	off := t.byteOffset + int(idx)*size
	return decodeElement(t.kind, t.bufferSlots().data[off:off+size], true), true
}

// elementValue is a number or BigInt already coerced for a kind.
type elementValue struct {
	num float64
	big *big.Int
}

func (vm *VM) toElementValue(kind TypedArrayKind, v Value) (elementValue, error) {
	if kind.IsBigInt() {
		b, err := vm.ToBigInt(v)
		return elementValue{big: b}, err
	}
	f, err := vm.ToNumber(v)
	return elementValue{num: f}, err
}

// setElement coerces v first, then writes only if idx is still valid.
func (vm *VM) typedArraySetElement(t *typedArraySlots, idx float64, v Value) error {
	ev, err := vm.toElementValue(t.kind, v)
	if err != nil {
		return err
	}
	if t.isValidIndex(idx) {
		size := t.kind.BytesPerElement()
		off := t.byteOffset + int(idx)*size
		encodeElement(t.kind, t.bufferSlots().data[off:off+size], ev, true)
	}
	return nil
}

func byteOrder(little bool) binary.ByteOrder {
	if little {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func decodeElement(kind TypedArrayKind, src []byte, little bool) Value {
	order := byteOrder(little)
	switch kind {
	case TypedArrayInt8:
		return IntegerValue(int32(int8(src[0])))
	case TypedArrayUint8, TypedArrayUint8Clamped:
		return IntegerValue(int32(src[0]))
	case TypedArrayInt16:
		return IntegerValue(int32(int16(order.Uint16(src))))
	case TypedArrayUint16:
		return IntegerValue(int32(order.Uint16(src)))
	case TypedArrayInt32:
		return IntegerValue(int32(order.Uint32(src)))
	case TypedArrayUint32:
		return NumberValue(float64(order.Uint32(src)))
	case TypedArrayFloat32:
		return NumberValue(float64(math.Float32frombits(order.Uint32(src))))
	case TypedArrayFloat64:
		return NumberValue(math.Float64frombits(order.Uint64(src)))
	case TypedArrayBigInt64:
		return NewBigIntFromInt64(int64(order.Uint64(src)))
	default:
		return NewBigInt(new(big.Int).SetUint64(order.Uint64(src)))
	}
}

func encodeElement(kind TypedArrayKind, dst []byte, ev elementValue, little bool) {
	order := byteOrder(little)
	switch kind {
	case TypedArrayInt8, TypedArrayUint8:
		dst[0] = byte(toUint32(ev.num))
	case TypedArrayUint8Clamped:
		dst[0] = toUint8Clamp(ev.num)
	case TypedArrayInt16, TypedArrayUint16:
		order.PutUint16(dst, uint16(toUint32(ev.num)))
	case TypedArrayInt32, TypedArrayUint32:
		order.PutUint32(dst, toUint32(ev.num))
	case TypedArrayFloat32:
		order.PutUint32(dst, math.Float32bits(float32(ev.num)))
	case TypedArrayFloat64:
		order.PutUint64(dst, math.Float64bits(ev.num))
	default:
		order.PutUint64(dst, bigIntToUint64(ev.big))
	}
}

func typedArrayInternalMethods() *internalMethods {
	m := derivedInternalMethods()
	m.getOwnProperty = typedArrayGetOwnProperty
	m.hasProperty = typedArrayHasProperty
	m.defineOwnProperty = typedArrayDefineOwnProperty
	m.get = typedArrayGet
	m.set = typedArraySet
	m.delete = typedArrayDelete
	m.ownPropertyKeys = typedArrayOwnPropertyKeys
	return m
}

func typedArrayGetOwnProperty(vm *VM, o *Object, key PropertyKey) (PropertyDescriptor, bool, error) {
	if idx, ok := key.NumericIndex(); ok {
		v, ok := o.slots.(*typedArraySlots).element(idx)
		if !ok {
			return PropertyDescriptor{}, false, nil
		}
		return DataDescriptor(v, true, true, true), true, nil
	}
	return ordinaryGetOwnProperty(vm, o, key)
}

func typedArrayHasProperty(vm *VM, o *Object, key PropertyKey) (bool, error) {
	if idx, ok := key.NumericIndex(); ok {
		return o.slots.(*typedArraySlots).isValidIndex(idx), nil
	}
	return ordinaryHasProperty(vm, o, key)
}

func typedArrayDefineOwnProperty(vm *VM, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	idx, ok := key.NumericIndex()
	if !ok {
		return ordinaryDefineOwnProperty(vm, o, key, desc)
	}
	t := o.slots.(*typedArraySlots)
	if !t.isValidIndex(idx) {
		return false, nil
	}
	if desc.HasConfigurable && !desc.Configurable {
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
		if err := vm.typedArraySetElement(t, idx, desc.Value); err != nil {
			return false, err
		}
	}
	return true, nil
}

func typedArrayGet(vm *VM, o *Object, key PropertyKey, receiver Value) (Value, error) {
	if idx, ok := key.NumericIndex(); ok {
		v, _ := o.slots.(*typedArraySlots).element(idx)
		return v, nil
	}
	return ordinaryGet(vm, o, key, receiver)
}

func typedArraySet(vm *VM, o *Object, key PropertyKey, v Value, receiver Value) (bool, error) {
	if idx, ok := key.NumericIndex(); ok {
		t := o.slots.(*typedArraySlots)
		if receiver.IsObject() && receiver.AsObject() == o {
			if err := vm.typedArraySetElement(t, idx, v); err != nil {
				return false, err
			}
			return true, nil
		}
		if !t.isValidIndex(idx) {
			return true, nil
		}
	}
	return ordinarySet(vm, o, key, v, receiver)
}

func typedArrayDelete(vm *VM, o *Object, key PropertyKey) (bool, error) {
	if idx, ok := key.NumericIndex(); ok {
		return !o.slots.(*typedArraySlots).isValidIndex(idx), nil
	}
	return ordinaryDelete(vm, o, key)
}

func typedArrayOwnPropertyKeys(vm *VM, o *Object) ([]PropertyKey, error) {
	n := o.slots.(*typedArraySlots).currentLength()
	_, strs, syms := o.storedKeys()
	keys := make([]PropertyKey, 0, n+len(strs)+len(syms))
	for i := 0; i < n; i++ {
		keys = append(keys, IndexKey(int64(i)))
	}
	keys = append(keys, strs...)
	return append(keys, syms...), nil
}

// AllocateTypedArray creates a typed array over a fresh buffer of length
// elements. The prototype comes from newTarget when given.
func (vm *VM) AllocateTypedArray(kind TypedArrayKind, newTarget *Object, length int64) (*Object, error) {
	proto, err := vm.GetPrototypeFromConstructor(newTarget, vm.realm.TypedArrayPrototypes[kind])
	if err != nil {
		return nil, err
	}
	size := int64(kind.BytesPerElement())
	if length < 0 || length > int64(vm.maxByteLength)/size {
		return nil, vm.NewRangeError("Invalid typed array length: %d", length)
	}
	buf, err := vm.NewArrayBuffer(length * size)
	if err != nil {
		return nil, err
	}
	return newObject(vm.realm, KindTypedArray, proto, &typedArraySlots{kind: kind, buffer: buf, length: int(length)}), nil
}

// NewTypedArray creates a zero-filled typed array.
func (vm *VM) NewTypedArray(kind TypedArrayKind, length int64) (*Object, error) {
	return vm.AllocateTypedArray(kind, nil, length)
}

// NewTypedArrayFromList creates a typed array holding values, coercing each.
func (vm *VM) NewTypedArrayFromList(kind TypedArrayKind, newTarget *Object, values []Value) (*Object, error) {
	o, err := vm.AllocateTypedArray(kind, newTarget, int64(len(values)))
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if err := vm.Put(o, IndexKey(int64(i)), v, true); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// NewTypedArrayFromBuffer creates a view over buffer. byteOffset and length
// are unconverted argument values; an undefined length over a resizable
// buffer makes the view track the buffer's length.
func (vm *VM) NewTypedArrayFromBuffer(kind TypedArrayKind, newTarget *Object, buffer *Object, byteOffset, length Value) (*Object, error) {
	proto, err := vm.GetPrototypeFromConstructor(newTarget, vm.realm.TypedArrayPrototypes[kind])
	if err != nil {
		return nil, err
	}
	size := int64(kind.BytesPerElement())
	offset, err := vm.ToIndex(byteOffset)
	if err != nil {
		return nil, err
	}
	if offset%size != 0 {
		return nil, vm.NewRangeError("start offset of %s should be a multiple of %d", kind.Name(), size)
	}
	var newLength int64
	if !length.IsUndefined() {
		if newLength, err = vm.ToIndex(length); err != nil {
			return nil, err
		}
	}
	if buffer.IsDetachedBuffer() {
		return nil, vm.NewTypeError("Cannot perform Construct on a detached ArrayBuffer")
	}
	bufLen := int64(buffer.BufferByteLength())
	slots := &typedArraySlots{kind: kind, buffer: buffer, byteOffset: int(offset)}
	switch {
	case length.IsUndefined() && buffer.IsResizableBuffer():
		if offset > bufLen {
			return nil, vm.NewRangeError("Start offset %d is outside the bounds of the buffer", offset)
		}
		slots.lengthTracking = true
	case length.IsUndefined():
		if bufLen%size != 0 {
			return nil, vm.NewRangeError("byte length of %s should be a multiple of %d", kind.Name(), size)
		}
		if bufLen-offset < 0 {
			return nil, vm.NewRangeError("Start offset %d is outside the bounds of the buffer", offset)
		}
		slots.length = int((bufLen - offset) / size)
	default:
		if offset+newLength*size > bufLen {
			return nil, vm.NewRangeError("Invalid typed array length: %d", newLength)
		}
		slots.length = int(newLength)
	}
	return newObject(vm.realm, KindTypedArray, proto, slots), nil
}

func (o *Object) typedArray() *typedArraySlots {
	return o.slots.(*typedArraySlots)
}

// TypedArrayKind returns the element kind of a typed array.
func (o *Object) TypedArrayKind() TypedArrayKind { return o.typedArray().kind }

// TypedArrayBuffer returns the viewed ArrayBuffer.
func (o *Object) TypedArrayBuffer() *Object { return o.typedArray().buffer }

// TypedArrayLength returns the live element count; 0 when out of bounds.
func (o *Object) TypedArrayLength() int { return o.typedArray().currentLength() }

// TypedArrayByteLength returns the live byte length.
func (o *Object) TypedArrayByteLength() int {
	t := o.typedArray()
	return t.currentLength() * t.kind.BytesPerElement()
}

// TypedArrayByteOffset returns the byte offset, 0 when out of bounds.
func (o *Object) TypedArrayByteOffset() int {
	t := o.typedArray()
	if t.isOutOfBounds() {
		return 0
	}
	return t.byteOffset
}

// IsTypedArrayOutOfBounds reports whether the view no longer fits its buffer.
func (o *Object) IsTypedArrayOutOfBounds() bool { return o.typedArray().isOutOfBounds() }

// ValidateTypedArray checks that v is an in-bounds typed array and returns
// it with its current length.
func (vm *VM) ValidateTypedArray(v Value, method string) (*Object, int, error) {
	if !v.IsObject() || v.AsObject().kind != KindTypedArray {
		return nil, 0, vm.NewTypeError("this is not a typed array.")
	}
	o := v.AsObject()
	t := o.typedArray()
	if t.isOutOfBounds() {
		return nil, 0, vm.NewTypeError("Cannot perform %s on a detached or out-of-bounds ArrayBuffer", method)
	}
	return o, t.currentLength(), nil
}

// CompareTypedArrayElements orders two elements of the same kind. With a
// comparator, a NaN result counts as equal.
func (vm *VM) CompareTypedArrayElements(x, y Value, comparefn Value) (float64, error) {
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
	if x.IsBigInt() {
		return float64(x.AsBigInt().Cmp(y.AsBigInt())), nil
	}
	a, b := x.AsNumber(), y.AsNumber()
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0, nil
	case math.IsNaN(a):
		return 1, nil
	case math.IsNaN(b):
		return -1, nil
	case a < b:
		return -1, nil
	case a > b:
		return 1, nil
	case a == 0 && b == 0:
		switch {
		case math.Signbit(a) && !math.Signbit(b):
			return -1, nil
		case !math.Signbit(a) && math.Signbit(b):
			return 1, nil
		}
	}
	return 0, nil
}

// TypedArraySort sorts in place. All elements are read before sorting; the
// comparator may shrink the buffer, so results are written back through
// bounds-checked writes that drop indices no longer in range.
func (vm *VM) TypedArraySort(v Value, comparefn Value) (*Object, error) {
	if !comparefn.IsUndefined() && !comparefn.IsCallable() {
		return nil, vm.NewTypeError("The comparison function must be either a function or undefined")
	}
	o, n, err := vm.ValidateTypedArray(v, "%TypedArray%.prototype.sort")
	if err != nil {
		return nil, err
	}
	items := make([]Value, n)
	for k := 0; k < n; k++ {
		if items[k], err = vm.Get(o, IndexKey(int64(k))); err != nil {
			return nil, err
		}
	}
	err = SortValues(items, func(x, y Value) (float64, error) {
		return vm.CompareTypedArrayElements(x, y, comparefn)
	})
	if err != nil {
		return nil, err
	}
	for j, item := range items {
		if err := vm.Put(o, IndexKey(int64(j)), item, true); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// relativeIndex resolves a relative start/end argument against length.
func relativeIndex(rel float64, length int) int {
	switch {
	case math.IsInf(rel, -1):
		return 0
	case rel < 0:
		return int(max(float64(length)+rel, 0))
	default:
		return int(min(rel, float64(length)))
	}
}

// TypedArrayFill implements %TypedArray%.prototype.fill. The value and the
// bounds are coerced before the view is validated again.
func (vm *VM) TypedArrayFill(v Value, value, start, end Value) (*Object, error) {
	o, n, err := vm.ValidateTypedArray(v, "%TypedArray%.prototype.fill")
	if err != nil {
		return nil, err
	}
	t := o.typedArray()
	ev, err := vm.toElementValue(t.kind, value)
	if err != nil {
		return nil, err
	}
	relStart, err := vm.ToIntegerOrInfinity(start)
	if err != nil {
		return nil, err
	}
	k := relativeIndex(relStart, n)
	final := n
	if !end.IsUndefined() {
		relEnd, err := vm.ToIntegerOrInfinity(end)
		if err != nil {
			return nil, err
		}
		final = relativeIndex(relEnd, n)
	}
	if t.isOutOfBounds() {
		return nil, vm.NewTypeError("Cannot perform %%TypedArray%%.prototype.fill on a detached or out-of-bounds ArrayBuffer")
	}
	final = min(final, t.currentLength())
	size := t.kind.BytesPerElement()
	for ; k < final; k++ {
		off := t.byteOffset + k*size
		encodeElement(t.kind, t.bufferSlots().data[off:off+size], ev, true)
	}
	return o, nil
}

// TypedArrayAt implements %TypedArray%.prototype.at.
func (vm *VM) TypedArrayAt(v Value, index Value) (Value, error) {
	o, n, err := vm.ValidateTypedArray(v, "%TypedArray%.prototype.at")
	if err != nil {
		return Undefined, err
	}
	rel, err := vm.ToIntegerOrInfinity(index)
	if err != nil {
		return Undefined, err
	}
	k := rel
	if rel < 0 {
		k = float64(n) + rel
	}
	if k < 0 || k >= float64(n) {
		return Undefined, nil
	}
	return vm.Get(o, IndexKey(int64(k)))
}
