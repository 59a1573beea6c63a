package vm

type dataViewSlots struct {
	buffer         *Object
	byteOffset     int
	byteLength     int
	lengthTracking bool
}

func (d *dataViewSlots) isOutOfBounds() bool {
	b := d.buffer.slots.(*arrayBufferSlots)
	if b.detached {
		return true
	}
	bufLen := len(b.data)
	if d.byteOffset > bufLen {
		return true
	}
	return !d.lengthTracking && d.byteOffset+d.byteLength > bufLen
}

// viewByteLength assumes the view is in bounds.
func (d *dataViewSlots) viewByteLength() int {
	if d.lengthTracking {
		return len(d.buffer.slots.(*arrayBufferSlots).data) - d.byteOffset
	}
	return d.byteLength
}

// NewDataView creates a view over buffer from unconverted byteOffset and
// byteLength arguments. An undefined byteLength over a resizable buffer
// tracks the buffer's length.
func (vm *VM) NewDataView(newTarget *Object, buffer *Object, byteOffset, byteLength Value) (*Object, error) {
	offset, err := vm.ToIndex(byteOffset)
	if err != nil {
		return nil, err
	}
	if buffer.IsDetachedBuffer() {
		return nil, vm.NewTypeError("Cannot perform DataView constructor on a detached ArrayBuffer")
	}
	bufLen := int64(buffer.BufferByteLength())
	if offset > bufLen {
		return nil, vm.NewRangeError("Start offset %d is out of range for buffer length %d", offset, bufLen)
	}
	tracking := byteLength.IsUndefined() && buffer.IsResizableBuffer()
	var viewLen int64
	switch {
	case tracking:
	case byteLength.IsUndefined():
		viewLen = bufLen - offset
	default:
		if viewLen, err = vm.ToIndex(byteLength); err != nil {
			return nil, err
		}
		if offset+viewLen > bufLen {
			return nil, vm.NewRangeError("Invalid DataView length %d", viewLen)
		}
	}

	proto, err := vm.GetPrototypeFromConstructor(newTarget, vm.realm.DataViewPrototype)
	if err != nil {
		return nil, err
	}
	// Reading newTarget.prototype can run user code that shrinks or
	// detaches the buffer.
	if buffer.IsDetachedBuffer() {
		return nil, vm.NewTypeError("Cannot perform DataView constructor on a detached ArrayBuffer")
	}
	bufLen = int64(buffer.BufferByteLength())
	if offset > bufLen {
		return nil, vm.NewRangeError("Start offset %d is out of range for buffer length %d", offset, bufLen)
	}
	if !byteLength.IsUndefined() && offset+viewLen > bufLen {
		return nil, vm.NewRangeError("Invalid DataView length %d", viewLen)
	}

	slots := &dataViewSlots{buffer: buffer, byteOffset: int(offset), byteLength: int(viewLen), lengthTracking: tracking}
	return newObject(vm.realm, KindDataView, proto, slots), nil
}

func (vm *VM) dataView(v Value, method string) (*dataViewSlots, error) {
	if !v.IsObject() || v.AsObject().kind != KindDataView {
		return nil, vm.NewTypeError("Method DataView.prototype.%s called on incompatible receiver %s", method, v.String())
	}
	return v.AsObject().slots.(*dataViewSlots), nil
}

// DataViewBuffer returns the viewed buffer.
func (vm *VM) DataViewBuffer(v Value) (*Object, error) {
	d, err := vm.dataView(v, "buffer")
	if err != nil {
		return nil, err
	}
	return d.buffer, nil
}

// DataViewByteLength implements the byteLength getter.
func (vm *VM) DataViewByteLength(v Value) (int, error) {
	d, err := vm.dataView(v, "byteLength")
	if err != nil {
		return 0, err
	}
	if d.isOutOfBounds() {
		return 0, vm.NewTypeError("Cannot perform DataView.prototype.byteLength on a detached or out-of-bounds ArrayBuffer")
	}
	return d.viewByteLength(), nil
}

// DataViewByteOffset implements the byteOffset getter.
func (vm *VM) DataViewByteOffset(v Value) (int, error) {
	d, err := vm.dataView(v, "byteOffset")
	if err != nil {
		return 0, err
	}
	if d.isOutOfBounds() {
		return 0, vm.NewTypeError("Cannot perform DataView.prototype.byteOffset on a detached or out-of-bounds ArrayBuffer")
	}
	return d.byteOffset, nil
}

// GetViewValue implements the DataView get methods.
func (vm *VM) GetViewValue(view Value, requestIndex, littleEndian Value, kind TypedArrayKind) (Value, error) {
	d, err := vm.dataView(view, "get"+kindMethodSuffix(kind))
	if err != nil {
		return Undefined, err
	}
	idx, err := vm.ToIndex(requestIndex)
	if err != nil {
		return Undefined, err
	}
	little := ToBoolean(littleEndian)
	off, err := vm.viewElementOffset(d, idx, kind)
	if err != nil {
		return Undefined, err
	}
	size := kind.BytesPerElement()
	return decodeElement(kind, d.buffer.BufferBytes()[off:off+size], little), nil
}

// SetViewValue implements the DataView set methods. The value is coerced
// before the view's bounds are checked.
func (vm *VM) SetViewValue(view Value, requestIndex, littleEndian Value, kind TypedArrayKind, value Value) error {
	d, err := vm.dataView(view, "set"+kindMethodSuffix(kind))
	if err != nil {
		return err
	}
	idx, err := vm.ToIndex(requestIndex)
	if err != nil {
		return err
	}
	ev, err := vm.toElementValue(kind, value)
	if err != nil {
		return err
	}
	little := ToBoolean(littleEndian)
	off, err := vm.viewElementOffset(d, idx, kind)
	if err != nil {
		return err
	}
	size := kind.BytesPerElement()
	encodeElement(kind, d.buffer.BufferBytes()[off:off+size], ev, little)
	return nil
}

func (vm *VM) viewElementOffset(d *dataViewSlots, idx int64, kind TypedArrayKind) (int, error) {
	if d.isOutOfBounds() {
		return 0, vm.NewTypeError("Cannot perform DataView access on a detached or out-of-bounds ArrayBuffer")
	}
	if idx+int64(kind.BytesPerElement()) > int64(d.viewByteLength()) {
		return 0, vm.NewRangeError("Offset is outside the bounds of the DataView")
	}
	return d.byteOffset + int(idx), nil
}

func kindMethodSuffix(kind TypedArrayKind) string {
	name := kind.Name()
	return name[:len(name)-len("Array")]
}
