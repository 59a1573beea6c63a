package vm

type arrayBufferSlots struct {
	data          []byte
	detached      bool
	resizable     bool
	maxByteLength int
}

// NewArrayBuffer allocates a fixed-length, zeroed ArrayBuffer.
func (vm *VM) NewArrayBuffer(byteLength int64) (*Object, error) {
	return vm.AllocateArrayBuffer(nil, byteLength, -1)
}

// NewResizableArrayBuffer allocates a resizable ArrayBuffer.
func (vm *VM) NewResizableArrayBuffer(byteLength, maxByteLength int64) (*Object, error) {
	return vm.AllocateArrayBuffer(nil, byteLength, maxByteLength)
}

// AllocateArrayBuffer creates an ArrayBuffer whose prototype comes from
// newTarget. A negative maxByteLength makes the buffer fixed-length.
func (vm *VM) AllocateArrayBuffer(newTarget *Object, byteLength, maxByteLength int64) (*Object, error) {
	resizable := maxByteLength >= 0
	if resizable && byteLength > maxByteLength {
		return nil, vm.NewRangeError("Invalid array buffer max length")
	}
	proto, err := vm.GetPrototypeFromConstructor(newTarget, vm.realm.ArrayBufferPrototype)
	if err != nil {
		return nil, err
	}
	limit := int64(vm.maxByteLength)
	if byteLength < 0 || byteLength > limit || maxByteLength > limit {
		return nil, vm.NewRangeError("Array buffer allocation failed")
	}
	slots := &arrayBufferSlots{resizable: resizable, maxByteLength: int(byteLength)}
	if resizable {
		slots.maxByteLength = int(maxByteLength)
	}
	slots.data = make([]byte, byteLength)
	return newObject(vm.realm, KindArrayBuffer, proto, slots), nil
}

func (vm *VM) arrayBufferSlots(v Value, method string) (*arrayBufferSlots, error) {
	if !v.IsObject() || v.AsObject().kind != KindArrayBuffer {
		return nil, vm.NewTypeError("Method ArrayBuffer.prototype.%s called on incompatible receiver %s", method, v.String())
	}
	return v.AsObject().slots.(*arrayBufferSlots), nil
}

// IsDetachedBuffer reports whether an ArrayBuffer has been detached.
func (o *Object) IsDetachedBuffer() bool {
	return o.slots.(*arrayBufferSlots).detached
}

// IsResizableBuffer reports whether an ArrayBuffer has a maxByteLength.
func (o *Object) IsResizableBuffer() bool {
	return o.slots.(*arrayBufferSlots).resizable
}

// BufferByteLength returns the current byte length, 0 once detached.
func (o *Object) BufferByteLength() int {
	return len(o.slots.(*arrayBufferSlots).data)
}

// BufferMaxByteLength returns maxByteLength, or the byte length of a
// fixed-length buffer.
func (o *Object) BufferMaxByteLength() int {
	b := o.slots.(*arrayBufferSlots)
	if b.detached {
		return 0
	}
	if b.resizable {
		return b.maxByteLength
	}
	return len(b.data)
}

// BufferBytes exposes the live backing store. Callers must not hold on to it
// across anything that can run user code.
func (o *Object) BufferBytes() []byte {
	return o.slots.(*arrayBufferSlots).data
}

// ArrayBufferResize implements ArrayBuffer.prototype.resize. The new length
// has already been converted with ToIndex.
func (vm *VM) ArrayBufferResize(buf Value, newByteLength int64) error {
	b, err := vm.arrayBufferSlots(buf, "resize")
	if err != nil {
		return err
	}
	if !b.resizable {
		return vm.NewTypeError("Method ArrayBuffer.prototype.resize called on incompatible receiver #<ArrayBuffer>")
	}
	if b.detached {
		return vm.NewTypeError("Cannot perform ArrayBuffer.prototype.resize on a detached ArrayBuffer")
	}
	if newByteLength < 0 || newByteLength > int64(b.maxByteLength) {
		return vm.NewRangeError("ArrayBuffer.prototype.resize: Invalid length parameter")
	}
	old := len(b.data)
	n := int(newByteLength)
	switch {
	case n <= cap(b.data):
		b.data = b.data[:n]
		if n > old {
			clear(b.data[old:n])
		}
	default:
		grown := make([]byte, n, min(max(2*cap(b.data), n), b.maxByteLength))
		copy(grown, b.data)
		b.data = grown
	}
	vm.logger.Debug().Int("from", old).Int("to", n).Msg("resized array buffer")
	return nil
}

// DetachArrayBuffer detaches buf; its byte length becomes 0.
func (vm *VM) DetachArrayBuffer(buf *Object) error {
	b, err := vm.arrayBufferSlots(buf.Value(), "detach")
	if err != nil {
		return err
	}
	b.detached = true
	b.data = nil
	b.maxByteLength = 0
	vm.logger.Debug().Msg("detached array buffer")
	return nil
}

// ArrayBufferTransfer moves the contents of buf into a new buffer and
// detaches buf. newByteLength < 0 keeps the current length.
func (vm *VM) ArrayBufferTransfer(buf Value, newByteLength int64, preserveResizability bool) (*Object, error) {
	b, err := vm.arrayBufferSlots(buf, "transfer")
	if err != nil {
		return nil, err
	}
	if newByteLength < 0 {
		newByteLength = int64(len(b.data))
	}
	if b.detached {
		return nil, vm.NewTypeError("Cannot perform ArrayBuffer.prototype.transfer on a detached ArrayBuffer")
	}
	maxLen := int64(-1)
	if preserveResizability && b.resizable {
		maxLen = int64(b.maxByteLength)
	}
	out, err := vm.AllocateArrayBuffer(nil, newByteLength, maxLen)
	if err != nil {
		return nil, err
	}
	copy(out.BufferBytes(), b.data)
	if err := vm.DetachArrayBuffer(buf.AsObject()); err != nil {
		return nil, err
	}
	vm.logger.Debug().Int64("length", newByteLength).Msg("transferred array buffer")
	return out, nil
}

// ArrayBufferSlice copies [start, end) of buf into a new fixed-length buffer.
// Bounds have already been resolved against the current length.
func (vm *VM) ArrayBufferSlice(buf Value, start, end int64) (*Object, error) {
	b, err := vm.arrayBufferSlots(buf, "slice")
	if err != nil {
		return nil, err
	}
	if b.detached {
		return nil, vm.NewTypeError("Cannot perform ArrayBuffer.prototype.slice on a detached ArrayBuffer")
	}
	n := end - start
	if n < 0 {
		n = 0
	}
	out, err := vm.NewArrayBuffer(n)
	if err != nil {
		return nil, err
	}
	cur := int64(len(b.data))
	if start < cur {
		stop := min(start+n, cur)
		copy(out.BufferBytes(), b.data[start:stop])
	}
	return out, nil
}
