package builtins

import (
	"jscore/pkg/vm"
)

type ArrayBufferInitializer struct{}

func (a *ArrayBufferInitializer) Name() string {
	return "ArrayBuffer"
}

func (a *ArrayBufferInitializer) Priority() int {
	return PriorityArrayBuffer
}

func (a *ArrayBufferInitializer) InitRealm(r *vm.Realm) error {
	bufferProto := r.ArrayBufferPrototype

	// new ArrayBuffer(length [, { maxByteLength }])
	construct := func(call vm.FunctionCall) (vm.Value, error) {
		byteLength, err := call.VM.ToIndex(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		maxByteLength := int64(-1)
		if options := call.Argument(1); options.IsObject() {
			m, err := call.VM.Get(options.AsObject(), vm.StringKey("maxByteLength"))
			if err != nil {
				return vm.Undefined, err
			}
			if !m.IsUndefined() {
				if maxByteLength, err = call.VM.ToIndex(m); err != nil {
					return vm.Undefined, err
				}
			}
		}
		buf, err := call.VM.AllocateArrayBuffer(call.NewTarget, byteLength, maxByteLength)
		if err != nil {
			return vm.Undefined, err
		}
		return buf.Value(), nil
	}
	ctor := r.NewNativeConstructor("ArrayBuffer", 1, nil, construct, bufferProto)
	r.SetGlobal("ArrayBuffer", ctor.Value())

	// ArrayBuffer.isView(arg)
	method(r, ctor, "isView", 1, func(call vm.FunctionCall) (vm.Value, error) {
		arg := call.Argument(0)
		if !arg.IsObject() {
			return vm.False, nil
		}
		kind := arg.AsObject().Kind()
		return vm.BooleanValue(kind == vm.KindTypedArray || kind == vm.KindDataView), nil
	})

	getter(r, ctor, vm.SymbolKey(vm.SymSpecies), func(call vm.FunctionCall) (vm.Value, error) {
		return call.This, nil
	})

	getter(r, bufferProto, vm.StringKey("byteLength"), bufferGetter("byteLength", func(b *vm.Object) vm.Value {
		return numberValue(b.BufferByteLength())
	}))
	getter(r, bufferProto, vm.StringKey("maxByteLength"), bufferGetter("maxByteLength", func(b *vm.Object) vm.Value {
		return numberValue(b.BufferMaxByteLength())
	}))
	getter(r, bufferProto, vm.StringKey("resizable"), bufferGetter("resizable", func(b *vm.Object) vm.Value {
		return vm.BooleanValue(b.IsResizableBuffer())
	}))
	getter(r, bufferProto, vm.StringKey("detached"), bufferGetter("detached", func(b *vm.Object) vm.Value {
		return vm.BooleanValue(b.IsDetachedBuffer())
	}))

	// ArrayBuffer.prototype.resize(newLength)
	method(r, bufferProto, "resize", 1, func(call vm.FunctionCall) (vm.Value, error) {
		if _, err := thisBuffer(call, "resize"); err != nil {
			return vm.Undefined, err
		}
		n, err := call.VM.ToIndex(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		return vm.Undefined, call.VM.ArrayBufferResize(call.This, n)
	})

	// ArrayBuffer.prototype.slice(start, end)
	method(r, bufferProto, "slice", 2, func(call vm.FunctionCall) (vm.Value, error) {
		b, err := thisBuffer(call, "slice")
		if err != nil {
			return vm.Undefined, err
		}
		if b.IsDetachedBuffer() {
			return vm.Undefined, call.VM.NewTypeError("Cannot perform ArrayBuffer.prototype.slice on a detached ArrayBuffer")
		}
		n := int64(b.BufferByteLength())
		first, err := relativeIndex(call.VM, call.Argument(0), n, 0)
		if err != nil {
			return vm.Undefined, err
		}
		final, err := relativeIndex(call.VM, call.Argument(1), n, n)
		if err != nil {
			return vm.Undefined, err
		}
		out, err := call.VM.ArrayBufferSlice(call.This, first, final)
		if err != nil {
			return vm.Undefined, err
		}
		return out.Value(), nil
	})

	// ArrayBuffer.prototype.transfer / transferToFixedLength
	transfer := func(name string, preserve bool) {
		method(r, bufferProto, name, 0, func(call vm.FunctionCall) (vm.Value, error) {
			if _, err := thisBuffer(call, name); err != nil {
				return vm.Undefined, err
			}
			n := int64(-1)
			if l := call.Argument(0); !l.IsUndefined() {
				var err error
				if n, err = call.VM.ToIndex(l); err != nil {
					return vm.Undefined, err
				}
			}
			out, err := call.VM.ArrayBufferTransfer(call.This, n, preserve)
			if err != nil {
				return vm.Undefined, err
			}
			return out.Value(), nil
		})
	}
	transfer("transfer", true)
	transfer("transferToFixedLength", false)

	toStringTag(bufferProto, "ArrayBuffer")
	return nil
}

func thisBuffer(call vm.FunctionCall, method string) (*vm.Object, error) {
	if !call.This.IsObject() || call.This.AsObject().Kind() != vm.KindArrayBuffer {
		return nil, call.VM.NewTypeError("Method ArrayBuffer.prototype.%s called on incompatible receiver %s", method, call.This.String())
	}
	return call.This.AsObject(), nil
}

func bufferGetter(name string, read func(b *vm.Object) vm.Value) vm.NativeFunction {
	return func(call vm.FunctionCall) (vm.Value, error) {
		b, err := thisBuffer(call, name)
		if err != nil {
			return vm.Undefined, err
		}
		return read(b), nil
	}
}
