package builtins

import (
	"strings"

	"jscore/pkg/vm"
)

type DataViewInitializer struct{}

func (d *DataViewInitializer) Name() string {
	return "DataView"
}

func (d *DataViewInitializer) Priority() int {
	return PriorityDataView
}

// dataViewKinds are the element kinds with get/set methods.
var dataViewKinds = []vm.TypedArrayKind{
	vm.TypedArrayInt8, vm.TypedArrayUint8,
	vm.TypedArrayInt16, vm.TypedArrayUint16,
	vm.TypedArrayInt32, vm.TypedArrayUint32,
	vm.TypedArrayFloat32, vm.TypedArrayFloat64,
	vm.TypedArrayBigInt64, vm.TypedArrayBigUint64,
}

func (d *DataViewInitializer) InitRealm(r *vm.Realm) error {
	viewProto := r.DataViewPrototype

	// new DataView(buffer [, byteOffset [, byteLength]])
	construct := func(call vm.FunctionCall) (vm.Value, error) {
		buffer := call.Argument(0)
		if !buffer.IsObject() || buffer.AsObject().Kind() != vm.KindArrayBuffer {
			return vm.Undefined, call.VM.NewTypeError("First argument to DataView constructor must be an ArrayBuffer")
		}
		view, err := call.VM.NewDataView(call.NewTarget, buffer.AsObject(), call.Argument(1), call.Argument(2))
		if err != nil {
			return vm.Undefined, err
		}
		return view.Value(), nil
	}
	ctor := r.NewNativeConstructor("DataView", 1, nil, construct, viewProto)
	r.SetGlobal("DataView", ctor.Value())

	getter(r, viewProto, vm.StringKey("buffer"), func(call vm.FunctionCall) (vm.Value, error) {
		b, err := call.VM.DataViewBuffer(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		return b.Value(), nil
	})
	getter(r, viewProto, vm.StringKey("byteLength"), func(call vm.FunctionCall) (vm.Value, error) {
		n, err := call.VM.DataViewByteLength(call.This)
		return numberValue(n), err
	})
	getter(r, viewProto, vm.StringKey("byteOffset"), func(call vm.FunctionCall) (vm.Value, error) {
		n, err := call.VM.DataViewByteOffset(call.This)
		return numberValue(n), err
	})

	for _, kind := range dataViewKinds {
		suffix := strings.TrimSuffix(kind.Name(), "Array")
		method(r, viewProto, "get"+suffix, 1, func(call vm.FunctionCall) (vm.Value, error) {
			return call.VM.GetViewValue(call.This, call.Argument(0), call.Argument(1), kind)
		})
		method(r, viewProto, "set"+suffix, 2, func(call vm.FunctionCall) (vm.Value, error) {
			return vm.Undefined, call.VM.SetViewValue(call.This, call.Argument(0), call.Argument(2), kind, call.Argument(1))
		})
	}

	toStringTag(viewProto, "DataView")
	return nil
}
