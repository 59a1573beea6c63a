package builtins

import (
	errs "jscore/pkg/errors"
	"jscore/pkg/vm"
)

// ErrorInitializer installs Error and the native error constructors.
type ErrorInitializer struct{}

func (e *ErrorInitializer) Name() string {
	return "Error"
}

func (e *ErrorInitializer) Priority() int {
	return PriorityError
}

func (e *ErrorInitializer) InitRealm(r *vm.Realm) error {
	var errorCtor *vm.Object
	for _, kind := range errs.Kinds {
		ctor := e.newErrorConstructor(r, kind)
		if kind == errs.KindError {
			errorCtor = ctor
		} else if _, err := ctor.SetPrototypeOf(r.VM(), errorCtor); err != nil {
			return err
		}
		r.SetGlobal(kind.String(), ctor.Value())
	}

	// Error.prototype.toString
	method(r, r.ErrorPrototypes[errs.KindError], "toString", 0, func(call vm.FunctionCall) (vm.Value, error) {
		o, err := thisObject(call, "Error.prototype.toString")
		if err != nil {
			return vm.Undefined, err
		}
		name, err := stringProperty(call.VM, o, "name", "Error")
		if err != nil {
			return vm.Undefined, err
		}
		msg, err := stringProperty(call.VM, o, "message", "")
		if err != nil {
			return vm.Undefined, err
		}
		switch {
		case name == "":
			return vm.NewString(msg), nil
		case msg == "":
			return vm.NewString(name), nil
		}
		return vm.NewString(name + ": " + msg), nil
	})

	return nil
}

// newErrorConstructor builds one of the error constructors. Calling it
// without new behaves like new.
func (e *ErrorInitializer) newErrorConstructor(r *vm.Realm, kind errs.Kind) *vm.Object {
	proto := r.ErrorPrototypes[kind]
	var ctor *vm.Object
	construct := func(call vm.FunctionCall) (vm.Value, error) {
		newTarget := call.NewTarget
		if newTarget == nil {
			newTarget = ctor
		}
		o, err := call.VM.NewErrorFromConstructor(newTarget, proto, kind)
		if err != nil {
			return vm.Undefined, err
		}
		if msg := call.Argument(0); !msg.IsUndefined() {
			s, err := call.VM.ToStringValue(msg)
			if err != nil {
				return vm.Undefined, err
			}
			o.SetOwnMethod(vm.StringKey("message"), s)
		}
		if err := installErrorCause(call.VM, o, call.Argument(1)); err != nil {
			return vm.Undefined, err
		}
		return o.Value(), nil
	}
	ctor = r.NewNativeConstructor(kind.String(), 1, construct, construct, proto)
	return ctor
}

// installErrorCause copies options.cause when present.
func installErrorCause(machine *vm.VM, o *vm.Object, options vm.Value) error {
	if !options.IsObject() {
		return nil
	}
	key := vm.StringKey("cause")
	has, err := options.AsObject().HasProperty(machine, key)
	if err != nil || !has {
		return err
	}
	cause, err := machine.Get(options.AsObject(), key)
	if err != nil {
		return err
	}
	o.SetOwnMethod(key, cause)
	return nil
}

// stringProperty reads o[name] as a string, using dflt for undefined.
func stringProperty(machine *vm.VM, o *vm.Object, name, dflt string) (string, error) {
	v, err := machine.Get(o, vm.StringKey(name))
	if err != nil {
		return "", err
	}
	if v.IsUndefined() {
		return dflt, nil
	}
	return machine.ToString(v)
}
