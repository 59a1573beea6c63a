package vm

import (
	"errors"
	"fmt"

	errs "jscore/pkg/errors"
)

// Exception is a thrown JS value travelling through Go code as an error.
type Exception struct {
	value Value
}

// Value returns the thrown value.
func (e *Exception) Value() Value { return e.value }

func (e *Exception) Error() string {
	return e.Report().Error()
}

// Report describes the exception without running user code.
func (e *Exception) Report() *errs.Report {
	if e.value.IsObject() {
		o := e.value.AsObject()
		name, hasName := o.peekDataValue(StringKey("name"))
		msg, hasMsg := o.peekDataValue(StringKey("message"))
		if hasName && name.IsString() {
			r := &errs.Report{Name: name.AsString()}
			if hasMsg && msg.IsString() {
				r.Message = msg.AsString()
			}
			return r
		}
	}
	return &errs.Report{Detail: e.value.String()}
}

// AsException extracts the thrown value from err, if err carries one.
func AsException(err error) (*Exception, bool) {
	var ex *Exception
	if errors.As(err, &ex) {
		return ex, true
	}
	return nil, false
}

// Throw wraps v as an error.
func (vm *VM) Throw(v Value) error {
	return &Exception{value: v}
}

// ErrorValue returns the JS value an error represents. Host errors that do
// not carry a thrown value become plain Error objects.
func (vm *VM) ErrorValue(err error) Value {
	if ex, ok := AsException(err); ok {
		return ex.value
	}
	return vm.NewErrorObject(errs.KindError, err.Error()).Value()
}

// NewErrorObject creates an error object of the given kind in the current
// realm with an own "message" property.
func (vm *VM) NewErrorObject(kind errs.Kind, message string) *Object {
	proto := vm.realm.ErrorPrototypes[kind]
	o := newObject(vm.realm, KindError, proto, kind)
	o.SetOwnMethod(StringKey("message"), NewString(message))
	return o
}

func (vm *VM) NewError(kind errs.Kind, format string, args ...any) error {
	return &Exception{value: vm.NewErrorObject(kind, fmt.Sprintf(format, args...)).Value()}
}

func (vm *VM) NewTypeError(format string, args ...any) error {
	return vm.NewError(errs.KindTypeError, format, args...)
}

func (vm *VM) NewRangeError(format string, args ...any) error {
	return vm.NewError(errs.KindRangeError, format, args...)
}

func (vm *VM) NewReferenceError(format string, args ...any) error {
	return vm.NewError(errs.KindReferenceError, format, args...)
}

func (vm *VM) NewSyntaxError(format string, args ...any) error {
	return vm.NewError(errs.KindSyntaxError, format, args...)
}

// ErrorKindOf reports the native kind of a thrown error object.
func ErrorKindOf(err error) (errs.Kind, bool) {
	ex, ok := AsException(err)
	if !ok || !ex.value.IsObject() {
		return errs.KindError, false
	}
	o := ex.value.AsObject()
	if o.kind != KindError {
		return errs.KindError, false
	}
	return o.slots.(errs.Kind), true
}
