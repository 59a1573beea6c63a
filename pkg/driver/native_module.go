package driver

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"

	errs "jscore/pkg/errors"
	"jscore/pkg/vm"
)

// ModuleBuilder provides the declarative API for building native modules.
// Like the builtin initializers it creates runtime values directly, in the
// realm the module is being instantiated for.
type ModuleBuilder struct {
	machine  *vm.VM
	bindings map[string]*binding
	err      error
}

// NamespaceBuilder builds a plain object exported from a module.
type NamespaceBuilder struct {
	m   *ModuleBuilder
	obj *vm.Object
}

// NativeModule is a module declared in Go code. Each realm that imports it
// gets its own instance, so exported functions belong to the importing realm.
type NativeModule struct {
	name      string
	builder   func(*ModuleBuilder)
	instances map[*vm.Realm]*moduleInstance
}

type moduleInstance struct {
	namespace *vm.Object
	bindings  map[string]*binding
}

// binding is one exported name. A binding that is not initialized reads as
// a ReferenceError through the namespace.
type binding struct {
	value       vm.Value
	initialized bool
	mutable     bool
}

func (b *binding) read() (vm.Value, bool) {
	return b.value, b.initialized
}

func (m *ModuleBuilder) define(name string, b *binding) {
	if _, dup := m.bindings[name]; dup {
		m.fail(fmt.Errorf("duplicate export %q", name))
		return
	}
	m.bindings[name] = b
}

func (m *ModuleBuilder) fail(err error) {
	if m.err == nil {
		m.err = err
	}
}

func (m *ModuleBuilder) convert(name string, value any) vm.Value {
	v, err := goValueToVM(m.machine, value)
	if err != nil {
		m.fail(fmt.Errorf("export %q: %w", name, err))
	}
	return v
}

// VM returns the machine the module is being instantiated on.
func (m *ModuleBuilder) VM() *vm.VM { return m.machine }

// Const adds an immutable export.
func (m *ModuleBuilder) Const(name string, value any) *ModuleBuilder {
	m.define(name, &binding{value: m.convert(name, value), initialized: true})
	return m
}

// Let adds an export the host may later reassign with NativeModule.Set.
func (m *ModuleBuilder) Let(name string, value any) *ModuleBuilder {
	m.define(name, &binding{value: m.convert(name, value), initialized: true, mutable: true})
	return m
}

// Pending adds a mutable export that stays uninitialized until the host
// calls NativeModule.Set.
func (m *ModuleBuilder) Pending(name string) *ModuleBuilder {
	m.define(name, &binding{mutable: true})
	return m
}

// Function adds a function export. fn is either a vm.NativeFunction or an
// ordinary Go func whose parameters and results are converted by reflection.
func (m *ModuleBuilder) Function(name string, fn any) *ModuleBuilder {
	f, err := goFunctionToVM(m.machine, name, fn)
	if err != nil {
		m.fail(fmt.Errorf("export %q: %w", name, err))
	}
	m.define(name, &binding{value: f, initialized: true})
	return m
}

// Namespace exports an object built by builder.
func (m *ModuleBuilder) Namespace(name string, builder func(ns *NamespaceBuilder)) *ModuleBuilder {
	ns := &NamespaceBuilder{m: m, obj: m.machine.NewObject()}
	builder(ns)
	m.define(name, &binding{value: ns.obj.Value(), initialized: true})
	return m
}

// Default sets the default export.
func (m *ModuleBuilder) Default(value any) *ModuleBuilder {
	return m.Const("default", value)
}

// Const adds a read-only property to the namespace object.
func (ns *NamespaceBuilder) Const(name string, value any) *NamespaceBuilder {
	v := ns.m.convert(name, value)
	if err := ns.m.machine.DefinePropertyOrThrow(ns.obj, vm.StringKey(name), vm.DataDescriptor(v, false, true, false)); err != nil {
		ns.m.fail(fmt.Errorf("export %q: %w", name, err))
	}
	return ns
}

// Function adds a method to the namespace object.
func (ns *NamespaceBuilder) Function(name string, fn any) *NamespaceBuilder {
	f, err := goFunctionToVM(ns.m.machine, name, fn)
	if err != nil {
		ns.m.fail(fmt.Errorf("export %q: %w", name, err))
	}
	ns.obj.SetOwn(name, f)
	return ns
}

// Name returns the module specifier.
func (nm *NativeModule) Name() string { return nm.name }

// instantiate runs the builder in the current realm of machine, once per
// realm.
func (nm *NativeModule) instantiate(machine *vm.VM) (*moduleInstance, error) {
	realm := machine.Realm()
	if inst, ok := nm.instances[realm]; ok {
		return inst, nil
	}
	m := &ModuleBuilder{machine: machine, bindings: make(map[string]*binding)}
	nm.builder(m)
	if m.err != nil {
		return nil, fmt.Errorf("instantiate module %q: %w", nm.name, m.err)
	}
	exports := make(map[string]vm.ModuleExport, len(m.bindings))
	for name, b := range m.bindings {
		exports[name] = b.read
	}
	inst := &moduleInstance{namespace: machine.NewModuleNamespace(exports), bindings: m.bindings}
	nm.instances[realm] = inst
	return inst, nil
}

// Set assigns a mutable export in every realm that has imported the module.
func (nm *NativeModule) Set(name string, value any) error {
	for _, inst := range nm.instances {
		b, ok := inst.bindings[name]
		if !ok {
			return fmt.Errorf("module %q has no export %q", nm.name, name)
		}
		if !b.mutable {
			return fmt.Errorf("export %q of module %q is constant", name, nm.name)
		}
	}
	for realm, inst := range nm.instances {
		v, err := goValueToVM(realm.VM(), value)
		if err != nil {
			return fmt.Errorf("set %q: %w", name, err)
		}
		b := inst.bindings[name]
		b.value, b.initialized = v, true
	}
	return nil
}

// Exports lists the export names in namespace order.
func (nm *NativeModule) Exports(machine *vm.VM) ([]string, error) {
	inst, err := nm.instantiate(machine)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(inst.bindings))
	for name := range inst.bindings {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return vm.CompareUTF16(names[i], names[j]) < 0 })
	return names, nil
}

var (
	valueType      = reflect.TypeOf(vm.Value{})
	objectPtrType  = reflect.TypeOf((*vm.Object)(nil))
	bigIntPtrType  = reflect.TypeOf((*big.Int)(nil))
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
	functionCallTy = reflect.TypeOf(vm.FunctionCall{})
)

// goValueToVM converts a Go value to a VM value.
func goValueToVM(machine *vm.VM, value any) (vm.Value, error) {
	switch v := value.(type) {
	case nil:
		return vm.Null, nil
	case vm.Value:
		return v, nil
	case *vm.Object:
		if v == nil {
			return vm.Null, nil
		}
		return v.Value(), nil
	case string:
		return vm.NewString(v), nil
	case bool:
		return vm.BooleanValue(v), nil
	case int:
		return vm.NumberValue(float64(v)), nil
	case float64:
		return vm.NumberValue(v), nil
	case *big.Int:
		return vm.NewBigInt(v), nil
	case vm.NativeFunction:
		return machine.NewNativeFunction("", 0, v).Value(), nil
	}
	return reflectValueToVM(machine, reflect.ValueOf(value))
}

// reflectValueToVM converts a reflect.Value to a VM value. Slices become
// arrays and string-keyed maps become ordinary objects with sorted keys.
func reflectValueToVM(machine *vm.VM, rv reflect.Value) (vm.Value, error) {
	if !rv.IsValid() {
		return vm.Undefined, nil
	}
	if rv.Type() == valueType {
		return rv.Interface().(vm.Value), nil
	}
	switch rv.Kind() {
	case reflect.String:
		return vm.NewString(rv.String()), nil
	case reflect.Bool:
		return vm.BooleanValue(rv.Bool()), nil
	case reflect.Int, reflect.Int64, reflect.Int32, reflect.Int16, reflect.Int8:
		return vm.NumberValue(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint64, reflect.Uint32, reflect.Uint16, reflect.Uint8:
		return vm.NumberValue(float64(rv.Uint())), nil
	case reflect.Float64, reflect.Float32:
		return vm.NumberValue(rv.Float()), nil
	case reflect.Pointer:
		if rv.IsNil() {
			return vm.Null, nil
		}
		if rv.Type() == objectPtrType || rv.Type() == bigIntPtrType {
			return goValueToVM(machine, rv.Interface())
		}
		return reflectValueToVM(machine, rv.Elem())
	case reflect.Interface:
		if rv.IsNil() {
			return vm.Null, nil
		}
		return goValueToVM(machine, rv.Interface())
	case reflect.Slice, reflect.Array:
		list := make([]vm.Value, rv.Len())
		for i := range list {
			v, err := reflectValueToVM(machine, rv.Index(i))
			if err != nil {
				return vm.Undefined, err
			}
			list[i] = v
		}
		return machine.CreateArrayFromList(list).Value(), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return vm.Undefined, fmt.Errorf("unsupported map key type %s", rv.Type().Key())
		}
		keys := rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		obj := machine.NewObject()
		for _, key := range keys {
			v, err := reflectValueToVM(machine, rv.MapIndex(key))
			if err != nil {
				return vm.Undefined, err
			}
			obj.SetOwn(key.String(), v)
		}
		return obj.Value(), nil
	case reflect.Func:
		return goFunctionToVM(machine, "", rv.Interface())
	}
	return vm.Undefined, fmt.Errorf("unsupported Go type %s", rv.Type())
}

// goFunctionToVM wraps a Go function as a native function. Arguments are
// coerced with the abstract operations matching each parameter type. A
// trailing error result is thrown: *vm.Exception values as-is, anything
// else as an Error with the Go message.
func goFunctionToVM(machine *vm.VM, name string, fn any) (vm.Value, error) {
	switch f := fn.(type) {
	case vm.NativeFunction:
		return machine.NewNativeFunction(name, 0, f).Value(), nil
	case func(vm.FunctionCall) (vm.Value, error):
		return machine.NewNativeFunction(name, 0, f).Value(), nil
	}

	fnValue := reflect.ValueOf(fn)
	fnType := fnValue.Type()
	if fnType.Kind() != reflect.Func {
		return vm.Undefined, fmt.Errorf("%s is not a function", fnType)
	}
	returnsErr := fnType.NumOut() > 0 && fnType.Out(fnType.NumOut()-1) == errorType
	if fnType.NumOut() > 2 || (fnType.NumOut() == 2 && !returnsErr) {
		return vm.Undefined, fmt.Errorf("function %s must return at most a value and an error", fnType)
	}
	for i := 0; i < fnType.NumIn(); i++ {
		if fnType.In(i) == functionCallTy {
			return vm.Undefined, fmt.Errorf("function %s takes vm.FunctionCall but is not a vm.NativeFunction", fnType)
		}
	}

	length := fnType.NumIn()
	if fnType.IsVariadic() {
		length--
	}
	return machine.NewNativeFunction(name, length, func(call vm.FunctionCall) (vm.Value, error) {
		args, err := vmArgsToGo(call, fnType)
		if err != nil {
			return vm.Undefined, err
		}
		var results []reflect.Value
		if fnType.IsVariadic() {
			results = fnValue.CallSlice(args)
		} else {
			results = fnValue.Call(args)
		}
		if returnsErr {
			if errv := results[len(results)-1]; !errv.IsNil() {
				return vm.Undefined, hostError(call.VM, errv.Interface().(error))
			}
			results = results[:len(results)-1]
		}
		if len(results) == 0 {
			return vm.Undefined, nil
		}
		v, err := reflectValueToVM(call.VM, results[0])
		if err != nil {
			return vm.Undefined, call.VM.NewTypeError("%s: %s", name, err.Error())
		}
		return v, nil
	}).Value(), nil
}

func hostError(machine *vm.VM, err error) error {
	if _, ok := vm.AsException(err); ok {
		return err
	}
	return machine.Throw(machine.NewErrorObject(errs.KindError, err.Error()).Value())
}

func vmArgsToGo(call vm.FunctionCall, fnType reflect.Type) ([]reflect.Value, error) {
	fixed := fnType.NumIn()
	if fnType.IsVariadic() {
		fixed--
	}
	args := make([]reflect.Value, 0, fnType.NumIn())
	for i := 0; i < fixed; i++ {
		v, err := vmValueToReflect(call.VM, call.Argument(i), fnType.In(i))
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	if fnType.IsVariadic() {
		elem := fnType.In(fixed).Elem()
		rest := reflect.MakeSlice(fnType.In(fixed), 0, len(call.Args))
		for i := fixed; i < len(call.Args); i++ {
			v, err := vmValueToReflect(call.VM, call.Args[i], elem)
			if err != nil {
				return nil, err
			}
			rest = reflect.Append(rest, v)
		}
		args = append(args, rest)
	}
	return args, nil
}

// vmValueToReflect coerces a VM value to the Go parameter type t.
func vmValueToReflect(machine *vm.VM, v vm.Value, t reflect.Type) (reflect.Value, error) {
	switch t {
	case valueType:
		return reflect.ValueOf(v), nil
	case objectPtrType:
		if !v.IsObject() {
			return reflect.Value{}, machine.NewTypeError("%s is not an object", v.String())
		}
		return reflect.ValueOf(v.AsObject()), nil
	case bigIntPtrType:
		b, err := machine.ToBigInt(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(b), nil
	}
	switch t.Kind() {
	case reflect.String:
		s, err := machine.ToString(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(s).Convert(t), nil
	case reflect.Bool:
		return reflect.ValueOf(vm.ToBoolean(v)).Convert(t), nil
	case reflect.Float64, reflect.Float32:
		f, err := machine.ToNumber(v)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(f).Convert(t), nil
	case reflect.Int, reflect.Int64, reflect.Int32, reflect.Int16, reflect.Int8:
		f, err := machine.ToIntegerOrInfinity(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if math.IsInf(f, 0) {
			return reflect.Value{}, machine.NewRangeError("%s is out of range", v.String())
		}
		rv := reflect.New(t).Elem()
		rv.SetInt(int64(f))
		return rv, nil
	case reflect.Uint, reflect.Uint64, reflect.Uint32, reflect.Uint16, reflect.Uint8:
		f, err := machine.ToIntegerOrInfinity(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if f < 0 || math.IsInf(f, 0) {
			return reflect.Value{}, machine.NewRangeError("%s is out of range", v.String())
		}
		rv := reflect.New(t).Elem()
		rv.SetUint(uint64(f))
		return rv, nil
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return reflect.ValueOf(v), nil
		}
	}
	return reflect.Value{}, machine.NewTypeError("cannot convert %s to %s", v.String(), t.String())
}
