package builtins

import (
	"sort"

	"jscore/pkg/vm"
)

type SymbolInitializer struct{}

func (s *SymbolInitializer) Name() string {
	return "Symbol"
}

func (s *SymbolInitializer) Priority() int {
	return PrioritySymbol
}

func (s *SymbolInitializer) InitRealm(r *vm.Realm) error {
	symbolProto := r.SymbolPrototype

	// Symbol([description]) is not a constructor.
	call := func(call vm.FunctionCall) (vm.Value, error) {
		desc := call.Argument(0)
		if desc.IsUndefined() {
			return vm.NewAnonymousSymbol().Value(), nil
		}
		str, err := call.VM.ToString(desc)
		if err != nil {
			return vm.Undefined, err
		}
		return vm.NewSymbol(str).Value(), nil
	}
	ctor := r.NewNativeFunction("Symbol", 0, call)
	ctor.SetOwnConstant(vm.StringKey("prototype"), symbolProto.Value())
	symbolProto.SetOwnMethod(vm.StringKey("constructor"), ctor.Value())
	r.SetGlobal("Symbol", ctor.Value())

	// Well-known symbols in a stable order.
	names := make([]string, 0, len(vm.WellKnownSymbols))
	for name := range vm.WellKnownSymbols {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ctor.SetOwnConstant(vm.StringKey(name), vm.WellKnownSymbols[name].Value())
	}

	// Symbol.for(key)
	method(r, ctor, "for", 1, func(call vm.FunctionCall) (vm.Value, error) {
		key, err := call.VM.ToString(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		return call.VM.SymbolFor(key).Value(), nil
	})

	// Symbol.keyFor(sym)
	method(r, ctor, "keyFor", 1, func(call vm.FunctionCall) (vm.Value, error) {
		sym := call.Argument(0)
		if !sym.IsSymbol() {
			return vm.Undefined, call.VM.NewTypeError("%s is not a symbol", sym.String())
		}
		if key, ok := call.VM.SymbolKeyFor(sym.AsSymbol()); ok {
			return vm.NewString(key), nil
		}
		return vm.Undefined, nil
	})

	method(r, symbolProto, "toString", 0, func(call vm.FunctionCall) (vm.Value, error) {
		sym, err := thisSymbolValue(call, "Symbol.prototype.toString")
		if err != nil {
			return vm.Undefined, err
		}
		return vm.NewString(sym.String()), nil
	})

	valueOf := func(call vm.FunctionCall) (vm.Value, error) {
		sym, err := thisSymbolValue(call, "Symbol.prototype.valueOf")
		if err != nil {
			return vm.Undefined, err
		}
		return sym.Value(), nil
	}
	method(r, symbolProto, "valueOf", 0, valueOf)

	getter(r, symbolProto, vm.StringKey("description"), func(call vm.FunctionCall) (vm.Value, error) {
		sym, err := thisSymbolValue(call, "Symbol.prototype.description")
		if err != nil {
			return vm.Undefined, err
		}
		if d, ok := sym.Description(); ok {
			return vm.NewString(d), nil
		}
		return vm.Undefined, nil
	})

	// Symbol.prototype[@@toPrimitive] is configurable only.
	toPrimitive := r.NewNativeFunction("[Symbol.toPrimitive]", 1, valueOf)
	symbolProto.SetOwnReadonly(vm.SymbolKey(vm.SymToPrimitive), toPrimitive.Value())
	toStringTag(symbolProto, "Symbol")

	return nil
}

func thisSymbolValue(call vm.FunctionCall, method string) (*vm.Symbol, error) {
	if call.This.IsSymbol() {
		return call.This.AsSymbol(), nil
	}
	if call.This.IsObject() {
		if v, ok := call.This.AsObject().PrimitiveValue(); ok && v.IsSymbol() {
			return v.AsSymbol(), nil
		}
	}
	return nil, call.VM.NewTypeError("%s requires that 'this' be a Symbol", method)
}
