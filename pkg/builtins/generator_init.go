package builtins

import (
	"jscore/pkg/vm"
)

// GeneratorInitializer implements %GeneratorFunction.prototype% and
// %GeneratorPrototype%.
type GeneratorInitializer struct{}

func (g *GeneratorInitializer) Name() string {
	return "Generator"
}

func (g *GeneratorInitializer) Priority() int {
	return PriorityGenerator
}

func (g *GeneratorInitializer) InitRealm(r *vm.Realm) error {
	genProto := r.GeneratorPrototype
	fnProto := r.GeneratorFunctionPrototype

	// %GeneratorFunction.prototype%.prototype and its back link are
	// configurable but not writable.
	fnProto.SetOwnReadonly(vm.StringKey("prototype"), genProto.Value())
	genProto.SetOwnReadonly(vm.StringKey("constructor"), fnProto.Value())
	toStringTag(fnProto, "GeneratorFunction")

	method(r, genProto, "next", 1, func(call vm.FunctionCall) (vm.Value, error) {
		return call.VM.GeneratorNext(call.This, call.Argument(0))
	})
	method(r, genProto, "return", 1, func(call vm.FunctionCall) (vm.Value, error) {
		return call.VM.GeneratorReturn(call.This, call.Argument(0))
	})
	method(r, genProto, "throw", 1, func(call vm.FunctionCall) (vm.Value, error) {
		return call.VM.GeneratorThrow(call.This, call.Argument(0))
	})
	toStringTag(genProto, "Generator")

	return nil
}
