package builtins

import (
	"jscore/pkg/vm"
)

// AsyncGeneratorInitializer implements %AsyncGeneratorFunction.prototype%
// and %AsyncGeneratorPrototype%. Every method returns a promise; errors
// reject it instead of throwing.
type AsyncGeneratorInitializer struct{}

func (g *AsyncGeneratorInitializer) Name() string {
	return "AsyncGenerator"
}

func (g *AsyncGeneratorInitializer) Priority() int {
	return PriorityAsyncGenerator
}

func (g *AsyncGeneratorInitializer) InitRealm(r *vm.Realm) error {
	genProto := r.AsyncGeneratorPrototype
	fnProto := r.AsyncGeneratorFunctionPrototype

	fnProto.SetOwnReadonly(vm.StringKey("prototype"), genProto.Value())
	genProto.SetOwnReadonly(vm.StringKey("constructor"), fnProto.Value())
	toStringTag(fnProto, "AsyncGeneratorFunction")

	method(r, genProto, "next", 1, func(call vm.FunctionCall) (vm.Value, error) {
		return call.VM.AsyncGeneratorNext(call.This, call.Argument(0)), nil
	})
	method(r, genProto, "return", 1, func(call vm.FunctionCall) (vm.Value, error) {
		return call.VM.AsyncGeneratorReturn(call.This, call.Argument(0)), nil
	})
	method(r, genProto, "throw", 1, func(call vm.FunctionCall) (vm.Value, error) {
		return call.VM.AsyncGeneratorThrow(call.This, call.Argument(0)), nil
	})
	toStringTag(genProto, "AsyncGenerator")

	return nil
}
