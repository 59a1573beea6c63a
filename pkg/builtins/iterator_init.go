package builtins

import (
	"jscore/pkg/vm"
)

// IteratorInitializer populates %IteratorPrototype%, %AsyncIteratorPrototype%
// and the prototypes of the iterators the VM creates itself.
type IteratorInitializer struct{}

func (i *IteratorInitializer) Name() string {
	return "Iterator"
}

func (i *IteratorInitializer) Priority() int {
	return PriorityIterator
}

func (i *IteratorInitializer) InitRealm(r *vm.Realm) error {
	// %IteratorPrototype%[@@iterator] returns this
	symbolMethod(r, r.IteratorPrototype, vm.SymIterator, 0, func(call vm.FunctionCall) (vm.Value, error) {
		return call.This, nil
	})

	// %AsyncIteratorPrototype%[@@asyncIterator] returns this
	symbolMethod(r, r.AsyncIteratorPrototype, vm.SymAsyncIterator, 0, func(call vm.FunctionCall) (vm.Value, error) {
		return call.This, nil
	})

	method(r, r.ArrayIteratorPrototype, "next", 0, func(call vm.FunctionCall) (vm.Value, error) {
		return call.VM.ArrayIteratorNext(call.This)
	})
	toStringTag(r.ArrayIteratorPrototype, "Array Iterator")

	method(r, r.StringIteratorPrototype, "next", 0, func(call vm.FunctionCall) (vm.Value, error) {
		return call.VM.StringIteratorNext(call.This)
	})
	toStringTag(r.StringIteratorPrototype, "String Iterator")

	// %AsyncFromSyncIteratorPrototype% is not reachable from script but its
	// methods are looked up by the async iteration machinery.
	asyncFromSync := r.AsyncFromSyncIteratorPrototype
	method(r, asyncFromSync, "next", 1, func(call vm.FunctionCall) (vm.Value, error) {
		return call.VM.AsyncFromSyncIteratorNext(call.This, call.Args), nil
	})
	method(r, asyncFromSync, "return", 1, func(call vm.FunctionCall) (vm.Value, error) {
		return call.VM.AsyncFromSyncIteratorReturn(call.This, call.Args), nil
	})
	method(r, asyncFromSync, "throw", 1, func(call vm.FunctionCall) (vm.Value, error) {
		return call.VM.AsyncFromSyncIteratorThrow(call.This, call.Args), nil
	})

	return nil
}
