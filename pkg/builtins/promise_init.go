package builtins

import (
	"jscore/pkg/vm"
)

type PromiseInitializer struct{}

func (p *PromiseInitializer) Name() string {
	return "Promise"
}

func (p *PromiseInitializer) Priority() int {
	return PriorityPromise
}

func (p *PromiseInitializer) InitRealm(r *vm.Realm) error {
	promiseProto := r.PromisePrototype

	construct := func(call vm.FunctionCall) (vm.Value, error) {
		promise, err := call.VM.PromiseConstruct(call.NewTarget, call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		return promise.Value(), nil
	}
	ctor := r.NewNativeConstructor("Promise", 1, nil, construct, promiseProto)
	r.PromiseConstructor = ctor
	r.SetGlobal("Promise", ctor.Value())

	getter(r, ctor, vm.SymbolKey(vm.SymSpecies), func(call vm.FunctionCall) (vm.Value, error) {
		return call.This, nil
	})

	// Promise.resolve(x)
	method(r, ctor, "resolve", 1, func(call vm.FunctionCall) (vm.Value, error) {
		if !call.This.IsObject() {
			return vm.Undefined, call.VM.NewTypeError("PromiseResolve called on non-object")
		}
		return call.VM.PromiseResolveWith(call.This, call.Argument(0))
	})

	// Promise.reject(r)
	method(r, ctor, "reject", 1, func(call vm.FunctionCall) (vm.Value, error) {
		if !call.This.IsObject() {
			return vm.Undefined, call.VM.NewTypeError("PromiseReject called on non-object")
		}
		return call.VM.PromiseRejectWith(call.This, call.Argument(0))
	})

	// Promise.withResolvers()
	method(r, ctor, "withResolvers", 0, func(call vm.FunctionCall) (vm.Value, error) {
		capability, err := call.VM.NewPromiseCapability(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		out := call.VM.NewObject()
		out.SetOwn("promise", capability.Promise.Value())
		out.SetOwn("resolve", capability.Resolve)
		out.SetOwn("reject", capability.Reject)
		return out.Value(), nil
	})

	method(r, ctor, "all", 1, promiseCombinator(combineAll))
	method(r, ctor, "allSettled", 1, promiseCombinator(combineAllSettled))
	method(r, ctor, "race", 1, promiseCombinator(combineRace))

	p.initPrototype(r, promiseProto)
	return nil
}

func (p *PromiseInitializer) initPrototype(r *vm.Realm, promiseProto *vm.Object) {
	// Promise.prototype.then(onFulfilled, onRejected)
	method(r, promiseProto, "then", 2, func(call vm.FunctionCall) (vm.Value, error) {
		return call.VM.PromiseThen(call.This, call.Argument(0), call.Argument(1))
	})

	// Promise.prototype.catch(onRejected)
	method(r, promiseProto, "catch", 1, func(call vm.FunctionCall) (vm.Value, error) {
		return call.VM.Invoke(call.This, vm.StringKey("then"), vm.Undefined, call.Argument(0))
	})

	// Promise.prototype.finally(onFinally)
	method(r, promiseProto, "finally", 1, func(call vm.FunctionCall) (vm.Value, error) {
		promise, err := thisObject(call, "Promise.prototype.finally")
		if err != nil {
			return vm.Undefined, err
		}
		c, err := call.VM.SpeciesConstructor(promise, call.VM.Realm().PromiseConstructor)
		if err != nil {
			return vm.Undefined, err
		}
		onFinally := call.Argument(0)
		if !onFinally.IsCallable() {
			return call.VM.Invoke(call.This, vm.StringKey("then"), onFinally, onFinally)
		}
		thenFinally := call.VM.NewNativeFunction("", 1, func(inner vm.FunctionCall) (vm.Value, error) {
			value := inner.Argument(0)
			result, err := inner.VM.Call(onFinally, vm.Undefined)
			if err != nil {
				return vm.Undefined, err
			}
			next, err := inner.VM.PromiseResolveWith(c, result)
			if err != nil {
				return vm.Undefined, err
			}
			valueThunk := inner.VM.NewNativeFunction("", 0, func(vm.FunctionCall) (vm.Value, error) {
				return value, nil
			})
			return inner.VM.Invoke(next, vm.StringKey("then"), valueThunk.Value())
		})
		catchFinally := call.VM.NewNativeFunction("", 1, func(inner vm.FunctionCall) (vm.Value, error) {
			reason := inner.Argument(0)
			result, err := inner.VM.Call(onFinally, vm.Undefined)
			if err != nil {
				return vm.Undefined, err
			}
			next, err := inner.VM.PromiseResolveWith(c, result)
			if err != nil {
				return vm.Undefined, err
			}
			thrower := inner.VM.NewNativeFunction("", 0, func(t vm.FunctionCall) (vm.Value, error) {
				return vm.Undefined, t.VM.Throw(reason)
			})
			return inner.VM.Invoke(next, vm.StringKey("then"), thrower.Value())
		})
		return call.VM.Invoke(call.This, vm.StringKey("then"), thenFinally.Value(), catchFinally.Value())
	})

	toStringTag(promiseProto, "Promise")
}

// combinator drives one of Promise.all, allSettled or race over the
// resolved elements of an iterable.
type combinator func(call vm.FunctionCall, capability *vm.PromiseCapability, rec *vm.IteratorRecord, resolve vm.Value) error

func promiseCombinator(run combinator) vm.NativeFunction {
	return func(call vm.FunctionCall) (vm.Value, error) {
		capability, err := call.VM.NewPromiseCapability(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		reject := func(err error) (vm.Value, error) {
			if _, err := call.VM.Call(capability.Reject, vm.Undefined, call.VM.ErrorValue(err)); err != nil {
				return vm.Undefined, err
			}
			return capability.Promise.Value(), nil
		}
		resolve, err := call.VM.Get(call.This.AsObject(), vm.StringKey("resolve"))
		if err != nil {
			return reject(err)
		}
		if !resolve.IsCallable() {
			return reject(call.VM.NewTypeError("Promise resolve is not a function"))
		}
		rec, err := call.VM.GetIterator(call.Argument(0), vm.IteratorSync)
		if err != nil {
			return reject(err)
		}
		if err := run(call, capability, rec, resolve); err != nil {
			if !rec.Done {
				err = call.VM.IteratorClose(rec, err)
			}
			return reject(err)
		}
		return capability.Promise.Value(), nil
	}
}

// forEachPromise resolves every element through C.resolve and calls visit
// with the element index and the resolved promise-like value.
func forEachPromise(call vm.FunctionCall, rec *vm.IteratorRecord, resolve vm.Value, visit func(index int, next vm.Value) error) (int, error) {
	index := 0
	for {
		v, ok, err := call.VM.IteratorStepValue(rec)
		if err != nil {
			return index, err
		}
		if !ok {
			return index, nil
		}
		next, err := call.VM.Call(resolve, call.This, v)
		if err != nil {
			return index, err
		}
		if err := visit(index, next); err != nil {
			return index, err
		}
		index++
	}
}

func combineAll(call vm.FunctionCall, capability *vm.PromiseCapability, rec *vm.IteratorRecord, resolve vm.Value) error {
	return combineCollect(call, capability, rec, resolve, false)
}

func combineAllSettled(call vm.FunctionCall, capability *vm.PromiseCapability, rec *vm.IteratorRecord, resolve vm.Value) error {
	return combineCollect(call, capability, rec, resolve, true)
}

// combineCollect implements Promise.all and, with settled set,
// Promise.allSettled.
func combineCollect(call vm.FunctionCall, capability *vm.PromiseCapability, rec *vm.IteratorRecord, resolve vm.Value, settled bool) error {
	var values []vm.Value
	remaining := 1
	finish := func(machine *vm.VM) error {
		remaining--
		if remaining > 0 {
			return nil
		}
		_, err := machine.Call(capability.Resolve, vm.Undefined, machine.CreateArrayFromList(values).Value())
		return err
	}
	element := func(index int, status string, key string) vm.Value {
		called := false
		return call.VM.NewNativeFunction("", 1, func(inner vm.FunctionCall) (vm.Value, error) {
			if called {
				return vm.Undefined, nil
			}
			called = true
			v := inner.Argument(0)
			if status != "" {
				entry := inner.VM.NewObject()
				entry.SetOwn("status", vm.NewString(status))
				entry.SetOwn(key, v)
				v = entry.Value()
			}
			values[index] = v
			return vm.Undefined, finish(inner.VM)
		}).Value()
	}
	_, err := forEachPromise(call, rec, resolve, func(index int, next vm.Value) error {
		values = append(values, vm.Undefined)
		remaining++
		onFulfilled, onRejected := element(index, "", ""), capability.Reject
		if settled {
			onFulfilled = element(index, "fulfilled", "value")
			onRejected = element(index, "rejected", "reason")
		}
		_, err := call.VM.Invoke(next, vm.StringKey("then"), onFulfilled, onRejected)
		return err
	})
	if err != nil {
		return err
	}
	return finish(call.VM)
}

func combineRace(call vm.FunctionCall, capability *vm.PromiseCapability, rec *vm.IteratorRecord, resolve vm.Value) error {
	_, err := forEachPromise(call, rec, resolve, func(_ int, next vm.Value) error {
		_, err := call.VM.Invoke(next, vm.StringKey("then"), capability.Resolve, capability.Reject)
		return err
	})
	return err
}
