package vm

import errs "jscore/pkg/errors"

// PromiseState is the [[PromiseState]] of a promise.
type PromiseState uint8

const (
	PromisePending PromiseState = iota
	PromiseFulfilled
	PromiseRejected
)

func (s PromiseState) String() string {
	switch s {
	case PromiseFulfilled:
		return "fulfilled"
	case PromiseRejected:
		return "rejected"
	default:
		return "pending"
	}
}

type promiseReaction struct {
	capability *PromiseCapability // nil for internal awaits
	handler    Value
	rejected   bool
}

type promiseSlots struct {
	state            PromiseState
	result           Value
	fulfillReactions []*promiseReaction
	rejectReactions  []*promiseReaction
	handled          bool
}

// PromiseCapability bundles a promise with the functions that settle it.
type PromiseCapability struct {
	Promise *Object
	Resolve Value
	Reject  Value
}

// NewPromise creates a pending intrinsic promise and its resolving functions.
func (vm *VM) NewPromise() (p *Object, resolve, reject Value) {
	p = newObject(vm.realm, KindPromise, vm.realm.PromisePrototype, &promiseSlots{result: Undefined})
	resolve, reject = vm.CreateResolvingFunctions(p)
	return p, resolve, reject
}

// PromiseConstruct runs the Promise constructor for newTarget.
func (vm *VM) PromiseConstruct(newTarget *Object, executor Value) (*Object, error) {
	if !executor.IsCallable() {
		return nil, vm.NewTypeError("Promise resolver %s is not a function", describeForError(executor))
	}
	proto, err := vm.GetPrototypeFromConstructor(newTarget, vm.realm.PromisePrototype)
	if err != nil {
		return nil, err
	}
	p := newObject(vm.realm, KindPromise, proto, &promiseSlots{result: Undefined})
	resolve, reject := vm.CreateResolvingFunctions(p)
	if _, err := vm.Call(executor, Undefined, resolve, reject); err != nil {
		if _, err := vm.Call(reject, Undefined, vm.ErrorValue(err)); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// NewPromiseCapability creates a capability from constructor c. The
// intrinsic %Promise% (or undefined) takes the direct path.
func (vm *VM) NewPromiseCapability(c Value) (*PromiseCapability, error) {
	if c.IsUndefined() || (c.IsObject() && c.AsObject() == vm.realm.PromiseConstructor) {
		p, resolve, reject := vm.NewPromise()
		return &PromiseCapability{Promise: p, Resolve: resolve, Reject: reject}, nil
	}
	if !c.IsConstructor() {
		return nil, vm.NewTypeError("%s is not a constructor", describeForError(c))
	}
	capability := &PromiseCapability{Resolve: Undefined, Reject: Undefined}
	executor := vm.NewNativeFunction("", 2, func(call FunctionCall) (Value, error) {
		if !capability.Resolve.IsUndefined() || !capability.Reject.IsUndefined() {
			return Undefined, call.VM.NewTypeError("Promise executor has already been invoked with non-undefined arguments")
		}
		capability.Resolve = call.Argument(0)
		capability.Reject = call.Argument(1)
		return Undefined, nil
	})
	p, err := vm.Construct(c, []Value{executor.Value()}, nil)
	if err != nil {
		return nil, err
	}
	if !capability.Resolve.IsCallable() {
		return nil, vm.NewTypeError("Promise resolve function %s is not a function", describeForError(capability.Resolve))
	}
	if !capability.Reject.IsCallable() {
		return nil, vm.NewTypeError("Promise reject function %s is not a function", describeForError(capability.Reject))
	}
	capability.Promise = p.AsObject()
	return capability, nil
}

// CreateResolvingFunctions returns resolve and reject functions for p that
// share one already-resolved flag.
func (vm *VM) CreateResolvingFunctions(p *Object) (resolve, reject Value) {
	alreadyResolved := false
	resolveFn := vm.NewNativeFunction("", 1, func(call FunctionCall) (Value, error) {
		if alreadyResolved {
			return Undefined, nil
		}
		alreadyResolved = true
		call.VM.resolvePromise(p, call.Argument(0))
		return Undefined, nil
	})
	rejectFn := vm.NewNativeFunction("", 1, func(call FunctionCall) (Value, error) {
		if alreadyResolved {
			return Undefined, nil
		}
		alreadyResolved = true
		call.VM.RejectPromise(p, call.Argument(0))
		return Undefined, nil
	})
	return resolveFn.Value(), rejectFn.Value()
}

func (vm *VM) resolvePromise(p *Object, resolution Value) {
	if resolution.IsObject() && resolution.AsObject() == p {
		vm.RejectPromise(p, vm.NewErrorObject(errs.KindTypeError, "Chaining cycle detected for promise #<Promise>").Value())
		return
	}
	if !resolution.IsObject() {
		vm.FulfillPromise(p, resolution)
		return
	}
	then, err := vm.Get(resolution.AsObject(), StringKey("then"))
	if err != nil {
		vm.RejectPromise(p, vm.ErrorValue(err))
		return
	}
	if !then.IsCallable() {
		vm.FulfillPromise(p, resolution)
		return
	}
	vm.EnqueueJob(func() {
		resolve, reject := vm.CreateResolvingFunctions(p)
		if _, err := vm.Call(then, resolution, resolve, reject); err != nil {
			vm.reportJobError(vm.callQuiet(reject, vm.ErrorValue(err)))
		}
	})
}

// FulfillPromise settles a pending promise with v and schedules its
// fulfill reactions.
func (vm *VM) FulfillPromise(p *Object, v Value) {
	s := p.slots.(*promiseSlots)
	if s.state != PromisePending {
		return
	}
	reactions := s.fulfillReactions
	s.state, s.result = PromiseFulfilled, v
	s.fulfillReactions, s.rejectReactions = nil, nil
	for _, r := range reactions {
		vm.enqueueReaction(r, v)
	}
}

// RejectPromise settles a pending promise with reason and schedules its
// reject reactions.
func (vm *VM) RejectPromise(p *Object, reason Value) {
	s := p.slots.(*promiseSlots)
	if s.state != PromisePending {
		return
	}
	reactions := s.rejectReactions
	s.state, s.result = PromiseRejected, reason
	s.fulfillReactions, s.rejectReactions = nil, nil
	if !s.handled {
		vm.logger.Debug().Str("reason", reason.String()).Msg("promise rejected without a handler")
	}
	for _, r := range reactions {
		vm.enqueueReaction(r, reason)
	}
}

func (vm *VM) enqueueReaction(r *promiseReaction, argument Value) {
	vm.EnqueueJob(func() {
		var (
			result Value
			err    error
		)
		switch {
		case r.handler.IsUndefined() && r.rejected:
			err = vm.Throw(argument)
		case r.handler.IsUndefined():
			result = argument
		default:
			result, err = vm.Call(r.handler, Undefined, argument)
		}
		if r.capability == nil {
			vm.reportJobError(err)
			return
		}
		if err != nil {
			vm.reportJobError(vm.callQuiet(r.capability.Reject, vm.ErrorValue(err)))
			return
		}
		vm.reportJobError(vm.callQuiet(r.capability.Resolve, result))
	})
}

func (vm *VM) callQuiet(f Value, arg Value) error {
	_, err := vm.Call(f, Undefined, arg)
	return err
}

// reportJobError logs an error that escaped a job. There is no caller left
// to receive it.
func (vm *VM) reportJobError(err error) {
	if err != nil {
		vm.logger.Warn().Err(err).Msg("uncaught error in job")
	}
}

// PerformPromiseThen registers reactions on p. capability may be nil when
// no derived promise is needed.
func (vm *VM) PerformPromiseThen(p *Object, onFulfilled, onRejected Value, capability *PromiseCapability) Value {
	if !onFulfilled.IsCallable() {
		onFulfilled = Undefined
	}
	if !onRejected.IsCallable() {
		onRejected = Undefined
	}
	fulfill := &promiseReaction{capability: capability, handler: onFulfilled}
	reject := &promiseReaction{capability: capability, handler: onRejected, rejected: true}
	s := p.slots.(*promiseSlots)
	switch s.state {
	case PromisePending:
		s.fulfillReactions = append(s.fulfillReactions, fulfill)
		s.rejectReactions = append(s.rejectReactions, reject)
	case PromiseFulfilled:
		vm.enqueueReaction(fulfill, s.result)
	case PromiseRejected:
		vm.enqueueReaction(reject, s.result)
	}
	s.handled = true
	if capability == nil {
		return Undefined
	}
	return capability.Promise.Value()
}

// PromiseThen implements Promise.prototype.then.
func (vm *VM) PromiseThen(p Value, onFulfilled, onRejected Value) (Value, error) {
	if !IsPromise(p) {
		return Undefined, vm.NewTypeError("Method Promise.prototype.then called on incompatible receiver %s", p.String())
	}
	c, err := vm.SpeciesConstructor(p.AsObject(), vm.realm.PromiseConstructor)
	if err != nil {
		return Undefined, err
	}
	capability, err := vm.NewPromiseCapability(c)
	if err != nil {
		return Undefined, err
	}
	return vm.PerformPromiseThen(p.AsObject(), onFulfilled, onRejected, capability), nil
}

// PromiseResolveWith implements Promise.resolve with constructor c.
func (vm *VM) PromiseResolveWith(c Value, x Value) (Value, error) {
	if IsPromise(x) {
		ctor, err := vm.Get(x.AsObject(), StringKey("constructor"))
		if err != nil {
			return Undefined, err
		}
		if SameValue(ctor, c) {
			return x, nil
		}
	}
	capability, err := vm.NewPromiseCapability(c)
	if err != nil {
		return Undefined, err
	}
	if _, err := vm.Call(capability.Resolve, Undefined, x); err != nil {
		return Undefined, err
	}
	return capability.Promise.Value(), nil
}

// PromiseResolve coerces x to an intrinsic promise.
func (vm *VM) PromiseResolve(x Value) (*Object, error) {
	c := Undefined
	if vm.realm.PromiseConstructor != nil {
		c = vm.realm.PromiseConstructor.Value()
	}
	p, err := vm.PromiseResolveWith(c, x)
	if err != nil {
		return nil, err
	}
	return p.AsObject(), nil
}

// PromiseRejectWith implements Promise.reject with constructor c.
func (vm *VM) PromiseRejectWith(c Value, reason Value) (Value, error) {
	capability, err := vm.NewPromiseCapability(c)
	if err != nil {
		return Undefined, err
	}
	if _, err := vm.Call(capability.Reject, Undefined, reason); err != nil {
		return Undefined, err
	}
	return capability.Promise.Value(), nil
}

// Await resumes with v's settled value on a later job. resume receives the
// rejection reason as an *Exception. The returned error is synchronous
// failure to wrap v.
func (vm *VM) Await(v Value, resume func(Value, error)) error {
	p, err := vm.PromiseResolve(v)
	if err != nil {
		return err
	}
	onFulfilled := vm.NewNativeFunction("", 1, func(call FunctionCall) (Value, error) {
		resume(call.Argument(0), nil)
		return Undefined, nil
	})
	onRejected := vm.NewNativeFunction("", 1, func(call FunctionCall) (Value, error) {
		resume(Undefined, call.VM.Throw(call.Argument(0)))
		return Undefined, nil
	})
	vm.PerformPromiseThen(p, onFulfilled.Value(), onRejected.Value(), nil)
	return nil
}

// SpeciesConstructor reads o.constructor[@@species], falling back to
// defaultCtor.
func (vm *VM) SpeciesConstructor(o *Object, defaultCtor *Object) (Value, error) {
	fallback := objectOrUndefined(defaultCtor)
	c, err := vm.Get(o, StringKey("constructor"))
	if err != nil {
		return Undefined, err
	}
	if c.IsUndefined() {
		return fallback, nil
	}
	if !c.IsObject() {
		return Undefined, vm.NewTypeError("object.constructor is not an object")
	}
	s, err := vm.Get(c.AsObject(), SymbolKey(SymSpecies))
	if err != nil {
		return Undefined, err
	}
	if s.IsNullish() {
		return fallback, nil
	}
	if s.IsConstructor() {
		return s, nil
	}
	return Undefined, vm.NewTypeError("object.constructor[Symbol.species] is not a constructor")
}

func objectOrUndefined(o *Object) Value {
	if o == nil {
		return Undefined
	}
	return o.Value()
}

// IsPromise reports whether v is a promise object.
func IsPromise(v Value) bool {
	return v.IsObject() && v.AsObject().kind == KindPromise
}

// PromiseState returns the state and result of a promise object.
func (o *Object) PromiseState() (PromiseState, Value) {
	s := o.slots.(*promiseSlots)
	return s.state, s.result
}
