package vm

type asyncFromSyncSlots struct {
	sync *IteratorRecord
}

// CreateAsyncFromSyncIterator wraps a sync iterator for async iteration.
// The methods live on %AsyncFromSyncIteratorPrototype%.
func (vm *VM) CreateAsyncFromSyncIterator(syncRec *IteratorRecord) *IteratorRecord {
	it := newObject(vm.realm, KindIterator, vm.realm.AsyncFromSyncIteratorPrototype, &asyncFromSyncSlots{sync: syncRec})
	next, _ := vm.realm.AsyncFromSyncIteratorPrototype.OwnDataValue(StringKey("next"))
	return &IteratorRecord{Iterator: it, NextMethod: next}
}

func (vm *VM) asyncFromSync(this Value) *IteratorRecord {
	if this.IsObject() {
		if s, ok := this.AsObject().slots.(*asyncFromSyncSlots); ok {
			return s.sync
		}
	}
	return nil
}

func (vm *VM) rejectWith(capability *PromiseCapability, err error) Value {
	vm.reportJobError(vm.callQuiet(capability.Reject, vm.ErrorValue(err)))
	return capability.Promise.Value()
}

func incompatibleAsyncFromSync(vm *VM, method string, this Value) error {
	return vm.NewTypeError("Method %%AsyncFromSyncIteratorPrototype%%.%s called on incompatible receiver %s", method, this.String())
}

// AsyncFromSyncIteratorNext implements %AsyncFromSyncIteratorPrototype%.next.
func (vm *VM) AsyncFromSyncIteratorNext(this Value, args []Value) Value {
	capability, _ := vm.NewPromiseCapability(Undefined)
	syncRec := vm.asyncFromSync(this)
	if syncRec == nil {
		return vm.rejectWith(capability, incompatibleAsyncFromSync(vm, "next", this))
	}
	result, err := vm.IteratorNext(syncRec, args[:min(len(args), 1)]...)
	if err != nil {
		return vm.rejectWith(capability, err)
	}
	return vm.asyncFromSyncContinuation(result, capability, syncRec, true)
}

// AsyncFromSyncIteratorReturn implements
// %AsyncFromSyncIteratorPrototype%.return.
func (vm *VM) AsyncFromSyncIteratorReturn(this Value, args []Value) Value {
	capability, _ := vm.NewPromiseCapability(Undefined)
	syncRec := vm.asyncFromSync(this)
	if syncRec == nil {
		return vm.rejectWith(capability, incompatibleAsyncFromSync(vm, "return", this))
	}
	iterator := syncRec.Iterator.Value()
	ret, err := vm.GetMethod(iterator, StringKey("return"))
	if err != nil {
		return vm.rejectWith(capability, err)
	}
	if ret.IsUndefined() {
		value := Undefined
		if len(args) > 0 {
			value = args[0]
		}
		vm.reportJobError(vm.callQuiet(capability.Resolve, vm.CreateIterResultObject(value, true)))
		return capability.Promise.Value()
	}
	result, err := vm.Call(ret, iterator, args[:min(len(args), 1)]...)
	if err != nil {
		return vm.rejectWith(capability, err)
	}
	if !result.IsObject() {
		return vm.rejectWith(capability, vm.NewTypeError("Iterator result %s is not an object", result.String()))
	}
	return vm.asyncFromSyncContinuation(result.AsObject(), capability, syncRec, false)
}

// AsyncFromSyncIteratorThrow implements
// %AsyncFromSyncIteratorPrototype%.throw. A sync iterator without a throw
// method is closed and the promise rejects with a TypeError.
func (vm *VM) AsyncFromSyncIteratorThrow(this Value, args []Value) Value {
	capability, _ := vm.NewPromiseCapability(Undefined)
	syncRec := vm.asyncFromSync(this)
	if syncRec == nil {
		return vm.rejectWith(capability, incompatibleAsyncFromSync(vm, "throw", this))
	}
	iterator := syncRec.Iterator.Value()
	throw, err := vm.GetMethod(iterator, StringKey("throw"))
	if err != nil {
		return vm.rejectWith(capability, err)
	}
	if throw.IsUndefined() {
		syncRec.Done = true
		if err := vm.IteratorClose(syncRec, nil); err != nil {
			return vm.rejectWith(capability, err)
		}
		return vm.rejectWith(capability, missingThrowError(vm))
	}
	result, err := vm.Call(throw, iterator, args[:min(len(args), 1)]...)
	if err != nil {
		return vm.rejectWith(capability, err)
	}
	if !result.IsObject() {
		return vm.rejectWith(capability, vm.NewTypeError("Iterator result %s is not an object", result.String()))
	}
	return vm.asyncFromSyncContinuation(result.AsObject(), capability, syncRec, true)
}

// asyncFromSyncContinuation awaits the value of a sync iterator result and
// resolves capability with {value, done}. When the value rejects and the
// iterator is not done, closeOnRejection closes the sync iterator first.
func (vm *VM) asyncFromSyncContinuation(result *Object, capability *PromiseCapability, syncRec *IteratorRecord, closeOnRejection bool) Value {
	done, err := vm.IteratorComplete(result)
	if err != nil {
		return vm.rejectWith(capability, err)
	}
	value, err := vm.IteratorValue(result)
	if err != nil {
		return vm.rejectWith(capability, err)
	}
	wrapper, err := vm.PromiseResolve(value)
	if err != nil {
		if !done && closeOnRejection {
			err = vm.IteratorClose(syncRec, err)
		}
		return vm.rejectWith(capability, err)
	}
	onFulfilled := vm.NewNativeFunction("", 1, func(call FunctionCall) (Value, error) {
		return call.VM.CreateIterResultObject(call.Argument(0), done), nil
	})
	onRejected := Undefined
	if !done && closeOnRejection {
		onRejected = vm.NewNativeFunction("", 1, func(call FunctionCall) (Value, error) {
			return Undefined, call.VM.IteratorClose(syncRec, call.VM.Throw(call.Argument(0)))
		}).Value()
	}
	vm.PerformPromiseThen(wrapper, onFulfilled.Value(), onRejected, capability)
	return capability.Promise.Value()
}
