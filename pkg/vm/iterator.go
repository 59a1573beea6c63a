package vm

// IteratorKind selects the sync or async iteration protocol.
type IteratorKind uint8

const (
	IteratorSync IteratorKind = iota
	IteratorAsync
)

// IteratorRecord drives one iteration. Done is set once the iterator has
// reported completion or one of its methods has thrown.
type IteratorRecord struct {
	Iterator   *Object
	NextMethod Value
	Done       bool
}

// GetIteratorFromMethod calls method on obj and wraps the resulting iterator.
func (vm *VM) GetIteratorFromMethod(obj Value, method Value) (*IteratorRecord, error) {
	iterator, err := vm.Call(method, obj)
	if err != nil {
		return nil, err
	}
	if !iterator.IsObject() {
		return nil, vm.NewTypeError("Result of the Symbol.iterator method is not an object")
	}
	next, err := vm.GetV(iterator, StringKey("next"))
	if err != nil {
		return nil, err
	}
	return &IteratorRecord{Iterator: iterator.AsObject(), NextMethod: next}, nil
}

// GetIterator obtains an iterator for obj. An async request on an object
// with only a sync @@iterator gets an async-from-sync wrapper.
func (vm *VM) GetIterator(obj Value, kind IteratorKind) (*IteratorRecord, error) {
	if kind == IteratorAsync {
		method, err := vm.GetMethod(obj, SymbolKey(SymAsyncIterator))
		if err != nil {
			return nil, err
		}
		if method.IsUndefined() {
			syncMethod, err := vm.GetMethod(obj, SymbolKey(SymIterator))
			if err != nil {
				return nil, err
			}
			if syncMethod.IsUndefined() {
				return nil, vm.NewTypeError("%s is not async iterable", describeForError(obj))
			}
			syncRec, err := vm.GetIteratorFromMethod(obj, syncMethod)
			if err != nil {
				return nil, err
			}
			return vm.CreateAsyncFromSyncIterator(syncRec), nil
		}
		return vm.GetIteratorFromMethod(obj, method)
	}
	method, err := vm.GetMethod(obj, SymbolKey(SymIterator))
	if err != nil {
		return nil, err
	}
	if method.IsUndefined() {
		return nil, vm.NewTypeError("%s is not iterable", describeForError(obj))
	}
	return vm.GetIteratorFromMethod(obj, method)
}

// IteratorNext calls the record's next method with at most one argument.
func (vm *VM) IteratorNext(rec *IteratorRecord, value ...Value) (*Object, error) {
	result, err := vm.Call(rec.NextMethod, rec.Iterator.Value(), value...)
	if err != nil {
		rec.Done = true
		return nil, err
	}
	if !result.IsObject() {
		rec.Done = true
		return nil, vm.NewTypeError("Iterator result %s is not an object", result.String())
	}
	return result.AsObject(), nil
}

// IteratorComplete reads result.done.
func (vm *VM) IteratorComplete(result *Object) (bool, error) {
	done, err := vm.Get(result, StringKey("done"))
	if err != nil {
		return false, err
	}
	return ToBoolean(done), nil
}

// IteratorValue reads result.value.
func (vm *VM) IteratorValue(result *Object) (Value, error) {
	return vm.Get(result, StringKey("value"))
}

// IteratorStep advances the iterator. It returns a nil result once the
// iterator is done.
func (vm *VM) IteratorStep(rec *IteratorRecord) (*Object, error) {
	result, err := vm.IteratorNext(rec)
	if err != nil {
		return nil, err
	}
	done, err := vm.IteratorComplete(result)
	if err != nil {
		rec.Done = true
		return nil, err
	}
	if done {
		rec.Done = true
		return nil, nil
	}
	return result, nil
}

// IteratorStepValue advances the iterator and reads the value. ok is false
// once the iterator is done.
func (vm *VM) IteratorStepValue(rec *IteratorRecord) (v Value, ok bool, err error) {
	result, err := vm.IteratorStep(rec)
	if err != nil || result == nil {
		return Undefined, false, err
	}
	v, err = vm.IteratorValue(result)
	if err != nil {
		rec.Done = true
		return Undefined, false, err
	}
	return v, true, nil
}

// IteratorClose calls the iterator's return method, if any, when a loop is
// abandoned. cause is the error that ended the loop, nil for a break. A
// non-nil cause always wins over anything return does.
func (vm *VM) IteratorClose(rec *IteratorRecord, cause error) error {
	iterator := rec.Iterator.Value()
	ret, err := vm.GetMethod(iterator, StringKey("return"))
	if err == nil {
		if ret.IsUndefined() {
			return cause
		}
		var inner Value
		inner, err = vm.Call(ret, iterator)
		if err == nil && cause == nil && !inner.IsObject() {
			return vm.NewTypeError("Iterator result %s is not an object", inner.String())
		}
	}
	if cause != nil {
		if err != nil {
			vm.logger.Debug().Err(err).Msg("iterator return failed while closing after an exception")
		}
		return cause
	}
	return err
}

// AsyncIteratorClose is IteratorClose for async iterators. The return
// result is awaited and done receives the outcome.
func (vm *VM) AsyncIteratorClose(rec *IteratorRecord, cause error, done func(error)) {
	iterator := rec.Iterator.Value()
	ret, err := vm.GetMethod(iterator, StringKey("return"))
	if err != nil {
		done(firstError(cause, err))
		return
	}
	if ret.IsUndefined() {
		done(cause)
		return
	}
	inner, err := vm.Call(ret, iterator)
	if err != nil {
		done(firstError(cause, err))
		return
	}
	err = vm.Await(inner, func(v Value, err error) {
		switch {
		case cause != nil:
			done(cause)
		case err != nil:
			done(err)
		case !v.IsObject():
			done(vm.NewTypeError("Iterator result %s is not an object", v.String()))
		default:
			done(nil)
		}
	})
	if err != nil {
		done(firstError(cause, err))
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// IterableToList exhausts the iterator of v.
func (vm *VM) IterableToList(v Value) ([]Value, error) {
	rec, err := vm.GetIterator(v, IteratorSync)
	if err != nil {
		return nil, err
	}
	var values []Value
	for {
		next, ok, err := vm.IteratorStepValue(rec)
		if err != nil {
			return nil, err
		}
		if !ok {
			return values, nil
		}
		values = append(values, next)
	}
}

// ForOf runs body for each value of iterable. body returns false to break.
// Breaking or failing closes the iterator.
func (vm *VM) ForOf(iterable Value, body func(Value) (bool, error)) error {
	rec, err := vm.GetIterator(iterable, IteratorSync)
	if err != nil {
		return err
	}
	for {
		v, ok, err := vm.IteratorStepValue(rec)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cont, err := body(v)
		if err != nil {
			return vm.IteratorClose(rec, err)
		}
		if !cont {
			return vm.IteratorClose(rec, nil)
		}
	}
}

// ForAwaitOf is the for-await-of loop. Each step awaits the next result on
// the job queue; done receives the loop's outcome.
func (vm *VM) ForAwaitOf(iterable Value, body func(Value) (bool, error), done func(error)) {
	rec, err := vm.GetIterator(iterable, IteratorAsync)
	if err != nil {
		done(err)
		return
	}
	var step func()
	step = func() {
		result, err := vm.Call(rec.NextMethod, rec.Iterator.Value())
		if err != nil {
			done(err)
			return
		}
		err = vm.Await(result, func(result Value, err error) {
			if err != nil {
				done(err)
				return
			}
			if !result.IsObject() {
				done(vm.NewTypeError("Iterator result %s is not an object", result.String()))
				return
			}
			complete, err := vm.IteratorComplete(result.AsObject())
			if err != nil || complete {
				done(err)
				return
			}
			v, err := vm.IteratorValue(result.AsObject())
			if err != nil {
				done(err)
				return
			}
			cont, err := body(v)
			if err != nil {
				vm.AsyncIteratorClose(rec, err, done)
				return
			}
			if !cont {
				vm.AsyncIteratorClose(rec, nil, done)
				return
			}
			step()
		})
		if err != nil {
			done(err)
		}
	}
	step()
}

// DestructureList takes n values from iterable as array destructuring does,
// padding with undefined, and closes the iterator if it is not exhausted.
func (vm *VM) DestructureList(iterable Value, n int) ([]Value, error) {
	rec, err := vm.GetIterator(iterable, IteratorSync)
	if err != nil {
		return nil, err
	}
	values := make([]Value, n)
	for i := range values {
		values[i] = Undefined
		if rec.Done {
			continue
		}
		v, ok, err := vm.IteratorStepValue(rec)
		if err != nil {
			return nil, err
		}
		if ok {
			values[i] = v
		}
	}
	if !rec.Done {
		if err := vm.IteratorClose(rec, nil); err != nil {
			return nil, err
		}
	}
	return values, nil
}

// CreateIterResultObject returns {value, done}.
func (vm *VM) CreateIterResultObject(v Value, done bool) Value {
	o := vm.realm.NewObject()
	o.SetOwn("value", v)
	o.SetOwn("done", BooleanValue(done))
	return o.Value()
}

// ArrayIterationKind selects what an array iterator produces.
type ArrayIterationKind uint8

const (
	IterateKeys ArrayIterationKind = iota
	IterateValues
	IterateEntries
)

type arrayIteratorSlots struct {
	target *Object // nil once exhausted
	next   int64
	kind   ArrayIterationKind
}

type stringIteratorSlots struct {
	s    Value
	pos  int
	done bool
}

// CreateArrayIterator creates an iterator over an array-like or typed array.
func (vm *VM) CreateArrayIterator(target *Object, kind ArrayIterationKind) *Object {
	return newObject(vm.realm, KindIterator, vm.realm.ArrayIteratorPrototype, &arrayIteratorSlots{target: target, kind: kind})
}

// ArrayIteratorNext implements %ArrayIteratorPrototype%.next. Typed arrays
// are measured on every step.
func (vm *VM) ArrayIteratorNext(this Value) (Value, error) {
	var it *arrayIteratorSlots
	if this.IsObject() {
		it, _ = this.AsObject().slots.(*arrayIteratorSlots)
	}
	if it == nil {
		return Undefined, vm.NewTypeError("Method Array Iterator.prototype.next called on incompatible receiver %s", this.String())
	}
	if it.target == nil {
		return vm.CreateIterResultObject(Undefined, true), nil
	}
	var length int64
	if it.target.kind == KindTypedArray {
		t := it.target.typedArray()
		if t.isOutOfBounds() {
			return Undefined, vm.NewTypeError("Cannot perform Array Iterator.prototype.next on a detached or out-of-bounds TypedArray")
		}
		length = int64(t.currentLength())
	} else {
		var err error
		if length, err = vm.LengthOfArrayLike(it.target); err != nil {
			return Undefined, err
		}
	}
	if it.next >= length {
		it.target = nil
		return vm.CreateIterResultObject(Undefined, true), nil
	}
	index := it.next
	it.next++
	key := NumberValue(float64(index))
	if it.kind == IterateKeys {
		return vm.CreateIterResultObject(key, false), nil
	}
	v, err := vm.Get(it.target, IndexKey(index))
	if err != nil {
		return Undefined, err
	}
	if it.kind == IterateValues {
		return vm.CreateIterResultObject(v, false), nil
	}
	return vm.CreateIterResultObject(vm.NewArray(key, v).Value(), false), nil
}

// CreateStringIterator iterates s by code point.
func (vm *VM) CreateStringIterator(s Value) *Object {
	return newObject(vm.realm, KindIterator, vm.realm.StringIteratorPrototype, &stringIteratorSlots{s: s})
}

// StringIteratorNext implements %StringIteratorPrototype%.next. Lone
// surrogates are produced as single code units.
func (vm *VM) StringIteratorNext(this Value) (Value, error) {
	var it *stringIteratorSlots
	if this.IsObject() {
		it, _ = this.AsObject().slots.(*stringIteratorSlots)
	}
	if it == nil {
		return Undefined, vm.NewTypeError("Method String Iterator.prototype.next called on incompatible receiver %s", this.String())
	}
	n := it.s.StringLength()
	if it.done || it.pos >= n {
		it.done = true
		return vm.CreateIterResultObject(Undefined, true), nil
	}
	first := it.s.CodeUnitAt(it.pos)
	size := 1
	if first >= 0xD800 && first <= 0xDBFF && it.pos+1 < n {
		if second := it.s.CodeUnitAt(it.pos + 1); second >= 0xDC00 && second <= 0xDFFF {
			size = 2
		}
	}
	units := it.s.CodeUnits()[it.pos : it.pos+size]
	it.pos += size
	return vm.CreateIterResultObject(NewStringFromUTF16(units), false), nil
}
