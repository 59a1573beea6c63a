package builtins

import (
	"math"
	"strings"

	"jscore/pkg/vm"
)

// maxSafeLength is 2^53 - 1, the largest length a generic array method
// may produce.
const maxSafeLength = 1<<53 - 1

type ArrayInitializer struct{}

func (a *ArrayInitializer) Name() string {
	return "Array"
}

func (a *ArrayInitializer) Priority() int {
	return PriorityArray // After Object (0) and Function (1)
}

func (a *ArrayInitializer) InitRealm(r *vm.Realm) error {
	arrayProto := r.ArrayPrototype

	construct := func(call vm.FunctionCall) (vm.Value, error) {
		return arrayConstruct(call, r)
	}
	ctor := r.NewNativeConstructor("Array", 1, construct, construct, arrayProto)
	r.SetGlobal("Array", ctor.Value())

	// Array.isArray
	method(r, ctor, "isArray", 1, func(call vm.FunctionCall) (vm.Value, error) {
		ok, err := call.VM.IsArray(call.Argument(0))
		return vm.BooleanValue(ok), err
	})

	// Array.of
	method(r, ctor, "of", 0, func(call vm.FunctionCall) (vm.Value, error) {
		return call.VM.CreateArrayFromList(append([]vm.Value(nil), call.Args...)).Value(), nil
	})

	// Array.from(items [, mapfn [, thisArg]])
	method(r, ctor, "from", 1, func(call vm.FunctionCall) (vm.Value, error) {
		items, mapfn, thisArg := call.Argument(0), call.Argument(1), call.Argument(2)
		if !mapfn.IsUndefined() && !mapfn.IsCallable() {
			return vm.Undefined, call.VM.NewTypeError("%s is not a function", mapfn.String())
		}
		usingIterator, err := call.VM.GetMethod(items, vm.SymbolKey(vm.SymIterator))
		if err != nil {
			return vm.Undefined, err
		}
		var list []vm.Value
		if !usingIterator.IsUndefined() {
			rec, err := call.VM.GetIteratorFromMethod(items, usingIterator)
			if err != nil {
				return vm.Undefined, err
			}
			for k := 0; ; k++ {
				v, ok, err := call.VM.IteratorStepValue(rec)
				if err != nil {
					return vm.Undefined, err
				}
				if !ok {
					break
				}
				if !mapfn.IsUndefined() {
					if v, err = call.VM.Call(mapfn, thisArg, v, numberValue(k)); err != nil {
						return vm.Undefined, call.VM.IteratorClose(rec, err)
					}
				}
				list = append(list, v)
			}
		} else {
			arrayLike, err := call.VM.ToObject(items)
			if err != nil {
				return vm.Undefined, err
			}
			if list, err = call.VM.CreateListFromArrayLike(arrayLike.Value(), false); err != nil {
				return vm.Undefined, err
			}
			if !mapfn.IsUndefined() {
				for k, v := range list {
					if list[k], err = call.VM.Call(mapfn, thisArg, v, numberValue(k)); err != nil {
						return vm.Undefined, err
					}
				}
			}
		}
		return call.VM.CreateArrayFromList(list).Value(), nil
	})

	// Array[@@species]
	getter(r, ctor, vm.SymbolKey(vm.SymSpecies), func(call vm.FunctionCall) (vm.Value, error) {
		return call.This, nil
	})

	a.initPrototype(r, arrayProto)
	return nil
}

func (a *ArrayInitializer) initPrototype(r *vm.Realm, arrayProto *vm.Object) {
	// Array.prototype.push(...items)
	method(r, arrayProto, "push", 1, func(call vm.FunctionCall) (vm.Value, error) {
		o, err := call.VM.ToObject(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		n, err := call.VM.LengthOfArrayLike(o)
		if err != nil {
			return vm.Undefined, err
		}
		if n+int64(len(call.Args)) > maxSafeLength {
			return vm.Undefined, call.VM.NewTypeError("Pushing %d elements on an array-like of length %d is disallowed, as the total surpasses 2**53-1", len(call.Args), n)
		}
		for _, v := range call.Args {
			if err := call.VM.Put(o, vm.IndexKey(n), v, true); err != nil {
				return vm.Undefined, err
			}
			n++
		}
		length := vm.NumberValue(float64(n))
		if err := call.VM.Put(o, vm.StringKey("length"), length, true); err != nil {
			return vm.Undefined, err
		}
		return length, nil
	})

	// Array.prototype.pop()
	method(r, arrayProto, "pop", 0, func(call vm.FunctionCall) (vm.Value, error) {
		o, err := call.VM.ToObject(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		n, err := call.VM.LengthOfArrayLike(o)
		if err != nil {
			return vm.Undefined, err
		}
		if n == 0 {
			return vm.Undefined, call.VM.Put(o, vm.StringKey("length"), vm.IntegerValue(0), true)
		}
		key := vm.IndexKey(n - 1)
		element, err := call.VM.Get(o, key)
		if err != nil {
			return vm.Undefined, err
		}
		if err := call.VM.DeletePropertyOrThrow(o, key); err != nil {
			return vm.Undefined, err
		}
		return element, call.VM.Put(o, vm.StringKey("length"), vm.NumberValue(float64(n-1)), true)
	})

	// Array.prototype.join(separator)
	join := func(call vm.FunctionCall) (vm.Value, error) {
		o, err := call.VM.ToObject(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		n, err := call.VM.LengthOfArrayLike(o)
		if err != nil {
			return vm.Undefined, err
		}
		sep := ","
		if s := call.Argument(0); !s.IsUndefined() {
			if sep, err = call.VM.ToString(s); err != nil {
				return vm.Undefined, err
			}
		}
		var sb strings.Builder
		for k := int64(0); k < n; k++ {
			if k > 0 {
				sb.WriteString(sep)
			}
			e, err := call.VM.Get(o, vm.IndexKey(k))
			if err != nil {
				return vm.Undefined, err
			}
			if e.IsNullish() {
				continue
			}
			s, err := call.VM.ToString(e)
			if err != nil {
				return vm.Undefined, err
			}
			sb.WriteString(s)
		}
		return vm.NewString(sb.String()), nil
	}
	method(r, arrayProto, "join", 1, join)

	// Array.prototype.toString falls back to Object.prototype.toString when
	// join is not callable.
	method(r, arrayProto, "toString", 0, func(call vm.FunctionCall) (vm.Value, error) {
		o, err := call.VM.ToObject(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		f, err := call.VM.Get(o, vm.StringKey("join"))
		if err != nil {
			return vm.Undefined, err
		}
		if !f.IsCallable() {
			s, err := objectToString(call.VM, o.Value())
			return vm.NewString(s), err
		}
		return call.VM.Call(f, o.Value())
	})

	// Array.prototype.sort(comparefn)
	method(r, arrayProto, "sort", 1, func(call vm.FunctionCall) (vm.Value, error) {
		comparefn := call.Argument(0)
		if !comparefn.IsUndefined() && !comparefn.IsCallable() {
			return vm.Undefined, call.VM.NewTypeError("The comparison function must be either a function or undefined")
		}
		o, err := call.VM.ToObject(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		n, err := call.VM.LengthOfArrayLike(o)
		if err != nil {
			return vm.Undefined, err
		}
		// Holes are skipped and moved to the end.
		var items []vm.Value
		for k := int64(0); k < n; k++ {
			key := vm.IndexKey(k)
			has, err := o.HasProperty(call.VM, key)
			if err != nil {
				return vm.Undefined, err
			}
			if !has {
				continue
			}
			v, err := call.VM.Get(o, key)
			if err != nil {
				return vm.Undefined, err
			}
			items = append(items, v)
		}
		err = vm.SortValues(items, func(x, y vm.Value) (float64, error) {
			return call.VM.SortCompare(x, y, comparefn)
		})
		if err != nil {
			return vm.Undefined, err
		}
		for k, v := range items {
			if err := call.VM.Put(o, vm.IndexKey(int64(k)), v, true); err != nil {
				return vm.Undefined, err
			}
		}
		for k := int64(len(items)); k < n; k++ {
			if err := call.VM.DeletePropertyOrThrow(o, vm.IndexKey(k)); err != nil {
				return vm.Undefined, err
			}
		}
		return o.Value(), nil
	})

	// Array.prototype.indexOf / includes
	search := func(includes bool) vm.NativeFunction {
		return func(call vm.FunctionCall) (vm.Value, error) {
			notFound := vm.IntegerValue(-1)
			if includes {
				notFound = vm.False
			}
			o, err := call.VM.ToObject(call.This)
			if err != nil {
				return vm.Undefined, err
			}
			n, err := call.VM.LengthOfArrayLike(o)
			if err != nil || n == 0 {
				return notFound, err
			}
			k, err := relativeIndex(call.VM, call.Argument(1), n, 0)
			if err != nil {
				return vm.Undefined, err
			}
			target := call.Argument(0)
			for ; k < n; k++ {
				key := vm.IndexKey(k)
				if !includes {
					has, err := o.HasProperty(call.VM, key)
					if err != nil {
						return vm.Undefined, err
					}
					if !has {
						continue
					}
				}
				e, err := call.VM.Get(o, key)
				if err != nil {
					return vm.Undefined, err
				}
				if includes && vm.SameValueZero(e, target) {
					return vm.True, nil
				}
				if !includes && vm.IsStrictlyEqual(e, target) {
					return vm.NumberValue(float64(k)), nil
				}
			}
			return notFound, nil
		}
	}
	method(r, arrayProto, "indexOf", 1, search(false))
	method(r, arrayProto, "includes", 1, search(true))

	// Array.prototype.at(index)
	method(r, arrayProto, "at", 1, func(call vm.FunctionCall) (vm.Value, error) {
		o, err := call.VM.ToObject(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		n, err := call.VM.LengthOfArrayLike(o)
		if err != nil {
			return vm.Undefined, err
		}
		rel, err := call.VM.ToIntegerOrInfinity(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		k := rel
		if rel < 0 {
			k = float64(n) + rel
		}
		if k < 0 || k >= float64(n) {
			return vm.Undefined, nil
		}
		return call.VM.Get(o, vm.IndexKey(int64(k)))
	})

	// Array.prototype.slice(start, end)
	method(r, arrayProto, "slice", 2, func(call vm.FunctionCall) (vm.Value, error) {
		o, err := call.VM.ToObject(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		n, err := call.VM.LengthOfArrayLike(o)
		if err != nil {
			return vm.Undefined, err
		}
		start, err := relativeIndex(call.VM, call.Argument(0), n, 0)
		if err != nil {
			return vm.Undefined, err
		}
		end, err := relativeIndex(call.VM, call.Argument(1), n, n)
		if err != nil {
			return vm.Undefined, err
		}
		out, err := call.VM.ArrayCreate(0, nil)
		if err != nil {
			return vm.Undefined, err
		}
		var count int64
		for k := start; k < end; k, count = k+1, count+1 {
			key := vm.IndexKey(k)
			has, err := o.HasProperty(call.VM, key)
			if err != nil {
				return vm.Undefined, err
			}
			if !has {
				continue
			}
			v, err := call.VM.Get(o, key)
			if err != nil {
				return vm.Undefined, err
			}
			if err := call.VM.CreateDataPropertyOrThrow(out, vm.IndexKey(count), v); err != nil {
				return vm.Undefined, err
			}
		}
		return out.Value(), call.VM.Put(out, vm.StringKey("length"), vm.NumberValue(float64(count)), true)
	})

	// Array.prototype.forEach / map / filter
	method(r, arrayProto, "forEach", 1, func(call vm.FunctionCall) (vm.Value, error) {
		return vm.Undefined, eachElement(call, "forEach", func(_ int64, _ vm.Value, _ vm.Value) error { return nil })
	})
	method(r, arrayProto, "map", 1, func(call vm.FunctionCall) (vm.Value, error) {
		o, err := call.VM.ToObject(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		n, err := call.VM.LengthOfArrayLike(o)
		if err != nil {
			return vm.Undefined, err
		}
		out, err := call.VM.ArrayCreate(n, nil)
		if err != nil {
			return vm.Undefined, err
		}
		err = eachElement(call, "map", func(k int64, _ vm.Value, mapped vm.Value) error {
			return call.VM.CreateDataPropertyOrThrow(out, vm.IndexKey(k), mapped)
		})
		if err != nil {
			return vm.Undefined, err
		}
		return out.Value(), nil
	})
	method(r, arrayProto, "filter", 1, func(call vm.FunctionCall) (vm.Value, error) {
		var out []vm.Value
		err := eachElement(call, "filter", func(_ int64, v vm.Value, selected vm.Value) error {
			if vm.ToBoolean(selected) {
				out = append(out, v)
			}
			return nil
		})
		if err != nil {
			return vm.Undefined, err
		}
		return call.VM.CreateArrayFromList(out).Value(), nil
	})

	// Iteration
	method(r, arrayProto, "keys", 0, arrayIteratorMethod(vm.IterateKeys))
	method(r, arrayProto, "entries", 0, arrayIteratorMethod(vm.IterateEntries))
	values := method(r, arrayProto, "values", 0, arrayIteratorMethod(vm.IterateValues))
	arrayProto.SetOwnMethod(vm.SymbolKey(vm.SymIterator), values.Value())
	r.ArrayProtoValues = values
}

func arrayConstruct(call vm.FunctionCall, r *vm.Realm) (vm.Value, error) {
	proto, err := call.VM.GetPrototypeFromConstructor(call.NewTarget, r.ArrayPrototype)
	if err != nil {
		return vm.Undefined, err
	}
	if len(call.Args) == 1 && call.Args[0].IsNumber() {
		f := call.Args[0].AsNumber()
		if f < 0 || f > math.MaxUint32 || f != math.Trunc(f) {
			return vm.Undefined, call.VM.NewRangeError("Invalid array length")
		}
		a, err := call.VM.ArrayCreate(int64(f), proto)
		if err != nil {
			return vm.Undefined, err
		}
		return a.Value(), nil
	}
	a, err := call.VM.ArrayCreate(0, proto)
	if err != nil {
		return vm.Undefined, err
	}
	for i, v := range call.Args {
		if err := call.VM.CreateDataPropertyOrThrow(a, vm.IndexKey(int64(i)), v); err != nil {
			return vm.Undefined, err
		}
	}
	return a.Value(), nil
}

func arrayIteratorMethod(kind vm.ArrayIterationKind) vm.NativeFunction {
	return func(call vm.FunctionCall) (vm.Value, error) {
		o, err := call.VM.ToObject(call.This)
		if err != nil {
			return vm.Undefined, err
		}
		return call.VM.CreateArrayIterator(o, kind).Value(), nil
	}
}

// eachElement calls callbackfn for every present element, passing the
// callback's result to visit.
func eachElement(call vm.FunctionCall, name string, visit func(k int64, v, result vm.Value) error) error {
	o, err := call.VM.ToObject(call.This)
	if err != nil {
		return err
	}
	n, err := call.VM.LengthOfArrayLike(o)
	if err != nil {
		return err
	}
	callback := call.Argument(0)
	if !callback.IsCallable() {
		return call.VM.NewTypeError("Array.prototype.%s: %s is not a function", name, callback.String())
	}
	for k := int64(0); k < n; k++ {
		key := vm.IndexKey(k)
		has, err := o.HasProperty(call.VM, key)
		if err != nil {
			return err
		}
		if !has {
			continue
		}
		v, err := call.VM.Get(o, key)
		if err != nil {
			return err
		}
		result, err := call.VM.Call(callback, call.Argument(1), v, vm.NumberValue(float64(k)), o.Value())
		if err != nil {
			return err
		}
		if err := visit(k, v, result); err != nil {
			return err
		}
	}
	return nil
}

// relativeIndex resolves a relative start/end argument against length n.
func relativeIndex(machine *vm.VM, arg vm.Value, n int64, dflt int64) (int64, error) {
	if arg.IsUndefined() {
		return dflt, nil
	}
	rel, err := machine.ToIntegerOrInfinity(arg)
	if err != nil {
		return 0, err
	}
	switch {
	case rel < 0:
		return int64(math.Max(float64(n)+rel, 0)), nil
	default:
		return int64(math.Min(rel, float64(n))), nil
	}
}
