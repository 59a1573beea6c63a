package conformance

import (
	"fmt"
	"math"
	"math/big"
	"math/rand"

	"jscore/pkg/driver"
	errs "jscore/pkg/errors"
	"jscore/pkg/vm"
)

// Scenarios returns the built-in scenarios in a stable order.
func Scenarios() []Scenario {
	return []Scenario{
		{"coercion/to-primitive-idempotent", "ToPrimitive is the identity on its own results", toPrimitiveIdempotent},
		{"coercion/number-string-round-trip", "ToNumber(ToString(d)) === d for finite doubles", numberStringRoundTrip},
		{"object/prototype-shadowing", "[[Set]] creates an own property on the receiver", prototypeShadowing},
		{"typedarray/shrink-revalidation", "indices past a shrunk buffer read as absent", typedArrayShrink},
		{"asyncgen/request-ordering", "queued next() calls settle in issuance order", asyncGeneratorOrdering},
		{"proxy/get-invariant", "get trap may not misreport a frozen data property", proxyGetInvariant},
		{"array/push-1e5", "push 1e5 elements without touching unrelated indices", arrayPush},
		{"equality/bigint-boolean-loose", "BigInt == Boolean compares mathematical values", bigIntBooleanLoose},
		{"dataview/construction", "DataView validates offset and length", dataViewConstruction},
		{"iterator/close-priority", "a loop body's exception wins over return()", iteratorClosePriority},
		{"promise/reaction-order", "then reactions run as jobs in registration order", promiseReactionOrder},
		{"realm/isolation", "realms have distinct intrinsics", realmIsolation},
	}
}

// env wraps a session with lookup helpers for scenarios.
type env struct {
	s  *driver.Session
	vm *vm.VM
}

func newEnv(s *driver.Session) env { return env{s: s, vm: s.VM()} }

func (e env) get(v vm.Value, names ...string) (vm.Value, error) {
	for _, name := range names {
		o, err := e.vm.ToObject(v)
		if err != nil {
			return vm.Undefined, err
		}
		if v, err = e.vm.Get(o, vm.StringKey(name)); err != nil {
			return vm.Undefined, err
		}
	}
	return v, nil
}

func (e env) global(name string, path ...string) (vm.Value, error) {
	v, err := e.s.Global(name)
	if err != nil {
		return vm.Undefined, err
	}
	return e.get(v, path...)
}

func (e env) construct(name string, args ...vm.Value) (vm.Value, error) {
	ctor, err := e.global(name)
	if err != nil {
		return vm.Undefined, err
	}
	return e.vm.Construct(ctor, args, nil)
}

func (e env) invoke(this vm.Value, method string, args ...vm.Value) (vm.Value, error) {
	fn, err := e.get(this, method)
	if err != nil {
		return vm.Undefined, err
	}
	return e.vm.Call(fn, this, args...)
}

func expectKind(err error, kind errs.Kind, what string) error {
	if err == nil {
		return fmt.Errorf("%s: expected %s, got no error", what, kind)
	}
	got, ok := vm.ErrorKindOf(err)
	if !ok || got != kind {
		return fmt.Errorf("%s: expected %s, got %w", what, kind, err)
	}
	return nil
}

func toPrimitiveIdempotent(s *driver.Session) error {
	e := newEnv(s)
	samples := []vm.Value{
		vm.Undefined, vm.Null, vm.True, vm.False,
		vm.IntegerValue(0), vm.NumberValue(math.Copysign(0, -1)), vm.NaN, vm.NumberValue(math.Inf(-1)),
		vm.NumberValue(0.1), vm.NewString(""), vm.NewString("42"),
		vm.NewBigInt(big.NewInt(-7)), vm.NewSymbol("s").Value(),
	}
	// Wrapper objects convert once; their primitive then passes through.
	for _, p := range []vm.Value{vm.IntegerValue(5), vm.NewString("x"), vm.True} {
		o, err := e.vm.ToObject(p)
		if err != nil {
			return err
		}
		samples = append(samples, o.Value())
	}
	for _, x := range samples {
		for _, hint := range []vm.Hint{vm.HintDefault, vm.HintNumber, vm.HintString} {
			once, err := e.vm.ToPrimitive(x, hint)
			if err != nil {
				return fmt.Errorf("ToPrimitive(%s, %s): %w", x.String(), hint, err)
			}
			if x.IsPrimitive() && !vm.SameValue(once, x) {
				return fmt.Errorf("ToPrimitive(%s, %s) = %s, want the input", x.String(), hint, once.String())
			}
			twice, err := e.vm.ToPrimitive(once, hint)
			if err != nil {
				return err
			}
			if !vm.SameValue(once, twice) {
				return fmt.Errorf("ToPrimitive not idempotent for %s: %s then %s", x.String(), once.String(), twice.String())
			}
		}
	}
	return nil
}

func numberStringRoundTrip(s *driver.Session) error {
	e := newEnv(s)
	samples := []float64{
		0, 1, -1, 0.1, 1.0 / 3, 1e21, 1e-7, 123e-20, 5e-324, math.MaxFloat64,
		math.SmallestNonzeroFloat64 * 3, 9007199254740993, -2.5e-10, 4.35, 0.000001,
	}
	rng := rand.New(rand.NewSource(262))
	for len(samples) < 2000 {
		d := math.Float64frombits(rng.Uint64())
		if !math.IsNaN(d) && !math.IsInf(d, 0) {
			samples = append(samples, d)
		}
	}
	for _, d := range samples {
		str, err := e.vm.ToString(vm.NumberValue(d))
		if err != nil {
			return err
		}
		back, err := e.vm.ToNumber(vm.NewString(str))
		if err != nil {
			return err
		}
		if back != d {
			return fmt.Errorf("ToNumber(ToString(%v)) = %v via %q", d, back, str)
		}
	}
	return nil
}

func prototypeShadowing(s *driver.Session) error {
	e := newEnv(s)
	proto := e.vm.NewObject()
	proto.SetOwn("k", vm.IntegerValue(1))
	created, err := e.global("Object", "create")
	if err != nil {
		return err
	}
	ov, err := e.vm.Call(created, vm.Undefined, proto.Value())
	if err != nil {
		return err
	}
	o := ov.AsObject()

	if err := e.vm.Put(o, vm.StringKey("k"), vm.IntegerValue(2), true); err != nil {
		return err
	}
	got, err := e.vm.Get(o, vm.StringKey("k"))
	if err != nil {
		return err
	}
	if !vm.SameValue(got, vm.IntegerValue(2)) {
		return fmt.Errorf("O.k = %s after assignment", got.String())
	}
	if pk, _ := proto.OwnDataValue(vm.StringKey("k")); !vm.SameValue(pk, vm.IntegerValue(1)) {
		return fmt.Errorf("P.k changed to %s", pk.String())
	}
	if _, own := o.OwnDataValue(vm.StringKey("k")); !own {
		return fmt.Errorf("assignment did not create an own property")
	}

	// An inherited read-only property blocks the write.
	if err := e.vm.DefinePropertyOrThrow(proto, vm.StringKey("ro"), vm.DataDescriptor(vm.True, false, true, true)); err != nil {
		return err
	}
	err = e.vm.Put(o, vm.StringKey("ro"), vm.False, true)
	if err := expectKind(err, errs.KindTypeError, "strict write to inherited read-only"); err != nil {
		return err
	}
	if err := e.vm.Put(o, vm.StringKey("ro"), vm.False, false); err != nil {
		return fmt.Errorf("sloppy write to inherited read-only threw: %w", err)
	}
	if _, own := o.OwnDataValue(vm.StringKey("ro")); own {
		return fmt.Errorf("failed write created an own property")
	}
	return nil
}

func typedArrayShrink(s *driver.Session) error {
	e := newEnv(s)
	options := e.vm.NewObject()
	options.SetOwn("maxByteLength", vm.IntegerValue(16))
	buffer, err := e.construct("ArrayBuffer", vm.IntegerValue(16), options.Value())
	if err != nil {
		return err
	}
	ta, err := e.construct("Uint16Array", buffer)
	if err != nil {
		return err
	}
	if _, err := e.invoke(buffer, "resize", vm.IntegerValue(6)); err != nil {
		return err
	}
	length, err := e.get(ta, "length")
	if err != nil {
		return err
	}
	if length.AsNumber() != 3 {
		return fmt.Errorf("length after shrink = %s, want 3", length.String())
	}
	hasOwn, err := e.global("Object", "prototype", "hasOwnProperty")
	if err != nil {
		return err
	}
	for i := 3; i < 8; i++ {
		key := vm.NumberValue(float64(i))
		own, err := e.vm.Call(hasOwn, ta, key)
		if err != nil {
			return fmt.Errorf("hasOwnProperty(%d): %w", i, err)
		}
		if own.AsBoolean() {
			return fmt.Errorf("index %d still present after shrink", i)
		}
		v, err := e.vm.Get(ta.AsObject(), vm.IndexKey(int64(i)))
		if err != nil {
			return fmt.Errorf("read %d: %w", i, err)
		}
		if !v.IsUndefined() {
			return fmt.Errorf("read %d = %s, want undefined", i, v.String())
		}
		if err := e.vm.Put(ta.AsObject(), vm.IndexKey(int64(i)), vm.IntegerValue(1), true); err != nil {
			return fmt.Errorf("write %d: %w", i, err)
		}
	}
	return nil
}

func asyncGeneratorOrdering(s *driver.Session) error {
	e := newEnv(s)
	program, err := vm.NewGenBuilder("pair").
		Push(vm.IntegerValue(1)).Yield().Pop().
		Push(vm.IntegerValue(2)).Yield().Pop().
		Push(vm.Undefined).Return().
		Build()
	if err != nil {
		return err
	}
	fn, err := e.vm.NewGeneratorFunction(program, true)
	if err != nil {
		return err
	}
	gen, err := e.vm.Call(fn.Value(), vm.Undefined)
	if err != nil {
		return err
	}
	first, err := e.invoke(gen, "next")
	if err != nil {
		return err
	}
	second, err := e.invoke(gen, "next")
	if err != nil {
		return err
	}

	var order []float64
	record := e.vm.NewNativeFunction("record", 1, func(call vm.FunctionCall) (vm.Value, error) {
		v, err := e.get(call.Argument(0), "value")
		if err != nil {
			return vm.Undefined, err
		}
		done, err := e.get(call.Argument(0), "done")
		if err != nil {
			return vm.Undefined, err
		}
		if done.AsBoolean() {
			return vm.Undefined, call.VM.NewTypeError("unexpected done result")
		}
		order = append(order, v.AsNumber())
		return vm.Undefined, nil
	})
	// Register on the second promise first; settlement order must not care.
	for _, p := range []vm.Value{second, first} {
		if _, err := e.invoke(p, "then", record.Value()); err != nil {
			return err
		}
	}
	if _, err := e.s.Await(second); err != nil {
		return err
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		return fmt.Errorf("results settled as %v, want [1 2]", order)
	}
	return nil
}

func proxyGetInvariant(s *driver.Session) error {
	e := newEnv(s)
	target := e.vm.NewObject()
	if err := e.vm.DefinePropertyOrThrow(target, vm.StringKey("x"), vm.DataDescriptor(vm.IntegerValue(45), false, true, false)); err != nil {
		return err
	}
	for _, tc := range []struct {
		reported vm.Value
		ok       bool
	}{
		{vm.IntegerValue(46), false},
		{vm.NewString("45"), false},
		{vm.Undefined, false},
		{vm.NumberValue(45), true},
	} {
		reported := tc.reported
		handler := e.vm.NewObject()
		handler.SetOwn("get", e.vm.NewNativeFunction("get", 3, func(vm.FunctionCall) (vm.Value, error) {
			return reported, nil
		}).Value())
		proxy, err := e.construct("Proxy", target.Value(), handler.Value())
		if err != nil {
			return err
		}
		v, err := e.get(proxy, "x")
		if tc.ok {
			if err != nil {
				return fmt.Errorf("trap reporting 45: %w", err)
			}
			if !vm.SameValue(v, vm.IntegerValue(45)) {
				return fmt.Errorf("proxy.x = %s", v.String())
			}
			continue
		}
		if err := expectKind(err, errs.KindTypeError, "trap reporting "+reported.String()); err != nil {
			return err
		}
	}
	return nil
}

func arrayPush(s *driver.Session) error {
	const n = 100000
	e := newEnv(s)
	arr, err := e.construct("Array")
	if err != nil {
		return err
	}
	push, err := e.get(arr, "push")
	if err != nil {
		return err
	}

	// Accessors on indices push never writes must stay untouched.
	touched := 0
	trap := e.vm.NewNativeFunction("trap", 0, func(vm.FunctionCall) (vm.Value, error) {
		touched++
		return vm.Undefined, nil
	}).Value()
	objectProto := e.vm.Realm().ObjectPrototype
	for _, key := range []vm.PropertyKey{vm.IndexKey(n), vm.IndexKey(n + 1), vm.StringKey("-1")} {
		objectProto.SetOwnAccessor(key, trap, trap)
	}
	defer func() {
		for _, key := range []vm.PropertyKey{vm.IndexKey(n), vm.IndexKey(n + 1), vm.StringKey("-1")} {
			_, _ = objectProto.Delete(e.vm, key)
		}
	}()

	o := arr.AsObject()
	for i := 0; i < n; i++ {
		want := vm.IntegerValue(int32(i))
		length, err := e.vm.Call(push, arr, want)
		if err != nil {
			return fmt.Errorf("push(%d): %w", i, err)
		}
		if length.AsNumber() != float64(i+1) || o.ArrayLength() != uint32(i+1) {
			return fmt.Errorf("length after push(%d) = %s", i, length.String())
		}
		got, err := e.vm.Get(o, vm.IndexKey(int64(i)))
		if err != nil {
			return err
		}
		if !vm.SameValue(got, want) {
			return fmt.Errorf("arr[%d] = %s", i, got.String())
		}
	}
	if touched != 0 {
		return fmt.Errorf("push invoked %d unrelated accessors", touched)
	}
	return nil
}

func bigIntBooleanLoose(s *driver.Session) error {
	e := newEnv(s)
	table := []struct {
		big  int64
		b    bool
		want bool
	}{
		{-1, false, false},
		{0, false, true},
		{1, true, true},
		{2, true, false},
		{0, true, false},
		{1, false, false},
	}
	for _, tt := range table {
		x := vm.NewBigIntFromInt64(tt.big)
		y := vm.BooleanValue(tt.b)
		for _, pair := range [][2]vm.Value{{x, y}, {y, x}} {
			got, err := e.vm.IsLooselyEqual(pair[0], pair[1])
			if err != nil {
				return err
			}
			if got != tt.want {
				return fmt.Errorf("(%s == %s) = %v, want %v", pair[0].String(), pair[1].String(), got, tt.want)
			}
		}
	}
	return nil
}

func dataViewConstruction(s *driver.Session) error {
	e := newEnv(s)
	buffer, err := e.construct("ArrayBuffer", vm.IntegerValue(128))
	if err != nil {
		return err
	}
	view, err := e.construct("DataView", buffer, vm.IntegerValue(10), vm.IntegerValue(20))
	if err != nil {
		return err
	}
	for name, want := range map[string]float64{"byteOffset": 10, "byteLength": 20} {
		v, err := e.get(view, name)
		if err != nil {
			return err
		}
		if v.AsNumber() != want {
			return fmt.Errorf("%s = %s, want %v", name, v.String(), want)
		}
	}

	_, err = e.construct("DataView", buffer, vm.IntegerValue(256))
	if err := expectKind(err, errs.KindRangeError, "offset 256"); err != nil {
		return err
	}
	const msg = "Start offset 256 is out of range for buffer length 128"
	if got := driver.Report(err).Message; got != msg {
		return fmt.Errorf("message %q, want %q", got, msg)
	}
	return nil
}

func iteratorClosePriority(s *driver.Session) error {
	e := newEnv(s)
	arr, err := e.construct("Array", vm.IntegerValue(3))
	if err != nil {
		return err
	}
	iterFn, err := e.vm.Get(arr.AsObject(), vm.SymbolKey(vm.SymIterator))
	if err != nil {
		return err
	}
	iter, err := e.vm.Call(iterFn, arr)
	if err != nil {
		return err
	}
	// Give the array iterator a return() that throws.
	closed := 0
	iter.AsObject().SetOwn("return", e.vm.NewNativeFunction("return", 0, func(call vm.FunctionCall) (vm.Value, error) {
		closed++
		return vm.Undefined, call.VM.NewTypeError("return failed")
	}).Value())
	iterable := e.vm.NewObject()
	iterable.SetOwnMethod(vm.SymbolKey(vm.SymIterator), e.vm.NewNativeFunction("[Symbol.iterator]", 0, func(vm.FunctionCall) (vm.Value, error) {
		return iter, nil
	}).Value())

	bodyErr := e.vm.NewRangeError("body")
	err = e.vm.ForOf(iterable.Value(), func(vm.Value) (bool, error) { return true, bodyErr })
	if err := expectKind(err, errs.KindRangeError, "body error"); err != nil {
		return err
	}
	if closed != 1 {
		return fmt.Errorf("return() called %d times", closed)
	}
	return nil
}

func promiseReactionOrder(s *driver.Session) error {
	e := newEnv(s)
	p, err := e.global("Promise")
	if err != nil {
		return err
	}
	resolved, err := e.invoke(p, "resolve", vm.NewString("v"))
	if err != nil {
		return err
	}
	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		fn := e.vm.NewNativeFunction(name, 1, func(call vm.FunctionCall) (vm.Value, error) {
			order = append(order, name)
			return vm.Undefined, nil
		})
		if _, err := e.invoke(resolved, "then", fn.Value()); err != nil {
			return err
		}
	}
	if len(order) != 0 {
		return fmt.Errorf("reactions ran synchronously: %v", order)
	}
	if err := e.vm.RunJobs(); err != nil {
		return err
	}
	if fmt.Sprint(order) != "[a b c]" {
		return fmt.Errorf("reactions ran as %v", order)
	}
	return nil
}

func realmIsolation(s *driver.Session) error {
	e := newEnv(s)
	homeArray, err := e.global("Array")
	if err != nil {
		return err
	}
	other, err := s.NewRealm()
	if err != nil {
		return err
	}
	defer s.CloseRealm(other)

	var foreign vm.Value
	err = s.InRealm(other, func() error {
		ctor, err := s.Global("Array")
		if err != nil {
			return err
		}
		if ctor.AsObject() == homeArray.AsObject() {
			return fmt.Errorf("realms share the Array constructor")
		}
		foreign, err = e.vm.Construct(ctor, nil, nil)
		return err
	})
	if err != nil {
		return err
	}
	isArray, err := e.global("Array", "isArray")
	if err != nil {
		return err
	}
	v, err := e.vm.Call(isArray, vm.Undefined, foreign)
	if err != nil {
		return err
	}
	if !v.AsBoolean() {
		return fmt.Errorf("Array.isArray rejects an array from another realm")
	}
	proto, err := foreign.AsObject().GetPrototypeOf(e.vm)
	if err != nil {
		return err
	}
	if proto == e.vm.Realm().ArrayPrototype {
		return fmt.Errorf("foreign array inherits from the current realm")
	}
	return nil
}
