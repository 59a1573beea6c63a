package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "jscore/pkg/errors"
)

// settled drains the job queue and returns the state of promise p.
func settled(t *testing.T, machine *VM, p Value) (PromiseState, Value) {
	t.Helper()
	require.NoError(t, machine.RunJobs())
	require.True(t, IsPromise(p), "%s is not a promise", p.String())
	return p.AsObject().PromiseState()
}

func requireFulfilledStep(t *testing.T, machine *VM, p Value, want Value, wantDone bool) {
	t.Helper()
	state, result := settled(t, machine, p)
	require.Equal(t, PromiseFulfilled, state, "promise rejected with %s", result.String())
	value, done := iterResult(t, machine, result)
	assert.Equal(t, wantDone, done)
	assert.True(t, SameValue(want, value), "got %s, want %s", value.String(), want.String())
}

func TestAsyncGeneratorQueuesRequestsInOrder(t *testing.T) {
	machine := newTestVM(t)
	b := NewGenBuilder("counter").
		Push(IntegerValue(1)).Await().Yield().Pop().
		Push(NewString("end")).Return()
	gen := startGenerator(t, machine, b, true)

	p1 := machine.AsyncGeneratorNext(gen, Undefined)
	p2 := machine.AsyncGeneratorNext(gen, Undefined)
	p3 := machine.AsyncGeneratorNext(gen, Undefined)

	var order []int
	for i, p := range []Value{p1, p2, p3} {
		machine.PerformPromiseThen(p.AsObject(), nativeFn(machine, "record", func(FunctionCall) (Value, error) {
			order = append(order, i+1)
			return Undefined, nil
		}), Undefined, nil)
	}
	state, _ := p1.AsObject().PromiseState()
	assert.Equal(t, PromisePending, state)
	genState, _ := gen.AsObject().GeneratorStateOf()
	assert.Equal(t, GeneratorExecuting, genState)

	requireFulfilledStep(t, machine, p1, IntegerValue(1), false)
	requireFulfilledStep(t, machine, p2, NewString("end"), true)
	requireFulfilledStep(t, machine, p3, Undefined, true)
	assert.Equal(t, []int{1, 2, 3}, order)

	genState, _ = gen.AsObject().GeneratorStateOf()
	assert.Equal(t, GeneratorCompleted, genState)
}

func TestAsyncGeneratorReturnAtStart(t *testing.T) {
	machine := newTestVM(t)
	gen := startGenerator(t, machine, NewGenBuilder("idle").Push(IntegerValue(1)).Yield().Return(), true)

	p := machine.AsyncGeneratorReturn(gen, IntegerValue(7))
	genState, _ := gen.AsObject().GeneratorStateOf()
	assert.Equal(t, GeneratorAwaitingReturn, genState)
	next := machine.AsyncGeneratorNext(gen, Undefined)

	requireFulfilledStep(t, machine, p, IntegerValue(7), true)
	requireFulfilledStep(t, machine, next, Undefined, true)
	genState, _ = gen.AsObject().GeneratorStateOf()
	assert.Equal(t, GeneratorCompleted, genState)
}

func TestAsyncGeneratorThrowAtStartRejects(t *testing.T) {
	machine := newTestVM(t)
	gen := startGenerator(t, machine, NewGenBuilder("idle").Push(IntegerValue(1)).Yield().Return(), true)

	p := machine.AsyncGeneratorThrow(gen, NewString("x"))
	state, reason := p.AsObject().PromiseState()
	assert.Equal(t, PromiseRejected, state, "rejects without waiting for a job")
	assert.Equal(t, "x", reason.AsString())

	next := machine.AsyncGeneratorNext(gen, Undefined)
	requireFulfilledStep(t, machine, next, Undefined, true)
}

func TestAsyncGeneratorAwaitsRejection(t *testing.T) {
	machine := newTestVM(t)
	rejected, _, reject := machine.NewPromise()
	_, err := machine.Call(reject, Undefined, NewString("nope"))
	require.NoError(t, err)

	b := NewGenBuilder("awaiting")
	catch, end := b.NewLabel(), b.NewLabel()
	b.Try(catch, NoLabel).
		Push(rejected.Value()).Await().
		LeaveTry(end).
		Mark(catch).
		Yield().Pop().
		LeaveTry(end).
		Mark(end).
		Push(rejected.Value()).Await().Return()
	gen := startGenerator(t, machine, b, true)

	requireFulfilledStep(t, machine, machine.AsyncGeneratorNext(gen, Undefined), NewString("nope"), false)

	p := machine.AsyncGeneratorNext(gen, Undefined)
	state, reason := settled(t, machine, p)
	assert.Equal(t, PromiseRejected, state)
	assert.Equal(t, "nope", reason.AsString())
}

func TestAsyncGeneratorReturnAwaitsValueAtYield(t *testing.T) {
	machine := newTestVM(t)
	pending, resolve, _ := machine.NewPromise()
	b := NewGenBuilder("yielding").
		Push(IntegerValue(1)).Yield().Pop().
		Push(IntegerValue(2)).Yield().Return()
	gen := startGenerator(t, machine, b, true)

	requireFulfilledStep(t, machine, machine.AsyncGeneratorNext(gen, Undefined), IntegerValue(1), false)

	p := machine.AsyncGeneratorReturn(gen, pending.Value())
	require.NoError(t, machine.RunJobs())
	state, _ := p.AsObject().PromiseState()
	assert.Equal(t, PromisePending, state)

	_, err := machine.Call(resolve, Undefined, NewString("late"))
	require.NoError(t, err)
	requireFulfilledStep(t, machine, p, NewString("late"), true)
}

func TestAsyncGeneratorIncompatibleReceiver(t *testing.T) {
	machine := newTestVM(t)
	p := machine.AsyncGeneratorNext(machine.NewObject().Value(), Undefined)
	state, reason := settled(t, machine, p)
	require.Equal(t, PromiseRejected, state)
	kind, ok := ErrorKindOf(machine.Throw(reason))
	require.True(t, ok)
	assert.Equal(t, errs.KindTypeError, kind)

	// A sync generator is not an async generator.
	syncGen := startGenerator(t, machine, NewGenBuilder("sync").Push(Undefined).Return(), false)
	p = machine.AsyncGeneratorNext(syncGen, Undefined)
	state, _ = settled(t, machine, p)
	assert.Equal(t, PromiseRejected, state)
}

func TestAsyncGeneratorDelegatesToAsyncIterator(t *testing.T) {
	machine := newTestVM(t)
	var sent []Value
	inner := machine.NewObject()
	inner.SetOwnMethod(SymbolKey(SymAsyncIterator), nativeFn(machine, "[Symbol.asyncIterator]", func(call FunctionCall) (Value, error) {
		n := 0
		it := call.VM.NewObject()
		it.SetOwnMethod(StringKey("next"), nativeFn(call.VM, "next", func(call FunctionCall) (Value, error) {
			sent = append(sent, call.Argument(0))
			n++
			p, resolve, _ := call.VM.NewPromise()
			_, err := call.VM.Call(resolve, Undefined, call.VM.CreateIterResultObject(IntegerValue(int32(n)), n > 2))
			return p.Value(), err
		}))
		return it.Value(), nil
	}))

	b := NewGenBuilder("outer").Locals(1).Load(0).YieldStar().Return()
	gen := startGenerator(t, machine, b, true, inner.Value())

	requireFulfilledStep(t, machine, machine.AsyncGeneratorNext(gen, NewString("a")), IntegerValue(1), false)
	requireFulfilledStep(t, machine, machine.AsyncGeneratorNext(gen, NewString("b")), IntegerValue(2), false)
	requireFulfilledStep(t, machine, machine.AsyncGeneratorNext(gen, NewString("c")), IntegerValue(3), true)
	require.Len(t, sent, 3)
	assert.True(t, sent[0].IsUndefined(), "the first next is sent undefined")
	assert.Equal(t, "b", sent[1].AsString())
	assert.Equal(t, "c", sent[2].AsString())
}
