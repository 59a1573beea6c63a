package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "jscore/pkg/errors"
	"jscore/pkg/vm"
)

// settle drains the job queue and returns the state of promise p.
func (h *harness) settle(p vm.Value) (vm.PromiseState, vm.Value) {
	h.t.Helper()
	require.NoError(h.t, h.vm.RunJobs())
	require.True(h.t, vm.IsPromise(p), "%s is not a promise", p.String())
	return p.AsObject().PromiseState()
}

func TestPromiseConstructorAndThen(t *testing.T) {
	h := newHarness(t)

	var resolve vm.Value
	executor := h.vm.NewNativeFunction("executor", 2, func(call vm.FunctionCall) (vm.Value, error) {
		resolve = call.Argument(0)
		return vm.Undefined, nil
	})
	p, err := h.construct("Promise", executor.Value())
	require.NoError(t, err)

	var order []string
	handler := func(name string) vm.Value {
		return h.vm.NewNativeFunction(name, 1, func(call vm.FunctionCall) (vm.Value, error) {
			order = append(order, name+":"+h.str(call.Argument(0)))
			return s(name), nil
		}).Value()
	}
	derived := h.must(p, "then", handler("first"))
	h.must(p, "then", handler("second"))

	_, err = h.vm.Call(resolve, vm.Undefined, s("v"))
	require.NoError(t, err)
	assert.Empty(t, order)

	state, result := h.settle(derived)
	assert.Equal(t, vm.PromiseFulfilled, state)
	assert.Equal(t, "first", result.AsString())
	assert.Equal(t, []string{"first:v", "second:v"}, order)

	_, err = h.vm.Call(h.global("Promise"), vm.Undefined, executor.Value())
	h.requireKind(err, errs.KindTypeError)
	_, err = h.construct("Promise", n(1))
	h.requireKind(err, errs.KindTypeError)
}

func TestPromiseResolveRejectCatchFinally(t *testing.T) {
	h := newHarness(t)
	promise := h.global("Promise")

	fulfilled := h.must(promise, "resolve", n(1))
	assert.Same(t, fulfilled.AsObject(), h.must(promise, "resolve", fulfilled).AsObject(), "a promise resolves to itself")

	rejected := h.must(promise, "reject", s("why"))
	recovered := h.must(rejected, "catch", h.vm.NewNativeFunction("recover", 1, func(call vm.FunctionCall) (vm.Value, error) {
		return s("recovered from " + h.str(call.Argument(0))), nil
	}).Value())
	state, result := h.settle(recovered)
	assert.Equal(t, vm.PromiseFulfilled, state)
	assert.Equal(t, "recovered from why", result.AsString())

	// finally passes the original outcome through.
	ran := 0
	cleanup := h.vm.NewNativeFunction("cleanup", 0, func(vm.FunctionCall) (vm.Value, error) {
		ran++
		return s("ignored"), nil
	}).Value()
	after := h.must(fulfilled, "finally", cleanup)
	state, result = h.settle(after)
	assert.Equal(t, vm.PromiseFulfilled, state)
	assert.Equal(t, float64(1), result.AsNumber())

	after = h.must(rejected, "finally", cleanup)
	state, result = h.settle(after)
	assert.Equal(t, vm.PromiseRejected, state)
	assert.Equal(t, "why", result.AsString())
	assert.Equal(t, 2, ran)

	_, err := h.vm.Call(h.get(promise, "resolve"), n(1), n(1))
	h.requireKind(err, errs.KindTypeError)
}

func TestPromiseWithResolvers(t *testing.T) {
	h := newHarness(t)
	r := h.must(h.global("Promise"), "withResolvers")
	p := h.get(r, "promise")
	require.True(t, vm.IsPromise(p))

	_, err := h.vm.Call(h.get(r, "reject"), vm.Undefined, s("no"))
	require.NoError(t, err)
	_, err = h.vm.Call(h.get(r, "resolve"), vm.Undefined, s("yes"))
	require.NoError(t, err)

	state, result := h.settle(p)
	assert.Equal(t, vm.PromiseRejected, state)
	assert.Equal(t, "no", result.AsString())
}

func TestPromiseCombinators(t *testing.T) {
	h := newHarness(t)
	promise := h.global("Promise")
	pending := h.must(promise, "withResolvers")

	all := h.must(promise, "all", h.array(n(1), h.get(pending, "promise"), h.must(promise, "resolve", n(3))))
	state, _ := h.settle(all)
	assert.Equal(t, vm.PromisePending, state)

	_, err := h.vm.Call(h.get(pending, "resolve"), vm.Undefined, n(2))
	require.NoError(t, err)
	state, result := h.settle(all)
	require.Equal(t, vm.PromiseFulfilled, state)
	assert.Equal(t, "1,2,3", h.str(result))

	empty := h.must(promise, "all", h.array())
	state, result = h.settle(empty)
	require.Equal(t, vm.PromiseFulfilled, state)
	assert.Equal(t, uint32(0), result.AsObject().ArrayLength())

	settled := h.must(promise, "allSettled", h.array(h.must(promise, "reject", s("bad")), n(4)))
	state, result = h.settle(settled)
	require.Equal(t, vm.PromiseFulfilled, state)
	first := h.get(result, "0")
	assert.Equal(t, "rejected", h.get(first, "status").AsString())
	assert.Equal(t, "bad", h.get(first, "reason").AsString())
	assert.Equal(t, "fulfilled", h.get(result, "1", "status").AsString())

	race := h.must(promise, "race", h.array(h.get(h.must(promise, "withResolvers"), "promise"), n(5)))
	state, result = h.settle(race)
	require.Equal(t, vm.PromiseFulfilled, state)
	assert.Equal(t, float64(5), result.AsNumber())

	// A non-iterable argument rejects rather than throws.
	bad := h.must(promise, "all", n(1))
	state, result = h.settle(bad)
	require.Equal(t, vm.PromiseRejected, state)
	kind, ok := vm.ErrorKindOf(h.vm.Throw(result))
	require.True(t, ok)
	assert.Equal(t, errs.KindTypeError, kind)
}
