package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "jscore/pkg/errors"
	"jscore/pkg/vm"
)

// generator builds and starts a generator that yields each value in turn.
func (h *harness) generator(async bool, values ...vm.Value) vm.Value {
	h.t.Helper()
	b := vm.NewGenBuilder("gen")
	for _, v := range values {
		b.Push(v).Yield().Pop()
	}
	b.Push(vm.Undefined).Return()
	program, err := b.Build()
	require.NoError(h.t, err)
	fn, err := h.vm.NewGeneratorFunction(program, async)
	require.NoError(h.t, err)
	gen, err := h.vm.Call(fn.Value(), vm.Undefined)
	require.NoError(h.t, err)
	return gen
}

func (h *harness) step(result vm.Value) (vm.Value, bool) {
	h.t.Helper()
	require.True(h.t, result.IsObject(), "%s is not an iterator result", result.String())
	return h.get(result, "value"), vm.ToBoolean(h.get(result, "done"))
}

func TestGeneratorPrototypeMethods(t *testing.T) {
	h := newHarness(t)
	gen := h.generator(false, s("a"), s("b"), s("c"))

	v, done := h.step(h.must(gen, "next"))
	assert.Equal(t, "a", v.AsString())
	assert.False(t, done)

	v, done = h.step(h.must(gen, "return", s("early")))
	assert.Equal(t, "early", v.AsString())
	assert.True(t, done)

	v, done = h.step(h.must(gen, "next"))
	assert.True(t, v.IsUndefined())
	assert.True(t, done)

	_, err := h.vm.Call(h.get(gen, "next"), h.vm.NewObject().Value())
	h.requireKind(err, errs.KindTypeError)

	got, err := h.vm.Call(h.global("Object", "prototype", "toString"), gen)
	require.NoError(t, err)
	assert.Equal(t, "[object Generator]", got.AsString())
}

func TestGeneratorThrowAtStart(t *testing.T) {
	h := newHarness(t)
	gen := h.generator(false, n(1))

	boom, err := h.construct("RangeError", s("boom"))
	require.NoError(t, err)
	_, err = h.invoke(gen, "throw", boom)
	h.requireKind(err, errs.KindRangeError)

	_, done := h.step(h.must(gen, "next"))
	assert.True(t, done, "a generator thrown into before starting is completed")
}

func TestGeneratorsAreIterable(t *testing.T) {
	h := newHarness(t)
	gen := h.generator(false, n(1), n(2), n(3))

	self, err := h.vm.Invoke(gen, vm.SymbolKey(vm.SymIterator))
	require.NoError(t, err)
	assert.Same(t, gen.AsObject(), self.AsObject())

	values, err := h.vm.IterableToList(gen)
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, float64(3), values[2].AsNumber())

	fromGen := h.must(h.global("Array"), "from", h.generator(false, s("x"), s("y")))
	assert.Equal(t, "x,y", h.str(fromGen))
}

func TestAsyncGeneratorPrototypeMethods(t *testing.T) {
	h := newHarness(t)
	gen := h.generator(true, s("a"))

	p1 := h.must(gen, "next")
	p2 := h.must(gen, "next")
	require.True(t, vm.IsPromise(p1))

	state, result := h.settle(p1)
	require.Equal(t, vm.PromiseFulfilled, state)
	v, done := h.step(result)
	assert.Equal(t, "a", v.AsString())
	assert.False(t, done)

	state, result = h.settle(p2)
	require.Equal(t, vm.PromiseFulfilled, state)
	_, done = h.step(result)
	assert.True(t, done)

	// Errors reject the returned promise instead of throwing.
	p, err := h.vm.Call(h.get(gen, "next"), n(1))
	require.NoError(t, err)
	state, reason := h.settle(p)
	require.Equal(t, vm.PromiseRejected, state)
	kind, ok := vm.ErrorKindOf(h.vm.Throw(reason))
	require.True(t, ok)
	assert.Equal(t, errs.KindTypeError, kind)
}
