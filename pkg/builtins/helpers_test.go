package builtins

import (
	"testing"

	"github.com/stretchr/testify/require"

	errs "jscore/pkg/errors"
	"jscore/pkg/vm"
)

// harness is a VM with the standard builtins and lookup helpers that fail
// the test on unexpected errors.
type harness struct {
	t  *testing.T
	vm *vm.VM
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	machine, err := vm.New(vm.Options{Initializers: Standard()})
	require.NoError(t, err)
	return &harness{t: t, vm: machine}
}

func (h *harness) global(name string, path ...string) vm.Value {
	h.t.Helper()
	v, ok := h.vm.Realm().Global(name)
	require.True(h.t, ok, "global %s is missing", name)
	return h.get(v, path...)
}

func (h *harness) get(v vm.Value, path ...string) vm.Value {
	h.t.Helper()
	for _, name := range path {
		o, err := h.vm.ToObject(v)
		require.NoError(h.t, err)
		v, err = h.vm.Get(o, vm.StringKey(name))
		require.NoError(h.t, err)
	}
	return v
}

func (h *harness) invoke(this vm.Value, method string, args ...vm.Value) (vm.Value, error) {
	h.t.Helper()
	return h.vm.Call(h.get(this, method), this, args...)
}

// must invokes a method and requires it to succeed.
func (h *harness) must(this vm.Value, method string, args ...vm.Value) vm.Value {
	h.t.Helper()
	v, err := h.invoke(this, method, args...)
	require.NoError(h.t, err)
	return v
}

func (h *harness) construct(name string, args ...vm.Value) (vm.Value, error) {
	h.t.Helper()
	return h.vm.Construct(h.global(name), args, nil)
}

func (h *harness) array(values ...vm.Value) vm.Value {
	return h.vm.CreateArrayFromList(values).Value()
}

func (h *harness) str(v vm.Value) string {
	h.t.Helper()
	s, err := h.vm.ToString(v)
	require.NoError(h.t, err)
	return s
}

func (h *harness) requireKind(err error, kind errs.Kind) {
	h.t.Helper()
	require.Error(h.t, err)
	got, ok := vm.ErrorKindOf(err)
	require.True(h.t, ok, "not a native error: %v", err)
	require.Equal(h.t, kind, got, "unexpected error: %v", err)
}

func s(v string) vm.Value { return vm.NewString(v) }
func n(f float64) vm.Value { return vm.NumberValue(f) }
