package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	errs "jscore/pkg/errors"
)

func newTestVM(t *testing.T) *VM {
	t.Helper()
	machine, err := New(Options{})
	require.NoError(t, err)
	return machine
}

func requireErrorKind(t *testing.T, err error, kind errs.Kind) {
	t.Helper()
	require.Error(t, err)
	got, ok := ErrorKindOf(err)
	require.True(t, ok, "not a native error: %v", err)
	require.Equal(t, kind, got, "unexpected error: %v", err)
}

func nativeFn(machine *VM, name string, fn NativeFunction) Value {
	return machine.NewNativeFunction(name, 0, fn).Value()
}

// testIterable is an iterable over fixed values whose iterators count
// return() calls.
type testIterable struct {
	obj       *Object
	returns   int
	returnErr error
	nextErr   error
}

func newTestIterable(machine *VM, values ...Value) *testIterable {
	it := &testIterable{}
	it.obj = machine.NewObject()
	it.obj.SetOwnMethod(SymbolKey(SymIterator), nativeFn(machine, "[Symbol.iterator]", func(call FunctionCall) (Value, error) {
		i := 0
		iter := call.VM.NewObject()
		iter.SetOwnMethod(StringKey("next"), nativeFn(call.VM, "next", func(call FunctionCall) (Value, error) {
			if it.nextErr != nil {
				return Undefined, it.nextErr
			}
			if i >= len(values) {
				return call.VM.CreateIterResultObject(Undefined, true), nil
			}
			i++
			return call.VM.CreateIterResultObject(values[i-1], false), nil
		}))
		iter.SetOwnMethod(StringKey("return"), nativeFn(call.VM, "return", func(call FunctionCall) (Value, error) {
			it.returns++
			if it.returnErr != nil {
				return Undefined, it.returnErr
			}
			return call.VM.CreateIterResultObject(call.Argument(0), true), nil
		}))
		return iter.Value(), nil
	}))
	return it
}

func (it *testIterable) Value() Value { return it.obj.Value() }

// iterResult unpacks an iterator result object.
func iterResult(t *testing.T, machine *VM, v Value) (Value, bool) {
	t.Helper()
	require.True(t, v.IsObject(), "iterator result %s is not an object", v.String())
	done, err := machine.IteratorComplete(v.AsObject())
	require.NoError(t, err)
	value, err := machine.IteratorValue(v.AsObject())
	require.NoError(t, err)
	return value, done
}

// valueStrings renders values for comparison. Value holds pointers, so
// equal strings are not equal structs.
func valueStrings(values []Value) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return out
}
