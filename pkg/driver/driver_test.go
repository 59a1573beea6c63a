package driver

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jscore/pkg/config"
	errs "jscore/pkg/errors"
	"jscore/pkg/vm"
)

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithLogWriter(&bytes.Buffer{})}, opts...)
	s, err := NewSession(nil, opts...)
	require.NoError(t, err)
	return s
}

// lookup follows a dotted path of property names from the global object.
func lookup(t *testing.T, s *Session, names ...string) vm.Value {
	t.Helper()
	v, err := s.Global(names[0])
	require.NoError(t, err)
	for _, name := range names[1:] {
		require.True(t, v.IsObject(), "%s is not an object", name)
		v, err = s.VM().Get(v.AsObject(), vm.StringKey(name))
		require.NoError(t, err)
	}
	return v
}

func requireKind(t *testing.T, err error, kind errs.Kind) {
	t.Helper()
	require.Error(t, err)
	got, ok := vm.ErrorKindOf(err)
	require.True(t, ok, "not a native error: %v", err)
	require.Equal(t, kind, got)
}

func TestNewSessionInstallsBuiltins(t *testing.T) {
	s := newTestSession(t)
	for _, name := range []string{"Object", "Array", "Promise", "Proxy", "Reflect", "DataView", "Uint8Array", "process"} {
		_, err := s.Global(name)
		assert.NoError(t, err, name)
	}
	_, err := s.Global("nope")
	requireKind(t, err, errs.KindReferenceError)
	assert.Same(t, s.VM().Realm(), s.Realm())
	assert.True(t, s.VM().Strict())
}

func TestNewSessionRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Jobs.MaxRounds = 0
	_, err := NewSession(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxRounds")
}

func TestSessionLogsAsJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.Log = config.LogConfig{Level: "debug", Format: config.FormatJSON}
	_, err := NewSession(cfg, WithLogWriter(&buf))
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, `"message":"session ready"`)
	assert.Contains(t, out, `"component":"jscore"`)
	assert.Contains(t, out, `"message":"created realm"`)

	buf.Reset()
	cfg.Log.Level = "warn"
	_, err = NewSession(cfg, WithLogWriter(&buf))
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestSessionAwaitsPromises(t *testing.T) {
	s := newTestSession(t)
	promise := lookup(t, s, "Promise")

	p, err := s.Call(lookup(t, s, "Promise", "resolve"), promise, vm.IntegerValue(3))
	require.NoError(t, err)
	v, err := s.Await(p)
	require.NoError(t, err)
	assert.Equal(t, float64(3), v.AsNumber())

	p, err = s.Call(lookup(t, s, "Promise", "reject"), promise, vm.NewString("bad"))
	require.NoError(t, err)
	_, err = s.Await(p)
	ex, ok := vm.AsException(err)
	require.True(t, ok)
	assert.Equal(t, "bad", ex.Value().AsString())
	assert.Equal(t, "Uncaught bad", Report(err).Error())

	// A promise nobody resolves stays pending.
	pending, _, _ := s.VM().NewPromise()
	_, err = s.Await(pending.Value())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still pending")

	v, err = s.Await(vm.IntegerValue(1))
	require.NoError(t, err)
	assert.Equal(t, int32(1), v.AsInteger())
}

func TestSessionRealms(t *testing.T) {
	s := newTestSession(t)
	other, err := s.NewRealm()
	require.NoError(t, err)
	assert.Equal(t, 2, s.VM().Realms())

	var inner vm.Value
	require.NoError(t, s.InRealm(other, func() error {
		inner, err = s.Global("Object")
		return err
	}))
	outer := lookup(t, s, "Object")
	assert.NotSame(t, outer.AsObject(), inner.AsObject())

	require.NoError(t, s.CloseRealm(other))
	assert.Error(t, s.InRealm(other, func() error { return nil }))
}

func TestProcessGlobal(t *testing.T) {
	var stdout bytes.Buffer
	s := newTestSession(t, WithArgv([]string{"jscore", "a"}), WithStdio(&stdout, &bytes.Buffer{}))

	argv := lookup(t, s, "process", "argv")
	assert.Equal(t, uint32(2), argv.AsObject().ArrayLength())
	second, err := s.VM().Get(argv.AsObject(), vm.IndexKey(1))
	require.NoError(t, err)
	assert.Equal(t, "a", second.AsString())
	assert.Equal(t, "v"+Version, lookup(t, s, "process", "version").AsString())

	stream := lookup(t, s, "process", "stdout")
	_, err = s.Call(lookup(t, s, "process", "stdout", "write"), stream, vm.NewString("hi"), vm.IntegerValue(1))
	require.NoError(t, err)
	assert.Equal(t, "hi", stdout.String())

	var got []vm.Value
	cb := s.VM().NewNativeFunction("cb", 0, func(call vm.FunctionCall) (vm.Value, error) {
		got = call.Args
		return vm.Undefined, nil
	})
	_, err = s.VM().Call(lookup(t, s, "process", "nextTick"), vm.Undefined, cb.Value(), vm.NewString("x"))
	require.NoError(t, err)
	assert.Nil(t, got, "nextTick callbacks run as jobs")
	require.NoError(t, s.VM().RunJobs())
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].AsString())

	_, err = s.VM().Call(lookup(t, s, "process", "nextTick"), vm.Undefined, vm.IntegerValue(1))
	requireKind(t, err, errs.KindTypeError)
}

func TestReport(t *testing.T) {
	s := newTestSession(t)
	r := Report(s.VM().NewRangeError("too big"))
	assert.Equal(t, "RangeError", r.Name)
	assert.Equal(t, "too big", r.Message)
	kind, ok := r.Kind()
	require.True(t, ok)
	assert.Equal(t, errs.KindRangeError, kind)

	_, err := s.Import("missing")
	r = Report(err)
	assert.Equal(t, `Uncaught module "missing" not found`, r.Error())
	assert.Equal(t, err, r.Unwrap())
}
