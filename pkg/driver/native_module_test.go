package driver

import (
	"bytes"
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jscore/pkg/config"
	errs "jscore/pkg/errors"
	"jscore/pkg/vm"
)

func exportOf(t *testing.T, s *Session, ns *vm.Object, name string) vm.Value {
	t.Helper()
	v, err := s.VM().Get(ns, vm.StringKey(name))
	require.NoError(t, err)
	return v
}

func TestNativeModuleExports(t *testing.T) {
	s := newTestSession(t)
	s.DeclareModule("math-utils", func(m *ModuleBuilder) {
		m.Const("PI_SQUARED", math.Pi*math.Pi)
		m.Const("tags", []string{"a", "b"})
		m.Const("limits", map[string]int{"max": 9, "min": 1})
		m.Const("huge", big.NewInt(1<<40))
		m.Function("square", func(x float64) float64 { return x * x })
		m.Function("sum", func(xs ...int) int {
			total := 0
			for _, x := range xs {
				total += x
			}
			return total
		})
		m.Function("divmod", func(a, b int) (map[string]int, error) {
			if b == 0 {
				return nil, errors.New("division by zero")
			}
			return map[string]int{"quotient": a / b, "remainder": a % b}, nil
		})
		m.Default("utils")
	})

	ns, err := s.Import("math-utils")
	require.NoError(t, err)
	assert.Equal(t, vm.KindModuleNamespace, ns.Kind())

	assert.Equal(t, math.Pi*math.Pi, exportOf(t, s, ns, "PI_SQUARED").AsNumber())
	assert.Equal(t, "utils", exportOf(t, s, ns, "default").AsString())
	assert.Equal(t, "1099511627776", exportOf(t, s, ns, "huge").AsBigInt().String())
	assert.Equal(t, uint32(2), exportOf(t, s, ns, "tags").AsObject().ArrayLength())
	keys, err := exportOf(t, s, ns, "limits").AsObject().OwnPropertyKeys(s.VM())
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "max", keys[0].String())

	// Arguments are coerced with the abstract operations.
	v, err := s.Call(exportOf(t, s, ns, "square"), vm.Undefined, vm.NewString("3"))
	require.NoError(t, err)
	assert.Equal(t, float64(9), v.AsNumber())

	v, err = s.Call(exportOf(t, s, ns, "sum"), vm.Undefined, vm.IntegerValue(1), vm.NewString("2"), vm.NumberValue(3.7))
	require.NoError(t, err)
	assert.Equal(t, float64(6), v.AsNumber())
	length, err := s.VM().Get(exportOf(t, s, ns, "sum").AsObject(), vm.StringKey("length"))
	require.NoError(t, err)
	assert.Equal(t, float64(0), length.AsNumber())

	v, err = s.Call(exportOf(t, s, ns, "divmod"), vm.Undefined, vm.IntegerValue(17), vm.IntegerValue(5))
	require.NoError(t, err)
	q, err := s.VM().Get(v.AsObject(), vm.StringKey("quotient"))
	require.NoError(t, err)
	assert.Equal(t, float64(3), q.AsNumber())

	// A Go error becomes a thrown Error.
	_, err = s.Call(exportOf(t, s, ns, "divmod"), vm.Undefined, vm.IntegerValue(1), vm.IntegerValue(0))
	requireKind(t, err, errs.KindError)
	assert.Equal(t, "division by zero", Report(err).Message)

	// Coercion failures surface as the abstract operation's error.
	sym := vm.NewSymbol("s").Value()
	_, err = s.Call(exportOf(t, s, ns, "square"), vm.Undefined, sym)
	requireKind(t, err, errs.KindTypeError)
	_, err = s.Call(exportOf(t, s, ns, "sum"), vm.Undefined, vm.NumberValue(math.Inf(1)))
	requireKind(t, err, errs.KindRangeError)
}

func TestNativeModuleNamespaceSemantics(t *testing.T) {
	s := newTestSession(t)
	mod := s.DeclareModule("state", func(m *ModuleBuilder) {
		m.Let("counter", 0)
		m.Pending("late")
		m.Const("fixed", true)
	})
	ns, err := s.Import("state")
	require.NoError(t, err)

	names, err := mod.Exports(s.VM())
	require.NoError(t, err)
	assert.Equal(t, []string{"counter", "fixed", "late"}, names)

	tag, err := s.VM().Get(ns, vm.SymbolKey(vm.SymToStringTag))
	require.NoError(t, err)
	assert.Equal(t, "Module", tag.AsString())

	// Reading an uninitialized binding throws; HasProperty still sees it.
	_, err = s.VM().Get(ns, vm.StringKey("late"))
	requireKind(t, err, errs.KindReferenceError)
	has, err := ns.HasProperty(s.VM(), vm.StringKey("late"))
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, mod.Set("late", "ready"))
	require.NoError(t, mod.Set("counter", 5))
	assert.Equal(t, "ready", exportOf(t, s, ns, "late").AsString())
	assert.Equal(t, float64(5), exportOf(t, s, ns, "counter").AsNumber())

	err = mod.Set("fixed", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constant")
	err = mod.Set("missing", 1)
	require.Error(t, err)

	// Writes through the namespace always fail.
	err = s.VM().Put(ns, vm.StringKey("counter"), vm.IntegerValue(1), true)
	requireKind(t, err, errs.KindTypeError)
	assert.Equal(t, float64(5), exportOf(t, s, ns, "counter").AsNumber())

	again, err := s.Import("state")
	require.NoError(t, err)
	assert.Same(t, ns, again, "one instance per realm")
}

func TestNativeModulePerRealm(t *testing.T) {
	s := newTestSession(t)
	s.DeclareModule("fn", func(m *ModuleBuilder) {
		m.Function("id", func(v vm.Value) vm.Value { return v })
	})
	home, err := s.Import("fn")
	require.NoError(t, err)

	other, err := s.NewRealm()
	require.NoError(t, err)
	var away *vm.Object
	require.NoError(t, s.InRealm(other, func() error {
		away, err = s.Import("fn")
		return err
	}))
	assert.NotSame(t, home, away)
	assert.Same(t, other, exportOf(t, s, away, "id").AsObject().Realm())

	require.NoError(t, s.CloseRealm(other))
}

func TestNativeModuleBuildErrors(t *testing.T) {
	s := newTestSession(t)
	s.DeclareModule("dup", func(m *ModuleBuilder) {
		m.Const("x", 1).Const("x", 2)
	})
	_, err := s.Import("dup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate export "x"`)

	s.DeclareModule("bad", func(m *ModuleBuilder) {
		m.Const("ch", make(chan int))
	})
	_, err = s.Import("bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported Go type")

	s.DeclareModule("three", func(m *ModuleBuilder) {
		m.Function("f", func() (int, int, error) { return 0, 0, nil })
	})
	_, err = s.Import("three")
	require.Error(t, err)
}

func TestHostModule(t *testing.T) {
	var logs bytes.Buffer
	cfg := config.Default()
	cfg.Log.Format = config.FormatJSON
	cfg.Jobs.MaxRounds = 42
	s, err := NewSession(cfg, WithLogWriter(&logs))
	require.NoError(t, err)
	assert.Contains(t, s.Modules(), HostModule)

	host, err := s.Import(HostModule)
	require.NoError(t, err)
	assert.Equal(t, Version, exportOf(t, s, host, "version").AsString())
	assert.True(t, exportOf(t, s, host, "strict").AsBoolean())
	limits := exportOf(t, s, host, "limits").AsObject()
	rounds, err := s.VM().Get(limits, vm.StringKey("maxJobRounds"))
	require.NoError(t, err)
	assert.Equal(t, float64(42), rounds.AsNumber())

	n, err := s.Call(exportOf(t, s, host, "realms"), vm.Undefined)
	require.NoError(t, err)
	assert.Equal(t, float64(1), n.AsNumber())

	_, err = s.Call(exportOf(t, s, host, "log"), vm.Undefined, vm.NewString("hello"), vm.IntegerValue(7))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `"message":"hello"`)
	assert.Contains(t, logs.String(), `"args":["7"]`)
}
