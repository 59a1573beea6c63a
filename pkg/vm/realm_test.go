package vm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "jscore/pkg/errors"
)

func TestCreateRealmKeepsCurrentRealm(t *testing.T) {
	machine := newTestVM(t)
	home := machine.Realm()
	other, err := machine.CreateRealm()
	require.NoError(t, err)

	assert.Same(t, home, machine.Realm())
	assert.Equal(t, 2, machine.Realms())
	assert.NotEqual(t, home.ID(), other.ID())
	assert.Same(t, machine, other.VM())
	assert.NotSame(t, home.ObjectPrototype, other.ObjectPrototype)

	restore, err := machine.EnterRealm(other)
	require.NoError(t, err)
	o := machine.NewObject()
	assert.Same(t, other, o.Realm())
	proto, err := o.GetPrototypeOf(machine)
	require.NoError(t, err)
	assert.Same(t, other.ObjectPrototype, proto)
	restore()
	assert.Same(t, home, machine.Realm())

	other.SetGlobal("answer", IntegerValue(42))
	v, ok := other.Global("answer")
	require.True(t, ok)
	assert.Equal(t, int32(42), v.AsInteger())
	_, ok = home.Global("answer")
	assert.False(t, ok)
	self, ok := home.Global("globalThis")
	require.True(t, ok)
	assert.Same(t, home.GlobalObject, self.AsObject())
}

func TestCallRunsInCalleeRealm(t *testing.T) {
	machine := newTestVM(t)
	other, err := machine.CreateRealm()
	require.NoError(t, err)

	var during *Realm
	fn := other.NewNativeFunction("where", 0, func(call FunctionCall) (Value, error) {
		during = call.VM.Realm()
		return call.VM.NewErrorObject(errs.KindTypeError, "x").Value(), nil
	})
	v, err := machine.Call(fn.Value(), Undefined)
	require.NoError(t, err)
	assert.Same(t, other, during)
	assert.NotSame(t, other, machine.Realm())
	proto, err := v.AsObject().GetPrototypeOf(machine)
	require.NoError(t, err)
	assert.Same(t, other.ErrorPrototypes[errs.KindTypeError], proto)
}

func TestTeardownRealm(t *testing.T) {
	machine := newTestVM(t)
	err := machine.TeardownRealm(machine.Realm())
	assert.Error(t, err, "the current realm cannot be torn down")

	other, err := machine.CreateRealm()
	require.NoError(t, err)
	fn := other.NewNativeFunction("f", 0, func(FunctionCall) (Value, error) { return True, nil })
	ctor := other.NewNativeConstructor("C", 0, nil, func(call FunctionCall) (Value, error) {
		return call.VM.NewObject().Value(), nil
	}, nil)

	require.NoError(t, machine.TeardownRealm(other))
	assert.True(t, other.TornDown())
	assert.Equal(t, 1, machine.Realms())
	require.NoError(t, machine.TeardownRealm(other), "tearing down twice is a no-op")

	_, err = machine.Call(fn.Value(), Undefined)
	assert.True(t, errors.Is(err, ErrRealmTornDown))
	_, err = machine.Construct(ctor.Value(), nil, nil)
	assert.True(t, errors.Is(err, ErrRealmTornDown))
	_, err = machine.EnterRealm(other)
	assert.True(t, errors.Is(err, ErrRealmTornDown))

	stranger := newTestVM(t)
	_, err = machine.EnterRealm(stranger.Realm())
	assert.Error(t, err)
}

type failingInitializer struct{}

func (failingInitializer) Name() string { return "failing" }
func (failingInitializer) Priority() int { return 0 }
func (failingInitializer) InitRealm(*Realm) error { return errors.New("boom") }

type recordingInitializer struct {
	name     string
	priority int
	order    *[]string
}

func (i recordingInitializer) Name() string { return i.name }
func (i recordingInitializer) Priority() int { return i.priority }
func (i recordingInitializer) InitRealm(r *Realm) error {
	*i.order = append(*i.order, i.name)
	r.SetGlobal(i.name, True)
	return nil
}

func TestInitializersRunByPriority(t *testing.T) {
	var order []string
	machine, err := New(Options{Initializers: []RealmInitializer{
		recordingInitializer{name: "late", priority: 10, order: &order},
		recordingInitializer{name: "early", priority: 1, order: &order},
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "late"}, order)
	_, ok := machine.Realm().Global("late")
	assert.True(t, ok)

	_, err = machine.CreateRealm()
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "late", "early", "late"}, order)

	_, err = New(Options{Initializers: []RealmInitializer{failingInitializer{}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialize failing")
}

func TestRunJobsRoundLimit(t *testing.T) {
	machine, err := New(Options{MaxJobRounds: 3})
	require.NoError(t, err)

	var forever func()
	ran := 0
	forever = func() {
		ran++
		machine.EnqueueJob(forever)
	}
	machine.EnqueueJob(forever)
	err = machine.RunJobs()
	require.Error(t, err)
	assert.Equal(t, "job queue did not settle after 3 rounds", err.Error())
	assert.Equal(t, 3, ran)
	assert.Equal(t, 1, machine.PendingJobs())

	// A queue that settles within the limit is fine.
	machine, err = New(Options{MaxJobRounds: 3})
	require.NoError(t, err)
	remaining := 2
	var countdown func()
	countdown = func() {
		if remaining > 0 {
			remaining--
			machine.EnqueueJob(countdown)
		}
	}
	machine.EnqueueJob(countdown)
	require.NoError(t, machine.RunJobs())
	assert.Zero(t, machine.PendingJobs())
}

func TestCallDepthLimit(t *testing.T) {
	machine := newTestVM(t)
	var recurse *Object
	recurse = machine.NewNativeFunction("recurse", 0, func(call FunctionCall) (Value, error) {
		return call.VM.Call(recurse.Value(), Undefined)
	})
	_, err := machine.Call(recurse.Value(), Undefined)
	requireErrorKind(t, err, errs.KindRangeError)

	// The depth counter unwinds.
	ok, err := machine.Call(machine.NewNativeFunction("ok", 0, func(FunctionCall) (Value, error) { return True, nil }).Value(), Undefined)
	require.NoError(t, err)
	assert.True(t, ok.AsBoolean())
}

func TestVMLogsThroughConfiguredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	machine, err := New(Options{Logger: &logger})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"message":"created realm"`)

	buffer, err := machine.NewResizableArrayBuffer(1, 4)
	require.NoError(t, err)
	require.NoError(t, machine.ArrayBufferResize(buffer.Value(), 4))
	assert.Contains(t, buf.String(), `"message":"resized array buffer"`)
	assert.Contains(t, buf.String(), `"to":4`)
}
