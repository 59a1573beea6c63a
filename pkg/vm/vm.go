package vm

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"jscore/pkg/runtime"
)

const (
	// DefaultMaxJobRounds bounds how many times RunJobs drains the queue.
	DefaultMaxJobRounds = 1000
	// DefaultMaxByteLength is the largest ArrayBuffer the VM will allocate.
	DefaultMaxByteLength = 1 << 30

	maxCallDepth = 4096
)

// RealmInitializer installs intrinsics into a freshly created realm.
// Initializers run in ascending priority order.
type RealmInitializer interface {
	Name() string
	Priority() int
	InitRealm(r *Realm) error
}

// Options configures a VM. The zero value is usable.
type Options struct {
	Logger        *zerolog.Logger
	Async         runtime.AsyncRuntime
	Initializers  []RealmInitializer
	MaxJobRounds  int
	MaxByteLength int
	// Strict makes PutValue throw on failed assignments.
	Strict bool
}

// VM is an agent: it owns the job queue, the symbol registry and the realms
// created on it. A VM is not safe for concurrent use.
type VM struct {
	logger zerolog.Logger
	async  runtime.AsyncRuntime

	initializers []RealmInitializer
	realms       map[int]*Realm
	nextRealmID  int
	realm        *Realm

	registry map[string]*Symbol

	maxJobRounds  int
	maxByteLength int
	strict        bool

	depth int
}

// New creates a VM with one realm, which becomes the current realm.
func New(opts Options) (*VM, error) {
	vm := &VM{
		logger:        zerolog.Nop(),
		async:         opts.Async,
		realms:        make(map[int]*Realm),
		registry:      make(map[string]*Symbol),
		maxJobRounds:  opts.MaxJobRounds,
		maxByteLength: opts.MaxByteLength,
		strict:        opts.Strict,
	}
	if opts.Logger != nil {
		vm.logger = *opts.Logger
	}
	if vm.async == nil {
		vm.async = runtime.NewDefaultAsyncRuntime()
	}
	if vm.maxJobRounds <= 0 {
		vm.maxJobRounds = DefaultMaxJobRounds
	}
	if vm.maxByteLength <= 0 {
		vm.maxByteLength = DefaultMaxByteLength
	}
	vm.initializers = append(vm.initializers, opts.Initializers...)
	sort.SliceStable(vm.initializers, func(i, j int) bool {
		return vm.initializers[i].Priority() < vm.initializers[j].Priority()
	})

	r, err := vm.CreateRealm()
	if err != nil {
		return nil, err
	}
	vm.realm = r
	return vm, nil
}

// Logger returns the VM's logger.
func (vm *VM) Logger() *zerolog.Logger { return &vm.logger }

// Realm returns the current realm.
func (vm *VM) Realm() *Realm { return vm.realm }

// Strict reports whether host assignments through PutValue throw.
func (vm *VM) Strict() bool { return vm.strict }

// EnqueueJob schedules a microtask.
func (vm *VM) EnqueueJob(job func()) {
	vm.async.ScheduleMicrotask(job)
}

// RunJobs drains the job queue. Jobs queued by running jobs are drained too,
// up to the configured number of rounds.
func (vm *VM) RunJobs() error {
	rounds := 0
	for vm.async.RunUntilIdle() {
		rounds++
		if rounds >= vm.maxJobRounds && vm.async.Pending() > 0 {
			vm.logger.Warn().Int("rounds", rounds).Int("pending", vm.async.Pending()).Msg("job queue did not settle")
			return fmt.Errorf("job queue did not settle after %d rounds", rounds)
		}
	}
	if rounds > 0 {
		vm.logger.Debug().Int("rounds", rounds).Msg("drained job queue")
	}
	return nil
}

// PendingJobs returns the number of queued jobs.
func (vm *VM) PendingJobs() int { return vm.async.Pending() }

// Call invokes f with the given this value and arguments.
func (vm *VM) Call(f Value, this Value, args ...Value) (Value, error) {
	if !f.IsCallable() {
		return Undefined, vm.NewTypeError("%s is not a function", describeForError(f))
	}
	fn := f.AsObject()
	if fn.realm != nil && fn.realm.tornDown {
		return Undefined, fmt.Errorf("call into realm %d: %w", fn.realm.id, ErrRealmTornDown)
	}
	if vm.depth >= maxCallDepth {
		return Undefined, vm.NewRangeError("Maximum call stack size exceeded")
	}
	vm.depth++
	defer func() { vm.depth-- }()

	if fn.realm != nil && fn.realm != vm.realm {
		prev := vm.realm
		vm.realm = fn.realm
		defer func() { vm.realm = prev }()
	}
	return fn.call(FunctionCall{VM: vm, This: this, Args: args})
}

// Construct invokes f as a constructor. newTarget defaults to f when nil.
func (vm *VM) Construct(f Value, args []Value, newTarget *Object) (Value, error) {
	if !f.IsConstructor() {
		return Undefined, vm.NewTypeError("%s is not a constructor", describeForError(f))
	}
	fn := f.AsObject()
	if newTarget == nil {
		newTarget = fn
	}
	if fn.realm != nil && fn.realm.tornDown {
		return Undefined, fmt.Errorf("construct in realm %d: %w", fn.realm.id, ErrRealmTornDown)
	}
	if vm.depth >= maxCallDepth {
		return Undefined, vm.NewRangeError("Maximum call stack size exceeded")
	}
	vm.depth++
	defer func() { vm.depth-- }()

	if fn.realm != nil && fn.realm != vm.realm {
		prev := vm.realm
		vm.realm = fn.realm
		defer func() { vm.realm = prev }()
	}
	result, err := fn.construct(FunctionCall{VM: vm, This: Undefined, Args: args, NewTarget: newTarget})
	if err != nil {
		return Undefined, err
	}
	if !result.IsObject() {
		return Undefined, vm.NewTypeError("constructor did not return an object")
	}
	return result, nil
}

// describeForError renders a value for error messages without running user
// code.
func describeForError(v Value) string {
	switch v.Type() {
	case TypeString:
		return fmt.Sprintf("%q", v.AsString())
	case TypeObject:
		o := v.AsObject()
		if name, ok := o.OwnDataValue(StringKey("name")); ok && name.IsString() && name.AsString() != "" && o.call != nil {
			return name.AsString()
		}
		return "object"
	default:
		return v.String()
	}
}
