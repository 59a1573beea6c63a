// Package driver wires configuration, logging, the VM and the standard
// builtins into a Session that embedders and the command line use.
package driver

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"jscore/pkg/builtins"
	"jscore/pkg/config"
	errs "jscore/pkg/errors"
	"jscore/pkg/vm"
)

// Version is reported by process.version and the jscore:host module.
const Version = "0.1.0"

// Session represents a persistent runtime session: one VM with the
// standard builtins, its realms, and the native modules declared on it.
// State created in one call is visible to the next.
type Session struct {
	cfg     *config.Config
	logger  zerolog.Logger
	vm      *vm.VM
	modules map[string]*NativeModule
}

// Option customizes NewSession.
type Option func(*sessionOptions)

type sessionOptions struct {
	logWriter    io.Writer
	argv         []string
	stdout       io.Writer
	stderr       io.Writer
	initializers []vm.RealmInitializer
}

// WithLogWriter sends log output to w instead of stderr.
func WithLogWriter(w io.Writer) Option {
	return func(o *sessionOptions) { o.logWriter = w }
}

// WithArgv sets process.argv.
func WithArgv(argv []string) Option {
	return func(o *sessionOptions) { o.argv = argv }
}

// WithStdio redirects process.stdout and process.stderr.
func WithStdio(stdout, stderr io.Writer) Option {
	return func(o *sessionOptions) { o.stdout, o.stderr = stdout, stderr }
}

// WithInitializers adds realm initializers after the standard ones.
func WithInitializers(inits ...vm.RealmInitializer) Option {
	return func(o *sessionOptions) { o.initializers = append(o.initializers, inits...) }
}

// NewLogger builds the logger described by cfg writing to w.
func NewLogger(cfg config.LogConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}
	if cfg.Format == config.FormatConsole {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: true}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("component", "jscore").Logger(), nil
}

// NewSession creates a session from cfg. A nil cfg means config.Default().
func NewSession(cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := sessionOptions{logWriter: os.Stderr, stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	logger, err := NewLogger(cfg.Log, o.logWriter)
	if err != nil {
		return nil, err
	}

	process := NewProcessInitializer(o.argv)
	process.stdout, process.stderr = o.stdout, o.stderr
	inits := append(builtins.Standard(), process)
	inits = append(inits, o.initializers...)

	machine, err := vm.New(vm.Options{
		Logger:        &logger,
		Initializers:  inits,
		MaxJobRounds:  cfg.Jobs.MaxRounds,
		MaxByteLength: cfg.Memory.MaxByteLength,
		Strict:        cfg.Realm.Strict,
	})
	if err != nil {
		return nil, fmt.Errorf("create vm: %w", err)
	}

	s := &Session{cfg: cfg, logger: logger, vm: machine, modules: make(map[string]*NativeModule)}
	registerBuiltinModules(s)
	logger.Debug().Int("initializers", len(inits)).Bool("strict", cfg.Realm.Strict).Msg("session ready")
	return s, nil
}

// VM returns the session's machine.
func (s *Session) VM() *vm.VM { return s.vm }

// Logger returns the session logger.
func (s *Session) Logger() *zerolog.Logger { return &s.logger }

// Config returns the configuration the session was built from.
func (s *Session) Config() *config.Config { return s.cfg }

// Realm returns the current realm.
func (s *Session) Realm() *vm.Realm { return s.vm.Realm() }

// NewRealm creates an isolated realm with its own intrinsics.
func (s *Session) NewRealm() (*vm.Realm, error) {
	return s.vm.CreateRealm()
}

// InRealm runs fn with r as the current realm.
func (s *Session) InRealm(r *vm.Realm, fn func() error) error {
	restore, err := s.vm.EnterRealm(r)
	if err != nil {
		return err
	}
	defer restore()
	return fn()
}

// CloseRealm tears r down and drops native module instances created in it.
func (s *Session) CloseRealm(r *vm.Realm) error {
	for _, m := range s.modules {
		delete(m.instances, r)
	}
	return s.vm.TeardownRealm(r)
}

// Global reads a property of the current global object, throwing a
// ReferenceError when it does not exist.
func (s *Session) Global(name string) (vm.Value, error) {
	global := s.vm.Realm().GlobalObject
	ok, err := global.HasProperty(s.vm, vm.StringKey(name))
	if err != nil {
		return vm.Undefined, err
	}
	if !ok {
		return vm.Undefined, s.vm.NewReferenceError("%s is not defined", name)
	}
	return s.vm.Get(global, vm.StringKey(name))
}

// Call calls fn and then drains the job queue.
func (s *Session) Call(fn vm.Value, this vm.Value, args ...vm.Value) (vm.Value, error) {
	result, err := s.vm.Call(fn, this, args...)
	if err != nil {
		return vm.Undefined, err
	}
	if err := s.vm.RunJobs(); err != nil {
		return vm.Undefined, err
	}
	return result, nil
}

// Await drains the job queue and returns the settled value of promise p.
// A rejection is returned as an *vm.Exception carrying the reason. Non-promise
// values are returned unchanged.
func (s *Session) Await(p vm.Value) (vm.Value, error) {
	if err := s.vm.RunJobs(); err != nil {
		return vm.Undefined, err
	}
	if !vm.IsPromise(p) {
		return p, nil
	}
	switch state, result := p.AsObject().PromiseState(); state {
	case vm.PromiseFulfilled:
		return result, nil
	case vm.PromiseRejected:
		return vm.Undefined, s.vm.Throw(result)
	default:
		return vm.Undefined, fmt.Errorf("promise still pending after %d job rounds", s.cfg.Jobs.MaxRounds)
	}
}

// DeclareModule registers a native module. Its builder runs on first import
// in each realm.
func (s *Session) DeclareModule(name string, builder func(m *ModuleBuilder)) *NativeModule {
	m := &NativeModule{name: name, builder: builder, instances: make(map[*vm.Realm]*moduleInstance)}
	s.modules[name] = m
	s.logger.Debug().Str("module", name).Msg("declared native module")
	return m
}

// Import returns the namespace object of a declared module in the current
// realm.
func (s *Session) Import(name string) (*vm.Object, error) {
	m, ok := s.modules[name]
	if !ok {
		return nil, fmt.Errorf("module %q not found", name)
	}
	inst, err := m.instantiate(s.vm)
	if err != nil {
		return nil, err
	}
	return inst.namespace, nil
}

// Modules lists the declared module names.
func (s *Session) Modules() []string {
	names := make([]string, 0, len(s.modules))
	for name := range s.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Report describes err for display. Exceptions report the thrown value;
// other errors are host failures.
func Report(err error) *errs.Report {
	if ex, ok := vm.AsException(err); ok {
		return ex.Report()
	}
	return &errs.Report{Detail: err.Error(), Cause: err}
}
