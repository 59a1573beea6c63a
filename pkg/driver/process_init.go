package driver

import (
	"io"
	"os"
	"runtime"
	"strings"

	"jscore/pkg/vm"
)

// ProcessInitializer installs a Node-style process global describing the
// host. It is not part of ECMAScript and is only added by Session.
type ProcessInitializer struct {
	argv   []string
	stdout io.Writer
	stderr io.Writer
}

// NewProcessInitializer creates a ProcessInitializer with the given argv
// writing to the process's standard streams.
func NewProcessInitializer(argv []string) *ProcessInitializer {
	return &ProcessInitializer{argv: argv, stdout: os.Stdout, stderr: os.Stderr}
}

func (p *ProcessInitializer) Name() string {
	return "process"
}

func (p *ProcessInitializer) Priority() int {
	return 300 // After standard builtins
}

func (p *ProcessInitializer) InitRealm(r *vm.Realm) error {
	machine := r.VM()

	argv := make([]vm.Value, len(p.argv))
	for i, arg := range p.argv {
		argv[i] = vm.NewString(arg)
	}

	env := r.NewObject()
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok && key != "" {
			env.SetOwn(key, vm.NewString(value))
		}
	}

	process := r.NewObject()
	process.SetOwn("argv", machine.CreateArrayFromList(argv).Value())
	process.SetOwn("execArgv", machine.CreateArrayFromList(nil).Value())
	process.SetOwn("platform", vm.NewString(runtime.GOOS))
	process.SetOwn("version", vm.NewString("v"+Version))
	process.SetOwn("pid", vm.IntegerValue(int32(os.Getpid())))
	process.SetOwn("env", env.Value())
	process.SetOwn("stdout", p.stream(r, p.stdout).Value())
	process.SetOwn("stderr", p.stream(r, p.stderr).Value())

	process.SetOwn("cwd", r.NewNativeFunction("cwd", 0, func(call vm.FunctionCall) (vm.Value, error) {
		cwd, err := os.Getwd()
		if err != nil {
			return vm.NewString(""), nil
		}
		return vm.NewString(cwd), nil
	}).Value())

	// nextTick queues fn on the job queue with the remaining arguments.
	process.SetOwn("nextTick", r.NewNativeFunction("nextTick", 1, func(call vm.FunctionCall) (vm.Value, error) {
		fn := call.Argument(0)
		if !fn.IsCallable() {
			return vm.Undefined, call.VM.NewTypeError("The \"callback\" argument must be of type function")
		}
		var args []vm.Value
		if len(call.Args) > 1 {
			args = append(args, call.Args[1:]...)
		}
		machine := call.VM
		machine.EnqueueJob(func() {
			if _, err := machine.Call(fn, vm.Undefined, args...); err != nil {
				machine.Logger().Warn().Err(err).Msg("uncaught exception in nextTick callback")
			}
		})
		return vm.Undefined, nil
	}).Value())

	process.SetOwn("memoryUsage", r.NewNativeFunction("memoryUsage", 0, func(call vm.FunctionCall) (vm.Value, error) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		result := call.VM.NewObject()
		result.SetOwn("heapUsed", vm.NumberValue(float64(m.HeapAlloc)))
		result.SetOwn("heapTotal", vm.NumberValue(float64(m.HeapSys)))
		result.SetOwn("rss", vm.NumberValue(float64(m.Sys)))
		return result.Value(), nil
	}).Value())

	r.SetGlobal("process", process.Value())
	return nil
}

func (p *ProcessInitializer) stream(r *vm.Realm, w io.Writer) *vm.Object {
	s := r.NewObject()
	s.SetOwn("write", r.NewNativeFunction("write", 1, func(call vm.FunctionCall) (vm.Value, error) {
		text, err := call.VM.ToString(call.Argument(0))
		if err != nil {
			return vm.Undefined, err
		}
		if _, err := io.WriteString(w, text); err != nil {
			return vm.False, nil
		}
		return vm.True, nil
	}).Value())
	s.SetOwn("isTTY", vm.False)
	return s
}
