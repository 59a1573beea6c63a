package vm

// GeneratorState is the execution state of a generator object.
type GeneratorState int

const (
	GeneratorSuspendedStart GeneratorState = iota // created, body not started
	GeneratorSuspendedYield                       // suspended at a yield
	GeneratorExecuting                            // running, or awaiting inside the body
	GeneratorAwaitingReturn                       // async only: awaiting a return value
	GeneratorCompleted                            // returned or threw
)

// String returns a human-readable name for the generator state.
func (gs GeneratorState) String() string {
	switch gs {
	case GeneratorSuspendedStart:
		return "suspendedStart"
	case GeneratorSuspendedYield:
		return "suspendedYield"
	case GeneratorExecuting:
		return "executing"
	case GeneratorAwaitingReturn:
		return "awaiting-return"
	case GeneratorCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

type completionKind uint8

const (
	completionNormal completionKind = iota
	completionReturn
	completionThrow
)

type completion struct {
	kind  completionKind
	value Value
}

type stepKind uint8

const (
	stepContinue stepKind = iota // keep running the body
	stepYield                    // yield value, to be wrapped in an iterator result
	stepYieldRaw                 // yield an inner iterator result as is
	stepAwait                    // await value, then resume
	stepReturn
	stepThrow
)

type step struct {
	kind  stepKind
	value Value
}

var continueStep = step{kind: stepContinue}

// afterAwait records what a frame does with the outcome of an await.
type afterAwait uint8

const (
	afterNone           afterAwait = iota
	afterAwaitExpr                 // push the awaited value
	afterAwaitYield                // yield the awaited operand
	afterAwaitReturn               // return the awaited value
	afterUnwrapReturn              // a return request at a yield, awaited
	afterDelegateNext              // inner next/throw result of yield*
	afterDelegateReturn            // inner return result of yield*
	afterDelegateClose             // inner return result while reporting a missing throw
)

type genHandler struct {
	catchPC      int
	finallyPC    int
	stackDepth   int
	pendingDepth int
}

// genPending is the completion that entered a finally block.
type genPending struct {
	kind   completionKind
	value  Value
	target int
}

// genFrame is the saved continuation of a generator body.
type genFrame struct {
	program  *GenProgram
	async    bool
	started  bool
	pc       int
	stack    []Value
	locals   []Value
	handlers []genHandler
	pendings []genPending
	delegate *IteratorRecord
	atYield  bool
	after    afterAwait
}

func newGenFrame(program *GenProgram, async bool, args []Value) *genFrame {
	f := &genFrame{program: program, async: async, locals: make([]Value, program.Locals)}
	copy(f.locals, args)
	return f
}

func (f *genFrame) push(v Value) { f.stack = append(f.stack, v) }

func (f *genFrame) pop() Value {
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

// resume injects c at the suspension point and runs until the next
// suspension or completion.
func (f *genFrame) resume(vm *VM, c completion) step {
	var s step
	switch {
	case f.after != afterNone:
		a := f.after
		f.after = afterNone
		s = f.continueAfterAwait(vm, a, c)
	case !f.started:
		f.started = true
		s = continueStep
	case f.atYield:
		f.atYield = false
		if f.async && c.kind == completionReturn {
			s = f.await(c.value, afterUnwrapReturn)
		} else {
			s = f.receive(vm, c)
		}
	default:
		s = f.receive(vm, c)
	}
	if s.kind == stepContinue {
		s = f.run(vm)
	}
	return s
}

func (f *genFrame) await(v Value, after afterAwait) step {
	f.after = after
	return step{kind: stepAwait, value: v}
}

func (f *genFrame) receive(vm *VM, c completion) step {
	if f.delegate != nil {
		return f.delegateReceive(vm, c)
	}
	switch c.kind {
	case completionThrow:
		return f.throwAt(c.value)
	case completionReturn:
		return f.returnWith(c.value)
	default:
		f.push(c.value)
		return continueStep
	}
}

func (f *genFrame) throwAt(v Value) step {
	if !f.unwindThrow(v) {
		return step{kind: stepThrow, value: v}
	}
	return continueStep
}

func (f *genFrame) returnWith(v Value) step {
	if !f.unwindReturn(v) {
		return step{kind: stepReturn, value: v}
	}
	return continueStep
}

func (f *genFrame) fail(vm *VM, err error) step {
	return f.throwAt(vm.ErrorValue(err))
}

func (f *genFrame) truncate(h genHandler) {
	f.stack = f.stack[:h.stackDepth]
	f.pendings = f.pendings[:h.pendingDepth]
}

// unwindThrow transfers control to the innermost catch or finally block.
func (f *genFrame) unwindThrow(v Value) bool {
	for len(f.handlers) > 0 {
		last := len(f.handlers) - 1
		h := f.handlers[last]
		if h.catchPC >= 0 {
			f.truncate(h)
			f.handlers[last].catchPC = -1
			f.push(v)
			f.pc = h.catchPC
			return true
		}
		f.handlers = f.handlers[:last]
		if h.finallyPC >= 0 {
			f.truncate(h)
			f.pendings = append(f.pendings, genPending{kind: completionThrow, value: v})
			f.pc = h.finallyPC
			return true
		}
	}
	f.pc = len(f.program.Code)
	return false
}

// unwindReturn runs enclosing finally blocks before returning.
func (f *genFrame) unwindReturn(v Value) bool {
	for len(f.handlers) > 0 {
		last := len(f.handlers) - 1
		h := f.handlers[last]
		f.handlers = f.handlers[:last]
		if h.finallyPC >= 0 {
			f.truncate(h)
			f.pendings = append(f.pendings, genPending{kind: completionReturn, value: v})
			f.pc = h.finallyPC
			return true
		}
	}
	f.pc = len(f.program.Code)
	return false
}

func (f *genFrame) run(vm *VM) step {
	code := f.program.Code
	for {
		if f.pc >= len(code) {
			return step{kind: stepReturn, value: Undefined}
		}
		ins := code[f.pc]
		f.pc++
		var s step
		switch ins.Op {
		case GenPush:
			f.push(f.program.Consts[ins.A])
		case GenPop:
			f.pop()
		case GenDup:
			f.push(f.stack[len(f.stack)-1])
		case GenLoad:
			f.push(f.locals[ins.A])
		case GenStore:
			f.locals[ins.A] = f.pop()
		case GenCall:
			base := len(f.stack) - ins.A
			args := append([]Value(nil), f.stack[base:]...)
			callee, this := f.stack[base-2], f.stack[base-1]
			f.stack = f.stack[:base-2]
			result, err := vm.Call(callee, this, args...)
			if err != nil {
				s = f.fail(vm, err)
			} else {
				f.push(result)
			}
		case GenYield:
			v := f.pop()
			if f.async {
				return f.await(v, afterAwaitYield)
			}
			f.atYield = true
			return step{kind: stepYield, value: v}
		case GenYieldStar:
			kind := IteratorSync
			if f.async {
				kind = IteratorAsync
			}
			rec, err := vm.GetIterator(f.pop(), kind)
			if err != nil {
				s = f.fail(vm, err)
				break
			}
			f.delegate = rec
			s = f.delegateReceive(vm, completion{kind: completionNormal, value: Undefined})
		case GenAwait:
			return f.await(f.pop(), afterAwaitExpr)
		case GenJump:
			f.pc = ins.A
		case GenJumpIfFalse:
			if !ToBoolean(f.pop()) {
				f.pc = ins.A
			}
		case GenTry:
			f.handlers = append(f.handlers, genHandler{
				catchPC:      ins.A,
				finallyPC:    ins.B,
				stackDepth:   len(f.stack),
				pendingDepth: len(f.pendings),
			})
		case GenLeaveTry:
			h := f.handlers[len(f.handlers)-1]
			f.handlers = f.handlers[:len(f.handlers)-1]
			if h.finallyPC >= 0 {
				f.pendings = append(f.pendings, genPending{kind: completionNormal, target: ins.A})
				f.pc = h.finallyPC
			} else {
				f.pc = ins.A
			}
		case GenEndFinally:
			p := f.pendings[len(f.pendings)-1]
			f.pendings = f.pendings[:len(f.pendings)-1]
			switch p.kind {
			case completionThrow:
				s = f.throwAt(p.value)
			case completionReturn:
				s = f.returnWith(p.value)
			default:
				f.pc = p.target
			}
		case GenReturn:
			v := f.pop()
			if f.async {
				return f.await(v, afterAwaitReturn)
			}
			s = f.returnWith(v)
		case GenThrow:
			s = f.throwAt(f.pop())
		}
		if s.kind != stepContinue {
			return s
		}
	}
}

func (f *genFrame) continueAfterAwait(vm *VM, a afterAwait, c completion) step {
	if c.kind == completionThrow {
		switch a {
		case afterUnwrapReturn:
			return f.receive(vm, c)
		case afterDelegateNext, afterDelegateReturn:
			f.delegate = nil
		}
		return f.throwAt(c.value)
	}
	switch a {
	case afterAwaitExpr:
		f.push(c.value)
		return continueStep
	case afterAwaitYield:
		f.atYield = true
		return step{kind: stepYield, value: c.value}
	case afterAwaitReturn:
		return f.returnWith(c.value)
	case afterUnwrapReturn:
		return f.receive(vm, completion{kind: completionReturn, value: c.value})
	case afterDelegateNext:
		return f.delegateResult(vm, c.value)
	case afterDelegateReturn:
		return f.delegateReturnResult(vm, c.value)
	case afterDelegateClose:
		if !c.value.IsObject() {
			return f.fail(vm, vm.NewTypeError("Iterator result %s is not an object", c.value.String()))
		}
		return f.fail(vm, missingThrowError(vm))
	}
	return continueStep
}

func missingThrowError(vm *VM) error {
	return vm.NewTypeError("The iterator does not provide a 'throw' method")
}

// delegateReceive forwards a resumption to the yield* inner iterator.
func (f *genFrame) delegateReceive(vm *VM, c completion) step {
	rec := f.delegate
	iterator := rec.Iterator.Value()
	switch c.kind {
	case completionNormal:
		result, err := vm.Call(rec.NextMethod, iterator, c.value)
		if err != nil {
			f.delegate = nil
			return f.fail(vm, err)
		}
		if f.async {
			return f.await(result, afterDelegateNext)
		}
		return f.delegateResult(vm, result)

	case completionThrow:
		throw, err := vm.GetMethod(iterator, StringKey("throw"))
		if err != nil {
			f.delegate = nil
			return f.fail(vm, err)
		}
		if !throw.IsUndefined() {
			result, err := vm.Call(throw, iterator, c.value)
			if err != nil {
				f.delegate = nil
				return f.fail(vm, err)
			}
			if f.async {
				return f.await(result, afterDelegateNext)
			}
			return f.delegateResult(vm, result)
		}
		f.delegate = nil
		if f.async {
			ret, err := vm.GetMethod(iterator, StringKey("return"))
			if err != nil {
				return f.fail(vm, err)
			}
			if ret.IsUndefined() {
				return f.fail(vm, missingThrowError(vm))
			}
			inner, err := vm.Call(ret, iterator)
			if err != nil {
				return f.fail(vm, err)
			}
			return f.await(inner, afterDelegateClose)
		}
		if err := vm.IteratorClose(rec, nil); err != nil {
			return f.fail(vm, err)
		}
		return f.fail(vm, missingThrowError(vm))

	default:
		ret, err := vm.GetMethod(iterator, StringKey("return"))
		if err != nil {
			f.delegate = nil
			return f.fail(vm, err)
		}
		if ret.IsUndefined() {
			f.delegate = nil
			if f.async {
				return f.await(c.value, afterAwaitReturn)
			}
			return f.returnWith(c.value)
		}
		result, err := vm.Call(ret, iterator, c.value)
		if err != nil {
			f.delegate = nil
			return f.fail(vm, err)
		}
		if f.async {
			return f.await(result, afterDelegateReturn)
		}
		return f.delegateReturnResult(vm, result)
	}
}

// delegateResult handles the inner result of next or throw.
func (f *genFrame) delegateResult(vm *VM, result Value) step {
	if !result.IsObject() {
		f.delegate = nil
		return f.fail(vm, vm.NewTypeError("Iterator result %s is not an object", result.String()))
	}
	done, err := vm.IteratorComplete(result.AsObject())
	if err != nil {
		f.delegate = nil
		return f.fail(vm, err)
	}
	if done {
		f.delegate = nil
		v, err := vm.IteratorValue(result.AsObject())
		if err != nil {
			return f.fail(vm, err)
		}
		f.push(v)
		return continueStep
	}
	f.atYield = true
	if f.async {
		v, err := vm.IteratorValue(result.AsObject())
		if err != nil {
			f.atYield = false
			f.delegate = nil
			return f.fail(vm, err)
		}
		return step{kind: stepYield, value: v}
	}
	return step{kind: stepYieldRaw, value: result}
}

// delegateReturnResult handles the inner result of return.
func (f *genFrame) delegateReturnResult(vm *VM, result Value) step {
	if !result.IsObject() {
		f.delegate = nil
		return f.fail(vm, vm.NewTypeError("Iterator result %s is not an object", result.String()))
	}
	done, err := vm.IteratorComplete(result.AsObject())
	if err != nil {
		f.delegate = nil
		return f.fail(vm, err)
	}
	if done {
		f.delegate = nil
		v, err := vm.IteratorValue(result.AsObject())
		if err != nil {
			return f.fail(vm, err)
		}
		if f.async {
			return f.await(v, afterAwaitReturn)
		}
		return f.returnWith(v)
	}
	f.atYield = true
	if f.async {
		v, err := vm.IteratorValue(result.AsObject())
		if err != nil {
			f.atYield = false
			f.delegate = nil
			return f.fail(vm, err)
		}
		return step{kind: stepYield, value: v}
	}
	return step{kind: stepYieldRaw, value: result}
}

type generatorSlots struct {
	state GeneratorState
	frame *genFrame
	queue []asyncGeneratorRequest
}

// NewGeneratorFunction creates a generator function (or async generator
// function) whose body is program. Each call creates a generator object
// inheriting from the function's prototype property.
func (vm *VM) NewGeneratorFunction(program *GenProgram, async bool) (*Object, error) {
	if program.usesAwait && !async {
		return nil, vm.NewSyntaxError("await is only valid in async generators (%s)", program.Name)
	}
	r := vm.realm
	fnProto, genProto, kind := r.GeneratorFunctionPrototype, r.GeneratorPrototype, KindGenerator
	if async {
		fnProto, genProto, kind = r.AsyncGeneratorFunctionPrototype, r.AsyncGeneratorPrototype, KindAsyncGenerator
	}
	prototype := newObject(r, KindOrdinary, genProto, nil)
	var fn *Object
	fn = r.NewNativeFunction(program.Name, 0, func(call FunctionCall) (Value, error) {
		proto := genProto
		p, err := call.VM.Get(fn, StringKey("prototype"))
		if err != nil {
			return Undefined, err
		}
		if p.IsObject() {
			proto = p.AsObject()
		}
		slots := &generatorSlots{
			state: GeneratorSuspendedStart,
			frame: newGenFrame(program, async, call.Args),
		}
		return newObject(r, kind, proto, slots).Value(), nil
	})
	fn.prototype = fnProto
	fn.storeProperty(StringKey("prototype"), &property{value: prototype.Value(), writable: true})
	return fn, nil
}

func (vm *VM) generatorSlots(this Value, kind ObjectKind, method string) (*generatorSlots, error) {
	if !this.IsObject() || this.AsObject().kind != kind {
		name := "Generator"
		if kind == KindAsyncGenerator {
			name = "AsyncGenerator"
		}
		return nil, vm.NewTypeError("Method [%s].prototype.%s called on incompatible receiver %s", name, method, this.String())
	}
	return this.AsObject().slots.(*generatorSlots), nil
}

// GeneratorNext implements %GeneratorPrototype%.next.
func (vm *VM) GeneratorNext(this Value, v Value) (Value, error) {
	return vm.generatorResume(this, completion{kind: completionNormal, value: v}, "next")
}

// GeneratorReturn implements %GeneratorPrototype%.return.
func (vm *VM) GeneratorReturn(this Value, v Value) (Value, error) {
	return vm.generatorResume(this, completion{kind: completionReturn, value: v}, "return")
}

// GeneratorThrow implements %GeneratorPrototype%.throw.
func (vm *VM) GeneratorThrow(this Value, v Value) (Value, error) {
	return vm.generatorResume(this, completion{kind: completionThrow, value: v}, "throw")
}

func (vm *VM) generatorResume(this Value, c completion, method string) (Value, error) {
	g, err := vm.generatorSlots(this, KindGenerator, method)
	if err != nil {
		return Undefined, err
	}
	if g.state == GeneratorExecuting {
		return Undefined, vm.NewTypeError("Generator is already running")
	}
	if g.state == GeneratorSuspendedStart && c.kind != completionNormal {
		g.state = GeneratorCompleted
		g.frame = nil
	}
	if g.state == GeneratorCompleted {
		switch c.kind {
		case completionThrow:
			return Undefined, vm.Throw(c.value)
		case completionReturn:
			return vm.CreateIterResultObject(c.value, true), nil
		default:
			return vm.CreateIterResultObject(Undefined, true), nil
		}
	}

	g.state = GeneratorExecuting
	s := g.frame.resume(vm, c)
	switch s.kind {
	case stepYield:
		g.state = GeneratorSuspendedYield
		return vm.CreateIterResultObject(s.value, false), nil
	case stepYieldRaw:
		g.state = GeneratorSuspendedYield
		return s.value, nil
	case stepThrow:
		g.state = GeneratorCompleted
		g.frame = nil
		return Undefined, vm.Throw(s.value)
	default:
		g.state = GeneratorCompleted
		g.frame = nil
		return vm.CreateIterResultObject(s.value, true), nil
	}
}

// GeneratorStateOf reports the state of a generator or async generator.
func (o *Object) GeneratorStateOf() (GeneratorState, bool) {
	g, ok := o.slots.(*generatorSlots)
	if !ok {
		return 0, false
	}
	return g.state, true
}
