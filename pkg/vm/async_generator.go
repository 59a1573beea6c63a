package vm

type asyncGeneratorRequest struct {
	completion completion
	capability *PromiseCapability
}

// AsyncGeneratorNext implements %AsyncGeneratorPrototype%.next.
func (vm *VM) AsyncGeneratorNext(this Value, v Value) Value {
	return vm.asyncGeneratorEnqueue(this, completion{kind: completionNormal, value: v}, "next")
}

// AsyncGeneratorReturn implements %AsyncGeneratorPrototype%.return.
func (vm *VM) AsyncGeneratorReturn(this Value, v Value) Value {
	return vm.asyncGeneratorEnqueue(this, completion{kind: completionReturn, value: v}, "return")
}

// AsyncGeneratorThrow implements %AsyncGeneratorPrototype%.throw.
func (vm *VM) AsyncGeneratorThrow(this Value, v Value) Value {
	return vm.asyncGeneratorEnqueue(this, completion{kind: completionThrow, value: v}, "throw")
}

// asyncGeneratorEnqueue queues a request and starts it when the generator
// is idle. Requests are settled strictly in arrival order.
func (vm *VM) asyncGeneratorEnqueue(this Value, c completion, method string) Value {
	capability, _ := vm.NewPromiseCapability(Undefined)
	g, err := vm.generatorSlots(this, KindAsyncGenerator, method)
	if err != nil {
		vm.reportJobError(vm.callQuiet(capability.Reject, vm.ErrorValue(err)))
		return capability.Promise.Value()
	}
	state := g.state
	switch {
	case state == GeneratorCompleted && c.kind == completionNormal:
		vm.reportJobError(vm.callQuiet(capability.Resolve, vm.CreateIterResultObject(Undefined, true)))
		return capability.Promise.Value()
	case c.kind == completionThrow && (state == GeneratorSuspendedStart || state == GeneratorCompleted):
		g.state = GeneratorCompleted
		g.frame = nil
		vm.reportJobError(vm.callQuiet(capability.Reject, c.value))
		return capability.Promise.Value()
	}

	g.queue = append(g.queue, asyncGeneratorRequest{completion: c, capability: capability})
	switch {
	case c.kind == completionReturn && (state == GeneratorSuspendedStart || state == GeneratorCompleted):
		g.state = GeneratorAwaitingReturn
		g.frame = nil
		vm.asyncGeneratorAwaitReturn(g)
	case state == GeneratorSuspendedStart || state == GeneratorSuspendedYield:
		vm.asyncGeneratorResume(g, c)
	}
	return capability.Promise.Value()
}

// asyncGeneratorResume runs the body until it suspends. A yield with more
// requests queued continues without suspending.
func (vm *VM) asyncGeneratorResume(g *generatorSlots, c completion) {
	for {
		g.state = GeneratorExecuting
		s := g.frame.resume(vm, c)
		switch s.kind {
		case stepAwait:
			err := vm.Await(s.value, func(v Value, err error) {
				if err != nil {
					vm.asyncGeneratorResume(g, completion{kind: completionThrow, value: vm.ErrorValue(err)})
					return
				}
				vm.asyncGeneratorResume(g, completion{kind: completionNormal, value: v})
			})
			if err == nil {
				return
			}
			c = completion{kind: completionThrow, value: vm.ErrorValue(err)}
		case stepYield, stepYieldRaw:
			vm.asyncGeneratorCompleteStep(g, completion{kind: completionNormal, value: s.value}, false)
			if len(g.queue) == 0 {
				g.state = GeneratorSuspendedYield
				return
			}
			c = g.queue[0].completion
		case stepThrow:
			g.state = GeneratorCompleted
			g.frame = nil
			vm.asyncGeneratorCompleteStep(g, completion{kind: completionThrow, value: s.value}, true)
			vm.asyncGeneratorDrainQueue(g)
			return
		default:
			g.state = GeneratorCompleted
			g.frame = nil
			vm.asyncGeneratorCompleteStep(g, completion{kind: completionNormal, value: s.value}, true)
			vm.asyncGeneratorDrainQueue(g)
			return
		}
	}
}

// asyncGeneratorCompleteStep settles the head request.
func (vm *VM) asyncGeneratorCompleteStep(g *generatorSlots, c completion, done bool) {
	head := g.queue[0]
	g.queue = g.queue[1:]
	if c.kind == completionThrow {
		vm.reportJobError(vm.callQuiet(head.capability.Reject, c.value))
		return
	}
	vm.reportJobError(vm.callQuiet(head.capability.Resolve, vm.CreateIterResultObject(c.value, done)))
}

// asyncGeneratorDrainQueue settles requests queued against a completed
// generator. A return request moves to awaiting-return.
func (vm *VM) asyncGeneratorDrainQueue(g *generatorSlots) {
	for len(g.queue) > 0 {
		c := g.queue[0].completion
		switch c.kind {
		case completionReturn:
			g.state = GeneratorAwaitingReturn
			vm.asyncGeneratorAwaitReturn(g)
			return
		case completionThrow:
			vm.asyncGeneratorCompleteStep(g, c, true)
		default:
			vm.asyncGeneratorCompleteStep(g, completion{kind: completionNormal, value: Undefined}, true)
		}
	}
}

// asyncGeneratorAwaitReturn awaits the value of the head return request.
func (vm *VM) asyncGeneratorAwaitReturn(g *generatorSlots) {
	value := g.queue[0].completion.value
	err := vm.Await(value, func(v Value, err error) {
		g.state = GeneratorCompleted
		if err != nil {
			vm.asyncGeneratorCompleteStep(g, completion{kind: completionThrow, value: vm.ErrorValue(err)}, true)
		} else {
			vm.asyncGeneratorCompleteStep(g, completion{kind: completionNormal, value: v}, true)
		}
		vm.asyncGeneratorDrainQueue(g)
	})
	if err != nil {
		g.state = GeneratorCompleted
		vm.asyncGeneratorCompleteStep(g, completion{kind: completionThrow, value: vm.ErrorValue(err)}, true)
		vm.asyncGeneratorDrainQueue(g)
	}
}
