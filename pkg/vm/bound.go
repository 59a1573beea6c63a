package vm

type boundSlots struct {
	target    *Object
	boundThis Value
	boundArgs []Value
}

// BoundFunctionCreate creates a bound function exotic object. It inherits
// the target's prototype and is a constructor iff the target is.
func (vm *VM) BoundFunctionCreate(target *Object, boundThis Value, boundArgs []Value) (*Object, error) {
	proto, err := target.GetPrototypeOf(vm)
	if err != nil {
		return nil, err
	}
	slots := &boundSlots{target: target, boundThis: boundThis, boundArgs: append([]Value(nil), boundArgs...)}
	f := newObject(vm.realm, KindBoundFunction, proto, slots)
	f.call = func(call FunctionCall) (Value, error) {
		return call.VM.Call(slots.target.Value(), slots.boundThis, slots.withArgs(call.Args)...)
	}
	if target.construct != nil {
		f.construct = func(call FunctionCall) (Value, error) {
			newTarget := call.NewTarget
			if newTarget == f {
				newTarget = slots.target
			}
			return call.VM.Construct(slots.target.Value(), slots.withArgs(call.Args), newTarget)
		}
	}
	return f, nil
}

func (b *boundSlots) withArgs(args []Value) []Value {
	if len(b.boundArgs) == 0 {
		return args
	}
	all := make([]Value, 0, len(b.boundArgs)+len(args))
	return append(append(all, b.boundArgs...), args...)
}

// BoundTarget returns the target function of a bound function.
func (o *Object) BoundTarget() (*Object, bool) {
	if o.kind != KindBoundFunction {
		return nil, false
	}
	return o.slots.(*boundSlots).target, true
}
