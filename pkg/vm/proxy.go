package vm

type proxySlots struct {
	target  *Object
	handler *Object
}

func proxyInternalMethods() *internalMethods {
	return &internalMethods{
		getPrototypeOf:    proxyGetPrototypeOf,
		setPrototypeOf:    proxySetPrototypeOf,
		isExtensible:      proxyIsExtensible,
		preventExtensions: proxyPreventExtensions,
		getOwnProperty:    proxyGetOwnProperty,
		defineOwnProperty: proxyDefineOwnProperty,
		hasProperty:       proxyHasProperty,
		get:               proxyGet,
		set:               proxySet,
		delete:            proxyDelete,
		ownPropertyKeys:   proxyOwnPropertyKeys,
	}
}

// ProxyCreate creates a proxy exotic object. It is callable or constructible
// when the target is.
func (vm *VM) ProxyCreate(target, handler Value) (*Object, error) {
	if !target.IsObject() || !handler.IsObject() {
		return nil, vm.NewTypeError("Cannot create proxy with a non-object as target or handler")
	}
	slots := &proxySlots{target: target.AsObject(), handler: handler.AsObject()}
	p := newObject(vm.realm, KindProxy, nil, slots)
	if slots.target.call != nil {
		p.call = func(call FunctionCall) (Value, error) {
			return call.VM.proxyCall(slots, call)
		}
		if slots.target.construct != nil {
			p.construct = func(call FunctionCall) (Value, error) {
				return call.VM.proxyConstruct(slots, call)
			}
		}
	}
	return p, nil
}

// RevokeProxy clears the proxy's target and handler. Further operations on
// it throw a TypeError.
func (vm *VM) RevokeProxy(p *Object) {
	if p.kind != KindProxy {
		return
	}
	slots := p.slots.(*proxySlots)
	if slots.target != nil {
		vm.logger.Debug().Msg("revoked proxy")
	}
	slots.target, slots.handler = nil, nil
}

// ProxyTarget returns the target of a live proxy.
func (o *Object) ProxyTarget() (*Object, bool) {
	if o.kind != KindProxy {
		return nil, false
	}
	t := o.slots.(*proxySlots).target
	return t, t != nil
}

// trap returns the live target and handler plus the named trap, which is
// Undefined when the handler does not define it.
func (vm *VM) trap(o *Object, name string) (*Object, *Object, Value, error) {
	slots := o.slots.(*proxySlots)
	if slots.handler == nil {
		return nil, nil, Undefined, vm.NewTypeError("Cannot perform '%s' on a proxy that has been revoked", name)
	}
	target, handler := slots.target, slots.handler
	t, err := vm.GetMethod(handler.Value(), StringKey(name))
	if err != nil {
		return nil, nil, Undefined, err
	}
	return target, handler, t, nil
}

func objectOrNull(o *Object) Value {
	if o == nil {
		return Null
	}
	return o.Value()
}

func proxyGetPrototypeOf(vm *VM, o *Object) (*Object, error) {
	target, handler, trap, err := vm.trap(o, "getPrototypeOf")
	if err != nil {
		return nil, err
	}
	if trap.IsUndefined() {
		return target.GetPrototypeOf(vm)
	}
	result, err := vm.Call(trap, handler.Value(), target.Value())
	if err != nil {
		return nil, err
	}
	if !result.IsObject() && !result.IsNull() {
		return nil, vm.NewTypeError("'getPrototypeOf' on proxy: trap returned neither object nor null")
	}
	var proto *Object
	if result.IsObject() {
		proto = result.AsObject()
	}
	extensible, err := target.IsExtensible(vm)
	if err != nil || extensible {
		return proto, err
	}
	targetProto, err := target.GetPrototypeOf(vm)
	if err != nil {
		return nil, err
	}
	if proto != targetProto {
		return nil, vm.NewTypeError("'getPrototypeOf' on proxy: proxy target is non-extensible but the trap did not return its actual prototype")
	}
	return proto, nil
}

func proxySetPrototypeOf(vm *VM, o *Object, proto *Object) (bool, error) {
	target, handler, trap, err := vm.trap(o, "setPrototypeOf")
	if err != nil {
		return false, err
	}
	if trap.IsUndefined() {
		return target.SetPrototypeOf(vm, proto)
	}
	result, err := vm.Call(trap, handler.Value(), target.Value(), objectOrNull(proto))
	if err != nil || !ToBoolean(result) {
		return false, err
	}
	extensible, err := target.IsExtensible(vm)
	if err != nil || extensible {
		return true, err
	}
	targetProto, err := target.GetPrototypeOf(vm)
	if err != nil {
		return false, err
	}
	if proto != targetProto {
		return false, vm.NewTypeError("'setPrototypeOf' on proxy: trap returned truish for setting a new prototype on the non-extensible proxy target")
	}
	return true, nil
}

func proxyIsExtensible(vm *VM, o *Object) (bool, error) {
	target, handler, trap, err := vm.trap(o, "isExtensible")
	if err != nil {
		return false, err
	}
	if trap.IsUndefined() {
		return target.IsExtensible(vm)
	}
	result, err := vm.Call(trap, handler.Value(), target.Value())
	if err != nil {
		return false, err
	}
	targetResult, err := target.IsExtensible(vm)
	if err != nil {
		return false, err
	}
	if ToBoolean(result) != targetResult {
		return false, vm.NewTypeError("'isExtensible' on proxy: trap result does not reflect extensibility of proxy target (which is '%t')", targetResult)
	}
	return targetResult, nil
}

func proxyPreventExtensions(vm *VM, o *Object) (bool, error) {
	target, handler, trap, err := vm.trap(o, "preventExtensions")
	if err != nil {
		return false, err
	}
	if trap.IsUndefined() {
		return target.PreventExtensions(vm)
	}
	result, err := vm.Call(trap, handler.Value(), target.Value())
	if err != nil || !ToBoolean(result) {
		return false, err
	}
	extensible, err := target.IsExtensible(vm)
	if err != nil {
		return false, err
	}
	if extensible {
		return false, vm.NewTypeError("'preventExtensions' on proxy: trap returned truish but the proxy target is extensible")
	}
	return true, nil
}

func proxyGetOwnProperty(vm *VM, o *Object, key PropertyKey) (PropertyDescriptor, bool, error) {
	var none PropertyDescriptor
	target, handler, trap, err := vm.trap(o, "getOwnPropertyDescriptor")
	if err != nil {
		return none, false, err
	}
	if trap.IsUndefined() {
		return target.GetOwnProperty(vm, key)
	}
	result, err := vm.Call(trap, handler.Value(), target.Value(), key.Value())
	if err != nil {
		return none, false, err
	}
	if !result.IsObject() && !result.IsUndefined() {
		return none, false, vm.NewTypeError("'getOwnPropertyDescriptor' on proxy: trap returned neither object nor undefined for property '%s'", key)
	}
	targetDesc, targetHas, err := target.GetOwnProperty(vm, key)
	if err != nil {
		return none, false, err
	}
	if result.IsUndefined() {
		if !targetHas {
			return none, false, nil
		}
		if !targetDesc.Configurable {
			return none, false, vm.NewTypeError("'getOwnPropertyDescriptor' on proxy: trap returned undefined for property '%s' which is non-configurable in the proxy target", key)
		}
		extensible, err := target.IsExtensible(vm)
		if err != nil {
			return none, false, err
		}
		if !extensible {
			return none, false, vm.NewTypeError("'getOwnPropertyDescriptor' on proxy: trap returned undefined for property '%s' which exists in the non-extensible proxy target", key)
		}
		return none, false, nil
	}
	extensible, err := target.IsExtensible(vm)
	if err != nil {
		return none, false, err
	}
	resultDesc, err := vm.ToPropertyDescriptor(result)
	if err != nil {
		return none, false, err
	}
	resultDesc.Complete()
	if !IsCompatiblePropertyDescriptor(extensible, resultDesc, targetDesc, targetHas) {
		return none, false, vm.NewTypeError("'getOwnPropertyDescriptor' on proxy: trap returned descriptor for property '%s' that is incompatible with the existing property in the proxy target", key)
	}
	if !resultDesc.Configurable {
		if !targetHas || targetDesc.Configurable {
			return none, false, vm.NewTypeError("'getOwnPropertyDescriptor' on proxy: trap reported non-configurability for property '%s' which is either non-existent or configurable in the proxy target", key)
		}
		if resultDesc.HasWritable && !resultDesc.Writable && targetDesc.Writable {
			return none, false, vm.NewTypeError("'getOwnPropertyDescriptor' on proxy: trap reported non-configurable and writable for property '%s' which is non-configurable, non-writable in the proxy target", key)
		}
	}
	return resultDesc, true, nil
}

func proxyDefineOwnProperty(vm *VM, o *Object, key PropertyKey, desc PropertyDescriptor) (bool, error) {
	target, handler, trap, err := vm.trap(o, "defineProperty")
	if err != nil {
		return false, err
	}
	if trap.IsUndefined() {
		return target.DefineOwnProperty(vm, key, desc)
	}
	descObj := vm.FromPropertyDescriptor(desc, true)
	result, err := vm.Call(trap, handler.Value(), target.Value(), key.Value(), descObj)
	if err != nil || !ToBoolean(result) {
		return false, err
	}
	targetDesc, targetHas, err := target.GetOwnProperty(vm, key)
	if err != nil {
		return false, err
	}
	extensible, err := target.IsExtensible(vm)
	if err != nil {
		return false, err
	}
	settingConfigFalse := desc.HasConfigurable && !desc.Configurable
	if !targetHas {
		if !extensible {
			return false, vm.NewTypeError("'defineProperty' on proxy: trap returned truish for adding property '%s'  to the non-extensible proxy target", key)
		}
		if settingConfigFalse {
			return false, vm.NewTypeError("'defineProperty' on proxy: trap returned truish for defining non-configurable property '%s' which is either non-existent or configurable in the proxy target", key)
		}
		return true, nil
	}
	if !IsCompatiblePropertyDescriptor(extensible, desc, targetDesc, true) {
		return false, vm.NewTypeError("'defineProperty' on proxy: trap returned truish for adding property '%s'  that is incompatible with the existing property in the proxy target", key)
	}
	if settingConfigFalse && targetDesc.Configurable {
		return false, vm.NewTypeError("'defineProperty' on proxy: trap returned truish for defining non-configurable property '%s' which is either non-existent or configurable in the proxy target", key)
	}
	if targetDesc.IsData() && !targetDesc.Configurable && targetDesc.Writable && desc.HasWritable && !desc.Writable {
		return false, vm.NewTypeError("'defineProperty' on proxy: trap returned truish for defining non-configurable property '%s' which cannot be non-writable, unless there exists a corresponding non-configurable, non-writable own property of the target object", key)
	}
	return true, nil
}

func proxyHasProperty(vm *VM, o *Object, key PropertyKey) (bool, error) {
	target, handler, trap, err := vm.trap(o, "has")
	if err != nil {
		return false, err
	}
	if trap.IsUndefined() {
		return target.HasProperty(vm, key)
	}
	result, err := vm.Call(trap, handler.Value(), target.Value(), key.Value())
	if err != nil {
		return false, err
	}
	if ToBoolean(result) {
		return true, nil
	}
	targetDesc, targetHas, err := target.GetOwnProperty(vm, key)
	if err != nil || !targetHas {
		return false, err
	}
	if !targetDesc.Configurable {
		return false, vm.NewTypeError("'has' on proxy: trap returned falsish for property '%s' which exists in the proxy target as non-configurable", key)
	}
	extensible, err := target.IsExtensible(vm)
	if err != nil {
		return false, err
	}
	if !extensible {
		return false, vm.NewTypeError("'has' on proxy: trap returned falsish for property '%s' but the proxy target is not extensible", key)
	}
	return false, nil
}

func proxyGet(vm *VM, o *Object, key PropertyKey, receiver Value) (Value, error) {
	target, handler, trap, err := vm.trap(o, "get")
	if err != nil {
		return Undefined, err
	}
	if trap.IsUndefined() {
		return target.Get(vm, key, receiver)
	}
	result, err := vm.Call(trap, handler.Value(), target.Value(), key.Value(), receiver)
	if err != nil {
		return Undefined, err
	}
	targetDesc, targetHas, err := target.GetOwnProperty(vm, key)
	if err != nil {
		return Undefined, err
	}
	if targetHas && !targetDesc.Configurable {
		if targetDesc.IsData() && !targetDesc.Writable && !SameValue(result, targetDesc.Value) {
			return Undefined, vm.NewTypeError("'get' on proxy: property '%s' is a read-only and non-configurable data property on the proxy target but the proxy did not return its actual value (expected '%s' but got '%s')", key, targetDesc.Value.String(), result.String())
		}
		if targetDesc.IsAccessor() && targetDesc.Get.IsUndefined() && !result.IsUndefined() {
			return Undefined, vm.NewTypeError("'get' on proxy: property '%s' is a non-configurable accessor property on the proxy target and does not have a getter function, but the trap did not return 'undefined' (got '%s')", key, result.String())
		}
	}
	return result, nil
}

func proxySet(vm *VM, o *Object, key PropertyKey, v Value, receiver Value) (bool, error) {
	target, handler, trap, err := vm.trap(o, "set")
	if err != nil {
		return false, err
	}
	if trap.IsUndefined() {
		return target.Set(vm, key, v, receiver)
	}
	result, err := vm.Call(trap, handler.Value(), target.Value(), key.Value(), v, receiver)
	if err != nil || !ToBoolean(result) {
		return false, err
	}
	targetDesc, targetHas, err := target.GetOwnProperty(vm, key)
	if err != nil {
		return false, err
	}
	if targetHas && !targetDesc.Configurable {
		if targetDesc.IsData() && !targetDesc.Writable && !SameValue(v, targetDesc.Value) {
			return false, vm.NewTypeError("'set' on proxy: trap returned truish for property '%s' which exists in the proxy target as a non-configurable and non-writable data property with a different value", key)
		}
		if targetDesc.IsAccessor() && targetDesc.Set.IsUndefined() {
			return false, vm.NewTypeError("'set' on proxy: trap returned truish for property '%s' which exists in the proxy target as a non-configurable and non-writable accessor property without a setter", key)
		}
	}
	return true, nil
}

func proxyDelete(vm *VM, o *Object, key PropertyKey) (bool, error) {
	target, handler, trap, err := vm.trap(o, "deleteProperty")
	if err != nil {
		return false, err
	}
	if trap.IsUndefined() {
		return target.Delete(vm, key)
	}
	result, err := vm.Call(trap, handler.Value(), target.Value(), key.Value())
	if err != nil || !ToBoolean(result) {
		return false, err
	}
	targetDesc, targetHas, err := target.GetOwnProperty(vm, key)
	if err != nil || !targetHas {
		return true, err
	}
	if !targetDesc.Configurable {
		return false, vm.NewTypeError("'deleteProperty' on proxy: trap returned truish for property '%s' which is non-configurable in the proxy target", key)
	}
	extensible, err := target.IsExtensible(vm)
	if err != nil {
		return false, err
	}
	if !extensible {
		return false, vm.NewTypeError("'deleteProperty' on proxy: trap returned truish for property '%s' but the proxy target is non-extensible", key)
	}
	return true, nil
}

func proxyOwnPropertyKeys(vm *VM, o *Object) ([]PropertyKey, error) {
	target, handler, trap, err := vm.trap(o, "ownKeys")
	if err != nil {
		return nil, err
	}
	if trap.IsUndefined() {
		return target.OwnPropertyKeys(vm)
	}
	resultArray, err := vm.Call(trap, handler.Value(), target.Value())
	if err != nil {
		return nil, err
	}
	list, err := vm.CreateListFromArrayLike(resultArray, true)
	if err != nil {
		return nil, err
	}
	keys := make([]PropertyKey, 0, len(list))
	seen := make(map[PropertyKey]bool, len(list))
	for _, v := range list {
		k := StringKey("")
		if v.IsSymbol() {
			k = SymbolKey(v.AsSymbol())
		} else {
			k = StringKey(v.AsString())
		}
		if seen[k] {
			return nil, vm.NewTypeError("'ownKeys' on proxy: trap returned duplicate entries")
		}
		seen[k] = true
		keys = append(keys, k)
	}

	extensible, err := target.IsExtensible(vm)
	if err != nil {
		return nil, err
	}
	targetKeys, err := target.OwnPropertyKeys(vm)
	if err != nil {
		return nil, err
	}
	var configurable, nonConfigurable []PropertyKey
	for _, k := range targetKeys {
		desc, ok, err := target.GetOwnProperty(vm, k)
		if err != nil {
			return nil, err
		}
		if ok && !desc.Configurable {
			nonConfigurable = append(nonConfigurable, k)
		} else {
			configurable = append(configurable, k)
		}
	}
	if extensible && len(nonConfigurable) == 0 {
		return keys, nil
	}

	unchecked := make(map[PropertyKey]bool, len(keys))
	for _, k := range keys {
		unchecked[k] = true
	}
	for _, k := range nonConfigurable {
		if !unchecked[k] {
			return nil, vm.NewTypeError("'ownKeys' on proxy: trap result did not include '%s'", k)
		}
		delete(unchecked, k)
	}
	if extensible {
		return keys, nil
	}
	for _, k := range configurable {
		if !unchecked[k] {
			return nil, vm.NewTypeError("'ownKeys' on proxy: trap result did not include '%s'", k)
		}
		delete(unchecked, k)
	}
	if len(unchecked) > 0 {
		return nil, vm.NewTypeError("'ownKeys' on proxy: trap returned extra keys but proxy target is non-extensible")
	}
	return keys, nil
}

func (vm *VM) proxyCall(slots *proxySlots, call FunctionCall) (Value, error) {
	if slots.handler == nil {
		return Undefined, vm.NewTypeError("Cannot perform 'apply' on a proxy that has been revoked")
	}
	target, handler := slots.target, slots.handler
	trap, err := vm.GetMethod(handler.Value(), StringKey("apply"))
	if err != nil {
		return Undefined, err
	}
	if trap.IsUndefined() {
		return vm.Call(target.Value(), call.This, call.Args...)
	}
	return vm.Call(trap, handler.Value(), target.Value(), call.This, vm.CreateArrayFromList(call.Args).Value())
}

func (vm *VM) proxyConstruct(slots *proxySlots, call FunctionCall) (Value, error) {
	if slots.handler == nil {
		return Undefined, vm.NewTypeError("Cannot perform 'construct' on a proxy that has been revoked")
	}
	target, handler := slots.target, slots.handler
	trap, err := vm.GetMethod(handler.Value(), StringKey("construct"))
	if err != nil {
		return Undefined, err
	}
	if trap.IsUndefined() {
		return vm.Construct(target.Value(), call.Args, call.NewTarget)
	}
	result, err := vm.Call(trap, handler.Value(), target.Value(), vm.CreateArrayFromList(call.Args).Value(), call.NewTarget.Value())
	if err != nil {
		return Undefined, err
	}
	if !result.IsObject() {
		return Undefined, vm.NewTypeError("'construct' on proxy: trap returned non-object ('%s')", result.String())
	}
	return result, nil
}
