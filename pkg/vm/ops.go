package vm

// Get reads o[key] with o as the receiver.
func (vm *VM) Get(o *Object, key PropertyKey) (Value, error) {
	return o.Get(vm, key, o.Value())
}

// GetV reads a property of any value, boxing primitives for the lookup while
// keeping the primitive as the receiver.
func (vm *VM) GetV(v Value, key PropertyKey) (Value, error) {
	if v.IsObject() {
		return v.AsObject().Get(vm, key, v)
	}
	o, err := vm.ToObject(v)
	if err != nil {
		return Undefined, err
	}
	return o.Get(vm, key, v)
}

// GetMethod returns Undefined for a null or undefined property and throws
// when the property is not callable.
func (vm *VM) GetMethod(v Value, key PropertyKey) (Value, error) {
	f, err := vm.GetV(v, key)
	if err != nil {
		return Undefined, err
	}
	if f.IsNullish() {
		return Undefined, nil
	}
	if !f.IsCallable() {
		return Undefined, vm.NewTypeError("%s is not a function", key)
	}
	return f, nil
}

// Put assigns o[key] = v. With throw set, a failed assignment is a TypeError.
func (vm *VM) Put(o *Object, key PropertyKey, v Value, throw bool) error {
	ok, err := o.Set(vm, key, v, o.Value())
	if err != nil {
		return err
	}
	if !ok && throw {
		return vm.NewTypeError("Cannot assign to read only property '%s' of object", key)
	}
	return nil
}

// PutValue assigns using the VM's configured strictness.
func (vm *VM) PutValue(o *Object, key PropertyKey, v Value) error {
	return vm.Put(o, key, v, vm.strict)
}

func (vm *VM) CreateDataProperty(o *Object, key PropertyKey, v Value) (bool, error) {
	return o.DefineOwnProperty(vm, key, DataDescriptor(v, true, true, true))
}

func (vm *VM) CreateDataPropertyOrThrow(o *Object, key PropertyKey, v Value) error {
	ok, err := vm.CreateDataProperty(o, key, v)
	if err != nil {
		return err
	}
	if !ok {
		return vm.NewTypeError("Cannot define property %s, object is not extensible", key)
	}
	return nil
}

func (vm *VM) DefinePropertyOrThrow(o *Object, key PropertyKey, desc PropertyDescriptor) error {
	ok, err := o.DefineOwnProperty(vm, key, desc)
	if err != nil {
		return err
	}
	if !ok {
		return vm.NewTypeError("Cannot redefine property: %s", key)
	}
	return nil
}

func (vm *VM) DeletePropertyOrThrow(o *Object, key PropertyKey) error {
	ok, err := o.Delete(vm, key)
	if err != nil {
		return err
	}
	if !ok {
		return vm.NewTypeError("Cannot delete property '%s'", key)
	}
	return nil
}

func (vm *VM) HasOwnProperty(o *Object, key PropertyKey) (bool, error) {
	_, ok, err := o.GetOwnProperty(vm, key)
	return ok, err
}

// Invoke calls the method v[key] with v as this.
func (vm *VM) Invoke(v Value, key PropertyKey, args ...Value) (Value, error) {
	f, err := vm.GetV(v, key)
	if err != nil {
		return Undefined, err
	}
	return vm.Call(f, v, args...)
}

// LengthOfArrayLike reads ToLength(o.length).
func (vm *VM) LengthOfArrayLike(o *Object) (int64, error) {
	l, err := vm.Get(o, StringKey("length"))
	if err != nil {
		return 0, err
	}
	return vm.ToLength(l)
}

// CreateListFromArrayLike copies the indexed elements of an array-like.
// With keysOnly set, elements must be strings or symbols.
func (vm *VM) CreateListFromArrayLike(v Value, keysOnly bool) ([]Value, error) {
	if !v.IsObject() {
		return nil, vm.NewTypeError("CreateListFromArrayLike called on non-object")
	}
	o := v.AsObject()
	n, err := vm.LengthOfArrayLike(o)
	if err != nil {
		return nil, err
	}
	list := make([]Value, 0, n)
	for i := int64(0); i < n; i++ {
		e, err := vm.Get(o, IndexKey(i))
		if err != nil {
			return nil, err
		}
		if keysOnly && !e.IsString() && !e.IsSymbol() {
			return nil, vm.NewTypeError("%s is not a valid property name", e.String())
		}
		list = append(list, e)
	}
	return list, nil
}

// EnumerableOwnKeys returns the enumerable own string keys of o.
func (vm *VM) EnumerableOwnKeys(o *Object) ([]PropertyKey, error) {
	keys, err := o.OwnPropertyKeys(vm)
	if err != nil {
		return nil, err
	}
	var out []PropertyKey
	for _, k := range keys {
		if k.IsSymbol() {
			continue
		}
		desc, ok, err := o.GetOwnProperty(vm, k)
		if err != nil {
			return nil, err
		}
		if ok && desc.Enumerable {
			out = append(out, k)
		}
	}
	return out, nil
}

// IsArray sees through proxies.
func (vm *VM) IsArray(v Value) (bool, error) {
	if !v.IsObject() {
		return false, nil
	}
	o := v.AsObject()
	switch o.kind {
	case KindArray:
		return true, nil
	case KindProxy:
		ps := o.slots.(*proxySlots)
		if ps.target == nil {
			return false, vm.NewTypeError("Cannot perform 'IsArray' on a proxy that has been revoked")
		}
		return vm.IsArray(ps.target.Value())
	}
	return false, nil
}

// IntegrityLevel is the argument of SetIntegrityLevel.
type IntegrityLevel uint8

const (
	Sealed IntegrityLevel = iota
	Frozen
)

// SetIntegrityLevel seals or freezes o.
func (vm *VM) SetIntegrityLevel(o *Object, level IntegrityLevel) (bool, error) {
	ok, err := o.PreventExtensions(vm)
	if err != nil || !ok {
		return false, err
	}
	keys, err := o.OwnPropertyKeys(vm)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		desc := PropertyDescriptor{Configurable: false, HasConfigurable: true}
		if level == Frozen {
			current, ok, err := o.GetOwnProperty(vm, k)
			if err != nil {
				return false, err
			}
			if !ok {
				continue
			}
			if !current.IsAccessor() {
				desc.Writable, desc.HasWritable = false, true
			}
		}
		if err := vm.DefinePropertyOrThrow(o, k, desc); err != nil {
			return false, err
		}
	}
	return true, nil
}

// TestIntegrityLevel reports whether o is sealed or frozen.
func (vm *VM) TestIntegrityLevel(o *Object, level IntegrityLevel) (bool, error) {
	extensible, err := o.IsExtensible(vm)
	if err != nil || extensible {
		return false, err
	}
	keys, err := o.OwnPropertyKeys(vm)
	if err != nil {
		return false, err
	}
	for _, k := range keys {
		desc, ok, err := o.GetOwnProperty(vm, k)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		if desc.Configurable {
			return false, nil
		}
		if level == Frozen && desc.IsData() && desc.Writable {
			return false, nil
		}
	}
	return true, nil
}

// FromPropertyDescriptor converts a descriptor into a descriptor object.
func (vm *VM) FromPropertyDescriptor(desc PropertyDescriptor, ok bool) Value {
	if !ok {
		return Undefined
	}
	o := vm.NewObject()
	if desc.HasValue {
		o.SetOwn("value", desc.Value)
	}
	if desc.HasWritable {
		o.SetOwn("writable", BooleanValue(desc.Writable))
	}
	if desc.HasGet {
		o.SetOwn("get", desc.Get)
	}
	if desc.HasSet {
		o.SetOwn("set", desc.Set)
	}
	if desc.HasEnumerable {
		o.SetOwn("enumerable", BooleanValue(desc.Enumerable))
	}
	if desc.HasConfigurable {
		o.SetOwn("configurable", BooleanValue(desc.Configurable))
	}
	return o.Value()
}

// ToPropertyDescriptor reads a descriptor object.
func (vm *VM) ToPropertyDescriptor(v Value) (PropertyDescriptor, error) {
	var desc PropertyDescriptor
	if !v.IsObject() {
		return desc, vm.NewTypeError("Property description must be an object: %s", v.String())
	}
	o := v.AsObject()
	field := func(name string) (Value, bool, error) {
		has, err := o.HasProperty(vm, StringKey(name))
		if err != nil || !has {
			return Undefined, false, err
		}
		val, err := vm.Get(o, StringKey(name))
		return val, err == nil, err
	}

	if val, ok, err := field("enumerable"); err != nil {
		return desc, err
	} else if ok {
		desc.Enumerable, desc.HasEnumerable = ToBoolean(val), true
	}
	if val, ok, err := field("configurable"); err != nil {
		return desc, err
	} else if ok {
		desc.Configurable, desc.HasConfigurable = ToBoolean(val), true
	}
	if val, ok, err := field("value"); err != nil {
		return desc, err
	} else if ok {
		desc.Value, desc.HasValue = val, true
	}
	if val, ok, err := field("writable"); err != nil {
		return desc, err
	} else if ok {
		desc.Writable, desc.HasWritable = ToBoolean(val), true
	}
	if val, ok, err := field("get"); err != nil {
		return desc, err
	} else if ok {
		if !val.IsUndefined() && !val.IsCallable() {
			return desc, vm.NewTypeError("Getter must be a function: %s", val.String())
		}
		desc.Get, desc.HasGet = val, true
	}
	if val, ok, err := field("set"); err != nil {
		return desc, err
	} else if ok {
		if !val.IsUndefined() && !val.IsCallable() {
			return desc, vm.NewTypeError("Setter must be a function: %s", val.String())
		}
		desc.Set, desc.HasSet = val, true
	}
	if desc.IsAccessor() && desc.IsData() {
		return desc, vm.NewTypeError("Invalid property descriptor. Cannot both specify accessors and a value or writable attribute")
	}
	return desc, nil
}

// OrdinaryHasInstance implements the default instanceof check.
func (vm *VM) OrdinaryHasInstance(c Value, o Value) (bool, error) {
	if !c.IsCallable() {
		return false, nil
	}
	if c.AsObject().kind == KindBoundFunction {
		bs := c.AsObject().slots.(*boundSlots)
		return vm.InstanceOf(o, bs.target.Value())
	}
	if !o.IsObject() {
		return false, nil
	}
	p, err := vm.Get(c.AsObject(), StringKey("prototype"))
	if err != nil {
		return false, err
	}
	if !p.IsObject() {
		return false, vm.NewTypeError("Function has non-object prototype '%s' in instanceof check", p.String())
	}
	proto := p.AsObject()
	cur := o.AsObject()
	for {
		cur, err = cur.GetPrototypeOf(vm)
		if err != nil {
			return false, err
		}
		if cur == nil {
			return false, nil
		}
		if cur == proto {
			return true, nil
		}
	}
}

// InstanceOf implements the instanceof operator.
func (vm *VM) InstanceOf(v Value, target Value) (bool, error) {
	if !target.IsObject() {
		return false, vm.NewTypeError("Right-hand side of 'instanceof' is not an object")
	}
	h, err := vm.GetMethod(target, SymbolKey(SymHasInstance))
	if err != nil {
		return false, err
	}
	if !h.IsUndefined() {
		r, err := vm.Call(h, target, v)
		if err != nil {
			return false, err
		}
		return ToBoolean(r), nil
	}
	if !target.IsCallable() {
		return false, vm.NewTypeError("Right-hand side of 'instanceof' is not callable")
	}
	return vm.OrdinaryHasInstance(target, v)
}
