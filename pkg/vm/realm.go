package vm

import (
	"errors"
	"fmt"

	errs "jscore/pkg/errors"
)

// ErrRealmTornDown is returned when code tries to run in a realm after
// TeardownRealm.
var ErrRealmTornDown = errors.New("realm has been torn down")

// Realm is an isolated set of intrinsics with its own global object.
// Objects remember the realm they were created in.
type Realm struct {
	id       int
	vm       *VM
	tornDown bool

	GlobalObject *Object

	// Built-in prototypes
	ObjectPrototype                 *Object
	FunctionPrototype               *Object
	ArrayPrototype                  *Object
	StringPrototype                 *Object
	NumberPrototype                 *Object
	BooleanPrototype                *Object
	BigIntPrototype                 *Object
	SymbolPrototype                 *Object
	ErrorPrototypes                 [5]*Object
	IteratorPrototype               *Object
	AsyncIteratorPrototype          *Object
	ArrayIteratorPrototype          *Object
	StringIteratorPrototype         *Object
	GeneratorPrototype              *Object
	GeneratorFunctionPrototype      *Object
	AsyncGeneratorPrototype         *Object
	AsyncGeneratorFunctionPrototype *Object
	AsyncFromSyncIteratorPrototype  *Object
	PromisePrototype                *Object
	ArrayBufferPrototype            *Object
	DataViewPrototype               *Object

	// TypedArray prototypes
	TypedArrayPrototype  *Object
	TypedArrayPrototypes [numTypedArrayKinds]*Object

	// Intrinsic functions
	ThrowTypeError     *Object // %ThrowTypeError%
	ArrayProtoValues   *Object // %Array.prototype.values%, set by initializers
	PromiseConstructor *Object // %Promise%, set by initializers
}

func (r *Realm) ID() int { return r.id }

func (r *Realm) VM() *VM { return r.vm }

// TornDown reports whether the realm has been torn down.
func (r *Realm) TornDown() bool { return r.tornDown }

// initializePrototypes creates the bare prototype objects. Initializers
// populate them afterwards.
func (r *Realm) initializePrototypes() {
	r.ObjectPrototype = newObject(r, KindOrdinary, nil, nil)

	r.FunctionPrototype = newObject(r, KindFunction, r.ObjectPrototype, nil)
	r.FunctionPrototype.call = func(FunctionCall) (Value, error) { return Undefined, nil }
	r.FunctionPrototype.SetOwnReadonly(StringKey("length"), IntegerValue(0))
	r.FunctionPrototype.SetOwnReadonly(StringKey("name"), emptyString)

	r.ArrayPrototype = newObject(r, KindArray, r.ObjectPrototype, &arraySlots{lengthWritable: true})
	r.StringPrototype = newStringObject(r, emptyString, r.ObjectPrototype)
	r.NumberPrototype = newObject(r, KindPrimitiveWrapper, r.ObjectPrototype, IntegerValue(0))
	r.BooleanPrototype = newObject(r, KindPrimitiveWrapper, r.ObjectPrototype, False)
	r.BigIntPrototype = newObject(r, KindOrdinary, r.ObjectPrototype, nil)
	r.SymbolPrototype = newObject(r, KindOrdinary, r.ObjectPrototype, nil)

	errorProto := newObject(r, KindOrdinary, r.ObjectPrototype, nil)
	for _, kind := range errs.Kinds {
		proto := errorProto
		if kind != errs.KindError {
			proto = newObject(r, KindOrdinary, errorProto, nil)
		}
		proto.SetOwnMethod(StringKey("name"), NewString(kind.String()))
		proto.SetOwnMethod(StringKey("message"), emptyString)
		r.ErrorPrototypes[kind] = proto
	}

	r.IteratorPrototype = newObject(r, KindOrdinary, r.ObjectPrototype, nil)
	r.AsyncIteratorPrototype = newObject(r, KindOrdinary, r.ObjectPrototype, nil)
	r.ArrayIteratorPrototype = newObject(r, KindOrdinary, r.IteratorPrototype, nil)
	r.StringIteratorPrototype = newObject(r, KindOrdinary, r.IteratorPrototype, nil)
	r.GeneratorPrototype = newObject(r, KindOrdinary, r.IteratorPrototype, nil)
	r.GeneratorFunctionPrototype = newObject(r, KindOrdinary, r.FunctionPrototype, nil)
	r.AsyncGeneratorPrototype = newObject(r, KindOrdinary, r.AsyncIteratorPrototype, nil)
	r.AsyncGeneratorFunctionPrototype = newObject(r, KindOrdinary, r.FunctionPrototype, nil)
	r.AsyncFromSyncIteratorPrototype = newObject(r, KindOrdinary, r.AsyncIteratorPrototype, nil)
	r.PromisePrototype = newObject(r, KindOrdinary, r.ObjectPrototype, nil)
	r.ArrayBufferPrototype = newObject(r, KindOrdinary, r.ObjectPrototype, nil)
	r.DataViewPrototype = newObject(r, KindOrdinary, r.ObjectPrototype, nil)

	r.TypedArrayPrototype = newObject(r, KindOrdinary, r.ObjectPrototype, nil)
	for k := TypedArrayKind(0); k < numTypedArrayKinds; k++ {
		r.TypedArrayPrototypes[k] = newObject(r, KindOrdinary, r.TypedArrayPrototype, nil)
	}

	r.ThrowTypeError = r.NewNativeFunction("", 0, func(call FunctionCall) (Value, error) {
		return Undefined, call.VM.NewTypeError("'caller', 'callee', and 'arguments' properties may not be accessed on strict mode functions or the arguments objects for calls to them")
	})
	r.ThrowTypeError.extensible = false

	r.GlobalObject = newObject(r, KindOrdinary, r.ObjectPrototype, nil)
	r.GlobalObject.SetOwnMethod(StringKey("globalThis"), r.GlobalObject.Value())
}

// Global reads a global binding without running user code.
func (r *Realm) Global(name string) (Value, bool) {
	return r.GlobalObject.OwnDataValue(StringKey(name))
}

// SetGlobal defines a writable, configurable, non-enumerable global.
func (r *Realm) SetGlobal(name string, v Value) {
	r.GlobalObject.SetOwnMethod(StringKey(name), v)
}

// NewObject creates an ordinary object inheriting from Object.prototype.
func (r *Realm) NewObject() *Object {
	return newObject(r, KindOrdinary, r.ObjectPrototype, nil)
}

// NewObjectWithPrototype creates an ordinary object; proto may be nil.
func (r *Realm) NewObjectWithPrototype(proto *Object) *Object {
	return newObject(r, KindOrdinary, proto, nil)
}

// NewObject creates an ordinary object in the current realm.
func (vm *VM) NewObject() *Object {
	return vm.realm.NewObject()
}

// CreateRealm creates and initializes a new realm. The current realm is left
// unchanged.
func (vm *VM) CreateRealm() (*Realm, error) {
	vm.nextRealmID++
	r := &Realm{id: vm.nextRealmID, vm: vm}

	prev := vm.realm
	vm.realm = r
	defer func() { vm.realm = prev }()

	r.initializePrototypes()
	for _, init := range vm.initializers {
		if err := init.InitRealm(r); err != nil {
			return nil, fmt.Errorf("initialize %s in realm %d: %w", init.Name(), r.id, err)
		}
	}
	vm.realms[r.id] = r
	vm.logger.Debug().Int("realm", r.id).Int("initializers", len(vm.initializers)).Msg("created realm")
	return r, nil
}

// EnterRealm makes r the current realm and returns a function restoring the
// previous one.
func (vm *VM) EnterRealm(r *Realm) (func(), error) {
	if r.tornDown {
		return nil, fmt.Errorf("enter realm %d: %w", r.id, ErrRealmTornDown)
	}
	if r.vm != vm {
		return nil, fmt.Errorf("enter realm %d: realm belongs to another VM", r.id)
	}
	prev := vm.realm
	vm.realm = r
	return func() { vm.realm = prev }, nil
}

// TeardownRealm releases r's intrinsics. Functions created in r can no
// longer be called. The current realm cannot be torn down.
func (vm *VM) TeardownRealm(r *Realm) error {
	if r == vm.realm {
		return fmt.Errorf("teardown realm %d: realm is current", r.id)
	}
	if r.tornDown {
		return nil
	}
	delete(vm.realms, r.id)
	*r = Realm{id: r.id, vm: vm, tornDown: true}
	vm.logger.Debug().Int("realm", r.id).Msg("tore down realm")
	return nil
}

// Realms returns the number of live realms.
func (vm *VM) Realms() int { return len(vm.realms) }
