package builtins

import (
	"jscore/pkg/vm"
)

type ProxyInitializer struct{}

func (p *ProxyInitializer) Name() string {
	return "Proxy"
}

func (p *ProxyInitializer) Priority() int {
	return PriorityProxy
}

func (p *ProxyInitializer) InitRealm(r *vm.Realm) error {
	// Proxy has no "prototype" property.
	construct := func(call vm.FunctionCall) (vm.Value, error) {
		proxy, err := call.VM.ProxyCreate(call.Argument(0), call.Argument(1))
		if err != nil {
			return vm.Undefined, err
		}
		return proxy.Value(), nil
	}
	ctor := r.NewNativeConstructor("Proxy", 2, nil, construct, nil)
	r.SetGlobal("Proxy", ctor.Value())

	// Proxy.revocable(target, handler)
	method(r, ctor, "revocable", 2, func(call vm.FunctionCall) (vm.Value, error) {
		proxy, err := call.VM.ProxyCreate(call.Argument(0), call.Argument(1))
		if err != nil {
			return vm.Undefined, err
		}
		revoke := call.VM.NewNativeFunction("", 0, func(inner vm.FunctionCall) (vm.Value, error) {
			inner.VM.RevokeProxy(proxy)
			return vm.Undefined, nil
		})
		result := call.VM.NewObject()
		result.SetOwn("proxy", proxy.Value())
		result.SetOwn("revoke", revoke.Value())
		return result.Value(), nil
	})

	return nil
}
