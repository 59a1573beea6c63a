package builtins

import (
	"sort"

	"jscore/pkg/vm"
)

// Standard returns all built-in initializers sorted by priority.
func Standard() []vm.RealmInitializer {
	initializers := []vm.RealmInitializer{
		&ObjectInitializer{},
		&FunctionInitializer{},
		&IteratorInitializer{},
		&ArrayInitializer{},
		&GeneratorInitializer{},
		&AsyncGeneratorInitializer{},
		&StringInitializer{},
		&NumberInitializer{},
		&BooleanInitializer{},
		&BigIntInitializer{},
		&SymbolInitializer{},
		&ErrorInitializer{},
		&PromiseInitializer{},
		&ArrayBufferInitializer{},
		&TypedArrayInitializer{},
		&DataViewInitializer{},
		&ProxyInitializer{},
		&ReflectInitializer{},
		&GlobalsInitializer{},
	}

	// Sort by priority (lower numbers first)
	sort.SliceStable(initializers, func(i, j int) bool {
		return initializers[i].Priority() < initializers[j].Priority()
	})
	return initializers
}
