package vm

import "unsafe"

// Symbol is a unique, immutable identity with an optional description.
type Symbol struct {
	description    string
	hasDescription bool
}

func NewSymbol(description string) *Symbol {
	return &Symbol{description: description, hasDescription: true}
}

// NewAnonymousSymbol creates a symbol whose description is undefined.
func NewAnonymousSymbol() *Symbol {
	return &Symbol{}
}

func (s *Symbol) Description() (string, bool) {
	return s.description, s.hasDescription
}

func (s *Symbol) String() string {
	return "Symbol(" + s.description + ")"
}

func (s *Symbol) Value() Value {
	return Value{typ: TypeSymbol, obj: unsafe.Pointer(s)}
}

// Well-known symbols are shared by every realm of every VM.
var (
	SymIterator           = NewSymbol("Symbol.iterator")
	SymAsyncIterator      = NewSymbol("Symbol.asyncIterator")
	SymHasInstance        = NewSymbol("Symbol.hasInstance")
	SymToPrimitive        = NewSymbol("Symbol.toPrimitive")
	SymToStringTag        = NewSymbol("Symbol.toStringTag")
	SymSpecies            = NewSymbol("Symbol.species")
	SymIsConcatSpreadable = NewSymbol("Symbol.isConcatSpreadable")
	SymUnscopables        = NewSymbol("Symbol.unscopables")
	SymMatch              = NewSymbol("Symbol.match")
	SymMatchAll           = NewSymbol("Symbol.matchAll")
	SymReplace            = NewSymbol("Symbol.replace")
	SymSearch             = NewSymbol("Symbol.search")
	SymSplit              = NewSymbol("Symbol.split")
)

// WellKnownSymbols maps the property names of the Symbol constructor to the
// well-known symbols.
var WellKnownSymbols = map[string]*Symbol{
	"iterator":           SymIterator,
	"asyncIterator":      SymAsyncIterator,
	"hasInstance":        SymHasInstance,
	"toPrimitive":        SymToPrimitive,
	"toStringTag":        SymToStringTag,
	"species":            SymSpecies,
	"isConcatSpreadable": SymIsConcatSpreadable,
	"unscopables":        SymUnscopables,
	"match":              SymMatch,
	"matchAll":           SymMatchAll,
	"replace":            SymReplace,
	"search":             SymSearch,
	"split":              SymSplit,
}

// SymbolFor implements the Symbol.for registry lookup.
func (vm *VM) SymbolFor(key string) *Symbol {
	if s, ok := vm.registry[key]; ok {
		return s
	}
	s := NewSymbol(key)
	vm.registry[key] = s
	return s
}

// SymbolKeyFor returns the registry key of s, if s was created by SymbolFor.
func (vm *VM) SymbolKeyFor(s *Symbol) (string, bool) {
	if !s.hasDescription {
		return "", false
	}
	if r, ok := vm.registry[s.description]; ok && r == s {
		return s.description, true
	}
	return "", false
}
