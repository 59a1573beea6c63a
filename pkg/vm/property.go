package vm

import (
	"math"
	"strconv"
)

// PropertyKey is either a string or a symbol. String keys hold the WTF-8
// form of the string, so keys that differ only in unpaired surrogates stay
// distinct. The zero value is the empty string key.
type PropertyKey struct {
	name string
	sym  *Symbol
}

func StringKey(s string) PropertyKey { return PropertyKey{name: canonicalWTF8(s)} }

func SymbolKey(s *Symbol) PropertyKey { return PropertyKey{sym: s} }

func IndexKey(i int64) PropertyKey { return PropertyKey{name: strconv.FormatInt(i, 10)} }

func (k PropertyKey) IsSymbol() bool { return k.sym != nil }

// Name returns the string of a string key.
func (k PropertyKey) Name() string { return k.name }

func (k PropertyKey) Symbol() *Symbol { return k.sym }

func (k PropertyKey) Value() Value {
	if k.sym != nil {
		return k.sym.Value()
	}
	return NewString(k.name)
}

func (k PropertyKey) String() string {
	if k.sym != nil {
		return k.sym.String()
	}
	return k.name
}

// ArrayIndex reports whether k is a canonical array index (0 .. 2^32-2).
func (k PropertyKey) ArrayIndex() (uint32, bool) {
	if k.sym != nil {
		return 0, false
	}
	s := k.name
	if len(s) == 0 || len(s) > 10 {
		return 0, false
	}
	if s[0] == '0' && len(s) > 1 {
		return 0, false
	}
	var n uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
	}
	if n >= math.MaxUint32 {
		return 0, false
	}
	return uint32(n), true
}

// NumericIndex implements CanonicalNumericIndexString: it reports the number
// a string key denotes when the key is the canonical rendering of it.
func (k PropertyKey) NumericIndex() (float64, bool) {
	if k.sym != nil || len(k.name) == 0 {
		return 0, false
	}
	if idx, ok := k.ArrayIndex(); ok {
		return float64(idx), true
	}
	s := k.name
	if s == "-0" {
		return math.Copysign(0, -1), true
	}
	switch c := s[0]; {
	case c >= '0' && c <= '9', c == '-', c == 'I', c == 'N':
	default:
		return 0, false
	}
	n := StringToNumber(s)
	if NumberToString(n, 10) != s {
		return 0, false
	}
	return n, true
}

// PropertyDescriptor is a (possibly partial) property descriptor. The Has*
// flags record which fields are present.
type PropertyDescriptor struct {
	Value        Value
	Get          Value
	Set          Value
	Writable     bool
	Enumerable   bool
	Configurable bool

	HasValue        bool
	HasGet          bool
	HasSet          bool
	HasWritable     bool
	HasEnumerable   bool
	HasConfigurable bool
}

// DataDescriptor returns a complete data descriptor.
func DataDescriptor(v Value, writable, enumerable, configurable bool) PropertyDescriptor {
	return PropertyDescriptor{
		Value: v, Writable: writable, Enumerable: enumerable, Configurable: configurable,
		HasValue: true, HasWritable: true, HasEnumerable: true, HasConfigurable: true,
	}
}

// AccessorDescriptor returns a complete accessor descriptor. get and set are
// Undefined or callable.
func AccessorDescriptor(get, set Value, enumerable, configurable bool) PropertyDescriptor {
	return PropertyDescriptor{
		Get: get, Set: set, Enumerable: enumerable, Configurable: configurable,
		HasGet: true, HasSet: true, HasEnumerable: true, HasConfigurable: true,
	}
}

func (d PropertyDescriptor) IsAccessor() bool { return d.HasGet || d.HasSet }
func (d PropertyDescriptor) IsData() bool     { return d.HasValue || d.HasWritable }
func (d PropertyDescriptor) IsGeneric() bool  { return !d.IsAccessor() && !d.IsData() }

func (d PropertyDescriptor) isEmpty() bool {
	return !d.HasValue && !d.HasGet && !d.HasSet && !d.HasWritable && !d.HasEnumerable && !d.HasConfigurable
}

// Complete fills absent fields with their defaults.
func (d *PropertyDescriptor) Complete() {
	if d.IsGeneric() || d.IsData() {
		if !d.HasValue {
			d.Value, d.HasValue = Undefined, true
		}
		if !d.HasWritable {
			d.Writable, d.HasWritable = false, true
		}
	} else {
		if !d.HasGet {
			d.Get, d.HasGet = Undefined, true
		}
		if !d.HasSet {
			d.Set, d.HasSet = Undefined, true
		}
	}
	if !d.HasEnumerable {
		d.Enumerable, d.HasEnumerable = false, true
	}
	if !d.HasConfigurable {
		d.Configurable, d.HasConfigurable = false, true
	}
}

// property is the stored form of an own property.
type property struct {
	value        Value
	getter       Value
	setter       Value
	accessor     bool
	writable     bool
	enumerable   bool
	configurable bool
}

func (p *property) descriptor() PropertyDescriptor {
	if p.accessor {
		return AccessorDescriptor(p.getter, p.setter, p.enumerable, p.configurable)
	}
	return DataDescriptor(p.value, p.writable, p.enumerable, p.configurable)
}

func propertyFromDescriptor(d PropertyDescriptor) *property {
	if d.IsAccessor() {
		p := &property{accessor: true, getter: Undefined, setter: Undefined}
		if d.HasGet {
			p.getter = d.Get
		}
		if d.HasSet {
			p.setter = d.Set
		}
		p.enumerable = d.HasEnumerable && d.Enumerable
		p.configurable = d.HasConfigurable && d.Configurable
		return p
	}
	p := &property{value: Undefined}
	if d.HasValue {
		p.value = d.Value
	}
	p.writable = d.HasWritable && d.Writable
	p.enumerable = d.HasEnumerable && d.Enumerable
	p.configurable = d.HasConfigurable && d.Configurable
	return p
}

// ValidateAndApplyPropertyDescriptor checks whether desc may be applied to a
// property whose current state is current (absent when hasCurrent is false).
// When o is non-nil and the change is allowed, it is written into o's own
// property storage.
func ValidateAndApplyPropertyDescriptor(o *Object, key PropertyKey, extensible bool, desc PropertyDescriptor, current PropertyDescriptor, hasCurrent bool) bool {
	if !hasCurrent {
		if !extensible {
			return false
		}
		if o != nil {
			o.storeProperty(key, propertyFromDescriptor(desc))
		}
		return true
	}
	if desc.isEmpty() {
		return true
	}
	if !current.Configurable {
		if desc.HasConfigurable && desc.Configurable {
			return false
		}
		if desc.HasEnumerable && desc.Enumerable != current.Enumerable {
			return false
		}
		if !desc.IsGeneric() && desc.IsAccessor() != current.IsAccessor() {
			return false
		}
		if current.IsAccessor() {
			if desc.HasGet && !SameValue(desc.Get, current.Get) {
				return false
			}
			if desc.HasSet && !SameValue(desc.Set, current.Set) {
				return false
			}
		} else if !current.Writable {
			if desc.HasWritable && desc.Writable {
				return false
			}
			if desc.HasValue && !SameValue(desc.Value, current.Value) {
				return false
			}
		}
	}
	if o == nil {
		return true
	}

	p := o.ownStored(key)
	if p == nil {
		// Exotic objects may report properties they do not store.
		p = propertyFromDescriptor(current)
	}
	switch {
	case current.IsData() && desc.IsAccessor():
		p.accessor = true
		p.value = Undefined
		p.writable = false
		p.getter, p.setter = Undefined, Undefined
	case current.IsAccessor() && desc.IsData():
		p.accessor = false
		p.getter, p.setter = Undefined, Undefined
		p.value = Undefined
		p.writable = false
	}
	if desc.HasValue {
		p.value = desc.Value
	}
	if desc.HasWritable {
		p.writable = desc.Writable
	}
	if desc.HasGet {
		p.getter = desc.Get
	}
	if desc.HasSet {
		p.setter = desc.Set
	}
	if desc.HasEnumerable {
		p.enumerable = desc.Enumerable
	}
	if desc.HasConfigurable {
		p.configurable = desc.Configurable
	}
	o.storeProperty(key, p)
	return true
}

// IsCompatiblePropertyDescriptor validates desc against current without
// applying it.
func IsCompatiblePropertyDescriptor(extensible bool, desc, current PropertyDescriptor, hasCurrent bool) bool {
	return ValidateAndApplyPropertyDescriptor(nil, PropertyKey{}, extensible, desc, current, hasCurrent)
}
