package vm

import (
	"math"
	"math/big"
	"slices"
	"strings"
)

func sameType(x, y Value) bool {
	if x.IsNumber() {
		return y.IsNumber()
	}
	return x.typ == y.typ
}

// IsStrictlyEqual implements ===.
func IsStrictlyEqual(x, y Value) bool {
	if !sameType(x, y) {
		return false
	}
	switch x.typ {
	case TypeUndefined, TypeNull:
		return true
	case TypeIntegerNumber, TypeFloatNumber:
		if x.typ == TypeIntegerNumber && y.typ == TypeIntegerNumber {
			return x.payload == y.payload
		}
		return x.AsNumber() == y.AsNumber()
	default:
		return sameNonNumber(x, y)
	}
}

// SameValue distinguishes +0 from -0 and equates NaN with itself.
func SameValue(x, y Value) bool {
	if !sameType(x, y) {
		return false
	}
	if x.IsNumber() {
		a, b := x.AsNumber(), y.AsNumber()
		if math.IsNaN(a) && math.IsNaN(b) {
			return true
		}
		return a == b && math.Signbit(a) == math.Signbit(b)
	}
	return sameNonNumber(x, y)
}

// SameValueZero is SameValue except that +0 and -0 are equal.
func SameValueZero(x, y Value) bool {
	if !sameType(x, y) {
		return false
	}
	if x.IsNumber() {
		a, b := x.AsNumber(), y.AsNumber()
		return a == b || (math.IsNaN(a) && math.IsNaN(b))
	}
	return sameNonNumber(x, y)
}

func sameNonNumber(x, y Value) bool {
	switch x.typ {
	case TypeUndefined, TypeNull:
		return true
	case TypeBoolean:
		return x.payload == y.payload
	case TypeBigInt:
		return x.AsBigInt().Cmp(y.AsBigInt()) == 0
	case TypeString:
		return x.obj == y.obj || x.AsString() == y.AsString()
	default:
		return x.obj == y.obj
	}
}

// IsLooselyEqual implements ==.
func (vm *VM) IsLooselyEqual(x, y Value) (bool, error) {
	if sameType(x, y) {
		return IsStrictlyEqual(x, y), nil
	}
	switch {
	case x.IsNullish() && y.IsNullish():
		return true, nil
	case x.IsNumber() && y.IsString():
		return x.AsNumber() == StringToNumber(y.AsString()), nil
	case x.IsString() && y.IsNumber():
		return StringToNumber(x.AsString()) == y.AsNumber(), nil
	case x.IsBigInt() && y.IsString():
		n, ok := StringToBigInt(y.AsString())
		return ok && x.AsBigInt().Cmp(n) == 0, nil
	case x.IsString() && y.IsBigInt():
		return vm.IsLooselyEqual(y, x)
	case x.IsBoolean():
		return vm.IsLooselyEqual(booleanToNumber(x), y)
	case y.IsBoolean():
		return vm.IsLooselyEqual(x, booleanToNumber(y))
	case isEqualityPrimitive(x) && y.IsObject():
		py, err := vm.ToPrimitive(y, HintDefault)
		if err != nil {
			return false, err
		}
		return vm.IsLooselyEqual(x, py)
	case x.IsObject() && isEqualityPrimitive(y):
		px, err := vm.ToPrimitive(x, HintDefault)
		if err != nil {
			return false, err
		}
		return vm.IsLooselyEqual(px, y)
	case x.IsBigInt() && y.IsNumber():
		c, ok := compareBigIntNumber(x.AsBigInt(), y.AsNumber())
		return ok && c == 0, nil
	case x.IsNumber() && y.IsBigInt():
		c, ok := compareBigIntNumber(y.AsBigInt(), x.AsNumber())
		return ok && c == 0, nil
	}
	return false, nil
}

func isEqualityPrimitive(v Value) bool {
	return v.IsString() || v.IsNumber() || v.IsBigInt() || v.IsSymbol()
}

func booleanToNumber(v Value) Value {
	if v.AsBoolean() {
		return IntegerValue(1)
	}
	return IntegerValue(0)
}

// compareBigIntNumber compares mathematical values. ok is false when f is NaN.
func compareBigIntNumber(b *big.Int, f float64) (int, bool) {
	switch {
	case math.IsNaN(f):
		return 0, false
	case math.IsInf(f, 1):
		return -1, true
	case math.IsInf(f, -1):
		return 1, true
	}
	return new(big.Float).SetInt(b).Cmp(new(big.Float).SetFloat64(f)), true
}

// Comparison is the three-valued result of IsLessThan.
type Comparison uint8

const (
	ComparisonFalse Comparison = iota
	ComparisonTrue
	ComparisonUndefined
)

// IsLessThan implements the abstract relational comparison x < y. leftFirst
// controls the order in which the operands are converted to primitives.
func (vm *VM) IsLessThan(x, y Value, leftFirst bool) (Comparison, error) {
	var px, py Value
	var err error
	if leftFirst {
		if px, err = vm.ToPrimitive(x, HintNumber); err != nil {
			return ComparisonUndefined, err
		}
		if py, err = vm.ToPrimitive(y, HintNumber); err != nil {
			return ComparisonUndefined, err
		}
	} else {
		if py, err = vm.ToPrimitive(y, HintNumber); err != nil {
			return ComparisonUndefined, err
		}
		if px, err = vm.ToPrimitive(x, HintNumber); err != nil {
			return ComparisonUndefined, err
		}
	}

	if px.IsString() && py.IsString() {
		return comparisonOf(CompareUTF16(px.AsString(), py.AsString()) < 0), nil
	}
	if px.IsBigInt() && py.IsString() {
		ny, ok := StringToBigInt(py.AsString())
		if !ok {
			return ComparisonUndefined, nil
		}
		return comparisonOf(px.AsBigInt().Cmp(ny) < 0), nil
	}
	if px.IsString() && py.IsBigInt() {
		nx, ok := StringToBigInt(px.AsString())
		if !ok {
			return ComparisonUndefined, nil
		}
		return comparisonOf(nx.Cmp(py.AsBigInt()) < 0), nil
	}

	nx, err := vm.ToNumeric(px)
	if err != nil {
		return ComparisonUndefined, err
	}
	ny, err := vm.ToNumeric(py)
	if err != nil {
		return ComparisonUndefined, err
	}
	switch {
	case nx.IsNumber() && ny.IsNumber():
		a, b := nx.AsNumber(), ny.AsNumber()
		if math.IsNaN(a) || math.IsNaN(b) {
			return ComparisonUndefined, nil
		}
		return comparisonOf(a < b), nil
	case nx.IsBigInt() && ny.IsBigInt():
		return comparisonOf(nx.AsBigInt().Cmp(ny.AsBigInt()) < 0), nil
	case nx.IsBigInt():
		c, ok := compareBigIntNumber(nx.AsBigInt(), ny.AsNumber())
		if !ok {
			return ComparisonUndefined, nil
		}
		return comparisonOf(c < 0), nil
	default:
		c, ok := compareBigIntNumber(ny.AsBigInt(), nx.AsNumber())
		if !ok {
			return ComparisonUndefined, nil
		}
		return comparisonOf(c > 0), nil
	}
}

func comparisonOf(b bool) Comparison {
	if b {
		return ComparisonTrue
	}
	return ComparisonFalse
}

// LessThan implements x < y.
func (vm *VM) LessThan(x, y Value) (bool, error) {
	r, err := vm.IsLessThan(x, y, true)
	return r == ComparisonTrue, err
}

// GreaterThan implements x > y.
func (vm *VM) GreaterThan(x, y Value) (bool, error) {
	r, err := vm.IsLessThan(y, x, false)
	return r == ComparisonTrue, err
}

// LessThanOrEqual implements x <= y.
func (vm *VM) LessThanOrEqual(x, y Value) (bool, error) {
	r, err := vm.IsLessThan(y, x, false)
	return r == ComparisonFalse, err
}

// GreaterThanOrEqual implements x >= y.
func (vm *VM) GreaterThanOrEqual(x, y Value) (bool, error) {
	r, err := vm.IsLessThan(x, y, true)
	return r == ComparisonFalse, err
}

// CompareUTF16 orders strings by UTF-16 code units.
func CompareUTF16(a, b string) int {
	if isASCII(a) && isASCII(b) {
		return strings.Compare(a, b)
	}
	return slices.Compare(decodeWTF8(a), decodeWTF8(b))
}
