package vm

import (
	"math"
	"math/big"
	"strconv"
)

// Hint is the preferred type passed to ToPrimitive.
type Hint uint8

const (
	HintDefault Hint = iota
	HintNumber
	HintString
)

func (h Hint) String() string {
	switch h {
	case HintNumber:
		return "number"
	case HintString:
		return "string"
	default:
		return "default"
	}
}

const maxSafeInteger = 1<<53 - 1

// ToPrimitive converts v to a primitive, consulting @@toPrimitive and then
// valueOf/toString.
func (vm *VM) ToPrimitive(v Value, hint Hint) (Value, error) {
	if !v.IsObject() {
		return v, nil
	}
	exotic, err := vm.GetMethod(v, SymbolKey(SymToPrimitive))
	if err != nil {
		return Undefined, err
	}
	if !exotic.IsUndefined() {
		result, err := vm.Call(exotic, v, NewString(hint.String()))
		if err != nil {
			return Undefined, err
		}
		if result.IsObject() {
			return Undefined, vm.NewTypeError("Cannot convert object to primitive value")
		}
		return result, nil
	}
	if hint == HintDefault {
		hint = HintNumber
	}
	return vm.OrdinaryToPrimitive(v.AsObject(), hint)
}

// OrdinaryToPrimitive tries toString/valueOf in hint order.
func (vm *VM) OrdinaryToPrimitive(o *Object, hint Hint) (Value, error) {
	methods := [2]string{"valueOf", "toString"}
	if hint == HintString {
		methods = [2]string{"toString", "valueOf"}
	}
	for _, name := range methods {
		method, err := o.Get(vm, StringKey(name), o.Value())
		if err != nil {
			return Undefined, err
		}
		if method.IsCallable() {
			result, err := vm.Call(method, o.Value())
			if err != nil {
				return Undefined, err
			}
			if !result.IsObject() {
				return result, nil
			}
		}
	}
	return Undefined, vm.NewTypeError("Cannot convert object to primitive value")
}

// ToBoolean never runs user code.
func ToBoolean(v Value) bool {
	switch v.typ {
	case TypeUndefined, TypeNull:
		return false
	case TypeBoolean:
		return v.AsBoolean()
	case TypeIntegerNumber:
		return v.AsInteger() != 0
	case TypeFloatNumber:
		f := v.AsNumber()
		return f != 0 && !math.IsNaN(f)
	case TypeBigInt:
		return v.AsBigInt().Sign() != 0
	case TypeString:
		return v.StringLength() != 0
	default:
		return true
	}
}

func (vm *VM) ToNumber(v Value) (float64, error) {
	switch v.typ {
	case TypeIntegerNumber, TypeFloatNumber:
		return v.AsNumber(), nil
	case TypeUndefined:
		return math.NaN(), nil
	case TypeNull:
		return 0, nil
	case TypeBoolean:
		if v.AsBoolean() {
			return 1, nil
		}
		return 0, nil
	case TypeString:
		return StringToNumber(v.AsString()), nil
	case TypeSymbol:
		return 0, vm.NewTypeError("Cannot convert a Symbol value to a number")
	case TypeBigInt:
		return 0, vm.NewTypeError("Cannot convert a BigInt value to a number")
	}
	prim, err := vm.ToPrimitive(v, HintNumber)
	if err != nil {
		return 0, err
	}
	return vm.ToNumber(prim)
}

// ToNumeric returns a number or a BigInt.
func (vm *VM) ToNumeric(v Value) (Value, error) {
	prim, err := vm.ToPrimitive(v, HintNumber)
	if err != nil {
		return Undefined, err
	}
	if prim.IsBigInt() {
		return prim, nil
	}
	f, err := vm.ToNumber(prim)
	if err != nil {
		return Undefined, err
	}
	return NumberValue(f), nil
}

func (vm *VM) ToString(v Value) (string, error) {
	switch v.typ {
	case TypeString:
		return v.AsString(), nil
	case TypeUndefined:
		return "undefined", nil
	case TypeNull:
		return "null", nil
	case TypeBoolean:
		if v.AsBoolean() {
			return "true", nil
		}
		return "false", nil
	case TypeIntegerNumber:
		return strconv.FormatInt(int64(v.AsInteger()), 10), nil
	case TypeFloatNumber:
		return NumberToString(v.AsNumber(), 10), nil
	case TypeBigInt:
		return v.AsBigInt().String(), nil
	case TypeSymbol:
		return "", vm.NewTypeError("Cannot convert a Symbol value to a string")
	}
	prim, err := vm.ToPrimitive(v, HintString)
	if err != nil {
		return "", err
	}
	return vm.ToString(prim)
}

// ToStringValue is ToString returning a string value; strings pass through
// untouched.
func (vm *VM) ToStringValue(v Value) (Value, error) {
	if v.IsString() {
		return v, nil
	}
	s, err := vm.ToString(v)
	if err != nil {
		return Undefined, err
	}
	return NewString(s), nil
}

func (vm *VM) ToBigInt(v Value) (*big.Int, error) {
	prim, err := vm.ToPrimitive(v, HintNumber)
	if err != nil {
		return nil, err
	}
	switch prim.typ {
	case TypeBigInt:
		return prim.AsBigInt(), nil
	case TypeBoolean:
		if prim.AsBoolean() {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case TypeString:
		b, ok := StringToBigInt(prim.AsString())
		if !ok {
			return nil, vm.NewSyntaxError("Cannot convert %s to a BigInt", prim.AsString())
		}
		return b, nil
	case TypeSymbol:
		return nil, vm.NewTypeError("Cannot convert a Symbol value to a BigInt")
	default:
		return nil, vm.NewTypeError("Cannot convert %s to a BigInt", prim.String())
	}
}

// NumberToBigInt converts an integral number; fractions and non-finite
// values are a RangeError.
func (vm *VM) NumberToBigInt(f float64) (*big.Int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, vm.NewRangeError("The number %s cannot be converted to a BigInt because it is not an integer", NumberToString(f, 10))
	}
	b, _ := new(big.Float).SetFloat64(f).Int(nil)
	return b, nil
}

func (vm *VM) ToBigInt64(v Value) (int64, error) {
	b, err := vm.ToBigInt(v)
	if err != nil {
		return 0, err
	}
	return int64(bigIntToUint64(b)), nil
}

func (vm *VM) ToBigUint64(v Value) (uint64, error) {
	b, err := vm.ToBigInt(v)
	if err != nil {
		return 0, err
	}
	return bigIntToUint64(b), nil
}

var twoTo64 = new(big.Int).Lsh(big.NewInt(1), 64)

// bigIntToUint64 returns b modulo 2^64.
func bigIntToUint64(b *big.Int) uint64 {
	if b.Sign() >= 0 && b.BitLen() <= 64 {
		return b.Uint64()
	}
	return new(big.Int).Mod(b, twoTo64).Uint64()
}

func (vm *VM) ToPropertyKey(v Value) (PropertyKey, error) {
	switch v.typ {
	case TypeString:
		return StringKey(v.AsString()), nil
	case TypeSymbol:
		return SymbolKey(v.AsSymbol()), nil
	case TypeIntegerNumber:
		return IndexKey(int64(v.AsInteger())), nil
	}
	prim, err := vm.ToPrimitive(v, HintString)
	if err != nil {
		return PropertyKey{}, err
	}
	if prim.IsSymbol() {
		return SymbolKey(prim.AsSymbol()), nil
	}
	s, err := vm.ToString(prim)
	if err != nil {
		return PropertyKey{}, err
	}
	return StringKey(s), nil
}

func (vm *VM) ToObject(v Value) (*Object, error) {
	r := vm.realm
	switch v.typ {
	case TypeObject:
		return v.AsObject(), nil
	case TypeUndefined, TypeNull:
		return nil, vm.NewTypeError("Cannot convert undefined or null to object")
	case TypeBoolean:
		return newObject(r, KindPrimitiveWrapper, r.BooleanPrototype, v), nil
	case TypeIntegerNumber, TypeFloatNumber:
		return newObject(r, KindPrimitiveWrapper, r.NumberPrototype, v), nil
	case TypeBigInt:
		return newObject(r, KindPrimitiveWrapper, r.BigIntPrototype, v), nil
	case TypeSymbol:
		return newObject(r, KindPrimitiveWrapper, r.SymbolPrototype, v), nil
	default:
		return newStringObject(r, v, r.StringPrototype), nil
	}
}

// ToIntegerOrInfinity truncates toward zero; NaN becomes 0.
func (vm *VM) ToIntegerOrInfinity(v Value) (float64, error) {
	if v.typ == TypeIntegerNumber {
		return float64(v.AsInteger()), nil
	}
	f, err := vm.ToNumber(v)
	if err != nil {
		return 0, err
	}
	return integerOrInfinity(f), nil
}

func integerOrInfinity(f float64) float64 {
	if math.IsNaN(f) || f == 0 {
		return 0
	}
	return math.Trunc(f)
}

func (vm *VM) ToLength(v Value) (int64, error) {
	f, err := vm.ToIntegerOrInfinity(v)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, nil
	}
	if f > maxSafeInteger {
		return maxSafeInteger, nil
	}
	return int64(f), nil
}

// ToIndex converts v to a non-negative integer index, throwing a RangeError
// outside [0, 2^53-1].
func (vm *VM) ToIndex(v Value) (int64, error) {
	if v.IsUndefined() {
		return 0, nil
	}
	f, err := vm.ToIntegerOrInfinity(v)
	if err != nil {
		return 0, err
	}
	if f < 0 || f > maxSafeInteger {
		return 0, vm.NewRangeError("Invalid index %s", NumberToString(f, 10))
	}
	return int64(f), nil
}

func (vm *VM) ToInt32(v Value) (int32, error) {
	if v.typ == TypeIntegerNumber {
		return v.AsInteger(), nil
	}
	f, err := vm.ToNumber(v)
	return toInt32(f), err
}

func (vm *VM) ToUint32(v Value) (uint32, error) {
	f, err := vm.ToNumber(v)
	return toUint32(f), err
}

func (vm *VM) ToInt16(v Value) (int16, error) {
	f, err := vm.ToNumber(v)
	return int16(toUint32(f)), err
}

func (vm *VM) ToUint16(v Value) (uint16, error) {
	f, err := vm.ToNumber(v)
	return uint16(toUint32(f)), err
}

func (vm *VM) ToInt8(v Value) (int8, error) {
	f, err := vm.ToNumber(v)
	return int8(toUint32(f)), err
}

func (vm *VM) ToUint8(v Value) (uint8, error) {
	f, err := vm.ToNumber(v)
	return uint8(toUint32(f)), err
}

func (vm *VM) ToUint8Clamp(v Value) (uint8, error) {
	f, err := vm.ToNumber(v)
	return toUint8Clamp(f), err
}

// toUint32 returns f modulo 2^32. The narrower integer conversions are the
// low bits of this value.
func toUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	if f >= 0 && f < 1<<32 {
		return uint32(f)
	}
	m := math.Mod(math.Trunc(f), 1<<32)
	if m < 0 {
		m += 1 << 32
	}
	return uint32(m)
}

func toInt32(f float64) int32 {
	return int32(toUint32(f))
}

func toUint8Clamp(f float64) uint8 {
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= 255:
		return 255
	default:
		return uint8(math.RoundToEven(f))
	}
}

func isNegativeZero(f float64) bool {
	return f == 0 && math.Signbit(f)
}
