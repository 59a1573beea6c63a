package vm

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"unsafe"
)

type ValueType uint8

const (
	TypeUndefined ValueType = iota
	TypeNull

	TypeBoolean

	TypeIntegerNumber
	TypeFloatNumber
	TypeBigInt

	TypeString
	TypeSymbol

	TypeObject
)

// String returns the ECMAScript type name of the ValueType.
func (vt ValueType) String() string {
	switch vt {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		return "boolean"
	case TypeIntegerNumber, TypeFloatNumber:
		return "number"
	case TypeBigInt:
		return "bigint"
	case TypeString:
		return "string"
	case TypeSymbol:
		return "symbol"
	case TypeObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a tagged union over every ECMAScript language type. Numbers that
// are int32-representable (and not -0) use the TypeIntegerNumber form; both
// forms are the same "number" type as far as the language is concerned.
type Value struct {
	typ     ValueType
	payload uint64
	obj     unsafe.Pointer
}

// stringData holds a string value as canonical WTF-8. Length and indexing
// are defined over UTF-16 code units, which are computed on first use.
type stringData struct {
	value string
	units []uint16
	ascii int8 // 0 unknown, 1 ascii, -1 not ascii
}

func (s *stringData) codeUnits() []uint16 {
	if s.units == nil {
		s.units = decodeWTF8(s.value)
	}
	return s.units
}

func (s *stringData) isASCII() bool {
	if s.ascii == 0 {
		s.ascii = 1
		for i := 0; i < len(s.value); i++ {
			if s.value[i] >= 0x80 {
				s.ascii = -1
				break
			}
		}
	}
	return s.ascii == 1
}

func (s *stringData) length() int {
	if s.isASCII() {
		return len(s.value)
	}
	return len(s.codeUnits())
}

var (
	Undefined = Value{typ: TypeUndefined}
	Null      = Value{typ: TypeNull}
	True      = Value{typ: TypeBoolean, payload: 1}
	False     = Value{typ: TypeBoolean, payload: 0}
	NaN       = Value{typ: TypeFloatNumber, payload: math.Float64bits(math.NaN())}

	emptyString = NewString("")
)

// NumberValue returns a number value, using the int32 form when exact.
func NumberValue(f float64) Value {
	if i := int32(f); float64(i) == f && !(f == 0 && math.Signbit(f)) {
		return IntegerValue(i)
	}
	return Value{typ: TypeFloatNumber, payload: math.Float64bits(f)}
}

func IntegerValue(i int32) Value {
	return Value{typ: TypeIntegerNumber, payload: uint64(uint32(i))}
}

func BooleanValue(b bool) Value {
	if b {
		return True
	}
	return False
}

// NewString returns a string value for s, which may hold WTF-8 surrogate
// sequences such as those returned by AsString.
func NewString(s string) Value {
	return Value{typ: TypeString, obj: unsafe.Pointer(&stringData{value: canonicalWTF8(s)})}
}

// NewStringFromUTF16 builds a string value from UTF-16 code units. Unpaired
// surrogates are kept.
func NewStringFromUTF16(units []uint16) Value {
	sd := &stringData{value: encodeWTF8(units), units: units}
	return Value{typ: TypeString, obj: unsafe.Pointer(sd)}
}

func NewBigInt(b *big.Int) Value {
	return Value{typ: TypeBigInt, obj: unsafe.Pointer(new(big.Int).Set(b))}
}

func NewBigIntFromInt64(i int64) Value {
	return Value{typ: TypeBigInt, obj: unsafe.Pointer(big.NewInt(i))}
}

func (v Value) Type() ValueType { return v.typ }

func (v Value) IsUndefined() bool { return v.typ == TypeUndefined }
func (v Value) IsNull() bool      { return v.typ == TypeNull }
func (v Value) IsNullish() bool   { return v.typ == TypeUndefined || v.typ == TypeNull }
func (v Value) IsBoolean() bool   { return v.typ == TypeBoolean }
func (v Value) IsNumber() bool    { return v.typ == TypeIntegerNumber || v.typ == TypeFloatNumber }
func (v Value) IsBigInt() bool    { return v.typ == TypeBigInt }
func (v Value) IsString() bool    { return v.typ == TypeString }
func (v Value) IsSymbol() bool    { return v.typ == TypeSymbol }
func (v Value) IsObject() bool    { return v.typ == TypeObject }

// IsPrimitive reports whether v is not an object.
func (v Value) IsPrimitive() bool { return v.typ != TypeObject }

func (v Value) IsCallable() bool {
	return v.typ == TypeObject && v.AsObject().call != nil
}

func (v Value) IsConstructor() bool {
	return v.typ == TypeObject && v.AsObject().construct != nil
}

func (v Value) AsBoolean() bool {
	if v.typ != TypeBoolean {
		panic("value is not a boolean")
	}
	return v.payload == 1
}

// AsNumber returns the float64 of either number form.
func (v Value) AsNumber() float64 {
	switch v.typ {
	case TypeIntegerNumber:
		return float64(int32(uint32(v.payload)))
	case TypeFloatNumber:
		return math.Float64frombits(v.payload)
	default:
		panic("value is not a number")
	}
}

func (v Value) AsInteger() int32 {
	if v.typ != TypeIntegerNumber {
		panic("value is not an integer")
	}
	return int32(uint32(v.payload))
}

// AsBigInt returns the underlying integer. Callers must not mutate it.
func (v Value) AsBigInt() *big.Int {
	if v.typ != TypeBigInt {
		panic("value is not a big int")
	}
	return (*big.Int)(v.obj)
}

// AsString returns the WTF-8 form of a string value. It is valid UTF-8
// unless the string holds unpaired surrogates.
func (v Value) AsString() string {
	if v.typ != TypeString {
		panic("value is not a string")
	}
	return (*stringData)(v.obj).value
}

func (v Value) AsSymbol() *Symbol {
	if v.typ != TypeSymbol {
		panic("value is not a symbol")
	}
	return (*Symbol)(v.obj)
}

func (v Value) AsObject() *Object {
	if v.typ != TypeObject {
		panic("value is not an object")
	}
	return (*Object)(v.obj)
}

// StringLength returns the length of a string value in UTF-16 code units.
func (v Value) StringLength() int {
	return (*stringData)(v.obj).length()
}

// CodeUnitAt returns the UTF-16 code unit at index i of a string value.
func (v Value) CodeUnitAt(i int) uint16 {
	sd := (*stringData)(v.obj)
	if sd.isASCII() {
		return uint16(sd.value[i])
	}
	return sd.codeUnits()[i]
}

// CodeUnits returns the UTF-16 code units of a string value.
func (v Value) CodeUnits() []uint16 {
	return (*stringData)(v.obj).codeUnits()
}

// TypeOf implements the typeof operator.
func (v Value) TypeOf() string {
	switch v.typ {
	case TypeObject:
		if v.AsObject().call != nil {
			return "function"
		}
		return "object"
	case TypeNull:
		return "object"
	default:
		return v.typ.String()
	}
}

// String renders v for diagnostics without running user code.
func (v Value) String() string {
	switch v.typ {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeBoolean:
		if v.AsBoolean() {
			return "true"
		}
		return "false"
	case TypeIntegerNumber:
		return strconv.FormatInt(int64(v.AsInteger()), 10)
	case TypeFloatNumber:
		return NumberToString(v.AsNumber(), 10)
	case TypeBigInt:
		return v.AsBigInt().String() + "n"
	case TypeString:
		return v.AsString()
	case TypeSymbol:
		return v.AsSymbol().String()
	case TypeObject:
		return fmt.Sprintf("[object %s]", v.AsObject().kind)
	default:
		return fmt.Sprintf("<unknown type %d>", v.typ)
	}
}
