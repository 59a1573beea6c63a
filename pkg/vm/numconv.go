package vm

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/dop251/goja/ftoa"
)

var (
	decimalLiteral = regexp2.MustCompile(`^[+-]?(?:Infinity|(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?)$`, regexp2.ECMAScript)
	bigIntDecimal  = regexp2.MustCompile(`^[+-]?\d+$`, regexp2.ECMAScript)
	nonDecimal     = regexp2.MustCompile(`^0(?:[xX][0-9a-fA-F]+|[oO][0-7]+|[bB][01]+)$`, regexp2.ECMAScript)
)

// isJSWhitespace reports WhiteSpace and LineTerminator code points.
func isJSWhitespace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', 0xA0, 0x1680, 0x2028, 0x2029, 0x202F, 0x205F, 0x3000, 0xFEFF:
		return true
	}
	return r >= 0x2000 && r <= 0x200A
}

// TrimJSSpace strips leading and trailing WhiteSpace and LineTerminators.
func TrimJSSpace(s string) string {
	return strings.TrimFunc(s, isJSWhitespace)
}

func matches(re *regexp2.Regexp, s string) bool {
	ok, err := re.MatchString(s)
	return err == nil && ok
}

// StringToNumber parses a StringNumericLiteral. Malformed input is NaN.
func StringToNumber(s string) float64 {
	s = TrimJSSpace(s)
	if s == "" {
		return 0
	}
	if matches(nonDecimal, s) {
		return parseNonDecimal(s)
	}
	if !matches(decimalLiteral, s) {
		return math.NaN()
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return math.NaN()
	}
	return f
}

func radixOf(prefix byte) int {
	switch prefix {
	case 'x', 'X':
		return 16
	case 'o', 'O':
		return 8
	default:
		return 2
	}
}

// parseNonDecimal rounds arbitrarily long 0x/0o/0b literals correctly.
func parseNonDecimal(s string) float64 {
	b, ok := new(big.Int).SetString(s[2:], radixOf(s[1]))
	if !ok {
		return math.NaN()
	}
	f, _ := new(big.Float).SetInt(b).Float64()
	return f
}

// StringToBigInt parses a StringIntegerLiteral. The bool is false for
// malformed input.
func StringToBigInt(s string) (*big.Int, bool) {
	s = TrimJSSpace(s)
	if s == "" {
		return new(big.Int), true
	}
	if matches(nonDecimal, s) {
		return new(big.Int).SetString(s[2:], radixOf(s[1]))
	}
	if !matches(bigIntDecimal, s) {
		return nil, false
	}
	if s[0] == '+' {
		s = s[1:]
	}
	return new(big.Int).SetString(s, 10)
}

// NumberToString implements Number::toString. Radix 10 uses the shortest
// round-trip digits; other radices use the ftoa base conversion.
func NumberToString(f float64, radix int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case f == 0:
		return "0"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	if radix != 10 {
		return ftoa.FToBaseStr(f, radix)
	}
	if f < 0 {
		return "-" + NumberToString(-f, 10)
	}

	// d.dddde±x
	repr := strconv.FormatFloat(f, 'e', -1, 64)
	mant, expPart, _ := strings.Cut(repr, "e")
	digits := strings.Replace(mant, ".", "", 1)
	exp, _ := strconv.Atoi(expPart)
	k := len(digits)
	n := exp + 1

	var sb strings.Builder
	switch {
	case k <= n && n <= 21:
		sb.WriteString(digits)
		sb.WriteString(strings.Repeat("0", n-k))
	case 0 < n && n <= 21:
		sb.WriteString(digits[:n])
		sb.WriteByte('.')
		sb.WriteString(digits[n:])
	case -6 < n && n <= 0:
		sb.WriteString("0.")
		sb.WriteString(strings.Repeat("0", -n))
		sb.WriteString(digits)
	default:
		sb.WriteByte(digits[0])
		if k > 1 {
			sb.WriteByte('.')
			sb.WriteString(digits[1:])
		}
		sb.WriteByte('e')
		if n-1 < 0 {
			sb.WriteByte('-')
			sb.WriteString(strconv.Itoa(1 - n))
		} else {
			sb.WriteByte('+')
			sb.WriteString(strconv.Itoa(n - 1))
		}
	}
	return sb.String()
}

// BigIntToString renders b in the given radix with lowercase digits.
func BigIntToString(b *big.Int, radix int) string {
	return b.Text(radix)
}
