package vm

import (
	"unicode/utf16"
	"unicode/utf8"
)

// String values are held as WTF-8: UTF-8 extended so that an unpaired
// surrogate code unit is written as its own three-byte sequence. A paired
// surrogate is always written as the four-byte form of its code point, so
// each code unit sequence has exactly one encoding and Go string equality
// is code unit equality.

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func encodeWTF8(units []uint16) string {
	buf := make([]byte, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case u < utf8.RuneSelf:
			buf = append(buf, byte(u))
		case isHighSurrogate(u) && i+1 < len(units) && isLowSurrogate(units[i+1]):
			buf = utf8.AppendRune(buf, utf16.DecodeRune(rune(u), rune(units[i+1])))
			i++
		case utf16.IsSurrogate(rune(u)):
			buf = append(buf, 0xED, byte(0x80|(u>>6)&0x3F), byte(0x80|u&0x3F))
		default:
			buf = utf8.AppendRune(buf, rune(u))
		}
	}
	return string(buf)
}

func decodeWTF8(s string) []uint16 {
	units := make([]uint16, 0, len(s))
	for i := 0; i < len(s); {
		if c := s[i]; c < utf8.RuneSelf {
			units = append(units, uint16(c))
			i++
			continue
		}
		if u, ok := surrogateAt(s, i); ok {
			units = append(units, u)
			i += 3
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		units = utf16.AppendRune(units, r)
		i += size
	}
	return units
}

// surrogateAt decodes a three-byte surrogate sequence starting at s[i].
func surrogateAt(s string, i int) (uint16, bool) {
	if i+2 < len(s) && s[i] == 0xED && s[i+1] >= 0xA0 && s[i+1] <= 0xBF && s[i+2]&0xC0 == 0x80 {
		return 0xD000 | uint16(s[i+1]&0x3F)<<6 | uint16(s[i+2]&0x3F), true
	}
	return 0, false
}

// canonicalWTF8 rewrites s so that surrogate halves written separately
// (as happens when two strings are joined in Go) become one code point.
// Invalid bytes become U+FFFD.
func canonicalWTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return encodeWTF8(decodeWTF8(s))
}

func isHighSurrogate(u uint16) bool { return u >= 0xD800 && u <= 0xDBFF }
func isLowSurrogate(u uint16) bool  { return u >= 0xDC00 && u <= 0xDFFF }
