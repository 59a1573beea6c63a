package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "jscore/pkg/errors"
	"jscore/pkg/vm"
)

func TestStringCaseMapping(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		in, method, want string
	}{
		{"straße", "toUpperCase", "STRASSE"},
		{"ÀÉÎ", "toLowerCase", "àéî"},
		{"mixed Case", "toLocaleUpperCase", "MIXED CASE"},
	}
	for _, tt := range tests {
		got := h.must(s(tt.in), tt.method)
		assert.Equal(t, tt.want, got.AsString(), "%q.%s()", tt.in, tt.method)
	}
}

func TestStringNormalize(t *testing.T) {
	h := newHarness(t)
	decomposed := s("A\u030A")

	assert.Equal(t, "\u00C5", h.must(decomposed, "normalize").AsString())
	assert.Equal(t, "A\u030A", h.must(s("\u00C5"), "normalize", s("NFD")).AsString())
	assert.Equal(t, "fi", h.must(s("\uFB01"), "normalize", s("NFKC")).AsString())

	_, err := h.invoke(decomposed, "normalize", s("NFX"))
	h.requireKind(err, errs.KindRangeError)
}

func TestStringSearchAndSlice(t *testing.T) {
	h := newHarness(t)
	str := s("hello world")

	assert.Equal(t, float64(4), h.must(str, "indexOf", s("o")).AsNumber())
	assert.Equal(t, float64(7), h.must(str, "indexOf", s("o"), n(5)).AsNumber())
	assert.True(t, h.must(str, "includes", s("lo w")).AsBoolean())
	assert.True(t, h.must(str, "startsWith", s("world"), n(6)).AsBoolean())
	assert.True(t, h.must(str, "endsWith", s("hello"), n(5)).AsBoolean())
	assert.Equal(t, "d", h.must(str, "at", n(-1)).AsString())
	assert.Equal(t, "wor", h.must(str, "slice", n(-5), n(-2)).AsString())
	assert.Equal(t, "hello", h.must(str, "substring", n(5), n(0)).AsString())

	// Objects with a truthy @@match are rejected as search strings.
	re := h.vm.NewObject()
	re.SetOwnMethod(vm.SymbolKey(vm.SymMatch), vm.True)
	_, err := h.invoke(str, "includes", re.Value())
	h.requireKind(err, errs.KindTypeError)
}

func TestStringSplitTrimRepeat(t *testing.T) {
	h := newHarness(t)

	parts := h.must(s("a,b,,c"), "split", s(","))
	assert.Equal(t, uint32(4), parts.AsObject().ArrayLength())
	limited := h.must(s("a,b,,c"), "split", s(","), n(2))
	assert.Equal(t, "a,b", h.str(limited))
	chars := h.must(s("abc"), "split", s(""))
	assert.Equal(t, uint32(3), chars.AsObject().ArrayLength())

	assert.Equal(t, "x", h.must(s("  x\t\n"), "trim").AsString())
	assert.Equal(t, "x  ", h.must(s("  x  "), "trimStart").AsString())
	assert.Equal(t, "ababab", h.must(s("ab"), "repeat", n(3)).AsString())

	_, err := h.invoke(s("ab"), "repeat", n(-1))
	h.requireKind(err, errs.KindRangeError)
}

func TestStringCodePoints(t *testing.T) {
	h := newHarness(t)
	emoji := s("a\U0001F600")

	assert.Equal(t, float64(0x1F600), h.must(emoji, "codePointAt", n(1)).AsNumber())
	assert.Equal(t, float64(0xD83D), h.must(emoji, "charCodeAt", n(1)).AsNumber())
	assert.True(t, h.must(emoji, "codePointAt", n(3)).IsUndefined())

	units, err := h.vm.IterableToList(emoji)
	require.NoError(t, err)
	assert.Len(t, units, 2, "iteration is by code point")

	got := h.must(h.global("String"), "fromCodePoint", n(0x1F600))
	assert.Equal(t, "\U0001F600", got.AsString())
	_, err = h.invoke(h.global("String"), "fromCodePoint", n(-1))
	h.requireKind(err, errs.KindRangeError)

	assert.Equal(t, "AB", h.must(h.global("String"), "fromCharCode", n(65), n(0x10042)).AsString())
}

func TestStringConstructor(t *testing.T) {
	h := newHarness(t)

	got, err := h.vm.Call(h.global("String"), vm.Undefined, vm.NewSymbol("tag").Value())
	require.NoError(t, err)
	assert.Equal(t, "Symbol(tag)", got.AsString())

	wrapper, err := h.construct("String", n(12))
	require.NoError(t, err)
	require.True(t, wrapper.IsObject())
	assert.Equal(t, vm.KindString, wrapper.AsObject().Kind())
	assert.Equal(t, "12", h.must(wrapper, "valueOf").AsString())
	assert.Equal(t, float64(2), h.get(wrapper, "length").AsNumber())

	_, err = h.vm.Call(h.global("String", "prototype", "valueOf"), n(1))
	h.requireKind(err, errs.KindTypeError)
	_, err = h.vm.Call(h.global("String", "prototype", "trim"), vm.Null)
	h.requireKind(err, errs.KindTypeError)
}
