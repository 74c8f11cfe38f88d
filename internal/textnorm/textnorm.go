// Package textnorm builds comparison keys for search: accent-free, lower-case and trimmed.
package textnorm

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// combiningMarks is the Combining Diacritical Marks block (U+0300..U+036F).
var combiningMarks = runes.In(&unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
})

// Normalize converts v into a key suitable for substring matching.
//
// nil (including typed nil pointers) becomes "". Everything else is stringified,
// decomposed (NFD), stripped of combining diacritics, lower-cased and trimmed.
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(v any) string {
	s, ok := stringify(v)
	if !ok {
		return ""
	}
	if isASCII(s) {
		return strings.TrimSpace(strings.ToLower(s))
	}
	t := transform.Chain(norm.NFD, runes.Remove(combiningMarks))
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(strings.ToLower(out))
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case *string:
		if t == nil {
			return "", false
		}
		return *t, true
	case fmt.Stringer:
		if isNilPointer(v) {
			return "", false
		}
		return t.String(), true
	}
	if isNilPointer(v) {
		return "", false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		return fmt.Sprint(rv.Elem().Interface()), true
	}
	return fmt.Sprint(v), true
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
