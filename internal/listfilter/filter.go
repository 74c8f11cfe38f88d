// Package listfilter derives the displayed subset of a record list from a stable query.
package listfilter

import (
	"regexp"
	"strings"

	"oversee-cli/internal/textnorm"
)

// Searchable is implemented by every record a list screen can search.
//
// SearchFields returns the designated fields in the order they should be checked.
// numericFirst is true when the query is all digits; implementations put
// document numbers and codes first in that case. The order only affects
// short-circuiting, never which records match.
type Searchable interface {
	SearchFields(numericFirst bool) []string
}

var numericRE = regexp.MustCompile(`^\d+$`)

// IsNumeric reports whether the normalized query is made of ASCII digits only.
func IsNumeric(q string) bool {
	return numericRE.MatchString(textnorm.Normalize(q))
}

// Filter returns the records having at least one designated field that contains
// the normalized query. A blank query returns records itself.
// Relative order is preserved.
func Filter[T Searchable](records []T, stableQuery string) []T {
	q := textnorm.Normalize(stableQuery)
	if q == "" {
		return records
	}
	numeric := numericRE.MatchString(q)

	out := make([]T, 0, len(records))
	for _, r := range records {
		if Matches(r, q, numeric) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether r matches an already normalized query.
func Matches[T Searchable](r T, normalizedQuery string, numeric bool) bool {
	for _, f := range r.SearchFields(numeric) {
		if strings.Contains(textnorm.Normalize(f), normalizedQuery) {
			return true
		}
	}
	return false
}
