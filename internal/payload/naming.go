package payload

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titler = cases.Title(language.Und, cases.NoLower)

// verbatim lists keys whose values keep their own key style.
var verbatim = map[string]bool{"serviceAccountKey": true}

// Camel converts a snake_case name to camelCase. Names without underscores
// only have their first letter lowered.
func Camel(name string) string {
	parts := strings.Split(name, "_")

	var b strings.Builder

	b.Grow(len(name))

	for _, p := range parts {
		if p == "" {
			continue
		}

		if b.Len() == 0 {
			r, size := utf8.DecodeRuneInString(p)
			b.WriteRune(unicode.ToLower(r))
			b.WriteString(p[size:])

			continue
		}

		b.WriteString(titler.String(p))
	}

	return b.String()
}

// camelKeys renames every map key in v to camelCase, recursing into nested
// maps and slices except below verbatim keys.
func camelKeys(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			name := Camel(k)
			if verbatim[name] {
				out[name] = val
				continue
			}

			out[name] = camelKeys(val)
		}

		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = camelKeys(val)
		}

		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = camelKeys(val)
		}

		return out
	default:
		return v
	}
}

// SortParams returns the sort query parameter for sortBy, or nil when sortBy
// is empty.
func SortParams(sortBy string, descending bool) url.Values {
	if sortBy == "" {
		return nil
	}

	sign := "+"
	if descending {
		sign = "-"
	}

	return url.Values{"sort": {sign + Camel(sortBy)}}
}
