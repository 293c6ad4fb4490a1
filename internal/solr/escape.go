package solr

import (
	"sort"
	"strings"
	"unicode"
)

// specials are the query-syntax characters that must be backslash-escaped
// when a literal value is embedded in a query.
const specials = ` /&|+-!(){}[]^"~*?:\`

// Escape backslash-escapes every query-syntax character and all whitespace
// in a literal value so it can be embedded in a query verbatim.
func Escape(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if strings.ContainsRune(specials, r) || unicode.IsSpace(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EqualityQuery builds an AND query matching every field exactly, with
// values escaped. Fields are emitted in sorted order so queries are stable.
func EqualityQuery(fields map[string]string) string {
	if len(fields) == 0 {
		return "*:*"
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+":"+Escape(fields[name]))
	}
	return strings.Join(parts, " AND ")
}
