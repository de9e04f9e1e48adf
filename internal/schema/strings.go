package schema

import (
	"strings"
	"unicode"
)

// Known abbreviations for label generation.
var knownAbbreviations = map[string]string{
	"id": "ID", "url": "URL", "api": "API", "uuid": "UUID",
	"ssn": "SSN", "dob": "DOB", "qr": "QR",
}

// SnakeCase converts a Go identifier to snake_case.
func SnakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// New word unless we're inside an acronym run.
			if i > 0 && (!unicode.IsUpper(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Labelize turns a snake_case property name into a display label.
func Labelize(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		if abbr, ok := knownAbbreviations[w]; ok {
			words[i] = abbr
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
