package utils

import "strings"

// SplitList splits raw on any rune in separators and drops blank entries.
func SplitList(raw, separators string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return strings.ContainsRune(separators, r)
	})
	list := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			list = append(list, f)
		}
	}
	return list
}

// StripWrappingQuotes removes one pair of matching single or double quotes around s.
func StripWrappingQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
