package entity

import (
	"strings"
	"unicode"
)

var labelAcronyms = map[string]string{
	"id":  "ID",
	"url": "URL",
}

// DefaultLabeler converts a snake_case or kebab-case field name into a
// human-friendly label ("date_played" -> "Date Played").
func DefaultLabeler(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || unicode.IsSpace(r)
	})
	if len(words) == 0 {
		return ""
	}
	for i, word := range words {
		lower := strings.ToLower(word)
		if acronym, ok := labelAcronyms[lower]; ok {
			words[i] = acronym
			continue
		}
		runes := []rune(lower)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
