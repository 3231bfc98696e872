package util

import (
	"strings"
	"unicode/utf8"
)

// TruncateText cuts s to at most limit bytes on a rune boundary. Invalid UTF-8
// and NUL bytes are dropped so the result can be stored in a postgres text column.
func TruncateText(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	s = strings.ToValidUTF8(s, "")
	s = strings.ReplaceAll(s, "\x00", "")
	if len(s) <= limit {
		return s
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut]
}
