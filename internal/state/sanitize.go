package state

import (
	"strings"
	"unicode"
)

const maxTitleLen = 80

// SanitizeTitle turns a generated title into a directory name: whitespace runs
// become underscores and anything outside letters, digits, '-', '_' and '.' is
// dropped.
func SanitizeTitle(title string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsSpace(r):
			pendingSep = true
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), "._")
	if runes := []rune(out); len(runes) > maxTitleLen {
		out = strings.Trim(string(runes[:maxTitleLen]), "._")
	}
	if out == "" {
		return "untitled"
	}
	return out
}
