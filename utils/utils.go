package utils

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

// UrlQuery escapes s for use as a URL query value.
func UrlQuery(s string) string { return url.QueryEscape(s) }

// Str renders a loosely typed JSON value as a string.
func Str(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// Truncate cuts s to at most max bytes without splitting a rune.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}
