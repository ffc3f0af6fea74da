package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

var (
	jsonBlockPattern     = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	jsonObjectPattern    = regexp.MustCompile(`(?s)\{.*\}`)
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ErrNoJSON is returned when a completion contains no JSON object.
var ErrNoJSON = errors.New("no JSON object in completion")

// ExtractJSON pulls a JSON object out of a completion. Models wrap JSON in
// code fences and leave trailing commas; both are handled.
func ExtractJSON(content string) string {
	raw := ""
	if m := jsonBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		raw = m[1]
	} else if m := jsonObjectPattern.FindString(content); m != "" {
		raw = m
	}
	if raw == "" {
		return ""
	}
	return trailingCommaPattern.ReplaceAllString(raw, "$1")
}

// ParseObject decodes the flat JSON object found in content. Values are kept
// raw so callers decide their shape.
func ParseObject(content string) (map[string]json.RawMessage, error) {
	raw := ExtractJSON(content)
	if raw == "" {
		return nil, ErrNoJSON
	}
	out := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode completion JSON: %w", err)
	}
	return out, nil
}
