package validators

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrNoFrontmatter is returned when a document has no usable frontmatter block
var ErrNoFrontmatter = errors.New("no valid YAML frontmatter found")

const frontmatterDelimiter = "---"

// ParseFrontmatter extracts the flat key: value block between the leading
// "---" line and the next "\n---". Values are coerced in order: quoted
// strings lose their quotes, true/false become booleans, numeric literals
// become float64, and [a, b] becomes a list of strings. Anything else stays
// a trimmed string. Lines without a colon are ignored.
//
// Nested YAML is deliberately not supported; the result is validated
// against a flat schema afterwards.
func ParseFrontmatter(content string) (map[string]any, error) {
	if !strings.HasPrefix(content, frontmatterDelimiter) {
		return nil, ErrNoFrontmatter
	}

	end := strings.Index(content[len(frontmatterDelimiter):], "\n"+frontmatterDelimiter)
	if end == -1 {
		return nil, ErrNoFrontmatter
	}
	end += len(frontmatterDelimiter)

	block := ""
	if start := len(frontmatterDelimiter) + 1; start < end {
		block = strings.TrimSpace(content[start:end])
	}

	result := make(map[string]any)
	for _, line := range strings.Split(block, "\n") {
		key, raw, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		result[key] = coerceValue(strings.TrimSpace(raw))
	}

	if len(result) == 0 {
		return nil, ErrNoFrontmatter
	}
	return result, nil
}

func coerceValue(raw string) any {
	switch {
	case isQuoted(raw):
		return raw[1 : len(raw)-1]
	case raw == "true":
		return true
	case raw == "false":
		return false
	}

	if raw != "" {
		if n, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
			return n
		}
	}

	if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		inner := strings.TrimSpace(raw[1 : len(raw)-1])
		items := []any{}
		if inner == "" {
			return items
		}
		for _, item := range strings.Split(inner, ",") {
			items = append(items, stripQuotes(strings.TrimSpace(item)))
		}
		return items
	}

	return raw
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	return (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')
}

// stripQuotes removes one leading and one trailing quote character
func stripQuotes(s string) string {
	if s != "" && (s[0] == '"' || s[0] == '\'') {
		s = s[1:]
	}
	if s != "" && (s[len(s)-1] == '"' || s[len(s)-1] == '\'') {
		s = s[:len(s)-1]
	}
	return s
}
