package inference

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when model output contains no parseable JSON object.
var ErrNoJSON = errors.New("no JSON object in model output")

var codeFenceRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// ExtractJSON returns the first balanced {...} block in raw that parses as
// JSON. Markdown code fences and surrounding prose are ignored; braces
// inside string literals do not count toward balance.
func ExtractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(s); m != nil {
		if obj, ok := firstObject(m[1]); ok {
			return obj, nil
		}
	}
	if obj, ok := firstObject(s); ok {
		return obj, nil
	}
	return "", ErrNoJSON
}

func firstObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end := balancedEnd(s, start); end > 0 {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// balancedEnd returns the index of the brace closing the object opened at
// start, or -1 when the object never closes.
func balancedEnd(s string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
