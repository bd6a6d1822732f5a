package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrNoJSON is returned when no JSON value can be recovered from a reply.
var ErrNoJSON = errors.New("llm: response contained no JSON")

// CleanJSON strips markdown code fences. When the result is still not valid
// JSON it falls back to the first brace-balanced object or array.
func CleanJSON(text string) (string, error) {
	s := stripCodeFence(strings.TrimSpace(text))
	if json.Valid([]byte(s)) {
		return s, nil
	}
	if extracted, ok := extractBalanced(s); ok {
		return extracted, nil
	}
	return "", ErrNoJSON
}

// DecodeJSON cleans text and unmarshals it into out, which must be a
// non-nil pointer. out is only written when decoding fully succeeds, so a
// half-decoded reply never leaks fields into a later attempt.
func DecodeJSON(text string, out any) error {
	target := reflect.ValueOf(out)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("llm: decode json: non-nil pointer required, got %T", out)
	}
	cleaned, err := CleanJSON(text)
	if err != nil {
		return err
	}
	fresh := reflect.New(target.Elem().Type())
	if err := json.Unmarshal([]byte(cleaned), fresh.Interface()); err != nil {
		return fmt.Errorf("llm: decode json: %w", err)
	}
	target.Elem().Set(fresh.Elem())
	return nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the language tag line ("json").
		if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "{[") {
			s = s[nl+1:]
		}
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// extractBalanced returns the first {...} or [...] span whose brackets
// balance and which parses as JSON. Brackets inside string literals are ignored.
func extractBalanced(s string) (string, bool) {
	start := strings.IndexAny(s, "{[")
	for start >= 0 {
		if end, ok := matchBracket(s, start); ok && json.Valid([]byte(s[start:end+1])) {
			return s[start : end+1], true
		}
		next := strings.IndexAny(s[start+1:], "{[")
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBracket(s string, start int) (int, bool) {
	var stack []byte
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
