// Package structured extracts JSON payloads from raw LLM output.
//
// Models are instructed to respond with a single JSON object, but in
// practice the object often arrives wrapped in markdown fences or
// surrounded by prose. The parser tries progressively more forgiving
// extraction strategies and reports a bounded error when none succeed.
package structured

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// maxExcerpt bounds how much raw model output is echoed back in errors.
const maxExcerpt = 500

// ParseError reports model output that no extraction strategy could parse.
// Excerpt holds the beginning of the offending text, capped at maxExcerpt
// bytes so the error stays loggable even for runaway responses.
type ParseError struct {
	Excerpt string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Excerpt == "" {
		return fmt.Sprintf("no JSON object in response: %v", e.Err)
	}
	return fmt.Sprintf("no JSON object in response: %v (response begins: %q)", e.Err, e.Excerpt)
}

// Unwrap returns the underlying JSON decoding error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Extract parses the first JSON object found in raw into a generic map.
func Extract(raw string) (map[string]any, error) {
	var out map[string]any
	if err := Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Unmarshal decodes the first JSON object found in raw into v.
//
// Candidates are tried in order and the first one that decodes wins:
// the whole trimmed response, the contents of each fenced code block,
// then the first balanced {...} span. Anything else yields a *ParseError.
func Unmarshal(raw string, v any) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return &ParseError{Err: errors.New("empty response")}
	}

	// Happy path: the model honored the response format instructions.
	lastErr := json.Unmarshal([]byte(trimmed), v)
	if lastErr == nil {
		return nil
	}

	for _, block := range fencedBlocks(trimmed) {
		err := json.Unmarshal([]byte(block), v)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if span, ok := firstObjectSpan(trimmed); ok {
		err := json.Unmarshal([]byte(span), v)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	return &ParseError{Excerpt: excerptOf(trimmed), Err: lastErr}
}

// fencedBlocks returns the contents of every ``` fenced block in s, in
// order of appearance. A "json" language tag after the opening fence is
// stripped; other tags are left in place and simply fail to decode.
func fencedBlocks(s string) []string {
	var blocks []string
	for {
		start := strings.Index(s, "```")
		if start == -1 {
			return blocks
		}
		s = strings.TrimPrefix(s[start+3:], "json")
		end := strings.Index(s, "```")
		if end == -1 {
			return blocks
		}
		if block := strings.TrimSpace(s[:end]); block != "" {
			blocks = append(blocks, block)
		}
		s = s[end+3:]
	}
}

// firstObjectSpan returns the first balanced {...} region of s. The scan
// tracks string literals and escapes so braces inside quoted values do
// not skew the depth count.
func firstObjectSpan(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		if escaped {
			escaped = false
			continue
		}
		switch s[i] {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if inString {
				continue
			}
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if inString || depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func excerptOf(s string) string {
	if len(s) <= maxExcerpt {
		return s
	}
	return s[:maxExcerpt]
}
