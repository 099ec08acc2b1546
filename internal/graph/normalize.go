package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/graphgen/internal/apperr"
)

const fence = "```"

// attempt is one step of the parse fallback chain.
type attempt struct {
	name string
	fix  func(string) string
}

// parseChain runs strictly in order; each step sees the fence-stripped text.
var parseChain = []attempt{
	{name: "strict", fix: func(s string) string { return s }},
	{name: "escape-newlines", fix: EscapeControlsInStrings},
}

// Normalize recovers structured data from generator text that may not be
// strict JSON. It strips code fences, then tries each step of the fallback
// chain once. It fails with apperr.ErrMalformedOutput.
func Normalize(text string) (any, error) {
	cleaned := StripCodeFence(text)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty output", apperr.ErrMalformedOutput)
	}
	var lastErr error
	for _, step := range parseChain {
		var out any
		if err := json.Unmarshal([]byte(step.fix(cleaned)), &out); err != nil {
			lastErr = fmt.Errorf("%s: %w", step.name, err)
			continue
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %v", apperr.ErrMalformedOutput, lastErr)
}

// StripCodeFence removes a surrounding ``` block, with or without a language
// tag such as "json". Text without a leading fence is only trimmed.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, fence) {
		return s
	}
	s = strings.TrimPrefix(s, fence)
	// Drop the language tag. It may share a line with the opening brace.
	s = strings.TrimLeft(s, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	s = strings.TrimLeft(s, " \t")
	// Anything else left on the fence line that does not look like JSON is
	// part of the tag too (e.g. "json5").
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		if rest := strings.TrimSpace(s[:i]); rest != "" && !strings.ContainsAny(rest, "{[") {
			s = s[i+1:]
		}
	}
	if i := strings.LastIndex(s, fence); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// EscapeControlsInStrings escapes raw newline, carriage return and tab
// characters that appear inside JSON string literals. Characters outside
// strings are left untouched.
func EscapeControlsInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}
		switch {
		case escaped:
			escaped = false
			b.WriteByte(c)
		case c == '\\':
			escaped = true
			b.WriteByte(c)
		case c == '"':
			inString = false
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ParseResult is the outcome of turning generator text into a Graph. Err is
// nil, or wraps apperr.ErrMalformedOutput or apperr.ErrInvalidShape; in both
// error cases Graph is the empty graph.
type ParseResult struct {
	Graph  Graph
	Report Report
	Err    error
}

// OK reports whether parsing produced a usable graph.
func (r ParseResult) OK() bool {
	return r.Err == nil
}

// Malformed reports whether the text itself could not be parsed.
func (r ParseResult) Malformed() bool {
	return errors.Is(r.Err, apperr.ErrMalformedOutput)
}

// Parse runs Normalize followed by Validate.
func Parse(text string) ParseResult {
	raw, err := Normalize(text)
	if err != nil {
		return ParseResult{Graph: Empty(), Err: err}
	}
	g, rep, err := Validate(raw)
	if err != nil {
		return ParseResult{Graph: Empty(), Report: rep, Err: err}
	}
	return ParseResult{Graph: g, Report: rep}
}
