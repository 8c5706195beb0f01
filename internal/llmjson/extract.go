// Package llmjson recovers a JSON value from free-form model output.
//
// The fallback chain is: drop the reasoning block, parse the span between the
// first opening and last closing bracket, then parse the text with markdown
// fences removed. Callers supply their own typed default when every step fails.
package llmjson

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// ReasoningEnd terminates the reasoning block some models emit before the answer.
const ReasoningEnd = "</think>"

// ErrNoJSON is returned when no value of the requested kind can be recovered.
var ErrNoJSON = errors.New("llmjson: no JSON value found")

// Kind is the top-level JSON type a caller expects.
type Kind int

const (
	// Object expects a JSON object.
	Object Kind = iota
	// Array expects a JSON array.
	Array
)

func (k Kind) brackets() (open, closing string) {
	if k == Array {
		return "[", "]"
	}
	return "{", "}"
}

func (k Kind) matches(r gjson.Result) bool {
	if k == Array {
		return r.IsArray()
	}
	return r.IsObject()
}

// StripReasoning returns the text after the last reasoning end marker, or s
// unchanged when there is none.
func StripReasoning(s string) string {
	if i := strings.LastIndex(s, ReasoningEnd); i >= 0 {
		return strings.TrimSpace(s[i+len(ReasoningEnd):])
	}
	return s
}

// Extract recovers the first JSON value of the given kind from model output.
func Extract(s string, kind Kind) (gjson.Result, error) {
	s = StripReasoning(s)

	open, closing := kind.brackets()
	start := strings.Index(s, open)
	end := strings.LastIndex(s, closing)
	if start >= 0 && end > start {
		if r, ok := parse(s[start:end+1], kind); ok {
			return r, nil
		}
	}

	if r, ok := parse(StripFences(s), kind); ok {
		return r, nil
	}
	return gjson.Result{}, ErrNoJSON
}

// StripFences removes markdown code fences (```json and ```).
func StripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func parse(s string, kind Kind) (gjson.Result, bool) {
	if !gjson.Valid(s) {
		return gjson.Result{}, false
	}
	r := gjson.Parse(s)
	if !kind.matches(r) {
		return gjson.Result{}, false
	}
	return r, true
}
