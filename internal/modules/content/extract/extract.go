// Package extract pulls a single JSON object out of free-form model output.
//
// The candidate is the inclusive span from the first '{' to the last '}'.
// Braces are not balanced: stray braces in surrounding prose can make the
// span unparseable or select the wrong object, so callers validate the shape
// of whatever comes back.
package extract

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrNoObject  = errors.New("no json object in text")
	ErrMalformed = errors.New("malformed json object")
)

// Span returns the first-'{'-to-last-'}' substring of raw.
func Span(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// Object parses the span as a JSON object. It returns nil when there is no
// span or it does not parse; it never panics.
func Object(raw string) map[string]any {
	s, ok := Span(raw)
	if !ok {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// Decode unmarshals the span into v.
func Decode(raw string, v any) error {
	s, ok := Span(raw)
	if !ok {
		return ErrNoObject
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return errors.Join(ErrMalformed, err)
	}
	return nil
}

// Array returns the elements of the top-level array field key, each left
// raw so one ill-typed element does not sink its siblings. ok is false when
// the object is missing or key is not an array.
func Array(raw, key string) (elems []json.RawMessage, ok bool) {
	var obj map[string]json.RawMessage
	if err := Decode(raw, &obj); err != nil {
		return nil, false
	}
	field, found := obj[key]
	if !found {
		return nil, false
	}
	if err := json.Unmarshal(field, &elems); err != nil {
		return nil, false
	}
	if elems == nil {
		elems = []json.RawMessage{}
	}
	return elems, true
}
