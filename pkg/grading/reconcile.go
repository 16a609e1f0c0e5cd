package grading

import (
	"encoding/json"

	"github.com/noah-isme/gema-grader/internal/codec"
)

const snippetLimit = 200

// reconcileBody normalizes a grading response body into the plain decoded
// result document. Two shapes are recognized: the canonical typed-attribute
// map carrying a top-level analyticsId attribute, and the legacy single
// element list whose first entry wraps the canonical JSON inside a
// generated_text string.
func reconcileBody(body []byte) (map[string]any, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &UnrecognizedFormatError{Snippet: snippet(body)}
	}

	switch shape := payload.(type) {
	case map[string]any:
		if _, ok := shape["analyticsId"]; ok {
			return codec.DecodeItem(shape), nil
		}
	case []any:
		if len(shape) == 0 {
			break
		}
		first, ok := shape[0].(map[string]any)
		if !ok {
			break
		}
		text, ok := first["generated_text"].(string)
		if !ok {
			break
		}
		var inner map[string]any
		if err := json.Unmarshal([]byte(text), &inner); err != nil {
			break
		}
		if _, ok := inner["analyticsId"]; ok {
			return codec.DecodeItem(inner), nil
		}
	}

	return nil, &UnrecognizedFormatError{Snippet: snippet(body)}
}

func snippet(body []byte) string {
	runes := []rune(string(body))
	if len(runes) > snippetLimit {
		return string(runes[:snippetLimit]) + "..."
	}

	return string(runes)
}
