// Package codec converts between the typed-attribute wire format used by the
// result store and grading endpoint, and plain JSON-decoded Go values. Every
// wire value is a single-key map whose key names the value's type: "S"
// (string), "N" (number carried as a string), "BOOL", "M" (nested item) or
// "L" (ordered list).
package codec

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Decode converts a typed-attribute wire value into a plain value. It is a
// widening conversion and never fails: anything that does not look like a
// typed attribute is passed through unchanged.
func Decode(value any) any {
	attr, ok := value.(map[string]any)
	if !ok || len(attr) != 1 {
		return value
	}

	for discriminator, inner := range attr {
		switch discriminator {
		case "S":
			if s, ok := inner.(string); ok {
				return s
			}
		case "N":
			if s, ok := inner.(string); ok {
				if n, err := strconv.ParseFloat(s, 64); err == nil {
					return n
				}
			}
		case "BOOL":
			if b, ok := inner.(bool); ok {
				return b
			}
		case "M":
			if m, ok := inner.(map[string]any); ok {
				return DecodeItem(m)
			}
		case "L":
			if list, ok := inner.([]any); ok {
				out := make([]any, len(list))
				for i, element := range list {
					out[i] = Decode(element)
				}
				return out
			}
		}
	}

	return value
}

// DecodeItem decodes every attribute of a wire item into its plain value.
func DecodeItem(item map[string]any) map[string]any {
	out := make(map[string]any, len(item))
	for name, value := range item {
		out[name] = Decode(value)
	}

	return out
}

// Encode wraps a plain value in its typed-attribute form. Values of a kind
// the wire format cannot express are coerced to their string representation,
// so Encode never fails either. Numbers travel as strings; non-integer values
// keep whatever precision their string form carries.
func Encode(value any) any {
	switch v := value.(type) {
	case string:
		return map[string]any{"S": v}
	case bool:
		return map[string]any{"BOOL": v}
	case float64:
		return map[string]any{"N": strconv.FormatFloat(v, 'f', -1, 64)}
	case float32:
		return map[string]any{"N": strconv.FormatFloat(float64(v), 'f', -1, 32)}
	case int:
		return map[string]any{"N": strconv.Itoa(v)}
	case int64:
		return map[string]any{"N": strconv.FormatInt(v, 10)}
	case json.Number:
		return map[string]any{"N": v.String()}
	case []any:
		list := make([]any, len(v))
		for i, element := range v {
			list[i] = Encode(element)
		}
		return map[string]any{"L": list}
	case []string:
		list := make([]any, len(v))
		for i, element := range v {
			list[i] = Encode(element)
		}
		return map[string]any{"L": list}
	case map[string]any:
		return map[string]any{"M": EncodeItem(v)}
	default:
		return map[string]any{"S": fmt.Sprint(v)}
	}
}

// EncodeItem encodes every value of a plain document into its wire form.
func EncodeItem(item map[string]any) map[string]any {
	out := make(map[string]any, len(item))
	for name, value := range item {
		out[name] = Encode(value)
	}

	return out
}
