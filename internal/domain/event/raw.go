package event

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawRecord is one undecoded record from the upstream calendar feed,
// shaped like {"event": {"id", "summary", "description", "start": {"utcdate"},
// "categories": {"category": ...}}}. Nothing about it is guaranteed.
type RawRecord map[string]any

// Payload returns the nested event object, or an empty map when absent or not an object.
func (r RawRecord) Payload() Payload {
	if p, ok := r["event"].(map[string]any); ok {
		return Payload(p)
	}
	return Payload{}
}

// Payload is the nested event object of a RawRecord.
type Payload map[string]any

// ID returns the external event id, or "" when missing.
func (p Payload) ID() string { return scalarString(p["id"]) }

// Summary returns the raw title text.
func (p Payload) Summary() string { return scalarString(p["summary"]) }

// Description returns the raw description text.
func (p Payload) Description() string { return scalarString(p["description"]) }

// UTCDate returns start.utcdate and whether it was present as a string.
func (p Payload) UTCDate() (string, bool) {
	start, ok := p["start"].(map[string]any)
	if !ok {
		return "", false
	}
	s, ok := start["utcdate"].(string)
	return s, ok
}

// Categories returns categories.category values in order. The feed sends
// either a single {value} object or a list of them.
func (p Payload) Categories() []string {
	cats, ok := p["categories"].(map[string]any)
	if !ok {
		return nil
	}

	var items []any
	switch c := cats["category"].(type) {
	case []any:
		items = c
	case map[string]any:
		items = []any{c}
	default:
		return nil
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if v := strings.TrimSpace(scalarString(m["value"])); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// scalarString renders strings and numbers; everything else is "".
func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return ""
	}
}
