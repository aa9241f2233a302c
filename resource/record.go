package resource

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Record is one raw server entity as decoded from a list response.
// Accessors return zero values for missing or mistyped fields so a
// malformed record still maps to a (partly blank) row.
type Record map[string]any

// ID returns the record's "_id".
func (r Record) ID() string { return r.String("_id") }

// String returns the field as a string. Numbers and booleans are
// formatted; anything else yields "".
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Time parses the field as an RFC 3339 timestamp. ok is false when the
// field is missing or unparsable.
func (r Record) Time(key string) (time.Time, bool) {
	s := r.String(key)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Has reports whether the field is present and non-null.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// listEnvelope is the body of GET /api/{kind}/{scope}.
type listEnvelope struct {
	Data []json.RawMessage `json:"data"`
}

// messageBody is the body of delete responses and of API errors.
type messageBody struct {
	Message string `json:"message"`
}

// decodeEach decodes every element on its own. An element that fails to
// decode yields the zero value instead of failing the whole list.
func decodeEach[R any](items []json.RawMessage) ([]R, int) {
	out := make([]R, len(items))
	bad := 0
	for i, raw := range items {
		var v R
		if err := json.Unmarshal(raw, &v); err != nil {
			bad++
			continue
		}
		out[i] = v
	}
	return out, bad
}

func opName(op, kind string) string {
	if kind == "" {
		return op
	}
	return fmt.Sprintf("%s %s", op, kind)
}
