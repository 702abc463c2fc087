package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"catalogcsv/internal/util"
)

// Record is the attribute set of one product. Keys keep insertion order so that
// every "first match" decision downstream follows merge order rather than map order.
// Values are string, float64 or bool.
type Record struct {
	fields *orderedmap.OrderedMap[string, any]
}

func NewRecord() *Record {
	return &Record{fields: orderedmap.New[string, any]()}
}

// RecordOf builds a record from alternating key, value pairs.
func RecordOf(pairs ...any) *Record {
	r := NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		r.Set(key, pairs[i+1])
	}
	return r
}

func (r *Record) Len() int {
	return r.fields.Len()
}

func (r *Record) Keys() []string {
	out := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

func (r *Record) Get(key string) (any, bool) {
	return r.fields.Get(key)
}

// Set stores v under key. Blank keys are dropped; an existing key keeps its position.
func (r *Record) Set(key string, v any) {
	if strings.TrimSpace(key) == "" {
		return
	}
	r.fields.Set(key, normalizeValue(v))
}

func (r *Record) Delete(key string) {
	r.fields.Delete(key)
}

// Text renders the value under key, "" when absent.
func (r *Record) Text(key string) string {
	v, ok := r.fields.Get(key)
	if !ok {
		return ""
	}
	return Render(v)
}

// MarshalJSON writes fields in insertion order without HTML escaping.
func (r *Record) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, pair.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, pair.Value); err != nil {
			return nil, fmt.Errorf("field %q: %w", pair.Key, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	raw := orderedmap.New[string, any]()
	if err := raw.UnmarshalJSON(data); err != nil {
		return err
	}

	r.fields = orderedmap.New[string, any](raw.Len())
	for pair := raw.Oldest(); pair != nil; pair = pair.Next() {
		value, err := scalarFromJSON(pair.Value)
		if err != nil {
			return fmt.Errorf("field %q: %w", pair.Key, err)
		}
		r.Set(pair.Key, value)
	}
	return nil
}

// IsEmpty reports whether v carries no data: nil or a blank string.
// Zero numbers and false are values.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

// Render turns a scalar into the string form used by the destination format.
func Render(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64:
		return util.FormatNumber(t)
	default:
		return fmt.Sprint(t)
	}
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}

func scalarFromJSON(v any) (any, error) {
	switch t := v.(type) {
	case string, bool, float64:
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported value %T", v)
	}
}

func writeJSON(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	// Encode terminates with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
