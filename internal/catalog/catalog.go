package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Catalog maps product identifiers to records in first-seen order.
type Catalog struct {
	records *orderedmap.OrderedMap[string, *Record]
}

func New() *Catalog {
	return &Catalog{records: orderedmap.New[string, *Record]()}
}

func (c *Catalog) Len() int {
	return c.records.Len()
}

func (c *Catalog) SKUs() []string {
	out := make([]string, 0, c.records.Len())
	for pair := c.records.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

func (c *Catalog) Get(sku string) (*Record, bool) {
	return c.records.Get(sku)
}

// Put stores rec under sku. Replacing an existing entry keeps its position.
func (c *Catalog) Put(sku string, rec *Record) {
	c.records.Set(sku, rec)
}

// Each visits records in order. fn may Put new identifiers; they are not visited.
func (c *Catalog) Each(fn func(sku string, rec *Record)) {
	for _, sku := range c.SKUs() {
		rec, _ := c.records.Get(sku)
		fn(sku, rec)
	}
}

func (c *Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for pair := c.records.Oldest(); pair != nil; pair = pair.Next() {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, pair.Key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		blob, err := pair.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", pair.Key, err)
		}
		buf.Write(blob)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *Catalog) UnmarshalJSON(data []byte) error {
	records := orderedmap.New[string, *Record]()
	if err := records.UnmarshalJSON(data); err != nil {
		return err
	}
	for pair := records.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value == nil {
			return fmt.Errorf("record %s: null", pair.Key)
		}
	}
	c.records = records
	return nil
}

// Encode writes the catalog as two-space indented JSON without HTML escaping,
// the hand-off format between pipeline stages.
func Encode(w io.Writer, c *Catalog) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

func Decode(r io.Reader) (*Catalog, error) {
	blob, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	c := New()
	if err := json.Unmarshal(blob, c); err != nil {
		return nil, err
	}
	return c, nil
}

func SaveFile(path string, c *Catalog) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, c); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

var ErrNoCatalog = errors.New("catalog file not found")

func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoCatalog, path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return c, nil
}
