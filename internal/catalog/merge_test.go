package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogcsv/internal"
)

func source(kind internal.SourceKind, descField string, entries map[string]*Record, order ...string) Source {
	recs := New()
	for _, sku := range order {
		recs.Put(sku, entries[sku])
	}
	return Source{Kind: kind, Name: string(kind), Records: recs, DescriptionField: descField}
}

func TestMergeEmptyDescriptionDoesNotClear(t *testing.T) {
	a := source(internal.SourceDescriptions, DescriptionField,
		map[string]*Record{"ABC123": RecordOf("description", "Hello. World")}, "ABC123")
	b := source(internal.SourceTags, "Body (HTML)",
		map[string]*Record{"abc123": RecordOf("Body (HTML)", "", "Vendor", "Acme")}, "abc123")

	cat, stats := MergeAll(a, b)
	require.Equal(t, 1, cat.Len())
	rec := mustGet(t, cat, "ABC123")
	assert.Equal(t, "Hello. World", rec.Text("description"))
	assert.Equal(t, "Acme", rec.Text("Vendor"))
	assert.Equal(t, 1, stats[1].Updated)
}

func TestMergeNonEmptyDescriptionWins(t *testing.T) {
	a := source(internal.SourceDescriptions, DescriptionField,
		map[string]*Record{"X1": RecordOf("Vendor", "Acme")}, "X1")
	b := source(internal.SourceTags, "Body (HTML)",
		map[string]*Record{"x1": RecordOf("Body (HTML)", "Rich text")}, "x1")

	cat, _ := MergeAll(a, b)
	assert.Equal(t, "Rich text", mustGet(t, cat, "X1").Text("description"))
}

func TestMergeSetsEmptyDescriptionOnlyWhenMissing(t *testing.T) {
	cat := New()
	Merge(cat, source(internal.SourceTags, "Body (HTML)",
		map[string]*Record{"P1": RecordOf("Vendor", "Acme")}, "P1"))

	v, ok := mustGet(t, cat, "P1").Get("description")
	require.True(t, ok)
	assert.Equal(t, "", v)
}

func TestMergeLastWriteWinsForOtherFields(t *testing.T) {
	tags := source(internal.SourceTags, "Body (HTML)",
		map[string]*Record{"P1": RecordOf("Vendor", "Acme", "Tags", "green")}, "P1")
	template := source(internal.SourceTemplate, "Body (HTML)",
		map[string]*Record{"p1": RecordOf("Vendor", "Globex", "Tags", "")}, "p1")

	cat, _ := MergeAll(template, tags)
	rec := mustGet(t, cat, "P1")
	assert.Equal(t, "Globex", rec.Text("Vendor"))
	assert.Equal(t, "", rec.Text("Tags"))
}

func TestMergeSkipsInvalidIdentifiersAndIdentifierField(t *testing.T) {
	recs := New()
	recs.Put("SKU", RecordOf("Vendor", "header row"))
	recs.Put(" ", RecordOf("Vendor", "blank"))
	recs.Put("gt1", RecordOf("sku", "gt1", "SKU", "gt1", "", "dropped"))

	cat := New()
	stats := Merge(cat, Source{Kind: internal.SourceTags, Name: "tags", Records: recs})

	assert.Equal(t, 3, stats.Records)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, []string{"GT1"}, cat.SKUs())
	rec := mustGet(t, cat, "GT1")
	_, hasIdentifier := rec.Get("sku")
	assert.False(t, hasIdentifier)
	assert.Equal(t, []string{"SKU"}, rec.Keys())
}

func TestMergeKeepsFirstSeenOrder(t *testing.T) {
	a := source(internal.SourceDescriptions, DescriptionField, map[string]*Record{
		"B": RecordOf("description", "b"),
		"A": RecordOf("description", "a"),
	}, "B", "A")
	b := source(internal.SourceTags, "Body (HTML)", map[string]*Record{
		"C": RecordOf("Vendor", "c"),
		"a": RecordOf("Vendor", "a"),
	}, "C", "a")

	cat, _ := MergeAll(b, a)
	assert.Equal(t, []string{"B", "A", "C"}, cat.SKUs())
}

func TestAliasNames(t *testing.T) {
	cat := New()
	cat.Put("GT1", RecordOf("Name", "Green Tea", "Title", "old"))
	cat.Put("GT2", RecordOf("name", "Oolong"))
	cat.Put("GT3", RecordOf("Name", "", "Title", "kept"))
	cat.Put("GT4", RecordOf("Title", "untouched"))

	assert.Equal(t, 2, AliasNames(cat))
	assert.Equal(t, "Green Tea", mustGet(t, cat, "GT1").Text("Title"))
	assert.Equal(t, "Oolong", mustGet(t, cat, "GT2").Text("Title"))
	assert.Equal(t, "kept", mustGet(t, cat, "GT3").Text("Title"))
	assert.Equal(t, "untouched", mustGet(t, cat, "GT4").Text("Title"))

	cat.Each(func(sku string, rec *Record) {
		_, upper := rec.Get("Name")
		_, lower := rec.Get("name")
		assert.False(t, upper || lower, sku)
	})
}
