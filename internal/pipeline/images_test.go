package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogcsv/internal/catalog"
	"catalogcsv/internal/connectors"
)

func TestAugmentImages(t *testing.T) {
	cat := catalogOf(
		"A1", catalog.RecordOf("Title", "Green", "description", "Tea."),
		"B2", catalog.RecordOf("Title", "Black"),
		"C3", catalog.RecordOf("Image Src", "https://old"),
	)
	found := []connectors.SKUImages{
		{SKU: "A1", URLs: []string{"u1", "u2", "u3"}},
		{SKU: "B2", URLs: nil},
		{SKU: "C3", Err: errors.New("timeout")},
	}

	stats, imgStats := AugmentImages(cat, found)
	assert.Equal(t, ImageStats{WithImages: 1, ImageEntries: 2}, imgStats)
	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, 1, stats.Updated)

	assert.Equal(t, []string{"A1", "B2", "C3", "A1_IMG2", "A1_IMG3"}, cat.SKUs())

	a1, _ := cat.Get("A1")
	assert.Equal(t, "u1", a1.Text("Image Src"))
	assert.Equal(t, "Tea.", a1.Text("description"))

	img3, ok := cat.Get("A1_IMG3")
	require.True(t, ok)
	v, _ := img3.Get("Image Position")
	assert.Equal(t, float64(3), v)
	_, hasDescription := img3.Get("description")
	assert.False(t, hasDescription)

	c3, _ := cat.Get("C3")
	assert.Equal(t, "https://old", c3.Text("Image Src"))
}

func TestProductSKUsSkipsImageEntries(t *testing.T) {
	cat := catalogOf(
		"A1", catalog.NewRecord(),
		"A1_IMG2", catalog.NewRecord(),
		"B2", catalog.NewRecord(),
	)
	assert.Equal(t, []string{"A1", "B2"}, productSKUs(cat))
}
