package pipeline

import (
	"catalogcsv/internal"
	"catalogcsv/internal/catalog"
	"catalogcsv/internal/connectors"
)

type ImageStats struct {
	WithImages   int `json:"withImages"`
	ImageEntries int `json:"imageEntries"`
}

// ImageSource turns lookup results into the last merge source: the first URL becomes
// the product's Image Src, every further URL a supplementary <SKU>_IMG<n> entry.
func ImageSource(found []connectors.SKUImages) (catalog.Source, ImageStats) {
	var stats ImageStats
	records := catalog.New()
	for _, f := range found {
		if f.Err != nil || len(f.URLs) == 0 {
			continue
		}
		stats.WithImages++
		records.Put(f.SKU, catalog.RecordOf(ColImageSrc, f.URLs[0]))
		for i, u := range f.URLs[1:] {
			n := i + 2
			records.Put(ImageEntrySKU(f.SKU, n), catalog.RecordOf(ColImageSrc, u, ColImagePosition, n))
			stats.ImageEntries++
		}
	}
	return catalog.Source{Kind: internal.SourceImages, Name: "images", Records: records}, stats
}

// AugmentImages merges lookup results into cat in place.
func AugmentImages(cat *catalog.Catalog, found []connectors.SKUImages) (catalog.MergeStats, ImageStats) {
	src, stats := ImageSource(found)
	return catalog.Merge(cat, src), stats
}

// productSKUs lists the identifiers that can own images, skipping existing image entries.
func productSKUs(cat *catalog.Catalog) []string {
	var out []string
	for _, sku := range cat.SKUs() {
		if reImageEntry.MatchString(sku) {
			continue
		}
		out = append(out, sku)
	}
	return out
}
