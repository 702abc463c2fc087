package pipeline

// Destination columns the projector reads or synthesizes.
const (
	ColHandle        = "Handle"
	ColTitle         = "Title"
	ColBody          = "Body HTML"
	ColImageSrc      = "Image Src"
	ColImagePosition = "Image Position"
	ColVariantSKU    = "Variant SKU"
	ColVariantWeight = "Variant Weight"
)

type fieldMapping struct {
	Source string
	Column string
}

// fieldMappings is the fixed schema, in header order. Several sources may feed one
// column; the first non-empty in this order wins.
var fieldMappings = []fieldMapping{
	{"Handle", ColHandle},
	{"Title", ColTitle},
	{"description", ColBody},
	{"Vendor", "Vendor"},
	{"Type", "Type"},
	{"Tags", "Tags"},
	{"Status", "Status"},
	{"Published", "Published"},
	{"Gift Card", "Gift Card"},
	{"Product Category", "Category"},
	{"Image Src", ColImageSrc},
	{"Image Position", ColImagePosition},
	{"Image Alt Text", "Image Alt Text"},
	{"Option1 Name", "Option1 Name"},
	{"Option1 Value", "Option1 Value"},
	{"Option2 Name", "Option2 Name"},
	{"Option2 Value", "Option2 Value"},
	{"Option3 Name", "Option3 Name"},
	{"Option3 Value", "Option3 Value"},
	{"Variant SKU", ColVariantSKU},
	{"SKU", ColVariantSKU},
	{"Variant Barcode", "Variant Barcode"},
	{"Variant Image", "Variant Image"},
	{"Variant Grams", ColVariantWeight},
	{"Variant Weight Unit", "Variant Weight Unit"},
	{"Variant Price", "Variant Price"},
	{"Variant Compare At Price", "Variant Compare At Price"},
	{"Variant Taxable", "Variant Taxable"},
	{"Variant Tax Code", "Variant Tax Code"},
	{"Variant Inventory Tracker", "Variant Inventory Tracker"},
	{"Variant Inventory Policy", "Variant Inventory Policy"},
	{"Variant Fulfillment Service", "Variant Fulfillment Service"},
	{"Variant Requires Shipping", "Variant Requires Shipping"},
	{"Variant Inventory Qty", "Variant Inventory Qty"},
}

// variantColumns are blanked on supplementary image rows.
var variantColumns = []string{
	ColVariantSKU,
	"Variant Price",
	"Variant Compare At Price",
	"Variant Inventory Qty",
	"Variant Barcode",
	ColVariantWeight,
	"Variant Weight Unit",
	"Option1 Name",
	"Option1 Value",
	"Option2 Name",
	"Option2 Value",
	"Option3 Name",
	"Option3 Value",
}

// unmappedExcluded never become extension columns: the identifier is the catalog key,
// and name fields are folded into Title.
var unmappedExcluded = map[string]struct{}{
	"sku":  {},
	"Name": {},
	"name": {},
}

var mappedSources = func() map[string]struct{} {
	out := make(map[string]struct{}, len(fieldMappings))
	for _, m := range fieldMappings {
		out[m.Source] = struct{}{}
	}
	return out
}()

// FixedColumns lists the distinct destination columns of the fixed schema in order.
func FixedColumns() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(fieldMappings))
	for _, m := range fieldMappings {
		if _, ok := seen[m.Column]; ok {
			continue
		}
		seen[m.Column] = struct{}{}
		out = append(out, m.Column)
	}
	return out
}

func isUnmapped(field string) bool {
	if _, ok := mappedSources[field]; ok {
		return false
	}
	_, excluded := unmappedExcluded[field]
	return !excluded
}
