package catalog

import (
	"sort"

	"catalogcsv/internal"
	"catalogcsv/internal/util"
)

const (
	// IdentifierField is the attribute some sources use to repeat the identifier.
	// The identifier lives in the catalog key, so this field is never stored.
	IdentifierField  = "sku"
	DescriptionField = "description"
)

// Source is the output of one ingester ready to be folded into a catalog.
type Source struct {
	Kind internal.SourceKind
	Name string
	// Records maps identifiers to the attributes this source knows about.
	Records *Catalog
	// DescriptionField names the source column that carries the product body,
	// e.g. "Body (HTML)". It is renamed to DescriptionField on merge.
	DescriptionField string
}

type MergeStats struct {
	Source   string `json:"source"`
	Records  int    `json:"records"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
}

// MergeAll folds sources into a new catalog in priority order, then aliases names.
// Sources of equal priority keep the order they were given in.
func MergeAll(sources ...Source) (*Catalog, []MergeStats) {
	ordered := make([]Source, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Kind.Priority() < ordered[j].Kind.Priority()
	})

	cat := New()
	stats := make([]MergeStats, 0, len(ordered))
	for _, src := range ordered {
		stats = append(stats, Merge(cat, src))
	}
	AliasNames(cat)
	return cat, stats
}

// Merge applies one source to cat in place.
//
// New identifiers are inserted with the source's fields. Existing identifiers take
// incoming fields last-write-wins, except the description: a non-empty incoming
// description replaces the current one, an empty one never clears it.
func Merge(cat *Catalog, src Source) MergeStats {
	stats := MergeStats{Source: src.Name}
	if src.Records == nil {
		return stats
	}

	src.Records.Each(func(rawSKU string, incoming *Record) {
		stats.Records++
		if !util.IsValidSKU(rawSKU) {
			stats.Skipped++
			return
		}
		sku := util.NormalizeSKU(rawSKU)
		description, hasDescription, rest := splitDescription(incoming, src.DescriptionField)
		carriesDescription := hasDescription || src.DescriptionField != ""

		existing, ok := cat.Get(sku)
		if !ok {
			if carriesDescription {
				if description == nil {
					description = ""
				}
				rest.Set(DescriptionField, description)
			}
			cat.Put(sku, rest)
			stats.Inserted++
			return
		}

		if carriesDescription {
			if !IsEmpty(description) {
				existing.Set(DescriptionField, description)
			} else if current, has := existing.Get(DescriptionField); !has || IsEmpty(current) {
				existing.Set(DescriptionField, "")
			}
		}
		for _, key := range rest.Keys() {
			v, _ := rest.Get(key)
			existing.Set(key, v)
		}
		stats.Updated++
	})

	return stats
}

// splitDescription separates the description-bearing fields from the rest of an
// incoming record. The designated field wins over a literal "description" key when
// it is non-empty.
func splitDescription(incoming *Record, designated string) (description any, found bool, rest *Record) {
	rest = NewRecord()
	var designatedValue, literalValue any
	var hasDesignated, hasLiteral bool

	for _, key := range incoming.Keys() {
		v, _ := incoming.Get(key)
		switch {
		case key == IdentifierField:
			continue
		case designated != "" && key == designated:
			designatedValue, hasDesignated = v, true
		case key == DescriptionField:
			literalValue, hasLiteral = v, true
		default:
			rest.Set(key, v)
		}
	}

	switch {
	case hasDesignated && !IsEmpty(designatedValue):
		return designatedValue, true, rest
	case hasLiteral:
		return literalValue, true, rest
	case hasDesignated:
		return designatedValue, true, rest
	}
	return nil, false, rest
}

// AliasNames makes Title the single display-name field: a non-empty Name (or name)
// overwrites Title, and both Name keys are removed. It reports how many titles changed.
func AliasNames(cat *Catalog) int {
	aliased := 0
	cat.Each(func(_ string, rec *Record) {
		upper, hasUpper := rec.Get("Name")
		lower, hasLower := rec.Get("name")
		if !hasUpper && !hasLower {
			return
		}
		switch {
		case hasUpper && !IsEmpty(upper):
			rec.Set("Title", upper)
			aliased++
		case hasLower && !IsEmpty(lower):
			rec.Set("Title", lower)
			aliased++
		}
		rec.Delete("Name")
		rec.Delete("name")
	})
	return aliased
}
