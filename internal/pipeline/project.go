package pipeline

import (
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"catalogcsv/internal/catalog"
	"catalogcsv/internal/util"
)

// Row is one line of the destination table, keyed by column name.
type Row map[string]string

var reImageEntry = regexp.MustCompile(`(?i)^(.+)_img(\d+)$`)

// ImageEntrySKU names the catalog entry that carries the n-th image of sku.
func ImageEntrySKU(sku string, n int) string {
	return sku + "_IMG" + strconv.Itoa(n)
}

// ProjectionStats summarizes one projection pass.
type ProjectionStats struct {
	MainRows   int
	ImageRows  int
	Metafields int
	Skipped    []string
	Dropped    []string
}

// Projector maps a finalized catalog onto the destination schema. It only reads the
// catalog; the extension columns are fixed when the projector is built.
type Projector struct {
	cat        *catalog.Catalog
	extensions []string
}

func NewProjector(cat *catalog.Catalog) *Projector {
	return &Projector{cat: cat, extensions: ExtensionColumns(cat)}
}

// ExtensionColumns returns the metafield columns for every unmapped attribute of the
// records that project to rows, deduplicated and sorted so the header does not depend
// on row order.
func ExtensionColumns(cat *catalog.Catalog) []string {
	seen := map[string]struct{}{}
	cat.Each(func(sku string, rec *catalog.Record) {
		if !util.IsValidSKU(sku) {
			return
		}
		for _, field := range rec.Keys() {
			if !isUnmapped(field) {
				continue
			}
			key := util.MetafieldKey(field)
			if key == "" {
				continue
			}
			seen[util.MetafieldColumn(key)] = struct{}{}
		}
	})
	out := make([]string, 0, len(seen))
	for col := range seen {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

func (p *Projector) ExtensionColumns() []string {
	out := make([]string, len(p.extensions))
	copy(out, p.extensions)
	return out
}

// Header is the fixed schema followed by the extension columns.
func (p *Projector) Header() []string {
	return append(FixedColumns(), p.extensions...)
}

// Project maps one record onto the destination columns, applying the identifier,
// handle and title fallbacks and filling extension columns.
func (p *Projector) Project(sku string, rec *catalog.Record) Row {
	row := Row{}
	for _, col := range p.Header() {
		row[col] = ""
	}

	for _, m := range fieldMappings {
		if row[m.Column] != "" {
			continue
		}
		v, ok := rec.Get(m.Source)
		if !ok || catalog.IsEmpty(v) {
			continue
		}
		if m.Column == ColVariantWeight {
			row[m.Column] = renderWeight(v)
			continue
		}
		row[m.Column] = catalog.Render(v)
	}

	if row[ColVariantSKU] == "" {
		row[ColVariantSKU] = sku
	}
	if row[ColHandle] == "" {
		row[ColHandle] = util.Handleize(sku)
	}
	if row[ColTitle] == "" {
		row[ColTitle] = fallbackTitle(sku, rec)
	}

	if len(p.extensions) > 0 {
		values := extensionValues(rec)
		for _, col := range p.extensions {
			if v, ok := values[col]; ok {
				row[col] = v
			}
		}
	}
	return row
}

// Rows projects the whole catalog: main rows in catalog order, then one row per
// supplementary image entry, attached to its product through a handle or SKU index.
func (p *Projector) Rows() ([]Row, ProjectionStats) {
	var stats ProjectionStats
	stats.Metafields = len(p.extensions)

	type imageEntry struct {
		sku       string
		parentSKU string
		position  string
		rec       *catalog.Record
	}
	var rows []Row
	var images []imageEntry
	byHandle := map[string]Row{}
	bySKU := map[string]Row{}

	p.cat.Each(func(sku string, rec *catalog.Record) {
		if !util.IsValidSKU(sku) {
			stats.Skipped = append(stats.Skipped, sku)
			return
		}
		if m := reImageEntry.FindStringSubmatch(sku); m != nil {
			images = append(images, imageEntry{sku: sku, parentSKU: m[1], position: m[2], rec: rec})
			return
		}

		row := p.Project(sku, rec)
		if row[ColImageSrc] != "" && row[ColImagePosition] == "" {
			row[ColImagePosition] = "1"
		}
		rows = append(rows, row)
		stats.MainRows++

		if h := row[ColHandle]; h != "" {
			if _, taken := byHandle[h]; !taken {
				byHandle[h] = row
			}
		}
		bySKU[strings.ToLower(sku)] = row
		if s := strings.ToLower(row[ColVariantSKU]); s != "" {
			bySKU[s] = row
		}
	})

	for _, img := range images {
		handle := img.rec.Text("Handle")
		parent, ok := byHandle[handle]
		if !ok {
			parent, ok = bySKU[strings.ToLower(img.parentSKU)]
		}

		var row Row
		switch {
		case ok:
			row = make(Row, len(parent))
			for k, v := range parent {
				row[k] = v
			}
		case strings.TrimSpace(handle) != "":
			row = p.Project(img.sku, img.rec)
		default:
			stats.Dropped = append(stats.Dropped, img.sku)
			continue
		}

		for _, col := range variantColumns {
			row[col] = ""
		}
		row[ColImageSrc] = img.rec.Text("Image Src")
		row[ColImagePosition] = img.rec.Text("Image Position")
		if row[ColImagePosition] == "" {
			row[ColImagePosition] = img.position
		}
		rows = append(rows, row)
		stats.ImageRows++
	}

	return rows, stats
}

func renderWeight(v any) string {
	switch t := v.(type) {
	case float64:
		return util.FormatNumber(t)
	case string:
		if w, ok := util.ParseWeight(t); ok {
			return util.FormatNumber(w)
		}
		return ""
	default:
		return ""
	}
}

func fallbackTitle(sku string, rec *catalog.Record) string {
	desc, ok := rec.Get(catalog.DescriptionField)
	if !ok || catalog.IsEmpty(desc) {
		return sku
	}
	if title := util.FirstSentence(html.UnescapeString(util.StripTags(catalog.Render(desc)))); title != "" {
		return title
	}
	return sku
}

// extensionValues picks, per extension column, the first non-empty unmapped field of
// rec in insertion order.
func extensionValues(rec *catalog.Record) map[string]string {
	out := map[string]string{}
	for _, field := range rec.Keys() {
		if !isUnmapped(field) {
			continue
		}
		key := util.MetafieldKey(field)
		if key == "" {
			continue
		}
		col := util.MetafieldColumn(key)
		if _, taken := out[col]; taken {
			continue
		}
		v, _ := rec.Get(field)
		if catalog.IsEmpty(v) {
			continue
		}
		out[col] = catalog.Render(v)
	}
	return out
}
