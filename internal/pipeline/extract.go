package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"catalogcsv/internal/catalog"
	"catalogcsv/internal/util"
)

// ErrMalformedSource marks a source that exists but has no recognizable shape.
var ErrMalformedSource = errors.New("malformed source")

// skuColumnPatterns are tried in order; a header matches when it equals or contains one.
var skuColumnPatterns = []string{"SKU", "Variant SKU", "sku", "variant_sku", "Sku"}

var (
	reTabRuns   = regexp.MustCompile(`\t+`)
	rePDFColumn = regexp.MustCompile(`\t+| {2,}`)
)

// parseDescriptionsDocx reads SKU → description pairs from the first table of a
// document, falling back to tab-separated lines when the document has no table.
func parseDescriptionsDocx(content []byte) (*catalog.Catalog, error) {
	doc, err := readDocx(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	if strings.Contains(doc.HTML, "<table>") {
		return parseDescriptionTable(doc.HTML)
	}
	return parseDescriptionLines(doc.Text, reTabRuns), nil
}

// literalQuotes undoes the quote escaping the HTML renderer applies to text nodes.
var literalQuotes = strings.NewReplacer("&#39;", "'", "&#34;", `"`)

// parseDescriptionTable keeps the first cell as plain text (the SKU) and the second
// cell as HTML (the description body).
func parseDescriptionTable(html string) (*catalog.Catalog, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}

	out := catalog.New()
	table := doc.Find("table").First()
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if row.Closest("table").Get(0) != table.Get(0) {
			return
		}
		cells := row.ChildrenFiltered("td,th")
		if cells.Length() < 2 {
			return
		}

		key := normalizeCellText(cells.Eq(0).Text())
		if !util.IsValidSKU(key) {
			return
		}
		body, err := cells.Eq(1).Html()
		if err != nil {
			body = ""
		}
		out.Put(util.NormalizeSKU(key), catalog.RecordOf(catalog.DescriptionField, literalQuotes.Replace(body)))
	})
	return out, nil
}

func parseDescriptionLines(text string, separator *regexp.Regexp) *catalog.Catalog {
	out := catalog.New()
	for _, line := range splitLines(text) {
		columns := []string{}
		for _, col := range separator.Split(line, -1) {
			if strings.TrimSpace(col) != "" {
				columns = append(columns, col)
			}
		}
		if len(columns) < 2 {
			continue
		}
		if !util.IsValidSKU(columns[0]) {
			continue
		}
		out.Put(util.NormalizeSKU(columns[0]), catalog.RecordOf(catalog.DescriptionField, columns[1]))
	}
	return out
}

// parseDescriptionsPDF applies the line heuristic to extracted page text. PDF text
// loses tabs more often than not, so runs of two or more spaces also split columns.
func parseDescriptionsPDF(content []byte) (*catalog.Catalog, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}

	var text strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		text.WriteString(pageText)
		text.WriteByte('\n')
	}
	return parseDescriptionLines(text.String(), rePDFColumn), nil
}

// parseSpreadsheet reads the first sheet into SKU → row records. The header is row 1
// when it names a SKU column; otherwise row 2 is the header and data starts at row 4,
// the layout of the platform's own export template.
func parseSpreadsheet(content []byte) (*catalog.Catalog, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformedSource)
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}

	headerIdx, dataStart := 0, 1
	skuIdx := -1
	if len(rows) > 0 {
		skuIdx = findSKUColumn(rows[0])
	}
	if skuIdx < 0 && len(rows) > 1 {
		if idx := findSKUColumn(rows[1]); idx >= 0 {
			headerIdx, dataStart, skuIdx = 1, 3, idx
		}
	}
	if skuIdx < 0 {
		return nil, fmt.Errorf("%w: no SKU column in %q", ErrMalformedSource, sheet)
	}

	headers := rows[headerIdx]
	out := catalog.New()
	for r := dataStart; r < len(rows); r++ {
		row := rows[r]
		if skuIdx >= len(row) {
			continue
		}
		sku := catalog.Render(typedCell(f, sheet, skuIdx, r, row[skuIdx]))
		if !util.IsValidSKU(sku) {
			continue
		}

		sku = util.NormalizeSKU(sku)
		rec := catalog.NewRecord()
		for c, header := range headers {
			if strings.TrimSpace(header) == "" {
				continue
			}
			var value any = ""
			switch {
			case c == skuIdx:
				value = sku
			case c < len(row):
				value = typedCell(f, sheet, c, r, row[c])
			}
			rec.Set(header, value)
		}
		out.Put(sku, rec)
	}
	return out, nil
}

func findSKUColumn(headers []string) int {
	for _, pattern := range skuColumnPatterns {
		p := strings.ToLower(pattern)
		for i, h := range headers {
			lh := strings.ToLower(h)
			if lh == p || strings.Contains(lh, p) {
				return i
			}
		}
	}
	return -1
}

// typedCell keeps the spreadsheet's own typing: numeric cells become float64 and
// boolean cells bool, so the hand-off JSON tells 12 from "12".
func typedCell(f *excelize.File, sheet string, col, row int, raw string) any {
	if raw == "" {
		return ""
	}
	cell, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return raw
	}
	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return raw
	}
	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return raw
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeCellText(input string) string {
	return strings.TrimSpace(strings.ReplaceAll(input, "\u00a0", " "))
}
