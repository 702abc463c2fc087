package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"catalogcsv/internal"
	"catalogcsv/internal/catalog"
)

// ErrSourceMissing is returned for an input file that does not exist. Callers treat it
// as an empty contribution, not a failure.
var ErrSourceMissing = errors.New("source not found")

// TemplateBodyField is the spreadsheet column that carries the product body.
const TemplateBodyField = "Body (HTML)"

// LoadSource reads one input file and returns it as a merge source of the given kind.
func LoadSource(kind internal.SourceKind, path string) (catalog.Source, error) {
	src := catalog.Source{Kind: kind, Name: filepath.Base(path)}

	blob, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return src, fmt.Errorf("%w: %s", ErrSourceMissing, path)
	}
	if err != nil {
		return src, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	var records *catalog.Catalog
	switch kind {
	case internal.SourceDescriptions:
		src.DescriptionField = catalog.DescriptionField
		switch ext {
		case ".docx":
			records, err = parseDescriptionsDocx(blob)
		case ".pdf":
			records, err = parseDescriptionsPDF(blob)
		case ".txt", ".tsv":
			records = parseDescriptionLines(string(blob), reTabRuns)
		default:
			err = fmt.Errorf("%w: unsupported description format %q", ErrMalformedSource, ext)
		}
	case internal.SourceTags, internal.SourceTemplate:
		src.DescriptionField = TemplateBodyField
		switch ext {
		case ".xlsx", ".xlsm":
			records, err = parseSpreadsheet(blob)
		default:
			err = fmt.Errorf("%w: unsupported spreadsheet format %q", ErrMalformedSource, ext)
		}
	default:
		err = fmt.Errorf("unsupported source kind: %s", kind)
	}
	if err != nil {
		return src, fmt.Errorf("%s: %w", path, err)
	}

	src.Records = records
	return src, nil
}
