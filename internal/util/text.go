package util

import (
	"regexp"
	"strings"
)

var (
	reNonAlnum    = regexp.MustCompile(`[^a-z0-9]+`)
	reTags        = regexp.MustCompile(`<[^>]+>`)
	reSentenceEnd = regexp.MustCompile(`[.!?]`)
	reEdgeUnders  = regexp.MustCompile(`^_+|_+$`)
)

// reservedSKUs are column-header words a naive reader can mistake for data rows.
var reservedSKUs = map[string]struct{}{
	"SKU":         {},
	"VARIANT SKU": {},
	"NAME":        {},
	"TITLE":       {},
	"HANDLE":      {},
	"DESCRIPTION": {},
	"BODY HTML":   {},
	"BODY (HTML)": {},
	"NAVIGATION":  {},
	"PORTIONS":    {},
	"TEA WEIGHT":  {},
	"PACKAGING":   {},
	"GIFT TYPE":   {},
}

// NormalizeSKU trims and upper-cases an identifier. Empty input yields "".
func NormalizeSKU(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func IsValidSKU(raw string) bool {
	sku := NormalizeSKU(raw)
	if sku == "" {
		return false
	}
	_, reserved := reservedSKUs[sku]
	return !reserved
}

// Handleize lower-cases s and collapses every run of non-alphanumerics to a single hyphen.
func Handleize(s string) string {
	return reNonAlnum.ReplaceAllString(strings.ToLower(s), "-")
}

func StripTags(html string) string {
	return reTags.ReplaceAllString(html, "")
}

// FirstSentence returns the trimmed text before the first '.', '!' or '?'.
func FirstSentence(text string) string {
	text = strings.TrimSpace(text)
	if loc := reSentenceEnd.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	return strings.TrimSpace(text)
}

// MetafieldKey maps an attribute name onto the namespace-safe key used in
// extension columns: lower-case, non-alphanumeric runs as "_", no edge underscores.
func MetafieldKey(name string) string {
	key := reNonAlnum.ReplaceAllString(strings.ToLower(name), "_")
	return reEdgeUnders.ReplaceAllString(key, "")
}

func MetafieldColumn(key string) string {
	return "Metafield: custom_fields." + key + " [single_line_text_field]"
}
