package pipeline

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestWriteCSV(t *testing.T) {
	header := []string{"Handle", "Body HTML", "Metafield: custom_fields.origin [single_line_text_field]"}
	rows := []Row{
		{"Handle": "a1", "Body HTML": `<p class="x">Hi, "you"</p>`},
		{"Handle": "b2"},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, header, rows); err != nil {
		t.Fatal(err)
	}
	want := "Handle,Body HTML,Metafield: custom_fields.origin [single_line_text_field]\r\n" +
		"a1,\"<p class=\"\"x\"\">Hi, \"\"you\"\"</p>\",\r\n" +
		"b2,,\r\n"
	if buf.String() != want {
		t.Fatalf("csv=%q", buf.String())
	}
}

func TestWriteCSVHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, []string{"Handle", "Title"}, nil); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Handle,Title\r\n" {
		t.Fatalf("csv=%q", buf.String())
	}
}

func TestExportRowsToXLSX(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "products.xlsx")
	header := []string{"Handle", "Variant Price"}
	if err := ExportRowsToXLSX(header, []Row{{"Handle": "a1", "Variant Price": "12"}}, out); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("len=%d", len(rows))
	}
	if rows[0][1] != "Variant Price" || rows[1][0] != "a1" || rows[1][1] != "12" {
		t.Fatalf("rows=%v", rows)
	}
}
