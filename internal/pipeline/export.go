package pipeline

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// WriteCSV writes header and rows as RFC 4180 CSV with CRLF line endings. Every header
// column is written on every row, empty when the row has no value for it.
func WriteCSV(w io.Writer, header []string, rows []Row) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, col := range header {
			record[i] = row[col]
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ExportRowsToCSV(header []string, rows []Row, outputPath string) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, header, rows); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, buf.Bytes(), 0o644)
}

// ExportRowsToXLSX writes the same table into the first sheet of a workbook. Cells are
// written as strings so the sheet matches the CSV byte for byte.
func ExportRowsToXLSX(header []string, rows []Row, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellStr(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		for c, col := range header {
			value := row[col]
			if value == "" {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r)
			_ = f.SetCellStr(sheet, cell, value)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
