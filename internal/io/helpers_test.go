package io

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"etl-template/internal/config"
	"etl-template/internal/dataset"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3" // readable diffs
)

// Helper to create a temporary file with specific content.
func createTempFile(t *testing.T, content string, pattern string) string {
	t.Helper()
	tempFile, err := os.CreateTemp(t.TempDir(), pattern)
	if err != nil {
		t.Fatalf("Failed to create temp file (pattern: %s): %v", pattern, err)
	}
	filePath := tempFile.Name()
	if _, err := tempFile.WriteString(content); err != nil {
		_ = tempFile.Close()
		t.Fatalf("Failed to write to temp file %s: %v", filePath, err)
	}
	if err := tempFile.Close(); err != nil {
		t.Fatalf("Failed to close temp file %s: %v", filePath, err)
	}
	return filePath
}

// createTempXLSX writes data (first row is the header) to sheetName of a new
// workbook and makes that sheet active. nil cells are left empty.
func createTempXLSX(t *testing.T, sheetName string, data [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		t.Fatalf("Failed to create sheet '%s': %v", sheetName, err)
	}
	if sheetName != config.DefaultSheetName {
		if err := f.DeleteSheet(config.DefaultSheetName); err != nil {
			t.Fatalf("Failed to delete default sheet: %v", err)
		}
		index, _ = f.GetSheetIndex(sheetName)
	}
	f.SetActiveSheet(index)

	for r, rowData := range data {
		for c, v := range rowData {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("Failed to get cell coordinates: %v", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				t.Fatalf("Failed to set cell %s on sheet '%s': %v", cell, sheetName, err)
			}
		}
	}

	filePath := filepath.Join(t.TempDir(), "test.xlsx")
	if err := f.SaveAs(filePath); err != nil {
		t.Fatalf("Failed to save temp XLSX file %s: %v", filePath, err)
	}
	return filePath
}

// readXLSXFile reads back all rows from a sheet. A missing file gives nil.
func readXLSXFile(t *testing.T, filePath, sheetName string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		t.Fatalf("Failed to open XLSX file %s: %v", filePath, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	if err != nil {
		t.Fatalf("Failed to get rows from sheet '%s' in %s: %v", sheetName, filePath, err)
	}
	return rows
}

// newDataset builds a Dataset from rows of plain values in column order.
func newDataset(columns []string, rows ...[]interface{}) *dataset.Dataset {
	ds := dataset.New(columns...)
	for _, r := range rows {
		values := make([]dataset.Value, len(r))
		for i, v := range r {
			values[i] = dataset.ValueOf(v)
		}
		ds.AppendValues(values...)
	}
	return ds
}

// compareDatasets fails the test when got and want differ in columns, order
// or cell values (kinds included).
func compareDatasets(t *testing.T, got, want *dataset.Dataset) bool {
	t.Helper()
	if got.Equal(want) {
		return true
	}
	dump := func(ds *dataset.Dataset) string {
		if ds == nil {
			return "<nil>\n"
		}
		out, err := yaml.Marshal(map[string]interface{}{"columns": ds.Columns(), "rows": ds.Records()})
		if err != nil {
			return err.Error()
		}
		return string(out)
	}
	t.Errorf("Dataset mismatch:\n--- GOT ---\n%s--- WANT ---\n%s", dump(got), dump(want))
	return false
}

// assertKind checks that err carries the given error kind.
func assertKind(t *testing.T, err, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("error = %v, want kind %v", err, kind)
	}
}
