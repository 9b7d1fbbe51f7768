package io

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"etl-template/internal/dataset"
)

// headerNames names the columns of a sheet from its first row. Blank headers
// become "Unnamed: <index>", repeated names get ".1", ".2", ... suffixes.
// width is the widest row of the sheet, so data cells past the header row
// still get a column.
func headerNames(raw []string, width int) []string {
	if width < len(raw) {
		width = len(raw)
	}
	out := make([]string, width)
	used := make(map[string]bool, width)
	counts := make(map[string]int)
	for i := 0; i < width; i++ {
		name := ""
		if i < len(raw) {
			name = strings.TrimSpace(raw[i])
		}
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if used[name] {
			base := name
			for used[name] {
				counts[base]++
				name = fmt.Sprintf("%s.%d", base, counts[base])
			}
		}
		used[name] = true
		out[i] = name
	}
	return out
}

// tableFromRows turns a header row plus data rows of text cells into a
// Dataset. Empty cells are Null and rows without any value are skipped.
func tableFromRows(rows [][]string) *dataset.Dataset {
	if len(rows) == 0 {
		return dataset.New()
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	ds := dataset.New(headerNames(rows[0], width)...)
	for _, r := range rows[1:] {
		if isBlankRow(r) {
			continue
		}
		values := make([]dataset.Value, width)
		for i, cell := range r {
			if cell != "" {
				values[i] = dataset.TextValue(cell)
			}
		}
		ds.AppendValues(values...)
	}
	return ds
}

func isBlankRow(r []string) bool {
	for _, cell := range r {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ensureDir creates the parent directory of path.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory for '%s': %w", path, err)
	}
	return nil
}
