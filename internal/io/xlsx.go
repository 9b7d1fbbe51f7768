package io

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"etl-template/internal/config"
	"etl-template/internal/dataset"
	"etl-template/internal/etlerr"
	"etl-template/internal/logging"

	"github.com/xuri/excelize/v2"
)

// XLSXReader reads one sheet of an Excel workbook. This is the "bot"
// extractor: the workbook stands in for data scraped by an automation.
type XLSXReader struct {
	path       string
	sheetName  string
	sheetIndex *int
	logger     *logging.Logger
}

// NewXLSXReader creates an XLSXReader. sheetName wins over sheetIndex; with
// neither, the active sheet is read, falling back to the first one.
func NewXLSXReader(path, sheetName string, sheetIndex *int, logger *logging.Logger) *XLSXReader {
	if logger == nil {
		logger = logging.Discard()
	}
	return &XLSXReader{
		path:       path,
		sheetName:  sheetName,
		sheetIndex: sheetIndex,
		logger:     logger,
	}
}

// Path returns the workbook path.
func (xr *XLSXReader) Path() string { return xr.path }

// Extract implements InputReader. A missing workbook is ErrNotFound; an
// unreadable one, or a missing sheet, is ErrParse. Cells are read as their
// formatted text.
func (xr *XLSXReader) Extract(ctx context.Context) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	xr.logger.Logf(logging.Debug, "XLSXReader reading file: %s (SheetName: '%s', SheetIndex: %v)", xr.path, xr.sheetName, xr.sheetIndex)

	if _, err := os.Stat(xr.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, etlerr.NotFound(xr.path, err)
		}
		return nil, etlerr.Parse(xr.path, err)
	}

	f, err := excelize.OpenFile(xr.path)
	if err != nil {
		return nil, etlerr.Parse(xr.path, fmt.Errorf("open workbook: %w", err))
	}
	defer func() {
		if err := f.Close(); err != nil {
			xr.logger.Logf(logging.Warning, "XLSXReader failed to close file '%s': %v", xr.path, err)
		}
	}()

	sheet, err := xr.targetSheet(f)
	if err != nil {
		return nil, etlerr.Parse(xr.path, err)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, etlerr.Parse(xr.path, fmt.Errorf("read sheet '%s': %w", sheet, err))
	}
	if len(rows) == 0 {
		xr.logger.Logf(logging.Warning, "XLSX sheet '%s' in '%s' is empty.", sheet, xr.path)
	}

	ds := tableFromRows(rows)
	xr.logger.Logf(logging.Debug, "XLSXReader loaded %d rows from sheet '%s' in %s", ds.Len(), sheet, xr.path)
	return ds, nil
}

func (xr *XLSXReader) targetSheet(f *excelize.File) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", errors.New("workbook contains no sheets")
	}
	switch {
	case xr.sheetName != "":
		for _, name := range sheets {
			if name == xr.sheetName {
				return name, nil
			}
		}
		return "", fmt.Errorf("sheet '%s' not found (available: %v)", xr.sheetName, sheets)
	case xr.sheetIndex != nil:
		idx := *xr.sheetIndex
		if idx < 0 || idx >= len(sheets) {
			return "", fmt.Errorf("sheet index %d is out of bounds (0 to %d)", idx, len(sheets)-1)
		}
		return sheets[idx], nil
	}
	if name := f.GetSheetName(f.GetActiveSheetIndex()); name != "" {
		return name, nil
	}
	return sheets[0], nil
}

// XLSXWriter writes a Dataset to a single sheet of a new workbook.
type XLSXWriter struct {
	path      string
	sheetName string
	logger    *logging.Logger
}

// NewXLSXWriter creates an XLSXWriter. An empty sheetName means "Sheet1".
func NewXLSXWriter(path, sheetName string, logger *logging.Logger) *XLSXWriter {
	if sheetName == "" {
		sheetName = config.DefaultSheetName
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &XLSXWriter{path: path, sheetName: sheetName, logger: logger}
}

// Load implements OutputWriter. The workbook is replaced; columns keep the
// Dataset order.
func (xw *XLSXWriter) Load(ctx context.Context, ds *dataset.Dataset) error {
	if ds.IsEmpty() {
		xw.logger.Logf(logging.Info, "No data to save to %s.", xw.path)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := xw.write(ds); err != nil {
		return etlerr.Save(xw.path, err)
	}
	xw.logger.Logf(logging.Info, "Saved %d rows to sheet '%s' in %s.", ds.Len(), xw.sheetName, xw.path)
	return nil
}

func (xw *XLSXWriter) write(ds *dataset.Dataset) error {
	if err := ensureDir(xw.path); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	// A new workbook holds "Sheet1"; rename it rather than adding a sheet.
	if xw.sheetName != config.DefaultSheetName {
		if err := f.SetSheetName(config.DefaultSheetName, xw.sheetName); err != nil {
			return fmt.Errorf("rename sheet to '%s': %w", xw.sheetName, err)
		}
	}
	idx, err := f.GetSheetIndex(xw.sheetName)
	if err != nil || idx < 0 {
		return fmt.Errorf("sheet '%s' is not usable: %v", xw.sheetName, err)
	}
	f.SetActiveSheet(idx)

	cols := ds.Columns()
	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := f.SetSheetRow(xw.sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	for i := 0; i < ds.Len(); i++ {
		values := ds.Values(i)
		row := make([]interface{}, len(values))
		for j, v := range values {
			if v.Kind() == dataset.Bool {
				row[j] = strconv.FormatBool(v.Interface().(bool))
			} else {
				row[j] = v.Interface()
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell coordinates for row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(xw.sheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(xw.path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// Close implements OutputWriter. Nothing is held between loads.
func (xw *XLSXWriter) Close() error { return nil }
