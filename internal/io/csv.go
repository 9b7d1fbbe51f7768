package io

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"etl-template/internal/dataset"
	"etl-template/internal/etlerr"
	"etl-template/internal/logging"
)

const utf8BOM = "\ufeff"

// parseDelimiter validates a single-character delimiter. Empty means comma.
func parseDelimiter(delimiter string) (rune, error) {
	if delimiter == "" {
		return ',', nil
	}
	if utf8.RuneCountInString(delimiter) != 1 {
		return 0, fmt.Errorf("invalid delimiter '%s': must be a single character", delimiter)
	}
	r, _ := utf8.DecodeRuneInString(delimiter)
	if r == '\r' || r == '\n' || r == '"' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter '%s'", delimiter)
	}
	return r, nil
}

// CSVReader reads a delimited text export of the bot spreadsheet.
type CSVReader struct {
	path      string
	delimiter rune
	logger    *logging.Logger
}

// NewCSVReader creates a CSVReader, validating the delimiter.
func NewCSVReader(path, delimiter string, logger *logging.Logger) (*CSVReader, error) {
	delim, err := parseDelimiter(delimiter)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &CSVReader{path: path, delimiter: delim, logger: logger}, nil
}

// Extract implements InputReader. The first record is the header. Rows may
// have a varying number of fields; empty fields are Null.
func (cr *CSVReader) Extract(ctx context.Context) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cr.logger.Logf(logging.Debug, "CSVReader reading file: %s (Delimiter: '%c')", cr.path, cr.delimiter)

	f, err := os.Open(cr.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, etlerr.NotFound(cr.path, err)
		}
		return nil, etlerr.Parse(cr.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = cr.delimiter
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, etlerr.Parse(cr.path, fmt.Errorf("line %d, column %d: %w", parseErr.Line, parseErr.Column, parseErr.Err))
		}
		return nil, etlerr.Parse(cr.path, err)
	}
	if len(rows) == 0 {
		cr.logger.Logf(logging.Warning, "CSV file '%s' is empty.", cr.path)
		return dataset.New(), nil
	}
	if len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], utf8BOM)
	}

	ds := tableFromRows(rows)
	cr.logger.Logf(logging.Debug, "CSVReader loaded %d rows from %s", ds.Len(), cr.path)
	return ds, nil
}

// CSVWriter writes a Dataset as a delimited file with a header row.
type CSVWriter struct {
	path      string
	delimiter rune
	logger    *logging.Logger
}

// NewCSVWriter creates a CSVWriter, validating the delimiter.
func NewCSVWriter(path, delimiter string, logger *logging.Logger) (*CSVWriter, error) {
	delim, err := parseDelimiter(delimiter)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &CSVWriter{path: path, delimiter: delim, logger: logger}, nil
}

// Load implements OutputWriter. Null cells are written as empty fields.
func (cw *CSVWriter) Load(ctx context.Context, ds *dataset.Dataset) error {
	if ds.IsEmpty() {
		cw.logger.Logf(logging.Info, "No data to save to %s.", cw.path)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cw.write(ds); err != nil {
		return etlerr.Save(cw.path, err)
	}
	cw.logger.Logf(logging.Info, "Saved %d rows to %s.", ds.Len(), cw.path)
	return nil
}

func (cw *CSVWriter) write(ds *dataset.Dataset) (err error) {
	if err := ensureDir(cw.path); err != nil {
		return err
	}
	f, err := os.Create(cw.path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close file: %w", cerr)
		}
	}()

	w := csv.NewWriter(f)
	w.Comma = cw.delimiter
	if err := w.Write(ds.Columns()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < ds.Len(); i++ {
		values := ds.Values(i)
		record := make([]string, len(values))
		for j, v := range values {
			record[j] = v.String()
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

// Close implements OutputWriter. Nothing is held between loads.
func (cw *CSVWriter) Close() error { return nil }
