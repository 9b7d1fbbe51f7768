package io

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"etl-template/internal/dataset"
	"etl-template/internal/etlerr"
	"etl-template/internal/logging"
)

// orderedRecord marshals one row as a JSON object with keys in column order.
type orderedRecord struct {
	columns []string
	values  []dataset.Value
}

func (r orderedRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("column '%s': %w", c, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeJSON renders ds as an indented array of objects.
func encodeJSON(ds *dataset.Dataset) ([]byte, error) {
	cols := ds.Columns()
	records := make([]orderedRecord, ds.Len())
	for i := range records {
		records[i] = orderedRecord{columns: cols, values: ds.Values(i)}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// JSONWriter writes a Dataset as a JSON array of objects.
type JSONWriter struct {
	path   string
	logger *logging.Logger
}

// NewJSONWriter creates a JSONWriter for path.
func NewJSONWriter(path string, logger *logging.Logger) *JSONWriter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &JSONWriter{path: path, logger: logger}
}

// Load implements OutputWriter. Keys follow the Dataset column order; Null
// cells are written as null.
func (jw *JSONWriter) Load(ctx context.Context, ds *dataset.Dataset) error {
	if ds.IsEmpty() {
		jw.logger.Logf(logging.Info, "No data to save to %s.", jw.path)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeJSON(ds)
	if err != nil {
		return etlerr.Save(jw.path, fmt.Errorf("marshal records: %w", err))
	}
	if err := ensureDir(jw.path); err != nil {
		return etlerr.Save(jw.path, err)
	}
	if err := os.WriteFile(jw.path, data, 0o644); err != nil {
		return etlerr.Save(jw.path, err)
	}
	jw.logger.Logf(logging.Info, "Saved %d rows to %s.", ds.Len(), jw.path)
	return nil
}

// Close implements OutputWriter.
func (jw *JSONWriter) Close() error { return nil }
