package io

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"etl-template/internal/dataset"
	"etl-template/internal/etlerr"
	"etl-template/internal/logging"

	"gopkg.in/yaml.v3"
)

// yamlDocument builds a sequence of mappings with keys in column order.
func yamlDocument(ds *dataset.Dataset) (*yaml.Node, error) {
	cols := ds.Columns()
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for i := 0; i < ds.Len(); i++ {
		m := &yaml.Node{Kind: yaml.MappingNode}
		for j, v := range ds.Values(i) {
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: cols[j]}
			val := &yaml.Node{}
			if err := val.Encode(v.Interface()); err != nil {
				return nil, fmt.Errorf("row %d column '%s': %w", i+1, cols[j], err)
			}
			m.Content = append(m.Content, key, val)
		}
		seq.Content = append(seq.Content, m)
	}
	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{seq}}, nil
}

// YAMLWriter writes a Dataset as a YAML list of mappings.
type YAMLWriter struct {
	path   string
	logger *logging.Logger
}

// NewYAMLWriter creates a YAMLWriter for path.
func NewYAMLWriter(path string, logger *logging.Logger) *YAMLWriter {
	if logger == nil {
		logger = logging.Discard()
	}
	return &YAMLWriter{path: path, logger: logger}
}

// Load implements OutputWriter.
func (yw *YAMLWriter) Load(ctx context.Context, ds *dataset.Dataset) error {
	if ds.IsEmpty() {
		yw.logger.Logf(logging.Info, "No data to save to %s.", yw.path)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := yamlDocument(ds)
	if err != nil {
		return etlerr.Save(yw.path, err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return etlerr.Save(yw.path, fmt.Errorf("marshal records: %w", err))
	}
	if err := enc.Close(); err != nil {
		return etlerr.Save(yw.path, fmt.Errorf("marshal records: %w", err))
	}
	if err := ensureDir(yw.path); err != nil {
		return etlerr.Save(yw.path, err)
	}
	if err := os.WriteFile(yw.path, buf.Bytes(), 0o644); err != nil {
		return etlerr.Save(yw.path, err)
	}
	yw.logger.Logf(logging.Info, "Saved %d rows to %s.", ds.Len(), yw.path)
	return nil
}

// Close implements OutputWriter.
func (yw *YAMLWriter) Close() error { return nil }
