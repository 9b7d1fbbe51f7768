package io

import (
	"fmt"
	"time"

	"etl-template/internal/config"
	"etl-template/internal/db"
	"etl-template/internal/etlerr"
	"etl-template/internal/logging"
)

// NewInputReader creates the extractor for a pipeline source. api carries the
// global endpoint and timeout; a source endpoint overrides the former.
func NewInputReader(src config.SourceConfig, api config.APIConfig, logger *logging.Logger) (InputReader, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	logger.Logf(logging.Debug, "Creating input reader for type: %s", src.Type)

	switch src.Type {
	case config.SourceTypeAPI:
		endpoint := src.Endpoint
		if endpoint == "" {
			endpoint = api.Endpoint
		}
		timeout := time.Duration(api.Timeout * float64(time.Second))
		return NewAPIReader(endpoint, timeout, logger), nil
	case config.SourceTypeXLSX:
		return NewXLSXReader(src.File, src.SheetName, src.SheetIndex, logger), nil
	case config.SourceTypeCSV:
		reader, err := NewCSVReader(src.File, src.Delimiter, logger)
		if err != nil {
			return nil, etlerr.Configuration(src.File, fmt.Errorf("failed to create CSV reader: %w", err))
		}
		return reader, nil
	default:
		return nil, etlerr.Configuration("", fmt.Errorf("unsupported source type '%s'", src.Type))
	}
}

// NewOutputWriter creates the loader for a pipeline destination. conn is
// only used by sql destinations and may be nil otherwise.
func NewOutputWriter(dst config.DestinationConfig, conn db.Connector, logger *logging.Logger) (OutputWriter, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	logger.Logf(logging.Debug, "Creating output writer for type: %s", dst.Type)

	switch dst.Type {
	case config.DestinationTypeSQL:
		return NewSQLWriter(conn, dst.Table, dst.InsertFile, logger)
	case config.DestinationTypeJSON:
		return NewJSONWriter(dst.File, logger), nil
	case config.DestinationTypeYAML:
		return NewYAMLWriter(dst.File, logger), nil
	case config.DestinationTypeXLSX:
		return NewXLSXWriter(dst.File, dst.SheetName, logger), nil
	case config.DestinationTypeCSV:
		writer, err := NewCSVWriter(dst.File, dst.Delimiter, logger)
		if err != nil {
			return nil, etlerr.Configuration(dst.File, fmt.Errorf("failed to create CSV writer: %w", err))
		}
		return writer, nil
	default:
		return nil, etlerr.Configuration("", fmt.Errorf("unsupported destination type '%s'", dst.Type))
	}
}
