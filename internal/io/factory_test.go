package io

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"etl-template/internal/config"
	"etl-template/internal/db"
	"etl-template/internal/etlerr"
)

func TestNewInputReader(t *testing.T) {
	api := config.APIConfig{Endpoint: "https://api.example.com/entries", Timeout: 2.5}
	testCases := []struct {
		name     string
		cfg      config.SourceConfig
		wantType reflect.Type
		wantErr  bool
	}{
		{name: "API Reader", cfg: config.SourceConfig{Type: "api"}, wantType: reflect.TypeOf(&APIReader{})},
		{name: "XLSX Reader", cfg: config.SourceConfig{Type: "xlsx", File: "data/bot_data.xlsx"}, wantType: reflect.TypeOf(&XLSXReader{})},
		{name: "CSV Reader", cfg: config.SourceConfig{Type: "csv", File: "in.csv", Delimiter: ";"}, wantType: reflect.TypeOf(&CSVReader{})},
		{name: "CSV Reader Invalid Delimiter", cfg: config.SourceConfig{Type: "csv", File: "in.csv", Delimiter: "::"}, wantErr: true},
		{name: "Unsupported Type", cfg: config.SourceConfig{Type: "xml"}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reader, err := NewInputReader(tc.cfg, api, nil)
			if tc.wantErr {
				if !errors.Is(err, etlerr.ErrConfiguration) {
					t.Fatalf("NewInputReader() error = %v, want ErrConfiguration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewInputReader() unexpected error: %v", err)
			}
			if got := reflect.TypeOf(reader); got != tc.wantType {
				t.Errorf("NewInputReader() type = %v, want %v", got, tc.wantType)
			}
		})
	}
}

func TestNewInputReader_APISettings(t *testing.T) {
	api := config.APIConfig{Endpoint: "https://api.example.com/entries", Timeout: 2.5}

	reader, _ := NewInputReader(config.SourceConfig{Type: "api"}, api, nil)
	r := reader.(*APIReader)
	if r.Endpoint() != api.Endpoint {
		t.Errorf("endpoint = %q, want global %q", r.Endpoint(), api.Endpoint)
	}
	if r.client.Timeout != 2500*time.Millisecond {
		t.Errorf("timeout = %v, want 2.5s", r.client.Timeout)
	}

	reader, _ = NewInputReader(config.SourceConfig{Type: "api", Endpoint: "http://other/entries"}, api, nil)
	if got := reader.(*APIReader).Endpoint(); got != "http://other/entries" {
		t.Errorf("endpoint = %q, want the source override", got)
	}
}

func TestNewOutputWriter(t *testing.T) {
	conn, err := db.NewSQLConnector(db.Options{Driver: db.DriverSQLite, Database: ":memory:"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	testCases := []struct {
		name     string
		cfg      config.DestinationConfig
		conn     db.Connector
		wantType reflect.Type
		wantErr  bool
	}{
		{name: "SQL Writer", cfg: config.DestinationConfig{Type: "sql", Table: "api_demo"}, conn: conn, wantType: reflect.TypeOf(&SQLWriter{})},
		{name: "SQL Writer Without Connection", cfg: config.DestinationConfig{Type: "sql", Table: "api_demo"}, wantErr: true},
		{name: "SQL Writer Without Table", cfg: config.DestinationConfig{Type: "sql"}, conn: conn, wantErr: true},
		{name: "JSON Writer", cfg: config.DestinationConfig{Type: "json", File: "out.json"}, wantType: reflect.TypeOf(&JSONWriter{})},
		{name: "YAML Writer", cfg: config.DestinationConfig{Type: "yaml", File: "out.yaml"}, wantType: reflect.TypeOf(&YAMLWriter{})},
		{name: "XLSX Writer", cfg: config.DestinationConfig{Type: "xlsx", File: "out.xlsx"}, wantType: reflect.TypeOf(&XLSXWriter{})},
		{name: "CSV Writer", cfg: config.DestinationConfig{Type: "csv", File: "out.csv", Delimiter: ","}, wantType: reflect.TypeOf(&CSVWriter{})},
		{name: "CSV Writer Invalid Delimiter", cfg: config.DestinationConfig{Type: "csv", File: "out.csv", Delimiter: "ab"}, wantErr: true},
		{name: "Unsupported Type", cfg: config.DestinationConfig{Type: "postgres"}, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			writer, err := NewOutputWriter(tc.cfg, tc.conn, nil)
			if tc.wantErr {
				if !errors.Is(err, etlerr.ErrConfiguration) {
					t.Fatalf("NewOutputWriter() error = %v, want ErrConfiguration", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewOutputWriter() unexpected error: %v", err)
			}
			if got := reflect.TypeOf(writer); got != tc.wantType {
				t.Errorf("NewOutputWriter() type = %v, want %v", got, tc.wantType)
			}
			if err := writer.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}
