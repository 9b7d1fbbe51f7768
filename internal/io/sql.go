package io

import (
	"context"
	"errors"
	"fmt"

	"etl-template/internal/dataset"
	"etl-template/internal/db"
	"etl-template/internal/etlerr"
	"etl-template/internal/logging"
)

// SQLWriter replaces a table with the contents of a Dataset. Every column is
// created with the dialect's unbounded text type.
type SQLWriter struct {
	conn       db.Connector
	table      string
	insertFile string
	logger     *logging.Logger
}

// NewSQLWriter creates a SQLWriter on an already configured connector. When
// insertFile is set, each row is inserted with the statement held in that
// file (parameters in column order) and the table is not recreated.
func NewSQLWriter(conn db.Connector, table, insertFile string, logger *logging.Logger) (*SQLWriter, error) {
	if conn == nil {
		return nil, etlerr.Configuration(table, errors.New("sql destination needs a database connection"))
	}
	if table == "" {
		return nil, etlerr.Configuration("", errors.New("sql destination needs a table"))
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &SQLWriter{conn: conn, table: table, insertFile: insertFile, logger: logger}, nil
}

// Table returns the destination table name.
func (w *SQLWriter) Table() string { return w.table }

// Load implements OutputWriter: drop the table if it exists, create it from
// the Dataset columns, then insert the rows one by one. An empty Dataset
// leaves the table untouched.
func (w *SQLWriter) Load(ctx context.Context, ds *dataset.Dataset) error {
	if ds.IsEmpty() {
		w.logger.Logf(logging.Info, "No data to save to table %s.", w.table)
		return nil
	}
	cols := ds.Columns()

	var insert func(args []interface{}) error
	if w.insertFile == "" {
		d := w.conn.Dialect()
		if _, err := w.conn.Execute(ctx, d.DropTable(w.table)); err != nil {
			return w.fail("drop table", err)
		}
		if _, err := w.conn.Execute(ctx, d.CreateTable(w.table, cols)); err != nil {
			return w.fail("create table", err)
		}
		stmt := d.Insert(w.table, cols)
		insert = func(args []interface{}) error {
			_, err := w.conn.Execute(ctx, stmt, args...)
			return err
		}
	} else {
		w.logger.Logf(logging.Debug, "Inserting into %s with statement from %s", w.table, w.insertFile)
		insert = func(args []interface{}) error {
			_, err := w.conn.ExecuteFromFile(ctx, w.insertFile, args...)
			return err
		}
	}

	args := make([]interface{}, len(cols))
	for i := 0; i < ds.Len(); i++ {
		for j, v := range ds.Values(i) {
			args[j] = v.SQLArg()
		}
		if err := insert(args); err != nil {
			return w.fail(fmt.Sprintf("insert row %d", i+1), err)
		}
	}
	w.logger.Logf(logging.Info, "Saved %d rows to table %s.", ds.Len(), w.table)
	return nil
}

func (w *SQLWriter) fail(action string, err error) error {
	w.logger.Logf(logging.Debug, "%s on %s failed: %s", action, w.table, db.DescribeError(err))
	return etlerr.Save(w.table, fmt.Errorf("%s: %w", action, err))
}

// Close implements OutputWriter. The connection belongs to the runner.
func (w *SQLWriter) Close() error { return nil }
