// Package db owns the relational connection shared by every pipeline of a run.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"etl-template/internal/etlerr"
	"etl-template/internal/logging"
	"etl-template/internal/util"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
)

// Connector is the connection lifecycle plus statement execution used by the SQL saver.
type Connector interface {
	// Connect opens the connection. Calling it on an open connector is a no-op.
	Connect(ctx context.Context) error
	// Disconnect releases the connection. Safe to call more than once.
	Disconnect() error
	// Execute runs one parameterized statement and returns the affected row count.
	Execute(ctx context.Context, stmt string, args ...interface{}) (int64, error)
	// ExecuteFromFile runs the statement stored in path. The file is read once.
	ExecuteFromFile(ctx context.Context, path string, args ...interface{}) (int64, error)
	Dialect() Dialect
}

// ErrNotConnected is returned by Execute before Connect or after Disconnect.
var ErrNotConnected = errors.New("database is not connected")

// sqlOpenFunc allows overriding sql.Open for testing.
var sqlOpenFunc = sql.Open

// SQLConnector implements Connector on database/sql.
type SQLConnector struct {
	driverName string
	dsn        string
	dialect    Dialect
	logger     *logging.Logger

	mu    sync.Mutex
	db    *sql.DB
	files map[string]string
}

// NewSQLConnector validates opts and prepares a connector. Nothing is opened yet.
func NewSQLConnector(opts Options, logger *logging.Logger) (*SQLConnector, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	driverName, dsn, err := BuildDSN(opts)
	if err != nil {
		return nil, etlerr.Configuration("database", err)
	}
	dialect, err := DialectFor(driverName)
	if err != nil {
		return nil, etlerr.Configuration("database", err)
	}
	return &SQLConnector{
		driverName: driverName,
		dsn:        dsn,
		dialect:    dialect,
		logger:     logger,
		files:      make(map[string]string),
	}, nil
}

// Target is the masked connection string, safe to log.
func (c *SQLConnector) Target() string {
	return c.driverName + " " + util.MaskCredentials(c.dsn)
}

// Dialect implements Connector.
func (c *SQLConnector) Dialect() Dialect { return c.dialect }

// Connect implements Connector. The pool is limited to a single connection,
// so statements run serially on one session.
func (c *SQLConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return nil
	}

	c.logger.Logf(logging.Debug, "Opening database connection: %s", c.Target())
	db, err := sqlOpenFunc(c.driverName, c.dsn)
	if err != nil {
		return etlerr.Connection(c.Target(), err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		c.logger.Logf(logging.Debug, "Ping failed: %s", DescribeError(err))
		return etlerr.Connection(c.Target(), err)
	}
	c.db = db
	c.logger.Logf(logging.Info, "Connected to %s database.", c.driverName)
	return nil
}

// Disconnect implements Connector.
func (c *SQLConnector) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	if err != nil {
		return fmt.Errorf("close %s connection: %w", c.driverName, err)
	}
	c.logger.Logf(logging.Info, "Database connection closed.")
	return nil
}

func (c *SQLConnector) handle() (*sql.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil, ErrNotConnected
	}
	return c.db, nil
}

// Execute implements Connector.
func (c *SQLConnector) Execute(ctx context.Context, stmt string, args ...interface{}) (int64, error) {
	db, err := c.handle()
	if err != nil {
		return 0, err
	}
	c.logger.Logf(logging.Debug, "Executing: %s (%d args)", stmt, len(args))
	res, err := db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("execute statement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers do not report it for DDL.
		return 0, nil
	}
	return n, nil
}

// ExecuteFromFile implements Connector. A missing file is ErrNotFound.
func (c *SQLConnector) ExecuteFromFile(ctx context.Context, path string, args ...interface{}) (int64, error) {
	stmt, err := c.statementFromFile(path)
	if err != nil {
		return 0, err
	}
	return c.Execute(ctx, stmt, args...)
}

func (c *SQLConnector) statementFromFile(path string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if stmt, ok := c.files[path]; ok {
		return stmt, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", etlerr.NotFound(path, err)
		}
		return "", fmt.Errorf("read SQL file '%s': %w", path, err)
	}
	stmt := strings.TrimSpace(string(b))
	stmt = strings.TrimSuffix(stmt, ";")
	if stmt == "" {
		return "", fmt.Errorf("SQL file '%s' is empty", path)
	}
	c.files[path] = stmt
	return stmt, nil
}

// DescribeError renders driver-specific error fields (SQLSTATE, error
// numbers, details) for logging. Unknown errors render as err.Error().
func DescribeError(err error) string {
	if err == nil {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		msg := fmt.Sprintf("postgres %s SQLSTATE %s: %s", pgErr.Severity, pgErr.Code, pgErr.Message)
		if pgErr.Detail != "" {
			msg += " | detail: " + pgErr.Detail
		}
		if pgErr.Hint != "" {
			msg += " | hint: " + pgErr.Hint
		}
		return msg
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		msg := fmt.Sprintf("postgres %s SQLSTATE %s: %s", pqErr.Severity, pqErr.Code, pqErr.Message)
		if pqErr.Detail != "" {
			msg += " | detail: " + pqErr.Detail
		}
		return msg
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return fmt.Sprintf("sqlserver error %d (state %d, class %d): %s", msErr.Number, msErr.State, msErr.Class, msErr.Message)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return fmt.Sprintf("mysql error %d: %s", myErr.Number, myErr.Message)
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return fmt.Sprintf("sqlite error %d: %s", liteErr.Code(), liteErr.Error())
	}
	return err.Error()
}
