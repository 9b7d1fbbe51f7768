package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Dialect spells the handful of statements the SQL saver needs for one driver.
type Dialect struct {
	name        string
	textType    string
	quotePart   func(string) string
	placeholder func(int) string
	// quoteName overrides quotePart for the whole dotted name when set.
	quoteName func([]string) string
	dropTable func(quoted string) string
}

var dialects = map[string]Dialect{
	DriverSQLServer: {
		name:     DriverSQLServer,
		textType: "NVARCHAR(MAX)",
		quotePart: func(s string) string {
			return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
		},
		placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
		dropTable: func(q string) string {
			lit := strings.ReplaceAll(q, "'", "''")
			return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NOT NULL DROP TABLE %s", lit, q)
		},
	},
	DriverPostgres: postgresDialect(DriverPostgres),
	DriverPGX:      postgresDialect(DriverPGX),
	DriverMySQL: {
		name:     DriverMySQL,
		textType: "LONGTEXT",
		quotePart: func(s string) string {
			return "`" + strings.ReplaceAll(s, "`", "``") + "`"
		},
		placeholder: func(int) string { return "?" },
		dropTable:   dropIfExists,
	},
	DriverSQLite: {
		name:     DriverSQLite,
		textType: "TEXT",
		quotePart: func(s string) string {
			return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
		},
		placeholder: func(int) string { return "?" },
		dropTable:   dropIfExists,
	},
}

func postgresDialect(name string) Dialect {
	return Dialect{
		name:        name,
		textType:    "TEXT",
		quoteName:   func(parts []string) string { return pgx.Identifier(parts).Sanitize() },
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		dropTable:   dropIfExists,
	}
}

func dropIfExists(q string) string { return "DROP TABLE IF EXISTS " + q }

// DialectFor returns the dialect of a driver name.
func DialectFor(driver string) (Dialect, error) {
	d, ok := dialects[strings.ToLower(driver)]
	if !ok {
		return Dialect{}, fmt.Errorf("no SQL dialect for driver '%s'", driver)
	}
	return d, nil
}

// Name returns the driver name.
func (d Dialect) Name() string { return d.name }

// TextType is the unbounded text column type.
func (d Dialect) TextType() string { return d.textType }

// QuoteTable quotes a possibly schema-qualified table name ("dbo.api_demo").
func (d Dialect) QuoteTable(name string) string {
	parts := strings.Split(name, ".")
	if d.quoteName != nil {
		return d.quoteName(parts)
	}
	for i, p := range parts {
		parts[i] = d.quotePart(p)
	}
	return strings.Join(parts, ".")
}

// QuoteColumn quotes a single column name. Dots are kept as part of the name.
func (d Dialect) QuoteColumn(name string) string {
	if d.quoteName != nil {
		return d.quoteName([]string{name})
	}
	return d.quotePart(name)
}

// Placeholder returns the n-th (1-based) statement parameter marker.
func (d Dialect) Placeholder(n int) string { return d.placeholder(n) }

// DropTable returns a statement dropping table when it exists.
func (d Dialect) DropTable(table string) string {
	return d.dropTable(d.QuoteTable(table))
}

// CreateTable returns a statement creating table with one text column per name.
func (d Dialect) CreateTable(table string, columns []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = d.QuoteColumn(c) + " " + d.textType
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", d.QuoteTable(table), strings.Join(defs, ", "))
}

// Insert returns a parameterized single-row INSERT naming every column.
func (d Dialect) Insert(table string, columns []string) string {
	cols := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = d.QuoteColumn(c)
		marks[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteTable(table), strings.Join(cols, ", "), strings.Join(marks, ", "))
}
