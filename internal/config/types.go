package config

// Define constants for configuration keys, types, modes etc.
const (
	SourceTypeAPI  = "api"
	SourceTypeXLSX = "xlsx"
	SourceTypeCSV  = "csv"

	DestinationTypeSQL  = "sql"
	DestinationTypeJSON = "json"
	DestinationTypeYAML = "yaml"
	DestinationTypeXLSX = "xlsx"
	DestinationTypeCSV  = "csv"

	KindAPI = "api" // Remote JSON API, cleaned with drop_duplicates + drop_na.
	KindBot = "bot" // Spreadsheet "bot" extraction, cleaned with drop_duplicates + fill_na.

	RuleDropDuplicates = "drop_duplicates"
	RuleDropNA         = "drop_na"
	RuleFillNA         = "fill_na"

	DriverSQLServer = "sqlserver"
	DriverPostgres  = "postgres" // lib/pq
	DriverPGX       = "pgx"      // jackc/pgx stdlib
	DriverMySQL     = "mysql"
	DriverSQLite    = "sqlite"

	DefaultLogLevel      = "info"
	DefaultAPIEndpoint   = "https://api.publicapis.org/entries"
	DefaultAPITimeout    = 30.0 // seconds
	DefaultDriver        = DriverSQLServer
	DefaultAPIPipeline   = "API"
	DefaultBotPipeline   = "Bot"
	DefaultAPITable      = "api_demo"
	DefaultBotTable      = "bot_demo"
	DefaultBotFile       = "data/bot_data.xlsx"
	DefaultFillValue     = "N/A"
	DefaultCSVDelimiter  = ","
	DefaultSheetName     = "Sheet1"
	DefaultDumpExtension = ".json"
)

// Environment variables consulted when the matching database field is empty.
const (
	EnvDBCredentials = "DB_CREDENTIALS" // Full DSN, overrides every database field.
	EnvSQLServer     = "SQL_SERVER"
	EnvSQLDatabase   = "SQL_DATABASE"
	EnvSQLUsername   = "SQL_USERNAME"
	EnvSQLPassword   = "SQL_PASSWORD"
)

// ETLConfig defines the overall structure for the ETL configuration YAML file.
type ETLConfig struct {
	// Logging configuration specifies the verbosity level and optional log file.
	Logging LoggingConfig `yaml:"logging"`
	// API holds settings shared by every api source.
	API APIConfig `yaml:"api"`
	// Database describes the relational store used by sql destinations.
	// Required as soon as one enabled pipeline writes to sql.
	Database *DatabaseConfig `yaml:"database,omitempty"`
	// Run controls the runner.
	Run RunConfig `yaml:"run"`
	// Pipelines are executed in order. When empty, the API and Bot defaults are used.
	Pipelines []PipelineConfig `yaml:"pipelines"`
}

// LoggingConfig holds settings related to logging verbosity.
type LoggingConfig struct {
	// Level defines the logging detail ("none", "error", "warn", "info", "debug").
	Level string `yaml:"level"`
	// File, when set, receives a copy of every log line.
	File string `yaml:"file,omitempty"`
}

// APIConfig holds the HTTP extractor settings.
type APIConfig struct {
	Endpoint string `yaml:"endpoint"`
	// Timeout in seconds for the whole request. Defaults to 30.
	Timeout float64 `yaml:"timeout"`
}

// DatabaseConfig describes how to reach the destination store.
// Either DSN is set, or the individual fields are used to build one.
type DatabaseConfig struct {
	// Driver is one of "sqlserver", "postgres", "pgx", "mysql", "sqlite".
	Driver string `yaml:"driver"`
	// DSN is a complete driver-specific connection string.
	DSN string `yaml:"dsn,omitempty"`

	Server   string `yaml:"server,omitempty"` // Alias of Host, as used by SQL Server setups.
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	// WindowsAuth requests integrated authentication (sqlserver only).
	WindowsAuth bool `yaml:"windows_auth,omitempty"`
	// Params are appended to the DSN as driver options.
	Params map[string]string `yaml:"params,omitempty"`
}

// RunConfig holds runner behavior.
type RunConfig struct {
	// HaltOnError stops the remaining pipelines after the first failure. Defaults to true.
	HaltOnError *bool `yaml:"halt_on_error,omitempty"`
	// DumpDir, when set, receives one JSON file per successful pipeline with its final dataset.
	DumpDir string `yaml:"dump_dir,omitempty"`
}

// PipelineConfig describes one extract/transform/load chain.
type PipelineConfig struct {
	Name string `yaml:"name"`
	// Kind selects the preset ("api" or "bot") used to fill unset fields.
	Kind string `yaml:"kind,omitempty"`
	// Enabled defaults to true.
	Enabled     *bool             `yaml:"enabled,omitempty"`
	Source      SourceConfig      `yaml:"source"`
	Transform   []RuleConfig      `yaml:"transform,omitempty"`
	Destination DestinationConfig `yaml:"destination"`
}

// IsEnabled reports whether the pipeline should run.
func (p PipelineConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// SourceConfig details the input source properties.
type SourceConfig struct {
	// Type is "api", "xlsx" or "csv".
	Type string `yaml:"type"`
	// Endpoint overrides api.endpoint for this source.
	Endpoint string `yaml:"endpoint,omitempty"`
	// File is the input path for xlsx and csv sources. Environment variables are expanded.
	File string `yaml:"file,omitempty"`
	// SheetName takes precedence over SheetIndex. Defaults to the active sheet.
	SheetName  string `yaml:"sheet_name,omitempty"`
	SheetIndex *int   `yaml:"sheet_index,omitempty"`
	// Delimiter for csv sources. Defaults to ",".
	Delimiter string `yaml:"delimiter,omitempty"`
}

// RuleConfig is one cleaning rule.
type RuleConfig struct {
	// Rule is "drop_duplicates", "drop_na" or "fill_na".
	Rule string `yaml:"rule"`
	// Columns limits drop_na to these columns. Empty means every column.
	Columns []string `yaml:"columns,omitempty"`
	// Value is the fill_na replacement. Defaults to "N/A".
	Value string `yaml:"value,omitempty"`
}

// DestinationConfig details the output destination properties.
type DestinationConfig struct {
	// Type is "sql", "json", "yaml", "xlsx" or "csv".
	Type string `yaml:"type"`
	// Table is the sql destination table, dropped and recreated on every save.
	Table string `yaml:"table,omitempty"`
	// InsertFile, for sql destinations, is a file holding the INSERT statement
	// executed once per row (parameters in column order). The table is then
	// left as is.
	InsertFile string `yaml:"insert_file,omitempty"`
	// File is the output path for file destinations.
	File string `yaml:"file,omitempty"`
	// SheetName for xlsx destinations. Defaults to "Sheet1".
	SheetName string `yaml:"sheet_name,omitempty"`
	// Delimiter for csv destinations. Defaults to ",".
	Delimiter string `yaml:"delimiter,omitempty"`
}

// HaltOnError reports the effective halt_on_error setting.
func (c *ETLConfig) HaltOnError() bool {
	return c.Run.HaltOnError == nil || *c.Run.HaltOnError
}

// NeedsDatabase reports whether any enabled pipeline writes to sql.
func (c *ETLConfig) NeedsDatabase() bool {
	for _, p := range c.Pipelines {
		if p.IsEnabled() && p.Destination.Type == DestinationTypeSQL {
			return true
		}
	}
	return false
}
