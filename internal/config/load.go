package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"etl-template/internal/etlerr"
	"etl-template/internal/logging"
	"etl-template/internal/util"

	"gopkg.in/yaml.v3"
)

// Overrides carries command-line values that take precedence over the file.
type Overrides struct {
	// DSN replaces database.dsn (and DB_CREDENTIALS).
	DSN string
	// LogLevel replaces logging.level.
	LogLevel string
}

// LoadConfig reads, parses, and validates the YAML configuration file.
// A read failure keeps the underlying error reachable, so callers can test
// for fs.ErrNotExist.
func LoadConfig(filename string, ov Overrides, logger *logging.Logger) (*ETLConfig, error) {
	fileBytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, etlerr.Configuration(filename, fmt.Errorf("failed to read config file: %w", err))
	}
	cfg, err := Parse(fileBytes, ov, logger)
	if err != nil {
		return nil, fmt.Errorf("config '%s': %w", filename, err)
	}
	return cfg, nil
}

// Parse decodes YAML, expands environment variables, applies defaults and
// validates the result. Empty input yields the default configuration.
func Parse(data []byte, ov Overrides, logger *logging.Logger) (*ETLConfig, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	var cfg ETLConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, etlerr.Configuration("", fmt.Errorf("failed to parse YAML: %w", err))
	}

	expandEnv(&cfg)
	applyOverrides(&cfg, ov)
	applyDefaults(&cfg)

	if err := ValidateConfig(&cfg, logger); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Dump renders cfg as YAML with passwords and credentials masked.
func Dump(cfg *ETLConfig) ([]byte, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	var generic map[string]interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("failed to re-read config: %w", err)
	}
	return yaml.Marshal(util.MaskSensitiveData(generic))
}

func expandEnv(cfg *ETLConfig) {
	expand := func(fields ...*string) {
		for _, f := range fields {
			*f = util.ExpandEnvUniversal(*f)
		}
	}

	expand(&cfg.Logging.File, &cfg.API.Endpoint, &cfg.Run.DumpDir)
	if db := cfg.Database; db != nil {
		expand(&db.DSN, &db.Server, &db.Host, &db.Database, &db.User, &db.Password)
		for k, v := range db.Params {
			db.Params[k] = util.ExpandEnvUniversal(v)
		}
	}
	for i := range cfg.Pipelines {
		p := &cfg.Pipelines[i]
		expand(&p.Source.Endpoint, &p.Source.File,
			&p.Destination.Table, &p.Destination.File, &p.Destination.InsertFile)
	}
}

func applyOverrides(cfg *ETLConfig, ov Overrides) {
	if ov.LogLevel != "" {
		cfg.Logging.Level = ov.LogLevel
	}
	dsn := ov.DSN
	if dsn == "" {
		dsn = os.Getenv(EnvDBCredentials)
	}
	if dsn != "" {
		if cfg.Database == nil {
			cfg.Database = &DatabaseConfig{}
		}
		// The file's own dsn wins over the environment, the flag wins over both.
		if ov.DSN != "" || cfg.Database.DSN == "" {
			cfg.Database.DSN = dsn
		}
	}
}

// applyDefaults sets default values for various configuration sections.
func applyDefaults(cfg *ETLConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.API.Endpoint == "" {
		cfg.API.Endpoint = DefaultAPIEndpoint
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = DefaultAPITimeout
	}
	if cfg.Run.HaltOnError == nil {
		halt := true
		cfg.Run.HaltOnError = &halt
	}

	applyDatabaseDefaults(cfg)

	if len(cfg.Pipelines) == 0 {
		cfg.Pipelines = DefaultPipelines()
	}
	for i := range cfg.Pipelines {
		applyPipelineDefaults(&cfg.Pipelines[i])
	}
}

// applyDatabaseDefaults fills empty database fields from SQL_* variables.
// A database section is created from the environment when SQL_SERVER is set.
func applyDatabaseDefaults(cfg *ETLConfig) {
	if cfg.Database == nil {
		if os.Getenv(EnvSQLServer) == "" {
			return
		}
		cfg.Database = &DatabaseConfig{}
	}
	db := cfg.Database
	db.Driver = strings.ToLower(strings.TrimSpace(db.Driver))
	if db.Driver == "" {
		db.Driver = DefaultDriver
	}
	fallback := func(field *string, env string) {
		if *field == "" {
			*field = os.Getenv(env)
		}
	}
	fallback(&db.Server, EnvSQLServer)
	fallback(&db.Database, EnvSQLDatabase)
	fallback(&db.User, EnvSQLUsername)
	fallback(&db.Password, EnvSQLPassword)
	if db.Host == "" {
		db.Host = db.Server
	}
}

// DefaultPipelines returns the API and Bot pipelines used when none are configured.
func DefaultPipelines() []PipelineConfig {
	return []PipelineConfig{
		{Name: DefaultAPIPipeline, Kind: KindAPI},
		{Name: DefaultBotPipeline, Kind: KindBot},
	}
}

// PresetRules returns the cleaning rules of a pipeline kind, nil for unknown kinds.
func PresetRules(kind string) []RuleConfig {
	switch kind {
	case KindAPI:
		return []RuleConfig{
			{Rule: RuleDropDuplicates},
			{Rule: RuleDropNA, Columns: []string{"API", "Description"}},
		}
	case KindBot:
		return []RuleConfig{
			{Rule: RuleDropDuplicates},
			{Rule: RuleFillNA, Value: DefaultFillValue},
		}
	default:
		return nil
	}
}

func applyPipelineDefaults(p *PipelineConfig) {
	p.Kind = strings.ToLower(strings.TrimSpace(p.Kind))
	p.Source.Type = strings.ToLower(strings.TrimSpace(p.Source.Type))
	p.Destination.Type = strings.ToLower(strings.TrimSpace(p.Destination.Type))
	for i := range p.Transform {
		p.Transform[i].Rule = strings.ToLower(strings.TrimSpace(p.Transform[i].Rule))
	}

	switch p.Kind {
	case KindAPI:
		if p.Source.Type == "" {
			p.Source.Type = SourceTypeAPI
		}
		if p.Destination.Type == "" {
			p.Destination.Type = DestinationTypeSQL
		}
		if p.Destination.Type == DestinationTypeSQL && p.Destination.Table == "" {
			p.Destination.Table = DefaultAPITable
		}
	case KindBot:
		if p.Source.Type == "" {
			p.Source.Type = SourceTypeXLSX
		}
		if p.Source.File == "" && p.Source.Type != SourceTypeAPI {
			p.Source.File = DefaultBotFile
		}
		if p.Destination.Type == "" {
			p.Destination.Type = DestinationTypeSQL
		}
		if p.Destination.Type == DestinationTypeSQL && p.Destination.Table == "" {
			p.Destination.Table = DefaultBotTable
		}
	}
	// An explicit empty list (transform: []) disables cleaning.
	if p.Transform == nil {
		p.Transform = PresetRules(p.Kind)
	}
	for i := range p.Transform {
		r := &p.Transform[i]
		if r.Rule == RuleFillNA && r.Value == "" {
			r.Value = DefaultFillValue
		}
	}

	if p.Source.Type == SourceTypeCSV && p.Source.Delimiter == "" {
		p.Source.Delimiter = DefaultCSVDelimiter
	}
	switch p.Destination.Type {
	case DestinationTypeCSV:
		if p.Destination.Delimiter == "" {
			p.Destination.Delimiter = DefaultCSVDelimiter
		}
	case DestinationTypeXLSX:
		if p.Destination.SheetName == "" {
			p.Destination.SheetName = DefaultSheetName
		}
	}
}
