package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"etl-template/internal/etlerr"
	"etl-template/internal/logging"
)

// Define known valid enum values for configuration fields.
var (
	knownLogLevels        = []string{"none", "error", "warn", "warning", "info", "debug"}
	knownKinds            = []string{"", KindAPI, KindBot}
	knownSourceTypes      = []string{SourceTypeAPI, SourceTypeXLSX, SourceTypeCSV}
	knownDestinationTypes = []string{DestinationTypeSQL, DestinationTypeJSON, DestinationTypeYAML, DestinationTypeXLSX, DestinationTypeCSV}
	knownRules            = []string{RuleDropDuplicates, RuleDropNA, RuleFillNA}
	knownDrivers          = []string{DriverSQLServer, DriverPostgres, DriverPGX, DriverMySQL, DriverSQLite}
)

// isValidEnumValue checks if a value is present in a list of allowed string values (case-insensitive).
func isValidEnumValue(value string, allowedValues []string) bool {
	lowerValue := strings.ToLower(value)
	for _, allowed := range allowedValues {
		if lowerValue == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// ValidateConfig checks the whole configuration and reports every problem at
// once as a single ErrConfiguration error.
func ValidateConfig(cfg *ETLConfig, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Discard()
	}
	var allErrors []string

	if !isValidEnumValue(cfg.Logging.Level, knownLogLevels) {
		allErrors = append(allErrors, fmt.Sprintf("- Config.Logging.Level: invalid log level '%s', must be one of %v", cfg.Logging.Level, knownLogLevels))
	}
	if cfg.API.Timeout <= 0 {
		allErrors = append(allErrors, fmt.Sprintf("- Config.API.Timeout: must be positive, got %v", cfg.API.Timeout))
	}

	names := make(map[string]int, len(cfg.Pipelines))
	enabled := 0
	var sqlPipelines []string
	for i := range cfg.Pipelines {
		p := &cfg.Pipelines[i]
		prefix := fmt.Sprintf("Config.Pipelines[%d]", i)
		allErrors = append(allErrors, validatePipelineConfig(prefix, p, cfg.API.Endpoint, logger)...)

		if p.Name != "" {
			if first, dup := names[p.Name]; dup {
				allErrors = append(allErrors, fmt.Sprintf("- %s.Name: duplicate pipeline name '%s' (first used by Config.Pipelines[%d])", prefix, p.Name, first))
			} else {
				names[p.Name] = i
			}
		}
		if p.IsEnabled() {
			enabled++
			if p.Destination.Type == DestinationTypeSQL {
				sqlPipelines = append(sqlPipelines, p.Name)
			}
		}
	}
	if enabled == 0 {
		logger.Logf(logging.Warning, "Validation: no enabled pipelines, nothing will run")
	}

	if len(sqlPipelines) > 0 {
		if cfg.Database == nil {
			allErrors = append(allErrors, fmt.Sprintf("- Config.Database: is required because pipeline(s) %v write to sql (set database.*, %s or %s)", sqlPipelines, EnvSQLServer, EnvDBCredentials))
		} else {
			allErrors = append(allErrors, validateDatabaseConfig("Config.Database", cfg.Database, logger)...)
		}
	}

	if len(allErrors) > 0 {
		return etlerr.Configuration("", fmt.Errorf("configuration validation failed:\n%s", strings.Join(allErrors, "\n")))
	}
	logger.Logf(logging.Debug, "Configuration validation successful.")
	return nil
}

func validatePipelineConfig(prefix string, p *PipelineConfig, apiEndpoint string, logger *logging.Logger) []string {
	var errs []string
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, fmt.Sprintf("- %s.Name: is required", prefix))
	}
	if !isValidEnumValue(p.Kind, knownKinds) {
		errs = append(errs, fmt.Sprintf("- %s.Kind: invalid kind '%s', must be one of %v", prefix, p.Kind, knownKinds[1:]))
	}
	errs = append(errs, validateSourceConfig(prefix+".Source", &p.Source, apiEndpoint, logger)...)
	for i, r := range p.Transform {
		errs = append(errs, validateRuleConfig(fmt.Sprintf("%s.Transform[%d]", prefix, i), r)...)
	}
	errs = append(errs, validateDestinationConfig(prefix+".Destination", &p.Destination, logger)...)
	return errs
}

// validateSourceConfig validates the Source section of a pipeline.
func validateSourceConfig(prefix string, cfg *SourceConfig, apiEndpoint string, logger *logging.Logger) []string {
	var errs []string
	if cfg.Type == "" {
		return append(errs, fmt.Sprintf("- %s.Type: is required (or set the pipeline kind)", prefix))
	}
	if !isValidEnumValue(cfg.Type, knownSourceTypes) {
		return append(errs, fmt.Sprintf("- %s.Type: invalid source type '%s', must be one of %v", prefix, cfg.Type, knownSourceTypes))
	}

	switch strings.ToLower(cfg.Type) {
	case SourceTypeAPI:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = apiEndpoint
		}
		if err := validateHTTPURL(endpoint); err != nil {
			errs = append(errs, fmt.Sprintf("- %s.Endpoint: %v", prefix, err))
		}
		if cfg.File != "" {
			logger.Logf(logging.Warning, "Validation: %s.File is specified but will be ignored for source type 'api'", prefix)
		}
	case SourceTypeXLSX:
		if cfg.File == "" {
			errs = append(errs, fmt.Sprintf("- %s.File: is required for source type 'xlsx'", prefix))
		}
		if cfg.SheetName != "" {
			if err := validateSheetName(cfg.SheetName, prefix+".SheetName"); err != nil {
				errs = append(errs, err.Error())
			}
		}
		if cfg.SheetIndex != nil && *cfg.SheetIndex < 0 {
			errs = append(errs, fmt.Sprintf("- %s.SheetIndex: cannot be negative", prefix))
		}
		if cfg.SheetName != "" && cfg.SheetIndex != nil {
			logger.Logf(logging.Warning, "Validation: Both %s.SheetName ('%s') and %s.SheetIndex (%d) are specified. SheetName will be used.", prefix, cfg.SheetName, prefix, *cfg.SheetIndex)
		}
	case SourceTypeCSV:
		if cfg.File == "" {
			errs = append(errs, fmt.Sprintf("- %s.File: is required for source type 'csv'", prefix))
		}
		if err := validateSingleRuneString(cfg.Delimiter, prefix+".Delimiter"); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func validateRuleConfig(prefix string, r RuleConfig) []string {
	if !isValidEnumValue(r.Rule, knownRules) {
		return []string{fmt.Sprintf("- %s.Rule: unknown rule '%s', must be one of %v", prefix, r.Rule, knownRules)}
	}
	var errs []string
	if len(r.Columns) > 0 && !strings.EqualFold(r.Rule, RuleDropNA) {
		errs = append(errs, fmt.Sprintf("- %s.Columns: only allowed for rule '%s'", prefix, RuleDropNA))
	}
	for i, c := range r.Columns {
		if strings.TrimSpace(c) == "" {
			errs = append(errs, fmt.Sprintf("- %s.Columns[%d]: cannot be empty", prefix, i))
		}
	}
	return errs
}

// validateDestinationConfig validates the Destination section of a pipeline.
func validateDestinationConfig(prefix string, cfg *DestinationConfig, logger *logging.Logger) []string {
	var errs []string
	if cfg.Type == "" {
		return append(errs, fmt.Sprintf("- %s.Type: is required (or set the pipeline kind)", prefix))
	}
	if !isValidEnumValue(cfg.Type, knownDestinationTypes) {
		return append(errs, fmt.Sprintf("- %s.Type: invalid destination type '%s', must be one of %v", prefix, cfg.Type, knownDestinationTypes))
	}

	lcType := strings.ToLower(cfg.Type)
	if lcType == DestinationTypeSQL {
		if cfg.Table == "" {
			errs = append(errs, fmt.Sprintf("- %s.Table: is required for destination type 'sql'", prefix))
		}
		if cfg.File != "" {
			logger.Logf(logging.Warning, "Validation: %s.File is specified but will be ignored for destination type 'sql'", prefix)
		}
		return errs
	}

	if cfg.File == "" {
		errs = append(errs, fmt.Sprintf("- %s.File: is required for destination type '%s'", prefix, cfg.Type))
	}
	if cfg.Table != "" || cfg.InsertFile != "" {
		logger.Logf(logging.Warning, "Validation: %s.Table/InsertFile are ignored for destination type '%s'", prefix, cfg.Type)
	}
	switch lcType {
	case DestinationTypeCSV:
		if err := validateSingleRuneString(cfg.Delimiter, prefix+".Delimiter"); err != nil {
			errs = append(errs, err.Error())
		}
	case DestinationTypeXLSX:
		if err := validateSheetName(cfg.SheetName, prefix+".SheetName"); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func validateDatabaseConfig(prefix string, cfg *DatabaseConfig, logger *logging.Logger) []string {
	var errs []string
	if !isValidEnumValue(cfg.Driver, knownDrivers) {
		return append(errs, fmt.Sprintf("- %s.Driver: unsupported driver '%s', must be one of %v", prefix, cfg.Driver, knownDrivers))
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Sprintf("- %s.Port: %d is out of range", prefix, cfg.Port))
	}
	if cfg.WindowsAuth && !strings.EqualFold(cfg.Driver, DriverSQLServer) {
		errs = append(errs, fmt.Sprintf("- %s.WindowsAuth: only supported by driver '%s'", prefix, DriverSQLServer))
	}
	if cfg.DSN != "" {
		return errs
	}

	if strings.EqualFold(cfg.Driver, DriverSQLite) {
		if cfg.Database == "" {
			errs = append(errs, fmt.Sprintf("- %s.Database: the database file path is required for driver 'sqlite' (or set %s.DSN)", prefix, prefix))
		}
		return errs
	}
	if cfg.Host == "" {
		errs = append(errs, fmt.Sprintf("- %s.Server: is required when no DSN is given (or set %s)", prefix, EnvSQLServer))
	}
	if cfg.Database == "" {
		errs = append(errs, fmt.Sprintf("- %s.Database: is required when no DSN is given (or set %s)", prefix, EnvSQLDatabase))
	}
	if cfg.User == "" && !cfg.WindowsAuth {
		logger.Logf(logging.Warning, "Validation: %s.User is empty, relying on the driver's default authentication", prefix)
	}
	return errs
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL '%s': %v", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL '%s': scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL '%s': missing host", raw)
	}
	return nil
}

func validateSingleRuneString(s, fieldName string) error {
	if s == "" {
		return fmt.Errorf("- %s: cannot be empty", fieldName)
	}
	if utf8.RuneCountInString(s) != 1 {
		return fmt.Errorf("- %s: %s must be a single character", fieldName, strconv.Quote(s))
	}
	return nil
}

func validateSheetName(sheetName, fieldName string) error {
	if sheetName == "" {
		return fmt.Errorf("- %s: sheet name cannot be empty", fieldName)
	}
	if utf8.RuneCountInString(sheetName) > 31 {
		return fmt.Errorf("- %s: '%s' exceeds maximum length of 31 characters", fieldName, sheetName)
	}
	if strings.ContainsAny(sheetName, `:\/?*[]`) {
		return fmt.Errorf("- %s: '%s' contains invalid characters (: \\ / ? * [ ])", fieldName, sheetName)
	}
	if strings.HasPrefix(sheetName, "'") || strings.HasSuffix(sheetName, "'") {
		return fmt.Errorf("- %s: '%s' cannot start or end with a single quote", fieldName, sheetName)
	}
	return nil
}
