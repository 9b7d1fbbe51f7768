package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"etl-template/internal/config"
	"etl-template/internal/db"
	"etl-template/internal/etl"
	"etl-template/internal/etlerr"
	etlio "etl-template/internal/io"
	"etl-template/internal/logging"
	"etl-template/internal/processor"

	"github.com/spf13/cobra"
)

// Define common application-level errors.
var (
	ErrUsage           = errors.New("usage error")
	ErrConfigNotFound  = errors.New("configuration file not found")
	ErrPipelinesFailed = errors.New("one or more pipelines failed")
)

// DefaultConfigFile is used when --config is not given.
const DefaultConfigFile = "config/config.yaml"

// --- Factory Variables (Allow Overriding for Testing) ---
var (
	newInputReaderFunc  = etlio.NewInputReader
	newOutputWriterFunc = etlio.NewOutputWriter
	newConnectorFunc    = func(opts db.Options, logger *logging.Logger) (db.Connector, error) {
		conn, err := db.NewSQLConnector(opts, logger)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	osStatFunc = os.Stat
)

// runOptions are the flags of the run command.
type runOptions struct {
	configFile      string
	envFile         string
	dsn             string
	logLevel        string
	only            []string
	dumpDir         string
	continueOnError bool
}

// AppRunner encapsulates the application's execution logic.
type AppRunner struct {
	stdout io.Writer
	stderr io.Writer
	root   *cobra.Command
	// started is set once a command body runs; errors before that are usage errors.
	started bool
}

// NewAppRunner creates a runner writing to the process stdout and stderr.
func NewAppRunner() *AppRunner {
	return newAppRunner(os.Stdout, os.Stderr)
}

func newAppRunner(stdout, stderr io.Writer) *AppRunner {
	a := &AppRunner{stdout: stdout, stderr: stderr}
	a.root = a.newRootCommand()
	return a
}

func (a *AppRunner) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "etl-template",
		Short:         "Run extract/transform/load pipelines into a relational store",
		Long:          "etl-template runs the configured pipelines in order: extract from an API or a file, clean, then save to a database table or a file.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})

	var ro runOptions
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured pipelines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.started = true
			return a.runETL(cmd.Context(), ro)
		},
	}
	f := runCmd.Flags()
	f.StringVar(&ro.configFile, "config", DefaultConfigFile, "YAML configuration file")
	f.StringVar(&ro.envFile, "env-file", "", "env file to load (default .env when present)")
	f.StringVar(&ro.dsn, "db", "", "database connection string (overrides database.dsn and DB_CREDENTIALS)")
	f.StringVar(&ro.logLevel, "loglevel", "", "logging level (none, error, warn, info, debug)")
	f.StringSliceVar(&ro.only, "only", nil, "run only the named pipelines")
	f.StringVar(&ro.dumpDir, "dump-dir", "", "write each pipeline's final dataset as JSON into this directory")
	f.BoolVar(&ro.continueOnError, "continue-on-error", false, "keep running the remaining pipelines after a failure")

	var vo runOptions
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration, then print it with defaults applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.started = true
			return a.validate(vo)
		},
	}
	vf := validateCmd.Flags()
	vf.StringVar(&vo.configFile, "config", DefaultConfigFile, "YAML configuration file")
	vf.StringVar(&vo.envFile, "env-file", "", "env file to load (default .env when present)")
	vf.StringVar(&vo.dsn, "db", "", "database connection string")

	root.AddCommand(runCmd, validateCmd)
	return root
}

// Usage prints the command-line help information to the specified writer.
func (a *AppRunner) Usage(w io.Writer) {
	fmt.Fprint(w, a.root.UsageString())
}

// Run parses args and executes the selected command.
func (a *AppRunner) Run(ctx context.Context, args []string) error {
	a.started = false
	a.root.SetArgs(args)
	err := a.root.ExecuteContext(ctx)
	if err != nil && !a.started && !errors.Is(err, ErrUsage) {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return err
}

// loadConfig loads the env file, then the YAML configuration.
func (a *AppRunner) loadConfig(o runOptions, logger *logging.Logger) (*config.ETLConfig, error) {
	envPath, err := config.LoadEnv(o.envFile)
	if err != nil {
		return nil, etlerr.Configuration(o.envFile, err)
	}
	if envPath != "" {
		logger.Logf(logging.Debug, "Loaded environment from %s", envPath)
	}

	if _, err := osStatFunc(o.configFile); err != nil {
		if os.IsNotExist(err) {
			logger.Logf(logging.Error, "Config file '%s' not found.", o.configFile)
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, o.configFile)
		}
		return nil, fmt.Errorf("failed to stat config file '%s': %w", o.configFile, err)
	}

	cfg, err := config.LoadConfig(o.configFile, config.Overrides{DSN: o.dsn, LogLevel: o.logLevel}, logger)
	if err != nil {
		logger.Logf(logging.Error, "Error loading/validating config '%s': %v", o.configFile, err)
		return nil, err
	}
	return cfg, nil
}

func (a *AppRunner) validate(o runOptions) error {
	cfg, err := a.loadConfig(o, logging.New(a.stderr, logging.Warning))
	if err != nil {
		return err
	}
	out, err := config.Dump(cfg)
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(out)
	return err
}

func (a *AppRunner) runETL(ctx context.Context, o runOptions) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	bootLevel, _ := logging.ParseLevel(o.logLevel)
	cfg, err := a.loadConfig(o, logging.New(a.stderr, bootLevel))
	if err != nil {
		return err
	}
	if o.dumpDir != "" {
		cfg.Run.DumpDir = o.dumpDir
	}
	halt := cfg.HaltOnError() && !o.continueOnError

	logger, err := logging.Setup(a.stderr, cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return etlerr.Configuration("logging", err)
	}
	defer logger.Close()
	logger.Logf(logging.Info, "Starting ETL with config: %s", o.configFile)

	selected, err := selectPipelines(cfg.Pipelines, o.only)
	if err != nil {
		logger.Logf(logging.Error, "%v", err)
		return err
	}
	if len(selected) == 0 {
		logger.Logf(logging.Warning, "No enabled pipelines to run.")
		return nil
	}

	var conn db.Connector
	if needsDatabase(selected) {
		conn, err = newConnectorFunc(databaseOptions(cfg.Database), logger)
		if err != nil {
			logger.Logf(logging.Error, "Invalid database settings: %v", err)
			return err
		}
		if err := conn.Connect(ctx); err != nil {
			logger.Logf(logging.Error, "Could not connect to the database: %v", err)
			return err
		}
		defer func() {
			logger.Logf(logging.Debug, "Closing database connection...")
			if cerr := conn.Disconnect(); cerr != nil {
				logger.Logf(logging.Error, "Failed to close database connection: %v", cerr)
			}
		}()
	}

	failed := 0
	for i, pc := range selected {
		if err := a.runPipeline(ctx, cfg, pc, conn, logger); err != nil {
			failed++
			if halt && i < len(selected)-1 {
				logger.Logf(logging.Error, "Halted due to error in pipeline %s; %d pipeline(s) not run.", pc.Name, len(selected)-1-i)
				break
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrPipelinesFailed, failed, len(selected))
	}
	logger.Successf("All %d pipeline(s) completed.", len(selected))
	return nil
}

// runPipeline builds and runs one pipeline. Build errors are logged here;
// step errors are logged by the pipeline itself.
func (a *AppRunner) runPipeline(ctx context.Context, cfg *config.ETLConfig, pc config.PipelineConfig, conn db.Connector, logger *logging.Logger) error {
	reader, err := newInputReaderFunc(pc.Source, cfg.API, logger)
	if err != nil {
		logger.Logf(logging.Error, "[%s] Failed to create input reader: %v", pc.Name, err)
		return err
	}
	writer, err := newOutputWriterFunc(pc.Destination, conn, logger)
	if err != nil {
		logger.Logf(logging.Error, "[%s] Failed to create output writer: %v", pc.Name, err)
		return err
	}
	defer func() {
		if cerr := writer.Close(); cerr != nil {
			logger.Logf(logging.Error, "[%s] Failed to close output writer: %v", pc.Name, cerr)
		}
	}()

	p := etl.New(pc.Name, etl.Compose(reader, processor.New(pc.Name, pc.Transform, logger), writer), logger)
	if err := p.Run(ctx); err != nil {
		return err
	}
	if cfg.Run.DumpDir != "" {
		dumpDataset(ctx, cfg.Run.DumpDir, p, logger)
	}
	return nil
}

// dumpDataset writes the pipeline's last dataset for inspection. Failures are
// reported but do not fail the pipeline.
func dumpDataset(ctx context.Context, dir string, p *etl.Pipeline, logger *logging.Logger) {
	path := filepath.Join(dir, dumpFileName(p.Name()))
	w := etlio.NewJSONWriter(path, logger)
	defer w.Close()
	if err := w.Load(ctx, p.Data()); err != nil {
		logger.Logf(logging.Warning, "[%s] Could not dump dataset: %v", p.Name(), err)
	}
}

func dumpFileName(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
	return clean + config.DefaultDumpExtension
}

// selectPipelines keeps the enabled pipelines, narrowed to only when set.
func selectPipelines(all []config.PipelineConfig, only []string) ([]config.PipelineConfig, error) {
	want := make(map[string]bool, len(only))
	for _, name := range only {
		want[name] = true
	}
	var selected []config.PipelineConfig
	for _, p := range all {
		if len(want) > 0 {
			if !want[p.Name] {
				continue
			}
			delete(want, p.Name)
		}
		if p.IsEnabled() {
			selected = append(selected, p)
		}
	}
	if len(want) > 0 {
		var unknown []string
		for _, name := range only {
			if want[name] {
				unknown = append(unknown, name)
			}
		}
		return nil, etlerr.Configuration("--only", fmt.Errorf("unknown pipeline(s): %s", strings.Join(unknown, ", ")))
	}
	return selected, nil
}

func needsDatabase(pipelines []config.PipelineConfig) bool {
	for _, p := range pipelines {
		if p.Destination.Type == config.DestinationTypeSQL {
			return true
		}
	}
	return false
}

// databaseOptions maps the configuration onto connector options. Server is
// the SQL Server spelling of Host.
func databaseOptions(c *config.DatabaseConfig) db.Options {
	if c == nil {
		return db.Options{}
	}
	host := c.Host
	if host == "" {
		host = c.Server
	}
	return db.Options{
		Driver:      c.Driver,
		DSN:         c.DSN,
		Host:        host,
		Port:        c.Port,
		Database:    c.Database,
		User:        c.User,
		Password:    c.Password,
		WindowsAuth: c.WindowsAuth,
		Params:      c.Params,
	}
}
