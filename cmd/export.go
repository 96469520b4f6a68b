package cmd

import (
	"github.com/fbz-tec/pgxstream/core/config"
	"github.com/fbz-tec/pgxstream/core/db"
	"github.com/fbz-tec/pgxstream/core/exporters"
	"github.com/fbz-tec/pgxstream/internal/logger"
	"github.com/fbz-tec/pgxstream/internal/ui"
	"github.com/fbz-tec/pgxstream/internal/version"
	"github.com/spf13/cobra"
)

var (
	configPath string
	overrides  = config.DefaultOverrides()
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export query results to a delimited text file",
	Example: `  # Export with inline query
  pgxstream export --conn localhost:5432/sales --username app --password secret \
    --query "SELECT * FROM orders" -o orders.csv --format csv --delimiter "," --header

  # Export from a SQL file, tab separated and gzip compressed
  pgxstream export --conn localhost:5432/sales --username app --password secret \
    --query ./orders.sql -o orders.tsv.gz --format tsv --compression gzip

  # Use a configuration file and override the output
  pgxstream export -c export.toml -o /data/orders.csv --progress`,
	RunE: runExport,
}

func init() {
	addExportFlags(exportCmd)
}

// addExportFlags registers the configuration flags shared by export and
// validate.
func addExportFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.SortFlags = false

	f.StringVarP(&configPath, "config", "c", "", "Path to a configuration file (toml, yaml or json)")

	// Source
	f.StringVar(&overrides.DBType, "db-type", "", "Database type (default postgres)")
	f.StringVar(&overrides.Conn, "conn", "", "Connection string: host:port/dbname, postgres:// URL or key=value DSN")
	f.StringVar(&overrides.Username, "username", "", "Database username")
	f.StringVar(&overrides.Password, "password", "", "Database password")
	f.IntVar(&overrides.FetchSize, "fetch", config.DefaultFetchSize, "Rows fetched per round trip")

	// Query and output
	f.StringVar(&overrides.Query, "query", "", "SQL query, or path to a file containing it")
	f.StringVarP(&overrides.Output, "output", "o", "", "Output file path")
	f.StringVar(&overrides.Format, "format", config.DefaultFormat, "Output format (csv, tsv, custom)")
	f.StringVar(&overrides.Delimiter, "delimiter", "", "Field delimiter, a single byte (ignored for tsv)")
	f.BoolVar(&overrides.Header, "header", false, "Write a header row with the column names")
	f.StringVar(&overrides.Compression, "compression", config.DefaultCompression, "Output compression (none, gzip, zstd, lz4)")
	f.IntVar(&overrides.BufferSize, "buffer-size", config.DefaultBufferSize, "Output buffer size in bytes")

	// Progress and logging
	f.BoolVar(&overrides.Progress, "progress", false, "Report progress while exporting")
	f.Int64Var(&overrides.ProgressInterval, "progress-interval", config.DefaultProgressInterval, "Rows between progress reports")
	f.StringVar(&overrides.LogFile, "log-file", "", "Write logs to this file instead of stderr")
}

// resolveConfig loads .env, the optional config file, and merges the flags.
func resolveConfig() (*config.Resolved, error) {
	config.LoadEnv()

	var file *config.File
	if configPath != "" {
		var err error
		if file, err = config.LoadFile(configPath); err != nil {
			return nil, err
		}
		logger.Debug("Configuration file loaded: %s", configPath)
	}

	o := overrides
	o.Verbose = verbose
	return config.Resolve(file, o)
}

func setupLogging(r *config.Resolved) {
	logger.Setup(logger.Options{
		LogFile: r.Logging.LogFile,
		Verbose: r.Logging.Verbose,
		Quiet:   quiet,
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	resolved, err := resolveConfig()
	if err != nil {
		return err
	}
	setupLogging(resolved)
	defer logger.Close()

	logger.Debug("Initializing pgxstream execution environment")
	logger.Debug("Version: %s, Build: %s, Commit: %s", version.AppVersion, version.BuildTime, version.GitCommit)
	if logger.IsVerbose() {
		if described, err := resolved.Describe(); err == nil {
			logger.Debug("Resolved configuration:\n%s", described)
		}
	}

	src, err := db.NewSource(resolved.Source)
	if err != nil {
		return err
	}

	var (
		opts     []exporters.Option
		reporter *ui.ProgressReporter
	)
	if resolved.Export.ShowProgress {
		reporter = ui.NewProgressReporter(logger.IsTerminal())
		opts = append(opts, exporters.WithProgress(reporter))
	}

	exp := exporters.New(resolved, opts...)
	logger.Debug("Starting export %s to %s", exp.ID(), resolved.Export.OutputFile)
	result, err := exp.Run(cmd.Context(), src)
	if reporter != nil {
		reporter.Finish()
	}
	if err != nil {
		return err
	}

	if err := result.Render(cmd.OutOrStdout()); err != nil {
		return err
	}
	logger.DebugObject("Export statistics", "stats", result)

	if result.RowsExported == 0 {
		logger.Warn("Query returned 0 rows. File created at %s but contains no data rows", resolved.Export.OutputFile)
	} else {
		logger.Success("Export completed: %d rows -> %s", result.RowsExported, resolved.Export.OutputFile)
	}
	return nil
}
