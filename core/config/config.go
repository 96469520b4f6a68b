package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fbz-tec/pgxstream/core/errs"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultSourceType       = "postgres"
	DefaultFetchSize        = 1000
	DefaultFormat           = FormatCSV
	DefaultDelimiter        = "\x03"
	DefaultBufferSize       = 1024 * 1024
	DefaultCompression      = "none"
	DefaultProgressInterval = 1_000_000
)

const (
	FormatCSV    = "csv"
	FormatTSV    = "tsv"
	FormatCustom = "custom"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatCSV, FormatTSV, FormatCustom}

// SourceConfig describes how to reach the data source.
type SourceConfig struct {
	Type             string
	ConnectionString string
	Username         string
	Password         string
	// FetchSize is the number of rows requested per round trip.
	FetchSize int
}

// ExportSpec describes what to export and how to write it.
type ExportSpec struct {
	Query      string
	OutputFile string
	Format     string
	// Delimiter is the configured value; the byte actually used depends on
	// Format (see the exporters format registry).
	Delimiter        string
	ShowProgress     bool
	IncludeHeader    bool
	BufferSize       int
	Compression      string
	ProgressInterval int64
}

// TelemetryConfig holds logging settings.
type TelemetryConfig struct {
	LogFile string
	Verbose bool
}

// File is the content of a configuration file, before command-line
// overrides are applied.
type File struct {
	Path     string
	Database SourceConfig
	Export   ExportSpec
	Logging  TelemetryConfig
}

// LoadEnv loads variables from .env files into the process environment.
// Missing files are ignored; values already set in the environment win.
func LoadEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// Parser reads configuration files with viper.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a parser with every optional key defaulted.
func NewParser() *Parser {
	v := viper.New()
	v.SetDefault("database.db_type", DefaultSourceType)
	v.SetDefault("database.fetch_size", DefaultFetchSize)
	v.SetDefault("export.format", DefaultFormat)
	v.SetDefault("export.delimiter", DefaultDelimiter)
	v.SetDefault("export.show_progress", false)
	v.SetDefault("export.include_header", false)
	v.SetDefault("export.buffer_size", DefaultBufferSize)
	v.SetDefault("export.compression", DefaultCompression)
	v.SetDefault("export.progress_interval", DefaultProgressInterval)
	v.SetDefault("logging.verbose", false)
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path. The syntax follows the
// extension (toml, yaml, json); anything else is read as TOML.
func (p *Parser) LoadFile(path string) (*File, error) {
	p.v.SetConfigFile(path)
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if !slices.Contains(viper.SupportedExts, ext) {
		p.v.SetConfigType("toml")
	}

	if err := p.v.ReadInConfig(); err != nil {
		return nil, errs.Configf("reading config file %s: %w", path, err)
	}

	f := p.parse()
	f.Path = path
	return f, nil
}

// LoadReader loads configuration from a string in the given syntax.
func (p *Parser) LoadReader(content, configType string) (*File, error) {
	p.v.SetConfigType(configType)
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, errs.Configf("reading config: %w", err)
	}
	return p.parse(), nil
}

// LoadFile is a shorthand for NewParser().LoadFile(path).
func LoadFile(path string) (*File, error) {
	return NewParser().LoadFile(path)
}

func (p *Parser) parse() *File {
	return &File{
		Database: SourceConfig{
			Type:             expandEnv(p.v.GetString("database.db_type")),
			ConnectionString: expandEnv(p.v.GetString("database.connection_string")),
			Username:         expandEnv(p.v.GetString("database.username")),
			Password:         expandEnv(p.v.GetString("database.password")),
			FetchSize:        p.v.GetInt("database.fetch_size"),
		},
		Export: ExportSpec{
			// query and delimiter are taken literally: SQL may contain '$'
			Query:            p.v.GetString("export.query"),
			OutputFile:       expandEnv(p.v.GetString("export.output_file")),
			Format:           p.v.GetString("export.format"),
			Delimiter:        p.v.GetString("export.delimiter"),
			ShowProgress:     p.v.GetBool("export.show_progress"),
			IncludeHeader:    p.v.GetBool("export.include_header"),
			BufferSize:       p.v.GetInt("export.buffer_size"),
			Compression:      p.v.GetString("export.compression"),
			ProgressInterval: p.v.GetInt64("export.progress_interval"),
		},
		Logging: TelemetryConfig{
			LogFile: expandEnv(p.v.GetString("logging.log_file")),
			Verbose: p.v.GetBool("logging.verbose"),
		},
	}
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
