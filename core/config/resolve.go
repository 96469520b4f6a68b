package config

import (
	"os"
	"slices"
	"strings"

	"github.com/fbz-tec/pgxstream/core/errs"
	"github.com/fbz-tec/pgxstream/core/output"
	"github.com/fbz-tec/pgxstream/core/validation"
)

// Overrides carries command-line values. A value replaces the file value
// only when it differs from the flag default, so passing a flag with its
// default value is the same as not passing it.
type Overrides struct {
	DBType           string
	Conn             string
	Username         string
	Password         string
	FetchSize        int
	Query            string
	Output           string
	Format           string
	Delimiter        string
	Progress         bool
	Header           bool
	BufferSize       int
	Compression      string
	ProgressInterval int64
	LogFile          string
	Verbose          bool
}

// DefaultOverrides returns the flag defaults.
func DefaultOverrides() Overrides {
	return Overrides{
		FetchSize:        DefaultFetchSize,
		Format:           DefaultFormat,
		BufferSize:       DefaultBufferSize,
		Compression:      DefaultCompression,
		ProgressInterval: DefaultProgressInterval,
	}
}

// Resolved is the merged, validated configuration of one run. It must not
// be modified once an export has started.
type Resolved struct {
	Source  SourceConfig
	Export  ExportSpec
	Logging TelemetryConfig
}

// Resolve merges file (which may be nil) with o. Without a file the
// connection string, username, password, query and output are mandatory.
// The query is resolved from a file exactly once, after every override.
func Resolve(file *File, o Overrides) (*Resolved, error) {
	var r *Resolved
	if file != nil {
		r = mergeFile(file, o)
	} else {
		var err error
		if r, err = fromFlags(o); err != nil {
			return nil, err
		}
	}

	query, err := ResolveQuery(r.Export.Query)
	if err != nil {
		return nil, err
	}
	r.Export.Query = query

	r.Source.Type = normalize(r.Source.Type)
	r.Export.Format = normalize(r.Export.Format)
	r.Export.Compression = normalize(r.Export.Compression)

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func mergeFile(file *File, o Overrides) *Resolved {
	d := DefaultOverrides()
	r := &Resolved{
		Source:  file.Database,
		Export:  file.Export,
		Logging: file.Logging,
	}

	if o.DBType != "" {
		r.Source.Type = o.DBType
	}
	if o.Conn != "" {
		r.Source.ConnectionString = o.Conn
	}
	if o.Username != "" {
		r.Source.Username = o.Username
	}
	if o.Password != "" {
		r.Source.Password = o.Password
	}
	if o.FetchSize != d.FetchSize {
		r.Source.FetchSize = o.FetchSize
	}

	if o.Query != "" {
		r.Export.Query = o.Query
	}
	if o.Output != "" {
		r.Export.OutputFile = o.Output
	}
	if o.Format != d.Format {
		r.Export.Format = o.Format
	}
	if o.Delimiter != "" {
		r.Export.Delimiter = o.Delimiter
	}
	if o.Progress {
		r.Export.ShowProgress = true
	}
	if o.Header {
		r.Export.IncludeHeader = true
	}
	if o.BufferSize != d.BufferSize {
		r.Export.BufferSize = o.BufferSize
	}
	if o.Compression != d.Compression {
		r.Export.Compression = o.Compression
	}
	if o.ProgressInterval != d.ProgressInterval {
		r.Export.ProgressInterval = o.ProgressInterval
	}

	if o.LogFile != "" {
		r.Logging.LogFile = o.LogFile
	}
	if o.Verbose {
		r.Logging.Verbose = true
	}
	return r
}

func fromFlags(o Overrides) (*Resolved, error) {
	required := []struct{ flag, value string }{
		{"--conn", o.Conn},
		{"--username", o.Username},
		{"--password", o.Password},
		{"--query", o.Query},
		{"--output", o.Output},
	}
	for _, req := range required {
		if strings.TrimSpace(req.value) == "" {
			return nil, errs.Configf("%s is required when no config file is given", req.flag)
		}
	}

	r := &Resolved{
		Source: SourceConfig{
			Type:             o.DBType,
			ConnectionString: o.Conn,
			Username:         o.Username,
			Password:         o.Password,
			FetchSize:        o.FetchSize,
		},
		Export: ExportSpec{
			Query:            o.Query,
			OutputFile:       o.Output,
			Format:           o.Format,
			Delimiter:        o.Delimiter,
			ShowProgress:     o.Progress,
			IncludeHeader:    o.Header,
			BufferSize:       o.BufferSize,
			Compression:      o.Compression,
			ProgressInterval: o.ProgressInterval,
		},
		Logging: TelemetryConfig{
			LogFile: o.LogFile,
			Verbose: o.Verbose,
		},
	}
	if r.Source.Type == "" {
		r.Source.Type = DefaultSourceType
	}
	if r.Export.Delimiter == "" {
		r.Export.Delimiter = DefaultDelimiter
	}
	if r.Export.Format == "" {
		r.Export.Format = DefaultFormat
	}
	if r.Export.Compression == "" {
		r.Export.Compression = DefaultCompression
	}
	return r, nil
}

// ResolveQuery returns the trimmed content of value when value names an
// existing regular file, and value itself otherwise.
func ResolveQuery(value string) (string, error) {
	info, err := os.Stat(value)
	if err != nil || !info.Mode().IsRegular() {
		return value, nil
	}
	content, err := os.ReadFile(value)
	if err != nil {
		return "", errs.Configf("unable to read query file %s: %w", value, err)
	}
	return strings.TrimSpace(string(content)), nil
}

// Validate checks the merged configuration.
func (r *Resolved) Validate() error {
	required := []struct{ key, value string }{
		{"database.connection_string", r.Source.ConnectionString},
		{"database.username", r.Source.Username},
		{"database.password", r.Source.Password},
		{"export.query", r.Export.Query},
		{"export.output_file", r.Export.OutputFile},
	}
	for _, req := range required {
		if strings.TrimSpace(req.value) == "" {
			return errs.Configf("%s is required", req.key)
		}
	}

	if r.Source.FetchSize < 1 {
		return errs.Configf("fetch size must be at least 1, got %d", r.Source.FetchSize)
	}
	if r.Export.BufferSize < 1 {
		return errs.Configf("buffer size must be at least 1 byte, got %d", r.Export.BufferSize)
	}
	if r.Export.ProgressInterval < 1 {
		return errs.Configf("progress interval must be at least 1 row, got %d", r.Export.ProgressInterval)
	}

	if !slices.Contains(Formats, r.Export.Format) {
		return errs.Configf("invalid format '%s'. Valid formats are: %s",
			r.Export.Format, strings.Join(Formats, ", "))
	}
	if !slices.Contains(output.Compressions(), r.Export.Compression) {
		return errs.Configf("invalid compression '%s'. Valid options are: %s",
			r.Export.Compression, strings.Join(output.Compressions(), ", "))
	}

	if err := validation.ValidateQuery(r.Export.Query); err != nil {
		return errs.Configf("%w", err)
	}
	return nil
}
