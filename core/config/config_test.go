package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fbz-tec/pgxstream/core/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalTOML = `
[database]
connection_string = "localhost:5432/sales"
username = "app"
password = "secret"

[export]
query = "SELECT id, name FROM customers"
output_file = "/tmp/customers.csv"
`

func TestLoadReader_Defaults(t *testing.T) {
	f, err := NewParser().LoadReader(minimalTOML, "toml")
	require.NoError(t, err)

	assert.Equal(t, DefaultSourceType, f.Database.Type)
	assert.Equal(t, DefaultFetchSize, f.Database.FetchSize)
	assert.Equal(t, "localhost:5432/sales", f.Database.ConnectionString)
	assert.Equal(t, FormatCSV, f.Export.Format)
	assert.Equal(t, "\x03", f.Export.Delimiter)
	assert.Equal(t, DefaultBufferSize, f.Export.BufferSize)
	assert.Equal(t, "none", f.Export.Compression)
	assert.Equal(t, int64(1_000_000), f.Export.ProgressInterval)
	assert.False(t, f.Export.ShowProgress)
	assert.False(t, f.Export.IncludeHeader)
	assert.Empty(t, f.Logging.LogFile)
	assert.False(t, f.Logging.Verbose)
}

func TestLoadReader_YAML(t *testing.T) {
	content := `
database:
  db_type: pg
  connection_string: db.internal:5432/app
  username: reader
  password: pw
  fetch_size: 5000
export:
  query: SELECT 1
  output_file: out.tsv
  format: tsv
  include_header: true
  show_progress: true
  compression: gzip
  buffer_size: 65536
  progress_interval: 250
logging:
  log_file: export.log
  verbose: true
`
	f, err := NewParser().LoadReader(content, "yaml")
	require.NoError(t, err)

	assert.Equal(t, "pg", f.Database.Type)
	assert.Equal(t, 5000, f.Database.FetchSize)
	assert.Equal(t, FormatTSV, f.Export.Format)
	assert.True(t, f.Export.IncludeHeader)
	assert.True(t, f.Export.ShowProgress)
	assert.Equal(t, "gzip", f.Export.Compression)
	assert.Equal(t, 65536, f.Export.BufferSize)
	assert.Equal(t, int64(250), f.Export.ProgressInterval)
	assert.Equal(t, "export.log", f.Logging.LogFile)
	assert.True(t, f.Logging.Verbose)
}

func TestLoadReader_EnvExpansion(t *testing.T) {
	t.Setenv("PGXSTREAM_TEST_PASSWORD", "from-env")
	t.Setenv("PGXSTREAM_TEST_DIR", "/data")

	content := `
[database]
connection_string = "localhost/db"
username = "app"
password = "${PGXSTREAM_TEST_PASSWORD}"

[export]
query = "SELECT $1::text, $$x$$"
output_file = "${PGXSTREAM_TEST_DIR}/out.csv"
`
	f, err := NewParser().LoadReader(content, "toml")
	require.NoError(t, err)

	assert.Equal(t, "from-env", f.Database.Password)
	assert.Equal(t, "/data/out.csv", f.Export.OutputFile)
	assert.Equal(t, "SELECT $1::text, $$x$$", f.Export.Query, "query must be taken literally")
}

func TestLoadFile_ByExtension(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "export.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
		"database": {"connection_string": "h/d", "username": "u", "password": "p"},
		"export": {"query": "SELECT 1", "output_file": "o.csv", "format": "custom", "delimiter": "|"}
	}`), 0o644))

	f, err := LoadFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, jsonPath, f.Path)
	assert.Equal(t, FormatCustom, f.Export.Format)
	assert.Equal(t, "|", f.Export.Delimiter)

	confPath := filepath.Join(dir, "export.conf")
	require.NoError(t, os.WriteFile(confPath, []byte(minimalTOML), 0o644))

	f, err = LoadFile(confPath)
	require.NoError(t, err, "unknown extensions are read as TOML")
	assert.Equal(t, "app", f.Database.Username)
}

func TestLoadFile_Errors(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(broken, []byte("[database\nusername ="), 0o644))

	for _, path := range []string{filepath.Join(dir, "missing.toml"), broken} {
		_, err := LoadFile(path)
		require.Error(t, err, path)
		assert.True(t, errs.Is(err, errs.Config), "%s: %v", path, err)
	}
}

func loadMinimal(t *testing.T) *File {
	t.Helper()
	f, err := NewParser().LoadReader(minimalTOML, "toml")
	require.NoError(t, err)
	return f
}

func TestResolve_FileWithOverrides(t *testing.T) {
	o := DefaultOverrides()
	o.Output = "/tmp/override.csv"
	o.Format = "TSV"
	o.Header = true
	o.FetchSize = 200
	o.Compression = "GZIP"

	r, err := Resolve(loadMinimal(t), o)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.csv", r.Export.OutputFile)
	assert.Equal(t, FormatTSV, r.Export.Format)
	assert.True(t, r.Export.IncludeHeader)
	assert.Equal(t, 200, r.Source.FetchSize)
	assert.Equal(t, "gzip", r.Export.Compression)
	// untouched values come from the file
	assert.Equal(t, "app", r.Source.Username)
	assert.Equal(t, "SELECT id, name FROM customers", r.Export.Query)
	assert.Equal(t, "\x03", r.Export.Delimiter)
}

func TestResolve_DefaultValuedFlagsKeepFileValues(t *testing.T) {
	f := loadMinimal(t)
	f.Export.Format = FormatTSV
	f.Export.Compression = "zstd"
	f.Export.BufferSize = 4096
	f.Export.ProgressInterval = 10
	f.Database.FetchSize = 50

	r, err := Resolve(f, DefaultOverrides())
	require.NoError(t, err)

	assert.Equal(t, FormatTSV, r.Export.Format)
	assert.Equal(t, "zstd", r.Export.Compression)
	assert.Equal(t, 4096, r.Export.BufferSize)
	assert.Equal(t, int64(10), r.Export.ProgressInterval)
	assert.Equal(t, 50, r.Source.FetchSize)
}

func flagOverrides() Overrides {
	o := DefaultOverrides()
	o.Conn = "localhost:5432/sales"
	o.Username = "app"
	o.Password = "secret"
	o.Query = "SELECT 1"
	o.Output = "out.csv"
	return o
}

func TestResolve_FlagsOnly(t *testing.T) {
	r, err := Resolve(nil, flagOverrides())
	require.NoError(t, err)

	assert.Equal(t, DefaultSourceType, r.Source.Type)
	assert.Equal(t, DefaultFetchSize, r.Source.FetchSize)
	assert.Equal(t, DefaultDelimiter, r.Export.Delimiter)
	assert.Equal(t, FormatCSV, r.Export.Format)
	assert.Equal(t, "none", r.Export.Compression)
}

func TestResolve_FlagsOnlyRequired(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Overrides)
		flag   string
	}{
		{"conn", func(o *Overrides) { o.Conn = "" }, "--conn"},
		{"username", func(o *Overrides) { o.Username = "" }, "--username"},
		{"password", func(o *Overrides) { o.Password = "" }, "--password"},
		{"query", func(o *Overrides) { o.Query = "  " }, "--query"},
		{"output", func(o *Overrides) { o.Output = "" }, "--output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := flagOverrides()
			tt.mutate(&o)

			_, err := Resolve(nil, o)
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.Config))
			assert.Contains(t, err.Error(), tt.flag)
		})
	}
}

func TestResolve_QueryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "query.sql")
	require.NoError(t, os.WriteFile(path, []byte("\n  SELECT 1 FROM DUAL  \n\n"), 0o644))

	o := flagOverrides()
	o.Query = path

	r, err := Resolve(nil, o)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM DUAL", r.Export.Query)
}

func TestResolve_QueryFileWithTerminator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.sql")
	require.NoError(t, os.WriteFile(path, []byte("-- users\nSELECT id FROM users;\n\n"), 0o644))

	o := flagOverrides()
	o.Query = path

	r, err := Resolve(nil, o)
	require.NoError(t, err)
	assert.Equal(t, "-- users\nSELECT id FROM users;", r.Export.Query)
}

func TestResolveQuery(t *testing.T) {
	dir := t.TempDir()

	got, err := ResolveQuery("SELECT 1 FROM DUAL")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 FROM DUAL", got)

	got, err = ResolveQuery(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got, "a directory is not a query file")

	missing := filepath.Join(dir, "missing.sql")
	got, err = ResolveQuery(missing)
	require.NoError(t, err)
	assert.Equal(t, missing, got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Resolved)
		errMsg string
	}{
		{"fetch size", func(r *Resolved) { r.Source.FetchSize = 0 }, "fetch size"},
		{"buffer size", func(r *Resolved) { r.Export.BufferSize = 0 }, "buffer size"},
		{"progress interval", func(r *Resolved) { r.Export.ProgressInterval = 0 }, "progress interval"},
		{"format", func(r *Resolved) { r.Export.Format = "xml" }, "invalid format"},
		{"compression", func(r *Resolved) { r.Export.Compression = "zip" }, "invalid compression"},
		{"missing query", func(r *Resolved) { r.Export.Query = "" }, "export.query"},
		{"missing password", func(r *Resolved) { r.Source.Password = "" }, "database.password"},
		{"write query", func(r *Resolved) { r.Export.Query = "DROP TABLE customers" }, "DROP"},
		{"two statements", func(r *Resolved) { r.Export.Query = "SELECT 1; SELECT 2" }, "single SQL statement"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Resolve(loadMinimal(t), DefaultOverrides())
			require.NoError(t, err)
			tt.mutate(r)

			err = r.Validate()
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.Config))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestResolve_InvalidMergedValue(t *testing.T) {
	o := flagOverrides()
	o.FetchSize = -1

	_, err := Resolve(nil, o)
	require.Error(t, err)
	assert.Equal(t, 2, errs.ExitCode(err))
}

func TestDescribe(t *testing.T) {
	r, err := Resolve(loadMinimal(t), DefaultOverrides())
	require.NoError(t, err)

	out, err := r.Describe()
	require.NoError(t, err)
	text := string(out)

	assert.NotContains(t, text, "secret")
	assert.Contains(t, text, "********")
	assert.Contains(t, text, "fetch_size: 1000")

	db := indexOf(t, text, "database:")
	export := indexOf(t, text, "export:")
	logging := indexOf(t, text, "logging:")
	assert.Less(t, db, export)
	assert.Less(t, export, logging)
	assert.Less(t, indexOf(t, text, "db_type:"), indexOf(t, text, "connection_string:"))
}

func indexOf(t *testing.T, s, sub string) int {
	t.Helper()
	i := strings.Index(s, sub)
	if i < 0 {
		t.Fatalf("%q not found in:\n%s", sub, s)
	}
	return i
}
