package exporters

import (
	"github.com/fbz-tec/pgxstream/core/config"
)

// Format chooses the field delimiter of a delimited-text output.
type Format interface {
	Name() string
	// Delimiter maps the configured delimiter string to the byte written
	// between fields.
	Delimiter(configured string) byte
}

// separatedFormat uses the configured delimiter when it is exactly one
// byte long and falls back to a comma otherwise.
type separatedFormat struct {
	name string
}

func (f separatedFormat) Name() string { return f.name }

func (f separatedFormat) Delimiter(configured string) byte {
	if len(configured) == 1 {
		return configured[0]
	}
	return ','
}

type tsvFormat struct{}

func (tsvFormat) Name() string { return config.FormatTSV }

func (tsvFormat) Delimiter(string) byte { return '\t' }

func init() {
	MustRegister(config.FormatCSV, func() Format { return separatedFormat{name: config.FormatCSV} })
	MustRegister(config.FormatTSV, func() Format { return tsvFormat{} })
	// custom is csv with an explicitly chosen delimiter
	MustRegister(config.FormatCustom, func() Format { return separatedFormat{name: config.FormatCustom} })
}
