// Package stats computes and renders the summary of an export run.
package stats

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const mib = 1024 * 1024

// Counters are accumulated by the pipeline while rows stream through it.
// SourceRead and Write are disjoint and add up to the streaming time.
type Counters struct {
	Rows       int64
	SourceRead time.Duration
	Write      time.Duration
}

// ExportStats is the outcome of a completed run.
type ExportStats struct {
	RowsExported    int64
	Duration        time.Duration
	FileSizeBytes   int64
	SourceReadTime  time.Duration
	WriteTime       time.Duration
	AvgRowSizeBytes float64
}

// Compute derives the run statistics. size is the on-disk size of the
// output, so the average row size reflects compression.
func Compute(c Counters, elapsed time.Duration, size int64) ExportStats {
	s := ExportStats{
		RowsExported:   c.Rows,
		Duration:       elapsed,
		FileSizeBytes:  size,
		SourceReadTime: c.SourceRead,
		WriteTime:      c.Write,
	}
	if c.Rows > 0 {
		s.AvgRowSizeBytes = float64(size) / float64(c.Rows)
	}
	return s
}

func (s ExportStats) RowsPerSec() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.RowsExported) / s.Duration.Seconds()
}

func (s ExportStats) MBPerSec() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return s.FileSizeMB() / s.Duration.Seconds()
}

func (s ExportStats) FileSizeMB() float64 {
	return float64(s.FileSizeBytes) / mib
}

// ReadPercent is the share of the run spent waiting on the source.
func (s ExportStats) ReadPercent() float64 {
	return percent(s.SourceReadTime, s.Duration)
}

// WritePercent is the share of the run spent encoding and writing.
func (s ExportStats) WritePercent() float64 {
	return percent(s.WriteTime, s.Duration)
}

func percent(part, total time.Duration) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// Render writes the human-readable summary to w.
func (s ExportStats) Render(w io.Writer) error {
	p := message.NewPrinter(language.English)

	lines := []struct {
		format string
		args   []any
	}{
		{"\n=== Export Summary ===\n", nil},
		{"Rows exported: %d\n", []any{s.RowsExported}},
		{"Duration: %.2f seconds\n", []any{s.Duration.Seconds()}},
		{"File size: %d bytes (%.2f MB)\n", []any{s.FileSizeBytes, s.FileSizeMB()}},
		{"Speed: %.2f rows/second\n", []any{s.RowsPerSec()}},
		{"\n=== Performance Details ===\n", nil},
		{"Source read time: %.2f seconds (%.1f%%)\n", []any{s.SourceReadTime.Seconds(), s.ReadPercent()}},
		{"Write time: %.2f seconds (%.1f%%)\n", []any{s.WriteTime.Seconds(), s.WritePercent()}},
		{"Average row size: %.2f bytes\n", []any{s.AvgRowSizeBytes}},
		{"Throughput: %.2f MB/second\n", []any{s.MBPerSec()}},
	}
	for _, l := range lines {
		if _, err := p.Fprintf(w, l.format, l.args...); err != nil {
			return err
		}
	}
	return nil
}

// MarshalZerologObject lets the summary be attached to a log event.
func (s ExportStats) MarshalZerologObject(e *zerolog.Event) {
	e.Int64("rows", s.RowsExported).
		Dur("duration", s.Duration).
		Int64("size_bytes", s.FileSizeBytes).
		Dur("source_read", s.SourceReadTime).
		Dur("write", s.WriteTime).
		Float64("rows_per_sec", s.RowsPerSec()).
		Float64("mb_per_sec", s.MBPerSec())
}
