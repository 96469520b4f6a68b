package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fbz-tec/pgxstream/internal/logger"
)

func TestFormatProgress(t *testing.T) {
	tests := []struct {
		rows    int64
		elapsed time.Duration
		want    string
	}{
		{1000000, 4 * time.Second, "Exported 1000000 rows (250000 rows/s, elapsed 4s)"},
		{10, 1234 * time.Millisecond, "Exported 10 rows (8 rows/s, elapsed 1.2s)"},
		{5, 0, "Exported 5 rows (0 rows/s, elapsed 0s)"},
	}
	for _, tt := range tests {
		if got := FormatProgress(tt.rows, tt.elapsed); got != tt.want {
			t.Errorf("FormatProgress(%d, %v) = %q, want %q", tt.rows, tt.elapsed, got, tt.want)
		}
	}
}

func TestProgressReporter_NonInteractiveLogs(t *testing.T) {
	var buf bytes.Buffer
	logger.GetLogger().SetOutput(&buf)
	t.Cleanup(func() { logger.Setup(logger.Options{}) })

	r := NewProgressReporter(false)
	r.Progress(2000, 2*time.Second)
	r.Finish()

	if !strings.Contains(buf.String(), "Exported 2000 rows (1000 rows/s, elapsed 2s)") {
		t.Errorf("progress line missing from log output: %q", buf.String())
	}
}

func TestProgressReporter_Interactive(t *testing.T) {
	var out bytes.Buffer
	r := &ProgressReporter{bar: NewProgressBar(&out)}

	r.Progress(10, time.Second)
	r.Finish()
	r.Finish()

	if r.bar != nil {
		t.Error("Finish() should release the spinner")
	}
}
