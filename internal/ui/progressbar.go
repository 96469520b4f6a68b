package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fbz-tec/pgxstream/internal/logger"
	"github.com/schollz/progressbar/v3"
)

func NewProgressBar(w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions64(-1,
		progressbar.OptionSetDescription("Exporting rows"),
		progressbar.OptionEnableColorCodes(false),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(15),
	)
}

// ProgressReporter turns progress observations into log lines, and drives
// a spinner when attached to a terminal.
type ProgressReporter struct {
	bar *progressbar.ProgressBar
}

// NewProgressReporter returns a reporter. The spinner is only used when
// interactive is true.
func NewProgressReporter(interactive bool) *ProgressReporter {
	r := &ProgressReporter{}
	if interactive {
		r.bar = NewProgressBar(os.Stderr)
	}
	return r
}

// Progress reports rows exported after elapsed streaming time.
func (r *ProgressReporter) Progress(rows int64, elapsed time.Duration) {
	msg := FormatProgress(rows, elapsed)
	if r.bar == nil {
		logger.Info("%s", msg)
		return
	}
	r.bar.Describe(msg)
	_ = r.bar.Set64(rows)
	logger.Debug("%s", msg)
}

// Finish clears the spinner, if any.
func (r *ProgressReporter) Finish() {
	if r.bar == nil {
		return
	}
	_ = r.bar.Finish()
	r.bar = nil
}

// FormatProgress renders one progress line.
func FormatProgress(rows int64, elapsed time.Duration) string {
	var rate float64
	if elapsed > 0 {
		rate = float64(rows) / elapsed.Seconds()
	}
	return fmt.Sprintf("Exported %d rows (%.0f rows/s, elapsed %v)", rows, rate, elapsed.Truncate(100*time.Millisecond))
}
