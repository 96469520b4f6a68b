package exporters

import (
	"context"
	"time"

	"github.com/fbz-tec/pgxstream/core/config"
	"github.com/fbz-tec/pgxstream/core/db"
	"github.com/fbz-tec/pgxstream/core/encoders"
	"github.com/fbz-tec/pgxstream/core/errs"
	"github.com/fbz-tec/pgxstream/core/output"
	"github.com/fbz-tec/pgxstream/core/stats"
	"github.com/fbz-tec/pgxstream/internal/logger"
	"github.com/google/uuid"
)

// State is the lifecycle position of an export run.
type State int

const (
	Idle State = iota
	Connected
	Exporting
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connected:
		return "connected"
	case Exporting:
		return "exporting"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// RunCounters are the per-run counters owned by the pipeline.
type RunCounters = stats.Counters

// ProgressObserver is notified every ProgressInterval rows with the time
// elapsed since streaming began.
type ProgressObserver interface {
	Progress(rows int64, elapsed time.Duration)
}

type Option func(*Exporter)

// WithProgress sets the observer notified when progress is enabled.
func WithProgress(p ProgressObserver) Option {
	return func(e *Exporter) { e.progress = p }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// Exporter streams the result of one query into one output file.
type Exporter struct {
	id       string
	cfg      *config.Resolved
	progress ProgressObserver
	now      func() time.Time
	state    State
	counters RunCounters
}

// New creates an exporter for cfg. cfg must not change once Run starts.
func New(cfg *config.Resolved, opts ...Option) *Exporter {
	e := &Exporter{id: uuid.NewString(), cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ID identifies the run in log output.
func (e *Exporter) ID() string {
	return e.id
}

// State returns the current lifecycle state.
func (e *Exporter) State() State {
	return e.state
}

// Counters returns the counters accumulated so far.
func (e *Exporter) Counters() RunCounters {
	return e.counters
}

// Run connects src, streams the query into the output file and returns the
// run statistics. On failure the partially written file is left in place.
func (e *Exporter) Run(ctx context.Context, src db.RowSource) (*stats.ExportStats, error) {
	start := e.now()
	spec := e.cfg.Export
	e.counters = RunCounters{}

	format, err := Get(spec.Format)
	if err != nil {
		return nil, e.fail(errs.Configf("%w", err))
	}
	enc, err := encoders.NewDelimitedEncoder(format.Delimiter(spec.Delimiter))
	if err != nil {
		return nil, e.fail(err)
	}
	logger.Debug("Preparing %s export (delimiter=%q, header=%v, compression=%s)",
		format.Name(), string(enc.Delimiter()), spec.IncludeHeader, spec.Compression)

	if err := src.Connect(ctx); err != nil {
		return nil, e.fail(errs.Wrap(errs.Connection, errs.PhaseConnect, err))
	}
	defer src.Close()
	e.transition(Connected)

	sink, err := output.CreateWriter(output.OutputConfig{
		Path:        spec.OutputFile,
		Compression: spec.Compression,
		BufferSize:  spec.BufferSize,
	})
	if err != nil {
		return nil, e.fail(err)
	}
	defer sink.Close()

	var buf []byte
	if spec.IncludeHeader {
		columns, err := src.DiscoverColumns(ctx, spec.Query)
		if err != nil {
			return nil, e.fail(errs.Wrap(errs.Query, errs.PhaseQuery, err))
		}
		if buf, err = enc.AppendRecord(buf[:0], columns); err != nil {
			return nil, e.fail(err)
		}
		if _, err := sink.Write(buf); err != nil {
			return nil, e.fail(err)
		}
	}

	e.transition(Exporting)
	interval := spec.ProgressInterval
	if interval < 1 {
		interval = config.DefaultProgressInterval
	}
	notify := spec.ShowProgress && e.progress != nil

	streamStart := e.now()
	_, err = src.StreamQuery(ctx, spec.Query, func(row db.Row) error {
		// time spent in here, progress included, is write time
		writeStart := e.now()
		e.counters.Rows++

		var encErr error
		if buf, encErr = enc.AppendRecord(buf[:0], row); encErr != nil {
			return encErr
		}
		if _, err := sink.Write(buf); err != nil {
			return err
		}

		if notify && e.counters.Rows%interval == 0 {
			e.progress.Progress(e.counters.Rows, e.now().Sub(streamStart))
		}
		e.counters.Write += e.now().Sub(writeStart)
		return nil
	})
	e.counters.SourceRead = max(e.now().Sub(streamStart)-e.counters.Write, 0)
	if err != nil {
		return nil, e.fail(errs.Wrap(errs.Query, errs.PhaseQuery, err))
	}

	if err := sink.Close(); err != nil {
		return nil, e.fail(err)
	}
	size, err := sink.Size()
	if err != nil {
		return nil, e.fail(err)
	}

	result := stats.Compute(e.counters, e.now().Sub(start), size)
	e.transition(Completed)
	logger.Debug("Export completed: %d rows x %d columns written to %s in %v (%d bytes before compression, %d on disk)",
		result.RowsExported, enc.Width(), sink.Path(), result.Duration.Round(time.Millisecond),
		sink.BytesWritten(), size)
	e.checkSlowSource(result)
	return &result, nil
}

func (e *Exporter) transition(to State) {
	logger.Debug("Export %s: %s -> %s", e.id, e.state, to)
	e.state = to
}

func (e *Exporter) fail(err error) error {
	e.transition(Failed)
	return err
}

// checkSlowSource suggests a larger fetch size when most of the run was
// spent waiting on the source.
func (e *Exporter) checkSlowSource(s stats.ExportStats) {
	if !logger.IsVerbose() || s.RowsExported <= 1000 {
		return
	}
	if s.ReadPercent() > 70 {
		logger.Warn("Slow row streaming detected (%.0f%% of the run spent reading)", s.ReadPercent())
		logger.Info("Current fetch size is %d rows; a larger --fetch value reduces round trips", e.cfg.Source.FetchSize)
	}
}
