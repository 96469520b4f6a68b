package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fbz-tec/pgxstream/core/errs"
	"github.com/fbz-tec/pgxstream/internal/logger"
)

const (
	None = "none"
	GZIP = "gzip"
	ZSTD = "zstd"
	LZ4  = "lz4"
)

// DefaultBufferSize is used when OutputConfig.BufferSize is not positive.
const DefaultBufferSize = 1024 * 1024

type encoderFactory func(w io.Writer) (io.WriteCloser, error)

var encoders = map[string]encoderFactory{
	GZIP: newGzipEncoder,
	ZSTD: newZstdEncoder,
	LZ4:  newLz4Encoder,
}

// Compressions lists the accepted compression names.
func Compressions() []string {
	return []string{None, GZIP, ZSTD, LZ4}
}

// OutputConfig holds configuration for output file creation.
type OutputConfig struct {
	Path        string
	Compression string
	BufferSize  int
}

// Sink is a buffered, optionally compressed file writer. The buffer sits in
// front of the compressor so the file sees few, large writes.
type Sink struct {
	path     string
	wc       io.WriteCloser
	written  int64
	closed   bool
	closeErr error
	opened   time.Time
}

// CreateWriter creates the output file at cfg.Path (the path is used as-is)
// and returns a sink writing to it. Supported compressions: none, gzip,
// zstd, lz4. Failures are i/o errors carrying the path.
func CreateWriter(cfg OutputConfig) (*Sink, error) {
	compression := strings.ToLower(strings.TrimSpace(cfg.Compression))
	if compression == "" {
		compression = None
	}

	var factory encoderFactory
	if compression != None {
		f, ok := encoders[compression]
		if !ok {
			return nil, errs.WrapPath(errs.IO, errs.PhaseWrite, cfg.Path,
				fmt.Errorf("unsupported compression type %q", cfg.Compression))
		}
		factory = f
	}

	size := cfg.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}

	logger.Debug("Creating output file: %s (compression=%s, buffer=%d bytes)", cfg.Path, compression, size)
	file, err := os.Create(cfg.Path)
	if err != nil {
		return nil, errs.WrapPath(errs.IO, errs.PhaseWrite, cfg.Path, fmt.Errorf("error creating file: %w", err))
	}

	var under io.WriteCloser = file
	if factory != nil {
		enc, err := factory(file)
		if err != nil {
			file.Close()
			return nil, errs.WrapPath(errs.IO, errs.PhaseWrite, cfg.Path, err)
		}
		under = stack(enc, file)
	}

	return &Sink{
		path:   cfg.Path,
		wc:     newBufferedWriteCloser(under, size),
		opened: time.Now(),
	}, nil
}

// Write implements io.Writer.
func (s *Sink) Write(p []byte) (int, error) {
	if s.closed {
		return 0, errs.WrapPath(errs.IO, errs.PhaseWrite, s.path, os.ErrClosed)
	}
	n, err := s.wc.Write(p)
	s.written += int64(n)
	if err != nil {
		return n, errs.WrapPath(errs.IO, errs.PhaseWrite, s.path, err)
	}
	return n, nil
}

// Close flushes the buffer, finalizes the compressor and closes the file.
// Every layer is released even if an earlier one fails. Close is idempotent
// and returns the first close result on later calls.
func (s *Sink) Close() error {
	if s.closed {
		return s.closeErr
	}
	s.closed = true
	if err := s.wc.Close(); err != nil {
		s.closeErr = errs.WrapPath(errs.IO, errs.PhaseWrite, s.path, err)
		return s.closeErr
	}
	logger.Debug("Output file closed in %v: %s", time.Since(s.opened).Round(time.Millisecond), s.path)
	return nil
}

// Path returns the destination path.
func (s *Sink) Path() string {
	return s.path
}

// BytesWritten returns the number of bytes accepted before compression.
func (s *Sink) BytesWritten() int64 {
	return s.written
}

// Size returns the on-disk size of the output file. It is only meaningful
// after Close, so calling it earlier is an error.
func (s *Sink) Size() (int64, error) {
	if !s.closed {
		return 0, errs.WrapPath(errs.IO, errs.PhaseWrite, s.path, fmt.Errorf("size requested before close"))
	}
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, errs.WrapPath(errs.IO, errs.PhaseWrite, s.path, err)
	}
	return info.Size(), nil
}
