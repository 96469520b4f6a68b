package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger interface defines the logging methods
type Logger interface {
	Info(format string, args ...any)
	Debug(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
	SetOutput(out io.Writer)
	SetVerbose(enabled bool)
	SetQuiet(enabled bool)
	IsVerbose() bool
	IsQuiet() bool
}

// Options configures the process-wide logger.
type Options struct {
	// LogFile, when set, redirects all log output to the file (append mode).
	LogFile string
	Verbose bool
	Quiet   bool
}

// ZeroLogger implements Logger on top of zerolog.
type ZeroLogger struct {
	mu          sync.RWMutex
	zl          zerolog.Logger
	file        io.Closer
	verboseMode bool
	quietMode   bool
}

var (
	instance *ZeroLogger
	once     sync.Once
	isTTY    bool
)

// GetLogger returns the singleton instance
func GetLogger() Logger {
	return get()
}

func get() *ZeroLogger {
	once.Do(func() {
		isTTY = term.IsTerminal(int(os.Stderr.Fd()))
		instance = &ZeroLogger{}
		instance.zl = newConsole(os.Stderr, !isTTY)
		instance.applyLevel()
	})
	return instance
}

// Setup applies verbosity and output settings. A log file replaces the
// console writer; Close releases it.
func Setup(opts Options) {
	l := get()
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}

	if opts.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
		}
		l.file = lj
		l.zl = newConsole(lj, true)
	} else {
		l.zl = newConsole(os.Stderr, !isTTY)
	}

	l.verboseMode = opts.Verbose && !opts.Quiet
	l.quietMode = opts.Quiet
	l.applyLevelLocked()
}

// Close releases the log file opened by Setup, if any.
func Close() error {
	l := get()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// SetVerbose enables or disables verbose mode globally
func SetVerbose(verbose bool) {
	GetLogger().SetVerbose(verbose)
}

func IsVerbose() bool {
	return GetLogger().IsVerbose()
}

func SetQuiet(quiet bool) {
	GetLogger().SetQuiet(quiet)
}

func IsQuiet() bool {
	return GetLogger().IsQuiet()
}

// IsTerminal reports whether log output goes to an interactive terminal.
func IsTerminal() bool {
	l := get()
	l.mu.RLock()
	defer l.mu.RUnlock()
	return isTTY && l.file == nil
}

// Global helper functions for convenience
func Info(format string, args ...any)    { GetLogger().Info(format, args...) }
func Debug(format string, args ...any)   { GetLogger().Debug(format, args...) }
func Success(format string, args ...any) { GetLogger().Success(format, args...) }
func Warn(format string, args ...any)    { GetLogger().Warn(format, args...) }
func Error(format string, args ...any)   { GetLogger().Error(format, args...) }

// DebugObject logs msg at debug level with obj attached under key.
func DebugObject(msg, key string, obj zerolog.LogObjectMarshaler) {
	l := get()
	l.mu.RLock()
	ev := l.zl.Debug()
	l.mu.RUnlock()
	ev.Object(key, obj).Msg(msg)
}

// -------------------- Implementation --------------------

func newConsole(out io.Writer, noColor bool) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor,
		TimeFormat: "2006-01-02 15:04:05.000",
	}
	return zerolog.New(cw).With().Timestamp().Logger()
}

func (l *ZeroLogger) applyLevel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.applyLevelLocked()
}

func (l *ZeroLogger) applyLevelLocked() {
	switch {
	case l.quietMode:
		l.zl = l.zl.Level(zerolog.ErrorLevel)
	case l.verboseMode:
		l.zl = l.zl.Level(zerolog.DebugLevel)
	default:
		l.zl = l.zl.Level(zerolog.InfoLevel)
	}
}

func (l *ZeroLogger) SetOutput(out io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl = newConsole(out, true)
	l.applyLevelLocked()
}

func (l *ZeroLogger) SetVerbose(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verboseMode = enabled
	l.applyLevelLocked()
}

func (l *ZeroLogger) IsVerbose() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verboseMode
}

func (l *ZeroLogger) SetQuiet(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quietMode = enabled
	l.applyLevelLocked()
}

func (l *ZeroLogger) IsQuiet() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.quietMode
}

func (l *ZeroLogger) Info(format string, args ...any) {
	l.emit(zerolog.InfoLevel, format, args...)
}

func (l *ZeroLogger) Debug(format string, args ...any) {
	l.emit(zerolog.DebugLevel, format, args...)
}

func (l *ZeroLogger) Success(format string, args ...any) {
	l.mu.RLock()
	ev := l.zl.Info()
	l.mu.RUnlock()
	ev.Bool("ok", true).Msgf(format, args...)
}

func (l *ZeroLogger) Warn(format string, args ...any) {
	l.emit(zerolog.WarnLevel, format, args...)
}

func (l *ZeroLogger) Error(format string, args ...any) {
	l.emit(zerolog.ErrorLevel, format, args...)
}

func (l *ZeroLogger) emit(level zerolog.Level, format string, args ...any) {
	var ev *zerolog.Event
	l.mu.RLock()
	switch level {
	case zerolog.DebugLevel:
		ev = l.zl.Debug()
	case zerolog.InfoLevel:
		ev = l.zl.Info()
	case zerolog.WarnLevel:
		ev = l.zl.Warn()
	default:
		ev = l.zl.Error()
	}
	l.mu.RUnlock()
	// a filtered level yields a nil event, which is a no-op
	ev.Msgf(format, args...)
}
