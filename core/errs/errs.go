// Package errs defines the error taxonomy shared by the export pipeline.
// Every failure surfaced to the CLI carries a Kind (what went wrong) and a
// Phase (where in the run it happened).
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	Unknown Kind = iota
	Config
	Connection
	Query
	IO
	Encoding
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "configuration error"
	case Connection:
		return "connection error"
	case Query:
		return "query error"
	case IO:
		return "i/o error"
	case Encoding:
		return "encoding error"
	default:
		return "error"
	}
}

// Phase names the pipeline stage an error was raised in.
type Phase string

const (
	PhaseConfig  Phase = "config"
	PhaseConnect Phase = "connect"
	PhaseQuery   Phase = "query"
	PhaseWrite   Phase = "write"
	PhaseEncode  Phase = "encode"
)

// Error is a classified failure. Path is set for output errors.
type Error struct {
	Kind  Kind
	Phase Phase
	Path  string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Phase != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Phase)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap classifies err. A nil err yields nil; an err that is already
// classified is returned unchanged so the innermost classification wins.
func Wrap(kind Kind, phase Phase, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Phase: phase, Err: err}
}

// WrapPath is Wrap for failures tied to a file.
func WrapPath(kind Kind, phase Phase, path string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Phase: phase, Path: path, Err: err}
}

// Configf builds a configuration error from a format string.
func Configf(format string, args ...any) error {
	return &Error{Kind: Config, Phase: PhaseConfig, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the Kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case Config:
		return 2
	case Connection:
		return 3
	case Query:
		return 4
	case IO:
		return 5
	case Encoding:
		return 6
	default:
		return 1
	}
}
