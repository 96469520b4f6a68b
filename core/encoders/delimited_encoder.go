package encoders

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fbz-tec/pgxstream/core/errs"
)

// DelimitedEncoder turns a record into one line of delimited text.
//
// A field is quoted when it contains the delimiter, a double quote, a
// carriage return or a line feed; quotes inside a quoted field are doubled.
// Every record ends with "\n". A record made of a single empty field is
// written as "" so that it survives a round trip. The encoder is not safe
// for concurrent use.
type DelimitedEncoder struct {
	delim   byte
	special string
	width   int
}

// NewDelimitedEncoder returns an encoder for delim. Delimiters that collide
// with the quoting rules or are not a single ASCII byte are rejected.
func NewDelimitedEncoder(delim byte) (*DelimitedEncoder, error) {
	switch {
	case delim == '"', delim == '\r', delim == '\n':
		return nil, errs.Wrap(errs.Encoding, errs.PhaseEncode,
			fmt.Errorf("delimiter %q cannot be used with quoted fields", delim))
	case delim >= utf8.RuneSelf:
		return nil, errs.Wrap(errs.Encoding, errs.PhaseEncode,
			fmt.Errorf("delimiter 0x%02x is not a single-byte character", delim))
	}
	return &DelimitedEncoder{
		delim:   delim,
		special: string([]byte{delim, '"', '\r', '\n'}),
	}, nil
}

// Delimiter returns the separator byte.
func (e *DelimitedEncoder) Delimiter() byte {
	return e.delim
}

// Width returns the field count fixed by the first encoded record, or 0.
func (e *DelimitedEncoder) Width() int {
	return e.width
}

// AppendRecord appends the encoded record to dst. The first record fixes the
// field count; later records with a different count are rejected.
func (e *DelimitedEncoder) AppendRecord(dst []byte, fields []string) ([]byte, error) {
	if e.width == 0 {
		e.width = len(fields)
	} else if len(fields) != e.width {
		return dst, errs.Wrap(errs.Encoding, errs.PhaseEncode,
			fmt.Errorf("record has %d fields, expected %d", len(fields), e.width))
	}

	// a lone empty field would otherwise produce a blank line, which readers skip
	if len(fields) == 1 && fields[0] == "" {
		return append(dst, '"', '"', '\n'), nil
	}

	for i, f := range fields {
		if i > 0 {
			dst = append(dst, e.delim)
		}
		dst = e.appendField(dst, f)
	}
	return append(dst, '\n'), nil
}

// Encode returns the encoded record in a fresh slice.
func (e *DelimitedEncoder) Encode(fields []string) ([]byte, error) {
	return e.AppendRecord(make([]byte, 0, estimateSize(fields)), fields)
}

func (e *DelimitedEncoder) appendField(dst []byte, f string) []byte {
	if !strings.ContainsAny(f, e.special) {
		return append(dst, f...)
	}

	dst = append(dst, '"')
	for {
		i := strings.IndexByte(f, '"')
		if i < 0 {
			break
		}
		dst = append(dst, f[:i+1]...)
		dst = append(dst, '"')
		f = f[i+1:]
	}
	dst = append(dst, f...)
	return append(dst, '"')
}

func estimateSize(fields []string) int {
	n := len(fields) + 1
	for _, f := range fields {
		n += len(f)
	}
	return n
}
