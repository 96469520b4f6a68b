package encoders

import (
	"bytes"
	"encoding/csv"
	"slices"
	"testing"

	"github.com/fbz-tec/pgxstream/core/errs"
)

func TestAppendRecord(t *testing.T) {
	tests := []struct {
		name   string
		delim  byte
		fields []string
		want   string
	}{
		{"plain fields", ',', []string{"1", "Alice"}, "1,Alice\n"},
		{"empty trailing field", ',', []string{"2", ""}, "2,\n"},
		{"field with delimiter", ',', []string{"a,b", "c"}, "\"a,b\",c\n"},
		{"field with quote", ',', []string{`say "hi"`}, "\"say \"\"hi\"\"\"\n"},
		{"field with newline", ',', []string{"line1\nline2", "x"}, "\"line1\nline2\",x\n"},
		{"field with carriage return", ',', []string{"a\rb"}, "\"a\rb\"\n"},
		{"comma not special for tab", '\t', []string{"a,b", "c"}, "a,b\tc\n"},
		{"tab quoted for tab", '\t', []string{"a\tb", "c"}, "\"a\tb\"\tc\n"},
		{"control delimiter", 0x03, []string{"x", "y,z"}, "x\x03y,z\n"},
		{"leading space not quoted", ',', []string{" padded"}, " padded\n"},
		{"single empty field", ',', []string{""}, "\"\"\n"},
		{"only quotes", ',', []string{`""`}, "\"\"\"\"\"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewDelimitedEncoder(tt.delim)
			if err != nil {
				t.Fatalf("NewDelimitedEncoder() error = %v", err)
			}
			got, err := enc.AppendRecord(nil, tt.fields)
			if err != nil {
				t.Fatalf("AppendRecord() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("AppendRecord() = %q, want %q", string(got), tt.want)
			}
		})
	}
}

func TestAppendRecordReusesBuffer(t *testing.T) {
	enc, _ := NewDelimitedEncoder(',')

	buf := make([]byte, 0, 64)
	buf, _ = enc.AppendRecord(buf[:0], []string{"a", "b"})
	buf, _ = enc.AppendRecord(buf[:0], []string{"c", "d"})

	if string(buf) != "c,d\n" {
		t.Errorf("buffer = %q, want %q", string(buf), "c,d\n")
	}
}

func TestFieldCountMismatch(t *testing.T) {
	enc, _ := NewDelimitedEncoder(',')

	if _, err := enc.Encode([]string{"id", "name"}); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if enc.Width() != 2 {
		t.Errorf("Width() = %d, want 2", enc.Width())
	}

	_, err := enc.Encode([]string{"1"})
	if err == nil {
		t.Fatal("Encode() with wrong field count should fail")
	}
	if !errs.Is(err, errs.Encoding) {
		t.Errorf("error kind = %v, want encoding", errs.KindOf(err))
	}
}

func TestInvalidDelimiters(t *testing.T) {
	for _, d := range []byte{'"', '\r', '\n', 0x80, 0xff} {
		if _, err := NewDelimitedEncoder(d); err == nil {
			t.Errorf("NewDelimitedEncoder(0x%02x) expected error", d)
		} else if !errs.Is(err, errs.Encoding) {
			t.Errorf("NewDelimitedEncoder(0x%02x) kind = %v, want encoding", d, errs.KindOf(err))
		}
	}
}

func TestDeterministic(t *testing.T) {
	fields := []string{"1", "O'Brien", "a \"quoted\" value", "multi\nline", ""}

	a, _ := NewDelimitedEncoder(';')
	b, _ := NewDelimitedEncoder(';')

	first, _ := a.Encode(fields)
	second, _ := b.Encode(fields)
	if !bytes.Equal(first, second) {
		t.Errorf("encodings differ: %q vs %q", first, second)
	}
}

func TestRoundTripWithCSVReader(t *testing.T) {
	rows := [][]string{
		{"1", "Alice", ""},
		{"2", "Bob, Jr.", "said \"hello\""},
		{"3", "multi\nline", "trailing space "},
		{"4", "", ""},
	}

	enc, _ := NewDelimitedEncoder(',')
	var out []byte
	var err error
	for _, r := range rows {
		out, err = enc.AppendRecord(out, r)
		if err != nil {
			t.Fatalf("AppendRecord() error = %v", err)
		}
	}

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(records) != len(rows) {
		t.Fatalf("got %d records, want %d", len(records), len(rows))
	}
	for i := range rows {
		if !slices.Equal(records[i], rows[i]) {
			t.Errorf("record %d = %q, want %q", i, records[i], rows[i])
		}
	}
}

func BenchmarkAppendRecord(b *testing.B) {
	enc, _ := NewDelimitedEncoder(',')
	fields := []string{"123456", "some name", "2024-01-02 03:04:05", "a,b", ""}
	buf := make([]byte, 0, 256)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf, _ = enc.AppendRecord(buf[:0], fields)
	}
}
