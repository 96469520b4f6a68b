package output

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

func newGzipEncoder(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriterLevel(w, gzip.DefaultCompression)
}
