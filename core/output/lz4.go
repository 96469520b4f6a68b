package output

import (
	"io"

	"github.com/pierrec/lz4/v4"
)

func newLz4Encoder(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}
