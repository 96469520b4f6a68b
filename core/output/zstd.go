package output

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

func newZstdEncoder(w io.Writer) (io.WriteCloser, error) {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("error creating zstd writer: %w", err)
	}
	return enc, nil
}
