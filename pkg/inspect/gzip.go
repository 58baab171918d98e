package inspect

import (
	"bytes"

	gziplib "github.com/klauspost/compress/gzip"
)

// Gzip compresses an encoded tile for storage and size reporting.
func Gzip(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	g, err := gziplib.NewWriterLevel(&buf, gziplib.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := g.Write(data); err != nil {
		return nil, err
	}
	if err := g.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
