// Package coding wraps compress/gzip behind a small reusable-buffer GZIP
// type, the same shape indigo's http/coding package uses.
package coding

import (
	"bytes"
	"compress/gzip"
)

// GZIP is a reusable gzip encoder; it has no decoding side. None of its
// methods are safe for concurrent use on the same instance.
type GZIP struct {
	buf    *bytes.Buffer
	writer *gzip.Writer
}

// NewGZIP returns a ready-to-use GZIP coder.
func NewGZIP() *GZIP {
	writer, _ := gzip.NewWriterLevel(nil, gzip.BestCompression)

	return &GZIP{
		buf:    bytes.NewBuffer(nil),
		writer: writer,
	}
}

// Compress gzips input and returns the compressed bytes. The returned
// slice aliases the coder's internal buffer and is only valid until the
// next call to Compress.
func (g *GZIP) Compress(input []byte) ([]byte, error) {
	g.buf.Reset()
	g.writer.Reset(g.buf)

	if _, err := g.writer.Write(input); err != nil {
		return nil, err
	}

	if err := g.writer.Close(); err != nil {
		return nil, err
	}

	return g.buf.Bytes(), nil
}
