// Package writer implements the per-connection framed writer: it enforces
// the declared response length and serializes the response header ahead
// of any body byte via a one-shot pre-write task.
package writer

import (
	"fmt"
	"io"
	"net"

	"github.com/hearth-http/hearth/errors"
)

const copyBufferSize = 8 * 1024

// Writer holds the underlying stream, the declared response length, the
// running position, and a pending pre-write task — the deferred write of
// the response header that must complete before any body byte reaches the
// wire (§9).
type Writer struct {
	conn     net.Conn
	declared int64
	position int64
	preWrite func() error
}

// New returns a Writer with no stream bound yet; call Reset before use.
func New() *Writer {
	return &Writer{}
}

// Reset binds w to conn for a new response of the given declared length.
func (w *Writer) Reset(conn net.Conn, declaredLength int64) {
	w.conn = conn
	w.declared = declaredLength
	w.position = 0
	w.preWrite = nil
}

// SetPreWrite installs the one-shot header-write task. It is invoked
// (then cleared) by the first Write or Flush call.
func (w *Writer) SetPreWrite(task func() error) {
	w.preWrite = task
}

func (w *Writer) runPreWrite() error {
	if w.preWrite == nil {
		return nil
	}

	task := w.preWrite
	w.preWrite = nil

	return task()
}

// Position reports how many body bytes have been written so far.
func (w *Writer) Position() int64 {
	return w.position
}

// Declared reports the declared response length.
func (w *Writer) Declared() int64 {
	return w.declared
}

// Write awaits the pending pre-write task, then writes p, enforcing that
// position never exceeds the declared length.
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.runPreWrite(); err != nil {
		return 0, err
	}

	if len(p) == 0 {
		return 0, nil
	}

	if w.position+int64(len(p)) > w.declared {
		return 0, errors.NewServer(fmt.Errorf("handler wrote more bytes than declared"), 1)
	}

	n, err := w.conn.Write(p)
	w.position += int64(n)

	if err != nil {
		return n, errors.NewServer(fmt.Errorf("write failed: %w", err), 1)
	}

	return n, nil
}

// WriteStream copies src through an 8 KiB buffer, same framing rules as
// Write.
func (w *Writer) WriteStream(src io.Reader) (int64, error) {
	buf := make([]byte, copyBufferSize)
	var total int64

	for {
		n, readErr := src.Read(buf)

		if n > 0 {
			written, writeErr := w.Write(buf[:n])
			total += int64(written)

			if writeErr != nil {
				return total, writeErr
			}
		}

		if readErr != nil {
			if readErr == io.EOF {
				return total, nil
			}

			return total, errors.NewServer(fmt.Errorf("read failed: %w", readErr), 1)
		}
	}
}

// Flush awaits the pre-write task. There is no additional buffering layer
// beneath Writer, so once the task has run there is nothing left to flush.
func (w *Writer) Flush() error {
	return w.runPreWrite()
}
