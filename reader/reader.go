// Package reader implements the per-connection framed reader: a fixed
// 16 KiB header-scan buffer, TLS sniffing/handshake, and body reads bounded
// by the declared Content-Length.
package reader

import (
	"io"
	"net"

	"github.com/hearth-http/hearth/errors"
	"github.com/hearth-http/hearth/httpmethod"
	"github.com/hearth-http/hearth/internal/strutil"
	"github.com/hearth-http/hearth/request"
	"github.com/hearth-http/hearth/status"
)

// HeaderBufferSize is the fixed size of the header scan buffer (§3).
const HeaderBufferSize = 16 * 1024

var crlfcrlf = []byte("\r\n\r\n")

// Reader is single-threaded with respect to its owning connection: no
// internal locking is performed.
type Reader struct {
	buf    [HeaderBufferSize]byte
	pos    int // first unconsumed byte
	filled int // end of buffered data

	conn   net.Conn
	secure bool

	bodyLen int64
	bodyPos int64
}

// New returns a Reader with its header buffer ready to use.
func New() *Reader {
	return &Reader{}
}

// Reset clears all per-connection state so the Reader can be recycled from
// the pool for a new connection, keeping the buffer array allocation.
func (r *Reader) Reset() {
	r.pos, r.filled = 0, 0
	r.conn = nil
	r.secure = false
	r.bodyLen, r.bodyPos = 0, 0
}

// Secure reports whether the connection was established over TLS.
func (r *Reader) Secure() bool {
	return r.secure
}

// Start peeks at the beginning of conn to classify it as plaintext or TLS,
// performing the handshake when a certificate is supplied and the peer
// opened with a ClientHello. Returns the live stream to use for all further
// I/O, or nil if the connection should be silently abandoned.
func (r *Reader) Start(conn net.Conn, cert *tlsCertificate) (net.Conn, error) {
	r.Reset()

	n, err := conn.Read(r.buf[:])
	if err != nil || n < 3 {
		return nil, nil
	}

	first := r.buf[0]

	if first == 0x16 {
		if cert == nil {
			return nil, nil
		}

		return r.handshake(conn, cert, r.buf[:n])
	}

	if cert != nil {
		// a certificate-only port never accepts plaintext traffic
		return nil, nil
	}

	r.conn = conn
	r.filled = n
	r.pos = 0

	return conn, nil
}

// RestartPlain resets the reader for a freshly-accepted connection already
// known to be plaintext (no TLS sniffing), used by the tests and by the
// plain-only code paths.
func (r *Reader) RestartPlain(conn net.Conn) {
	r.Reset()
	r.conn = conn
}

// ReadHeader scans for the CRLF CRLF terminator, fast-fails on an
// unrecognized method after the first 8 bytes, and parses the consumed
// slice into req. It returns (nil, nil) on an orderly close with no
// partial header, and (nil, err) on any protocol violation — in both cases
// the pipeline closes the connection without a reply, per spec.md §4.5.
func (r *Reader) ReadHeader(req *request.Request) (*request.Request, error) {
	r.compact()

	for {
		if idx := strutil.Index(r.buf[:r.filled], crlfcrlf); idx >= 0 {
			headerEnd := idx + len(crlfcrlf)
			raw := r.buf[:headerEnd]

			if err := fastFailMethod(raw, r.filled); err != nil {
				return nil, err
			}

			req.Reset()
			if err := request.Parse(req, raw); err != nil {
				return nil, err
			}

			r.pos = headerEnd
			r.bodyPos = 0

			if req.ContentLength > 0 {
				r.bodyLen = req.ContentLength
			} else {
				r.bodyLen = 0
			}

			return req, nil
		}

		if err := fastFailMethod(r.buf[:r.filled], r.filled); err != nil {
			return nil, err
		}

		if r.filled == len(r.buf) {
			return nil, errors.NewProtocol(status.RequestHeaderFieldsTooLarge, "header fields too large")
		}

		n, err := r.conn.Read(r.buf[r.filled:])
		if err != nil {
			if r.filled == 0 {
				return nil, nil
			}

			return nil, errors.NewProtocol(status.BadRequest, "connection closed mid-header")
		}

		if n == 0 {
			if r.filled == 0 {
				return nil, nil
			}

			return nil, errors.NewProtocol(status.BadRequest, "connection closed mid-header")
		}

		r.filled += n
	}
}

func (r *Reader) compact() {
	if r.pos == 0 {
		return
	}

	copy(r.buf[:], r.buf[r.pos:r.filled])
	r.filled -= r.pos
	r.pos = 0
}

func fastFailMethod(buf []byte, filled int) error {
	if filled < 8 {
		return nil
	}

	window := buf
	if len(window) > 8 {
		window = window[:8]
	}

	spaceIdx := -1
	for i, b := range window {
		if b == ' ' {
			spaceIdx = i
			break
		}
	}

	if spaceIdx < 0 {
		return errors.NewProtocol(status.NotImplemented, "unrecognized method")
	}

	if !httpmethod.Parse(string(window[:spaceIdx])).Valid() {
		return errors.NewProtocol(status.NotImplemented, "unrecognized method")
	}

	return nil
}

// Read satisfies io.Reader, first draining any unconsumed header-buffer
// bytes before delegating to the underlying stream. Total bytes ever
// delivered are bounded by the declared Content-Length.
func (r *Reader) Read(p []byte) (int, error) {
	if r.bodyPos >= r.bodyLen {
		return 0, io.EOF
	}

	remaining := r.bodyLen - r.bodyPos
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	if r.pos < r.filled {
		n := copy(p, r.buf[r.pos:r.filled])
		r.pos += n
		r.bodyPos += int64(n)

		return n, nil
	}

	n, err := r.conn.Read(p)
	r.bodyPos += int64(n)

	return n, err
}

// ReadAll fills buf completely, reporting any short read (including EOF)
// as a protocol failure.
func (r *Reader) ReadAll(buf []byte) error {
	read := 0

	for read < len(buf) {
		n, err := r.Read(buf[read:])
		read += n

		if err != nil {
			if read < len(buf) {
				return errors.NewProtocol(status.BadRequest, "unexpected EOF reading body")
			}

			break
		}
	}

	return nil
}

// BodyPosition returns how many body bytes have been consumed so far.
func (r *Reader) BodyPosition() int64 {
	return r.bodyPos
}

// DeclaredBodyLength returns the body length the current request declared,
// i.e. max(request.ContentLength, 0).
func (r *Reader) DeclaredBodyLength() int64 {
	return r.bodyLen
}
