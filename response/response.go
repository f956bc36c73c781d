// Package response implements the mutable-until-frozen Response value and
// its header-bytes serialization.
package response

import (
	"strconv"
	"strings"

	"github.com/hearth-http/hearth/errors"
	"github.com/hearth-http/hearth/kv"
	"github.com/hearth-http/hearth/status"
)

// Response is mutable until Freeze is called, after which no field may
// change; HeaderSent becomes true once Freeze has run.
type Response struct {
	Code            status.Code
	StatusMessage   string
	ContentType     string
	ContentLength   int64 // -1 means "not yet set"
	ContentEncoding string
	// Connection is the outgoing Connection directive; empty means "let
	// the pipeline decide" per spec.md §3.
	Connection string
	Headers    *kv.Dict

	HeaderSent bool
}

// New returns a Response defaulted to 200 OK with an unset content length.
func New() *Response {
	return &Response{
		Code:          status.OK,
		ContentLength: -1,
		Headers:       kv.New(),
	}
}

// Reset clears r back to its defaults so it can be reused for the next
// request on a keep-alive connection.
func (r *Response) Reset() {
	r.Code = status.OK
	r.StatusMessage = ""
	r.ContentType = ""
	r.ContentLength = -1
	r.ContentEncoding = ""
	r.Connection = ""
	r.Headers = r.Headers.Reset()
	r.HeaderSent = false
}

// mutateGuard is checked at the top of every mutator; mutating a frozen
// response is always a server-side bug.
func (r *Response) mutateGuard() error {
	if r.HeaderSent {
		return errors.NewServer(errMutateAfterFreeze, 2)
	}

	return nil
}

var errMutateAfterFreeze = mutateAfterFreezeErr{}

type mutateAfterFreezeErr struct{}

func (mutateAfterFreezeErr) Error() string { return "response header already sent" }

// WithCode sets the status code.
func (r *Response) WithCode(code status.Code) error {
	if err := r.mutateGuard(); err != nil {
		return err
	}

	r.Code = code

	return nil
}

// WithContentType sets the Content-Type.
func (r *Response) WithContentType(ct string) error {
	if err := r.mutateGuard(); err != nil {
		return err
	}

	r.ContentType = ct

	return nil
}

// WithContentLength declares the body length. Must be called (directly or
// via SendResponse/SendFile) before Freeze, and must be >= 0.
func (r *Response) WithContentLength(n int64) error {
	if err := r.mutateGuard(); err != nil {
		return err
	}

	if n < 0 {
		return errors.NewServer(negativeLengthErr{}, 2)
	}

	if r.ContentLength >= 0 && r.ContentLength != n {
		return errors.NewServer(conflictingLengthErr{}, 2)
	}

	r.ContentLength = n

	return nil
}

type negativeLengthErr struct{}

func (negativeLengthErr) Error() string { return "content length must be >= 0" }

type conflictingLengthErr struct{}

func (conflictingLengthErr) Error() string { return "conflicting content length already set" }

// WithContentEncoding sets Content-Encoding.
func (r *Response) WithContentEncoding(encoding string) error {
	if err := r.mutateGuard(); err != nil {
		return err
	}

	r.ContentEncoding = encoding

	return nil
}

// WithHeader sets an arbitrary header field.
func (r *Response) WithHeader(key, value string) error {
	if err := r.mutateGuard(); err != nil {
		return err
	}

	r.Headers.Set(key, value)

	return nil
}

// Freeze finalizes the response header: defaults the content length to 0
// if still unset, chooses the Connection directive if the caller left it
// empty, and marks HeaderSent. chooseConnection implements the
// "keep-alive if the request said so or is HTTP/1.1 and
// didn't say close, else close" rule from spec.md §4.4.
func (r *Response) Freeze(requestConnection string, major, minor int) {
	if r.HeaderSent {
		return
	}

	if r.ContentLength < 0 {
		r.ContentLength = 0
	}

	if r.Connection == "" {
		r.Connection = chooseConnection(requestConnection, major, minor)
	}

	r.HeaderSent = true
}

func chooseConnection(requestConnection string, major, minor int) string {
	switch requestConnection {
	case "keep-alive":
		return "keep-alive"
	case "close":
		return "close"
	}

	if major == 1 && minor >= 1 {
		return "keep-alive"
	}

	return "close"
}

// Bytes renders the status line and header fields, UTF-8 encoded,
// CRLF-separated, terminated by a blank line. May only be called after
// Freeze.
func (r *Response) Bytes() []byte {
	var b strings.Builder

	message := r.StatusMessage
	if message == "" {
		message = status.Text(r.Code)
	}

	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(int(r.Code)))
	b.WriteByte(' ')
	b.WriteString(message)
	b.WriteString("\r\n")

	if r.ContentType != "" {
		writeHeader(&b, "Content-Type", r.ContentType)
	}

	writeHeader(&b, "Content-Length", strconv.FormatInt(r.ContentLength, 10))

	if r.ContentEncoding != "" {
		writeHeader(&b, "Content-Encoding", r.ContentEncoding)
	}

	if r.Connection != "" {
		writeHeader(&b, "Connection", r.Connection)
	}

	for _, pair := range r.Headers.Pairs() {
		writeHeader(&b, pair.Key, pair.Value)
	}

	b.WriteString("\r\n")

	return []byte(b.String())
}

func writeHeader(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}
