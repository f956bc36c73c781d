// Package conncontext glues a single request/response pair to its reader,
// writer, endpoints, and TLS flag for the duration of one request.
package conncontext

import (
	"net"
	"os"

	"github.com/hearth-http/hearth/errors"
	"github.com/hearth-http/hearth/reader"
	"github.com/hearth-http/hearth/request"
	"github.com/hearth-http/hearth/response"
	"github.com/hearth-http/hearth/status"
	"github.com/hearth-http/hearth/writer"
)

// Upgrader is the external collaborator that implements the WebSocket
// frame codec; the core only performs the handoff.
type Upgrader interface {
	Upgrade(conn net.Conn, req *request.Request, protocol string) error
}

// Context binds one request/response pair to its connection.
type Context struct {
	Request  *request.Request
	Response *response.Response

	reader *reader.Reader
	writer *writer.Writer
	conn   net.Conn

	Remote net.Addr
	Local  net.Addr
	TLS    bool

	upgrader Upgrader

	hijacked      bool
	websocketDone bool
}

// New builds a Context bound to a connection's reader/writer/conn for its
// lifetime; Request/Response are swapped in per iteration via Bind.
func New(r *reader.Reader, w *writer.Writer, conn net.Conn, upgrader Upgrader) *Context {
	return &Context{
		reader:   r,
		writer:   w,
		conn:     conn,
		Remote:   conn.RemoteAddr(),
		Local:    conn.LocalAddr(),
		upgrader: upgrader,
	}
}

// Bind attaches req/resp for the next request on this connection and
// clears per-request flags.
func (c *Context) Bind(req *request.Request, resp *response.Response) {
	c.Request = req
	c.Response = resp
	c.hijacked = false
	c.websocketDone = false
	c.TLS = c.reader.Secure()
}

// WasHijacked reports whether the connection was handed off to the
// WebSocket upgrader during this request.
func (c *Context) WasHijacked() bool {
	return c.hijacked
}

// freeze finalizes the response header using length as the declared
// content length (failing if a different length was already set), serializes the
// header bytes, and queues them as the writer's pre-write task.
func (c *Context) freeze(length int64) error {
	if c.Response.HeaderSent {
		return nil
	}

	if length >= 0 {
		if err := c.Response.WithContentLength(length); err != nil {
			return err
		}
	}

	c.Response.Freeze(c.Request.Connection, c.Request.Major, c.Request.Minor)

	header := c.Response.Bytes()
	c.writer.Reset(c.conn, c.Response.ContentLength)
	c.writer.SetPreWrite(func() error {
		_, err := c.conn.Write(header)
		return err
	})

	return nil
}

// GetReader freezes the response header — defaulting content length to
// max(current, 0) if still unset — and returns the request reader.
func (c *Context) GetReader() (*reader.Reader, error) {
	length := c.Response.ContentLength
	if length < 0 {
		length = 0
	}

	if err := c.freeze(length); err != nil {
		return nil, err
	}

	return c.reader, nil
}

// GetWriter freezes the response header, requiring contentLength >= 0 and
// consistent with any previously declared length, and returns the writer.
func (c *Context) GetWriter(contentLength int64) (*writer.Writer, error) {
	if contentLength < 0 {
		return nil, errors.NewServer(negativeLengthErr{}, 1)
	}

	if c.Response.HeaderSent && contentLength != c.Response.ContentLength {
		return nil, errors.NewServer(conflictingLengthErr{}, 1)
	}

	if err := c.freeze(contentLength); err != nil {
		return nil, err
	}

	return c.writer, nil
}

type negativeLengthErr struct{}

func (negativeLengthErr) Error() string { return "content length must be >= 0" }

type conflictingLengthErr struct{}

func (conflictingLengthErr) Error() string { return "content length differs from the one already sent" }

// AcceptWebsocket hands the connection off to the external WebSocket
// collaborator. Valid only for a WebSocket request, before any header was
// sent, and only once.
func (c *Context) AcceptWebsocket(protocol string) error {
	if !c.Request.IsWebsocket {
		return errors.NewServer(notWebsocketErr{}, 1)
	}

	if c.Response.HeaderSent {
		return errors.NewServer(alreadySentErr{}, 1)
	}

	if c.websocketDone {
		return errors.NewServer(alreadyAcceptedErr{}, 1)
	}

	if c.upgrader == nil {
		return errors.NewServer(noUpgraderErr{}, 1)
	}

	if err := c.upgrader.Upgrade(c.conn, c.Request, protocol); err != nil {
		return err
	}

	c.websocketDone = true
	c.hijacked = true
	c.Response.HeaderSent = true

	return nil
}

type notWebsocketErr struct{}

func (notWebsocketErr) Error() string { return "request is not a websocket upgrade" }

type alreadySentErr struct{}

func (alreadySentErr) Error() string { return "response header already sent" }

type alreadyAcceptedErr struct{}

func (alreadyAcceptedErr) Error() string { return "websocket already accepted" }

type noUpgraderErr struct{}

func (noUpgraderErr) Error() string { return "no websocket upgrader configured" }

// SendResponse writes body as the whole response, freezing headers first.
func (c *Context) SendResponse(body []byte) error {
	w, err := c.GetWriter(int64(len(body)))
	if err != nil {
		return err
	}

	_, err = w.Write(body)

	return err
}

// SendText is the string convenience form of SendResponse.
func (c *Context) SendText(body string) error {
	return c.SendResponse([]byte(body))
}

// SendTextStatus sets the status code, then sends body as text.
func (c *Context) SendTextStatus(body string, code status.Code) error {
	if err := c.Response.WithCode(code); err != nil {
		return err
	}

	return c.SendText(body)
}

// SendFile opens path and streams its content as the response body,
// reporting 404 if it doesn't exist.
func (c *Context) SendFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c.SendTextStatus("Not Found", status.NotFound)
		}

		return errors.NewServer(err, 1)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.NewServer(err, 1)
	}

	w, err := c.GetWriter(info.Size())
	if err != nil {
		return err
	}

	_, err = w.WriteStream(f)

	return err
}

// ReadContent reads exactly the request's declared content length, which
// must be in [0, maxLength]. A missing length is a 411, an oversized one a
// 413.
func (c *Context) ReadContent(maxLength int64) ([]byte, error) {
	if c.Request.ContentLength < 0 {
		return nil, errors.NewProtocol(status.LengthRequired, "content length required")
	}

	if c.Request.ContentLength > maxLength {
		return nil, errors.NewProtocol(status.RequestEntityTooLarge, "content length too large")
	}

	r, err := c.GetReader()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, c.Request.ContentLength)
	if err := r.ReadAll(buf); err != nil {
		return nil, err
	}

	return buf, nil
}
