// Package connection implements the per-TCP-connection state machine:
// accept, TLS handshake, the keep-alive request loop, the error funnel,
// and reader recycling.
package connection

import (
	"crypto/tls"
	"fmt"
	"net"

	"github.com/hearth-http/hearth/conncontext"
	"github.com/hearth-http/hearth/errors"
	"github.com/hearth-http/hearth/log"
	"github.com/hearth-http/hearth/reader"
	"github.com/hearth-http/hearth/request"
	"github.com/hearth-http/hearth/response"
	"github.com/hearth-http/hearth/stats"
	"github.com/hearth-http/hearth/status"
	"github.com/hearth-http/hearth/writer"
)

// DefaultMaxConnections is the overload guard's default ceiling.
const DefaultMaxConnections = 10_000

// Handler is the single functional contract the pipeline drives per
// request: given a bound Context, populate a response (or return an
// error).
type Handler func(*conncontext.Context) error

// Config configures a Pipeline.
type Config struct {
	Handler        Handler
	Upgrader       conncontext.Upgrader
	Certificate    *tls.Certificate
	MaxConnections int64
	Logger         *log.Sink
	Stats          *stats.Counters
	Pool           *reader.Pool
}

// Pipeline runs the connection state machine described in spec.md §4.5.
type Pipeline struct {
	handler        Handler
	upgrader       conncontext.Upgrader
	cert           *tls.Certificate
	maxConnections int64
	logger         *log.Sink
	stats          *stats.Counters
	pool           *reader.Pool
}

// New builds a Pipeline from cfg, filling unset fields with defaults.
func New(cfg Config) *Pipeline {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = DefaultMaxConnections
	}

	if cfg.Logger == nil {
		cfg.Logger = log.Default
	}

	if cfg.Stats == nil {
		cfg.Stats = stats.New()
	}

	if cfg.Pool == nil {
		cfg.Pool = reader.NewPool()
	}

	cfg.Pool.SetStats(cfg.Stats)

	return &Pipeline{
		handler:        cfg.Handler,
		upgrader:       cfg.Upgrader,
		cert:           cfg.Certificate,
		maxConnections: cfg.MaxConnections,
		logger:         cfg.Logger,
		stats:          cfg.Stats,
		pool:           cfg.Pool,
	}
}

// Serve runs the accept loop against listener until it errors (typically
// because the listener was closed).
func (p *Pipeline) Serve(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}

		if p.stats.Alive() >= p.maxConnections {
			_ = conn.Close()
			continue
		}

		go p.handleConnection(conn)
	}
}

func (p *Pipeline) handleConnection(conn net.Conn) {
	p.stats.ConnectionOpened()
	defer p.stats.ConnectionClosed()
	defer conn.Close()

	rdr := p.pool.Get()
	defer p.pool.Put(rdr)

	stream, err := rdr.Start(conn, p.cert)
	if err != nil || stream == nil {
		return
	}

	wr := writer.New()
	ctx := conncontext.New(rdr, wr, stream, p.upgrader)
	req := request.New()
	resp := response.New()

	for p.serveOne(ctx, rdr, wr, req, resp) {
	}
}

// serveOne runs WAIT_HEADER → SERVE_BODY → VALIDATE for a single request
// and reports whether the connection should loop for another one.
func (p *Pipeline) serveOne(
	ctx *conncontext.Context,
	rdr *reader.Reader,
	wr *writer.Writer,
	req *request.Request,
	resp *response.Response,
) bool {
	p.stats.EnterWaitingForHeader()
	parsed, err := rdr.ReadHeader(req)
	p.stats.LeaveWaitingForHeader()

	if err != nil {
		if proto, ok := errors.AsProtocol(err); ok {
			p.logger.Debug(fmt.Sprintf("closing connection: %s", proto.Error()))
		}

		return false
	}

	if parsed == nil {
		return false
	}

	resp.Reset()
	ctx.Bind(req, resp)
	p.stats.HitServed()

	if req.IsWebsocket {
		p.stats.EnterServingWebsocket()
	} else {
		p.stats.EnterServingBody()
	}

	handlerErr := p.runHandler(ctx)

	if req.IsWebsocket {
		p.stats.LeaveServingWebsocket()
	} else {
		p.stats.LeaveServingBody()
	}

	if !p.handleOutcome(ctx, wr, resp, handlerErr) {
		return false
	}

	if err := wr.Flush(); err != nil {
		return false
	}

	if !p.validate(ctx, rdr, wr, req, resp) {
		return false
	}

	if ctx.WasHijacked() || req.IsWebsocket {
		return false
	}

	return resp.Connection == "keep-alive"
}

// handleOutcome funnels the handler's result through the error taxonomy,
// writing an error reply when appropriate. It returns false when the
// connection must close immediately, without running VALIDATE.
func (p *Pipeline) handleOutcome(ctx *conncontext.Context, wr *writer.Writer, resp *response.Response, handlerErr error) bool {
	if handlerErr == nil {
		if !resp.HeaderSent {
			p.logger.ErrorAt("handler returned without sending a response", "")
			p.writeErrorReply(ctx, status.InternalServerError, genericServerMessage)

			return true
		}

		return true
	}

	if handlerErr == errors.ErrCloseConnection {
		return false
	}

	proto, srv := errors.Classify(handlerErr)

	if proto != nil {
		p.logger.Debug(proto.Error())

		if !resp.HeaderSent {
			p.writeErrorReply(ctx, proto.Code, proto.Error())
		}

		return false
	}

	p.logger.ErrorAt(srv.Error(), srv.Site())

	if resp.HeaderSent {
		// framing already committed to a header we can no longer replace
		return false
	}

	p.writeErrorReply(ctx, status.InternalServerError, genericServerMessage)
	_ = wr.Flush()

	return true
}

const genericServerMessage = "There was a server error. It has been logged and we are looking into it."

// writeErrorReply sends a plain-text error body. WebSocket requests never
// receive error bodies (the handoff is either completed or dropped), and
// failures while reporting an error are swallowed — the double-fault path
// just logs and lets the caller close the connection.
func (p *Pipeline) writeErrorReply(ctx *conncontext.Context, code status.Code, message string) {
	if ctx.Request.IsWebsocket {
		return
	}

	if err := ctx.SendTextStatus(message, code); err != nil {
		p.logger.Debug(fmt.Sprintf("double fault reporting error: %s", err.Error()))
	}
}

func (p *Pipeline) runHandler(ctx *conncontext.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewServerTrace(fmt.Errorf("panic: %v", r), 2)
		}
	}()

	return p.handler(ctx)
}

// validate enforces spec.md §4.5's VALIDATE step: for non-WebSocket
// requests, reader position must match the declared body length and
// writer position must match the declared response length.
func (p *Pipeline) validate(
	ctx *conncontext.Context,
	rdr *reader.Reader,
	wr *writer.Writer,
	req *request.Request,
	resp *response.Response,
) bool {
	if req.IsWebsocket || ctx.WasHijacked() {
		return true
	}

	if req.ContentLength >= 0 && rdr.BodyPosition() != rdr.DeclaredBodyLength() {
		p.logger.ErrorAt("reader position does not match declared content length", "")
		return false
	}

	if wr.Position() != wr.Declared() {
		p.logger.ErrorAt("writer position does not match declared content length", "")
		return false
	}

	if resp.ContentLength != wr.Position() {
		p.logger.ErrorAt("response content length does not match bytes written", "")
		return false
	}

	return true
}
