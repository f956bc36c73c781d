// Package errors defines the two-kind failure taxonomy the core runs on:
// protocol failures (peer-induced, connection-fatal) and server failures
// (internal faults, reported generically).
package errors

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/hearth-http/hearth/status"
)

// ErrCloseConnection is an internal signal, not a real failure: it tells the
// pipeline to drop the connection without attempting to write anything.
var ErrCloseConnection = errors.New("close connection")

// Protocol is a client-visible, connection-fatal failure. It always carries
// an HTTP status code to report before the connection is torn down.
type Protocol struct {
	Code    status.Code
	Message string
}

// NewProtocol builds a protocol failure reporting status code. An empty
// message falls back to the code's reason phrase.
func NewProtocol(code status.Code, message string) *Protocol {
	return &Protocol{Code: code, Message: message}
}

func (p *Protocol) Error() string {
	if p.Message != "" {
		return p.Message
	}

	return string(status.Text(p.Code))
}

// Server is an internal fault in the handler or the core. It is logged at
// ERROR with its call site and, unless the response header was already
// sent, reported to the client as a generic 500.
type Server struct {
	Cause      error
	File       string
	Line       int
	Function   string
	StackTrace bool
}

// NewServer wraps cause as a server failure, capturing the call site of its
// caller (skip = 1 means "my caller").
func NewServer(cause error, skip int) *Server {
	file, line, fn := caller(skip + 1)

	return &Server{
		Cause:    cause,
		File:     file,
		Line:     line,
		Function: fn,
	}
}

// NewServerTrace is like NewServer but additionally requests a stack trace
// to be logged, matching the spec's "unknown exceptions are mandatory
// stack trace" rule.
func NewServerTrace(cause error, skip int) *Server {
	s := NewServer(cause, skip+1)
	s.StackTrace = true

	return s
}

func (s *Server) Error() string {
	if s.Cause == nil {
		return "server error"
	}

	return s.Cause.Error()
}

func (s *Server) Unwrap() error {
	return s.Cause
}

// Site renders the "file:line (func)" trailer used by the logger.
func (s *Server) Site() string {
	if s.File == "" {
		return ""
	}

	return fmt.Sprintf("%s:%d (%s)", s.File, s.Line, s.Function)
}

func caller(skip int) (file string, line int, function string) {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "", 0, ""
	}

	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return file, line, ""
	}

	return file, line, fn.Name()
}

// AsProtocol reports whether err is a *Protocol or wraps one anywhere in
// its Unwrap chain (errors.As semantics).
func AsProtocol(err error) (*Protocol, bool) {
	var p *Protocol
	if errors.As(err, &p) {
		return p, true
	}

	return nil, false
}

// AsServer mirrors AsProtocol for *Server failures.
func AsServer(err error) (*Server, bool) {
	var s *Server
	if errors.As(err, &s) {
		return s, true
	}

	return nil, false
}

// Classify turns an arbitrary error into the taxonomy: a *Protocol or
// *Server found anywhere in err's wrap chain is returned, anything else
// becomes a *Server with a mandatory stack trace, as unknown exceptions
// are always treated as internal faults.
func Classify(err error) (proto *Protocol, srv *Server) {
	if err == nil {
		return nil, nil
	}

	if p, ok := AsProtocol(err); ok {
		return p, nil
	}

	if s, ok := AsServer(err); ok {
		return nil, s
	}

	return nil, NewServerTrace(err, 1)
}
