// Package request implements the HTTP request line + header parser and the
// immutable value it produces.
package request

import (
	"github.com/hearth-http/hearth/httpmethod"
	"github.com/hearth-http/hearth/kv"
)

// Request is immutable once parsed. Every promoted field mirrors a header
// the spec singles out; everything else lives in Headers.
type Request struct {
	Method Method

	Major, Minor int

	// Path is case-preserved, stripped of a single leading and trailing '/'.
	Path string
	// PathLower is the lowercased mirror of Path, used for cache/redirect
	// lookups.
	PathLower string
	// Extension is the lowercased substring after the final '.' of the
	// last path segment, or "".
	Extension string
	Fragment  string

	Query   *kv.Dict
	Cookies *kv.Dict
	Headers *kv.Dict

	Host            string
	HostWithoutPort string
	Connection      string
	Referer         string
	AcceptEncoding  string
	// ContentLength is -1 when the header was absent, otherwise the
	// declared (non-negative) length.
	ContentLength int64

	IsWebsocket bool
}

// Method is a local alias so callers of this package don't need to import
// httpmethod directly just to read request.Method.
type Method = httpmethod.Method

// New returns a zero Request with its maps initialized, ready to be filled
// by Parse.
func New() *Request {
	return &Request{
		Query:         kv.New(),
		Cookies:       kv.New(),
		Headers:       kv.New(),
		ContentLength: -1,
	}
}
