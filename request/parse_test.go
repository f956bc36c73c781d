package request

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hearth-http/hearth/errors"
	"github.com/hearth-http/hearth/httpmethod"
	"github.com/hearth-http/hearth/status"
)

func mustParse(t *testing.T, raw string) *Request {
	t.Helper()

	r := New()
	require.NoError(t, Parse(r, []byte(raw)))

	return r
}

func TestParse_RequestLine(t *testing.T) {
	r := mustParse(t, "GET /foo/bar?x=1&y=2#frag HTTP/1.1\r\nHost: example.com\r\n\r\n")

	require.Equal(t, httpmethod.GET, r.Method)
	require.Equal(t, 1, r.Major)
	require.Equal(t, 1, r.Minor)
	require.Equal(t, "foo/bar", r.Path)
	require.Equal(t, "foo/bar", r.PathLower)
	require.Equal(t, "frag", r.Fragment)
	require.Equal(t, "1", r.Query.Value("x"))
	require.Equal(t, "2", r.Query.Value("y"))
	require.Equal(t, "example.com", r.Host)
}

func TestParse_PathStrippedOfSurroundingSlashes(t *testing.T) {
	r := mustParse(t, "GET / HTTP/1.1\r\n\r\n")
	require.Equal(t, "", r.Path)

	r = mustParse(t, "GET /a/b/ HTTP/1.1\r\n\r\n")
	require.Equal(t, "a/b", r.Path)
}

func TestParse_PathLowerIsLowercaseMirror(t *testing.T) {
	r := mustParse(t, "GET /Foo/Bar.HTML HTTP/1.1\r\n\r\n")
	require.Equal(t, "Foo/Bar.HTML", r.Path)
	require.Equal(t, "foo/bar.html", r.PathLower)
	require.Equal(t, "html", r.Extension)
}

func TestParse_HostWithoutPort(t *testing.T) {
	r := mustParse(t, "GET / HTTP/1.1\r\nHost: example.com:8080\r\n\r\n")
	require.Equal(t, "example.com:8080", r.Host)
	require.Equal(t, "example.com", r.HostWithoutPort)
}

func TestParse_UnknownHeadersGoToHeadersDict(t *testing.T) {
	r := mustParse(t, "GET / HTTP/1.1\r\nX-Custom: value\r\n\r\n")
	require.Equal(t, "value", r.Headers.Value("x-custom"))
}

func TestParse_ContentLength(t *testing.T) {
	r := mustParse(t, "POST / HTTP/1.1\r\nContent-Length: 42\r\n\r\n")
	require.Equal(t, int64(42), r.ContentLength)
}

func TestParse_MissingContentLengthDefaultsToMinusOne(t *testing.T) {
	r := mustParse(t, "GET / HTTP/1.1\r\nHost: h\r\n\r\n")
	require.Equal(t, int64(-1), r.ContentLength)
}

func TestParse_Cookies(t *testing.T) {
	r := mustParse(t, "GET / HTTP/1.1\r\nCookie: a=1; b=2\r\n\r\n")
	require.Equal(t, "1", r.Cookies.Value("a"))
	require.Equal(t, "2", r.Cookies.Value("b"))
}

func TestParse_WebsocketUpgrade(t *testing.T) {
	raw := "GET /ws HTTP/1.1\r\n" +
		"Connection: Upgrade\r\n" +
		"Upgrade: websocket\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"

	r := mustParse(t, raw)
	require.True(t, r.IsWebsocket)
}

func TestParse_WebsocketRequiresAllThreeSignals(t *testing.T) {
	raw := "GET /ws HTTP/1.1\r\nConnection: Upgrade\r\nUpgrade: websocket\r\n\r\n"

	r := mustParse(t, raw)
	require.False(t, r.IsWebsocket)
}

func TestParse_WebsocketVersionBelow13Rejected(t *testing.T) {
	raw := "GET /ws HTTP/1.1\r\n" +
		"Connection: Upgrade\r\n" +
		"Upgrade: websocket\r\n" +
		"Sec-WebSocket-Version: 8\r\n\r\n"

	r := mustParse(t, raw)
	require.False(t, r.IsWebsocket)
}

func TestParse_MalformedRequestLine(t *testing.T) {
	r := New()
	err := Parse(r, []byte("GET /only/two HTTP/1.1 extra\r\n\r\n"))
	require.Error(t, err)

	proto, ok := errors.AsProtocol(err)
	require.True(t, ok)
	require.Equal(t, status.BadRequest, proto.Code)
}

func TestParse_UnsupportedMethod(t *testing.T) {
	r := New()
	err := Parse(r, []byte("PATCH / HTTP/1.1\r\n\r\n"))
	require.Error(t, err)

	proto, ok := errors.AsProtocol(err)
	require.True(t, ok)
	require.Equal(t, status.NotImplemented, proto.Code)
}

func TestParse_UnsupportedHTTPMajorVersion(t *testing.T) {
	r := New()
	err := Parse(r, []byte("GET / HTTP/2.0\r\n\r\n"))
	require.Error(t, err)

	proto, ok := errors.AsProtocol(err)
	require.True(t, ok)
	require.Equal(t, status.HTTPVersionNotSupported, proto.Code)
}

func TestParse_MalformedHeaderLineRejected(t *testing.T) {
	r := New()
	err := Parse(r, []byte("GET / HTTP/1.1\r\nNotAHeader\r\n\r\n"))
	require.Error(t, err)
}

func TestParse_NonPrintableByteRejected(t *testing.T) {
	r := New()
	err := Parse(r, []byte("GET / HTTP/1.1\r\nX: \x00bad\r\n\r\n"))
	require.Error(t, err)

	proto, ok := errors.AsProtocol(err)
	require.True(t, ok)
	require.Equal(t, status.BadRequest, proto.Code)
}

func TestRequest_ResetClearsEverything(t *testing.T) {
	r := mustParse(t, "POST /a?x=1 HTTP/1.1\r\nHost: h\r\nContent-Length: 3\r\nCookie: a=1\r\n\r\n")

	r.Reset()

	require.Equal(t, httpmethod.Unknown, r.Method)
	require.Equal(t, "", r.Path)
	require.Equal(t, int64(-1), r.ContentLength)
	require.Equal(t, 0, r.Query.Len())
	require.Equal(t, 0, r.Cookies.Len())
	require.Equal(t, 0, r.Headers.Len())
	require.False(t, r.IsWebsocket)
}
