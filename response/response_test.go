package response

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hearth-http/hearth/status"
)

func TestResponse_DefaultsToOK(t *testing.T) {
	r := New()
	require.Equal(t, status.OK, r.Code)
	require.Equal(t, int64(-1), r.ContentLength)
}

func TestResponse_FreezePinsDefaults(t *testing.T) {
	r := New()
	r.Freeze("", 1, 1)

	require.True(t, r.HeaderSent)
	require.Equal(t, int64(0), r.ContentLength)
	require.Equal(t, "keep-alive", r.Connection)
}

func TestResponse_MutatingAfterFreezeFails(t *testing.T) {
	r := New()
	r.Freeze("", 1, 1)

	require.Error(t, r.WithContentType("text/plain"))
	require.Error(t, r.WithCode(status.NotFound))
	require.Error(t, r.WithHeader("X-A", "1"))
}

func TestResponse_FreezeIsIdempotent(t *testing.T) {
	r := New()
	require.NoError(t, r.WithContentLength(5))
	r.Freeze("", 1, 1)
	r.Freeze("", 1, 1)

	require.Equal(t, int64(5), r.ContentLength)
}

func TestResponse_ConnectionChoice(t *testing.T) {
	cases := []struct {
		name       string
		reqConn    string
		major, min int
		want       string
	}{
		{"explicit keep-alive wins", "keep-alive", 1, 0, "keep-alive"},
		{"explicit close wins", "close", 1, 1, "close"},
		{"HTTP/1.1 defaults to keep-alive", "", 1, 1, "keep-alive"},
		{"HTTP/1.0 defaults to close", "", 1, 0, "close"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := New()
			r.Freeze(c.reqConn, c.major, c.min)
			require.Equal(t, c.want, r.Connection)
		})
	}
}

func TestResponse_ContentLengthConflict(t *testing.T) {
	r := New()
	require.NoError(t, r.WithContentLength(10))
	require.Error(t, r.WithContentLength(20))
	require.NoError(t, r.WithContentLength(10))
}

func TestResponse_ContentLengthRejectsNegative(t *testing.T) {
	r := New()
	require.Error(t, r.WithContentLength(-1))
}

func TestResponse_BytesSerialization(t *testing.T) {
	r := New()
	require.NoError(t, r.WithContentType("text/plain"))
	require.NoError(t, r.WithContentLength(5))
	r.Freeze("close", 1, 1)

	out := string(r.Bytes())

	require.True(t, strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n"))
	require.Contains(t, out, "Content-Type: text/plain\r\n")
	require.Contains(t, out, "Content-Length: 5\r\n")
	require.Contains(t, out, "Connection: close\r\n")
	require.True(t, strings.HasSuffix(out, "\r\n\r\n"))
}

func TestResponse_ResetRestoresDefaults(t *testing.T) {
	r := New()
	require.NoError(t, r.WithContentType("text/plain"))
	require.NoError(t, r.WithCode(status.NotFound))
	require.NoError(t, r.WithHeader("X-A", "1"))
	r.Freeze("close", 1, 1)

	r.Reset()

	require.Equal(t, status.OK, r.Code)
	require.Equal(t, "", r.ContentType)
	require.Equal(t, int64(-1), r.ContentLength)
	require.False(t, r.HeaderSent)
	require.Equal(t, 0, r.Headers.Len())
}
