package conncontext

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hearth-http/hearth/reader"
	"github.com/hearth-http/hearth/request"
	"github.com/hearth-http/hearth/response"
	"github.com/hearth-http/hearth/writer"
)

// pipe returns a real loopback TCP connection pair rather than net.Pipe:
// several of these tests write a full response (header + body) while the
// test only reads a prefix of it, which would deadlock against net.Pipe's
// unbuffered, fully-synchronous rendezvous.
func pipe(t *testing.T) (server, client net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	acceptCh := make(chan net.Conn, 1)
	go func() {
		conn, _ := ln.Accept()
		acceptCh <- conn
	}()

	client, err = net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)

	server = <-acceptCh
	require.NotNil(t, server)

	t.Cleanup(func() {
		server.Close()
		client.Close()
	})

	return server, client
}

func newBoundContext(t *testing.T) (*Context, net.Conn) {
	t.Helper()

	server, client := pipe(t)

	rdr := reader.New()
	rdr.RestartPlain(server)

	ctx := New(rdr, writer.New(), server, nil)
	ctx.Bind(request.New(), response.New())
	ctx.Request.Connection = "close"
	ctx.Request.Major, ctx.Request.Minor = 1, 1

	return ctx, client
}

func drainAll(t *testing.T, conn net.Conn, n int) string {
	t.Helper()

	buf := make([]byte, n)
	read := 0
	for read < n {
		k, err := conn.Read(buf[read:])
		require.NoError(t, err)
		read += k
	}

	return string(buf)
}

func TestContext_SendTextFreezesAndWrites(t *testing.T) {
	ctx, client := newBoundContext(t)

	done := make(chan error, 1)
	go func() { done <- ctx.SendText("hi") }()

	require.NoError(t, <-done)
	got := drainAll(t, client, len(ctx.Response.Bytes())+len("hi"))
	require.Contains(t, got, "hi")
	require.True(t, ctx.Response.HeaderSent)
}

func TestContext_SendTextStatusSetsCode(t *testing.T) {
	ctx, client := newBoundContext(t)

	done := make(chan error, 1)
	go func() { done <- ctx.SendTextStatus("nope", 404) }()

	_ = drainAll(t, client, len("nope"))
	require.NoError(t, <-done)
	require.Equal(t, uint16(404), uint16(ctx.Response.Code))
}

func TestContext_AcceptWebsocketFailsWithoutUpgrader(t *testing.T) {
	ctx, _ := newBoundContext(t)
	ctx.Request.IsWebsocket = true

	err := ctx.AcceptWebsocket("chat")
	require.Error(t, err)
}

func TestContext_AcceptWebsocketRejectsNonWebsocketRequest(t *testing.T) {
	ctx, _ := newBoundContext(t)
	ctx.Request.IsWebsocket = false

	err := ctx.AcceptWebsocket("chat")
	require.Error(t, err)
}

func TestContext_GetWriterRejectsNegativeLength(t *testing.T) {
	ctx, _ := newBoundContext(t)

	_, err := ctx.GetWriter(-1)
	require.Error(t, err)
}

func TestContext_BindResetsPerRequestFlags(t *testing.T) {
	ctx, client := newBoundContext(t)

	done := make(chan error, 1)
	go func() { done <- ctx.SendText("x") }()
	_ = drainAll(t, client, 1)
	require.NoError(t, <-done)

	ctx.Bind(request.New(), response.New())
	require.False(t, ctx.WasHijacked())
	require.False(t, ctx.Response.HeaderSent)
}
