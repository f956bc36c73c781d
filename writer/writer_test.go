package writer

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func pipe(t *testing.T) (server, client net.Conn) {
	t.Helper()

	server, client = net.Pipe()
	t.Cleanup(func() {
		server.Close()
		client.Close()
	})

	return server, client
}

func drain(t *testing.T, conn net.Conn, n int) string {
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

func TestWriter_PreWriteTaskRunsOnceBeforeFirstWrite(t *testing.T) {
	server, client := pipe(t)

	w := New()
	w.Reset(server, 5)

	calls := 0
	w.SetPreWrite(func() error {
		calls++
		_, err := server.Write([]byte("HEADER"))
		return err
	})

	go func() {
		w.Write([]byte("hello"))
	}()

	got := drain(t, client, len("HEADER")+len("hello"))
	require.Equal(t, "HEADERhello", got)
	require.Equal(t, 1, calls)
}

func TestWriter_FlushRunsPendingPreWriteTask(t *testing.T) {
	server, _ := pipe(t)

	w := New()
	w.Reset(server, 0)

	ran := false
	w.SetPreWrite(func() error {
		ran = true
		return nil
	})

	require.NoError(t, w.Flush())
	require.True(t, ran)
}

func TestWriter_RejectsOverLengthWrite(t *testing.T) {
	server, _ := pipe(t)

	w := New()
	w.Reset(server, 3)
	w.SetPreWrite(func() error { return nil })

	_, err := w.Write([]byte("toolong"))
	require.Error(t, err)
}

func TestWriter_PositionTracksWrittenBytes(t *testing.T) {
	server, client := pipe(t)

	w := New()
	w.Reset(server, 5)
	w.SetPreWrite(func() error { return nil })

	done := make(chan struct{})
	go func() {
		w.Write([]byte("hello"))
		close(done)
	}()

	_ = drain(t, client, 5)
	<-done
	require.Equal(t, int64(5), w.Position())
	require.Equal(t, int64(5), w.Declared())
}

func TestWriter_WriteStreamCopiesEntireSource(t *testing.T) {
	server, client := pipe(t)

	w := New()
	w.Reset(server, 11)
	w.SetPreWrite(func() error { return nil })

	go func() {
		_, err := w.WriteStream(strings.NewReader("hello world"))
		require.NoError(t, err)
	}()

	got := drain(t, client, 11)
	require.Equal(t, "hello world", got)
}
