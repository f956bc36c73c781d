package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hearth-http/hearth/status"
)

func TestClassify_Protocol(t *testing.T) {
	err := NewProtocol(status.BadRequest, "bad request line")

	proto, srv := Classify(err)
	require.NotNil(t, proto)
	require.Nil(t, srv)
	require.Equal(t, status.BadRequest, proto.Code)
}

func TestClassify_Server(t *testing.T) {
	err := NewServer(fmt.Errorf("disk read failed"), 0)

	proto, srv := Classify(err)
	require.Nil(t, proto)
	require.NotNil(t, srv)
	require.Equal(t, "disk read failed", srv.Error())
}

func TestClassify_UnknownErrorBecomesServerWithStackTrace(t *testing.T) {
	err := fmt.Errorf("something broke")

	proto, srv := Classify(err)
	require.Nil(t, proto)
	require.NotNil(t, srv)
	require.True(t, srv.StackTrace)
}

func TestProtocol_EmptyMessageFallsBackToReasonPhrase(t *testing.T) {
	err := NewProtocol(status.NotFound, "")
	require.Equal(t, "Not Found", err.Error())
}

func TestServer_SiteCapturesCallSite(t *testing.T) {
	err := NewServer(fmt.Errorf("boom"), 0)
	require.Contains(t, err.Site(), "errors_test.go")
}

func TestAsProtocol_UnwrapsWrappedError(t *testing.T) {
	inner := NewProtocol(status.Forbidden, "nope")
	wrapped := fmt.Errorf("while handling request: %w", inner)

	proto, ok := AsProtocol(wrapped)
	require.True(t, ok)
	require.Equal(t, status.Forbidden, proto.Code)
}
