package httpmethod

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_KnownMethods(t *testing.T) {
	for token, want := range byName {
		require.Equal(t, want, Parse(token))
	}
}

func TestParse_UnknownMethodIsZeroValue(t *testing.T) {
	require.Equal(t, Unknown, Parse("PATCH"))
	require.Equal(t, Unknown, Parse("get"))
}

func TestMethod_Valid(t *testing.T) {
	require.True(t, GET.Valid())
	require.False(t, Unknown.Valid())
}

func TestMethod_String(t *testing.T) {
	require.Equal(t, "POST", POST.String())
	require.Equal(t, "UNKNOWN", Unknown.String())
}
