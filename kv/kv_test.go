package kv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDict_MissingKeyNeverFails(t *testing.T) {
	d := New()

	v, ok := d.Get("absent")
	require.False(t, ok)
	require.Equal(t, "", v)
	require.Equal(t, "", d.Value("absent"))
	require.Equal(t, 7, d.IntOr("absent", 7))
}

func TestDict_SetOverwritesLastWriteWins(t *testing.T) {
	d := New()
	d.Set("a", "1")
	d.Set("a", "2")

	require.Equal(t, 1, d.Len())
	require.Equal(t, "2", d.Value("a"))
}

func TestDict_AddKeepsDuplicates(t *testing.T) {
	d := New()
	d.Add("a", "1")
	d.Add("a", "2")

	require.Equal(t, 2, d.Len())
	require.Equal(t, []Pair{{"a", "1"}, {"a", "2"}}, d.Pairs())
}

func TestDict_PairsPreserveInsertionOrder(t *testing.T) {
	d := New()
	d.Set("z", "1")
	d.Set("a", "2")
	d.Set("m", "3")

	require.Equal(t, []string{"z", "a", "m"}, d.Keys())
}

func TestDict_Reset(t *testing.T) {
	d := New()
	d.Set("a", "1")

	d.Reset()

	require.Equal(t, 0, d.Len())
	require.Equal(t, "", d.Value("a"))
}

func TestDict_IntOr(t *testing.T) {
	d := New()
	d.Set("n", "42")
	d.Set("bad", "not-a-number")

	require.Equal(t, 42, d.IntOr("n", -1))
	require.Equal(t, -1, d.IntOr("bad", -1))
}
