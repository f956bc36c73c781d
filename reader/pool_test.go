package reader

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hearth-http/hearth/stats"
)

func TestPool_GetAllocatesWhenEmpty(t *testing.T) {
	p := NewPool()

	r := p.Get()
	require.NotNil(t, r)
	require.Equal(t, 0, p.Len())
}

func TestPool_PutThenGetReusesReader(t *testing.T) {
	p := NewPool()

	r := New()
	p.Put(r)
	require.Equal(t, 1, p.Len())

	got := p.Get()
	require.Same(t, r, got)
	require.Equal(t, 0, p.Len())
}

func TestPool_SetStatsTracksPooledReadersGauge(t *testing.T) {
	p := NewPool()
	counters := stats.New()
	p.SetStats(counters)

	p.Put(New())
	p.Put(New())
	require.Equal(t, int64(2), counters.Snapshot().PooledReaders)

	p.Get()
	require.Equal(t, int64(1), counters.Snapshot().PooledReaders)

	// allocating fresh (pool empty after draining) must not touch the gauge.
	p.Get()
	p.Get()
	require.Equal(t, int64(0), counters.Snapshot().PooledReaders)
}
