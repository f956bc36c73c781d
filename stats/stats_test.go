package stats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounters_ConnectionLifecycle(t *testing.T) {
	c := New()

	c.ConnectionOpened()
	c.ConnectionOpened()
	require.Equal(t, int64(2), c.Alive())

	snap := c.Snapshot()
	require.Equal(t, int64(2), snap.AliveConnections)
	require.Equal(t, int64(2), snap.LifetimeConnects)

	c.ConnectionClosed()
	require.Equal(t, int64(1), c.Alive())
}

func TestCounters_PhaseGauges(t *testing.T) {
	c := New()

	c.EnterWaitingForHeader()
	c.EnterServingBody()
	c.EnterServingWebsocket()

	snap := c.Snapshot()
	require.Equal(t, int64(1), snap.WaitingForHeader)
	require.Equal(t, int64(1), snap.ServingBody)
	require.Equal(t, int64(1), snap.ServingWebsockets)

	c.LeaveWaitingForHeader()
	c.LeaveServingBody()
	c.LeaveServingWebsocket()

	snap = c.Snapshot()
	require.Equal(t, int64(0), snap.WaitingForHeader)
	require.Equal(t, int64(0), snap.ServingBody)
	require.Equal(t, int64(0), snap.ServingWebsockets)
}

func TestCounters_HitServed(t *testing.T) {
	c := New()
	c.HitServed()
	c.HitServed()

	require.Equal(t, int64(2), c.Snapshot().LifetimeHits)
}
