// Package stats holds the process-wide monotonic counters the admin
// endpoint exposes: connection counts, pooled buffers, request phases.
package stats

import (
	"sync/atomic"
	"time"
)

// Counters are the live, atomically-updated values. Zero value is ready
// to use.
type Counters struct {
	aliveConnections  int64
	pooledReaders     int64
	lifetimeConnects  int64
	lifetimeHits      int64
	waitingForHeader  int64
	servingBody       int64
	servingWebsockets int64
}

// New returns a fresh Counters set.
func New() *Counters {
	return &Counters{}
}

func (c *Counters) ConnectionOpened() {
	atomic.AddInt64(&c.aliveConnections, 1)
	atomic.AddInt64(&c.lifetimeConnects, 1)
}

func (c *Counters) ConnectionClosed() {
	atomic.AddInt64(&c.aliveConnections, -1)
}

// Alive returns the current alive-connection count, used by the accept
// loop's overload guard.
func (c *Counters) Alive() int64 {
	return atomic.LoadInt64(&c.aliveConnections)
}

func (c *Counters) ReaderPooled(delta int64) {
	atomic.AddInt64(&c.pooledReaders, delta)
}

func (c *Counters) HitServed() {
	atomic.AddInt64(&c.lifetimeHits, 1)
}

func (c *Counters) EnterWaitingForHeader() {
	atomic.AddInt64(&c.waitingForHeader, 1)
}

func (c *Counters) LeaveWaitingForHeader() {
	atomic.AddInt64(&c.waitingForHeader, -1)
}

func (c *Counters) EnterServingBody() {
	atomic.AddInt64(&c.servingBody, 1)
}

func (c *Counters) LeaveServingBody() {
	atomic.AddInt64(&c.servingBody, -1)
}

func (c *Counters) EnterServingWebsocket() {
	atomic.AddInt64(&c.servingWebsockets, 1)
}

func (c *Counters) LeaveServingWebsocket() {
	atomic.AddInt64(&c.servingWebsockets, -1)
}

// Snapshot is a plain-value copy of Counters plus the current time, safe to
// serialize (e.g. to JSON for the admin endpoint).
type Snapshot struct {
	Timestamp         time.Time `json:"timestamp"`
	AliveConnections  int64     `json:"alive_connections"`
	PooledReaders     int64     `json:"pooled_readers"`
	LifetimeConnects  int64     `json:"lifetime_connects"`
	LifetimeHits      int64     `json:"lifetime_hits"`
	WaitingForHeader  int64     `json:"waiting_for_header"`
	ServingBody       int64     `json:"serving_body"`
	ServingWebsockets int64     `json:"serving_websockets"`
}

// Snapshot copies the counters without taking a lock: readers accept the
// usual per-field (but not cross-field) staleness atomics imply.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		Timestamp:         time.Now().UTC(),
		AliveConnections:  atomic.LoadInt64(&c.aliveConnections),
		PooledReaders:     atomic.LoadInt64(&c.pooledReaders),
		LifetimeConnects:  atomic.LoadInt64(&c.lifetimeConnects),
		LifetimeHits:      atomic.LoadInt64(&c.lifetimeHits),
		WaitingForHeader:  atomic.LoadInt64(&c.waitingForHeader),
		ServingBody:       atomic.LoadInt64(&c.servingBody),
		ServingWebsockets: atomic.LoadInt64(&c.servingWebsockets),
	}
}
