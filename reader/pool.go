package reader

import (
	"sync"

	"github.com/hearth-http/hearth/stats"
)

// Pool is an unbounded LIFO free-list of Readers guarded by a single
// mutex, sized to peak concurrency. The buffer inside a pooled Reader is
// left untouched while pooled, so it's ready for immediate reuse.
type Pool struct {
	mu    sync.Mutex
	free  []*Reader
	stats *stats.Counters
}

// NewPool returns an empty Pool.
func NewPool() *Pool {
	return &Pool{}
}

// SetStats wires counters into the pool so Get/Put keep the PooledReaders
// gauge in sync with actual pool occupancy.
func (p *Pool) SetStats(s *stats.Counters) {
	p.mu.Lock()
	p.stats = s
	p.mu.Unlock()
}

// Get pops a Reader off the pool, allocating a new one if it's empty.
func (p *Pool) Get() *Reader {
	p.mu.Lock()
	n := len(p.free)

	if n == 0 {
		p.mu.Unlock()
		return New()
	}

	r := p.free[n-1]
	p.free = p.free[:n-1]
	s := p.stats
	p.mu.Unlock()

	if s != nil {
		s.ReaderPooled(-1)
	}

	return r
}

// Put returns r to the pool for later reuse. Always called, even when the
// connection that owned r failed, so the buffer isn't wasted.
func (p *Pool) Put(r *Reader) {
	r.Reset()

	p.mu.Lock()
	p.free = append(p.free, r)
	s := p.stats
	p.mu.Unlock()

	if s != nil {
		s.ReaderPooled(1)
	}
}

// Len reports how many Readers currently sit in the pool (exposed for the
// stats.PooledReaders gauge).
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.free)
}
