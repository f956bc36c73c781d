package staticfile

import (
	"sync/atomic"
	"time"
)

// entry is one file cache entry. Exactly one exists per HTTP-visible path;
// compressed siblings live under their own path (path + ".gz"/".br") as
// distinct entries.
type entry struct {
	canonicalPath string
	httpPath      string
	extension     string
	modTime       time.Time
	uncompressed  []byte
	hits          int64
}

func newEntry(canonicalPath, httpPath, extension string, modTime time.Time, data []byte) *entry {
	return &entry{
		canonicalPath: canonicalPath,
		httpPath:      httpPath,
		extension:     extension,
		modTime:       modTime,
		uncompressed:  data,
	}
}

func (e *entry) hit() {
	atomic.AddInt64(&e.hits, 1)
}

func (e *entry) Hits() int64 {
	return atomic.LoadInt64(&e.hits)
}
