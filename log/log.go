// Package log is a process-wide bounded in-memory ring of formatted lines,
// with an optional stdout mirror gated by a level threshold. There is no
// third-party structured-logging library in play anywhere in the corpus
// this server is grounded on, so this stays on the standard library, the
// same way indigo itself logs with bare log.Printf.
package log

import (
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"
)

// Level is a log severity.
type Level uint8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

func (l Level) label() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return " INFO"
	case LevelError:
		return "ERROR"
	default:
		return "?????"
	}
}

// Entry is a single formatted log line.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
	Site    string // optional "file:line (func)" trailer
}

// String renders the entry the way it would be printed to stdout.
func (e Entry) String() string {
	line := fmt.Sprintf("%s, %s  %s", e.Time.Format("2006-01-02"), e.Time.Format("15:04:05.000"), e.Level.label())
	line += "  " + e.Message

	if e.Site != "" {
		line += "  (" + e.Site + ")"
	}

	return line
}

// Sink is a bounded ring buffer of Entry values guarded by one mutex, plus
// a threshold controlling stdout mirroring.
type Sink struct {
	mu        sync.Mutex
	entries   []Entry
	capacity  int
	threshold Level
	mirror    bool
}

// NewSink returns a Sink with room for capacity entries. Once full, the
// oldest entry is dropped to make room for the newest.
func NewSink(capacity int) *Sink {
	if capacity <= 0 {
		capacity = 1000
	}

	return &Sink{
		capacity:  capacity,
		threshold: LevelDebug,
		mirror:    true,
	}
}

// SetThreshold controls which levels are also mirrored to stdout. Lines
// below threshold are still retained in the ring buffer.
func (s *Sink) SetThreshold(level Level) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threshold = level
}

// SetMirror toggles stdout mirroring entirely.
func (s *Sink) SetMirror(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mirror = on
}

func (s *Sink) push(level Level, message, site string) {
	entry := Entry{Time: time.Now(), Level: level, Message: message, Site: site}

	s.mu.Lock()
	if len(s.entries) == s.capacity {
		copy(s.entries, s.entries[1:])
		s.entries[len(s.entries)-1] = entry
	} else {
		s.entries = append(s.entries, entry)
	}

	mirror := s.mirror && level >= s.threshold
	s.mu.Unlock()

	if mirror {
		fmt.Fprintln(os.Stdout, entry.String())
	}
}

// Debug logs at DEBUG, the level protocol failures are reported at (they
// are expected, being driven by untrusted input).
func (s *Sink) Debug(message string) {
	s.push(LevelDebug, message, "")
}

// Info logs at INFO.
func (s *Sink) Info(message string) {
	s.push(LevelInfo, message, "")
}

// Error logs at ERROR with an optional caller-site trailer, the level
// server failures are always reported at.
func (s *Sink) Error(message string, skip int) {
	s.push(LevelError, message, site(skip+1))
}

// ErrorAt logs at ERROR with an explicit, already-known site (used when the
// caller already captured it, e.g. from an *errors.Server).
func (s *Sink) ErrorAt(message, site string) {
	s.push(LevelError, message, site)
}

func site(skip int) string {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}

	fn := runtime.FuncForPC(pc)
	name := ""
	if fn != nil {
		name = fn.Name()
	}

	return fmt.Sprintf("%s:%d (%s)", file, line, name)
}

// Snapshot returns a copy of the currently buffered entries, oldest first,
// for the admin log endpoint.
func (s *Sink) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)

	return out
}

// Default is the process-wide sink used when no other is supplied.
var Default = NewSink(1000)
