// Package journal keeps the most recent user-visible notifications in
// memory so late-joining front ends can replay them.
package journal

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSize is the number of entries kept when no size is configured.
const DefaultSize = 100

// Entry is one recorded notification.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// Filter narrows a Query. Zero values match everything.
type Filter struct {
	Level string
	Since time.Time
	Limit int
}

// Journal is a bounded ring of entries, oldest evicted first.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	now     func() time.Time
}

// New creates a Journal holding at most size entries.
func New(size int) *Journal {
	if size <= 0 {
		size = DefaultSize
	}
	return &Journal{entries: make([]Entry, size), now: time.Now}
}

// Record stamps and stores a notification, returning the stored entry.
func (j *Journal) Record(level, message string) Entry {
	e := Entry{
		ID:        uuid.NewString(),
		Timestamp: j.now().UTC(),
		Level:     level,
		Message:   message,
	}
	j.mu.Lock()
	j.entries[j.next] = e
	j.next = (j.next + 1) % len(j.entries)
	if j.next == 0 {
		j.full = true
	}
	j.mu.Unlock()
	return e
}

// Len reports how many entries are held.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.full {
		return len(j.entries)
	}
	return j.next
}

// Query returns matching entries, newest first.
func (j *Journal) Query(f Filter) []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	n := j.next
	if j.full {
		n = len(j.entries)
	}
	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		e := j.entries[(j.next-i+len(j.entries))%len(j.entries)]
		if f.Level != "" && e.Level != f.Level {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}
