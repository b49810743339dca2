// Package changes keeps a bounded, time-limited history of vault changes.
package changes

import (
	"sync"
	"time"

	"github.com/starford/curator/internal/models"
)

// Defaults.
const (
	DefaultCapacity  = 1000
	DefaultRetention = 24 * time.Hour
)

// Ring is a fixed-capacity FIFO of VaultChanges. Entries older than the
// retention window are pruned on Record and List. Safe for concurrent use.
type Ring struct {
	mu        sync.Mutex
	buf       []models.VaultChange
	head      int
	size      int
	retention time.Duration
	now       func() time.Time
}

// New returns a ring holding at most capacity entries for retention.
// Non-positive arguments select the defaults.
func New(capacity int, retention time.Duration) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Ring{
		buf:       make([]models.VaultChange, capacity),
		retention: retention,
		now:       time.Now,
	}
}

// Record appends c, evicting the oldest entry when full. A zero timestamp is
// set to the current time.
func (r *Ring) Record(c models.VaultChange) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.Timestamp.IsZero() {
		c.Timestamp = r.now()
	}
	r.pruneLocked()
	tail := (r.head + r.size) % len(r.buf)
	r.buf[tail] = c
	if r.size == len(r.buf) {
		r.head = (r.head + 1) % len(r.buf)
	} else {
		r.size++
	}
}

// List returns entries with a timestamp after since, oldest first. A zero
// since returns every retained entry.
func (r *Ring) List(since time.Time) []models.VaultChange {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()
	out := make([]models.VaultChange, 0, r.size)
	for i := 0; i < r.size; i++ {
		c := r.buf[(r.head+i)%len(r.buf)]
		if since.IsZero() || c.Timestamp.After(since) {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of retained entries.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()
	return r.size
}

// pruneLocked drops entries that fall outside retention. Callers may supply
// timestamps, so arrival order is not time order: every entry is checked and
// the survivors are compacted in arrival order.
func (r *Ring) pruneLocked() {
	cutoff := r.now().Add(-r.retention)
	kept := 0
	for i := 0; i < r.size; i++ {
		c := r.buf[(r.head+i)%len(r.buf)]
		if c.Timestamp.Before(cutoff) {
			continue
		}
		r.buf[(r.head+kept)%len(r.buf)] = c
		kept++
	}
	for i := kept; i < r.size; i++ {
		r.buf[(r.head+i)%len(r.buf)] = models.VaultChange{}
	}
	r.size = kept
}
