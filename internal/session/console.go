// File: internal/session/console.go
package session

import (
	"sync"

	"github.com/vxkeys/puppetry/api/schemas"
)

// consoleBuffer is a fixed-capacity ring of console entries. Writes evict
// the oldest entry once the ring is full; reads return entries in arrival
// order.
type consoleBuffer struct {
	mu      sync.Mutex
	entries []schemas.ConsoleEntry
	next    int
	full    bool
}

func newConsoleBuffer(capacity int) *consoleBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &consoleBuffer{entries: make([]schemas.ConsoleEntry, capacity)}
}

// Append stores one entry, evicting the oldest when at capacity. It matches
// driver.ConsoleFunc so it can be handed to the factory directly.
func (b *consoleBuffer) Append(entry schemas.ConsoleEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = entry
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// Snapshot returns up to limit of the newest entries, oldest first. A
// non-positive limit returns everything buffered.
func (b *consoleBuffer) Snapshot(limit int) []schemas.ConsoleEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	var ordered []schemas.ConsoleEntry
	if b.full {
		ordered = make([]schemas.ConsoleEntry, 0, len(b.entries))
		ordered = append(ordered, b.entries[b.next:]...)
		ordered = append(ordered, b.entries[:b.next]...)
	} else {
		ordered = append(ordered, b.entries[:b.next]...)
	}
	if limit > 0 && len(ordered) > limit {
		ordered = ordered[len(ordered)-limit:]
	}
	return ordered
}

// Len reports how many entries are buffered.
func (b *consoleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.full {
		return len(b.entries)
	}
	return b.next
}
