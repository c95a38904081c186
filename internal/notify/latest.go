package notify

import (
	"sync"

	"github.com/OpenTrons/opentrons-sub006/internal/flow"
)

// Latest remembers the most recent snapshot.
type Latest struct {
	mu   sync.RWMutex
	snap flow.Snapshot
	seen bool
}

var _ flow.Observer = (*Latest)(nil)

// Observe implements flow.Observer.
func (l *Latest) Observe(s flow.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snap, l.seen = s, true
}

// Get returns the last snapshot, and false if none arrived yet.
func (l *Latest) Get() (flow.Snapshot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap, l.seen
}

// Fanout forwards every snapshot to each observer in order. Nil entries are
// skipped.
type Fanout []flow.Observer

// Observe implements flow.Observer.
func (f Fanout) Observe(s flow.Snapshot) {
	for _, o := range f {
		if o != nil {
			o.Observe(s)
		}
	}
}
