package status

import (
	"sync"
	"time"
)

// MemorySink stores updates in memory. The HTTP API reads the latest one; tests
// read them all.
type MemorySink struct {
	mu      sync.Mutex
	updates []Update
	limit   int
}

// NewMemorySink keeps at most limit updates; limit <= 0 keeps everything.
func NewMemorySink(limit int) *MemorySink { return &MemorySink{limit: limit} }

func (m *MemorySink) add(u Update) {
	u.Time = time.Now()
	m.mu.Lock()
	m.updates = append(m.updates, u)
	if m.limit > 0 && len(m.updates) > m.limit {
		m.updates = append(m.updates[:0], m.updates[len(m.updates)-m.limit:]...)
	}
	m.mu.Unlock()
}

func (m *MemorySink) Status(msg string) { m.add(Update{Message: msg}) }

func (m *MemorySink) Progress(cur, max int64, msg string) {
	m.add(Update{Message: msg, Current: cur, Max: max})
}

func (m *MemorySink) Clear() { m.add(Update{Cleared: true}) }

// Updates returns a copy of the recorded updates.
func (m *MemorySink) Updates() []Update {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Update, len(m.updates))
	copy(out, m.updates)
	return out
}

// Latest returns the most recent update, if any was recorded since the last Clear.
func (m *MemorySink) Latest() (Update, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.updates) == 0 {
		return Update{}, false
	}
	u := m.updates[len(m.updates)-1]
	if u.Cleared {
		return Update{}, false
	}
	return u, true
}
