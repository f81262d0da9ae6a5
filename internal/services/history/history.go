// Package history is the bounded undo/redo stack over the editable timeline
// and the debounced auto-save that persists it.
package history

import (
	"sync"
	"time"

	"remotion_studio/internal/domain/models"

	"github.com/google/uuid"
)

const DefaultLimit = 50

// Manager keeps deep copies of timeline states. The entry at the current
// index is the state the editor shows; Undo and Redo move the index and
// hand back a fresh copy of the entry they land on.
type Manager struct {
	mu      sync.Mutex
	limit   int
	entries []models.HistoryEntry
	index   int
	now     func() time.Time
}

func NewManager(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{
		limit: limit,
		index: -1,
		now:   time.Now,
	}
}

// Push records snapshot as the newest state. Entries after the current index
// are discarded and the oldest entries are dropped past the limit.
func (m *Manager) Push(action models.HistoryAction, description string, snapshot models.Timeline) models.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := models.HistoryEntry{
		ID:          uuid.NewString(),
		Timestamp:   m.now(),
		Action:      action,
		Description: description,
		Snapshot:    snapshot.Clone(),
	}

	m.entries = append(m.entries[:m.index+1], entry)
	if over := len(m.entries) - m.limit; over > 0 {
		m.entries = append([]models.HistoryEntry(nil), m.entries[over:]...)
	}
	m.index = len(m.entries) - 1

	return entry.Clone()
}

// Undo steps back one entry. It is a no-op at the oldest entry.
func (m *Manager) Undo() (models.Timeline, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index <= 0 {
		return models.Timeline{}, false
	}
	m.index--
	return m.entries[m.index].Snapshot.Clone(), true
}

// Redo steps forward one entry. It is a no-op at the newest entry.
func (m *Manager) Redo() (models.Timeline, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.index < 0 || m.index >= len(m.entries)-1 {
		return models.Timeline{}, false
	}
	m.index++
	return m.entries[m.index].Snapshot.Clone(), true
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index >= 0 && m.index < len(m.entries)-1
}

func (m *Manager) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Entries returns deep copies of the retained entries, oldest first.
func (m *Manager) Entries() []models.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.HistoryEntry, len(m.entries))
	for i := range m.entries {
		out[i] = m.entries[i].Clone()
	}
	return out
}

func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = nil
	m.index = -1
}

// Restore replaces the stack, e.g. with a history read back from the local
// fallback cache. An out of range index is clamped to the newest entry.
func (m *Manager) Restore(entries []models.HistoryEntry, index int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if over := len(entries) - m.limit; over > 0 {
		entries = entries[over:]
		index -= over
	}

	m.entries = make([]models.HistoryEntry, len(entries))
	for i := range entries {
		m.entries[i] = entries[i].Clone()
	}

	switch {
	case len(m.entries) == 0:
		m.index = -1
	case index < 0 || index >= len(m.entries):
		m.index = len(m.entries) - 1
	default:
		m.index = index
	}
}
