// Package selection keeps the per-scene selected image ids. It is a
// projection of the server's selectedImageIds, stored apart from the scene
// entities and changed optimistically.
package selection

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/lib/logger/sl"
	"remotion_studio/internal/lib/optimistic"
)

type Persister interface {
	UpdateSelection(ctx context.Context, sceneID string, imageIDs []string) error
}

type Manager struct {
	log     *slog.Logger
	persist Persister
	// onPersisted runs after the server accepted a new set, typically to
	// schedule a reconciliation of the owning project.
	onPersisted func(sceneID string)

	mu   sync.Mutex
	sets map[string][]string
}

func New(log *slog.Logger, persist Persister, onPersisted func(sceneID string)) *Manager {
	return &Manager{
		log:         log,
		persist:     persist,
		onPersisted: onPersisted,
		sets:        make(map[string][]string),
	}
}

// Get returns a copy of the scene's selection, nil when it has none.
func (m *Manager) Get(sceneID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[sceneID]
	if !ok {
		return nil
	}
	return append([]string{}, set...)
}

func (m *Manager) IsSelected(sceneID, imageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return indexOf(m.sets[sceneID], imageID) >= 0
}

// Keys returns the scene ids that have an entry, sorted.
func (m *Manager) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.sets))
	for k := range m.sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Manager) Snapshot() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string][]string, len(m.sets))
	for k, v := range m.sets {
		out[k] = append([]string{}, v...)
	}
	return out
}

// Replace drops every entry and rebuilds the map from the scenes' persisted
// selections.
func (m *Manager) Replace(scenes []models.Scene) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sets = make(map[string][]string, len(scenes))
	for _, s := range scenes {
		m.sets[s.ID] = dedupe(s.SelectedImageIDs)
	}
}

func (m *Manager) Drop(sceneID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sets, sceneID)
}

func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sets = make(map[string][]string)
}

// Toggle flips imageID in the scene's selection and persists the whole
// resulting set. On failure the pre-toggle set is restored.
func (m *Manager) Toggle(ctx context.Context, sceneID, imageID string) ([]string, error) {
	const op = "selection.Manager.Toggle"

	var next []string
	err := optimistic.Update(ctx, m.value(sceneID), func(cur []string) []string {
		next = toggled(cur, imageID)
		return next
	}, m.remote(op, sceneID))
	if err != nil {
		return m.Get(sceneID), err
	}

	return append([]string{}, next...), nil
}

// SelectAll selects exactly imageIDs, the scene's current images.
func (m *Manager) SelectAll(ctx context.Context, sceneID string, imageIDs []string) error {
	const op = "selection.Manager.SelectAll"

	return optimistic.Apply(ctx, m.value(sceneID), dedupe(imageIDs), m.remote(op, sceneID))
}

func (m *Manager) Clear(ctx context.Context, sceneID string) error {
	const op = "selection.Manager.Clear"

	return optimistic.Apply(ctx, m.value(sceneID), []string{}, m.remote(op, sceneID))
}

// value exposes one scene's entry to the optimistic combinator. A nil set
// means the scene had no entry, so restoring it removes the key again.
func (m *Manager) value(sceneID string) optimistic.Value[[]string] {
	return optimistic.Value[[]string]{
		Get: func() []string {
			m.mu.Lock()
			defer m.mu.Unlock()

			set, ok := m.sets[sceneID]
			if !ok {
				return nil
			}
			return append([]string{}, set...)
		},
		Set: func(set []string) {
			m.mu.Lock()
			defer m.mu.Unlock()

			if set == nil {
				delete(m.sets, sceneID)
				return
			}
			m.sets[sceneID] = append([]string{}, set...)
		},
	}
}

func (m *Manager) remote(op, sceneID string) func(context.Context, []string) error {
	return func(ctx context.Context, set []string) error {
		log := m.log.With(slog.String("op", op), slog.String("scene_id", sceneID))

		if err := m.persist.UpdateSelection(ctx, sceneID, set); err != nil {
			log.Warn("selection not persisted, reverting", sl.Err(err))
			return fmt.Errorf("%s: %w", op, err)
		}

		log.Debug("selection persisted", slog.Int("selected", len(set)))
		if m.onPersisted != nil {
			m.onPersisted(sceneID)
		}
		return nil
	}
}

func toggled(cur []string, id string) []string {
	out := append([]string{}, cur...)
	if i := indexOf(out, id); i >= 0 {
		return append(out[:i], out[i+1:]...)
	}
	return append(out, id)
}

func indexOf(set []string, id string) int {
	for i, v := range set {
		if v == id {
			return i
		}
	}
	return -1
}

// dedupe keeps the first occurrence of every id and never returns nil.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
