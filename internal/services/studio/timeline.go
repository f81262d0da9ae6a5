package studio

import (
	"log/slog"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/services/history"
)

// EditTimeline applies mutate to a copy of the bound timeline. On success
// the copy becomes the timeline, a history entry is pushed and an auto-save
// is scheduled. A mutate error leaves everything untouched.
func (s *Store) EditTimeline(action models.HistoryAction, description string, mutate func(*models.Timeline) error) (*models.Timeline, error) {
	const op = "studio.Store.EditTimeline"

	s.mu.Lock()
	if s.timeline == nil || s.current == nil {
		s.mu.Unlock()
		return nil, s.fail("edit timeline", ErrNoTimeline)
	}
	next := s.timeline.Clone()
	if err := mutate(&next); err != nil {
		s.mu.Unlock()
		return nil, s.fail("edit timeline", err)
	}
	s.commitTimelineLocked(action, description, next)
	snap, ok := s.autosaveSnapshotLocked()
	out := next.Clone()
	s.checkLocked(op)
	s.mu.Unlock()

	s.notify(snap, ok)
	s.log.Debug("timeline edited",
		slog.String("op", op),
		slog.String("action", string(action)),
		slog.Int("duration_in_frames", out.DurationInFrames),
	)

	return &out, nil
}

func (s *Store) Undo() (*models.Timeline, bool) {
	return s.step(s.history.Undo)
}

func (s *Store) Redo() (*models.Timeline, bool) {
	return s.step(s.history.Redo)
}

func (s *Store) step(move func() (models.Timeline, bool)) (*models.Timeline, bool) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil, false
	}
	tl, ok := move()
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	s.timeline = &tl
	snap, save := s.autosaveSnapshotLocked()
	out := tl.Clone()
	s.mu.Unlock()

	s.notify(snap, save)

	return &out, true
}

// commitTimelineLocked binds next and records it as one undo step.
func (s *Store) commitTimelineLocked(action models.HistoryAction, description string, next models.Timeline) {
	s.timeline = &next
	s.history.Push(action, description, next)
}

func (s *Store) autosaveSnapshotLocked() (history.Snapshot, bool) {
	if s.current == nil || s.timeline == nil {
		return history.Snapshot{}, false
	}
	return history.Snapshot{
		ProjectID: s.current.ID,
		Timeline:  s.timeline.Clone(),
		Entries:   s.history.Entries(),
		Index:     s.history.Index(),
	}, true
}

// notify schedules an auto-save of snap when there is one.
func (s *Store) notify(snap history.Snapshot, ok bool) {
	if ok {
		s.autosave.Notify(snap)
	}
}
