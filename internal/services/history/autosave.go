package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/lib/logger/sl"
	"remotion_studio/internal/metrics"
	"remotion_studio/internal/storage/localcache"
)

const DefaultDebounce = 2 * time.Second

var ErrNotSaved = errors.New("timeline saved neither to the server nor to the local cache")

type ProjectSaver interface {
	UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (*models.Project, error)
}

// Snapshot is what one auto-save writes for a project.
type Snapshot struct {
	ProjectID string
	Timeline  models.Timeline
	Entries   []models.HistoryEntry
	Index     int
}

// Fallback is the local copy of an unsynced timeline and its history.
type Fallback struct {
	Timeline models.Timeline
	Entries  []models.HistoryEntry
	Index    int
}

type storedHistory struct {
	Entries []models.HistoryEntry `json:"entries"`
	Index   int                   `json:"index"`
}

// Autosaver debounces saves on the trailing edge: every Notify resets the
// quiet period, and a save already running reschedules instead of
// overlapping.
type Autosaver struct {
	log      *slog.Logger
	saver    ProjectSaver
	cache    localcache.Cache
	debounce time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]Snapshot
	running bool
	stopped bool
	// idle is closed and replaced whenever a save run finishes.
	idle chan struct{}
}

func NewAutosaver(log *slog.Logger, saver ProjectSaver, cache localcache.Cache, debounce time.Duration) *Autosaver {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Autosaver{
		log:      log,
		saver:    saver,
		cache:    cache,
		debounce: debounce,
		timeout:  15 * time.Second,
		pending:  make(map[string]Snapshot),
		idle:     make(chan struct{}),
	}
}

// Notify schedules snap to be saved after the quiet period.
func (a *Autosaver) Notify(snap Snapshot) {
	snap = cloneSnapshot(snap)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}
	a.pending[snap.ProjectID] = snap
	if a.timer == nil {
		a.timer = time.AfterFunc(a.debounce, a.onTimer)
		return
	}
	a.timer.Reset(a.debounce)
}

// Pending reports whether a save for projectID is waiting for its timer.
func (a *Autosaver) Pending(projectID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, ok := a.pending[projectID]
	return ok
}

func (a *Autosaver) onTimer() {
	a.mu.Lock()
	if a.running {
		if a.timer != nil {
			a.timer.Reset(a.debounce)
		}
		a.mu.Unlock()
		return
	}
	batch := a.take()
	if len(batch) == 0 {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	failed := a.saveAll(ctx, batch)
	cancel()

	a.finish(failed)
}

// Flush saves whatever is pending right away.
func (a *Autosaver) Flush(ctx context.Context) error {
	for {
		a.mu.Lock()
		if !a.running {
			break
		}
		idle := a.idle
		a.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if a.timer != nil {
		a.timer.Stop()
	}
	batch := a.take()
	if len(batch) == 0 {
		a.mu.Unlock()
		return nil
	}
	a.running = true
	a.mu.Unlock()

	failed := a.saveAll(ctx, batch)
	a.finish(failed)

	var errs []error
	for id := range failed {
		errs = append(errs, fmt.Errorf("project %s: %w", id, ErrNotSaved))
	}
	return errors.Join(errs...)
}

// Stop flushes pending work and refuses further notifications.
func (a *Autosaver) Stop(ctx context.Context) error {
	err := a.Flush(ctx)

	a.mu.Lock()
	a.stopped = true
	if a.timer != nil {
		a.timer.Stop()
	}
	a.mu.Unlock()

	return err
}

// take must be called with mu held.
func (a *Autosaver) take() map[string]Snapshot {
	batch := a.pending
	a.pending = make(map[string]Snapshot)
	return batch
}

func (a *Autosaver) finish(failed map[string]Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for id, snap := range failed {
		// Work that reached neither destination goes back in the queue
		// unless something newer replaced it meanwhile.
		if _, ok := a.pending[id]; !ok {
			a.pending[id] = snap
		}
	}

	a.running = false
	close(a.idle)
	a.idle = make(chan struct{})

	if len(a.pending) > 0 && !a.stopped {
		if a.timer == nil {
			a.timer = time.AfterFunc(a.debounce, a.onTimer)
		} else {
			a.timer.Reset(a.debounce)
		}
	}
}

func (a *Autosaver) saveAll(ctx context.Context, batch map[string]Snapshot) map[string]Snapshot {
	failed := make(map[string]Snapshot)
	for id, snap := range batch {
		if err := a.save(ctx, snap); err != nil {
			failed[id] = snap
		}
	}
	return failed
}

// save tries the server first and falls back to the local cache. It only
// fails when neither write landed.
func (a *Autosaver) save(ctx context.Context, snap Snapshot) error {
	const op = "history.Autosaver.save"

	log := a.log.With(
		slog.String("op", op),
		slog.String("project_id", snap.ProjectID),
	)

	tl := snap.Timeline.Clone()
	_, err := a.saver.UpdateProject(ctx, snap.ProjectID, models.ProjectPatch{Timeline: &tl})
	if err == nil {
		metrics.AutosaveTotal.WithLabelValues("server").Inc()
		if err := a.cache.Delete(ctx, localcache.TimelineKey(snap.ProjectID), localcache.HistoryKey(snap.ProjectID)); err != nil {
			log.Warn("failed to clear local fallback", sl.Err(err))
		}
		log.Debug("timeline saved to server")
		return nil
	}

	log.Warn("server save failed, writing local fallback", sl.Err(err))

	if cerr := a.writeFallback(ctx, snap); cerr != nil {
		metrics.AutosaveTotal.WithLabelValues("failed").Inc()
		log.Error("local fallback failed", sl.Err(cerr))
		return fmt.Errorf("%s: %w", op, errors.Join(err, cerr))
	}

	metrics.AutosaveTotal.WithLabelValues("local").Inc()
	return nil
}

func (a *Autosaver) writeFallback(ctx context.Context, snap Snapshot) error {
	if err := a.cache.Set(ctx, localcache.TimelineKey(snap.ProjectID), snap.Timeline); err != nil {
		return err
	}
	return a.cache.Set(ctx, localcache.HistoryKey(snap.ProjectID), storedHistory{
		Entries: snap.Entries,
		Index:   snap.Index,
	})
}

// LoadFallback reads back an unsynced timeline for projectID. It returns
// (nil, nil) when the cache holds none.
func LoadFallback(ctx context.Context, cache localcache.Cache, projectID string) (*Fallback, error) {
	const op = "history.LoadFallback"

	var tl models.Timeline
	if err := cache.Get(ctx, localcache.TimelineKey(projectID), &tl); err != nil {
		if localcache.IsMiss(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	fb := &Fallback{Timeline: tl, Index: -1}

	var h storedHistory
	err := cache.Get(ctx, localcache.HistoryKey(projectID), &h)
	switch {
	case err == nil:
		fb.Entries = h.Entries
		fb.Index = h.Index
	case !localcache.IsMiss(err):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return fb, nil
}

func cloneSnapshot(s Snapshot) Snapshot {
	out := Snapshot{
		ProjectID: s.ProjectID,
		Timeline:  s.Timeline.Clone(),
		Index:     s.Index,
	}
	if s.Entries != nil {
		out.Entries = make([]models.HistoryEntry, len(s.Entries))
		for i := range s.Entries {
			out.Entries[i] = s.Entries[i].Clone()
		}
	}
	return out
}
