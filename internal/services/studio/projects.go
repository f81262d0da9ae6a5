package studio

import (
	"context"
	"fmt"
	"log/slog"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/lib/apperr"
	"remotion_studio/internal/lib/logger/sl"
	"remotion_studio/internal/services/history"
	"remotion_studio/internal/storage/localcache"
)

// LoadProjects replaces the project list with the server's. A current
// project missing from the new list is unbound.
func (s *Store) LoadProjects(ctx context.Context, filter models.ProjectFilter) ([]models.Project, error) {
	const op = "studio.Store.LoadProjects"

	log := s.log.With(slog.String("op", op))

	if filter.UserID == "" {
		filter.UserID = s.cfg.UserID
	}

	s.setLoading(func(l *Loading) { l.Projects = true })
	defer s.setLoading(func(l *Loading) { l.Projects = false })

	projects, err := s.projects.ListProjects(ctx, filter)
	if err != nil {
		return nil, s.fail("load projects", err)
	}

	s.mu.Lock()
	s.list = models.CloneProjects(projects)
	if s.current != nil {
		idx := -1
		for i := range s.list {
			if s.list[i].ID == s.current.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			log.Info("current project no longer listed, unbinding", slog.String("project_id", s.current.ID))
			s.unbindLocked()
		} else {
			merged := s.list[idx].Clone()
			if len(merged.Scenes) == 0 {
				merged.Scenes = models.CloneScenes(s.current.Scenes)
			}
			s.current = &merged
			s.list[idx] = merged.Clone()
		}
	}
	out := models.CloneProjects(s.list)
	s.checkLocked(op)
	s.mu.Unlock()

	log.Debug("projects loaded", slog.Int("count", len(out)))

	return out, nil
}

// CreateProject validates input, creates the project and opens it.
func (s *Store) CreateProject(ctx context.Context, input models.ProjectInput) (*models.Project, error) {
	const op = "studio.Store.CreateProject"

	log := s.log.With(slog.String("op", op))

	if err := s.validate.Struct(input); err != nil {
		return nil, s.fail("create project", apperr.InvalidInput(op, validationMessage(err)))
	}

	release, err := s.acquire(models.OpCreating)
	if err != nil {
		return nil, err
	}
	defer release()

	if input.UserID == "" {
		input.UserID = s.cfg.UserID
	}
	if input.Status == "" {
		input.Status = models.ProjectStatusDraft
	}

	created, err := s.projects.CreateProject(ctx, input)
	if err != nil {
		return nil, s.fail("create project", err)
	}

	p := created.Clone()
	if p.Scenes == nil {
		p.Scenes = []models.Scene{}
	}
	tl := models.NewTimeline(p)

	s.mu.Lock()
	if s.current != nil {
		s.reconciler.Cancel(s.current.ID)
	}
	s.list = append(s.list, p.Clone())
	s.current = &p
	s.timeline = &tl
	s.selection.Reset()
	s.history.Reset()
	s.history.Push(models.HistoryActionLoad, "Open "+p.Name, tl)
	s.errMsg = ""
	out := p.Clone()
	s.checkLocked(op)
	s.mu.Unlock()

	log.Info("project created", slog.String("project_id", out.ID))

	return &out, nil
}

// UpdateProject writes patch to the server. When the server rejects or is
// unreachable the patched project is kept locally and in the fallback cache.
func (s *Store) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (*models.Project, error) {
	const op = "studio.Store.UpdateProject"

	log := s.log.With(slog.String("op", op), slog.String("project_id", id))

	if err := s.validate.Struct(patch); err != nil {
		return nil, s.fail("update project", apperr.InvalidInput(op, validationMessage(err)))
	}

	release, err := s.acquire(models.OpUpdating)
	if err != nil {
		return nil, err
	}
	defer release()

	updated, err := s.projects.UpdateProject(ctx, id, patch)
	if err != nil {
		s.keepLocally(ctx, log, id, patch)
		return nil, s.fail("update project", err)
	}

	p := updated.Clone()

	s.mu.Lock()
	for i := range s.list {
		if s.list[i].ID == id {
			if p.Scenes == nil {
				p.Scenes = models.CloneScenes(s.list[i].Scenes)
			}
			s.list[i] = p.Clone()
		}
	}
	if s.current != nil && s.current.ID == id {
		if len(p.Scenes) == 0 {
			p.Scenes = models.CloneScenes(s.current.Scenes)
		}
		cur := p.Clone()
		s.current = &cur
		s.syncListLocked()
	}
	s.checkLocked(op)
	s.mu.Unlock()

	if err := s.cache.Delete(ctx, localcache.ProjectKey(id), localcache.SettingsKey(id)); err != nil {
		log.Warn("fallback keys not removed", sl.Err(err))
	}
	log.Debug("project updated")

	return &p, nil
}

// keepLocally applies a patch the server did not accept to the in-memory
// copy and stores it under the project and settings fallback keys.
func (s *Store) keepLocally(ctx context.Context, log *slog.Logger, id string, patch models.ProjectPatch) {
	s.mu.Lock()
	var local *models.Project
	for i := range s.list {
		if s.list[i].ID == id {
			p := patch.Apply(s.list[i])
			s.list[i] = p
			local = &p
		}
	}
	if s.current != nil && s.current.ID == id {
		p := patch.Apply(*s.current)
		s.current = &p
		local = &p
	}
	var stored models.Project
	if local != nil {
		stored = local.Clone()
	}
	s.mu.Unlock()

	if local == nil {
		return
	}

	if err := s.cache.Set(ctx, localcache.ProjectKey(id), stored); err != nil {
		log.Error("project fallback not written", sl.Err(err))
	}
	if patch.Settings != nil {
		if err := s.cache.Set(ctx, localcache.SettingsKey(id), stored.Settings); err != nil {
			log.Error("settings fallback not written", sl.Err(err))
		}
	}
	log.Warn("project update kept locally")
}

// DeleteProject removes the project. If it was current, the timeline,
// selection and history go with it.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	const op = "studio.Store.DeleteProject"

	log := s.log.With(slog.String("op", op), slog.String("project_id", id))

	release, err := s.acquire(models.OpDeleting)
	if err != nil {
		return err
	}
	defer release()

	if err := s.projects.DeleteProject(ctx, id); err != nil {
		return s.fail("delete project", err)
	}

	s.reconciler.Cancel(id)

	s.mu.Lock()
	kept := s.list[:0]
	for _, p := range s.list {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.list = kept
	if s.current != nil && s.current.ID == id {
		s.unbindLocked()
	}
	if s.timeline != nil && s.timeline.ProjectID == id {
		s.timeline = nil
	}
	s.checkLocked(op)
	s.mu.Unlock()

	if err := s.cache.Delete(ctx, localcache.ProjectKeys(id)...); err != nil {
		log.Warn("fallback keys not removed", sl.Err(err))
	}
	log.Info("project deleted")

	return nil
}

// SwitchProject opens id: it loads its scenes, rebuilds the selection from
// their persisted ids and binds a timeline. An unsynced timeline in the
// fallback cache wins over the server copy and is queued for saving again.
func (s *Store) SwitchProject(ctx context.Context, id string) (*models.Project, error) {
	const op = "studio.Store.SwitchProject"

	log := s.log.With(slog.String("op", op), slog.String("project_id", id))

	release, err := s.acquire(models.OpSwitching)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.autosave.Flush(ctx); err != nil {
		log.Warn("pending auto-save not flushed", sl.Err(err))
	}

	s.mu.Lock()
	var base *models.Project
	for i := range s.list {
		if s.list[i].ID == id {
			p := s.list[i].Clone()
			base = &p
			break
		}
	}
	var prev string
	if s.current != nil {
		prev = s.current.ID
	}
	s.mu.Unlock()

	if base == nil {
		return nil, s.fail("switch project", apperr.NotFound(op, fmt.Sprintf("project %s is not loaded", id)))
	}

	s.setLoading(func(l *Loading) { l.Scenes = true })
	defer s.setLoading(func(l *Loading) { l.Scenes = false })

	scenes, err := s.scenes.ListScenes(ctx, id)
	if err != nil {
		return nil, s.fail("switch project", err)
	}

	p := *base
	p.Scenes = models.CloneScenes(scenes)
	if p.Scenes == nil {
		p.Scenes = []models.Scene{}
	}
	models.SortScenes(p.Scenes)

	fb, err := history.LoadFallback(ctx, s.cache, id)
	if err != nil {
		log.Warn("timeline fallback unreadable", sl.Err(err))
		fb = nil
	}

	var tl models.Timeline
	switch {
	case fb != nil:
		tl = fb.Timeline.Clone()
	case p.Timeline != nil:
		tl = p.Timeline.Clone()
	default:
		tl = models.NewTimeline(p)
	}

	if prev != "" && prev != id {
		s.reconciler.Cancel(prev)
	}

	s.mu.Lock()
	s.current = &p
	s.timeline = &tl
	s.selection.Replace(p.Scenes)
	s.history.Reset()
	if fb != nil && len(fb.Entries) > 0 {
		s.history.Restore(fb.Entries, fb.Index)
	} else {
		s.history.Push(models.HistoryActionLoad, "Open "+p.Name, tl)
	}
	s.syncListLocked()
	s.errMsg = ""
	snap, _ := s.autosaveSnapshotLocked()
	out := p.Clone()
	s.checkLocked(op)
	s.mu.Unlock()

	if fb != nil {
		log.Info("restored unsynced timeline from local cache")
		s.autosave.Notify(snap)
	}

	log.Debug("project opened", slog.Int("scenes", len(out.Scenes)))

	return &out, nil
}
