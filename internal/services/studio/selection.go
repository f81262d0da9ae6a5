package studio

import (
	"context"
	"fmt"
	"log/slog"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/lib/apperr"
	"remotion_studio/internal/services/reconcile"
)

// ToggleImageSelection flips imageID in the scene's selection. The change is
// visible at once and reverted if the server does not accept it.
func (s *Store) ToggleImageSelection(ctx context.Context, sceneID, imageID string) ([]string, error) {
	const op = "studio.Store.ToggleImageSelection"

	if err := s.checkImage(op, sceneID, imageID); err != nil {
		return nil, s.fail("update image selection", err)
	}

	set, err := s.selection.Toggle(ctx, sceneID, imageID)
	if err != nil {
		return set, s.fail("update image selection", err)
	}

	s.recordSelection(sceneID, set)

	return set, nil
}

func (s *Store) SelectAllImages(ctx context.Context, sceneID string) error {
	const op = "studio.Store.SelectAllImages"

	s.mu.Lock()
	sc, err := s.sceneLocked(sceneID)
	var ids []string
	if err == nil {
		ids = sc.ImageIDs()
	}
	s.mu.Unlock()
	if err != nil {
		return s.fail("select all images", err)
	}

	if err := s.selection.SelectAll(ctx, sceneID, ids); err != nil {
		return s.fail("select all images", err)
	}

	s.recordSelection(sceneID, s.selection.Get(sceneID))
	s.log.Debug("all images selected", slog.String("op", op), slog.Int("selected", len(ids)))

	return nil
}

func (s *Store) ClearImageSelection(ctx context.Context, sceneID string) error {
	s.mu.Lock()
	_, err := s.sceneLocked(sceneID)
	s.mu.Unlock()
	if err != nil {
		return s.fail("clear image selection", err)
	}

	if err := s.selection.Clear(ctx, sceneID); err != nil {
		return s.fail("clear image selection", err)
	}

	s.recordSelection(sceneID, []string{})

	return nil
}

func (s *Store) checkImage(op, sceneID, imageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, err := s.sceneLocked(sceneID)
	if err != nil {
		return err
	}
	if !sc.HasImage(imageID) {
		return apperr.NotFound(op, fmt.Sprintf("image %s is not in scene %d", imageID, sc.SceneNumber))
	}
	return nil
}

// recordSelection mirrors an accepted set into the scene entity.
func (s *Store) recordSelection(sceneID string, set []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc, err := s.sceneLocked(sceneID); err == nil {
		sc.SelectedImageIDs = append([]string{}, set...)
		s.syncListLocked()
	}
}

// onSelectionPersisted schedules a refresh of the project owning sceneID.
func (s *Store) onSelectionPersisted(sceneID string) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	if sc, _ := s.current.SceneByID(sceneID); sc == nil {
		s.mu.Unlock()
		return
	}
	id, expected := s.current.ID, len(s.current.Scenes)
	s.mu.Unlock()

	s.reconciler.Request(id, expected, s.applyReconcile)
}

// ReconcileProject refetches the current project's scenes and waits for the
// outcome.
func (s *Store) ReconcileProject(ctx context.Context) (reconcile.Result, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return reconcile.Result{}, s.fail("refresh scenes", ErrNoCurrentProject)
	}
	id, expected := s.current.ID, len(s.current.Scenes)
	s.mu.Unlock()

	s.setLoading(func(l *Loading) { l.Scenes = true })
	defer s.setLoading(func(l *Loading) { l.Scenes = false })

	res := s.reconciler.Reconcile(ctx, id, expected, s.applyReconcile)
	if res.State != reconcile.StateSucceeded {
		return res, res.Err
	}

	return res, nil
}

// Reconciling reports whether a background refresh of the current project
// is still running.
func (s *Store) Reconciling() bool {
	id, err := s.currentID()
	if err != nil {
		return false
	}
	return s.reconciler.Pending(id)
}

// applyReconcile installs a fetched scene list; the server copy wins over
// the local one. It ignores results for a project that is no longer open.
func (s *Store) applyReconcile(res reconcile.Result) {
	const op = "studio.Store.applyReconcile"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.current.ID != res.ProjectID {
		return
	}

	if res.State == reconcile.StateFailed {
		s.errMsg = fmt.Sprintf("Failed to refresh scenes: %v", res.Err)
		return
	}

	scenes := models.CloneScenes(res.Scenes)
	if scenes == nil {
		scenes = []models.Scene{}
	}
	models.SortScenes(scenes)
	s.current.Scenes = scenes
	s.selection.Replace(scenes)
	s.syncListLocked()
	s.checkLocked(op)

	s.log.Debug("scenes reconciled",
		slog.String("op", op),
		slog.String("project_id", res.ProjectID),
		slog.Int("scenes", len(scenes)),
		slog.Int("attempts", res.Attempts),
	)
}
