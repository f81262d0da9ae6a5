package studio

import (
	"context"
	"fmt"
	"log/slog"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/lib/apperr"
	"remotion_studio/internal/lib/optimistic"
	"remotion_studio/internal/services/history"
)

// CreateScene creates a scene in the current project. A zero SceneNumber
// lets the server allocate it; the store never guesses ahead of the reply.
func (s *Store) CreateScene(ctx context.Context, input models.SceneInput) (*models.Scene, error) {
	const op = "studio.Store.CreateScene"

	id, err := s.currentID()
	if err != nil {
		return nil, s.fail("create scene", err)
	}
	if input.ProjectID == "" {
		input.ProjectID = id
	}
	if input.ProjectID != id {
		return nil, s.fail("create scene", apperr.InvalidInput(op, "scene must belong to the current project"))
	}
	if err := s.validate.Struct(input); err != nil {
		return nil, s.fail("create scene", apperr.InvalidInput(op, validationMessage(err)))
	}

	release, err := s.acquire(models.OpCreating)
	if err != nil {
		return nil, err
	}
	defer release()

	created, err := s.scenes.CreateScene(ctx, input)
	if err != nil {
		return nil, s.fail("create scene", err)
	}
	sc := created.Clone()

	s.mu.Lock()
	if s.current == nil || s.current.ID != id {
		s.mu.Unlock()
		return &sc, nil
	}
	s.upsertSceneLocked(sc)
	s.appendClipsLocked(models.HistoryActionAddClip, "Add scene "+sceneLabel(sc), sc)
	snap, ok := s.autosaveSnapshotLocked()
	expected := len(s.current.Scenes)
	s.checkLocked(op)
	s.mu.Unlock()

	s.notify(snap, ok)
	s.reconciler.Request(id, expected, s.applyReconcile)

	s.log.Debug("scene created",
		slog.String("op", op),
		slog.String("scene_id", sc.ID),
		slog.Int("scene_number", sc.SceneNumber),
	)

	return &sc, nil
}

func (s *Store) UpdateScene(ctx context.Context, sceneID string, patch models.ScenePatch) (*models.Scene, error) {
	const op = "studio.Store.UpdateScene"

	if err := s.validate.Struct(patch); err != nil {
		return nil, s.fail("update scene", apperr.InvalidInput(op, validationMessage(err)))
	}

	s.mu.Lock()
	_, err := s.sceneLocked(sceneID)
	s.mu.Unlock()
	if err != nil {
		return nil, s.fail("update scene", err)
	}

	release, err := s.acquire(models.OpUpdating)
	if err != nil {
		return nil, err
	}
	defer release()

	updated, err := s.scenes.UpdateScene(ctx, sceneID, patch)
	if err != nil {
		return nil, s.fail("update scene", err)
	}
	sc := updated.Clone()

	s.mu.Lock()
	s.upsertSceneLocked(sc)
	s.checkLocked(op)
	s.mu.Unlock()

	return &sc, nil
}

// RenameScene shows the new title at once and puts the old one back if the
// server rejects it.
func (s *Store) RenameScene(ctx context.Context, sceneID, title string) error {
	const op = "studio.Store.RenameScene"

	patch := models.ScenePatch{Title: &title}
	if err := s.validate.Struct(patch); err != nil {
		return s.fail("rename scene", apperr.InvalidInput(op, validationMessage(err)))
	}

	s.mu.Lock()
	_, err := s.sceneLocked(sceneID)
	s.mu.Unlock()
	if err != nil {
		return s.fail("rename scene", err)
	}

	current := optimistic.Value[string]{
		Get: func() string {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sc, err := s.sceneLocked(sceneID); err == nil {
				return sc.Title
			}
			return ""
		},
		Set: func(v string) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sc, err := s.sceneLocked(sceneID); err == nil {
				sc.Title = v
				s.syncListLocked()
			}
		},
	}

	var saved *models.Scene
	err = optimistic.Apply(ctx, current, title, func(ctx context.Context, v string) error {
		var err error
		saved, err = s.scenes.UpdateScene(ctx, sceneID, models.ScenePatch{Title: &v})
		return err
	})
	if err != nil {
		return s.fail("rename scene", err)
	}

	s.mu.Lock()
	s.upsertSceneLocked(saved.Clone())
	s.mu.Unlock()

	return nil
}

// DeleteScene removes the scene, its selection entry and its clips.
func (s *Store) DeleteScene(ctx context.Context, sceneID string) error {
	const op = "studio.Store.DeleteScene"

	s.mu.Lock()
	sc, err := s.sceneLocked(sceneID)
	var label string
	if err == nil {
		label = sceneLabel(*sc)
	}
	s.mu.Unlock()
	if err != nil {
		return s.fail("delete scene", err)
	}

	release, err := s.acquire(models.OpDeleting)
	if err != nil {
		return err
	}
	defer release()

	if err := s.scenes.DeleteScene(ctx, sceneID); err != nil {
		return s.fail("delete scene", err)
	}

	s.mu.Lock()
	if s.current != nil {
		if _, i := s.current.SceneByID(sceneID); i >= 0 {
			s.current.Scenes = append(s.current.Scenes[:i], s.current.Scenes[i+1:]...)
		}
		s.syncListLocked()
	}
	s.selection.Drop(sceneID)
	var (
		snap history.Snapshot
		ok   bool
	)
	if s.timeline != nil {
		next := s.timeline.Clone()
		if next.RemoveSceneClips(sceneID) > 0 {
			s.commitTimelineLocked(models.HistoryActionRemove, "Remove scene "+label, next)
			snap, ok = s.autosaveSnapshotLocked()
		}
	}
	s.checkLocked(op)
	s.mu.Unlock()

	s.notify(snap, ok)

	return nil
}

// ImportScenes resolves records against the current project's scenes with
// strategy. Rows that end up skipped are not an error, but the breakdown is
// surfaced to the user.
func (s *Store) ImportScenes(ctx context.Context, records []models.ImportRecord, strategy models.ConflictStrategy, serverSide bool) (*models.ImportResult, error) {
	const op = "studio.Store.ImportScenes"

	log := s.log.With(slog.String("op", op), slog.String("strategy", strategy.String()))

	id, err := s.currentID()
	if err != nil {
		return nil, s.fail("import scenes", err)
	}

	release, err := s.acquire(models.OpCreating)
	if err != nil {
		return nil, err
	}
	defer release()

	s.setLoading(func(l *Loading) { l.Importing = true })
	defer s.setLoading(func(l *Loading) { l.Importing = false })

	resolver := s.importer
	if serverSide {
		resolver = s.serverImporter
	}

	res, err := resolver.Import(ctx, models.BatchImportRequest{
		ProjectID: id,
		Scenes:    records,
		Strategy:  strategy,
	})
	if err != nil {
		return nil, s.fail("import scenes", err)
	}

	s.mu.Lock()
	var (
		expected int
		snap     history.Snapshot
		ok       bool
	)
	if s.current != nil && s.current.ID == id {
		for _, sc := range res.Updated {
			s.upsertSceneLocked(sc.Clone())
		}
		for _, sc := range res.Created {
			s.upsertSceneLocked(sc.Clone())
		}
		if len(res.Created) > 0 {
			s.appendClipsLocked(models.HistoryActionImport, fmt.Sprintf("Import %d scenes", len(res.Created)), res.Created...)
			snap, ok = s.autosaveSnapshotLocked()
		}
		expected = len(s.current.Scenes)
	}
	if len(res.Skipped) > 0 {
		s.errMsg = "Failed to import scenes: " + res.Summary()
	}
	s.checkLocked(op)
	s.mu.Unlock()

	s.notify(snap, ok)
	if res.Total() > len(res.Skipped) {
		s.reconciler.Request(id, expected, s.applyReconcile)
	}

	log.Info("scenes imported",
		slog.Int("created", len(res.Created)),
		slog.Int("updated", len(res.Updated)),
		slog.Int("skipped", len(res.Skipped)),
	)

	return res, nil
}

func (s *Store) AttachGeneratedImage(ctx context.Context, sceneID string, img models.GeneratedImage) (*models.Scene, error) {
	if err := img.Validate(); err != nil {
		return nil, s.fail("attach image", apperr.InvalidInput("studio.Store.AttachGeneratedImage", err.Error()))
	}

	s.mu.Lock()
	sc, err := s.sceneLocked(sceneID)
	var images []models.GeneratedImage
	if err == nil {
		images = sc.Clone().GeneratedImages
	}
	s.mu.Unlock()
	if err != nil {
		return nil, s.fail("attach image", err)
	}

	replaced := false
	for i := range images {
		if images[i].ID == img.ID {
			images[i] = img.Clone()
			replaced = true
		}
	}
	if !replaced {
		images = append(images, img.Clone())
	}

	return s.UpdateScene(ctx, sceneID, models.ScenePatch{GeneratedImages: images})
}

func (s *Store) AttachGeneratedVideo(ctx context.Context, sceneID string, v models.GeneratedVideo) (*models.Scene, error) {
	if err := v.Validate(); err != nil {
		return nil, s.fail("attach video", apperr.InvalidInput("studio.Store.AttachGeneratedVideo", err.Error()))
	}

	s.mu.Lock()
	sc, err := s.sceneLocked(sceneID)
	var videos []models.GeneratedVideo
	if err == nil {
		videos = sc.Clone().GeneratedVideos
	}
	s.mu.Unlock()
	if err != nil {
		return nil, s.fail("attach video", err)
	}

	replaced := false
	for i := range videos {
		if videos[i].ID == v.ID {
			videos[i] = v.Clone()
			replaced = true
		}
	}
	if !replaced {
		videos = append(videos, v.Clone())
	}

	return s.UpdateScene(ctx, sceneID, models.ScenePatch{GeneratedVideos: videos})
}

// upsertSceneLocked replaces the current project's copy of sc, or adds it,
// keeping the list ordered by number.
func (s *Store) upsertSceneLocked(sc models.Scene) {
	if s.current == nil || sc.ProjectID != "" && sc.ProjectID != s.current.ID {
		return
	}
	if _, i := s.current.SceneByID(sc.ID); i >= 0 {
		s.current.Scenes[i] = sc
	} else {
		s.current.Scenes = append(s.current.Scenes, sc)
	}
	models.SortScenes(s.current.Scenes)
	s.syncListLocked()
}

// appendClipsLocked lays out a clip per scene at the end of the timeline as
// one undo step.
func (s *Store) appendClipsLocked(action models.HistoryAction, description string, scenes ...models.Scene) {
	if s.timeline == nil || s.current == nil {
		return
	}
	next := s.timeline.Clone()
	for _, sc := range scenes {
		next.AppendScene(sc, s.current.Settings.DefaultSceneDuration)
	}
	s.commitTimelineLocked(action, description, next)
}

func sceneLabel(sc models.Scene) string {
	if sc.Title != "" {
		return fmt.Sprintf("%d %q", sc.SceneNumber, sc.Title)
	}
	return fmt.Sprint(sc.SceneNumber)
}
