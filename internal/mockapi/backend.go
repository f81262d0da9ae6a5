// Package mockapi is an in-memory implementation of the project/scene REST
// surface the studio talks to. It is used for local development and by the
// end-to-end tests of the client and the store.
package mockapi

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/lib/apperr"

	"github.com/google/uuid"
)

// Backend holds the authoritative state. Its scene methods satisfy
// importer.SceneStore so the batch-import route can reuse the resolver.
type Backend struct {
	mu       sync.Mutex
	projects map[string]models.Project
	scenes   map[string]models.Scene
	now      func() time.Time
}

func NewBackend() *Backend {
	return &Backend{
		projects: make(map[string]models.Project),
		scenes:   make(map[string]models.Scene),
		now:      time.Now,
	}
}

func (b *Backend) ListProjects(_ context.Context, filter models.ProjectFilter) ([]models.Project, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	search := strings.ToLower(filter.Search)
	out := make([]models.Project, 0, len(b.projects))
	for _, p := range b.projects {
		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		out = append(out, b.withScenes(p))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.Limit
		if start >= len(out) {
			return []models.Project{}, nil
		}
		end := start + filter.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}

	return out, nil
}

func (b *Backend) CreateProject(_ context.Context, input models.ProjectInput) (*models.Project, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	p := models.Project{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		UserID:      input.UserID,
		Status:      input.Status,
		Scenes:      []models.Scene{},
		Settings:    input.Settings.Clone(),
		Metadata:    input.Metadata.Clone(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Status == "" {
		p.Status = models.ProjectStatusDraft
	}
	b.projects[p.ID] = p

	out := p.Clone()
	return &out, nil
}

func (b *Backend) UpdateProject(_ context.Context, id string, patch models.ProjectPatch) (*models.Project, error) {
	const op = "update project"

	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.projects[id]
	if !ok {
		return nil, apperr.NotFound(op, fmt.Sprintf("project %s not found", id))
	}

	p = patch.Apply(p)
	p.UpdatedAt = b.now()
	b.projects[id] = p

	out := b.withScenes(p)
	return &out, nil
}

func (b *Backend) DeleteProject(_ context.Context, id string) error {
	const op = "delete project"

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.projects[id]; !ok {
		return apperr.NotFound(op, fmt.Sprintf("project %s not found", id))
	}

	delete(b.projects, id)
	for sid, s := range b.scenes {
		if s.ProjectID == id {
			delete(b.scenes, sid)
		}
	}

	return nil
}

// Timeline returns the last timeline saved for the project.
func (b *Backend) Timeline(projectID string) (models.Timeline, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.projects[projectID]
	if !ok || p.Timeline == nil {
		return models.Timeline{}, false
	}
	return p.Timeline.Clone(), true
}

func (b *Backend) ListScenes(_ context.Context, projectID string) ([]models.Scene, error) {
	const op = "list scenes"

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.projects[projectID]; !ok {
		return nil, apperr.NotFound(op, fmt.Sprintf("project %s not found", projectID))
	}

	return b.projectScenes(projectID), nil
}

// CreateScene allocates max+1 when the input carries no number and rejects
// a number that is already taken in the project.
func (b *Backend) CreateScene(_ context.Context, input models.SceneInput) (*models.Scene, error) {
	const op = "create scene"

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.projects[input.ProjectID]; !ok {
		return nil, apperr.NotFound(op, fmt.Sprintf("project %s not found", input.ProjectID))
	}

	existing := b.projectScenes(input.ProjectID)
	number := input.SceneNumber
	if number == 0 {
		number = models.MaxSceneNumber(existing) + 1
	}
	for _, s := range existing {
		if s.SceneNumber == number {
			return nil, apperr.New(apperr.KindConflict, op, fmt.Sprintf("scene number %d already exists", number))
		}
	}

	now := b.now()
	s := models.Scene{
		ID:               uuid.NewString(),
		ProjectID:        input.ProjectID,
		SceneNumber:      number,
		Title:            input.Title,
		Description:      input.Description,
		ImagePrompt:      input.ImagePrompt,
		VideoPrompt:      input.VideoPrompt,
		Duration:         input.Duration,
		GeneratedImages:  []models.GeneratedImage{},
		GeneratedVideos:  []models.GeneratedVideo{},
		SelectedImageIDs: []string{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	b.scenes[s.ID] = s

	out := s.Clone()
	return &out, nil
}

func (b *Backend) UpdateScene(_ context.Context, id string, patch models.ScenePatch) (*models.Scene, error) {
	const op = "update scene"

	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.scenes[id]
	if !ok {
		return nil, apperr.NotFound(op, fmt.Sprintf("scene %s not found", id))
	}

	if patch.SceneNumber != nil && *patch.SceneNumber != s.SceneNumber {
		for _, other := range b.projectScenes(s.ProjectID) {
			if other.SceneNumber == *patch.SceneNumber {
				return nil, apperr.New(apperr.KindConflict, op, fmt.Sprintf("scene number %d already exists", other.SceneNumber))
			}
		}
	}

	s = patch.Apply(s)
	s.UpdatedAt = b.now()
	b.scenes[id] = s

	out := s.Clone()
	return &out, nil
}

func (b *Backend) DeleteScene(_ context.Context, id string) error {
	const op = "delete scene"

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.scenes[id]; !ok {
		return apperr.NotFound(op, fmt.Sprintf("scene %s not found", id))
	}
	delete(b.scenes, id)

	return nil
}

func (b *Backend) UpdateSelection(_ context.Context, sceneID string, imageIDs []string) error {
	const op = "update image selection"

	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.scenes[sceneID]
	if !ok {
		return apperr.NotFound(op, fmt.Sprintf("scene %s not found", sceneID))
	}

	s.SelectedImageIDs = append([]string{}, imageIDs...)
	s.UpdatedAt = b.now()
	b.scenes[sceneID] = s

	return nil
}

// projectScenes must be called with mu held.
func (b *Backend) projectScenes(projectID string) []models.Scene {
	out := []models.Scene{}
	for _, s := range b.scenes {
		if s.ProjectID == projectID {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SceneNumber < out[j].SceneNumber })
	return out
}

func (b *Backend) withScenes(p models.Project) models.Project {
	out := p.Clone()
	out.Scenes = b.projectScenes(p.ID)
	return out
}
