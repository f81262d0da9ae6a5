package repository

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/lib/apperr"
)

var errEmptyData = errors.New("response carried no data")

type SceneRepo struct {
	c *client
}

func (r *SceneRepo) ListScenes(ctx context.Context, projectID string) ([]models.Scene, error) {
	const op = "repository.SceneRepo.ListScenes"

	if projectID == "" {
		return nil, apperr.InvalidInput(op, "project id is required")
	}

	var out envelope[[]models.Scene]
	q := url.Values{"projectId": []string{projectID}}
	if err := r.c.do(ctx, op, http.MethodGet, "/scenes", q, nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return []models.Scene{}, nil
	}

	return out.Data, nil
}

// CreateScene fails with apperr.ErrConflict when the requested scene number
// is taken, apperr.ErrTemporarilyUnavailable on 503 and apperr.ErrInvalidInput
// on 400.
func (r *SceneRepo) CreateScene(ctx context.Context, input models.SceneInput) (*models.Scene, error) {
	const op = "repository.SceneRepo.CreateScene"

	var out envelope[*models.Scene]
	if err := r.c.do(ctx, op, http.MethodPost, "/scenes", nil, input, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, apperr.Wrap(op, errEmptyData)
	}

	return out.Data, nil
}

func (r *SceneRepo) UpdateScene(ctx context.Context, id string, patch models.ScenePatch) (*models.Scene, error) {
	const op = "repository.SceneRepo.UpdateScene"

	if id == "" {
		return nil, apperr.InvalidInput(op, "scene id is required")
	}

	var out envelope[*models.Scene]
	if err := r.c.do(ctx, op, http.MethodPut, "/scenes/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, apperr.Wrap(op, errEmptyData)
	}

	return out.Data, nil
}

func (r *SceneRepo) DeleteScene(ctx context.Context, id string) error {
	const op = "repository.SceneRepo.DeleteScene"

	if id == "" {
		return apperr.InvalidInput(op, "scene id is required")
	}

	return r.c.do(ctx, op, http.MethodDelete, "/scenes/"+url.PathEscape(id), nil, nil, nil)
}

// UpdateSelection replaces the scene's persisted selection with imageIDs.
func (r *SceneRepo) UpdateSelection(ctx context.Context, sceneID string, imageIDs []string) error {
	const op = "repository.SceneRepo.UpdateSelection"

	if sceneID == "" {
		return apperr.InvalidInput(op, "scene id is required")
	}

	body := models.NewSelectionUpdate(imageIDs)
	return r.c.do(ctx, op, http.MethodPatch, "/scenes/"+url.PathEscape(sceneID)+"/image-selection", nil, body, nil)
}

func (r *SceneRepo) BatchImportScenes(ctx context.Context, req models.BatchImportRequest) (*models.ImportResult, error) {
	const op = "repository.SceneRepo.BatchImportScenes"

	if req.ProjectID == "" {
		return nil, apperr.InvalidInput(op, "project id is required")
	}
	if !req.Strategy.Valid() {
		return nil, apperr.InvalidInput(op, "unknown conflict strategy "+req.Strategy.String())
	}

	var out struct {
		models.ImportResult
		Data *models.ImportResult `json:"data"`
	}
	if err := r.c.do(ctx, op, http.MethodPost, "/scenes/batch-import", nil, req, &out); err != nil {
		return nil, err
	}
	if out.Data != nil {
		return out.Data, nil
	}

	return &out.ImportResult, nil
}
