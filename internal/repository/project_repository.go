package repository

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/lib/apperr"
)

type ProjectRepo struct {
	c *client
}

func (r *ProjectRepo) ListProjects(ctx context.Context, filter models.ProjectFilter) ([]models.Project, error) {
	const op = "repository.ProjectRepo.ListProjects"

	q := url.Values{}
	if filter.UserID != "" {
		q.Set("userId", filter.UserID)
	}
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}

	var out envelope[[]models.Project]
	if err := r.c.do(ctx, op, http.MethodGet, "/projects", q, nil, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return []models.Project{}, nil
	}

	return out.Data, nil
}

func (r *ProjectRepo) CreateProject(ctx context.Context, input models.ProjectInput) (*models.Project, error) {
	const op = "repository.ProjectRepo.CreateProject"

	var out envelope[*models.Project]
	if err := r.c.do(ctx, op, http.MethodPost, "/projects", nil, input, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, apperr.Wrap(op, errEmptyData)
	}

	return out.Data, nil
}

func (r *ProjectRepo) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (*models.Project, error) {
	const op = "repository.ProjectRepo.UpdateProject"

	if id == "" {
		return nil, apperr.InvalidInput(op, "project id is required")
	}

	var out envelope[*models.Project]
	if err := r.c.do(ctx, op, http.MethodPut, "/projects/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return nil, apperr.Wrap(op, errEmptyData)
	}

	return out.Data, nil
}

func (r *ProjectRepo) DeleteProject(ctx context.Context, id string) error {
	const op = "repository.ProjectRepo.DeleteProject"

	if id == "" {
		return apperr.InvalidInput(op, "project id is required")
	}

	return r.c.do(ctx, op, http.MethodDelete, "/projects/"+url.PathEscape(id), nil, nil, nil)
}
