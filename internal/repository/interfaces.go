package repository

import (
	"context"

	"remotion_studio/internal/domain/models"
)

type ProjectRepository interface {
	ListProjects(ctx context.Context, filter models.ProjectFilter) ([]models.Project, error)
	CreateProject(ctx context.Context, input models.ProjectInput) (*models.Project, error)
	UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (*models.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

type SceneRepository interface {
	ListScenes(ctx context.Context, projectID string) ([]models.Scene, error)
	CreateScene(ctx context.Context, input models.SceneInput) (*models.Scene, error)
	UpdateScene(ctx context.Context, id string, patch models.ScenePatch) (*models.Scene, error)
	DeleteScene(ctx context.Context, id string) error
	UpdateSelection(ctx context.Context, sceneID string, imageIDs []string) error
	BatchImportScenes(ctx context.Context, req models.BatchImportRequest) (*models.ImportResult, error)
}
