package repository

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Repository is the persistence client over the backend REST surface. It
// performs exactly one HTTP call per method invocation and never retries;
// retry policy belongs to the callers.
type Repository struct {
	Projects *ProjectRepo
	Scenes   *SceneRepo
}

func NewRepository(log *slog.Logger, baseURL string, timeout time.Duration) *Repository {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return NewRepositoryWithClient(log, baseURL, &http.Client{Timeout: timeout})
}

func NewRepositoryWithClient(log *slog.Logger, baseURL string, httpClient *http.Client) *Repository {
	c := &client{
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}

	return &Repository{
		Projects: &ProjectRepo{c: c},
		Scenes:   &SceneRepo{c: c},
	}
}
