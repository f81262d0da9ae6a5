package repository_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/lib/apperr"
	"remotion_studio/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCtx = context.Background()

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
}

type recorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (r *recorder) add(c recorded) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.calls...)
}

func setupServer(t *testing.T, status int, response string) (*repository.Repository, *recorder) {
	t.Helper()

	calls := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			if len(raw) > 0 {
				assert.NoError(t, json.Unmarshal(raw, &rec.body))
			}
		}
		calls.add(rec)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	return repository.NewRepository(discardLogger(), srv.URL+"/", time.Second), calls
}

func TestProjectRepo_ListProjects(t *testing.T) {
	repo, calls := setupServer(t, http.StatusOK, `{"data":[{"id":"p1","name":"One","scenes":[]}]}`)

	projects, err := repo.Projects.ListProjects(testCtx, models.ProjectFilter{
		UserID: "u1",
		Page:   2,
		Limit:  10,
		Search: "one",
		Status: models.ProjectStatusActive,
	})
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "p1", projects[0].ID)

	require.Len(t, calls.all(), 1)
	call := calls.all()[0]
	assert.Equal(t, http.MethodGet, call.method)
	assert.Equal(t, "/projects", call.path)
	assert.Equal(t, "limit=10&page=2&search=one&status=active&userId=u1", call.query)
}

func TestProjectRepo_ListProjects_NullData(t *testing.T) {
	repo, _ := setupServer(t, http.StatusOK, `{"data":null}`)

	projects, err := repo.Projects.ListProjects(testCtx, models.ProjectFilter{})
	require.NoError(t, err)
	assert.NotNil(t, projects)
	assert.Empty(t, projects)
}

func TestProjectRepo_CreateProject(t *testing.T) {
	repo, calls := setupServer(t, http.StatusCreated, `{"data":{"id":"p1","name":"Trailer"}}`)

	p, err := repo.Projects.CreateProject(testCtx, models.ProjectInput{Name: "Trailer", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	call := calls.all()[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/projects", call.path)
	assert.Equal(t, "Trailer", call.body["name"])
	assert.Equal(t, "u1", call.body["userId"])
}

func TestProjectRepo_UpdateProject_SendsTimeline(t *testing.T) {
	repo, calls := setupServer(t, http.StatusOK, `{"data":{"id":"p1","name":"Renamed"}}`)

	name := "Renamed"
	tl := models.Timeline{ID: "timeline-p1", ProjectID: "p1", FPS: 30}
	p, err := repo.Projects.UpdateProject(testCtx, "p1", models.ProjectPatch{Name: &name, Timeline: &tl})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Name)

	call := calls.all()[0]
	assert.Equal(t, http.MethodPut, call.method)
	assert.Equal(t, "/projects/p1", call.path)
	require.Contains(t, call.body, "timeline")
	assert.Equal(t, "timeline-p1", call.body["timeline"].(map[string]any)["id"])
	assert.NotContains(t, call.body, "description")
}

func TestProjectRepo_DeleteProject(t *testing.T) {
	repo, calls := setupServer(t, http.StatusOK, ``)

	require.NoError(t, repo.Projects.DeleteProject(testCtx, "p1"))
	assert.Equal(t, http.MethodDelete, calls.all()[0].method)
	assert.Equal(t, "/projects/p1", calls.all()[0].path)
}

func TestProjectRepo_EmptyIDNeverCallsServer(t *testing.T) {
	repo, calls := setupServer(t, http.StatusOK, `{}`)

	err := repo.Projects.DeleteProject(testCtx, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = repo.Projects.UpdateProject(testCtx, "", models.ProjectPatch{})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	assert.Empty(t, calls.all())
}

func TestSceneRepo_CreateScene_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		want      error
		retryable bool
		message   string
	}{
		{
			name:    "conflict",
			status:  http.StatusConflict,
			body:    `{"message":"scene number 3 already exists"}`,
			want:    apperr.ErrConflict,
			message: "scene number 3 already exists",
		},
		{
			name:      "unavailable",
			status:    http.StatusServiceUnavailable,
			body:      `{"message":"try later","retryPossible":true}`,
			want:      apperr.ErrTemporarilyUnavailable,
			retryable: true,
			message:   "try later",
		},
		{
			name:    "invalid input",
			status:  http.StatusBadRequest,
			body:    `{"error":"title too long"}`,
			want:    apperr.ErrInvalidInput,
			message: "title too long",
		},
		{
			name:    "not found",
			status:  http.StatusNotFound,
			body:    `{"message":"project not found"}`,
			want:    apperr.ErrNotFound,
			message: "project not found",
		},
		{
			name:      "unknown status",
			status:    http.StatusInternalServerError,
			body:      `not json`,
			want:      apperr.ErrUnknown,
			retryable: true,
			message:   "Internal Server Error",
		},
		{
			name:      "retry hint promotes unknown",
			status:    http.StatusInternalServerError,
			body:      `{"message":"db restarting","retryPossible":true}`,
			want:      apperr.ErrTemporarilyUnavailable,
			retryable: true,
			message:   "db restarting",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, calls := setupServer(t, tt.status, tt.body)

			scene, err := repo.Scenes.CreateScene(testCtx, models.SceneInput{ProjectID: "p1", SceneNumber: 3, Title: "x"})
			require.Error(t, err)
			assert.Nil(t, scene)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.retryable, apperr.IsRetryable(err))

			var ae *apperr.Error
			require.True(t, errors.As(err, &ae))
			assert.Equal(t, tt.status, ae.Status)
			assert.Equal(t, "repository.SceneRepo.CreateScene", ae.Op)
			assert.Equal(t, tt.message, ae.Message)

			assert.Len(t, calls.all(), 1, "client must not retry")
		})
	}
}

func TestSceneRepo_TransportFailureIsTemporarilyUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	repo := repository.NewRepository(discardLogger(), url, time.Second)
	_, err := repo.Scenes.ListScenes(testCtx, "p1")
	assert.ErrorIs(t, err, apperr.ErrTemporarilyUnavailable)
}

func TestSceneRepo_UndecodableBodyIsTemporarilyUnavailable(t *testing.T) {
	repo, _ := setupServer(t, http.StatusOK, `{"data":[`)

	_, err := repo.Scenes.ListScenes(testCtx, "p1")
	assert.ErrorIs(t, err, apperr.ErrTemporarilyUnavailable)
}

func TestSceneRepo_ListScenes(t *testing.T) {
	repo, calls := setupServer(t, http.StatusOK, `{"data":[{"id":"s1","projectId":"p1","sceneNumber":1,"title":"a"}]}`)

	scenes, err := repo.Scenes.ListScenes(testCtx, "p1")
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.Equal(t, 1, scenes[0].SceneNumber)
	assert.Equal(t, "projectId=p1", calls.all()[0].query)
}

func TestSceneRepo_UpdateAndDelete(t *testing.T) {
	repo, calls := setupServer(t, http.StatusOK, `{"data":{"id":"s1","title":"new"}}`)

	title := "new"
	s, err := repo.Scenes.UpdateScene(testCtx, "s1", models.ScenePatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "new", s.Title)

	require.NoError(t, repo.Scenes.DeleteScene(testCtx, "s1"))

	require.Len(t, calls.all(), 2)
	assert.Equal(t, http.MethodPut, calls.all()[0].method)
	assert.Equal(t, "/scenes/s1", calls.all()[0].path)
	assert.Equal(t, map[string]any{"title": "new"}, calls.all()[0].body)
	assert.Equal(t, http.MethodDelete, calls.all()[1].method)
}

func TestSceneRepo_UpdateSelection(t *testing.T) {
	repo, calls := setupServer(t, http.StatusOK, ``)

	require.NoError(t, repo.Scenes.UpdateSelection(testCtx, "s1", []string{"img-1", "img-2"}))

	call := calls.all()[0]
	assert.Equal(t, http.MethodPatch, call.method)
	assert.Equal(t, "/scenes/s1/image-selection", call.path)
	assert.Equal(t, []any{"img-1", "img-2"}, call.body["selectedImageIds"])
	assert.Equal(t, map[string]any{"img-1": true, "img-2": true}, call.body["imageSelectionState"])
}

func TestSceneRepo_BatchImportScenes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bare", body: `{"created":[{"id":"s1","sceneNumber":1}],"updated":[],"skipped":[{"index":1,"sceneNumber":2,"reason":"conflict"}]}`},
		{name: "enveloped", body: `{"data":{"created":[{"id":"s1","sceneNumber":1}],"updated":[],"skipped":[{"index":1,"sceneNumber":2,"reason":"conflict"}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, calls := setupServer(t, http.StatusOK, tt.body)

			res, err := repo.Scenes.BatchImportScenes(testCtx, models.BatchImportRequest{
				ProjectID: "p1",
				Scenes:    []models.ImportRecord{{SceneNumber: 1}, {SceneNumber: 2}},
				Strategy:  models.ConflictSkip,
			})
			require.NoError(t, err)
			assert.Len(t, res.Created, 1)
			assert.Len(t, res.Skipped, 1)
			assert.Equal(t, "skip", calls.all()[0].body["strategy"])
		})
	}
}

func TestSceneRepo_BatchImportRejectsBadStrategy(t *testing.T) {
	repo, calls := setupServer(t, http.StatusOK, `{}`)

	_, err := repo.Scenes.BatchImportScenes(testCtx, models.BatchImportRequest{ProjectID: "p1", Strategy: "merge"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	assert.Empty(t, calls.all())
}

func TestContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})

	repo := repository.NewRepository(discardLogger(), srv.URL, 5*time.Second)
	ctx, cancel := context.WithTimeout(testCtx, 50*time.Millisecond)
	defer cancel()

	_, err := repo.Scenes.ListScenes(ctx, "p1")
	assert.ErrorIs(t, err, apperr.ErrTemporarilyUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
