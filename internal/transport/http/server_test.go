package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	httpapp "remotion_studio/internal/app/http"
	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/mockapi"
	"remotion_studio/internal/repository"
	"remotion_studio/internal/services/studio"
	"remotion_studio/internal/storage/localcache"
	httprouters "remotion_studio/internal/transport/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Details string          `json:"details"`
}

type apiSuite struct {
	backend *mockapi.Server
	api     *httptest.Server
}

func setup(t *testing.T) *apiSuite {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	backend := mockapi.New(log, mockapi.NewBackend(), mockapi.Options{})
	backendTS := httptest.NewServer(backend.Handler())
	t.Cleanup(backendTS.Close)

	repo := repository.NewRepository(log, backendTS.URL, time.Second)
	store := studio.New(log, studio.Deps{
		Projects: repo.Projects,
		Scenes:   repo.Scenes,
		Cache:    localcache.NewMemoryCache(time.Hour),
	}, studio.Config{UserID: "u1", AutosaveDebounce: time.Hour})
	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})

	server := httpapp.New(log, "", "0", httprouters.NewRouter(log, store))
	server.BuildRouters()

	api := httptest.NewServer(server.Handler())
	t.Cleanup(api.Close)

	return &apiSuite{backend: backend, api: api}
}

func (s *apiSuite) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.api.URL+path, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestAPI_CreateProjectWithEmptyNameNeverReachesBackend(t *testing.T) {
	s := setup(t)

	status, env := s.do(t, http.MethodPost, "/api/v1/projects", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_failed", env.Error)
	assert.Contains(t, env.Details, "name is required")

	projects, err := s.backend.Backend().ListProjects(context.Background(), models.ProjectFilter{})
	require.NoError(t, err)
	assert.Empty(t, projects)

	_, state := s.do(t, http.MethodGet, "/api/v1/state", "")
	snap := decode[studio.Snapshot](t, state.Data)
	assert.Equal(t, "Failed to create project: name is required", snap.Error)

	status, _ = s.do(t, http.MethodDelete, "/api/v1/state/error", "")
	assert.Equal(t, http.StatusNoContent, status)
}

func TestAPI_EditingFlow(t *testing.T) {
	s := setup(t)

	status, env := s.do(t, http.MethodPost, "/api/v1/projects", `{"name":"Trailer","settings":{"fps":30}}`)
	require.Equal(t, http.StatusCreated, status)

	status, env = s.do(t, http.MethodPost, "/api/v1/scenes", `{"title":"Intro","duration":2}`)
	require.Equal(t, http.StatusCreated, status, env.Details)

	status, env = s.do(t, http.MethodPost, "/api/v1/timeline/tracks", `{"id":"music","name":"Music","kind":"audio"}`)
	require.Equal(t, http.StatusOK, status, env.Details)

	status, env = s.do(t, http.MethodPost, "/api/v1/timeline/tracks/music/clips",
		`{"id":"song","kind":"audio","startFrame":0,"durationInFrames":90}`)
	require.Equal(t, http.StatusOK, status, env.Details)

	status, env = s.do(t, http.MethodPatch, "/api/v1/timeline/clips/song/move", `{"startFrame":30}`)
	require.Equal(t, http.StatusOK, status, env.Details)
	assert.Contains(t, string(env.Data), `"durationInFrames":120`)

	status, env = s.do(t, http.MethodPatch, "/api/v1/timeline/clips/missing/trim", `{"durationInFrames":10}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, env = s.do(t, http.MethodPost, "/api/v1/history/undo", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"durationInFrames":90`)

	status, env = s.do(t, http.MethodPost, "/api/v1/history/redo", "")
	require.Equal(t, http.StatusOK, status)

	_, env = s.do(t, http.MethodPost, "/api/v1/history/redo", "")
	assert.Equal(t, "nothing to redo", env.Message)

	_, env = s.do(t, http.MethodGet, "/api/v1/history", "")
	assert.Contains(t, string(env.Data), `"action":"move_clip"`)

	status, env = s.do(t, http.MethodDelete, "/api/v1/timeline/clips/song", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestAPI_ImportAndSelection(t *testing.T) {
	s := setup(t)

	status, _ := s.do(t, http.MethodPost, "/api/v1/projects", `{"name":"Trailer"}`)
	require.Equal(t, http.StatusCreated, status)

	status, env := s.do(t, http.MethodPost, "/api/v1/scenes/import",
		`{"strategy":"later","scenes":[{"sceneNumber":1}]}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_failed", env.Error)

	status, env = s.do(t, http.MethodPost, "/api/v1/scenes/import",
		`{"strategy":"skip","scenes":[{"sceneNumber":1,"title":"A"},{"sceneNumber":2,"title":"B"}]}`)
	require.Equal(t, http.StatusOK, status, env.Details)
	assert.Equal(t, "2 created, 0 updated, 0 skipped", env.Message)

	status, env = s.do(t, http.MethodPost, "/api/v1/scenes/reconcile", "")
	require.Equal(t, http.StatusOK, status, env.Details)

	_, state := s.do(t, http.MethodGet, "/api/v1/state", "")
	snap := decode[studio.Snapshot](t, state.Data)
	require.Len(t, snap.CurrentProject.Scenes, 2)
	sceneID := snap.CurrentProject.Scenes[0].ID

	status, env = s.do(t, http.MethodPost, "/api/v1/scenes/"+sceneID+"/images",
		`{"id":"img1","url":"https://cdn.example/1.png"}`)
	require.Equal(t, http.StatusOK, status, env.Details)

	status, env = s.do(t, http.MethodPost, "/api/v1/scenes/"+sceneID+"/selection/toggle", `{"imageId":"img1"}`)
	require.Equal(t, http.StatusOK, status, env.Details)
	assert.Contains(t, string(env.Data), `"selectedImageIds":["img1"]`)

	status, env = s.do(t, http.MethodPost, "/api/v1/scenes/"+sceneID+"/selection/toggle", `{"imageId":"nope"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/state/violations", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	s := setup(t)

	resp, err := http.Get(s.api.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	s.do(t, http.MethodGet, "/api/v1/state", "")

	resp, err = http.Get(s.api.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "remotion_http_requests_total")
}
