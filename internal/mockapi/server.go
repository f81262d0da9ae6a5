package mockapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/lib/apperr"
	"remotion_studio/internal/lib/logger/sl"
	"remotion_studio/internal/services/importer"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

type Options struct {
	// FailCreates makes the next N scene creations answer 503.
	FailCreates int
	// ReadLag makes the next N scene list calls answer an empty list, the
	// way a lagging read replica would.
	ReadLag int
	// Prefix is prepended to every route, e.g. "/api".
	Prefix string
}

type Server struct {
	log      *slog.Logger
	backend  *Backend
	validate *validator.Validate
	importer *importer.Resolver
	prefix   string

	mu          sync.Mutex
	failCreates int
	readLag     int
	sceneLists  int
}

func New(log *slog.Logger, backend *Backend, opts Options) *Server {
	return &Server{
		log:         log,
		backend:     backend,
		validate:    validator.New(),
		importer:    importer.New(log, backend, importer.Options{}),
		prefix:      opts.Prefix,
		failCreates: opts.FailCreates,
		readLag:     opts.ReadLag,
	}
}

// FailNextCreates arranges for the next n scene creations to answer 503.
func (s *Server) FailNextCreates(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreates = n
}

// LagNextReads arranges for the next n scene list calls to come back empty.
func (s *Server) LagNextReads(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readLag = n
}

// SceneLists reports how many scene list requests have been served.
func (s *Server) SceneLists() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sceneLists
}

func (s *Server) Backend() *Backend {
	return s.backend
}

// Handler builds the router with CORS applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	api := r
	if s.prefix != "" {
		api = r.PathPrefix(s.prefix).Subrouter()
	}
	api.HandleFunc("/projects", s.listProjects).Methods(http.MethodGet)
	api.HandleFunc("/projects", s.createProject).Methods(http.MethodPost)
	api.HandleFunc("/projects/{id}", s.updateProject).Methods(http.MethodPut)
	api.HandleFunc("/projects/{id}", s.deleteProject).Methods(http.MethodDelete)
	api.HandleFunc("/scenes", s.listScenes).Methods(http.MethodGet)
	api.HandleFunc("/scenes", s.createScene).Methods(http.MethodPost)
	api.HandleFunc("/scenes/batch-import", s.batchImport).Methods(http.MethodPost)
	api.HandleFunc("/scenes/{id}", s.updateScene).Methods(http.MethodPut)
	api.HandleFunc("/scenes/{id}", s.deleteScene).Methods(http.MethodDelete)
	api.HandleFunc("/scenes/{id}/image-selection", s.updateSelection).Methods(http.MethodPatch)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	return cors(r)
}

type dataBody struct {
	Data any `json:"data"`
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	projects, err := s.backend.ListProjects(r.Context(), models.ProjectFilter{
		UserID: q.Get("userId"),
		Page:   page,
		Limit:  limit,
		Search: q.Get("search"),
		Status: models.ProjectStatus(q.Get("status")),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dataBody{Data: projects})
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var input models.ProjectInput
	if !s.decode(w, r, &input) {
		return
	}

	p, err := s.backend.CreateProject(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dataBody{Data: p})
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	var patch models.ProjectPatch
	if !s.decode(w, r, &patch) {
		return
	}

	p, err := s.backend.UpdateProject(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dataBody{Data: p})
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeleteProject(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) listScenes(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("projectId")
	if projectID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "projectId is required"})
		return
	}

	s.mu.Lock()
	s.sceneLists++
	lagging := s.readLag > 0
	if lagging {
		s.readLag--
	}
	s.mu.Unlock()

	if lagging {
		writeJSON(w, http.StatusOK, dataBody{Data: []models.Scene{}})
		return
	}

	scenes, err := s.backend.ListScenes(r.Context(), projectID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dataBody{Data: scenes})
}

func (s *Server) createScene(w http.ResponseWriter, r *http.Request) {
	var input models.SceneInput
	if !s.decode(w, r, &input) {
		return
	}

	s.mu.Lock()
	failing := s.failCreates > 0
	if failing {
		s.failCreates--
	}
	s.mu.Unlock()

	if failing {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"message":       "scene service temporarily unavailable",
			"retryPossible": true,
		})
		return
	}

	scene, err := s.backend.CreateScene(r.Context(), input)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dataBody{Data: scene})
}

func (s *Server) updateScene(w http.ResponseWriter, r *http.Request) {
	var patch models.ScenePatch
	if !s.decode(w, r, &patch) {
		return
	}

	scene, err := s.backend.UpdateScene(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dataBody{Data: scene})
}

func (s *Server) deleteScene(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeleteScene(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) updateSelection(w http.ResponseWriter, r *http.Request) {
	var body models.SelectionUpdate
	if !s.decode(w, r, &body) {
		return
	}

	if err := s.backend.UpdateSelection(r.Context(), mux.Vars(r)["id"], body.SelectedImageIDs); err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) batchImport(w http.ResponseWriter, r *http.Request) {
	var req models.BatchImportRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.importer.Import(r.Context(), req)
	switch {
	case errors.Is(err, importer.ErrUnknownStrategy), errors.Is(err, importer.ErrNoProject):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case err != nil:
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}

	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Message != "" {
		msg = ae.Message
	}

	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": msg})
	case apperr.KindConflict:
		writeJSON(w, http.StatusConflict, map[string]string{"message": msg})
	case apperr.KindInvalidInput:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
	case apperr.KindTemporarilyUnavailable:
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"message": msg, "retryPossible": true})
	default:
		s.log.Error("mock api failure", sl.Err(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": msg})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
