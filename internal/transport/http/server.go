package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/lib/apperr"
	"remotion_studio/internal/lib/logger/sl"
	"remotion_studio/internal/services/reconcile"
	"remotion_studio/internal/services/studio"
	"remotion_studio/internal/transport/http/dto"
	"remotion_studio/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

// StudioService is the state store surface the UI talks to.
type StudioService interface {
	Snapshot() studio.Snapshot
	History() []models.HistoryEntry
	LoadProjects(ctx context.Context, filter models.ProjectFilter) ([]models.Project, error)
	CreateProject(ctx context.Context, input models.ProjectInput) (*models.Project, error)
	UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (*models.Project, error)
	DeleteProject(ctx context.Context, id string) error
	SwitchProject(ctx context.Context, id string) (*models.Project, error)
	CreateScene(ctx context.Context, input models.SceneInput) (*models.Scene, error)
	UpdateScene(ctx context.Context, sceneID string, patch models.ScenePatch) (*models.Scene, error)
	RenameScene(ctx context.Context, sceneID, title string) error
	DeleteScene(ctx context.Context, sceneID string) error
	ImportScenes(ctx context.Context, records []models.ImportRecord, strategy models.ConflictStrategy, serverSide bool) (*models.ImportResult, error)
	ToggleImageSelection(ctx context.Context, sceneID, imageID string) ([]string, error)
	SelectAllImages(ctx context.Context, sceneID string) error
	ClearImageSelection(ctx context.Context, sceneID string) error
	AttachGeneratedImage(ctx context.Context, sceneID string, img models.GeneratedImage) (*models.Scene, error)
	AttachGeneratedVideo(ctx context.Context, sceneID string, v models.GeneratedVideo) (*models.Scene, error)
	EditTimeline(action models.HistoryAction, description string, mutate func(*models.Timeline) error) (*models.Timeline, error)
	Undo() (*models.Timeline, bool)
	Redo() (*models.Timeline, bool)
	ReconcileProject(ctx context.Context) (reconcile.Result, error)
	Validate() []string
	Repair() []string
	ClearError()
}

type Routers struct {
	log    *slog.Logger
	Studio StudioService
}

func NewRouter(log *slog.Logger, studio StudioService) *Routers {
	return &Routers{
		log:    log,
		Studio: studio,
	}
}

// Register mounts every route on g, usually the /api/v1 group.
func (r *Routers) Register(g *echo.Group) {
	g.GET("/state", r.GetState)
	g.DELETE("/state/error", r.ClearError)
	g.GET("/state/violations", r.Validate)
	g.POST("/state/repair", r.Repair)

	projects := g.Group("/projects")
	{
		projects.GET("", r.ListProjects)
		projects.POST("", r.CreateProject)
		projects.PUT("/:id", r.UpdateProject)
		projects.DELETE("/:id", r.DeleteProject)
		projects.POST("/:id/open", r.OpenProject)
	}

	scenes := g.Group("/scenes")
	{
		scenes.POST("", r.CreateScene)
		scenes.POST("/import", r.ImportScenes)
		scenes.POST("/reconcile", r.ReconcileScenes)
		scenes.PUT("/:id", r.UpdateScene)
		scenes.PATCH("/:id/title", r.RenameScene)
		scenes.DELETE("/:id", r.DeleteScene)
		scenes.POST("/:id/images", r.AttachImage)
		scenes.POST("/:id/videos", r.AttachVideo)
		scenes.POST("/:id/selection/toggle", r.ToggleImage)
		scenes.POST("/:id/selection/all", r.SelectAllImages)
		scenes.DELETE("/:id/selection", r.ClearSelection)
	}

	timeline := g.Group("/timeline")
	{
		timeline.POST("/tracks", r.AddTrack)
		timeline.POST("/tracks/:track_id/clips", r.AddClip)
		timeline.PATCH("/clips/:clip_id/move", r.MoveClip)
		timeline.PATCH("/clips/:clip_id/trim", r.TrimClip)
		timeline.DELETE("/clips/:clip_id", r.RemoveClip)
	}

	history := g.Group("/history")
	{
		history.GET("", r.ListHistory)
		history.POST("/undo", r.Undo)
		history.POST("/redo", r.Redo)
	}
}

// bind decodes and validates the body into req. It writes the 400 itself
// and reports false when the handler should stop.
func (r *Routers) bind(c echo.Context, log *slog.Logger, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		log.Warn("invalid request body", sl.Err(err))
		return false, c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		return false, c.JSON(http.StatusBadRequest, response.ErrValidationFailed.WithDetails(err.Error()))
	}

	return true, nil
}

// fail maps a store error to a status and writes the error envelope.
func (r *Routers) fail(c echo.Context, log *slog.Logger, err error) error {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", sl.Err(err))
	} else {
		log.Warn("request rejected", sl.Err(err))
	}
	return c.JSON(status, body)
}

func errorResponse(err error) (int, response.ErrorResponse) {
	details := err.Error()

	switch {
	case errors.Is(err, studio.ErrOperationInProgress),
		errors.Is(err, studio.ErrNoCurrentProject),
		errors.Is(err, studio.ErrNoTimeline),
		errors.Is(err, models.ErrTrackLocked),
		errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict, response.ErrConflict.WithDetails(details)
	case errors.Is(err, models.ErrClipNotFound),
		errors.Is(err, models.ErrTrackNotFound),
		errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound.WithDetails(details)
	case errors.Is(err, models.ErrInvalidFrames),
		errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest, response.ErrValidationFailed.WithDetails(details)
	case errors.Is(err, apperr.ErrTemporarilyUnavailable),
		errors.Is(err, reconcile.ErrReconcileExhausted):
		return http.StatusServiceUnavailable, response.ErrBackendUnavailable.WithDetails(details)
	default:
		return http.StatusInternalServerError, response.ErrInternal.WithDetails(details)
	}
}

// GetState handles GET /state: the full store snapshot.
func (r *Routers) GetState(c echo.Context) error {
	return c.JSON(http.StatusOK, response.SuccessResponse(r.Studio.Snapshot()))
}

func (r *Routers) ClearError(c echo.Context) error {
	r.Studio.ClearError()
	return c.NoContent(http.StatusNoContent)
}

func (r *Routers) Validate(c echo.Context) error {
	return c.JSON(http.StatusOK, response.SuccessResponse(nonNil(r.Studio.Validate())))
}

// Repair handles POST /state/repair and returns the violations it fixed.
func (r *Routers) Repair(c echo.Context) error {
	const op = "http.routers.Repair"

	fixed := r.Studio.Repair()
	if len(fixed) > 0 {
		r.log.Info("state repaired", slog.String("op", op), slog.Int("violations", len(fixed)))
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(nonNil(fixed)))
}

func (r *Routers) ListProjects(c echo.Context) error {
	const op = "http.routers.ListProjects"

	log := r.log.With(
		slog.String("op", op),
	)

	var q dto.ListProjectsQuery
	if ok, err := r.bind(c, log, &q); !ok {
		return err
	}

	projects, err := r.Studio.LoadProjects(c.Request().Context(), q.Filter())
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(projects))
}

func (r *Routers) CreateProject(c echo.Context) error {
	const op = "http.routers.CreateProject"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.CreateProjectRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	project, err := r.Studio.CreateProject(c.Request().Context(), req.Input())
	if err != nil {
		return r.fail(c, log, err)
	}

	log.Info("project created", slog.String("project_id", project.ID))

	return c.JSON(http.StatusCreated, response.SuccessResponse(project))
}

func (r *Routers) UpdateProject(c echo.Context) error {
	const op = "http.routers.UpdateProject"

	log := r.log.With(
		slog.String("op", op),
		slog.String("project_id", c.Param("id")),
	)

	var req dto.UpdateProjectRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	project, err := r.Studio.UpdateProject(c.Request().Context(), c.Param("id"), req.Patch())
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(project))
}

func (r *Routers) DeleteProject(c echo.Context) error {
	const op = "http.routers.DeleteProject"

	log := r.log.With(
		slog.String("op", op),
		slog.String("project_id", c.Param("id")),
	)

	if err := r.Studio.DeleteProject(c.Request().Context(), c.Param("id")); err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.MessageResponse("project deleted"))
}

// OpenProject handles POST /projects/:id/open and makes the project current.
func (r *Routers) OpenProject(c echo.Context) error {
	const op = "http.routers.OpenProject"

	log := r.log.With(
		slog.String("op", op),
		slog.String("project_id", c.Param("id")),
	)

	project, err := r.Studio.SwitchProject(c.Request().Context(), c.Param("id"))
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(project))
}

func (r *Routers) CreateScene(c echo.Context) error {
	const op = "http.routers.CreateScene"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.CreateSceneRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	scene, err := r.Studio.CreateScene(c.Request().Context(), req.Input())
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(scene))
}

func (r *Routers) UpdateScene(c echo.Context) error {
	const op = "http.routers.UpdateScene"

	log := r.log.With(
		slog.String("op", op),
		slog.String("scene_id", c.Param("id")),
	)

	var req dto.UpdateSceneRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	scene, err := r.Studio.UpdateScene(c.Request().Context(), c.Param("id"), req.Patch())
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(scene))
}

func (r *Routers) RenameScene(c echo.Context) error {
	const op = "http.routers.RenameScene"

	log := r.log.With(
		slog.String("op", op),
		slog.String("scene_id", c.Param("id")),
	)

	var req dto.RenameSceneRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	if err := r.Studio.RenameScene(c.Request().Context(), c.Param("id"), req.Title); err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.MessageResponse("scene renamed"))
}

func (r *Routers) DeleteScene(c echo.Context) error {
	const op = "http.routers.DeleteScene"

	log := r.log.With(
		slog.String("op", op),
		slog.String("scene_id", c.Param("id")),
	)

	if err := r.Studio.DeleteScene(c.Request().Context(), c.Param("id")); err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.MessageResponse("scene deleted"))
}

// ImportScenes handles POST /scenes/import. Skipped rows still answer 200;
// the result carries them.
func (r *Routers) ImportScenes(c echo.Context) error {
	const op = "http.routers.ImportScenes"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.ImportScenesRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	res, err := r.Studio.ImportScenes(c.Request().Context(), req.Scenes, models.ConflictStrategy(req.Strategy), req.ServerSide)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SummaryResponse(res, res.Summary()))
}

func (r *Routers) ReconcileScenes(c echo.Context) error {
	const op = "http.routers.ReconcileScenes"

	log := r.log.With(
		slog.String("op", op),
	)

	res, err := r.Studio.ReconcileProject(c.Request().Context())
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(map[string]any{
		"projectId": res.ProjectID,
		"state":     res.State.String(),
		"attempts":  res.Attempts,
		"scenes":    res.Scenes,
	}))
}

func (r *Routers) AttachImage(c echo.Context) error {
	const op = "http.routers.AttachImage"

	log := r.log.With(
		slog.String("op", op),
		slog.String("scene_id", c.Param("id")),
	)

	var req dto.AttachImageRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	scene, err := r.Studio.AttachGeneratedImage(c.Request().Context(), c.Param("id"), req.Image())
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(scene))
}

func (r *Routers) AttachVideo(c echo.Context) error {
	const op = "http.routers.AttachVideo"

	log := r.log.With(
		slog.String("op", op),
		slog.String("scene_id", c.Param("id")),
	)

	var req dto.AttachVideoRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	scene, err := r.Studio.AttachGeneratedVideo(c.Request().Context(), c.Param("id"), req.Video())
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(scene))
}

func (r *Routers) ToggleImage(c echo.Context) error {
	const op = "http.routers.ToggleImage"

	log := r.log.With(
		slog.String("op", op),
		slog.String("scene_id", c.Param("id")),
	)

	var req dto.ToggleImageRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	set, err := r.Studio.ToggleImageSelection(c.Request().Context(), c.Param("id"), req.ImageID)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(map[string]any{
		"sceneId":          c.Param("id"),
		"selectedImageIds": nonNil(set),
	}))
}

func (r *Routers) SelectAllImages(c echo.Context) error {
	const op = "http.routers.SelectAllImages"

	log := r.log.With(
		slog.String("op", op),
		slog.String("scene_id", c.Param("id")),
	)

	if err := r.Studio.SelectAllImages(c.Request().Context(), c.Param("id")); err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.MessageResponse("all images selected"))
}

func (r *Routers) ClearSelection(c echo.Context) error {
	const op = "http.routers.ClearSelection"

	log := r.log.With(
		slog.String("op", op),
		slog.String("scene_id", c.Param("id")),
	)

	if err := r.Studio.ClearImageSelection(c.Request().Context(), c.Param("id")); err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.MessageResponse("selection cleared"))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
