package http

import (
	"log/slog"
	"net/http"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/transport/http/dto"
	"remotion_studio/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

func (r *Routers) AddTrack(c echo.Context) error {
	const op = "http.routers.AddTrack"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.AddTrackRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	tl, err := r.Studio.EditTimeline(models.HistoryActionAddTrack, "Add track "+req.ID, func(tl *models.Timeline) error {
		tl.AddTrack(req.Track())
		return nil
	})
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(tl))
}

func (r *Routers) AddClip(c echo.Context) error {
	const op = "http.routers.AddClip"

	trackID := c.Param("track_id")
	log := r.log.With(
		slog.String("op", op),
		slog.String("track_id", trackID),
	)

	var req dto.AddClipRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	tl, err := r.Studio.EditTimeline(models.HistoryActionAddClip, "Add clip "+req.ID, func(tl *models.Timeline) error {
		return tl.AddClip(trackID, req.Clip())
	})
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(tl))
}

func (r *Routers) MoveClip(c echo.Context) error {
	const op = "http.routers.MoveClip"

	clipID := c.Param("clip_id")
	log := r.log.With(
		slog.String("op", op),
		slog.String("clip_id", clipID),
	)

	var req dto.MoveClipRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	tl, err := r.Studio.EditTimeline(models.HistoryActionMoveClip, "Move clip "+clipID, func(tl *models.Timeline) error {
		return tl.MoveClip(clipID, req.StartFrame)
	})
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(tl))
}

func (r *Routers) TrimClip(c echo.Context) error {
	const op = "http.routers.TrimClip"

	clipID := c.Param("clip_id")
	log := r.log.With(
		slog.String("op", op),
		slog.String("clip_id", clipID),
	)

	var req dto.TrimClipRequest
	if ok, err := r.bind(c, log, &req); !ok {
		return err
	}

	tl, err := r.Studio.EditTimeline(models.HistoryActionTrimClip, "Trim clip "+clipID, func(tl *models.Timeline) error {
		return tl.TrimClip(clipID, req.DurationInFrames)
	})
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(tl))
}

func (r *Routers) RemoveClip(c echo.Context) error {
	const op = "http.routers.RemoveClip"

	clipID := c.Param("clip_id")
	log := r.log.With(
		slog.String("op", op),
		slog.String("clip_id", clipID),
	)

	tl, err := r.Studio.EditTimeline(models.HistoryActionRemove, "Remove clip "+clipID, func(tl *models.Timeline) error {
		return tl.RemoveClip(clipID)
	})
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(tl))
}

func (r *Routers) ListHistory(c echo.Context) error {
	return c.JSON(http.StatusOK, response.SuccessResponse(r.Studio.History()))
}

// Undo handles POST /history/undo. At the bottom of the history it answers
// 200 with the message "nothing to undo" and no data.
func (r *Routers) Undo(c echo.Context) error {
	tl, ok := r.Studio.Undo()
	if !ok {
		return c.JSON(http.StatusOK, response.MessageResponse("nothing to undo"))
	}
	return c.JSON(http.StatusOK, response.SuccessResponse(tl))
}

func (r *Routers) Redo(c echo.Context) error {
	tl, ok := r.Studio.Redo()
	if !ok {
		return c.JSON(http.StatusOK, response.MessageResponse("nothing to redo"))
	}
	return c.JSON(http.StatusOK, response.SuccessResponse(tl))
}
