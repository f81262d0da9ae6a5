package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/lib/apperr"
	"remotion_studio/internal/lib/logger/sl"
	"remotion_studio/internal/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
)

var (
	ErrUnknownStrategy = errors.New("unknown conflict strategy")
	ErrNoProject       = errors.New("project id is required")
	ErrServerSide      = errors.New("server-side import is not supported by this scene store")
)

type SceneStore interface {
	ListScenes(ctx context.Context, projectID string) ([]models.Scene, error)
	CreateScene(ctx context.Context, input models.SceneInput) (*models.Scene, error)
	UpdateScene(ctx context.Context, id string, patch models.ScenePatch) (*models.Scene, error)
}

// BatchImporter is implemented by stores that can resolve a whole batch
// server-side.
type BatchImporter interface {
	BatchImportScenes(ctx context.Context, req models.BatchImportRequest) (*models.ImportResult, error)
}

type Options struct {
	// MaxRetries caps the retries of one record on a transient failure.
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// ServerSide hands the batch to POST /scenes/batch-import.
	ServerSide bool
}

type Resolver struct {
	log      *slog.Logger
	scenes   SceneStore
	opts     Options
	validate *validator.Validate
}

func New(log *slog.Logger, scenes SceneStore, opts Options) *Resolver {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 250 * time.Millisecond
	}
	if opts.MaxDelay < opts.BaseDelay {
		opts.MaxDelay = opts.BaseDelay
	}

	return &Resolver{
		log:      log,
		scenes:   scenes,
		opts:     opts,
		validate: validator.New(),
	}
}

// run carries the per-batch bookkeeping.
type run struct {
	projectID string
	strategy  models.ConflictStrategy
	byNumber  map[int]models.Scene
	known     int
	result    models.ImportResult
}

func (r *run) remember(s models.Scene) {
	r.byNumber[s.SceneNumber] = s
	if s.SceneNumber > r.known {
		r.known = s.SceneNumber
	}
}

func (r *run) skip(i int, rec models.ImportRecord, reason string) {
	r.result.Skipped = append(r.result.Skipped, models.SkippedRecord{
		Index:       i,
		SceneNumber: rec.SceneNumber,
		Title:       rec.Title,
		Reason:      reason,
	})
}

// Import applies req.Strategy to every record in order. One record's
// failure never aborts the batch: it lands in Skipped with a reason. The
// returned error is reserved for failures of the batch as a whole (bad
// request, unreadable scene list).
func (r *Resolver) Import(ctx context.Context, req models.BatchImportRequest) (*models.ImportResult, error) {
	const op = "importer.Resolver.Import"

	log := r.log.With(
		slog.String("op", op),
		slog.String("project_id", req.ProjectID),
		slog.String("strategy", req.Strategy.String()),
	)

	if req.ProjectID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoProject)
	}
	if !req.Strategy.Valid() {
		return nil, fmt.Errorf("%s: %w %q", op, ErrUnknownStrategy, req.Strategy)
	}

	if r.opts.ServerSide {
		return r.importServerSide(ctx, req)
	}

	var existing []models.Scene
	err := r.retry(ctx, func() error {
		var err error
		existing, err = r.scenes.ListScenes(ctx, req.ProjectID)
		return err
	})
	if err != nil {
		log.Error("failed to list existing scenes", sl.Err(err))
		return nil, fmt.Errorf("%s: list existing scenes: %w", op, err)
	}

	st := &run{
		projectID: req.ProjectID,
		strategy:  req.Strategy,
		byNumber:  make(map[int]models.Scene, len(existing)),
		result: models.ImportResult{
			Created: []models.Scene{},
			Updated: []models.Scene{},
			Skipped: []models.SkippedRecord{},
		},
	}
	for _, s := range existing {
		st.remember(s)
	}
	// Requested numbers count as known so a renumbered row never takes a
	// number a later row asked for.
	for _, rec := range req.Scenes {
		if rec.SceneNumber > st.known {
			st.known = rec.SceneNumber
		}
	}

	for i, rec := range req.Scenes {
		if err := ctx.Err(); err != nil {
			st.skip(i, rec, "import cancelled: "+err.Error())
			r.count(st.strategy, "skipped")
			continue
		}
		r.importRecord(ctx, log, st, i, rec)
	}

	log.Info("batch import finished",
		slog.Int("created", len(st.result.Created)),
		slog.Int("updated", len(st.result.Updated)),
		slog.Int("skipped", len(st.result.Skipped)),
	)

	return &st.result, nil
}

func (r *Resolver) importRecord(ctx context.Context, log *slog.Logger, st *run, i int, rec models.ImportRecord) {
	log = log.With(slog.Int("row", i), slog.Int("scene_number", rec.SceneNumber))

	if err := r.validate.Struct(rec); err != nil {
		log.Warn("invalid import record", sl.Err(err))
		st.skip(i, rec, "invalid input: "+err.Error())
		r.count(st.strategy, "skipped")
		return
	}

	input := rec.Input(st.projectID)
	scene, err := r.create(ctx, input)
	if err == nil {
		st.remember(*scene)
		st.result.Created = append(st.result.Created, *scene)
		r.count(st.strategy, "created")
		return
	}

	if !errors.Is(err, apperr.ErrConflict) {
		log.Warn("import record failed", sl.Err(err))
		st.skip(i, rec, reason(err))
		r.count(st.strategy, "skipped")
		return
	}

	switch st.strategy {
	case models.ConflictSkip:
		st.skip(i, rec, fmt.Sprintf("scene number %d already exists", rec.SceneNumber))
		r.count(st.strategy, "skipped")

	case models.ConflictOverwrite:
		updated, err := r.overwrite(ctx, st, input)
		if err != nil {
			log.Warn("overwrite failed", sl.Err(err))
			st.skip(i, rec, "overwrite failed: "+reason(err))
			r.count(st.strategy, "skipped")
			return
		}
		st.remember(*updated)
		st.result.Updated = append(st.result.Updated, *updated)
		r.count(st.strategy, "updated")

	case models.ConflictRenumber:
		input.SceneNumber = st.known + 1
		scene, err := r.create(ctx, input)
		if err != nil {
			log.Warn("renumbered create failed", slog.Int("new_number", input.SceneNumber), sl.Err(err))
			st.skip(i, rec, fmt.Sprintf("renumber to %d failed: %s", input.SceneNumber, reason(err)))
			r.count(st.strategy, "skipped")
			return
		}
		log.Debug("record renumbered", slog.Int("new_number", scene.SceneNumber))
		st.remember(*scene)
		st.result.Created = append(st.result.Created, *scene)
		r.count(st.strategy, "created")
	}
}

// overwrite updates the scene that already holds input.SceneNumber. The
// local index is tried first; on a miss the project is listed again since
// the conflicting scene may have been created by someone else.
func (r *Resolver) overwrite(ctx context.Context, st *run, input models.SceneInput) (*models.Scene, error) {
	target, ok := st.byNumber[input.SceneNumber]
	if !ok {
		var scenes []models.Scene
		err := r.retry(ctx, func() error {
			var err error
			scenes, err = r.scenes.ListScenes(ctx, st.projectID)
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, s := range scenes {
			st.remember(s)
		}
		if target, ok = st.byNumber[input.SceneNumber]; !ok {
			return nil, apperr.NotFound("overwrite", fmt.Sprintf("no scene holds number %d", input.SceneNumber))
		}
	}

	var updated *models.Scene
	err := r.retry(ctx, func() error {
		var err error
		updated, err = r.scenes.UpdateScene(ctx, target.ID, input.Patch())
		return err
	})
	return updated, err
}

func (r *Resolver) create(ctx context.Context, input models.SceneInput) (*models.Scene, error) {
	var scene *models.Scene
	err := r.retry(ctx, func() error {
		var err error
		scene, err = r.scenes.CreateScene(ctx, input)
		return err
	})
	return scene, err
}

func (r *Resolver) importServerSide(ctx context.Context, req models.BatchImportRequest) (*models.ImportResult, error) {
	const op = "importer.Resolver.importServerSide"

	batch, ok := r.scenes.(BatchImporter)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrServerSide)
	}

	var res *models.ImportResult
	err := r.retry(ctx, func() error {
		var err error
		res, err = batch.BatchImportScenes(ctx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if res.Total() != len(req.Scenes) {
		r.log.Warn("server import result does not partition the batch",
			slog.String("op", op),
			slog.Int("records", len(req.Scenes)),
			slog.Int("outcomes", res.Total()),
		)
	}

	return res, nil
}

// retry runs fn until it succeeds, fails permanently, or the capped
// exponential schedule runs out. Only retryable apperr kinds are retried.
func (r *Resolver) retry(ctx context.Context, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.BaseDelay
	b.MaxInterval = r.opts.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.opts.MaxRetries)), ctx)

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := fn()
		if err == nil {
			return nil
		}
		if !apperr.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)

	if err != nil && apperr.IsRetryable(err) && attempts > 1 {
		return fmt.Errorf("gave up after %d attempts: %w", attempts, err)
	}
	return err
}

func (r *Resolver) count(strategy models.ConflictStrategy, outcome string) {
	metrics.ImportRecordsTotal.WithLabelValues(strategy.String(), outcome).Inc()
}

func reason(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindInvalidInput:
		return "invalid input: " + err.Error()
	case apperr.KindTemporarilyUnavailable:
		return "temporarily unavailable: " + err.Error()
	case apperr.KindNotFound:
		return "not found: " + err.Error()
	case apperr.KindConflict:
		return "conflict: " + err.Error()
	default:
		return err.Error()
	}
}
