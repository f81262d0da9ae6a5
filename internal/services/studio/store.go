// Package studio is the application state the UI layers read and mutate.
// A Store owns the project list, the current project with its scenes, the
// editable timeline, the selection map and the undo history, and keeps
// them consistent with the backend.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"remotion_studio/internal/config"
	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/lib/apperr"
	"remotion_studio/internal/lib/logger/sl"
	"remotion_studio/internal/repository"
	"remotion_studio/internal/services/consistency"
	"remotion_studio/internal/services/history"
	"remotion_studio/internal/services/importer"
	"remotion_studio/internal/services/reconcile"
	"remotion_studio/internal/services/selection"
	"remotion_studio/internal/storage/localcache"

	"github.com/go-playground/validator/v10"
)

var (
	ErrOperationInProgress = errors.New("operation already in progress")
	ErrNoCurrentProject    = errors.New("no project is open")
	ErrNoTimeline          = errors.New("no timeline is bound")
)

type Deps struct {
	Projects repository.ProjectRepository
	Scenes   repository.SceneRepository
	Cache    localcache.Cache
	// Clock drives reconciliation timers; nil means wall-clock time.
	Clock reconcile.Clock
}

type Config struct {
	UserID           string
	Reconcile        reconcile.Config
	Import           importer.Options
	HistoryLimit     int
	AutosaveDebounce time.Duration
}

func ConfigFrom(cfg *config.Config) Config {
	return Config{
		UserID: cfg.API.UserID,
		Reconcile: reconcile.Config{
			SettleDelay: cfg.Reconcile.SettleDelay,
			RetryDelays: cfg.Reconcile.RetryDelays,
		},
		Import: importer.Options{
			MaxRetries: cfg.Import.MaxRetries,
			BaseDelay:  cfg.Import.BaseDelay,
			MaxDelay:   cfg.Import.MaxDelay,
		},
		HistoryLimit:     cfg.History.Limit,
		AutosaveDebounce: cfg.History.AutosaveDebounce,
	}
}

type Loading struct {
	Projects  bool `json:"projects"`
	Scenes    bool `json:"scenes"`
	Importing bool `json:"importing"`
	Saving    bool `json:"saving"`
}

// Snapshot is a deep copy of the store state; callers may keep and modify it.
type Snapshot struct {
	Projects       []models.Project      `json:"projects"`
	CurrentProject *models.Project       `json:"currentProject"`
	Timeline       *models.Timeline      `json:"timeline"`
	Selection      map[string][]string   `json:"selection"`
	Error          string                `json:"error,omitempty"`
	Loading        Loading               `json:"loading"`
	Guard          models.OperationGuard `json:"guard"`
	CanUndo        bool                  `json:"canUndo"`
	CanRedo        bool                  `json:"canRedo"`
	HistoryLength  int                   `json:"historyLength"`
}

type Store struct {
	log      *slog.Logger
	projects repository.ProjectRepository
	scenes   repository.SceneRepository
	cache    localcache.Cache
	cfg      Config
	validate *validator.Validate

	importer       *importer.Resolver
	serverImporter *importer.Resolver
	reconciler     *reconcile.Loop
	selection      *selection.Manager
	history        *history.Manager
	autosave       *history.Autosaver

	// mu guards the fields below. It is never held across a network call.
	mu       sync.Mutex
	list     []models.Project
	current  *models.Project
	timeline *models.Timeline
	errMsg   string
	loading  Loading
	guard    models.OperationGuard
}

func New(log *slog.Logger, deps Deps, cfg Config) *Store {
	if len(cfg.Reconcile.RetryDelays) == 0 && cfg.Reconcile.SettleDelay == 0 {
		cfg.Reconcile = reconcile.DefaultConfig()
	}

	s := &Store{
		log:      log,
		projects: deps.Projects,
		scenes:   deps.Scenes,
		cache:    deps.Cache,
		cfg:      cfg,
		validate: validator.New(),
		history:  history.NewManager(cfg.HistoryLimit),
		autosave: history.NewAutosaver(log, deps.Projects, deps.Cache, cfg.AutosaveDebounce),
	}

	serverOpts := cfg.Import
	serverOpts.ServerSide = true
	s.importer = importer.New(log, deps.Scenes, cfg.Import)
	s.serverImporter = importer.New(log, deps.Scenes, serverOpts)

	var opts []reconcile.Option
	if deps.Clock != nil {
		opts = append(opts, reconcile.WithClock(deps.Clock))
	}
	s.reconciler = reconcile.New(log, deps.Scenes, cfg.Reconcile, opts...)
	s.selection = selection.New(log, deps.Scenes, s.onSelectionPersisted)

	return s
}

// Close stops background reconciliation and flushes the pending auto-save.
func (s *Store) Close(ctx context.Context) error {
	s.reconciler.Close()
	return s.autosave.Stop(ctx)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Projects:      models.CloneProjects(s.list),
		Timeline:      models.CloneTimeline(s.timeline),
		Selection:     s.selection.Snapshot(),
		Error:         s.errMsg,
		Loading:       s.loading,
		Guard:         s.guard,
		CanUndo:       s.history.CanUndo(),
		CanRedo:       s.history.CanRedo(),
		HistoryLength: s.history.Len(),
	}
	if snap.Projects == nil {
		snap.Projects = []models.Project{}
	}
	if s.current != nil {
		p := s.current.Clone()
		snap.CurrentProject = &p
	}

	return snap
}

func (s *Store) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
}

// History returns copies of the retained undo entries, oldest first.
func (s *Store) History() []models.HistoryEntry {
	return s.history.Entries()
}

// Validate reports the current consistency violations without changing
// anything.
func (s *Store) Validate() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return consistency.Check(s.consistencyStateLocked())
}

// Repair fixes every violation Validate would report and returns them.
func (s *Store) Repair() []string {
	const op = "studio.Store.Repair"

	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.consistencyStateLocked()
	violations := consistency.Check(st)
	plan := consistency.Plan(st)
	if plan.Empty() {
		return violations
	}

	if plan.ClearCurrentProject {
		s.unbindLocked()
	}
	if plan.UnbindTimeline {
		s.timeline = nil
	}
	for _, sceneID := range plan.DropSelection {
		s.selection.Drop(sceneID)
	}

	s.log.Info("state repaired",
		slog.String("op", op),
		slog.Int("violations", len(violations)),
	)

	return violations
}

func (s *Store) consistencyStateLocked() consistency.State {
	return consistency.State{
		Projects:       s.list,
		CurrentProject: s.current,
		Timeline:       s.timeline,
		SelectionKeys:  s.selection.Keys(),
	}
}

// checkLocked runs the validator after a transition and logs what it finds.
func (s *Store) checkLocked(op string) {
	for _, v := range consistency.Check(s.consistencyStateLocked()) {
		s.log.Warn("state violation", slog.String("op", op), slog.String("violation", v))
	}
}

// fail records a user-visible error naming the operation and returns err
// for the caller.
func (s *Store) fail(action string, err error) error {
	s.mu.Lock()
	s.errMsg = fmt.Sprintf("Failed to %s: %s", action, userMessage(err))
	s.mu.Unlock()

	s.log.Error("operation failed", slog.String("action", action), sl.Err(err))
	return err
}

// acquire sets the guard flag for kind. The returned release must run on
// every path.
func (s *Store) acquire(kind models.OperationKind) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.guard.Acquire(kind) {
		return nil, fmt.Errorf("%w: %s", ErrOperationInProgress, kind)
	}
	return func() {
		s.mu.Lock()
		s.guard.Release(kind)
		s.mu.Unlock()
	}, nil
}

func (s *Store) setLoading(set func(*Loading)) {
	s.mu.Lock()
	set(&s.loading)
	s.mu.Unlock()
}

// currentID reports the id of the current project or ErrNoCurrentProject.
func (s *Store) currentID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return "", ErrNoCurrentProject
	}
	return s.current.ID, nil
}

// sceneLocked finds a scene of the current project.
func (s *Store) sceneLocked(sceneID string) (*models.Scene, error) {
	if s.current == nil {
		return nil, ErrNoCurrentProject
	}
	sc, _ := s.current.SceneByID(sceneID)
	if sc == nil {
		return nil, apperr.NotFound("find scene", fmt.Sprintf("scene %s is not in the current project", sceneID))
	}
	return sc, nil
}

// syncListLocked copies the current project into the project list.
func (s *Store) syncListLocked() {
	if s.current == nil {
		return
	}
	for i := range s.list {
		if s.list[i].ID == s.current.ID {
			s.list[i] = s.current.Clone()
			return
		}
	}
}

func (s *Store) unbindLocked() {
	if s.current != nil {
		s.reconciler.Cancel(s.current.ID)
	}
	s.current = nil
	s.timeline = nil
	s.selection.Reset()
	s.history.Reset()
}
