// Package reconcile re-fetches a project's scenes after writes whose effect
// may not be visible on the next read. Each request is a run driven by an
// explicit state machine; a newer run for the same project supersedes the
// older one and stops its pending timer.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/lib/logger/sl"
	"remotion_studio/internal/metrics"
)

var (
	ErrReconcileExhausted = errors.New("reconciliation retries exhausted")
	ErrEmptyResult        = errors.New("server returned no scenes while scenes were expected")
	ErrSuperseded         = errors.New("reconciliation superseded by a newer request")
	ErrStopped            = errors.New("reconciliation loop stopped")
)

type State int

const (
	StateIdle State = iota
	StateWaiting
	StateFetching
	StateSucceeded
	StateFailed
	StateSuperseded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateFetching:
		return "fetching"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateSuperseded:
		return "superseded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSuperseded
}

type SceneLister interface {
	ListScenes(ctx context.Context, projectID string) ([]models.Scene, error)
}

type Config struct {
	SettleDelay time.Duration
	// RetryDelays holds one delay per retry; its length is the retry cap.
	RetryDelays []time.Duration
}

func DefaultConfig() Config {
	return Config{
		SettleDelay: 300 * time.Millisecond,
		RetryDelays: []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second},
	}
}

// Result is the outcome of one run. Scenes is only set on success.
type Result struct {
	ProjectID string
	State     State
	Scenes    []models.Scene
	Attempts  int
	Err       error
}

// ResultFunc receives the outcome of runs that reached Succeeded or Failed.
// Superseded runs never deliver.
type ResultFunc func(Result)

type Loop struct {
	log    *slog.Logger
	lister SceneLister
	cfg    Config
	clock  Clock

	base context.Context
	stop context.CancelCauseFunc
	mu   sync.Mutex
	runs map[string]*Run
	wg   sync.WaitGroup
	// deliverMu keeps result callbacks from interleaving.
	deliverMu sync.Mutex
}

type Option func(*Loop)

func WithClock(c Clock) Option {
	return func(l *Loop) {
		l.clock = c
	}
}

func New(log *slog.Logger, lister SceneLister, cfg Config, opts ...Option) *Loop {
	base, stop := context.WithCancelCause(context.Background())

	l := &Loop{
		log:    log,
		lister: lister,
		cfg:    cfg,
		clock:  realClock{},
		base:   base,
		stop:   stop,
		runs:   make(map[string]*Run),
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Run is a handle on one reconciliation request.
type Run struct {
	projectID string
	expected  int
	onResult  ResultFunc
	cancel    context.CancelCauseFunc
	done      chan struct{}

	mu      sync.Mutex
	state   State
	attempt int
	result  Result
}

func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Attempt is the zero-based index of the fetch the run is waiting for or
// performing.
func (r *Run) Attempt() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempt
}

func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run reaches a terminal state.
func (r *Run) Wait() Result {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

func (r *Run) set(state State, attempt int) {
	r.mu.Lock()
	r.state = state
	r.attempt = attempt
	r.mu.Unlock()
}

// Request starts a background run for projectID, superseding any run still
// in flight for it. expected is the scene count the caller believes the
// server holds; an empty response counts as stale when it is non-zero.
func (l *Loop) Request(projectID string, expected int, onResult ResultFunc) *Run {
	const op = "reconcile.Loop.Request"

	ctx, cancel := context.WithCancelCause(l.base)
	run := &Run{
		projectID: projectID,
		expected:  expected,
		onResult:  onResult,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     StateIdle,
	}

	l.mu.Lock()
	if prev, ok := l.runs[projectID]; ok {
		prev.cancel(ErrSuperseded)
		l.log.Debug("superseding reconciliation",
			slog.String("op", op),
			slog.String("project_id", projectID),
		)
	}
	l.runs[projectID] = run
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		l.execute(ctx, run)
	}()

	return run
}

// Reconcile runs a request and waits for it. Cancelling ctx cancels the run.
func (l *Loop) Reconcile(ctx context.Context, projectID string, expected int, onResult ResultFunc) Result {
	run := l.Request(projectID, expected, onResult)

	select {
	case <-run.Done():
	case <-ctx.Done():
		run.cancel(ctx.Err())
	}

	return run.Wait()
}

// Cancel stops the run in flight for projectID, if any.
func (l *Loop) Cancel(projectID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if run, ok := l.runs[projectID]; ok {
		run.cancel(ErrStopped)
	}
}

// Pending reports whether a run for projectID has not finished yet.
func (l *Loop) Pending(projectID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.runs[projectID]
	return ok
}

// Close cancels every run and waits for their goroutines to exit.
func (l *Loop) Close() {
	l.stop(ErrStopped)
	l.wg.Wait()
}

func (l *Loop) execute(ctx context.Context, run *Run) {
	const op = "reconcile.Loop.execute"

	log := l.log.With(
		slog.String("op", op),
		slog.String("project_id", run.projectID),
	)

	delay := l.cfg.SettleDelay
	var lastErr error

	for attempt := 0; ; attempt++ {
		run.set(StateWaiting, attempt)
		if !l.wait(ctx, delay) {
			l.finish(run, Result{State: StateSuperseded, Attempts: attempt, Err: context.Cause(ctx)})
			return
		}

		run.set(StateFetching, attempt)
		metrics.ReconcileAttemptsTotal.Inc()

		scenes, err := l.lister.ListScenes(ctx, run.projectID)
		if ctx.Err() != nil {
			l.finish(run, Result{State: StateSuperseded, Attempts: attempt + 1, Err: context.Cause(ctx)})
			return
		}

		switch {
		case err != nil:
			lastErr = err
			log.Warn("scene fetch failed", slog.Int("attempt", attempt+1), sl.Err(err))
		case len(scenes) == 0 && run.expected > 0:
			lastErr = ErrEmptyResult
			log.Warn("scene fetch looks stale",
				slog.Int("attempt", attempt+1),
				slog.Int("expected", run.expected),
			)
		default:
			log.Debug("reconciled", slog.Int("attempt", attempt+1), slog.Int("scenes", len(scenes)))
			l.finish(run, Result{State: StateSucceeded, Scenes: scenes, Attempts: attempt + 1})
			return
		}

		if attempt >= len(l.cfg.RetryDelays) {
			err := fmt.Errorf("%w after %d attempts: %w", ErrReconcileExhausted, attempt+1, lastErr)
			log.Error("reconciliation failed", sl.Err(err))
			l.finish(run, Result{State: StateFailed, Attempts: attempt + 1, Err: err})
			return
		}

		delay = l.cfg.RetryDelays[attempt]
	}
}

func (l *Loop) wait(ctx context.Context, d time.Duration) bool {
	if err := ctx.Err(); err != nil {
		return false
	}
	if d <= 0 {
		return true
	}

	t := l.clock.NewTimer(d)
	select {
	case <-t.C():
		return true
	case <-ctx.Done():
		t.Stop()
		return false
	}
}

func (l *Loop) finish(run *Run, res Result) {
	res.ProjectID = run.projectID

	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()

	l.mu.Lock()
	current := l.runs[run.projectID] == run
	if current {
		delete(l.runs, run.projectID)
	}
	l.mu.Unlock()

	if res.State != StateSuperseded && !current {
		// Lost a race with a newer request between fetch and delivery.
		res = Result{ProjectID: run.projectID, State: StateSuperseded, Attempts: res.Attempts, Err: ErrSuperseded}
	}

	run.mu.Lock()
	run.state = res.State
	run.result = res
	run.mu.Unlock()

	metrics.ReconcileRunsTotal.WithLabelValues(res.State.String()).Inc()

	if res.State != StateSuperseded && run.onResult != nil {
		run.onResult(res)
	}

	close(run.done)
}
