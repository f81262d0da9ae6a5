package history

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/lib/apperr"
	"remotion_studio/internal/storage/localcache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSaver struct {
	mock.Mock
}

func (m *MockSaver) UpdateProject(ctx context.Context, id string, patch models.ProjectPatch) (*models.Project, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

// failingCache rejects every write.
type failingCache struct {
	localcache.Cache
}

func (failingCache) Set(context.Context, string, any) error {
	return errors.New("disk full")
}

func snapshotOf(projectID string, clips int) Snapshot {
	tl := timeline("timeline-"+projectID, clips)
	tl.ProjectID = projectID
	// JSON turns numbers in props into float64, so keep cached values plain.
	for i := range tl.Tracks[0].Clips {
		tl.Tracks[0].Clips[i].Props = nil
	}
	return Snapshot{
		ProjectID: projectID,
		Timeline:  tl,
		Entries:   []models.HistoryEntry{{ID: "h1", Action: models.HistoryActionLoad, Snapshot: tl}},
		Index:     0,
	}
}

func newAutosaver(saver ProjectSaver, cache localcache.Cache, debounce time.Duration) *Autosaver {
	return NewAutosaver(slog.New(slog.NewTextHandler(io.Discard, nil)), saver, cache, debounce)
}

func withClips(n int) func(models.ProjectPatch) bool {
	return func(p models.ProjectPatch) bool {
		return p.Timeline != nil && len(p.Timeline.Tracks[0].Clips) == n
	}
}

func TestAutosave_DebouncesToLastSnapshot(t *testing.T) {
	saved := make(chan models.ProjectPatch, 4)
	saver := new(MockSaver)
	saver.On("UpdateProject", mock.Anything, "p1", mock.Anything).
		Run(func(args mock.Arguments) { saved <- args.Get(2).(models.ProjectPatch) }).
		Return(&models.Project{ID: "p1"}, nil)

	a := newAutosaver(saver, localcache.NewMemoryCache(0), 80*time.Millisecond)

	for i := 1; i <= 3; i++ {
		a.Notify(snapshotOf("p1", i))
		time.Sleep(10 * time.Millisecond)
	}
	assert.True(t, a.Pending("p1"))

	select {
	case patch := <-saved:
		assert.Len(t, patch.Timeline.Tracks[0].Clips, 3)
	case <-time.After(2 * time.Second):
		t.Fatal("auto-save never ran")
	}

	select {
	case <-saved:
		t.Fatal("debounced notifications must collapse into one save")
	case <-time.After(120 * time.Millisecond):
	}
	saver.AssertNumberOfCalls(t, "UpdateProject", 1)
}

func TestAutosave_QuietPeriodResets(t *testing.T) {
	var mu sync.Mutex
	var at time.Time
	done := make(chan struct{})

	saver := new(MockSaver)
	saver.On("UpdateProject", mock.Anything, "p1", mock.Anything).
		Run(func(mock.Arguments) {
			mu.Lock()
			at = time.Now()
			mu.Unlock()
			close(done)
		}).
		Return(&models.Project{ID: "p1"}, nil).Once()

	a := newAutosaver(saver, localcache.NewMemoryCache(0), 60*time.Millisecond)
	start := time.Now()
	a.Notify(snapshotOf("p1", 1))
	time.Sleep(40 * time.Millisecond)
	a.Notify(snapshotOf("p1", 2))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("auto-save never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.GreaterOrEqual(t, at.Sub(start), 100*time.Millisecond)
}

func TestAutosave_ServerFailureWritesFallback(t *testing.T) {
	ctx := context.Background()
	cache := localcache.NewMemoryCache(0)

	saver := new(MockSaver)
	saver.On("UpdateProject", mock.Anything, "p1", mock.Anything).
		Return(nil, apperr.New(apperr.KindTemporarilyUnavailable, "repository.ProjectRepo.UpdateProject", "down"))

	a := newAutosaver(saver, cache, time.Hour)
	a.Notify(snapshotOf("p1", 2))
	require.NoError(t, a.Flush(ctx))

	fb, err := LoadFallback(ctx, cache, "p1")
	require.NoError(t, err)
	require.NotNil(t, fb)
	assert.Equal(t, snapshotOf("p1", 2).Timeline, fb.Timeline)
	require.Len(t, fb.Entries, 1)
	assert.Equal(t, 0, fb.Index)
	assert.False(t, a.Pending("p1"), "work that reached the cache is done")
}

func TestAutosave_ServerSuccessClearsFallback(t *testing.T) {
	ctx := context.Background()
	cache := localcache.NewMemoryCache(0)
	require.NoError(t, cache.Set(ctx, localcache.TimelineKey("p1"), snapshotOf("p1", 1).Timeline))
	require.NoError(t, cache.Set(ctx, localcache.HistoryKey("p1"), storedHistory{Index: 0}))

	saver := new(MockSaver)
	saver.On("UpdateProject", mock.Anything, "p1", mock.MatchedBy(withClips(4))).Return(&models.Project{ID: "p1"}, nil)

	a := newAutosaver(saver, cache, time.Hour)
	a.Notify(snapshotOf("p1", 4))
	require.NoError(t, a.Flush(ctx))

	fb, err := LoadFallback(ctx, cache, "p1")
	require.NoError(t, err)
	assert.Nil(t, fb)
	saver.AssertExpectations(t)
}

func TestAutosave_NothingLandsKeepsWork(t *testing.T) {
	ctx := context.Background()

	saver := new(MockSaver)
	saver.On("UpdateProject", mock.Anything, "p1", mock.Anything).Return(nil, errors.New("offline"))

	a := newAutosaver(saver, failingCache{localcache.NewMemoryCache(0)}, time.Hour)
	a.Notify(snapshotOf("p1", 1))

	err := a.Flush(ctx)
	assert.ErrorIs(t, err, ErrNotSaved)
	assert.True(t, a.Pending("p1"))
}

func TestAutosave_FlushIsNoopWhenIdle(t *testing.T) {
	saver := new(MockSaver)
	a := newAutosaver(saver, localcache.NewMemoryCache(0), time.Hour)

	require.NoError(t, a.Flush(context.Background()))
	saver.AssertNotCalled(t, "UpdateProject", mock.Anything, mock.Anything, mock.Anything)
}

func TestAutosave_SavesEveryProject(t *testing.T) {
	saver := new(MockSaver)
	saver.On("UpdateProject", mock.Anything, "p1", mock.Anything).Return(&models.Project{ID: "p1"}, nil).Once()
	saver.On("UpdateProject", mock.Anything, "p2", mock.Anything).Return(&models.Project{ID: "p2"}, nil).Once()

	a := newAutosaver(saver, localcache.NewMemoryCache(0), time.Hour)
	a.Notify(snapshotOf("p1", 1))
	a.Notify(snapshotOf("p2", 1))

	require.NoError(t, a.Flush(context.Background()))
	saver.AssertExpectations(t)
}

func TestAutosave_StopRefusesNewWork(t *testing.T) {
	saver := new(MockSaver)
	saver.On("UpdateProject", mock.Anything, "p1", mock.Anything).Return(&models.Project{ID: "p1"}, nil).Once()

	a := newAutosaver(saver, localcache.NewMemoryCache(0), time.Hour)
	a.Notify(snapshotOf("p1", 1))
	require.NoError(t, a.Stop(context.Background()))

	a.Notify(snapshotOf("p1", 2))
	assert.False(t, a.Pending("p1"))
	saver.AssertNumberOfCalls(t, "UpdateProject", 1)
}

func TestAutosave_NotifyCopiesSnapshot(t *testing.T) {
	ctx := context.Background()
	saver := new(MockSaver)
	saver.On("UpdateProject", mock.Anything, "p1", mock.MatchedBy(withClips(2))).Return(&models.Project{ID: "p1"}, nil)

	a := newAutosaver(saver, localcache.NewMemoryCache(0), time.Hour)
	snap := snapshotOf("p1", 2)
	a.Notify(snap)
	snap.Timeline.Tracks[0].Clips = nil

	require.NoError(t, a.Flush(ctx))
	saver.AssertExpectations(t)
}
