package selection

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/lib/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPersister struct {
	mock.Mock
}

func (m *MockPersister) UpdateSelection(ctx context.Context, sceneID string, imageIDs []string) error {
	args := m.Called(ctx, sceneID, imageIDs)
	return args.Error(0)
}

var testCtx = context.Background()

func newManager(p Persister) (*Manager, *[]string) {
	var persisted []string
	m := New(slog.New(slog.NewTextHandler(io.Discard, nil)), p, func(sceneID string) {
		persisted = append(persisted, sceneID)
	})
	return m, &persisted
}

func TestToggle_PersistsFullSet(t *testing.T) {
	p := new(MockPersister)
	p.On("UpdateSelection", mock.Anything, "s1", []string{"img-1", "img-2"}).Return(nil).Once()
	p.On("UpdateSelection", mock.Anything, "s1", []string{"img-2"}).Return(nil).Once()

	m, persisted := newManager(p)
	m.Replace([]models.Scene{{ID: "s1", SelectedImageIDs: []string{"img-1"}}})

	set, err := m.Toggle(testCtx, "s1", "img-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"img-1", "img-2"}, set)

	set, err = m.Toggle(testCtx, "s1", "img-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"img-2"}, set)
	assert.Equal(t, []string{"img-2"}, m.Get("s1"))

	assert.Equal(t, []string{"s1", "s1"}, *persisted)
	p.AssertExpectations(t)
}

func TestToggle_FailureRevertsScenarioC(t *testing.T) {
	p := new(MockPersister)
	p.On("UpdateSelection", mock.Anything, "s1", mock.Anything).
		Return(apperr.New(apperr.KindTemporarilyUnavailable, "repository.SceneRepo.UpdateSelection", "down"))

	m, persisted := newManager(p)
	m.Replace([]models.Scene{{ID: "s1", SelectedImageIDs: []string{"img-2"}}})

	set, err := m.Toggle(testCtx, "s1", "img-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrTemporarilyUnavailable)
	assert.Equal(t, []string{"img-2"}, set)
	assert.Equal(t, []string{"img-2"}, m.Get("s1"))
	assert.Empty(t, *persisted)
}

func TestToggle_FailureOnUnknownSceneLeavesNoEntry(t *testing.T) {
	p := new(MockPersister)
	p.On("UpdateSelection", mock.Anything, "s9", []string{"img-1"}).Return(errors.New("boom"))

	m, _ := newManager(p)
	_, err := m.Toggle(testCtx, "s9", "img-1")
	require.Error(t, err)

	assert.Nil(t, m.Get("s9"))
	assert.Empty(t, m.Keys())
}

func TestToggle_LocalChangeVisibleBeforeRemoteReturns(t *testing.T) {
	m, _ := newManager(nil)

	var during []string
	m.persist = persistFunc(func(ctx context.Context, sceneID string, ids []string) error {
		during = m.Get(sceneID)
		return nil
	})

	_, err := m.Toggle(testCtx, "s1", "img-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"img-1"}, during)
}

type persistFunc func(ctx context.Context, sceneID string, ids []string) error

func (f persistFunc) UpdateSelection(ctx context.Context, sceneID string, ids []string) error {
	return f(ctx, sceneID, ids)
}

func TestSelectAllAndClear(t *testing.T) {
	p := new(MockPersister)
	p.On("UpdateSelection", mock.Anything, "s1", []string{"a", "b", "c"}).Return(nil).Once()
	p.On("UpdateSelection", mock.Anything, "s1", []string{}).Return(nil).Once()

	m, _ := newManager(p)

	require.NoError(t, m.SelectAll(testCtx, "s1", []string{"a", "b", "a", "c"}))
	assert.Equal(t, []string{"a", "b", "c"}, m.Get("s1"))
	assert.True(t, m.IsSelected("s1", "b"))

	require.NoError(t, m.Clear(testCtx, "s1"))
	assert.Equal(t, []string{}, m.Get("s1"))
	assert.Equal(t, []string{"s1"}, m.Keys())
}

func TestClear_FailureRestores(t *testing.T) {
	p := new(MockPersister)
	p.On("UpdateSelection", mock.Anything, "s1", []string{}).Return(errors.New("boom"))

	m, _ := newManager(p)
	m.Replace([]models.Scene{{ID: "s1", SelectedImageIDs: []string{"a", "b"}}})

	require.Error(t, m.Clear(testCtx, "s1"))
	assert.Equal(t, []string{"a", "b"}, m.Get("s1"))
}

func TestReplaceDropAndSnapshot(t *testing.T) {
	m, _ := newManager(nil)
	m.Replace([]models.Scene{
		{ID: "s2", SelectedImageIDs: []string{"x", "x", "y"}},
		{ID: "s1"},
	})

	assert.Equal(t, []string{"s1", "s2"}, m.Keys())
	assert.Equal(t, []string{"x", "y"}, m.Get("s2"))
	assert.Equal(t, []string{}, m.Get("s1"))

	snap := m.Snapshot()
	snap["s2"][0] = "mutated"
	assert.Equal(t, []string{"x", "y"}, m.Get("s2"), "snapshot must not alias")

	m.Drop("s2")
	assert.Equal(t, []string{"s1"}, m.Keys())

	m.Reset()
	assert.Empty(t, m.Keys())
}
