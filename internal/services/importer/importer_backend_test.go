package importer_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"remotion_studio/internal/domain/models"
	"remotion_studio/internal/mockapi"
	"remotion_studio/internal/services/importer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, numbers ...int) (*mockapi.Backend, string) {
	t.Helper()

	b := mockapi.NewBackend()
	p, err := b.CreateProject(context.Background(), models.ProjectInput{Name: "p"})
	require.NoError(t, err)

	for _, n := range numbers {
		_, err := b.CreateScene(context.Background(), models.SceneInput{ProjectID: p.ID, SceneNumber: n})
		require.NoError(t, err)
	}

	return b, p.ID
}

func records(numbers ...int) []models.ImportRecord {
	out := make([]models.ImportRecord, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, models.ImportRecord{SceneNumber: n, Title: "row"})
	}
	return out
}

func resolver(b *mockapi.Backend) *importer.Resolver {
	return importer.New(slog.New(slog.NewTextHandler(io.Discard, nil)), b, importer.Options{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
	})
}

func TestScenarioA_EmptyProjectSkip(t *testing.T) {
	b, projectID := newBackend(t)

	res, err := resolver(b).Import(context.Background(), models.BatchImportRequest{
		ProjectID: projectID,
		Scenes:    records(1, 2, 3, 4, 5),
		Strategy:  models.ConflictSkip,
	})
	require.NoError(t, err)

	assert.Len(t, res.Created, 5)
	assert.Empty(t, res.Skipped)
}

func TestSkipReimportIsIdempotent(t *testing.T) {
	b, projectID := newBackend(t)
	req := models.BatchImportRequest{
		ProjectID: projectID,
		Scenes:    records(1, 2, 3),
		Strategy:  models.ConflictSkip,
	}

	_, err := resolver(b).Import(context.Background(), req)
	require.NoError(t, err)

	res, err := resolver(b).Import(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Len(t, res.Skipped, 3)

	scenes, err := b.ListScenes(context.Background(), projectID)
	require.NoError(t, err)
	assert.Len(t, scenes, 3)
}

func TestImportKeepsSceneNumbersUnique(t *testing.T) {
	strategies := []models.ConflictStrategy{models.ConflictSkip, models.ConflictOverwrite, models.ConflictRenumber}
	batches := [][]int{
		{1, 2, 3},
		{3, 3, 3},
		{2, 4, 6, 8, 0, 0},
		{9, 1, 9, 1},
	}

	for _, strategy := range strategies {
		for _, batch := range batches {
			t.Run(strategy.String(), func(t *testing.T) {
				b, projectID := newBackend(t, 1, 3, 4)

				res, err := resolver(b).Import(context.Background(), models.BatchImportRequest{
					ProjectID: projectID,
					Scenes:    records(batch...),
					Strategy:  strategy,
				})
				require.NoError(t, err)
				assert.Equal(t, len(batch), res.Total(), "every record lands in exactly one list")

				scenes, err := b.ListScenes(context.Background(), projectID)
				require.NoError(t, err)
				assert.Empty(t, models.DuplicateSceneNumbers(scenes))
			})
		}
	}
}

func TestRenumberNeverStealsRequestedNumber(t *testing.T) {
	b, projectID := newBackend(t, 3)

	res, err := resolver(b).Import(context.Background(), models.BatchImportRequest{
		ProjectID: projectID,
		Scenes:    records(3, 4),
		Strategy:  models.ConflictRenumber,
	})
	require.NoError(t, err)

	require.Len(t, res.Created, 2)
	assert.Equal(t, 5, res.Created[0].SceneNumber)
	assert.Equal(t, 4, res.Created[1].SceneNumber)
}
