package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/camelotware/herald/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(t.TempDir(), arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestSaveAndGetSnapshot(t *testing.T) {
	svc := newTestService(t)

	snap := models.NewPageSnapshot("https://eden-daoc.net/item?id=101", models.SnapshotDetail,
		"Cudgel of the Undead", "<html><body><h1>Cudgel of the Undead</h1></body></html>", 1.0)
	require.NoError(t, svc.SaveSnapshot(snap))
	require.NotEmpty(t, snap.ID, "save must assign an id")

	got, err := svc.GetSnapshot(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.URL, got.URL)
	assert.Equal(t, models.SnapshotDetail, got.Kind)
	assert.Equal(t, "Cudgel of the Undead", got.ItemName)
	assert.Contains(t, got.Markdown, "Cudgel of the Undead", "markdown rendition is stored alongside the html")
}

func TestGetSnapshotNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetSnapshot("missing")
	assert.ErrorContains(t, err, "not found")
}

func TestListSnapshotsByKind(t *testing.T) {
	svc := newTestService(t)

	for i := 0; i < 3; i++ {
		snap := models.NewPageSnapshot("https://eden-daoc.net/itemsearch?s=x", models.SnapshotSearch, "x", "<html/>", 0)
		snap.FetchedAt = time.Now().Add(time.Duration(i) * time.Minute)
		require.NoError(t, svc.SaveSnapshot(snap))
	}
	detail := models.NewPageSnapshot("https://eden-daoc.net/item?id=1", models.SnapshotDetail, "x", "<html/>", 0.8)
	require.NoError(t, svc.SaveSnapshot(detail))

	searches, err := svc.ListSnapshots(models.SnapshotSearch, 0)
	require.NoError(t, err)
	assert.Len(t, searches, 3)
	// Newest first
	assert.True(t, !searches[0].FetchedAt.Before(searches[1].FetchedAt))

	limited, err := svc.ListSnapshots(models.SnapshotSearch, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	all, err := svc.ListSnapshots("", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestPruneOlderThan(t *testing.T) {
	svc := newTestService(t)

	old := models.NewPageSnapshot("https://eden-daoc.net/item?id=1", models.SnapshotDetail, "old", "<html/>", 0)
	old.FetchedAt = time.Now().Add(-10 * 24 * time.Hour)
	require.NoError(t, svc.SaveSnapshot(old))

	fresh := models.NewPageSnapshot("https://eden-daoc.net/item?id=2", models.SnapshotDetail, "fresh", "<html/>", 0)
	require.NoError(t, svc.SaveSnapshot(fresh))

	removed, err := svc.PruneOlderThan(time.Now().Add(-7 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = svc.GetSnapshot(old.ID)
	assert.Error(t, err)
	_, err = svc.GetSnapshot(fresh.ID)
	assert.NoError(t, err)
}
