package patternadapter

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftco/drift/internal/legacystore"
	"github.com/driftco/drift/internal/patterns"
)

type fakeLegacyStore struct {
	rows          map[string]legacystore.Row
	updateErr     error
	updatedStatus map[string]legacystore.Status
}

func newFakeLegacyStore() *fakeLegacyStore {
	return &fakeLegacyStore{rows: map[string]legacystore.Row{}, updatedStatus: map[string]legacystore.Status{}}
}

func (f *fakeLegacyStore) ListAll(ctx context.Context) ([]legacystore.Row, error) {
	out := make([]legacystore.Row, 0, len(f.rows))
	for _, r := range f.rows {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeLegacyStore) UpdateStatus(ctx context.Context, patternID string, to legacystore.Status) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updatedStatus[patternID] = to
	return nil
}

func newTestRepo(t *testing.T) *patterns.Repository {
	t.Helper()
	store := patterns.NewStore(filepath.Join(t.TempDir(), "patterns"), nil)
	repo := patterns.NewRepository(store, nil)
	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}

func TestSyncFromLegacyImportsNewRows(t *testing.T) {
	legacy := newFakeLegacyStore()
	legacy.rows["p1"] = legacystore.Row{
		PatternID: "p1", Category: "security", Status: legacystore.StatusConfirmed,
		Confidence: 0.92, CreatedAt: time.Now().Add(-time.Hour), UpdatedAt: time.Now(),
	}
	repo := newTestRepo(t)
	adapter := newWithStore(legacy, repo)

	synced, err := adapter.SyncFromLegacy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	imported, err := repo.Get(context.Background(), "legacy:p1")
	require.NoError(t, err)
	assert.Equal(t, patterns.CategorySecurity, imported.Category)
	assert.Equal(t, patterns.StatusApproved, imported.Status)
	assert.Contains(t, imported.Tags, "legacy")
}

func TestSyncFromLegacyFallsBackToStyleForUnknownCategory(t *testing.T) {
	legacy := newFakeLegacyStore()
	legacy.rows["p2"] = legacystore.Row{PatternID: "p2", Category: "unknown-bucket", Status: legacystore.StatusNew, Confidence: 0.5}
	repo := newTestRepo(t)
	adapter := newWithStore(legacy, repo)

	_, err := adapter.SyncFromLegacy(context.Background())
	require.NoError(t, err)

	imported, err := repo.Get(context.Background(), "legacy:p2")
	require.NoError(t, err)
	assert.Equal(t, patterns.CategoryStyle, imported.Category)
}

func TestSyncFromLegacyUpdatesExistingRowStatus(t *testing.T) {
	legacy := newFakeLegacyStore()
	legacy.rows["p3"] = legacystore.Row{PatternID: "p3", Category: "style", Status: legacystore.StatusNew, Confidence: 0.6}
	repo := newTestRepo(t)
	adapter := newWithStore(legacy, repo)

	_, err := adapter.SyncFromLegacy(context.Background())
	require.NoError(t, err)

	row := legacy.rows["p3"]
	row.Status = legacystore.StatusDismissed
	row.Confidence = 0.7
	legacy.rows["p3"] = row

	synced, err := adapter.SyncFromLegacy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	updated, err := repo.Get(context.Background(), "legacy:p3")
	require.NoError(t, err)
	assert.Equal(t, patterns.StatusIgnored, updated.Status)
	assert.Equal(t, 0.7, updated.Confidence)
}

func TestPushStatusTranslatesInvalidTransitionSentinel(t *testing.T) {
	legacy := newFakeLegacyStore()
	legacy.updateErr = legacystore.ErrInvalidStateTransition
	repo := newTestRepo(t)
	adapter := newWithStore(legacy, repo)

	added, err := repo.Add(context.Background(), patterns.Pattern{ID: "unified1", Status: patterns.StatusApproved})
	require.NoError(t, err)

	err = adapter.PushStatus(context.Background(), added.ID, "legacy-row-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, patterns.ErrInvalidStatusTransition)
}
