package patterns

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "patterns"), nil)
	repo := NewRepository(store, nil)
	require.NoError(t, repo.Initialize(context.Background()))
	return repo
}

func TestRepositoryAddAssignsIDAndDefaults(t *testing.T) {
	repo := newTestRepository(t)
	p, err := repo.Add(context.Background(), Pattern{
		Category:   CategorySecurity,
		Name:       "hardcoded secret",
		Confidence: 0.95,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, StatusDiscovered, p.Status)
	assert.Equal(t, ConfidenceVeryHigh, p.ConfidenceLevel)
	assert.False(t, p.FirstSeen.IsZero())
}

func TestRepositoryAddDuplicateIDFails(t *testing.T) {
	repo := newTestRepository(t)
	p, err := repo.Add(context.Background(), Pattern{ID: "fixed-id", Name: "a", Confidence: 0.5})
	require.NoError(t, err)
	_, err = repo.Add(context.Background(), p)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestRepositoryApproveIgnoreRevertStateMachine(t *testing.T) {
	repo := newTestRepository(t)
	p, err := repo.Add(context.Background(), Pattern{Name: "a", Confidence: 0.8})
	require.NoError(t, err)

	approved, err := repo.Approve(context.Background(), p.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, "alice", approved.ApprovedBy)

	_, err = repo.Approve(context.Background(), p.ID, "bob")
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	reverted, err := repo.Revert(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDiscovered, reverted.Status)
	assert.Nil(t, reverted.ApprovedAt)

	ignored, err := repo.Ignore(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusIgnored, ignored.Status)
	assert.Nil(t, ignored.ApprovedAt)
}

func TestRepositoryIgnoreClearsPriorApproval(t *testing.T) {
	repo := newTestRepository(t)
	p, err := repo.Add(context.Background(), Pattern{Name: "a", Confidence: 0.8})
	require.NoError(t, err)
	_, err = repo.Approve(context.Background(), p.ID, "alice")
	require.NoError(t, err)
	_, err = repo.Revert(context.Background(), p.ID)
	require.NoError(t, err)
	_, err = repo.Approve(context.Background(), p.ID, "alice")
	require.NoError(t, err)

	_, err = repo.Revert(context.Background(), p.ID)
	require.NoError(t, err)
	ignored, err := repo.Ignore(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Empty(t, ignored.ApprovedBy)
}

func TestRepositoryQueryFilterSortPaginate(t *testing.T) {
	repo := newTestRepository(t)
	for i, conf := range []float64{0.9, 0.6, 0.3} {
		_, err := repo.Add(context.Background(), Pattern{
			Name:       []string{"zeta", "beta", "alpha"}[i],
			Category:   CategorySecurity,
			Confidence: conf,
		})
		require.NoError(t, err)
	}

	result, err := repo.Query(context.Background(), QueryOptions{
		Filter: Filter{Categories: []Category{CategorySecurity}},
		Sort:   Sort{Field: SortByName, Direction: Ascending},
	})
	require.NoError(t, err)
	require.Len(t, result.Patterns, 3)
	assert.Equal(t, "alpha", result.Patterns[0].Name)
	assert.Equal(t, "beta", result.Patterns[1].Name)
	assert.Equal(t, "zeta", result.Patterns[2].Name)
	assert.Equal(t, 3, result.Total)
	assert.False(t, result.HasMore)

	paged, err := repo.Query(context.Background(), QueryOptions{
		Sort:       Sort{Field: SortByName, Direction: Ascending},
		Pagination: Pagination{Offset: 0, Limit: 2},
	})
	require.NoError(t, err)
	assert.Len(t, paged.Patterns, 2)
	assert.True(t, paged.HasMore)
}

func TestRepositoryQueryMinConfidence(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.Add(context.Background(), Pattern{Name: "a", Confidence: 0.9})
	require.NoError(t, err)
	_, err = repo.Add(context.Background(), Pattern{Name: "b", Confidence: 0.3})
	require.NoError(t, err)

	min := 0.5
	result, err := repo.Query(context.Background(), QueryOptions{Filter: Filter{MinConfidence: &min}})
	require.NoError(t, err)
	require.Len(t, result.Patterns, 1)
	assert.Equal(t, "a", result.Patterns[0].Name)
}

func TestRepositoryGetByFileAndDelete(t *testing.T) {
	repo := newTestRepository(t)
	p, err := repo.Add(context.Background(), Pattern{
		Name:       "a",
		Confidence: 0.8,
		Locations:  []Location{{File: "main.go", Line: 3}},
	})
	require.NoError(t, err)

	byFile, err := repo.GetByFile(context.Background(), "main.go")
	require.NoError(t, err)
	require.Len(t, byFile, 1)

	require.NoError(t, repo.Delete(context.Background(), p.ID))
	byFile, err = repo.GetByFile(context.Background(), "main.go")
	require.NoError(t, err)
	assert.Empty(t, byFile)

	_, err = repo.Get(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryEventsFireOnMutation(t *testing.T) {
	repo := newTestRepository(t)
	var added, approved int
	repo.On(EventPatternAdded, func(e Event) { added++ })
	repo.On(EventPatternApproved, func(e Event) { approved++ })

	p, err := repo.Add(context.Background(), Pattern{Name: "a", Confidence: 0.8})
	require.NoError(t, err)
	_, err = repo.Approve(context.Background(), p.ID, "alice")
	require.NoError(t, err)

	assert.Equal(t, 1, added)
	assert.Equal(t, 1, approved)
}

func TestRepositoryEventHandlerPanicDoesNotCorruptState(t *testing.T) {
	repo := newTestRepository(t)
	repo.On(EventPatternAdded, func(e Event) { panic("boom") })

	p, err := repo.Add(context.Background(), Pattern{Name: "a", Confidence: 0.8})
	require.NoError(t, err)

	fetched, err := repo.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, fetched.ID)
}

func TestRepositorySaveAllAndReload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "patterns")
	store := NewStore(dir, nil)
	repo := NewRepository(store, nil)
	require.NoError(t, repo.Initialize(context.Background()))

	_, err := repo.Add(context.Background(), Pattern{Name: "a", Confidence: 0.8})
	require.NoError(t, err)
	require.NoError(t, repo.SaveAll(context.Background()))

	reloaded := NewRepository(NewStore(dir, nil), nil)
	require.NoError(t, reloaded.Initialize(context.Background()))
	all, err := reloaded.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "a", all[0].Name)
}

func TestRepositoryCountWithFilter(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.Add(context.Background(), Pattern{Name: "a", Category: CategorySecurity, Confidence: 0.8})
	require.NoError(t, err)
	_, err = repo.Add(context.Background(), Pattern{Name: "b", Category: CategoryErrors, Confidence: 0.8})
	require.NoError(t, err)

	n, err := repo.Count(context.Background(), Filter{Categories: []Category{CategorySecurity}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRepositoryOperationsRequireInitialize(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "patterns"), nil)
	repo := NewRepository(store, nil)
	_, err := repo.Add(context.Background(), Pattern{Name: "a"})
	assert.ErrorIs(t, err, ErrNotInitialized)
}
