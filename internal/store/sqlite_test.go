package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSaveAndGet(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	record := map[string]float64{"area_km2": 12.5, "int_area": 10.0}
	saved, err := s.Save(ctx, "biodiversity-intactness", "park.geojson", record)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "biodiversity-intactness", saved.Slug)
	assert.Equal(t, "park.geojson", saved.Input)
	assert.JSONEq(t, `{"area_km2":12.5,"int_area":10}`, saved.Record)

	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, saved.Slug, got.Slug)
	assert.Equal(t, saved.Record, got.Record)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	_, err := s.Get(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListFiltersBySlug(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Save(ctx, "tree-loss", "a.geojson", map[string]int{"n": i})
		require.NoError(t, err)
	}
	_, err := s.Save(ctx, "land-use", "b.geojson", map[string]int{"n": 9})
	require.NoError(t, err)

	treeLoss, err := s.List(ctx, Filter{Slug: "tree-loss"})
	require.NoError(t, err)
	assert.Len(t, treeLoss, 3)
	for _, r := range treeLoss {
		assert.Equal(t, "tree-loss", r.Slug)
	}

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestListLimitAndOffset(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.Save(ctx, "human-impact", "c.geojson", map[string]int{"n": i})
		require.NoError(t, err)
	}

	page, err := s.List(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := s.List(ctx, Filter{Limit: 10, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, rest, 3)

	// no overlap between pages
	seen := map[string]bool{}
	for _, r := range page {
		seen[r.ID] = true
	}
	for _, r := range rest {
		assert.False(t, seen[r.ID])
	}
}

func TestListEmpty(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	results, err := s.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Empty(t, results)
}
