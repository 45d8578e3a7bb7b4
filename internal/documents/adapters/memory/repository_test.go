package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"visit-dashboard-service/internal/documents/core/domain"
	"visit-dashboard-service/internal/documents/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insert(t *testing.T, r *Repository, collection, id string, created time.Time, fields map[string]any) {
	t.Helper()
	require.NoError(t, r.Insert(context.Background(), &domain.Document{
		ID:         id,
		Collection: collection,
		Fields:     fields,
		CreatedAt:  created,
		UpdatedAt:  created,
	}))
}

func ids(docs []domain.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}

func TestRepository_ListOrdering(t *testing.T) {
	r := NewRepository()
	base := time.Date(2024, 9, 12, 0, 0, 0, 0, time.UTC)

	insert(t, r, "diaryEntries", "old", base, map[string]any{"date": "2024-09-12"})
	insert(t, r, "diaryEntries", "undated", base.Add(time.Minute), map[string]any{"title": "no date"})
	insert(t, r, "diaryEntries", "new", base.Add(2*time.Minute), map[string]any{"date": "2024-09-20"})

	diary, _ := domain.LookupCollection("diaryEntries")
	docs, err := r.List(context.Background(), ports.ListFilter{Collection: diary})
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "old", "undated"}, ids(docs))

	insert(t, r, "wishlist", "b", base, map[string]any{"order": 1})
	insert(t, r, "wishlist", "a", base.Add(time.Minute), map[string]any{"order": float64(0)})
	insert(t, r, "wishlist", "c", base.Add(2*time.Minute), map[string]any{})

	wishlist, _ := domain.LookupCollection("wishlist")
	docs, err = r.List(context.Background(), ports.ListFilter{Collection: wishlist})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(docs))
}

func TestRepository_ListOrderingNullAndMixedTypes(t *testing.T) {
	r := NewRepository()
	base := time.Date(2024, 9, 12, 0, 0, 0, 0, time.UTC)

	insert(t, r, "packing", "null", base, map[string]any{"order": nil})
	insert(t, r, "packing", "flag", base.Add(time.Minute), map[string]any{"order": true})
	insert(t, r, "packing", "num", base.Add(2*time.Minute), map[string]any{"order": 2})
	insert(t, r, "packing", "str", base.Add(3*time.Minute), map[string]any{"order": "z"})
	insert(t, r, "packing", "missing", base.Add(4*time.Minute), map[string]any{})

	packing, _ := domain.LookupCollection("packing")
	docs, err := r.List(context.Background(), ports.ListFilter{Collection: packing})
	require.NoError(t, err)
	// jsonb type order, then null and missing last by creation time
	assert.Equal(t, []string{"str", "num", "flag", "null", "missing"}, ids(docs))
}

func TestRepository_InsertBatchIsAllOrNothing(t *testing.T) {
	r := NewRepository()
	now := time.Now().UTC()
	insert(t, r, "wishlist", "taken", now, map[string]any{"title": "Pizza"})

	err := r.Insert(context.Background(),
		&domain.Document{ID: "new-1", Collection: "wishlist", Fields: map[string]any{}, CreatedAt: now, UpdatedAt: now},
		&domain.Document{ID: "taken", Collection: "wishlist", Fields: map[string]any{}, CreatedAt: now, UpdatedAt: now},
		&domain.Document{ID: "new-2", Collection: "wishlist", Fields: map[string]any{}, CreatedAt: now, UpdatedAt: now},
	)
	require.Error(t, err)

	n, err := r.Count(context.Background(), "wishlist")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRepository_ToggleBoolConcurrent(t *testing.T) {
	r := NewRepository()
	now := time.Now().UTC()
	insert(t, r, "wishlist", "w1", now, map[string]any{"title": "Central Park"})

	const flips = 50
	var wg sync.WaitGroup
	for i := 0; i < flips; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.ToggleBool(context.Background(), "wishlist", "w1", "completed", time.Now().UTC())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	d, err := r.Get(context.Background(), "wishlist", "w1")
	require.NoError(t, err)
	// an even number of flips from missing (false) ends false
	assert.Equal(t, false, d.Fields["completed"])
}

func TestRepository_ToggleBoolErrors(t *testing.T) {
	r := NewRepository()
	insert(t, r, "diaryEntries", "d1", time.Now().UTC(), map[string]any{"favorite": "yes"})

	_, err := r.ToggleBool(context.Background(), "diaryEntries", "d1", "favorite", time.Now())
	assert.ErrorIs(t, err, ports.ErrNotBoolean)

	_, err = r.ToggleBool(context.Background(), "diaryEntries", "nope", "favorite", time.Now())
	assert.ErrorIs(t, err, ports.ErrDocumentNotFound)
}

func TestRepository_ListFilterUsesDefaults(t *testing.T) {
	r := NewRepository()
	now := time.Now().UTC()

	insert(t, r, "wishlist", "untyped", now, map[string]any{"title": "Statue of Liberty"})
	insert(t, r, "wishlist", "wish", now, map[string]any{"type": "wishlist"})
	insert(t, r, "wishlist", "shop", now, map[string]any{"type": "shopping"})

	wishlist, _ := domain.LookupCollection("wishlist")

	docs, err := r.List(context.Background(), ports.ListFilter{Collection: wishlist, Field: "type", Value: "wishlist"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"untyped", "wish"}, ids(docs))

	docs, err = r.List(context.Background(), ports.ListFilter{Collection: wishlist, Field: "type", Value: "shopping"})
	require.NoError(t, err)
	assert.Equal(t, []string{"shop"}, ids(docs))
}

func TestRepository_MergeAndArrays(t *testing.T) {
	r := NewRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	insert(t, r, "diaryEntries", "d1", now, map[string]any{"title": "First day"})

	later := now.Add(time.Hour)
	require.NoError(t, r.Merge(ctx, "diaryEntries", "d1", map[string]any{"favorite": true}, later))
	require.NoError(t, r.AppendToArray(ctx, "diaryEntries", "d1", "photos", map[string]any{"key": "k1"}, later))
	require.NoError(t, r.AppendToArray(ctx, "diaryEntries", "d1", "photos", map[string]any{"key": "k2"}, later))

	d, err := r.Get(ctx, "diaryEntries", "d1")
	require.NoError(t, err)
	assert.Equal(t, "First day", d.Fields["title"])
	assert.Equal(t, true, d.Fields["favorite"])
	assert.Len(t, d.Fields["photos"], 2)
	assert.True(t, d.UpdatedAt.Equal(later))

	removed, err := r.RemoveFromArray(ctx, "diaryEntries", "d1", "photos", "key", "k1", later)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = r.RemoveFromArray(ctx, "diaryEntries", "d1", "photos", "key", "k1", later)
	require.NoError(t, err)
	assert.False(t, removed)

	assert.ErrorIs(t, r.Merge(ctx, "diaryEntries", "missing", map[string]any{"x": 1}, later), ports.ErrDocumentNotFound)
	assert.ErrorIs(t, r.Delete(ctx, "diaryEntries", "missing"), ports.ErrDocumentNotFound)
}

func TestRepository_GetReturnsCopy(t *testing.T) {
	r := NewRepository()
	insert(t, r, "contacts", "c1", time.Now(), map[string]any{"name": "Aspen"})

	d, err := r.Get(context.Background(), "contacts", "c1")
	require.NoError(t, err)
	d.Fields["name"] = "changed"

	again, err := r.Get(context.Background(), "contacts", "c1")
	require.NoError(t, err)
	assert.Equal(t, "Aspen", again.Fields["name"])
}

func TestRepository_ChangesFeed(t *testing.T) {
	r := NewRepository()
	ctx, cancel := context.WithCancel(context.Background())

	feed, err := r.Changes(ctx)
	require.NoError(t, err)

	insert(t, r, "packing", "p1", time.Now(), map[string]any{"title": "Gifts"})
	require.NoError(t, r.Delete(context.Background(), "packing", "p1"))

	c := <-feed
	assert.Equal(t, domain.Change{Collection: "packing", DocumentID: "p1", Op: domain.OpInsert}, c)
	c = <-feed
	assert.Equal(t, domain.OpDelete, c.Op)

	cancel()
	for range feed {
	}
}

func TestRepository_ChangesOverflowResyncs(t *testing.T) {
	r := NewRepository()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed, err := r.Changes(ctx)
	require.NoError(t, err)

	for i := 0; i < feedBuffer+5; i++ {
		insert(t, r, "contacts", fmt.Sprintf("c%d", i), time.Now(), map[string]any{})
	}

	sawResync := false
	for i := 0; i < feedBuffer; i++ {
		if (<-feed).IsResync() {
			sawResync = true
		}
	}
	assert.True(t, sawResync)
}
