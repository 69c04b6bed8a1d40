package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID    string      `json:"id"`
	Color string      `json:"color"`
	Seen  *Date       `json:"seen,omitempty"`
	Tags  Set[string] `json:"tags,omitempty"`
	Timestamps
}

type badWidget struct {
	Date string `json:"$date"`
	Timestamps
}

type noTimestamps struct {
	ID string `json:"id"`
}

func newTestStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	return NewStore(NewFileBackend(dir), opts...), dir
}

func TestTable_WriteAndGet(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	store, dir := newTestStore(t, WithClock(func() time.Time { return clock }))

	table, err := Register[widget](ctx, store, "widgets")
	require.NoError(t, err)

	seen := NewDate(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	w := &widget{ID: "W-1", Color: "red", Seen: &seen, Tags: NewSet("b", "a")}
	require.NoError(t, table.Write(ctx, w.ID, w))

	require.NotNil(t, w.CreatedAt)
	assert.True(t, clock.Equal(w.CreatedAt.Time))
	assert.True(t, clock.Equal(w.UpdatedAt.Time))

	// File lives under the sanitized id with tagged values on disk
	raw, err := os.ReadFile(filepath.Join(dir, "widgets", "w_1.json"))
	require.NoError(t, err)
	var onDisk map[string]any
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, map[string]any{"$date": "2024-01-02T03:04:05Z"}, onDisk["seen"])
	assert.Equal(t, map[string]any{"$set": []any{"a", "b"}}, onDisk["tags"])
	assert.Equal(t, map[string]any{"$date": "2024-05-01T10:00:00Z"}, onDisk["createdAt"])

	got, err := table.Get(ctx, "W-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "red", got.Color)
	assert.True(t, seen.Equal(got.Seen.Time))
	assert.Equal(t, []string{"a", "b"}, got.Tags.Items())
}

func TestTable_CreatedAtSetOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	store, _ := newTestStore(t, WithClock(func() time.Time { return now }))
	table, err := Register[widget](ctx, store, "widgets")
	require.NoError(t, err)

	require.NoError(t, table.Write(ctx, "a", &widget{ID: "a", Color: "red"}))

	now = now.Add(time.Hour)
	got, err := table.Get(ctx, "a")
	require.NoError(t, err)
	got.Color = "blue"
	require.NoError(t, table.Write(ctx, "a", got))

	reloaded, err := table.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "blue", reloaded.Color)
	assert.True(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC).Equal(reloaded.CreatedAt.Time))
	assert.True(t, now.Equal(reloaded.UpdatedAt.Time))
}

func TestTable_GetMissingIsCached(t *testing.T) {
	ctx := context.Background()
	store, dir := newTestStore(t)
	table, err := Register[widget](ctx, store, "widgets")
	require.NoError(t, err)

	got, err := table.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)

	// A file appearing behind the store's back is not seen: the miss is cached
	require.NoError(t, os.WriteFile(filepath.Join(dir, "widgets", "ghost.json"), []byte(`{"id":"ghost"}`), 0o644))
	got, err = table.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Re-registering resets the cache
	table, err = Register[widget](ctx, store, "widgets")
	require.NoError(t, err)
	got, err = table.Get(ctx, "ghost")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ghost", got.ID)
}

func TestTable_GetReturnsIndependentCopies(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	table, err := Register[widget](ctx, store, "widgets")
	require.NoError(t, err)
	require.NoError(t, table.Write(ctx, "a", &widget{ID: "a", Color: "red"}))

	first, err := table.Get(ctx, "a")
	require.NoError(t, err)
	first.Color = "mutated"

	second, err := table.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "red", second.Color)
}

func TestTable_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, dir := newTestStore(t)
	table, err := Register[widget](ctx, store, "widgets")
	require.NoError(t, err)
	require.NoError(t, table.Write(ctx, "a", &widget{ID: "a"}))

	require.NoError(t, table.Delete(ctx, "a"))
	require.NoError(t, table.Delete(ctx, "a"))

	got, err := table.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoFileExists(t, filepath.Join(dir, "widgets", "a.json"))
}

func TestTable_GetAll(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	table, err := Register[widget](ctx, store, "widgets")
	require.NoError(t, err)

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, table.Write(ctx, id, &widget{ID: id}))
	}
	require.NoError(t, table.Delete(ctx, "2"))

	all, err := table.GetAll(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(all))
	for _, w := range all {
		ids = append(ids, w.ID)
	}
	sort.Strings(ids)
	assert.Equal(t, []string{"1", "3"}, ids)
}

func TestStore_UnregisteredTablePanics(t *testing.T) {
	store, _ := newTestStore(t)

	assert.PanicsWithError(t, `storage configuration error on table "nope": table is not registered`, func() {
		_, _ = store.Get(context.Background(), "nope", "id")
	})
}

func TestStore_InvalidIDIsConfigurationError(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	table, err := Register[widget](ctx, store, "widgets")
	require.NoError(t, err)

	_, err = table.Get(ctx, "")
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	err = table.Write(ctx, "", &widget{})
	assert.ErrorAs(t, err, &cfgErr)
}

func TestRegister_RejectsBadRecordTypes(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	assert.Panics(t, func() {
		_, _ = Register[badWidget](ctx, store, "bad")
	})
	assert.Panics(t, func() {
		_, _ = Register[noTimestamps](ctx, store, "plain")
	})
}

func TestStore_DocumentAPI(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	store, _ := newTestStore(t, WithClock(func() time.Time { return now }))
	require.NoError(t, store.Register(ctx, "docs"))

	when := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Write(ctx, "docs", "x", map[string]any{
		"at":    when,
		"users": SetElements{"a"},
	}))

	doc, err := store.Get(ctx, "docs", "x")
	require.NoError(t, err)
	assert.True(t, when.Equal(doc["at"].(time.Time)))
	assert.True(t, now.Equal(doc["createdAt"].(time.Time)))
	assert.True(t, now.Equal(doc["updatedAt"].(time.Time)))
	assert.Equal(t, SetElements{"a"}, doc["users"])

	all, err := store.GetAll(ctx, "docs")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	missing, err := store.Get(ctx, "docs", "y")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_WriteRejectsNilDocument(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	require.NoError(t, store.Register(ctx, "docs"))

	var err error
	assert.NotPanics(t, func() {
		err = store.Write(ctx, "docs", "x", nil)
	})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "docs", cfgErr.Table)

	doc, err := store.Get(ctx, "docs", "x")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestStore_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	table, err := Register[widget](ctx, store, "widgets")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, table.Write(ctx, "shared", &widget{ID: "shared", Color: string(rune('a' + i))}))
		}(i)
	}
	wg.Wait()

	got, err := table.Get(ctx, "shared")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "shared", got.ID)
}

type recordingObserver struct {
	mu  sync.Mutex
	ops []string
}

func (o *recordingObserver) RecordStorageOperation(table, operation string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, table+":"+operation)
}

func TestStore_Observer(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	store, _ := newTestStore(t, WithObserver(obs))
	table, err := Register[widget](ctx, store, "widgets")
	require.NoError(t, err)

	require.NoError(t, table.Write(ctx, "a", &widget{ID: "a"}))
	_, err = table.Get(ctx, "a") // served from cache
	require.NoError(t, err)
	_, err = table.Get(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, table.Delete(ctx, "a"))

	assert.Equal(t, []string{"widgets:save", "widgets:load", "widgets:delete"}, obs.ops)
}
