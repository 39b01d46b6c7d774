package app

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/quotedesk/internal/quote"
	"github.com/five82/quotedesk/internal/rows"
	"github.com/five82/quotedesk/internal/storage"
)

func putSnapshot(t *testing.T, store storage.Store, kind string, shockID int64, snap rows.Snapshot[quote.SupplyLine]) {
	t.Helper()
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	require.NoError(t, store.Set(t.Context(), rows.StorageKey(kind, shockID), raw))
}

func TestListPending(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := storage.NewMemory()

	putSnapshot(t, store, "supplies", 42, rows.Snapshot[quote.SupplyLine]{
		OwnerKey: rows.OwnerKey(42),
		Rows:     []quote.SupplyLine{{ID: 1, Label: "a"}, {Label: "b"}},
		Modified: []int{0},
		New:      []int{1},
		SavedAt:  now.Add(-time.Hour),
	})
	putSnapshot(t, store, "workforce", 7, rows.Snapshot[quote.SupplyLine]{
		OwnerKey: rows.OwnerKey(7),
		SavedAt:  now.Add(-48 * time.Hour),
	})
	require.NoError(t, store.Set(t.Context(), "supplies-pending-9", []byte("{not json")))
	require.NoError(t, store.Set(t.Context(), "unrelated", []byte("x")))

	entries, err := listPending(t.Context(), store, 0, now)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	byKey := make(map[string]PendingEntry, len(entries))
	for _, e := range entries {
		byKey[e.Key] = e
	}

	sup := byKey["supplies-pending-42"]
	assert.Equal(t, "supplies", sup.Kind)
	assert.Equal(t, int64(42), sup.ShockID)
	assert.Equal(t, 2, sup.Rows)
	assert.Equal(t, 2, sup.Pending)
	assert.False(t, sup.Stale)
	assert.NoError(t, sup.Err)

	assert.True(t, byKey["workforce-pending-7"].Stale)
	assert.Error(t, byKey["supplies-pending-9"].Err)
}

func TestClearPending(t *testing.T) {
	store := storage.NewMemory()
	putSnapshot(t, store, "supplies", 42, rows.Snapshot[quote.SupplyLine]{SavedAt: time.Now()})

	require.NoError(t, clearPending(t.Context(), store, "supplies", 42))
	_, found, err := store.Get(t.Context(), rows.StorageKey("supplies", 42))
	require.NoError(t, err)
	assert.False(t, found)

	err = clearPending(t.Context(), store, "supplies", 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pending supplies for shock 42")
}

func TestListPending_ConfiguredStore(t *testing.T) {
	cfgPath := writeConfig(t, "storage_path = \""+t.TempDir()+"/pending.db\"\n")
	entries, err := ListPending(t.Context(), cfgPath)
	require.NoError(t, err)
	assert.Empty(t, entries)

	err = ClearPending(t.Context(), cfgPath, "supplies", 1)
	assert.Error(t, err)
}

func TestListPending_ExpiresAtTTL(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := storage.NewMemory()
	putSnapshot(t, store, "supplies", 1, rows.Snapshot[quote.SupplyLine]{
		OwnerKey: rows.OwnerKey(1),
		SavedAt:  now.Add(-time.Hour),
	})

	entries, err := listPending(t.Context(), store, time.Hour, now)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Stale, "a snapshot exactly at its TTL is no longer offered")

	entries, err = listPending(t.Context(), store, time.Hour+time.Second, now)
	require.NoError(t, err)
	assert.False(t, entries[0].Stale)
}
