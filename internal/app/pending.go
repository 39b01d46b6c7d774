package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/five82/quotedesk/internal/config"
	"github.com/five82/quotedesk/internal/rows"
	"github.com/five82/quotedesk/internal/storage"
)

const pendingMarker = "-pending-"

// PendingEntry summarizes one stored snapshot of unsaved rows.
type PendingEntry struct {
	Key     string
	Kind    string
	ShockID int64
	Rows    int
	Pending int
	SavedAt time.Time
	// Stale snapshots are past their TTL and will not be offered again.
	Stale bool
	// Err is set when the entry could not be decoded.
	Err error
}

// ListPending lists the snapshots in the configured store.
func ListPending(ctx context.Context, configPath string) ([]PendingEntry, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	store, err := openStore(cfg, false, zap.NewNop())
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()
	return listPending(ctx, store, cfg.SnapshotTTL, time.Now())
}

// ClearPending deletes the snapshot of one table kind for a shock.
func ClearPending(ctx context.Context, configPath, kind string, shockID int64) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := openStore(cfg, false, zap.NewNop())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return clearPending(ctx, store, kind, shockID)
}

func listPending(ctx context.Context, store storage.Store, ttl time.Duration, now time.Time) ([]PendingEntry, error) {
	if ttl <= 0 {
		ttl = rows.DefaultSnapshotTTL
	}
	keys, err := store.Keys(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}

	var entries []PendingEntry
	for _, key := range keys {
		kind, idText, ok := strings.Cut(key, pendingMarker)
		if !ok {
			continue
		}
		entry := PendingEntry{Key: key, Kind: kind}
		entry.ShockID, _ = strconv.ParseInt(idText, 10, 64)

		raw, found, err := store.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		if !found {
			continue
		}
		var snap rows.Snapshot[json.RawMessage]
		if err := json.Unmarshal(raw, &snap); err != nil {
			entry.Err = err
			entries = append(entries, entry)
			continue
		}
		entry.Rows = len(snap.Rows)
		entry.Pending = snap.Pending().Len()
		entry.SavedAt = snap.SavedAt
		entry.Stale = now.Sub(snap.SavedAt) >= ttl
		entries = append(entries, entry)
	}
	return entries, nil
}

func clearPending(ctx context.Context, store storage.Store, kind string, shockID int64) error {
	key := rows.StorageKey(kind, shockID)
	if _, found, err := store.Get(ctx, key); err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	} else if !found {
		return fmt.Errorf("no pending %s for shock %d", kind, shockID)
	}
	if err := store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
