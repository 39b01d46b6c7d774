package rows

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// DefaultSnapshotTTL is the age after which a persisted snapshot is
// discarded unread.
const DefaultSnapshotTTL = 24 * time.Hour

// Snapshot is the crash-recovery record written for one owner.
type Snapshot[T any] struct {
	OwnerKey string    `json:"ownerKey"`
	Rows     []T       `json:"rows"`
	Modified []int     `json:"modified"`
	New      []int     `json:"new"`
	SavedAt  time.Time `json:"timestamp"`
}

// Pending returns the tracked positions stored in the snapshot.
func (s Snapshot[T]) Pending() PendingState {
	return PendingState{Modified: s.Modified, New: s.New}
}

// StorageKey derives the storage key for a table kind and owner.
func StorageKey(kind string, ownerID int64) string {
	return fmt.Sprintf("%s-pending-%d", kind, ownerID)
}

// OwnerKey derives the owner key recorded inside snapshots.
func OwnerKey(ownerID int64) string {
	return fmt.Sprintf("shock-%d", ownerID)
}

// Persister reads and writes snapshots for a single storage key. Storage
// failures are logged and swallowed; callers never see them.
type Persister[T any] struct {
	store    Storage
	key      string
	ownerKey string
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewPersister builds a Persister. A nil store yields a persister that
// does nothing.
func NewPersister[T any](store Storage, key, ownerKey string, ttl time.Duration, now func() time.Time, logger *zap.Logger) *Persister[T] {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persister[T]{store: store, key: key, ownerKey: ownerKey, ttl: ttl, now: now, logger: logger}
}

// Key returns the storage key.
func (p *Persister[T]) Key() string { return p.key }

// Save writes the snapshot, stamping the owner key and time.
func (p *Persister[T]) Save(ctx context.Context, rows []T, pending PendingState) {
	if p.store == nil {
		return
	}
	snap := Snapshot[T]{
		OwnerKey: p.ownerKey,
		Rows:     rows,
		Modified: pending.Modified,
		New:      pending.New,
		SavedAt:  p.now(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		p.logger.Warn("encode pending snapshot", zap.String("key", p.key), zap.Error(err))
		return
	}
	if err := p.store.Set(ctx, p.key, data); err != nil {
		p.logger.Warn("write pending snapshot", zap.String("key", p.key), zap.Error(err))
		return
	}
	p.logger.Debug("pending snapshot written", zap.String("key", p.key), zap.Int("rows", len(rows)))
}

// Clear deletes the stored snapshot.
func (p *Persister[T]) Clear(ctx context.Context) {
	if p.store == nil {
		return
	}
	if err := p.store.Delete(ctx, p.key); err != nil {
		p.logger.Warn("delete pending snapshot", zap.String("key", p.key), zap.Error(err))
	}
}

// Load returns a snapshot that is fresh and belongs to this owner. Stale,
// foreign or undecodable entries are deleted and reported as absent.
func (p *Persister[T]) Load(ctx context.Context) (Snapshot[T], bool) {
	if p.store == nil {
		return Snapshot[T]{}, false
	}
	data, ok, err := p.store.Get(ctx, p.key)
	if err != nil {
		p.logger.Warn("read pending snapshot", zap.String("key", p.key), zap.Error(err))
		return Snapshot[T]{}, false
	}
	if !ok {
		return Snapshot[T]{}, false
	}

	var snap Snapshot[T]
	if err := json.Unmarshal(data, &snap); err != nil {
		p.logger.Warn("decode pending snapshot", zap.String("key", p.key), zap.Error(err))
		p.Clear(ctx)
		return Snapshot[T]{}, false
	}
	if snap.OwnerKey != p.ownerKey {
		p.logger.Info("discarding snapshot for another owner",
			zap.String("key", p.key), zap.String("owner", snap.OwnerKey))
		p.Clear(ctx)
		return Snapshot[T]{}, false
	}
	if age := p.now().Sub(snap.SavedAt); age >= p.ttl {
		p.logger.Info("discarding stale snapshot", zap.String("key", p.key), zap.Duration("age", age))
		p.Clear(ctx)
		return Snapshot[T]{}, false
	}
	return snap, true
}
