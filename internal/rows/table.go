package rows

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine defaults.
const (
	DefaultBatchSize     = 10
	DefaultCreateTimeout = 30 * time.Second
	DefaultUpdateTimeout = 15 * time.Second
	DefaultPersistDelay  = 250 * time.Millisecond
	DefaultRefreshDelay  = 300 * time.Millisecond
)

// Options configure a Table. Kind, OwnerID, API and Blank are required.
type Options[T Record[T]] struct {
	Kind    string // table kind, e.g. "supplies"
	OwnerID int64  // owning shock
	API     API[T]
	Storage Storage
	Notify  Notifier
	// Refresh asks the owner to refetch server rows. It is invoked from a
	// timer goroutine and must not block.
	Refresh func()
	// Blank builds an empty row with domain defaults.
	Blank  func(uid string) T
	Logger *zap.Logger

	BatchSize     int
	CreateTimeout time.Duration
	UpdateTimeout time.Duration
	SnapshotTTL   time.Duration
	PersistDelay  time.Duration // negative writes synchronously
	RefreshDelay  time.Duration // negative refreshes synchronously

	NewUID func() string
	Now    func() time.Time
}

func (o *Options[T]) applyDefaults() {
	if o.Notify == nil {
		o.Notify = nopNotifier{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.CreateTimeout <= 0 {
		o.CreateTimeout = DefaultCreateTimeout
	}
	if o.UpdateTimeout <= 0 {
		o.UpdateTimeout = DefaultUpdateTimeout
	}
	if o.SnapshotTTL <= 0 {
		o.SnapshotTTL = DefaultSnapshotTTL
	}
	if o.PersistDelay == 0 {
		o.PersistDelay = DefaultPersistDelay
	}
	if o.RefreshDelay == 0 {
		o.RefreshDelay = DefaultRefreshDelay
	}
	if o.NewUID == nil {
		o.NewUID = uuid.NewString
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// FailureRecord is a retained failed commit attempt.
type FailureRecord[T any] struct {
	Position int
	UID      string
	Message  string
	Row      T // row content as sent
}

// Table is one editable line-item table: the local row store, its pending
// tracker, the reorder remapper and the batch validator. All methods are
// safe for concurrent use.
type Table[T Record[T]] struct {
	opts      Options[T]
	logger    *zap.Logger
	persister *Persister[T]
	persistQ  Debouncer
	refreshQ  Debouncer
	gate      *runGate

	mu         sync.Mutex
	rows       []T
	pending    *Tracker
	edits      map[string]uint64 // uid -> edit generation
	failures   map[string]FailureRecord[T]
	orderDirty bool
	orderSeq   uint64
	recovered  bool
	closed     bool
}

// New builds a Table seeded with the initial server rows.
func New[T Record[T]](opts Options[T], initial []T) (*Table[T], error) {
	if opts.Kind == "" {
		return nil, fmt.Errorf("table kind is required")
	}
	if opts.API == nil {
		return nil, fmt.Errorf("%s table requires an api", opts.Kind)
	}
	if opts.Blank == nil {
		return nil, fmt.Errorf("%s table requires a blank row factory", opts.Kind)
	}
	opts.applyDefaults()
	logger := opts.Logger.Named(opts.Kind).With(zap.Int64("owner", opts.OwnerID))

	t := &Table[T]{
		opts:   opts,
		logger: logger,
		persister: NewPersister[T](opts.Storage, StorageKey(opts.Kind, opts.OwnerID),
			OwnerKey(opts.OwnerID), opts.SnapshotTTL, opts.Now, logger),
		gate:     newRunGate(logger),
		pending:  NewTracker(),
		edits:    make(map[string]uint64),
		failures: make(map[string]FailureRecord[T]),
	}
	t.rows = Replace(initial, nil, opts.NewUID)
	return t, nil
}

// Kind returns the table kind.
func (t *Table[T]) Kind() string { return t.opts.Kind }

// OwnerID returns the owning shock id.
func (t *Table[T]) OwnerID() int64 { return t.opts.OwnerID }

// Rows returns a copy of the current collection.
func (t *Table[T]) Rows() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.rows)
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

// Row returns the row at pos.
func (t *Table[T]) Row(pos int) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pos < 0 || pos >= len(t.rows) {
		var zero T
		return zero, false
	}
	return t.rows[pos], true
}

// Pending returns the tracked positions.
func (t *Table[T]) Pending() PendingState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending.State()
}

// IsModified reports whether pos is tracked as modified.
func (t *Table[T]) IsModified(pos int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending.IsModified(pos)
}

// IsNew reports whether pos is tracked as new.
func (t *Table[T]) IsNew(pos int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pending.IsNew(pos)
}

// OrderDirty reports whether a reorder is waiting for SaveOrder.
func (t *Table[T]) OrderDirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.orderDirty
}

// Failures returns the retained failure records ordered by position.
func (t *Table[T]) Failures() []FailureRecord[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failuresLocked()
}

// IsFailed reports whether the row at pos has a failure record.
func (t *Table[T]) IsFailed(pos int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pos < 0 || pos >= len(t.rows) {
		return false
	}
	_, ok := t.failures[t.rows[pos].RowUID()]
	return ok
}

// Reconcile merges freshly fetched server rows into the collection. With
// nothing pending and no unsaved order the server rows replace the
// collection outright.
func (t *Table[T]) Reconcile(server []T) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	if t.pending.Empty() && !t.orderDirty {
		t.rows = Replace(server, t.rows, t.opts.NewUID)
	} else {
		t.rows = Merge(server, t.rows, t.pending.State(), t.opts.NewUID)
	}
	for uid := range t.failures {
		if t.indexLocked(uid) < 0 {
			delete(t.failures, uid)
		}
	}
}

// locator resolves a row position. It runs with t.mu held.
type locator func() (int, error)

func (t *Table[T]) atPos(pos int) locator {
	return func() (int, error) {
		if pos < 0 || pos >= len(t.rows) {
			return -1, ErrOutOfRange
		}
		return pos, nil
	}
}

func (t *Table[T]) atUID(uid string) locator {
	return func() (int, error) {
		if pos := t.indexLocked(uid); pos >= 0 {
			return pos, nil
		}
		return -1, ErrUnknownRow
	}
}

// Position returns the current position of the row with uid.
func (t *Table[T]) Position(uid string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pos := t.indexLocked(uid)
	return pos, pos >= 0
}

// Edit sets one field of the row at pos and tracks it as modified.
func (t *Table[T]) Edit(pos int, field, value string) error {
	return t.update(t.atPos(pos), editField[T](field, value))
}

// EditUID is Edit for the row identified by uid, wherever it sits when the
// edit lands.
func (t *Table[T]) EditUID(uid, field, value string) error {
	return t.update(t.atUID(uid), editField[T](field, value))
}

func editField[T Record[T]](field, value string) func(T) (T, error) {
	return func(row T) (T, error) {
		next, err := row.WithField(field, value)
		if err != nil {
			return row, fmt.Errorf("edit %s: %w", field, err)
		}
		return next, nil
	}
}

// Update replaces the row at pos with fn's result and tracks it as
// modified. Rows tracked as new stay new.
func (t *Table[T]) Update(pos int, fn func(T) (T, error)) error {
	return t.update(t.atPos(pos), fn)
}

func (t *Table[T]) update(locate locator, fn func(T) (T, error)) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	pos, err := locate()
	if err != nil {
		t.mu.Unlock()
		return err
	}
	current := t.rows[pos]
	next, err := fn(current)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	t.rows[pos] = next.WithUID(current.RowUID())
	t.markEditedLocked(pos)
	t.mu.Unlock()

	t.schedulePersist()
	return nil
}

// Add appends a blank row, tracks it as new and returns its position.
func (t *Table[T]) Add() (int, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return -1, ErrClosed
	}
	uid := t.opts.NewUID()
	t.rows = append(t.rows, t.opts.Blank(uid).WithUID(uid))
	pos := len(t.rows) - 1
	t.pending.MarkNew(pos)
	t.edits[uid]++
	t.mu.Unlock()

	t.schedulePersist()
	return pos, nil
}

// Remove deletes the row at pos from the collection only, dropping its
// tracking and failure record and shifting later positions in one step.
func (t *Table[T]) Remove(pos int) (T, bool) {
	t.mu.Lock()
	row, _, _, ok := t.removeLocked(pos)
	t.mu.Unlock()
	if ok {
		t.schedulePersist()
	}
	return row, ok
}

// Delete removes the row at pos and, when it is persisted, deletes it on
// the server. A failed server delete puts the row back where it was.
func (t *Table[T]) Delete(ctx context.Context, pos int) error {
	return t.deleteRow(ctx, t.atPos(pos))
}

// DeleteUID is Delete for the row identified by uid.
func (t *Table[T]) DeleteUID(ctx context.Context, uid string) error {
	return t.deleteRow(ctx, t.atUID(uid))
}

func (t *Table[T]) deleteRow(ctx context.Context, locate locator) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	pos, err := locate()
	if err != nil {
		t.mu.Unlock()
		return err
	}
	row, wasModified, wasNew, _ := t.removeLocked(pos)
	t.mu.Unlock()
	t.schedulePersist()
	if row.RowID() == 0 {
		return nil
	}

	_, err = guard(ctx, t.opts.UpdateTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.opts.API.Delete(ctx, row)
	})
	if err != nil {
		msg := classify(ctx, err)
		t.logger.Warn("delete row failed", zap.Int64("id", row.RowID()), zap.String("error", msg))
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return err
		}
		at := min(pos, len(t.rows))
		t.rows = slices.Insert(t.rows, at, row)
		t.pending.InsertAt(at)
		if wasModified {
			t.pending.MarkModified(at)
		}
		if wasNew {
			t.pending.MarkNew(at)
		}
		t.mu.Unlock()
		t.schedulePersist()
		t.opts.Notify.Error(fmt.Sprintf("Delete failed: %s", msg))
		return err
	}
	t.opts.Notify.Success("Row deleted")
	return nil
}

// Move reorders the row identified by activeUID onto the slot of overUID
// and returns its new position. Tracked positions follow the moved rows.
func (t *Table[T]) Move(activeUID, overUID string) (int, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return -1, ErrClosed
	}
	from, to := t.indexLocked(activeUID), t.indexLocked(overUID)
	if from < 0 || to < 0 {
		t.mu.Unlock()
		return -1, ErrUnknownRow
	}
	if from == to {
		t.mu.Unlock()
		return from, nil
	}
	t.rows = MoveIndex(t.rows, from, to)
	t.pending.Move(from, to)
	t.orderDirty = true
	t.orderSeq++
	t.mu.Unlock()

	t.logger.Debug("row moved", zap.Int("from", from), zap.Int("to", to))
	t.schedulePersist()
	return to, nil
}

// SaveOrder persists the current row order on the server.
func (t *Table[T]) SaveOrder(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	seq := t.orderSeq
	ids := make([]int64, 0, len(t.rows))
	for _, row := range t.rows {
		if id := row.RowID(); id != 0 {
			ids = append(ids, id)
		}
	}
	t.mu.Unlock()

	_, err := guard(ctx, t.opts.UpdateTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.opts.API.Reorder(ctx, t.opts.OwnerID, ids)
	})
	if err != nil {
		msg := classify(ctx, err)
		t.logger.Warn("save order failed", zap.String("error", msg))
		t.opts.Notify.Error(fmt.Sprintf("Order not saved: %s", msg))
		return err
	}

	t.mu.Lock()
	if t.orderSeq == seq {
		t.orderDirty = false
	}
	t.mu.Unlock()
	t.opts.Notify.Success("Order saved")
	t.scheduleRefresh()
	return nil
}

// MarkModified tracks pos as modified.
func (t *Table[T]) MarkModified(pos int) {
	t.track(pos, func() { t.markEditedLocked(pos) })
}

// MarkNew tracks pos as new.
func (t *Table[T]) MarkNew(pos int) {
	t.track(pos, func() {
		t.pending.MarkNew(pos)
		t.edits[t.rows[pos].RowUID()]++
	})
}

// ClearPending stops tracking pos.
func (t *Table[T]) ClearPending(pos int) {
	t.track(pos, func() { t.pending.Clear(pos) })
}

func (t *Table[T]) track(pos int, fn func()) {
	t.mu.Lock()
	if t.closed || pos < 0 || pos >= len(t.rows) {
		t.mu.Unlock()
		return
	}
	fn()
	t.mu.Unlock()
	t.schedulePersist()
}

// PendingRecovery returns a restorable snapshot the first time it is
// called. Stale or foreign snapshots are deleted without being offered.
func (t *Table[T]) PendingRecovery(ctx context.Context) (Snapshot[T], bool) {
	t.mu.Lock()
	if t.closed || t.recovered {
		t.mu.Unlock()
		return Snapshot[T]{}, false
	}
	t.recovered = true
	t.mu.Unlock()
	return t.persister.Load(ctx)
}

// Restore overwrites the collection and pending state from snap.
func (t *Table[T]) Restore(snap Snapshot[T]) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	restored := make([]T, len(snap.Rows))
	for i, row := range snap.Rows {
		if row.RowUID() == "" {
			row = row.WithUID(t.opts.NewUID())
		}
		restored[i] = row
	}
	inRange := func(ps []int) []int {
		return slices.DeleteFunc(slices.Clone(ps), func(p int) bool { return p < 0 || p >= len(restored) })
	}
	t.rows = restored
	t.pending = TrackerFrom(PendingState{Modified: inRange(snap.Modified), New: inRange(snap.New)})
	t.edits = make(map[string]uint64, len(restored))
	for _, p := range t.pending.State().Union() {
		t.edits[restored[p].RowUID()]++
	}
	t.failures = make(map[string]FailureRecord[T])
	t.mu.Unlock()

	t.logger.Info("pending changes restored", zap.Int("rows", len(restored)))
	t.opts.Notify.Info("Unsaved changes restored")
}

// DiscardRecovery deletes the stored snapshot.
func (t *Table[T]) DiscardRecovery(ctx context.Context) {
	t.persister.Clear(ctx)
}

// Recover offers a stored snapshot to confirm, which may block, and
// restores it when accepted. It reports whether a restore happened.
func (t *Table[T]) Recover(ctx context.Context, confirm func(Snapshot[T]) bool) bool {
	snap, ok := t.PendingRecovery(ctx)
	if !ok {
		return false
	}
	if confirm == nil || !confirm(snap) {
		t.DiscardRecovery(ctx)
		return false
	}
	t.Restore(snap)
	return true
}

// Flush writes (or clears) the snapshot now instead of waiting for the
// scheduled write.
func (t *Table[T]) Flush() {
	t.persistQ.Cancel()
	t.flush()
}

// Close tears the table down. The snapshot is flushed first so pending
// edits survive; later callbacks no longer mutate state.
func (t *Table[T]) Close() {
	t.persistQ.Stop()
	t.refreshQ.Stop()
	t.flush()
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

func (t *Table[T]) flush() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	rows := slices.Clone(t.rows)
	state := t.pending.State()
	t.mu.Unlock()

	ctx := context.Background()
	if state.Empty() {
		t.persister.Clear(ctx)
		return
	}
	t.persister.Save(ctx, rows, state)
}

func (t *Table[T]) schedulePersist() {
	t.persistQ.Schedule(t.opts.PersistDelay, t.flush)
}

func (t *Table[T]) scheduleRefresh() {
	if t.opts.Refresh == nil {
		return
	}
	t.refreshQ.Schedule(t.opts.RefreshDelay, t.opts.Refresh)
}

func (t *Table[T]) markEditedLocked(pos int) {
	t.edits[t.rows[pos].RowUID()]++
	if !t.pending.IsNew(pos) {
		t.pending.MarkModified(pos)
	}
}

func (t *Table[T]) removeLocked(pos int) (row T, wasModified, wasNew, ok bool) {
	if t.closed || pos < 0 || pos >= len(t.rows) {
		return row, false, false, false
	}
	row = t.rows[pos]
	wasModified, wasNew = t.pending.IsModified(pos), t.pending.IsNew(pos)
	t.rows = slices.Delete(t.rows, pos, pos+1)
	t.pending.RemoveAt(pos)
	delete(t.failures, row.RowUID())
	delete(t.edits, row.RowUID())
	return row, wasModified, wasNew, true
}

func (t *Table[T]) indexLocked(uid string) int {
	if uid == "" {
		return -1
	}
	return slices.IndexFunc(t.rows, func(row T) bool { return row.RowUID() == uid })
}

func (t *Table[T]) failuresLocked() []FailureRecord[T] {
	out := make([]FailureRecord[T], 0, len(t.failures))
	for uid, rec := range t.failures {
		rec.Position = t.indexLocked(uid)
		if rec.Position < 0 {
			continue
		}
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b FailureRecord[T]) int { return a.Position - b.Position })
	return out
}
