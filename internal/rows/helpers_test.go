package rows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"
)

type testRow struct {
	UID    string `json:"uid"`
	ID     int64  `json:"id"`
	Label  string `json:"label"`
	Amount int    `json:"amount"`
}

func (r testRow) RowUID() string             { return r.UID }
func (r testRow) RowID() int64               { return r.ID }
func (r testRow) WithUID(uid string) testRow { r.UID = uid; return r }
func (r testRow) WithID(id int64) testRow    { r.ID = id; return r }

func (r testRow) WithField(name, value string) (testRow, error) {
	switch name {
	case "label":
		r.Label = value
	case "amount":
		n, err := strconv.Atoi(value)
		if err != nil {
			return r, fmt.Errorf("amount: %w", err)
		}
		r.Amount = n
	default:
		return r, fmt.Errorf("unknown field %q", name)
	}
	return r, nil
}

func blankRow(uid string) testRow { return testRow{UID: uid} }

// seqUIDs returns a deterministic uid generator.
func seqUIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

type fakeAPI struct {
	mu sync.Mutex

	nextID     int64
	batches    [][]testRow
	updates    []testRow
	acks       []testRow
	deletes    []testRow
	orders     [][]int64
	failBatch  map[int]error // by batch call index
	failUpdate map[int64]error
	failAck    map[int64]error
	failDelete error
	failOrder  error
	blockFor   time.Duration // delay honouring ctx
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		nextID:     100,
		failBatch:  map[int]error{},
		failUpdate: map[int64]error{},
		failAck:    map[int64]error{},
	}
}

func (f *fakeAPI) wait(ctx context.Context) error {
	if f.blockFor <= 0 {
		return nil
	}
	select {
	case <-time.After(f.blockFor):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeAPI) CreateBatch(ctx context.Context, _ int64, rows []testRow) ([]int64, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	call := len(f.batches)
	f.batches = append(f.batches, rows)
	if err := f.failBatch[call]; err != nil {
		return nil, err
	}
	ids := make([]int64, len(rows))
	for i := range rows {
		f.nextID++
		ids[i] = f.nextID
	}
	return ids, nil
}

func (f *fakeAPI) Update(ctx context.Context, row testRow) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, row)
	return f.failUpdate[row.ID]
}

func (f *fakeAPI) Acknowledge(_ context.Context, row testRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, row)
	return f.failAck[row.ID]
}

func (f *fakeAPI) Delete(_ context.Context, row testRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, row)
	return f.failDelete
}

func (f *fakeAPI) Reorder(_ context.Context, _ int64, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, ids)
	return f.failOrder
}

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	failSet error
	failGet error
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, false, m.failGet
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) add(level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, level+": "+msg)
}

func (n *recordingNotifier) Success(msg string) { n.add("success", msg) }
func (n *recordingNotifier) Info(msg string)    { n.add("info", msg) }
func (n *recordingNotifier) Warning(msg string) { n.add("warning", msg) }
func (n *recordingNotifier) Error(msg string)   { n.add("error", msg) }

func (n *recordingNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.messages) == 0 {
		return ""
	}
	return n.messages[len(n.messages)-1]
}

var errNetwork = errors.New("network unreachable")

type fixture struct {
	table    *Table[testRow]
	api      *fakeAPI
	store    *memStore
	notify   *recordingNotifier
	refreshN *int
	now      *time.Time
}

// newFixture builds a table with synchronous persistence and refresh so
// tests observe side effects without sleeping.
func newFixture(t *testing.T, initial []testRow) fixture {
	t.Helper()
	api := newFakeAPI()
	store := newMemStore()
	notify := &recordingNotifier{}
	refreshes := 0
	var refreshMu sync.Mutex
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	table, err := New(Options[testRow]{
		Kind:    "supplies",
		OwnerID: 42,
		API:     api,
		Storage: store,
		Notify:  notify,
		Refresh: func() {
			refreshMu.Lock()
			refreshes++
			refreshMu.Unlock()
		},
		Blank:        blankRow,
		PersistDelay: -1,
		RefreshDelay: -1,
		NewUID:       seqUIDs("u"),
		Now:          func() time.Time { return now },
	}, initial)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(table.Close)
	return fixture{table: table, api: api, store: store, notify: notify, refreshN: &refreshes, now: &now}
}

func labels(rows []testRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Label
	}
	return out
}
