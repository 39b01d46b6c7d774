package ui

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/quotedesk/internal/quote"
	"github.com/five82/quotedesk/internal/rows"
	"github.com/five82/quotedesk/internal/state"
	"github.com/five82/quotedesk/internal/storage"
)

type fakeSupplyAPI struct {
	mu      sync.Mutex
	nextID  int64
	deleted []int64
}

func (a *fakeSupplyAPI) CreateBatch(_ context.Context, _ int64, lines []quote.SupplyLine) ([]int64, error) {
	ids := make([]int64, len(lines))
	for i := range lines {
		if lines[i].Label == "" {
			return nil, errors.New("label: required")
		}
		a.nextID++
		ids[i] = a.nextID
	}
	return ids, nil
}

func (a *fakeSupplyAPI) Update(context.Context, quote.SupplyLine) error      { return nil }
func (a *fakeSupplyAPI) Acknowledge(context.Context, quote.SupplyLine) error { return nil }
func (a *fakeSupplyAPI) Reorder(context.Context, int64, []int64) error       { return nil }

func (a *fakeSupplyAPI) Delete(_ context.Context, line quote.SupplyLine) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.deleted = append(a.deleted, line.ID)
	return nil
}

func newSupplySheet(t *testing.T, store rows.Storage, initial []quote.SupplyLine) *TableSheet[quote.SupplyLine] {
	t.Helper()
	return newSupplySheetWith(t, &fakeSupplyAPI{nextID: 100}, store, initial)
}

func newSupplySheetWith(t *testing.T, api *fakeSupplyAPI, store rows.Storage, initial []quote.SupplyLine) *TableSheet[quote.SupplyLine] {
	t.Helper()
	table, err := rows.New(rows.Options[quote.SupplyLine]{
		Kind:         "supplies",
		OwnerID:      42,
		API:          api,
		Storage:      store,
		Blank:        quote.NewSupplyLine,
		PersistDelay: -1,
		RefreshDelay: -1,
	}, initial)
	require.NoError(t, err)
	t.Cleanup(table.Close)
	return NewSheet("Supplies", table, quote.SupplyColumns, func(s state.Snapshot) []quote.SupplyLine {
		return s.Supplies
	})
}

func TestTableSheet_MoveByDelta(t *testing.T) {
	sheet := newSupplySheet(t, nil, []quote.SupplyLine{{ID: 1, Label: "a"}, {ID: 2, Label: "b"}, {ID: 3, Label: "c"}})

	to, err := sheet.Move(0, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, to)
	assert.True(t, sheet.OrderDirty())

	line, ok := sheet.Line(1)
	require.True(t, ok)
	assert.Equal(t, "a", line.Value("label"))

	to, err = sheet.Move(0, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, to, "moving past the top is a no-op")

	_, err = sheet.Move(9, 1)
	assert.ErrorIs(t, err, rows.ErrOutOfRange)
}

func TestTableSheet_ReconcileSkipsUnloadedSnapshot(t *testing.T) {
	sheet := newSupplySheet(t, nil, []quote.SupplyLine{{ID: 1, Label: "a"}})

	sheet.Reconcile(state.Snapshot{})
	assert.Equal(t, 1, sheet.Len())

	sheet.Reconcile(state.Snapshot{HasShock: true, Supplies: []quote.SupplyLine{{ID: 1, Label: "a"}, {ID: 2, Label: "b"}}})
	assert.Equal(t, 2, sheet.Len())
}

func TestTableSheet_FailureMessageByPosition(t *testing.T) {
	sheet := newSupplySheet(t, nil, nil)
	pos, err := sheet.Add()
	require.NoError(t, err)

	// A blank line has no label.
	res, err := sheet.ValidateAll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.True(t, sheet.IsFailed(pos))
	assert.NotEmpty(t, sheet.FailureMessage(pos))
	assert.Empty(t, sheet.FailureMessage(pos+1))

	sheet.DismissFailures()
	assert.False(t, sheet.IsFailed(pos))
}

func TestTableSheet_RecoveryOfferRoundTrip(t *testing.T) {
	store := storage.NewMemory()
	first := newSupplySheet(t, store, []quote.SupplyLine{{ID: 1, Label: "a", Quantity: decimal.NewFromInt(1)}})
	require.NoError(t, first.Edit(uidAt(t, first, 0), "label", "edited"))

	second := newSupplySheet(t, store, []quote.SupplyLine{{ID: 1, Label: "a"}})
	offer, ok := second.OfferRecovery(t.Context())
	require.True(t, ok)
	assert.Equal(t, "supplies", offer.Kind)
	assert.Equal(t, 1, offer.Rows)
	assert.Equal(t, 1, offer.Pending)

	second.AcceptRecovery()
	line, _ := second.Line(0)
	assert.Equal(t, "edited", line.Value("label"))
	assert.True(t, second.IsModified(0))

	_, ok = second.OfferRecovery(t.Context())
	assert.False(t, ok, "offered once")
}

func TestTableSheet_DeclineRecoveryDeletesSnapshot(t *testing.T) {
	store := storage.NewMemory()
	first := newSupplySheet(t, store, []quote.SupplyLine{{ID: 1, Label: "a"}})
	require.NoError(t, first.Edit(uidAt(t, first, 0), "label", "edited"))

	second := newSupplySheet(t, store, nil)
	_, ok := second.OfferRecovery(t.Context())
	require.True(t, ok)
	second.DeclineRecovery(t.Context())

	_, found, err := store.Get(t.Context(), rows.StorageKey("supplies", 42))
	require.NoError(t, err)
	assert.False(t, found)
}

func uidAt(t *testing.T, s Sheet, pos int) string {
	t.Helper()
	line, ok := s.Line(pos)
	require.True(t, ok)
	return line.RowUID()
}

func TestTableSheet_AddressesRowsByUID(t *testing.T) {
	api := &fakeSupplyAPI{nextID: 100}
	sheet := newSupplySheetWith(t, api, nil, []quote.SupplyLine{{ID: 1, Label: "a"}, {ID: 2, Label: "b"}})
	uid := uidAt(t, sheet, 1)

	sheet.Reconcile(state.Snapshot{HasShock: true, Supplies: []quote.SupplyLine{{ID: 2, Label: "b"}}})
	pos, ok := sheet.Position(uid)
	require.True(t, ok)
	assert.Equal(t, 0, pos)

	require.NoError(t, sheet.Edit(uid, "label", "edited"))
	line, _ := sheet.Line(0)
	assert.Equal(t, "edited", line.Value("label"))

	require.NoError(t, sheet.Delete(t.Context(), uid))
	assert.Equal(t, []int64{2}, api.deleted)
	assert.ErrorIs(t, sheet.Delete(t.Context(), uid), rows.ErrUnknownRow)
}
