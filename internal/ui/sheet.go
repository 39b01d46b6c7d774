package ui

import (
	"context"
	"sync"
	"time"

	"github.com/five82/quotedesk/internal/quote"
	"github.com/five82/quotedesk/internal/rows"
	"github.com/five82/quotedesk/internal/state"
)

// Sheet is one editable line table as the UI sees it. Implementations must
// be safe for concurrent use: actions run inside tea.Cmds.
type Sheet interface {
	Kind() string
	Title() string
	Columns() []quote.Column
	Len() int
	Line(pos int) (quote.Line, bool)
	// Position resolves a row uid to its current position.
	Position(uid string) (int, bool)
	IsModified(pos int) bool
	IsNew(pos int) bool
	IsFailed(pos int) bool
	FailureMessage(pos int) string
	Pending() rows.PendingState
	OrderDirty() bool
	Progress() (rows.Progress, bool)

	Reconcile(snap state.Snapshot)
	// Edit, Delete and ValidateRow address rows by uid so a refresh that
	// shifts positions between key press and commit cannot retarget them.
	Edit(uid, field, value string) error
	Add() (int, error)
	Delete(ctx context.Context, uid string) error
	// Move shifts the row at pos by delta and returns its new position.
	Move(pos, delta int) (int, error)
	SaveOrder(ctx context.Context) error
	ValidateAll(ctx context.Context) (rows.Result, error)
	ValidateRow(ctx context.Context, uid string) (rows.Result, error)
	RetryFailed(ctx context.Context) (rows.Result, error)
	DismissFailures()

	// OfferRecovery loads a stored snapshot once; the offer is held until
	// AcceptRecovery or DeclineRecovery.
	OfferRecovery(ctx context.Context) (RecoveryOffer, bool)
	AcceptRecovery()
	DeclineRecovery(ctx context.Context)
}

// RecoveryOffer describes a restorable snapshot.
type RecoveryOffer struct {
	Kind    string
	Rows    int
	Pending int
	SavedAt time.Time
}

// LineRecord is a quote line the row engine can track.
type LineRecord[T any] interface {
	rows.Record[T]
	quote.Line
}

// TableSheet adapts a rows.Table of quote lines to Sheet.
type TableSheet[T LineRecord[T]] struct {
	table   *rows.Table[T]
	title   string
	columns []quote.Column
	pick    func(state.Snapshot) []T

	mu    sync.Mutex
	offer *rows.Snapshot[T]
}

// NewSheet wraps table. pick selects the table's server rows from a store
// snapshot.
func NewSheet[T LineRecord[T]](title string, table *rows.Table[T], columns []quote.Column, pick func(state.Snapshot) []T) *TableSheet[T] {
	return &TableSheet[T]{table: table, title: title, columns: columns, pick: pick}
}

var (
	_ Sheet = (*TableSheet[quote.SupplyLine])(nil)
	_ Sheet = (*TableSheet[quote.WorkforceLine])(nil)
)

// Table returns the wrapped table.
func (s *TableSheet[T]) Table() *rows.Table[T] { return s.table }

func (s *TableSheet[T]) Kind() string            { return s.table.Kind() }
func (s *TableSheet[T]) Title() string           { return s.title }
func (s *TableSheet[T]) Columns() []quote.Column { return s.columns }
func (s *TableSheet[T]) Len() int                { return s.table.Len() }

func (s *TableSheet[T]) Line(pos int) (quote.Line, bool) {
	row, ok := s.table.Row(pos)
	if !ok {
		return nil, false
	}
	return row, true
}

func (s *TableSheet[T]) IsModified(pos int) bool         { return s.table.IsModified(pos) }
func (s *TableSheet[T]) IsNew(pos int) bool              { return s.table.IsNew(pos) }
func (s *TableSheet[T]) IsFailed(pos int) bool           { return s.table.IsFailed(pos) }
func (s *TableSheet[T]) Pending() rows.PendingState      { return s.table.Pending() }
func (s *TableSheet[T]) OrderDirty() bool                { return s.table.OrderDirty() }
func (s *TableSheet[T]) Progress() (rows.Progress, bool) { return s.table.Progress() }

func (s *TableSheet[T]) FailureMessage(pos int) string {
	for _, f := range s.table.Failures() {
		if f.Position == pos {
			return f.Message
		}
	}
	return ""
}

// Reconcile merges the snapshot's rows unless the store has never loaded
// the shock.
func (s *TableSheet[T]) Reconcile(snap state.Snapshot) {
	if !snap.HasShock {
		return
	}
	s.table.Reconcile(s.pick(snap))
}

func (s *TableSheet[T]) Position(uid string) (int, bool) { return s.table.Position(uid) }

func (s *TableSheet[T]) Edit(uid, field, value string) error {
	return s.table.EditUID(uid, field, value)
}

func (s *TableSheet[T]) Add() (int, error) { return s.table.Add() }

func (s *TableSheet[T]) Delete(ctx context.Context, uid string) error {
	return s.table.DeleteUID(ctx, uid)
}

func (s *TableSheet[T]) Move(pos, delta int) (int, error) {
	active, ok := s.table.Row(pos)
	if !ok {
		return pos, rows.ErrOutOfRange
	}
	over, ok := s.table.Row(pos + delta)
	if !ok {
		return pos, nil
	}
	return s.table.Move(active.RowUID(), over.RowUID())
}

func (s *TableSheet[T]) SaveOrder(ctx context.Context) error { return s.table.SaveOrder(ctx) }

func (s *TableSheet[T]) ValidateAll(ctx context.Context) (rows.Result, error) {
	return s.table.ValidateAll(ctx)
}

func (s *TableSheet[T]) ValidateRow(ctx context.Context, uid string) (rows.Result, error) {
	return s.table.ValidateRowUID(ctx, uid)
}

func (s *TableSheet[T]) RetryFailed(ctx context.Context) (rows.Result, error) {
	return s.table.RetryFailed(ctx)
}

func (s *TableSheet[T]) DismissFailures() { s.table.DismissFailures() }

func (s *TableSheet[T]) OfferRecovery(ctx context.Context) (RecoveryOffer, bool) {
	snap, ok := s.table.PendingRecovery(ctx)
	if !ok {
		return RecoveryOffer{}, false
	}
	s.mu.Lock()
	s.offer = &snap
	s.mu.Unlock()
	return RecoveryOffer{
		Kind:    s.table.Kind(),
		Rows:    len(snap.Rows),
		Pending: snap.Pending().Len(),
		SavedAt: snap.SavedAt,
	}, true
}

func (s *TableSheet[T]) AcceptRecovery() {
	s.mu.Lock()
	offer := s.offer
	s.offer = nil
	s.mu.Unlock()
	if offer != nil {
		s.table.Restore(*offer)
	}
}

func (s *TableSheet[T]) DeclineRecovery(ctx context.Context) {
	s.mu.Lock()
	s.offer = nil
	s.mu.Unlock()
	s.table.DiscardRecovery(ctx)
}
