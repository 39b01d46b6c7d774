// Package rows implements the reconciliation and batch validation engine
// behind each editable line-item table.
//
// # Overview
//
// A Table holds the rows an operator is editing for one shock and one table
// kind (supplies or workforce). Server data arrives periodically and must
// be folded in without discarding edits that have not been committed yet.
// Commits go through a validator that tolerates partial failure and keeps
// the failed rows around for a targeted retry.
//
// # Components
//
//   - merge.go: Merge and Replace, the pure reconciliation functions
//   - tracker.go: Tracker, the modified/new position sets
//   - remap.go: Remap and MoveIndex for reorders
//   - persist.go: Persister, crash-recovery snapshots in durable storage
//   - debounce.go: Debouncer, the single-slot delayed task used for
//     snapshot writes and refreshes
//   - table.go: Table, the local row store tying the above together
//   - validator.go: ValidateAll, ValidateRow and RetryFailed
//
// # Positions
//
// Pending rows are tracked by position, not by uid. Every structural change
// to the collection (remove, insert, move) goes through the tracker in the
// same critical section so positions always point at the current row.
// Results of network calls are matched back by uid, because the collection
// may have changed while the request was in flight.
//
// # Data Flow
//
//	poller ──> state.Store ──> ui ──> Table.Reconcile(server rows)
//	                               ├─> Table.Edit / Add / Delete / Move
//	                               │        └─> Debouncer ──> Persister ──> Storage
//	                               └─> Table.ValidateAll / ValidateRow / RetryFailed
//	                                        ├─> API (create batch, update, acknowledge)
//	                                        └─> Notifier, Refresh
//
// # Error Handling
//
// Reconciliation has no failure path. Storage errors are logged and
// swallowed. Request errors and timeouts become FailureRecords and an
// aggregate notification; they are never returned from ValidateAll.
//
// # Concurrency
//
// All Table methods lock an internal mutex and never hold it across a
// network call. Only one validation run is admitted at a time (ErrBusy).
// After Close the table ignores late callbacks.
package rows
