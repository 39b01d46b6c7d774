// Package state holds the latest server view of the open shock.
//
// The poller writes, the UI reads:
//
//	Producer (Poller):             Consumer (UI):
//	┌────────────────────┐        ┌──────────────────────┐
//	│ FetchShock()       │        │                      │
//	│ FetchSupplies()    │        │                      │
//	│ FetchWorkforce()   │        │                      │
//	│      ↓             │        │                      │
//	│ store.Update()     │───────→│ store.Snapshot()     │
//	│      ↓             │(mutex) │      ↓               │
//	│  repeat...         │        │ table.Reconcile(...) │
//	└────────────────────┘        └──────────────────────┘
//
// Update keeps the previous rows when the fetch failed and only records the
// error, so the UI always has the last good server view. Every successful
// Update bumps Revision; the UI hands each new revision to the row tables
// exactly once, and the tables decide what to keep (pending rows win).
//
// Snapshot returns defensive copies. The zero Store is ready to use.
package state
