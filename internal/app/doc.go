// Package app is the composition root for quotedesk.
//
// Run loads the config and preferences, opens the pending-snapshot store,
// builds the quote API client and starts a Poller that keeps a shared
// state.Store current. Each line table (supplies and workforce) gets a
// rows.Table wrapped as a ui.Sheet, and the TUI runs until the user quits
// or the context is cancelled.
//
// Startup tolerates an unreachable API so that unsaved rows from an
// earlier session can still be recovered offline. A shock the API reports
// as missing is fatal.
//
// ListPending and ClearPending inspect and prune stored snapshots without
// starting the UI.
package app
