// Package ui provides the terminal line-item editor for quotedesk.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model holds presentation state only:
// every row collection lives in a rows.Table behind the Sheet interface,
// so the engine's tracking, recovery and validation rules apply no matter
// which key triggered an action.
//
// # Package Structure
//
//   - app.go: Model, Update loop, key dispatch, commands and Run
//   - sheet.go: Sheet interface and the generic TableSheet adapter
//   - sheet_view.go: row table, row state badges, footer and boxes
//   - header.go: status bar and command bar
//   - modal.go: confirm dialogs (delete, snapshot recovery)
//   - keys.go, help.go: key bindings and the help overlay
//   - theme.go, style_helpers.go: palettes and background-safe rendering
//
// # Event Flow
//
//  1. Init fetches the store snapshot and asks each sheet for a recovery offer
//  2. Every tick re-reads state.Store; a new revision reconciles all sheets
//  3. Local edits (cell edit, add, move, dismiss) call the sheet directly
//  4. Server actions (validate, retry, delete, save order) run as tea.Cmds and
//     report back with actionDoneMsg; their outcome reaches the user through
//     the notify.Queue toasts shown in the footer
//
// # Key Bindings
//
//   - tab/shift+tab: Switch between supplies and workforce
//   - j/k, h/l: Move the row and column cursor
//   - i: Edit the selected cell (enter saves, esc cancels)
//   - a: Add a row, d: Delete the selected row
//   - J/K: Move the selected row, s: Save the row order
//   - v: Validate all pending rows, enter: Validate the selected row
//   - r: Retry failed rows, x: Dismiss failures
//   - ctrl+r: Refresh now, T: Cycle theme, ?: Help, q/ctrl+c: Quit
package ui
