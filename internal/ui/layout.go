package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutTotalsWidth is the minimum width to show the line total column.
	LayoutTotalsWidth = 120
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = 500 * time.Millisecond

	// ToastLimit is the number of toasts shown in the footer at once.
	ToastLimit = 3
)
