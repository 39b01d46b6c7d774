package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the status bar with all information.
func (m Model) renderHeader() string {
	// Header uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if !m.snapshot.HasShock {
		return m.renderConnectingHeader(styles, bg)
	}

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(m.buildStatusContent(styles, bg))
}

// renderConnectingHeader shows the loading/error state before the shock
// has been fetched once.
func (m Model) renderConnectingHeader(styles Styles, bg BgStyle) string {
	sep := bg.Spaces(2)

	if m.snapshot.LastError != nil {
		parts := []string{
			bg.Render("quotedesk", styles.Logo),
			bg.Render("API "+classifyConnectionError(m.snapshot.LastError), styles.DangerText.Bold(true)),
			bg.Render("Retrying...", styles.WarningText.Bold(true)),
		}
		return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
	}

	return styles.Header.Width(m.width).Render(
		bg.Render("quotedesk", styles.Logo) + sep +
			bg.Render(fmt.Sprintf("Loading shock #%d...", m.shockID), styles.WarningText.Bold(true)),
	)
}

// buildStatusContent builds the status bar content string.
func (m Model) buildStatusContent(styles Styles, bg BgStyle) string {
	compact := m.width < LayoutCompactWidth
	shock := m.snapshot.Shock

	parts := []string{bg.Render("quotedesk", styles.Logo)}

	label := fmt.Sprintf("#%d", shock.ID)
	if shock.Label != "" {
		label += " " + truncate(shock.Label, ternaryInt(compact, 16, 32))
	}
	parts = append(parts, bg.Render(label, styles.Text.Bold(true)))

	if shock.Status != "" {
		parts = append(parts, bg.Render(titleCase(shock.Status), styles.StatusStyle(shock.Status)))
	}
	if shock.AssignmentReference != "" && !compact {
		parts = append(parts,
			bg.Render("Ref:", styles.MutedText)+bg.Space()+bg.Render(shock.AssignmentReference, styles.Text))
	}

	// Pending count across all sheets
	pending, failed := 0, 0
	for _, s := range m.sheets {
		pending += s.Pending().Len()
		for pos := 0; pos < s.Len(); pos++ {
			if s.IsFailed(pos) {
				failed++
			}
		}
	}
	pendingStyle := styles.MutedText
	if pending > 0 {
		pendingStyle = styles.WarningText
	}
	failedStyle := styles.MutedText
	if failed > 0 {
		failedStyle = styles.DangerText
	}
	parts = append(parts,
		bg.Render("Pending:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", pending), pendingStyle)+
			bg.Spaces(2)+bg.Render("Failed:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", failed), failedStyle))

	if progress := m.progressLabel(); progress != "" {
		parts = append(parts, bg.Render(progress, styles.AccentText.Bold(true)))
	}

	if ts := formatTimestamp(m.lastUpdated, time.Now()); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	if m.snapshot.LastError != nil {
		maxErr := ternaryInt(compact, 40, 80)
		parts = append(parts,
			bg.Render("OFFLINE", styles.DangerText.Bold(true))+bg.Space()+
				bg.Render(truncate(m.snapshot.LastError.Error(), maxErr), styles.DangerText))
	}

	return bg.Join(parts, "  ")
}

// progressLabel reports a running validation on any sheet.
func (m Model) progressLabel() string {
	for _, s := range m.sheets {
		if p, running := s.Progress(); running {
			return fmt.Sprintf("Validating %s %d/%d", s.Title(), p.Current, p.Total)
		}
	}
	return ""
}

// formatTimestamp formats the last update time with a relative indicator.
func formatTimestamp(last, now time.Time) string {
	if last.IsZero() {
		return ""
	}

	since := now.Sub(last)
	out := last.Format("15:04:05")

	switch {
	case since < time.Minute:
		out += " (now)"
	case since < time.Hour:
		out += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		out += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return out
}

// classifyConnectionError returns a short description of the connection error.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "TIMEOUT"
	case strings.Contains(msg, "status 404"):
		return "SHOCK NOT FOUND"
	default:
		return "ERROR"
	}
}

type commandHint struct {
	key, desc string
	enabled   bool
}

// commandHints lists the command bar hints. Validation triggers are
// disabled while a run is in progress.
func commandHints(compact, validating bool) []commandHint {
	hints := []commandHint{
		{"i", "Edit", true},
		{"a", "Add", true},
		{"d", "Delete", true},
		{"J/K", "Move", true},
		{"v", "Validate", !validating},
		{"enter", "Row", !validating},
		{"r", "Retry", !validating},
		{"?", "More", true},
	}
	if compact {
		hints = hints[:5]
	}
	return hints
}

// renderCommandBar renders the sheet tabs followed by the command hints.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	tabs := make([]string, 0, len(m.sheets))
	for i, s := range m.sheets {
		style := styles.MutedText
		if i == m.tab {
			style = styles.AccentText.Bold(true).Underline(true)
		}
		tabs = append(tabs, bg.Render(s.Title(), style))
	}

	colon := bg.Sep(":")
	segments := []string{bg.Join(tabs, " │ ")}
	for _, c := range commandHints(m.width < LayoutCompactWidth, m.validating()) {
		keyStyle, descStyle := styles.AccentText, styles.MutedText
		if !c.enabled {
			keyStyle, descStyle = styles.FaintText, styles.FaintText.Strikethrough(true)
		}
		segments = append(segments, bg.Render(c.key, keyStyle)+colon+bg.Render(c.desc, descStyle))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// renderRecoveryBody describes a recovery offer.
func renderRecoveryBody(offer RecoveryOffer, now time.Time) string {
	age := now.Sub(offer.SavedAt).Round(time.Minute)
	return fmt.Sprintf("Found %d unsaved change(s) in %s from %s (%s ago).\nRestore them?",
		offer.Pending, offer.Kind, offer.SavedAt.Local().Format("Jan 2 15:04"), age)
}

func ternaryInt(cond bool, a, b int) int {
	if cond {
		return a
	}
	return b
}
