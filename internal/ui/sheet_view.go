package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/five82/quotedesk/internal/notify"
	"github.com/five82/quotedesk/internal/quote"
)

// rowState is the badge shown in a row's first column.
type rowState int

const (
	stateSaved rowState = iota
	stateModified
	stateNew
	stateFailed
	stateValidated
)

func (s rowState) String() string {
	switch s {
	case stateModified:
		return "modified"
	case stateNew:
		return "new"
	case stateFailed:
		return "failed"
	case stateValidated:
		return "validated"
	default:
		return "saved"
	}
}

func (s rowState) marker() string {
	switch s {
	case stateModified:
		return "●"
	case stateNew:
		return "+"
	case stateFailed:
		return "✗"
	case stateValidated:
		return "✓"
	default:
		return " "
	}
}

// validatedLine is implemented by lines carrying the server's validated flag.
type validatedLine interface {
	IsValidated() bool
}

// stateOf ranks a failure above pending marks.
func stateOf(sheet Sheet, pos int, line quote.Line) rowState {
	switch {
	case sheet.IsFailed(pos):
		return stateFailed
	case sheet.IsNew(pos):
		return stateNew
	case sheet.IsModified(pos):
		return stateModified
	}
	if v, ok := line.(validatedLine); ok && v.IsValidated() {
		return stateValidated
	}
	return stateSaved
}

// renderSheet renders the active sheet in a titled box.
func (m Model) renderSheet() string {
	styles := m.theme.Styles()
	contentHeight := max(m.height-4, 3) // header, cmdbar, footer lines

	if len(m.sheets) == 0 {
		return lipgloss.Place(m.width, contentHeight, lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render("No tables"))
	}

	sheet := m.activeSheet()
	title := fmt.Sprintf("%s (%d)", sheet.Title(), sheet.Len())
	if pending := sheet.Pending().Len(); pending > 0 {
		title += fmt.Sprintf(" · %d pending", pending)
	}
	if sheet.OrderDirty() {
		title += " · order unsaved"
	}

	body := m.renderRows(sheet, m.width-2, contentHeight-2)
	return m.renderTitledBox(title, body, m.width, contentHeight, true)
}

// renderRows renders the column header, the visible rows and the total.
func (m Model) renderRows(sheet Sheet, width, height int) string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	bg := NewBgStyle(m.theme.FocusBg)
	cols := sheet.Columns()
	showTotal := m.width >= LayoutTotalsWidth

	var header strings.Builder
	header.WriteString(bg.Spaces(2))
	for i, c := range cols {
		style := styles.MutedText.Bold(true)
		if i == m.column {
			style = styles.AccentText.Bold(true)
		}
		header.WriteString(bg.Render(fit(c.Title, c.Width), style))
		header.WriteString(bg.Space())
	}
	if showTotal {
		header.WriteString(bg.Render(fit("Total", 12), styles.MutedText.Bold(true)))
	}

	lines := []string{header.String()}
	count := sheet.Len()
	if count == 0 {
		lines = append(lines, bg.Render("No lines yet, press a to add one", styles.MutedText))
		return strings.Join(lines, "\n")
	}

	visible := max(height-2, 1)
	cursor := m.cursor()
	start := 0
	if cursor >= visible {
		start = cursor - visible + 1
	}

	total := decimal.Zero
	for pos := 0; pos < count; pos++ {
		line, ok := sheet.Line(pos)
		if !ok {
			continue
		}
		total = total.Add(line.Total())
		if pos < start || pos >= start+visible {
			continue
		}
		lines = append(lines, m.renderRow(sheet, pos, line, width, showTotal))
	}

	summary := styles.MutedText.Render("Total ") + styles.Text.Bold(true).Render(total.StringFixed(2))
	lines = append(lines, lipgloss.PlaceHorizontal(width, lipgloss.Right, summary))
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(sheet Sheet, pos int, line quote.Line, width int, showTotal bool) string {
	selected := pos == m.cursor()
	bgColor := m.theme.FocusBg
	if selected {
		bgColor = m.theme.SelectionBg
	}
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()

	st := stateOf(sheet, pos, line)
	markerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StatusColors[st.String()]))
	textStyle := styles.Text
	if selected {
		textStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
	}

	var b strings.Builder
	b.WriteString(bg.Render(st.marker(), markerStyle))
	b.WriteString(bg.Space())
	for i, c := range sheet.Columns() {
		if selected && i == m.column && m.editing {
			b.WriteString(lipgloss.NewStyle().
				Background(lipgloss.Color(m.theme.SurfaceAlt)).
				Width(c.Width).
				Render(m.input.View()))
			b.WriteString(bg.Space())
			continue
		}
		cellStyle := textStyle
		if selected && i == m.column {
			cellStyle = cellStyle.Underline(true).Bold(true)
		}
		b.WriteString(bg.Render(fit(line.Value(c.Field), c.Width), cellStyle))
		b.WriteString(bg.Space())
	}
	if showTotal {
		b.WriteString(bg.Render(fit(line.Total().StringFixed(2), 12), textStyle))
	}
	return bg.FillLine(b.String(), width)
}

// renderFooter shows the selected row's failure and the active toasts.
func (m Model) renderFooter() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var parts []string
	if len(m.sheets) > 0 {
		if msg := m.activeSheet().FailureMessage(m.cursor()); msg != "" {
			parts = append(parts, bg.Render("Row failed:", styles.DangerText)+bg.Space()+
				bg.Render(truncate(msg, 60), styles.Text))
		}
	}

	toasts := m.toasts.Active()
	if len(toasts) > ToastLimit {
		toasts = toasts[len(toasts)-ToastLimit:]
	}
	for _, t := range toasts {
		parts = append(parts, bg.Render(t.Message, m.toastStyle(styles, t.Level)))
	}

	if m.editing {
		parts = append(parts, bg.Render("enter", styles.AccentText)+bg.Sep(":")+
			bg.Render("Save", styles.MutedText)+bg.Spaces(2)+
			bg.Render("esc", styles.AccentText)+bg.Sep(":")+bg.Render("Cancel", styles.MutedText))
	}

	return styles.Footer.Width(m.width).Render(bg.Join(parts, "  │  "))
}

func (m Model) toastStyle(styles Styles, level notify.Level) lipgloss.Style {
	switch level {
	case notify.LevelSuccess:
		return styles.SuccessText
	case notify.LevelWarning:
		return styles.WarningText
	case notify.LevelError:
		return styles.DangerText
	default:
		return styles.InfoText
	}
}

// renderTitledBox renders content in a box with the title embedded in the top border.
// When focused is true, uses BorderFocus color and FocusBg background.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	var borderColorStr, bgColorStr string
	if focused {
		borderColorStr = m.theme.BorderFocus
		bgColorStr = m.theme.FocusBg
	} else {
		borderColorStr = m.theme.Border
		bgColorStr = m.theme.SurfaceAlt
	}
	bg := NewBgStyle(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 0)
	title = truncate(title, max(innerWidth-4, 1))
	titleLen := lipgloss.Width(title)
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).Background(lipgloss.Color(bgColorStr))
	contentLines := strings.Split(content, "\n")
	boxHeight := max(height-2, 0)

	padded := make([]string, 0, boxHeight)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		padded = append(padded,
			bg.Render("│", borderStyle)+contentStyle.Render(line)+bg.Render("│", borderStyle))
	}

	return topBorder + "\n" + strings.Join(padded, "\n") + "\n" + bottomBorder
}

// deletePrompt describes the row about to be deleted.
func deletePrompt(sheet Sheet, pos int) string {
	line, ok := sheet.Line(pos)
	if !ok {
		return fmt.Sprintf("Row %d", pos+1)
	}
	label := strings.TrimSpace(line.Value("label"))
	if label == "" {
		label = "(no label)"
	}
	if line.RowID() == 0 {
		return fmt.Sprintf("Row %d %q has not been saved yet and will be dropped.", pos+1, label)
	}
	return fmt.Sprintf("Row %d %q will be deleted on the server.", pos+1, label)
}
