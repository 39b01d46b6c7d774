package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/quotedesk/internal/notify"
	"github.com/five82/quotedesk/internal/prefs"
	"github.com/five82/quotedesk/internal/rows"
	"github.com/five82/quotedesk/internal/state"
)

// Options configures the UI.
type Options struct {
	Context context.Context
	Store   *state.Store
	Sheets  []Sheet
	Toasts  *notify.Queue
	// Refresh asks for a server refresh ahead of the next poll.
	Refresh func()
	Logger  *zap.Logger

	ShockID    int64
	PollTick   time.Duration
	ThemeName  string
	InitialTab string
	PrefsPath  string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	store     *state.Store
	sheets    []Sheet
	toasts    *notify.Queue
	refresh   func()
	logger    *zap.Logger
	shockID   int64
	prefsPath string
	pollTick  time.Duration
	keys      keyMap

	// UI state
	theme  Theme
	width  int
	height int
	ready  bool

	// Data state
	snapshot    state.Snapshot
	revision    uint64
	lastUpdated time.Time

	// Sheet state
	tab     int
	cursors []int
	column  int

	// Cell editor, bound to the uid of the row it was opened on
	editing bool
	editUID string
	input   textinput.Model

	// Help overlay
	showHelp bool

	// Active modal and recovery offers waiting behind it
	modal  Modal
	offers []recoveryOfferMsg
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Nightfox"
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	toasts := opts.Toasts
	if toasts == nil {
		toasts = notify.NewQueue(logger, 0, 0)
	}

	refresh := opts.Refresh
	if refresh == nil {
		refresh = func() {}
	}

	tab := 0
	for i, s := range opts.Sheets {
		if s.Kind() == opts.InitialTab {
			tab = i
		}
	}

	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 128

	return Model{
		ctx:       ctx,
		store:     opts.Store,
		sheets:    opts.Sheets,
		toasts:    toasts,
		refresh:   refresh,
		logger:    logger,
		shockID:   opts.ShockID,
		prefsPath: opts.PrefsPath,
		pollTick:  pollTick,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(themeName),
		tab:       tab,
		cursors:   make([]int, len(opts.Sheets)),
		input:     input,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	for i, s := range m.sheets {
		cmds = append(cmds, offerRecoveryCmd(m.ctx, i, s))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, nil

	case recoveryOfferMsg:
		m.offers = append(m.offers, msg)
		m.nextOffer()
		return m, nil

	case actionDoneMsg:
		m.handleActionDone(msg)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		next, cmd, done := m.modal.Update(msg, m.keys)
		if done {
			m.modal = nil
			m.nextOffer()
		} else {
			m.modal = next
		}
		return m, cmd
	}

	if m.editing {
		return m.handleEditKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		m.switchTab(1)
		return m, nil

	case key.Matches(msg, m.keys.ShiftTab):
		m.switchTab(-1)
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.refresh()
		return m, nil
	}

	if len(m.sheets) == 0 {
		return m, nil
	}
	return m.handleSheetKey(msg)
}

// handleSheetKey processes navigation and row actions on the active sheet.
func (m Model) handleSheetKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sheet := m.activeSheet()
	pos := m.cursor()
	count := sheet.Len()

	switch {
	case key.Matches(msg, m.keys.Down):
		m.setCursor(pos + 1)
	case key.Matches(msg, m.keys.Up):
		m.setCursor(pos - 1)
	case key.Matches(msg, m.keys.Top):
		m.setCursor(0)
	case key.Matches(msg, m.keys.Bottom):
		m.setCursor(count - 1)
	case key.Matches(msg, m.keys.Left):
		if m.column > 0 {
			m.column--
		}
	case key.Matches(msg, m.keys.Right):
		if m.column < len(sheet.Columns())-1 {
			m.column++
		}

	case key.Matches(msg, m.keys.EditCell):
		return m.startEdit()

	case key.Matches(msg, m.keys.AddRow):
		added, err := sheet.Add()
		if err != nil {
			m.reportError("add row", err)
			return m, nil
		}
		m.setCursor(added)
		m.column = 0
		return m.startEdit()

	case key.Matches(msg, m.keys.DeleteRow):
		uid, ok := m.uidAt(pos)
		if !ok {
			return m, nil
		}
		m.modal = confirmModal{
			title: "Delete row?",
			body:  deletePrompt(sheet, pos),
			onYes: runAction(m.ctx, m.tab, "delete", func(ctx context.Context) error {
				return sheet.Delete(ctx, uid)
			}),
		}

	case key.Matches(msg, m.keys.MoveUp), key.Matches(msg, m.keys.MoveDown):
		delta := 1
		if key.Matches(msg, m.keys.MoveUp) {
			delta = -1
		}
		moved, err := sheet.Move(pos, delta)
		if err != nil {
			m.reportError("move row", err)
			return m, nil
		}
		m.setCursor(moved)

	case key.Matches(msg, m.keys.SaveOrder):
		return m, runAction(m.ctx, m.tab, "save order", sheet.SaveOrder)

	case key.Matches(msg, m.keys.ValidateAll):
		if m.validating() {
			return m, nil
		}
		return m, runAction(m.ctx, m.tab, "validate", func(ctx context.Context) error {
			_, err := sheet.ValidateAll(ctx)
			return err
		})

	case key.Matches(msg, m.keys.ValidateRow):
		uid, ok := m.uidAt(pos)
		if !ok || m.validating() {
			return m, nil
		}
		return m, runAction(m.ctx, m.tab, "validate row", func(ctx context.Context) error {
			_, err := sheet.ValidateRow(ctx, uid)
			return err
		})

	case key.Matches(msg, m.keys.Retry):
		if m.validating() {
			return m, nil
		}
		return m, runAction(m.ctx, m.tab, "retry", func(ctx context.Context) error {
			_, err := sheet.RetryFailed(ctx)
			return err
		})

	case key.Matches(msg, m.keys.Dismiss):
		sheet.DismissFailures()
	}

	return m, nil
}

// startEdit opens the cell editor on the selected cell.
func (m Model) startEdit() (tea.Model, tea.Cmd) {
	sheet := m.activeSheet()
	line, ok := sheet.Line(m.cursor())
	if !ok {
		return m, nil
	}
	cols := sheet.Columns()
	if m.column >= len(cols) {
		return m, nil
	}
	m.editing = true
	m.editUID = line.RowUID()
	m.input.SetValue(line.Value(cols[m.column].Field))
	m.input.CursorEnd()
	return m, m.input.Focus()
}

// handleEditKey routes keys to the cell editor.
func (m Model) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.stopEdit()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		sheet := m.activeSheet()
		field := sheet.Columns()[m.column].Field
		if err := sheet.Edit(m.editUID, field, m.input.Value()); err != nil {
			if errors.Is(err, rows.ErrUnknownRow) {
				m.stopEdit()
			}
			m.reportError("edit", err)
			return m, nil
		}
		m.stopEdit()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) stopEdit() {
	m.editing = false
	m.editUID = ""
	m.input.Blur()
	m.input.Reset()
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return m, tea.Batch(cmds...)
}

// applySnapshot reconciles every sheet when the store has new data.
func (m *Model) applySnapshot(snap state.Snapshot) {
	m.snapshot = snap
	if snap.Revision == m.revision {
		return
	}
	m.revision = snap.Revision
	m.lastUpdated = time.Now()
	for _, s := range m.sheets {
		s.Reconcile(snap)
	}
	if m.editing {
		m.followEditedRow()
	}
	m.setCursor(m.cursor())
}

// followEditedRow keeps the cursor on the row being edited after a
// refresh, or closes the editor when the row is gone.
func (m *Model) followEditedRow() {
	pos, ok := m.activeSheet().Position(m.editUID)
	if !ok {
		m.stopEdit()
		m.toasts.Warning("Row removed while editing")
		return
	}
	m.cursors[m.tab] = pos
}

// uidAt returns the uid of the row at pos on the active sheet.
func (m Model) uidAt(pos int) (string, bool) {
	line, ok := m.activeSheet().Line(pos)
	if !ok {
		return "", false
	}
	return line.RowUID(), true
}

// validating reports whether the active sheet has a validation run going.
func (m Model) validating() bool {
	_, running := m.activeSheet().Progress()
	return running
}

func (m *Model) handleActionDone(msg actionDoneMsg) {
	if msg.err != nil {
		switch {
		case errors.Is(msg.err, rows.ErrBusy):
			m.toasts.Warning("Validation already running")
		case errors.Is(msg.err, rows.ErrClosed), errors.Is(msg.err, rows.ErrOutOfRange),
			errors.Is(msg.err, rows.ErrUnknownRow):
		default:
			// Row failures are already surfaced by the table.
			m.logger.Debug("action failed", zap.String("action", msg.action), zap.Error(msg.err))
		}
	}
	if msg.sheet == m.tab {
		m.setCursor(m.cursor())
	}
}

func (m *Model) reportError(action string, err error) {
	m.logger.Debug(action+" rejected", zap.Error(err))
	m.toasts.Error(err.Error())
}

// nextOffer shows the first waiting recovery offer when no modal is open.
func (m *Model) nextOffer() {
	if m.modal != nil || len(m.offers) == 0 {
		return
	}
	offer := m.offers[0]
	m.offers = m.offers[1:]
	if offer.sheet < 0 || offer.sheet >= len(m.sheets) {
		return
	}
	m.modal = recoveryModal(m.ctx, offer.sheet, m.sheets[offer.sheet], offer.offer)
}

func (m *Model) switchTab(delta int) {
	if len(m.sheets) == 0 {
		return
	}
	m.tab = (m.tab + delta + len(m.sheets)) % len(m.sheets)
	m.column = 0
	m.savePrefs()
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	p := prefs.Prefs{Theme: m.theme.Name, LastShock: m.shockID}
	if len(m.sheets) > 0 {
		p.LastTab = m.activeSheet().Kind()
	}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.logger.Warn("save prefs failed", zap.Error(err))
	}
}

func (m Model) activeSheet() Sheet {
	return m.sheets[m.tab]
}

func (m Model) cursor() int {
	if len(m.cursors) == 0 {
		return 0
	}
	return m.cursors[m.tab]
}

// setCursor clamps pos to the active sheet's rows.
func (m *Model) setCursor(pos int) {
	if len(m.sheets) == 0 {
		return
	}
	count := m.activeSheet().Len()
	pos = min(pos, count-1)
	pos = max(pos, 0)
	m.cursors[m.tab] = pos
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	// Header line 1: logo + shock + status
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	// Header line 2: tabs + command bar
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	b.WriteString(m.renderSheet())
	b.WriteString("\n")

	b.WriteString(m.renderFooter())
	return b.String()
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type recoveryOfferMsg struct {
	sheet int
	offer RecoveryOffer
}

type actionDoneMsg struct {
	sheet  int
	action string
	err    error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func offerRecoveryCmd(ctx context.Context, idx int, sheet Sheet) tea.Cmd {
	return func() tea.Msg {
		offer, ok := sheet.OfferRecovery(ctx)
		if !ok {
			return nil
		}
		return recoveryOfferMsg{sheet: idx, offer: offer}
	}
}

func runAction(ctx context.Context, idx int, action string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{sheet: idx, action: action, err: fn(ctx)}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
