package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/five82/quotedesk/internal/config"
	"github.com/five82/quotedesk/internal/logging"
	"github.com/five82/quotedesk/internal/notify"
	"github.com/five82/quotedesk/internal/prefs"
	"github.com/five82/quotedesk/internal/quote"
	"github.com/five82/quotedesk/internal/rows"
	"github.com/five82/quotedesk/internal/state"
	"github.com/five82/quotedesk/internal/storage"
	"github.com/five82/quotedesk/internal/ui"
)

const preflightTimeout = 5 * time.Second

// ErrNoShock is returned when neither the caller nor the saved preferences
// name a shock to open.
var ErrNoShock = errors.New("no shock id given and none remembered")

// Options configure the quotedesk application.
type Options struct {
	ConfigPath string
	PrefsPath  string        // empty uses default ~/.config/quotedesk/prefs.toml
	PollEvery  time.Duration // zero uses the config file interval
	ShockID    int64         // zero reopens the last shock
	// Ephemeral keeps pending snapshots in memory only.
	Ephemeral bool
}

// Run opens a shock in the TUI until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs, err := prefs.Load(prefsPath)
	if err != nil {
		return fmt.Errorf("load prefs: %w", err)
	}

	shockID := opts.ShockID
	if shockID == 0 {
		shockID = userPrefs.LastShock
	}
	if shockID <= 0 {
		return ErrNoShock
	}

	logger, closeLog, err := logging.New(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closeLog()
	logger = logger.With(zap.Int64("shock", shockID))

	store, err := openStore(cfg, opts.Ephemeral, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	client, err := quote.NewClient(cfg.APIBase, cfg.UserAgent)
	if err != nil {
		return fmt.Errorf("init api client: %w", err)
	}

	snapshots := &state.Store{}
	interval := cfg.PollInterval
	if opts.PollEvery > 0 {
		interval = opts.PollEvery
	}
	poller := NewPoller(snapshots, client, shockID, interval, logger.Named("poller"))

	if err := preflight(ctx, poller, snapshots); err != nil {
		return err
	}
	poller.Start(ctx)

	toasts := notify.NewQueue(logger.Named("notify"), 0, 0)
	deps := sheetDeps{
		cfg:     cfg,
		shockID: shockID,
		store:   store,
		notify:  toasts,
		refresh: poller.Kick,
		logger:  logger,
	}
	initial := snapshots.Snapshot()

	supplies, err := openSheet(deps, "supplies", "Supplies", client.Supplies(), quote.NewSupplyLine,
		quote.SupplyColumns, initial.Supplies, func(s state.Snapshot) []quote.SupplyLine { return s.Supplies })
	if err != nil {
		return err
	}
	defer supplies.Table().Close()

	workforce, err := openSheet(deps, "workforce", "Workforce", client.Workforce(), quote.NewWorkforceLine,
		quote.WorkforceColumns, initial.Workforce, func(s state.Snapshot) []quote.WorkforceLine { return s.Workforce })
	if err != nil {
		return err
	}
	defer workforce.Table().Close()

	logger.Info("shock opened", zap.String("api", cfg.APIBase), zap.Duration("poll", interval))

	return ui.Run(ui.Options{
		Context:    ctx,
		Store:      snapshots,
		Sheets:     []ui.Sheet{supplies, workforce},
		Toasts:     toasts,
		Refresh:    poller.Kick,
		Logger:     logger.Named("ui"),
		ShockID:    shockID,
		ThemeName:  userPrefs.Theme,
		InitialTab: userPrefs.LastTab,
		PrefsPath:  prefsPath,
	})
}

// preflight does the first fetch before the UI starts. An unreachable API
// is tolerated so offline edits can be recovered; an unknown shock is not.
func preflight(ctx context.Context, poller *Poller, snapshots *state.Store) error {
	pctx, cancel := context.WithTimeout(ctx, preflightTimeout)
	defer cancel()
	poller.Refresh(pctx)

	snap := snapshots.Snapshot()
	if quote.IsStatus(snap.LastError, http.StatusNotFound) {
		return fmt.Errorf("shock %d not found: %w", poller.shockID, snap.LastError)
	}
	return nil
}

// openStore opens the snapshot store named by the config, or an in-memory
// store when ephemeral.
func openStore(cfg config.Config, ephemeral bool, logger *zap.Logger) (storage.Store, error) {
	if ephemeral || cfg.StoragePath == "" {
		return storage.NewMemory(), nil
	}
	store, err := storage.OpenSQLite(cfg.StoragePath, logger.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("open pending store: %w", err)
	}
	return store, nil
}

type sheetDeps struct {
	cfg     config.Config
	shockID int64
	store   storage.Store
	notify  rows.Notifier
	refresh func()
	logger  *zap.Logger
}

func openSheet[T ui.LineRecord[T]](
	deps sheetDeps,
	kind, title string,
	api rows.API[T],
	blank func(uid string) T,
	columns []quote.Column,
	initial []T,
	pick func(state.Snapshot) []T,
) (*ui.TableSheet[T], error) {
	table, err := rows.New(rows.Options[T]{
		Kind:          kind,
		OwnerID:       deps.shockID,
		API:           api,
		Storage:       deps.store,
		Notify:        deps.notify,
		Refresh:       deps.refresh,
		Blank:         blank,
		Logger:        deps.logger.Named(kind),
		BatchSize:     deps.cfg.BatchSize,
		CreateTimeout: deps.cfg.CreateTimeout,
		UpdateTimeout: deps.cfg.UpdateTimeout,
		SnapshotTTL:   deps.cfg.SnapshotTTL,
	}, initial)
	if err != nil {
		return nil, fmt.Errorf("open %s table: %w", kind, err)
	}
	return ui.NewSheet(title, table, columns, pick), nil
}
