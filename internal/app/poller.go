package app

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/quotedesk/internal/quote"
	"github.com/five82/quotedesk/internal/state"
)

const (
	defaultPollInterval = 5 * time.Second
	maxBackoff          = 30 * time.Second
)

// calculateBackoff doubles the interval per consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// Poller refreshes the store with the open shock's server rows at a fixed
// cadence, backing off while the API is unreachable.
type Poller struct {
	store    *state.Store
	fetcher  quote.ShockFetcher
	shockID  int64
	interval time.Duration
	logger   *zap.Logger
	kick     chan struct{}
}

// NewPoller builds a Poller. A non-positive interval uses the default.
func NewPoller(store *state.Store, fetcher quote.ShockFetcher, shockID int64, interval time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		store:    store,
		fetcher:  fetcher,
		shockID:  shockID,
		interval: interval,
		logger:   logger,
		kick:     make(chan struct{}, 1),
	}
}

// Kick asks for an immediate refresh. It never blocks; kicks arriving while
// one is already queued are merged.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Start launches the poll loop in a goroutine and returns immediately.
func (p *Poller) Start(ctx context.Context) {
	go p.Run(ctx)
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	for {
		p.Refresh(ctx)
		wait := calculateBackoff(p.store.Snapshot().ConsecutiveFailures, p.interval)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-p.kick:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Refresh fetches the shock and both line tables once and records the
// result. A failure of any fetch keeps the previous rows.
func (p *Poller) Refresh(ctx context.Context) {
	var (
		shock     quote.Shock
		supplies  []quote.SupplyLine
		workforce []quote.WorkforceLine
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		shock, err = p.fetcher.FetchShock(gctx, p.shockID)
		return err
	})
	g.Go(func() (err error) {
		supplies, err = p.fetcher.FetchSupplies(gctx, p.shockID)
		return err
	})
	g.Go(func() (err error) {
		workforce, err = p.fetcher.FetchWorkforce(gctx, p.shockID)
		return err
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Warn("poll failed", zap.Int64("shock", p.shockID), zap.Error(err))
		p.store.Update(nil, nil, nil, err)
		return
	}
	p.store.Update(&shock, supplies, workforce, nil)
	p.logger.Debug("poll ok",
		zap.Int("supplies", len(supplies)), zap.Int("workforce", len(workforce)))
}
