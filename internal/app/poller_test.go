package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/five82/quotedesk/internal/quote"
	"github.com/five82/quotedesk/internal/state"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

type fakeFetcher struct {
	mu        sync.Mutex
	calls     atomic.Int32
	failWith  error
	supplies  []quote.SupplyLine
	workforce []quote.WorkforceLine
}

func (f *fakeFetcher) FetchShock(_ context.Context, id int64) (quote.Shock, error) {
	f.calls.Add(1)
	return quote.Shock{ID: id, Label: "Front left"}, nil
}

func (f *fakeFetcher) FetchSupplies(context.Context, int64) ([]quote.SupplyLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.supplies, nil
}

func (f *fakeFetcher) FetchWorkforce(context.Context, int64) ([]quote.WorkforceLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.workforce, nil
}

func TestPoller_RefreshUpdatesStore(t *testing.T) {
	store := &state.Store{}
	fetcher := &fakeFetcher{
		supplies:  []quote.SupplyLine{{ID: 1}, {ID: 2}},
		workforce: []quote.WorkforceLine{{ID: 3}},
	}
	p := NewPoller(store, fetcher, 7, time.Second, nil)

	p.Refresh(t.Context())
	snap := store.Snapshot()
	assert.Equal(t, uint64(1), snap.Revision)
	assert.Equal(t, int64(7), snap.Shock.ID)
	assert.Len(t, snap.Supplies, 2)
	assert.Len(t, snap.Workforce, 1)

	fetcher.mu.Lock()
	fetcher.failWith = errors.New("connection refused")
	fetcher.mu.Unlock()
	p.Refresh(t.Context())
	snap = store.Snapshot()
	assert.Equal(t, uint64(1), snap.Revision, "failed poll keeps revision")
	assert.Len(t, snap.Supplies, 2, "failed poll keeps rows")
	require.Error(t, snap.LastError)
	assert.Equal(t, 1, snap.ConsecutiveFailures)
}

func TestPoller_KickRefreshesImmediately(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := &state.Store{}
	fetcher := &fakeFetcher{}
	p := NewPoller(store, fetcher, 1, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Run(ctx)
	}()

	require.Eventually(t, func() bool { return store.Revision() == 1 }, time.Second, 5*time.Millisecond)
	p.Kick()
	p.Kick()
	require.Eventually(t, func() bool { return store.Revision() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
