package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mcclellann/rabbitfunding/pkg/logger"
	"github.com/mcclellann/rabbitfunding/pkg/models"
	"github.com/mcclellann/rabbitfunding/pkg/sheets"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultStaleAfter      = 5 * time.Minute
	DefaultRefreshInterval = 60 * time.Second

	snapshotKey = "snapshot"
)

// ErrNoData is returned when no snapshot has ever been fetched successfully.
var ErrNoData = errors.New("no feed data available")

// Snapshot is one consistent read of the source. It must not be mutated.
type Snapshot struct {
	Deals     []models.Deal
	Events    []models.PayoutEvent
	FetchedAt time.Time
}

// Syncer keeps a cached snapshot of the deal and payout feeds fresh.
type Syncer struct {
	source     sheets.Source
	cache      *cache.Cache
	staleAfter time.Duration
	now        func() time.Time

	refreshMu sync.Mutex

	mu      sync.RWMutex
	last    *Snapshot
	lastErr error
}

func NewSyncer(source sheets.Source, staleAfter time.Duration) *Syncer {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Syncer{
		source:     source,
		cache:      cache.New(staleAfter, 2*staleAfter),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Refresh fetches both feeds concurrently and replaces the cached snapshot.
// On failure the previous snapshot stays in place.
func (s *Syncer) Refresh(ctx context.Context) (Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refresh(ctx)
}

func (s *Syncer) refresh(ctx context.Context) (Snapshot, error) {
	var deals []models.Deal
	var events []models.PayoutEvent

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.source.FetchDeals(gctx)
		if err != nil {
			return fmt.Errorf("failed to fetch deals: %w", err)
		}
		deals = d
		return nil
	})
	g.Go(func() error {
		ev, err := s.source.FetchPayoutEvents(gctx)
		if err != nil {
			return fmt.Errorf("failed to fetch payout events: %w", err)
		}
		events = ev
		return nil
	})

	if err := g.Wait(); err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		logger.FromContext(ctx).Warn("Feed refresh failed, keeping previous snapshot", "error", err)
		return Snapshot{}, err
	}

	if deals == nil {
		deals = []models.Deal{}
	}
	if events == nil {
		events = []models.PayoutEvent{}
	}
	snap := Snapshot{Deals: deals, Events: events, FetchedAt: s.now()}

	s.cache.Set(snapshotKey, snap, cache.DefaultExpiration)
	s.mu.Lock()
	s.last = &snap
	s.lastErr = nil
	s.mu.Unlock()

	logger.FromContext(ctx).Debug("Feed refreshed", "deals", len(deals), "events", len(events))
	return snap, nil
}

func (s *Syncer) cached() (Snapshot, bool) {
	v, ok := s.cache.Get(snapshotKey)
	if !ok {
		return Snapshot{}, false
	}
	return v.(Snapshot), true
}

// Current returns the cached snapshot, refreshing first when it is missing
// or stale. A failed refresh falls back to the last good snapshot, and
// yields ErrNoData only when there has never been one.
func (s *Syncer) Current(ctx context.Context) (Snapshot, error) {
	if snap, ok := s.cached(); ok {
		return snap, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	if snap, ok := s.cached(); ok {
		return snap, nil
	}

	snap, err := s.refresh(ctx)
	if err == nil {
		return snap, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last != nil {
		return *s.last, nil
	}
	return Snapshot{}, fmt.Errorf("%w: %v", ErrNoData, err)
}

// LastError returns the error from the most recent refresh, or nil if it succeeded.
func (s *Syncer) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Run refreshes on every tick until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.FromContext(ctx).Info("Feed refresh loop started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			logger.FromContext(ctx).Info("Feed refresh loop stopped")
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}
