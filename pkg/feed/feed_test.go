package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mcclellann/rabbitfunding/pkg/models"
	"github.com/mcclellann/rabbitfunding/pkg/sheets"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource counts fetches and fails on demand.
type fakeSource struct {
	mu     sync.Mutex
	fail   error
	deals  []models.Deal
	events []models.PayoutEvent
	calls  atomic.Int32
}

func (f *fakeSource) setFail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = err
}

func (f *fakeSource) FetchDeals(ctx context.Context) ([]models.Deal, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	return f.deals, nil
}

func (f *fakeSource) FetchPayoutEvents(ctx context.Context) ([]models.PayoutEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events, nil
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		deals:  []models.Deal{{ID: 1, ClientName: "ACME Corp", PrincipalAdvanced: decimal.NewFromInt(10000)}},
		events: []models.PayoutEvent{{ID: 1, HistoryKey: "H1", Amount: decimal.NewFromInt(512)}},
	}
}

func TestRefresh_StoresSnapshot(t *testing.T) {
	src := newFakeSource()
	s := NewSyncer(src, time.Minute)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	snap, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Deals, 1)
	assert.Len(t, snap.Events, 1)
	assert.Equal(t, fixed, snap.FetchedAt)
	assert.NoError(t, s.LastError())

	cur, err := s.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixed, cur.FetchedAt)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestRefresh_FailureKeepsPreviousSnapshot(t *testing.T) {
	src := newFakeSource()
	s := NewSyncer(src, time.Minute)
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	boom := errors.New("sheets down")
	src.setFail(boom)
	_, err = s.Refresh(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.LastError(), boom)

	cur, err := s.Current(context.Background())
	require.NoError(t, err)
	assert.Len(t, cur.Deals, 1)
}

func TestCurrent_NoDataWhenNeverFetched(t *testing.T) {
	src := newFakeSource()
	src.setFail(errors.New("sheets down"))
	s := NewSyncer(src, time.Minute)

	_, err := s.Current(context.Background())

	assert.ErrorIs(t, err, ErrNoData)
}

func TestCurrent_EmptySourceIsNotAnError(t *testing.T) {
	s := NewSyncer(&sheets.Static{}, time.Minute)

	snap, err := s.Current(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, snap.Deals)
	assert.Empty(t, snap.Deals)
	assert.NotNil(t, snap.Events)
}

func TestCurrent_RefreshesWhenStale(t *testing.T) {
	src := newFakeSource()
	s := NewSyncer(src, 20*time.Millisecond)

	_, err := s.Current(context.Background())
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)
	_, err = s.Current(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.calls.Load())
}

func TestRun_StopsOnCancel(t *testing.T) {
	src := newFakeSource()
	s := NewSyncer(src, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return src.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRefresh_LastErrorOmitsAPIKey(t *testing.T) {
	client := sheets.NewClient(sheets.ClientConfig{
		BaseURL:       "http://127.0.0.1:1",
		SpreadsheetID: "sid",
		APIKey:        "SUPERSECRETKEY",
	})
	s := NewSyncer(client, time.Minute)

	_, err := s.Refresh(context.Background())

	require.Error(t, err)
	require.Error(t, s.LastError())
	assert.NotContains(t, err.Error(), "SUPERSECRETKEY")
	assert.NotContains(t, s.LastError().Error(), "SUPERSECRETKEY")
}
