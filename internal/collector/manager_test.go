package collector

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtside/internal/broadcast"
	"courtside/internal/stats"
	"courtside/internal/storage"
)

// stubFetcher serves canned payloads without touching the network
type stubFetcher struct {
	payload string
	err     error
}

func (s *stubFetcher) Fetch(ctx context.Context) (string, error) {
	return s.payload, s.err
}

type managerFixture struct {
	fetcher   *stubFetcher
	manager   *Manager
	publisher *broadcast.Publisher
	agg       *stats.Aggregator
	store     *storage.Store
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()

	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := zerolog.Nop()
	hub := broadcast.NewHub(16, log)
	go hub.Run()
	t.Cleanup(hub.Stop)

	publisher := broadcast.NewPublisher(hub, nil, log)
	agg := stats.New(store, time.UTC, log)
	registry := NewRegistry(5, 10*time.Minute, log)
	fetcher := &stubFetcher{}

	return &managerFixture{
		fetcher:   fetcher,
		manager:   NewManager(time.Hour, fetcher, registry, agg, publisher, log),
		publisher: publisher,
		agg:       agg,
		store:     store,
	}
}

func TestCyclePublishesSnapshot(t *testing.T) {
	f := newManagerFixture(t)
	f.fetcher.payload = feedEntry("0", 8080, "Ann vs Bob", 3, 0x17C4A3F2C) + "\n" +
		feedEntry("C0A80101", 8081, "Carol vs Dave", 0, 0x17C4A4000)

	f.manager.RunCycle()

	snap := f.publisher.Current()
	require.NotNil(t, snap)
	assert.Equal(t, 2, snap.Total)
	assert.Equal(t, 0, snap.DecodeErrors)
	assert.False(t, f.publisher.Stale())
}

func TestFetchFailureKeepsPreviousSnapshot(t *testing.T) {
	f := newManagerFixture(t)
	f.fetcher.payload = feedEntry("0", 8080, "Ann vs Bob", 3, 0x17C4A3F2C)
	f.manager.RunCycle()

	f.fetcher.err = errors.New("connection refused")
	f.manager.RunCycle()

	snap := f.publisher.Current()
	require.NotNil(t, snap)
	assert.Equal(t, 1, snap.Total)
	assert.True(t, f.publisher.Stale())
	assert.Contains(t, f.publisher.LastError(), "connection refused")

	// Recovery clears the staleness flag
	f.fetcher.err = nil
	f.manager.RunCycle()
	assert.False(t, f.publisher.Stale())
	assert.Empty(t, f.publisher.LastError())
}

func TestCycleCountsSkippedEntries(t *testing.T) {
	f := newManagerFixture(t)
	f.fetcher.payload = feedEntry("0", 8080, "Ann vs Bob", 3, 0x17C4A3F2C) + ` 0 1F91 "half an entry" 45`

	f.manager.RunCycle()

	snap := f.publisher.Current()
	require.NotNil(t, snap)
	assert.Equal(t, 1, snap.Total)
	assert.Equal(t, 1, snap.DecodeErrors)
}

func TestFinishedMatchReachesStore(t *testing.T) {
	f := newManagerFixture(t)

	// Cycle 1: a started match with enough games played
	f.fetcher.payload = feedEntry("0", 8080, "Ann vs Bob", 6, 0x17C4A3F2C)
	f.manager.RunCycle()

	// Cycle 2: it disappears from the feed
	f.fetcher.payload = ""
	f.manager.RunCycle()

	today, err := f.agg.TodayStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, today.Total())
	assert.Equal(t, 1, today.Vanilla.Total)

	n, err := f.store.CountFinishedOn(context.Background(), f.agg.Today())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Cycle 3: nothing new, nothing double counted
	f.manager.RunCycle()
	today, err = f.agg.TodayStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, today.Total())
}

func TestStartStop(t *testing.T) {
	f := newManagerFixture(t)
	f.fetcher.payload = fmt.Sprintf(`0 1F90 "Ann vs Bob" 45 40 64 3 "" "0/0" 5A 0 64 "Clay" %X`, time.Now().UnixMilli())

	f.manager.Start()

	require.Eventually(t, func() bool {
		return f.publisher.Current() != nil
	}, 2*time.Second, 10*time.Millisecond)

	f.manager.Stop()
}
