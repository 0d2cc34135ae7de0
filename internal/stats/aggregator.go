// Package stats turns finish events into durable daily counters and
// the read-only views derived from them.
package stats

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"courtside/internal/domain"
	"courtside/internal/storage"
)

// monthlyWindowDays is the trailing window for the monthly rollup
const monthlyWindowDays = 30

// Aggregator consumes finish events from the registry and maintains
// the durable per-day counters. Writes happen only on the producer
// cycle (single writer); reads come from HTTP handlers concurrently
// and only touch the store.
type Aggregator struct {
	store *storage.Store
	tz    *time.Location
	log   zerolog.Logger

	// pending holds events whose persistence failed; they are retried
	// on the next cycle. While pending is non-empty the aggregator
	// reports itself degraded.
	mu       sync.Mutex
	pending  []domain.FinishEvent
	degraded atomic.Bool
}

// New creates an aggregator. tz controls when the daily counters roll
// over to the next day.
func New(store *storage.Store, tz *time.Location, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		store: store,
		tz:    tz,
		log:   log.With().Str("component", "aggregator").Logger(),
	}
}

// day formats an instant as the counter day in the stats timezone
func (a *Aggregator) day(t time.Time) string {
	return t.In(a.tz).Format("2006-01-02")
}

// Today returns the current counter day
func (a *Aggregator) Today() string {
	return a.day(time.Now())
}

// Record counts one finish event. Persistence failures are queued for
// retry instead of propagating: the event is not lost unless the
// process dies before a later Flush succeeds.
func (a *Aggregator) Record(ctx context.Context, ev domain.FinishEvent) {
	if err := a.persist(ctx, ev); err != nil {
		a.log.Error().Err(err).Str("match_id", ev.MatchID).Msg("persisting finish failed, queueing for retry")
		a.mu.Lock()
		a.pending = append(a.pending, ev)
		a.mu.Unlock()
		a.degraded.Store(true)
	}
}

// Flush retries queued events. Called once per producer cycle.
func (a *Aggregator) Flush(ctx context.Context) {
	a.mu.Lock()
	queued := a.pending
	a.pending = nil
	a.mu.Unlock()

	if len(queued) == 0 {
		a.degraded.Store(false)
		return
	}

	var failed []domain.FinishEvent
	for _, ev := range queued {
		if err := a.persist(ctx, ev); err != nil {
			failed = append(failed, ev)
		}
	}

	a.mu.Lock()
	a.pending = append(failed, a.pending...)
	remaining := len(a.pending)
	a.mu.Unlock()

	a.degraded.Store(remaining > 0)
	if flushed := len(queued) - len(failed); flushed > 0 {
		a.log.Info().Int("flushed", flushed).Int("remaining", remaining).Msg("retried queued finish events")
	}
}

func (a *Aggregator) persist(ctx context.Context, ev domain.FinishEvent) error {
	counted, err := a.store.FinishMatch(ctx, ev, a.day(ev.FinishedAt))
	if err != nil {
		return fmt.Errorf("finishing match %s: %w", ev.MatchID, err)
	}
	if !counted {
		a.log.Debug().Str("match_id", ev.MatchID).Msg("finish already counted")
	}
	return nil
}

// Degraded reports whether finish events are waiting on a store retry
func (a *Aggregator) Degraded() bool {
	return a.degraded.Load()
}

// TodayStats returns the current day's counters
func (a *Aggregator) TodayStats(ctx context.Context) (*domain.DailyCounters, error) {
	return a.store.GetDailyStats(ctx, a.Today())
}

// History returns up to `days` most recent daily counters, newest first
func (a *Aggregator) History(ctx context.Context, days int) ([]domain.DailyCounters, error) {
	return a.store.GetStatsHistory(ctx, days)
}

// Monthly computes the trailing-window rollup from the daily rows.
// It reads, sums, and derives; it never writes.
func (a *Aggregator) Monthly(ctx context.Context) (*domain.MonthlyRollup, error) {
	history, err := a.store.GetStatsHistory(ctx, monthlyWindowDays)
	if err != nil {
		return nil, err
	}

	rollup := &domain.MonthlyRollup{WindowDays: monthlyWindowDays}
	cutoff := time.Now().In(a.tz).AddDate(0, 0, -monthlyWindowDays).Format("2006-01-02")
	for _, day := range history {
		if day.Date < cutoff {
			continue
		}
		rollup.DaysWithData++
		addCounters(&rollup.XKT, day.XKT)
		addCounters(&rollup.WTSL, day.WTSL)
		addCounters(&rollup.Vanilla, day.Vanilla)
	}

	rollup.Total = rollup.XKT.Total + rollup.WTSL.Total + rollup.Vanilla.Total
	if rollup.DaysWithData > 0 {
		rollup.DailyAverage = float64(rollup.Total) / float64(rollup.DaysWithData)
	}
	return rollup, nil
}

// TopPlayers returns the ranked appearance list
func (a *Aggregator) TopPlayers(ctx context.Context, limit int) ([]domain.TopPlayer, error) {
	return a.store.GetTopPlayers(ctx, limit)
}

func addCounters(dst *domain.FormatCounters, src domain.FormatCounters) {
	dst.Total += src.Total
	dst.Bo1 += src.Bo1
	dst.Bo3 += src.Bo3
	dst.Bo5 += src.Bo5
}
