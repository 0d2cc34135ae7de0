package collector

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"courtside/internal/broadcast"
	"courtside/internal/domain"
	"courtside/internal/metrics"
	"courtside/internal/stats"
)

// cycleTimeout bounds one full fetch-decode-persist cycle
const cycleTimeout = 30 * time.Second

// Manager drives the poll loop: fetch, decode, advance the lifecycle
// state machine, persist finishes, publish the snapshot. It is the
// single writer for the registry and the aggregator.
type Manager struct {
	interval  time.Duration
	fetcher   Fetcher
	registry  *Registry
	agg       *stats.Aggregator
	publisher *broadcast.Publisher
	log       zerolog.Logger

	done chan struct{}
	wg   sync.WaitGroup
}

// NewManager wires the producer pipeline together
func NewManager(interval time.Duration, fetcher Fetcher, registry *Registry, agg *stats.Aggregator, publisher *broadcast.Publisher, log zerolog.Logger) *Manager {
	return &Manager{
		interval:  interval,
		fetcher:   fetcher,
		registry:  registry,
		agg:       agg,
		publisher: publisher,
		log:       log.With().Str("component", "manager").Logger(),
		done:      make(chan struct{}),
	}
}

// Start runs an immediate first cycle, then polls on the interval
// until Stop is called.
func (m *Manager) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		m.runCycle()

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.runCycle()
			case <-m.done:
				return
			}
		}
	}()
	m.log.Info().Dur("interval", m.interval).Msg("poll loop started")
}

// Stop halts the poll loop and waits for an in-flight cycle to finish
func (m *Manager) Stop() {
	close(m.done)
	m.wg.Wait()
	m.log.Info().Msg("poll loop stopped")
}

// RunCycle executes one producer cycle synchronously. The poll loop
// calls it on its own goroutine only.
func (m *Manager) RunCycle() {
	m.runCycle()
}

func (m *Manager) runCycle() {
	metrics.PollCycles.Inc()

	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	raw, err := m.fetcher.Fetch(ctx)
	if err != nil {
		metrics.FetchErrors.Inc()
		m.publisher.RecordFetchFailure(err)
		m.log.Warn().Err(err).Msg("feed fetch failed, keeping previous snapshot")
		// Still retry any finishes queued from earlier cycles
		m.agg.Flush(ctx)
		return
	}

	now := time.Now()
	matches, skipped := Decode(raw)
	if skipped > 0 {
		metrics.DecodeErrors.Add(float64(skipped))
		m.log.Warn().Int("skipped", skipped).Int("decoded", len(matches)).Msg("feed contained malformed entries")
	}

	events, discarded := m.registry.Apply(matches, now)
	if discarded > 0 {
		metrics.MatchesDiscarded.Add(float64(discarded))
	}

	for _, ev := range events {
		m.agg.Record(ctx, ev)
		metrics.MatchesFinished.WithLabelValues(ev.ModType, ev.FormatClass).Inc()
		m.publisher.PublishEvent(domain.Event{
			Type:      domain.EventMatchFinished,
			Timestamp: ev.FinishedAt,
			Data:      ev,
		})
	}
	m.agg.Flush(ctx)

	metrics.LiveMatches.Set(float64(len(matches)))
	m.publisher.Publish(domain.NewSnapshot(matches, now, skipped))
}
