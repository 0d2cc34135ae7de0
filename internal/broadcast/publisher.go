package broadcast

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"courtside/internal/domain"
)

// Publisher holds the latest immutable snapshot. Replacing it is a
// single pointer swap, so concurrent readers always see a complete
// batch and never block the producer.
type Publisher struct {
	hub  *Hub
	nats *NatsPublisher // nil when NATS publishing is disabled
	log  zerolog.Logger

	snap     atomic.Pointer[domain.Snapshot]
	failures atomic.Int64
	lastErr  atomic.Value // string
}

// NewPublisher creates a publisher fanning out through hub and,
// optionally, NATS.
func NewPublisher(hub *Hub, nats *NatsPublisher, log zerolog.Logger) *Publisher {
	p := &Publisher{
		hub:  hub,
		nats: nats,
		log:  log.With().Str("component", "publisher").Logger(),
	}
	p.lastErr.Store("")
	return p
}

// Publish swaps in a new snapshot and pushes it to subscribers. A
// successful publish clears any fetch-failure state.
func (p *Publisher) Publish(snap *domain.Snapshot) {
	p.snap.Store(snap)
	p.failures.Store(0)
	p.lastErr.Store("")

	ev := domain.Event{Type: domain.EventSnapshot, Timestamp: snap.Timestamp, Data: snap}
	p.hub.Broadcast(ev)
	if p.nats != nil {
		p.nats.Publish(ev)
	}
}

// PublishEvent fans out a non-snapshot event (finish notifications)
// without touching the published snapshot.
func (p *Publisher) PublishEvent(ev domain.Event) {
	p.hub.Broadcast(ev)
	if p.nats != nil {
		p.nats.Publish(ev)
	}
}

// Current returns the latest published snapshot, or nil before the
// first successful cycle.
func (p *Publisher) Current() *domain.Snapshot {
	return p.snap.Load()
}

// RecordFetchFailure notes a failed cycle. The previous snapshot stays
// published (stale-but-available); readers see the staleness flag.
func (p *Publisher) RecordFetchFailure(err error) {
	n := p.failures.Add(1)
	p.lastErr.Store(err.Error())
	p.log.Warn().Err(err).Int64("consecutive", n).Msg("snapshot is stale")
}

// Stale reports whether the published snapshot has outlived at least
// one failed cycle.
func (p *Publisher) Stale() bool {
	return p.failures.Load() > 0
}

// LastError returns the most recent fetch error, or "" after a
// successful cycle.
func (p *Publisher) LastError() string {
	s, _ := p.lastErr.Load().(string)
	return s
}

// Age returns how old the published snapshot is, and false before the
// first publish.
func (p *Publisher) Age(now time.Time) (time.Duration, bool) {
	snap := p.snap.Load()
	if snap == nil {
		return 0, false
	}
	return now.Sub(snap.Timestamp), true
}
