// Package metrics registers the Prometheus collectors for the
// ingestion loop and the broadcast hub.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollCycles counts producer cycles, successful or not
	PollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courtside_poll_cycles_total",
		Help: "Number of feed poll cycles run.",
	})

	// FetchErrors counts failed feed fetches
	FetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courtside_fetch_errors_total",
		Help: "Number of feed fetches that failed.",
	})

	// DecodeErrors counts feed entries skipped as malformed
	DecodeErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courtside_decode_errors_total",
		Help: "Number of feed entries skipped due to malformed encoding.",
	})

	// MatchesFinished counts finish transitions by mod and format
	MatchesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courtside_matches_finished_total",
		Help: "Number of matches counted as finished.",
	}, []string{"mod", "format"})

	// MatchesDiscarded counts matches dropped as lobby noise
	MatchesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "courtside_matches_discarded_total",
		Help: "Number of matches discarded below the finish threshold.",
	})

	// LiveMatches is the size of the last published snapshot
	LiveMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "courtside_live_matches",
		Help: "Number of matches in the current snapshot.",
	})

	// Subscribers is the current broadcast hub subscriber count
	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "courtside_subscribers",
		Help: "Number of connected snapshot subscribers.",
	})
)
