package domain

import "time"

// Event types for WebSocket and NATS notifications
const (
	EventSnapshot      = "snapshot"
	EventMatchFinished = "match_finished"
)

// Event is the envelope pushed to subscribers
type Event struct {
	Type      string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// Snapshot is the complete decoded state of all advertised matches at
// one point in time. A snapshot is immutable once published; new
// cycles replace the whole value.
type Snapshot struct {
	Matches      []DecodedMatch `json:"matches"`
	Total        int            `json:"total"`
	Timestamp    time.Time      `json:"timestamp"`
	DecodeErrors int            `json:"decode_errors"`
}

// NewSnapshot builds a snapshot for a decoded batch
func NewSnapshot(matches []DecodedMatch, at time.Time, decodeErrors int) *Snapshot {
	return &Snapshot{
		Matches:      matches,
		Total:        len(matches),
		Timestamp:    at,
		DecodeErrors: decodeErrors,
	}
}
