package domain

import "time"

// MatchState is the lifecycle state of a tracked match
type MatchState string

const (
	// StateLive means the match is present in the current feed
	StateLive MatchState = "live"
	// StateFinished means the match disappeared after reaching the
	// games-played threshold; it has been counted. Terminal.
	StateFinished MatchState = "finished"
	// StateDiscarded means the match disappeared before reaching the
	// threshold (lobby noise, aborted setup) or was renamed. Terminal.
	StateDiscarded MatchState = "discarded"
)

// Terminal reports whether the state admits no further transitions
func (s MatchState) Terminal() bool {
	return s == StateFinished || s == StateDiscarded
}

// MatchRecord tracks one match across poll cycles. Records are owned
// exclusively by the registry; nothing outside it mutates them.
type MatchRecord struct {
	MatchID        string     `json:"match_id"`
	Name           string     `json:"name"`
	Score          string     `json:"score"`
	ModType        string     `json:"mod_type"`
	FormatClass    string     `json:"format_class"`
	SurfaceName    string     `json:"surface_name"`
	Port           int        `json:"port"`
	CreationTimeMs int64      `json:"creation_time_ms"`
	NbSet          int        `json:"nb_set"`
	PlayerConfig   int        `json:"player_config"`
	Started        bool       `json:"started"`
	FirstSeenAt    time.Time  `json:"first_seen_at"`
	LastSeenAt     time.Time  `json:"last_seen_at"`
	LastKnownGames int        `json:"last_known_games"`
	State          MatchState `json:"state"`
	EndedAt        time.Time  `json:"ended_at,omitzero"`
}

// FinishEvent is emitted by the registry exactly once per match that
// transitions to StateFinished, and consumed by the aggregator.
type FinishEvent struct {
	MatchID     string    `json:"match_id"`
	Name        string    `json:"name"`
	Score       string    `json:"score"`
	ModType     string    `json:"mod_type"`
	FormatClass string    `json:"format_class"`
	Players     []string  `json:"players"`
	FinishedAt  time.Time `json:"finished_at"`
}
