package collector

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"courtside/internal/domain"
)

// identityKey groups the fields that survive a lobby rename. Two
// sightings with the same key are very likely the same real match
// even when the advertised name (and therefore the match id) changed.
type identityKey struct {
	creationTimeMs int64
	port           int
	surfaceName    string
	nbSet          int
	playerConfig   int
}

func recordIdentity(rec *domain.MatchRecord) identityKey {
	return identityKey{
		creationTimeMs: rec.CreationTimeMs,
		port:           rec.Port,
		surfaceName:    rec.SurfaceName,
		nbSet:          rec.NbSet,
		playerConfig:   rec.PlayerConfig,
	}
}

func matchIdentity(m *domain.DecodedMatch) identityKey {
	return identityKey{
		creationTimeMs: m.CreationTimeMs,
		port:           m.Port,
		surfaceName:    m.SurfaceName,
		nbSet:          m.GameInfo.NbSet,
		playerConfig:   int(m.GameInfo.PlayerConfig),
	}
}

// Registry is the match lifecycle state machine. It is a single-writer
// structure: only the manager's poll cycle calls Apply, so no locking
// is needed. Readers see match state only through published snapshots.
type Registry struct {
	threshold int
	retention time.Duration
	log       zerolog.Logger

	records map[string]*domain.MatchRecord
}

// NewRegistry creates a registry. threshold is the minimum games
// played for a disappeared match to count as finished; retention is
// how long terminal records stick around for idempotency checks.
func NewRegistry(threshold int, retention time.Duration, log zerolog.Logger) *Registry {
	return &Registry{
		threshold: threshold,
		retention: retention,
		log:       log.With().Str("component", "registry").Logger(),
		records:   make(map[string]*domain.MatchRecord),
	}
}

// Len returns the number of tracked records, terminal ones included
func (r *Registry) Len() int {
	return len(r.records)
}

// Apply runs one cycle of lifecycle transitions against the decoded
// batch and returns the finish events plus the number of matches
// discarded as noise. Each match id transitions to a terminal state
// at most once, ever.
func (r *Registry) Apply(batch []domain.DecodedMatch, now time.Time) ([]domain.FinishEvent, int) {
	present := make(map[string]*domain.DecodedMatch, len(batch))
	for i := range batch {
		// Duplicate ids in one batch resolve most-recent-wins
		present[batch[i].MatchID] = &batch[i]
	}

	// Index matches first seen this cycle by identity, for rename
	// detection below.
	newByIdentity := make(map[identityKey]*domain.DecodedMatch)
	for id, m := range present {
		if _, known := r.records[id]; !known {
			newByIdentity[matchIdentity(m)] = m
		}
	}

	// Phase 1: create and refresh records for everything present
	for id, m := range present {
		rec, ok := r.records[id]
		if !ok {
			r.records[id] = &domain.MatchRecord{
				MatchID:        id,
				Name:           m.Name,
				Score:          m.Score,
				ModType:        m.ModType,
				FormatClass:    m.FormatClass,
				SurfaceName:    m.SurfaceName,
				Port:           m.Port,
				CreationTimeMs: m.CreationTimeMs,
				NbSet:          m.GameInfo.NbSet,
				PlayerConfig:   int(m.GameInfo.PlayerConfig),
				Started:        m.IsStarted,
				FirstSeenAt:    now,
				LastSeenAt:     now,
				LastKnownGames: m.GamesPlayed,
				State:          domain.StateLive,
			}
			r.log.Debug().Str("match_id", id).Str("name", m.Name).Msg("tracking new match")
			continue
		}

		// Touch terminal records too so a late re-listing cannot race
		// eviction and double count.
		rec.LastSeenAt = now
		if rec.State != domain.StateLive {
			continue
		}
		rec.Score = m.Score
		rec.LastKnownGames = m.GamesPlayed
		rec.Started = rec.Started || m.IsStarted
	}

	// Phase 2: resolve records that disappeared this cycle
	var events []domain.FinishEvent
	discarded := 0
	for id, rec := range r.records {
		if rec.State != domain.StateLive {
			continue
		}
		if _, ok := present[id]; ok {
			continue
		}

		if renamed := r.renamedTo(rec, newByIdentity); renamed != nil {
			rec.State = domain.StateDiscarded
			rec.EndedAt = now
			r.log.Info().
				Str("match_id", id).
				Str("old_name", rec.Name).
				Str("new_name", renamed.Name).
				Msg("match renamed, not counting")
			continue
		}

		if rec.Started && rec.LastKnownGames >= r.threshold {
			rec.State = domain.StateFinished
			rec.EndedAt = now
			events = append(events, r.finishEvent(rec, now))
			r.log.Info().
				Str("match_id", id).
				Str("name", rec.Name).
				Int("games", rec.LastKnownGames).
				Str("mod", rec.ModType).
				Str("format", rec.FormatClass).
				Msg("match finished")
		} else {
			rec.State = domain.StateDiscarded
			rec.EndedAt = now
			discarded++
			r.log.Debug().
				Str("match_id", id).
				Int("games", rec.LastKnownGames).
				Msg("match discarded")
		}
	}

	// Phase 3: evict terminal records past the retention window
	for id, rec := range r.records {
		if rec.State.Terminal() && now.Sub(rec.LastSeenAt) > r.retention {
			delete(r.records, id)
		}
	}

	return events, discarded
}

// renamedTo looks for a match that appeared this cycle carrying the
// same identity and an overlapping player set with at least as many
// games played. That is a lobby rename, not a finished match.
func (r *Registry) renamedTo(rec *domain.MatchRecord, newByIdentity map[identityKey]*domain.DecodedMatch) *domain.DecodedMatch {
	cand, ok := newByIdentity[recordIdentity(rec)]
	if !ok {
		return nil
	}
	if cand.GamesPlayed < rec.LastKnownGames {
		return nil
	}
	if !namesOverlap(rec.Name, cand.Name) {
		return nil
	}
	return cand
}

// namesOverlap reports whether two "p1 vs p2" names share a player.
// A previous name with no usable players (empty or a waiting lobby)
// overlaps anything.
func namesOverlap(oldName, newName string) bool {
	oldSet := playerNameSet(oldName)
	if len(oldSet) == 0 {
		return true
	}
	newSet := playerNameSet(newName)
	if len(newSet) == 0 {
		return true
	}
	for name := range oldSet {
		if newSet[name] {
			return true
		}
	}
	return false
}

func playerNameSet(matchName string) map[string]bool {
	m := domain.DecodedMatch{Name: matchName}
	p1, p2 := m.PlayerNames()

	set := make(map[string]bool, 2)
	for _, name := range []string{p1, p2} {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || name == "unknown" || strings.Contains(name, "waiting") {
			continue
		}
		set[name] = true
	}
	return set
}

func (r *Registry) finishEvent(rec *domain.MatchRecord, now time.Time) domain.FinishEvent {
	m := domain.DecodedMatch{Name: rec.Name}
	p1, p2 := m.PlayerNames()

	var players []string
	for _, name := range []string{p1, p2} {
		if name != "" && name != "Unknown" {
			players = append(players, name)
		}
	}

	return domain.FinishEvent{
		MatchID:     rec.MatchID,
		Name:        rec.Name,
		Score:       rec.Score,
		ModType:     rec.ModType,
		FormatClass: rec.FormatClass,
		Players:     players,
		FinishedAt:  now,
	}
}
