package collector

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtside/internal/domain"
)

const (
	testThreshold = 5
	testRetention = 10 * time.Minute
)

func newTestRegistry() *Registry {
	return NewRegistry(testThreshold, testRetention, zerolog.Nop())
}

// liveMatch builds a decoded match with all derived fields filled
func liveMatch(name string, port int, creation int64, games int, started bool) domain.DecodedMatch {
	m := domain.DecodedMatch{
		IP:             "C0A80101",
		Port:           port,
		Name:           name,
		GameInfo:       domain.UnpackGameInfo(0x45), // best of 3
		Score:          "6/4 2/1",
		GamesPlayed:    games,
		SurfaceName:    "Clay",
		CreationTimeMs: creation,
	}
	if started {
		m.IP = "0"
	}
	m.Derive()
	return m
}

func TestFinishExactlyOnce(t *testing.T) {
	r := newTestRegistry()
	now := time.Now()

	m := liveMatch("Ann vs Bob", 8080, 1700000000000, 6, true)

	events, discarded := r.Apply([]domain.DecodedMatch{m}, now)
	assert.Empty(t, events)
	assert.Equal(t, 0, discarded)

	// Disappears while started with enough games: finished
	events, discarded = r.Apply(nil, now.Add(5*time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, 0, discarded)
	assert.Equal(t, m.MatchID, events[0].MatchID)
	assert.Equal(t, domain.ModVanilla, events[0].ModType)
	assert.Equal(t, domain.FormatBo3, events[0].FormatClass)
	assert.Equal(t, []string{"Ann", "Bob"}, events[0].Players)

	// Still absent on later cycles: no second event
	events, _ = r.Apply(nil, now.Add(10*time.Second))
	assert.Empty(t, events)
}

func TestScoreUpdatesWhileLive(t *testing.T) {
	r := newTestRegistry()
	now := time.Now()

	m := liveMatch("Ann vs Bob", 8080, 1700000000000, 2, true)
	r.Apply([]domain.DecodedMatch{m}, now)

	m.Score = "6/4 5/3"
	m.GamesPlayed = 6
	events, _ := r.Apply([]domain.DecodedMatch{m}, now.Add(5*time.Second))
	assert.Empty(t, events)

	events, _ = r.Apply(nil, now.Add(10*time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, "6/4 5/3", events[0].Score)
}

func TestDiscardBelowThreshold(t *testing.T) {
	r := newTestRegistry()
	now := time.Now()

	m := liveMatch("Ann vs Bob", 8080, 1700000000000, 3, true)
	r.Apply([]domain.DecodedMatch{m}, now)

	events, discarded := r.Apply(nil, now.Add(5*time.Second))
	assert.Empty(t, events)
	assert.Equal(t, 1, discarded)
}

func TestDiscardNeverStarted(t *testing.T) {
	r := newTestRegistry()
	now := time.Now()

	// Plenty of games reported but the lobby never left the waiting state
	m := liveMatch("Ann vs Bob", 8080, 1700000000000, 8, false)
	r.Apply([]domain.DecodedMatch{m}, now)

	events, discarded := r.Apply(nil, now.Add(5*time.Second))
	assert.Empty(t, events)
	assert.Equal(t, 1, discarded)
}

func TestRenameDetection(t *testing.T) {
	r := newTestRegistry()
	now := time.Now()

	old := liveMatch("Ann vs Bob", 8080, 1700000000000, 6, true)
	r.Apply([]domain.DecodedMatch{old}, now)

	// Same lobby identity, new name sharing a player, at least as many
	// games: a rename, not a finish.
	renamed := liveMatch("Ann vs Carol", 8080, 1700000000000, 7, true)
	require.NotEqual(t, old.MatchID, renamed.MatchID)

	events, discarded := r.Apply([]domain.DecodedMatch{renamed}, now.Add(5*time.Second))
	assert.Empty(t, events)
	assert.Equal(t, 0, discarded)

	// The successor finishes normally under its own id
	events, _ = r.Apply(nil, now.Add(10*time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, renamed.MatchID, events[0].MatchID)
}

func TestRenameRequiresPlayerOverlap(t *testing.T) {
	r := newTestRegistry()
	now := time.Now()

	old := liveMatch("Ann vs Bob", 8080, 1700000000000, 6, true)
	r.Apply([]domain.DecodedMatch{old}, now)

	// Same identity fields but a completely different pairing: the old
	// match still counts as finished.
	unrelated := liveMatch("Carol vs Dave", 8080, 1700000000000, 7, true)
	events, _ := r.Apply([]domain.DecodedMatch{unrelated}, now.Add(5*time.Second))
	require.Len(t, events, 1)
	assert.Equal(t, old.MatchID, events[0].MatchID)
}

func TestTerminalRecordEvicted(t *testing.T) {
	r := newTestRegistry()
	now := time.Now()

	m := liveMatch("Ann vs Bob", 8080, 1700000000000, 6, true)
	r.Apply([]domain.DecodedMatch{m}, now)
	r.Apply(nil, now.Add(5*time.Second))
	assert.Equal(t, 1, r.Len())

	r.Apply(nil, now.Add(5*time.Second+testRetention+time.Second))
	assert.Equal(t, 0, r.Len())
}

func TestTerminalReappearanceDoesNotDoubleCount(t *testing.T) {
	r := newTestRegistry()
	now := time.Now()

	m := liveMatch("Ann vs Bob", 8080, 1700000000000, 6, true)
	r.Apply([]domain.DecodedMatch{m}, now)

	events, _ := r.Apply(nil, now.Add(5*time.Second))
	require.Len(t, events, 1)

	// The feed lists the finished match once more, then drops it again
	events, discarded := r.Apply([]domain.DecodedMatch{m}, now.Add(10*time.Second))
	assert.Empty(t, events)
	assert.Equal(t, 0, discarded)

	events, discarded = r.Apply(nil, now.Add(15*time.Second))
	assert.Empty(t, events)
	assert.Equal(t, 0, discarded)
}

func TestDuplicateIDsInBatchResolveMostRecent(t *testing.T) {
	r := newTestRegistry()
	now := time.Now()

	a := liveMatch("Ann vs Bob", 8080, 1700000000000, 2, true)
	b := a
	b.GamesPlayed = 4
	b.Score = "6/4"

	events, discarded := r.Apply([]domain.DecodedMatch{a, b}, now)
	assert.Empty(t, events)
	assert.Equal(t, 0, discarded)
	assert.Equal(t, 1, r.Len())
}
