package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchIDStable(t *testing.T) {
	id := MatchID(1700000000000, "Ann vs Bob", 8080)

	assert.True(t, len(id) == 18, "id should be m_ plus 16 hex chars, got %q", id)
	assert.Equal(t, "m_", id[:2])

	// Identity fields only: the same lobby produces the same id every
	// cycle regardless of how the mutable fields evolve.
	assert.Equal(t, id, MatchID(1700000000000, "Ann vs Bob", 8080))

	assert.NotEqual(t, id, MatchID(1700000000001, "Ann vs Bob", 8080))
	assert.NotEqual(t, id, MatchID(1700000000000, "Ann vs Carol", 8080))
	assert.NotEqual(t, id, MatchID(1700000000000, "Ann vs Bob", 8081))
}

func TestPlayerNames(t *testing.T) {
	tests := []struct {
		name   string
		wantP1 string
		wantP2 string
	}{
		{"Ann vs Bob", "Ann", "Bob"},
		{"Ann  vs  Bob", "Ann", "Bob"},
		{"Waiting for opponent", "Waiting for opponent", "Unknown"},
		{"", "", "Unknown"},
	}

	for _, tt := range tests {
		m := DecodedMatch{Name: tt.name}
		p1, p2 := m.PlayerNames()
		assert.Equal(t, tt.wantP1, p1, "name %q", tt.name)
		assert.Equal(t, tt.wantP2, p2, "name %q", tt.name)
	}
}

func TestDetectModType(t *testing.T) {
	tests := []struct {
		name    string
		tagLine string
		want    string
	}{
		{"Ann vs Bob", "", ModVanilla},
		{"Ann vs Bob", "xkt league", ModXKT},
		{"XKT Ann vs Bob", "", ModXKT},
		{"Ann vs Bob", "WTSL season 4", ModWTSL},
		{"wtsl final", "xkt", ModWTSL}, // wtsl markers win
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectModType(tt.name, tt.tagLine), "name=%q tag=%q", tt.name, tt.tagLine)
	}
}

func TestSurfaceDisplay(t *testing.T) {
	tests := []struct {
		surface string
		want    string
	}{
		{"BlueGreenCement", "Hard Court"},
		{"Clay", "Clay Court"},
		{"Grass", "Grass Court"},
		{"0010 AO Rod Laver Night", "Hard Court"},
		{"0021 Wimbledon Centre Court", "Grass Court"},
		{"0030 Roland Garros Chatrier", "Clay Court"},
		{"SomethingNew", "SomethingNew"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SurfaceDisplay(tt.surface), "surface %q", tt.surface)
	}
}

func TestTournamentDisplay(t *testing.T) {
	assert.Equal(t, "", TournamentDisplay("Clay"))
	assert.Equal(t, "", TournamentDisplay("BlueGreenCement"))
	assert.Equal(t, "AO Rod Laver Night", TournamentDisplay("0010 AO Rod Laver Night"))
	assert.Equal(t, "Wimbledon Centre Court", TournamentDisplay("0021 Wimbledon Centre Court"))
}

func TestDerive(t *testing.T) {
	m := DecodedMatch{
		IP:             "0",
		Port:           8080,
		Name:           "Ann vs Bob",
		GameInfo:       UnpackGameInfo(0x45),
		TagLine:        "xkt",
		SurfaceName:    "Clay",
		CreationTimeMs: 1700000000000,
	}
	m.Derive()

	assert.True(t, m.IsStarted)
	assert.Equal(t, MatchID(1700000000000, "Ann vs Bob", 8080), m.MatchID)
	assert.Equal(t, "Clay Court", m.SurfaceDisplay)
	assert.Equal(t, "", m.TournamentDisplay)
	assert.Equal(t, ModXKT, m.ModType)
	assert.Equal(t, FormatBo3, m.FormatClass)

	m.IP = "C0A80101"
	m.Derive()
	assert.False(t, m.IsStarted)
}
