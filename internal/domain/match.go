package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Mod types inferred from the match name and tag line
const (
	ModVanilla = "vanilla"
	ModXKT     = "xkt"
	ModWTSL    = "wtsl"
)

// Format classes derived from the GameInfo set count
const (
	FormatBo1 = "bo1"
	FormatBo3 = "bo3"
	FormatBo5 = "bo5"
)

// ModTypes lists every known mod bucket, vanilla last
var ModTypes = []string{ModXKT, ModWTSL, ModVanilla}

// StartedIPSentinel is the literal IP token the feed uses for a match
// that has already started and no longer accepts joins.
const StartedIPSentinel = "0"

// DecodedMatch is one advertised match from a feed payload. A fresh
// list is decoded every poll cycle; instances are never mutated after
// decoding.
type DecodedMatch struct {
	IP                string   `json:"ip"`
	Port              int      `json:"port"`
	Name              string   `json:"name"`
	GameInfo          GameInfo `json:"game_info"`
	MaxPing           int      `json:"max_ping"`
	Elo               int      `json:"elo"`
	GamesPlayed       int      `json:"games_played"`
	TagLine           string   `json:"tag_line"`
	Score             string   `json:"score"`
	OtherElo          int      `json:"other_elo"`
	GiveUpRate        int      `json:"give_up_rate"`
	Reputation        int      `json:"reputation"`
	SurfaceName       string   `json:"surface_name"`
	CreationTimeMs    int64    `json:"creation_time_ms"`
	IsStarted         bool     `json:"is_started"`
	MatchID           string   `json:"match_id"`
	SurfaceDisplay    string   `json:"surface_display"`
	TournamentDisplay string   `json:"tournament_display,omitempty"`
	ModType           string   `json:"mod_type"`
	FormatClass       string   `json:"format_class"`
}

// Derive fills in all computed fields from the wire fields. The
// decoder calls it once per entry.
func (m *DecodedMatch) Derive() {
	m.IsStarted = m.IP == StartedIPSentinel
	m.MatchID = MatchID(m.CreationTimeMs, m.Name, m.Port)
	m.SurfaceDisplay = SurfaceDisplay(m.SurfaceName)
	m.TournamentDisplay = TournamentDisplay(m.SurfaceName)
	m.ModType = DetectModType(m.Name, m.TagLine)
	m.FormatClass = m.GameInfo.FormatClass()
}

// PlayerNames splits "player1 vs player2" out of the match name.
// The second name is "Unknown" when the name has no "vs" separator.
func (m *DecodedMatch) PlayerNames() (string, string) {
	if p1, p2, ok := strings.Cut(m.Name, " vs "); ok {
		return strings.TrimSpace(p1), strings.TrimSpace(p2)
	}
	return strings.TrimSpace(m.Name), "Unknown"
}

// MatchID builds the stable per-match identifier from the fields that
// never change across poll cycles. Score, elo and games played do
// change, so they must stay out of the hash.
func MatchID(creationTimeMs int64, name string, port int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s:%d", creationTimeMs, name, port)))
	return "m_" + hex.EncodeToString(sum[:8])
}

// DetectModType infers the community ruleset from the match name and
// tag line. WTSL markers win over XKT when both appear.
func DetectModType(name, tagLine string) string {
	haystack := strings.ToLower(name + " " + tagLine)
	switch {
	case strings.Contains(haystack, "wtsl"):
		return ModWTSL
	case strings.Contains(haystack, "xkt"):
		return ModXKT
	default:
		return ModVanilla
	}
}

// surfaceDisplayNames maps raw surface codes from the feed to display names
var surfaceDisplayNames = map[string]string{
	"BlueGreenCement": "Hard Court",
	"Clay":            "Clay Court",
	"Grass":           "Grass Court",
	"Indoor":          "Indoor Hard",
	"Carpet":          "Carpet",
}

var tournamentPrefix = regexp.MustCompile(`^\d+\s+`)

// SurfaceDisplay resolves the SurfaceName field to a display surface.
// The field carries either a surface code ("BlueGreenCement") or a
// tournament name with a numeric prefix ("0010 AO Rod Laver Night");
// for tournaments the surface is inferred from the tournament.
func SurfaceDisplay(surfaceName string) string {
	name := strings.TrimSpace(surfaceName)
	if display, ok := surfaceDisplayNames[name]; ok {
		return display
	}

	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "clay"):
		return "Clay Court"
	case strings.Contains(lower, "grass"):
		return "Grass Court"
	case strings.Contains(lower, "indoor"):
		return "Indoor Hard"
	case strings.Contains(lower, "cement"), strings.Contains(lower, "hard"):
		return "Hard Court"
	}

	if tournamentPrefix.MatchString(name) {
		switch {
		case strings.Contains(name, "Wimbledon"):
			return "Grass Court"
		case strings.Contains(name, "Roland Garros"),
			strings.Contains(name, "French"),
			strings.Contains(name, "Roma"):
			return "Clay Court"
		}
		// AO, US Open and the remaining hard-court tours
		return "Hard Court"
	}

	return name
}

// TournamentDisplay extracts a tournament name from the SurfaceName
// field, stripping the numeric prefix code. Returns "" for plain
// surface codes.
func TournamentDisplay(surfaceName string) string {
	name := strings.TrimSpace(surfaceName)
	if _, ok := surfaceDisplayNames[name]; ok {
		return ""
	}

	cleaned := tournamentPrefix.ReplaceAllString(name, "")
	if _, ok := surfaceDisplayNames[cleaned]; ok {
		return ""
	}
	return cleaned
}
