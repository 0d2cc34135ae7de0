package collector

import (
	"fmt"
	"strconv"
	"unicode"

	"courtside/internal/domain"
)

// entryTokens is the fixed token count of one feed entry:
// Ip Port "Name" GameInfo MaxPing Elo NbGame "TagLine" "Score"
// OtherElo GiveUpRate Reputation "SurfaceName" CreationTimeInMs
const entryTokens = 14

// quotedAt marks which positions inside an entry carry quoted strings
var quotedAt = [entryTokens]bool{2: true, 7: true, 8: true, 12: true}

// token is one lexed feed field. Quoted distinguishes `"0"` from the
// bare started-match sentinel `0`.
type token struct {
	text   string
	quoted bool
}

// tokenize splits a raw payload on whitespace, keeping double-quoted
// substrings (which may contain spaces, but not quotes) as single
// tokens. An unterminated quote consumes the rest of the payload.
func tokenize(raw string) []token {
	var tokens []token
	runes := []rune(raw)

	i := 0
	for i < len(runes) {
		if unicode.IsSpace(runes[i]) {
			i++
			continue
		}

		if runes[i] == '"' {
			j := i + 1
			for j < len(runes) && runes[j] != '"' {
				j++
			}
			tokens = append(tokens, token{text: string(runes[i+1 : j]), quoted: true})
			i = j + 1
			continue
		}

		j := i
		for j < len(runes) && !unicode.IsSpace(runes[j]) && runes[j] != '"' {
			j++
		}
		tokens = append(tokens, token{text: string(runes[i:j])})
		i = j
	}

	return tokens
}

// entryStartsAt reports whether toks[i:i+14] has the quoted-field
// fingerprint of a well-formed entry. Used both for consuming entries
// and for resynchronizing after a malformed one.
func entryStartsAt(toks []token, i int) bool {
	if i+entryTokens > len(toks) {
		return false
	}
	for j := 0; j < entryTokens; j++ {
		if toks[i+j].quoted != quotedAt[j] {
			return false
		}
	}
	return true
}

// Decode parses one raw feed payload into the ordered match list plus
// a count of entries skipped as malformed. A bad entry never aborts
// the batch: the decoder counts it and resynchronizes on the next
// token window that looks like an entry start.
func Decode(raw string) ([]domain.DecodedMatch, int) {
	toks := tokenize(raw)

	var matches []domain.DecodedMatch
	skipped := 0

	i := 0
	for i < len(toks) {
		if !entryStartsAt(toks, i) {
			// Malformed run (wrong token count, stray fields, or a
			// truncated tail). Count it once and skip to the next
			// plausible entry boundary.
			skipped++
			i++
			for i < len(toks) && !entryStartsAt(toks, i) {
				i++
			}
			continue
		}

		m, err := decodeEntry(toks[i : i+entryTokens])
		if err != nil {
			skipped++
		} else {
			matches = append(matches, *m)
		}
		i += entryTokens
	}

	return matches, skipped
}

// parseHex parses one numeric wire field. All numerics in the feed
// are hexadecimal, without a 0x prefix.
func parseHex(t token, field string) (int64, error) {
	v, err := strconv.ParseInt(t.text, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s %q: %w", field, t.text, err)
	}
	return v, nil
}

// decodeEntry parses exactly one 14-token entry
func decodeEntry(toks []token) (*domain.DecodedMatch, error) {
	ip := toks[0].text
	if ip != domain.StartedIPSentinel {
		if _, err := parseHex(toks[0], "ip"); err != nil {
			return nil, err
		}
	}

	port, err := parseHex(toks[1], "port")
	if err != nil {
		return nil, err
	}
	gameInfo, err := parseHex(toks[3], "game_info")
	if err != nil {
		return nil, err
	}
	maxPing, err := parseHex(toks[4], "max_ping")
	if err != nil {
		return nil, err
	}
	elo, err := parseHex(toks[5], "elo")
	if err != nil {
		return nil, err
	}
	nbGame, err := parseHex(toks[6], "nb_game")
	if err != nil {
		return nil, err
	}
	otherElo, err := parseHex(toks[9], "other_elo")
	if err != nil {
		return nil, err
	}
	giveUpRate, err := parseHex(toks[10], "give_up_rate")
	if err != nil {
		return nil, err
	}
	reputation, err := parseHex(toks[11], "reputation")
	if err != nil {
		return nil, err
	}
	creationTimeMs, err := parseHex(toks[13], "creation_time_ms")
	if err != nil {
		return nil, err
	}

	m := &domain.DecodedMatch{
		IP:             ip,
		Port:           int(port),
		Name:           toks[2].text,
		GameInfo:       domain.UnpackGameInfo(gameInfo),
		MaxPing:        int(maxPing),
		Elo:            int(elo),
		GamesPlayed:    int(nbGame),
		TagLine:        toks[7].text,
		Score:          toks[8].text,
		OtherElo:       int(otherElo),
		GiveUpRate:     int(giveUpRate),
		Reputation:     int(reputation),
		SurfaceName:    toks[12].text,
		CreationTimeMs: creationTimeMs,
	}
	m.Derive()

	return m, nil
}
