package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"courtside/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// queryInt parses an optional integer query parameter, returning def
// when absent and an error flag when present but unparseable.
func queryInt(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// scoresResponse wraps the snapshot with freshness info so clients can
// tell a live list from a stale one surviving feed outages.
type scoresResponse struct {
	Matches      []domain.DecodedMatch `json:"matches"`
	Total        int                   `json:"total"`
	Timestamp    time.Time             `json:"timestamp"`
	DecodeErrors int                   `json:"decode_errors"`
	Stale        bool                  `json:"stale"`
	LastError    string                `json:"last_error,omitempty"`
}

func (rt *Router) handleScores(w http.ResponseWriter, r *http.Request) {
	snap := rt.publisher.Current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot available yet")
		return
	}

	q := r.URL.Query()
	surface := strings.ToLower(strings.TrimSpace(q.Get("surface")))
	startedOnly := q.Get("started_only") == "true"
	minElo, ok := queryInt(r, "min_elo", 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "min_elo must be an integer")
		return
	}
	maxElo, ok := queryInt(r, "max_elo", 0)
	if !ok {
		writeError(w, http.StatusBadRequest, "max_elo must be an integer")
		return
	}

	matches := snap.Matches
	if surface != "" || startedOnly || minElo > 0 || maxElo > 0 {
		filtered := make([]domain.DecodedMatch, 0, len(matches))
		for _, m := range matches {
			if surface != "" && !strings.Contains(strings.ToLower(m.SurfaceDisplay), surface) {
				continue
			}
			if startedOnly && !m.IsStarted {
				continue
			}
			if minElo > 0 && m.Elo < minElo {
				continue
			}
			if maxElo > 0 && m.Elo > maxElo {
				continue
			}
			filtered = append(filtered, m)
		}
		matches = filtered
	}

	writeJSON(w, http.StatusOK, scoresResponse{
		Matches:      matches,
		Total:        len(matches),
		Timestamp:    snap.Timestamp,
		DecodeErrors: snap.DecodeErrors,
		Stale:        rt.publisher.Stale(),
		LastError:    rt.publisher.LastError(),
	})
}

// statsEnvelope carries counter data with the degraded flag, which is
// set while finish events are waiting on a store retry and the
// counters may be temporarily behind.
type statsEnvelope struct {
	Degraded bool        `json:"degraded"`
	Data     interface{} `json:"data"`
}

func (rt *Router) handleStatsToday(w http.ResponseWriter, r *http.Request) {
	stats, err := rt.agg.TodayStats(r.Context())
	if err != nil {
		rt.log.Error().Err(err).Msg("loading today stats")
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, statsEnvelope{Degraded: rt.agg.Degraded(), Data: stats})
}

func (rt *Router) handleStatsHistory(w http.ResponseWriter, r *http.Request) {
	days, ok := queryInt(r, "days", 7)
	if !ok || days < 1 || days > 90 {
		writeError(w, http.StatusBadRequest, "days must be an integer between 1 and 90")
		return
	}

	history, err := rt.agg.History(r.Context(), days)
	if err != nil {
		rt.log.Error().Err(err).Msg("loading stats history")
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	if history == nil {
		history = []domain.DailyCounters{}
	}
	writeJSON(w, http.StatusOK, statsEnvelope{Degraded: rt.agg.Degraded(), Data: history})
}

func (rt *Router) handleStatsMonthly(w http.ResponseWriter, r *http.Request) {
	rollup, err := rt.agg.Monthly(r.Context())
	if err != nil {
		rt.log.Error().Err(err).Msg("loading monthly rollup")
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, statsEnvelope{Degraded: rt.agg.Degraded(), Data: rollup})
}

func (rt *Router) handleTopPlayers(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", 10)
	if !ok || limit < 1 || limit > 100 {
		writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 100")
		return
	}

	players, err := rt.agg.TopPlayers(r.Context(), limit)
	if err != nil {
		rt.log.Error().Err(err).Msg("loading top players")
		writeError(w, http.StatusInternalServerError, "failed to load players")
		return
	}
	if players == nil {
		players = []domain.TopPlayer{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"players": players})
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	var age float64
	if d, ok := rt.publisher.Age(time.Now()); ok {
		age = d.Seconds()
	} else {
		status = "starting"
	}
	if rt.publisher.Stale() {
		status = "stale"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       status,
		"snapshot_age": age,
		"degraded":     rt.agg.Degraded(),
		"last_error":   rt.publisher.LastError(),
	})
}
