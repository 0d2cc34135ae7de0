package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"courtside/internal/domain"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// formatTimestamp converts time.Time to SQLite-compatible UTC ISO8601.
// The Z suffix ensures the Go sqlite driver parses it back as UTC.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// Store provides database access for the durable counters
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// modColumn whitelists the mod types that map to daily_stats columns.
// Column names are interpolated into SQL, so anything unknown falls
// back to vanilla rather than into the query string.
func modColumn(modType string) string {
	switch modType {
	case domain.ModXKT, domain.ModWTSL:
		return modType
	default:
		return domain.ModVanilla
	}
}

func formatColumn(formatClass string) string {
	switch formatClass {
	case domain.FormatBo3, domain.FormatBo5:
		return formatClass
	default:
		return domain.FormatBo1
	}
}

// FinishMatch atomically records a finished match and bumps the daily
// counters. The UNIQUE constraint on match_id is the idempotency
// guard: the first call for an id returns true and counts it, every
// later call returns false and changes nothing. finished_matches rows
// are kept forever so an id can never be counted twice, even across
// restarts.
func (s *Store) FinishMatch(ctx context.Context, ev domain.FinishEvent, day string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO finished_matches (match_id, day, name, score, mod_type, format_class, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.MatchID, day, ev.Name, ev.Score, ev.ModType, ev.FormatClass, formatTimestamp(ev.FinishedAt))
	if err != nil {
		return false, fmt.Errorf("recording finished match: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking insert: %w", err)
	}
	if inserted == 0 {
		// Already counted by an earlier cycle or a previous run
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_stats (day, updated_at) VALUES (?, ?)`,
		day, formatTimestamp(ev.FinishedAt)); err != nil {
		return false, fmt.Errorf("ensuring daily row: %w", err)
	}

	mod := modColumn(ev.ModType)
	format := formatColumn(ev.FormatClass)
	query := fmt.Sprintf(`
		UPDATE daily_stats
		SET %s_total = %s_total + 1,
		    %s_%s = %s_%s + 1,
		    updated_at = ?
		WHERE day = ?`,
		mod, mod, mod, format, mod, format)
	if _, err := tx.ExecContext(ctx, query, formatTimestamp(ev.FinishedAt), day); err != nil {
		return false, fmt.Errorf("incrementing daily counters: %w", err)
	}

	for _, player := range ev.Players {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO player_appearances (name, appearances, last_seen)
			VALUES (?, 1, ?)
			ON CONFLICT(name) DO UPDATE SET
				appearances = appearances + 1,
				last_seen = excluded.last_seen`,
			player, day); err != nil {
			return false, fmt.Errorf("recording player appearance: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing finish: %w", err)
	}
	return true, nil
}

const dailyColumns = `day,
	xkt_total, xkt_bo1, xkt_bo3, xkt_bo5,
	wtsl_total, wtsl_bo1, wtsl_bo3, wtsl_bo5,
	vanilla_total, vanilla_bo1, vanilla_bo3, vanilla_bo5`

func scanDaily(row interface {
	Scan(dest ...interface{}) error
}) (*domain.DailyCounters, error) {
	var d domain.DailyCounters
	err := row.Scan(&d.Date,
		&d.XKT.Total, &d.XKT.Bo1, &d.XKT.Bo3, &d.XKT.Bo5,
		&d.WTSL.Total, &d.WTSL.Bo1, &d.WTSL.Bo3, &d.WTSL.Bo5,
		&d.Vanilla.Total, &d.Vanilla.Bo1, &d.Vanilla.Bo3, &d.Vanilla.Bo5)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDailyStats returns the counters for one day. A day with no
// finished matches yet returns zeroed counters, not an error.
func (s *Store) GetDailyStats(ctx context.Context, day string) (*domain.DailyCounters, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+dailyColumns+` FROM daily_stats WHERE day = ?`, day)

	d, err := scanDaily(row)
	if err == sql.ErrNoRows {
		return &domain.DailyCounters{Date: day}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying daily stats: %w", err)
	}
	return d, nil
}

// GetStatsHistory returns up to `days` most recent daily rows, newest
// first.
func (s *Store) GetStatsHistory(ctx context.Context, days int) ([]domain.DailyCounters, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+dailyColumns+` FROM daily_stats ORDER BY day DESC LIMIT ?`, days)
	if err != nil {
		return nil, fmt.Errorf("querying stats history: %w", err)
	}
	defer rows.Close()

	var history []domain.DailyCounters
	for rows.Next() {
		d, err := scanDaily(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning daily stats: %w", err)
		}
		history = append(history, *d)
	}
	return history, rows.Err()
}

// GetTopPlayers returns the ranked appearance list
func (s *Store) GetTopPlayers(ctx context.Context, limit int) ([]domain.TopPlayer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, appearances, last_seen
		FROM player_appearances
		ORDER BY appearances DESC, name ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top players: %w", err)
	}
	defer rows.Close()

	var players []domain.TopPlayer
	for rows.Next() {
		var p domain.TopPlayer
		if err := rows.Scan(&p.Name, &p.Appearances, &p.LastSeen); err != nil {
			return nil, fmt.Errorf("scanning top player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// CountFinishedOn returns the number of individually recorded finishes
// for a day, used as a consistency check against the counters.
func (s *Store) CountFinishedOn(ctx context.Context, day string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM finished_matches WHERE day = ?`, day).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting finished matches: %w", err)
	}
	return n, nil
}
