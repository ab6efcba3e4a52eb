// Package history persists finished-game records to SQLite and answers
// simple queries over them. The store implements game.LifecycleHooks so a
// session can hand off its record without knowing where it lands.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/playone/oneserver/internal/game"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("history: not found")

// Store is a SQLite-backed game history. Safe for concurrent use; the
// underlying pool is pinned to a single connection so WAL writers never
// contend with each other.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// GameSummary is one finished game as stored.
type GameSummary struct {
	ID               int64
	RoomCode         string
	SessionID        string
	StartedAt        time.Time
	EndedAt          time.Time
	DurationMinutes  int
	WinnerUserID     string
	TotalCardsPlayed int
	Participants     []string
}

// PlayerStats aggregates a user's record across all stored games.
type PlayerStats struct {
	UserID      string
	GamesPlayed int
	GamesWon    int
	TotalScore  int
}

// Open creates or opens the history database at dbPath, bootstrapping the
// schema. ":memory:" is accepted for tests.
func Open(dbPath string, logger zerolog.Logger) (*Store, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty history database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
	}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordGameEnd satisfies game.LifecycleHooks. Called from a detached
// goroutine, so failures are logged rather than returned; a lost record
// must never take a room down with it.
func (s *Store) RecordGameEnd(rec game.GameRecord) {
	if err := s.insertRecord(context.Background(), rec); err != nil {
		s.logger.Error().
			Err(err).
			Str("room", rec.RoomCode).
			Str("session", rec.SessionID).
			Msg("record game end failed")
		return
	}
	s.logger.Debug().
		Str("room", rec.RoomCode).
		Str("winner", rec.WinnerUserID).
		Int("participants", len(rec.Participants)).
		Msg("game recorded")
}

func (s *Store) insertRecord(ctx context.Context, rec game.GameRecord) error {
	if strings.TrimSpace(rec.SessionID) == "" {
		return fmt.Errorf("empty session id")
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
INSERT INTO games (
    session_id, room_code, started_at_ms, ended_at_ms, duration_minutes,
    winner_user_id, total_cards_played, created_at_ms
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (session_id) DO NOTHING
`, rec.SessionID, rec.RoomCode,
		rec.StartedAt.UTC().UnixMilli(), rec.EndedAt.UTC().UnixMilli(),
		rec.DurationMinutes, rec.WinnerUserID, rec.TotalCardsPlayed,
		time.Now().UTC().UnixMilli())
	if err != nil {
		return err
	}
	gameID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Duplicate session id, the first record wins.
		return tx.Commit()
	}

	for _, userID := range rec.Participants {
		won := 0
		if userID == rec.WinnerUserID {
			won = 1
		}
		_, err := tx.ExecContext(ctx, `
INSERT INTO game_participants (game_id, user_id, score, won)
VALUES (?, ?, ?, ?)
`, gameID, userID, rec.FinalScores[userID], won)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentGames returns the newest stored games, participants included.
func (s *Store) RecentGames(ctx context.Context, limit int) ([]GameSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, room_code, started_at_ms, ended_at_ms,
       duration_minutes, winner_user_id, total_cards_played
FROM games
ORDER BY ended_at_ms DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := make([]GameSummary, 0, limit)
	for rows.Next() {
		var g GameSummary
		var startedMs, endedMs int64
		if err := rows.Scan(&g.ID, &g.SessionID, &g.RoomCode, &startedMs, &endedMs,
			&g.DurationMinutes, &g.WinnerUserID, &g.TotalCardsPlayed); err != nil {
			return nil, err
		}
		g.StartedAt = time.UnixMilli(startedMs).UTC()
		g.EndedAt = time.UnixMilli(endedMs).UTC()
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range games {
		parts, err := s.participantsOf(ctx, games[i].ID)
		if err != nil {
			return nil, err
		}
		games[i].Participants = parts
	}
	return games, nil
}

func (s *Store) participantsOf(ctx context.Context, gameID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT user_id FROM game_participants WHERE game_id = ? ORDER BY id ASC
`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// StatsFor aggregates one user's games, wins, and accumulated score.
func (s *Store) StatsFor(ctx context.Context, userID string) (PlayerStats, error) {
	if strings.TrimSpace(userID) == "" {
		return PlayerStats{}, ErrNotFound
	}

	var stats PlayerStats
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(1), COALESCE(SUM(won), 0), COALESCE(SUM(score), 0)
FROM game_participants
WHERE user_id = ?
`, userID).Scan(&stats.GamesPlayed, &stats.GamesWon, &stats.TotalScore)
	if err != nil {
		return PlayerStats{}, err
	}
	if stats.GamesPlayed == 0 {
		return PlayerStats{}, ErrNotFound
	}
	stats.UserID = userID
	return stats, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS games (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    room_code TEXT NOT NULL,
    started_at_ms INTEGER NOT NULL,
    ended_at_ms INTEGER NOT NULL,
    duration_minutes INTEGER NOT NULL,
    winner_user_id TEXT NOT NULL DEFAULT '',
    total_cards_played INTEGER NOT NULL DEFAULT 0,
    created_at_ms INTEGER NOT NULL,
    UNIQUE (session_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_games_ended_at ON games(ended_at_ms DESC)`,
		`
CREATE TABLE IF NOT EXISTS game_participants (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    game_id INTEGER NOT NULL REFERENCES games(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    score INTEGER NOT NULL DEFAULT 0,
    won INTEGER NOT NULL DEFAULT 0,
    UNIQUE (game_id, user_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_game_participants_user ON game_participants(user_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
