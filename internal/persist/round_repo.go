package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RoundRecord is the final standing of one finished round.
type RoundRecord struct {
	ID        uuid.UUID
	Arena     string
	Game      string
	StartedAt time.Time
	EndedAt   time.Time
	Players   []PlayerScore
}

type PlayerScore struct {
	PlayerID uuid.UUID
	Name     string
	Points   int
	Rank     int // 1-based
}

// PlayerTotal is a player's points summed over every saved round.
type PlayerTotal struct {
	PlayerID uuid.UUID
	Name     string
	Points   int
	Rounds   int
}

type RoundRepo struct {
	db *DB
}

func NewRoundRepo(db *DB) *RoundRepo {
	return &RoundRepo{db: db}
}

// Save writes the round and every player's score in a single transaction.
func (r *RoundRepo) Save(ctx context.Context, rec RoundRecord) error {
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("round begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.db.rebind(
		`INSERT INTO rounds (id, arena, game, started_at, ended_at) VALUES (?, ?, ?, ?, ?)`),
		rec.ID.String(), rec.Arena, rec.Game, rec.StartedAt.Unix(), rec.EndedAt.Unix(),
	); err != nil {
		return fmt.Errorf("round insert: %w", err)
	}

	for _, p := range rec.Players {
		if _, err := tx.ExecContext(ctx, r.db.rebind(
			`INSERT INTO round_points (round_id, player_id, player_name, points, rank) VALUES (?, ?, ?, ?, ?)`),
			rec.ID.String(), p.PlayerID.String(), p.Name, p.Points, p.Rank,
		); err != nil {
			return fmt.Errorf("round points insert: %w", err)
		}
	}

	return tx.Commit()
}

// TotalPoints sums a player's points over all saved rounds.
func (r *RoundRepo) TotalPoints(ctx context.Context, player uuid.UUID) (int, error) {
	var total int
	err := r.db.SQL.QueryRowContext(ctx, r.db.rebind(
		`SELECT COALESCE(SUM(points), 0) FROM round_points WHERE player_id = ?`),
		player.String(),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total points: %w", err)
	}
	return total, nil
}

// Leaderboard returns the best players across all rounds.
func (r *RoundRepo) Leaderboard(ctx context.Context, limit int) ([]PlayerTotal, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(
		`SELECT player_id, MAX(player_name), SUM(points), COUNT(*)
		 FROM round_points
		 GROUP BY player_id
		 ORDER BY SUM(points) DESC, player_id
		 LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var out []PlayerTotal
	for rows.Next() {
		var (
			id string
			pt PlayerTotal
		)
		if err := rows.Scan(&id, &pt.Name, &pt.Points, &pt.Rounds); err != nil {
			return nil, fmt.Errorf("leaderboard scan: %w", err)
		}
		if pt.PlayerID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("leaderboard player id %q: %w", id, err)
		}
		out = append(out, pt)
	}
	return out, rows.Err()
}
