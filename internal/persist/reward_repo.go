package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Reward struct {
	RoundID   uuid.UUID
	PlayerID  uuid.UUID
	Rank      int
	Reward    string
	GrantedAt time.Time
}

type RewardRepo struct {
	db *DB
}

func NewRewardRepo(db *DB) *RewardRepo {
	return &RewardRepo{db: db}
}

// Grant records rewards for a round in one transaction. Granting the same
// reward twice for a round is a no-op.
func (r *RewardRepo) Grant(ctx context.Context, rewards []Reward) error {
	if len(rewards) == 0 {
		return nil
	}
	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("reward begin: %w", err)
	}
	defer tx.Rollback()

	for _, rw := range rewards {
		if _, err := tx.ExecContext(ctx, r.db.rebind(
			`INSERT INTO rewards (round_id, player_id, rank, reward, granted_at) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (round_id, player_id, reward) DO NOTHING`),
			rw.RoundID.String(), rw.PlayerID.String(), rw.Rank, rw.Reward, rw.GrantedAt.Unix(),
		); err != nil {
			return fmt.Errorf("reward insert: %w", err)
		}
	}
	return tx.Commit()
}

// ListFor returns a player's rewards, newest first.
func (r *RewardRepo) ListFor(ctx context.Context, player uuid.UUID) ([]Reward, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.rebind(
		`SELECT round_id, rank, reward, granted_at FROM rewards
		 WHERE player_id = ? ORDER BY granted_at DESC, rank`), player.String())
	if err != nil {
		return nil, fmt.Errorf("list rewards: %w", err)
	}
	defer rows.Close()

	var out []Reward
	for rows.Next() {
		var (
			roundID string
			granted int64
			rw      = Reward{PlayerID: player}
		)
		if err := rows.Scan(&roundID, &rw.Rank, &rw.Reward, &granted); err != nil {
			return nil, fmt.Errorf("list rewards scan: %w", err)
		}
		if rw.RoundID, err = uuid.Parse(roundID); err != nil {
			return nil, fmt.Errorf("reward round id %q: %w", roundID, err)
		}
		rw.GrantedAt = time.Unix(granted, 0)
		out = append(out, rw)
	}
	return out, rows.Err()
}
