package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowline/commerce/internal/domain/reward"
)

const (
	insertRewardEntrySQL = `INSERT INTO reward_points (id, user_id, points, type, order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	rewardBalanceSQL = `SELECT COALESCE(SUM(points), 0) FROM reward_points WHERE user_id = $1`

	rewardExistsForOrderSQL = `SELECT EXISTS (
		SELECT 1 FROM reward_points WHERE order_id = $1 AND type = $2)`
)

var _ reward.Repository = (*RewardRepository)(nil)

// RewardRepository implements reward.Repository backed by PostgreSQL. The
// table is an append-only ledger; there are no UPDATE or DELETE statements.
type RewardRepository struct {
	pool *pgxpool.Pool
}

// NewRewardRepository returns a RewardRepository that uses the given pool.
func NewRewardRepository(pool *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{pool: pool}
}

// Append writes one ledger entry within tx.
func (r *RewardRepository) Append(ctx context.Context, tx pgx.Tx, e reward.Entry) error {
	_, err := tx.Exec(ctx, insertRewardEntrySQL,
		e.ID, e.UserID, e.Points, string(e.Type), nullIfEmpty(e.OrderID), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("appending reward entry for user %q: %w", e.UserID, err)
	}
	return nil
}

// Balance returns the sum of a user's ledger entries.
func (r *RewardRepository) Balance(ctx context.Context, userID string) (int64, error) {
	var sum int64
	if err := r.pool.QueryRow(ctx, rewardBalanceSQL, userID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("summing reward balance for user %q: %w", userID, err)
	}
	return sum, nil
}

// ExistsForOrder reports whether an entry of the given type already
// references orderID.
func (r *RewardRepository) ExistsForOrder(ctx context.Context, tx pgx.Tx, orderID string, typ reward.EntryType) (bool, error) {
	var exists bool
	if err := tx.QueryRow(ctx, rewardExistsForOrderSQL, orderID, string(typ)).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking reward entry for order %q: %w", orderID, err)
	}
	return exists, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
