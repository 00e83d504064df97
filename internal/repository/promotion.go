package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/glowline/commerce/internal/domain/promotion"
)

const activePromotionsSQL = `SELECT id, name, type, discount_percent,
	starts_at, ends_at, active, product_ids
	FROM promotions
	WHERE active = TRUE AND starts_at <= $1 AND ends_at >= $1
	ORDER BY starts_at`

var _ promotion.Repository = (*PromotionRepository)(nil)

// PromotionRepository implements promotion.Repository backed by PostgreSQL.
// Targeted products are stored as a TEXT[] column.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given
// pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// ActiveAt returns promotions whose [starts_at, ends_at] window contains t
// and whose active flag is set.
func (r *PromotionRepository) ActiveAt(ctx context.Context, t time.Time) ([]promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, activePromotionsSQL, t)
	if err != nil {
		return nil, fmt.Errorf("listing active promotions: %w", err)
	}
	return pgx.CollectRows(rows, scanPromotion)
}

func scanPromotion(row pgx.CollectableRow) (promotion.Promotion, error) {
	var p promotion.Promotion
	err := row.Scan(
		&p.ID, &p.Name, &p.Type, &p.DiscountPercent,
		&p.StartsAt, &p.EndsAt, &p.Active, &p.ProductIDs,
	)
	return p, err
}
