package promotion

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/glowline/commerce/internal/domain/catalog"
)

var hundred = decimal.NewFromInt(100)

// DiscountedProduct is a catalog product annotated with the promotional
// price it currently sells at.
type DiscountedProduct struct {
	Product         catalog.Product
	PromotionID     string
	PromotionName   string
	DiscountPercent decimal.Decimal
	DiscountedPrice decimal.Decimal
}

// Service resolves active promotions against the product catalog. It is a
// read-only path and mutates no state.
type Service struct {
	promotions Repository
	products   catalog.Repository
}

// NewService creates a promotion Service.
func NewService(promotions Repository, products catalog.Repository) *Service {
	return &Service{promotions: promotions, products: products}
}

// Active returns all products discounted by a promotion whose window
// contains now, with their discounted prices rounded to the whole currency
// unit. Products referenced by a promotion but missing from the catalog are
// skipped.
func (s *Service) Active(ctx context.Context, now time.Time) ([]DiscountedProduct, error) {
	promos, err := s.promotions.ActiveAt(ctx, now)
	if err != nil {
		return nil, errors.Wrap(err, "list active promotions")
	}
	if len(promos) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(promos))
	seen := make(map[string]struct{})
	for _, p := range promos {
		for _, id := range p.ProductIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "fetch promoted products")
	}

	byID := make(map[string]catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var out []DiscountedProduct
	for _, promo := range promos {
		for _, id := range promo.ProductIDs {
			p, ok := byID[id]
			if !ok {
				continue
			}
			discounted := p.Price.Sub(p.Price.Mul(promo.DiscountPercent).Div(hundred)).Round(0)
			out = append(out, DiscountedProduct{
				Product:         p,
				PromotionID:     promo.ID,
				PromotionName:   promo.Name,
				DiscountPercent: promo.DiscountPercent,
				DiscountedPrice: discounted,
			})
		}
	}
	return out, nil
}
