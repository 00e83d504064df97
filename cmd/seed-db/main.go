// Command seed-db loads the catalog, salon services, shipping zones, demo
// coupons and a default API key into the database. Safe to re-run: every
// write is an upsert.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/glowline/commerce/internal/repository"
)

type productJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Stock    int             `json:"stock"`
	Image    struct {
		Thumbnail string `json:"thumbnail"`
		Mobile    string `json:"mobile"`
		Tablet    string `json:"tablet"`
		Desktop   string `json:"desktop"`
	} `json:"image"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or GLOW_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or GLOW_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("GLOW_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or GLOW_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("GLOW_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedSalonServices(ctx, pool); err != nil {
		return errors.Wrap(err, "seed salon services")
	}
	if err := seedShippingZones(ctx, pool); err != nil {
		return errors.Wrap(err, "seed shipping zones")
	}
	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedPromotions(ctx, pool); err != nil {
		return errors.Wrap(err, "seed promotions")
	}
	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

const upsertProductSQL = `INSERT INTO products
	(id, name, price, category, stock, image_thumbnail, image_mobile, image_tablet, image_desktop)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name, price = EXCLUDED.price, category = EXCLUDED.category,
	stock = EXCLUDED.stock, image_thumbnail = EXCLUDED.image_thumbnail,
	image_mobile = EXCLUDED.image_mobile, image_tablet = EXCLUDED.image_tablet,
	image_desktop = EXCLUDED.image_desktop`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.Price, p.Category, p.Stock,
			p.Image.Thumbnail, p.Image.Mobile, p.Image.Tablet, p.Image.Desktop,
		); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
	}

	return nil
}

const upsertServiceSQL = `INSERT INTO salon_services (id, name, duration_minutes, price, active)
	VALUES ($1, $2, $3, $4, TRUE)
	ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name, duration_minutes = EXCLUDED.duration_minutes,
	price = EXCLUDED.price, active = EXCLUDED.active`

func seedSalonServices(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding salon services")

	services := []struct {
		id       string
		name     string
		duration int
		price    int64
	}{
		{"svc-haircut", "Haircut & Styling", 60, 35000},
		{"svc-coloring", "Hair Coloring", 120, 120000},
		{"svc-manicure", "Manicure", 45, 25000},
		{"svc-facial", "Signature Facial", 90, 80000},
	}

	for _, s := range services {
		if _, err := pool.Exec(ctx, upsertServiceSQL,
			s.id, s.name, s.duration, decimal.NewFromInt(s.price),
		); err != nil {
			return errors.Wrapf(err, "upsert service %s", s.id)
		}
	}
	return nil
}

const upsertZoneSQL = `INSERT INTO shipping_zones
	(id, district, distance_km, base_fee, per_kg_fee, estimated_days, active)
	VALUES ($1, $2, $3, $4, $5, $6, TRUE)
	ON CONFLICT (id) DO UPDATE SET
	district = EXCLUDED.district, distance_km = EXCLUDED.distance_km,
	base_fee = EXCLUDED.base_fee, per_kg_fee = EXCLUDED.per_kg_fee,
	estimated_days = EXCLUDED.estimated_days, active = EXCLUDED.active`

func seedShippingZones(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding shipping zones")

	zones := []struct {
		id, district  string
		distanceKm    float64
		baseFee       int64
		perKgFee      int64
		estimatedDays int
	}{
		{"z-central", "Central", 5, 15000, 2000, 1},
		{"z-north", "North", 18, 25000, 3000, 2},
		{"z-islands", "Outer Islands", 60, 60000, 8000, 5},
	}

	for _, z := range zones {
		if _, err := pool.Exec(ctx, upsertZoneSQL,
			z.id, z.district, decimal.NewFromFloat(z.distanceKm),
			decimal.NewFromInt(z.baseFee), decimal.NewFromInt(z.perKgFee), z.estimatedDays,
		); err != nil {
			return errors.Wrapf(err, "upsert zone %s", z.id)
		}
	}
	return nil
}

const upsertCouponSQL = `INSERT INTO coupons
	(code, discount_type, value, min_order_amount, max_discount_amount,
	usage_limit, per_user_limit, starts_at, ends_at, active)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
	ON CONFLICT (code) DO UPDATE SET
	discount_type = EXCLUDED.discount_type, value = EXCLUDED.value,
	min_order_amount = EXCLUDED.min_order_amount,
	max_discount_amount = EXCLUDED.max_discount_amount,
	usage_limit = EXCLUDED.usage_limit, per_user_limit = EXCLUDED.per_user_limit,
	starts_at = EXCLUDED.starts_at, ends_at = EXCLUDED.ends_at,
	active = EXCLUDED.active`

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo coupons")

	now := time.Now()
	year := now.AddDate(1, 0, 0)

	coupons := []struct {
		code         string
		discountType string
		value        int64
		minOrder     int64
		maxDiscount  int64
		usageLimit   int
		perUserLimit int
	}{
		{"SAVE10", "PERCENTAGE", 10, 0, 5000, 0, 0},
		{"WELCOME", "FIXED", 20000, 100000, 0, 1000, 1},
		{"LASTCALL", "FIXED", 5000, 0, 0, 1, 0},
	}

	for _, c := range coupons {
		if _, err := pool.Exec(ctx, upsertCouponSQL,
			c.code, c.discountType, decimal.NewFromInt(c.value),
			decimal.NewFromInt(c.minOrder), decimal.NewFromInt(c.maxDiscount),
			c.usageLimit, c.perUserLimit, now, year,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}
	}
	return nil
}

const upsertPromotionSQL = `INSERT INTO promotions
	(id, name, type, discount_percent, starts_at, ends_at, active, product_ids)
	VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
	ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name, type = EXCLUDED.type,
	discount_percent = EXCLUDED.discount_percent,
	starts_at = EXCLUDED.starts_at, ends_at = EXCLUDED.ends_at,
	active = EXCLUDED.active, product_ids = EXCLUDED.product_ids`

func seedPromotions(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding promotions")

	now := time.Now()
	if _, err := pool.Exec(ctx, upsertPromotionSQL,
		"promo-season", "Season Opening", "SEASONAL", decimal.NewFromInt(15),
		now, now.AddDate(0, 1, 0), []string{"p-shampoo", "p-conditioner"},
	); err != nil {
		return errors.Wrap(err, "upsert promotion promo-season")
	}
	return nil
}

const upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
	VALUES ($1, $2, $3, $4, TRUE)
	ON CONFLICT (id) DO UPDATE SET
	key_hash = EXCLUDED.key_hash, name = EXCLUDED.name,
	scopes = EXCLUDED.scopes, active = EXCLUDED.active`

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		"default", keyHash, "Default admin key", []string{"admin"},
	); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}
	return nil
}
