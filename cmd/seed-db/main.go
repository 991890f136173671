// Command seed-db provisions the database schema and seeds the catalog,
// a starter set of discounts, and the default admin API key.
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

	"github.com/matchamart/storefront/internal/storage/postgres"
)

type productJSON struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	ImageURL    string          `json:"imageUrl"`
	Stock       int             `json:"stock"`
}

type discountSeed struct {
	code        string
	description string
	kind        string
	value       decimal.Decimal
	minOrder    decimal.Decimal
	maxDiscount decimal.Decimal
	usageLimit  int32
	allProducts bool
	categoryIDs []string
	endsInDays  int
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
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or MATCHA_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or MATCHA_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("MATCHA_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or MATCHA_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("MATCHA_API_KEY_PEPPER")
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

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedDiscounts(ctx, pool); err != nil {
		return errors.Wrap(err, "seed discounts")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

const upsertProductSQL = `INSERT INTO products (id, name, description, price, category, image_url, stock)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name,
		description = EXCLUDED.description, price = EXCLUDED.price,
		category = EXCLUDED.category, image_url = EXCLUDED.image_url,
		stock = EXCLUDED.stock`

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
		_, err := pool.Exec(ctx, upsertProductSQL,
			p.ID, p.Name, p.Description, p.Price, p.Category, p.ImageURL, int32(p.Stock))
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

const upsertDiscountSQL = `INSERT INTO discounts (code, description, discount_type,
	value, min_order_amount, max_discount_amount, ends_at, is_active,
	usage_limit, all_products, category_ids, created_by)
	VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9, $10, 'seed')
	ON CONFLICT (code) DO UPDATE SET description = EXCLUDED.description,
		discount_type = EXCLUDED.discount_type, value = EXCLUDED.value,
		min_order_amount = EXCLUDED.min_order_amount,
		max_discount_amount = EXCLUDED.max_discount_amount,
		ends_at = EXCLUDED.ends_at, usage_limit = EXCLUDED.usage_limit,
		all_products = EXCLUDED.all_products, category_ids = EXCLUDED.category_ids`

func seedDiscounts(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding starter discounts")

	seeds := []discountSeed{
		{
			code:        "WELCOME10",
			description: "Welcome: 10% off your first order",
			kind:        "percentage",
			value:       decimal.NewFromInt(10),
			allProducts: true,
		},
		{
			code:        "SUMMER20",
			description: "Summer sale: 20% off teaware (max $50)",
			kind:        "percentage",
			value:       decimal.NewFromInt(20),
			minOrder:    decimal.NewFromInt(50),
			maxDiscount: decimal.NewFromInt(50),
			categoryIDs: []string{"cat_teaware"},
			endsInDays:  90,
		},
		{
			code:        "FREESHIP",
			description: "$5 off shipping-sized orders",
			kind:        "fixed",
			value:       decimal.NewFromInt(5),
			minOrder:    decimal.NewFromInt(25),
			allProducts: true,
		},
	}

	for _, s := range seeds {
		var endsAt *time.Time
		if s.endsInDays > 0 {
			t := time.Now().AddDate(0, 0, s.endsInDays)
			endsAt = &t
		}

		_, err := pool.Exec(ctx, upsertDiscountSQL,
			s.code, s.description, s.kind, s.value, s.minOrder, s.maxDiscount,
			endsAt, s.usageLimit, s.allProducts, s.categoryIDs)
		if err != nil {
			return errors.Wrapf(err, "upsert discount %s", s.code)
		}

		slog.Info("upserted discount", slog.String("code", s.code), slog.String("description", s.description))
	}

	return nil
}

const upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
	VALUES ($1, $2, $3, $4, TRUE)
	ON CONFLICT (id) DO UPDATE SET key_hash = EXCLUDED.key_hash,
		name = EXCLUDED.name, scopes = EXCLUDED.scopes, active = TRUE`

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default admin API key")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, upsertAPIKeySQL,
		"default", keyHash, "Default admin key", []string{"manage_discounts"})
	if err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"), slog.String("name", "Default admin key"))

	return nil
}
