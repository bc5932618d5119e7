// Command seed-db loads a catalog JSON document and the default coupon table
// into PostgreSQL.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/feed"
	"github.com/xenking/storefront/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		catalogFile string
		coupons     string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "data/catalogo.json", "path to the catalog JSON document")
	flag.StringVar(&coupons, "coupons", "JBL20:20", "comma separated CODE:percent pairs")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, catalogFile, coupons); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, catalogFile, coupons string) error {
	// Parse everything before touching the database.
	products, err := feed.FileSource{Path: catalogFile}.List(ctx)
	if err != nil {
		return errors.Wrap(err, "read catalog")
	}
	percents, err := parsePairs(coupons)
	if err != nil {
		return errors.Wrap(err, "parse coupons")
	}
	table, err := coupon.NewStaticTable(percents)
	if err != nil {
		return err
	}

	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := postgres.NewProductRepository(pool).Upsert(ctx, products); err != nil {
		return err
	}
	lg.Info("Products upserted", zap.Int("count", len(products)), zap.String("file", catalogFile))

	rules := make([]coupon.Rule, 0, len(percents))
	for code := range percents {
		rule, err := table.FindByCode(ctx, coupon.Normalize(code))
		if err != nil {
			return errors.Wrapf(err, "coupon %s", code)
		}
		rules = append(rules, *rule)
	}
	if err := postgres.NewCouponRepository(pool).Upsert(ctx, rules); err != nil {
		return err
	}
	lg.Info("Coupons upserted", zap.Int("count", len(rules)))
	return nil
}

// parsePairs reads "CODE:percent,CODE:percent".
func parsePairs(s string) (map[string]int, error) {
	out := make(map[string]int)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, pct, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, errors.Errorf("want CODE:percent, got %q", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(pct))
		if err != nil {
			return nil, errors.Wrapf(err, "percent of %s", code)
		}
		out[code] = n
	}
	return out, nil
}
