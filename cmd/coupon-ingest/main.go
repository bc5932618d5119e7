// Command coupon-ingest loads gzip-compressed coupon lists into the coupons
// table. Each line is "CODE,PERCENT[,DESCRIPTION]"; blank lines and lines
// starting with '#' are skipped.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/storage/postgres"
)

const batchSize = 1000

func main() {
	var (
		pattern     string
		databaseURL string
		dryRun      bool
	)

	flag.StringVar(&pattern, "files", "data/coupons*.gz", "glob of gzip coupon lists")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.BoolVar(&dryRun, "dry-run", false, "parse and report without writing")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, pattern, databaseURL, dryRun); err != nil {
		lg.Fatal("Coupon ingest failed", zap.Error(err))
	}
	lg.Info("Coupon ingest completed")
}

func run(ctx context.Context, lg *zap.Logger, pattern, databaseURL string, dryRun bool) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrapf(err, "glob %s", pattern)
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %s", pattern)
	}

	lg.Info("Reading coupon lists", zap.Strings("files", files))
	lists, err := readLists(ctx, lg, files)
	if err != nil {
		return err
	}

	rules, dups := merge(lists)
	for _, d := range dups {
		lg.Warn("Duplicate coupon code ignored",
			zap.String("code", d.Code),
			zap.String("file", d.File),
			zap.Stringer("kept_percent", d.Kept),
		)
	}
	lg.Info("Coupons parsed", zap.Int("unique", len(rules)), zap.Int("duplicates", len(dups)))

	if dryRun || len(rules) == 0 {
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return write(ctx, lg, postgres.NewCouponRepository(pool), rules)
}

type ruleWriter interface {
	Upsert(ctx context.Context, rules []coupon.Rule) error
}

func write(ctx context.Context, lg *zap.Logger, repo ruleWriter, rules []coupon.Rule) error {
	for start := 0; start < len(rules); start += batchSize {
		end := min(start+batchSize, len(rules))
		if err := repo.Upsert(ctx, rules[start:end]); err != nil {
			return errors.Wrapf(err, "write coupons %d-%d", start, end)
		}
		lg.Info("Write progress", zap.Int("written", end), zap.Int("total", len(rules)))
	}
	return nil
}
