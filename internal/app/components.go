package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/feed"
	"github.com/xenking/storefront/internal/storage/memory"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/internal/storage/redis"
	"github.com/xenking/storefront/pkg/health"
)

func catalogSource(cfg CatalogConfig, pool *pgxpool.Pool) product.Repository {
	switch cfg.Source {
	case SourceHTTP:
		return feed.NewHTTPSource(cfg.URL, &http.Client{Timeout: cfg.Timeout})
	case SourcePostgres:
		return postgres.NewProductRepository(pool)
	default:
		return feed.FileSource{Path: cfg.Path}
	}
}

func couponRules(cfg CouponsConfig, pool *pgxpool.Pool) (coupon.Repository, error) {
	if cfg.Source == SourcePostgres {
		return postgres.NewCouponRepository(pool), nil
	}
	table, err := coupon.NewStaticTable(cfg.Codes)
	if err != nil {
		return nil, errors.Wrap(err, "coupon table")
	}
	return table, nil
}

// slotStorage opens the configured session backend. The returned closer
// releases backend resources and is never nil.
func slotStorage(ctx context.Context, cfg StorageConfig, pool *pgxpool.Pool, hc *health.Health) (cart.Storage, func(), error) {
	switch cfg.Driver {
	case DriverRedis:
		s, err := redis.New(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.SessionTTL,
		})
		if err != nil {
			return nil, nil, errors.Wrap(err, "open redis")
		}
		hc.Add(health.Readiness, "redis", 2*time.Second, health.PingCheck("redis", s))
		return s, func() { _ = s.Close() }, nil
	case DriverPostgres:
		s := postgres.NewSlotStorage(pool)
		if cfg.SessionTTL > 0 {
			go expireSessions(ctx, s, cfg.SessionTTL)
		}
		return s, func() {}, nil
	default:
		s := memory.New()
		if cfg.SessionTTL > 0 {
			go expireSessions(ctx, s, cfg.SessionTTL)
		}
		return s, func() {}, nil
	}
}

type sessionSweeper interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// expireSessions drops idle session slots. Redis does this through key TTLs;
// the postgres and memory backends are swept here.
func expireSessions(ctx context.Context, s sessionSweeper, ttl time.Duration) {
	interval := min(ttl/4, time.Hour)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lg := zctx.From(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.DeleteExpired(ctx, now.Add(-ttl))
			if err != nil {
				lg.Warn("Session sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				lg.Info("Expired sessions removed", zap.Int64("slots", n))
			}
		}
	}
}

// cartObserver records the cart size after every mutation, the server side
// of the header badge refresh.
func cartObserver(mp metric.MeterProvider) (cart.Observer, error) {
	sizes, err := mp.Meter("storefront/cart").Int64Histogram("storefront.cart.items",
		metric.WithDescription("Item count of a cart after each mutation"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cart size histogram")
	}
	return cart.ObserverFunc(func(ctx context.Context, session string, snap cart.Snapshot) {
		sizes.Record(ctx, int64(snap.Count))
		zctx.From(ctx).Debug("Cart changed",
			zap.String("session", session),
			zap.Int("count", snap.Count),
			zap.Bool("badge_visible", snap.Count > 0),
		)
	}), nil
}

// sessionCounter is implemented by storage backends that can count their
// sessions cheaply.
type sessionCounter interface {
	Sessions() int
}

// registerSessionGauge reports the number of sessions holding a cart when
// the storage backend can count them. Redis and postgres expire sessions on
// their own and are not scanned.
func registerSessionGauge(mp metric.MeterProvider, storage cart.Storage) error {
	counter, ok := storage.(sessionCounter)
	if !ok {
		return nil
	}
	_, err := mp.Meter("storefront/cart").Int64ObservableGauge("storefront.cart.sessions",
		metric.WithDescription("Sessions with a stored cart or coupon"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(counter.Sessions()))
			return nil
		}),
	)
	return errors.Wrap(err, "create sessions gauge")
}
