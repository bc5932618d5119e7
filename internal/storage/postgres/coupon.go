package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT code, percent, description
		FROM coupons WHERE code = UPPER($1) AND active = TRUE`

	upsertCouponSQL = `INSERT INTO coupons (code, percent, description, active)
		VALUES (UPPER($1), $2, $3, TRUE)
		ON CONFLICT (code) DO UPDATE SET
			percent = EXCLUDED.percent,
			description = EXCLUDED.description,
			active = TRUE`

	deactivateCouponSQL = `UPDATE coupons SET active = FALSE WHERE code = UPPER($1)`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository is a coupon rule table backed by the coupons table.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon. Returns coupon.ErrInvalidCoupon when
// none matches.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}
	return &rule, nil
}

// Upsert inserts or reactivates the given rules in one batch.
func (r *CouponRepository) Upsert(ctx context.Context, rules []coupon.Rule) error {
	batch := &pgx.Batch{}
	for _, rule := range rules {
		batch.Queue(upsertCouponSQL, rule.Code, rule.Percent, rule.Description)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Wrap(err, "upsert coupons")
	}
	return nil
}

// Deactivate disables a coupon. Carts holding the code stop receiving the
// discount on their next summary.
func (r *CouponRepository) Deactivate(ctx context.Context, code string) error {
	if _, err := r.pool.Exec(ctx, deactivateCouponSQL, code); err != nil {
		return errors.Wrapf(err, "deactivate coupon %q", code)
	}
	return nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var rule coupon.Rule
	err := row.Scan(&rule.Code, &rule.Percent, &rule.Description)
	return rule, err
}
