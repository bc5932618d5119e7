package coupon

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidCoupon is returned when a coupon code is not recognized by the
// current rule table.
var ErrInvalidCoupon = errors.New("invalid or expired coupon code")

// Rule maps a coupon code to a percentage discount.
type Rule struct {
	Code string
	// Percent is the discount percentage, e.g. 20 for 20% off.
	Percent     decimal.Decimal
	Description string
}

// Discount holds the computed discount for a subtotal.
type Discount struct {
	Amount  decimal.Decimal
	Percent decimal.Decimal
	Code    string
}

// Repository provides lookup of coupon rules by their normalized code.
// FindByCode returns ErrInvalidCoupon when no rule matches.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
}

// CodeStore persists the single active coupon code of a cart.
// ActiveCode returns "" when no coupon is active.
type CodeStore interface {
	ActiveCode(ctx context.Context) (string, error)
	SetActiveCode(ctx context.Context, code string) error
	ClearActiveCode(ctx context.Context) error
}

// Normalize trims surrounding whitespace and upper-cases a code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
