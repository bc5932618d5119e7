package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Engine validates coupon codes against a rule table and computes the
// discount of the active coupon. It holds no cart state: the active code
// lives in the CodeStore passed to each call.
type Engine struct {
	rules Repository
}

// NewEngine creates an Engine backed by the given rule table.
func NewEngine(rules Repository) *Engine {
	return &Engine{rules: rules}
}

// Apply normalizes the code and looks it up. A recognized code replaces the
// active coupon. An unrecognized code clears the active coupon and returns
// ErrInvalidCoupon.
func (e *Engine) Apply(ctx context.Context, codes CodeStore, input string) (*Rule, error) {
	code := Normalize(input)

	rule, err := e.lookup(ctx, code)
	if err != nil {
		if !errors.Is(err, ErrInvalidCoupon) {
			return nil, err
		}
		if err := codes.ClearActiveCode(ctx); err != nil {
			return nil, errors.Wrap(err, "clear coupon")
		}
		return nil, ErrInvalidCoupon
	}

	if err := codes.SetActiveCode(ctx, rule.Code); err != nil {
		return nil, errors.Wrap(err, "store coupon")
	}
	return rule, nil
}

// ComputeDiscount returns the discount of the active coupon for subtotal.
// The stored code is re-validated on every call; a code the table no longer
// recognizes yields a zero discount.
func (e *Engine) ComputeDiscount(ctx context.Context, codes CodeStore, subtotal decimal.Decimal) (Discount, error) {
	code, err := codes.ActiveCode(ctx)
	if err != nil {
		return Discount{}, errors.Wrap(err, "load coupon")
	}
	if code == "" {
		return zeroDiscount(), nil
	}

	rule, err := e.lookup(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return zeroDiscount(), nil
		}
		return Discount{}, err
	}
	return Calculate(rule, subtotal), nil
}

// Calculate applies rule to subtotal. The amount is exact; rounding is left
// to presentation.
func Calculate(rule *Rule, subtotal decimal.Decimal) Discount {
	amount := subtotal.Mul(rule.Percent).Div(hundred)
	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return Discount{
		Amount:  amount,
		Percent: rule.Percent,
		Code:    rule.Code,
	}
}

func (e *Engine) lookup(ctx context.Context, code string) (*Rule, error) {
	if code == "" {
		return nil, ErrInvalidCoupon
	}
	rule, err := e.rules.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}
	return rule, nil
}

func zeroDiscount() Discount {
	return Discount{Amount: decimal.Zero, Percent: decimal.Zero}
}
