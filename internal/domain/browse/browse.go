// Package browse derives the displayed subset of a category page from the
// catalog list.
package browse

import (
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// SortOrder selects how derived products are ordered.
type SortOrder string

const (
	SortDefault SortOrder = "default"
	SortMinMax  SortOrder = "minMax"
	SortMaxMin  SortOrder = "maxMin"
)

// ParseSortOrder maps a query value to a SortOrder. The empty string is
// SortDefault.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(s) {
	case "", SortDefault:
		return SortDefault, nil
	case SortMinMax, SortMaxMin:
		return SortOrder(s), nil
	default:
		return "", errors.Errorf("unknown sort order %q", s)
	}
}

// Criteria are the category page controls.
type Criteria struct {
	// MaxPrice drops products whose effective price exceeds it. Unset means
	// no ceiling.
	MaxPrice         decimal.NullDecimal
	FreeShippingOnly bool
	Sort             SortOrder
}

// Derive applies the price ceiling, then the free-shipping filter, then the
// sort. The input slice is never modified. Products with equal effective
// price keep their relative order.
func Derive(base []product.Product, c Criteria) []product.Product {
	out := make([]product.Product, 0, len(base))
	for _, p := range base {
		if c.MaxPrice.Valid && p.EffectivePrice().GreaterThan(c.MaxPrice.Decimal) {
			continue
		}
		if c.FreeShippingOnly && !p.FreeShipping {
			continue
		}
		out = append(out, p)
	}

	switch c.Sort {
	case SortMinMax:
		slices.SortStableFunc(out, func(a, b product.Product) int {
			return a.EffectivePrice().Cmp(b.EffectivePrice())
		})
	case SortMaxMin:
		slices.SortStableFunc(out, func(a, b product.Product) int {
			return b.EffectivePrice().Cmp(a.EffectivePrice())
		})
	}
	return out
}

// PriceCeiling returns the smallest whole amount not below any effective
// price in products. It is the upper bound of the price control and the
// value it resets to.
func PriceCeiling(products []product.Product) decimal.Decimal {
	ceiling := decimal.Zero
	for _, p := range products {
		ceiling = decimal.Max(ceiling, p.EffectivePrice())
	}
	return ceiling.Ceil()
}
