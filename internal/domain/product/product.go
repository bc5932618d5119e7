package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID          int64
	Name        string
	Description string
	Image       string
	Category    string
	// ListPrice is OnRequest when the feed publishes no price.
	ListPrice Price
	// SalePrice is zero when the product has no sale price.
	SalePrice    decimal.Decimal
	OnSale       bool
	FreeShipping bool
}

// HasSalePrice reports whether the product carries a usable sale price.
// A zero sale price counts as absent.
func (p Product) HasSalePrice() bool {
	return p.SalePrice.IsPositive()
}

// EffectivePrice is the price used for cart pricing, price filters and
// sorting: the sale price when present, else the fixed list price, else 0.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.HasSalePrice() {
		return p.SalePrice
	}
	if amount, ok := p.ListPrice.Amount(); ok && !amount.IsZero() {
		return amount
	}
	return decimal.Zero
}

// DisplaysSale reports whether a product card should show the sale price
// next to the struck-through list price.
func (p Product) DisplaysSale() bool {
	return p.OnSale && p.HasSalePrice()
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
}
