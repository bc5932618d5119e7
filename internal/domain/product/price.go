package product

import "github.com/shopspring/decimal"

// Price is either a fixed amount or "price on request".
type Price struct {
	amount    decimal.Decimal
	onRequest bool
}

// Fixed returns a price with a known amount.
func Fixed(amount decimal.Decimal) Price {
	return Price{amount: amount}
}

// OnRequest returns a price that is only available on request.
func OnRequest() Price {
	return Price{onRequest: true}
}

// Amount returns the fixed amount, or false for OnRequest prices.
func (p Price) Amount() (decimal.Decimal, bool) {
	if p.onRequest {
		return decimal.Zero, false
	}
	return p.amount, true
}

// IsOnRequest reports whether the price is "price on request".
func (p Price) IsOnRequest() bool {
	return p.onRequest
}

// Equal reports whether two prices are the same variant and amount.
func (p Price) Equal(other Price) bool {
	if p.onRequest || other.onRequest {
		return p.onRequest == other.onRequest
	}
	return p.amount.Equal(other.amount)
}
