package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/coupon"
)

// Slot names in session storage.
const (
	SlotItems  = "cart"
	SlotCoupon = "coupon"
)

var (
	// ErrSlotEmpty is returned by Storage.Load when the slot holds no value.
	ErrSlotEmpty = errors.New("slot is empty")
	// ErrItemNotFound is returned internally when a line item is absent.
	// Decrement and Remove treat it as a no-op.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrNoItems is returned when a coupon is applied to an empty cart.
	ErrNoItems = errors.New("cart has no items")
)

// LineItem is one row of the cart, keyed by product identifier. Name, Image
// and UnitPrice are captured when the product is first added.
type LineItem struct {
	ProductID int64
	Name      string
	Image     string
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal returns UnitPrice × Quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Snapshot is an immutable view of a cart after a read or mutation.
type Snapshot struct {
	Items []LineItem
	// Coupon is the persisted coupon code, "" when none is active.
	Coupon string
	Count  int
}

// Summary is the priced view of a cart. It is derived on demand and never
// persisted.
type Summary struct {
	Snapshot
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Percent  decimal.Decimal
	Total    decimal.Decimal
}

// Storage is durable key-value storage of named slots, partitioned by
// session.
type Storage interface {
	Load(ctx context.Context, session, slot string) ([]byte, error)
	Save(ctx context.Context, session, slot string, value []byte) error
	Delete(ctx context.Context, session string, slots ...string) error
}

// Observer is notified synchronously after every persisted item mutation.
type Observer interface {
	CartChanged(ctx context.Context, session string, snap Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, session string, snap Snapshot)

// CartChanged calls f.
func (f ObserverFunc) CartChanged(ctx context.Context, session string, snap Snapshot) {
	f(ctx, session, snap)
}

// Discounter computes the discount of the active coupon.
type Discounter interface {
	ComputeDiscount(ctx context.Context, codes coupon.CodeStore, subtotal decimal.Decimal) (coupon.Discount, error)
}

// CouponApplier validates and stores a coupon code.
type CouponApplier interface {
	Apply(ctx context.Context, codes coupon.CodeStore, input string) (*coupon.Rule, error)
}

func itemCount(items []LineItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

func subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

func indexOf(items []LineItem, id int64) int {
	for i, item := range items {
		if item.ProductID == id {
			return i
		}
	}
	return -1
}
