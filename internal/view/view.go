// Package view projects domain snapshots into the shapes the storefront
// client renders. Every function here is pure.
package view

import (
	"fmt"
	"time"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/product"
)

// PlaceholderImage replaces missing product and cart row images.
const PlaceholderImage = "/assets/img/default-placeholder.jpg"

const (
	priceOnRequest    = "Consultar precio"
	freeShippingLabel = "Envío GRATIS🚀"
	emptyCartMessage  = "El carrito está vacío. ¡Agrega algunos productos!"
	noResultsMessage  = "No se encontraron productos con los filtros aplicados."
)

// Badge is the cart counter in the header.
type Badge struct {
	Count   int
	Visible bool
}

// NewBadge hides the counter when the cart is empty.
func NewBadge(count int) Badge {
	return Badge{Count: count, Visible: count > 0}
}

// ProductCard is one product tile.
type ProductCard struct {
	ID          int64
	Name        string
	Description string
	Image       string
	Category    string
	// Price is the shown price. PreviousPrice is the struck-through list
	// price, set only for products on sale.
	Price         string
	PreviousPrice string
	OnSale        bool
	FreeShipping  string
}

// NewProductCard builds the tile of p.
func NewProductCard(p product.Product) ProductCard {
	c := ProductCard{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Image:       imageOrPlaceholder(p.Image),
		Category:    p.Category,
		Price:       listPriceLabel(p.ListPrice),
	}
	if p.DisplaysSale() {
		c.OnSale = true
		c.PreviousPrice = c.Price
		c.Price = FormatPrice(p.SalePrice)
	}
	if p.FreeShipping {
		c.FreeShipping = freeShippingLabel
	}
	return c
}

func listPriceLabel(price product.Price) string {
	amount, ok := price.Amount()
	if !ok {
		return priceOnRequest
	}
	return FormatPrice(amount)
}

// ProductList is a rendered product grid. Message is set when it is empty.
type ProductList struct {
	Cards   []ProductCard
	Message string
}

// NewProductList builds the grid of products.
func NewProductList(products []product.Product) ProductList {
	l := ProductList{Cards: make([]ProductCard, len(products))}
	for i, p := range products {
		l.Cards[i] = NewProductCard(p)
	}
	if len(products) == 0 {
		l.Message = noResultsMessage
	}
	return l
}

// Filters echoes the category page controls.
type Filters struct {
	MaxPrice     string
	PriceCeiling string
	FreeShipping bool
	Sort         string
}

// CategoryPage is a filtered category listing.
type CategoryPage struct {
	Category string
	Filters  Filters
	Products ProductList
}

// Section is one unfiltered landing page block.
type Section struct {
	Category string
	Products ProductList
}

// CartRow is one line of the cart table.
type CartRow struct {
	ProductID int64
	Name      string
	Image     string
	UnitPrice string
	Quantity  int
	LineTotal string
	// CanDecrement is false at quantity 1; removal goes through the
	// dedicated control.
	CanDecrement bool
}

// SummaryView holds the formatted totals.
type SummaryView struct {
	Subtotal string
	Discount string
	Percent  string
	Total    string
}

// NewSummaryView formats s.
func NewSummaryView(s cart.Summary) SummaryView {
	return SummaryView{
		Subtotal: FormatAmount(s.Subtotal),
		Discount: FormatAmount(s.Discount),
		Percent:  FormatPercent(s.Percent),
		Total:    FormatAmount(s.Total),
	}
}

// Cart is the full cart page.
type Cart struct {
	Rows []CartRow
	// Message is set when the cart is empty.
	Message         string
	Coupon          string
	Summary         SummaryView
	Badge           Badge
	CheckoutEnabled bool
}

// NewCart projects a priced cart.
func NewCart(s cart.Summary) Cart {
	v := Cart{
		Rows:            make([]CartRow, len(s.Items)),
		Coupon:          s.Coupon,
		Summary:         NewSummaryView(s),
		Badge:           NewBadge(s.Count),
		CheckoutEnabled: len(s.Items) > 0,
	}
	if s.Percent.IsZero() {
		v.Coupon = ""
	}
	for i, item := range s.Items {
		v.Rows[i] = CartRow{
			ProductID:    item.ProductID,
			Name:         item.Name,
			Image:        imageOrPlaceholder(item.Image),
			UnitPrice:    FormatPrice(item.UnitPrice),
			Quantity:     item.Quantity,
			LineTotal:    FormatPrice(item.LineTotal()),
			CanDecrement: item.Quantity > 1,
		}
	}
	if len(s.Items) == 0 {
		v.Message = emptyCartMessage
	}
	return v
}

// CouponResult is the outcome line shown under the coupon input.
type CouponResult struct {
	Applied bool
	Code    string
	Message string
}

// CouponApplied describes an accepted coupon.
func CouponApplied(rule *coupon.Rule) CouponResult {
	return CouponResult{
		Applied: true,
		Code:    rule.Code,
		Message: fmt.Sprintf("Cupón %s aplicado con éxito (%s OFF).", rule.Code, FormatPercent(rule.Percent)),
	}
}

// CouponRejected describes a refused coupon.
func CouponRejected() CouponResult {
	return CouponResult{Message: "Cupón inválido o expirado."}
}

// CouponNeedsItems describes a coupon entered while the cart is empty.
func CouponNeedsItems() CouponResult {
	return CouponResult{Message: "Agrega productos al carrito antes de aplicar un cupón."}
}

// Receipt is the confirmation of a placed order.
type Receipt struct {
	OrderID  string
	PlacedAt time.Time
	Rows     []CartRow
	Coupon   string
	Summary  SummaryView
	Buyer    checkout.Buyer
}

// NewReceipt projects an order.
func NewReceipt(o *checkout.Order) Receipt {
	rows := make([]CartRow, len(o.Items))
	for i, item := range o.Items {
		rows[i] = CartRow{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     imageOrPlaceholder(item.Image),
			UnitPrice: FormatPrice(item.UnitPrice),
			Quantity:  item.Quantity,
			LineTotal: FormatPrice(item.LineTotal()),
		}
	}
	return Receipt{
		OrderID:  o.ID.String(),
		PlacedAt: o.PlacedAt,
		Rows:     rows,
		Coupon:   o.CouponCode,
		Summary: SummaryView{
			Subtotal: FormatAmount(o.Subtotal),
			Discount: FormatAmount(o.Discount),
			Percent:  FormatPercent(o.Percent),
			Total:    FormatAmount(o.Total),
		},
		Buyer: o.Buyer,
	}
}

// Navigation tells the client where to go once the order is processed.
type Navigation struct {
	ClearAfter    time.Duration
	RedirectAfter time.Duration
	Location      string
}

// NewNavigation reads the delays of o.
func NewNavigation(o *checkout.Order) Navigation {
	return Navigation{
		ClearAfter:    o.ProcessingDelay,
		RedirectAfter: o.ProcessingDelay + o.RedirectDelay,
		Location:      o.RedirectTo,
	}
}

func imageOrPlaceholder(image string) string {
	if image == "" {
		return PlaceholderImage
	}
	return image
}
