package view

import (
	"time"

	"github.com/go-faster/jx"
)

// Encode writes b as JSON.
func (b Badge) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("count")
	e.Int(b.Count)
	e.FieldStart("visible")
	e.Bool(b.Visible)
	e.ObjEnd()
}

// Encode writes c as JSON.
func (c ProductCard) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(c.ID)
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("description")
	e.Str(c.Description)
	e.FieldStart("image")
	e.Str(c.Image)
	e.FieldStart("category")
	e.Str(c.Category)
	e.FieldStart("price")
	e.Str(c.Price)
	if c.PreviousPrice != "" {
		e.FieldStart("previous_price")
		e.Str(c.PreviousPrice)
	}
	e.FieldStart("on_sale")
	e.Bool(c.OnSale)
	if c.FreeShipping != "" {
		e.FieldStart("free_shipping")
		e.Str(c.FreeShipping)
	}
	e.ObjEnd()
}

// Encode writes l as JSON.
func (l ProductList) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("products")
	e.ArrStart()
	for _, c := range l.Cards {
		c.Encode(e)
	}
	e.ArrEnd()
	if l.Message != "" {
		e.FieldStart("message")
		e.Str(l.Message)
	}
	e.ObjEnd()
}

// Encode writes p as JSON.
func (p CategoryPage) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("filters")
	e.ObjStart()
	if p.Filters.MaxPrice != "" {
		e.FieldStart("max")
		e.Str(p.Filters.MaxPrice)
	}
	e.FieldStart("price_ceiling")
	e.Str(p.Filters.PriceCeiling)
	e.FieldStart("free_shipping")
	e.Bool(p.Filters.FreeShipping)
	e.FieldStart("sort")
	e.Str(p.Filters.Sort)
	e.ObjEnd()
	e.FieldStart("listing")
	p.Products.Encode(e)
	e.ObjEnd()
}

// Encode writes s as JSON.
func (s Section) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("category")
	e.Str(s.Category)
	e.FieldStart("listing")
	s.Products.Encode(e)
	e.ObjEnd()
}

// Encode writes r as JSON.
func (r CartRow) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(r.ProductID)
	e.FieldStart("name")
	e.Str(r.Name)
	e.FieldStart("image")
	e.Str(r.Image)
	e.FieldStart("unit_price")
	e.Str(r.UnitPrice)
	e.FieldStart("quantity")
	e.Int(r.Quantity)
	e.FieldStart("line_total")
	e.Str(r.LineTotal)
	e.FieldStart("can_decrement")
	e.Bool(r.CanDecrement)
	e.ObjEnd()
}

// Encode writes s as JSON.
func (s SummaryView) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("subtotal")
	e.Str(s.Subtotal)
	e.FieldStart("discount")
	e.Str(s.Discount)
	e.FieldStart("discount_percent")
	e.Str(s.Percent)
	e.FieldStart("total")
	e.Str(s.Total)
	e.ObjEnd()
}

// Encode writes c as JSON.
func (c Cart) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("items")
	encodeRows(e, c.Rows)
	if c.Message != "" {
		e.FieldStart("message")
		e.Str(c.Message)
	}
	if c.Coupon != "" {
		e.FieldStart("coupon")
		e.Str(c.Coupon)
	}
	e.FieldStart("summary")
	c.Summary.Encode(e)
	e.FieldStart("badge")
	c.Badge.Encode(e)
	e.FieldStart("checkout_enabled")
	e.Bool(c.CheckoutEnabled)
	e.ObjEnd()
}

// Encode writes r as JSON.
func (r CouponResult) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("applied")
	e.Bool(r.Applied)
	if r.Code != "" {
		e.FieldStart("code")
		e.Str(r.Code)
	}
	e.FieldStart("message")
	e.Str(r.Message)
	e.ObjEnd()
}

// Encode writes r as JSON.
func (r Receipt) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("order_id")
	e.Str(r.OrderID)
	e.FieldStart("placed_at")
	e.Str(r.PlacedAt.UTC().Format(time.RFC3339))
	e.FieldStart("items")
	encodeRows(e, r.Rows)
	if r.Coupon != "" {
		e.FieldStart("coupon")
		e.Str(r.Coupon)
	}
	e.FieldStart("summary")
	r.Summary.Encode(e)
	e.FieldStart("buyer")
	e.ObjStart()
	e.FieldStart("full_name")
	e.Str(r.Buyer.FullName)
	e.FieldStart("email")
	e.Str(r.Buyer.Email)
	if r.Buyer.Phone != "" {
		e.FieldStart("phone")
		e.Str(r.Buyer.Phone)
	}
	e.FieldStart("address")
	e.Str(r.Buyer.Address)
	e.FieldStart("city")
	e.Str(r.Buyer.City)
	e.FieldStart("postal_code")
	e.Str(r.Buyer.PostalCode)
	e.FieldStart("card_last4")
	e.Str(r.Buyer.CardLast4)
	e.ObjEnd()
	e.ObjEnd()
}

// Encode writes n as JSON. Delays are in milliseconds.
func (n Navigation) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("clear_after_ms")
	e.Int64(n.ClearAfter.Milliseconds())
	e.FieldStart("redirect_after_ms")
	e.Int64(n.RedirectAfter.Milliseconds())
	e.FieldStart("location")
	e.Str(n.Location)
	e.ObjEnd()
}

// Encode writes n as JSON. Duration is in milliseconds.
func (n Notification) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("text")
	e.Str(n.Text)
	e.FieldStart("kind")
	e.Str(string(n.Kind))
	e.FieldStart("duration_ms")
	e.Int64(n.Duration.Milliseconds())
	if n.Link != "" {
		e.FieldStart("link")
		e.Str(n.Link)
	}
	e.ObjEnd()
}

// EncodeNotifications writes ns as a JSON array.
func EncodeNotifications(e *jx.Encoder, ns []Notification) {
	e.ArrStart()
	for _, n := range ns {
		n.Encode(e)
	}
	e.ArrEnd()
}

func encodeRows(e *jx.Encoder, rows []CartRow) {
	e.ArrStart()
	for _, r := range rows {
		r.Encode(e)
	}
	e.ArrEnd()
}
