package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/view"
)

// GetCart returns the priced cart of the session.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	store, err := h.cartFor(r)
	if err != nil {
		mapError(w, r, err)
		return
	}
	h.respondCart(w, r, store, nil)
}

// GetBadge returns the header counter.
func (h *Handler) GetBadge(w http.ResponseWriter, r *http.Request) {
	store, err := h.cartFor(r)
	if err != nil {
		mapError(w, r, err)
		return
	}
	count, err := store.ItemCount(r.Context())
	if err != nil {
		mapError(w, r, err)
		return
	}
	badge := view.NewBadge(count)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("badge")
		badge.Encode(e)
	})
}

// AddItem puts one unit of a catalog product in the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, err := decodeAddItem(r)
	if err != nil {
		mapError(w, r, err)
		return
	}
	h.add(w, r, id, "add")
}

// IncrementItem is the "+" control of a cart row. A row that vanished in
// another tab is added back from the catalog.
func (h *Handler) IncrementItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		mapError(w, r, err)
		return
	}
	h.add(w, r, id, "increment")
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request, id int64, op string) {
	ctx := r.Context()
	store, err := h.cartFor(r)
	if err != nil {
		mapError(w, r, err)
		return
	}
	p, ok := h.catalog.FindByID(ctx, id)
	if !ok {
		mapError(w, r, errors.Wrapf(product.ErrNotFound, "id %d", id))
		return
	}

	var notes []view.Notification
	switch op {
	case "increment":
		_, err = store.Increment(ctx, id)
		if errors.Is(err, cart.ErrItemNotFound) {
			_, err = store.Add(ctx, p)
		}
	default:
		_, err = store.Add(ctx, p)
		notes = append(notes, view.ItemAdded(p.Name))
	}
	if err != nil {
		mapError(w, r, err)
		return
	}
	h.countMutation(ctx, op)
	h.respondCart(w, r, store, notes)
}

// DecrementItem lowers a row by one, dropping it at zero.
func (h *Handler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "decrement", func(ctx context.Context, s *cart.Store, id int64) error {
		_, err := s.Decrement(ctx, id)
		return err
	})
}

// RemoveItem drops a row regardless of quantity.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "remove", func(ctx context.Context, s *cart.Store, id int64) error {
		_, err := s.Remove(ctx, id)
		return err
	})
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, *cart.Store, int64) error) {
	id, err := pathID(r)
	if err != nil {
		mapError(w, r, err)
		return
	}
	store, err := h.cartFor(r)
	if err != nil {
		mapError(w, r, err)
		return
	}
	if err := fn(r.Context(), store, id); err != nil {
		mapError(w, r, err)
		return
	}
	h.countMutation(r.Context(), op)
	h.respondCart(w, r, store, nil)
}

// ClearCart empties the cart and drops the coupon.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	store, err := h.cartFor(r)
	if err != nil {
		mapError(w, r, err)
		return
	}
	if _, err := store.Clear(r.Context()); err != nil {
		mapError(w, r, err)
		return
	}
	h.countMutation(r.Context(), "clear")
	h.respondCart(w, r, store, nil)
}

// ApplyCoupon validates a code. A rejected code is not an error: the
// response says applied=false and any previous coupon is gone. An empty
// cart keeps no coupon.
func (h *Handler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code, err := decodeCoupon(r)
	if err != nil {
		mapError(w, r, err)
		return
	}
	store, err := h.cartFor(r)
	if err != nil {
		mapError(w, r, err)
		return
	}

	var result view.CouponResult
	rule, err := store.ApplyCoupon(ctx, h.coupons, code)
	switch {
	case err == nil:
		result = view.CouponApplied(rule)
	case errors.Is(err, coupon.ErrInvalidCoupon):
		result = view.CouponRejected()
		zctx.From(ctx).Debug("Coupon rejected", zap.String("code", coupon.Normalize(code)))
	case errors.Is(err, cart.ErrNoItems):
		result = view.CouponNeedsItems()
	default:
		mapError(w, r, err)
		return
	}
	outcome := "rejected"
	switch {
	case result.Applied:
		outcome = "applied"
	case errors.Is(err, cart.ErrNoItems):
		outcome = "empty_cart"
	}
	h.applied.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	sum, err := store.Summary(ctx, h.coupons)
	if err != nil {
		mapError(w, r, err)
		return
	}
	page := view.NewCart(sum)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("coupon")
		result.Encode(e)
		e.FieldStart("cart")
		page.Encode(e)
	})
}

// respondCart writes the priced cart with optional toasts.
func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, store *cart.Store, notes []view.Notification) {
	sum, err := store.Summary(r.Context(), h.coupons)
	if err != nil {
		mapError(w, r, err)
		return
	}
	page := view.NewCart(sum)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("cart")
		page.Encode(e)
		if len(notes) > 0 {
			e.FieldStart("notifications")
			view.EncodeNotifications(e, notes)
		}
	})
}
