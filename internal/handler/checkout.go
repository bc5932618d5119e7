package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/view"
)

// Checkout validates the buyer form, places the order and clears the cart.
// The client clears its own view and navigates after the delays returned in
// "navigation"; the server does not wait.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	form, err := decodeForm(r)
	if err != nil {
		mapError(w, r, err)
		return
	}
	store, err := h.cartFor(r)
	if err != nil {
		mapError(w, r, err)
		return
	}

	order, err := h.checkout.Submit(r.Context(), store, form)
	if err != nil {
		mapError(w, r, err)
		return
	}

	receipt := view.NewReceipt(order)
	nav := view.NewNavigation(order)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("receipt")
		receipt.Encode(e)
		e.FieldStart("navigation")
		nav.Encode(e)
		e.FieldStart("badge")
		view.NewBadge(0).Encode(e)
		e.FieldStart("notifications")
		view.EncodeNotifications(e, []view.Notification{view.OrderPlaced()})
	})
}
