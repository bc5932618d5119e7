// Package handler exposes the storefront over a JSON HTTP API.
package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// LandingSections lists the categories shown on the landing page, in
	// order.
	LandingSections []string
	MeterProvider   metric.MeterProvider
}

// Handler serves catalog, cart, coupon and checkout routes for the session
// carried by the request context.
type Handler struct {
	catalog  *catalog.Store
	carts    *cart.Registry
	coupons  *coupon.Engine
	checkout *checkout.Orchestrator
	landing  []string

	mutations metric.Int64Counter
	applied   metric.Int64Counter
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	catalog *catalog.Store,
	carts *cart.Registry,
	coupons *coupon.Engine,
	orders *checkout.Orchestrator,
) (*Handler, error) {
	mp := cfg.MeterProvider
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	meter := mp.Meter("storefront/handler")

	mutations, err := meter.Int64Counter("storefront.cart.mutations",
		metric.WithDescription("Cart mutations by operation"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create mutations counter")
	}
	applied, err := meter.Int64Counter("storefront.coupon.applications",
		metric.WithDescription("Coupon applications by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create coupon counter")
	}

	return &Handler{
		catalog:   catalog,
		carts:     carts,
		coupons:   coupons,
		checkout:  orders,
		landing:   cfg.LandingSections,
		mutations: mutations,
		applied:   applied,
	}, nil
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("GET /api/categories/{category}/products", h.CategoryProducts)
	mux.HandleFunc("GET /api/landing", h.Landing)

	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("GET /api/cart/badge", h.GetBadge)
	mux.HandleFunc("POST /api/cart/items", h.AddItem)
	mux.HandleFunc("POST /api/cart/items/{id}/increment", h.IncrementItem)
	mux.HandleFunc("POST /api/cart/items/{id}/decrement", h.DecrementItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.RemoveItem)
	mux.HandleFunc("DELETE /api/cart", h.ClearCart)
	mux.HandleFunc("POST /api/cart/coupon", h.ApplyCoupon)

	mux.HandleFunc("POST /api/checkout", h.Checkout)
}

// cartFor returns the cart of the request session.
func (h *Handler) cartFor(r *http.Request) (*cart.Store, error) {
	sid := httpmiddleware.SessionFromContext(r.Context())
	if sid == "" {
		return nil, errors.New("no session in request context")
	}
	return h.carts.Get(sid), nil
}

func (h *Handler) countMutation(ctx context.Context, op string) {
	h.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// writeJSON encodes a single JSON object with the given fields writer.
func writeJSON(w http.ResponseWriter, status int, fields func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	fields(e)
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
