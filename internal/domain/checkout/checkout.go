// Package checkout turns a non-empty cart and a valid buyer form into an
// order snapshot, then resets the cart.
package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
)

// ErrEmptyCart is returned by Submit when the cart holds no items.
var ErrEmptyCart = errors.New("cart is empty")

// Order is the immutable record of a submitted cart.
type Order struct {
	ID         uuid.UUID
	Items      []cart.LineItem
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Percent    decimal.Decimal
	CouponCode string
	Total      decimal.Decimal
	PlacedAt   time.Time
	Buyer      Buyer

	// ProcessingDelay and RedirectDelay are the pauses the client shows
	// before clearing its view and before navigating to RedirectTo.
	ProcessingDelay time.Duration
	RedirectDelay   time.Duration
	RedirectTo      string
}

// Cart is the part of cart.Store checkout needs.
type Cart interface {
	Checkout(ctx context.Context, discounter cart.Discounter, place func(cart.Summary) error) (cart.Summary, error)
}

// ReceiptPresenter receives the order before the cart is cleared. It runs
// while the session's cart is locked and must not call back into it.
type ReceiptPresenter interface {
	PresentReceipt(ctx context.Context, o *Order)
}

// ReceiptPresenterFunc adapts a function to ReceiptPresenter.
type ReceiptPresenterFunc func(ctx context.Context, o *Order)

func (f ReceiptPresenterFunc) PresentReceipt(ctx context.Context, o *Order) {
	f(ctx, o)
}

// Options configures an Orchestrator. Zero providers fall back to no-op
// telemetry.
type Options struct {
	ProcessingDelay time.Duration
	RedirectDelay   time.Duration
	RedirectTo      string

	Now            func() time.Time
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

func (o *Options) setDefaults() {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.RedirectTo == "" {
		o.RedirectTo = "/"
	}
	if o.TracerProvider == nil {
		o.TracerProvider = tracenoop.NewTracerProvider()
	}
	if o.MeterProvider == nil {
		o.MeterProvider = metricnoop.NewMeterProvider()
	}
}

// Orchestrator runs the checkout sequence.
type Orchestrator struct {
	discounter cart.Discounter
	form       *FormValidator
	presenter  ReceiptPresenter
	opts       Options

	tracer trace.Tracer
	orders metric.Int64Counter
	totals metric.Float64Histogram
}

// NewOrchestrator creates an Orchestrator. presenter may be nil.
func NewOrchestrator(discounter cart.Discounter, presenter ReceiptPresenter, opts Options) (*Orchestrator, error) {
	opts.setDefaults()

	meter := opts.MeterProvider.Meter("storefront/checkout")
	orders, err := meter.Int64Counter("storefront.checkout.orders",
		metric.WithDescription("Checkout submissions by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create orders counter")
	}
	totals, err := meter.Float64Histogram("storefront.checkout.order_total",
		metric.WithDescription("Total of placed orders"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create totals histogram")
	}

	return &Orchestrator{
		discounter: discounter,
		form:       NewFormValidator(opts.Now),
		presenter:  presenter,
		opts:       opts,
		tracer:     opts.TracerProvider.Tracer("storefront/checkout"),
		orders:     orders,
		totals:     totals,
	}, nil
}

// Submit checks that the cart is not empty, validates the form, captures the
// order, hands it to the presenter and only then clears the cart, holding
// the session lock throughout. Nothing is changed when it returns
// ErrEmptyCart or a *FormError.
func (o *Orchestrator) Submit(ctx context.Context, c Cart, form Form) (_ *Order, rerr error) {
	ctx, span := o.tracer.Start(ctx, "checkout.Submit")
	defer func() {
		outcome := "placed"
		var formErr *FormError
		switch {
		case errors.Is(rerr, ErrEmptyCart):
			outcome = "empty_cart"
		case errors.As(rerr, &formErr):
			outcome = "invalid_form"
		case rerr != nil:
			outcome = "error"
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		o.orders.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		span.End()
	}()

	var (
		order    *Order
		rejected error
	)
	_, err := c.Checkout(ctx, o.discounter, func(sum cart.Summary) error {
		if len(sum.Items) == 0 {
			rejected = ErrEmptyCart
			return rejected
		}
		if err := o.form.Validate(form); err != nil {
			rejected = err
			return rejected
		}
		order = o.newOrder(sum, form)
		if o.presenter != nil {
			o.presenter.PresentReceipt(ctx, order)
		}
		return nil
	})
	switch {
	case rejected != nil:
		return nil, rejected
	case err != nil && order == nil:
		return nil, errors.Wrap(err, "summarize cart")
	case err != nil:
		return nil, errors.Wrap(err, "clear cart")
	}

	span.SetAttributes(
		attribute.String("order.id", order.ID.String()),
		attribute.Int("order.items", len(order.Items)),
		attribute.String("order.coupon", order.CouponCode),
	)
	o.totals.Record(ctx, order.Total.InexactFloat64())
	zctx.From(ctx).Info("Order placed",
		zap.Stringer("order_id", order.ID),
		zap.Int("items", len(order.Items)),
		zap.Stringer("total", order.Total),
		zap.String("coupon", order.CouponCode),
	)
	return order, nil
}

func (o *Orchestrator) newOrder(sum cart.Summary, form Form) *Order {
	order := &Order{
		ID:              uuid.New(),
		Items:           sum.Items,
		Subtotal:        sum.Subtotal,
		Discount:        sum.Discount,
		Percent:         sum.Percent,
		CouponCode:      sum.Coupon,
		Total:           sum.Total,
		PlacedAt:        o.opts.Now(),
		Buyer:           form.buyer(),
		ProcessingDelay: o.opts.ProcessingDelay,
		RedirectDelay:   o.opts.RedirectDelay,
		RedirectTo:      o.opts.RedirectTo,
	}
	if sum.Percent.IsZero() {
		order.CouponCode = ""
	}
	return order
}
