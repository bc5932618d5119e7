package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/product"
)

// --- Mock implementations ---

type memStorage struct {
	slots map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{slots: make(map[string][]byte)}
}

func (m *memStorage) Load(_ context.Context, session, slot string) ([]byte, error) {
	v, ok := m.slots[session+"/"+slot]
	if !ok {
		return nil, cart.ErrSlotEmpty
	}
	return v, nil
}

func (m *memStorage) Save(_ context.Context, session, slot string, value []byte) error {
	m.slots[session+"/"+slot] = value
	return nil
}

func (m *memStorage) Delete(_ context.Context, session string, slots ...string) error {
	for _, slot := range slots {
		delete(m.slots, session+"/"+slot)
	}
	return nil
}

type failingCart struct {
	summary  cart.Summary
	sumErr   error
	clearErr error
	cleared  bool
}

func (f *failingCart) Checkout(_ context.Context, _ cart.Discounter, place func(cart.Summary) error) (cart.Summary, error) {
	if f.sumErr != nil {
		return cart.Summary{}, f.sumErr
	}
	if err := place(f.summary); err != nil {
		return cart.Summary{}, err
	}
	f.cleared = true
	return f.summary, f.clearErr
}

type recordingPresenter struct {
	orders []*Order
	// cartSaved reports whether the cart slot still held the items when the
	// receipt was handed over.
	cartSaved bool
	storage   *memStorage
}

func (p *recordingPresenter) PresentReceipt(_ context.Context, o *Order) {
	p.orders = append(p.orders, o)
	if p.storage != nil {
		_, p.cartSaved = p.storage.slots["s1/"+cart.SlotItems]
	}
}

// --- Helpers ---

var fixedNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func validForm() Form {
	return Form{
		FullName:   "Ana García",
		Email:      "ana@example.com",
		Address:    "Calle Mayor 1",
		City:       "Madrid",
		PostalCode: "28013",
		CardNumber: "4111 1111 1111 1111",
		CardExpiry: "12/27",
		CardCVV:    "123",
	}
}

func newEngine(t *testing.T) *coupon.Engine {
	t.Helper()
	table, err := coupon.NewStaticTable(map[string]int{"JBL20": 20})
	require.NoError(t, err)
	return coupon.NewEngine(table)
}

func newOrchestrator(t *testing.T, e *coupon.Engine, p ReceiptPresenter) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(e, p, Options{
		ProcessingDelay: 1500 * time.Millisecond,
		RedirectDelay:   2 * time.Second,
		RedirectTo:      "/",
		Now:             func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return o
}

func filledStore(t *testing.T, storage cart.Storage) *cart.Store {
	t.Helper()
	s := cart.NewStore("s1", storage, nil)
	p := product.Product{ID: 1, Name: "X", ListPrice: product.Fixed(d("100"))}
	for range 2 {
		_, err := s.Add(context.Background(), p)
		require.NoError(t, err)
	}
	return s
}

// --- Tests ---

func TestSubmit_EmptyCart(t *testing.T) {
	storage := newMemStorage()
	s := cart.NewStore("s1", storage, nil)
	presenter := &recordingPresenter{}
	o := newOrchestrator(t, newEngine(t), presenter)

	_, err := o.Submit(context.Background(), s, validForm())
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, presenter.orders)

	items, err := s.Items(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSubmit_EmptyCartCheckedBeforeForm(t *testing.T) {
	s := cart.NewStore("s1", newMemStorage(), nil)
	o := newOrchestrator(t, newEngine(t), nil)

	_, err := o.Submit(context.Background(), s, Form{})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestSubmit_InvalidFormKeepsCart(t *testing.T) {
	ctx := context.Background()
	storage := newMemStorage()
	s := filledStore(t, storage)
	presenter := &recordingPresenter{}
	o := newOrchestrator(t, newEngine(t), presenter)

	form := validForm()
	form.Email = "not-an-email"
	_, err := o.Submit(ctx, s, form)

	var formErr *FormError
	require.ErrorAs(t, err, &formErr)
	require.Len(t, formErr.Fields, 1)
	assert.Equal(t, "email", formErr.Fields[0].Field)
	assert.Empty(t, presenter.orders)

	count, err := s.ItemCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSubmit_PlacesOrderThenClears(t *testing.T) {
	ctx := context.Background()
	storage := newMemStorage()
	s := filledStore(t, storage)
	e := newEngine(t)
	_, err := s.ApplyCoupon(ctx, e, "JBL20")
	require.NoError(t, err)

	presenter := &recordingPresenter{storage: storage}
	o := newOrchestrator(t, e, presenter)

	order, err := o.Submit(ctx, s, validForm())
	require.NoError(t, err)

	require.Len(t, presenter.orders, 1)
	assert.Same(t, order, presenter.orders[0])
	assert.True(t, presenter.cartSaved, "receipt must see the cart before it is cleared")

	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.True(t, d("200").Equal(order.Subtotal))
	assert.True(t, d("40").Equal(order.Discount))
	assert.True(t, d("20").Equal(order.Percent))
	assert.True(t, d("160").Equal(order.Total))
	assert.Equal(t, "JBL20", order.CouponCode)
	assert.Equal(t, fixedNow, order.PlacedAt)
	assert.NotEqual(t, [16]byte{}, [16]byte(order.ID))
	assert.Equal(t, "Ana García", order.Buyer.FullName)
	assert.Equal(t, "1111", order.Buyer.CardLast4)
	assert.Equal(t, 1500*time.Millisecond, order.ProcessingDelay)
	assert.Equal(t, 2*time.Second, order.RedirectDelay)
	assert.Equal(t, "/", order.RedirectTo)

	snap, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Items)
	assert.Empty(t, snap.Coupon)
	assert.Empty(t, storage.slots)
}

func TestSubmit_ConcurrentAddLandsOnClearedCart(t *testing.T) {
	ctx := context.Background()
	s := filledStore(t, newMemStorage())
	late := product.Product{ID: 2, Name: "Y", ListPrice: product.Fixed(d("5"))}

	// Another tab adds a product while the order is being placed.
	added := make(chan error, 1)
	presenter := ReceiptPresenterFunc(func(ctx context.Context, _ *Order) {
		go func() {
			_, err := s.Add(ctx, late)
			added <- err
		}()
	})
	o := newOrchestrator(t, newEngine(t), presenter)

	order, err := o.Submit(ctx, s, validForm())
	require.NoError(t, err)
	require.NoError(t, <-added)

	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(1), order.Items[0].ProductID)

	items, err := s.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1, "the late item must not be cleared")
	assert.Equal(t, int64(2), items[0].ProductID)
	assert.Equal(t, 1, items[0].Quantity)
}

func TestSubmit_StaleCouponNotRecorded(t *testing.T) {
	ctx := context.Background()
	storage := newMemStorage()
	s := filledStore(t, storage)
	storage.slots["s1/"+cart.SlotCoupon] = []byte("OLD10")

	o := newOrchestrator(t, newEngine(t), nil)
	order, err := o.Submit(ctx, s, validForm())
	require.NoError(t, err)
	assert.Empty(t, order.CouponCode)
	assert.True(t, d("200").Equal(order.Total))
}

func TestSubmit_Errors(t *testing.T) {
	ctx := context.Background()
	o := newOrchestrator(t, newEngine(t), nil)
	nonEmpty := cart.Summary{Snapshot: cart.Snapshot{
		Items: []cart.LineItem{{ProductID: 1, Quantity: 1, UnitPrice: d("1")}},
		Count: 1,
	}}

	t.Run("summary", func(t *testing.T) {
		c := &failingCart{sumErr: errors.New("storage down")}
		_, err := o.Submit(ctx, c, validForm())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "summarize cart")
		assert.False(t, c.cleared)
	})

	t.Run("clear", func(t *testing.T) {
		c := &failingCart{summary: nonEmpty, clearErr: errors.New("storage down")}
		_, err := o.Submit(ctx, c, validForm())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "clear cart")
	})

	t.Run("empty", func(t *testing.T) {
		c := &failingCart{}
		_, err := o.Submit(ctx, c, validForm())
		require.ErrorIs(t, err, ErrEmptyCart)
		assert.False(t, c.cleared)
	})
}

func TestFormValidator(t *testing.T) {
	v := NewFormValidator(func() time.Time { return fixedNow })

	tests := []struct {
		name   string
		mutate func(f *Form)
		fields []string
	}{
		{name: "valid", mutate: func(*Form) {}},
		{name: "valid phone", mutate: func(f *Form) { f.Phone = "+34600111222" }},
		{name: "missing name", mutate: func(f *Form) { f.FullName = "" }, fields: []string{"full_name"}},
		{name: "bad phone", mutate: func(f *Form) { f.Phone = "600" }, fields: []string{"phone"}},
		{name: "bad card", mutate: func(f *Form) { f.CardNumber = "4111 1111 1111 1112" }, fields: []string{"card_number"}},
		{name: "expired card", mutate: func(f *Form) { f.CardExpiry = "02/26" }, fields: []string{"card_expiry"}},
		{name: "current month", mutate: func(f *Form) { f.CardExpiry = "03/26" }},
		{name: "bad expiry format", mutate: func(f *Form) { f.CardExpiry = "13/30" }, fields: []string{"card_expiry"}},
		{name: "short cvv", mutate: func(f *Form) { f.CardCVV = "12" }, fields: []string{"card_cvv"}},
		{
			name:   "several",
			mutate: func(f *Form) { f.City = ""; f.PostalCode = "" },
			fields: []string{"city", "postal_code"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)
			err := v.Validate(f)
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				return
			}
			var formErr *FormError
			require.ErrorAs(t, err, &formErr)
			got := make([]string, len(formErr.Fields))
			for i, fe := range formErr.Fields {
				got[i] = fe.Field
				assert.NotEmpty(t, fe.Message)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}
