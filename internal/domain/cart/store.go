package cart

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/product"
)

var _ coupon.CodeStore = (*Store)(nil)

// Store owns the line items and the active coupon of one session. Every
// operation re-reads storage; nothing is mirrored in memory. The mutex
// serializes read-modify-write sequences of concurrent requests.
type Store struct {
	session  string
	storage  Storage
	observer Observer

	mu *sync.Mutex
}

// NewStore creates a Store for the given session. observer may be nil.
func NewStore(session string, storage Storage, observer Observer) *Store {
	return &Store{
		session:  session,
		storage:  storage,
		observer: observer,
		mu:       new(sync.Mutex),
	}
}

// Session returns the session identifier the store is bound to.
func (s *Store) Session() string {
	return s.session
}

// Items returns the persisted line items. An unset or corrupt slot yields
// an empty list.
func (s *Store) Items(ctx context.Context) ([]LineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// ItemCount returns the sum of quantities across all line items.
func (s *Store) ItemCount(ctx context.Context) (int, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return 0, err
	}
	return itemCount(items), nil
}

// Snapshot returns the current items and active coupon.
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(ctx, items)
}

// Add creates the line item for p with quantity 1, or increments the
// existing one. The unit price is captured only on creation.
func (s *Store) Add(ctx context.Context, p product.Product) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	if i := indexOf(items, p.ID); i >= 0 {
		items[i].Quantity++
	} else {
		items = append(items, LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Image:     p.Image,
			UnitPrice: p.EffectivePrice(),
			Quantity:  1,
		})
	}
	return s.commit(ctx, items)
}

// Increment raises the quantity of an existing line item by one. It returns
// ErrItemNotFound when the product is not in the cart.
func (s *Store) Increment(ctx context.Context, id int64) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	i := indexOf(items, id)
	if i < 0 {
		return Snapshot{}, ErrItemNotFound
	}
	items[i].Quantity++
	return s.commit(ctx, items)
}

// Decrement lowers the quantity of a line item by one and deletes the line
// when it would reach zero. An absent identifier is a no-op.
func (s *Store) Decrement(ctx context.Context, id int64) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	i := indexOf(items, id)
	if i < 0 {
		return s.snapshot(ctx, items)
	}
	if items[i].Quantity > 1 {
		items[i].Quantity--
	} else {
		items = append(items[:i], items[i+1:]...)
	}
	return s.commit(ctx, items)
}

// Remove deletes a line item regardless of quantity. An absent identifier
// is a no-op.
func (s *Store) Remove(ctx context.Context, id int64) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	i := indexOf(items, id)
	if i < 0 {
		return s.snapshot(ctx, items)
	}
	items = append(items[:i], items[i+1:]...)
	return s.commit(ctx, items)
}

// Clear deletes all line items together with the active coupon.
func (s *Store) Clear(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clear(ctx)
}

// Summary prices the cart with the active coupon.
func (s *Store) Summary(ctx context.Context, discounter Discounter) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary(ctx, discounter)
}

// Checkout prices the cart, hands the summary to place and clears the cart
// once place succeeds, all under the session lock. Mutations of concurrent
// requests wait and apply to the cleared cart. place must not call back into
// the Store.
func (s *Store) Checkout(ctx context.Context, discounter Discounter, place func(Summary) error) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum, err := s.summary(ctx, discounter)
	if err != nil {
		return Summary{}, err
	}
	if err := place(sum); err != nil {
		return Summary{}, err
	}
	if _, err := s.clear(ctx); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

// ApplyCoupon validates input and replaces the active coupon atomically
// with respect to other operations on this cart. An empty cart keeps no
// coupon: ErrNoItems is returned and any stale code is dropped.
func (s *Store) ApplyCoupon(ctx context.Context, applier CouponApplier, input string) (*coupon.Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		if err := s.clearActiveCode(ctx); err != nil {
			return nil, err
		}
		return nil, ErrNoItems
	}
	return applier.Apply(ctx, heldCodes{s}, input)
}

// ActiveCode returns the persisted coupon code, or "".
func (s *Store) ActiveCode(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeCode(ctx)
}

// SetActiveCode persists code as the active coupon.
func (s *Store) SetActiveCode(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setActiveCode(ctx, code)
}

// ClearActiveCode removes the active coupon.
func (s *Store) ClearActiveCode(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearActiveCode(ctx)
}

func (s *Store) summary(ctx context.Context, discounter Discounter) (Summary, error) {
	items, err := s.load(ctx)
	if err != nil {
		return Summary{}, err
	}
	snap, err := s.snapshot(ctx, items)
	if err != nil {
		return Summary{}, err
	}

	sub := subtotal(items)
	discount, err := discounter.ComputeDiscount(ctx, heldCodes{s}, sub)
	if err != nil {
		return Summary{}, errors.Wrap(err, "compute discount")
	}
	return Summary{
		Snapshot: snap,
		Subtotal: sub,
		Discount: discount.Amount,
		Percent:  discount.Percent,
		Total:    sub.Sub(discount.Amount),
	}, nil
}

// load must be called with s.mu held.
func (s *Store) load(ctx context.Context) ([]LineItem, error) {
	data, err := s.storage.Load(ctx, s.session, SlotItems)
	if err != nil {
		if errors.Is(err, ErrSlotEmpty) {
			return []LineItem{}, nil
		}
		return nil, errors.Wrap(err, "load cart")
	}

	items, err := decodeItems(data)
	if err != nil {
		zctx.From(ctx).Warn("Discarding corrupt cart slot",
			zap.String("session", s.session),
			zap.Error(err),
		)
		return []LineItem{}, nil
	}
	return items, nil
}

// commit persists items, or clears the cart when none remain, then notifies
// the observer. Must be called with s.mu held.
func (s *Store) commit(ctx context.Context, items []LineItem) (Snapshot, error) {
	if len(items) == 0 {
		return s.clear(ctx)
	}

	data, err := encodeItems(items)
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.storage.Save(ctx, s.session, SlotItems, data); err != nil {
		return Snapshot{}, errors.Wrap(err, "save cart")
	}

	snap, err := s.snapshot(ctx, items)
	if err != nil {
		return Snapshot{}, err
	}
	s.notify(ctx, snap)
	return snap, nil
}

func (s *Store) clear(ctx context.Context) (Snapshot, error) {
	if err := s.storage.Delete(ctx, s.session, SlotItems, SlotCoupon); err != nil {
		return Snapshot{}, errors.Wrap(err, "clear cart")
	}
	snap := Snapshot{Items: []LineItem{}}
	s.notify(ctx, snap)
	return snap, nil
}

func (s *Store) snapshot(ctx context.Context, items []LineItem) (Snapshot, error) {
	code, err := s.activeCode(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return Snapshot{
		Items:  out,
		Coupon: code,
		Count:  itemCount(out),
	}, nil
}

func (s *Store) notify(ctx context.Context, snap Snapshot) {
	if s.observer != nil {
		s.observer.CartChanged(ctx, s.session, snap)
	}
}

func (s *Store) activeCode(ctx context.Context) (string, error) {
	data, err := s.storage.Load(ctx, s.session, SlotCoupon)
	if err != nil {
		if errors.Is(err, ErrSlotEmpty) {
			return "", nil
		}
		return "", errors.Wrap(err, "load coupon")
	}
	return string(data), nil
}

func (s *Store) setActiveCode(ctx context.Context, code string) error {
	if code == "" {
		return s.clearActiveCode(ctx)
	}
	if err := s.storage.Save(ctx, s.session, SlotCoupon, []byte(code)); err != nil {
		return errors.Wrap(err, "save coupon")
	}
	return nil
}

func (s *Store) clearActiveCode(ctx context.Context) error {
	if err := s.storage.Delete(ctx, s.session, SlotCoupon); err != nil {
		return errors.Wrap(err, "clear coupon")
	}
	return nil
}

// heldCodes exposes the coupon slot to collaborators called while s.mu is
// already held.
type heldCodes struct {
	s *Store
}

func (h heldCodes) ActiveCode(ctx context.Context) (string, error) {
	return h.s.activeCode(ctx)
}

func (h heldCodes) SetActiveCode(ctx context.Context, code string) error {
	return h.s.setActiveCode(ctx, code)
}

func (h heldCodes) ClearActiveCode(ctx context.Context) error {
	return h.s.clearActiveCode(ctx)
}
