// Package catalog caches the product list for the lifetime of the process.
package catalog

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
)

// ErrUnavailable is logged when the catalog cannot be fetched or parsed.
var ErrUnavailable = errors.New("catalog unavailable")

// UnavailableError carries the cause of a failed fetch. It matches
// ErrUnavailable and unwraps to the cause.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return ErrUnavailable.Error() + ": " + e.Err.Error()
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// Store loads the catalog once through its source and serves lookups from
// memory. The returned slices are shared and must be treated as read-only.
type Store struct {
	source product.Repository

	mu       sync.Mutex
	loaded   bool
	lastErr  error
	products []product.Product
}

// NewStore creates a Store backed by the given source.
func NewStore(source product.Repository) *Store {
	return &Store{source: source}
}

// Load returns the catalog, fetching it on first use. A failed fetch is
// logged and yields an empty catalog; it is retried on the next call.
func (s *Store) Load(ctx context.Context) []product.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.products
	}

	products, err := s.source.List(ctx)
	if err != nil {
		s.lastErr = &UnavailableError{Err: err}
		zctx.From(ctx).Error("Catalog fetch failed", zap.Error(s.lastErr))
		return []product.Product{}
	}

	s.products = products
	s.loaded = true
	s.lastErr = nil
	zctx.From(ctx).Info("Catalog loaded", zap.Int("products", len(products)))
	return s.products
}

// Loaded reports whether the catalog has been fetched successfully.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// FindByID returns the product with the given identifier.
func (s *Store) FindByID(ctx context.Context, id int64) (product.Product, bool) {
	for _, p := range s.Load(ctx) {
		if p.ID == id {
			return p, true
		}
	}
	return product.Product{}, false
}

// FilterByCategory returns the products of the given category in catalog order.
func (s *Store) FilterByCategory(ctx context.Context, category string) []product.Product {
	all := s.Load(ctx)
	out := make([]product.Product, 0, len(all))
	for _, p := range all {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Ping fails with the last fetch error until the catalog has been loaded.
// It triggers a load attempt, which makes it usable as a readiness check.
func (s *Store) Ping(ctx context.Context) error {
	s.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.loaded:
		return nil
	case s.lastErr != nil:
		return s.lastErr
	default:
		return ErrUnavailable
	}
}
