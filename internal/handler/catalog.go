package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/browse"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/view"
)

// ListProducts returns the whole catalog in source order.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	list := view.NewProductList(h.catalog.Load(r.Context()))
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("listing")
		list.Encode(e)
	})
}

// GetProduct returns a single product card.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		mapError(w, r, err)
		return
	}
	p, ok := h.catalog.FindByID(r.Context(), id)
	if !ok {
		mapError(w, r, product.ErrNotFound)
		return
	}
	card := view.NewProductCard(p)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("product")
		card.Encode(e)
	})
}

// CategoryProducts serves a category page. Query parameters:
//
//	max            inclusive ceiling on the effective price
//	free_shipping  "true" keeps only free shipping products
//	sort           default, minMax or maxMin
func (h *Handler) CategoryProducts(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseCriteria(r)
	if err != nil {
		mapError(w, r, err)
		return
	}

	category := r.PathValue("category")
	base := h.catalog.FilterByCategory(r.Context(), category)
	page := view.CategoryPage{
		Category: category,
		Filters: view.Filters{
			PriceCeiling: browse.PriceCeiling(base).String(),
			FreeShipping: criteria.FreeShippingOnly,
			Sort:         string(criteria.Sort),
		},
		Products: view.NewProductList(browse.Derive(base, criteria)),
	}
	if criteria.MaxPrice.Valid {
		page.Filters.MaxPrice = criteria.MaxPrice.Decimal.String()
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("page")
		page.Encode(e)
	})
}

func parseCriteria(r *http.Request) (browse.Criteria, error) {
	q := r.URL.Query()

	sort, err := browse.ParseSortOrder(q.Get("sort"))
	if err != nil {
		return browse.Criteria{}, badRequest(err, "sort")
	}
	c := browse.Criteria{Sort: sort}

	if v := q.Get("max"); v != "" {
		ceiling, err := decimal.NewFromString(v)
		if err != nil {
			return c, badRequest(err, "max")
		}
		if ceiling.IsNegative() {
			return c, badRequest(errors.New("must not be negative"), "max")
		}
		c.MaxPrice = decimal.NewNullDecimal(ceiling)
	}
	if v := q.Get("free_shipping"); v != "" {
		c.FreeShippingOnly, err = strconv.ParseBool(v)
		if err != nil {
			return c, badRequest(err, "free_shipping")
		}
	}
	return c, nil
}

// Landing returns the configured sections without filters.
func (h *Handler) Landing(w http.ResponseWriter, r *http.Request) {
	sections := make([]view.Section, len(h.landing))
	for i, category := range h.landing {
		sections[i] = view.Section{
			Category: category,
			Products: view.NewProductList(h.catalog.FilterByCategory(r.Context(), category)),
		}
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("sections")
		e.ArrStart()
		for _, s := range sections {
			s.Encode(e)
		}
		e.ArrEnd()
	})
}
