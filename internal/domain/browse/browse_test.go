package browse

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/product"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func ceiling(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(d(v))
}

func ids(products []product.Product) []int64 {
	out := make([]int64, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func fixture() []product.Product {
	return []product.Product{
		{ID: 1, ListPrice: product.Fixed(d("150")), SalePrice: d("99"), OnSale: true, FreeShipping: true},
		{ID: 2, ListPrice: product.Fixed(d("80"))},
		{ID: 3, ListPrice: product.OnRequest()},
		{ID: 4, ListPrice: product.Fixed(d("80")), FreeShipping: true},
		{ID: 5, ListPrice: product.Fixed(d("300")), FreeShipping: true},
		{ID: 6, ListPrice: product.Fixed(d("99"))},
	}
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     []int64
	}{
		{
			name:     "no criteria keeps source order",
			criteria: Criteria{},
			want:     []int64{1, 2, 3, 4, 5, 6},
		},
		{
			name:     "ceiling uses sale price",
			criteria: Criteria{MaxPrice: ceiling("100")},
			want:     []int64{1, 2, 3, 4, 6},
		},
		{
			name:     "ceiling is inclusive",
			criteria: Criteria{MaxPrice: ceiling("80")},
			want:     []int64{2, 3, 4},
		},
		{
			name:     "free shipping only",
			criteria: Criteria{FreeShippingOnly: true},
			want:     []int64{1, 4, 5},
		},
		{
			name:     "ascending is stable",
			criteria: Criteria{Sort: SortMinMax},
			want:     []int64{3, 2, 4, 1, 6, 5},
		},
		{
			name:     "descending is stable",
			criteria: Criteria{Sort: SortMaxMin},
			want:     []int64{5, 1, 6, 2, 4, 3},
		},
		{
			name:     "filters then sort",
			criteria: Criteria{MaxPrice: ceiling("200"), FreeShippingOnly: true, Sort: SortMaxMin},
			want:     []int64{1, 4},
		},
		{
			name:     "nothing matches",
			criteria: Criteria{MaxPrice: ceiling("10"), FreeShippingOnly: true},
			want:     []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Derive(fixture(), tt.criteria)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestDerive_DoesNotMutateInput(t *testing.T) {
	base := fixture()
	_ = Derive(base, Criteria{MaxPrice: ceiling("100"), Sort: SortMaxMin})
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, ids(base))
}

func TestDerive_Idempotent(t *testing.T) {
	c := Criteria{MaxPrice: ceiling("250"), Sort: SortMinMax}
	once := Derive(fixture(), c)
	twice := Derive(once, c)
	assert.Equal(t, ids(once), ids(twice))
	assert.Equal(t, ids(once), ids(Derive(fixture(), c)))
}

func TestParseSortOrder(t *testing.T) {
	for in, want := range map[string]SortOrder{
		"":        SortDefault,
		"default": SortDefault,
		"minMax":  SortMinMax,
		"maxMin":  SortMaxMin,
	} {
		got, err := ParseSortOrder(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseSortOrder("price")
	require.Error(t, err)
}

func TestPriceCeiling(t *testing.T) {
	assert.True(t, d("300").Equal(PriceCeiling(fixture())))
	assert.True(t, d("20").Equal(PriceCeiling([]product.Product{
		{ID: 1, ListPrice: product.Fixed(d("19.99"))},
	})))
	assert.True(t, PriceCeiling(nil).IsZero())
}
