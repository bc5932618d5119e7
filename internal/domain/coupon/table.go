package coupon

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var _ Repository = (*StaticTable)(nil)

// StaticTable is an immutable in-memory rule table, typically built from
// configuration.
type StaticTable struct {
	rules map[string]Rule
}

// NewStaticTable builds a table from code → percentage pairs. Codes are
// normalized; percentages must lie in (0, 100].
func NewStaticTable(percents map[string]int) (*StaticTable, error) {
	rules := make(map[string]Rule, len(percents))
	for code, pct := range percents {
		norm := Normalize(code)
		if norm == "" {
			return nil, errors.New("empty coupon code")
		}
		if pct <= 0 || pct > 100 {
			return nil, errors.Errorf("coupon %s: percentage %d out of range", norm, pct)
		}
		rules[norm] = Rule{
			Code:        norm,
			Percent:     decimal.NewFromInt(int64(pct)),
			Description: fmt.Sprintf("%d%% OFF", pct),
		}
	}
	return &StaticTable{rules: rules}, nil
}

// FindByCode returns the rule for the given normalized code.
func (t *StaticTable) FindByCode(_ context.Context, code string) (*Rule, error) {
	rule, ok := t.rules[code]
	if !ok {
		return nil, ErrInvalidCoupon
	}
	return &rule, nil
}

// Len returns the number of rules in the table.
func (t *StaticTable) Len() int {
	return len(t.rules)
}
