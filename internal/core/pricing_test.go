package core_test

import (
	"testing"

	"partsledger/internal/core"

	"github.com/shopspring/decimal"
)

func int64Ptr(v int64) *int64 { return &v }

func TestMarkupRule_Matches(t *testing.T) {
	cost := decimal.NewFromInt(100)

	tests := []struct {
		name       string
		rule       core.MarkupRule
		categoryID *int64
		supplierID *int64
		cost       decimal.Decimal
		want       bool
	}{
		{
			name: "universal matches everything",
			rule: core.MarkupRule{Type: core.RuleUniversal},
			want: true,
		},
		{
			name:       "category matches same category",
			rule:       core.MarkupRule{Type: core.RuleCategory, CategoryID: int64Ptr(2)},
			categoryID: int64Ptr(2),
			want:       true,
		},
		{
			name:       "category rejects other category",
			rule:       core.MarkupRule{Type: core.RuleCategory, CategoryID: int64Ptr(2)},
			categoryID: int64Ptr(3),
			want:       false,
		},
		{
			name: "category rejects uncategorized part",
			rule: core.MarkupRule{Type: core.RuleCategory, CategoryID: int64Ptr(2)},
			want: false,
		},
		{
			name:       "supplier rules never match",
			rule:       core.MarkupRule{Type: core.RuleSupplier, SupplierID: int64Ptr(1)},
			supplierID: int64Ptr(1),
			want:       false,
		},
		{
			name: "cost range inside bounds",
			rule: core.MarkupRule{Type: core.RuleCostRange, MinCost: decPtr(50), MaxCost: decPtr(150)},
			want: true,
		},
		{
			name: "cost range below minimum",
			rule: core.MarkupRule{Type: core.RuleCostRange, MinCost: decPtr(150)},
			want: false,
		},
		{
			name: "cost range above maximum",
			rule: core.MarkupRule{Type: core.RuleCostRange, MaxCost: decPtr(99)},
			want: false,
		},
		{
			name: "cost range boundary is inclusive",
			rule: core.MarkupRule{Type: core.RuleCostRange, MinCost: decPtr(100), MaxCost: decPtr(100)},
			want: true,
		},
		{
			name: "open-ended cost range",
			rule: core.MarkupRule{Type: core.RuleCostRange},
			want: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := tc.cost
			if c.IsZero() {
				c = cost
			}
			if got := tc.rule.Matches(tc.categoryID, tc.supplierID, c); got != tc.want {
				t.Errorf("Matches() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMarkupRule_Apply(t *testing.T) {
	tests := []struct {
		name string
		rule core.MarkupRule
		cost decimal.Decimal
		want decimal.Decimal
	}{
		{
			name: "plain percentage",
			rule: core.MarkupRule{MarkupPercentage: decimal.NewFromInt(30)},
			cost: decimal.NewFromInt(100),
			want: decimal.NewFromInt(130),
		},
		{
			name: "rounds to two decimals",
			rule: core.MarkupRule{MarkupPercentage: decimal.NewFromFloat(12.5)},
			cost: decimal.NewFromFloat(99.99),
			want: decimal.NewFromFloat(112.49), // 99.99 × 1.125 = 112.48875
		},
		{
			name: "minimum markup lifts the price",
			rule: core.MarkupRule{MarkupPercentage: decimal.NewFromInt(10), MinMarkup: decPtr(50)},
			cost: decimal.NewFromInt(100), // 10% = 10, below the 50 floor
			want: decimal.NewFromInt(150),
		},
		{
			name: "maximum markup caps the price",
			rule: core.MarkupRule{MarkupPercentage: decimal.NewFromInt(50), MaxMarkup: decPtr(200)},
			cost: decimal.NewFromInt(1000), // 50% = 500, above the 200 cap
			want: decimal.NewFromInt(1200),
		},
		{
			name: "markup within bounds is untouched",
			rule: core.MarkupRule{MarkupPercentage: decimal.NewFromInt(20), MinMarkup: decPtr(10), MaxMarkup: decPtr(50)},
			cost: decimal.NewFromInt(100),
			want: decimal.NewFromInt(120),
		},
		{
			name: "zero percentage sells at cost",
			rule: core.MarkupRule{MarkupPercentage: decimal.Zero},
			cost: decimal.NewFromInt(75),
			want: decimal.NewFromInt(75),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.rule.Apply(tc.cost)
			if !got.Equal(tc.want) {
				t.Errorf("Apply(%s) = %s, want %s", tc.cost, got, tc.want)
			}
		})
	}
}
