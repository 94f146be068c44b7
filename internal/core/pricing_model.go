package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RuleType scopes which parts a markup rule applies to.
type RuleType string

const (
	RuleUniversal RuleType = "universal"
	RuleCategory  RuleType = "category"
	RuleSupplier  RuleType = "supplier"
	RuleCostRange RuleType = "cost_range"
)

// MarkupRule computes a selling price from a cost price for the parts it
// matches. Rules are tried in order (sort_order ascending, then priority
// descending); the first match wins.
type MarkupRule struct {
	ID               int64            `json:"id"`
	Name             string           `json:"name"`
	Description      string           `json:"description,omitempty"`
	Type             RuleType         `json:"rule_type"`
	CategoryID       *int64           `json:"category_id,omitempty"`
	SupplierID       *int64           `json:"supplier_id,omitempty"`
	MinCost          *decimal.Decimal `json:"min_cost,omitempty"`
	MaxCost          *decimal.Decimal `json:"max_cost,omitempty"`
	MarkupPercentage decimal.Decimal  `json:"markup_percentage"`
	MinMarkup        *decimal.Decimal `json:"min_markup,omitempty"`
	MaxMarkup        *decimal.Decimal `json:"max_markup,omitempty"`
	Priority         int              `json:"priority"`
	SortOrder        int              `json:"sort_order"`
	ValidFrom        *time.Time       `json:"valid_from,omitempty"`
	ValidUntil       *time.Time       `json:"valid_until,omitempty"`
	IsActive         bool             `json:"is_active"`
}

// Matches reports whether the rule applies to a part with the given
// category, supplier and cost. Supplier rules are defined in the schema but
// never match; supplier-level pricing agreements are negotiated per order.
func (r *MarkupRule) Matches(categoryID, supplierID *int64, cost decimal.Decimal) bool {
	switch r.Type {
	case RuleUniversal:
		return true
	case RuleCategory:
		return r.CategoryID != nil && categoryID != nil && *r.CategoryID == *categoryID
	case RuleCostRange:
		if r.MinCost != nil && cost.LessThan(*r.MinCost) {
			return false
		}
		if r.MaxCost != nil && cost.GreaterThan(*r.MaxCost) {
			return false
		}
		return true
	default:
		return false
	}
}

// Apply computes the selling price for the given cost: cost plus the rule's
// percentage markup, clamped so the absolute markup stays within
// [MinMarkup, MaxMarkup] when those bounds are set.
func (r *MarkupRule) Apply(cost decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	selling := cost.Add(cost.Mul(r.MarkupPercentage).Div(hundred))
	if r.MinMarkup != nil {
		floor := cost.Add(*r.MinMarkup)
		if selling.LessThan(floor) {
			selling = floor
		}
	}
	if r.MaxMarkup != nil {
		ceiling := cost.Add(*r.MaxMarkup)
		if selling.GreaterThan(ceiling) {
			selling = ceiling
		}
	}
	return selling.Round(2)
}

// PriceQuote is the outcome of pricing one part.
type PriceQuote struct {
	SparePartID  int64           `json:"spare_part_id"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	RuleID       *int64          `json:"rule_id,omitempty"`
	RuleName     string          `json:"rule_name,omitempty"`
}

// RepriceResult summarizes ApplyRulesToAllParts.
type RepriceResult struct {
	Priced    int `json:"priced"`
	ByRule    int `json:"by_rule"`
	Unmatched int `json:"unmatched"`
}

// PricingService computes selling prices from cost prices via markup rules.
// A part no rule matches keeps its cost price as the selling price.
type PricingService interface {
	// ComputeSellingPrice prices one part from its catalog cost.
	ComputeSellingPrice(ctx context.Context, partID int64) (*PriceQuote, error)

	// ApplyRulesToAllParts reprices every active part and persists the new
	// selling prices to the catalog.
	ApplyRulesToAllParts(ctx context.Context, actorID int64) (*RepriceResult, error)

	// ListRules returns the active rules in evaluation order.
	ListRules(ctx context.Context) ([]MarkupRule, error)
}
