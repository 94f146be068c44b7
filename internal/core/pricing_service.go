package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type pricingService struct {
	pool *pgxpool.Pool
}

// NewPricingService constructs a PricingService backed by the markup_rules
// table.
func NewPricingService(pool *pgxpool.Pool) PricingService {
	return &pricingService{pool: pool}
}

const ruleColumns = `
	id, name, COALESCE(description, ''), rule_type, category_id, supplier_id,
	min_cost, max_cost, markup_percentage, min_markup, max_markup,
	priority, sort_order, valid_from, valid_until, is_active`

// querier is the subset of pool/tx needed to load rules, so activeRules can
// run either standalone or inside a repricing transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// activeRules loads the rules eligible right now, in evaluation order:
// sort_order ascending, then priority descending.
func (s *pricingService) activeRules(ctx context.Context, q querier) ([]MarkupRule, error) {
	rows, err := q.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM markup_rules
		WHERE is_active = true
		  AND deleted_at IS NULL
		  AND (valid_from IS NULL OR valid_from <= NOW())
		  AND (valid_until IS NULL OR valid_until >= NOW())
		ORDER BY sort_order ASC, priority DESC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("load markup rules: %w", err)
	}
	defer rows.Close()

	var rules []MarkupRule
	for rows.Next() {
		var r MarkupRule
		if err := rows.Scan(
			&r.ID, &r.Name, &r.Description, &r.Type, &r.CategoryID, &r.SupplierID,
			&r.MinCost, &r.MaxCost, &r.MarkupPercentage, &r.MinMarkup, &r.MaxMarkup,
			&r.Priority, &r.SortOrder, &r.ValidFrom, &r.ValidUntil, &r.IsActive,
		); err != nil {
			return nil, fmt.Errorf("scan markup rule: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// quote applies the first matching rule. With no match the part sells at
// cost, unchanged.
func quote(partID int64, categoryID, supplierID *int64, cost decimal.Decimal, rules []MarkupRule) PriceQuote {
	for i := range rules {
		r := &rules[i]
		if r.Matches(categoryID, supplierID, cost) {
			return PriceQuote{
				SparePartID:  partID,
				CostPrice:    cost,
				SellingPrice: r.Apply(cost),
				RuleID:       &r.ID,
				RuleName:     r.Name,
			}
		}
	}
	return PriceQuote{SparePartID: partID, CostPrice: cost, SellingPrice: cost}
}

// ComputeSellingPrice prices one part from its catalog cost price.
func (s *pricingService) ComputeSellingPrice(ctx context.Context, partID int64) (*PriceQuote, error) {
	var categoryID, supplierID *int64
	var cost decimal.Decimal
	err := s.pool.QueryRow(ctx,
		"SELECT category_id, supplier_id, cost_price FROM spare_parts WHERE id = $1 AND deleted_at IS NULL",
		partID,
	).Scan(&categoryID, &supplierID, &cost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("spare part %d: %w", partID, ErrNotFound)
		}
		return nil, fmt.Errorf("fetch spare part %d: %w", partID, err)
	}

	rules, err := s.activeRules(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	q := quote(partID, categoryID, supplierID, cost, rules)
	return &q, nil
}

// ApplyRulesToAllParts reprices the whole active catalog in one transaction,
// so a concurrent reader never sees a half-repriced catalog.
func (s *pricingService) ApplyRulesToAllParts(ctx context.Context, actorID int64) (*RepriceResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rules, err := s.activeRules(ctx, tx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, category_id, supplier_id, cost_price
		FROM spare_parts
		WHERE is_active = true AND deleted_at IS NULL
		ORDER BY id
		FOR UPDATE`,
	)
	if err != nil {
		return nil, fmt.Errorf("load spare parts: %w", err)
	}

	type partRow struct {
		id                     int64
		categoryID, supplierID *int64
		cost                   decimal.Decimal
	}
	var parts []partRow
	for rows.Next() {
		var p partRow
		if err := rows.Scan(&p.id, &p.categoryID, &p.supplierID, &p.cost); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan spare part: %w", err)
		}
		parts = append(parts, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load spare parts: %w", err)
	}

	result := &RepriceResult{}
	hundred := decimal.NewFromInt(100)
	for _, p := range parts {
		q := quote(p.id, p.categoryID, p.supplierID, p.cost, rules)
		markupPct := decimal.Zero
		if !p.cost.IsZero() {
			markupPct = q.SellingPrice.Sub(p.cost).Div(p.cost).Mul(hundred).Round(2)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE spare_parts
			SET selling_price = $1, markup_percentage = $2, updated_at = NOW()
			WHERE id = $3`,
			q.SellingPrice, markupPct, p.id,
		); err != nil {
			return nil, fmt.Errorf("reprice spare part %d: %w", p.id, err)
		}
		result.Priced++
		if q.RuleID != nil {
			result.ByRule++
		} else {
			result.Unmatched++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit repricing: %w", err)
	}
	return result, nil
}

// ListRules returns the active rules in evaluation order.
func (s *pricingService) ListRules(ctx context.Context) ([]MarkupRule, error) {
	return s.activeRules(ctx, s.pool)
}
