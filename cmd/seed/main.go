// seed loads a small development dataset: users, locations, categories,
// suppliers, a starter parts catalog, and the default markup rules. It is
// idempotent; rows are keyed on their natural codes and upserted.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"

	"partsledger/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Seeding users...")
	if _, err := tx.Exec(ctx, `
		INSERT INTO users (name, email, role) VALUES
			('Admin',        'admin@workshop.local',    'admin'),
			('Parts Clerk',  'clerk@workshop.local',    'inventory'),
			('Lead Mechanic','mechanic@workshop.local', 'mechanic')
		ON CONFLICT (email) DO NOTHING
	`); err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}

	log.Println("Seeding locations...")
	if _, err := tx.Exec(ctx, `
		INSERT INTO locations (code, name, type, is_default, allow_negative_stock) VALUES
			('WH-MAIN',  'Main Warehouse',  'warehouse', true,  false),
			('WS-FLOOR', 'Workshop Floor',  'workshop',  false, false),
			('ST-FRONT', 'Front Store',     'store',     false, false)
		ON CONFLICT (code) DO NOTHING
	`); err != nil {
		log.Fatalf("Failed to seed locations: %v", err)
	}

	log.Println("Seeding categories...")
	if _, err := tx.Exec(ctx, `
		INSERT INTO categories (code, name) VALUES
			('ENG', 'Engine'),
			('BRK', 'Brakes'),
			('ELE', 'Electrical'),
			('FLT', 'Filters & Fluids')
		ON CONFLICT (code) DO NOTHING
	`); err != nil {
		log.Fatalf("Failed to seed categories: %v", err)
	}

	log.Println("Seeding suppliers...")
	if _, err := tx.Exec(ctx, `
		INSERT INTO suppliers (code, name, contact_name, phone) VALUES
			('SUP-001', 'PT Astra Otoparts',   'Sales Desk', '+62-21-4603550'),
			('SUP-002', 'Bosch Automotive ID', 'Order Desk', '+62-21-3040777')
		ON CONFLICT (code) DO NOTHING
	`); err != nil {
		log.Fatalf("Failed to seed suppliers: %v", err)
	}

	log.Println("Seeding spare parts...")
	if _, err := tx.Exec(ctx, `
		INSERT INTO spare_parts (sku, name, category_id, supplier_id, unit,
		                         cost_price, selling_price,
		                         min_stock_level, max_stock_level, reorder_point)
		SELECT v.sku, v.name, c.id, s.id, v.unit, v.cost, v.price, v.min, v.max, v.reorder
		FROM (VALUES
			('OIL-FLT-01', 'Oil Filter',          'FLT', 'SUP-001', 'pcs',  35000::numeric,  52500::numeric, 20, 200, 40),
			('BRK-PAD-01', 'Front Brake Pad Set', 'BRK', 'SUP-002', 'set', 250000::numeric, 375000::numeric,  5,  60, 10),
			('SPK-PLG-01', 'Spark Plug',          'ENG', 'SUP-002', 'pcs',  45000::numeric,  67500::numeric, 30, 300, 60),
			('BAT-12V-01', '12V 45Ah Battery',    'ELE', 'SUP-001', 'pcs', 850000::numeric, 1105000::numeric, 2,  20,  4)
		) AS v(sku, name, cat, sup, unit, cost, price, min, max, reorder)
		JOIN categories c ON c.code = v.cat
		JOIN suppliers s  ON s.code = v.sup
		ON CONFLICT (sku) DO NOTHING
	`); err != nil {
		log.Fatalf("Failed to seed spare parts: %v", err)
	}

	log.Println("Seeding markup rules...")
	if _, err := tx.Exec(ctx, `
		INSERT INTO markup_rules (name, rule_type, category_id, min_cost, max_cost,
		                          markup_percentage, min_markup, max_markup, priority, sort_order)
		SELECT v.name, v.rule_type, c.id, v.min_cost, v.max_cost,
		       v.pct, v.min_markup, v.max_markup, v.priority, v.sort_order
		FROM (VALUES
			('Premium parts cap', 'cost_range', NULL, 500000::numeric, NULL::numeric,
			 30::numeric, NULL::numeric, 300000::numeric, 10, 10),
			('Brake components',  'category',   'BRK', NULL::numeric, NULL::numeric,
			 50::numeric, 25000::numeric, NULL::numeric, 20, 20),
			('Standard markup',   'universal',  NULL, NULL::numeric, NULL::numeric,
			 50::numeric, 5000::numeric, NULL::numeric, 0, 100)
		) AS v(name, rule_type, cat, min_cost, max_cost, pct, min_markup, max_markup, priority, sort_order)
		LEFT JOIN categories c ON c.code = v.cat
		WHERE NOT EXISTS (SELECT 1 FROM markup_rules m WHERE m.name = v.name)
	`); err != nil {
		log.Fatalf("Failed to seed markup rules: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit seed: %v", err)
	}
	log.Println("Seed complete.")
}
