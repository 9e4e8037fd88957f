package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedVendors(db)
	seedProducts(db)
	seedPricingRules(db)
	seedDiscounts(db)
	seedCodes(db)
	seedSettings(db)

	log.Println("Seeding completed successfully!")
}

func seedVendors(db *sql.DB) {
	vendors := []struct {
		ID   int64
		Name string
	}{
		{1, "Northwind Traders"},
		{2, "Beacon Supply Co"},
		{3, "Juniper Home Goods"},
	}

	fmt.Println("Seeding Vendors...")
	for _, v := range vendors {
		_, err := db.Exec(`
			INSERT INTO vendor_info (vendor_id, vendor_name)
			VALUES ($1, $2)
			ON CONFLICT (vendor_id) DO UPDATE SET vendor_name = EXCLUDED.vendor_name;
		`, v.ID, v.Name)
		if err != nil {
			log.Printf("Failed to seed vendor %s: %v", v.Name, err)
		}
	}
}

func seedProducts(db *sql.DB) {
	products := []struct {
		ID         int64
		Name       string
		BasePrice  float64
		CategoryID int64
		BrandID    int64
		VendorID   int64
	}{
		{1, "Walnut Desk Organizer", 49.99, 10, 100, 1},
		{2, "Brass Table Lamp", 89.00, 11, 101, 1},
		{3, "Linen Throw Pillow", 24.50, 11, 102, 3},
		{4, "Ceramic Pour-Over Set", 64.00, 12, 103, 2},
		{5, "Oak Serving Board", 38.00, 12, 100, 2},
		{6, "Wool Area Rug 5x7", 249.00, 11, 104, 3},
	}

	fmt.Println("Seeding Products...")
	for _, p := range products {
		_, err := db.Exec(`
			INSERT INTO products (id, name, base_price, category_id, brand_id)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET base_price = EXCLUDED.base_price;
		`, p.ID, p.Name, p.BasePrice, p.CategoryID, p.BrandID)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
			continue
		}
		_, err = db.Exec(`
			INSERT INTO vendor_products (product_id, vendor_id)
			VALUES ($1, $2)
			ON CONFLICT (product_id) DO UPDATE SET vendor_id = EXCLUDED.vendor_id;
		`, p.ID, p.VendorID)
		if err != nil {
			log.Printf("Failed to map product %s to vendor: %v", p.Name, err)
		}
	}
}

func seedPricingRules(db *sql.DB) {
	fmt.Println("Seeding Pricing Rules...")

	_, err := db.Exec(`
		INSERT INTO customer_specific_pricing
			(customer_id, scope, product_id, category_id, price_type, price_value, minimum_quantity, approval_status)
		VALUES
			(1001, 'product', 6, NULL, 'discount_percent', 10, 1, 'approved'),
			(1001, 'category', NULL, 11, 'discount_percent', 5, 1, 'approved'),
			(1002, 'product', 2, NULL, 'fixed_price', 75, 1, 'pending')
		ON CONFLICT DO NOTHING;
	`)
	if err != nil {
		log.Printf("Failed to seed customer pricing: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO dynamic_pricing_rules
			(name, rule_type, adjustment_type, adjustment_value, conditions, priority)
		VALUES
			('Evening happy hour', 'time_based', 'percentage', -5, '{"hours": [18, 19, 20, 21]}', 100),
			('Summer markup', 'seasonal', 'percentage', 3, '{"months": [6, 7, 8]}', 90)
		ON CONFLICT DO NOTHING;
	`)
	if err != nil {
		log.Printf("Failed to seed dynamic rules: %v", err)
	}
}

func seedDiscounts(db *sql.DB) {
	fmt.Println("Seeding Vendor Discounts...")

	_, err := db.Exec(`
		INSERT INTO vendor_discounts
			(vendor_id, name, discount_type, discount_value, minimum_order_value, priority)
		VALUES
			(1, 'Spend $100 save 10%', 'percentage', 10, 100, 10),
			(2, 'Flat $5 off $50', 'fixed_amount', 5, 50, 10)
		ON CONFLICT DO NOTHING;
	`)
	if err != nil {
		log.Printf("Failed to seed flat discounts: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO vendor_discounts
			(vendor_id, name, discount_type, volume_tiers, priority)
		VALUES
			(3, 'Volume tiers', 'tiered',
			 '[{"min_qty": 3, "max_qty": 5, "discount_percent": 5}, {"min_qty": 6, "discount_percent": 10}]',
			 20)
		ON CONFLICT DO NOTHING;
	`)
	if err != nil {
		log.Printf("Failed to seed tiered discount: %v", err)
	}
}

func seedCodes(db *sql.DB) {
	fmt.Println("Seeding Coupons and Campaigns...")

	_, err := db.Exec(`
		INSERT INTO vendor_coupons
			(code, vendor_id, coupon_type, discount_value, minimum_order_value, maximum_discount_amount, usage_limit_total)
		VALUES
			('WELCOME10', 1, 'percentage', 10, 25, 50, 1000),
			('FREESHIP', 2, 'free_shipping', 0, 40, NULL, NULL)
		ON CONFLICT (code) DO NOTHING;
	`)
	if err != nil {
		log.Printf("Failed to seed coupons: %v", err)
	}

	_, err = db.Exec(`
		INSERT INTO promotional_campaigns
			(code, name, campaign_type, discount_percent, minimum_order_value, maximum_discount_amount)
		VALUES
			('FALL25', 'Fall kickoff', 'percentage_off', 25, 150, 75)
		ON CONFLICT (code) DO NOTHING;
	`)
	if err != nil {
		log.Printf("Failed to seed campaigns: %v", err)
	}
}

func seedSettings(db *sql.DB) {
	fmt.Println("Seeding Settings...")
	settings := map[string]string{
		"minimum_order_amount":    "25.00",
		"free_shipping_threshold": "100.00",
		"flat_shipping_fee":       "9.99",
	}
	for key, value := range settings {
		_, err := db.Exec(`
			INSERT INTO settings (key, value)
			VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now();
		`, key, value)
		if err != nil {
			log.Printf("Failed to seed setting %s: %v", key, err)
		}
	}
}
