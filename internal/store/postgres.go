package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shadecraft/storefront-api/internal/pricing"
)

// ErrUnavailable indicates the rule store dependency is not configured.
var ErrUnavailable = errors.New("store: database unavailable")

// Postgres implements pricing.Store against the catalog and rule tables.
// Queries filter on is_active only; validity windows are evaluated by the
// engine against its own clock.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres constructs the pgx-backed rule store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{Pool: pool}
}

// ProductsByIDs fetches the active products among ids.
func (s *Postgres) ProductsByIDs(ctx context.Context, ids []int64) (map[int64]pricing.Product, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.Pool.Query(ctx, `SELECT id, name, base_price, COALESCE(category_id, 0), COALESCE(brand_id, 0)
FROM products WHERE id = ANY($1) AND is_active`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]pricing.Product, len(ids))
	for rows.Next() {
		var p pricing.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.BasePrice, &p.CategoryID, &p.BrandID); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// VendorsForProducts maps each product id to its owning active vendor.
func (s *Postgres) VendorsForProducts(ctx context.Context, ids []int64) (map[int64]pricing.Vendor, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.Pool.Query(ctx, `SELECT vp.product_id, v.vendor_id, v.vendor_name
FROM vendor_products vp
JOIN vendor_info v ON v.vendor_id = vp.vendor_id AND v.is_active
WHERE vp.product_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]pricing.Vendor, len(ids))
	for rows.Next() {
		var productID int64
		var v pricing.Vendor
		if err := rows.Scan(&productID, &v.ID, &v.Name); err != nil {
			return nil, err
		}
		out[productID] = v
	}
	return out, rows.Err()
}

// CustomerRulesFor fetches the active customer-specific rules touching the
// given products, keyed by product id.
func (s *Postgres) CustomerRulesFor(ctx context.Context, customerID int64, productIDs []int64) (map[int64][]pricing.CustomerRule, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.Pool.Query(ctx, `SELECT p.id, r.id, r.scope, r.price_type, r.price_value, r.minimum_quantity, r.approval_status, r.valid_until
FROM products p
JOIN customer_specific_pricing r ON r.customer_id = $1 AND r.is_active AND r.approval_status = 'approved'
 AND ((r.scope = 'product' AND r.product_id = p.id)
   OR (r.scope = 'category' AND r.category_id = p.category_id)
   OR (r.scope = 'brand' AND r.brand_id = p.brand_id))
WHERE p.id = ANY($2)
ORDER BY r.id`, customerID, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64][]pricing.CustomerRule{}
	for rows.Next() {
		var productID int64
		var rule pricing.CustomerRule
		var validUntil sql.NullTime
		if err := rows.Scan(&productID, &rule.ID, &rule.Scope, &rule.Type, &rule.Value, &rule.MinimumQuantity, &rule.ApprovalStatus, &validUntil); err != nil {
			return nil, err
		}
		if validUntil.Valid {
			t := validUntil.Time
			rule.ValidUntil = &t
		}
		out[productID] = append(out[productID], rule)
	}
	return out, rows.Err()
}

// DynamicRulesFor fetches active dynamic rules for the given products. Rules
// without a product binding apply to every requested product.
func (s *Postgres) DynamicRulesFor(ctx context.Context, productIDs []int64) (map[int64][]pricing.DynamicRule, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.Pool.Query(ctx, `SELECT id, rule_type, adjustment_type, adjustment_value, min_price, max_price, conditions, priority, product_id, valid_from, valid_to
FROM dynamic_pricing_rules
WHERE is_active AND (product_id IS NULL OR product_id = ANY($1))
ORDER BY priority, id`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64][]pricing.DynamicRule{}
	for rows.Next() {
		var rule pricing.DynamicRule
		var minPrice, maxPrice sql.NullFloat64
		var conditions []byte
		var productID sql.NullInt64
		var validFrom, validTo sql.NullTime
		if err := rows.Scan(&rule.ID, &rule.RuleType, &rule.AdjustmentType, &rule.AdjustmentValue,
			&minPrice, &maxPrice, &conditions, &rule.Priority, &productID, &validFrom, &validTo); err != nil {
			return nil, err
		}
		if minPrice.Valid {
			v := minPrice.Float64
			rule.MinPrice = &v
		}
		if maxPrice.Valid {
			v := maxPrice.Float64
			rule.MaxPrice = &v
		}
		if validFrom.Valid {
			t := validFrom.Time
			rule.ValidFrom = &t
		}
		if validTo.Valid {
			t := validTo.Time
			rule.ValidTo = &t
		}
		parsed, err := pricing.ParseConditions(conditions)
		if err != nil {
			rule.Malformed = true
		} else {
			rule.Conditions = parsed
		}
		if productID.Valid {
			id := productID.Int64
			rule.ProductID = &id
			out[id] = append(out[id], rule)
			continue
		}
		for _, id := range productIDs {
			out[id] = append(out[id], rule)
		}
	}
	return out, rows.Err()
}

// DiscountsForVendor fetches a vendor's active discounts, highest priority
// first.
func (s *Postgres) DiscountsForVendor(ctx context.Context, vendorID int64) ([]pricing.VendorDiscount, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.Pool.Query(ctx, `SELECT id, vendor_id, name, discount_type, discount_value, minimum_order_value, minimum_quantity, maximum_discount_amount, applies_to, target_ids, volume_tiers, priority, valid_from, valid_to
FROM vendor_discounts
WHERE vendor_id = $1 AND is_active
ORDER BY priority DESC, id`, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.VendorDiscount
	for rows.Next() {
		var d pricing.VendorDiscount
		var maxAmount sql.NullFloat64
		var targetIDs, tiers []byte
		var validFrom, validTo sql.NullTime
		if err := rows.Scan(&d.ID, &d.VendorID, &d.Name, &d.Type, &d.Value, &d.MinimumOrderValue, &d.MinimumQuantity,
			&maxAmount, &d.AppliesTo, &targetIDs, &tiers, &d.Priority, &validFrom, &validTo); err != nil {
			return nil, err
		}
		if maxAmount.Valid {
			v := maxAmount.Float64
			d.MaximumDiscountAmount = &v
		}
		if validFrom.Valid {
			t := validFrom.Time
			d.ValidFrom = &t
		}
		if validTo.Valid {
			t := validTo.Time
			d.ValidTo = &t
		}
		if ids, err := pricing.ParseTargetIDs(targetIDs); err != nil {
			d.Malformed = true
		} else {
			d.TargetIDs = ids
		}
		if parsed, err := pricing.ParseVolumeTiers(tiers); err != nil {
			d.Malformed = true
		} else {
			d.Tiers = parsed
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CouponByCode fetches one active coupon by exact, case-sensitive code.
// A missing code returns (nil, nil).
func (s *Postgres) CouponByCode(ctx context.Context, code string) (*pricing.Coupon, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrUnavailable
	}
	row := s.Pool.QueryRow(ctx, `SELECT c.id, c.code, c.vendor_id, v.vendor_name, c.coupon_type, c.discount_value, c.minimum_order_value, c.maximum_discount_amount, c.usage_limit_total, c.usage_count, c.valid_from, c.valid_to
FROM vendor_coupons c
JOIN vendor_info v ON v.vendor_id = c.vendor_id
WHERE c.code = $1 AND c.is_active`, strings.TrimSpace(code))

	var coupon pricing.Coupon
	var maxAmount sql.NullFloat64
	var usageLimit sql.NullInt64
	var validFrom, validTo sql.NullTime
	err := row.Scan(&coupon.ID, &coupon.Code, &coupon.VendorID, &coupon.VendorName, &coupon.Type, &coupon.Value,
		&coupon.MinimumOrderValue, &maxAmount, &usageLimit, &coupon.UsageCount, &validFrom, &validTo)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if maxAmount.Valid {
		v := maxAmount.Float64
		coupon.MaximumDiscountAmount = &v
	}
	if usageLimit.Valid {
		v := int(usageLimit.Int64)
		coupon.UsageLimitTotal = &v
	}
	if validFrom.Valid {
		t := validFrom.Time
		coupon.ValidFrom = &t
	}
	if validTo.Valid {
		t := validTo.Time
		coupon.ValidTo = &t
	}
	return &coupon, nil
}

// CampaignByCode fetches one active campaign by exact, case-sensitive code.
// A missing code returns (nil, nil).
func (s *Postgres) CampaignByCode(ctx context.Context, code string) (*pricing.Campaign, error) {
	if s == nil || s.Pool == nil {
		return nil, ErrUnavailable
	}
	row := s.Pool.QueryRow(ctx, `SELECT id, code, campaign_type, COALESCE(discount_percent, 0), COALESCE(discount_amount, 0), minimum_order_value, maximum_discount_amount, starts_at, ends_at
FROM promotional_campaigns
WHERE code = $1 AND is_active`, strings.TrimSpace(code))

	var campaign pricing.Campaign
	var maxAmount sql.NullFloat64
	var startsAt, endsAt sql.NullTime
	err := row.Scan(&campaign.ID, &campaign.Code, &campaign.Type, &campaign.DiscountPercent, &campaign.DiscountAmount,
		&campaign.MinimumOrderValue, &maxAmount, &startsAt, &endsAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	if maxAmount.Valid {
		v := maxAmount.Float64
		campaign.MaximumDiscountAmount = &v
	}
	if startsAt.Valid {
		t := startsAt.Time
		campaign.StartsAt = &t
	}
	if endsAt.Valid {
		t := endsAt.Time
		campaign.EndsAt = &t
	}
	return &campaign, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
