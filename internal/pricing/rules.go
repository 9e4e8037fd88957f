package pricing

import (
	"encoding/json"
	"time"
)

// Product is the immutable catalog snapshot a calculation works from.
type Product struct {
	ID         int64
	Name       string
	BasePrice  float64
	CategoryID int64
	BrandID    int64
}

// Vendor identifies the seller owning a product.
type Vendor struct {
	ID   int64
	Name string
}

// Customer pricing rule scopes, most specific first.
const (
	ScopeProduct  = "product"
	ScopeCategory = "category"
	ScopeBrand    = "brand"
)

// Customer pricing rule types.
const (
	PricingFixedPrice      = "fixed_price"
	PricingDiscountPercent = "discount_percent"
	PricingDiscountAmount  = "discount_amount"
	PricingMarkupPercent   = "markup_percent"
)

// Customer rule approval states. Only approved rules ever price a cart.
const (
	StatusApproved = "approved"
)

// CustomerRule is a customer-specific price override. Rules start out
// pending and take effect only once approved.
type CustomerRule struct {
	ID              int64
	Scope           string
	Type            string
	Value           float64
	MinimumQuantity int
	ApprovalStatus  string
	ValidUntil      *time.Time
}

// Dynamic rule types and adjustment types.
const (
	RuleTimeBased      = "time_based"
	RuleSeasonal       = "seasonal"
	RuleInventoryBased = "inventory_based"
	RuleDefault        = "default"

	AdjustPercentage  = "percentage"
	AdjustFixedAmount = "fixed_amount"
	AdjustMultiplyBy  = "multiply_by"
)

// Conditions is the parsed form of a dynamic rule's opaque condition payload.
type Conditions struct {
	Hours  []int `json:"hours"`
	Months []int `json:"months"`
}

// DynamicRule is a time/seasonal/inventory conditioned price adjustment.
// Rules with unparseable payloads are carried with Malformed set so the
// engine can skip and count them without aborting the calculation.
type DynamicRule struct {
	ID              int64
	RuleType        string
	AdjustmentType  string
	AdjustmentValue float64
	MinPrice        *float64
	MaxPrice        *float64
	Conditions      Conditions
	Malformed       bool
	Priority        int
	ProductID       *int64
	ValidFrom       *time.Time
	ValidTo         *time.Time
}

// Vendor discount types and scopes.
const (
	DiscountPercentage  = "percentage"
	DiscountFixedAmount = "fixed_amount"
	DiscountTiered      = "tiered"

	AppliesAllProducts        = "all_products"
	AppliesSpecificProducts   = "specific_products"
	AppliesSpecificCategories = "specific_categories"
)

// VolumeTier maps a quantity bracket to a rate or flat amount. MaxQty nil
// means the bracket is open-ended.
type VolumeTier struct {
	MinQty          int      `json:"min_qty"`
	MaxQty          *int     `json:"max_qty"`
	DiscountPercent *float64 `json:"discount_percent"`
	DiscountAmount  *float64 `json:"discount_amount"`
}

// VendorDiscount is a vendor-configured automatic discount.
type VendorDiscount struct {
	ID                    int64
	VendorID              int64
	Name                  string
	Type                  string
	Value                 float64
	MinimumOrderValue     float64
	MinimumQuantity       int
	MaximumDiscountAmount *float64
	AppliesTo             string
	TargetIDs             []int64
	Tiers                 []VolumeTier
	Malformed             bool
	Priority              int
	ValidFrom             *time.Time
	ValidTo               *time.Time
}

// Coupon discount types.
const (
	CouponPercentage   = "percentage"
	CouponFixedAmount  = "fixed_amount"
	CouponFreeShipping = "free_shipping"
)

// Coupon is a code-based, vendor-scoped discount. UsageCount is a read-only
// snapshot here; the order-commit path owns the authoritative increment.
type Coupon struct {
	ID                    int64
	Code                  string
	VendorID              int64
	VendorName            string
	Type                  string
	Value                 float64
	MinimumOrderValue     float64
	MaximumDiscountAmount *float64
	UsageLimitTotal       *int
	UsageCount            int
	ValidFrom             *time.Time
	ValidTo               *time.Time
}

// Campaign types.
const (
	CampaignPercentageOff  = "percentage_off"
	CampaignFixedAmountOff = "fixed_amount_off"
)

// Campaign is a platform-wide promotional code.
type Campaign struct {
	ID                    int64
	Code                  string
	Type                  string
	DiscountPercent       float64
	DiscountAmount        float64
	MinimumOrderValue     float64
	MaximumDiscountAmount *float64
	StartsAt              *time.Time
	EndsAt                *time.Time
}

// ParseConditions decodes a dynamic rule's condition payload. An empty
// payload parses to the zero value; callers mark the rule malformed on error.
func ParseConditions(raw []byte) (Conditions, error) {
	var c Conditions
	if len(raw) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return Conditions{}, err
	}
	return c, nil
}

// ParseTargetIDs decodes a discount's target id list.
func ParseTargetIDs(raw []byte) ([]int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// ParseVolumeTiers decodes a tiered discount's bracket list.
func ParseVolumeTiers(raw []byte) ([]VolumeTier, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var tiers []VolumeTier
	if err := json.Unmarshal(raw, &tiers); err != nil {
		return nil, err
	}
	return tiers, nil
}

// activeAt reports whether now falls inside the [from, to] window. Nil bounds
// are open.
func activeAt(now time.Time, from, to *time.Time) bool {
	if from != nil && now.Before(*from) {
		return false
	}
	if to != nil && now.After(*to) {
		return false
	}
	return true
}
