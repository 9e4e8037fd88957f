package pricing

import "math"

// LineItemInput is one product+quantity entry of the incoming cart.
type LineItemInput struct {
	ProductID int64    `json:"productId" validate:"required,gt=0"`
	Quantity  int      `json:"quantity" validate:"required,gt=0"`
	BasePrice *float64 `json:"basePrice,omitempty" validate:"omitempty,gte=0"`
}

// Request carries everything a single calculation may consume.
type Request struct {
	Items         []LineItemInput `json:"items" validate:"required,min=1,dive"`
	CustomerID    *int64          `json:"customerId,omitempty"`
	CustomerType  string          `json:"customerType,omitempty"`
	CouponCode    string          `json:"couponCode,omitempty"`
	CampaignCode  string          `json:"campaignCode,omitempty"`
	ShippingState string          `json:"shippingState,omitempty"`
	ZipCode       string          `json:"zipCode,omitempty"`
}

// Adjustment records one price rewrite applied to a line item. Amount is the
// signed unit-price delta (positive = price went down).
type Adjustment struct {
	Source string  `json:"source"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// PricedItem is a fully resolved cart line. Derived per calculation, never
// persisted.
type PricedItem struct {
	ProductID         int64        `json:"productId"`
	Name              string       `json:"name"`
	Quantity          int          `json:"quantity"`
	OriginalUnitPrice float64      `json:"originalPrice"`
	FinalUnitPrice    float64      `json:"finalPrice"`
	LineTotal         float64      `json:"lineTotal"`
	Adjustments       []Adjustment `json:"appliedDiscounts"`

	CategoryID int64 `json:"-"`
	BrandID    int64 `json:"-"`
}

// VendorGroup is the slice of a cart owned by one vendor.
type VendorGroup struct {
	VendorID      int64
	VendorName    string
	Items         []PricedItem
	Subtotal      float64
	TotalQuantity int
}

// Discount kinds emitted into the result.
const (
	KindVendorDiscount = "vendor_discount"
	KindVendorCoupon   = "vendor_coupon"
	KindCampaign       = "campaign"
)

// AppliedDiscount is one discount charged against the cart.
type AppliedDiscount struct {
	Kind           string  `json:"kind"`
	VendorID       int64   `json:"vendorId,omitempty"`
	VendorName     string  `json:"vendorName,omitempty"`
	ReferenceID    int64   `json:"referenceId"`
	Label          string  `json:"label"`
	Amount         float64 `json:"amount"`
	AppliesTo      string  `json:"appliesTo,omitempty"`
	SubtotalBefore float64 `json:"vendorSubtotalBefore,omitempty"`
	SubtotalAfter  float64 `json:"vendorSubtotalAfter,omitempty"`
}

// TaxBreakdown itemises a tax quote by jurisdiction layer.
type TaxBreakdown struct {
	StateTax           float64 `json:"stateTax"`
	CountyTax          float64 `json:"countyTax"`
	CityTax            float64 `json:"cityTax"`
	SpecialDistrictTax float64 `json:"specialDistrictTax"`
}

// TaxQuote is what the tax gateway returns for (amount, zip).
type TaxQuote struct {
	Amount       float64
	Rate         float64
	Breakdown    *TaxBreakdown
	Jurisdiction string
}

// Result is the complete pricing breakdown returned to the caller. A failed
// minimum-order check still carries the full item/discount breakdown so the
// UI can explain why checkout is blocked.
type Result struct {
	Success               bool              `json:"success"`
	Items                 []PricedItem      `json:"items"`
	Subtotal              float64           `json:"subtotal"`
	VendorDiscounts       []AppliedDiscount `json:"vendorDiscounts"`
	VendorCoupons         []AppliedDiscount `json:"vendorCoupons"`
	AppliedDiscountsList  []AppliedDiscount `json:"appliedDiscountsList"`
	TotalDiscountAmount   float64           `json:"totalDiscountAmount"`
	DiscountedSubtotal    float64           `json:"discountedSubtotal"`
	Shipping              float64           `json:"shipping"`
	IsFreeShipping        bool              `json:"isFreeShipping"`
	FreeShippingThreshold float64           `json:"freeShippingThreshold"`
	TaxRate               float64           `json:"taxRate"`
	Tax                   float64           `json:"tax"`
	TaxBreakdown          *TaxBreakdown     `json:"taxBreakdown,omitempty"`
	TaxJurisdiction       string            `json:"taxJurisdiction,omitempty"`
	Total                 float64           `json:"total"`
	VendorsInCart         int               `json:"vendorsInCart"`
	AppliedPromotions     map[string]string `json:"appliedPromotions"`
	CouponError           string            `json:"couponError,omitempty"`
	MinimumOrderRequired  float64           `json:"minimumOrderRequired,omitempty"`
}

// round2 normalises a dollar amount to cents.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
