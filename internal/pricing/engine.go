package pricing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shadecraft/storefront-api/internal/obs"
)

// Sentinel errors surfaced to the HTTP layer.
var (
	ErrNoItems    = errors.New("pricing: no items supplied")
	ErrNoProducts = errors.New("pricing: no matching products")
)

// Store captures the rule reads a calculation needs. Implementations return
// only active rows; validity windows are re-checked here against the engine
// clock so results stay deterministic under test.
type Store interface {
	ProductsByIDs(ctx context.Context, ids []int64) (map[int64]Product, error)
	VendorsForProducts(ctx context.Context, ids []int64) (map[int64]Vendor, error)
	CustomerRulesFor(ctx context.Context, customerID int64, productIDs []int64) (map[int64][]CustomerRule, error)
	DynamicRulesFor(ctx context.Context, productIDs []int64) (map[int64][]DynamicRule, error)
	// DiscountsForVendor returns candidates ordered by priority descending.
	DiscountsForVendor(ctx context.Context, vendorID int64) ([]VendorDiscount, error)
	// CouponByCode and CampaignByCode return (nil, nil) when the code matches
	// nothing active.
	CouponByCode(ctx context.Context, code string) (*Coupon, error)
	CampaignByCode(ctx context.Context, code string) (*Campaign, error)
}

// Thresholds are the storefront-level checkout settings a calculation uses.
type Thresholds struct {
	MinimumOrderAmount    float64
	FreeShippingThreshold float64
	FlatShippingFee       float64
}

// SettingsProvider supplies the current thresholds.
type SettingsProvider interface {
	Thresholds(ctx context.Context) (Thresholds, error)
}

// TaxGateway quotes tax for a taxable amount and destination.
type TaxGateway interface {
	Quote(ctx context.Context, amount float64, state, zip string) (TaxQuote, error)
}

// Engine runs the full cart pricing pipeline.
type Engine struct {
	Store    Store
	Tax      TaxGateway
	Settings SettingsProvider
	// Defaults are used when the settings provider fails.
	Defaults Thresholds
	Now      func() time.Time
	Log      zerolog.Logger
}

// Calculate prices a cart end to end: per-item resolution, vendor grouping,
// automatic discounts, coupon and campaign codes, then order-level totals.
// Domain rejections (minimum order not met, bad coupon) come back inside the
// Result; an error return means the calculation itself could not run.
func (e *Engine) Calculate(ctx context.Context, req Request) (Result, error) {
	if e == nil || e.Store == nil {
		return Result{}, errors.New("pricing engine not configured")
	}
	start := time.Now()
	now := e.now()
	calcID := uuid.NewString()
	log := e.Log.With().Str("calculation_id", calcID).Logger()

	if len(req.Items) == 0 {
		return Result{}, ErrNoItems
	}
	ids := make([]int64, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ProductID)
	}

	products, err := e.Store.ProductsByIDs(ctx, ids)
	if err != nil {
		return Result{}, err
	}
	if len(products) == 0 {
		return Result{}, ErrNoProducts
	}
	vendors, err := e.Store.VendorsForProducts(ctx, ids)
	if err != nil {
		return Result{}, err
	}

	var custRules map[int64][]CustomerRule
	if req.CustomerID != nil {
		custRules, err = e.Store.CustomerRulesFor(ctx, *req.CustomerID, ids)
		if err != nil {
			return Result{}, err
		}
	}
	dynRules, err := e.Store.DynamicRulesFor(ctx, ids)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Success:           true,
		AppliedPromotions: map[string]string{},
	}
	malformed := 0
	for _, item := range req.Items {
		product, ok := products[item.ProductID]
		if !ok {
			log.Debug().Int64("product_id", item.ProductID).Msg("skipping unknown product")
			continue
		}
		priced, skipped := resolveItem(item, product, custRules[item.ProductID], dynRules[item.ProductID], now)
		malformed += skipped
		res.Items = append(res.Items, priced)
		res.Subtotal = round2(res.Subtotal + priced.LineTotal)
	}
	if len(res.Items) == 0 {
		return Result{}, ErrNoProducts
	}

	groups := groupByVendor(res.Items, vendors)
	res.VendorsInCart = len(groups)

	// Post-automatic-discount subtotal per vendor; coupons stack on top of it.
	discounted := make(map[int64]float64, len(groups))
	for _, group := range groups {
		discounted[group.VendorID] = group.Subtotal
		candidates, err := e.Store.DiscountsForVendor(ctx, group.VendorID)
		if err != nil {
			return Result{}, err
		}
		applied, skipped := selectVendorDiscount(group, candidates, now)
		malformed += skipped
		if applied == nil {
			continue
		}
		res.VendorDiscounts = append(res.VendorDiscounts, *applied)
		discounted[group.VendorID] = applied.SubtotalAfter
	}

	freeShippingCoupon := false
	if code := strings.TrimSpace(req.CouponCode); code != "" {
		coupon, err := e.Store.CouponByCode(ctx, code)
		if err != nil {
			return Result{}, err
		}
		outcome := applyCoupon(coupon, groups, discounted, now)
		if outcome.Err != "" {
			res.CouponError = outcome.Err
			countCouponRejection("coupon")
		} else {
			// Free-shipping coupons carry a zero amount but still show up in
			// the breakdown.
			if outcome.Applied != nil {
				res.VendorCoupons = append(res.VendorCoupons, *outcome.Applied)
			}
			res.AppliedPromotions["coupon"] = code
			freeShippingCoupon = outcome.FreeShipping
		}
	}

	var campaignApplied *AppliedDiscount
	if code := strings.TrimSpace(req.CampaignCode); code != "" {
		campaign, err := e.Store.CampaignByCode(ctx, code)
		if err != nil {
			return Result{}, err
		}
		outcome := applyCampaign(campaign, res.Subtotal, now)
		if outcome.Err != "" {
			if res.CouponError == "" {
				res.CouponError = outcome.Err
			} else {
				res.CouponError += "; " + outcome.Err
			}
			countCouponRejection("campaign")
		} else if outcome.Applied != nil && outcome.Applied.Amount > 0 {
			campaignApplied = outcome.Applied
			res.AppliedPromotions["campaign"] = code
		}
	}

	res.AppliedDiscountsList = append(res.AppliedDiscountsList, res.VendorDiscounts...)
	res.AppliedDiscountsList = append(res.AppliedDiscountsList, res.VendorCoupons...)
	if campaignApplied != nil {
		res.AppliedDiscountsList = append(res.AppliedDiscountsList, *campaignApplied)
	}
	for _, d := range res.AppliedDiscountsList {
		res.TotalDiscountAmount = round2(res.TotalDiscountAmount + d.Amount)
	}
	res.DiscountedSubtotal = round2(res.Subtotal - res.TotalDiscountAmount)
	if res.DiscountedSubtotal < 0 {
		res.DiscountedSubtotal = 0
	}

	thresholds := e.thresholds(ctx, log)
	res.FreeShippingThreshold = thresholds.FreeShippingThreshold

	if malformed > 0 {
		log.Warn().Int("count", malformed).Msg("skipped malformed pricing rules")
		if obs.PricingMalformedRulesTotal != nil {
			obs.PricingMalformedRulesTotal.Add(float64(malformed))
		}
	}

	if res.DiscountedSubtotal < thresholds.MinimumOrderAmount {
		res.Success = false
		res.MinimumOrderRequired = thresholds.MinimumOrderAmount
		e.observe("minimum_order", start)
		log.Info().
			Float64("discounted_subtotal", res.DiscountedSubtotal).
			Float64("minimum", thresholds.MinimumOrderAmount).
			Msg("cart below minimum order amount")
		return res, nil
	}

	res.IsFreeShipping = freeShippingCoupon || res.DiscountedSubtotal >= thresholds.FreeShippingThreshold
	if !res.IsFreeShipping {
		res.Shipping = round2(thresholds.FlatShippingFee)
	}

	// Shipping is part of the taxable amount.
	if zip := strings.TrimSpace(req.ZipCode); e.Tax != nil && len(zip) >= 5 {
		quote, err := e.Tax.Quote(ctx, round2(res.DiscountedSubtotal+res.Shipping), strings.TrimSpace(req.ShippingState), zip)
		if err != nil {
			// Tax failure never blocks checkout; the order path recomputes.
			log.Warn().Err(err).Str("zip", zip).Msg("tax lookup failed, defaulting to zero")
			countTaxLookup("error")
		} else {
			res.Tax = round2(quote.Amount)
			res.TaxRate = quote.Rate
			res.TaxBreakdown = quote.Breakdown
			res.TaxJurisdiction = quote.Jurisdiction
			countTaxLookup("ok")
		}
	}

	res.Total = round2(res.DiscountedSubtotal + res.Shipping + res.Tax)
	e.observe("ok", start)
	log.Info().
		Int("items", len(res.Items)).
		Int("vendors", res.VendorsInCart).
		Float64("subtotal", res.Subtotal).
		Float64("discount", res.TotalDiscountAmount).
		Float64("total", res.Total).
		Msg("cart priced")
	return res, nil
}

func (e *Engine) thresholds(ctx context.Context, log zerolog.Logger) Thresholds {
	if e.Settings == nil {
		return e.Defaults
	}
	t, err := e.Settings.Thresholds(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("settings lookup failed, using defaults")
		return e.Defaults
	}
	return t
}

func (e *Engine) now() time.Time {
	if e != nil && e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) observe(result string, start time.Time) {
	if obs.PricingCalculationsTotal != nil {
		obs.PricingCalculationsTotal.WithLabelValues(result).Inc()
	}
	if obs.PricingCalcDuration != nil {
		obs.PricingCalcDuration.Observe(obs.DurationMillis(time.Since(start)))
	}
}

func countCouponRejection(kind string) {
	if obs.PricingCodeRejectionsTotal != nil {
		obs.PricingCodeRejectionsTotal.WithLabelValues(kind).Inc()
	}
}

func countTaxLookup(result string) {
	if obs.PricingTaxLookupsTotal != nil {
		obs.PricingTaxLookupsTotal.WithLabelValues(result).Inc()
	}
}
