package pricing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/shadecraft/storefront-api/internal/pricing"
)

var engineNow = time.Date(2025, time.June, 15, 14, 30, 0, 0, time.UTC)

type stubStore struct {
	products  map[int64]pricing.Product
	vendors   map[int64]pricing.Vendor
	custRules map[int64][]pricing.CustomerRule
	dynRules  map[int64][]pricing.DynamicRule
	discounts map[int64][]pricing.VendorDiscount
	coupons   map[string]*pricing.Coupon
	campaigns map[string]*pricing.Campaign
	err       error
}

func (s *stubStore) ProductsByIDs(_ context.Context, ids []int64) (map[int64]pricing.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := map[int64]pricing.Product{}
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *stubStore) VendorsForProducts(_ context.Context, ids []int64) (map[int64]pricing.Vendor, error) {
	out := map[int64]pricing.Vendor{}
	for _, id := range ids {
		if v, ok := s.vendors[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (s *stubStore) CustomerRulesFor(_ context.Context, _ int64, _ []int64) (map[int64][]pricing.CustomerRule, error) {
	return s.custRules, nil
}

func (s *stubStore) DynamicRulesFor(_ context.Context, _ []int64) (map[int64][]pricing.DynamicRule, error) {
	return s.dynRules, nil
}

func (s *stubStore) DiscountsForVendor(_ context.Context, vendorID int64) ([]pricing.VendorDiscount, error) {
	return s.discounts[vendorID], nil
}

func (s *stubStore) CouponByCode(_ context.Context, code string) (*pricing.Coupon, error) {
	return s.coupons[code], nil
}

func (s *stubStore) CampaignByCode(_ context.Context, code string) (*pricing.Campaign, error) {
	return s.campaigns[code], nil
}

type stubSettings struct {
	t   pricing.Thresholds
	err error
}

func (s stubSettings) Thresholds(context.Context) (pricing.Thresholds, error) { return s.t, s.err }

type stubTax struct {
	rate float64
	err  error
}

func (s stubTax) Quote(_ context.Context, amount float64, _ string, _ string) (pricing.TaxQuote, error) {
	if s.err != nil {
		return pricing.TaxQuote{}, s.err
	}
	return pricing.TaxQuote{Amount: amount * s.rate, Rate: s.rate, Jurisdiction: "TX"}, nil
}

func defaultThresholds() pricing.Thresholds {
	return pricing.Thresholds{MinimumOrderAmount: 25, FreeShippingThreshold: 100, FlatShippingFee: 9.99}
}

func newTestEngine(store *stubStore) *pricing.Engine {
	return &pricing.Engine{
		Store:    store,
		Tax:      stubTax{rate: 0.0825},
		Settings: stubSettings{t: defaultThresholds()},
		Defaults: defaultThresholds(),
		Now:      func() time.Time { return engineNow },
		Log:      zerolog.Nop(),
	}
}

func twoVendorStore() *stubStore {
	return &stubStore{
		products: map[int64]pricing.Product{
			1: {ID: 1, Name: "Desk Lamp", BasePrice: 100},
			2: {ID: 2, Name: "Cable Kit", BasePrice: 50},
		},
		vendors: map[int64]pricing.Vendor{
			1: {ID: 10, Name: "Northwind"},
			2: {ID: 20, Name: "Beacon Supply"},
		},
		discounts: map[int64][]pricing.VendorDiscount{
			10: {{ID: 1, VendorID: 10, Name: "Summer sale", Type: pricing.DiscountPercentage, Value: 10}},
		},
		coupons: map[string]*pricing.Coupon{
			"SAVE10": {ID: 5, Code: "SAVE10", VendorID: 20, VendorName: "Beacon Supply", Type: pricing.CouponPercentage, Value: 10},
		},
	}
}

func TestCalculateFullPipeline(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(twoVendorStore())

	req := pricing.Request{
		Items: []pricing.LineItemInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
		CouponCode: "SAVE10",
		ZipCode:    "78701",
	}

	res, err := engine.Calculate(context.Background(), req)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Items, 2)
	require.Equal(t, 250.0, res.Subtotal)
	require.Equal(t, 2, res.VendorsInCart)

	require.Len(t, res.VendorDiscounts, 1)
	require.Equal(t, 20.0, res.VendorDiscounts[0].Amount)
	require.Len(t, res.VendorCoupons, 1)
	require.Equal(t, 5.0, res.VendorCoupons[0].Amount)
	require.Len(t, res.AppliedDiscountsList, 2)

	require.Equal(t, 25.0, res.TotalDiscountAmount)
	require.Equal(t, 225.0, res.DiscountedSubtotal)
	require.True(t, res.IsFreeShipping, "over the free shipping threshold")
	require.Equal(t, 0.0, res.Shipping)
	require.Equal(t, 18.56, res.Tax)
	require.Equal(t, 0.0825, res.TaxRate)
	require.Equal(t, "TX", res.TaxJurisdiction)
	require.Equal(t, 243.56, res.Total)
	require.Equal(t, "SAVE10", res.AppliedPromotions["coupon"])
	require.Empty(t, res.CouponError)
}

func TestCalculateIsRepeatable(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(twoVendorStore())
	req := pricing.Request{Items: []pricing.LineItemInput{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}}, CouponCode: "SAVE10", ZipCode: "78701"}

	first, err := engine.Calculate(context.Background(), req)
	require.NoError(t, err)
	second, err := engine.Calculate(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first, second, "pricing must not depend on calculation count")
}

func TestCalculateFlatShippingBelowThreshold(t *testing.T) {
	t.Parallel()
	store := twoVendorStore()
	store.discounts = nil
	engine := newTestEngine(store)

	res, err := engine.Calculate(context.Background(), pricing.Request{Items: []pricing.LineItemInput{{ProductID: 2, Quantity: 1}}})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 50.0, res.DiscountedSubtotal)
	require.False(t, res.IsFreeShipping)
	require.Equal(t, 9.99, res.Shipping)
	require.Equal(t, 0.0, res.Tax, "no zip, no tax lookup")
	require.Equal(t, 59.99, res.Total)
	require.Equal(t, 100.0, res.FreeShippingThreshold)
}

func TestCalculateTaxesShippingToo(t *testing.T) {
	t.Parallel()
	store := twoVendorStore()
	store.discounts = nil
	engine := newTestEngine(store)

	res, err := engine.Calculate(context.Background(), pricing.Request{
		Items:   []pricing.LineItemInput{{ProductID: 2, Quantity: 1}},
		ZipCode: "78701",
	})
	require.NoError(t, err)
	require.Equal(t, 9.99, res.Shipping)
	// 8.25% of subtotal plus shipping (59.99), not of the subtotal alone.
	require.Equal(t, 4.95, res.Tax)
	require.Equal(t, 64.94, res.Total)
}

func TestCalculateMinimumOrderBlocked(t *testing.T) {
	t.Parallel()
	store := &stubStore{
		products: map[int64]pricing.Product{1: {ID: 1, Name: "Sticker", BasePrice: 4}},
		vendors:  map[int64]pricing.Vendor{1: {ID: 10, Name: "Northwind"}},
	}
	engine := newTestEngine(store)

	res, err := engine.Calculate(context.Background(), pricing.Request{Items: []pricing.LineItemInput{{ProductID: 1, Quantity: 2}}, ZipCode: "78701"})
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, 25.0, res.MinimumOrderRequired)
	require.Equal(t, 8.0, res.DiscountedSubtotal)
	require.Len(t, res.Items, 1, "breakdown still returned so the UI can explain")
	require.Zero(t, res.Shipping)
	require.Zero(t, res.Tax)
	require.Zero(t, res.Total)
}

func TestCalculateCouponErrorIsNonFatal(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(twoVendorStore())

	res, err := engine.Calculate(context.Background(), pricing.Request{
		Items:      []pricing.LineItemInput{{ProductID: 1, Quantity: 2}},
		CouponCode: "NOPE",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, "Invalid or expired coupon code", res.CouponError)
	require.Empty(t, res.VendorCoupons)
	require.NotContains(t, res.AppliedPromotions, "coupon")
}

func TestCalculateFreeShippingCoupon(t *testing.T) {
	t.Parallel()
	store := twoVendorStore()
	store.discounts = nil
	store.coupons["SHIPFREE"] = &pricing.Coupon{ID: 9, Code: "SHIPFREE", VendorID: 20, VendorName: "Beacon Supply", Type: pricing.CouponFreeShipping}
	engine := newTestEngine(store)

	res, err := engine.Calculate(context.Background(), pricing.Request{
		Items:      []pricing.LineItemInput{{ProductID: 2, Quantity: 1}},
		CouponCode: "SHIPFREE",
	})
	require.NoError(t, err)
	require.True(t, res.IsFreeShipping, "free shipping coupon applies below the threshold")
	require.Equal(t, 0.0, res.Shipping)
	require.Len(t, res.VendorCoupons, 1, "the coupon shows in the breakdown even at zero amount")
	require.Equal(t, 0.0, res.VendorCoupons[0].Amount)
	require.Equal(t, "SHIPFREE", res.VendorCoupons[0].Label)
	require.Equal(t, 50.0, res.DiscountedSubtotal)
	require.Equal(t, "SHIPFREE", res.AppliedPromotions["coupon"])
}

func TestCalculateCampaignStacks(t *testing.T) {
	t.Parallel()
	store := twoVendorStore()
	store.campaigns = map[string]*pricing.Campaign{
		"SUMMER15": {ID: 7, Code: "SUMMER15", Type: pricing.CampaignPercentageOff, DiscountPercent: 15},
	}
	engine := newTestEngine(store)

	res, err := engine.Calculate(context.Background(), pricing.Request{
		Items:        []pricing.LineItemInput{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}},
		CampaignCode: "SUMMER15",
	})
	require.NoError(t, err)
	// Vendor discount 20 plus campaign 15% of the 250 subtotal.
	require.Equal(t, 57.5, res.TotalDiscountAmount)
	require.Equal(t, 192.5, res.DiscountedSubtotal)
	require.Equal(t, "SUMMER15", res.AppliedPromotions["campaign"])
	require.Len(t, res.AppliedDiscountsList, 2)
}

func TestCalculateTaxFailureDegradesToZero(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(twoVendorStore())
	engine.Tax = stubTax{err: errors.New("gateway down")}

	res, err := engine.Calculate(context.Background(), pricing.Request{
		Items:   []pricing.LineItemInput{{ProductID: 1, Quantity: 2}},
		ZipCode: "78701",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Zero(t, res.Tax)
	require.Zero(t, res.TaxRate)
	require.Equal(t, res.DiscountedSubtotal, res.Total, "free shipping and zero tax")
}

func TestCalculateSettingsFailureUsesDefaults(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(twoVendorStore())
	engine.Settings = stubSettings{err: errors.New("settings unavailable")}

	res, err := engine.Calculate(context.Background(), pricing.Request{Items: []pricing.LineItemInput{{ProductID: 2, Quantity: 1}}})
	require.NoError(t, err)
	require.Equal(t, 9.99, res.Shipping)
	require.Equal(t, 100.0, res.FreeShippingThreshold)
}

func TestCalculateInputErrors(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(twoVendorStore())

	_, err := engine.Calculate(context.Background(), pricing.Request{})
	require.ErrorIs(t, err, pricing.ErrNoItems)

	_, err = engine.Calculate(context.Background(), pricing.Request{Items: []pricing.LineItemInput{{ProductID: 999, Quantity: 1}}})
	require.ErrorIs(t, err, pricing.ErrNoProducts)
}

func TestCalculateUnknownProductSkipped(t *testing.T) {
	t.Parallel()
	engine := newTestEngine(twoVendorStore())

	res, err := engine.Calculate(context.Background(), pricing.Request{
		Items: []pricing.LineItemInput{{ProductID: 2, Quantity: 1}, {ProductID: 999, Quantity: 3}},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.Equal(t, 50.0, res.Subtotal)
}
