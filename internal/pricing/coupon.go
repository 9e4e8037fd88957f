package pricing

import (
	"fmt"
	"time"
)

// couponOutcome is what applying a coupon code produced. Rejections are
// reported through Err as a user-facing message; they never fail the
// calculation.
type couponOutcome struct {
	Applied      *AppliedDiscount
	FreeShipping bool
	Err          string
}

// applyCoupon validates a looked-up coupon against the cart and computes its
// amount. A nil coupon means the code matched nothing active. The vendor
// subtotal handed in is the post-automatic-discount figure, so stacked
// discounts are judged against what the customer actually pays.
func applyCoupon(coupon *Coupon, groups []VendorGroup, discounted map[int64]float64, now time.Time) couponOutcome {
	if coupon == nil || !activeAt(now, coupon.ValidFrom, coupon.ValidTo) {
		return couponOutcome{Err: "Invalid or expired coupon code"}
	}

	// Vendor membership is judged before the usage counter: a customer with
	// no items from the coupon's vendor gets told that, not that the coupon
	// ran out.
	var group *VendorGroup
	for i := range groups {
		if groups[i].VendorID == coupon.VendorID {
			group = &groups[i]
			break
		}
	}
	if group == nil {
		name := coupon.VendorName
		if name == "" {
			name = fmt.Sprintf("vendor %d", coupon.VendorID)
		}
		return couponOutcome{Err: fmt.Sprintf("No products from %s in your cart", name)}
	}

	if coupon.UsageLimitTotal != nil && coupon.UsageCount >= *coupon.UsageLimitTotal {
		return couponOutcome{Err: "Coupon usage limit reached"}
	}

	subtotal, ok := discounted[group.VendorID]
	if !ok {
		subtotal = group.Subtotal
	}
	if subtotal < coupon.MinimumOrderValue {
		return couponOutcome{Err: fmt.Sprintf("Minimum order of $%.2f required for this coupon", coupon.MinimumOrderValue)}
	}

	var amount float64
	freeShipping := false
	switch coupon.Type {
	case CouponPercentage:
		amount = subtotal * coupon.Value / 100
		if coupon.MaximumDiscountAmount != nil && amount > *coupon.MaximumDiscountAmount {
			amount = *coupon.MaximumDiscountAmount
		}
	case CouponFixedAmount:
		amount = coupon.Value
	case CouponFreeShipping:
		freeShipping = true
	default:
		return couponOutcome{Err: "Invalid or expired coupon code"}
	}
	if amount > subtotal {
		amount = subtotal
	}
	if amount < 0 {
		amount = 0
	}

	return couponOutcome{
		Applied: &AppliedDiscount{
			Kind:           KindVendorCoupon,
			VendorID:       group.VendorID,
			VendorName:     group.VendorName,
			ReferenceID:    coupon.ID,
			Label:          coupon.Code,
			Amount:         round2(amount),
			SubtotalBefore: round2(subtotal),
			SubtotalAfter:  round2(subtotal - amount),
		},
		FreeShipping: freeShipping,
	}
}

// applyCampaign validates a platform-wide campaign code against the whole
// cart subtotal.
func applyCampaign(campaign *Campaign, subtotal float64, now time.Time) couponOutcome {
	if campaign == nil || !activeAt(now, campaign.StartsAt, campaign.EndsAt) {
		return couponOutcome{Err: "Invalid or expired campaign code"}
	}
	if subtotal < campaign.MinimumOrderValue {
		return couponOutcome{Err: fmt.Sprintf("Minimum order of $%.2f required for this campaign", campaign.MinimumOrderValue)}
	}

	var amount float64
	switch campaign.Type {
	case CampaignPercentageOff:
		amount = subtotal * campaign.DiscountPercent / 100
		if campaign.MaximumDiscountAmount != nil && amount > *campaign.MaximumDiscountAmount {
			amount = *campaign.MaximumDiscountAmount
		}
	case CampaignFixedAmountOff:
		amount = campaign.DiscountAmount
	default:
		return couponOutcome{Err: "Invalid or expired campaign code"}
	}
	if amount > subtotal {
		amount = subtotal
	}
	if amount < 0 {
		amount = 0
	}

	return couponOutcome{
		Applied: &AppliedDiscount{
			Kind:           KindCampaign,
			ReferenceID:    campaign.ID,
			Label:          campaign.Code,
			Amount:         round2(amount),
			SubtotalBefore: round2(subtotal),
			SubtotalAfter:  round2(subtotal - amount),
		},
	}
}
