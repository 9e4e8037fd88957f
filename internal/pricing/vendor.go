package pricing

import (
	"sort"
	"time"
)

// groupByVendor partitions priced items by owning vendor. Items without a
// vendor mapping are left out entirely: they still count toward the cart
// subtotal but are invisible to vendor-level discounting.
func groupByVendor(items []PricedItem, vendorOf map[int64]Vendor) []VendorGroup {
	byVendor := make(map[int64]*VendorGroup)
	for _, item := range items {
		vendor, ok := vendorOf[item.ProductID]
		if !ok {
			continue
		}
		group, ok := byVendor[vendor.ID]
		if !ok {
			group = &VendorGroup{VendorID: vendor.ID, VendorName: vendor.Name}
			byVendor[vendor.ID] = group
		}
		group.Items = append(group.Items, item)
		group.Subtotal = round2(group.Subtotal + item.LineTotal)
		group.TotalQuantity += item.Quantity
	}

	groups := make([]VendorGroup, 0, len(byVendor))
	for _, group := range byVendor {
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].VendorID < groups[j].VendorID })
	return groups
}

// selectVendorDiscount evaluates a vendor's active automatic discounts and
// returns the single best one, or nil. Candidates must arrive in
// priority-descending order; a later candidate replaces the current best
// only when its amount is strictly greater, so ties keep the
// higher-priority discount.
func selectVendorDiscount(group VendorGroup, discounts []VendorDiscount, now time.Time) (*AppliedDiscount, int) {
	var (
		best       *VendorDiscount
		bestAmount float64
		malformed  int
	)
	for i := range discounts {
		d := discounts[i]
		if d.Malformed {
			malformed++
			continue
		}
		if !activeAt(now, d.ValidFrom, d.ValidTo) {
			continue
		}
		if group.Subtotal < d.MinimumOrderValue || group.TotalQuantity < d.MinimumQuantity {
			continue
		}
		subset := applicableItems(group.Items, d)
		if len(subset) == 0 {
			continue
		}
		amount := discountAmount(d, subset)
		if amount > bestAmount {
			best = &discounts[i]
			bestAmount = amount
		}
	}
	if best == nil || bestAmount <= 0 {
		return nil, malformed
	}
	return &AppliedDiscount{
		Kind:           KindVendorDiscount,
		VendorID:       group.VendorID,
		VendorName:     group.VendorName,
		ReferenceID:    best.ID,
		Label:          best.Name,
		Amount:         round2(bestAmount),
		AppliesTo:      best.AppliesTo,
		SubtotalBefore: group.Subtotal,
		SubtotalAfter:  round2(group.Subtotal - bestAmount),
	}, malformed
}

// applicableItems resolves the subset of a vendor group a discount's scope
// actually targets. An unrecognised scope value targets nothing.
func applicableItems(items []PricedItem, d VendorDiscount) []PricedItem {
	switch d.AppliesTo {
	case AppliesAllProducts, "":
		return items
	case AppliesSpecificProducts:
		return filterItems(items, func(it PricedItem) bool { return containsInt64(d.TargetIDs, it.ProductID) })
	case AppliesSpecificCategories:
		return filterItems(items, func(it PricedItem) bool { return containsInt64(d.TargetIDs, it.CategoryID) })
	default:
		return nil
	}
}

// discountAmount computes the raw amount on the applicable subset and clamps
// it to the configured maximum and then to the subset's subtotal: a discount
// can never exceed what it targets.
func discountAmount(d VendorDiscount, subset []PricedItem) float64 {
	var subtotal float64
	quantity := 0
	for _, it := range subset {
		subtotal += it.LineTotal
		quantity += it.Quantity
	}

	var amount float64
	switch d.Type {
	case DiscountPercentage:
		amount = subtotal * d.Value / 100
	case DiscountFixedAmount:
		amount = d.Value
	case DiscountTiered:
		if tier := matchTier(d.Tiers, quantity); tier != nil {
			if tier.DiscountPercent != nil {
				amount = subtotal * *tier.DiscountPercent / 100
			} else if tier.DiscountAmount != nil {
				amount = *tier.DiscountAmount
			}
		}
	}
	if d.MaximumDiscountAmount != nil && amount > *d.MaximumDiscountAmount {
		amount = *d.MaximumDiscountAmount
	}
	if amount > subtotal {
		amount = subtotal
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}

// matchTier finds the first bracket containing quantity. The lower bound is
// inclusive; a nil upper bound is open-ended.
func matchTier(tiers []VolumeTier, quantity int) *VolumeTier {
	for i := range tiers {
		t := tiers[i]
		if quantity < t.MinQty {
			continue
		}
		if t.MaxQty != nil && quantity > *t.MaxQty {
			continue
		}
		return &t
	}
	return nil
}

func filterItems(items []PricedItem, keep func(PricedItem) bool) []PricedItem {
	var out []PricedItem
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

func containsInt64(values []int64, v int64) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
