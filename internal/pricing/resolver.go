package pricing

import (
	"fmt"
	"sort"
	"time"
)

// scopeOrder drives customer-rule selection: a product-scoped rule always
// beats a category-scoped one, which beats a brand-scoped one.
var scopeOrder = []string{ScopeProduct, ScopeCategory, ScopeBrand}

// resolveItem computes one line's effective unit price: caller override (or
// base price) → best customer rule → dynamic rules in ascending priority.
// It returns the priced line plus the number of malformed dynamic rules it
// had to skip.
func resolveItem(item LineItemInput, p Product, custRules []CustomerRule, dynRules []DynamicRule, now time.Time) (PricedItem, int) {
	original := p.BasePrice
	if item.BasePrice != nil {
		original = *item.BasePrice
	}
	final := original

	out := PricedItem{
		ProductID:         p.ID,
		Name:              p.Name,
		Quantity:          item.Quantity,
		OriginalUnitPrice: round2(original),
		CategoryID:        p.CategoryID,
		BrandID:           p.BrandID,
	}

	if rule := bestCustomerRule(custRules, item.Quantity, now); rule != nil {
		final = applyCustomerRule(*rule, original)
		out.Adjustments = append(out.Adjustments, Adjustment{
			Source: "customer_pricing",
			Label:  fmt.Sprintf("Customer-specific %s", rule.Type),
			Amount: round2(original - final),
		})
	}

	sorted := make([]DynamicRule, len(dynRules))
	copy(sorted, dynRules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })

	skipped := 0
	for _, rule := range sorted {
		if rule.Malformed {
			skipped++
			continue
		}
		if !ruleConditionMet(rule, now) {
			continue
		}
		prev := final
		final = applyDynamicRule(rule, final)
		if final == prev {
			continue
		}
		out.Adjustments = append(out.Adjustments, Adjustment{
			Source: "dynamic_pricing",
			Label:  fmt.Sprintf("%s pricing rule", rule.RuleType),
			Amount: round2(prev - final),
		})
	}

	if final < 0 {
		final = 0
	}
	out.FinalUnitPrice = round2(final)
	out.LineTotal = round2(out.FinalUnitPrice * float64(item.Quantity))
	return out, skipped
}

// bestCustomerRule picks the single applicable rule, preferring the most
// specific scope. Within a scope the first eligible rule wins. Rules not yet
// approved never apply.
func bestCustomerRule(rules []CustomerRule, quantity int, now time.Time) *CustomerRule {
	for _, scope := range scopeOrder {
		for i := range rules {
			r := rules[i]
			if r.Scope != scope {
				continue
			}
			if r.ApprovalStatus != StatusApproved {
				continue
			}
			if quantity < r.MinimumQuantity {
				continue
			}
			if r.ValidUntil != nil && now.After(*r.ValidUntil) {
				continue
			}
			return &r
		}
	}
	return nil
}

func applyCustomerRule(r CustomerRule, original float64) float64 {
	switch r.Type {
	case PricingFixedPrice:
		return r.Value
	case PricingDiscountPercent:
		return original * (1 - r.Value/100)
	case PricingDiscountAmount:
		v := original - r.Value
		if v < 0 {
			return 0
		}
		return v
	case PricingMarkupPercent:
		return original * (1 + r.Value/100)
	default:
		return original
	}
}

// ruleConditionMet evaluates a dynamic rule's predicate against the server
// clock. time_based matches the current hour, seasonal the current month;
// everything else applies unconditionally inside its active window.
func ruleConditionMet(r DynamicRule, now time.Time) bool {
	if !activeAt(now, r.ValidFrom, r.ValidTo) {
		return false
	}
	switch r.RuleType {
	case RuleTimeBased:
		return containsInt(r.Conditions.Hours, now.Hour())
	case RuleSeasonal:
		return containsInt(r.Conditions.Months, int(now.Month()))
	default:
		return true
	}
}

func applyDynamicRule(r DynamicRule, price float64) float64 {
	switch r.AdjustmentType {
	case AdjustPercentage:
		price = price * (1 + r.AdjustmentValue/100)
	case AdjustFixedAmount:
		price = price + r.AdjustmentValue
	case AdjustMultiplyBy:
		price = price * r.AdjustmentValue
	default:
		return price
	}
	if r.MinPrice != nil && price < *r.MinPrice {
		price = *r.MinPrice
	}
	if r.MaxPrice != nil && price > *r.MaxPrice {
		price = *r.MaxPrice
	}
	return price
}

func containsInt(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
