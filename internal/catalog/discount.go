package catalog

// ApplyDiscount computes an item's effective price under the given rules.
//
// A manually set original price marks a manual promotion, which always takes
// precedence over automatic rules: the item is returned unchanged. Otherwise
// the best matching rule wins: global rules apply unconditionally, category
// rules only to the item's category, and among matches the largest percent is
// taken with the first-seen rule keeping a tie. A best percent of zero leaves
// the item untouched.
func ApplyDiscount(item Item, rules []DiscountRule) Item {
	if item.OriginalPriceCents != nil {
		return item
	}

	best := 0
	for _, rule := range rules {
		if rule.Percent <= best {
			continue
		}
		switch rule.Scope {
		case ScopeGlobal:
			best = rule.Percent
		case ScopeCategory:
			if item.CategoryID != nil && *item.CategoryID == rule.TargetCategoryID {
				best = rule.Percent
			}
		}
	}
	if best == 0 {
		return item
	}

	original := item.PriceCents
	item.OriginalPriceCents = &original
	item.PriceCents = discountedPrice(original, best)
	item.OnSale = true
	return item
}

// ApplyDiscounts annotates a page of items in place and reports how many
// prices were rewritten.
func ApplyDiscounts(items []Item, rules []DiscountRule) int {
	applied := 0
	for i := range items {
		annotated := ApplyDiscount(items[i], rules)
		if annotated.OriginalPriceCents != nil && items[i].OriginalPriceCents == nil {
			applied++
		}
		items[i] = annotated
	}
	return applied
}

// discountedPrice applies a percentage discount with half-up rounding to the
// cent.
func discountedPrice(cents int64, percent int) int64 {
	n := cents * int64(100-percent)
	q := n / 100
	if n%100*2 >= 100 {
		q++
	}
	return q
}
