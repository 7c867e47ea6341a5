package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDiscountBestRuleWins(t *testing.T) {
	cat := int64(7)
	item := Item{PriceCents: 10_00, CategoryID: &cat}
	rules := []DiscountRule{
		{Scope: ScopeGlobal, Percent: 10},
		{Scope: ScopeCategory, TargetCategoryID: 7, Percent: 20},
	}

	got := ApplyDiscount(item, rules)

	assert.Equal(t, int64(8_00), got.PriceCents, "category rule at 20%% must win over global 10%%")
	require.NotNil(t, got.OriginalPriceCents)
	assert.Equal(t, int64(10_00), *got.OriginalPriceCents)
	assert.True(t, got.OnSale)
}

func TestApplyDiscountManualPromotionWins(t *testing.T) {
	cat, manual := int64(7), int64(15_00)
	item := Item{PriceCents: 12_00, OriginalPriceCents: &manual, CategoryID: &cat}
	rules := []DiscountRule{
		{Scope: ScopeGlobal, Percent: 10},
		{Scope: ScopeCategory, TargetCategoryID: 7, Percent: 20},
	}

	got := ApplyDiscount(item, rules)

	assert.Equal(t, item, got, "a manually promoted item is never rewritten")
}

func TestApplyDiscountCategoryScopeMismatch(t *testing.T) {
	cat := int64(3)
	item := Item{PriceCents: 10_00, CategoryID: &cat}
	rules := []DiscountRule{{Scope: ScopeCategory, TargetCategoryID: 7, Percent: 50}}

	got := ApplyDiscount(item, rules)
	assert.Equal(t, item, got)

	uncategorized := Item{PriceCents: 10_00}
	assert.Equal(t, uncategorized, ApplyDiscount(uncategorized, rules))
}

func TestApplyDiscountFirstRuleKeepsTie(t *testing.T) {
	cat := int64(7)
	item := Item{PriceCents: 10_00, CategoryID: &cat}
	rules := []DiscountRule{
		{ID: 1, Scope: ScopeGlobal, Percent: 15},
		{ID: 2, Scope: ScopeCategory, TargetCategoryID: 7, Percent: 15},
	}

	got := ApplyDiscount(item, rules)
	assert.Equal(t, int64(8_50), got.PriceCents)
}

func TestApplyDiscountZeroPercentIsNoop(t *testing.T) {
	item := Item{PriceCents: 10_00}
	got := ApplyDiscount(item, []DiscountRule{{Scope: ScopeGlobal, Percent: 0}})

	assert.Nil(t, got.OriginalPriceCents)
	assert.False(t, got.OnSale)
	assert.Equal(t, int64(10_00), got.PriceCents)
}

func TestDiscountedPriceRoundsHalfUp(t *testing.T) {
	tests := []struct {
		cents    int64
		percent  int
		expected int64
	}{
		{10_00, 20, 8_00},
		{9_99, 10, 8_99}, // 899.1 rounds down
		{9_95, 15, 8_46}, // 845.75 rounds up
		{1_50, 33, 1_01}, // 100.5 rounds up on the half
		{1, 50, 1},       // 0.5 rounds up
		{0, 50, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, discountedPrice(tt.cents, tt.percent),
			"%d cents at %d%%", tt.cents, tt.percent)
	}
}

func TestApplyDiscountsCountsRewrites(t *testing.T) {
	cat := int64(7)
	manual := int64(20_00)
	items := []Item{
		{PriceCents: 10_00, CategoryID: &cat},
		{PriceCents: 30_00, OriginalPriceCents: &manual},
		{PriceCents: 5_00},
	}
	rules := []DiscountRule{{Scope: ScopeCategory, TargetCategoryID: 7, Percent: 25}}

	applied := ApplyDiscounts(items, rules)

	assert.Equal(t, 1, applied)
	assert.Equal(t, int64(7_50), items[0].PriceCents)
	assert.Equal(t, int64(30_00), items[1].PriceCents)
	assert.Equal(t, int64(5_00), items[2].PriceCents)
}
