package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNextLexicographic(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"009", "00:"}, // ':' immediately follows '9'
		{"0000ABCD", "0000ABCE"},
		{"42", "43"},
		{"a", "b"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NextLexicographic(tt.input))
		})
	}
}

// The half-open range [n, NextLexicographic(n)) must accept exactly the
// strings with prefix n, for strings of any length.
func TestNextLexicographicRangeMatchesPrefix(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		prefix := rapid.StringMatching(`[0-9]{1,8}`).Draw(t, "prefix")
		tail := rapid.StringMatching(`[0-9A-Z]{0,6}`).Draw(t, "tail")
		candidate := rapid.StringMatching(`[0-9A-Z]{1,10}`).Draw(t, "candidate")

		high := NextLexicographic(prefix)

		withPrefix := prefix + tail
		assert.True(t, withPrefix >= prefix && withPrefix < high,
			"string %q with prefix %q must fall in [%q, %q)", withPrefix, prefix, prefix, high)

		inRange := candidate >= prefix && candidate < high
		assert.Equal(t, strings.HasPrefix(candidate, prefix), inRange,
			"range membership of %q must equal prefix match against %q", candidate, prefix)
	})
}

func newTestBuilder(store Store) *Builder {
	return NewBuilder(store, BuilderConfig{PriceCeilingCents: 20_000_00})
}

func TestBuildNumericSearch(t *testing.T) {
	b := newTestBuilder(newMemStore())

	plan, err := b.Build(context.Background(), Criteria{Search: "42", Availability: AvailabilityAll})
	require.NoError(t, err)

	require.NotNil(t, plan.Exact)
	assert.Equal(t, int64(42), plan.Exact.ID)
	assert.Equal(t, "42", plan.Exact.Code)

	// The fallback is a lexicographic range on the code, not a pattern.
	require.Len(t, plan.Where, 3) // active + range low + range high
	low := plan.Where[1].Any[0]
	high := plan.Where[2].Any[0]
	assert.Equal(t, Cond(FieldCode, OpGte, "42"), low)
	assert.Equal(t, Cond(FieldCode, OpLt, "43"), high)
}

func TestBuildTokenSearchAndOfOrs(t *testing.T) {
	b := newTestBuilder(newMemStore())

	plan, err := b.Build(context.Background(), Criteria{Search: "Quijote Cervantes", Availability: AvailabilityAll})
	require.NoError(t, err)
	assert.Nil(t, plan.Exact)

	// One OR-group per token, each spanning title/author/description with the
	// fuzzy form plus code and ISBN with the raw token.
	var groups []PredicateGroup
	for _, g := range plan.Where {
		if len(g.Any) > 1 {
			groups = append(groups, g)
		}
	}
	require.Len(t, groups, 2)

	first := groups[0]
	require.Len(t, first.Any, 5)
	assert.Equal(t, Cond(FieldTitle, OpPattern, "%Q__j_t_%"), first.Any[0])
	assert.Equal(t, Cond(FieldAuthor, OpPattern, "%Q__j_t_%"), first.Any[1])
	assert.Equal(t, Cond(FieldCode, OpPattern, "%Quijote%"), first.Any[3])
	assert.Equal(t, Cond(FieldISBN, OpPattern, "%Quijote%"), first.Any[4])
}

func TestBuildShortTokenSkipsISBN(t *testing.T) {
	b := newTestBuilder(newMemStore())

	plan, err := b.Build(context.Background(), Criteria{Search: "sol azul", Availability: AvailabilityAll})
	require.NoError(t, err)

	for _, g := range plan.Where {
		if len(g.Any) > 1 && g.Any[0].Value == "%sol%" {
			assert.Len(t, g.Any, 4, "three-rune token must not probe the ISBN field")
		}
	}
}

func TestBuildCategoryNotFoundForcesEmpty(t *testing.T) {
	store := newMemStore()
	store.addCategory(7, "Novela")
	b := newTestBuilder(store)

	plan, err := b.Build(context.Background(), Criteria{Category: "Poesía"})
	require.NoError(t, err)
	assert.True(t, plan.MatchNothing)

	plan, err = b.Build(context.Background(), Criteria{Category: "Novela"})
	require.NoError(t, err)
	assert.False(t, plan.MatchNothing)
	assert.Contains(t, plan.Where, Group(Cond(FieldCategoryID, OpEq, int64(7))))
}

func TestBuildPriceBounds(t *testing.T) {
	b := newTestBuilder(newMemStore())
	ctx := context.Background()

	zero, min, max := int64(0), int64(500), int64(5_000)
	ceiling := int64(20_000_00)

	plan, err := b.Build(ctx, Criteria{PriceMinCents: &zero, PriceMaxCents: &ceiling, Availability: AvailabilityAll})
	require.NoError(t, err)
	for _, g := range plan.Where {
		assert.NotEqual(t, FieldPrice, g.Any[0].Field, "full-range bounds must emit no predicate")
	}

	plan, err = b.Build(ctx, Criteria{PriceMinCents: &min, PriceMaxCents: &max, Availability: AvailabilityAll})
	require.NoError(t, err)
	assert.Contains(t, plan.Where, Group(Cond(FieldPrice, OpGte, min)))
	assert.Contains(t, plan.Where, Group(Cond(FieldPrice, OpLte, max)))
}

func TestBuildAvailability(t *testing.T) {
	b := newTestBuilder(newMemStore())
	ctx := context.Background()

	plan, _ := b.Build(ctx, Criteria{Availability: AvailabilityInStock})
	assert.Contains(t, plan.Where, Group(Cond(FieldStock, OpGt, 0)))

	plan, _ = b.Build(ctx, Criteria{Availability: AvailabilityOutOfStock})
	assert.Contains(t, plan.Where, Group(Cond(FieldStock, OpEq, 0)))

	plan, _ = b.Build(ctx, Criteria{Availability: AvailabilityAll})
	for _, g := range plan.Where {
		assert.NotEqual(t, FieldStock, g.Any[0].Field)
	}
}

func TestBuildPublisherResolution(t *testing.T) {
	store := newMemStore()
	store.addPublisher(3, "Espasa-Calpe")
	store.addPublisher(9, "Espasa Juvenil")
	b := newTestBuilder(store)
	ctx := context.Background()

	plan, err := b.Build(ctx, Criteria{Publisher: "Espasa", Availability: AvailabilityAll})
	require.NoError(t, err)
	assert.Contains(t, plan.Where, Group(Cond(FieldPublisherID, OpIn, []int64{3, 9})))

	plan, err = b.Build(ctx, Criteria{Publisher: "Desconocida", Availability: AvailabilityAll})
	require.NoError(t, err)
	assert.True(t, plan.MatchNothing, "unknown publisher must force an empty result")
}

func TestBuildSortDefaults(t *testing.T) {
	b := newTestBuilder(newMemStore())
	ctx := context.Background()

	plan, _ := b.Build(ctx, Criteria{})
	require.NotNil(t, plan.Sort)
	assert.Equal(t, SortByID, plan.Sort.Key)
	assert.Equal(t, Descending, plan.Sort.Direction)

	// An active search leaves the order unforced so the store can truncate
	// without sorting the whole candidate set.
	plan, _ = b.Build(ctx, Criteria{Search: "galdos"})
	assert.Nil(t, plan.Sort)

	explicit := &SortSpec{Key: SortByPrice, Direction: Ascending}
	plan, _ = b.Build(ctx, Criteria{Search: "galdos", Sort: explicit})
	assert.Equal(t, explicit, plan.Sort)
}
