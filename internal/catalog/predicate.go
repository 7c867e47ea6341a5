package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// BuilderConfig tunes the predicate builder. Zero values fall back to the
// defaults below.
type BuilderConfig struct {
	// PriceCeilingCents is the domain's default upper price bound; an upper
	// bound at or above it emits no predicate.
	PriceCeilingCents int64

	// ExactMatchCap bounds the numeric exact-match sub-plan's result size.
	ExactMatchCap int

	// PublisherLookupLimit bounds the publisher name resolution.
	PublisherLookupLimit int

	// ISBNTokenMinLen is the minimum token length (exclusive) for matching a
	// search token against the ISBN field.
	ISBNTokenMinLen int
}

func (c BuilderConfig) withDefaults() BuilderConfig {
	if c.PriceCeilingCents == 0 {
		c.PriceCeilingCents = 100_000_00
	}
	if c.ExactMatchCap == 0 {
		c.ExactMatchCap = 5
	}
	if c.PublisherLookupLimit == 0 {
		c.PublisherLookupLimit = 50
	}
	if c.ISBNTokenMinLen == 0 {
		c.ISBNTokenMinLen = 3
	}
	return c
}

// Builder compiles Criteria values into query plans. Name resolution
// (category, publisher) goes through the store port; everything else is pure.
type Builder struct {
	store  Store
	config BuilderConfig
	logger zerolog.Logger
}

// NewBuilder creates a predicate builder over the given store.
func NewBuilder(store Store, config BuilderConfig) *Builder {
	return &Builder{
		store:  store,
		config: config.withDefaults(),
		logger: log.With().Str("component", "predicate_builder").Logger(),
	}
}

// Build compiles criteria into a QueryPlan. An unknown category or publisher
// name yields a match-nothing plan, not an error; only store failures during
// name resolution are returned as errors.
func (b *Builder) Build(ctx context.Context, c Criteria) (*QueryPlan, error) {
	plan := &QueryPlan{Count: DecideCountMode(c)}

	if !c.IncludeInactive {
		plan.Where = append(plan.Where, Group(Cond(FieldActive, OpEq, true)))
	}

	if search := strings.TrimSpace(c.Search); search != "" {
		b.buildSearch(plan, search)
	}

	if err := b.buildCategory(ctx, plan, c.Category); err != nil {
		return nil, err
	}
	if plan.MatchNothing {
		return plan, nil
	}

	b.buildPrice(plan, c)
	b.buildAvailability(plan, c.Availability)
	b.buildFlags(plan, c)

	if err := b.buildPublisher(ctx, plan, c.Publisher); err != nil {
		return nil, err
	}
	if plan.MatchNothing {
		return plan, nil
	}

	b.buildAdvanced(plan, c)
	plan.Sort = sortFor(c)

	return plan, nil
}

// buildSearch compiles the free-text search. Purely numeric text gets the
// exact-then-range treatment; anything else becomes AND-of-ORs token groups.
func (b *Builder) buildSearch(plan *QueryPlan, search string) {
	if isNumeric(search) {
		id, _ := strconv.ParseInt(search, 10, 64)
		plan.Exact = &ExactLookup{ID: id, Code: search, Limit: b.config.ExactMatchCap}

		// Fallback for codes starting with the typed digits. A lexicographic
		// range keeps the scan anchored to the code index, unlike a
		// leading-anchored pattern.
		plan.Where = append(plan.Where,
			Group(Cond(FieldCode, OpGte, search)),
			Group(Cond(FieldCode, OpLt, NextLexicographic(search))),
		)
		return
	}

	for _, token := range Tokenize(search) {
		fuzzy := contains(FuzzyTerm(token))
		raw := contains(token)

		group := Group(
			Cond(FieldTitle, OpPattern, fuzzy),
			Cond(FieldAuthor, OpPattern, fuzzy),
			Cond(FieldDescription, OpPattern, fuzzy),
			Cond(FieldCode, OpPattern, raw),
		)
		if len([]rune(token)) > b.config.ISBNTokenMinLen {
			group.Any = append(group.Any, Cond(FieldISBN, OpPattern, raw))
		}
		plan.Where = append(plan.Where, group)
	}
}

func (b *Builder) buildCategory(ctx context.Context, plan *QueryPlan, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "all") {
		return nil
	}

	id, err := b.store.ResolveCategoryID(ctx, name)
	if errors.Is(err, ErrNotFound) {
		// Unknown category is an explicit empty result, never a silently
		// ignored filter.
		b.logger.Debug().Str("category", name).Msg("category not found, forcing empty result")
		plan.MatchNothing = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolving category %q: %w", name, err)
	}

	plan.Where = append(plan.Where, Group(Cond(FieldCategoryID, OpEq, id)))
	return nil
}

func (b *Builder) buildPrice(plan *QueryPlan, c Criteria) {
	if c.PriceMinCents != nil && *c.PriceMinCents > 0 {
		plan.Where = append(plan.Where, Group(Cond(FieldPrice, OpGte, *c.PriceMinCents)))
	}
	if c.PriceMaxCents != nil && *c.PriceMaxCents < b.config.PriceCeilingCents {
		plan.Where = append(plan.Where, Group(Cond(FieldPrice, OpLte, *c.PriceMaxCents)))
	}
}

func (b *Builder) buildAvailability(plan *QueryPlan, a Availability) {
	switch a {
	case AvailabilityInStock:
		plan.Where = append(plan.Where, Group(Cond(FieldStock, OpGt, 0)))
	case AvailabilityOutOfStock:
		plan.Where = append(plan.Where, Group(Cond(FieldStock, OpEq, 0)))
	}
}

func (b *Builder) buildFlags(plan *QueryPlan, c Criteria) {
	if c.Featured != nil {
		plan.Where = append(plan.Where, Group(Cond(FieldFeatured, OpEq, *c.Featured)))
	}
	if c.New != nil {
		plan.Where = append(plan.Where, Group(Cond(FieldIsNew, OpEq, *c.New)))
	}
	if c.OnSale != nil {
		plan.Where = append(plan.Where, Group(Cond(FieldOnSale, OpEq, *c.OnSale)))
	}
	switch c.Cover {
	case CoverWith:
		plan.Where = append(plan.Where, Group(Cond(FieldHasCover, OpEq, true)))
	case CoverWithout:
		plan.Where = append(plan.Where, Group(Cond(FieldHasCover, OpEq, false)))
	}
}

func (b *Builder) buildPublisher(ctx context.Context, plan *QueryPlan, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	ids, err := b.store.FindPublisherIDs(ctx, contains(name), b.config.PublisherLookupLimit)
	if err != nil {
		return fmt.Errorf("resolving publisher %q: %w", name, err)
	}
	if len(ids) == 0 {
		plan.MatchNothing = true
		return nil
	}

	plan.Where = append(plan.Where, Group(Cond(FieldPublisherID, OpIn, ids)))
	return nil
}

func (b *Builder) buildAdvanced(plan *QueryPlan, c Criteria) {
	if c.Location != "" {
		plan.Where = append(plan.Where, Group(Cond(FieldLocation, OpPattern, contains(c.Location))))
	}
	if c.ISBN != "" {
		plan.Where = append(plan.Where, Group(Cond(FieldISBN, OpPattern, contains(c.ISBN))))
	}
	if c.PagesMin != nil {
		plan.Where = append(plan.Where, Group(Cond(FieldPages, OpGte, *c.PagesMin)))
	}
	if c.PagesMax != nil {
		plan.Where = append(plan.Where, Group(Cond(FieldPages, OpLte, *c.PagesMax)))
	}
	if c.YearMin != nil {
		plan.Where = append(plan.Where, Group(Cond(FieldYear, OpGte, *c.YearMin)))
	}
	if c.YearMax != nil {
		plan.Where = append(plan.Where, Group(Cond(FieldYear, OpLte, *c.YearMax)))
	}
}

// sortFor maps the criteria to a sort spec. With no explicit key: id
// descending when idle, no forced sort while a search is active so the store
// can truncate to a page without ordering the full candidate set.
func sortFor(c Criteria) *SortSpec {
	if c.Sort != nil {
		return c.Sort
	}
	if strings.TrimSpace(c.Search) != "" {
		return nil
	}
	return &SortSpec{Key: SortByID, Direction: Descending}
}

// NextLexicographic returns the smallest string strictly greater than every
// string with prefix s, by incrementing the final rune's code point. Together
// with s itself it forms the half-open range [s, NextLexicographic(s)) that
// replaces a leading-anchored pattern match.
func NextLexicographic(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[len(r)-1]++
	return string(r)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// contains wraps a term in '%' wildcards for a substring pattern match.
func contains(term string) string {
	return "%" + term + "%"
}
