package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(store Store) *Service {
	return NewService(store, BuilderConfig{}, AllocatorConfig{
		MaxAttempts: 10,
		Locations:   testLocations(),
	}, NoBackoff{})
}

func TestServiceSearchAnnotatesPrices(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	store.rules = []DiscountRule{
		{Scope: ScopeGlobal, Percent: 10},
		{Scope: ScopeCategory, TargetCategoryID: 1, Percent: 20},
	}
	svc := newTestService(store)

	result, err := svc.Search(context.Background(), Criteria{Availability: AvailabilityAll}, 1, 10)
	require.NoError(t, err)
	require.Len(t, result.Items, 3)

	for _, item := range result.Items {
		assert.True(t, item.OnSale)
		require.NotNil(t, item.OriginalPriceCents)
		assert.Equal(t, *item.OriginalPriceCents*80/100, item.PriceCents)
	}
}

func TestServiceSearchDefaultView(t *testing.T) {
	store := newMemStore()
	seedCatalog(store)
	svc := newTestService(store)

	result, err := svc.Search(context.Background(), Criteria{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, TotalExternal, result.Total)
	assert.Equal(t, CountNone, result.Count)
	assert.Len(t, result.Items, 2, "default view shows in-stock items only")
}

func TestServiceCreateAndRelocate(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.Create(ctx, Item{Title: "Miau", Author: "Benito Pérez Galdós",
		PriceCents: 9_00, Stock: 2, Location: "Hortaleza", Active: true})
	require.NoError(t, err)
	require.NotNil(t, created.Code)
	assert.Equal(t, "00000001H", *created.Code)

	code, err := svc.Relocate(ctx, created.ID, "Getafe")
	require.NoError(t, err)
	assert.Equal(t, "00000001G", code)
}
