package export

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FjTechSols/LibreriaPerezGaldos-sub001/internal/catalog"
)

// sliceStore serves a fixed item slice. Only the read paths the exporter
// touches are implemented.
type sliceStore struct {
	items []catalog.Item
	rules []catalog.DiscountRule
}

func (s *sliceStore) Select(_ context.Context, sel catalog.Selection) ([]catalog.Item, error) {
	if sel.Offset >= len(s.items) {
		return nil, nil
	}
	end := sel.Offset + sel.Limit
	if sel.Limit <= 0 || end > len(s.items) {
		end = len(s.items)
	}
	page := make([]catalog.Item, end-sel.Offset)
	copy(page, s.items[sel.Offset:end])
	return page, nil
}

func (s *sliceStore) CountExact(context.Context, []catalog.PredicateGroup) (int, error) {
	return len(s.items), nil
}

func (s *sliceStore) CountEstimate(context.Context, []catalog.PredicateGroup) (int, error) {
	return len(s.items), nil
}

func (s *sliceStore) ActiveDiscountRules(context.Context) ([]catalog.DiscountRule, error) {
	return s.rules, nil
}

func (s *sliceStore) BatchResolveNames(context.Context, catalog.NameKind, []int64) (map[int64]string, error) {
	return map[int64]string{}, nil
}

func (s *sliceStore) LookupByID(context.Context, int64) (*catalog.Item, error) {
	return nil, catalog.ErrNotFound
}

func (s *sliceStore) Insert(context.Context, *catalog.Item) (int64, error) {
	return 0, catalog.ErrUnavailable
}

func (s *sliceStore) UpdateCode(context.Context, int64, *string) error { return catalog.ErrUnavailable }

func (s *sliceStore) UpdateLocation(context.Context, int64, string) error {
	return catalog.ErrUnavailable
}

func (s *sliceStore) Delete(context.Context, int64) error { return catalog.ErrUnavailable }

func (s *sliceStore) ResolveCategoryID(context.Context, string) (int64, error) {
	return 0, catalog.ErrNotFound
}

func (s *sliceStore) FindPublisherIDs(context.Context, string, int) ([]int64, error) {
	return nil, nil
}

func newTestService(store catalog.Store) *catalog.Service {
	return catalog.NewService(store, catalog.BuilderConfig{}, catalog.AllocatorConfig{}, catalog.NoBackoff{})
}

func TestWriteXLSX(t *testing.T) {
	code := "00000001H"
	year := 1605
	store := &sliceStore{
		items: []catalog.Item{
			{ID: 1, Code: &code, Title: "El Quijote", Author: "Cervantes",
				PriceCents: 25_50, Stock: 3, Location: "Hortaleza", Year: &year, Active: true},
			{ID: 2, Title: "Fortunata y Jacinta", Author: "Pérez Galdós",
				PriceCents: 18_00, Stock: 1, Location: "Getafe", Active: true},
		},
	}

	var buf bytes.Buffer
	exporter := NewExporter(newTestService(store), 100)
	n, err := exporter.WriteXLSX(context.Background(), catalog.Criteria{Availability: catalog.AvailabilityAll}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Título", rows[0][1])
	assert.Equal(t, "00000001H", rows[1][0])
	assert.Equal(t, "El Quijote", rows[1][1])
	assert.Equal(t, "25.5", rows[1][6])
	assert.Equal(t, "Fortunata y Jacinta", rows[2][1])
}

func TestWriteXLSXPaginates(t *testing.T) {
	store := &sliceStore{}
	for i := 1; i <= 7; i++ {
		store.items = append(store.items, catalog.Item{
			ID:         int64(i),
			Title:      fmt.Sprintf("Libro %d", i),
			PriceCents: int64(i) * 1_00,
			Stock:      1,
			Active:     true,
		})
	}

	var buf bytes.Buffer
	exporter := NewExporter(newTestService(store), 3)
	n, err := exporter.WriteXLSX(context.Background(), catalog.Criteria{Availability: catalog.AvailabilityAll}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 8)
}

func TestWriteXLSXAppliesDiscounts(t *testing.T) {
	store := &sliceStore{
		items: []catalog.Item{
			{ID: 1, Title: "Libro", PriceCents: 10_00, Stock: 1, Active: true},
		},
		rules: []catalog.DiscountRule{{Scope: catalog.ScopeGlobal, Percent: 20, Active: true}},
	}

	var buf bytes.Buffer
	exporter := NewExporter(newTestService(store), 100)
	_, err := exporter.WriteXLSX(context.Background(), catalog.Criteria{Availability: catalog.AvailabilityAll}, &buf)
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "8", rows[1][6])
	assert.Equal(t, "10", rows[1][7])
}
