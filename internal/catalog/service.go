package catalog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Service ties the filter compiler, executor, discount resolver and code
// allocator together behind the operations the HTTP layer and CLI call.
type Service struct {
	store     Store
	builder   *Builder
	executor  *Executor
	allocator *Allocator
	metrics   *MetricsRecorder
	logger    zerolog.Logger
}

// NewService wires a catalog service over the given store.
func NewService(store Store, builderCfg BuilderConfig, allocCfg AllocatorConfig, backoff BackoffStrategy) *Service {
	return &Service{
		store:     store,
		builder:   NewBuilder(store, builderCfg),
		executor:  NewExecutor(store),
		allocator: NewAllocator(store, allocCfg, backoff),
		metrics:   NewMetricsRecorder(),
		logger:    log.With().Str("component", "catalog_service").Logger(),
	}
}

// Allocator exposes the code allocator for the backfill CLI.
func (s *Service) Allocator() *Allocator {
	return s.allocator
}

// Store exposes the underlying row-store port.
func (s *Service) Store() Store {
	return s.store
}

// Search compiles and runs the criteria, then annotates the returned page
// with effective prices from the active discount rules. The result may be an
// empty page alongside a non-nil error when the store degraded mid-query.
func (s *Service) Search(ctx context.Context, c Criteria, page, pageSize int) (SearchResult, error) {
	plan, err := s.builder.Build(ctx, c)
	if err != nil {
		return SearchResult{Items: []Item{}, Count: DecideCountMode(c)},
			fmt.Errorf("compiling filter: %w", err)
	}

	result, err := s.executor.Execute(ctx, plan, page, pageSize)
	if err != nil {
		return result, err
	}

	rules, err := s.store.ActiveDiscountRules(ctx)
	if err != nil {
		// Discounting is an annotation; the page itself is still good.
		s.logger.Warn().Err(err).Msg("discount rules unavailable, returning base prices")
		return result, nil
	}
	for i := ApplyDiscounts(result.Items, rules); i > 0; i-- {
		s.metrics.RecordDiscountApplied()
	}

	return result, nil
}

// Create persists a new item and synchronously allocates its inventory code.
func (s *Service) Create(ctx context.Context, item Item) (*Item, error) {
	return s.allocator.CreateItem(ctx, &item)
}

// Relocate moves an item to a new site, recomputing its code suffix while
// preserving the numeric core when possible. Returns the committed code.
func (s *Service) Relocate(ctx context.Context, itemID int64, location string) (string, error) {
	return s.allocator.Relocate(ctx, itemID, location)
}
