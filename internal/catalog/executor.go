package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Executor runs compiled query plans against the store and resolves display
// names for the returned page.
type Executor struct {
	store   Store
	metrics *MetricsRecorder
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewExecutor creates a query executor over the given store.
func NewExecutor(store Store) *Executor {
	return &Executor{
		store:   store,
		metrics: NewMetricsRecorder(),
		logger:  log.With().Str("component", "query_executor").Logger(),
		tracer:  otel.Tracer("catalog/executor"),
	}
}

// Execute runs the plan for the given page (1-based) and page size.
//
// A store failure degrades to an empty page with a zero total and the error
// alongside it; callers must check the error before treating an empty page as
// "no matches".
func (e *Executor) Execute(ctx context.Context, plan *QueryPlan, page, pageSize int) (SearchResult, error) {
	ctx, span := e.tracer.Start(ctx, "catalog.execute",
		trace.WithAttributes(attribute.String("count_mode", plan.Count.String())))
	defer span.End()

	start := time.Now()
	defer func() {
		e.metrics.RecordQueryDuration(plan.Count, time.Since(start))
	}()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	if plan.MatchNothing {
		return SearchResult{Items: []Item{}, Total: 0, Count: plan.Count}, nil
	}

	// Numeric exact sub-plan short-circuits the broader predicate set.
	if plan.Exact != nil {
		items, err := e.runExact(ctx, plan.Exact)
		if err != nil {
			e.metrics.RecordQueryError()
			return SearchResult{Items: []Item{}, Total: 0, Count: plan.Count},
				fmt.Errorf("exact lookup: %w", err)
		}
		if len(items) > 0 {
			e.resolveNames(ctx, items)
			return SearchResult{Items: items, Total: len(items), Count: plan.Count}, nil
		}
	}

	sel := Selection{
		Where:  plan.Where,
		Sort:   plan.Sort,
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	}
	items, err := e.store.Select(ctx, sel)
	if err != nil {
		e.metrics.RecordQueryError()
		e.logger.Error().Err(err).Int("page", page).Msg("catalog select failed")
		return SearchResult{Items: []Item{}, Total: 0, Count: plan.Count},
			fmt.Errorf("selecting catalog page: %w", err)
	}

	total, err := e.countFor(ctx, plan)
	if err != nil {
		e.metrics.RecordQueryError()
		return SearchResult{Items: []Item{}, Total: 0, Count: plan.Count},
			fmt.Errorf("counting results: %w", err)
	}

	e.resolveNames(ctx, items)
	return SearchResult{Items: items, Total: total, Count: plan.Count}, nil
}

// runExact tries an id hit first, then the code verbatim.
func (e *Executor) runExact(ctx context.Context, lookup *ExactLookup) ([]Item, error) {
	if lookup.ID > 0 {
		item, err := e.store.LookupByID(ctx, lookup.ID)
		switch {
		case err == nil:
			return []Item{*item}, nil
		case !errors.Is(err, ErrNotFound):
			return nil, err
		}
	}

	limit := lookup.Limit
	if limit <= 0 {
		limit = 1
	}
	return e.store.Select(ctx, Selection{
		Where: []PredicateGroup{Group(Cond(FieldCode, OpEq, lookup.Code))},
		Limit: limit,
	})
}

func (e *Executor) countFor(ctx context.Context, plan *QueryPlan) (int, error) {
	switch plan.Count {
	case CountNone:
		return TotalExternal, nil
	case CountExact:
		return e.store.CountExact(ctx, plan.Where)
	default:
		return e.store.CountEstimate(ctx, plan.Where)
	}
}

// resolveNames performs one batched lookup per reference kind over the
// distinct ids of the returned page, bounding join cost to page size. Name
// resolution is display-only; a failure is logged and the page goes out with
// bare references.
func (e *Executor) resolveNames(ctx context.Context, items []Item) {
	var pubIDs, catIDs []int64
	pubSeen := make(map[int64]struct{})
	catSeen := make(map[int64]struct{})
	for i := range items {
		if id := items[i].PublisherID; id != nil {
			if _, ok := pubSeen[*id]; !ok {
				pubSeen[*id] = struct{}{}
				pubIDs = append(pubIDs, *id)
			}
		}
		if id := items[i].CategoryID; id != nil {
			if _, ok := catSeen[*id]; !ok {
				catSeen[*id] = struct{}{}
				catIDs = append(catIDs, *id)
			}
		}
	}

	pubNames := e.lookupNames(ctx, NamePublisher, pubIDs)
	catNames := e.lookupNames(ctx, NameCategory, catIDs)

	for i := range items {
		if id := items[i].PublisherID; id != nil {
			items[i].PublisherName = pubNames[*id]
		}
		if id := items[i].CategoryID; id != nil {
			items[i].CategoryName = catNames[*id]
		}
	}
}

func (e *Executor) lookupNames(ctx context.Context, kind NameKind, ids []int64) map[int64]string {
	if len(ids) == 0 {
		return nil
	}
	names, err := e.store.BatchResolveNames(ctx, kind, ids)
	if err != nil {
		e.logger.Warn().Err(err).Int("ids", len(ids)).Msg("name resolution failed")
		return nil
	}
	return names
}
