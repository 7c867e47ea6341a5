package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ErrAllocationExhausted is returned when every assign attempt collided. For
// a newly created item the record has already been rolled back by the time
// the caller sees this.
var ErrAllocationExhausted = errors.New("catalog: code allocation attempts exhausted")

// codeDigits is the width of a code's zero-padded numeric core.
const codeDigits = 8

// codeParts splits any well-formed code into numeric core and suffix.
var codeParts = regexp.MustCompile(`^0*(\d+)(\D*)$`)

// AllocPhase names the allocator's state machine phases, for logs and traces.
type AllocPhase int

const (
	PhaseScanning AllocPhase = iota
	PhaseComputing
	PhaseAssigning
	PhaseRetrying
	PhaseCommitted
	PhaseFailed
)

func (p AllocPhase) String() string {
	switch p {
	case PhaseScanning:
		return "scanning"
	case PhaseComputing:
		return "computing"
	case PhaseAssigning:
		return "assigning"
	case PhaseRetrying:
		return "retrying"
	case PhaseCommitted:
		return "committed"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// LocationRule is the per-site allocation configuration: the code suffix and
// the sanity ceiling above which a scanned numeric core is treated as
// corrupted legacy data and ignored. Ceilings are operational data-quality
// knobs, not domain constants, so they live in configuration.
type LocationRule struct {
	Suffix  string
	Ceiling int64
}

// AllocatorConfig tunes the code allocator. Zero values fall back to the
// defaults below. Locations is keyed by NormalizeLocation output.
type AllocatorConfig struct {
	MaxAttempts      int
	RecentSampleSize int
	RangeScanLimit   int
	DefaultCeiling   int64
	Locations        map[string]LocationRule
}

func (c AllocatorConfig) withDefaults() AllocatorConfig {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 30
	}
	if c.RecentSampleSize == 0 {
		c.RecentSampleSize = 500
	}
	if c.RangeScanLimit == 0 {
		c.RangeScanLimit = 2000
	}
	if c.DefaultCeiling == 0 {
		c.DefaultCeiling = 10_000_000
	}
	return c
}

// Allocator assigns unique, location-scoped sequential inventory codes.
// Correctness under concurrent allocation relies on the store's uniqueness
// constraint plus the bounded retry loop, not on any lock.
type Allocator struct {
	store   Store
	config  AllocatorConfig
	backoff BackoffStrategy
	metrics *MetricsRecorder
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewAllocator creates a code allocator. A nil backoff retries immediately.
func NewAllocator(store Store, config AllocatorConfig, backoff BackoffStrategy) *Allocator {
	if backoff == nil {
		backoff = NoBackoff{}
	}
	return &Allocator{
		store:   store,
		config:  config.withDefaults(),
		backoff: backoff,
		metrics: NewMetricsRecorder(),
		logger:  log.With().Str("component", "code_allocator").Logger(),
		tracer:  otel.Tracer("catalog/allocator"),
	}
}

// Rule returns the allocation rule for a location, falling back to the
// default (empty suffix) rule for unconfigured sites.
func (a *Allocator) Rule(location string) LocationRule {
	if rule, ok := a.config.Locations[NormalizeLocation(location)]; ok {
		if rule.Ceiling == 0 {
			rule.Ceiling = a.config.DefaultCeiling
		}
		return rule
	}
	return LocationRule{Suffix: "", Ceiling: a.config.DefaultCeiling}
}

// CreateItem inserts the item and allocates its code. The item is not
// considered created until the code commits: if every attempt collides, the
// fresh record is deleted again and the error is surfaced, because an item
// without a code is worse than no item at all for downstream inventory.
func (a *Allocator) CreateItem(ctx context.Context, item *Item) (*Item, error) {
	ctx, span := a.tracer.Start(ctx, "catalog.create_item",
		trace.WithAttributes(attribute.String("location", item.Location)))
	defer span.End()

	item.Code = nil
	id, err := a.store.Insert(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("inserting item: %w", err)
	}
	item.ID = id

	code, err := a.Allocate(ctx, id, item.Location)
	if err != nil {
		if delErr := a.store.Delete(ctx, id); delErr != nil {
			a.logger.Error().Err(delErr).Int64("item_id", id).
				Msg("rollback of codeless item failed")
		}
		return nil, err
	}

	item.Code = &code
	return item, nil
}

// Allocate computes and commits the next free code for an existing item at
// the given location. It runs the full Scanning -> Computing -> Assigning
// machine; callers that own a freshly inserted row handle rollback themselves
// (see CreateItem).
func (a *Allocator) Allocate(ctx context.Context, itemID int64, location string) (string, error) {
	rule := a.Rule(location)

	next, err := a.nextSequence(ctx, location, rule)
	if err != nil {
		a.metrics.RecordAllocation("failed", 0)
		return "", err
	}

	return a.assign(ctx, itemID, next, rule.Suffix)
}

// Relocate moves an item to a new location, recomputing its code suffix. A
// well-formed existing code keeps its numeric core, so no max-scan runs; only
// the uniqueness check under the new suffix, with the usual retry discipline.
// Items without a parsable code get a fresh allocation instead.
func (a *Allocator) Relocate(ctx context.Context, itemID int64, newLocation string) (string, error) {
	ctx, span := a.tracer.Start(ctx, "catalog.relocate_item",
		trace.WithAttributes(attribute.Int64("item_id", itemID)))
	defer span.End()

	item, err := a.store.LookupByID(ctx, itemID)
	if err != nil {
		return "", fmt.Errorf("looking up item %d: %w", itemID, err)
	}

	rule := a.Rule(newLocation)

	var code string
	if core, ok := numericCore(item.Code); ok {
		code, err = a.assign(ctx, itemID, core, rule.Suffix)
	} else {
		code, err = a.Allocate(ctx, itemID, newLocation)
	}
	if err != nil {
		return "", err
	}

	if err := a.store.UpdateLocation(ctx, itemID, newLocation); err != nil {
		return "", fmt.Errorf("updating location of item %d: %w", itemID, err)
	}
	return code, nil
}

// nextSequence runs the Scanning and Computing phases: sample candidate
// codes, keep the ones for this location, and propose max+1.
func (a *Allocator) nextSequence(ctx context.Context, location string, rule LocationRule) (int64, error) {
	candidates, err := a.scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("scanning existing codes: %w", err)
	}

	target := NormalizeLocation(location)
	pattern := regexp.MustCompile(`^0*(\d+)` + regexp.QuoteMeta(rule.Suffix) + `$`)

	var max int64
	for _, item := range candidates {
		if item.Code == nil || NormalizeLocation(item.Location) != target {
			continue
		}
		m := pattern.FindStringSubmatch(*item.Code)
		if m == nil {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		if n > rule.Ceiling {
			// Corrupted legacy data; never let it inflate the sequence.
			a.logger.Warn().Str("code", *item.Code).Int64("ceiling", rule.Ceiling).
				Str("location", location).Msg("ignoring outlier code")
			continue
		}
		if n > max {
			max = n
		}
	}

	a.logger.Debug().Str("phase", PhaseComputing.String()).
		Str("location", location).Int64("max", max).
		Int("candidates", len(candidates)).Msg("computed next sequence")
	return max + 1, nil
}

// scan gathers candidate codes via two parallel bounded reads: the most
// recently created items and the default numeric-prefix code range. Neither
// read filters by location; codes of deactivated items still occupy their
// sequence slot.
func (a *Allocator) scan(ctx context.Context) ([]Item, error) {
	var recent, ranged []Item

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recent, err = a.store.Select(gctx, Selection{
			Sort:  &SortSpec{Key: SortByID, Direction: Descending},
			Limit: a.config.RecentSampleSize,
		})
		return err
	})
	g.Go(func() error {
		var err error
		ranged, err = a.store.Select(gctx, Selection{
			Where: []PredicateGroup{
				Group(Cond(FieldCode, OpGte, "0")),
				Group(Cond(FieldCode, OpLt, "1")),
			},
			Limit: a.config.RangeScanLimit,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return append(recent, ranged...), nil
}

// assign runs the Assigning/Retrying phases: persist the proposal under the
// uniqueness constraint and, on a collision, increment the just-failed
// proposal rather than rescanning. Bounded by MaxAttempts.
func (a *Allocator) assign(ctx context.Context, itemID int64, seq int64, suffix string) (string, error) {
	for attempt := 1; attempt <= a.config.MaxAttempts; attempt++ {
		code := FormatCode(seq, suffix)
		err := a.store.UpdateCode(ctx, itemID, &code)
		if err == nil {
			a.metrics.RecordAllocation(PhaseCommitted.String(), attempt)
			a.logger.Info().Int64("item_id", itemID).Str("code", code).
				Int("attempts", attempt).Msg("code committed")
			return code, nil
		}
		if !errors.Is(err, ErrUniquenessViolation) {
			a.metrics.RecordAllocation(PhaseFailed.String(), attempt)
			return "", fmt.Errorf("assigning code %s: %w", code, err)
		}

		a.logger.Debug().Str("phase", PhaseRetrying.String()).
			Str("code", code).Int("attempt", attempt).Msg("code taken, retrying")
		seq++
		a.backoff.Wait(ctx, attempt)
	}

	a.metrics.RecordAllocation("exhausted", a.config.MaxAttempts)
	return "", fmt.Errorf("item %d: %w", itemID, ErrAllocationExhausted)
}

// FormatCode renders a sequence number as an 8-digit zero-padded core plus
// the location suffix.
func FormatCode(seq int64, suffix string) string {
	return fmt.Sprintf("%0*d%s", codeDigits, seq, suffix)
}

// numericCore extracts the numeric component of a well-formed code.
func numericCore(code *string) (int64, bool) {
	if code == nil {
		return 0, false
	}
	m := codeParts.FindStringSubmatch(*code)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
