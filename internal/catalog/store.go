package catalog

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by point lookups when no row matches.
	ErrNotFound = errors.New("catalog: not found")

	// ErrUnavailable wraps transient store failures; the whole request may be
	// retried by the caller.
	ErrUnavailable = errors.New("catalog: store unavailable")

	// ErrUniquenessViolation is returned by UpdateCode when the proposed code
	// is already taken. The allocator handles it internally.
	ErrUniquenessViolation = errors.New("catalog: code already in use")
)

// Selection is a predicate set plus ordering and a pagination window.
type Selection struct {
	Where  []PredicateGroup
	Sort   *SortSpec
	Offset int
	Limit  int
}

// Store is the narrow port toward the catalog row store. All methods are
// synchronous; implementations map backend failures to ErrUnavailable and
// code-uniqueness conflicts to ErrUniquenessViolation.
type Store interface {
	// LookupByID returns the item with the given id, or ErrNotFound.
	LookupByID(ctx context.Context, id int64) (*Item, error)

	// Select returns the items matching sel, without resolved display names.
	Select(ctx context.Context, sel Selection) ([]Item, error)

	// CountExact counts rows matching the predicate set.
	CountExact(ctx context.Context, where []PredicateGroup) (int, error)

	// CountEstimate returns a cheap row-count estimate for the predicate set.
	CountEstimate(ctx context.Context, where []PredicateGroup) (int, error)

	// Insert stores a new item and returns its id.
	Insert(ctx context.Context, item *Item) (int64, error)

	// UpdateCode sets (or clears) an item's inventory code under the code
	// uniqueness constraint.
	UpdateCode(ctx context.Context, id int64, code *string) error

	// UpdateLocation moves an item to another site.
	UpdateLocation(ctx context.Context, id int64, location string) error

	// Delete removes an item outright. Only the allocator's rollback path
	// uses it; administrative removal deactivates instead.
	Delete(ctx context.Context, id int64) error

	// ResolveCategoryID maps a category name to its id, or ErrNotFound.
	ResolveCategoryID(ctx context.Context, name string) (int64, error)

	// FindPublisherIDs returns ids of publishers whose name matches the
	// pattern, bounded by limit.
	FindPublisherIDs(ctx context.Context, pattern string, limit int) ([]int64, error)

	// BatchResolveNames resolves display names for a set of reference ids.
	// Missing ids are simply absent from the result.
	BatchResolveNames(ctx context.Context, kind NameKind, ids []int64) (map[int64]string, error)

	// ActiveDiscountRules returns the promotional rules currently in force.
	ActiveDiscountRules(ctx context.Context) ([]DiscountRule, error)
}
