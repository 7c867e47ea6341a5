package catalog

import (
	"fmt"
	"time"
)

// Item represents one sellable catalog entry (a book).
// Prices are held in euro cents to avoid float drift; the store is the sole
// owner of item state and the engine never caches it across requests.
type Item struct {
	ID                 int64     `json:"id"`
	Code               *string   `json:"code"` // Legacy inventory code, unique when present
	Title              string    `json:"title"`
	Author             string    `json:"author"`
	Description        *string   `json:"description"`
	ISBN               *string   `json:"isbn"`
	PublisherID        *int64    `json:"publisher_id"`
	PublisherName      string    `json:"publisher_name"` // Resolved for display only
	CategoryID         *int64    `json:"category_id"`
	CategoryName       string    `json:"category_name"` // Resolved for display only
	PriceCents         int64     `json:"price_cents"`
	OriginalPriceCents *int64    `json:"original_price_cents"` // Set only when a promotion applies
	Stock              int       `json:"stock"`
	Location           string    `json:"location"` // Free-text site name
	Featured           bool      `json:"featured"`
	IsNew              bool      `json:"is_new"`
	OnSale             bool      `json:"on_sale"`
	HasCover           bool      `json:"has_cover"`
	Pages              *int      `json:"pages"`
	Year               *int      `json:"year"`
	Active             bool      `json:"active"` // Soft-delete marker; items are deactivated, never removed
	CreatedAt          time.Time `json:"created_at"`
}

// Availability filters items by stock level.
type Availability int

const (
	// AvailabilityInStock is the storefront default view.
	AvailabilityInStock Availability = iota
	AvailabilityAll
	AvailabilityOutOfStock
)

// CoverFilter filters items by cover image presence.
type CoverFilter int

const (
	CoverAny CoverFilter = iota
	CoverWith
	CoverWithout
)

// SortKey identifies a sortable column.
type SortKey string

const (
	SortByTitle  SortKey = "title"
	SortByAuthor SortKey = "author"
	SortByPrice  SortKey = "price"
	SortByYear   SortKey = "year"
	SortByCode   SortKey = "code"
	SortByID     SortKey = "id"
)

// SortDirection is ascending or descending.
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// SortSpec is the ordering half of a query plan. A nil SortSpec means the
// store may return rows in any order.
type SortSpec struct {
	Key       SortKey
	Direction SortDirection
}

// Criteria is an immutable bundle of optional filters. Pointer fields and the
// zero enum values mean "unconstrained"; boolean flags use *bool so that an
// absent flag is distinguishable from an explicit false.
type Criteria struct {
	Search          string
	Category        string // Category name; "" or "all" means unconstrained
	PriceMinCents   *int64
	PriceMaxCents   *int64
	Availability    Availability
	Sort            *SortSpec
	Featured        *bool
	New             *bool
	OnSale          *bool
	Cover           CoverFilter
	Publisher       string
	Location        string
	ISBN            string
	PagesMin        *int
	PagesMax        *int
	YearMin         *int
	YearMax         *int
	IncludeInactive bool
	ForceExactCount bool
}

// Field names a queryable column of the catalog table.
type Field string

const (
	FieldID          Field = "id"
	FieldCode        Field = "code"
	FieldTitle       Field = "title"
	FieldAuthor      Field = "author"
	FieldDescription Field = "description"
	FieldISBN        Field = "isbn"
	FieldCategoryID  Field = "category_id"
	FieldPublisherID Field = "publisher_id"
	FieldPrice       Field = "price_cents"
	FieldStock       Field = "stock"
	FieldLocation    Field = "location"
	FieldFeatured    Field = "featured"
	FieldIsNew       Field = "is_new"
	FieldOnSale      Field = "on_sale"
	FieldHasCover    Field = "has_cover"
	FieldPages       Field = "pages"
	FieldYear        Field = "year"
	FieldActive      Field = "active"
)

// Op is a predicate comparison operator.
type Op int

const (
	OpEq Op = iota
	OpGt
	OpGte
	OpLt
	OpLte
	// OpPattern is a case-insensitive LIKE match; the value may contain the
	// '%' and '_' wildcards produced by the fuzzy transform.
	OpPattern
	// OpIn tests membership in an []int64 value.
	OpIn
)

// Condition is a single field comparison.
type Condition struct {
	Field Field
	Op    Op
	Value any
}

// PredicateGroup is a disjunction of conditions. A query plan's WHERE part is
// a conjunction of groups (AND of ORs); a group of one condition is a plain
// AND term.
type PredicateGroup struct {
	Any []Condition
}

// Group builds a PredicateGroup from conditions.
func Group(conds ...Condition) PredicateGroup {
	return PredicateGroup{Any: conds}
}

// Cond builds a single Condition.
func Cond(f Field, op Op, v any) Condition {
	return Condition{Field: f, Op: op, Value: v}
}

// ExactLookup is the numeric-search sub-plan: try the item id and the code
// verbatim before running the full predicate set.
type ExactLookup struct {
	ID    int64 // 0 when the text does not fit an item id
	Code  string
	Limit int
}

// CountMode selects how a request's total is obtained.
type CountMode int

const (
	// CountNone skips counting; the caller holds a separately maintained total.
	CountNone CountMode = iota
	// CountApproximate uses a store-native cheap estimate.
	CountApproximate
	// CountExact runs a full count.
	CountExact
)

func (m CountMode) String() string {
	switch m {
	case CountNone:
		return "none"
	case CountApproximate:
		return "approximate"
	case CountExact:
		return "exact"
	default:
		return fmt.Sprintf("CountMode(%d)", int(m))
	}
}

// QueryPlan is the compiled form of a Criteria value.
type QueryPlan struct {
	// Exact, when set, is attempted before Where and short-circuits on a hit.
	Exact *ExactLookup
	Where []PredicateGroup
	Sort  *SortSpec
	Count CountMode
	// MatchNothing forces an empty result (e.g. unknown category name).
	MatchNothing bool
}

// TotalExternal signals that the request was the default view and the caller
// should use its separately maintained catalog total.
const TotalExternal = -1

// SearchResult is one page of items plus the total under the plan's count
// mode (TotalExternal when CountNone).
type SearchResult struct {
	Items []Item
	Total int
	Count CountMode
}

// RuleScope is the applicability of a discount rule.
type RuleScope int

const (
	ScopeGlobal RuleScope = iota
	ScopeCategory
)

// DiscountRule is a promotional rule. TargetCategoryID is meaningful only for
// ScopeCategory rules.
type DiscountRule struct {
	ID               int64
	Scope            RuleScope
	TargetCategoryID int64
	Percent          int // 0-100
	Active           bool
}

// NameKind selects which reference table a batched name lookup resolves.
type NameKind int

const (
	NamePublisher NameKind = iota
	NameCategory
)
