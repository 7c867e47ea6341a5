package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/FjTechSols/LibreriaPerezGaldos-sub001/internal/catalog"
)

// CatalogStore is the pgx implementation of the catalog row-store port.
// Predicate lists compile to parameterized WHERE clauses; the code column
// carries a partial unique index which backs the allocator's optimistic
// retry loop.
type CatalogStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCatalogStore creates a store over the given pool.
func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{
		pool:   pool,
		logger: log.With().Str("component", "catalog_store").Logger(),
	}
}

const itemColumns = `id, code, title, author, description, isbn,
	publisher_id, category_id, price_cents, original_price_cents, stock,
	location, featured, is_new, on_sale, has_cover, pages, year, active,
	created_at`

var columns = map[catalog.Field]string{
	catalog.FieldID:          "id",
	catalog.FieldCode:        "code",
	catalog.FieldTitle:       "title",
	catalog.FieldAuthor:      "author",
	catalog.FieldDescription: "description",
	catalog.FieldISBN:        "isbn",
	catalog.FieldCategoryID:  "category_id",
	catalog.FieldPublisherID: "publisher_id",
	catalog.FieldPrice:       "price_cents",
	catalog.FieldStock:       "stock",
	catalog.FieldLocation:    "location",
	catalog.FieldFeatured:    "featured",
	catalog.FieldIsNew:       "is_new",
	catalog.FieldOnSale:      "on_sale",
	catalog.FieldHasCover:    "has_cover",
	catalog.FieldPages:       "pages",
	catalog.FieldYear:        "year",
	catalog.FieldActive:      "active",
}

// buildWhere renders a predicate set into a WHERE clause and its arguments.
// Each group becomes a parenthesized OR; groups are ANDed together.
func buildWhere(where []catalog.PredicateGroup) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	var sb strings.Builder
	var args []any
	sb.WriteString(" WHERE ")

	for gi, group := range where {
		if gi > 0 {
			sb.WriteString(" AND ")
		}
		if len(group.Any) > 1 {
			sb.WriteString("(")
		}
		for ci, cond := range group.Any {
			if ci > 0 {
				sb.WriteString(" OR ")
			}
			col, ok := columns[cond.Field]
			if !ok {
				return "", nil, fmt.Errorf("unknown field %q", cond.Field)
			}
			args = append(args, cond.Value)
			n := len(args)
			switch cond.Op {
			case catalog.OpEq:
				fmt.Fprintf(&sb, "%s = $%d", col, n)
			case catalog.OpGt:
				fmt.Fprintf(&sb, "%s > $%d", col, n)
			case catalog.OpGte:
				fmt.Fprintf(&sb, "%s >= $%d", col, n)
			case catalog.OpLt:
				fmt.Fprintf(&sb, "%s < $%d", col, n)
			case catalog.OpLte:
				fmt.Fprintf(&sb, "%s <= $%d", col, n)
			case catalog.OpPattern:
				fmt.Fprintf(&sb, "%s ILIKE $%d", col, n)
			case catalog.OpIn:
				fmt.Fprintf(&sb, "%s = ANY($%d)", col, n)
			default:
				return "", nil, fmt.Errorf("unknown operator %d", cond.Op)
			}
		}
		if len(group.Any) > 1 {
			sb.WriteString(")")
		}
	}

	return sb.String(), args, nil
}

var sortColumns = map[catalog.SortKey]string{
	catalog.SortByTitle:  "title",
	catalog.SortByAuthor: "author",
	catalog.SortByPrice:  "price_cents",
	catalog.SortByYear:   "year",
	catalog.SortByCode:   "code",
	catalog.SortByID:     "id",
}

func orderBy(sort *catalog.SortSpec) string {
	if sort == nil {
		return ""
	}
	col, ok := sortColumns[sort.Key]
	if !ok {
		col = "id"
	}
	dir := "ASC"
	if sort.Direction == catalog.Descending {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", col, dir)
}

// LookupByID returns the item with the given id.
func (s *CatalogStore) LookupByID(ctx context.Context, id int64) (*catalog.Item, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM books WHERE id = $1`, id)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, catalog.ErrNotFound
	}
	if err != nil {
		return nil, s.storeError("lookup by id", err)
	}
	return item, nil
}

// Select returns the items matching sel.
func (s *CatalogStore) Select(ctx context.Context, sel catalog.Selection) ([]catalog.Item, error) {
	clause, args, err := buildWhere(sel.Where)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + itemColumns + ` FROM books` + clause + orderBy(sel.Sort)
	if sel.Limit > 0 {
		args = append(args, sel.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if sel.Offset > 0 {
		args = append(args, sel.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.storeError("select", err)
	}
	defer rows.Close()

	var items []catalog.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, s.storeError("select scan", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storeError("select rows", err)
	}
	return items, nil
}

// CountExact counts the rows matching the predicate set.
func (s *CatalogStore) CountExact(ctx context.Context, where []catalog.PredicateGroup) (int, error) {
	clause, args, err := buildWhere(where)
	if err != nil {
		return 0, err
	}

	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM books`+clause, args...).Scan(&n); err != nil {
		return 0, s.storeError("count", err)
	}
	return n, nil
}

// CountEstimate returns the planner's row estimate for the predicate set,
// trading precision for bounded latency on large filtered scans.
func (s *CatalogStore) CountEstimate(ctx context.Context, where []catalog.PredicateGroup) (int, error) {
	clause, args, err := buildWhere(where)
	if err != nil {
		return 0, err
	}

	var doc []byte
	query := `EXPLAIN (FORMAT JSON) SELECT 1 FROM books` + clause
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&doc); err != nil {
		return 0, s.storeError("count estimate", err)
	}

	var plans []struct {
		Plan struct {
			PlanRows float64 `json:"Plan Rows"`
		} `json:"Plan"`
	}
	if err := json.Unmarshal(doc, &plans); err != nil {
		return 0, s.storeError("count estimate parse", err)
	}
	if len(plans) == 0 {
		return 0, fmt.Errorf("count estimate: %w: empty plan", catalog.ErrUnavailable)
	}
	return int(plans[0].Plan.PlanRows), nil
}

// Insert stores a new item and returns its id.
func (s *CatalogStore) Insert(ctx context.Context, item *catalog.Item) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO books (
			code, title, author, description, isbn, publisher_id, category_id,
			price_cents, original_price_cents, stock, location,
			featured, is_new, on_sale, has_cover, pages, year, active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
		RETURNING id
	`, item.Code, item.Title, item.Author, item.Description, item.ISBN,
		item.PublisherID, item.CategoryID, item.PriceCents, item.OriginalPriceCents,
		item.Stock, item.Location, item.Featured, item.IsNew, item.OnSale,
		item.HasCover, item.Pages, item.Year, item.Active).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, catalog.ErrUniquenessViolation
		}
		return 0, s.storeError("insert", err)
	}
	return id, nil
}

// UpdateCode sets an item's inventory code under the unique index on code.
func (s *CatalogStore) UpdateCode(ctx context.Context, id int64, code *string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE books SET code = $2 WHERE id = $1`, id, code)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrUniquenessViolation
		}
		return s.storeError("update code", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// UpdateLocation moves an item to another site.
func (s *CatalogStore) UpdateLocation(ctx context.Context, id int64, location string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE books SET location = $2 WHERE id = $1`, id, location)
	if err != nil {
		return s.storeError("update location", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// Delete removes an item outright (allocator rollback only).
func (s *CatalogStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return s.storeError("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// ResolveCategoryID maps a category name to its id.
func (s *CatalogStore) ResolveCategoryID(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM categories WHERE lower(name) = lower($1) LIMIT 1`, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, catalog.ErrNotFound
	}
	if err != nil {
		return 0, s.storeError("resolve category", err)
	}
	return id, nil
}

// FindPublisherIDs returns ids of publishers whose name matches the pattern.
func (s *CatalogStore) FindPublisherIDs(ctx context.Context, pattern string, limit int) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM publishers WHERE name ILIKE $1 ORDER BY id LIMIT $2`, pattern, limit)
	if err != nil {
		return nil, s.storeError("find publishers", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, s.storeError("find publishers scan", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// BatchResolveNames resolves display names for a set of reference ids in a
// single query per kind.
func (s *CatalogStore) BatchResolveNames(ctx context.Context, kind catalog.NameKind, ids []int64) (map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}

	table := "publishers"
	if kind == catalog.NameCategory {
		table = "categories"
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, name FROM `+table+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, s.storeError("batch resolve names", err)
	}
	defer rows.Close()

	names := make(map[int64]string, len(ids))
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, s.storeError("batch resolve scan", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

// ActiveDiscountRules returns the promotional rules currently in force.
func (s *CatalogStore) ActiveDiscountRules(ctx context.Context) ([]catalog.DiscountRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, scope, COALESCE(target_category_id, 0), percent
		FROM discount_rules
		WHERE active
		ORDER BY id
	`)
	if err != nil {
		return nil, s.storeError("discount rules", err)
	}
	defer rows.Close()

	var rules []catalog.DiscountRule
	for rows.Next() {
		var rule catalog.DiscountRule
		var scope string
		if err := rows.Scan(&rule.ID, &scope, &rule.TargetCategoryID, &rule.Percent); err != nil {
			return nil, s.storeError("discount rules scan", err)
		}
		rule.Active = true
		if scope == "category" {
			rule.Scope = catalog.ScopeCategory
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanItem(row pgx.Row) (*catalog.Item, error) {
	var item catalog.Item
	err := row.Scan(
		&item.ID, &item.Code, &item.Title, &item.Author, &item.Description,
		&item.ISBN, &item.PublisherID, &item.CategoryID, &item.PriceCents,
		&item.OriginalPriceCents, &item.Stock, &item.Location, &item.Featured,
		&item.IsNew, &item.OnSale, &item.HasCover, &item.Pages, &item.Year,
		&item.Active, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// storeError wraps backend failures so callers can test for transient store
// unavailability with errors.Is.
func (s *CatalogStore) storeError(op string, err error) error {
	s.logger.Error().Err(err).Str("op", op).Msg("store operation failed")
	return fmt.Errorf("%s: %w: %v", op, catalog.ErrUnavailable, err)
}
