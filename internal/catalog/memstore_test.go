package catalog

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// memStore is an in-memory Store used by the unit tests. It evaluates the
// predicate model the same way the SQL translation does, enforces code
// uniqueness under a mutex, and can be told to fail or to collide on demand.
type memStore struct {
	mu         sync.Mutex
	items      map[int64]*Item
	nextID     int64
	categories map[string]int64 // lower(name) -> id
	catNames   map[int64]string
	pubNames   map[int64]string
	rules      []DiscountRule

	failSelect    error
	failCount     error
	updateCodeToo func(code string) error // extra check before each UpdateCode
}

func newMemStore() *memStore {
	return &memStore{
		items:      make(map[int64]*Item),
		categories: make(map[string]int64),
		catNames:   make(map[int64]string),
		pubNames:   make(map[int64]string),
	}
}

func (m *memStore) addCategory(id int64, name string) {
	m.categories[strings.ToLower(name)] = id
	m.catNames[id] = name
}

func (m *memStore) addPublisher(id int64, name string) {
	m.pubNames[id] = name
}

func (m *memStore) add(item Item) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	item.ID = m.nextID
	item.Active = true
	m.items[item.ID] = &item
	return item.ID
}

func (m *memStore) get(id int64) Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.items[id]
}

func (m *memStore) has(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[id]
	return ok
}

func (m *memStore) LookupByID(_ context.Context, id int64) (*Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *memStore) Select(_ context.Context, sel Selection) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSelect != nil {
		return nil, m.failSelect
	}

	var matched []Item
	for _, item := range m.items {
		if matchesAll(item, sel.Where) {
			matched = append(matched, *item)
		}
	}

	sortItems(matched, sel.Sort)

	if sel.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[sel.Offset:]
	if sel.Limit > 0 && len(matched) > sel.Limit {
		matched = matched[:sel.Limit]
	}
	return matched, nil
}

func (m *memStore) CountExact(_ context.Context, where []PredicateGroup) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCount != nil {
		return 0, m.failCount
	}
	n := 0
	for _, item := range m.items {
		if matchesAll(item, where) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CountEstimate(ctx context.Context, where []PredicateGroup) (int, error) {
	return m.CountExact(ctx, where)
}

func (m *memStore) Insert(_ context.Context, item *Item) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.Code != nil && m.codeTakenLocked(*item.Code, 0) {
		return 0, ErrUniquenessViolation
	}
	m.nextID++
	cp := *item
	cp.ID = m.nextID
	m.items[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memStore) UpdateCode(_ context.Context, id int64, code *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	if code != nil {
		if m.updateCodeToo != nil {
			if err := m.updateCodeToo(*code); err != nil {
				return err
			}
		}
		if m.codeTakenLocked(*code, id) {
			return ErrUniquenessViolation
		}
	}
	item.Code = code
	return nil
}

func (m *memStore) UpdateLocation(_ context.Context, id int64, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	item.Location = location
	return nil
}

func (m *memStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memStore) ResolveCategoryID(_ context.Context, name string) (int64, error) {
	if id, ok := m.categories[strings.ToLower(name)]; ok {
		return id, nil
	}
	return 0, ErrNotFound
}

func (m *memStore) FindPublisherIDs(_ context.Context, pattern string, limit int) ([]int64, error) {
	re := likeRegexp(pattern)
	var ids []int64
	for id, name := range m.pubNames {
		if re.MatchString(name) {
			ids = append(ids, id)
		}
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memStore) BatchResolveNames(_ context.Context, kind NameKind, ids []int64) (map[int64]string, error) {
	src := m.pubNames
	if kind == NameCategory {
		src = m.catNames
	}
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if name, ok := src[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

func (m *memStore) ActiveDiscountRules(context.Context) ([]DiscountRule, error) {
	return m.rules, nil
}

func (m *memStore) codeTakenLocked(code string, selfID int64) bool {
	for id, item := range m.items {
		if id != selfID && item.Code != nil && *item.Code == code {
			return true
		}
	}
	return false
}

func matchesAll(item *Item, where []PredicateGroup) bool {
	for _, group := range where {
		ok := false
		for _, cond := range group.Any {
			if matches(item, cond) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func matches(item *Item, cond Condition) bool {
	val, present := fieldValue(item, cond.Field)
	if !present {
		return false
	}

	switch cond.Op {
	case OpPattern:
		s, ok := val.(string)
		if !ok {
			return false
		}
		return likeRegexp(cond.Value.(string)).MatchString(s)
	case OpIn:
		n, ok := asInt64(val)
		if !ok {
			return false
		}
		for _, want := range cond.Value.([]int64) {
			if n == want {
				return true
			}
		}
		return false
	case OpEq:
		if b, ok := val.(bool); ok {
			return b == cond.Value.(bool)
		}
		if s, ok := val.(string); ok {
			return s == cond.Value.(string)
		}
		a, _ := asInt64(val)
		b, _ := asInt64(cond.Value)
		return a == b
	default:
		if s, ok := val.(string); ok {
			return compareOrdered(strings.Compare(s, cond.Value.(string)), cond.Op)
		}
		a, _ := asInt64(val)
		b, _ := asInt64(cond.Value)
		switch {
		case a < b:
			return compareOrdered(-1, cond.Op)
		case a > b:
			return compareOrdered(1, cond.Op)
		default:
			return compareOrdered(0, cond.Op)
		}
	}
}

func compareOrdered(cmp int, op Op) bool {
	switch op {
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	default:
		return false
	}
}

func fieldValue(item *Item, f Field) (any, bool) {
	switch f {
	case FieldID:
		return item.ID, true
	case FieldCode:
		if item.Code == nil {
			return nil, false
		}
		return *item.Code, true
	case FieldTitle:
		return item.Title, true
	case FieldAuthor:
		return item.Author, true
	case FieldDescription:
		if item.Description == nil {
			return nil, false
		}
		return *item.Description, true
	case FieldISBN:
		if item.ISBN == nil {
			return nil, false
		}
		return *item.ISBN, true
	case FieldCategoryID:
		if item.CategoryID == nil {
			return nil, false
		}
		return *item.CategoryID, true
	case FieldPublisherID:
		if item.PublisherID == nil {
			return nil, false
		}
		return *item.PublisherID, true
	case FieldPrice:
		return item.PriceCents, true
	case FieldStock:
		return item.Stock, true
	case FieldLocation:
		return item.Location, true
	case FieldFeatured:
		return item.Featured, true
	case FieldIsNew:
		return item.IsNew, true
	case FieldOnSale:
		return item.OnSale, true
	case FieldHasCover:
		return item.HasCover, true
	case FieldPages:
		if item.Pages == nil {
			return nil, false
		}
		return *item.Pages, true
	case FieldYear:
		if item.Year == nil {
			return nil, false
		}
		return *item.Year, true
	case FieldActive:
		return item.Active, true
	default:
		return nil, false
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

// likeRegexp translates a LIKE pattern ('%' any run, '_' one char) into a
// case-insensitive regexp, mirroring how the SQL store matches patterns.
func likeRegexp(pattern string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(pattern)
	quoted = strings.ReplaceAll(quoted, "%", "(?s).*")
	quoted = strings.ReplaceAll(quoted, "_", ".")
	return regexp.MustCompile(`(?i)^` + quoted + `$`)
}

func sortItems(items []Item, spec *SortSpec) {
	if spec == nil {
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
		return
	}
	less := func(i, j int) bool { return items[i].ID < items[j].ID }
	switch spec.Key {
	case SortByTitle:
		less = func(i, j int) bool { return items[i].Title < items[j].Title }
	case SortByAuthor:
		less = func(i, j int) bool { return items[i].Author < items[j].Author }
	case SortByPrice:
		less = func(i, j int) bool { return items[i].PriceCents < items[j].PriceCents }
	}
	if spec.Direction == Descending {
		orig := less
		less = func(i, j int) bool { return orig(j, i) }
	}
	sort.Slice(items, less)
}
