package communication

import "strings"

// SortType is the direction of a sort.
type SortType int

const (
	Asc SortType = iota
	Desc
)

func (s SortType) String() string {
	if s == Desc {
		return "DESC"
	}
	return "ASC"
}

// ParseSortType accepts asc/desc in any case; anything else is ascending.
func ParseSortType(s string) SortType {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return Desc
	}
	return Asc
}

// Sort orders results by an element.
type Sort struct {
	Name      string
	Direction SortType
}

// SortAsc orders by name ascending.
func SortAsc(name string) Sort { return Sort{Name: name, Direction: Asc} }

// SortDesc orders by name descending.
func SortDesc(name string) Sort { return Sort{Name: name, Direction: Desc} }

// SelectQuery describes a read. A nil Condition selects every entity. Zero Skip and
// Limit mean no offset and no limit.
type SelectQuery struct {
	Entity    string
	Fields    []string
	Condition *Condition
	Sorts     []Sort
	Skip      int64
	Limit     int64
}

// DeleteQuery describes a removal. When Fields is set, drivers that support it remove only
// those elements from the matching entities.
type DeleteQuery struct {
	Entity    string
	Fields    []string
	Condition *Condition
}

// SelectBuilder builds a SelectQuery fluently.
type SelectBuilder struct {
	query SelectQuery
}

// Select starts a select of the given fields; no fields selects whole entities.
func Select(fields ...string) *SelectBuilder {
	return &SelectBuilder{query: SelectQuery{Fields: fields}}
}

// From sets the entity name.
func (b *SelectBuilder) From(entity string) *SelectBuilder {
	b.query.Entity = entity
	return b
}

// Where sets the root condition.
func (b *SelectBuilder) Where(c Condition) *SelectBuilder {
	b.query.Condition = &c
	return b
}

// And adds a condition joined with and to the current one.
func (b *SelectBuilder) And(c Condition) *SelectBuilder {
	b.query.Condition = combine(b.query.Condition, c, And)
	return b
}

// Or adds a condition joined with or to the current one.
func (b *SelectBuilder) Or(c Condition) *SelectBuilder {
	b.query.Condition = combine(b.query.Condition, c, Or)
	return b
}

// OrderBy appends sorts.
func (b *SelectBuilder) OrderBy(sorts ...Sort) *SelectBuilder {
	b.query.Sorts = append(b.query.Sorts, sorts...)
	return b
}

// Asc appends an ascending sort.
func (b *SelectBuilder) Asc(name string) *SelectBuilder { return b.OrderBy(SortAsc(name)) }

// Desc appends a descending sort.
func (b *SelectBuilder) Desc(name string) *SelectBuilder { return b.OrderBy(SortDesc(name)) }

// Skip sets the number of leading results to drop.
func (b *SelectBuilder) Skip(n int64) *SelectBuilder {
	b.query.Skip = n
	return b
}

// Limit sets the maximum number of results.
func (b *SelectBuilder) Limit(n int64) *SelectBuilder {
	b.query.Limit = n
	return b
}

// Build validates and returns the query.
func (b *SelectBuilder) Build() (SelectQuery, error) {
	if b.query.Entity == "" {
		return SelectQuery{}, ErrEntityRequired
	}
	if b.query.Skip < 0 || b.query.Limit < 0 {
		return SelectQuery{}, ErrInvalidCondition
	}
	if b.query.Condition != nil {
		if err := b.query.Condition.Validate(); err != nil {
			return SelectQuery{}, err
		}
	}
	return b.query, nil
}

// DeleteBuilder builds a DeleteQuery fluently.
type DeleteBuilder struct {
	query DeleteQuery
}

// Delete starts a delete; with fields only those elements are removed.
func Delete(fields ...string) *DeleteBuilder {
	return &DeleteBuilder{query: DeleteQuery{Fields: fields}}
}

// From sets the entity name.
func (b *DeleteBuilder) From(entity string) *DeleteBuilder {
	b.query.Entity = entity
	return b
}

// Where sets the root condition.
func (b *DeleteBuilder) Where(c Condition) *DeleteBuilder {
	b.query.Condition = &c
	return b
}

// And adds a condition joined with and to the current one.
func (b *DeleteBuilder) And(c Condition) *DeleteBuilder {
	b.query.Condition = combine(b.query.Condition, c, And)
	return b
}

// Or adds a condition joined with or to the current one.
func (b *DeleteBuilder) Or(c Condition) *DeleteBuilder {
	b.query.Condition = combine(b.query.Condition, c, Or)
	return b
}

// Build validates and returns the query.
func (b *DeleteBuilder) Build() (DeleteQuery, error) {
	if b.query.Entity == "" {
		return DeleteQuery{}, ErrEntityRequired
	}
	if b.query.Condition != nil {
		if err := b.query.Condition.Validate(); err != nil {
			return DeleteQuery{}, err
		}
	}
	return b.query, nil
}

func combine(current *Condition, next Condition, op Operator) *Condition {
	if current == nil {
		return &next
	}
	var c Condition
	if op == And {
		c = current.And(next)
	} else {
		c = current.Or(next)
	}
	return &c
}
