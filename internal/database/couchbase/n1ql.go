package couchbase

import (
	"fmt"
	"strings"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

const (
	keyField = "_id"
	alias    = "e"
)

var driverName = string(dbcapabilities.Couchbase)

// identifier backtick-quotes a single name.
func identifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// path renders a dotted element name as a quoted path below the keyspace alias.
func path(name string) string {
	if name == keyField {
		return "META(" + alias + ").id"
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = identifier(p)
	}
	return alias + "." + strings.Join(parts, ".")
}

type n1qlBuilder struct {
	params *common.BindParams
}

func (b *n1qlBuilder) bind(name string, value interface{}) string {
	return "$" + b.params.Bind(name, value)
}

func (b *n1qlBuilder) condition(c communication.Condition) (string, error) {
	field := path(c.Element.Name)
	switch c.Operator {
	case communication.Equals:
		return field + " = " + b.bind(c.Element.Name, c.Element.Value), nil
	case communication.GreaterThan:
		return field + " > " + b.bind(c.Element.Name, c.Element.Value), nil
	case communication.GreaterEqualsThan:
		return field + " >= " + b.bind(c.Element.Name, c.Element.Value), nil
	case communication.LesserThan:
		return field + " < " + b.bind(c.Element.Name, c.Element.Value), nil
	case communication.LesserEqualsThan:
		return field + " <= " + b.bind(c.Element.Name, c.Element.Value), nil
	case communication.Like:
		if _, ok := c.Element.Value.(string); !ok {
			return "", fmt.Errorf("%w: LIKE on %q requires a string pattern", communication.ErrInvalidCondition, c.Element.Name)
		}
		return field + " LIKE " + b.bind(c.Element.Name, c.Element.Value), nil
	case communication.In:
		values, ok := communication.ToSlice(c.Element.Value)
		if !ok {
			return "", fmt.Errorf("%w: IN on %q requires values", communication.ErrInvalidCondition, c.Element.Name)
		}
		return field + " IN " + b.bind(c.Element.Name, values), nil
	case communication.Between:
		low, high, ok := c.BetweenBounds()
		if !ok {
			return "", fmt.Errorf("%w: BETWEEN on %q requires two values", communication.ErrInvalidCondition, c.Element.Name)
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", field, b.bind(c.Element.Name, low), b.bind(c.Element.Name, high)), nil
	case communication.And, communication.Or:
		children := c.Children()
		if len(children) == 0 {
			return "", fmt.Errorf("%w: %s without conditions", communication.ErrInvalidCondition, c.Operator)
		}
		parts := make([]string, 0, len(children))
		for _, child := range children {
			part, err := b.condition(child)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		return "(" + strings.Join(parts, " "+c.Operator.String()+" ") + ")", nil
	case communication.Not:
		inner, ok := c.Inner()
		if !ok {
			return "", fmt.Errorf("%w: NOT requires a condition", communication.ErrInvalidCondition)
		}
		part, err := b.condition(inner)
		if err != nil {
			return "", err
		}
		return "NOT (" + part + ")", nil
	}
	return "", communication.UnsupportedCondition(driverName, c.Operator)
}

func (b *n1qlBuilder) where(c *communication.Condition) (string, error) {
	if c == nil {
		return "", nil
	}
	clause, err := b.condition(*c)
	if err != nil {
		return "", err
	}
	return " WHERE " + clause, nil
}

func keyspace(entity string) string {
	return identifier(entity) + " AS " + alias
}

func projection(fields []string) string {
	if len(fields) == 0 {
		return "META(" + alias + ").id AS " + keyField + ", " + alias + ".*"
	}
	parts := []string{"META(" + alias + ").id AS " + keyField}
	for _, f := range fields {
		if f == keyField {
			continue
		}
		parts = append(parts, path(f)+" AS "+identifier(f))
	}
	return strings.Join(parts, ", ")
}

// selectN1QL renders q with $-prefixed named parameters.
func selectN1QL(q communication.SelectQuery) (string, map[string]interface{}, error) {
	if q.Entity == "" {
		return "", nil, communication.ErrEntityRequired
	}
	b := &n1qlBuilder{params: common.NewBindParams()}
	where, err := b.where(q.Condition)
	if err != nil {
		return "", nil, err
	}

	stmt := "SELECT " + projection(q.Fields) + " FROM " + keyspace(q.Entity) + where
	if len(q.Sorts) > 0 {
		sorts := make([]string, len(q.Sorts))
		for i, s := range q.Sorts {
			sorts[i] = path(s.Name) + " " + s.Direction.String()
		}
		stmt += " ORDER BY " + strings.Join(sorts, ", ")
	}
	if q.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	if q.Skip > 0 {
		stmt += fmt.Sprintf(" OFFSET %d", q.Skip)
	}
	return stmt, b.params.Values(), nil
}

// deleteN1QL renders DELETE, or UPDATE ... UNSET when q.Fields is set.
func deleteN1QL(q communication.DeleteQuery) (string, map[string]interface{}, error) {
	if q.Entity == "" {
		return "", nil, communication.ErrEntityRequired
	}
	b := &n1qlBuilder{params: common.NewBindParams()}
	where, err := b.where(q.Condition)
	if err != nil {
		return "", nil, err
	}
	if len(q.Fields) == 0 {
		return "DELETE FROM " + keyspace(q.Entity) + where, b.params.Values(), nil
	}
	unset := make([]string, len(q.Fields))
	for i, f := range q.Fields {
		unset[i] = path(f)
	}
	return "UPDATE " + keyspace(q.Entity) + " UNSET " + strings.Join(unset, ", ") + where, b.params.Values(), nil
}

func countN1QL(entity string) string {
	return "SELECT RAW COUNT(*) FROM " + identifier(entity)
}

// Translator renders queries as N1QL (SQL++).
type Translator struct{}

// TranslateSelect renders the SELECT statement.
func (Translator) TranslateSelect(q communication.SelectQuery) (adapter.NativeQuery, error) {
	stmt, params, err := selectN1QL(q)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	return adapter.NativeQuery{Language: "n1ql", Statement: stmt, Params: params}, nil
}

// TranslateDelete renders the DELETE or UPDATE statement.
func (Translator) TranslateDelete(q communication.DeleteQuery) (adapter.NativeQuery, error) {
	stmt, params, err := deleteN1QL(q)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	return adapter.NativeQuery{Language: "n1ql", Statement: stmt, Params: params}, nil
}
