package cassandra

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

var (
	driverName = string(dbcapabilities.Cassandra)
	identRe    = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// quote leaves lower-case identifiers bare and double-quotes the rest, keeping their case.
func quote(name string) string {
	if identRe.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// cqlBuilder renders a condition tree as a CQL WHERE clause with positional markers.
type cqlBuilder struct {
	args []interface{}
}

func (b *cqlBuilder) bind(v interface{}) string {
	b.args = append(b.args, communication.ToNative(v))
	return "?"
}

func (b *cqlBuilder) condition(c communication.Condition) (string, error) {
	column := quote(c.Element.Name)
	switch c.Operator {
	case communication.Equals:
		return column + " = " + b.bind(c.Element.Value), nil
	case communication.GreaterThan:
		return column + " > " + b.bind(c.Element.Value), nil
	case communication.GreaterEqualsThan:
		return column + " >= " + b.bind(c.Element.Value), nil
	case communication.LesserThan:
		return column + " < " + b.bind(c.Element.Value), nil
	case communication.LesserEqualsThan:
		return column + " <= " + b.bind(c.Element.Value), nil
	case communication.Like:
		if _, ok := c.Element.Value.(string); !ok {
			return "", fmt.Errorf("%w: LIKE on %q requires a string pattern", communication.ErrInvalidCondition, c.Element.Name)
		}
		return column + " LIKE " + b.bind(c.Element.Value), nil
	case communication.In:
		values, ok := communication.ToSlice(c.Element.Value)
		if !ok || len(values) == 0 {
			return "", fmt.Errorf("%w: IN on %q requires values", communication.ErrInvalidCondition, c.Element.Name)
		}
		markers := make([]string, len(values))
		for i, v := range values {
			markers[i] = b.bind(v)
		}
		return column + " IN (" + strings.Join(markers, ", ") + ")", nil
	case communication.Between:
		low, high, ok := c.BetweenBounds()
		if !ok {
			return "", fmt.Errorf("%w: BETWEEN on %q requires two values", communication.ErrInvalidCondition, c.Element.Name)
		}
		return column + " >= " + b.bind(low) + " AND " + column + " <= " + b.bind(high), nil
	case communication.And:
		// CQL has no grouping, a conjunction is a flat list of relations
		children := c.Children()
		if len(children) == 0 {
			return "", fmt.Errorf("%w: AND without conditions", communication.ErrInvalidCondition)
		}
		parts := make([]string, 0, len(children))
		for _, child := range children {
			part, err := b.condition(child)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		return strings.Join(parts, " AND "), nil
	}
	return "", communication.UnsupportedCondition(driverName, c.Operator)
}

// Translator renders queries as CQL.
type Translator struct {
	// AllowFiltering appends ALLOW FILTERING to selects.
	AllowFiltering bool
}

func where(b *cqlBuilder, c *communication.Condition) (string, error) {
	if c == nil {
		return "", nil
	}
	clause, err := b.condition(*c)
	if err != nil {
		return "", err
	}
	return " WHERE " + clause, nil
}

func native(statement string, args []interface{}) adapter.NativeQuery {
	nq := adapter.NativeQuery{Language: "cql", Statement: statement}
	if len(args) > 0 {
		nq.Params = map[string]interface{}{"args": args}
	}
	return nq
}

// TranslateSelect renders SELECT. CQL has no offset, so LIMIT covers skip+limit and
// the skipped rows are dropped after reading.
func (t Translator) TranslateSelect(q communication.SelectQuery) (adapter.NativeQuery, error) {
	if q.Entity == "" {
		return adapter.NativeQuery{}, communication.ErrEntityRequired
	}
	b := &cqlBuilder{}

	columns := "*"
	if len(q.Fields) > 0 {
		quoted := make([]string, len(q.Fields))
		for i, f := range q.Fields {
			quoted[i] = quote(f)
		}
		columns = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + columns + " FROM " + quote(q.Entity))
	clause, err := where(b, q.Condition)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	sb.WriteString(clause)

	if len(q.Sorts) > 0 {
		orders := make([]string, len(q.Sorts))
		for i, s := range q.Sorts {
			orders[i] = quote(s.Name) + " " + s.Direction.String()
		}
		sb.WriteString(" ORDER BY " + strings.Join(orders, ", "))
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + strconv.FormatInt(q.Skip+q.Limit, 10))
	}
	if t.AllowFiltering {
		sb.WriteString(" ALLOW FILTERING")
	}
	return native(sb.String(), b.args), nil
}

// TranslateDelete renders DELETE, or TRUNCATE when there is no condition and no fields.
func (t Translator) TranslateDelete(q communication.DeleteQuery) (adapter.NativeQuery, error) {
	if q.Entity == "" {
		return adapter.NativeQuery{}, communication.ErrEntityRequired
	}
	if q.Condition == nil && len(q.Fields) == 0 {
		return native("TRUNCATE "+quote(q.Entity), nil), nil
	}
	b := &cqlBuilder{}

	var sb strings.Builder
	sb.WriteString("DELETE ")
	if len(q.Fields) > 0 {
		quoted := make([]string, len(q.Fields))
		for i, f := range q.Fields {
			quoted[i] = quote(f)
		}
		sb.WriteString(strings.Join(quoted, ", ") + " ")
	}
	sb.WriteString("FROM " + quote(q.Entity))
	clause, err := where(b, q.Condition)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	sb.WriteString(clause)
	return native(sb.String(), b.args), nil
}

// insertCQL renders an INSERT of the entity's elements, with USING TTL when ttl is set.
func insertCQL(entity communication.Entity, ttl time.Duration) (string, []interface{}) {
	columns := make([]string, 0, len(entity.Elements))
	markers := make([]string, 0, len(entity.Elements))
	args := make([]interface{}, 0, len(entity.Elements))
	for _, el := range entity.Elements {
		columns = append(columns, quote(el.Name))
		markers = append(markers, "?")
		args = append(args, communication.ToNative(el.Value))
	}
	statement := "INSERT INTO " + quote(entity.Name) +
		" (" + strings.Join(columns, ", ") + ") VALUES (" + strings.Join(markers, ", ") + ")"
	if ttl > 0 {
		seconds := int64(ttl / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		statement += " USING TTL " + strconv.FormatInt(seconds, 10)
	}
	return statement, args
}

func countCQL(entity string) string {
	return "SELECT COUNT(*) FROM " + quote(entity)
}
