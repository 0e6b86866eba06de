package orientdb

import (
	"fmt"
	"strings"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

const (
	ridField     = "@rid"
	classField   = "@class"
	versionField = "@version"
)

var driverName = string(dbcapabilities.OrientDB)

// field backtick-quotes each segment of a dotted name. Record attributes such as
// @rid are left bare.
func field(name string) string {
	if strings.HasPrefix(name, "@") {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "\\`") + "`"
	}
	return strings.Join(parts, ".")
}

// likePattern maps the single-character wildcard to OrientDB's '?'.
func likePattern(pattern string) string {
	return strings.ReplaceAll(pattern, "_", "?")
}

type sqlBuilder struct {
	params *common.BindParams
}

func (b *sqlBuilder) bind(name string, value interface{}) string {
	return ":" + b.params.Bind(name, value)
}

func (b *sqlBuilder) condition(c communication.Condition) (string, error) {
	f := field(c.Element.Name)
	switch c.Operator {
	case communication.Equals:
		return f + " = " + b.bind(c.Element.Name, c.Element.Value), nil
	case communication.GreaterThan:
		return f + " > " + b.bind(c.Element.Name, c.Element.Value), nil
	case communication.GreaterEqualsThan:
		return f + " >= " + b.bind(c.Element.Name, c.Element.Value), nil
	case communication.LesserThan:
		return f + " < " + b.bind(c.Element.Name, c.Element.Value), nil
	case communication.LesserEqualsThan:
		return f + " <= " + b.bind(c.Element.Name, c.Element.Value), nil
	case communication.Like:
		pattern, ok := c.Element.Value.(string)
		if !ok {
			return "", fmt.Errorf("%w: LIKE on %q requires a string pattern", communication.ErrInvalidCondition, c.Element.Name)
		}
		return f + " LIKE " + b.bind(c.Element.Name, likePattern(pattern)), nil
	case communication.In:
		values, ok := communication.ToSlice(c.Element.Value)
		if !ok {
			return "", fmt.Errorf("%w: IN on %q requires values", communication.ErrInvalidCondition, c.Element.Name)
		}
		return f + " IN " + b.bind(c.Element.Name, values), nil
	case communication.Between:
		low, high, ok := c.BetweenBounds()
		if !ok {
			return "", fmt.Errorf("%w: BETWEEN on %q requires two values", communication.ErrInvalidCondition, c.Element.Name)
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", f, b.bind(c.Element.Name, low), b.bind(c.Element.Name, high)), nil
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

func (b *sqlBuilder) where(c *communication.Condition) (string, error) {
	if c == nil {
		return "", nil
	}
	clause, err := b.condition(*c)
	if err != nil {
		return "", err
	}
	return " WHERE " + clause, nil
}

// class quotes the entity as a class name.
func class(entity string) string {
	return "`" + strings.ReplaceAll(entity, "`", "\\`") + "`"
}

// selectSQL renders q with :name parameters.
func selectSQL(q communication.SelectQuery) (string, map[string]interface{}, error) {
	if q.Entity == "" {
		return "", nil, communication.ErrEntityRequired
	}
	b := &sqlBuilder{params: common.NewBindParams()}
	where, err := b.where(q.Condition)
	if err != nil {
		return "", nil, err
	}

	stmt := "SELECT "
	if len(q.Fields) > 0 {
		fields := make([]string, len(q.Fields))
		for i, f := range q.Fields {
			fields[i] = field(f)
		}
		stmt += strings.Join(fields, ", ") + " "
	}
	stmt += "FROM " + class(q.Entity) + where
	if len(q.Sorts) > 0 {
		sorts := make([]string, len(q.Sorts))
		for i, s := range q.Sorts {
			sorts[i] = field(s.Name) + " " + s.Direction.String()
		}
		stmt += " ORDER BY " + strings.Join(sorts, ", ")
	}
	if q.Skip > 0 {
		stmt += fmt.Sprintf(" SKIP %d", q.Skip)
	}
	if q.Limit > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	return stmt, b.params.Values(), nil
}

// deleteSQL renders DELETE, or UPDATE ... REMOVE when q.Fields is set.
func deleteSQL(q communication.DeleteQuery) (string, map[string]interface{}, error) {
	if q.Entity == "" {
		return "", nil, communication.ErrEntityRequired
	}
	b := &sqlBuilder{params: common.NewBindParams()}
	where, err := b.where(q.Condition)
	if err != nil {
		return "", nil, err
	}
	if len(q.Fields) == 0 {
		return "DELETE FROM " + class(q.Entity) + where, b.params.Values(), nil
	}
	fields := make([]string, len(q.Fields))
	for i, f := range q.Fields {
		fields[i] = field(f)
	}
	return "UPDATE " + class(q.Entity) + " REMOVE " + strings.Join(fields, ", ") + where, b.params.Values(), nil
}

// Translator renders queries as OrientDB SQL.
type Translator struct{}

// TranslateSelect renders the SELECT statement.
func (Translator) TranslateSelect(q communication.SelectQuery) (adapter.NativeQuery, error) {
	stmt, params, err := selectSQL(q)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	return adapter.NativeQuery{Language: "orientdb-sql", Statement: stmt, Params: params}, nil
}

// TranslateDelete renders the DELETE or UPDATE statement.
func (Translator) TranslateDelete(q communication.DeleteQuery) (adapter.NativeQuery, error) {
	stmt, params, err := deleteSQL(q)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	return adapter.NativeQuery{Language: "orientdb-sql", Statement: stmt, Params: params}, nil
}
