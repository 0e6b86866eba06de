package ravendb

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

const (
	keyField      = "id"
	metadataField = "@metadata"

	// maxTake is the page size used when only a skip is given.
	maxTake = 2147483647
)

var (
	driverName = string(dbcapabilities.RavenDB)
	pathRe     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)
)

func quote(s string) string {
	return "'" + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), "'", `\'`) + "'"
}

// field renders an element name; the key maps to id().
func field(name string) string {
	if name == keyField {
		return "id()"
	}
	if pathRe.MatchString(name) {
		return name
	}
	return quote(name)
}

type rqlBuilder struct {
	params *common.BindParams
}

func (b *rqlBuilder) bind(name string, value interface{}) string {
	return "$" + b.params.Bind(name, value)
}

// like picks startsWith or endsWith for single-sided patterns and regex otherwise.
func (b *rqlBuilder) like(name, pattern string) string {
	f := field(name)
	plain := func(s string) bool { return !strings.ContainsAny(s, "%_") }
	switch {
	case strings.HasSuffix(pattern, "%") && plain(pattern[:len(pattern)-1]):
		return fmt.Sprintf("startsWith(%s, %s)", f, b.bind(name, pattern[:len(pattern)-1]))
	case strings.HasPrefix(pattern, "%") && plain(pattern[1:]):
		return fmt.Sprintf("endsWith(%s, %s)", f, b.bind(name, pattern[1:]))
	}
	return fmt.Sprintf("regex(%s, %s)", f, b.bind(name, communication.LikeToRegex(pattern)))
}

func (b *rqlBuilder) condition(c communication.Condition) (string, error) {
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
		return b.like(c.Element.Name, pattern), nil
	case communication.In:
		values, ok := communication.ToSlice(c.Element.Value)
		if !ok {
			return "", fmt.Errorf("%w: IN on %q requires values", communication.ErrInvalidCondition, c.Element.Name)
		}
		return f + " in (" + b.bind(c.Element.Name, values) + ")", nil
	case communication.Between:
		low, high, ok := c.BetweenBounds()
		if !ok {
			return "", fmt.Errorf("%w: BETWEEN on %q requires two values", communication.ErrInvalidCondition, c.Element.Name)
		}
		return fmt.Sprintf("%s between %s and %s", f, b.bind(c.Element.Name, low), b.bind(c.Element.Name, high)), nil
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
		return "(" + strings.Join(parts, " "+strings.ToLower(c.Operator.String())+" ") + ")", nil
	case communication.Not:
		inner, ok := c.Inner()
		if !ok {
			return "", fmt.Errorf("%w: NOT requires a condition", communication.ErrInvalidCondition)
		}
		part, err := b.condition(inner)
		if err != nil {
			return "", err
		}
		// RQL has no unary not
		return "(true and not (" + part + "))", nil
	}
	return "", communication.UnsupportedCondition(driverName, c.Operator)
}

func (b *rqlBuilder) fromWhere(entity string, c *communication.Condition) (string, error) {
	if entity == "" {
		return "", communication.ErrEntityRequired
	}
	rql := "from " + quote(entity)
	if c != nil {
		clause, err := b.condition(*c)
		if err != nil {
			return "", err
		}
		rql += " where " + clause
	}
	return rql, nil
}

// selectRQL renders q with $-named parameters.
func selectRQL(q communication.SelectQuery) (string, map[string]interface{}, error) {
	b := &rqlBuilder{params: common.NewBindParams()}
	rql, err := b.fromWhere(q.Entity, q.Condition)
	if err != nil {
		return "", nil, err
	}
	if len(q.Sorts) > 0 {
		sorts := make([]string, len(q.Sorts))
		for i, s := range q.Sorts {
			sorts[i] = field(s.Name) + " " + strings.ToLower(s.Direction.String())
		}
		rql += " order by " + strings.Join(sorts, ", ")
	}
	if len(q.Fields) > 0 {
		fields := make([]string, len(q.Fields))
		for i, f := range q.Fields {
			fields[i] = field(f)
		}
		rql += " select " + strings.Join(fields, ", ")
	}
	if q.Skip > 0 || q.Limit > 0 {
		take := q.Limit
		if take <= 0 {
			take = maxTake
		}
		rql += fmt.Sprintf(" limit %d, %d", q.Skip, take)
	}
	return rql, b.params.Values(), nil
}

// deleteRQL renders the query selecting the documents a delete touches.
func deleteRQL(q communication.DeleteQuery) (string, map[string]interface{}, error) {
	b := &rqlBuilder{params: common.NewBindParams()}
	rql, err := b.fromWhere(q.Entity, q.Condition)
	if err != nil {
		return "", nil, err
	}
	return rql, b.params.Values(), nil
}

// Translator renders queries as RQL.
type Translator struct{}

// TranslateSelect renders the query.
func (Translator) TranslateSelect(q communication.SelectQuery) (adapter.NativeQuery, error) {
	rql, params, err := selectRQL(q)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	return adapter.NativeQuery{Language: "rql", Statement: rql, Params: params}, nil
}

// TranslateDelete renders the query whose results are deleted, or have q.Fields removed.
func (Translator) TranslateDelete(q communication.DeleteQuery) (adapter.NativeQuery, error) {
	rql, params, err := deleteRQL(q)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	if len(q.Fields) > 0 {
		params["@fields"] = q.Fields
	}
	return adapter.NativeQuery{Language: "rql", Statement: rql, Params: params}, nil
}
