package arangodb

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

const (
	keyField     = "_key"
	docVar       = "d"
	collectionBV = "@collection"

	// maxLimit is the largest count AQL accepts in LIMIT offset, count.
	maxLimit = 9007199254740991
)

var (
	driverName = string(dbcapabilities.ArangoDB)
	identRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// attribute renders a dotted element name as an attribute access on the loop variable.
func attribute(name string) string {
	var b strings.Builder
	b.WriteString(docVar)
	for _, part := range strings.Split(name, ".") {
		if identRe.MatchString(part) {
			b.WriteString("." + part)
		} else {
			b.WriteString("[" + strconv.Quote(part) + "]")
		}
	}
	return b.String()
}

// aqlBuilder turns a condition tree into an AQL filter expression.
type aqlBuilder struct {
	params *common.BindParams
}

func (b *aqlBuilder) bind(name string, value interface{}) string {
	return "@" + b.params.Bind(name, value)
}

func (b *aqlBuilder) condition(c communication.Condition) (string, error) {
	attr := attribute(c.Element.Name)
	switch c.Operator {
	case communication.Equals:
		return attr + " == " + b.bind(c.Element.Name, c.Element.Value), nil
	case communication.GreaterThan:
		return attr + " > " + b.bind(c.Element.Name, c.Element.Value), nil
	case communication.GreaterEqualsThan:
		return attr + " >= " + b.bind(c.Element.Name, c.Element.Value), nil
	case communication.LesserThan:
		return attr + " < " + b.bind(c.Element.Name, c.Element.Value), nil
	case communication.LesserEqualsThan:
		return attr + " <= " + b.bind(c.Element.Name, c.Element.Value), nil
	case communication.Like:
		if _, ok := c.Element.Value.(string); !ok {
			return "", fmt.Errorf("%w: LIKE on %q requires a string pattern", communication.ErrInvalidCondition, c.Element.Name)
		}
		return attr + " LIKE " + b.bind(c.Element.Name, c.Element.Value), nil
	case communication.In:
		values, ok := communication.ToSlice(c.Element.Value)
		if !ok {
			return "", fmt.Errorf("%w: IN on %q requires values", communication.ErrInvalidCondition, c.Element.Name)
		}
		return attr + " IN " + b.bind(c.Element.Name, values), nil
	case communication.Between:
		low, high, ok := c.BetweenBounds()
		if !ok {
			return "", fmt.Errorf("%w: BETWEEN on %q requires two values", communication.ErrInvalidCondition, c.Element.Name)
		}
		return fmt.Sprintf("(%s >= %s AND %s <= %s)", attr, b.bind(c.Element.Name, low), attr, b.bind(c.Element.Name, high)), nil
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

// bindVars returns the bound values plus the collection bind variable.
func (b *aqlBuilder) bindVars(collection string) map[string]interface{} {
	vars := make(map[string]interface{}, b.params.Len()+1)
	for k, v := range b.params.Values() {
		vars[k] = v
	}
	vars[collectionBV] = collection
	return vars
}

// forFilter renders the FOR and FILTER lines shared by selects and deletes.
func (b *aqlBuilder) forFilter(entity string, c *communication.Condition) (string, error) {
	if entity == "" {
		return "", communication.ErrEntityRequired
	}
	aql := "FOR " + docVar + " IN @" + collectionBV
	if c != nil {
		filter, err := b.condition(*c)
		if err != nil {
			return "", err
		}
		aql += " FILTER " + filter
	}
	return aql, nil
}

func projection(fields []string) string {
	if len(fields) == 0 {
		return docVar
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = strconv.Quote(f) + ": " + attribute(f)
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// selectAQL renders q as a FOR ... RETURN query with its bind variables.
func selectAQL(q communication.SelectQuery) (string, map[string]interface{}, error) {
	b := &aqlBuilder{params: common.NewBindParams()}
	aql, err := b.forFilter(q.Entity, q.Condition)
	if err != nil {
		return "", nil, err
	}
	if len(q.Sorts) > 0 {
		sorts := make([]string, len(q.Sorts))
		for i, s := range q.Sorts {
			sorts[i] = attribute(s.Name) + " " + s.Direction.String()
		}
		aql += " SORT " + strings.Join(sorts, ", ")
	}
	if q.Skip > 0 || q.Limit > 0 {
		limit := q.Limit
		if limit <= 0 {
			limit = maxLimit
		}
		aql += fmt.Sprintf(" LIMIT %d, %d", q.Skip, limit)
	}
	aql += " RETURN " + projection(q.Fields)
	return aql, b.bindVars(q.Entity), nil
}

// unsetDocument builds the nested null-valued object that removes fields when
// updated with keepNull false.
func unsetDocument(fields []string) map[string]interface{} {
	doc := make(map[string]interface{})
	for _, f := range fields {
		parts := strings.Split(f, ".")
		cur := doc
		for _, p := range parts[:len(parts)-1] {
			next, ok := cur[p].(map[string]interface{})
			if !ok {
				next = make(map[string]interface{})
				cur[p] = next
			}
			cur = next
		}
		cur[parts[len(parts)-1]] = nil
	}
	return doc
}

// deleteAQL renders q as REMOVE, or as UPDATE unsetting q.Fields.
func deleteAQL(q communication.DeleteQuery) (string, map[string]interface{}, error) {
	b := &aqlBuilder{params: common.NewBindParams()}
	aql, err := b.forFilter(q.Entity, q.Condition)
	if err != nil {
		return "", nil, err
	}
	if len(q.Fields) > 0 {
		unset := b.bind("unset", unsetDocument(q.Fields))
		aql += " UPDATE " + docVar + " WITH " + unset + " IN @" + collectionBV + " OPTIONS { keepNull: false }"
	} else {
		aql += " REMOVE " + docVar + " IN @" + collectionBV
	}
	return aql, b.bindVars(q.Entity), nil
}

// Translator renders queries as AQL.
type Translator struct{}

// TranslateSelect renders the FOR ... RETURN query.
func (Translator) TranslateSelect(q communication.SelectQuery) (adapter.NativeQuery, error) {
	aql, params, err := selectAQL(q)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	return adapter.NativeQuery{Language: "aql", Statement: aql, Params: params}, nil
}

// TranslateDelete renders the REMOVE or UPDATE query.
func (Translator) TranslateDelete(q communication.DeleteQuery) (adapter.NativeQuery, error) {
	aql, params, err := deleteAQL(q)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	return adapter.NativeQuery{Language: "aql", Statement: aql, Params: params}, nil
}
