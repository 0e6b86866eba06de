package dynamodb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

var driverName = string(dbcapabilities.DynamoDB)

// expression collects the #name and :value placeholders of a filter or projection.
type expression struct {
	names     map[string]string
	values    map[string]interface{}
	nameIndex map[string]string
}

func newExpression() *expression {
	return &expression{
		names:     make(map[string]string),
		values:    make(map[string]interface{}),
		nameIndex: make(map[string]string),
	}
}

// path returns the placeholder path of a dotted attribute name. Each segment gets
// one #nN placeholder that is reused on repeated mentions.
func (e *expression) path(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		ph, ok := e.nameIndex[p]
		if !ok {
			ph = "#n" + strconv.Itoa(len(e.nameIndex))
			e.nameIndex[p] = ph
			e.names[ph] = p
		}
		parts[i] = ph
	}
	return strings.Join(parts, ".")
}

func (e *expression) value(v interface{}) string {
	ph := ":v" + strconv.Itoa(len(e.values))
	e.values[ph] = v
	return ph
}

func (e *expression) condition(c communication.Condition) (string, error) {
	switch c.Operator {
	case communication.Equals:
		return e.path(c.Element.Name) + " = " + e.value(c.Element.Value), nil
	case communication.GreaterThan:
		return e.path(c.Element.Name) + " > " + e.value(c.Element.Value), nil
	case communication.GreaterEqualsThan:
		return e.path(c.Element.Name) + " >= " + e.value(c.Element.Value), nil
	case communication.LesserThan:
		return e.path(c.Element.Name) + " < " + e.value(c.Element.Value), nil
	case communication.LesserEqualsThan:
		return e.path(c.Element.Name) + " <= " + e.value(c.Element.Value), nil
	case communication.Like:
		pattern, ok := c.Element.Value.(string)
		if !ok {
			return "", fmt.Errorf("%w: LIKE on %q requires a string pattern", communication.ErrInvalidCondition, c.Element.Name)
		}
		return e.like(c.Element.Name, pattern)
	case communication.In:
		values, ok := communication.ToSlice(c.Element.Value)
		if !ok || len(values) == 0 {
			return "", fmt.Errorf("%w: IN on %q requires values", communication.ErrInvalidCondition, c.Element.Name)
		}
		placeholders := make([]string, len(values))
		path := e.path(c.Element.Name)
		for i, v := range values {
			placeholders[i] = e.value(v)
		}
		return path + " IN (" + strings.Join(placeholders, ", ") + ")", nil
	case communication.Between:
		low, high, ok := c.BetweenBounds()
		if !ok {
			return "", fmt.Errorf("%w: BETWEEN on %q requires two values", communication.ErrInvalidCondition, c.Element.Name)
		}
		path := e.path(c.Element.Name)
		return path + " BETWEEN " + e.value(low) + " AND " + e.value(high), nil
	case communication.And, communication.Or:
		children := c.Children()
		if len(children) == 0 {
			return "", fmt.Errorf("%w: %s without conditions", communication.ErrInvalidCondition, c.Operator)
		}
		parts := make([]string, 0, len(children))
		for _, child := range children {
			part, err := e.condition(child)
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
		part, err := e.condition(inner)
		if err != nil {
			return "", err
		}
		return "NOT (" + part + ")", nil
	}
	return "", communication.UnsupportedCondition(driverName, c.Operator)
}

// like supports prefix patterns through begins_with and infix patterns through contains.
// A pattern of only % matches any present attribute.
func (e *expression) like(name, pattern string) (string, error) {
	plain := func(s string) bool { return s != "" && !strings.ContainsAny(s, "%_") }
	switch {
	case pattern != "" && strings.Trim(pattern, "%") == "":
		return "attribute_exists(" + e.path(name) + ")", nil
	case strings.HasPrefix(pattern, "%") && strings.HasSuffix(pattern, "%") && len(pattern) > 1 && plain(pattern[1:len(pattern)-1]):
		return "contains(" + e.path(name) + ", " + e.value(pattern[1:len(pattern)-1]) + ")", nil
	case strings.HasSuffix(pattern, "%") && plain(pattern[:len(pattern)-1]):
		return "begins_with(" + e.path(name) + ", " + e.value(pattern[:len(pattern)-1]) + ")", nil
	case plain(pattern):
		return e.path(name) + " = " + e.value(pattern), nil
	}
	return "", fmt.Errorf("%w: %s cannot match the pattern %q on %q",
		communication.ErrUnsupportedCondition, driverName, pattern, name)
}

func (e *expression) projection(fields []string) string {
	paths := make([]string, len(fields))
	for i, f := range fields {
		paths[i] = e.path(f)
	}
	return strings.Join(paths, ", ")
}

// attributeValues marshals the collected values.
func (e *expression) attributeValues() (map[string]types.AttributeValue, error) {
	if len(e.values) == 0 {
		return nil, nil
	}
	out := make(map[string]types.AttributeValue, len(e.values))
	for ph, v := range e.values {
		av, err := attributevalue.Marshal(communication.ToNative(v))
		if err != nil {
			return nil, fmt.Errorf("value %s: %w", ph, err)
		}
		out[ph] = av
	}
	return out, nil
}

func (e *expression) attributeNames() map[string]string {
	if len(e.names) == 0 {
		return nil
	}
	return e.names
}

// scanPlan is the rendered filter and projection of a scan.
type scanPlan struct {
	filter     string
	projection string
	expr       *expression
}

func buildScan(entity string, c *communication.Condition, fields []string) (scanPlan, error) {
	if entity == "" {
		return scanPlan{}, communication.ErrEntityRequired
	}
	plan := scanPlan{expr: newExpression()}
	if c != nil {
		filter, err := plan.expr.condition(*c)
		if err != nil {
			return scanPlan{}, err
		}
		plan.filter = filter
	}
	if len(fields) > 0 {
		plan.projection = plan.expr.projection(fields)
	}
	return plan, nil
}

func (s scanPlan) native(table string) adapter.NativeQuery {
	params := map[string]interface{}{"table": table}
	if len(s.expr.names) > 0 {
		params["names"] = s.expr.names
	}
	if len(s.expr.values) > 0 {
		params["values"] = s.expr.values
	}
	if s.projection != "" {
		params["projection"] = s.projection
	}
	return adapter.NativeQuery{Language: "dynamodb-expression", Statement: s.filter, Params: params}
}

// Translator renders queries as DynamoDB scan expressions.
type Translator struct{}

// TranslateSelect renders the filter and projection expressions of the scan.
func (Translator) TranslateSelect(q communication.SelectQuery) (adapter.NativeQuery, error) {
	plan, err := buildScan(q.Entity, q.Condition, q.Fields)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	nq := plan.native(q.Entity)
	if len(q.Sorts) > 0 {
		sorts := make([]string, len(q.Sorts))
		for i, s := range q.Sorts {
			sorts[i] = s.Name + " " + s.Direction.String()
		}
		nq.Params["sort"] = sorts
	}
	return nq, nil
}

// TranslateDelete renders the filter of the scan that finds the items to delete.
func (Translator) TranslateDelete(q communication.DeleteQuery) (adapter.NativeQuery, error) {
	plan, err := buildScan(q.Entity, q.Condition, nil)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	nq := plan.native(q.Entity)
	if len(q.Fields) > 0 {
		nq.Params["remove"] = q.Fields
	}
	return nq, nil
}
