package solr

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

const (
	entityField       = "_entity"
	keyField          = "id"
	versionField      = "_version_"
	defaultMaxResults = 10000
)

var driverName = string(dbcapabilities.Solr)

// escapeTerm backslash-escapes the Lucene query syntax characters.
func escapeTerm(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '+', '-', '&', '|', '!', '(', ')', '{', '}', '[', ']', '^', '"', '~', '*', '?', ':', '\\', '/', ' ':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// literal renders a value as a query term: strings quoted, numbers and booleans bare.
func literal(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return `""`
	case string:
		return strconv.Quote(t)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return strconv.Quote(t.UTC().Format(time.RFC3339Nano))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strconv.Quote(fmt.Sprint(t))
	}
}

// wildcard converts a like pattern into an escaped Lucene wildcard term.
func wildcard(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteByte('*')
		case '_':
			b.WriteByte('?')
		default:
			b.WriteString(escapeTerm(string(r)))
		}
	}
	return b.String()
}

// toQuery converts a condition tree into a Lucene query string.
func toQuery(c communication.Condition) (string, error) {
	name := escapeTerm(c.Element.Name)
	switch c.Operator {
	case communication.Equals:
		return name + ":" + literal(c.Element.Value), nil
	case communication.GreaterThan:
		return fmt.Sprintf("%s:{%s TO *]", name, literal(c.Element.Value)), nil
	case communication.GreaterEqualsThan:
		return fmt.Sprintf("%s:[%s TO *]", name, literal(c.Element.Value)), nil
	case communication.LesserThan:
		return fmt.Sprintf("%s:[* TO %s}", name, literal(c.Element.Value)), nil
	case communication.LesserEqualsThan:
		return fmt.Sprintf("%s:[* TO %s]", name, literal(c.Element.Value)), nil
	case communication.Between:
		low, high, ok := c.BetweenBounds()
		if !ok {
			return "", fmt.Errorf("%w: BETWEEN on %q requires two values", communication.ErrInvalidCondition, c.Element.Name)
		}
		return fmt.Sprintf("%s:[%s TO %s]", name, literal(low), literal(high)), nil
	case communication.Like:
		pattern, ok := c.Element.Value.(string)
		if !ok {
			return "", fmt.Errorf("%w: LIKE on %q requires a string pattern", communication.ErrInvalidCondition, c.Element.Name)
		}
		return name + ":" + wildcard(pattern), nil
	case communication.In:
		values, ok := communication.ToSlice(c.Element.Value)
		if !ok || len(values) == 0 {
			return "", fmt.Errorf("%w: IN on %q requires values", communication.ErrInvalidCondition, c.Element.Name)
		}
		terms := make([]string, len(values))
		for i, v := range values {
			terms[i] = literal(v)
		}
		return name + ":(" + strings.Join(terms, " OR ") + ")", nil
	case communication.And, communication.Or:
		children := c.Children()
		if len(children) == 0 {
			return "", fmt.Errorf("%w: %s without conditions", communication.ErrInvalidCondition, c.Operator)
		}
		parts := make([]string, 0, len(children))
		for _, child := range children {
			part, err := toQuery(child)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		sep := " AND "
		if c.Operator == communication.Or {
			sep = " OR "
		}
		return "(" + strings.Join(parts, sep) + ")", nil
	case communication.Not:
		inner, ok := c.Inner()
		if !ok {
			return "", fmt.Errorf("%w: NOT requires a condition", communication.ErrInvalidCondition)
		}
		part, err := toQuery(inner)
		if err != nil {
			return "", err
		}
		return "(*:* NOT " + part + ")", nil
	}
	return "", communication.UnsupportedCondition(driverName, c.Operator)
}

// entityQuery restricts the condition to the entity kind.
func entityQuery(entity string, c *communication.Condition) (string, error) {
	if entity == "" {
		return "", communication.ErrEntityRequired
	}
	q := entityField + ":" + literal(entity)
	if c == nil {
		return q, nil
	}
	cond, err := toQuery(*c)
	if err != nil {
		return "", err
	}
	return q + " AND " + cond, nil
}

// selectParams builds the /select request parameters.
func selectParams(q communication.SelectQuery, maxResults int) (url.Values, error) {
	query, err := entityQuery(q.Entity, q.Condition)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("wt", "json")
	if len(q.Fields) > 0 {
		params.Set("fl", strings.Join(q.Fields, ","))
	}
	if len(q.Sorts) > 0 {
		sorts := make([]string, len(q.Sorts))
		for i, s := range q.Sorts {
			sorts[i] = s.Name + " " + strings.ToLower(s.Direction.String())
		}
		params.Set("sort", strings.Join(sorts, ","))
	}
	if q.Skip > 0 {
		params.Set("start", strconv.FormatInt(q.Skip, 10))
	}
	rows := int64(maxResults)
	if q.Limit > 0 {
		rows = q.Limit
	}
	params.Set("rows", strconv.FormatInt(rows, 10))
	return params, nil
}

// Translator renders queries as Solr request parameters.
type Translator struct{}

// TranslateSelect renders the query string and the /select parameters.
func (Translator) TranslateSelect(q communication.SelectQuery) (adapter.NativeQuery, error) {
	params, err := selectParams(q, defaultMaxResults)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	native := adapter.NativeQuery{Language: "lucene", Statement: params.Get("q"), Params: map[string]interface{}{}}
	for k := range params {
		if k != "q" {
			native.Params[k] = params.Get(k)
		}
	}
	return native, nil
}

// TranslateDelete renders the delete-by-query string.
func (Translator) TranslateDelete(q communication.DeleteQuery) (adapter.NativeQuery, error) {
	query, err := entityQuery(q.Entity, q.Condition)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	return adapter.NativeQuery{Language: "lucene", Statement: query}, nil
}
