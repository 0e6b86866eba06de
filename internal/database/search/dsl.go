package search

import (
	"encoding/json"
	"fmt"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
)

const (
	// EntityField holds the entity kind inside each document.
	EntityField = "@entity"

	// KeyField is the entity element mapped to the document id.
	KeyField = "_id"

	// DefaultMaxResults caps searches without a limit.
	DefaultMaxResults = 10000
)

// Query converts a condition tree into a query clause.
func Query(driver string, c communication.Condition) (map[string]interface{}, error) {
	name := c.Element.Name
	switch c.Operator {
	case communication.Equals:
		return map[string]interface{}{"term": map[string]interface{}{name: c.Element.Value}}, nil
	case communication.GreaterThan:
		return rangeClause(name, "gt", c.Element.Value), nil
	case communication.GreaterEqualsThan:
		return rangeClause(name, "gte", c.Element.Value), nil
	case communication.LesserThan:
		return rangeClause(name, "lt", c.Element.Value), nil
	case communication.LesserEqualsThan:
		return rangeClause(name, "lte", c.Element.Value), nil
	case communication.Like:
		pattern, ok := c.Element.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: LIKE on %q requires a string pattern", communication.ErrInvalidCondition, name)
		}
		return map[string]interface{}{
			"wildcard": map[string]interface{}{name: map[string]interface{}{"value": communication.LikeToWildcard(pattern)}},
		}, nil
	case communication.In:
		values, ok := communication.ToSlice(c.Element.Value)
		if !ok {
			return nil, fmt.Errorf("%w: IN on %q requires a list", communication.ErrInvalidCondition, name)
		}
		return map[string]interface{}{"terms": map[string]interface{}{name: values}}, nil
	case communication.Between:
		low, high, ok := c.BetweenBounds()
		if !ok {
			return nil, fmt.Errorf("%w: BETWEEN on %q requires two values", communication.ErrInvalidCondition, name)
		}
		return map[string]interface{}{
			"range": map[string]interface{}{name: map[string]interface{}{"gte": low, "lte": high}},
		}, nil
	case communication.And, communication.Or:
		clauses, err := queries(driver, c.Children())
		if err != nil {
			return nil, err
		}
		if c.Operator == communication.And {
			return boolQuery("must", clauses), nil
		}
		q := boolQuery("should", clauses)
		q["bool"].(map[string]interface{})["minimum_should_match"] = 1
		return q, nil
	case communication.Not:
		inner, ok := c.Inner()
		if !ok {
			return nil, fmt.Errorf("%w: NOT requires a condition", communication.ErrInvalidCondition)
		}
		clause, err := Query(driver, inner)
		if err != nil {
			return nil, err
		}
		return boolQuery("must_not", []interface{}{clause}), nil
	}
	return nil, communication.UnsupportedCondition(driver, c.Operator)
}

func queries(driver string, conditions []communication.Condition) ([]interface{}, error) {
	if len(conditions) == 0 {
		return nil, fmt.Errorf("%w: empty condition list", communication.ErrInvalidCondition)
	}
	out := make([]interface{}, 0, len(conditions))
	for _, child := range conditions {
		clause, err := Query(driver, child)
		if err != nil {
			return nil, err
		}
		out = append(out, clause)
	}
	return out, nil
}

func rangeClause(name, op string, value interface{}) map[string]interface{} {
	return map[string]interface{}{"range": map[string]interface{}{name: map[string]interface{}{op: value}}}
}

func boolQuery(occur string, clauses []interface{}) map[string]interface{} {
	return map[string]interface{}{"bool": map[string]interface{}{occur: clauses}}
}

// EntityQuery restricts a condition to one entity kind.
func EntityQuery(driver, entity string, c *communication.Condition) (map[string]interface{}, error) {
	if entity == "" {
		return nil, communication.ErrEntityRequired
	}
	filter := []interface{}{map[string]interface{}{"term": map[string]interface{}{EntityField: entity}}}
	if c != nil {
		clause, err := Query(driver, *c)
		if err != nil {
			return nil, err
		}
		filter = append(filter, clause)
	}
	return boolQuery("filter", filter), nil
}

// SearchBody builds the _search request body for a select query. The document id
// is not part of _source, so listing it in the fields only keeps it in the results.
func SearchBody(driver string, q communication.SelectQuery, maxResults int) (map[string]interface{}, error) {
	query, err := EntityQuery(driver, q.Entity, q.Condition)
	if err != nil {
		return nil, err
	}
	body := map[string]interface{}{"query": query}
	if q.Skip > 0 {
		body["from"] = q.Skip
	}
	size := int64(maxResults)
	if q.Limit > 0 {
		size = q.Limit
	}
	body["size"] = size
	if len(q.Sorts) > 0 {
		sorts := make([]interface{}, 0, len(q.Sorts))
		for _, s := range q.Sorts {
			order := "asc"
			if s.Direction == communication.Desc {
				order = "desc"
			}
			sorts = append(sorts, map[string]interface{}{s.Name: map[string]interface{}{"order": order}})
		}
		body["sort"] = sorts
	}
	if len(q.Fields) > 0 {
		source := make([]string, 0, len(q.Fields))
		for _, f := range q.Fields {
			if f != KeyField {
				source = append(source, f)
			}
		}
		if len(source) > 0 {
			body["_source"] = source
		} else {
			body["_source"] = false
		}
	}
	return body, nil
}

// DeleteBody builds a _delete_by_query body, or an _update_by_query body removing the
// query fields when any are listed. The boolean reports the latter.
func DeleteBody(driver string, q communication.DeleteQuery) (map[string]interface{}, bool, error) {
	query, err := EntityQuery(driver, q.Entity, q.Condition)
	if err != nil {
		return nil, false, err
	}
	body := map[string]interface{}{"query": query}
	if len(q.Fields) == 0 {
		return body, false, nil
	}
	body["script"] = map[string]interface{}{
		"source": "for (f in params.fields) { ctx._source.remove(f) }",
		"lang":   "painless",
		"params": map[string]interface{}{"fields": q.Fields},
	}
	return body, true, nil
}

// Translator renders select and delete queries as query DSL.
type Translator struct {
	Driver     string
	MaxResults int
}

// TranslateSelect renders the _search body.
func (t Translator) TranslateSelect(q communication.SelectQuery) (adapter.NativeQuery, error) {
	max := t.MaxResults
	if max <= 0 {
		max = DefaultMaxResults
	}
	body, err := SearchBody(t.Driver, q, max)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	return render(body, "_search")
}

// TranslateDelete renders the _delete_by_query or _update_by_query body.
func (t Translator) TranslateDelete(q communication.DeleteQuery) (adapter.NativeQuery, error) {
	body, update, err := DeleteBody(t.Driver, q)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	endpoint := "_delete_by_query"
	if update {
		endpoint = "_update_by_query"
	}
	return render(body, endpoint)
}

func render(body map[string]interface{}, endpoint string) (adapter.NativeQuery, error) {
	out, err := json.Marshal(body)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	return adapter.NativeQuery{
		Language:  "query-dsl",
		Statement: string(out),
		Params:    map[string]interface{}{"endpoint": endpoint},
	}, nil
}
