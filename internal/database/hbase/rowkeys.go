package hbase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

const keyField = "id"

var driverName = string(dbcapabilities.HBase)

// rowKeys resolves a condition on the row key into the set of rows it names. Only
// Equals and In on "id" and Or of those are expressible; a nil condition means a scan
// and is reported with all set to true.
func rowKeys(c *communication.Condition) (keys []string, all bool, err error) {
	if c == nil {
		return nil, true, nil
	}
	set := make(map[string]struct{})
	if err := collectKeys(*c, set); err != nil {
		return nil, false, err
	}
	keys = make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, false, nil
}

func collectKeys(c communication.Condition, set map[string]struct{}) error {
	switch c.Operator {
	case communication.Equals, communication.In:
		if c.Element.Name != keyField {
			return fmt.Errorf("%w: %s only filters on the row key %q, not %q",
				communication.ErrUnsupportedCondition, driverName, keyField, c.Element.Name)
		}
		if c.Operator == communication.Equals {
			set[fmt.Sprint(c.Element.Value)] = struct{}{}
			return nil
		}
		values, ok := communication.ToSlice(c.Element.Value)
		if !ok {
			return fmt.Errorf("%w: IN on %q requires values", communication.ErrInvalidCondition, c.Element.Name)
		}
		for _, v := range values {
			set[fmt.Sprint(v)] = struct{}{}
		}
		return nil
	case communication.Or:
		for _, child := range c.Children() {
			if err := collectKeys(child, set); err != nil {
				return err
			}
		}
		return nil
	}
	return communication.UnsupportedCondition(driverName, c.Operator)
}

func native(entity string, c *communication.Condition) (adapter.NativeQuery, error) {
	if entity == "" {
		return adapter.NativeQuery{}, communication.ErrEntityRequired
	}
	keys, all, err := rowKeys(c)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	if all {
		return adapter.NativeQuery{Language: "hbase", Statement: "SCAN " + entity, Params: map[string]interface{}{"table": entity}}, nil
	}
	return adapter.NativeQuery{
		Language:  "hbase",
		Statement: "GET " + entity + " " + strings.Join(keys, ","),
		Params:    map[string]interface{}{"table": entity, "rows": keys},
	}, nil
}

// Translator renders queries as the row operations they resolve to.
type Translator struct{}

// TranslateSelect returns a GET of the named rows or a SCAN of the table.
func (Translator) TranslateSelect(q communication.SelectQuery) (adapter.NativeQuery, error) {
	return native(q.Entity, q.Condition)
}

// TranslateDelete returns the rows a delete touches.
func (Translator) TranslateDelete(q communication.DeleteQuery) (adapter.NativeQuery, error) {
	nq, err := native(q.Entity, q.Condition)
	if err != nil {
		return nq, err
	}
	if len(q.Fields) > 0 {
		nq.Params["columns"] = q.Fields
	}
	return nq, nil
}
