package mongodb

import (
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
)

const (
	keyField   = "_id"
	driverName = "mongodb"
)

// toFilter converts a condition tree into a query filter. A nil condition matches everything.
func toFilter(c *communication.Condition) (bson.D, error) {
	if c == nil {
		return bson.D{}, nil
	}
	return convertCondition(*c)
}

func convertCondition(c communication.Condition) (bson.D, error) {
	name := c.Element.Name
	switch c.Operator {
	case communication.Equals:
		return fieldOperator(name, "$eq", keyValue(name, c.Element.Value)), nil
	case communication.GreaterThan:
		return fieldOperator(name, "$gt", c.Element.Value), nil
	case communication.GreaterEqualsThan:
		return fieldOperator(name, "$gte", c.Element.Value), nil
	case communication.LesserThan:
		return fieldOperator(name, "$lt", c.Element.Value), nil
	case communication.LesserEqualsThan:
		return fieldOperator(name, "$lte", c.Element.Value), nil
	case communication.Like:
		pattern, ok := c.Element.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: LIKE on %q requires a string pattern", communication.ErrInvalidCondition, name)
		}
		return fieldOperator(name, "$regex", communication.LikeToRegex(pattern)), nil
	case communication.In:
		values, ok := communication.ToSlice(c.Element.Value)
		if !ok {
			return nil, fmt.Errorf("%w: IN on %q requires a list", communication.ErrInvalidCondition, name)
		}
		arr := make(bson.A, len(values))
		for i, v := range values {
			arr[i] = keyValue(name, v)
		}
		return fieldOperator(name, "$in", arr), nil
	case communication.Between:
		low, high, ok := c.BetweenBounds()
		if !ok {
			return nil, fmt.Errorf("%w: BETWEEN on %q requires two values", communication.ErrInvalidCondition, name)
		}
		return bson.D{{Key: name, Value: bson.D{{Key: "$gte", Value: low}, {Key: "$lte", Value: high}}}}, nil
	case communication.And, communication.Or:
		children := c.Children()
		if len(children) == 0 {
			return nil, fmt.Errorf("%w: %s without conditions", communication.ErrInvalidCondition, c.Operator)
		}
		arr := make(bson.A, 0, len(children))
		for _, child := range children {
			doc, err := convertCondition(child)
			if err != nil {
				return nil, err
			}
			arr = append(arr, doc)
		}
		op := "$and"
		if c.Operator == communication.Or {
			op = "$or"
		}
		return bson.D{{Key: op, Value: arr}}, nil
	case communication.Not:
		inner, ok := c.Inner()
		if !ok {
			return nil, fmt.Errorf("%w: NOT requires a condition", communication.ErrInvalidCondition)
		}
		doc, err := convertCondition(inner)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "$nor", Value: bson.A{doc}}}, nil
	}
	return nil, communication.UnsupportedCondition(driverName, c.Operator)
}

func fieldOperator(name, op string, value interface{}) bson.D {
	return bson.D{{Key: name, Value: bson.D{{Key: op, Value: toBSONValue(value)}}}}
}

// keyValue turns hex strings compared against _id into object ids.
func keyValue(name string, v interface{}) interface{} {
	if name != keyField {
		return v
	}
	if s, ok := v.(string); ok {
		if oid, err := bson.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}
	return v
}

type findPlan struct {
	collection string
	filter     bson.D
	projection bson.D
	sort       bson.D
	skip       int64
	limit      int64
}

func buildFind(q communication.SelectQuery) (findPlan, error) {
	if q.Entity == "" {
		return findPlan{}, communication.ErrEntityRequired
	}
	filter, err := toFilter(q.Condition)
	if err != nil {
		return findPlan{}, err
	}
	plan := findPlan{collection: q.Entity, filter: filter, skip: q.Skip, limit: q.Limit}
	for _, f := range q.Fields {
		plan.projection = append(plan.projection, bson.E{Key: f, Value: 1})
	}
	for _, s := range q.Sorts {
		dir := 1
		if s.Direction == communication.Desc {
			dir = -1
		}
		plan.sort = append(plan.sort, bson.E{Key: s.Name, Value: dir})
	}
	return plan, nil
}

func findCommand(q communication.SelectQuery) (bson.D, error) {
	plan, err := buildFind(q)
	if err != nil {
		return nil, err
	}
	cmd := bson.D{{Key: "find", Value: plan.collection}, {Key: "filter", Value: plan.filter}}
	if len(plan.projection) > 0 {
		cmd = append(cmd, bson.E{Key: "projection", Value: plan.projection})
	}
	if len(plan.sort) > 0 {
		cmd = append(cmd, bson.E{Key: "sort", Value: plan.sort})
	}
	if plan.skip > 0 {
		cmd = append(cmd, bson.E{Key: "skip", Value: plan.skip})
	}
	if plan.limit > 0 {
		cmd = append(cmd, bson.E{Key: "limit", Value: plan.limit})
	}
	return cmd, nil
}

// unsetFields is the $unset document removing fields, or nil when whole documents go.
func unsetFields(fields []string) bson.D {
	if len(fields) == 0 {
		return nil
	}
	unset := make(bson.D, 0, len(fields))
	for _, f := range fields {
		unset = append(unset, bson.E{Key: f, Value: ""})
	}
	return unset
}

func deleteCommand(q communication.DeleteQuery) (bson.D, error) {
	if q.Entity == "" {
		return nil, communication.ErrEntityRequired
	}
	filter, err := toFilter(q.Condition)
	if err != nil {
		return nil, err
	}
	if unset := unsetFields(q.Fields); unset != nil {
		return bson.D{
			{Key: "update", Value: q.Entity},
			{Key: "updates", Value: bson.A{bson.D{
				{Key: "q", Value: filter},
				{Key: "u", Value: bson.D{{Key: "$unset", Value: unset}}},
				{Key: "multi", Value: true},
			}}},
		}, nil
	}
	return bson.D{
		{Key: "delete", Value: q.Entity},
		{Key: "deletes", Value: bson.A{bson.D{{Key: "q", Value: filter}, {Key: "limit", Value: 0}}}},
	}, nil
}

func renderCommand(cmd bson.D) (adapter.NativeQuery, error) {
	out, err := bson.MarshalExtJSON(cmd, false, false)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	return adapter.NativeQuery{Language: "bson", Statement: string(out)}, nil
}

// toDocument converts an entity into a document keeping the element order.
func toDocument(e communication.Entity) bson.D {
	doc := make(bson.D, 0, len(e.Elements))
	for _, el := range e.Elements {
		doc = append(doc, bson.E{Key: el.Name, Value: toBSONValue(keyValue(el.Name, el.Value))})
	}
	return doc
}

func toBSONValue(v interface{}) interface{} {
	switch t := v.(type) {
	case communication.Entity:
		return toDocument(t)
	case *communication.Entity:
		return toDocument(*t)
	case []communication.Element:
		return toDocument(communication.Entity{Elements: t})
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		doc := make(bson.D, 0, len(t))
		for _, k := range keys {
			doc = append(doc, bson.E{Key: k, Value: toBSONValue(t[k])})
		}
		return doc
	case []interface{}:
		arr := make(bson.A, len(t))
		for i, item := range t {
			arr[i] = toBSONValue(item)
		}
		return arr
	case []communication.Entity:
		arr := make(bson.A, len(t))
		for i, item := range t {
			arr[i] = toDocument(item)
		}
		return arr
	default:
		return v
	}
}

// fromDocument converts a stored document back into an entity.
func fromDocument(collection string, doc bson.D) communication.Entity {
	e := communication.NewEntity(collection)
	for _, el := range doc {
		e.Elements = append(e.Elements, communication.Element{Name: el.Key, Value: fromBSONValue(el.Value)})
	}
	return e
}

func fromBSONValue(v interface{}) interface{} {
	switch val := v.(type) {
	case bson.ObjectID:
		return val.Hex()
	case bson.DateTime:
		return val.Time().UTC()
	case bson.Binary:
		return val.Data
	case bson.Decimal128:
		return val.String()
	case bson.D:
		return fromDocument("", val)
	case bson.M:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		doc := make(bson.D, 0, len(val))
		for _, k := range keys {
			doc = append(doc, bson.E{Key: k, Value: val[k]})
		}
		return fromDocument("", doc)
	case bson.A:
		arr := make([]interface{}, len(val))
		for i, item := range val {
			arr[i] = fromBSONValue(item)
		}
		return arr
	default:
		return v
	}
}
