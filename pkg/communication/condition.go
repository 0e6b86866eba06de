package communication

import (
	"fmt"
	"reflect"
	"strings"
)

// Operator is the kind of a condition node.
type Operator int

const (
	Equals Operator = iota
	GreaterThan
	GreaterEqualsThan
	LesserThan
	LesserEqualsThan
	Like
	In
	Between
	And
	Or
	Not
)

var operatorNames = map[Operator]string{
	Equals:            "EQUALS",
	GreaterThan:       "GREATER_THAN",
	GreaterEqualsThan: "GREATER_EQUALS_THAN",
	LesserThan:        "LESSER_THAN",
	LesserEqualsThan:  "LESSER_EQUALS_THAN",
	Like:              "LIKE",
	In:                "IN",
	Between:           "BETWEEN",
	And:               "AND",
	Or:                "OR",
	Not:               "NOT",
}

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// operatorAliases maps the spellings accepted in query documents to operators.
var operatorAliases = map[string]Operator{
	"eq": Equals, "=": Equals, "==": Equals, "equals": Equals,
	"gt": GreaterThan, ">": GreaterThan, "greater_than": GreaterThan,
	"gte": GreaterEqualsThan, ">=": GreaterEqualsThan, "greater_equals_than": GreaterEqualsThan,
	"lt": LesserThan, "<": LesserThan, "lesser_than": LesserThan,
	"lte": LesserEqualsThan, "<=": LesserEqualsThan, "lesser_equals_than": LesserEqualsThan,
	"like": Like, "in": In, "between": Between,
	"and": And, "or": Or, "not": Not,
}

// ParseOperator resolves an operator from its name or a common alias.
func ParseOperator(s string) (Operator, bool) {
	op, ok := operatorAliases[strings.ToLower(strings.TrimSpace(s))]
	return op, ok
}

// Condition is a node of the query condition tree. For And/Or the element value holds
// []Condition, for Not a single Condition, for In a slice and for Between a two-value slice.
type Condition struct {
	Operator Operator
	Element  Element
}

func newCondition(op Operator, name string, value interface{}) Condition {
	return Condition{Operator: op, Element: Element{Name: name, Value: value}}
}

// Eq matches elements equal to value.
func Eq(name string, value interface{}) Condition { return newCondition(Equals, name, value) }

// Gt matches elements greater than value.
func Gt(name string, value interface{}) Condition { return newCondition(GreaterThan, name, value) }

// Gte matches elements greater than or equal to value.
func Gte(name string, value interface{}) Condition {
	return newCondition(GreaterEqualsThan, name, value)
}

// Lt matches elements lesser than value.
func Lt(name string, value interface{}) Condition { return newCondition(LesserThan, name, value) }

// Lte matches elements lesser than or equal to value.
func Lte(name string, value interface{}) Condition {
	return newCondition(LesserEqualsThan, name, value)
}

// LikeOf matches string elements against a pattern where % is any run and _ a single character.
func LikeOf(name string, pattern string) Condition { return newCondition(Like, name, pattern) }

// InOf matches elements equal to any of the values.
func InOf(name string, values ...interface{}) Condition {
	return newCondition(In, name, values)
}

// BetweenOf matches elements in the closed range [low, high].
func BetweenOf(name string, low, high interface{}) Condition {
	return newCondition(Between, name, []interface{}{low, high})
}

// AndOf joins conditions with a logical and.
func AndOf(conditions ...Condition) Condition {
	return newCondition(And, "_AND", flatten(And, conditions))
}

// OrOf joins conditions with a logical or.
func OrOf(conditions ...Condition) Condition {
	return newCondition(Or, "_OR", flatten(Or, conditions))
}

// NotOf negates a condition.
func NotOf(condition Condition) Condition {
	return newCondition(Not, "_NOT", condition)
}

func flatten(op Operator, conditions []Condition) []Condition {
	out := make([]Condition, 0, len(conditions))
	for _, c := range conditions {
		if c.Operator == op {
			out = append(out, c.Children()...)
			continue
		}
		out = append(out, c)
	}
	return out
}

// And returns c AND other, merging into an existing And node.
func (c Condition) And(other Condition) Condition {
	return AndOf(c, other)
}

// Or returns c OR other, merging into an existing Or node.
func (c Condition) Or(other Condition) Condition {
	return OrOf(c, other)
}

// Negate returns NOT c; negating a Not node unwraps it.
func (c Condition) Negate() Condition {
	if c.Operator == Not {
		if inner, ok := c.Inner(); ok {
			return inner
		}
	}
	return NotOf(c)
}

// Children returns the operands of an And/Or node.
func (c Condition) Children() []Condition {
	if c.Operator != And && c.Operator != Or {
		return nil
	}
	children, _ := c.Element.Value.([]Condition)
	return children
}

// Inner returns the operand of a Not node.
func (c Condition) Inner() (Condition, bool) {
	if c.Operator != Not {
		return Condition{}, false
	}
	switch t := c.Element.Value.(type) {
	case Condition:
		return t, true
	case *Condition:
		if t != nil {
			return *t, true
		}
	}
	return Condition{}, false
}

// Validate checks that every node carries the value shape its operator requires.
func (c Condition) Validate() error {
	switch c.Operator {
	case And, Or:
		children, ok := c.Element.Value.([]Condition)
		if !ok || len(children) == 0 {
			return fmt.Errorf("%w: %s requires at least one condition", ErrInvalidCondition, c.Operator)
		}
		for _, child := range children {
			if err := child.Validate(); err != nil {
				return err
			}
		}
	case Not:
		inner, ok := c.Inner()
		if !ok {
			return fmt.Errorf("%w: NOT requires a condition", ErrInvalidCondition)
		}
		return inner.Validate()
	case In:
		if c.Element.Name == "" {
			return fmt.Errorf("%w: IN requires a field name", ErrInvalidCondition)
		}
		if values, ok := ToSlice(c.Element.Value); !ok || len(values) == 0 {
			return fmt.Errorf("%w: IN on %q requires a list of values", ErrInvalidCondition, c.Element.Name)
		}
	case Between:
		values, ok := ToSlice(c.Element.Value)
		if !ok || len(values) != 2 {
			return fmt.Errorf("%w: BETWEEN on %q requires exactly two values", ErrInvalidCondition, c.Element.Name)
		}
	case Like:
		if _, ok := c.Element.Value.(string); !ok {
			return fmt.Errorf("%w: LIKE on %q requires a string pattern", ErrInvalidCondition, c.Element.Name)
		}
	case Equals, GreaterThan, GreaterEqualsThan, LesserThan, LesserEqualsThan:
		if c.Element.Name == "" {
			return fmt.Errorf("%w: %s requires a field name", ErrInvalidCondition, c.Operator)
		}
	default:
		return fmt.Errorf("%w: unknown operator %s", ErrInvalidCondition, c.Operator)
	}
	return nil
}

func (c Condition) String() string {
	switch c.Operator {
	case And, Or:
		parts := make([]string, 0, len(c.Children()))
		for _, child := range c.Children() {
			parts = append(parts, child.String())
		}
		return "(" + strings.Join(parts, " "+c.Operator.String()+" ") + ")"
	case Not:
		inner, _ := c.Inner()
		return "NOT " + inner.String()
	default:
		return fmt.Sprintf("%s %s %v", c.Element.Name, c.Operator, c.Element.Value)
	}
}

// BetweenBounds returns the low and high values of a Between node.
func (c Condition) BetweenBounds() (interface{}, interface{}, bool) {
	values, ok := ToSlice(c.Element.Value)
	if !ok || len(values) != 2 {
		return nil, nil, false
	}
	return values[0], values[1], true
}

// ToSlice converts any slice or array value into []interface{}.
func ToSlice(v interface{}) ([]interface{}, bool) {
	if v == nil {
		return nil, false
	}
	if s, ok := v.([]interface{}); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	// []byte is a scalar value, not a list.
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// ConditionFromMap decodes the document form of a condition:
//
//	{op: and, conditions: [{op: eq, name: age, value: 10}, {op: not, condition: {...}}]}
//	{op: in, name: city, values: [Lisbon, Porto]}
func ConditionFromMap(m map[string]interface{}) (Condition, error) {
	rawOp, _ := m["op"].(string)
	op, ok := ParseOperator(rawOp)
	if !ok {
		return Condition{}, fmt.Errorf("%w: unknown operator %q", ErrInvalidCondition, rawOp)
	}
	name, _ := m["name"].(string)

	var c Condition
	switch op {
	case And, Or:
		raw, ok := ToSlice(m["conditions"])
		if !ok {
			return Condition{}, fmt.Errorf("%w: %s requires conditions", ErrInvalidCondition, op)
		}
		children := make([]Condition, 0, len(raw))
		for _, item := range raw {
			child, err := conditionFromAny(item)
			if err != nil {
				return Condition{}, err
			}
			children = append(children, child)
		}
		if op == And {
			c = AndOf(children...)
		} else {
			c = OrOf(children...)
		}
	case Not:
		inner, err := conditionFromAny(m["condition"])
		if err != nil {
			return Condition{}, err
		}
		c = NotOf(inner)
	case In, Between:
		values, ok := ToSlice(m["values"])
		if !ok {
			values, ok = ToSlice(m["value"])
		}
		if !ok {
			return Condition{}, fmt.Errorf("%w: %s on %q requires values", ErrInvalidCondition, op, name)
		}
		c = newCondition(op, name, values)
	default:
		c = newCondition(op, name, m["value"])
	}

	if err := c.Validate(); err != nil {
		return Condition{}, err
	}
	return c, nil
}

func conditionFromAny(v interface{}) (Condition, error) {
	switch t := v.(type) {
	case map[string]interface{}:
		return ConditionFromMap(t)
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, item := range t {
			m[fmt.Sprint(k)] = item
		}
		return ConditionFromMap(m)
	default:
		return Condition{}, fmt.Errorf("%w: expected a condition object, got %T", ErrInvalidCondition, v)
	}
}
