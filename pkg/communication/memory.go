package communication

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// LikeToRegex converts a like pattern to an anchored regular expression. The
// pattern runs in dot-all mode so % and _ also match line breaks.
func LikeToRegex(pattern string) string {
	var b strings.Builder
	b.WriteString("(?s)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}

// LikeToWildcard converts a like pattern to the * and ? wildcard syntax of search engines.
func LikeToWildcard(pattern string) string {
	var b strings.Builder
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteByte('*')
		case '_':
			b.WriteByte('?')
		case '*', '?', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isNumber(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, json.Number:
		return true
	}
	return false
}

// CompareValues orders two scalar values. Numbers compare numerically across Go types,
// times chronologically, strings and booleans naturally. The boolean is false when the
// values are not comparable.
func CompareValues(a, b interface{}) (int, bool) {
	if a == nil || b == nil {
		if a == nil && b == nil {
			return 0, true
		}
		return 0, false
	}

	if isNumber(a) && isNumber(b) {
		fa, errA := cast.ToFloat64E(a)
		fb, errB := cast.ToFloat64E(b)
		if errA != nil || errB != nil {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}

	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), true
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), true
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, true
			case !x:
				return -1, true
			}
			return 1, true
		}
	}

	if reflect.DeepEqual(ToNative(a), ToNative(b)) {
		return 0, true
	}
	return 0, false
}

func valuesEqual(a, b interface{}) bool {
	cmp, ok := CompareValues(a, b)
	return ok && cmp == 0
}

// Matches evaluates a condition against an entity in memory. Key-only stores use it to
// filter what they fetched.
func Matches(e Entity, c Condition) (bool, error) {
	switch c.Operator {
	case And:
		for _, child := range c.Children() {
			ok, err := Matches(e, child)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case Or:
		for _, child := range c.Children() {
			ok, err := Matches(e, child)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case Not:
		inner, ok := c.Inner()
		if !ok {
			return false, ErrInvalidCondition
		}
		matched, err := Matches(e, inner)
		return !matched, err
	}

	el, found := e.Find(c.Element.Name)
	if !found {
		return false, nil
	}

	switch c.Operator {
	case Equals:
		return valuesEqual(el.Value, c.Element.Value), nil
	case GreaterThan, GreaterEqualsThan, LesserThan, LesserEqualsThan:
		cmp, ok := CompareValues(el.Value, c.Element.Value)
		if !ok {
			return false, nil
		}
		switch c.Operator {
		case GreaterThan:
			return cmp > 0, nil
		case GreaterEqualsThan:
			return cmp >= 0, nil
		case LesserThan:
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}
	case Like:
		pattern, ok := c.Element.Value.(string)
		if !ok {
			return false, ErrInvalidCondition
		}
		s, ok := el.Value.(string)
		if !ok {
			return false, nil
		}
		re, err := regexp.Compile(LikeToRegex(pattern))
		if err != nil {
			return false, err
		}
		return re.MatchString(s), nil
	case In:
		values, ok := ToSlice(c.Element.Value)
		if !ok {
			return false, ErrInvalidCondition
		}
		for _, v := range values {
			if valuesEqual(el.Value, v) {
				return true, nil
			}
		}
		return false, nil
	case Between:
		low, high, ok := c.BetweenBounds()
		if !ok {
			return false, ErrInvalidCondition
		}
		lo, okLo := CompareValues(el.Value, low)
		hi, okHi := CompareValues(el.Value, high)
		return okLo && okHi && lo >= 0 && hi <= 0, nil
	}
	return false, fmt.Errorf("%w: %s", ErrInvalidCondition, c.Operator)
}

// Filter keeps the entities matching c. A nil condition keeps everything.
func Filter(entities []Entity, c *Condition) ([]Entity, error) {
	if c == nil {
		return entities, nil
	}
	out := make([]Entity, 0, len(entities))
	for _, e := range entities {
		ok, err := Matches(e, *c)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// SortEntities sorts in place by the given sorts. Entities missing a sort element order
// before the others when ascending; values that cannot be compared fall back to their text.
func SortEntities(entities []Entity, sorts []Sort) {
	if len(sorts) == 0 {
		return
	}
	sort.SliceStable(entities, func(i, j int) bool {
		for _, s := range sorts {
			a := entities[i].Value(s.Name)
			b := entities[j].Value(s.Name)
			cmp, ok := CompareValues(a, b)
			if !ok {
				switch {
				case a == nil && b != nil:
					cmp = -1
				case a != nil && b == nil:
					cmp = 1
				default:
					cmp = strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
				}
			}
			if cmp == 0 {
				continue
			}
			if s.Direction == Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// Paginate applies skip and limit; zero values disable them.
func Paginate(entities []Entity, skip, limit int64) []Entity {
	if skip > 0 {
		if skip >= int64(len(entities)) {
			return []Entity{}
		}
		entities = entities[skip:]
	}
	if limit > 0 && limit < int64(len(entities)) {
		entities = entities[:limit]
	}
	return entities
}

// Project keeps only the named fields; no fields keeps the entity unchanged.
func Project(e Entity, fields []string) Entity {
	if len(fields) == 0 {
		return e
	}
	out := NewEntity(e.Name)
	for _, f := range fields {
		if el, ok := e.Find(f); ok {
			out.Elements = append(out.Elements, el)
		}
	}
	return out
}
