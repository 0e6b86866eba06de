package communication

import (
	"sort"
	"strings"
)

// Element is a named value inside an entity or a condition.
// Value may hold scalars, slices, maps, nested []Element or Entity values.
type Element struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// NewElement creates an element.
func NewElement(name string, value interface{}) Element {
	return Element{Name: name, Value: value}
}

// Entity is the vendor-neutral record: a document, a column family row or a key-value record.
// Name is the collection, table, index type or class the record belongs to.
type Entity struct {
	Name     string    `json:"name"`
	Elements []Element `json:"elements"`
}

// NewEntity creates an empty entity.
func NewEntity(name string) Entity {
	return Entity{Name: name}
}

// EntityFromMap builds an entity from a map. Keys are added in lexical order so the
// element order is stable; nested maps become nested entities.
func EntityFromMap(name string, values map[string]interface{}) Entity {
	e := NewEntity(name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.Elements = append(e.Elements, Element{Name: k, Value: fromNative(values[k])})
	}
	return e
}

func fromNative(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return EntityFromMap("", t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = fromNative(item)
		}
		return out
	default:
		return v
	}
}

// Add sets an element, replacing any element with the same name.
func (e *Entity) Add(name string, value interface{}) {
	for i := range e.Elements {
		if e.Elements[i].Name == name {
			e.Elements[i].Value = value
			return
		}
	}
	e.Elements = append(e.Elements, Element{Name: name, Value: value})
}

// Find returns the element with the given name. Dotted names walk into sub-documents.
func (e Entity) Find(name string) (Element, bool) {
	for _, el := range e.Elements {
		if el.Name == name {
			return el, true
		}
	}

	head, tail, found := strings.Cut(name, ".")
	if !found {
		return Element{}, false
	}
	parent, ok := e.Find(head)
	if !ok {
		return Element{}, false
	}
	sub, ok := asEntity(parent.Value)
	if !ok {
		return Element{}, false
	}
	el, ok := sub.Find(tail)
	if !ok {
		return Element{}, false
	}
	return Element{Name: name, Value: el.Value}, true
}

// Value returns the value of the named element or nil.
func (e Entity) Value(name string) interface{} {
	el, ok := e.Find(name)
	if !ok {
		return nil
	}
	return el.Value
}

// Remove deletes the named element and reports whether it existed.
func (e *Entity) Remove(name string) bool {
	for i := range e.Elements {
		if e.Elements[i].Name == name {
			e.Elements = append(e.Elements[:i], e.Elements[i+1:]...)
			return true
		}
	}
	return false
}

// Size returns the number of top-level elements.
func (e Entity) Size() int {
	return len(e.Elements)
}

// Names returns the element names in insertion order.
func (e Entity) Names() []string {
	names := make([]string, len(e.Elements))
	for i, el := range e.Elements {
		names[i] = el.Name
	}
	return names
}

// ToMap converts the entity to a map, recursively converting sub-documents.
func (e Entity) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, len(e.Elements))
	for _, el := range e.Elements {
		out[el.Name] = toNative(el.Value)
	}
	return out
}

// Clone returns a deep copy of the element list.
func (e Entity) Clone() Entity {
	c := Entity{Name: e.Name, Elements: make([]Element, len(e.Elements))}
	for i, el := range e.Elements {
		c.Elements[i] = Element{Name: el.Name, Value: cloneValue(el.Value)}
	}
	return c
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Entity:
		return t.Clone()
	case []Element:
		return Entity{Elements: t}.Clone().Elements
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func toNative(v interface{}) interface{} {
	switch t := v.(type) {
	case Entity:
		return t.ToMap()
	case *Entity:
		return t.ToMap()
	case []Element:
		return Entity{Elements: t}.ToMap()
	case Element:
		return map[string]interface{}{t.Name: toNative(t.Value)}
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = toNative(item)
		}
		return out
	case []Entity:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = item.ToMap()
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = toNative(item)
		}
		return out
	default:
		return v
	}
}

// ToNative converts a value held by an element into plain maps and slices.
func ToNative(v interface{}) interface{} {
	return toNative(v)
}

func asEntity(v interface{}) (Entity, bool) {
	switch t := v.(type) {
	case Entity:
		return t, true
	case *Entity:
		return *t, true
	case []Element:
		return Entity{Elements: t}, true
	case map[string]interface{}:
		return EntityFromMap("", t), true
	default:
		return Entity{}, false
	}
}
