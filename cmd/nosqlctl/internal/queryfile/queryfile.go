// Package queryfile decodes the YAML or JSON query documents read by nosqlctl:
//
//	entity: people
//	fields: [name, age]
//	where:
//	  op: and
//	  conditions:
//	    - {op: gte, name: age, value: 18}
//	    - {op: in, name: city, values: [Lisbon, Porto]}
//	sort:
//	  - {name: age, order: desc}
//	skip: 10
//	limit: 5
package queryfile

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/redbco/redb-nosql/pkg/communication"
)

// File is the decoded form of a query document.
type File struct {
	Entity string                 `yaml:"entity"`
	Fields []string               `yaml:"fields"`
	Where  map[string]interface{} `yaml:"where"`
	Sort   []SortField            `yaml:"sort"`
	Skip   int64                  `yaml:"skip"`
	Limit  int64                  `yaml:"limit"`
}

// SortField is one entry of the sort list; order is asc or desc.
type SortField struct {
	Name  string `yaml:"name"`
	Order string `yaml:"order"`
}

// Parse decodes a query document. JSON is accepted since it is valid YAML.
func Parse(data []byte) (*File, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}
	if f.Entity == "" {
		return nil, communication.ErrEntityRequired
	}
	return &f, nil
}

// Read parses the query document at path.
func Read(path string) (*File, error) {
	//nolint:gosec // the path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	return Parse(data)
}

func (f *File) condition() (*communication.Condition, error) {
	if len(f.Where) == 0 {
		return nil, nil
	}
	c, err := communication.ConditionFromMap(f.Where)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// SelectQuery converts the document into a select query.
func (f *File) SelectQuery() (communication.SelectQuery, error) {
	c, err := f.condition()
	if err != nil {
		return communication.SelectQuery{}, err
	}
	b := communication.Select(f.Fields...).From(f.Entity)
	if c != nil {
		b.Where(*c)
	}
	for _, s := range f.Sort {
		b.OrderBy(communication.Sort{Name: s.Name, Direction: communication.ParseSortType(s.Order)})
	}
	return b.Skip(f.Skip).Limit(f.Limit).Build()
}

// DeleteQuery converts the document into a delete query. Fields name the elements to
// remove; without fields whole entities are deleted.
func (f *File) DeleteQuery() (communication.DeleteQuery, error) {
	c, err := f.condition()
	if err != nil {
		return communication.DeleteQuery{}, err
	}
	b := communication.Delete(f.Fields...).From(f.Entity)
	if c != nil {
		b.Where(*c)
	}
	return b.Build()
}

// ReadEntities decodes a document or a list of documents into entities named entity.
func ReadEntities(path, entity string) ([]communication.Entity, error) {
	//nolint:gosec // the path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	return ParseEntities(data, entity)
}

// ParseEntities decodes a YAML or JSON document, or a list of them, into entities.
func ParseEntities(data []byte, entity string) ([]communication.Entity, error) {
	if entity == "" {
		return nil, communication.ErrEntityRequired
	}
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse data: %w", err)
	}

	var docs []interface{}
	switch t := doc.(type) {
	case map[string]interface{}:
		docs = []interface{}{t}
	case []interface{}:
		docs = t
	default:
		return nil, fmt.Errorf("data must be a document or a list of documents, got %T", doc)
	}

	entities := make([]communication.Entity, 0, len(docs))
	for i, d := range docs {
		m, ok := d.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("item %d is not a document", i)
		}
		entities = append(entities, communication.EntityFromMap(entity, m))
	}
	return entities, nil
}

// ParseValue decodes a command line value as YAML, so 42 is a number, true a bool and
// {"a": 1} a document. Anything that does not decode is kept as a string.
func ParseValue(raw string) interface{} {
	var v interface{}
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	return v
}
