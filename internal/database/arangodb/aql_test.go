package arangodb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
)

func cond(c communication.Condition) *communication.Condition {
	return &c
}

func TestSelectAQL(t *testing.T) {
	tests := []struct {
		name   string
		query  communication.SelectQuery
		aql    string
		params map[string]interface{}
	}{
		{
			name:   "whole collection",
			query:  communication.SelectQuery{Entity: "person"},
			aql:    "FOR d IN @@collection RETURN d",
			params: map[string]interface{}{"@collection": "person"},
		},
		{
			name: "comparisons share a field",
			query: communication.SelectQuery{
				Entity:    "person",
				Condition: cond(communication.AndOf(communication.Gte("age", 18), communication.Lt("age", 65))),
			},
			aql:    "FOR d IN @@collection FILTER (d.age >= @age AND d.age < @age_1) RETURN d",
			params: map[string]interface{}{"@collection": "person", "age": 18, "age_1": 65},
		},
		{
			name: "nested attribute and odd names",
			query: communication.SelectQuery{
				Entity:    "person",
				Condition: cond(communication.OrOf(communication.Eq("address.city", "Lisbon"), communication.Eq("first-name", "Ada"))),
			},
			aql:    `FOR d IN @@collection FILTER (d.address.city == @address_city OR d["first-name"] == @first_name) RETURN d`,
			params: map[string]interface{}{"@collection": "person", "address_city": "Lisbon", "first_name": "Ada"},
		},
		{
			name: "like in between not",
			query: communication.SelectQuery{
				Entity: "person",
				Condition: cond(communication.AndOf(
					communication.LikeOf("name", "A%"),
					communication.InOf("city", "Lisbon", "Porto"),
					communication.NotOf(communication.BetweenOf("age", 1, 9)),
				)),
			},
			aql: "FOR d IN @@collection FILTER (d.name LIKE @name AND d.city IN @city AND NOT ((d.age >= @age AND d.age <= @age_1))) RETURN d",
			params: map[string]interface{}{
				"@collection": "person", "name": "A%", "city": []interface{}{"Lisbon", "Porto"}, "age": 1, "age_1": 9,
			},
		},
		{
			name: "sort page and projection",
			query: communication.SelectQuery{
				Entity: "person",
				Fields: []string{"name", "address.city"},
				Sorts:  []communication.Sort{communication.SortDesc("age"), communication.SortAsc("name")},
				Skip:   10,
				Limit:  5,
			},
			aql:    `FOR d IN @@collection SORT d.age DESC, d.name ASC LIMIT 10, 5 RETURN { "name": d.name, "address.city": d.address.city }`,
			params: map[string]interface{}{"@collection": "person"},
		},
		{
			name:   "skip without limit",
			query:  communication.SelectQuery{Entity: "person", Skip: 3},
			aql:    "FOR d IN @@collection LIMIT 3, 9007199254740991 RETURN d",
			params: map[string]interface{}{"@collection": "person"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			aql, params, err := selectAQL(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.aql, aql)
			assert.Equal(t, tt.params, params)
		})
	}
}

func TestDeleteAQL(t *testing.T) {
	aql, params, err := deleteAQL(communication.DeleteQuery{Entity: "person", Condition: cond(communication.Eq("name", "Ada"))})
	require.NoError(t, err)
	assert.Equal(t, "FOR d IN @@collection FILTER d.name == @name REMOVE d IN @@collection", aql)
	assert.Equal(t, "Ada", params["name"])

	aql, params, err = deleteAQL(communication.DeleteQuery{Entity: "person", Fields: []string{"nick", "address.zip"}})
	require.NoError(t, err)
	assert.Equal(t, "FOR d IN @@collection UPDATE d WITH @unset IN @@collection OPTIONS { keepNull: false }", aql)
	assert.Equal(t, map[string]interface{}{
		"nick":    nil,
		"address": map[string]interface{}{"zip": nil},
	}, params["unset"])
}

func TestTranslatorErrors(t *testing.T) {
	_, err := Translator{}.TranslateSelect(communication.SelectQuery{})
	assert.ErrorIs(t, err, communication.ErrEntityRequired)

	bad := communication.Condition{Operator: communication.Operator(99)}
	_, err = Translator{}.TranslateDelete(communication.DeleteQuery{Entity: "person", Condition: &bad})
	assert.ErrorIs(t, err, communication.ErrUnsupportedCondition)

	native, err := Translator{}.TranslateSelect(communication.SelectQuery{Entity: "person"})
	require.NoError(t, err)
	assert.Equal(t, "aql", native.Language)
}

func TestEndpoints(t *testing.T) {
	config := adapter.ConnectionConfig{Hosts: []string{"a", "b:8530"}, Port: 8529, SSL: true}
	assert.Equal(t, []string{"https://a:8529", "https://b:8530"}, endpoints(config))

	config = adapter.ConnectionConfig{Host: "http://arango.local:8529/"}
	assert.Equal(t, []string{"http://arango.local:8529"}, endpoints(config))
}
