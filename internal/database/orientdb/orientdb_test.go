package orientdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
)

func TestSelectSQL(t *testing.T) {
	where := communication.AndOf(
		communication.Eq("name", "Ada"),
		communication.OrOf(communication.Gte("age", 18), communication.LikeOf("nick", "a_b%")),
		communication.NotOf(communication.InOf("address.city", "Rome")),
		communication.BetweenOf("age", 1, 99),
	)
	stmt, params, err := selectSQL(communication.SelectQuery{
		Entity:    "Person",
		Fields:    []string{"@rid", "name"},
		Condition: &where,
		Sorts:     []communication.Sort{communication.SortAsc("name")},
		Skip:      5,
		Limit:     10,
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT @rid, `name` FROM `Person` WHERE (`name` = :name AND (`age` >= :age OR `nick` LIKE :nick) "+
		"AND NOT (`address`.`city` IN :address_city) AND `age` BETWEEN :age_1 AND :age_2) ORDER BY `name` ASC SKIP 5 LIMIT 10", stmt)
	assert.Equal(t, map[string]interface{}{
		"name": "Ada", "age": 18, "nick": "a?b%", "address_city": []interface{}{"Rome"}, "age_1": 1, "age_2": 99,
	}, params)
}

func TestDeleteSQL(t *testing.T) {
	stmt, _, err := deleteSQL(communication.DeleteQuery{Entity: "Person"})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `Person`", stmt)

	where := communication.Eq("@rid", "#12:0")
	stmt, params, err := deleteSQL(communication.DeleteQuery{Entity: "Person", Fields: []string{"nick"}, Condition: &where})
	require.NoError(t, err)
	assert.Equal(t, "UPDATE `Person` REMOVE `nick` WHERE @rid = :_rid", stmt)
	assert.Equal(t, "#12:0", params["_rid"])

	bad := communication.Condition{Operator: communication.Operator(77)}
	_, err = Translator{}.TranslateDelete(communication.DeleteQuery{Entity: "Person", Condition: &bad})
	assert.ErrorIs(t, err, communication.ErrUnsupportedCondition)
}

func TestDocumentManager(t *testing.T) {
	var commands []map[string]interface{}
	mux := http.NewServeMux()
	mux.HandleFunc("/connect/demo", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "root" || pass != "root" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/document/demo", func(w http.ResponseWriter, r *http.Request) {
		var doc map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		assert.Equal(t, "Person", doc["@class"])
		doc["@rid"] = "#12:0"
		doc["@version"] = 1
		_ = json.NewEncoder(w).Encode(doc)
	})
	mux.HandleFunc("/document/demo/12:0", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		_, _ = w.Write([]byte(`{"@rid":"#12:0","@version":2}`))
	})
	mux.HandleFunc("/document/demo/12:9", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[]}`, http.StatusNotFound)
	})
	mux.HandleFunc("/command/demo/sql", func(w http.ResponseWriter, r *http.Request) {
		var cmd map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&cmd))
		commands = append(commands, cmd)
		switch cmd["command"] {
		case "SELECT count(*) AS count FROM `Person`":
			_, _ = w.Write([]byte(`{"result":[{"count":3}]}`))
		default:
			_, _ = w.Write([]byte(`{"result":[{"@type":"d","@rid":"#12:0","@version":2,"@class":"Person","name":"Ada","age":36}]}`))
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, _ := strconv.Atoi(u.Port())

	ctx := context.Background()
	_, err = NewAdapter().Connect(ctx, adapter.ConnectionConfig{Host: u.Hostname(), Port: port, DatabaseName: "demo"})
	assert.True(t, adapter.IsConnectionError(err))

	conn, err := NewAdapter().Connect(ctx, adapter.ConnectionConfig{
		Host: u.Hostname(), Port: port, DatabaseName: "demo", Username: "root", Password: "root",
	})
	require.NoError(t, err)
	m := conn.DocumentManager()

	e := communication.NewEntity("Person")
	e.Add("name", "Ada")
	stored, err := m.Insert(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, "#12:0", stored.Value("@rid"))
	assert.Equal(t, int64(1), stored.Value("@version"))

	updated, err := m.Update(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Value("@version"))

	missing := communication.NewEntity("Person")
	missing.Add("@rid", "#12:9")
	_, err = m.Update(ctx, missing)
	var notFound *adapter.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	where := communication.Gt("age", 30)
	got, err := m.Select(ctx, communication.SelectQuery{Entity: "Person", Condition: &where})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"@rid", "@version", "age", "name"}, got[0].Names())
	assert.Equal(t, int64(36), got[0].Value("age"))
	assert.Equal(t, map[string]interface{}{"age": float64(30)}, commands[len(commands)-1]["parameters"])

	require.NoError(t, m.Delete(ctx, communication.DeleteQuery{Entity: "Person", Condition: &where}))
	assert.Equal(t, "DELETE FROM `Person` WHERE `age` > :age", commands[len(commands)-1]["command"])

	n, err := m.Count(ctx, "Person")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = m.InsertTTL(ctx, e, 0)
	assert.True(t, adapter.IsUnsupported(err))
}
