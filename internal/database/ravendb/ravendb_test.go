package ravendb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
)

func TestSelectRQL(t *testing.T) {
	where := communication.AndOf(
		communication.Eq("Name", "Ada"),
		communication.OrOf(communication.LikeOf("Name", "A%"), communication.LikeOf("Name", "%a"), communication.LikeOf("Name", "A_a%")),
		communication.NotOf(communication.InOf("Address.City", "Rome", "Oslo")),
		communication.BetweenOf("Age", 18, 65),
		communication.Eq("id", "people/1"),
	)
	rql, params, err := selectRQL(communication.SelectQuery{
		Entity:    "People",
		Fields:    []string{"Name", "first-name"},
		Condition: &where,
		Sorts:     []communication.Sort{communication.SortDesc("Age")},
		Skip:      10,
		Limit:     5,
	})
	require.NoError(t, err)
	assert.Equal(t, "from 'People' where (Name = $Name and (startsWith(Name, $Name_1) or endsWith(Name, $Name_2) "+
		"or regex(Name, $Name_3)) and (true and not (Address.City in ($Address_City))) and Age between $Age and $Age_1 "+
		"and id() = $id) order by Age desc select Name, 'first-name' limit 10, 5", rql)
	assert.Equal(t, map[string]interface{}{
		"Name": "Ada", "Name_1": "A", "Name_2": "a", "Name_3": "(?s)^A.a.*$",
		"Address_City": []interface{}{"Rome", "Oslo"}, "Age": 18, "Age_1": 65, "id": "people/1",
	}, params)

	rql, _, err = selectRQL(communication.SelectQuery{Entity: "People", Skip: 3})
	require.NoError(t, err)
	assert.Equal(t, "from 'People' limit 3, 2147483647", rql)
}

func TestTranslateDelete(t *testing.T) {
	where := communication.Lt("Age", 18)
	nq, err := Translator{}.TranslateDelete(communication.DeleteQuery{Entity: "People", Fields: []string{"Nick"}, Condition: &where})
	require.NoError(t, err)
	assert.Equal(t, "from 'People' where Age < $Age", nq.Statement)
	assert.Equal(t, []string{"Nick"}, nq.Params["@fields"])

	_, err = Translator{}.TranslateDelete(communication.DeleteQuery{})
	assert.ErrorIs(t, err, communication.ErrEntityRequired)
}

type ravenServer struct {
	mu      sync.Mutex
	docs    map[string]map[string]interface{}
	queries []queryRequest
}

func (s *ravenServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/databases/shop/stats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"CountOfDocuments":0}`))
	})
	mux.HandleFunc("/databases/shop/docs", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id := r.URL.Query().Get("id")
		switch r.Method {
		case http.MethodPut:
			var doc map[string]interface{}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
			doc["@metadata"].(map[string]interface{})["@id"] = id
			s.docs[id] = doc
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"Id":"` + id + `"}`))
		case http.MethodHead:
			if _, ok := s.docs[id]; !ok {
				w.WriteHeader(http.StatusNotFound)
			}
		case http.MethodDelete:
			delete(s.docs, id)
			w.WriteHeader(http.StatusNoContent)
		}
	})
	mux.HandleFunc("/databases/shop/queries", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		var req queryRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		s.queries = append(s.queries, req)
		res := queryResult{}
		for _, doc := range s.docs {
			res.Results = append(res.Results, doc)
		}
		_ = json.NewEncoder(w).Encode(res)
	})
	mux.HandleFunc("/databases/shop/collections/stats", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, _ = w.Write([]byte(`{"Collections":{"People":` + strconv.Itoa(len(s.docs)) + `}}`))
	})
	return mux
}

func TestDocumentManager(t *testing.T) {
	server := &ravenServer{docs: make(map[string]map[string]interface{})}
	srv := httptest.NewServer(server.handler(t))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, _ := strconv.Atoi(u.Port())

	ctx := context.Background()
	conn, err := NewAdapter().Connect(ctx, adapter.ConnectionConfig{Host: u.Hostname(), Port: port, DatabaseName: "shop"})
	require.NoError(t, err)
	require.NoError(t, conn.Ping(ctx))
	m := conn.DocumentManager()

	ada := communication.NewEntity("People")
	ada.Add("Name", "Ada")
	ada.Add("Nick", "countess")
	stored, err := m.Insert(ctx, ada)
	require.NoError(t, err)
	id := stored.Value("id").(string)
	assert.Regexp(t, `^people/[0-9a-f-]{36}$`, id)
	assert.Equal(t, "People", server.docs[id]["@metadata"].(map[string]interface{})["@collection"])
	_, hasID := server.docs[id]["id"]
	assert.False(t, hasID)

	bob := communication.NewEntity("People")
	bob.Add("id", "people/bob")
	bob.Add("Name", "Bob")
	_, err = m.InsertTTL(ctx, bob, time.Hour)
	require.NoError(t, err)
	expires, err := time.Parse(time.RFC3339Nano, server.docs["people/bob"]["@metadata"].(map[string]interface{})["@expires"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	ghost := communication.NewEntity("People")
	ghost.Add("id", "people/ghost")
	_, err = m.Update(ctx, ghost)
	var notFound *adapter.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	stored.Add("Name", "Ada Lovelace")
	_, err = m.Update(ctx, stored)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", server.docs[id]["Name"])

	where := communication.Eq("Name", "Ada Lovelace")
	got, err := m.Select(ctx, communication.SelectQuery{Entity: "People", Condition: &where})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	last := server.queries[len(server.queries)-1]
	assert.Equal(t, "from 'People' where Name = $Name", last.Query)
	assert.Equal(t, "Ada Lovelace", last.QueryParameters["Name"])

	n, err := m.Count(ctx, "People")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, m.Delete(ctx, communication.DeleteQuery{Entity: "People", Fields: []string{"Nick"}}))
	_, hasNick := server.docs[id]["Nick"]
	assert.False(t, hasNick)
	assert.Equal(t, "Ada Lovelace", server.docs[id]["Name"])

	require.NoError(t, m.Delete(ctx, communication.DeleteQuery{Entity: "People"}))
	assert.Empty(t, server.docs)

	require.NoError(t, conn.Close())
	_, err = m.Select(ctx, communication.SelectQuery{Entity: "People"})
	assert.ErrorIs(t, err, adapter.ErrConnectionClosed)
}
