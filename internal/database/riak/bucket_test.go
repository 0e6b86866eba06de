package riak

import (
	"context"
	"io"
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

type riakServer struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *riakServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.URL.Path == "/ping" {
		_, _ = io.WriteString(w, "OK")
		return
	}
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		s.objects[r.URL.Path] = body
		w.WriteHeader(http.StatusNoContent)
	case http.MethodGet:
		body, ok := s.objects[r.URL.Path]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		_, _ = w.Write(body)
	case http.MethodDelete:
		if _, ok := s.objects[r.URL.Path]; !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		delete(s.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}
}

func TestBucketManager(t *testing.T) {
	server := &riakServer{objects: make(map[string][]byte)}
	srv := httptest.NewServer(server)
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	ctx := context.Background()
	conn, err := NewAdapter().Connect(ctx, adapter.ConnectionConfig{
		Host:    u.Hostname(),
		Port:    port,
		Options: map[string]interface{}{"bucket-type": "maps"},
	})
	require.NoError(t, err)
	require.NoError(t, conn.Ping(ctx))

	bucket, err := conn.BucketManagerFactory().Bucket("users")
	require.NoError(t, err)

	require.NoError(t, bucket.Put(ctx, "ada", map[string]interface{}{"name": "Ada"}))
	assert.JSONEq(t, `{"name":"Ada"}`, string(server.objects["/types/maps/buckets/users/keys/ada"]))

	v, found, err := bucket.Get(ctx, "ada")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"name":"Ada"}`, v.String())

	_, found, err = bucket.Get(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, found)

	all, err := bucket.GetAll(ctx, []string{"ada", "bob"})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, bucket.DeleteAll(ctx, []string{"ada", "bob"}))
	assert.Empty(t, server.objects)

	err = bucket.PutTTL(ctx, "k", 1, time.Minute)
	assert.True(t, adapter.IsUnsupported(err))

	assert.ErrorIs(t, bucket.Put(ctx, "", 1), communication.ErrKeyRequired)

	require.NoError(t, conn.Close())
	_, _, err = bucket.Get(ctx, "ada")
	assert.ErrorIs(t, err, adapter.ErrConnectionClosed)
}
