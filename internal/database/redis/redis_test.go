package redis

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

func connect(t *testing.T) (*miniredis.Miniredis, adapter.Connection) {
	t.Helper()
	mr := miniredis.RunT(t)

	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	conn, err := NewAdapter().Connect(context.Background(), adapter.ConnectionConfig{
		DatabaseID: "cache",
		Host:       host,
		Port:       p,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return mr, conn
}

func TestBucketManager(t *testing.T) {
	mr, conn := connect(t)
	ctx := context.Background()

	bucket, err := conn.BucketManagerFactory().Bucket("users")
	require.NoError(t, err)
	assert.Equal(t, "users", bucket.Name())

	user := communication.NewEntity("user")
	user.Add("name", "Ada")
	require.NoError(t, bucket.Put(ctx, "ada", user))
	require.NoError(t, bucket.Put(ctx, "greeting", "hello"))

	stored, err := mr.Get("users:ada")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Ada"}`, stored)

	v, found, err := bucket.Get(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "hello", v.String())

	_, found, err = bucket.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	all, err := bucket.GetAll(ctx, []string{"ada", "missing", "greeting"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ada", all[0].Key)
	assert.Equal(t, "greeting", all[1].Key)

	require.NoError(t, bucket.PutAll(ctx, []communication.KeyValue{{Key: "a", Value: 1}, {Key: "b", Value: 2}}))
	assert.True(t, mr.Exists("users:a"))

	require.NoError(t, bucket.DeleteAll(ctx, []string{"a", "b"}))
	assert.False(t, mr.Exists("users:b"))

	require.NoError(t, bucket.Delete(ctx, "ada"))
	assert.False(t, mr.Exists("users:ada"))

	assert.ErrorIs(t, bucket.Put(ctx, "", 1), communication.ErrKeyRequired)
}

func TestBucketTTL(t *testing.T) {
	mr, conn := connect(t)
	ctx := context.Background()

	bucket, err := conn.BucketManagerFactory().Bucket("sessions")
	require.NoError(t, err)
	require.NoError(t, bucket.PutTTL(ctx, "s1", "token", time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("sessions:s1"))

	mr.FastForward(2 * time.Minute)
	_, found, err := bucket.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStructures(t *testing.T) {
	_, conn := connect(t)
	ctx := context.Background()
	factory := conn.BucketManagerFactory().(*BucketManagerFactory)

	list := factory.List("names")
	require.NoError(t, list.Add(ctx, "Ada"))
	require.NoError(t, list.Add(ctx, "Bob"))
	require.NoError(t, list.Set(ctx, 1, "Cid"))
	items, err := list.All(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Cid", items[1].String())
	removed, err := list.Remove(ctx, "Ada")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	queue := factory.Queue("jobs")
	require.NoError(t, queue.Offer(ctx, 1))
	require.NoError(t, queue.Offer(ctx, 2))
	head, ok, err := queue.Peek(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", head.String())
	head, ok, err = queue.Poll(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1", string(head))
	size, err := queue.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	set := factory.Set("tags")
	added, err := set.Add(ctx, "go")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = set.Add(ctx, "go")
	require.NoError(t, err)
	assert.False(t, added)
	contains, err := set.Contains(ctx, "go")
	require.NoError(t, err)
	assert.True(t, contains)

	m := factory.Map("profile")
	require.NoError(t, m.Put(ctx, "name", "Ada"))
	v, ok, err := m.Get(ctx, "name")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ada", v.String())
	all, err := m.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	z := factory.SortedSet("scores")
	require.NoError(t, z.Add(ctx, "ada", 10))
	require.NoError(t, z.Add(ctx, "bob", 5))
	score, err := z.Increment(ctx, "bob", 10)
	require.NoError(t, err)
	assert.Equal(t, 15.0, score)
	ranking, err := z.RevRanking(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Ranking{{Member: "bob", Score: 15}, {Member: "ada", Score: 10}}, ranking)

	counter := factory.Counter("visits")
	n, err := counter.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	n, err = counter.Increment(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	n, err = counter.Decrement(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestStructureErrorsAreWrapped(t *testing.T) {
	mr, conn := connect(t)
	ctx := context.Background()
	factory := conn.BucketManagerFactory().(*BucketManagerFactory)
	require.NoError(t, mr.Set("plain", "text"))

	var dbErr *adapter.DatabaseError
	err := factory.List("plain").Add(ctx, "Ada")
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, dbcapabilities.Redis, dbErr.DatabaseType)
	assert.Equal(t, "list add", dbErr.Operation)
	assert.Contains(t, err.Error(), "WRONGTYPE")

	_, _, err = factory.Map("plain").Get(ctx, "name")
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "map get", dbErr.Operation)

	_, err = factory.Set("plain").Add(ctx, "go")
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "set add", dbErr.Operation)

	_, err = factory.Counter("plain").Increment(ctx, 1)
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "counter increment", dbErr.Operation)

	_, ok, err := factory.Queue("empty").Poll(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConnectInvalidDatabase(t *testing.T) {
	_, err := NewAdapter().Connect(context.Background(), adapter.ConnectionConfig{
		Host:         "localhost",
		Port:         6379,
		DatabaseName: "sessions",
	})
	assert.True(t, adapter.IsConfigurationError(err))
}

func TestUnsupportedManagers(t *testing.T) {
	_, conn := connect(t)
	_, err := conn.DocumentManager().Count(context.Background(), "x")
	assert.True(t, adapter.IsUnsupported(err))
}
