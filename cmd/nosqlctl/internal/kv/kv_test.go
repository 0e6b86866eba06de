package kv

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/output"
	"github.com/redbco/redb-nosql/internal/database/redis"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
)

func bucket(t *testing.T) (*miniredis.Miniredis, communication.BucketManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	host, port, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	p, err := strconv.Atoi(port)
	require.NoError(t, err)

	conn, err := redis.NewAdapter().Connect(context.Background(), adapter.ConnectionConfig{Host: host, Port: p})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	b, err := conn.BucketManagerFactory().Bucket("users")
	require.NoError(t, err)
	return mr, b
}

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	mr, b := bucket(t)
	var buf bytes.Buffer

	require.NoError(t, Put(ctx, &buf, b, "ada", `{"age": 36}`, 0))
	assert.Equal(t, "Stored ada in bucket users\n", buf.String())
	require.NoError(t, Put(ctx, &buf, b, "bob", "hello", time.Minute))

	buf.Reset()
	require.NoError(t, Get(ctx, &buf, output.JSON, b, []string{"ada"}))
	assert.JSONEq(t, `{"age": 36}`, buf.String())

	buf.Reset()
	require.NoError(t, Get(ctx, &buf, output.Table, b, []string{"bob"}))
	assert.Equal(t, "hello\n", buf.String())

	buf.Reset()
	require.NoError(t, Get(ctx, &buf, output.Table, b, []string{"ada", "missing", "bob"}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"ada", `{"age":36}`}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"bob", "hello"}, strings.Fields(lines[2]))

	mr.FastForward(2 * time.Minute)
	err := Get(ctx, &buf, output.Table, b, []string{"bob"})
	assert.ErrorContains(t, err, `key "bob" not found`)

	buf.Reset()
	require.NoError(t, Delete(ctx, &buf, b, []string{"ada", "bob"}))
	assert.Equal(t, "Deleted 2 key(s) from bucket users\n", buf.String())

	buf.Reset()
	require.NoError(t, Get(ctx, &buf, output.JSON, b, []string{"ada", "bob"}))
	assert.JSONEq(t, `{}`, buf.String())
}
