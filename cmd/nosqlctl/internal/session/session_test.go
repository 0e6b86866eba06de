package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-nosql/internal/database/redis"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/keyring"
	"github.com/redbco/redb-nosql/pkg/logger"
)

func TestLoadSettingsFromFileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nosql.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nosql:\n  provider: redis\n  host: cache.local\n"), 0o600))
	t.Setenv("NOSQLCTL_NOSQL_PORT", "6380")

	s, err := LoadSettings(Options{ConfigPath: path})
	require.NoError(t, err)

	cfg, err := adapter.ConfigFromSettings(s)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.ConnectionType)
	assert.Equal(t, "cache.local", cfg.Host)
	assert.Equal(t, 6380, cfg.Port)
}

func TestOpenSettings(t *testing.T) {
	mr := miniredis.RunT(t)
	registry := adapter.NewRegistry()
	registry.Register(redis.NewAdapter())

	path := filepath.Join(t.TempDir(), "nosql.yaml")
	config := fmt.Sprintf("nosql:\n  provider: redis\n  id: cache\n  uri: redis://%s\n", mr.Addr())
	require.NoError(t, os.WriteFile(path, []byte(config), 0o600))
	s, err := LoadSettings(Options{ConfigPath: path})
	require.NoError(t, err)

	ctx := context.Background()
	sess, err := OpenSettings(ctx, s, logger.NewNop(), registry)
	require.NoError(t, err)
	assert.Equal(t, "cache", sess.ID)

	bucket, err := sess.Manager.Bucket(sess.ID, "users")
	require.NoError(t, err)
	require.NoError(t, bucket.Put(ctx, "ada", map[string]interface{}{"age": 36}))

	value, ok, err := bucket.Get(ctx, "ada")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"age": 36}`, string(value))

	require.NoError(t, sess.Close(ctx))
	assert.Empty(t, sess.Manager.ListConnections())
}

func TestOpenSettingsUnknownDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nosql.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nosql:\n  provider: redis\n  host: localhost\n"), 0o600))
	s, err := LoadSettings(Options{ConfigPath: path})
	require.NoError(t, err)

	_, err = OpenSettings(context.Background(), s, logger.NewNop(), adapter.NewRegistry())
	assert.ErrorIs(t, err, adapter.ErrAdapterNotFound)
}

func TestNewLogger(t *testing.T) {
	log, err := NewLogger("", "test")
	require.NoError(t, err)
	assert.NotNil(t, log)

	_, err = NewLogger("loud", "test")
	assert.Error(t, err)
}

type mapStore map[string]string

func (m mapStore) Set(id, secret string) error { m[id] = secret; return nil }
func (m mapStore) Delete(id string) error      { delete(m, id); return nil }
func (m mapStore) Get(id string) (string, error) {
	secret, ok := m[id]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return secret, nil
}

func TestLoadSettingsPasswordFromKeyring(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nosql.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nosql:\n  provider: mongodb\n  id: orders\n  host: db.local\n"), 0o600))

	opened := 0
	store := mapStore{"orders": "s3cret"}
	opts := Options{ConfigPath: path, OpenKeyring: func() (keyring.Store, error) {
		opened++
		return store, nil
	}}

	s, err := LoadSettings(opts)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", s.GetString(adapter.KeyPassword))
	assert.Equal(t, 1, opened)

	delete(store, "orders")
	s, err = LoadSettings(opts)
	require.NoError(t, err)
	assert.False(t, s.Has(adapter.KeyPassword))

	t.Setenv("NOSQLCTL_NOSQL_PASSWORD", "from-env")
	s, err = LoadSettings(opts)
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.GetString(adapter.KeyPassword))
	assert.Equal(t, 2, opened)
}
