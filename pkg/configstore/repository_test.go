package configstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/luno/jettison/jtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	_, found, err := repo.Get(ctx, "alice")
	jtest.RequireNil(t, err)
	assert.False(t, found)

	cfg := StoredConfig{
		Dashboards:        []json.RawMessage{json.RawMessage(`{"id":"db_1"}`)},
		ActiveDashboardID: json.RawMessage(`"db_1"`),
	}
	jtest.RequireNil(t, repo.Put(ctx, "alice", cfg))

	// Stored copies are isolated from the caller's buffers.
	cfg.Dashboards[0][2] = 'X'

	got, found, err := repo.Get(ctx, "alice")
	jtest.RequireNil(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"id":"db_1"}`, string(got.Dashboards[0]))
	assert.Equal(t, `"db_1"`, string(got.ActiveDashboardID))

	jtest.RequireNil(t, repo.Delete(ctx, "alice"))
	_, found, err = repo.Get(ctx, "alice")
	jtest.RequireNil(t, err)
	assert.False(t, found)
}

func TestConfigKey(t *testing.T) {
	assert.Equal(t, "meshdash:config:42", configKey("42"))
}

func TestNewRedisPoolValidation(t *testing.T) {
	_, err := NewRedisPool(context.Background(), RedisConfig{})
	require.Error(t, err)

	_, err = NewRedisPool(context.Background(), RedisConfig{URL: "redis://127.0.0.1:6379", User: "u"})
	require.Error(t, err)

	pool, err := NewRedisPool(context.Background(), RedisConfig{URL: "redis://127.0.0.1:6379"})
	jtest.RequireNil(t, err)
	assert.NotNil(t, pool)
	_ = pool.Close()
}
