package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veltex/warehouse-backend/pkg/config"
)

func TestOptionsFromConfigRequiresEndpoint(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	require.Error(t, err)
}

func TestOptionsFromConfigURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://:pw@localhost:6380/2",
		PoolSize:    10,
		DialTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 10, opts.PoolSize)
}

func TestOptionsFromConfigAddress(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		Address:  "redis.internal:6379",
		Password: "pw",
		DB:       1,
	})
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6379", opts.Addr)
	assert.Equal(t, 1, opts.DB)
}

func TestReplayKey(t *testing.T) {
	c := &Client{}
	assert.Equal(t, "vx:replay:evt-123", c.ReplayKey("evt-123"))
}

func TestUninitializedClientErrors(t *testing.T) {
	c := &Client{}
	_, err := c.Get(t.Context(), "k")
	require.Error(t, err)
	require.Error(t, c.Set(t.Context(), "k", "v", 0))
}
