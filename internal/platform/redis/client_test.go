package redis

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quorumcred/internal/platform/config"
)

func TestNew_EmptyURLFallsBack(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{}, prometheus.NewRegistry())
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{URL: "://nope"}, prometheus.NewRegistry())
	require.Error(t, err)
}

func TestRecordPoolStats_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := &Client{
		Client:  redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"}),
		metrics: newPoolMetrics(reg),
	}
	defer c.Close() //nolint:errcheck // never connected

	c.RecordPoolStats()
	c.RecordPoolStats()

	assert.Equal(t, float64(0), testutil.ToFloat64(c.metrics.totalConns))
	count, err := testutil.GatherAndCount(reg, "quorumcred_redis_pool_hits_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
