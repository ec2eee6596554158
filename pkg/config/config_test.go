package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 5001, cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "motorways", cfg.RoutingDataset)
	assert.Equal(t, 0.002, cfg.NetworkTolerance)
	assert.Equal(t, 0.5, cfg.PathfindingTolerance)
	assert.Equal(t, 10000, cfg.MaxFeatures)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, 64, cfg.MaxConcurrentRoutes)
	assert.Equal(t, 50.0, cfg.RateLimitRPS)
	assert.Equal(t, "0.0.0.0:5001", cfg.Addr())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ROUTING_DATASET", "a_roads")
	t.Setenv("NETWORK_TOLERANCE", "0.004")
	t.Setenv("API_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "a_roads", cfg.RoutingDataset)
	assert.Equal(t, 0.004, cfg.NetworkTolerance)
	assert.Equal(t, 3*time.Second, cfg.APITimeout)
}
