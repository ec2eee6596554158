// Package config loads runtime settings from defaults, an optional
// config file in the data directory and environment variables, in
// ascending precedence.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config holds every runtime setting of the routing service.
type Config struct {
	Host string
	Port int
	Env  string

	DataDir        string
	RoutingDataset string
	GraphSnapshot  string // path to a prebuilt graph; empty means build lazily

	NetworkTolerance     float64 // endpoint-snapping tolerance in degrees
	PathfindingTolerance float64 // nearest-node search radius in degrees
	MaxFeatures          int     // viewport response cap

	APITimeout          time.Duration
	MaxConcurrentRoutes int
	RateLimitRPS        float64
}

// Load reads the configuration. Environment variables use the same
// upper-snake key names as the defaults below.
func Load() (*Config, error) {
	viper.SetDefault("HOST", "0.0.0.0")
	viper.SetDefault("PORT", 5001)
	viper.SetDefault("ENV", "production")
	viper.SetDefault("DATA_DIR", "./data")
	viper.SetDefault("ROUTING_DATASET", "motorways")
	viper.SetDefault("GRAPH_SNAPSHOT", "")
	viper.SetDefault("NETWORK_TOLERANCE", 0.002)
	viper.SetDefault("PATHFINDING_TOLERANCE", 0.5)
	viper.SetDefault("MAX_FEATURES", 10000)
	viper.SetDefault("API_TIMEOUT", "10s")
	viper.SetDefault("MAX_CONCURRENT_ROUTES", 64)
	viper.SetDefault("RATE_LIMIT_RPS", 50)
	viper.AutomaticEnv()

	// Optional config file next to the data.
	viper.SetConfigName("config")
	viper.AddConfigPath(viper.GetString("DATA_DIR"))
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return &Config{
		Host:                 viper.GetString("HOST"),
		Port:                 viper.GetInt("PORT"),
		Env:                  viper.GetString("ENV"),
		DataDir:              viper.GetString("DATA_DIR"),
		RoutingDataset:       viper.GetString("ROUTING_DATASET"),
		GraphSnapshot:        viper.GetString("GRAPH_SNAPSHOT"),
		NetworkTolerance:     viper.GetFloat64("NETWORK_TOLERANCE"),
		PathfindingTolerance: viper.GetFloat64("PATHFINDING_TOLERANCE"),
		MaxFeatures:          viper.GetInt("MAX_FEATURES"),
		APITimeout:           viper.GetDuration("API_TIMEOUT"),
		MaxConcurrentRoutes:  viper.GetInt("MAX_CONCURRENT_ROUTES"),
		RateLimitRPS:         viper.GetFloat64("RATE_LIMIT_RPS"),
	}, nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
