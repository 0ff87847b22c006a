// Package config loads flash-lob's engine configuration via viper,
// following the same AddConfigPath/AutomaticEnv/Unmarshal pattern the
// teacher's service configs use, trimmed to the sections a single
// matching-engine instance actually needs.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the root configuration for one engine instance (spec §9:
// one instance per symbol, so one Config per process).
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Ingress IngressConfig `mapstructure:"ingress"`
}

// EngineConfig sizes the arena and the two SPSC rings, and sets the
// snapshot cadence (spec §4.1, §5, §6).
type EngineConfig struct {
	Symbol                 string `mapstructure:"symbol"`
	ArenaCapacity          int    `mapstructure:"arena_capacity"`
	CommandRingCapacity    int    `mapstructure:"command_ring_capacity"`
	EventRingCapacity      int    `mapstructure:"event_ring_capacity"`
	SnapshotDepth          int    `mapstructure:"snapshot_depth"`
	SnapshotEveryNCommands int    `mapstructure:"snapshot_every_n_commands"`
}

// LoggingConfig controls the zap logger built by internal/logging.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
}

// MetricsConfig controls the prometheus HTTP exporter.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// IngressConfig controls the demo synthetic producer in internal/ingress.
type IngressConfig struct {
	OrdersPerSecond  float64 `mapstructure:"orders_per_second"`
	MaxPriceTicks    int64   `mapstructure:"max_price_ticks"`
	CircuitThreshold uint32  `mapstructure:"circuit_threshold"`
}

// Load reads flash-lob.yaml from configPath (or ".", "./config",
// "/etc/flash-lob" if empty), overlays FLASHLOB_-prefixed environment
// variables, and fills in defaults for anything left unset.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("flash-lob")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/flash-lob")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("FLASHLOB")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.symbol", "XYZ")
	v.SetDefault("engine.arena_capacity", 1<<20-1)
	v.SetDefault("engine.command_ring_capacity", 1<<16)
	v.SetDefault("engine.event_ring_capacity", 1<<16)
	v.SetDefault("engine.snapshot_depth", 10)
	v.SetDefault("engine.snapshot_every_n_commands", 1000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.environment", "development")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("ingress.orders_per_second", 1000.0)
	v.SetDefault("ingress.max_price_ticks", 10000)
	v.SetDefault("ingress.circuit_threshold", 5)
}
