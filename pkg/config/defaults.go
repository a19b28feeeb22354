package config

import (
	"strings"

	"github.com/marmos91/smboffload/pkg/offload/kvstore"
)

// DefaultMemoryShards is the default shard count of the memory backend.
const DefaultMemoryShards = 32

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyOffloadDefaults(&cfg.Offload)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "inuse_space"}
	}
}

// applyOffloadDefaults sets token store defaults.
func applyOffloadDefaults(cfg *OffloadConfig) {
	if cfg.Backend == "" {
		cfg.Backend = string(kvstore.BackendMemory)
	}
	cfg.Backend = strings.ToLower(cfg.Backend)

	if cfg.Shards == 0 {
		cfg.Shards = DefaultMemoryShards
	}
	if cfg.Backend == string(kvstore.BackendBadger) && cfg.Badger.Dir == "" {
		cfg.Badger.InMemory = true
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Telemetry: TelemetryConfig{Insecure: true},
	}
	ApplyDefaults(cfg)
	return cfg
}
