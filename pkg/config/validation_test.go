package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_Nil(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Fatal("Expected error for nil config")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"InvalidLogLevel", func(c *Config) { c.Logging.Level = "VERBOSE" }, "Logging.Level: oneof"},
		{"InvalidLogFormat", func(c *Config) { c.Logging.Format = "xml" }, "Logging.Format: oneof"},
		{"EmptyOutput", func(c *Config) { c.Logging.Output = "" }, "Logging.Output: required"},
		{"SampleRateTooHigh", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, "SampleRate: lte"},
		{"UnknownBackend", func(c *Config) { c.Offload.Backend = "redis" }, "Offload.Backend: oneof"},
		{"NegativeMaxEntries", func(c *Config) { c.Offload.MaxEntries = -1 }, "MaxEntries: gte"},
		{"NegativeShards", func(c *Config) { c.Offload.Shards = -2 }, "Shards: gte"},
		{"UnknownProfileType", func(c *Config) {
			c.Telemetry.Profiling.ProfileTypes = []string{"cpu", "gpu"}
		}, "profile_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got: %v", tt.want, err)
			}
		})
	}
}
