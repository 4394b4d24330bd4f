package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:           "8080",
		LogLevel:       "info",
		RulesFile:      "./rules.yaml",
		AdminJWTSecret: strings.Repeat("s", 32),
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("RULES_FILE", "")
	t.Setenv("LOG_LEVEL", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "./rules.yaml", cfg.RulesFile)
	assert.Empty(t, cfg.TelemetryAddress)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("RULES_FILE", "/etc/director/rules.yaml")
	t.Setenv("ENGINE_SEED", "42")
	t.Setenv("TELEMETRY_ADDRESS", "policy.svc:9091")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "/etc/director/rules.yaml", cfg.RulesFile)
	assert.Equal(t, "42", cfg.EngineSeed)
	assert.Equal(t, "policy.svc:9091", cfg.TelemetryAddress)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Port = "http" }, "PORT"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "PORT"},
		{"empty rules file", func(c *Config) { c.RulesFile = "" }, "RULES_FILE"},
		{"bad seed", func(c *Config) { c.EngineSeed = "xyz" }, "ENGINE_SEED"},
		{"missing secret", func(c *Config) { c.AdminJWTSecret = "" }, "ADMIN_JWT_SECRET"},
		{"short secret", func(c *Config) { c.AdminJWTSecret = "short" }, "32 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSeed(t *testing.T) {
	cfg := validConfig()

	_, ok := cfg.Seed()
	assert.False(t, ok, "unset seed reports not ok")

	cfg.EngineSeed = "-7"
	seed, ok := cfg.Seed()
	require.True(t, ok)
	assert.Equal(t, int64(-7), seed)
}
