// Package config provides configuration management for the traffic
// director. It loads settings from environment variables with sensible
// defaults and validates them before the process starts serving.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Admin API port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//
// Routing Configuration:
//   - RULES_FILE: Path to the snapshot config file (default: ./rules.yaml)
//   - ENGINE_SEED: Optional PRNG seed for the decision engine; unset
//     seeds from the clock
//
// Policy Backend:
//   - TELEMETRY_ADDRESS: Address of the policy/telemetry backend; empty
//     disables Check/Report/Quota calls
//
// Admin API Security:
//   - ADMIN_JWT_SECRET: Secret for admin API bearer tokens (required,
//     minimum 32 characters)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration values for the traffic director. All
// fields correspond to environment variables; call Load to populate and
// Validate before use.
type Config struct {
	Port     string // Admin API port number
	LogLevel string // Logging level (debug, info, warn, error)

	RulesFile  string // Path to the routing snapshot file
	EngineSeed string // Optional decision engine PRNG seed

	TelemetryAddress string // Policy backend address, empty disables it

	AdminJWTSecret string // Secret for admin API bearer tokens
}

// Load creates a Config from environment variables, applying defaults
// for anything unset. Load does not validate; call Validate on the
// result.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RulesFile:  getEnv("RULES_FILE", "./rules.yaml"),
		EngineSeed: getEnv("ENGINE_SEED", ""),

		TelemetryAddress: getEnv("TELEMETRY_ADDRESS", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
	}
}

// getEnv retrieves an environment variable value or returns a default
// value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate checks that required fields are present and well-formed.
// The application should call this after Load and before serving.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	if c.RulesFile == "" {
		return fmt.Errorf("RULES_FILE must not be empty")
	}

	if c.EngineSeed != "" {
		if _, err := strconv.ParseInt(c.EngineSeed, 10, 64); err != nil {
			return fmt.Errorf("ENGINE_SEED must be a valid integer")
		}
	}

	if c.AdminJWTSecret == "" {
		return fmt.Errorf("ADMIN_JWT_SECRET environment variable is required")
	}
	if len(c.AdminJWTSecret) < 32 {
		return fmt.Errorf("ADMIN_JWT_SECRET must be at least 32 characters long for security")
	}

	return nil
}

// Seed returns the engine PRNG seed, or ok=false when unset.
func (c *Config) Seed() (int64, bool) {
	if c.EngineSeed == "" {
		return 0, false
	}
	seed, err := strconv.ParseInt(c.EngineSeed, 10, 64)
	if err != nil {
		return 0, false
	}
	return seed, true
}
