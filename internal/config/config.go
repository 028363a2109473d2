package config

import (
	"os"
	"strconv"
	"time"

	"dqengine/internal/errors"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Log      LogConfig
	Engine   EngineConfig
	Gate     GateConfig
	Server   ServerConfig
	Database DatabaseConfig
	Suites   SuitesConfig
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string
}

// EngineConfig holds quality engine settings
type EngineConfig struct {
	// Parallelism bounds concurrent rule evaluation; 1 runs rules sequentially
	Parallelism int
	SampleSize  int
	Timeout     time.Duration
}

// GateConfig holds the default pass/fail policy applied to check results
type GateConfig struct {
	FailOnCritical  bool
	MinHealthScore  float64
	MinQualityScore float64
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DatabaseConfig holds database connection settings. An empty URL disables
// the Postgres loader and run history.
type DatabaseConfig struct {
	URL string
}

// SuitesConfig locates YAML check suites
type SuitesConfig struct {
	Dir string
}

// Load reads .env files (if present) and then configuration from environment variables
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to read env file")
	}
	return FromEnv()
}

// FromEnv builds configuration from the current environment and validates it
func FromEnv() (*Config, error) {
	config := &Config{
		Log:      *loadLogConfig(),
		Engine:   *loadEngineConfig(),
		Gate:     *loadGateConfig(),
		Server:   *loadServerConfig(),
		Database: DatabaseConfig{URL: getEnvOrDefault("DATABASE_URL", "")},
		Suites:   SuitesConfig{Dir: getEnvOrDefault("DQ_SUITES_DIR", "./suites")},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadLogConfig() *LogConfig {
	return &LogConfig{Level: getEnvOrDefault("LOG_LEVEL", "INFO")}
}

func loadEngineConfig() *EngineConfig {
	return &EngineConfig{
		Parallelism: getEnvIntOrDefault("DQ_PARALLELISM", 4),
		SampleSize:  getEnvIntOrDefault("DQ_SAMPLE_SIZE", 5),
		Timeout:     getEnvDurationOrDefault("DQ_TIMEOUT", 30*time.Second),
	}
}

func loadGateConfig() *GateConfig {
	return &GateConfig{
		FailOnCritical:  getEnvBoolOrDefault("DQ_FAIL_ON_CRITICAL", true),
		MinHealthScore:  getEnvFloatOrDefault("DQ_MIN_HEALTH_SCORE", 0),
		MinQualityScore: getEnvFloatOrDefault("DQ_MIN_QUALITY_SCORE", 0),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func validateConfig(config *Config) error {
	if config.Engine.Parallelism < 1 {
		return errors.ConfigInvalid("DQ_PARALLELISM must be at least 1")
	}
	if config.Engine.SampleSize < 1 {
		return errors.ConfigInvalid("DQ_SAMPLE_SIZE must be at least 1")
	}
	if config.Gate.MinHealthScore < 0 || config.Gate.MinHealthScore > 100 {
		return errors.ConfigInvalid("DQ_MIN_HEALTH_SCORE must be within [0, 100]")
	}
	if config.Gate.MinQualityScore < 0 || config.Gate.MinQualityScore > 1 {
		return errors.ConfigInvalid("DQ_MIN_QUALITY_SCORE must be within [0, 1]")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
