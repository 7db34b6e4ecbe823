// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir           string // Base directory for the cache and report databases, always absolute
	Port              int
	LogLevel          string
	DevMode           bool
	MarketDataURL     string
	MarketDataAPIKey  string
	RiskFreeRate      float64
	MarketRiskPremium float64
	MonteCarloTrials  int
	MonteCarloWorkers int
	RandomSeed        int64
	RefreshSchedule   string   // cron expression for the valuation refresh job
	TrackedSymbols    []string // symbols the refresh job re-values
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("APPRAISER_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:           absDataDir,
		Port:              getEnvAsInt("APPRAISER_PORT", 8001),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		MarketDataURL:     getEnv("MARKET_DATA_URL", ""),
		MarketDataAPIKey:  getEnv("MARKET_DATA_API_KEY", ""),
		RiskFreeRate:      getEnvAsFloat("RISK_FREE_RATE", 0.045),
		MarketRiskPremium: getEnvAsFloat("MARKET_RISK_PREMIUM", 0.065),
		MonteCarloTrials:  getEnvAsInt("MONTE_CARLO_TRIALS", 1000),
		MonteCarloWorkers: getEnvAsInt("MONTE_CARLO_WORKERS", 0), // 0 = NumCPU
		RandomSeed:        int64(getEnvAsInt("RANDOM_SEED", 42)),
		RefreshSchedule:   getEnv("REFRESH_SCHEDULE", "0 30 6 * * 1-5"), // weekdays 06:30
		TrackedSymbols:    getEnvAsList("TRACKED_SYMBOLS", []string{"GOOGL"}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if required configuration is present and sane
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.RiskFreeRate < 0 || c.RiskFreeRate > 0.5 {
		return fmt.Errorf("risk-free rate %.4f outside plausible range [0, 0.5]", c.RiskFreeRate)
	}
	if c.MarketRiskPremium < 0 || c.MarketRiskPremium > 0.5 {
		return fmt.Errorf("market risk premium %.4f outside plausible range [0, 0.5]", c.MarketRiskPremium)
	}
	if c.MonteCarloTrials <= 0 {
		return fmt.Errorf("monte carlo trials must be positive, got %d", c.MonteCarloTrials)
	}
	// Note: MarketDataURL optional; the engine degrades to documented defaults
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
