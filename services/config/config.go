package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the command-line tools. The
// simulation core never reads the environment itself.
type Config struct {
	// ClickHouse bar store
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseTable    string
	ClickHouseUser     string
	ClickHousePassword string

	// Simulation defaults, overridable per run by flags
	InitialCapital float64
	RiskPerTrade   float64
	ATRMultiplier  float64
	TaxRate        float64
	NumSimulations int
}

// Load reads configuration from the environment, with a best-effort .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CH_DATABASE", "stratlab"),
		ClickHouseTable:    getEnv("CH_TABLE", "daily_bars"),
		ClickHouseUser:     getEnv("CH_USER", "default"),
		ClickHousePassword: getEnv("CH_PASSWORD", ""),
	}

	var err error
	if cfg.InitialCapital, err = getEnvFloat("INITIAL_CAPITAL", 100000); err != nil {
		return nil, err
	}
	if cfg.InitialCapital <= 0 {
		return nil, fmt.Errorf("INITIAL_CAPITAL must be > 0")
	}
	if cfg.RiskPerTrade, err = getEnvFloat("RISK_PER_TRADE", 0.02); err != nil {
		return nil, err
	}
	if cfg.ATRMultiplier, err = getEnvFloat("ATR_MULTIPLIER", 3.0); err != nil {
		return nil, err
	}
	if cfg.TaxRate, err = getEnvFloat("TAX_RATE", 0.002); err != nil {
		return nil, err
	}
	if cfg.NumSimulations, err = getEnvInt("NUM_SIMULATIONS", 1000); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return f, nil
}

func getEnvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}
