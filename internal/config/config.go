package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	NodeEnv     string
	Port        string
	JWTSecret   string
	FrontendDir string
	Database    DatabaseConfig
	Layout      LayoutConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Alter    bool
	// DataPath is where the embedded server keeps its cluster.
	DataPath string
}

// LayoutConfig holds the spacing rules applied when a request does not specify them
type LayoutConfig struct {
	OuterSpacing decimal.Decimal
	InnerSpacing decimal.Decimal
}

// AuthEnabled reports whether mutating routes require a bearer token
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	outer, err := getDecimal("LAYOUT_OUTER_SPACING", "0.3")
	if err != nil {
		return nil, err
	}
	inner, err := getDecimal("LAYOUT_INNER_SPACING", "0.15")
	if err != nil {
		return nil, err
	}
	if !outer.IsPositive() || !inner.IsPositive() {
		return nil, fmt.Errorf("layout spacing must be greater than 0 (outer=%s, inner=%s)", outer, inner)
	}

	return &Config{
		NodeEnv:     getEnv("NODE_ENV", "development"),
		Port:        getEnv("PORT", "3210"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		FrontendDir: os.Getenv("FRONTEND_DIR"),
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "fabricplan"),
			Alter:    getEnv("DB_ALTER", "false") == "true",
			DataPath: getEnv("PG_DATA_PATH", "./db_data"),
		},
		Layout: LayoutConfig{
			OuterSpacing: outer,
			InnerSpacing: inner,
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDecimal(key, defaultValue string) (decimal.Decimal, error) {
	raw := getEnv(key, defaultValue)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
