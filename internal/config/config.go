package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MigrationsPath  string
}

type SSLCommerzConfig struct {
	StoreID    string
	StorePass  string
	Sandbox    bool
	SuccessURL string
	FailURL    string
	CancelURL  string
	IPNURL     string
	Timeout    time.Duration
}

type Config struct {
	App struct {
		Port   string
		Secret string
	}
	Postgres   PostgresConfig
	SSLCommerz SSLCommerzConfig
}

// Load reads configuration from the environment, optionally seeded from an
// env file. Database and gateway credentials are required.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: failed to load env file %s: %w", envPath, err)
		}
	}

	cfg := &Config{}

	cfg.App.Port = getEnv("APP_PORT", "8080")
	cfg.App.Secret = os.Getenv("APP_SECRET")
	if cfg.App.Secret == "" {
		return nil, fmt.Errorf("config: APP_SECRET is required")
	}

	cfg.Postgres.Host = os.Getenv("DB_HOST")
	cfg.Postgres.Port = getEnv("DB_PORT", "5432")
	cfg.Postgres.User = os.Getenv("DB_USER")
	cfg.Postgres.Password = os.Getenv("DB_PASSWORD")
	cfg.Postgres.DBName = os.Getenv("DB_NAME")
	cfg.Postgres.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Postgres.MaxConns = 10
	cfg.Postgres.MinConns = 2
	cfg.Postgres.MaxConnLifetime = 30 * time.Minute
	cfg.Postgres.MigrationsPath = getEnv("DB_MIGRATIONS_PATH", "migrations")

	for name, value := range map[string]string{
		"DB_HOST":     cfg.Postgres.Host,
		"DB_USER":     cfg.Postgres.User,
		"DB_PASSWORD": cfg.Postgres.Password,
		"DB_NAME":     cfg.Postgres.DBName,
	} {
		if value == "" {
			return nil, fmt.Errorf("config: %s is required", name)
		}
	}

	cfg.SSLCommerz.StoreID = os.Getenv("SSLCOMMERZ_STORE_ID")
	cfg.SSLCommerz.StorePass = os.Getenv("SSLCOMMERZ_STORE_PASS")
	cfg.SSLCommerz.Sandbox = getEnv("SSLCOMMERZ_IS_SANDBOX", "true") == "true"
	cfg.SSLCommerz.SuccessURL = os.Getenv("SSLCOMMERZ_SUCCESS_URL")
	cfg.SSLCommerz.FailURL = os.Getenv("SSLCOMMERZ_FAIL_URL")
	cfg.SSLCommerz.CancelURL = os.Getenv("SSLCOMMERZ_CANCEL_URL")
	cfg.SSLCommerz.IPNURL = os.Getenv("SSLCOMMERZ_IPN_URL")
	cfg.SSLCommerz.Timeout = 30 * time.Second

	if cfg.SSLCommerz.StoreID == "" || cfg.SSLCommerz.StorePass == "" {
		return nil, fmt.Errorf("config: SSLCOMMERZ_STORE_ID and SSLCOMMERZ_STORE_PASS are required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
