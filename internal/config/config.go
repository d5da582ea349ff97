package config

import (
	"os"

	"github.com/joho/godotenv"
)

// insecureDefaultSecret is only acceptable for local development. Load
// reports its use so the server can warn loudly.
const insecureDefaultSecret = "insecure-dev-secret"

// Config holds the process-wide configuration, read once at startup.
type Config struct {
	Port      string
	DBPath    string
	SecretKey string
	// InsecureSecret is true when SECRET_KEY was unset and the
	// development fallback is in use.
	InsecureSecret bool
}

// Load reads configuration from a .env file (if present) and the process
// environment.
func Load() *Config {
	// Missing .env is fine; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		DBPath:    getEnv("DB_PATH", "finance.db"),
		SecretKey: os.Getenv("SECRET_KEY"),
	}
	if cfg.SecretKey == "" {
		cfg.SecretKey = insecureDefaultSecret
		cfg.InsecureSecret = true
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
