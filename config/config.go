package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultTokenExpiry     = 30 * time.Minute
	defaultShutdownTimeout = 10 * time.Second
	defaultConnectTimeout  = 10 * time.Second
	defaultQueryTimeout    = 5 * time.Second
)

// Config holds everything the process reads from the environment.
// SecretKey is optional: when empty, token auth is disabled and all
// routes are open.
type Config struct {
	MongoURL     string
	DatabaseName string
	HTTPAddr     string

	SecretKey    string
	AdminKeyHash string
	TokenExpiry  time.Duration

	AMQPURL string

	ShutdownTimeout time.Duration
	ConnectTimeout  time.Duration
	QueryTimeout    time.Duration
}

// Load reads a .env file if present, then the environment. It fails on
// missing required keys so a misconfigured process dies at startup, not
// on the first request.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		MongoURL:        getEnv("MONGODB_URL", ""),
		DatabaseName:    getEnv("DATABASE_NAME", ""),
		HTTPAddr:        getEnv("HTTP_ADDR", defaultHTTPAddr),
		SecretKey:       getEnv("SECRET_KEY", ""),
		AdminKeyHash:    getEnv("ADMIN_KEY_HASH", ""),
		TokenExpiry:     defaultTokenExpiry,
		AMQPURL:         getEnv("AMQP_URL", ""),
		ShutdownTimeout: defaultShutdownTimeout,
		ConnectTimeout:  defaultConnectTimeout,
		QueryTimeout:    defaultQueryTimeout,
	}

	if cfg.MongoURL == "" {
		return Config{}, fmt.Errorf("MONGODB_URL is required")
	}
	if cfg.DatabaseName == "" {
		return Config{}, fmt.Errorf("DATABASE_NAME is required")
	}
	if cfg.SecretKey != "" && cfg.AdminKeyHash == "" {
		return Config{}, fmt.Errorf("ADMIN_KEY_HASH is required when SECRET_KEY is set")
	}

	if raw := getEnv("ACCESS_TOKEN_EXPIRE_MINUTES", ""); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes < 1 {
			return Config{}, fmt.Errorf("invalid ACCESS_TOKEN_EXPIRE_MINUTES %q", raw)
		}
		cfg.TokenExpiry = time.Duration(minutes) * time.Minute
	}

	if raw := getEnv("SHUTDOWN_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q", raw)
		}
		cfg.ShutdownTimeout = d
	}

	if raw := getEnv("QUERY_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid QUERY_TIMEOUT %q", raw)
		}
		cfg.QueryTimeout = d
	}

	return cfg, nil
}

// AuthEnabled reports whether mutating routes require a bearer token.
func (c Config) AuthEnabled() bool {
	return c.SecretKey != ""
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
