package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultJWTSecret is the development signing secret. Validate rejects it when Env is "prod".
const DefaultJWTSecret = "supersecretkey"

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port string

	DBHost string
	DBPort string
	DBName string
	DBUser string
	DBPass string

	// DBMaxOpenConns is the maximum number of open connections to the database (default 25).
	DBMaxOpenConns int
	// DBMaxIdleConns is the maximum number of idle connections (default 5).
	DBMaxIdleConns int

	// Store selects the persistence backend: "postgres" (default) or "memory".
	Store string
	// RunMigrations applies embedded migrations at startup when the store is postgres.
	RunMigrations bool

	JWTSecret string
	JWTIssuer string
	// JWTExpire is the access token lifetime. Set via JWT_EXPIRE_MINUTES (default 30).
	JWTExpire time.Duration

	// Env is "dev" (default) or "prod". When "prod", JWT_SECRET must be set and not the default.
	Env string

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	// When empty, the API listens with plain HTTP.
	TLSCertFile string
	TLSKeyFile  string

	// LogFormat is "text" (default) or "json" for structured logging.
	LogFormat string
	// LogLevel is one of debug, info, warn, error (default info).
	LogLevel string

	// CORSAllowedOrigins is a list of origins allowed for CORS (e.g. https://app.example.com, http://localhost:3000).
	// Set via CORS_ALLOWED_ORIGINS (comma-separated). When empty, no CORS headers are sent (same-origin only).
	CORSAllowedOrigins []string

	// AuthRatePerMinute and AuthRateBurst shape the per-IP limiter on /register and /login.
	AuthRatePerMinute int
	AuthRateBurst     int

	// BulkMaxBytes caps the size of a bulk import upload (default 10 MiB).
	BulkMaxBytes int64

	// StatsCron is the cron spec for refreshing catalog gauges (default "@every 1m").
	StatsCron string
}

func Load() Config {
	return Config{
		Port: getEnv("PORT", "8080"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnv("DB_PORT", "5432"),
		DBName: getEnv("DB_NAME", "bookdb"),
		DBUser: getEnv("DB_USER", "bookuser"),
		DBPass: getEnv("DB_PASS", "bookpass"),

		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),

		Store:         strings.ToLower(getEnv("STORE", StorePostgres)),
		RunMigrations: getEnvBool("RUN_MIGRATIONS", true),

		JWTSecret: getEnv("JWT_SECRET", DefaultJWTSecret),
		JWTIssuer: getEnv("JWT_ISSUER", "book-catalog"),
		JWTExpire: time.Duration(getEnvInt("JWT_EXPIRE_MINUTES", 30)) * time.Minute,
		Env:       getEnv("ENV", "dev"),

		// Optional TLS configuration for HTTPS.
		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		CORSAllowedOrigins: parseCORSOrigins(getEnv("CORS_ALLOWED_ORIGINS", "")),

		AuthRatePerMinute: getEnvInt("AUTH_RATE_PER_MINUTE", 10),
		AuthRateBurst:     getEnvInt("AUTH_RATE_BURST", 5),

		BulkMaxBytes: int64(getEnvInt("BULK_MAX_BYTES", 10<<20)),
		StatsCron:    getEnv("STATS_CRON", "@every 1m"),
	}
}

// Validate reports configuration that must not reach a running server.
func (c Config) Validate() error {
	if c.Env == "prod" && (c.JWTSecret == "" || c.JWTSecret == DefaultJWTSecret) {
		return errors.New("JWT_SECRET must be set to a non-default value when ENV=prod")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.Store != StorePostgres && c.Store != StoreMemory {
		return fmt.Errorf("unknown STORE %q (want %s or %s)", c.Store, StorePostgres, StoreMemory)
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	return nil
}

// DatabaseURL returns the postgres URL form of the DB settings, as expected by migrate.
func (c Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPass),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// parseCORSOrigins splits a comma-separated list of origins and trims spaces. Empty strings are omitted.
func parseCORSOrigins(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if o := strings.TrimSpace(p); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
