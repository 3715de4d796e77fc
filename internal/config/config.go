package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DefaultEventExpiration is the badge expiration ceiling used when
// EVENT_EXPIRATION is unset: 16 June 2025, 17:00 Madagascar time (UTC+3).
var DefaultEventExpiration = time.Date(2025, time.June, 16, 14, 0, 0, 0, time.UTC)

type Config struct {
	Port int
	Env  string

	StoreDriver string
	DatabaseURL string
	DBMigrate   bool

	CORSOrigins []string

	JWTSecret string

	EventExpiration time.Time

	RedisURL     string
	RedisChannel string

	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	envFileErr := godotenv.Load()

	cfg := Config{
		Port:            getenvInt("PORT", 3000),
		Env:             strings.ToLower(getenv("APP_ENV", EnvProduction)),
		StoreDriver:     strings.ToLower(getenv("STORE_DRIVER", DriverPostgres)),
		DBMigrate:       getenvBool("DB_MIGRATE", true),
		CORSOrigins:     splitList(getenv("CORS_ORIGIN", "*")),
		JWTSecret:       getenv("JWT_SECRET", "qr-badge-secret-key-123"),
		EventExpiration: getenvTime("EVENT_EXPIRATION", DefaultEventExpiration),
		RedisURL:        os.Getenv("REDIS_URL"),
		RedisChannel:    getenv("REDIS_CHANNEL", "qrbadge:events"),
		AdminName:       getenv("ADMIN_NAME", "Administrateur"),
		AdminEmail:      strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = buildDatabaseURL(
			getenv("DB_USER", "postgres"),
			getenv("DB_PASSWORD", "postgres"),
			getenv("DB_HOST", "localhost"),
			getenv("DB_PORT", "5432"),
			getenv("DB_NAME", "postgres"),
			getenv("DB_SSLMODE", "require"),
		)
	}

	switch cfg.StoreDriver {
	case DriverPostgres, DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if envFileErr != nil && !os.IsNotExist(envFileErr) {
		return cfg, fmt.Errorf("load .env: %w", envFileErr)
	}
	return cfg, nil
}

func (c Config) ListenAddr() string {
	return ":" + strconv.Itoa(c.Port)
}

func (c Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// AllowAllOrigins reports whether the CORS allowlist is the wildcard.
func (c Config) AllowAllOrigins() bool {
	if len(c.CORSOrigins) == 0 {
		return true
	}
	for _, o := range c.CORSOrigins {
		if o == "*" {
			return true
		}
	}
	return false
}

func buildDatabaseURL(user, password, host, port, name, sslmode string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, password),
		Host:   host + ":" + port,
		Path:   "/" + name,
	}
	q := url.Values{}
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}

func getenv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 && n < 65536 {
			return n
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getenvTime(key string, fallback time.Time) time.Time {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.Parse(time.RFC3339, val); err == nil {
			return parsed.UTC()
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
