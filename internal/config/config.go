// Package config reads the cart service settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	ServiceName string
	Env         string
	LogLevel    string

	HTTPAddr string
	GRPCAddr string

	DBDriver    string
	DBPath      string
	DBURL       string
	SeedCatalog bool

	TxTimeout    time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	CatalogCacheSize int
	CatalogCacheTTL  time.Duration

	RedisAddr     string
	RedisPassword string

	RabbitURL      string
	RabbitExchange string

	CORSOrigins []string
	JWTSecret   string
}

const ShutdownGrace = 10 * time.Second

// DSN is the value handed to store.Open for the configured driver.
func (c Config) DSN() string {
	if c.DBDriver == "postgres" {
		return c.DBURL
	}
	return c.DBPath
}

func (c Config) Dev() bool { return c.Env == "" || c.Env == "dev" || c.Env == "development" }

// LoadConfig reads .env.local and .env when present; real environment
// variables always take precedence over both files.
func LoadConfig() Config {
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				log.Warn().Err(err).Str("file", f).Msg("could not load env file")
			}
		}
	}

	return Config{
		ServiceName: getenv("CART_SERVICE_NAME", "cart"),
		Env:         getenv("SERVICE_ENV", "dev"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		HTTPAddr: getenv("CART_HTTP_ADDR", ":8083"),
		GRPCAddr: getenv("CART_GRPC_ADDR", ":50052"),

		DBDriver:    getenv("CART_DB_DRIVER", "sqlite"),
		DBPath:      getenv("CART_DB_PATH", "./data/cart.db"),
		DBURL:       getenv("CART_DB_URL", ""),
		SeedCatalog: getBool("CART_SEED_CATALOG", true),

		TxTimeout:    getDuration("CART_TX_TIMEOUT", 5*time.Second),
		MaxRetries:   getInt("CART_MAX_RETRIES", 3),
		RetryBackoff: getDuration("CART_RETRY_BACKOFF", 20*time.Millisecond),

		CatalogCacheSize: getInt("CATALOG_CACHE_SIZE", 1024),
		CatalogCacheTTL:  getDuration("CATALOG_CACHE_TTL", 30*time.Second),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		RabbitURL:      getenv("RABBITMQ_URL", ""),
		RabbitExchange: getenv("RABBIT_EXCHANGE", "bookstore"),

		CORSOrigins: splitList(getenv("CORS_ORIGINS", "*")),
		JWTSecret:   getenv("JWT_SECRET", ""),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Warn().Str("key", key).Str("value", v).Int("default", def).Msg("invalid integer, using default")
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Warn().Str("key", key).Str("value", v).Dur("default", def).Msg("invalid duration, using default")
		return def
	}
	return d
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Bool("default", def).Msg("invalid boolean, using default")
		return def
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
