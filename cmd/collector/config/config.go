// Package config implements the velostat collector configuration.
//
// Runtime settings come from command-line flags with environment variable
// fallbacks (flag > env > default). Credentials live in a separate config
// file, see LoadFile.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/HatiCode/velostat/pkg/jcdecaux"
)

// Config holds all collector runtime configuration.
type Config struct {
	ConfigFile string

	Contract   string
	APIURL     string
	APIVersion int
	APITimeout time.Duration

	Store         string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration

	Interval       time.Duration
	Listen         string
	PushgatewayURL string

	LogFormat string
	LogLevel  string
}

// ParseFlags parses command-line flags and environment variables into a Config.
// Exits with status 1 on invalid values.
func ParseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.ConfigFile, "config", getEnv("CONFIG_FILE", "config/config.json"), "Path to the JSON or YAML credentials file")

	// Upstream API
	flag.StringVar(&cfg.Contract, "contract", getEnv("CONTRACT", "Lyon"), "JCDecaux contract to collect")
	flag.StringVar(&cfg.APIURL, "api-url", getEnv("API_URL", jcdecaux.DefaultBaseURL), "JCDecaux API base URL")
	flag.IntVar(&cfg.APIVersion, "api-version", getEnvInt("API_VERSION", 1), "JCDecaux API version")
	flag.DurationVar(&cfg.APITimeout, "api-timeout", getEnvDuration("API_TIMEOUT", 0), "HTTP timeout for API calls (0 = none)")

	// Storage
	flag.StringVar(&cfg.Store, "store", getEnv("STORE", "influxdb"), "Storage backend: influxdb, memory or redis")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database")
	flag.DurationVar(&cfg.RedisTTL, "redis-ttl", getEnvDuration("REDIS_TTL", time.Hour), "Expiry of latest values in redis")

	// Scheduling
	flag.DurationVar(&cfg.Interval, "interval", getEnvDuration("INTERVAL", 0), "Collection interval (0 = collect once and exit)")
	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8080"), "HTTP listen address when running on an interval")
	flag.StringVar(&cfg.PushgatewayURL, "pushgateway-url", getEnv("PUSHGATEWAY_URL", ""), "Prometheus Pushgateway URL for single runs")

	// Logging
	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text, json or pretty")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	return cfg
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Store {
	case "influxdb", "memory", "redis":
	default:
		return fmt.Errorf("invalid -store %q (allowed: influxdb, memory, redis)", c.Store)
	}
	if c.APIVersion < 1 {
		return fmt.Errorf("invalid -api-version %d", c.APIVersion)
	}
	if c.Contract == "" {
		return fmt.Errorf("-contract is required")
	}
	if c.Interval < 0 {
		return fmt.Errorf("invalid -interval %s", c.Interval)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
