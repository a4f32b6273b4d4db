// Package config reads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type DeltaFeedCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	GroupID string
}

type AuthCfg struct {
	Required bool
	// Tokens is the static accept-list used by the built-in verifier when no
	// external identity provider is wired.
	Tokens []string
}

type Config struct {
	Addr     string
	LogLevel string

	StoreURL     string
	StoreAPIKey  string
	StoreTimeout time.Duration
	LayersTable  string
	MetricsTable string

	OpenAIAPIURL  string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAITimeout time.Duration

	CacheTTL        time.Duration
	CacheMaxRegions int
	RedisAddr       string

	HotspotH3Res int

	DeltaFeed DeltaFeedCfg
	Auth      AuthCfg
}

func FromEnv() Config {
	return Config{
		Addr:     getenv("ADDR", ":8090"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		StoreURL:     getenv("STORE_URL", "http://localhost:3000"),
		StoreAPIKey:  getenv("STORE_API_KEY", ""),
		StoreTimeout: getduration("STORE_TIMEOUT", 10*time.Second),
		LayersTable:  getenv("STORE_LAYERS_TABLE", "region_snapshots"),
		MetricsTable: getenv("STORE_METRICS_TABLE", "region_metrics"),

		OpenAIAPIURL:  getenv("OPENAI_API_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:  getenv("OPENAI_API_KEY", ""),
		OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITimeout: getduration("OPENAI_TIMEOUT", 8*time.Second),

		CacheTTL:        getduration("CACHE_TTL", 60*time.Second),
		CacheMaxRegions: getint("CACHE_MAX_REGIONS", 1024),
		RedisAddr:       getenv("REDIS_ADDR", ""),

		HotspotH3Res: getint("HOTSPOT_H3_RES", 6),

		DeltaFeed: DeltaFeedCfg{
			Enabled: getbool("DELTAS_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "metrics-deltas"),
			GroupID: getenv("KAFKA_GROUP_ID", "insight-delta-merger"),
		},
		Auth: AuthCfg{
			Required: getbool("AUTH_REQUIRED", false),
			Tokens:   splitCSV(getenv("AUTH_TOKENS", "")),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
