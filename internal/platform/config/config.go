package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server reads from the environment so main
// stays lean. Missing values fall back to development defaults; external
// integrations (Postgres, Redis, Kafka, the LLM extractor) are optional and
// disabled when their URL or key is empty.
type Config struct {
	Addr     string
	LogLevel string

	// BudgetMS is the global wall-clock allowance handed to the planner for
	// each resolution job.
	BudgetMS int

	PDLAPIKey   string
	GitHubToken string

	PostgresURL  string
	RedisURL     string
	KafkaBrokers []string
	EventsTopic  string

	// HTTPCacheTTL bounds how long fetched adapter responses stay valid in
	// the Redis cache.
	HTTPCacheTTL time.Duration

	// Per-host request rates for the fetch gate, in requests per second.
	PDLRatePerSec    float64
	GitHubRatePerSec float64
	SearchRatePerSec float64

	// Optional LLM-assisted extraction of free-text context.
	OpenAIAPIKey string
	LLMModel     string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:             envOr("DEEPSEARCH_ADDR", ":8080"),
		LogLevel:         envOr("DEEPSEARCH_LOG_LEVEL", "info"),
		BudgetMS:         envInt("DEEPSEARCH_BUDGET_MS", 60000),
		PDLAPIKey:        os.Getenv("PDL_API_KEY"),
		GitHubToken:      os.Getenv("GITHUB_TOKEN"),
		PostgresURL:      os.Getenv("DEEPSEARCH_POSTGRES_URL"),
		RedisURL:         os.Getenv("DEEPSEARCH_REDIS_URL"),
		EventsTopic:      envOr("DEEPSEARCH_EVENTS_TOPIC", "deepsearch.jobs"),
		HTTPCacheTTL:     envDuration("DEEPSEARCH_HTTP_CACHE_TTL", 24*time.Hour),
		PDLRatePerSec:    envFloat("DEEPSEARCH_PDL_RPS", 5),
		GitHubRatePerSec: envFloat("DEEPSEARCH_GITHUB_RPS", 2),
		SearchRatePerSec: envFloat("DEEPSEARCH_SEARCH_RPS", 2),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		LLMModel:         envOr("DEEPSEARCH_LLM_MODEL", "gpt-4o-mini"),
	}
	if brokers := os.Getenv("DEEPSEARCH_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
