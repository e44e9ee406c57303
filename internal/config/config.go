package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	ClusterLLM   = "llm"
	ClusterTFIDF = "tfidf"
)

type Config struct {
	// Storage settings
	DatabaseDriver string // mongo | postgres | memory
	MongoURI       string
	MongoDatabase  string
	DatabaseURL    string

	// Text intelligence settings
	AIProvider        string // gemini | openai | local
	GeminiAPIKey      string
	GeminiModel       string
	OpenAIAPIKey      string
	OpenAIBaseURL     string // any OpenAI-compatible endpoint, DeepSeek by default
	OpenAIModel       string
	ClusterBackend    string // llm | tfidf
	ClusterSimilarity float64
	MaxAIRequests     int // maximum AI calls per run (0 = unlimited)
	AIWorkers         int
	AICacheTTL        time.Duration

	// Source settings
	SitesConfigPath   string
	NewsMaxAge        time.Duration // 0 keeps everything
	ScrapeConcurrency int
	ScrapeMaxLinks    int
	RawArchiveDir     string

	// API settings
	HTTPHost    string
	HTTPPort    int
	CORSOrigins []string
	RecentLimit int

	// App settings
	Debug          bool
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
}

// Load reads configuration from the environment, after merging an optional
// .env file, and validates it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := FromEnv()
	return cfg, cfg.Validate()
}

// FromEnv builds a Config from the current environment without validating it.
func FromEnv() *Config {
	return &Config{
		DatabaseDriver: strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", DriverMongo)),
		MongoURI:       getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:  getEnvOrDefault("MONGO_DATABASE", "news_db"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),

		AIProvider:        strings.ToLower(getEnvOrDefault("AI_PROVIDER", ProviderOpenAI)),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     getEnvOrDefault("OPENAI_BASE_URL", "https://api.deepseek.com/v1"),
		OpenAIModel:       getEnvOrDefault("OPENAI_MODEL", "deepseek-chat"),
		ClusterBackend:    strings.ToLower(getEnvOrDefault("CLUSTER_BACKEND", ClusterLLM)),
		ClusterSimilarity: getEnvFloatOrDefault("CLUSTER_SIMILARITY", 0.5),
		MaxAIRequests:     getEnvIntOrDefault("MAX_AI_REQUESTS", 0),
		AIWorkers:         getEnvIntOrDefault("AI_WORKERS", 4),
		AICacheTTL:        getEnvDurationOrDefault("AI_CACHE_TTL", 24*time.Hour),

		SitesConfigPath:   getEnvOrDefault("SITES_CONFIG_PATH", "configs/sites.yaml"),
		NewsMaxAge:        getEnvDurationOrDefault("NEWS_MAX_AGE", 12*time.Hour),
		ScrapeConcurrency: getEnvIntOrDefault("SCRAPE_CONCURRENCY", 8),
		ScrapeMaxLinks:    getEnvIntOrDefault("SCRAPE_MAX_LINKS", 200),
		RawArchiveDir:     getEnvOrDefault("RAW_ARCHIVE_DIR", "data"),

		HTTPHost:    getEnvOrDefault("HTTP_HOST", "0.0.0.0"),
		HTTPPort:    getEnvIntOrDefault("HTTP_PORT", 5000),
		CORSOrigins: splitList(getEnvOrDefault("CORS_ORIGINS", "http://localhost:5173")),
		RecentLimit: getEnvIntOrDefault("RECENT_LIMIT", 3),

		Debug:          os.Getenv("DEBUG") == "true",
		RequestTimeout: getEnvDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		RetryAttempts:  getEnvIntOrDefault("RETRY_ATTEMPTS", 3),
		RetryDelay:     getEnvDurationOrDefault("RETRY_DELAY", 2*time.Second),
	}
}

// Addr is the listen address of the read API.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go durations ("90m") or a bare number of hours.
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if h, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(h * float64(time.Hour))
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for DATABASE_DRIVER=mongo")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for DATABASE_DRIVER=postgres")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be 'mongo', 'postgres' or 'memory'")
	}

	switch c.AIProvider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for AI_PROVIDER=gemini")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for AI_PROVIDER=openai")
		}
	case ProviderLocal:
	default:
		return fmt.Errorf("AI_PROVIDER must be 'gemini', 'openai' or 'local'")
	}

	if c.ClusterBackend != ClusterLLM && c.ClusterBackend != ClusterTFIDF {
		return fmt.Errorf("CLUSTER_BACKEND must be 'llm' or 'tfidf'")
	}
	if c.ClusterSimilarity <= 0 || c.ClusterSimilarity > 1 {
		return fmt.Errorf("CLUSTER_SIMILARITY must be in (0, 1]")
	}
	if c.AIWorkers < 1 {
		return fmt.Errorf("AI_WORKERS must be at least 1")
	}
	if c.NewsMaxAge < 0 {
		return fmt.Errorf("NEWS_MAX_AGE must not be negative")
	}
	return nil
}
