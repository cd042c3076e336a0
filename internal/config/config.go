package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port     string
	LogLevel string

	// Auth
	APIKey string

	// Worker pool
	WorkerCount      int
	MaxQueueSize     int
	BatchConcurrency int

	// Upload limits. The validation gate never accepts more than 100MB.
	MaxUploadBytes int64

	// Heading classifier
	HeadingDelta   float64
	HeadingMinSize float64

	// Job and review session state
	JobTTL     time.Duration
	SessionTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Lesson store
	StoreDriver string // memory | sqlite
	StorePath   string

	// Generation
	Generator         string // local | anthropic | openai | remote
	GenerationTimeout time.Duration
	AnthropicAPIKey   string
	AnthropicModel    string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	GeneratorURL      string
	GeneratorAPIKey   string
	MaxFlashcards     int
	MaxQuestions      int
}

func Load() Config {
	cfg := Config{
		Port:     envOr("PORT", "8090"),
		LogLevel: envOr("LOG_LEVEL", "info"),

		APIKey: os.Getenv("SKILLSPRINT_API_KEY"),

		WorkerCount:      envInt("WORKER_COUNT", 4),
		MaxQueueSize:     envInt("MAX_QUEUE_SIZE", 100),
		BatchConcurrency: envInt("BATCH_CONCURRENCY", 4),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 104857600), // 100MB

		HeadingDelta:   envFloat("HEADING_DELTA", 2),
		HeadingMinSize: envFloat("HEADING_MIN_SIZE", 14),

		JobTTL:     envDuration("JOB_TTL", 1*time.Hour),
		SessionTTL: envDuration("SESSION_TTL", 2*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		StoreDriver: envOr("STORE_DRIVER", "sqlite"),
		StorePath:   envOr("STORE_PATH", "skillsprint.sqlite"),

		Generator:         envOr("GENERATOR", "local"),
		GenerationTimeout: envDuration("GENERATION_TIMEOUT", 90*time.Second),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:    envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       envOr("OPENAI_MODEL", "gpt-4o"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		GeneratorURL:      os.Getenv("GENERATOR_URL"),
		GeneratorAPIKey:   os.Getenv("GENERATOR_API_KEY"),
		MaxFlashcards:     envInt("MAX_FLASHCARDS", 10),
		MaxQuestions:      envInt("MAX_QUESTIONS", 5),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 104857600
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 90 * time.Second
	}
	if cfg.MaxFlashcards <= 0 {
		cfg.MaxFlashcards = 10
	}
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = 5
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("SKILLSPRINT_API_KEY is required")
	}
	if c.HeadingDelta <= 0 {
		return fmt.Errorf("HEADING_DELTA must be positive, got %v", c.HeadingDelta)
	}
	if c.HeadingMinSize <= 0 {
		return fmt.Errorf("HEADING_MIN_SIZE must be positive, got %v", c.HeadingMinSize)
	}
	switch c.StoreDriver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.Generator {
	case "local":
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for GENERATOR=anthropic")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for GENERATOR=openai")
		}
	case "remote":
		if c.GeneratorURL == "" {
			return fmt.Errorf("GENERATOR_URL is required for GENERATOR=remote")
		}
	default:
		return fmt.Errorf("unknown GENERATOR %q", c.Generator)
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
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

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
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
