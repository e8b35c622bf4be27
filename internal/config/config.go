package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalid         = errors.New("invalid configuration")
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	// Server
	ServerPort int    `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`

	// Document
	ResumePath   string `envconfig:"RESUME_PATH" default:"data/resume.md"`
	OwnerName    string `envconfig:"OWNER_NAME" default:"the candidate"`
	ContactEmail string `envconfig:"CONTACT_EMAIL"`

	// Providers
	LLMProvider           string  `envconfig:"LLM_PROVIDER" default:"gemini"`
	GeminiAPIKey          string  `envconfig:"GEMINI_API_KEY"`
	OpenAIAPIKey          string  `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL         string  `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	EmbeddingModel        string  `envconfig:"EMBEDDING_MODEL"`
	GenerationModel       string  `envconfig:"GENERATION_MODEL"`
	GenerationTemperature float32 `envconfig:"GENERATION_TEMPERATURE" default:"0.2"`

	// Retrieval
	ChunkSize       int `envconfig:"CHUNK_SIZE" default:"500"`
	ChunkOverlap    int `envconfig:"CHUNK_OVERLAP" default:"150"`
	RetrievalK      int `envconfig:"RETRIEVAL_K" default:"8"`
	MaxContextChars int `envconfig:"MAX_CONTEXT_CHARS" default:"8000"`

	// Rate limiting
	RateLimitMinute          int           `envconfig:"RATE_LIMIT_MINUTE" default:"15"`
	RateLimitHour            int           `envconfig:"RATE_LIMIT_HOUR" default:"60"`
	RateLimitCleanupInterval time.Duration `envconfig:"RATE_LIMIT_CLEANUP_INTERVAL" default:"10m"`

	// Resilience
	ExternalCallTimeout time.Duration `envconfig:"EXTERNAL_CALL_TIMEOUT" default:"30s"`
	BuildTimeout        time.Duration `envconfig:"BUILD_TIMEOUT" default:"2m"`
	EmbedRPS            float64       `envconfig:"EMBED_RPS" default:"0"`

	// Question log
	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"data/logs/questions.log"`

	// Optional Postgres question log
	DBEnabled     bool   `envconfig:"DB_ENABLED" default:"false"`
	DBHost        string `envconfig:"DB_HOST" default:"postgres"`
	DBPort        int    `envconfig:"DB_PORT" default:"5432"`
	DBUser        string `envconfig:"DB_USER" default:"resumeqa"`
	DBPass        string `envconfig:"DB_PASS" default:"password"`
	DBName        string `envconfig:"DB_NAME" default:"resumeqa"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ResumePath == "" {
		return fmt.Errorf("%w: RESUME_PATH", ErrMissingRequired)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: CHUNK_SIZE must be positive", ErrInvalid)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, CHUNK_SIZE)", ErrInvalid)
	}
	if c.RetrievalK < 1 {
		return fmt.Errorf("%w: RETRIEVAL_K must be at least 1", ErrInvalid)
	}
	if c.RateLimitMinute < 1 || c.RateLimitHour < 1 {
		return fmt.Errorf("%w: rate limits must be at least 1", ErrInvalid)
	}
	switch c.LLMProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: unknown LLM_PROVIDER %q", ErrInvalid, c.LLMProvider)
	}
	if c.DBEnabled {
		if c.DBHost == "" {
			return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
		}
		if c.DBUser == "" {
			return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
		}
		if c.DBName == "" {
			return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
		}
	}
	return nil
}

// DSN returns the lib/pq connection string for the question log database.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
