package config_test

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"resumeqa/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, 15, cfg.RateLimitMinute)
	assert.Equal(t, 60, cfg.RateLimitHour)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 150, cfg.ChunkOverlap)
	assert.Equal(t, 8, cfg.RetrievalK)
	assert.Equal(t, config.ProviderGemini, cfg.LLMProvider)
	assert.Equal(t, 10*time.Minute, cfg.RateLimitCleanupInterval)
	assert.InDelta(t, 0.2, cfg.GenerationTemperature, 0.0001)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("RATE_LIMIT_MINUTE", "2")
	t.Setenv("RATE_LIMIT_HOUR", "10")
	t.Setenv("RESUME_PATH", "/tmp/cv.md")
	t.Setenv("EXTERNAL_CALL_TIMEOUT", "5s")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, 2, cfg.RateLimitMinute)
	assert.Equal(t, 10, cfg.RateLimitHour)
	assert.Equal(t, "/tmp/cv.md", cfg.ResumePath)
	assert.Equal(t, 5*time.Second, cfg.ExternalCallTimeout)
}

func TestLoadConfig_FromEnvFile(t *testing.T) {
	content := []byte("OWNER_NAME=loaded-from-file")
	err := os.WriteFile(".env", content, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(".env")
	defer os.Unsetenv("OWNER_NAME")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "loaded-from-file", cfg.OwnerName)
}

func TestLoadConfig_OverlapNotSmallerThanSize(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "100")

	cfg, err := config.Load()
	assert.Nil(t, cfg)
	assert.True(t, errors.Is(err, config.ErrInvalid))
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			ResumePath:      "data/resume.md",
			LLMProvider:     config.ProviderGemini,
			ChunkSize:       500,
			ChunkOverlap:    150,
			RetrievalK:      8,
			RateLimitMinute: 15,
			RateLimitHour:   60,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{name: "Valid", mutate: func(c *config.Config) {}},
		{name: "Missing Resume Path", mutate: func(c *config.Config) { c.ResumePath = "" }, wantErr: config.ErrMissingRequired},
		{name: "Zero Chunk Size", mutate: func(c *config.Config) { c.ChunkSize = 0 }, wantErr: config.ErrInvalid},
		{name: "Negative Overlap", mutate: func(c *config.Config) { c.ChunkOverlap = -1 }, wantErr: config.ErrInvalid},
		{name: "Zero K", mutate: func(c *config.Config) { c.RetrievalK = 0 }, wantErr: config.ErrInvalid},
		{name: "Zero Minute Limit", mutate: func(c *config.Config) { c.RateLimitMinute = 0 }, wantErr: config.ErrInvalid},
		{name: "Unknown Provider", mutate: func(c *config.Config) { c.LLMProvider = "bard" }, wantErr: config.ErrInvalid},
		{name: "DB Enabled Without Host", mutate: func(c *config.Config) {
			c.DBEnabled = true
			c.DBUser = "u"
			c.DBName = "n"
		}, wantErr: config.ErrMissingRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, (&config.Config{LogLevel: "DEBUG"}).SlogLevel())
	assert.Equal(t, slog.LevelWarn, (&config.Config{LogLevel: "warn"}).SlogLevel())
	assert.Equal(t, slog.LevelError, (&config.Config{LogLevel: "error"}).SlogLevel())
	assert.Equal(t, slog.LevelInfo, (&config.Config{LogLevel: ""}).SlogLevel())
}

func TestDSN(t *testing.T) {
	cfg := &config.Config{DBHost: "db", DBPort: 5432, DBUser: "u", DBPass: "p", DBName: "n"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", cfg.DSN())
}
