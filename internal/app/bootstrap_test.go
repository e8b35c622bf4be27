package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeqa/internal/adapter/gemini"
	"resumeqa/internal/adapter/openai"
	"resumeqa/internal/app"
	"resumeqa/internal/config"
	"resumeqa/internal/document"
	"resumeqa/internal/testutils"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		check    func(*testing.T, app.Provider)
		wantErr  bool
	}{
		{
			name:     "Gemini",
			provider: config.ProviderGemini,
			check: func(t *testing.T, p app.Provider) {
				assert.IsType(t, &gemini.Client{}, p)
			},
		},
		{
			name:     "OpenAI",
			provider: config.ProviderOpenAI,
			check: func(t *testing.T, p app.Provider) {
				assert.IsType(t, &openai.Client{}, p)
			},
		},
		{name: "Unknown", provider: "cohere", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := app.NewProvider(&config.Config{LLMProvider: tt.provider})
			if tt.wantErr {
				assert.ErrorIs(t, err, config.ErrInvalid)
				return
			}
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestBootstrap_WithoutDB(t *testing.T) {
	cfg := &config.Config{LLMProvider: config.ProviderGemini, ResumePath: "data/resume.md"}

	deps, err := app.Bootstrap(context.Background(), cfg)
	require.NoError(t, err)
	defer deps.Close()

	assert.Nil(t, deps.DB)
	assert.NotNil(t, deps.Provider)
	src, ok := deps.Source.(*document.FileSource)
	require.True(t, ok)
	assert.Equal(t, "data/resume.md", src.Path())
}

func TestBootstrap_ConfigurationError(t *testing.T) {
	deps, err := app.Bootstrap(context.Background(), &config.Config{LLMProvider: "nope"})
	assert.Error(t, err)
	assert.Nil(t, deps)
}

func TestBootstrap_Resilience_DBDown(t *testing.T) {
	cfg := &config.Config{
		LLMProvider:                config.ProviderGemini,
		DBEnabled:                  true,
		DBHost:                     "localhost",
		DBPort:                     54322,
		DBUser:                     "test",
		DBPass:                     "test",
		DBName:                     "test",
		BootstrapRetryAttempts:     1,
		BootstrapRetryDelaySeconds: 0,
	}

	start := time.Now()
	deps, err := app.Bootstrap(context.Background(), cfg)
	duration := time.Since(start)

	assert.Error(t, err)
	assert.Nil(t, deps)
	assert.Contains(t, err.Error(), "failed to ping db")
	assert.Less(t, duration, 5*time.Second)
}

func TestBootstrap_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	suite := testutils.NewIntegrationSuite(t)
	suite.Setup()
	defer suite.Teardown()

	deps, err := app.Bootstrap(context.Background(), suite.AppConfig())
	require.NoError(t, err)
	defer deps.Close()
	require.NotNil(t, deps.DB)

	var exists bool
	err = deps.DB.QueryRow("SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = 'questions')").Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists)
}
