package app

import (
	"context"
	"fmt"

	"resumeqa/internal/adapter/gemini"
	"resumeqa/internal/adapter/openai"
	"resumeqa/internal/config"
)

// Provider supplies both external capabilities the pipeline depends on.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Complete(ctx context.Context, prompt string) (string, error)
}

func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		return gemini.NewClient(gemini.Config{
			APIKey:          cfg.GeminiAPIKey,
			EmbeddingModel:  cfg.EmbeddingModel,
			GenerationModel: cfg.GenerationModel,
			Temperature:     cfg.GenerationTemperature,
		}), nil
	case config.ProviderOpenAI:
		return openai.NewClient(openai.Config{
			APIKey:          cfg.OpenAIAPIKey,
			BaseURL:         cfg.OpenAIBaseURL,
			EmbeddingModel:  cfg.EmbeddingModel,
			GenerationModel: cfg.GenerationModel,
			Temperature:     cfg.GenerationTemperature,
			Timeout:         cfg.ExternalCallTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown LLM_PROVIDER %q", config.ErrInvalid, cfg.LLMProvider)
	}
}
