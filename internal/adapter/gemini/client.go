package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var (
	ErrMissingAPIKey = errors.New("gemini api key not configured")
	ErrEmptyResponse = errors.New("gemini returned an empty response")
)

type Config struct {
	APIKey          string
	EmbeddingModel  string
	GenerationModel string
	Temperature     float32
}

// Client provides the embedding and generation capabilities backed by Gemini.
// The underlying genai client is created on first use.
type Client struct {
	cfg        Config
	clientOpts []option.ClientOption

	mu     sync.RWMutex
	client *genai.Client
}

func NewClient(cfg Config, opts ...option.ClientOption) *Client {
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "gemini-embedding-001"
	}
	if cfg.GenerationModel == "" {
		cfg.GenerationModel = "gemini-2.0-flash"
	}
	return &Client{cfg: cfg, clientOpts: opts}
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "embedding content", "model", c.cfg.EmbeddingModel, "length", len(text))
	em := client.EmbeddingModel(c.cfg.EmbeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}

	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini embed: %w", ErrEmptyResponse)
	}
	return res.Embedding.Values, nil
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return "", err
	}

	slog.DebugContext(ctx, "generating content", "model", c.cfg.GenerationModel, "prompt_length", len(prompt))
	model := client.GenerativeModel(c.cfg.GenerationModel)
	model.SetTemperature(c.cfg.Temperature)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	answer := responseText(resp)
	if answer == "" {
		return "", fmt.Errorf("gemini generate: %w", ErrEmptyResponse)
	}
	return answer, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

func (c *Client) getClient(ctx context.Context) (*genai.Client, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	c.mu.RLock()
	if c.client != nil {
		defer c.mu.RUnlock()
		return c.client, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double check
	if c.client != nil {
		return c.client, nil
	}

	opts := append([]option.ClientOption{option.WithAPIKey(c.cfg.APIKey)}, c.clientOpts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	c.client = client
	return client, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}
