package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"resumeqa/internal/retrieval"
)

var ErrEmptyQuestion = errors.New("question is empty")

const contextSeparator = "\n\n"

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type Retriever interface {
	TopK(query []float32, k int) ([]retrieval.SearchResult, error)
}

type Options struct {
	K               int
	MaxContextChars int
	CallTimeout     time.Duration
	Persona         Persona
}

type Result struct {
	Answer  string
	Sources []retrieval.SearchResult
}

// Synthesizer answers one question with exactly one embedding call and one
// generation call. Neither is retried.
type Synthesizer struct {
	embedder  Embedder
	generator Generator
	retriever Retriever
	opts      Options
}

func NewSynthesizer(e Embedder, g Generator, r Retriever, opts Options) *Synthesizer {
	if opts.K < 1 {
		opts.K = 8
	}
	return &Synthesizer{embedder: e, generator: g, retriever: r, opts: opts}
}

func (s *Synthesizer) Answer(ctx context.Context, question string) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	vec, err := s.embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	sources, err := s.retriever.TopK(vec, s.opts.K)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	texts := make([]string, len(sources))
	for i, src := range sources {
		texts[i] = src.Entry.Text
	}
	block := BuildContext(texts, s.opts.MaxContextChars)
	prompt := BuildPrompt(s.opts.Persona, block, question)

	slog.DebugContext(ctx, "generating answer", "sources", len(sources), "context_chars", utf8.RuneCountInString(block), "prompt_version", PromptVersion)

	answer, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &Result{Answer: answer, Sources: sources}, nil
}

func (s *Synthesizer) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.embedder.Embed(ctx, text)
}

func (s *Synthesizer) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.generator.Complete(ctx, prompt)
}

func (s *Synthesizer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.CallTimeout)
}

// BuildContext joins texts in order, stopping before the block would exceed
// maxChars characters. The first text is truncated if it alone is too long.
// maxChars <= 0 means unbounded.
func BuildContext(texts []string, maxChars int) string {
	var b strings.Builder
	used := 0
	for i, t := range texts {
		n := utf8.RuneCountInString(t)
		sep := 0
		if i > 0 {
			sep = utf8.RuneCountInString(contextSeparator)
		}
		if maxChars > 0 && used+sep+n > maxChars {
			if i == 0 {
				b.WriteString(truncate(t, maxChars))
			}
			break
		}
		if i > 0 {
			b.WriteString(contextSeparator)
		}
		b.WriteString(t)
		used += sep + n
	}
	return b.String()
}

func truncate(s string, maxChars int) string {
	count := 0
	for i := range s {
		if count == maxChars {
			return s[:i]
		}
		count++
	}
	return s
}
