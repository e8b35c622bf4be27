package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"resumeqa/internal/answer"
	"resumeqa/internal/document"
	"resumeqa/internal/retrieval"
	"resumeqa/internal/text"
)

var (
	ErrEmptyDocument = errors.New("source document is empty")
	ErrNoChunks      = errors.New("chunker produced no chunks")
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Generator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Pipeline is the ready retrieval and synthesis unit. It is immutable once built.
type Pipeline struct {
	Chunks      []text.Chunk
	Index       *retrieval.Index
	Synthesizer *answer.Synthesizer
	BuiltAt     time.Time
}

func (p *Pipeline) Answer(ctx context.Context, question string) (*answer.Result, error) {
	return p.Synthesizer.Answer(ctx, question)
}

type Options struct {
	ChunkSize       int
	ChunkOverlap    int
	Separators      []string
	K               int
	MaxContextChars int
	CallTimeout     time.Duration
	// EmbedRPS paces embedding calls during a build; zero disables pacing.
	EmbedRPS float64
	Persona  answer.Persona
}

// Builder turns the document into a Pipeline: load, chunk, embed every chunk, index.
type Builder struct {
	source    document.Source
	embedder  Embedder
	generator Generator
	opts      Options
	limiter   *rate.Limiter
}

func NewBuilder(src document.Source, e Embedder, g Generator, opts Options) *Builder {
	b := &Builder{source: src, embedder: e, generator: g, opts: opts}
	if opts.EmbedRPS > 0 {
		b.limiter = rate.NewLimiter(rate.Limit(opts.EmbedRPS), 1)
	}
	return b
}

// Chunk loads and chunks the document without embedding anything.
func (b *Builder) Chunk(ctx context.Context) ([]text.Chunk, error) {
	doc, err := b.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if strings.TrimSpace(doc) == "" {
		return nil, ErrEmptyDocument
	}

	chunks, err := text.ChunkText(doc, b.opts.ChunkSize, b.opts.ChunkOverlap, b.opts.Separators)
	if err != nil {
		return nil, fmt.Errorf("chunk document: %w", err)
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	return chunks, nil
}

// Build embeds every chunk exactly once. Any embedding failure aborts the
// whole build; no partial index is ever returned.
func (b *Builder) Build(ctx context.Context) (*Pipeline, error) {
	start := time.Now()

	chunks, err := b.Chunk(ctx)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "building pipeline", "chunks", len(chunks))

	entries := make([]retrieval.IndexEntry, 0, len(chunks))
	for _, c := range chunks {
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("embed chunk %d: %w", c.ID, err)
			}
		}

		vec, err := b.embed(ctx, c.Text)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", c.ID, err)
		}
		entries = append(entries, retrieval.IndexEntry{
			ChunkID: c.ID,
			Order:   c.Order,
			Text:    c.Text,
			Vector:  vec,
		})
	}

	idx, err := retrieval.NewIndex(entries)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	synth := answer.NewSynthesizer(b.embedder, b.generator, idx, answer.Options{
		K:               b.opts.K,
		MaxContextChars: b.opts.MaxContextChars,
		CallTimeout:     b.opts.CallTimeout,
		Persona:         b.opts.Persona,
	})

	slog.InfoContext(ctx, "pipeline built", "chunks", len(chunks), "dimension", idx.Dimension(), "duration", time.Since(start))
	return &Pipeline{
		Chunks:      chunks,
		Index:       idx,
		Synthesizer: synth,
		BuiltAt:     time.Now(),
	}, nil
}

func (b *Builder) embed(ctx context.Context, text string) ([]float32, error) {
	if b.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.CallTimeout)
		defer cancel()
	}
	return b.embedder.Embed(ctx, text)
}
