package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"resumeqa/features/ask"
	"resumeqa/features/mcp"
	"resumeqa/features/stats"
	"resumeqa/internal/answer"
	"resumeqa/internal/asklog"
	"resumeqa/internal/config"
	"resumeqa/internal/middleware"
	"resumeqa/internal/pipeline"
	"resumeqa/internal/ratelimit"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Handler   http.Handler
	Pipelines *pipeline.Cache
	Limiter   *ratelimit.Limiter
	Service   *ask.Service

	cfg     *config.Config
	logger  *slog.Logger
	fileLog *asklog.FileLogger
}

func New(cfg *config.Config, deps *Dependencies, logger *slog.Logger) (*App, error) {
	if deps == nil || deps.Provider == nil || deps.Source == nil {
		return nil, errors.New("app: provider and document source are required")
	}

	// Pipeline
	builder := NewBuilder(cfg, deps)
	cache := pipeline.NewCache(builder.Build, cfg.BuildTimeout)

	// Rate limiting
	limiter := ratelimit.New(ratelimit.Config{
		PerMinute:    cfg.RateLimitMinute,
		PerHour:      cfg.RateLimitHour,
		OwnerName:    cfg.OwnerName,
		ContactEmail: cfg.ContactEmail,
	})

	// Question log
	fileLog, err := asklog.OpenFileLogger(cfg.QueryLogPath)
	if err != nil {
		logger.Warn("failed to create question logger, falling back to stdout", "error", err)
		fileLog = asklog.NewFileLogger(os.Stdout)
	}
	recorders := asklog.Multi{fileLog}
	var counter stats.QuestionCounter = fileLog
	var recent stats.RecentQuestions
	if deps.DB != nil {
		repo := asklog.NewPostgresRepo(deps.DB)
		recorders = append(recorders, repo)
		counter = repo
		recent = repo
	}

	// Features
	askService := ask.NewService(limiter, cache, recorders)
	askHandler := ask.NewHandler(askService)
	statsHandler := stats.NewHandler(cache, limiter, counter, recent)
	mcpHandler := mcp.NewHandler(askService)

	// Routes
	mux := http.NewServeMux()
	mux.Handle("POST /api/ask", withRequestContext(askHandler.Ask))
	mux.Handle("GET /api/ask/limits", withRequestContext(askHandler.Limits))
	mux.Handle("OPTIONS /api/", withRequestContext(preflight))
	mux.Handle("GET /stats", withRequestContext(statsHandler.GetStats))
	mux.Handle("POST /mcp", withRequestContext(mcpHandler.ServeHTTP))
	mux.Handle("OPTIONS /mcp", withRequestContext(preflight))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:   mux,
		Pipelines: cache,
		Limiter:   limiter,
		Service:   askService,
		cfg:       cfg,
		logger:    logger,
		fileLog:   fileLog,
	}, nil
}

// NewBuilder builds the pipeline builder from configuration without opening
// anything else the server needs.
func NewBuilder(cfg *config.Config, deps *Dependencies) *pipeline.Builder {
	return pipeline.NewBuilder(deps.Source, deps.Provider, deps.Provider, pipeline.Options{
		ChunkSize:       cfg.ChunkSize,
		ChunkOverlap:    cfg.ChunkOverlap,
		K:               cfg.RetrievalK,
		MaxContextChars: cfg.MaxContextChars,
		CallTimeout:     cfg.ExternalCallTimeout,
		EmbedRPS:        cfg.EmbedRPS,
		Persona:         answer.Persona{OwnerName: cfg.OwnerName, ContactEmail: cfg.ContactEmail},
	})
}

// preflight is answered by the CORS wrapper; it only needs a route.
func preflight(w http.ResponseWriter, r *http.Request) {}

func withRequestContext(h http.HandlerFunc) http.Handler {
	return middleware.CorrelationID(middleware.Identity(middleware.CORS(h)))
}

// Run serves HTTP and runs the rate limit janitor until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.Limiter.Run(ctx, a.cfg.RateLimitCleanupInterval)

	go func() {
		<-ctx.Done()
		a.logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("server shutdown failed", "error", err)
		}
	}()

	a.logger.Info("server starting", "port", a.cfg.ServerPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the question log file.
func (a *App) Close() error {
	return a.fileLog.Close()
}
