package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"resumeqa/internal/app"
	"resumeqa/internal/config"
	"resumeqa/internal/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "resumeqa",
		Short:         "Answer questions about a résumé with retrieval-augmented generation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newAskCmd(), newChunksCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, cfg, log); err != nil {
				log.Error("server failed", "error", err)
				return err
			}
			return nil
		},
	}
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question without starting the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errors.New("question is required")
			}

			cfg, log, err := setup()
			if err != nil {
				return err
			}
			cfg.DBEnabled = false

			deps, err := app.Bootstrap(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer deps.Close()

			a, err := app.New(cfg, deps, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Warn("failed to close question log", "error", err)
				}
			}()
			res, err := a.Pipelines.Answer(cmd.Context(), question)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.Answer)
			return nil
		},
	}
}

func newChunksCmd() *cobra.Command {
	var showText bool
	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "Preview how the document is chunked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			cfg.DBEnabled = false

			deps, err := app.Bootstrap(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer deps.Close()

			chunks, err := app.NewBuilder(cfg, deps).Chunk(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d chunks (size=%d overlap=%d)\n", len(chunks), cfg.ChunkSize, cfg.ChunkOverlap)
			for _, c := range chunks {
				fmt.Fprintf(out, "#%d offset=%d chars=%d\n", c.Order, c.Offset, len([]rune(c.Text)))
				if showText {
					fmt.Fprintf(out, "%s\n---\n", c.Text)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showText, "text", false, "print each chunk's text")
	return cmd
}

func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return nil, nil, err
	}
	log := logger.New(os.Stderr, cfg.SlogLevel())
	slog.SetDefault(log)
	return cfg, log, nil
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			log.Warn("failed to close dependencies", "error", err)
		}
	}()

	a, err := app.New(cfg, deps, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("failed to close question log", "error", err)
		}
	}()
	return a.Run(ctx)
}
