package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/embed"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/events"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/index"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/ui"
)

// eventBuffer is the progress channel capacity. Events beyond it are dropped
// rather than stalling the indexer.
const eventBuffer = 256

type indexOptions struct {
	full    bool
	plain   bool
	json    bool
	retries int
}

func newIndexCmd(g *globalFlags) *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the notes directory",
		Long: `Index the notes directory for searching.

By default only new and modified documents are chunked and embedded, and
documents that disappeared are removed. Use --full to rebuild everything.

A progress TUI is shown on terminals; pipes and CI get plain text.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, g, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.full, "full", false, "Rebuild the whole index")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "Disable TUI mode, use plain text output")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print run statistics as JSON")
	cmd.Flags().IntVar(&opts.retries, "retries", 0, "Retry the run this many times on transient failures")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, g *globalFlags, opts indexOptions) error {
	sink := events.NewChannel(eventBuffer)
	svc, err := g.openService(ctx, false, sink)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	out := cmd.OutOrStdout()
	if opts.json {
		out = io.Discard
	}
	renderer := ui.NewRenderer(ui.NewConfig(out,
		ui.WithForcePlain(opts.plain || opts.json),
		ui.WithNoColor(ui.DetectNoColor()),
		ui.WithTitle(svc.Config().Sources.Root)))
	if err := renderer.Start(ctx); err != nil {
		return err
	}
	renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageListing})

	done := make(chan struct{})
	go func() {
		defer close(done)
		ui.Consume(ctx, sink.Events(), renderer)
	}()

	run := svc.Manager.IncrementalUpdate
	if opts.full {
		run = svc.Manager.FullRebuild
	}
	retry := cerrors.DefaultRetryConfig()
	retry.MaxRetries = max(opts.retries, 0)

	slog.Info("index_started", slog.Bool("full", opts.full), slog.String("root", svc.Config().Sources.Root))
	stats, err := cerrors.RetryWithResult(ctx, retry, func() (index.Stats, error) {
		return run(ctx)
	})
	sink.Close()
	<-done

	if dropped := sink.Dropped(); dropped > 0 {
		slog.Debug("progress_events_dropped", slog.Int64("count", dropped))
	}
	if err != nil {
		_ = renderer.Stop()
		slog.Error("index_failed", cerrors.LogAttrs(err)...)
		return err
	}

	completion := ui.CompletionStats{
		Documents: stats.Documents,
		Chunks:    stats.Chunks,
		Embedded:  stats.Embedded,
		Duration:  stats.Duration,
		Errors:    stats.Failed,
		Warnings:  stats.EmbedFailures,
	}
	if embed.IsConfigured(svc.Embedder) {
		completion.Model = svc.Embedder.ModelName()
		completion.Dimensions = svc.Embedder.Dimensions()
	}
	renderer.Complete(completion)
	if err := renderer.Stop(); err != nil {
		return err
	}

	slog.Info("index_complete",
		slog.Int("documents", stats.Documents),
		slog.Int("chunks", stats.Chunks),
		slog.Int("failed", stats.Failed),
		slog.Duration("duration", stats.Duration.Round(time.Millisecond)))

	if opts.json {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	return nil
}
