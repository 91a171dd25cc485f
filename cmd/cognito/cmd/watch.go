package cmd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/config"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/output"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/service"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/watcher"
)

type watchOptions struct {
	poll     bool
	interval time.Duration
}

func newWatchCmd(g *globalFlags) *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the index in sync with the notes directory",
		Long: `Run an incremental update, then watch the notes directory and
re-index documents as they are created, modified or deleted.

Changes are debounced (watch.debounce in .cognito.yaml). Filesystems
without native notifications fall back to polling.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), cmd, g, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.poll, "poll", false, "Poll instead of using filesystem notifications")
	cmd.Flags().DurationVar(&opts.interval, "interval", 5*time.Second, "Polling interval")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, g *globalFlags, opts watchOptions) error {
	svc, err := g.openService(ctx, false, nil)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	source, ok := svc.Source.(*document.FS)
	if !ok {
		return cerrors.InternalError("watch requires a filesystem document source", nil)
	}
	out := output.New(cmd.OutOrStdout())

	stats, err := svc.Manager.IncrementalUpdate(ctx)
	if err != nil {
		return err
	}
	out.Successf("Indexed %d documents (%d new, %d modified, %d deleted)",
		stats.Documents, stats.New, stats.Modified, stats.Deleted)

	return watchAndSync(ctx, svc, source, opts, func(icon, format string, args ...any) {
		out.Statusf(icon, format, args...)
	})
}

// watchAndSync applies debounced filesystem changes to the index until ctx
// is cancelled. report receives one line per applied batch.
func watchAndSync(ctx context.Context, svc *service.Service, source *document.FS, opts watchOptions,
	report func(icon, format string, args ...any),
) error {
	w, err := watcher.New(watcher.Options{
		DebounceWindow: config.Duration(svc.Config().Watch.Debounce, 300*time.Millisecond),
		PollInterval:   opts.interval,
		Filter:         source.Matches,
		SkipDir:        source.SkipDir,
		ForcePolling:   opts.poll,
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	syncer := watcher.NewSyncer(svc.Source, svc.Manager, slog.Default())

	done := make(chan error, 1)
	go func() { done <- w.Start(ctx, source.Root()) }()
	report("👀", "Watching %s (%s)", source.Root(), w.Mode())

	batches, watchErrs := w.Events(), w.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			slog.Warn("watch_error", slog.String("error", err.Error()))
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			st, err := syncer.Apply(ctx, batch)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			if st.Upserted+st.Removed+st.Failed > 0 {
				report("↻", "%d updated, %d removed, %d failed", st.Upserted, st.Removed, st.Failed)
			}
		}
	}
}
