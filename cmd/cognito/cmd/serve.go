package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/logging"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/mcp"
)

type serveOptions struct {
	transport string
	addr      string
	index     bool
	watch     watchOptions
	watching  bool
}

func newServeCmd(g *globalFlags) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol server over the index.

The stdio transport (default) keeps stdout for JSON-RPC, so logs go to
~/.cognito/logs/ only. The http transport serves streamable HTTP on --addr.

Tools: search, index_status
Resources: note://{id}, chunk://{id}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), g, opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "Transport: stdio or http (default from config)")
	cmd.Flags().StringVar(&opts.addr, "addr", "127.0.0.1:8765", "Listen address for the http transport")
	cmd.Flags().BoolVar(&opts.index, "index", false, "Run an incremental update before serving")
	cmd.Flags().BoolVar(&opts.watching, "watch", false, "Keep the index in sync while serving")
	cmd.Flags().BoolVar(&opts.watch.poll, "poll", false, "Poll instead of using filesystem notifications (with --watch)")
	cmd.Flags().DurationVar(&opts.watch.interval, "interval", 5*time.Second, "Polling interval (with --watch)")

	return cmd
}

func runServe(ctx context.Context, g *globalFlags, opts serveOptions) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}

	transport := opts.transport
	if transport == "" {
		transport = cfg.Server.Transport
	}
	if transport == "" || transport == "stdio" {
		logCfg := logging.ServeConfig(cfg.Server.LogLevel)
		if g.debug {
			logCfg.Level = "debug"
		}
		if err := g.setLogger(logCfg); err != nil {
			return err
		}
	}

	svc, err := newService(ctx, cfg, false, nil)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if opts.index || opts.watching {
		stats, err := svc.Manager.IncrementalUpdate(ctx)
		if err != nil {
			return fmt.Errorf("initial index failed: %w", err)
		}
		slog.Info("serve_index_ready",
			slog.Int("documents", stats.Documents),
			slog.Int("new", stats.New),
			slog.Int("modified", stats.Modified))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.watching {
		source, ok := svc.Source.(*document.FS)
		if !ok {
			return fmt.Errorf("--watch requires a filesystem document source")
		}
		go func() {
			err := watchAndSync(ctx, svc, source, opts.watch, func(_, format string, args ...any) {
				slog.Info("watch_sync", slog.String("summary", fmt.Sprintf(format, args...)))
			})
			if err != nil {
				slog.Error("watch_stopped", slog.String("error", err.Error()))
			}
		}()
	}

	server, err := mcp.NewServer(mcp.PortsFromService(svc, slog.Default()))
	if err != nil {
		return err
	}
	return server.Serve(ctx, transport, opts.addr)
}
