// Package cmd provides the CLI commands for cognito.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/config"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/events"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/logging"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/profiling"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/service"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/pkg/version"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	debug   bool
	dir     string
	dataDir string
	profile profiling.Paths

	profiler       *profiling.Session
	loggingCleanup func()
}

// NewRootCmd creates the root command for the cognito CLI.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "cognito",
		Short: "Hybrid search over notes and chat history",
		Long: `Cognito indexes a directory of notes and chat transcripts and answers
queries with a hybrid of BM25 keyword ranking and embedding similarity.

Embeddings are optional. Without a configured provider every query falls
back to lexical search.

Get started:
  cognito index --dir ~/notes
  cognito search "sourdough starter" --dir ~/notes`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("cognito version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&g.dir, "dir", "C", ".", "Notes directory (holds .cognito.yaml and .env)")
	cmd.PersistentFlags().StringVar(&g.dataDir, "data-dir", "", "Override the index data directory")
	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging to ~/.cognito/logs/")

	cmd.PersistentFlags().StringVar(&g.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&g.profile.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&g.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = g.start
	cmd.PersistentPostRunE = g.stop

	cmd.AddCommand(newIndexCmd(g))
	cmd.AddCommand(newSearchCmd(g))
	cmd.AddCommand(newWatchCmd(g))
	cmd.AddCommand(newServeCmd(g))
	cmd.AddCommand(newStatusCmd(g))
	cmd.AddCommand(newInitCmd(g))
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context so long runs stop between documents.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// start loads .env, installs the logger and starts profiling.
func (g *globalFlags) start(_ *cobra.Command, _ []string) error {
	if err := loadDotEnv(g.dir); err != nil {
		return err
	}

	logCfg := logging.Config{Level: "warn", WriteToStderr: true}
	if g.debug {
		logCfg = logging.DebugConfig()
	}
	if err := g.setLogger(logCfg); err != nil {
		return err
	}
	if g.debug {
		slog.Info("debug_logging_enabled",
			slog.String("log_file", logging.DefaultLogPath()),
			slog.String("version", version.Version))
	}

	if g.profile.Enabled() {
		session, err := profiling.Start(g.profile)
		if err != nil {
			return err
		}
		g.profiler = session
	}
	return nil
}

// stop ends profiling and flushes the log file.
func (g *globalFlags) stop(_ *cobra.Command, _ []string) error {
	err := g.profiler.Stop()
	g.profiler = nil
	if g.loggingCleanup != nil {
		g.loggingCleanup()
		g.loggingCleanup = nil
	}
	return err
}

// setLogger replaces the default logger, closing the previous log file.
func (g *globalFlags) setLogger(cfg logging.Config) error {
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if g.loggingCleanup != nil {
		g.loggingCleanup()
	}
	g.loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

// loadDotEnv reads dir/.env into the environment. Variables that are
// already set win, and a missing file is not an error.
func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return cerrors.ConfigError("failed to read "+path, err)
	}
	return nil
}

// loadConfig resolves the notes directory and loads its configuration.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	dir, err := filepath.Abs(g.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, cerrors.New(cerrors.ErrCodeConfigNotFound, "notes directory not found: "+dir, err).
			WithSuggestion("Pass an existing directory with --dir")
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, cerrors.ConfigError(err.Error(), err)
	}
	if g.dataDir != "" {
		cfg.Storage.DataDir = g.dataDir
	}
	return cfg, nil
}

// openService loads the configuration and opens the service over it.
func (g *globalFlags) openService(ctx context.Context, readOnly bool, sink events.Sink) (*service.Service, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return newService(ctx, cfg, readOnly, sink)
}

func newService(ctx context.Context, cfg *config.Config, readOnly bool, sink events.Sink) (*service.Service, error) {
	return service.New(ctx, service.Options{
		Config:   cfg,
		Events:   sink,
		Logger:   slog.Default(),
		ReadOnly: readOnly,
	})
}
