package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/logging"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/ui"
)

type logsOptions struct {
	follow  bool
	lines   int
	level   string
	filter  string
	noColor bool
	file    string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show cognito logs",
		Long: `Show the last lines of the cognito log file (~/.cognito/logs/cognito.log).
The file is written by 'cognito serve' and by any command run with --debug.

Examples:
  cognito logs                  # Last 50 lines
  cognito logs -f               # Follow new entries
  cognito logs --level warn     # Warnings and errors only
  cognito logs --filter embed   # Lines matching a pattern`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only lines matching this regex")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.file, "file", "", "Log file to read (default: ~/.cognito/logs/cognito.log)")

	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	if !logging.ValidLevel(opts.level) {
		return cerrors.ValidationError("invalid --level: "+opts.level, nil).
			WithSuggestion("Use debug, info, warn or error")
	}

	cfg := logging.ViewerConfig{
		Level:   opts.level,
		NoColor: opts.noColor || ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()),
	}
	if opts.filter != "" {
		pattern, err := regexp.Compile(opts.filter)
		if err != nil {
			return cerrors.ValidationError("invalid --filter pattern", err)
		}
		cfg.Pattern = pattern
	}

	path := opts.file
	if path == "" {
		path = logging.DefaultLogPath()
	}

	viewer := logging.NewViewer(cfg, cmd.OutOrStdout())
	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return cerrors.NotFound("log file", path).
			WithSuggestion("Run 'cognito serve' or any command with --debug to write logs")
	}
	viewer.Print(entries)

	if !opts.follow {
		return nil
	}

	ctx := cmd.Context()
	followed := make(chan logging.Entry, 100)
	errCh := make(chan error, 1)
	go func() { errCh <- viewer.Follow(ctx, path, followed) }()

	for {
		select {
		case e := <-followed:
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), viewer.Format(e))
		case err := <-errCh:
			return err
		}
	}
}
