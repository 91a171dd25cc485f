package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/config"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/document"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/output"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/search"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/service"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit         int
	lexicalWeight float64
	threshold     float64
	json          bool
	snippetLines  int
}

// searchOutput is the --json document.
type searchOutput struct {
	Query   string                `json:"query"`
	Count   int                   `json:"count"`
	Results []search.HybridResult `json:"results"`
}

func newSearchCmd(g *globalFlags) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed notes",
		Long: `Search the indexed notes using hybrid search.

Each result's score is w*bm25 + (1-w)*semantic, with both channels
normalized to [0,1]. --lexical-weight sets w; 1 is keyword-only and 0 is
semantic-only.

Examples:
  cognito search "sourdough starter"
  cognito search "tomato watering" --limit 3
  cognito search "meeting notes" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, g, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().Float64Var(&opts.lexicalWeight, "lexical-weight", 0, "BM25 weight in [0,1] (default from config)")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Minimum semantic similarity")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output results as JSON")
	cmd.Flags().IntVar(&opts.snippetLines, "lines", 3, "Snippet lines per result")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, g *globalFlags, query string, opts searchOptions) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if err := requireIndex(cfg); err != nil {
		return err
	}

	svc, err := newService(ctx, cfg, true, nil)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	rankOpts := svc.Ranker.Defaults()
	flags := cmd.Flags()
	if flags.Changed("limit") {
		if opts.limit <= 0 {
			return cerrors.ValidationError("--limit must be positive", nil)
		}
		rankOpts.FinalTopK = opts.limit
	}
	if flags.Changed("lexical-weight") {
		if opts.lexicalWeight < 0 || opts.lexicalWeight > 1 {
			return cerrors.ValidationError(fmt.Sprintf("--lexical-weight must be in [0,1], got %g", opts.lexicalWeight), nil)
		}
		rankOpts.BM25Weight = opts.lexicalWeight
	}
	if flags.Changed("threshold") {
		rankOpts.SimilarityThreshold = opts.threshold
	}

	slog.Info("search_started", slog.String("query", query), slog.Int("limit", rankOpts.FinalTopK))
	results, err := svc.Rank(ctx, query, rankOpts)
	if err != nil {
		return err
	}
	slog.Info("search_complete", slog.Int("results", len(results)))

	if opts.json {
		if results == nil {
			results = []search.HybridResult{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(searchOutput{Query: query, Count: len(results), Results: results})
	}

	stdout := cmd.OutOrStdout()
	out := output.NewWithColor(stdout, ui.IsTTY(stdout) && !ui.DetectNoColor())
	if len(results) == 0 {
		out.Status("", fmt.Sprintf("No results for %q", query))
		return nil
	}
	for i, r := range results {
		out.Result(i+1, resultHeading(r), r.HybridScore, resultDetail(r), output.Snippet(r.Content, opts.snippetLines))
	}
	return nil
}

// requireIndex fails when a sqlite data directory has never been indexed,
// so a read-only search does not create an empty database.
func requireIndex(cfg *config.Config) error {
	if strings.EqualFold(cfg.Storage.Backend, "memory") {
		return nil
	}
	path := filepath.Join(cfg.Storage.DataDir, service.DatabaseFile)
	if _, err := os.Stat(path); err != nil {
		return cerrors.NotFound("index", cfg.Storage.DataDir).
			WithSuggestion("Run 'cognito index' first")
	}
	return nil
}

func resultHeading(r search.HybridResult) string {
	title := r.Title
	if title == "" {
		title = r.ParentID
	}
	if len(r.HeadingPath) > 0 {
		title += " > " + strings.Join(r.HeadingPath, " > ")
	}
	return title
}

func resultDetail(r search.HybridResult) string {
	parts := []string{"note://" + r.ParentID}
	if r.ParentType == document.TypeChat {
		parts = append(parts, "chat")
	}
	parts = append(parts, fmt.Sprintf("bm25 %.3f", r.BM25Score), fmt.Sprintf("semantic %.3f", r.SemanticScore))
	if len(r.Tags) > 0 {
		parts = append(parts, "#"+strings.Join(r.Tags, " #"))
	}
	return strings.Join(parts, " · ")
}
