package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/output"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/service"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/ui"
)

func newStatusCmd(g *globalFlags) *cobra.Command {
	var (
		jsonOutput bool
		repair     bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index health and status",
		Long: `Display information about the index:
  - Number of indexed documents, chunks and embeddings
  - Lexical index size and consolidation state
  - Inconsistencies between the parent index, chunks and lexical index

--repair fixes inconsistencies. The parent index is treated as the
source of truth.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, g, jsonOutput, repair)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&repair, "repair", false, "Repair detected inconsistencies")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, g *globalFlags, jsonOutput, repair bool) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if err := requireIndex(cfg); err != nil {
		return err
	}

	svc, err := newService(ctx, cfg, !repair, nil)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	if repair {
		check, err := svc.Manager.Check(ctx)
		if err != nil {
			return err
		}
		if !check.OK() {
			if err := svc.Manager.Repair(ctx, check); err != nil {
				return fmt.Errorf("repair failed: %w", err)
			}
			if !jsonOutput {
				output.New(cmd.OutOrStdout()).Successf("Repaired %d inconsistencies", len(check.Inconsistencies))
			}
		}
	}

	info, err := collectStatus(ctx, svc)
	if err != nil {
		return fmt.Errorf("failed to collect status: %w", err)
	}

	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout()))
	if jsonOutput {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}

func collectStatus(ctx context.Context, svc *service.Service) (ui.StatusInfo, error) {
	st, err := svc.Manager.Status(ctx)
	if err != nil {
		return ui.StatusInfo{}, err
	}

	cfg := svc.Config()
	info := ui.StatusInfo{
		Root:               cfg.Sources.Root,
		DataDir:            cfg.Storage.DataDir,
		Storage:            cfg.Storage.Backend,
		Parents:            st.Parents,
		Chunks:             st.Chunks,
		Embedded:           st.Embedded,
		EmbedderModel:      st.Model,
		EmbedderDimensions: st.Dimensions,
		LexicalRecords:     st.Lexical.Records,
		LexicalTerms:       st.Lexical.Terms,
		LexicalChanges:     st.Lexical.Changes,
		LastConsolidated:   st.Lexical.LastConsolidatedAt,
		Consolidations:     st.Lexical.Consolidations,
		Issues:             st.Issues,
	}
	if fi, err := os.Stat(filepath.Join(cfg.Storage.DataDir, service.DatabaseFile)); err == nil {
		info.StorageSize = fi.Size()
	}
	return info, nil
}
