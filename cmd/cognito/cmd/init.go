package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/configs"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/config"
	"github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/output"
)

// MCPConfig is the .mcp.json file read by MCP clients.
type MCPConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
}

// MCPServerConfig is one server entry in .mcp.json.
type MCPServerConfig struct {
	Type    string   `json:"type"`
	Command string   `json:"command"`
	Args    []string `json:"args"`
	Cwd     string   `json:"cwd,omitempty"`
}

type initOptions struct {
	force bool
	mcp   bool
}

func newInitCmd(g *globalFlags) *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .cognito.yaml in the notes directory",
		Long: `Write a commented .cognito.yaml template to the notes directory.
Existing configuration is preserved unless --force is given.

With --mcp, cognito is also registered in the directory's .mcp.json so
MCP clients started there launch 'cognito serve'.

Examples:
  cognito init --dir ~/notes
  cognito init --dir ~/notes --mcp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, g, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&opts.mcp, "mcp", false, "Register cognito in .mcp.json")

	return cmd
}

func runInit(cmd *cobra.Command, g *globalFlags, opts initOptions) error {
	out := output.New(cmd.OutOrStdout())

	root, err := filepath.Abs(g.dir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create notes directory: %w", err)
	}

	if err := writeProjectConfig(out, root, opts.force); err != nil {
		return err
	}
	if opts.mcp {
		if err := registerMCP(out, root, opts.force); err != nil {
			return err
		}
	}

	// The template must load cleanly with whatever the environment adds.
	if _, err := config.Load(root); err != nil {
		out.Warningf("Configuration does not load: %v", err)
		return err
	}

	out.Newline()
	out.Status("💡", "Next: cognito index --dir "+root)
	return nil
}

// writeProjectConfig writes the embedded template unless a project config
// already exists.
func writeProjectConfig(out *output.Writer, root string, force bool) error {
	if existing := config.FindProjectConfig(root); existing != "" && !force {
		out.Statusf("ℹ️ ", "Existing %s preserved", filepath.Base(existing))
		return nil
	}

	path := filepath.Join(root, ".cognito.yaml")
	if err := os.WriteFile(path, []byte(configs.ProjectConfigTemplate), 0o644); err != nil {
		return fmt.Errorf("failed to write .cognito.yaml: %w", err)
	}
	out.Statusf("📝", "Created %s", path)
	return nil
}

// registerMCP adds a cognito entry to root/.mcp.json, keeping other servers.
func registerMCP(out *output.Writer, root string, force bool) error {
	path := filepath.Join(root, ".mcp.json")

	cfg := MCPConfig{MCPServers: map[string]MCPServerConfig{}}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("failed to parse existing .mcp.json: %w", err)
		}
		if cfg.MCPServers == nil {
			cfg.MCPServers = map[string]MCPServerConfig{}
		}
		if _, ok := cfg.MCPServers["cognito"]; ok && !force {
			out.Status("ℹ️ ", "cognito already configured in .mcp.json")
			return nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("failed to read .mcp.json: %w", err)
	}

	binary, err := os.Executable()
	if err != nil {
		binary = "cognito"
	}
	cfg.MCPServers["cognito"] = MCPServerConfig{
		Type:    "stdio",
		Command: binary,
		Args:    []string{"serve", "--dir", root, "--watch"},
		Cwd:     root,
	}

	data, err = json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal .mcp.json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write .mcp.json: %w", err)
	}
	out.Statusf("📝", "Registered cognito in %s", path)
	return nil
}
