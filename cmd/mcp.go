package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/reviewgate/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent tooling integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets agent tooling run the review gate natively. Configure with:

  {
    "mcpServers": {
      "reviewgate": { "command": "reviewgate", "args": ["mcp"] }
    }
  }

Available tools: review_gate, check_refs, resolve_reference`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, err := getPipeline("")
		if err != nil {
			return err
		}

		srv := mcp.NewServer(mcp.Config{
			Registry: registry,
			APIKey:   viper.GetString("anthropic.api_key"),
			Backends: viper.GetStringSlice("models"),
			Timeout:  invokeTimeout(cmd),
			Pipeline: pipeline,
		})
		return srv.ServeStdio(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
