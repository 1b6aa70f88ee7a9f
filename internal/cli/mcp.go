package cli

import (
	"github.com/spf13/cobra"

	"rag-agent/internal/mcpserver"
	"rag-agent/internal/source"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server over stdio",
	Long: `Start the Model Context Protocol server for AI assistant integration.
It exposes the tools ask, retrieve and ingest_file.

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "rag": {
        "command": "/path/to/rag",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			server, err := mcpserver.NewServer(a.agent, source.Load, a.logger)
			if err != nil {
				return err
			}
			return server.Run(cmd.Context())
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
