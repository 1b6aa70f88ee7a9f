package cli

import (
	"github.com/spf13/cobra"

	"rag-agent/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the agent over a JSON HTTP API",
	Long: `Starts an HTTP server with the following routes:

  GET  /healthz
  POST /v1/documents  {"identifier": "...", "text": "..."}
  POST /v1/answer     {"query": "..."}
  POST /v1/retrieve   {"query": "..."}`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			addr := a.cfg.Server.Addr
			if serveAddr != "" {
				addr = serveAddr
			}
			return httpapi.Serve(cmd.Context(), addr, httpapi.NewRouter(a.agent, a.logger), a.logger)
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
