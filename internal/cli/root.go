// Package cli implements the rag command line.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "rag",
	Short: "Retrieval-augmented question answering over your files",
	Long: `rag stores every line of your text, CSV and PDF files as a vector in an index,
then answers questions using the best matching document as context.

Configuration is read from --config, ./config.yaml or ~/.config/rag/config.yaml.
The OpenAI API key is read from the environment (OPENAI_API_KEY by default);
a .env file in the working directory is loaded first.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML or TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
