package cli

import (
	"time"

	"github.com/spf13/cobra"

	"rag-agent/internal/source"
	"rag-agent/internal/watcher"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Ingest files as they are created or changed in a directory",
	Long: `Watches a directory (not its subdirectories) and ingests every regular file
once it has stopped changing. Hidden files are ignored. Each change stores
the file again; earlier points are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app) error {
			w := watcher.New(args[0], a.agent, source.Load,
				watcher.WithDebounce(watchDebounce),
				watcher.WithLogger(a.logger),
			)
			return w.Run(cmd.Context())
		})
	},
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before a changed file is ingested")
	rootCmd.AddCommand(watchCmd)
}
