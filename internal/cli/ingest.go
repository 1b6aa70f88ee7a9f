package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"rag-agent/internal/source"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file> [file...]",
	Short: "Store every line of the given files in the vector index",
	Long: `Reads each file, splits it into lines and stores one point per line.
Every point carries the whole file text, so a question matching any line
retrieves the full document. Ingesting the same file twice stores it twice.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		for _, path := range args {
			doc, err := source.Load(path)
			if err != nil {
				return err
			}
			stored, err := a.agent.Ingest(cmd.Context(), doc)
			if err != nil {
				return fmt.Errorf("ingest %s (%d points stored): %w", path, stored, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d points\n", path, stored)
		}
		return nil
	})
}
