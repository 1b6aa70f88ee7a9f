package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"rag-agent/internal/source"
	"rag-agent/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat [file...]",
	Short: "Interactive question answering in the terminal",
	Long: `Opens a chat interface. Files given as arguments are ingested first.
With the memory vector store, only those files are available to the chat.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	return withApp(cmd.Context(), func(a *app) error {
		points := 0
		for _, path := range args {
			doc, err := source.Load(path)
			if err != nil {
				return err
			}
			stored, err := a.agent.Ingest(cmd.Context(), doc)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", path, err)
			}
			points += stored
		}

		summary := fmt.Sprintf("Vector store: %s", a.cfg.VectorStore.Type)
		if len(args) > 0 {
			summary = fmt.Sprintf("Ingested %d files (%d points) into %s", len(args), points, a.cfg.VectorStore.Type)
		}
		m := tui.New(cmd.Context(), a.agent, summary)
		_, err := tea.NewProgram(m, tea.WithContext(cmd.Context()), tea.WithAltScreen()).Run()
		return err
	})
}
