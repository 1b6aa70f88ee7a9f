package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withApp(cmd.Context(), func(a *app) error {
			answer, err := a.agent.Answer(cmd.Context(), query)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <question>",
	Short: "Print the stored document that best matches a question",
	Long:  `Runs only the retrieval step of ask: no answer is generated.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withApp(cmd.Context(), func(a *app) error {
			text, err := a.agent.Retrieve(cmd.Context(), query)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(searchCmd)
}
