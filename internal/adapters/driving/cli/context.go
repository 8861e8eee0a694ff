package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	contextTopK   int
	contextWindow int
)

var contextCmd = &cobra.Command{
	Use:   "context [query]",
	Short: "Print the formatted context block for a query",
	Long: `Prints the exact context block the assistant would receive for the
query: SOURCE/CONTENT entries with citation links, served from the response
cache when the query repeats.`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

func init() {
	contextCmd.Flags().IntVarP(&contextTopK, "top-k", "k", 5, "number of fragments to include")
	contextCmd.Flags().IntVarP(&contextWindow, "window", "w", 1, "expand fragments to their parent paragraph (0 to disable)")
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, args []string) error {
	if err := initEngine(cmd.Context()); err != nil {
		return err
	}

	block, err := knowledgeService.GetRelevantContext(cmd.Context(), args[0], contextTopK, contextWindow)
	if err != nil {
		return fmt.Errorf("building context: %w", err)
	}
	if block == "" {
		cmd.Println("No relevant context.")
		return nil
	}
	cmd.Println(block)
	return nil
}
