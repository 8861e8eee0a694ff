package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brokerhub/knowbot/internal/core/domain"
)

var (
	searchLimit      int
	searchJSON       bool
	searchSources    []string
	searchCategories []string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge index",
	Long: `Runs a hybrid keyword/statistical search over the indexed fragments.
The query is expanded with domain synonyms before scoring.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringSliceVar(&searchSources, "source", nil, "restrict to the named source files")
	searchCmd.Flags().StringSliceVar(&searchCategories, "category", nil, "restrict to document categories (pricing, promo, regulation, general)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := initEngine(cmd.Context()); err != nil {
		return err
	}

	filters := domain.SearchFilters{Sources: searchSources}
	for _, c := range searchCategories {
		filters.Categories = append(filters.Categories, domain.Category(c))
	}

	results, err := knowledgeService.Search(cmd.Context(), args[0], searchLimit, filters)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.RankedFragment) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.RankedFragment) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range results {
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, r.Fragment.Source, r.Score)
		cmd.Printf("      %s\n", r.Fragment.Content)
		if r.WindowContent != "" {
			cmd.Printf("      Context: %s\n", truncate(r.WindowContent, 200))
		}
		cmd.Println()
	}
	return nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
