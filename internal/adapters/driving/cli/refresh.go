package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Synchronise the index with the source folder",
	Long: `Lists the source folder, reprocesses changed files and rebuilds the
search index. A no-op when nothing changed since the last refresh.`,
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	if err := initEngine(cmd.Context()); err != nil {
		return err
	}

	cmd.Println("Refreshing knowledge base...")
	if err := knowledgeService.RefreshCache(cmd.Context()); err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}

	status, err := knowledgeService.Status(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("Done: %d fragments from %d files.\n", status.IndexedFragments, status.TrackedFiles)
	return nil
}
