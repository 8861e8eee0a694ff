package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show engine state and cache statistics",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if err := initEngine(cmd.Context()); err != nil {
		return err
	}

	status, err := knowledgeService.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}

	if statsJSON {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Indexed fragments:  %d\n", status.IndexedFragments)
	cmd.Printf("Tracked files:      %d\n", status.TrackedFiles)
	cmd.Printf("Cached file sets:   %d (%d fragments)\n", status.FragmentEntries, status.Fragments)
	cmd.Printf("Cached responses:   %d\n", status.Responses)
	if status.LastUpdate != "" {
		cmd.Printf("Last refresh:       %s\n", status.LastUpdate)
	} else {
		cmd.Println("Last refresh:       never")
	}
	if status.CacheHandle != "" {
		cmd.Printf("Context cache:      %s\n", status.CacheHandle)
	}
	if status.Updating {
		cmd.Println("Refresh in progress.")
	}
	return nil
}
