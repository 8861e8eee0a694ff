package cli

import (
	"github.com/spf13/cobra"

	"github.com/brokerhub/knowbot/internal/adapters/driving/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal search view.

Controls:
  Enter  - Search
  ↑/↓    - Navigate results
  Tab    - Expand the parent paragraph of the selected result
  Esc    - Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	if err := initEngine(cmd.Context()); err != nil {
		return err
	}
	return tui.Run(cmd.Context(), knowledgeService)
}
