package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brokerhub/knowbot/internal/core/services"
	"github.com/brokerhub/knowbot/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine with the background refresh scheduler",
	Long: `Runs the engine as a long-lived process: performs an initial refresh,
then refreshes daily at the configured hour and, for filesystem sources,
whenever the corpus directory changes. Stops on SIGINT/SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := initEngine(ctx); err != nil {
		return err
	}

	// First refresh runs in the background so a slow listing does not
	// delay startup; queries use the snapshot until it lands.
	go func() {
		if err := knowledgeService.RefreshCache(ctx); err != nil {
			logger.Warn("Initial refresh failed: %v", err)
		}
	}()

	opts := []services.SchedulerOption{
		services.WithRefreshHour(cfg.Refresh.Hour),
		services.WithTimezoneOffset(cfg.TimezoneOffset()),
		services.WithRetryBackoff(cfg.Refresh.RetryBackoff),
	}
	if fileWatcher != nil {
		opts = append(opts, services.WithWatcher(fileWatcher))
	}
	scheduler := services.NewScheduler(knowledgeService, opts...)

	cmd.Println("knowbot serving; press Ctrl+C to stop.")
	if err := scheduler.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	_ = scheduler.Stop()
	cmd.Println("Stopped.")
	return nil
}
