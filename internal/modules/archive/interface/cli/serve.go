package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	httpServer "CaseVault/api/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Starts the HTTP API (search, stats, reconcile) on the configured
address and runs until interrupted. Batch indexing stays a CLI concern.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bootstrap(ctx); err != nil {
		return err
	}

	engine := httpServer.BuildEngine(archive)
	return httpServer.Serve(ctx, engine)
}
