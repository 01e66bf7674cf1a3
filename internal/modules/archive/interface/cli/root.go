package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"CaseVault/internal/initial"
	"CaseVault/internal/modules/archive/application/service"
)

var (
	archive          *initial.Archive
	indexService     service.IndexService
	reconcileService service.ReconcileService
	searchService    service.SearchService
	statsService     service.StatsService
)

var rootCmd = &cobra.Command{
	Use:   "CaseVault",
	Short: "Quality-gated semantic indexing for a personal legal-case archive",
	Long: `CaseVault chunks archived emails and documents, scores chunk quality,
embeds accepted chunks into a vector index and keeps the relational store
and the index reconciled.`,
	SilenceUsage: true,
}

// Execute runs the CLI. Only startup failures exit non-zero; a completed
// run reports its per-item errors inside the printed metrics.
func Execute() error {
	return rootCmd.Execute()
}

// bootstrap wires the archive stack once per process. Unreachable stores
// surface here, before any phase runs.
func bootstrap(ctx context.Context) error {
	if archive != nil {
		return nil
	}
	if err := initial.InitGorm(); err != nil {
		return err
	}
	if err := initial.InitMilvus(ctx); err != nil {
		return err
	}
	initial.InitRedis()

	arc, err := initial.BuildArchive(ctx)
	if err != nil {
		return err
	}
	archive = arc
	indexService = arc.Index
	reconcileService = arc.Reconcile
	searchService = arc.Search
	statsService = arc.Stats
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printErrors(cmd *cobra.Command, errs []string) {
	if len(errs) == 0 {
		return
	}
	cmd.Printf("errors (%d):\n", len(errs))
	for _, e := range errs {
		cmd.Printf("  - %s\n", e)
	}
}
