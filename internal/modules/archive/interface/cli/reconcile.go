package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"CaseVault/internal/modules/archive/application/dto/request"
	"CaseVault/internal/modules/archive/application/service"
)

var (
	reconcileDryRun     bool
	reconcilePhases     []string
	reconcileMinQuality float64
	reconcileJSON       bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Repair drift between the content store and the vector index",
	Long: `Compares the vector index against the eligible chunk rows, removes
orphaned points, migrates points stored under legacy id schemes, backfills
missing vectors and verifies the result. Every action is written to the
audit log, dry runs included.`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "audit planned actions without mutating anything")
	reconcileCmd.Flags().StringSliceVar(&reconcilePhases, "phases", nil,
		"phases to run: "+strings.Join(service.AllPhases(), ",")+" (default all; analyze always runs)")
	reconcileCmd.Flags().Float64Var(&reconcileMinQuality, "min-quality", 0, "quality threshold (default from config)")
	reconcileCmd.Flags().BoolVar(&reconcileJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	if err := bootstrap(ctx); err != nil {
		return err
	}

	res, err := reconcileService.Reconcile(ctx, request.ReconcileRequest{
		DryRun:     reconcileDryRun,
		Phases:     reconcilePhases,
		MinQuality: reconcileMinQuality,
	})
	if err != nil {
		return err
	}

	if reconcileJSON {
		return printJSON(cmd, res)
	}

	cmd.Printf("run %s (dry-run=%v, phases: %s)\n", res.RunID, res.DryRun, strings.Join(res.PhasesRun, " -> "))
	cmd.Printf("expected points:   %d\n", res.ExpectedPoints)
	cmd.Printf("present points:    %d\n", res.PresentPoints)
	cmd.Printf("orphaned:          %d (removed %d)\n", res.Orphaned, res.OrphansRemoved)
	cmd.Printf("legacy claimed:    %d (migrated %d)\n", res.LegacyClaimed, res.LegacyMigrated)
	cmd.Printf("missing:           %d (backfilled %d)\n", res.Missing, res.Backfilled)
	if res.Converged {
		cmd.Println("verify:            converged")
	} else {
		cmd.Printf("verify:            residual orphans %d, residual missing %d\n",
			res.ResidualOrphans, res.ResidualMissing)
	}
	if res.AuditPath != "" {
		cmd.Printf("audit:             %s (%d entries)\n", res.AuditPath, res.AuditEntries)
	}
	printErrors(cmd, res.Errors)
	return nil
}
