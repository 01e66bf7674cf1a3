package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show indexing progress counters",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output counters as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	if err := bootstrap(ctx); err != nil {
		return err
	}

	if statsJSON {
		res, err := statsService.Stats(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd, res)
	}
	return printStatsText(cmd, ctx)
}

func printStatsText(cmd *cobra.Command, ctx context.Context) error {
	res, err := statsService.Stats(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("total records:     %d\n", res.TotalRecords)
	cmd.Printf("parent records:    %d\n", res.ParentRecords)
	cmd.Printf("chunk records:     %d\n", res.ChunkRecords)
	cmd.Printf("ready chunks:      %d\n", res.ReadyChunks)
	cmd.Printf("embedded chunks:   %d\n", res.EmbeddedChunks)
	cmd.Printf("pending chunks:    %d\n", res.PendingChunks)
	cmd.Printf("below threshold:   %d (min quality %.2f)\n", res.BelowThreshold, res.MinQuality)
	if res.VectorPointsError != "" {
		cmd.Printf("vector points:     unavailable (%s)\n", res.VectorPointsError)
	} else {
		cmd.Printf("vector points:     %d\n", res.VectorPoints)
	}
	return nil
}
