package cli

import (
	"context"

	"github.com/spf13/cobra"

	"CaseVault/internal/modules/archive/infrastructure/pipeline"
)

var (
	embedLimit      int
	embedBatchSize  int
	embedMinQuality float64
	embedDryRun     bool
	embedJSON       bool
)

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed quality-approved chunks into the vector index",
	Long: `Selects stored chunks above the quality threshold that have not been
embedded, embeds them batch by batch and upserts the vectors under
deterministic ids. Rows are marked embedded only after their vector is
stored.`,
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().IntVar(&embedLimit, "limit", 0, "maximum chunks to process (0 = all)")
	embedCmd.Flags().IntVar(&embedBatchSize, "batch-size", 0, "chunks per embedding batch (default 64)")
	embedCmd.Flags().Float64Var(&embedMinQuality, "min-quality", 0, "quality threshold (default from config)")
	embedCmd.Flags().BoolVar(&embedDryRun, "dry-run", false, "report work without embedding or writing")
	embedCmd.Flags().BoolVar(&embedJSON, "json", false, "output metrics as JSON")
	rootCmd.AddCommand(embedCmd)
}

func runEmbed(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	if err := bootstrap(ctx); err != nil {
		return err
	}

	res, err := indexService.EmbedChunks(ctx, pipeline.EmbedRequest{
		Limit:      embedLimit,
		BatchSize:  embedBatchSize,
		MinQuality: embedMinQuality,
		DryRun:     embedDryRun,
	})
	if err != nil {
		return err
	}

	if embedJSON {
		return printJSON(cmd, res)
	}
	printEmbedResult(cmd, res)
	printErrors(cmd, res.Errors)
	return nil
}

func printEmbedResult(cmd *cobra.Command, res *pipeline.EmbedResult) {
	cmd.Printf("chunks processed:     %d\n", res.ChunksProcessed)
	cmd.Printf("embeddings generated: %d\n", res.EmbeddingsGenerated)
	cmd.Printf("vectors stored:       %d\n", res.VectorsStored)
	cmd.Printf("chunks skipped:       %d\n", res.ChunksSkipped)
	cmd.Printf("elapsed:              %.2fs (%.1f embeddings/s)\n",
		res.ElapsedSeconds, res.EmbeddingsPerSecond)
}
