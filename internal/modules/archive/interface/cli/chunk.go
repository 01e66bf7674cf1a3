package cli

import (
	"context"

	"github.com/spf13/cobra"

	"CaseVault/internal/modules/archive/infrastructure/pipeline"
)

var (
	chunkLimit  int
	chunkDryRun bool
	chunkTypes  []string
	chunkJSON   bool
)

var chunkCmd = &cobra.Command{
	Use:   "chunk",
	Short: "Split ready documents into quality-gated chunks",
	Long: `Selects parent documents marked ready for embedding that have no
chunks yet, splits them, scores every chunk and stores only the chunks
that clear the quality threshold.`,
	RunE: runChunk,
}

func init() {
	chunkCmd.Flags().IntVar(&chunkLimit, "limit", 0, "maximum parent documents to process (0 = all)")
	chunkCmd.Flags().BoolVar(&chunkDryRun, "dry-run", false, "report work without writing")
	chunkCmd.Flags().StringSliceVar(&chunkTypes, "source-type", nil, "parent source types (default email,attachment,document)")
	chunkCmd.Flags().BoolVar(&chunkJSON, "json", false, "output metrics as JSON")
	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	if err := bootstrap(ctx); err != nil {
		return err
	}

	res, err := indexService.ChunkDocuments(ctx, pipeline.ChunkRequest{
		Limit:       chunkLimit,
		SourceTypes: chunkTypes,
		DryRun:      chunkDryRun,
	})
	if err != nil {
		return err
	}

	if chunkJSON {
		return printJSON(cmd, res)
	}
	cmd.Printf("documents processed:  %d\n", res.DocumentsProcessed)
	cmd.Printf("chunks created:       %d\n", res.ChunksCreated)
	cmd.Printf("dropped by quality:   %d\n", res.ChunksDroppedQuality)
	cmd.Printf("already chunked:      %d\n", res.ChunksAlreadyExist)
	cmd.Printf("elapsed:              %.2fs\n", res.ElapsedSeconds)
	printErrors(cmd, res.Errors)
	return nil
}
