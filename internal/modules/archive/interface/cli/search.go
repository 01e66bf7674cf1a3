package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"CaseVault/internal/modules/archive/application/dto/request"
)

var (
	searchTopK       int
	searchMinQuality float64
	searchTypes      []string
	searchDedup      bool
	searchJSON       bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantic search over indexed chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 10, "maximum hits to return")
	searchCmd.Flags().Float64Var(&searchMinQuality, "min-quality", 0, "minimum stored chunk quality (default from config)")
	searchCmd.Flags().StringSliceVar(&searchTypes, "source-type", nil, "restrict hits to these source types")
	searchCmd.Flags().BoolVar(&searchDedup, "dedup", false, "keep only the best hit per parent document")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output hits as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if err := bootstrap(ctx); err != nil {
		return err
	}

	res, err := searchService.Search(ctx, request.SearchRequest{
		Query:       args[0],
		TopK:        searchTopK,
		MinQuality:  searchMinQuality,
		SourceTypes: searchTypes,
		DedupByDoc:  searchDedup,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd, res)
	}

	if res.IsEmpty {
		cmd.Println(res.Message)
		return nil
	}
	cmd.Printf("%d hits (%dms)\n\n", res.ReturnedCount, res.DurationMs)
	for i, h := range res.Hits {
		cmd.Printf("  [%d] %s#%d (score %.3f, quality %.2f)\n", i+1, h.DocID, h.ChunkIdx, h.Score, h.QualityScore)
		if snippet := oneLineSnippet(h.Content, 160); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
	return nil
}

func oneLineSnippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
