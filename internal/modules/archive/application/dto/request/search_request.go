package request

// SearchRequest is the HTTP search payload.
type SearchRequest struct {
	Query       string   `json:"query" binding:"required"`
	TopK        int      `json:"top_k"`
	MinQuality  float64  `json:"min_quality"`
	SourceTypes []string `json:"source_types"`
	DedupByDoc  bool     `json:"dedup_by_doc"`
}

// ReconcileRequest triggers an admin reconciliation run.
type ReconcileRequest struct {
	DryRun     bool     `json:"dry_run"`
	Phases     []string `json:"phases"`
	MinQuality float64  `json:"min_quality"`
}
