package respond

// StatsRespond combines content-store counters with the vector index point
// count. VectorPointsError carries a non-fatal index probe failure so the
// store counters still render.
type StatsRespond struct {
	TotalRecords      int64   `json:"total_records"`
	ParentRecords     int64   `json:"parent_records"`
	ChunkRecords      int64   `json:"chunk_records"`
	ReadyChunks       int64   `json:"ready_chunks"`
	EmbeddedChunks    int64   `json:"embedded_chunks"`
	PendingChunks     int64   `json:"pending_chunks"`
	BelowThreshold    int64   `json:"below_threshold"`
	VectorPoints      int64   `json:"vector_points"`
	VectorPointsError string  `json:"vector_points_error,omitempty"`
	MinQuality        float64 `json:"min_quality"`
}
