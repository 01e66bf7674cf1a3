package respond

// ReconcileRespond reports one reconciliation run. Counts are actions
// actually performed; in a dry run the analyzed drift shows in Orphaned and
// Missing while the action counters stay zero.
type ReconcileRespond struct {
	RunID      string   `json:"run_id"`
	DryRun     bool     `json:"dry_run"`
	MinQuality float64  `json:"min_quality"`
	PhasesRun  []string `json:"phases_run"`

	ExpectedPoints int `json:"expected_points"`
	PresentPoints  int `json:"present_points"`
	Orphaned       int `json:"orphaned"`
	Missing        int `json:"missing"`
	LegacyClaimed  int `json:"legacy_claimed"`

	OrphansRemoved int `json:"orphans_removed"`
	LegacyMigrated int `json:"legacy_migrated"`
	Backfilled     int `json:"backfilled"`

	ResidualOrphans int  `json:"residual_orphans"`
	ResidualMissing int  `json:"residual_missing"`
	Converged       bool `json:"converged"`

	Errors       []string `json:"errors"`
	AuditPath    string   `json:"audit_path,omitempty"`
	AuditEntries int      `json:"audit_entries"`
	DurationMs   int64    `json:"duration_ms"`
}
