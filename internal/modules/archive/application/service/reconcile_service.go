package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"CaseVault/internal/modules/archive/application/dto/request"
	"CaseVault/internal/modules/archive/application/dto/respond"
	"CaseVault/internal/modules/archive/domain/content"
	"CaseVault/internal/modules/archive/domain/identity"
	"CaseVault/internal/modules/archive/domain/repository"
	"CaseVault/internal/modules/archive/infrastructure/audit"
	"CaseVault/internal/modules/archive/infrastructure/pipeline"
	"CaseVault/pkg/util"
	"CaseVault/pkg/xerr"
	"CaseVault/pkg/zlog"

	einoembed "github.com/cloudwego/eino/components/embedding"
)

// Reconciliation phases. Analyze always runs; the others run when requested.
const (
	PhaseAnalyze       = "analyze"
	PhaseRemoveOrphans = "remove_orphans"
	PhaseMigrateLegacy = "migrate_legacy"
	PhaseBackfill      = "backfill"
	PhaseVerify        = "verify"
)

// AllPhases returns every phase in execution order.
func AllPhases() []string {
	return []string{PhaseAnalyze, PhaseRemoveOrphans, PhaseMigrateLegacy, PhaseBackfill, PhaseVerify}
}

// ReconcileConfig carries the reconciliation tunables.
type ReconcileConfig struct {
	MinQuality     float64
	ScrollPageSize int
	DeleteBatch    int
	EmbedBatch     int
	LegacyModes    []string
	AuditDir       string
}

// ReconcileService repairs drift between the content store and the vector
// index: a point exists for exactly the eligible chunk rows, under the
// deterministic id of each row's business key.
type ReconcileService interface {
	Reconcile(ctx context.Context, req request.ReconcileRequest) (*respond.ReconcileRespond, error)
}

type reconcileServiceImpl struct {
	repo     repository.ContentRepository
	index    repository.VectorIndex
	embedder einoembed.Embedder
	guard    *RunGuard
	cfg      ReconcileConfig
}

func NewReconcileService(repo repository.ContentRepository, index repository.VectorIndex, embedder einoembed.Embedder, guard *RunGuard, cfg ReconcileConfig) (ReconcileService, error) {
	if repo == nil {
		return nil, fmt.Errorf("content repository is nil")
	}
	if index == nil {
		return nil, fmt.Errorf("vector index is nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is nil")
	}
	if cfg.MinQuality <= 0 {
		cfg.MinQuality = 0.35
	}
	if cfg.ScrollPageSize <= 0 {
		cfg.ScrollPageSize = 500
	}
	if cfg.DeleteBatch <= 0 {
		cfg.DeleteBatch = 100
	}
	if cfg.EmbedBatch <= 0 {
		cfg.EmbedBatch = 64
	}
	if strings.TrimSpace(cfg.AuditDir) == "" {
		cfg.AuditDir = "audit"
	}
	return &reconcileServiceImpl{repo: repo, index: index, embedder: embedder, guard: guard, cfg: cfg}, nil
}

// reconcileState is the analyze output consumed by the mutation phases.
type reconcileState struct {
	// expected maps each deterministic point id to its eligible chunk row.
	expected map[string]*content.Record
	present  map[string]struct{}
	// orphaned excludes legacy ids claimed by missing rows; those are the
	// migration phase's input, not garbage.
	orphaned []string
	missing  []string
	// claimed maps a present legacy id to the deterministic id it belongs to.
	claimed  map[string]string
	migrated map[string]bool
}

func (s *reconcileServiceImpl) Reconcile(ctx context.Context, req request.ReconcileRequest) (*respond.ReconcileRespond, error) {
	start := time.Now()

	phases, err := normalizePhases(req.Phases)
	if err != nil {
		return nil, err
	}
	minQuality := req.MinQuality
	if minQuality <= 0 {
		minQuality = s.cfg.MinQuality
	}

	if s.guard != nil {
		release, err := s.guard.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	runID := util.GenerateShortUUID()
	log := audit.NewLog(runID)
	res := &respond.ReconcileRespond{
		RunID:      runID,
		DryRun:     req.DryRun,
		MinQuality: minQuality,
		Errors:     []string{},
	}

	// Unreachable stores abort before any phase runs.
	if _, err := s.index.CollectionStats(ctx); err != nil {
		return nil, fmt.Errorf("vector index unreachable: %w", err)
	}

	st, err := s.analyze(ctx, minQuality, log, res)
	if err != nil {
		return nil, err
	}
	res.PhasesRun = append(res.PhasesRun, PhaseAnalyze)

	if phases[PhaseRemoveOrphans] {
		s.removeOrphans(ctx, st, req.DryRun, log, res)
		res.PhasesRun = append(res.PhasesRun, PhaseRemoveOrphans)
	}
	if phases[PhaseMigrateLegacy] {
		s.migrateLegacy(ctx, st, req.DryRun, log, res)
		res.PhasesRun = append(res.PhasesRun, PhaseMigrateLegacy)
	}
	if phases[PhaseBackfill] {
		s.backfill(ctx, st, req.DryRun, log, res)
		res.PhasesRun = append(res.PhasesRun, PhaseBackfill)
	}
	if phases[PhaseVerify] {
		s.verify(ctx, minQuality, log, res)
		res.PhasesRun = append(res.PhasesRun, PhaseVerify)
	}

	if path, exportErr := log.Export(s.cfg.AuditDir); exportErr != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("audit export: %v", exportErr))
		zlog.Warn("audit export failed", zap.String("run_id", runID), zap.Error(exportErr))
	} else {
		res.AuditPath = path
	}
	res.AuditEntries = log.Len()
	res.DurationMs = time.Since(start).Milliseconds()

	zlog.Info("reconciliation done",
		zap.String("run_id", runID),
		zap.Bool("dry_run", req.DryRun),
		zap.Strings("phases", res.PhasesRun),
		zap.Int("expected", res.ExpectedPoints),
		zap.Int("present", res.PresentPoints),
		zap.Int("orphaned", res.Orphaned),
		zap.Int("missing", res.Missing),
		zap.Int("orphans_removed", res.OrphansRemoved),
		zap.Int("legacy_migrated", res.LegacyMigrated),
		zap.Int("backfilled", res.Backfilled),
		zap.Bool("converged", res.Converged),
		zap.Int("errors", len(res.Errors)),
		zap.Int64("duration_ms", res.DurationMs))
	return res, nil
}

func normalizePhases(names []string) (map[string]bool, error) {
	out := make(map[string]bool, len(AllPhases()))
	if len(names) == 0 {
		for _, p := range AllPhases() {
			out[p] = true
		}
		return out, nil
	}
	known := make(map[string]bool, len(AllPhases()))
	for _, p := range AllPhases() {
		known[p] = true
	}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if !known[n] {
			return nil, xerr.New(xerr.BadRequest, fmt.Sprintf("unknown phase %q", n))
		}
		out[n] = true
	}
	out[PhaseAnalyze] = true
	return out, nil
}

func (s *reconcileServiceImpl) analyze(ctx context.Context, minQuality float64, log *audit.Log, res *respond.ReconcileRespond) (*reconcileState, error) {
	rows, err := s.repo.ListEligible(ctx, minQuality)
	if err != nil {
		return nil, fmt.Errorf("content store unreachable: %w", err)
	}

	st := &reconcileState{
		expected: make(map[string]*content.Record, len(rows)),
		present:  make(map[string]struct{}),
		claimed:  make(map[string]string),
		migrated: make(map[string]bool),
	}
	for i := range rows {
		row := &rows[i]
		st.expected[identity.PointID(row.SourceType, row.SourceId)] = row
	}

	err = s.index.ScrollIDs(ctx, s.cfg.ScrollPageSize, func(ids []string) error {
		for _, id := range ids {
			st.present[id] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scroll vector ids: %w", err)
	}

	for id := range st.expected {
		if _, ok := st.present[id]; !ok {
			st.missing = append(st.missing, id)
		}
	}
	sort.Strings(st.missing)

	// A present legacy id belonging to a missing row is migration input,
	// not an orphan.
	for _, pid := range st.missing {
		row := st.expected[pid]
		for _, cand := range identity.LegacyCandidates(s.cfg.LegacyModes, row.Id, row.SourceType, row.SourceId) {
			if cand == pid {
				continue
			}
			if _, ok := st.present[cand]; !ok {
				continue
			}
			if _, ok := st.expected[cand]; ok {
				continue
			}
			if _, taken := st.claimed[cand]; !taken {
				st.claimed[cand] = pid
			}
		}
	}

	for id := range st.present {
		if _, ok := st.expected[id]; ok {
			continue
		}
		if _, ok := st.claimed[id]; ok {
			continue
		}
		st.orphaned = append(st.orphaned, id)
	}
	sort.Strings(st.orphaned)

	res.ExpectedPoints = len(st.expected)
	res.PresentPoints = len(st.present)
	res.Orphaned = len(st.orphaned)
	res.Missing = len(st.missing)
	res.LegacyClaimed = len(st.claimed)

	detail := fmt.Sprintf("expected=%d present=%d orphaned=%d missing=%d legacy_claimed=%d",
		res.ExpectedPoints, res.PresentPoints, res.Orphaned, res.Missing, res.LegacyClaimed)
	log.Append(PhaseAnalyze, "analyze", "", "", audit.StatusOK, detail)
	zlog.Info("reconciliation analyze", zap.String("run_id", log.RunID()), zap.String("drift", detail))
	return st, nil
}

func (s *reconcileServiceImpl) removeOrphans(ctx context.Context, st *reconcileState, dryRun bool, log *audit.Log, res *respond.ReconcileRespond) {
	for start := 0; start < len(st.orphaned); start += s.cfg.DeleteBatch {
		end := start + s.cfg.DeleteBatch
		if end > len(st.orphaned) {
			end = len(st.orphaned)
		}
		ids := st.orphaned[start:end]

		if dryRun {
			for _, id := range ids {
				log.Append(PhaseRemoveOrphans, "remove_orphan", id, "", audit.StatusDryRun, "")
			}
			continue
		}
		if err := s.index.DeleteByIDs(ctx, ids); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("remove orphans batch of %d: %v", len(ids), err))
			for _, id := range ids {
				log.Append(PhaseRemoveOrphans, "remove_orphan", id, "", audit.StatusError, err.Error())
			}
			continue
		}
		res.OrphansRemoved += len(ids)
		for _, id := range ids {
			log.Append(PhaseRemoveOrphans, "remove_orphan", id, "", audit.StatusOK, "")
		}
	}
}

func (s *reconcileServiceImpl) migrateLegacy(ctx context.Context, st *reconcileState, dryRun bool, log *audit.Log, res *respond.ReconcileRespond) {
	candidatesFor := make(map[string][]string, len(st.claimed))
	for legacyID, pid := range st.claimed {
		candidatesFor[pid] = append(candidatesFor[pid], legacyID)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, pid := range st.missing {
		legacyIDs := candidatesFor[pid]
		if len(legacyIDs) == 0 {
			continue
		}
		sort.Strings(legacyIDs)
		row := st.expected[pid]
		businessKey := identity.BusinessKey(row.SourceType, row.SourceId)

		if dryRun {
			log.Append(PhaseMigrateLegacy, "migrate_legacy", pid, businessKey, audit.StatusDryRun, "from "+legacyIDs[0])
			continue
		}

		pts, err := s.index.FetchPoints(ctx, legacyIDs)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("fetch legacy %s: %v", businessKey, err))
			log.Append(PhaseMigrateLegacy, "migrate_legacy", pid, businessKey, audit.StatusError, err.Error())
			continue
		}
		if len(pts) == 0 {
			// Gone since the scroll; the row stays missing and backfills.
			continue
		}
		src := pts[0]

		docID, chunkIdx := content.SplitChunkSourceID(row.SourceId)
		quality := 0.0
		if row.QualityScore.Valid {
			quality = row.QualityScore.Float64
		}
		newPt := repository.VectorPoint{
			ID:           pid,
			Vector:       src.Vector,
			ChunkID:      row.Id,
			DocID:        docID,
			ChunkIdx:     chunkIdx,
			QualityScore: quality,
			SourceType:   row.SourceType,
			Timestamp:    now,
			Content:      row.Body,
		}
		if _, err := s.index.Upsert(ctx, []repository.VectorPoint{newPt}); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("migrate %s: %v", businessKey, err))
			log.Append(PhaseMigrateLegacy, "migrate_legacy", pid, businessKey, audit.StatusError, err.Error())
			continue
		}
		st.migrated[pid] = true
		res.LegacyMigrated++

		if err := s.index.DeleteByIDs(ctx, legacyIDs); err != nil {
			// The new point exists; the stale legacy id surfaces as an
			// orphan on the next run.
			res.Errors = append(res.Errors, fmt.Sprintf("delete legacy of %s: %v", businessKey, err))
			log.Append(PhaseMigrateLegacy, "migrate_legacy", pid, businessKey, audit.StatusError, "migrated but legacy delete failed: "+err.Error())
			continue
		}
		log.Append(PhaseMigrateLegacy, "migrate_legacy", pid, businessKey, audit.StatusOK, "from "+src.ID)
	}
}

func (s *reconcileServiceImpl) backfill(ctx context.Context, st *reconcileState, dryRun bool, log *audit.Log, res *respond.ReconcileRespond) {
	pending := make([]*content.Record, 0, len(st.missing))
	pendingIDs := make([]string, 0, len(st.missing))
	for _, pid := range st.missing {
		if st.migrated[pid] {
			continue
		}
		pending = append(pending, st.expected[pid])
		pendingIDs = append(pendingIDs, pid)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for start := 0; start < len(pending); start += s.cfg.EmbedBatch {
		end := start + s.cfg.EmbedBatch
		if end > len(pending) {
			end = len(pending)
		}
		rows := pending[start:end]
		ids := pendingIDs[start:end]

		if dryRun {
			for i, row := range rows {
				log.Append(PhaseBackfill, "backfill", ids[i], identity.BusinessKey(row.SourceType, row.SourceId), audit.StatusDryRun, "")
			}
			continue
		}

		texts := make([]string, len(rows))
		for i, row := range rows {
			texts[i] = row.Body
		}
		vecs, err := s.embedder.EmbedStrings(ctx, texts)
		if err == nil && len(vecs) != len(rows) {
			err = fmt.Errorf("got %d vectors for %d texts", len(vecs), len(rows))
		}
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("backfill embed batch of %d: %v", len(rows), err))
			for i, row := range rows {
				log.Append(PhaseBackfill, "backfill", ids[i], identity.BusinessKey(row.SourceType, row.SourceId), audit.StatusError, err.Error())
			}
			continue
		}

		points := make([]repository.VectorPoint, len(rows))
		for i, row := range rows {
			points[i] = pipeline.BuildPoint(row, vecs[i], now)
		}
		if _, err := s.index.Upsert(ctx, points); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("backfill upsert batch of %d: %v", len(points), err))
			for i, row := range rows {
				log.Append(PhaseBackfill, "backfill", ids[i], identity.BusinessKey(row.SourceType, row.SourceId), audit.StatusError, err.Error())
			}
			continue
		}
		res.Backfilled += len(points)
		for i, row := range rows {
			log.Append(PhaseBackfill, "backfill", ids[i], identity.BusinessKey(row.SourceType, row.SourceId), audit.StatusOK, "")
			if !row.EmbeddingGenerated {
				if markErr := s.repo.MarkEmbedded(ctx, row.SourceType, row.SourceId); markErr != nil {
					zlog.Warn("backfilled vector stored but row not marked",
						zap.String("source_type", row.SourceType),
						zap.String("source_id", row.SourceId),
						zap.Error(markErr))
				}
			}
		}
	}
}

func (s *reconcileServiceImpl) verify(ctx context.Context, minQuality float64, log *audit.Log, res *respond.ReconcileRespond) {
	rows, err := s.repo.ListEligible(ctx, minQuality)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("verify list eligible: %v", err))
		log.Append(PhaseVerify, "verify", "", "", audit.StatusError, err.Error())
		return
	}
	expected := make(map[string]struct{}, len(rows))
	for i := range rows {
		expected[identity.PointID(rows[i].SourceType, rows[i].SourceId)] = struct{}{}
	}

	presentCount := 0
	residualOrphans := 0
	seen := make(map[string]struct{}, len(expected))
	err = s.index.ScrollIDs(ctx, s.cfg.ScrollPageSize, func(ids []string) error {
		for _, id := range ids {
			presentCount++
			if _, ok := expected[id]; ok {
				seen[id] = struct{}{}
			} else {
				residualOrphans++
			}
		}
		return nil
	})
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("verify scroll: %v", err))
		log.Append(PhaseVerify, "verify", "", "", audit.StatusError, err.Error())
		return
	}

	res.ResidualOrphans = residualOrphans
	res.ResidualMissing = len(expected) - len(seen)
	res.Converged = res.ResidualOrphans == 0 && res.ResidualMissing == 0

	detail := fmt.Sprintf("points=%d eligible=%d residual_orphans=%d residual_missing=%d",
		presentCount, len(rows), res.ResidualOrphans, res.ResidualMissing)
	log.Append(PhaseVerify, "verify", "", "", audit.StatusOK, detail)
	if !res.Converged {
		zlog.Warn("residual drift after reconciliation",
			zap.String("run_id", log.RunID()),
			zap.Int("residual_orphans", res.ResidualOrphans),
			zap.Int("residual_missing", res.ResidualMissing))
	}
}
