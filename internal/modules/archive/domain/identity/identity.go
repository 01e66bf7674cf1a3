package identity

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Namespace seeds every deterministic point ID. Changing it orphans all
// stored vectors, so it is fixed for the lifetime of a collection.
var Namespace = uuid.MustParse("c3a7f9e4-5d1b-4f7a-9c2e-8b6d0a4e2f15")

// Legacy candidate modes recognised by the reconciliation migration phase.
const (
	LegacyModeRowID      = "row_id"
	LegacyModeRawSource  = "raw_source_id"
	LegacyModeMaskedHash = "masked_hash"
)

// DefaultLegacyModes returns the candidate modes probed when none are configured.
func DefaultLegacyModes() []string {
	return []string{LegacyModeRowID, LegacyModeRawSource, LegacyModeMaskedHash}
}

// BusinessKey joins source type and source id into the stable content key.
func BusinessKey(sourceType, sourceID string) string {
	return fmt.Sprintf("%s:%s", strings.TrimSpace(sourceType), strings.TrimSpace(sourceID))
}

// PointID derives the vector-index id for a business key: UUIDv5 over the
// fixed namespace. Independent of surrogate keys, so it survives schema
// migrations.
func PointID(sourceType, sourceID string) string {
	return uuid.NewSHA1(Namespace, []byte(BusinessKey(sourceType, sourceID))).String()
}

// Numeric ids must stay inside the float64-safe integer range.
const maskedHashBits = 53

// MaskedHashID hashes a business key into a non-negative integer below 2^53.
// Only kept for recognising pre-UUID vectors during migration.
func MaskedHashID(businessKey string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(businessKey))
	return int64(h.Sum64() & ((1 << maskedHashBits) - 1))
}

// LegacyCandidates lists the historical id forms a row's vector may still be
// stored under. The list is configuration, not a guarantee; keys matching no
// candidate are treated as missing and backfilled.
func LegacyCandidates(modes []string, rowID int64, sourceType, sourceID string) []string {
	if len(modes) == 0 {
		modes = DefaultLegacyModes()
	}
	out := make([]string, 0, len(modes))
	for _, m := range modes {
		switch strings.TrimSpace(m) {
		case LegacyModeRowID:
			if rowID > 0 {
				out = append(out, strconv.FormatInt(rowID, 10))
			}
		case LegacyModeRawSource:
			if s := strings.TrimSpace(sourceID); s != "" {
				out = append(out, s)
			}
		case LegacyModeMaskedHash:
			out = append(out, strconv.FormatInt(MaskedHashID(BusinessKey(sourceType, sourceID)), 10))
		}
	}
	return out
}
