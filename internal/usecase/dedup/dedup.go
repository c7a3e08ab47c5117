package dedup

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/mfortes/fincasa-backend/internal/domain"
	"github.com/mfortes/fincasa-backend/internal/usecase/normalizer"
)

// SkippedCandidate records a movement dropped before deduplication for
// missing a required field. Skips are intentional defensive behavior,
// not errors, but they must stay observable to the caller.
type SkippedCandidate struct {
	Movement *domain.Movement
	Reason   string
}

// Summary holds the counters of one deduplication pass.
type Summary struct {
	Total      int
	Unique     int
	Duplicates int
	Skipped    int
}

// Result is the partition produced by Deduplicate. Order within each
// slice follows input order.
type Result struct {
	Unique     []*domain.Movement
	Duplicates []*domain.Movement
	Skipped    []SkippedCandidate
	Summary    Summary
}

// Hash computes the deterministic content hash of a movement from the
// tuple (accountID, ISO date, amount at two decimals, normalized
// description, bank reference). The same tuple always produces the same
// hash across runs and process restarts.
func Hash(m *domain.Movement) string {
	key := strings.Join([]string{
		m.AccountID.String(),
		m.Date.Format("2006-01-02"),
		m.Amount.StringFixed(2),
		normalizer.Normalize(m.Description),
		m.BankReference,
	}, "|")
	return fmt.Sprintf("%016x", xxhash.Sum64String(key))
}

// Deduplicate partitions candidates into unique movements and duplicates.
// A candidate is a duplicate when its content hash is already present in
// the persisted set or was seen earlier in the same batch (first
// occurrence wins). Candidates missing a required field are skipped and
// count toward neither partition. The pass is idempotent: the same input
// against the same persisted set always yields the same partition.
//
// Each surviving candidate gets its Hash field set as a side effect.
func Deduplicate(candidates []*domain.Movement, existing map[string]struct{}) Result {
	result := Result{
		Unique:     make([]*domain.Movement, 0, len(candidates)),
		Duplicates: make([]*domain.Movement, 0),
		Skipped:    make([]SkippedCandidate, 0),
	}

	seen := make(map[string]struct{}, len(candidates))

	for _, m := range candidates {
		if reason := requiredFieldMissing(m); reason != "" {
			result.Skipped = append(result.Skipped, SkippedCandidate{Movement: m, Reason: reason})
			continue
		}

		h := Hash(m)
		m.Hash = h

		if _, dup := existing[h]; dup {
			result.Duplicates = append(result.Duplicates, m)
			continue
		}
		if _, dup := seen[h]; dup {
			result.Duplicates = append(result.Duplicates, m)
			continue
		}

		seen[h] = struct{}{}
		result.Unique = append(result.Unique, m)
	}

	result.Summary = Summary{
		Total:      len(result.Unique) + len(result.Duplicates),
		Unique:     len(result.Unique),
		Duplicates: len(result.Duplicates),
		Skipped:    len(result.Skipped),
	}

	return result
}

func requiredFieldMissing(m *domain.Movement) string {
	switch {
	case m.AccountID == uuid.Nil:
		return "missing account ID"
	case m.Date.IsZero():
		return "missing transaction date"
	case strings.TrimSpace(m.Description) == "":
		return "missing description"
	default:
		return ""
	}
}
