package transfer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfortes/fincasa-backend/internal/domain"
	"github.com/mfortes/fincasa-backend/internal/usecase/normalizer"
)

// Pair is a completed transfer group: two opposite-signed movements on
// different accounts sharing a group key.
type Pair struct {
	Key      string
	DebitID  uuid.UUID
	CreditID uuid.UUID
}

// GroupKey derives the key that associates transfer legs, possibly
// across import batches. Legs paired together always carry the same key
// regardless of the order they were seen in.
func GroupKey(date time.Time, amount decimal.Decimal) string {
	return date.Format("2006-01-02") + "|" + amount.Abs().StringFixed(2)
}

// HasKeyword reports whether the movement description contains one of
// the configured transfer keywords. Keyword presence is a strong
// independent signal: a flagged leg is confirmed even before its pair
// is found.
func HasKeyword(description string, cfg domain.TransferConfig) bool {
	norm := normalizer.Normalize(description)
	for _, kw := range cfg.Keywords {
		if strings.Contains(norm, normalizer.Normalize(kw)) {
			return true
		}
	}
	return false
}

// Detect classifies internal transfers within one batch. Movements are
// annotated in place: keyword-flagged legs become confirmado immediately
// (pending their pair), and paired legs additionally get the shared
// group key and cross references. A transfer claim takes precedence over
// a previously assigned budget match.
//
// The result is deterministic regardless of input order.
func Detect(movements []*domain.Movement, cfg domain.TransferConfig) []Pair {
	// Keyword pass: flag legs that announce themselves as transfers.
	for _, m := range movements {
		if m.Amount.IsZero() {
			continue
		}
		if HasKeyword(m.Description, cfg) {
			m.Status = domain.StatusConfirmado
			m.TransferGroupKey = GroupKey(m.Date, m.Amount)
			m.MatchedBudgetLineID = nil
			m.MatchReason = "transfer keyword in description"
		}
	}

	legs := make([]*domain.Movement, 0, len(movements))
	for _, m := range movements {
		if !m.Amount.IsZero() {
			legs = append(legs, m)
		}
	}
	sort.Slice(legs, func(i, j int) bool {
		if !legs[i].Date.Equal(legs[j].Date) {
			return legs[i].Date.Before(legs[j].Date)
		}
		return legs[i].ID.String() < legs[j].ID.String()
	})

	pairs := make([]Pair, 0)
	for _, debit := range legs {
		if !debit.IsDebit() || debit.TransferPairID != nil {
			continue
		}
		credit := findCounterpart(debit, legs, cfg)
		if credit == nil {
			continue
		}
		pairs = append(pairs, link(debit, credit))
	}

	return pairs
}

// MatchPending completes transfer legs of the current batch against
// unpaired movements persisted by earlier batches, whether or not either
// side carried a transfer keyword. Both legs must already be persisted;
// completion updates them through the repository and is idempotent
// (already-paired legs are never touched again).
func MatchPending(ctx context.Context, repo domain.MovementRepository, movements []*domain.Movement, cfg domain.TransferConfig) ([]Pair, error) {
	pairs := make([]Pair, 0)

	for _, m := range movements {
		if m.TransferPairID != nil || m.Amount.IsZero() {
			continue
		}

		counterpart, err := findPendingCounterpart(ctx, repo, m, cfg)
		if err != nil {
			return pairs, err
		}
		if counterpart == nil {
			continue
		}

		var pair Pair
		if m.IsDebit() {
			pair = link(m, counterpart)
		} else {
			pair = link(counterpart, m)
		}

		if err := repo.Update(ctx, m); err != nil {
			return pairs, fmt.Errorf("failed to complete transfer leg %s: %w", m.ID, err)
		}
		if err := repo.Update(ctx, counterpart); err != nil {
			return pairs, fmt.Errorf("failed to complete transfer leg %s: %w", counterpart.ID, err)
		}

		pairs = append(pairs, pair)
	}

	return pairs, nil
}

func findCounterpart(debit *domain.Movement, legs []*domain.Movement, cfg domain.TransferConfig) *domain.Movement {
	for _, credit := range legs {
		if candidateLeg(debit, credit, cfg) {
			return credit
		}
	}
	return nil
}

func findPendingCounterpart(ctx context.Context, repo domain.MovementRepository, m *domain.Movement, cfg domain.TransferConfig) (*domain.Movement, error) {
	from := m.Date.AddDate(0, 0, -cfg.DateWindowDays)
	to := m.Date.AddDate(0, 0, cfg.DateWindowDays)

	unpaired, err := repo.ListUnpairedLegs(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to look up unpaired transfer legs: %w", err)
	}
	for _, leg := range unpaired {
		if leg.ID == m.ID || leg.TransferPairID != nil {
			continue
		}
		if candidateLeg(m, leg, cfg) {
			return leg, nil
		}
	}
	return nil, nil
}

// candidateLeg reports whether a and b can form a transfer pair:
// different accounts, opposite signs, equal magnitude within tolerance,
// and dates within the window unless either side carries a keyword.
func candidateLeg(a, b *domain.Movement, cfg domain.TransferConfig) bool {
	if a.AccountID == b.AccountID {
		return false
	}
	if b.TransferPairID != nil {
		return false
	}
	if a.Amount.Sign() == b.Amount.Sign() || b.Amount.IsZero() {
		return false
	}
	diff := a.Amount.Abs().Sub(b.Amount.Abs()).Abs()
	if diff.GreaterThan(decimal.NewFromFloat(cfg.AmountTolerance)) {
		return false
	}
	if daysApart(a.Date, b.Date) <= cfg.DateWindowDays {
		return true
	}
	return HasKeyword(a.Description, cfg) || HasKeyword(b.Description, cfg)
}

// link marks both legs as one transfer group. The key is derived from
// the earlier leg so the same pair always gets the same key.
func link(debit, credit *domain.Movement) Pair {
	keyDate := debit.Date
	if credit.Date.Before(debit.Date) {
		keyDate = credit.Date
	}
	key := GroupKey(keyDate, debit.Amount)

	for _, leg := range []*domain.Movement{debit, credit} {
		leg.Status = domain.StatusConfirmado
		leg.TransferGroupKey = key
		leg.MatchedBudgetLineID = nil
		leg.MatchReason = "internal transfer between own accounts"
	}
	debit.TransferPairID = &credit.ID
	credit.TransferPairID = &debit.ID

	return Pair{Key: key, DebitID: debit.ID, CreditID: credit.ID}
}

func daysApart(a, b time.Time) int {
	days := int(a.Sub(b).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}
