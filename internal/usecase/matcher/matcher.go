package matcher

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfortes/fincasa-backend/internal/domain"
	"github.com/mfortes/fincasa-backend/internal/usecase/normalizer"
)

// Points awarded per criterion. The total is capped at 100.
const (
	amountMaxPoints = 40.0
	dateMaxPoints   = 20.0
	providerPoints  = 20.0
	wordPoints      = 5.0
	wordMaxPoints   = 15.0
	categoryPoints  = 10.0
	maxScore        = 100.0
	minTokenLen     = 3
)

var hundred = decimal.NewFromInt(100)

// Candidate is the ephemeral result of scoring one (movement, budget
// line) pair. It exists only during matching and is never persisted.
type Candidate struct {
	Line *domain.BudgetLine
	// Score is the summed criteria score in [0, 100].
	Score float64
	// DateDistanceDays is the distance to the line's expected date, or -1
	// when the line has no expected day recorded.
	DateDistanceDays int
	// AmountDiffPct is the percentage difference between the movement
	// amount and the line's monthly amount.
	AmountDiffPct float64
	// Criteria lists the satisfied criteria, for the match reason.
	Criteria []string
}

// MatchResult is the per-movement outcome persisted onto the movement.
type MatchResult struct {
	Status       domain.ReconciliationStatus
	BudgetLineID *uuid.UUID
	Score        float64
	Confidence   int
	Reason       string
}

// Match scores the movement against the given budget lines and assigns a
// reconciliation status from the best candidate.
//
// Only lines for the movement's account (when account matching is
// enabled) with a non-zero amount for the movement's month are
// considered; date precision is handled by scoring, not by exclusion.
// When two or more candidates reach the good-match threshold and the top
// two are closer than the configured gap, the result is forced to
// no_planificado: too close to call, needs human review.
func Match(m *domain.Movement, lines []*domain.BudgetLine, cfg domain.MatchConfig) MatchResult {
	candidates := Candidates(m, lines, cfg)

	if len(candidates) == 0 {
		return MatchResult{
			Status:     domain.StatusNoPlanificado,
			Confidence: cfg.NoCandidateConfidence,
			Reason:     "no budget candidates for this account and month",
		}
	}

	best := candidates[0]

	if ambiguous(candidates, cfg) {
		return MatchResult{
			Status:     domain.StatusNoPlanificado,
			Confidence: cfg.AmbiguityConfidence,
			Reason: fmt.Sprintf("ambiguous: top candidates scored %.0f and %.0f, gap below %.0f",
				candidates[0].Score, candidates[1].Score, cfg.AmbiguityGap),
		}
	}

	lineID := best.Line.ID
	confidence := int(math.Round(best.Score))

	switch {
	case best.Score >= cfg.HighScore:
		return MatchResult{
			Status:       domain.StatusConciliado,
			BudgetLineID: &lineID,
			Score:        best.Score,
			Confidence:   confidence,
			Reason:       reason("high-confidence match", best),
		}
	case best.Score >= cfg.GoodScore:
		return MatchResult{
			Status:       domain.StatusConfirmado,
			BudgetLineID: &lineID,
			Score:        best.Score,
			Confidence:   confidence,
			Reason:       reason("good match", best),
		}
	case best.Score >= cfg.MinScore:
		return MatchResult{
			Status:       domain.StatusConfirmado,
			BudgetLineID: &lineID,
			Score:        best.Score,
			Confidence:   confidence,
			Reason:       reason("acceptable match", best),
		}
	default:
		return MatchResult{
			Status:     domain.StatusNoPlanificado,
			Score:      best.Score,
			Confidence: confidence,
			Reason:     fmt.Sprintf("best candidate scored %.0f, below minimum %.0f", best.Score, cfg.MinScore),
		}
	}
}

// MatchBatch applies Match to an ordered list of movements, preserving
// input order. Each movement is matched independently.
func MatchBatch(movements []*domain.Movement, lines []*domain.BudgetLine, cfg domain.MatchConfig) []MatchResult {
	results := make([]MatchResult, len(movements))
	for i, m := range movements {
		results[i] = Match(m, lines, cfg)
	}
	return results
}

// Candidates filters and scores the budget lines for one movement,
// sorted by score descending. Ties break on line ID so the order is
// deterministic regardless of input order.
func Candidates(m *domain.Movement, lines []*domain.BudgetLine, cfg domain.MatchConfig) []Candidate {
	candidates := make([]Candidate, 0, len(lines))
	for _, line := range lines {
		if !cfg.IgnoreAccount && line.AccountID != m.AccountID {
			continue
		}
		if !line.AppliesTo(m.Date) {
			continue
		}
		candidates = append(candidates, score(m, line, cfg))
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Line.ID.String() < candidates[j].Line.ID.String()
	})

	return candidates
}

func ambiguous(candidates []Candidate, cfg domain.MatchConfig) bool {
	if len(candidates) < 2 {
		return false
	}
	if candidates[0].Score < cfg.GoodScore || candidates[1].Score < cfg.GoodScore {
		return false
	}
	return candidates[0].Score-candidates[1].Score < cfg.AmbiguityGap
}

func score(m *domain.Movement, line *domain.BudgetLine, cfg domain.MatchConfig) Candidate {
	c := Candidate{Line: line, DateDistanceDays: -1}

	// Amount closeness: full credit at 0% difference, decaying linearly
	// to zero at the tolerance boundary.
	budgetAmount := line.AmountForMonth(m.Date.Month()).Abs()
	diffPct := m.Amount.Abs().Sub(budgetAmount).Abs().
		Div(budgetAmount).
		Mul(hundred).
		InexactFloat64()
	c.AmountDiffPct = diffPct

	tolerance := cfg.AmountTolerancePct
	if tolerance > 0 && diffPct <= tolerance {
		c.Score += amountMaxPoints * (1 - diffPct/tolerance)
		c.Criteria = append(c.Criteria, "amount")
	}

	// Date closeness: linear decay across the window. A movement exactly
	// on the window edge still earns partial credit.
	if expected := line.ExpectedDate(m.Date.Month()); !expected.IsZero() {
		dist := daysBetween(m.Date, expected)
		c.DateDistanceDays = dist
		if dist <= cfg.DateWindowDays {
			c.Score += dateMaxPoints * (1 - float64(dist)/float64(cfg.DateWindowDays+1))
			c.Criteria = append(c.Criteria, "date")
		}
	}

	// Provider/counterparty containment, case-insensitive, either
	// direction.
	if containsEither(m.Counterparty, line.Provider) {
		c.Score += providerPoints
		c.Criteria = append(c.Criteria, "provider")
	}

	// Description word overlap.
	if pts := wordOverlapPoints(m.Description, line.Description); pts > 0 {
		c.Score += pts
		c.Criteria = append(c.Criteria, "description")
	}

	// Category match.
	if equalFold(m.CategoryType, line.Category) || equalFold(m.CategorySubtype, line.Subcategory) {
		c.Score += categoryPoints
		c.Criteria = append(c.Criteria, "category")
	}

	if c.Score > maxScore {
		c.Score = maxScore
	}

	return c
}

func wordOverlapPoints(a, b string) float64 {
	tokensA := normalizer.Tokens(a, minTokenLen)
	tokensB := normalizer.Tokens(b, minTokenLen)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	matches := 0
	for _, ta := range tokensA {
		for _, tb := range tokensB {
			if strings.Contains(ta, tb) || strings.Contains(tb, ta) {
				matches++
				break
			}
		}
	}

	pts := wordPoints * float64(matches)
	if pts > wordMaxPoints {
		pts = wordMaxPoints
	}
	return pts
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	ua, ub := strings.ToUpper(a), strings.ToUpper(b)
	return strings.Contains(ua, ub) || strings.Contains(ub, ua)
}

func equalFold(a, b string) bool {
	return a != "" && b != "" && strings.EqualFold(a, b)
}

func reason(label string, c Candidate) string {
	return fmt.Sprintf("%s (score %.0f, criteria: %s)", label, c.Score, strings.Join(c.Criteria, ", "))
}

func daysBetween(a, b time.Time) int {
	days := int(a.Sub(b).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}
