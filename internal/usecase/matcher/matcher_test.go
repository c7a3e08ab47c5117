package matcher

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfortes/fincasa-backend/internal/domain"
)

var (
	accountA = uuid.MustParse("0e4cc5de-78e8-4f1e-9cb5-56f8c1a8a111")
	accountB = uuid.MustParse("9b52a9b9-10cb-4fd3-8e2a-77ac3a6f2222")
)

func januaryMovement(day int, amount float64) *domain.Movement {
	return &domain.Movement{
		ID:          uuid.New(),
		AccountID:   accountA,
		Date:        time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.NewFromFloat(amount),
		Description: "PAGO IBERDROLA ENERGIA",
	}
}

func januaryLine(amount float64, expectedDay int) *domain.BudgetLine {
	line := &domain.BudgetLine{
		ID:          uuid.New(),
		AccountID:   accountA,
		Year:        2024,
		ExpectedDay: expectedDay,
	}
	line.MonthlyAmounts[0] = decimal.NewFromFloat(amount)
	return line
}

func TestMatch_NoCandidates(t *testing.T) {
	m := januaryMovement(15, -120)

	result := Match(m, nil, domain.DefaultMatchConfig())

	assert.Equal(t, domain.StatusNoPlanificado, result.Status)
	assert.Equal(t, 100, result.Confidence)
	assert.Nil(t, result.BudgetLineID)
}

func TestMatch_ZeroMonthSlotExcluded(t *testing.T) {
	m := januaryMovement(15, -120)
	line := januaryLine(120, 15)
	line.MonthlyAmounts[0] = decimal.Zero // nothing planned for January

	result := Match(m, []*domain.BudgetLine{line}, domain.DefaultMatchConfig())

	assert.Equal(t, domain.StatusNoPlanificado, result.Status)
	assert.Equal(t, 100, result.Confidence)
}

func TestMatch_OtherAccountExcluded(t *testing.T) {
	m := januaryMovement(15, -120)
	line := januaryLine(120, 15)
	line.AccountID = accountB

	result := Match(m, []*domain.BudgetLine{line}, domain.DefaultMatchConfig())

	assert.Equal(t, domain.StatusNoPlanificado, result.Status)
}

func TestMatch_OtherYearExcluded(t *testing.T) {
	m := januaryMovement(15, -120)
	line := januaryLine(120, 15)
	line.Year = 2023

	result := Match(m, []*domain.BudgetLine{line}, domain.DefaultMatchConfig())

	assert.Equal(t, domain.StatusNoPlanificado, result.Status)
}

func TestMatch_HighConfidence(t *testing.T) {
	m := januaryMovement(15, -120)
	m.Counterparty = "IBERDROLA SA"
	line := januaryLine(120, 15)
	line.Provider = "Iberdrola"

	result := Match(m, []*domain.BudgetLine{line}, domain.DefaultMatchConfig())

	// amount 40 + date 20 + provider 20
	require.NotNil(t, result.BudgetLineID)
	assert.Equal(t, domain.StatusConciliado, result.Status)
	assert.Equal(t, line.ID, *result.BudgetLineID)
	assert.GreaterOrEqual(t, result.Score, 80.0)
}

func TestMatch_GoodMatchBand(t *testing.T) {
	m := januaryMovement(15, -120)
	line := januaryLine(120, 15)

	result := Match(m, []*domain.BudgetLine{line}, domain.DefaultMatchConfig())

	// amount 40 + date 20 = 60
	assert.Equal(t, domain.StatusConfirmado, result.Status)
	assert.Contains(t, result.Reason, "good match")
}

func TestMatch_AcceptableBand(t *testing.T) {
	m := januaryMovement(15, -120)
	line := januaryLine(120, 0) // no expected day: amount criterion only

	result := Match(m, []*domain.BudgetLine{line}, domain.DefaultMatchConfig())

	// amount 40
	assert.Equal(t, domain.StatusConfirmado, result.Status)
	assert.Contains(t, result.Reason, "acceptable match")
}

func TestMatch_BelowMinimum(t *testing.T) {
	m := januaryMovement(15, -120)
	line := januaryLine(200, 0) // 40% off, outside amount tolerance

	result := Match(m, []*domain.BudgetLine{line}, domain.DefaultMatchConfig())

	assert.Equal(t, domain.StatusNoPlanificado, result.Status)
	assert.Nil(t, result.BudgetLineID)
}

func TestMatch_AmountDecaysLinearly(t *testing.T) {
	cfg := domain.DefaultMatchConfig()
	m := januaryMovement(15, -120)

	exact := Candidates(m, []*domain.BudgetLine{januaryLine(120, 0)}, cfg)[0]
	off := Candidates(m, []*domain.BudgetLine{januaryLine(110, 0)}, cfg)[0]
	outside := Candidates(m, []*domain.BudgetLine{januaryLine(200, 0)}, cfg)[0]

	assert.InDelta(t, 40.0, exact.Score, 0.001)
	assert.Greater(t, exact.Score, off.Score)
	assert.Greater(t, off.Score, 0.0)
	assert.Equal(t, 0.0, outside.Score)
}

func TestMatch_DateEdgeGetsPartialCredit(t *testing.T) {
	cfg := domain.DefaultMatchConfig()
	m := januaryMovement(20, -120) // 5 days from expected day 15, exactly on the window edge

	c := Candidates(m, []*domain.BudgetLine{januaryLine(120, 15)}, cfg)[0]

	assert.Equal(t, 5, c.DateDistanceDays)
	assert.Greater(t, c.Score, 40.0) // more than the amount criterion alone
}

func TestMatch_DateMonotonicity(t *testing.T) {
	cfg := domain.DefaultMatchConfig()
	line := januaryLine(120, 15)

	prev := -1.0
	for day := 15; day <= 22; day++ {
		m := januaryMovement(day, -120)
		c := Candidates(m, []*domain.BudgetLine{line}, cfg)[0]
		if prev >= 0 {
			assert.LessOrEqual(t, c.Score, prev, "score must not increase with date distance (day %d)", day)
		}
		prev = c.Score
	}
}

func TestMatch_WordOverlapCapped(t *testing.T) {
	cfg := domain.DefaultMatchConfig()
	m := januaryMovement(15, -120)
	m.Description = "PAGO RECIBO IBERDROLA ENERGIA ELECTRICIDAD CONSUMO"
	line := januaryLine(120, 0)
	line.Description = "Recibo Iberdrola energia electricidad consumo mensual"

	c := Candidates(m, []*domain.BudgetLine{line}, cfg)[0]

	// amount 40 + word overlap capped at 15
	assert.InDelta(t, 55.0, c.Score, 0.001)
}

func TestMatch_CategoryPoints(t *testing.T) {
	cfg := domain.DefaultMatchConfig()
	m := januaryMovement(15, -120)
	m.CategoryType = "Suministros"
	line := januaryLine(120, 0)
	line.Category = "suministros"

	c := Candidates(m, []*domain.BudgetLine{line}, cfg)[0]

	assert.InDelta(t, 50.0, c.Score, 0.001)
	assert.Contains(t, c.Criteria, "category")
}

func TestMatch_AmbiguitySuppression(t *testing.T) {
	m := januaryMovement(15, -120)
	// Two lines planning the same amount on the same day both reach the
	// good threshold with a zero gap.
	lineA := januaryLine(120, 15)
	lineB := januaryLine(120, 15)

	result := Match(m, []*domain.BudgetLine{lineA, lineB}, domain.DefaultMatchConfig())

	assert.Equal(t, domain.StatusNoPlanificado, result.Status)
	assert.Equal(t, 50, result.Confidence)
	assert.Contains(t, result.Reason, "ambiguous")
	assert.Nil(t, result.BudgetLineID)
}

func TestMatch_AmbiguityOrderIndependent(t *testing.T) {
	m := januaryMovement(15, -120)
	lineA := januaryLine(120, 15)
	lineB := januaryLine(120, 15)

	forward := Match(m, []*domain.BudgetLine{lineA, lineB}, domain.DefaultMatchConfig())
	reversed := Match(m, []*domain.BudgetLine{lineB, lineA}, domain.DefaultMatchConfig())

	assert.Equal(t, forward.Status, reversed.Status)
	assert.Equal(t, forward.Confidence, reversed.Confidence)
}

func TestMatch_ClearWinnerNotSuppressed(t *testing.T) {
	m := januaryMovement(15, -120)
	m.Counterparty = "IBERDROLA"
	winner := januaryLine(120, 15)
	winner.Provider = "Iberdrola"
	loser := januaryLine(135, 0) // amount partial credit only, stays below the good threshold

	result := Match(m, []*domain.BudgetLine{winner, loser}, domain.DefaultMatchConfig())

	require.NotNil(t, result.BudgetLineID)
	assert.Equal(t, domain.StatusConciliado, result.Status)
	assert.Equal(t, winner.ID, *result.BudgetLineID)
}

func TestMatchBatch_PreservesOrder(t *testing.T) {
	line := januaryLine(120, 15)
	first := januaryMovement(15, -120)
	second := januaryMovement(15, -999)

	results := MatchBatch([]*domain.Movement{first, second}, []*domain.BudgetLine{line}, domain.DefaultMatchConfig())

	require.Len(t, results, 2)
	assert.Equal(t, domain.StatusConfirmado, results[0].Status)
	assert.Equal(t, domain.StatusNoPlanificado, results[1].Status)
}
