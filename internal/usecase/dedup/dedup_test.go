package dedup

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/mfortes/fincasa-backend/internal/domain"
)

var testAccountID = uuid.MustParse("3f1f9a46-6f25-4a7e-9d0e-08a1c1e9b0aa")

func movement(desc string, amount float64) *domain.Movement {
	return &domain.Movement{
		AccountID:     testAccountID,
		Date:          time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Amount:        decimal.NewFromFloat(amount),
		Description:   desc,
		BankReference: "REF001",
	}
}

func TestHash_Deterministic(t *testing.T) {
	m := movement("PAGO IBERDROLA ENERGIA", -123.45)
	assert.Equal(t, Hash(m), Hash(m))
}

func TestHash_NormalizesCaseAndWhitespace(t *testing.T) {
	a := movement("PAGO   IBERDROLA    ENERGIA", -123.45)
	b := movement("pago iberdrola energia", -123.45)
	assert.Equal(t, Hash(a), Hash(b))
}

func TestHash_PreservesAccentDifferences(t *testing.T) {
	a := movement("CAFÉ MADRID", -10)
	b := movement("CAFE MADRID", -10)
	assert.NotEqual(t, Hash(a), Hash(b))
}

func TestHash_OneCentDifference(t *testing.T) {
	a := movement("PAGO IBERDROLA ENERGIA", -123.45)
	b := movement("PAGO IBERDROLA ENERGIA", -123.46)
	assert.NotEqual(t, Hash(a), Hash(b))
}

func TestDeduplicate_IdenticalPair(t *testing.T) {
	candidates := []*domain.Movement{
		movement("PAGO IBERDROLA ENERGIA", -123.45),
		movement("PAGO IBERDROLA ENERGIA", -123.45),
	}

	result := Deduplicate(candidates, nil)

	assert.Len(t, result.Unique, 1)
	assert.Len(t, result.Duplicates, 1)
	assert.Equal(t, 2, result.Summary.Total)
	// first occurrence wins
	assert.Same(t, candidates[0], result.Unique[0])
}

func TestDeduplicate_EmptyInput(t *testing.T) {
	result := Deduplicate(nil, nil)

	assert.Equal(t, Summary{}, result.Summary)
	assert.Empty(t, result.Unique)
	assert.Empty(t, result.Duplicates)
}

func TestDeduplicate_MissingAccountSkipped(t *testing.T) {
	invalid := movement("PAGO IBERDROLA ENERGIA", -123.45)
	invalid.AccountID = uuid.Nil

	result := Deduplicate([]*domain.Movement{invalid}, nil)

	assert.Empty(t, result.Unique)
	assert.Empty(t, result.Duplicates)
	assert.Equal(t, 0, result.Summary.Total)
	assert.Len(t, result.Skipped, 1)
	assert.Equal(t, "missing account ID", result.Skipped[0].Reason)
}

func TestDeduplicate_MissingDateAndDescriptionSkipped(t *testing.T) {
	noDate := movement("PAGO", -1)
	noDate.Date = time.Time{}
	noDesc := movement("   ", -1)

	result := Deduplicate([]*domain.Movement{noDate, noDesc}, nil)

	assert.Empty(t, result.Unique)
	assert.Len(t, result.Skipped, 2)
}

func TestDeduplicate_CaseWhitespaceVariantsAreDuplicates(t *testing.T) {
	candidates := []*domain.Movement{
		movement("PAGO   IBERDROLA    ENERGIA", -123.45),
		movement("pago iberdrola energia", -123.45),
	}

	result := Deduplicate(candidates, nil)

	assert.Len(t, result.Unique, 1)
	assert.Len(t, result.Duplicates, 1)
}

func TestDeduplicate_OneCentApartAreBothUnique(t *testing.T) {
	candidates := []*domain.Movement{
		movement("PAGO IBERDROLA ENERGIA", -123.45),
		movement("PAGO IBERDROLA ENERGIA", -123.46),
	}

	result := Deduplicate(candidates, nil)

	assert.Len(t, result.Unique, 2)
	assert.Empty(t, result.Duplicates)
}

func TestDeduplicate_PersistedHashWins(t *testing.T) {
	m := movement("PAGO IBERDROLA ENERGIA", -123.45)
	existing := map[string]struct{}{Hash(m): {}}

	result := Deduplicate([]*domain.Movement{m}, existing)

	assert.Empty(t, result.Unique)
	assert.Len(t, result.Duplicates, 1)
}

func TestDeduplicate_Idempotent(t *testing.T) {
	existing := map[string]struct{}{
		Hash(movement("RECIBO COMUNIDAD", -80)): {},
	}
	build := func() []*domain.Movement {
		return []*domain.Movement{
			movement("PAGO IBERDROLA ENERGIA", -123.45),
			movement("PAGO IBERDROLA ENERGIA", -123.45),
			movement("RECIBO COMUNIDAD", -80),
			movement("NOMINA ENERO", 2100),
		}
	}

	first := Deduplicate(build(), existing)
	second := Deduplicate(build(), existing)

	assert.Equal(t, first.Summary, second.Summary)
	assert.Len(t, first.Unique, 2)
	assert.Len(t, first.Duplicates, 2)
	for i := range first.Unique {
		assert.Equal(t, first.Unique[i].Hash, second.Unique[i].Hash)
	}
}

func TestDeduplicate_SetsHashOnSurvivors(t *testing.T) {
	m := movement("PAGO IBERDROLA ENERGIA", -123.45)

	result := Deduplicate([]*domain.Movement{m}, nil)

	assert.NotEmpty(t, result.Unique[0].Hash)
	assert.Equal(t, Hash(m), result.Unique[0].Hash)
}
