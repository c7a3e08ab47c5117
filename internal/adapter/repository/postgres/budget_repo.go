package postgres

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mfortes/fincasa-backend/internal/domain"
)

// budgetLineRepository implements domain.BudgetLineRepository
type budgetLineRepository struct {
	db *DB
}

// NewBudgetLineRepository creates a new budget line repository
func NewBudgetLineRepository(db *DB) domain.BudgetLineRepository {
	return &budgetLineRepository{db: db}
}

// ListActiveForYear retrieves the budget lines of active budgets for a
// given calendar year
func (r *budgetLineRepository) ListActiveForYear(ctx context.Context, year int) ([]*domain.BudgetLine, error) {
	query := `
		SELECT bl.id, bl.budget_id, bl.account_id, bl.category, bl.subcategory,
		       bl.provider, bl.description, b.year, bl.expected_day,
		       bl.amount_m01, bl.amount_m02, bl.amount_m03, bl.amount_m04,
		       bl.amount_m05, bl.amount_m06, bl.amount_m07, bl.amount_m08,
		       bl.amount_m09, bl.amount_m10, bl.amount_m11, bl.amount_m12
		FROM budget_lines bl
		JOIN budgets b ON b.id = bl.budget_id
		WHERE b.year = $1 AND b.is_active = true
		ORDER BY bl.category, bl.subcategory
	`

	rows, err := r.db.QueryContext(ctx, query, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list budget lines: %w", err)
	}
	defer rows.Close()

	lines := make([]*domain.BudgetLine, 0)
	for rows.Next() {
		var line domain.BudgetLine
		var amounts [12]string

		err := rows.Scan(
			&line.ID,
			&line.BudgetID,
			&line.AccountID,
			&line.Category,
			&line.Subcategory,
			&line.Provider,
			&line.Description,
			&line.Year,
			&line.ExpectedDay,
			&amounts[0], &amounts[1], &amounts[2], &amounts[3],
			&amounts[4], &amounts[5], &amounts[6], &amounts[7],
			&amounts[8], &amounts[9], &amounts[10], &amounts[11],
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget line: %w", err)
		}

		for i, s := range amounts {
			amount, err := decimal.NewFromString(s)
			if err != nil {
				return nil, fmt.Errorf("failed to parse budget line amount: %w", err)
			}
			line.MonthlyAmounts[i] = amount
		}

		lines = append(lines, &line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate budget lines: %w", err)
	}

	return lines, nil
}
