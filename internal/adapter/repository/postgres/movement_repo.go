package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mfortes/fincasa-backend/internal/domain"
)

// movementRepository implements domain.MovementRepository
type movementRepository struct {
	db *DB
}

// NewMovementRepository creates a new movement repository
func NewMovementRepository(db *DB) domain.MovementRepository {
	return &movementRepository{db: db}
}

const movementColumns = `
	id, account_id, date, amount, description, normalized_description,
	bank_reference, counterparty, detected_iban, category_type,
	category_subtype, hash, status, matched_budget_line_id,
	match_confidence, match_reason, transfer_group_key, transfer_pair_id,
	import_batch_id, created_at
`

// Add persists a new movement
func (r *movementRepository) Add(ctx context.Context, m *domain.Movement) error {
	query := `
		INSERT INTO movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		m.AccountID,
		m.Date,
		m.Amount.String(),
		m.Description,
		m.NormalizedDescription,
		m.BankReference,
		m.Counterparty,
		m.DetectedIBAN,
		m.CategoryType,
		m.CategorySubtype,
		m.Hash,
		string(m.Status),
		nullableUUID(m.MatchedBudgetLineID),
		m.MatchConfidence,
		m.MatchReason,
		m.TransferGroupKey,
		nullableUUID(m.TransferPairID),
		m.ImportBatchID,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert movement: %w", err)
	}

	return nil
}

// Update rewrites the reconciliation fields of an existing movement.
// Only the transfer-pair completion step uses this.
func (r *movementRepository) Update(ctx context.Context, m *domain.Movement) error {
	query := `
		UPDATE movements
		SET status = $2,
		    matched_budget_line_id = $3,
		    match_confidence = $4,
		    match_reason = $5,
		    transfer_group_key = $6,
		    transfer_pair_id = $7
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID,
		string(m.Status),
		nullableUUID(m.MatchedBudgetLineID),
		m.MatchConfidence,
		m.MatchReason,
		m.TransferGroupKey,
		nullableUUID(m.TransferPairID),
	)
	if err != nil {
		return fmt.Errorf("failed to update movement: %w", err)
	}

	return nil
}

// ListHashesByAccount returns the content hashes of all persisted
// movements for the account
func (r *movementRepository) ListHashesByAccount(ctx context.Context, accountID uuid.UUID) (map[string]struct{}, error) {
	query := `
		SELECT hash
		FROM movements
		WHERE account_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list movement hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]struct{})
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("failed to scan movement hash: %w", err)
		}
		hashes[hash] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate movement hashes: %w", err)
	}

	return hashes, nil
}

// ListUnpairedLegs returns persisted movements in the date range that
// have no transfer pair yet
func (r *movementRepository) ListUnpairedLegs(ctx context.Context, from, to time.Time) ([]*domain.Movement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM movements
		WHERE transfer_pair_id IS NULL
		  AND date >= $1
		  AND date <= $2
	`

	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list unpaired transfer legs: %w", err)
	}
	defer rows.Close()

	movements := make([]*domain.Movement, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unpaired transfer legs: %w", err)
	}

	return movements, nil
}

func scanMovement(rows *sql.Rows) (*domain.Movement, error) {
	var m domain.Movement
	var amountStr string
	var matchedLineID, pairID sql.NullString

	err := rows.Scan(
		&m.ID,
		&m.AccountID,
		&m.Date,
		&amountStr,
		&m.Description,
		&m.NormalizedDescription,
		&m.BankReference,
		&m.Counterparty,
		&m.DetectedIBAN,
		&m.CategoryType,
		&m.CategorySubtype,
		&m.Hash,
		&m.Status,
		&matchedLineID,
		&m.MatchConfidence,
		&m.MatchReason,
		&m.TransferGroupKey,
		&pairID,
		&m.ImportBatchID,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan movement: %w", err)
	}

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse movement amount: %w", err)
	}
	m.Amount = amount

	if matchedLineID.Valid {
		id, err := uuid.Parse(matchedLineID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse matched_budget_line_id: %w", err)
		}
		m.MatchedBudgetLineID = &id
	}
	if pairID.Valid {
		id, err := uuid.Parse(pairID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse transfer_pair_id: %w", err)
		}
		m.TransferPairID = &id
	}

	return &m, nil
}

func nullableUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
