package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mfortes/fincasa-backend/internal/domain"
)

// importLogRepository implements domain.ImportLogRepository
type importLogRepository struct {
	db *DB
}

// NewImportLogRepository creates a new import log repository
func NewImportLogRepository(db *DB) domain.ImportLogRepository {
	return &importLogRepository{db: db}
}

// Add persists the audit record of one pipeline run
func (r *importLogRepository) Add(ctx context.Context, log *domain.ImportLog) error {
	lineErrors, err := json.Marshal(log.LineErrors)
	if err != nil {
		return fmt.Errorf("failed to marshal line errors: %w", err)
	}
	warnings, err := json.Marshal(log.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	query := `
		INSERT INTO import_logs (
			id, file_name, file_size, account_id, status,
			total_lines, created_count, duplicate_count, skipped_count,
			conciliated_count, unplanned_count, transfer_count, error_count,
			line_errors, warnings, error, started_at, finished_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	// aborted runs may not have resolved an account yet
	var accountID interface{}
	if log.AccountID != uuid.Nil {
		accountID = log.AccountID
	}

	_, err = r.db.ExecContext(ctx, query,
		log.ID,
		log.FileName,
		log.FileSize,
		accountID,
		string(log.Status),
		log.Summary.Total,
		log.Summary.Created,
		log.Summary.Duplicates,
		log.Summary.Skipped,
		log.Summary.Conciliated,
		log.Summary.Unplanned,
		log.Summary.Transfers,
		log.Summary.Errors,
		lineErrors,
		warnings,
		log.Error,
		log.StartedAt,
		log.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert import log: %w", err)
	}

	return nil
}
