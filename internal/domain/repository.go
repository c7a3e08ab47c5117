package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by repositories when the requested record does
// not exist.
var ErrNotFound = errors.New("record not found")

// AccountRepository defines the interface for account lookup. The pipeline
// only needs exact/partial IBAN matching over the registered accounts.
type AccountRepository interface {
	// List retrieves all registered accounts
	List(ctx context.Context) ([]*Account, error)

	// GetByID retrieves an account by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
}

// MovementRepository defines the interface for movement persistence.
// Adds are append-only; Update exists solely for the idempotent
// transfer-pair completion step.
type MovementRepository interface {
	// Add persists a new movement
	Add(ctx context.Context, m *Movement) error

	// Update rewrites an existing movement (transfer-pair completion only)
	Update(ctx context.Context, m *Movement) error

	// ListHashesByAccount returns the content hashes of all persisted
	// movements for the account, used by the deduplicator
	ListHashesByAccount(ctx context.Context, accountID uuid.UUID) (map[string]struct{}, error)

	// ListUnpairedLegs returns persisted movements dated within [from, to]
	// that have no transfer pair yet, keyword-flagged or not. They are the
	// candidate counterparts for cross-batch transfer completion
	ListUnpairedLegs(ctx context.Context, from, to time.Time) ([]*Movement, error)
}

// BudgetLineRepository defines the interface for budget forecast lookup.
type BudgetLineRepository interface {
	// ListActiveForYear returns the budget lines of all active budgets
	// for the given calendar year
	ListActiveForYear(ctx context.Context, year int) ([]*BudgetLine, error)
}

// ImportLogRepository defines the interface for the append-only run audit
// trail.
type ImportLogRepository interface {
	// Add persists a new import log entry
	Add(ctx context.Context, log *ImportLog) error
}
