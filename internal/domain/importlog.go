package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ImportStatus represents the terminal state of one pipeline run
type ImportStatus string

const (
	ImportStatusCompleted ImportStatus = "completed"
	ImportStatusFailed    ImportStatus = "failed"
	// ImportStatusAborted is used when the run halted waiting for an
	// explicit account selection before any writes happened
	ImportStatusAborted ImportStatus = "aborted"
)

// ImportSummary holds the per-run counters reported to the user.
// Invariant: Created + Duplicates equals the number of syntactically
// valid input lines; lines dropped for missing required fields appear
// only in Skipped and in the log warnings.
type ImportSummary struct {
	Total       int
	Created     int
	Duplicates  int
	Skipped     int
	Conciliated int
	Unplanned   int
	Transfers   int
	Errors      int
}

// String renders the user-facing one-line summary.
func (s ImportSummary) String() string {
	return fmt.Sprintf("Importados: %d · Duplicados: %d · Errores: %d", s.Created, s.Duplicates, s.Errors)
}

// LineError records a per-line failure inside a run that did not abort it.
type LineError struct {
	Line   int
	Reason string
}

// ImportLog is the append-only audit record of one pipeline run. Exactly
// one is written per run, success or failure; it is never mutated after
// creation.
type ImportLog struct {
	ID         uuid.UUID
	FileName   string
	FileSize   int64
	AccountID  uuid.UUID
	Status     ImportStatus
	Summary    ImportSummary
	LineErrors []LineError
	Warnings   []string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}
