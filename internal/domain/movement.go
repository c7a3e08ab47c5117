package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReconciliationStatus represents the reconciliation state of a movement
type ReconciliationStatus string

const (
	// StatusConciliado is a high-confidence budget match
	StatusConciliado ReconciliationStatus = "conciliado"
	// StatusConfirmado is an acceptable/good budget match or a confirmed transfer
	StatusConfirmado ReconciliationStatus = "confirmado"
	// StatusNoPlanificado means no usable match was found, or the match was too ambiguous
	StatusNoPlanificado ReconciliationStatus = "no_planificado"
	// StatusConfirmadoManual is a terminal state set by an explicit user action
	StatusConfirmadoManual ReconciliationStatus = "confirmado_manual"
	// StatusRechazado is a terminal state set by an explicit user action
	StatusRechazado ReconciliationStatus = "rechazado"
)

// Movement represents a single bank statement line under evaluation.
// It is created from parser output, annotated by the matcher and the
// transfer detector, and persisted once. After persistence only the
// transfer-pair completion step may update it.
type Movement struct {
	ID                    uuid.UUID
	AccountID             uuid.UUID
	Date                  time.Time // calendar date, no time component
	Amount                decimal.Decimal
	Description           string
	NormalizedDescription string
	BankReference         string
	Counterparty          string
	DetectedIBAN          string
	CategoryType          string
	CategorySubtype       string
	Hash                  string
	Status                ReconciliationStatus
	MatchedBudgetLineID   *uuid.UUID
	MatchConfidence       int
	MatchReason           string
	TransferGroupKey      string
	TransferPairID        *uuid.UUID
	ImportBatchID         uuid.UUID
	CreatedAt             time.Time
}

// Validate ensures the movement carries the fields every pipeline stage
// depends on. Movements failing validation are dropped from the run
// (visible via warnings), never persisted.
func (m *Movement) Validate() error {
	if m.AccountID == uuid.Nil {
		return errors.New("movement must have an account ID")
	}
	if m.Date.IsZero() {
		return errors.New("movement must have a transaction date")
	}
	if m.Description == "" {
		return errors.New("movement must have a description")
	}
	return nil
}

// IsDebit reports whether the movement is an outgoing amount.
func (m *Movement) IsDebit() bool {
	return m.Amount.IsNegative()
}

// IsCredit reports whether the movement is an incoming amount.
func (m *Movement) IsCredit() bool {
	return m.Amount.IsPositive()
}
