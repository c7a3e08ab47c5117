package importer

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/mfortes/fincasa-backend/internal/adapter/statement"
	"github.com/mfortes/fincasa-backend/internal/domain"
	"github.com/mfortes/fincasa-backend/internal/usecase/dedup"
	"github.com/mfortes/fincasa-backend/internal/usecase/matcher"
	"github.com/mfortes/fincasa-backend/internal/usecase/normalizer"
	"github.com/mfortes/fincasa-backend/internal/usecase/transfer"
)

// ImportInput describes one pipeline run over one uploaded statement.
type ImportInput struct {
	FileName string
	FileSize int64
	// Reader supplies the raw statement file. Ignored when Parsed is set.
	Reader io.Reader
	// Parsed allows callers to hand in an already-parsed statement, used
	// when resuming a run after explicit account selection.
	Parsed *statement.ParseResult
	// AccountID skips account resolution entirely. This is how a caller
	// resumes after a RequiresAccountSelection halt.
	AccountID *uuid.UUID
}

// ImportResult is the outcome of one pipeline run.
type ImportResult struct {
	BatchID   uuid.UUID
	AccountID uuid.UUID
	// RequiresAccountSelection signals a halt, not an error: no IBAN
	// matched (or several did) and the caller must supply an account ID
	// to resume. Nothing was persisted.
	RequiresAccountSelection bool
	AccountCandidates        []*domain.Account
	Summary                  domain.ImportSummary
	Pairs                    []transfer.Pair
	Log                      *domain.ImportLog
}

// Service orchestrates one import run: parsing, account resolution,
// deduplication, budget matching, transfer detection, persistence and
// the audit log. Runs touching the same account are serialized; the
// stores provide no optimistic concurrency control.
type Service struct {
	accounts   domain.AccountRepository
	movements  domain.MovementRepository
	budgets    domain.BudgetLineRepository
	importLogs domain.ImportLogRepository
	cfg        domain.PipelineConfig
	log        *logrus.Logger

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewService creates a new import pipeline service.
func NewService(
	accounts domain.AccountRepository,
	movements domain.MovementRepository,
	budgets domain.BudgetLineRepository,
	importLogs domain.ImportLogRepository,
	cfg domain.PipelineConfig,
	log *logrus.Logger,
) *Service {
	return &Service{
		accounts:   accounts,
		movements:  movements,
		budgets:    budgets,
		importLogs: importLogs,
		cfg:        cfg,
		log:        log,
		locks:      make(map[uuid.UUID]*sync.Mutex),
	}
}

// Run executes the pipeline once. Every run writes exactly one import
// log entry, success or failure. A parse failure or a store failure
// before persistence produces a zero-effect log and an error; a missing
// or ambiguous account match produces a halt result and no error.
func (s *Service) Run(ctx context.Context, input ImportInput) (*ImportResult, error) {
	batchID := uuid.New()
	startedAt := time.Now()

	result := &ImportResult{BatchID: batchID}

	// Parsing
	parsed := input.Parsed
	if parsed == nil {
		var err error
		parsed, err = statement.ParseCSV(input.Reader)
		if err != nil {
			s.log.WithError(err).WithField("file", input.FileName).Error("statement parse failed")
			result.Log = s.writeLog(ctx, batchID, input, uuid.Nil, domain.ImportStatusFailed,
				domain.ImportSummary{}, nil, nil, err, startedAt)
			return result, fmt.Errorf("statement parse failed: %w", err)
		}
	}

	warnings := make([]string, 0)
	for _, le := range parsed.LineErrors {
		warnings = append(warnings, fmt.Sprintf("line %d: %s", le.Line, le.Reason))
	}

	// AccountResolution
	account, candidates, err := s.resolveAccount(ctx, input, parsed)
	if err != nil {
		result.Log = s.writeLog(ctx, batchID, input, uuid.Nil, domain.ImportStatusFailed,
			domain.ImportSummary{}, nil, warnings, err, startedAt)
		return result, err
	}
	if account == nil {
		s.log.WithField("file", input.FileName).Info("import halted: account selection required")
		result.RequiresAccountSelection = true
		result.AccountCandidates = candidates
		warnings = append(warnings, "account selection required")
		result.Log = s.writeLog(ctx, batchID, input, uuid.Nil, domain.ImportStatusAborted,
			domain.ImportSummary{}, nil, warnings, nil, startedAt)
		return result, nil
	}
	result.AccountID = account.ID

	// Serialize runs per account: concurrent imports against the same
	// account would double-count duplicates.
	lock := s.accountLock(account.ID)
	lock.Lock()
	defer lock.Unlock()

	movements, lineOf := s.buildMovements(parsed, account.ID, batchID)

	// Deduplication
	existing, err := s.movements.ListHashesByAccount(ctx, account.ID)
	if err != nil {
		err = fmt.Errorf("failed to load existing movement hashes: %w", err)
		result.Log = s.writeLog(ctx, batchID, input, account.ID, domain.ImportStatusFailed,
			domain.ImportSummary{}, nil, warnings, err, startedAt)
		return result, err
	}
	deduped := dedup.Deduplicate(movements, existing)
	for _, skipped := range deduped.Skipped {
		warnings = append(warnings, fmt.Sprintf("line %d dropped: %s",
			lineOf[skipped.Movement.ID], skipped.Reason))
	}

	// BudgetMatching
	s.matchBudgets(ctx, deduped.Unique, &warnings)

	// TransferDetection (takes precedence over budget statuses)
	result.Pairs = transfer.Detect(deduped.Unique, s.cfg.Transfer)

	// Persistence: add-only, no batch transaction. Failed writes are
	// recorded per line; earlier committed rows stay committed and
	// counted.
	lineErrors := make([]domain.LineError, 0)
	persisted := make([]*domain.Movement, 0, len(deduped.Unique))
	for _, m := range deduped.Unique {
		if err := s.movements.Add(ctx, m); err != nil {
			s.log.WithError(err).WithField("line", lineOf[m.ID]).Warn("failed to persist movement")
			lineErrors = append(lineErrors, domain.LineError{
				Line:   lineOf[m.ID],
				Reason: fmt.Sprintf("failed to persist movement: %v", err),
			})
			continue
		}
		persisted = append(persisted, m)
	}

	// Complete transfer pairs left pending by earlier batches. A failure
	// here degrades to a warning; the follow-up step is idempotent and
	// the next run will retry.
	pendingPairs, err := transfer.MatchPending(ctx, s.movements, persisted, s.cfg.Transfer)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("pending transfer completion failed: %v", err))
	}
	result.Pairs = append(result.Pairs, pendingPairs...)

	// Summary
	summary := summarize(deduped, persisted, lineErrors, parsed)
	result.Summary = summary
	result.Log = s.writeLog(ctx, batchID, input, account.ID, domain.ImportStatusCompleted,
		summary, lineErrors, warnings, nil, startedAt)

	s.log.WithFields(logrus.Fields{
		"file":       input.FileName,
		"account":    account.ID,
		"created":    summary.Created,
		"duplicates": summary.Duplicates,
		"transfers":  summary.Transfers,
		"errors":     summary.Errors,
	}).Info("import completed")

	return result, nil
}

// resolveAccount finds the destination account for the statement. It
// returns (nil, candidates, nil) when explicit selection is required;
// that is a normal control-flow outcome, not an error.
func (s *Service) resolveAccount(ctx context.Context, input ImportInput, parsed *statement.ParseResult) (*domain.Account, []*domain.Account, error) {
	if input.AccountID != nil {
		account, err := s.accounts.GetByID(ctx, *input.AccountID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load selected account: %w", err)
		}
		return account, nil, nil
	}

	registered, err := s.accounts.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	active := make([]*domain.Account, 0, len(registered))
	for _, a := range registered {
		if a.IsActive {
			active = append(active, a)
		}
	}

	// IBAN sources in decreasing confidence: column header, data column,
	// filename.
	ibans := make([]string, 0, 3)
	if parsed.HeaderIBAN != "" {
		ibans = append(ibans, parsed.HeaderIBAN)
	}
	for _, line := range parsed.Lines {
		if line.DetectedIBAN != "" {
			ibans = append(ibans, line.DetectedIBAN)
			break
		}
	}
	if iban := statement.ExtractIBAN(input.FileName); iban != "" {
		ibans = append(ibans, iban)
	}

	// Exact match first, across all sources in priority order.
	for _, iban := range ibans {
		norm := domain.NormalizeIBAN(iban)
		for _, a := range active {
			if a.NormalizedIBAN() == norm {
				return a, nil, nil
			}
		}
	}

	// Fallback: last four digits. Ambiguity is a hard stop, the
	// orchestrator does not guess.
	for _, iban := range ibans {
		norm := domain.NormalizeIBAN(iban)
		if len(norm) < 4 {
			continue
		}
		suffix := norm[len(norm)-4:]
		matched := make([]*domain.Account, 0, 2)
		for _, a := range active {
			if a.LastFour() == suffix {
				matched = append(matched, a)
			}
		}
		if len(matched) == 1 {
			return matched[0], nil, nil
		}
		if len(matched) > 1 {
			return nil, matched, nil
		}
	}

	return nil, active, nil
}

// buildMovements turns parsed lines into movement candidates and keeps a
// movement-to-source-line index for error reporting.
func (s *Service) buildMovements(parsed *statement.ParseResult, accountID, batchID uuid.UUID) ([]*domain.Movement, map[uuid.UUID]int) {
	movements := make([]*domain.Movement, 0, len(parsed.Lines))
	lineOf := make(map[uuid.UUID]int, len(parsed.Lines))

	for _, line := range parsed.Lines {
		m := &domain.Movement{
			ID:                    uuid.New(),
			AccountID:             accountID,
			Date:                  line.Date,
			Amount:                line.Amount,
			Description:           line.Description,
			NormalizedDescription: normalizer.Normalize(line.Description),
			BankReference:         line.Reference,
			Counterparty:          line.Counterparty,
			DetectedIBAN:          line.DetectedIBAN,
			Status:                domain.StatusNoPlanificado,
			ImportBatchID:         batchID,
			CreatedAt:             time.Now(),
		}
		movements = append(movements, m)
		lineOf[m.ID] = line.Number
	}

	return movements, lineOf
}

// matchBudgets loads the budget lines for every year present in the
// batch and applies the matcher. A failed budget lookup degrades the
// affected movements to no_planificado with an explanatory reason
// instead of aborting the run.
func (s *Service) matchBudgets(ctx context.Context, movements []*domain.Movement, warnings *[]string) {
	years := make(map[int]struct{})
	for _, m := range movements {
		years[m.Date.Year()] = struct{}{}
	}

	lines := make([]*domain.BudgetLine, 0)
	failedYears := make(map[int]string)
	for year := range years {
		yearLines, err := s.budgets.ListActiveForYear(ctx, year)
		if err != nil {
			failedYears[year] = err.Error()
			*warnings = append(*warnings, fmt.Sprintf("budget lookup failed for %d: %v", year, err))
			continue
		}
		lines = append(lines, yearLines...)
	}

	results := matcher.MatchBatch(movements, lines, s.cfg.Match)
	for i, m := range movements {
		r := results[i]
		m.Status = r.Status
		m.MatchedBudgetLineID = r.BudgetLineID
		m.MatchConfidence = r.Confidence
		m.MatchReason = r.Reason
		if reason, failed := failedYears[m.Date.Year()]; failed {
			m.Status = domain.StatusNoPlanificado
			m.MatchedBudgetLineID = nil
			m.MatchReason = fmt.Sprintf("budget lookup failed: %s", reason)
		}
	}
}

func summarize(deduped dedup.Result, persisted []*domain.Movement, lineErrors []domain.LineError, parsed *statement.ParseResult) domain.ImportSummary {
	summary := domain.ImportSummary{
		Total:      deduped.Summary.Total,
		Created:    len(persisted),
		Duplicates: deduped.Summary.Duplicates,
		Skipped:    deduped.Summary.Skipped,
		Errors:     len(lineErrors) + len(parsed.LineErrors),
	}
	for _, m := range persisted {
		switch {
		case m.TransferGroupKey != "":
			summary.Transfers++
		case m.Status == domain.StatusConciliado:
			summary.Conciliated++
		case m.Status == domain.StatusNoPlanificado:
			summary.Unplanned++
		}
	}
	return summary
}

// writeLog persists the run's audit record. Log writes must never mask
// the run outcome, so a failure here is only logged.
func (s *Service) writeLog(ctx context.Context, batchID uuid.UUID, input ImportInput, accountID uuid.UUID,
	status domain.ImportStatus, summary domain.ImportSummary, lineErrors []domain.LineError,
	warnings []string, runErr error, startedAt time.Time) *domain.ImportLog {

	entry := &domain.ImportLog{
		ID:         batchID,
		FileName:   input.FileName,
		FileSize:   input.FileSize,
		AccountID:  accountID,
		Status:     status,
		Summary:    summary,
		LineErrors: lineErrors,
		Warnings:   warnings,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}

	if err := s.importLogs.Add(ctx, entry); err != nil {
		s.log.WithError(err).Error("failed to write import log")
	}

	return entry
}

func (s *Service) accountLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}
