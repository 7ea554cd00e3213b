package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/payroll-control/internal/application/port"
	appwf "github.com/garyjia/payroll-control/internal/application/workflow"
	"github.com/garyjia/payroll-control/internal/domain/entity"
	domainwf "github.com/garyjia/payroll-control/internal/domain/workflow"
)

var (
	// ErrRunExists is returned when creating a run with an id already in use
	ErrRunExists = errors.New("payroll run already exists")

	// ErrUnknownDecision is returned when a decision is neither APPROVED nor REJECTED
	ErrUnknownDecision = errors.New("unknown decision result")

	// ErrJustificationRequired is returned when unfreezing without a justification
	ErrJustificationRequired = errors.New("unfreeze justification is required")

	// ErrExceptionNotFound is returned when resolving an exception that does not exist
	ErrExceptionNotFound = errors.New("payroll exception not found")
)

// WorkflowService orchestrates the payroll run approval lifecycle: draft,
// review gates, lock, payslip issuance and audited unfreeze.
//
// Every operation that references an unknown run id returns (nil, nil);
// callers distinguish "no such run" from genuine failures by result shape.
type WorkflowService interface {
	// CreateRun creates a run at DRAFT_GENERATED with the given pre-scored
	// exceptions. An empty id gets a server-assigned identifier.
	CreateRun(ctx context.Context, id string, exceptions []entity.PayrollException) (*entity.PayrollRun, error)

	// InitiateRun registers a run shell at PRE_RUN before its computed
	// lines exist.
	InitiateRun(ctx context.Context, id string) (*entity.PayrollRun, error)

	// IngestPayLines scores computed pay lines, creates the run (or
	// advances a PRE_RUN shell) and escalates to UNDER_REVIEW when any
	// anomaly is detected.
	IngestPayLines(ctx context.Context, id string, lines []entity.PayLine) (*entity.PayrollRun, error)

	// PublishForReview moves a draft run into the manager review gate.
	PublishForReview(ctx context.Context, id string) (*entity.PayrollRun, error)

	// ManagerDecision applies the manager gate: APPROVED hands the run to
	// finance, REJECTED returns it to draft.
	ManagerDecision(ctx context.Context, id string, result string, note *entity.ReviewNote) (*entity.PayrollRun, error)

	// FinanceDecision applies the finance gate: APPROVED locks the run and
	// triggers payslip issuance, REJECTED returns it to draft.
	FinanceDecision(ctx context.Context, id string, result string, note *entity.ReviewNote) (*entity.PayrollRun, error)

	// LockRun is an administrative override that locks a run from any
	// non-locked state, bypassing the two-stage gate.
	LockRun(ctx context.Context, id string) (*entity.PayrollRun, error)

	// UnfreezeRun reopens a locked run with a mandatory, audited justification.
	UnfreezeRun(ctx context.Context, id string, justification string) (*entity.PayrollRun, error)

	// GetRun returns the run or nil when absent.
	GetRun(ctx context.Context, id string) (*entity.PayrollRun, error)

	// ListRuns returns a paginated list of runs.
	ListRuns(ctx context.Context, limit, offset int) ([]*entity.PayrollRun, error)

	// AuditTrail returns the run's audit entries in insertion order.
	AuditTrail(ctx context.Context, id string) ([]*entity.AuditEntry, error)

	// ResolveException marks a detected exception resolved. Exceptions are
	// never removed from a run.
	ResolveException(ctx context.Context, id string, employeeID, code string) (*entity.PayrollRun, error)
}

type workflowServiceImpl struct {
	runRepo   port.RunRepository
	audit     AuditService
	analyzer  *Analyzer
	notifier  port.NotificationGateway
	payslips  port.PayslipIssuer
	txManager port.TransactionManager
	logger    Logger

	payslipTimeout time.Duration
	locks          *runLocker
}

// WorkflowOption configures the workflow service
type WorkflowOption func(*workflowServiceImpl)

// WithPayslipTimeout bounds the synchronous payslip issuer call made during
// finance approval
func WithPayslipTimeout(timeout time.Duration) WorkflowOption {
	return func(s *workflowServiceImpl) {
		s.payslipTimeout = timeout
	}
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	runRepo port.RunRepository,
	audit AuditService,
	analyzer *Analyzer,
	notifier port.NotificationGateway,
	payslips port.PayslipIssuer,
	txManager port.TransactionManager,
	logger Logger,
	opts ...WorkflowOption,
) WorkflowService {
	s := &workflowServiceImpl{
		runRepo:        runRepo,
		audit:          audit,
		analyzer:       analyzer,
		notifier:       notifier,
		payslips:       payslips,
		txManager:      txManager,
		logger:         logger,
		payslipTimeout: 30 * time.Second,
		locks:          newRunLocker(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// CreateRun creates a new run at DRAFT_GENERATED
func (s *workflowServiceImpl) CreateRun(ctx context.Context, id string, exceptions []entity.PayrollException) (*entity.PayrollRun, error) {
	return s.createAt(ctx, id, entity.StatusDraftGenerated, exceptions)
}

// InitiateRun registers a run shell at PRE_RUN
func (s *workflowServiceImpl) InitiateRun(ctx context.Context, id string) (*entity.PayrollRun, error) {
	return s.createAt(ctx, id, entity.StatusPreRun, nil)
}

func (s *workflowServiceImpl) createAt(ctx context.Context, id string, status string, exceptions []entity.PayrollException) (*entity.PayrollRun, error) {
	if id == "" {
		id = uuid.NewString()
	}

	s.locks.lock(id)
	defer s.locks.unlock(id)

	existing, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunExists)
	}

	now := time.Now()
	for i := range exceptions {
		if exceptions[i].CreatedAt.IsZero() {
			exceptions[i].CreatedAt = now
		}
	}

	run := &entity.PayrollRun{
		ID:         id,
		Status:     status,
		Exceptions: exceptions,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.runRepo.Create(txCtx, run); err != nil {
			return fmt.Errorf("create run: %w", err)
		}
		if _, err := s.audit.Record(txCtx, &entity.AuditEntry{
			RunID:  id,
			Action: entity.AuditCreateRun,
		}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create run", "error", err, "run_id", id)
		return nil, err
	}

	s.logger.Info("Payroll run created",
		"run_id", id,
		"status", status,
		"exceptions", len(exceptions),
	)
	return run, nil
}

// IngestPayLines scores and stores computed pay lines for a run
func (s *workflowServiceImpl) IngestPayLines(ctx context.Context, id string, lines []entity.PayLine) (*entity.PayrollRun, error) {
	if id == "" {
		id = uuid.NewString()
	}

	analysis := s.analyzer.DetectAnomalies(lines)

	s.locks.lock(id)
	defer s.locks.unlock(id)

	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	escalate := analysis.Status == entity.StatusUnderReview
	now := time.Now()

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if run == nil {
			run = &entity.PayrollRun{
				ID:         id,
				Status:     entity.StatusDraftGenerated,
				Exceptions: analysis.Exceptions,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := s.runRepo.Create(txCtx, run); err != nil {
				return fmt.Errorf("create run: %w", err)
			}
			if _, err := s.audit.Record(txCtx, &entity.AuditEntry{RunID: id, Action: entity.AuditCreateRun}); err != nil {
				return err
			}
		} else {
			// Only a pre-run shell may receive its draft lines
			machine := appwf.BuildPayrollRunStateMachine(domainwf.State(run.Status))
			if err := machine.Fire(txCtx, domainwf.TriggerGenerateDraft); err != nil {
				return fmt.Errorf("run %s: %w", id, err)
			}
			run.Status = machine.State().String()
			if err := s.runRepo.UpdateStatus(txCtx, id, run.Status); err != nil {
				return fmt.Errorf("update run status: %w", err)
			}
			if len(analysis.Exceptions) > 0 {
				if err := s.runRepo.AppendExceptions(txCtx, id, analysis.Exceptions); err != nil {
					return fmt.Errorf("append exceptions: %w", err)
				}
				run.Exceptions = append(run.Exceptions, analysis.Exceptions...)
			}
		}

		if err := s.runRepo.SavePayLines(txCtx, id, lines); err != nil {
			return fmt.Errorf("save pay lines: %w", err)
		}

		// Automatic escalation: any detected anomaly forces human review
		// before the run may be published
		if escalate {
			machine := appwf.BuildPayrollRunStateMachine(domainwf.State(run.Status))
			if err := machine.Fire(txCtx, domainwf.TriggerPublish); err != nil {
				return fmt.Errorf("run %s: %w", id, err)
			}
			run.Status = machine.State().String()
			if err := s.runRepo.UpdateStatus(txCtx, id, run.Status); err != nil {
				return fmt.Errorf("update run status: %w", err)
			}
			if _, err := s.audit.Record(txCtx, &entity.AuditEntry{
				RunID:  id,
				Action: entity.AuditPublishForReview,
				Reason: fmt.Sprintf("%d exception(s) detected during ingestion", len(analysis.Exceptions)),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to ingest pay lines", "error", err, "run_id", id)
		return nil, err
	}

	if escalate {
		s.notify(ctx, entity.RoleManager,
			fmt.Sprintf("Payroll run %s entered review with %d exception(s)", id, len(analysis.Exceptions)), id)
	}

	s.logger.Info("Pay lines ingested",
		"run_id", id,
		"lines", len(lines),
		"exceptions", len(analysis.Exceptions),
		"status", run.Status,
	)
	return run, nil
}

// PublishForReview moves a draft run into manager review
func (s *workflowServiceImpl) PublishForReview(ctx context.Context, id string) (*entity.PayrollRun, error) {
	s.locks.lock(id)
	defer s.locks.unlock(id)

	run, err := s.loadRun(ctx, id)
	if run == nil || err != nil {
		return nil, err
	}

	err = s.applyTransition(ctx, run, domainwf.TriggerPublish, &entity.AuditEntry{
		RunID:  id,
		Action: entity.AuditPublishForReview,
	}, nil)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, entity.RoleManager, fmt.Sprintf("Payroll run %s is ready for review", id), id)
	return run, nil
}

// ManagerDecision applies the manager review gate
func (s *workflowServiceImpl) ManagerDecision(ctx context.Context, id string, result string, note *entity.ReviewNote) (*entity.PayrollRun, error) {
	s.locks.lock(id)
	defer s.locks.unlock(id)

	run, err := s.loadRun(ctx, id)
	if run == nil || err != nil {
		return nil, err
	}

	if note != nil && note.Role == "" {
		note.Role = entity.RoleManager
	}

	switch result {
	case entity.ResultApproved:
		err = s.applyTransition(ctx, run, domainwf.TriggerManagerApprove, &entity.AuditEntry{
			RunID:  id,
			Action: entity.AuditManagerApproved,
			Reason: noteText(note),
		}, note)
		if err != nil {
			return nil, err
		}
		s.notify(ctx, entity.RoleFinance, fmt.Sprintf("Payroll run %s is awaiting finance approval", id), id)

	case entity.ResultRejected:
		err = s.applyTransition(ctx, run, domainwf.TriggerManagerReject, &entity.AuditEntry{
			RunID:  id,
			Action: entity.AuditManagerRejected,
			Reason: noteText(note),
		}, note)
		if err != nil {
			return nil, err
		}
		s.notify(ctx, entity.RoleSpecialist,
			fmt.Sprintf("Payroll run %s was rejected by the manager: %s", id, noteText(note)), id)

	default:
		return nil, fmt.Errorf("run %s: %w: %q", id, ErrUnknownDecision, result)
	}

	return run, nil
}

// FinanceDecision applies the finance review gate. On approval the run locks
// strictly before the payslip issuer is invoked; payslip failure is recorded
// but never reverses the lock.
func (s *workflowServiceImpl) FinanceDecision(ctx context.Context, id string, result string, note *entity.ReviewNote) (*entity.PayrollRun, error) {
	s.locks.lock(id)
	defer s.locks.unlock(id)

	run, err := s.loadRun(ctx, id)
	if run == nil || err != nil {
		return nil, err
	}

	if note != nil && note.Role == "" {
		note.Role = entity.RoleFinance
	}

	switch result {
	case entity.ResultApproved:
		err = s.applyTransition(ctx, run, domainwf.TriggerFinanceApprove, &entity.AuditEntry{
			RunID:  id,
			Action: entity.AuditFinanceApproved,
			Reason: noteText(note),
		}, note)
		if err != nil {
			return nil, err
		}
		s.notify(ctx, entity.RoleManager, fmt.Sprintf("Payroll run %s was approved by finance and locked", id), id)

		if err := s.issuePayslips(ctx, run); err != nil {
			return nil, err
		}

	case entity.ResultRejected:
		err = s.applyTransition(ctx, run, domainwf.TriggerFinanceReject, &entity.AuditEntry{
			RunID:  id,
			Action: entity.AuditFinanceRejected,
			Reason: noteText(note),
		}, note)
		if err != nil {
			return nil, err
		}
		s.notify(ctx, entity.RoleSpecialist,
			fmt.Sprintf("Payroll run %s was rejected by finance: %s", id, noteText(note)), id)

	default:
		return nil, fmt.Errorf("run %s: %w: %q", id, ErrUnknownDecision, result)
	}

	return run, nil
}

// LockRun locks a run from any non-locked state (administrative override)
func (s *workflowServiceImpl) LockRun(ctx context.Context, id string) (*entity.PayrollRun, error) {
	s.locks.lock(id)
	defer s.locks.unlock(id)

	run, err := s.loadRun(ctx, id)
	if run == nil || err != nil {
		return nil, err
	}

	err = s.applyTransition(ctx, run, domainwf.TriggerLock, &entity.AuditEntry{
		RunID:  id,
		Action: entity.AuditLock,
		Reason: "administrative lock",
	}, nil)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// UnfreezeRun reopens a locked run with a mandatory justification
func (s *workflowServiceImpl) UnfreezeRun(ctx context.Context, id string, justification string) (*entity.PayrollRun, error) {
	if justification == "" {
		return nil, fmt.Errorf("run %s: %w", id, ErrJustificationRequired)
	}

	s.locks.lock(id)
	defer s.locks.unlock(id)

	run, err := s.loadRun(ctx, id)
	if run == nil || err != nil {
		return nil, err
	}

	note := &entity.ReviewNote{
		AuthorID: entity.RoleSystem,
		Role:     entity.RoleSystem,
		Note:     fmt.Sprintf("Run unfrozen: %s", justification),
	}

	err = s.applyTransition(ctx, run, domainwf.TriggerUnfreeze, &entity.AuditEntry{
		RunID:  id,
		Action: entity.AuditUnfreeze,
		Reason: justification,
	}, note)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, entity.RoleSpecialist,
		fmt.Sprintf("Payroll run %s was unfrozen: %s", id, justification), id)
	return run, nil
}

// GetRun returns a run by id, or nil when absent
func (s *workflowServiceImpl) GetRun(ctx context.Context, id string) (*entity.PayrollRun, error) {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get run", "error", err, "run_id", id)
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns a paginated list of runs
func (s *workflowServiceImpl) ListRuns(ctx context.Context, limit, offset int) ([]*entity.PayrollRun, error) {
	runs, err := s.runRepo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list runs", "error", err, "limit", limit, "offset", offset)
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// AuditTrail returns the audit entries of a run in insertion order
func (s *workflowServiceImpl) AuditTrail(ctx context.Context, id string) ([]*entity.AuditEntry, error) {
	return s.audit.ListForRun(ctx, id)
}

// ResolveException marks a matching unresolved exception as resolved
func (s *workflowServiceImpl) ResolveException(ctx context.Context, id string, employeeID, code string) (*entity.PayrollRun, error) {
	s.locks.lock(id)
	defer s.locks.unlock(id)

	run, err := s.loadRun(ctx, id)
	if run == nil || err != nil {
		return nil, err
	}

	matched, err := s.runRepo.ResolveException(ctx, id, employeeID, code)
	if err != nil {
		return nil, fmt.Errorf("resolve exception: %w", err)
	}
	if !matched {
		return nil, fmt.Errorf("run %s employee %s code %s: %w", id, employeeID, code, ErrExceptionNotFound)
	}

	run, err = s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	s.logger.Info("Exception resolved", "run_id", id, "employee_id", employeeID, "code", code)
	return run, nil
}

// loadRun fetches a run for a mutating operation. A nil run with nil error
// means not found, which mutating operations pass through to the caller.
func (s *workflowServiceImpl) loadRun(ctx context.Context, id string) (*entity.PayrollRun, error) {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get run", "error", err, "run_id", id)
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	if run == nil {
		s.logger.Info("Run not found", "run_id", id)
	}
	return run, nil
}

// applyTransition validates and executes a state transition, persisting the
// status change, the optional review note and the audit entry in a single
// transaction. The state mutation is not committed unless the audit write
// succeeds.
func (s *workflowServiceImpl) applyTransition(ctx context.Context, run *entity.PayrollRun, trigger domainwf.Trigger, entry *entity.AuditEntry, note *entity.ReviewNote) error {
	machine := appwf.BuildPayrollRunStateMachine(domainwf.State(run.Status))
	if err := machine.Fire(ctx, trigger); err != nil {
		s.logger.Error("Transition rejected",
			"run_id", run.ID,
			"trigger", trigger.String(),
			"status", run.Status,
		)
		return fmt.Errorf("run %s: %w", run.ID, err)
	}
	newStatus := machine.State().String()

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.runRepo.UpdateStatus(txCtx, run.ID, newStatus); err != nil {
			return fmt.Errorf("update run status: %w", err)
		}

		if note != nil {
			if note.CreatedAt.IsZero() {
				note.CreatedAt = time.Now()
			}
			if err := s.runRepo.AppendNote(txCtx, run.ID, note); err != nil {
				return fmt.Errorf("append review note: %w", err)
			}
		}

		if _, err := s.audit.Record(txCtx, entry); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to apply transition",
			"error", err,
			"run_id", run.ID,
			"trigger", trigger.String(),
		)
		return err
	}

	run.Status = newStatus
	if note != nil {
		run.Notes = append(run.Notes, *note)
	}

	s.logger.Info("Run transitioned",
		"run_id", run.ID,
		"trigger", trigger.String(),
		"status", newStatus,
	)
	return nil
}

// issuePayslips invokes the payslip issuer for a locked run and records the
// outcome as a PAYSLIPS_GENERATED audit entry. Issuance failure leaves the
// run LOCKED; approval and payslip issuance are decoupled in outcome.
func (s *workflowServiceImpl) issuePayslips(ctx context.Context, run *entity.PayrollRun) error {
	issueCtx, cancel := context.WithTimeout(ctx, s.payslipTimeout)
	defer cancel()

	result, err := s.payslips.GenerateForRun(issueCtx, run.ID, run.Status)
	if err != nil {
		result = &port.PayslipResult{OK: false, Message: err.Error()}
	}

	reason := fmt.Sprintf("ok=%t count=%d %s", result.OK, result.GeneratedCount, result.Message)
	if _, auditErr := s.audit.Record(ctx, &entity.AuditEntry{
		RunID:  run.ID,
		Action: entity.AuditPayslipsGenerated,
		Reason: reason,
	}); auditErr != nil {
		return auditErr
	}

	if err != nil {
		s.logger.Error("Payslip generation failed", "error", err, "run_id", run.ID)
		return fmt.Errorf("payslip generation for run %s: %w", run.ID, err)
	}
	if !result.OK {
		s.logger.Error("Payslip issuer refused run", "run_id", run.ID, "message", result.Message)
		return fmt.Errorf("payslip generation for run %s refused: %s", run.ID, result.Message)
	}

	s.logger.Info("Payslips generated", "run_id", run.ID, "count", result.GeneratedCount)
	return nil
}

// notify delivers a fire-and-forget role group notification. Delivery
// failure is logged and swallowed; it never fails the transition.
func (s *workflowServiceImpl) notify(ctx context.Context, roleGroup, message, runID string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, roleGroup, message, runID); err != nil {
		s.logger.Error("Notification delivery failed",
			"error", err,
			"role_group", roleGroup,
			"run_id", runID,
		)
	}
}

func noteText(note *entity.ReviewNote) string {
	if note == nil {
		return ""
	}
	return note.Note
}
