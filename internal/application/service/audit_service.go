package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/payroll-control/internal/application/port"
	"github.com/garyjia/payroll-control/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// AuditService is the append-only ledger of state-changing actions against
// payroll runs. Audit completeness is a correctness property: a failed write
// must propagate to the caller, never be dropped.
type AuditService interface {
	// Record stamps the entry with the current time, appends it to the
	// store and returns the stored entry.
	Record(ctx context.Context, entry *entity.AuditEntry) (*entity.AuditEntry, error)

	// ListForRun returns all entries for a run in insertion order.
	ListForRun(ctx context.Context, runID string) ([]*entity.AuditEntry, error)
}

type auditServiceImpl struct {
	auditRepo port.AuditRepository
	logger    Logger
	now       func() time.Time
}

// NewAuditService creates a new AuditService
func NewAuditService(auditRepo port.AuditRepository, logger Logger) AuditService {
	return &auditServiceImpl{
		auditRepo: auditRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// Record appends an audit entry for a run
func (s *auditServiceImpl) Record(ctx context.Context, entry *entity.AuditEntry) (*entity.AuditEntry, error) {
	entry.CreatedAt = s.now()

	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to record audit entry",
			"error", err,
			"run_id", entry.RunID,
			"action", entry.Action,
		)
		return nil, fmt.Errorf("record audit entry: %w", err)
	}

	s.logger.Info("Audit entry recorded",
		"run_id", entry.RunID,
		"action", entry.Action,
	)
	return entry, nil
}

// ListForRun returns the audit trail of a run in insertion order
func (s *auditServiceImpl) ListForRun(ctx context.Context, runID string) ([]*entity.AuditEntry, error) {
	entries, err := s.auditRepo.GetByRunID(ctx, runID)
	if err != nil {
		s.logger.Error("Failed to list audit entries", "error", err, "run_id", runID)
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
