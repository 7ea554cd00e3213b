package port

import (
	"context"

	"github.com/garyjia/payroll-control/internal/domain/entity"
)

// RunRepository defines persistence operations for PayrollRun.
// GetByID returns (nil, nil) when no run exists for the id; callers
// distinguish "no such run" from storage failures by result shape.
type RunRepository interface {
	Create(ctx context.Context, run *entity.PayrollRun) error
	GetByID(ctx context.Context, id string) (*entity.PayrollRun, error)
	UpdateStatus(ctx context.Context, id string, status string) error
	AppendNote(ctx context.Context, id string, note *entity.ReviewNote) error
	AppendExceptions(ctx context.Context, id string, exceptions []entity.PayrollException) error
	ResolveException(ctx context.Context, id string, employeeID, code string) (bool, error)
	SavePayLines(ctx context.Context, id string, lines []entity.PayLine) error
	GetPayLines(ctx context.Context, id string) ([]entity.PayLine, error)
	List(ctx context.Context, limit, offset int) ([]*entity.PayrollRun, error)
}

// AuditRepository defines persistence operations for AuditEntry.
// The interface is structurally append-only: no update or delete is exposed.
type AuditRepository interface {
	Create(ctx context.Context, entry *entity.AuditEntry) error
	GetByRunID(ctx context.Context, runID string) ([]*entity.AuditEntry, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
