package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/payroll-control/internal/application/port"
	"github.com/garyjia/payroll-control/internal/domain/entity"
	"github.com/garyjia/payroll-control/internal/infrastructure/persistence/sqlite"
)

// RunRepository implements port.RunRepository over sqlite
type RunRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRunRepository creates a new payroll run repository
func NewRunRepository(db *sql.DB, logger *zap.Logger) *RunRepository {
	return &RunRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new payroll run with its initial exceptions
func (r *RunRepository) Create(ctx context.Context, run *entity.PayrollRun) error {
	query := `
		INSERT INTO payroll_runs (id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		run.ID,
		run.Status,
		run.CreatedAt,
		run.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create payroll run", zap.String("run_id", run.ID), zap.Error(err))
		return fmt.Errorf("failed to create run: %w", err)
	}

	if len(run.Exceptions) > 0 {
		if err := r.AppendExceptions(ctx, run.ID, run.Exceptions); err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves a run with its ordered exceptions and notes.
// Returns (nil, nil) when no run exists for the id.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*entity.PayrollRun, error) {
	query := `
		SELECT id, status, created_at, updated_at
		FROM payroll_runs
		WHERE id = ?
	`

	var run entity.PayrollRun
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Status,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get payroll run", zap.String("run_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	exceptions, err := r.exceptionsForRun(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Exceptions = exceptions

	notes, err := r.notesForRun(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Notes = notes

	return &run, nil
}

// UpdateStatus updates the run status and touches updated_at
func (r *RunRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	query := `UPDATE payroll_runs SET status = ?, updated_at = ? WHERE id = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update run status", zap.String("run_id", id), zap.Error(err))
		return fmt.Errorf("failed to update run status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", id)
	}

	return nil
}

// AppendNote appends an immutable review note to a run
func (r *RunRepository) AppendNote(ctx context.Context, id string, note *entity.ReviewNote) error {
	query := `
		INSERT INTO review_notes (run_id, author_id, role, note, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		id,
		note.AuthorID,
		note.Role,
		note.Note,
		note.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append review note", zap.String("run_id", id), zap.Error(err))
		return fmt.Errorf("failed to append note: %w", err)
	}

	noteID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	note.ID = noteID

	return nil
}

// AppendExceptions appends detected exceptions to a run. Exceptions are
// never deleted, only marked resolved.
func (r *RunRepository) AppendExceptions(ctx context.Context, id string, exceptions []entity.PayrollException) error {
	query := `
		INSERT INTO payroll_exceptions (run_id, employee_id, code, message, field, resolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	ex := r.getExecutor(ctx)
	for i := range exceptions {
		result, err := ex.ExecContext(ctx, query,
			id,
			exceptions[i].EmployeeID,
			exceptions[i].Code,
			exceptions[i].Message,
			exceptions[i].Field,
			exceptions[i].Resolved,
			exceptions[i].CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to append exception",
				zap.String("run_id", id),
				zap.String("code", exceptions[i].Code),
				zap.Error(err))
			return fmt.Errorf("failed to append exception: %w", err)
		}

		exceptionID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		exceptions[i].ID = exceptionID
	}

	return nil
}

// ResolveException marks the first matching unresolved exception as resolved.
// Returns false when no unresolved exception matched.
func (r *RunRepository) ResolveException(ctx context.Context, id string, employeeID, code string) (bool, error) {
	query := `
		UPDATE payroll_exceptions
		SET resolved = 1, resolved_at = ?
		WHERE run_id = ? AND employee_id = ? AND code = ? AND resolved = 0
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, time.Now(), id, employeeID, code)
	if err != nil {
		r.logger.Error("Failed to resolve exception", zap.String("run_id", id), zap.Error(err))
		return false, fmt.Errorf("failed to resolve exception: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected > 0, nil
}

// SavePayLines replaces the stored pay lines of a run with a new ingestion
func (r *RunRepository) SavePayLines(ctx context.Context, id string, lines []entity.PayLine) error {
	ex := r.getExecutor(ctx)

	if _, err := ex.ExecContext(ctx, `DELETE FROM pay_lines WHERE run_id = ?`, id); err != nil {
		r.logger.Error("Failed to clear pay lines", zap.String("run_id", id), zap.Error(err))
		return fmt.Errorf("failed to clear pay lines: %w", err)
	}

	query := `
		INSERT INTO pay_lines (run_id, employee_id, bank_account, net_pay)
		VALUES (?, ?, ?, ?)
	`
	for i := range lines {
		result, err := ex.ExecContext(ctx, query,
			id,
			lines[i].EmployeeID,
			lines[i].BankAccount,
			lines[i].NetPay.String(),
		)
		if err != nil {
			r.logger.Error("Failed to save pay line",
				zap.String("run_id", id),
				zap.String("employee_id", lines[i].EmployeeID),
				zap.Error(err))
			return fmt.Errorf("failed to save pay line: %w", err)
		}

		lineID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		lines[i].ID = lineID
		lines[i].RunID = id
	}

	return nil
}

// GetPayLines returns the stored pay lines of a run in insertion order
func (r *RunRepository) GetPayLines(ctx context.Context, id string) ([]entity.PayLine, error) {
	query := `
		SELECT id, run_id, employee_id, bank_account, net_pay
		FROM pay_lines
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to get pay lines", zap.String("run_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get pay lines: %w", err)
	}
	defer rows.Close()

	var lines []entity.PayLine
	for rows.Next() {
		var line entity.PayLine
		var netPay string
		if err := rows.Scan(&line.ID, &line.RunID, &line.EmployeeID, &line.BankAccount, &netPay); err != nil {
			return nil, fmt.Errorf("failed to scan pay line: %w", err)
		}
		line.NetPay, err = decimal.NewFromString(netPay)
		if err != nil {
			return nil, fmt.Errorf("failed to parse net pay %q: %w", netPay, err)
		}
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

// List retrieves a paginated list of runs without their child collections
func (r *RunRepository) List(ctx context.Context, limit, offset int) ([]*entity.PayrollRun, error) {
	query := `
		SELECT id, status, created_at, updated_at
		FROM payroll_runs
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list payroll runs", zap.Error(err))
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*entity.PayrollRun
	for rows.Next() {
		var run entity.PayrollRun
		if err := rows.Scan(&run.ID, &run.Status, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

func (r *RunRepository) exceptionsForRun(ctx context.Context, id string) ([]entity.PayrollException, error) {
	query := `
		SELECT id, employee_id, code, message, field, resolved, created_at, resolved_at
		FROM payroll_exceptions
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get exceptions: %w", err)
	}
	defer rows.Close()

	var exceptions []entity.PayrollException
	for rows.Next() {
		var e entity.PayrollException
		var resolvedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.Code, &e.Message, &e.Field, &e.Resolved, &e.CreatedAt, &resolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exception: %w", err)
		}
		if resolvedAt.Valid {
			e.ResolvedAt = &resolvedAt.Time
		}
		exceptions = append(exceptions, e)
	}

	return exceptions, rows.Err()
}

func (r *RunRepository) notesForRun(ctx context.Context, id string) ([]entity.ReviewNote, error) {
	query := `
		SELECT id, author_id, role, note, created_at
		FROM review_notes
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get notes: %w", err)
	}
	defer rows.Close()

	var notes []entity.ReviewNote
	for rows.Next() {
		var n entity.ReviewNote
		if err := rows.Scan(&n.ID, &n.AuthorID, &n.Role, &n.Note, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}

	return notes, rows.Err()
}

// getExecutor returns the transaction carried by the context, or the database
func (r *RunRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

// executor interface covers both *sql.DB and *sql.Tx
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Verify interface compliance
var _ port.RunRepository = (*RunRepository)(nil)
