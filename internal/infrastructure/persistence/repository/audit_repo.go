package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/payroll-control/internal/application/port"
	"github.com/garyjia/payroll-control/internal/domain/entity"
	"github.com/garyjia/payroll-control/internal/infrastructure/persistence/sqlite"
)

// AuditRepository implements port.AuditRepository over sqlite.
// The table is append-only; no update or delete statement exists here.
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit entry repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a new audit entry
func (r *AuditRepository) Create(ctx context.Context, entry *entity.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (run_id, action, reason, created_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		entry.RunID,
		entry.Action,
		entry.Reason,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create audit entry",
			zap.String("run_id", entry.RunID),
			zap.String("action", entry.Action),
			zap.Error(err))
		return fmt.Errorf("failed to create audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id

	return nil
}

// GetByRunID retrieves all audit entries for a run in insertion order
func (r *AuditRepository) GetByRunID(ctx context.Context, runID string) ([]*entity.AuditEntry, error) {
	query := `
		SELECT id, run_id, action, reason, created_at
		FROM audit_entries
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, runID)
	if err != nil {
		r.logger.Error("Failed to get audit entries", zap.String("run_id", runID), zap.Error(err))
		return nil, fmt.Errorf("failed to get audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.AuditEntry
	for rows.Next() {
		var entry entity.AuditEntry
		if err := rows.Scan(&entry.ID, &entry.RunID, &entry.Action, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

// getExecutor returns the transaction carried by the context, or the database
func (r *AuditRepository) getExecutor(ctx context.Context) executor {
	if tx := sqlite.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

// Verify interface compliance
var _ port.AuditRepository = (*AuditRepository)(nil)
