package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/procure-flow/internal/models"
	"go.uber.org/zap"
)

// ApprovalRepository handles approval chain database operations. The unique
// constraints on (entity_type, entity_id, step) and idempotency_key are the
// correctness mechanism for retry-safe chain creation and decisions.
type ApprovalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *sql.DB, logger *zap.Logger) *ApprovalRepository {
	return &ApprovalRepository{
		db:     db,
		logger: logger,
	}
}

// UpsertStep inserts a chain slot, leaving any existing slot for the same
// (entity_type, entity_id, step) untouched. Retried chain creation is
// therefore a no-op per step.
func (r *ApprovalRepository) UpsertStep(tx *sql.Tx, approval *models.Approval) error {
	query := `
		INSERT INTO approvals (entity_type, entity_id, step, approver_id, status, idempotency_key)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity_type, entity_id, step) DO NOTHING
	`

	_, err := pick(r.db, tx).Exec(query,
		approval.EntityType,
		approval.EntityID,
		approval.Step,
		approval.ApproverID,
		approval.Status,
		approval.IdempotencyKey,
	)
	if err != nil {
		r.logger.Error("Failed to upsert approval step",
			zap.String("entity_type", string(approval.EntityType)),
			zap.String("entity_id", approval.EntityID),
			zap.Int("step", approval.Step),
			zap.Error(err))
		return fmt.Errorf("failed to upsert approval step: %w", err)
	}

	return nil
}

// ListByEntity returns every approval row for an entity, ordered by step.
func (r *ApprovalRepository) ListByEntity(tx *sql.Tx, entityType models.EntityType, entityID string) ([]*models.Approval, error) {
	query := selectApproval + `
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY step
	`
	return r.queryApprovals(tx, query, entityType, entityID)
}

// ListPending returns the PENDING approval rows for an entity, ordered by
// step ascending. The first element is the current step.
func (r *ApprovalRepository) ListPending(tx *sql.Tx, entityType models.EntityType, entityID string) ([]*models.Approval, error) {
	query := selectApproval + `
		WHERE entity_type = ? AND entity_id = ? AND status = ?
		ORDER BY step
	`
	return r.queryApprovals(tx, query, entityType, entityID, models.ApprovalStatusPending)
}

// CountPending returns the number of PENDING rows for an entity.
func (r *ApprovalRepository) CountPending(tx *sql.Tx, entityType models.EntityType, entityID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM approvals
		WHERE entity_type = ? AND entity_id = ? AND status = ?
	`

	var count int
	err := pick(r.db, tx).QueryRow(query, entityType, entityID, models.ApprovalStatusPending).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count pending approvals",
			zap.String("entity_type", string(entityType)),
			zap.String("entity_id", entityID),
			zap.Error(err))
		return 0, fmt.Errorf("failed to count pending approvals: %w", err)
	}

	return count, nil
}

// GetByID retrieves an approval row by primary key. Returns nil when not found.
func (r *ApprovalRepository) GetByID(tx *sql.Tx, id int64) (*models.Approval, error) {
	query := selectApproval + ` WHERE id = ?`

	approval, err := scanApproval(pick(r.db, tx).QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get approval", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}

	return approval, nil
}

// GetByIdempotencyKey retrieves the approval row carrying the exact key.
// Returns nil when no row carries it. This is the outer replay guard for
// decision calls.
func (r *ApprovalRepository) GetByIdempotencyKey(tx *sql.Tx, key string) (*models.Approval, error) {
	query := selectApproval + ` WHERE idempotency_key = ?`

	approval, err := scanApproval(pick(r.db, tx).QueryRow(query, key))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get approval by idempotency key", zap.Error(err))
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}

	return approval, nil
}

// Decide records a decision on one approval row. The WHERE clause re-checks
// PENDING inside the transaction: a zero row count means another decision
// already landed on this step. When idemKey is empty the row keeps its chain
// slot key.
func (r *ApprovalRepository) Decide(tx *sql.Tx, id int64, status, notes, idemKey string, at time.Time) (int64, error) {
	query := `
		UPDATE approvals
		SET status = ?,
			decided_at = ?,
			notes = ?,
			idempotency_key = COALESCE(NULLIF(?, ''), idempotency_key),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	result, err := pick(r.db, tx).Exec(query, status, at, notes, idemKey, id, models.ApprovalStatusPending)
	if err != nil {
		r.logger.Error("Failed to decide approval",
			zap.Int64("id", id),
			zap.String("status", status),
			zap.Error(err))
		return 0, fmt.Errorf("failed to decide approval: %w", err)
	}

	return result.RowsAffected()
}

// RejectPending terminates every remaining PENDING row for an entity with a
// system note. Used for the cascade after a rejection.
func (r *ApprovalRepository) RejectPending(tx *sql.Tx, entityType models.EntityType, entityID, note string, at time.Time) error {
	query := `
		UPDATE approvals
		SET status = ?, decided_at = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE entity_type = ? AND entity_id = ? AND status = ?
	`

	_, err := pick(r.db, tx).Exec(query,
		models.ApprovalStatusRejected,
		at,
		note,
		entityType,
		entityID,
		models.ApprovalStatusPending,
	)
	if err != nil {
		r.logger.Error("Failed to reject pending approvals",
			zap.String("entity_type", string(entityType)),
			zap.String("entity_id", entityID),
			zap.Error(err))
		return fmt.Errorf("failed to reject pending approvals: %w", err)
	}

	return nil
}

const selectApproval = `
	SELECT id, entity_type, entity_id, step, approver_id, status, decided_at, notes, idempotency_key, created_at, updated_at
	FROM approvals`

func (r *ApprovalRepository) queryApprovals(tx *sql.Tx, query string, args ...interface{}) ([]*models.Approval, error) {
	rows, err := pick(r.db, tx).Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to query approvals", zap.Error(err))
		return nil, fmt.Errorf("failed to query approvals: %w", err)
	}
	defer rows.Close()

	var approvals []*models.Approval
	for rows.Next() {
		var a models.Approval
		var decidedAt sql.NullTime
		var notes, idemKey sql.NullString

		err := rows.Scan(
			&a.ID,
			&a.EntityType,
			&a.EntityID,
			&a.Step,
			&a.ApproverID,
			&a.Status,
			&decidedAt,
			&notes,
			&idemKey,
			&a.CreatedAt,
			&a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}

		if decidedAt.Valid {
			a.DecidedAt = &decidedAt.Time
		}
		if notes.Valid {
			a.Notes = notes.String
		}
		if idemKey.Valid {
			a.IdempotencyKey = idemKey.String
		}

		approvals = append(approvals, &a)
	}

	return approvals, rows.Err()
}

func scanApproval(row *sql.Row) (*models.Approval, error) {
	var a models.Approval
	var decidedAt sql.NullTime
	var notes, idemKey sql.NullString

	err := row.Scan(
		&a.ID,
		&a.EntityType,
		&a.EntityID,
		&a.Step,
		&a.ApproverID,
		&a.Status,
		&decidedAt,
		&notes,
		&idemKey,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if decidedAt.Valid {
		a.DecidedAt = &decidedAt.Time
	}
	if notes.Valid {
		a.Notes = notes.String
	}
	if idemKey.Valid {
		a.IdempotencyKey = idemKey.String
	}

	return &a, nil
}
