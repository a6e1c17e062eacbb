package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/procure-flow/internal/models"
	"go.uber.org/zap"
)

// PurchaseOrderRepository handles purchase order database operations
type PurchaseOrderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPurchaseOrderRepository creates a new purchase order repository
func NewPurchaseOrderRepository(db *sql.DB, logger *zap.Logger) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new purchase order
func (r *PurchaseOrderRepository) Create(tx *sql.Tx, po *models.PurchaseOrder) error {
	query := `
		INSERT INTO purchase_orders (id, purchase_request_id, vendor_id, total_amount, status, idempotency_key)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var prID, idemKey sql.NullString
	if po.PurchaseRequestID != nil {
		prID = sql.NullString{String: *po.PurchaseRequestID, Valid: true}
	}
	if po.IdempotencyKey != "" {
		idemKey = sql.NullString{String: po.IdempotencyKey, Valid: true}
	}

	_, err := pick(r.db, tx).Exec(query, po.ID, prID, po.VendorID, po.TotalAmount, po.Status, idemKey)
	if err != nil {
		r.logger.Error("Failed to create purchase order", zap.String("id", po.ID), zap.Error(err))
		return fmt.Errorf("failed to create purchase order: %w", err)
	}

	return nil
}

// GetByID retrieves a purchase order by ID. Returns nil when not found.
func (r *PurchaseOrderRepository) GetByID(tx *sql.Tx, id string) (*models.PurchaseOrder, error) {
	po, err := r.getWhere(tx, "id = ?", id)
	if err != nil {
		r.logger.Error("Failed to get purchase order", zap.String("id", id), zap.Error(err))
	}
	return po, err
}

// GetByIdempotencyKey retrieves a purchase order by its idempotency key.
// Returns nil when no order carries the key.
func (r *PurchaseOrderRepository) GetByIdempotencyKey(tx *sql.Tx, key string) (*models.PurchaseOrder, error) {
	po, err := r.getWhere(tx, "idempotency_key = ?", key)
	if err != nil {
		r.logger.Error("Failed to get purchase order by idempotency key", zap.Error(err))
	}
	return po, err
}

func (r *PurchaseOrderRepository) getWhere(tx *sql.Tx, where string, arg interface{}) (*models.PurchaseOrder, error) {
	query := `
		SELECT id, purchase_request_id, vendor_id, total_amount, status, approved_by, approved_at, idempotency_key, created_at, updated_at
		FROM purchase_orders
		WHERE ` + where

	var po models.PurchaseOrder
	var prID, approvedBy, idemKey sql.NullString
	var approvedAt sql.NullTime

	err := pick(r.db, tx).QueryRow(query, arg).Scan(
		&po.ID,
		&prID,
		&po.VendorID,
		&po.TotalAmount,
		&po.Status,
		&approvedBy,
		&approvedAt,
		&idemKey,
		&po.CreatedAt,
		&po.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase order: %w", err)
	}

	if prID.Valid {
		po.PurchaseRequestID = &prID.String
	}
	if approvedBy.Valid {
		po.ApprovedBy = &approvedBy.String
	}
	if approvedAt.Valid {
		po.ApprovedAt = &approvedAt.Time
	}
	if idemKey.Valid {
		po.IdempotencyKey = idemKey.String
	}

	return &po, nil
}

// List returns purchase orders with pagination, newest first
func (r *PurchaseOrderRepository) List(limit, offset int) ([]*models.PurchaseOrder, error) {
	query := `
		SELECT id, purchase_request_id, vendor_id, total_amount, status, approved_by, approved_at, idempotency_key, created_at, updated_at
		FROM purchase_orders
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list purchase orders", zap.Error(err))
		return nil, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []*models.PurchaseOrder
	for rows.Next() {
		var po models.PurchaseOrder
		var prID, approvedBy, idemKey sql.NullString
		var approvedAt sql.NullTime

		err := rows.Scan(
			&po.ID,
			&prID,
			&po.VendorID,
			&po.TotalAmount,
			&po.Status,
			&approvedBy,
			&approvedAt,
			&idemKey,
			&po.CreatedAt,
			&po.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase order: %w", err)
		}

		if prID.Valid {
			po.PurchaseRequestID = &prID.String
		}
		if approvedBy.Valid {
			po.ApprovedBy = &approvedBy.String
		}
		if approvedAt.Valid {
			po.ApprovedAt = &approvedAt.Time
		}
		if idemKey.Valid {
			po.IdempotencyKey = idemKey.String
		}

		orders = append(orders, &po)
	}

	return orders, rows.Err()
}

// MarkApproved transitions a DRAFT order to APPROVED, stamping the approver.
// Returns the number of rows changed; zero means the order was not DRAFT.
func (r *PurchaseOrderRepository) MarkApproved(tx *sql.Tx, id, approverID string, at time.Time) (int64, error) {
	query := `
		UPDATE purchase_orders
		SET status = ?, approved_by = ?, approved_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	result, err := pick(r.db, tx).Exec(query, models.POStatusApproved, approverID, at, id, models.POStatusDraft)
	if err != nil {
		r.logger.Error("Failed to approve purchase order", zap.String("id", id), zap.Error(err))
		return 0, fmt.Errorf("failed to approve purchase order: %w", err)
	}

	return result.RowsAffected()
}

// SetStatus transitions a purchase order out of fromStatus. Returns the
// number of rows changed; zero means the order was not in fromStatus.
func (r *PurchaseOrderRepository) SetStatus(tx *sql.Tx, id, fromStatus, toStatus string) (int64, error) {
	query := `
		UPDATE purchase_orders
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	result, err := pick(r.db, tx).Exec(query, toStatus, id, fromStatus)
	if err != nil {
		r.logger.Error("Failed to update purchase order status",
			zap.String("id", id),
			zap.String("to_status", toStatus),
			zap.Error(err))
		return 0, fmt.Errorf("failed to update purchase order status: %w", err)
	}

	return result.RowsAffected()
}
