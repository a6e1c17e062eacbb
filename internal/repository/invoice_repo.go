package repository

import (
	"database/sql"
	"fmt"

	"github.com/garyjia/procure-flow/internal/models"
	"go.uber.org/zap"
)

// InvoiceRepository handles invoice database operations
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new invoice
func (r *InvoiceRepository) Create(tx *sql.Tx, inv *models.Invoice) error {
	query := `
		INSERT INTO invoices (id, purchase_order_id, vendor_id, invoice_number, issue_date, total_amount, status, idempotency_key)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var poID, idemKey sql.NullString
	if inv.PurchaseOrderID != nil {
		poID = sql.NullString{String: *inv.PurchaseOrderID, Valid: true}
	}
	if inv.IdempotencyKey != "" {
		idemKey = sql.NullString{String: inv.IdempotencyKey, Valid: true}
	}

	_, err := pick(r.db, tx).Exec(query,
		inv.ID,
		poID,
		inv.VendorID,
		inv.InvoiceNumber,
		inv.IssueDate,
		inv.TotalAmount,
		inv.Status,
		idemKey,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice", zap.String("id", inv.ID), zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	return nil
}

// GetByID retrieves an invoice by ID. Returns nil when not found.
func (r *InvoiceRepository) GetByID(tx *sql.Tx, id string) (*models.Invoice, error) {
	inv, err := r.getWhere(tx, "id = ?", id)
	if err != nil {
		r.logger.Error("Failed to get invoice", zap.String("id", id), zap.Error(err))
	}
	return inv, err
}

// GetByIdempotencyKey retrieves an invoice by its idempotency key. Returns
// nil when no invoice carries the key.
func (r *InvoiceRepository) GetByIdempotencyKey(tx *sql.Tx, key string) (*models.Invoice, error) {
	inv, err := r.getWhere(tx, "idempotency_key = ?", key)
	if err != nil {
		r.logger.Error("Failed to get invoice by idempotency key", zap.Error(err))
	}
	return inv, err
}

func (r *InvoiceRepository) getWhere(tx *sql.Tx, where string, arg interface{}) (*models.Invoice, error) {
	query := `
		SELECT id, purchase_order_id, vendor_id, invoice_number, issue_date, total_amount, status, idempotency_key, created_at, updated_at
		FROM invoices
		WHERE ` + where

	var inv models.Invoice
	var poID, idemKey sql.NullString

	err := pick(r.db, tx).QueryRow(query, arg).Scan(
		&inv.ID,
		&poID,
		&inv.VendorID,
		&inv.InvoiceNumber,
		&inv.IssueDate,
		&inv.TotalAmount,
		&inv.Status,
		&idemKey,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if poID.Valid {
		inv.PurchaseOrderID = &poID.String
	}
	if idemKey.Valid {
		inv.IdempotencyKey = idemKey.String
	}

	return &inv, nil
}

// List returns invoices with pagination, newest first
func (r *InvoiceRepository) List(limit, offset int) ([]*models.Invoice, error) {
	query := `
		SELECT id, purchase_order_id, vendor_id, invoice_number, issue_date, total_amount, status, idempotency_key, created_at, updated_at
		FROM invoices
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		var inv models.Invoice
		var poID, idemKey sql.NullString

		err := rows.Scan(
			&inv.ID,
			&poID,
			&inv.VendorID,
			&inv.InvoiceNumber,
			&inv.IssueDate,
			&inv.TotalAmount,
			&inv.Status,
			&idemKey,
			&inv.CreatedAt,
			&inv.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}

		if poID.Valid {
			inv.PurchaseOrderID = &poID.String
		}
		if idemKey.Valid {
			inv.IdempotencyKey = idemKey.String
		}

		invoices = append(invoices, &inv)
	}

	return invoices, rows.Err()
}

// SetStatus transitions an invoice out of fromStatus. Returns the number of
// rows changed; zero means the invoice was not in fromStatus.
func (r *InvoiceRepository) SetStatus(tx *sql.Tx, id, fromStatus, toStatus string) (int64, error) {
	query := `
		UPDATE invoices
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	result, err := pick(r.db, tx).Exec(query, toStatus, id, fromStatus)
	if err != nil {
		r.logger.Error("Failed to update invoice status",
			zap.String("id", id),
			zap.String("to_status", toStatus),
			zap.Error(err))
		return 0, fmt.Errorf("failed to update invoice status: %w", err)
	}

	return result.RowsAffected()
}
