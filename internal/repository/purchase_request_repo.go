package repository

import (
	"database/sql"
	"fmt"

	"github.com/garyjia/procure-flow/internal/models"
	"go.uber.org/zap"
)

// PurchaseRequestRepository handles purchase request database operations
type PurchaseRequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPurchaseRequestRepository creates a new purchase request repository
func NewPurchaseRequestRepository(db *sql.DB, logger *zap.Logger) *PurchaseRequestRepository {
	return &PurchaseRequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new purchase request with its line items
func (r *PurchaseRequestRepository) Create(tx *sql.Tx, pr *models.PurchaseRequest) error {
	query := `
		INSERT INTO purchase_requests (id, requester_id, cost_center_id, description, total_amount, status, idempotency_key)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var idemKey sql.NullString
	if pr.IdempotencyKey != "" {
		idemKey = sql.NullString{String: pr.IdempotencyKey, Valid: true}
	}

	_, err := pick(r.db, tx).Exec(query,
		pr.ID,
		pr.RequesterID,
		pr.CostCenterID,
		pr.Description,
		pr.TotalAmount,
		pr.Status,
		idemKey,
	)
	if err != nil {
		r.logger.Error("Failed to create purchase request", zap.String("id", pr.ID), zap.Error(err))
		return fmt.Errorf("failed to create purchase request: %w", err)
	}

	itemQuery := `
		INSERT INTO purchase_request_items (purchase_request_id, description, quantity, unit_price)
		VALUES (?, ?, ?, ?)
	`
	for i := range pr.Items {
		item := &pr.Items[i]
		item.PurchaseRequestID = pr.ID
		result, err := pick(r.db, tx).Exec(itemQuery, pr.ID, item.Description, item.Quantity, item.UnitPrice)
		if err != nil {
			r.logger.Error("Failed to create line item",
				zap.String("purchase_request_id", pr.ID),
				zap.Error(err))
			return fmt.Errorf("failed to create line item: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		item.ID = id
	}

	return nil
}

// GetByID retrieves a purchase request with its line items. Returns nil when
// not found.
func (r *PurchaseRequestRepository) GetByID(tx *sql.Tx, id string) (*models.PurchaseRequest, error) {
	query := `
		SELECT id, requester_id, cost_center_id, description, total_amount, status, idempotency_key, created_at, updated_at
		FROM purchase_requests
		WHERE id = ?
	`

	pr, err := scanPurchaseRequest(pick(r.db, tx).QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get purchase request", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get purchase request: %w", err)
	}

	items, err := r.getItems(tx, id)
	if err != nil {
		return nil, err
	}
	pr.Items = items

	return pr, nil
}

// GetByIdempotencyKey retrieves a purchase request by its idempotency key.
// Returns nil when no request carries the key.
func (r *PurchaseRequestRepository) GetByIdempotencyKey(tx *sql.Tx, key string) (*models.PurchaseRequest, error) {
	query := `
		SELECT id, requester_id, cost_center_id, description, total_amount, status, idempotency_key, created_at, updated_at
		FROM purchase_requests
		WHERE idempotency_key = ?
	`

	pr, err := scanPurchaseRequest(pick(r.db, tx).QueryRow(query, key))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get purchase request by idempotency key", zap.Error(err))
		return nil, fmt.Errorf("failed to get purchase request: %w", err)
	}

	items, err := r.getItems(tx, pr.ID)
	if err != nil {
		return nil, err
	}
	pr.Items = items

	return pr, nil
}

// List returns purchase requests with pagination, newest first
func (r *PurchaseRequestRepository) List(limit, offset int) ([]*models.PurchaseRequest, error) {
	query := `
		SELECT id, requester_id, cost_center_id, description, total_amount, status, idempotency_key, created_at, updated_at
		FROM purchase_requests
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list purchase requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list purchase requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.PurchaseRequest
	for rows.Next() {
		pr, err := scanPurchaseRequestRows(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, pr)
	}

	return requests, rows.Err()
}

// SetStatus transitions a purchase request out of fromStatus. Returns the
// number of rows changed; zero means the request was not in fromStatus.
func (r *PurchaseRequestRepository) SetStatus(tx *sql.Tx, id, fromStatus, toStatus string) (int64, error) {
	query := `
		UPDATE purchase_requests
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	result, err := pick(r.db, tx).Exec(query, toStatus, id, fromStatus)
	if err != nil {
		r.logger.Error("Failed to update purchase request status",
			zap.String("id", id),
			zap.String("to_status", toStatus),
			zap.Error(err))
		return 0, fmt.Errorf("failed to update purchase request status: %w", err)
	}

	return result.RowsAffected()
}

func (r *PurchaseRequestRepository) getItems(tx *sql.Tx, prID string) ([]models.LineItem, error) {
	query := `
		SELECT id, purchase_request_id, description, quantity, unit_price
		FROM purchase_request_items
		WHERE purchase_request_id = ?
		ORDER BY id
	`

	rows, err := pick(r.db, tx).Query(query, prID)
	if err != nil {
		r.logger.Error("Failed to get line items", zap.String("purchase_request_id", prID), zap.Error(err))
		return nil, fmt.Errorf("failed to get line items: %w", err)
	}
	defer rows.Close()

	var items []models.LineItem
	for rows.Next() {
		var item models.LineItem
		if err := rows.Scan(&item.ID, &item.PurchaseRequestID, &item.Description, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func scanPurchaseRequest(row *sql.Row) (*models.PurchaseRequest, error) {
	var pr models.PurchaseRequest
	var idemKey sql.NullString

	err := row.Scan(
		&pr.ID,
		&pr.RequesterID,
		&pr.CostCenterID,
		&pr.Description,
		&pr.TotalAmount,
		&pr.Status,
		&idemKey,
		&pr.CreatedAt,
		&pr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if idemKey.Valid {
		pr.IdempotencyKey = idemKey.String
	}

	return &pr, nil
}

func scanPurchaseRequestRows(rows *sql.Rows) (*models.PurchaseRequest, error) {
	var pr models.PurchaseRequest
	var idemKey sql.NullString

	err := rows.Scan(
		&pr.ID,
		&pr.RequesterID,
		&pr.CostCenterID,
		&pr.Description,
		&pr.TotalAmount,
		&pr.Status,
		&idemKey,
		&pr.CreatedAt,
		&pr.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan purchase request: %w", err)
	}

	if idemKey.Valid {
		pr.IdempotencyKey = idemKey.String
	}

	return &pr, nil
}
