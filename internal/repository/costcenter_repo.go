package repository

import (
	"database/sql"
	"fmt"

	"github.com/garyjia/procure-flow/internal/models"
	"go.uber.org/zap"
)

// CostCenterRepository handles cost center database operations
type CostCenterRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCostCenterRepository creates a new cost center repository
func NewCostCenterRepository(db *sql.DB, logger *zap.Logger) *CostCenterRepository {
	return &CostCenterRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new cost center
func (r *CostCenterRepository) Create(tx *sql.Tx, cc *models.CostCenter) error {
	query := `
		INSERT INTO cost_centers (id, code, name, owner_id)
		VALUES (?, ?, ?, ?)
	`

	var ownerID sql.NullString
	if cc.OwnerID != nil {
		ownerID = sql.NullString{String: *cc.OwnerID, Valid: true}
	}

	_, err := pick(r.db, tx).Exec(query, cc.ID, cc.Code, cc.Name, ownerID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: cost center code %s", ErrDuplicate, cc.Code)
	}
	if err != nil {
		r.logger.Error("Failed to create cost center", zap.String("code", cc.Code), zap.Error(err))
		return fmt.Errorf("failed to create cost center: %w", err)
	}

	return nil
}

// GetByID retrieves a cost center by ID. Returns nil when not found.
func (r *CostCenterRepository) GetByID(tx *sql.Tx, id string) (*models.CostCenter, error) {
	query := `
		SELECT id, code, name, owner_id, created_at
		FROM cost_centers
		WHERE id = ?
	`

	var cc models.CostCenter
	var ownerID sql.NullString

	err := pick(r.db, tx).QueryRow(query, id).Scan(&cc.ID, &cc.Code, &cc.Name, &ownerID, &cc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get cost center", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get cost center: %w", err)
	}

	if ownerID.Valid {
		cc.OwnerID = &ownerID.String
	}

	return &cc, nil
}

// List returns cost centers with pagination
func (r *CostCenterRepository) List(limit, offset int) ([]*models.CostCenter, error) {
	query := `
		SELECT id, code, name, owner_id, created_at
		FROM cost_centers
		ORDER BY code
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list cost centers", zap.Error(err))
		return nil, fmt.Errorf("failed to list cost centers: %w", err)
	}
	defer rows.Close()

	var centers []*models.CostCenter
	for rows.Next() {
		var cc models.CostCenter
		var ownerID sql.NullString
		if err := rows.Scan(&cc.ID, &cc.Code, &cc.Name, &ownerID, &cc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cost center: %w", err)
		}
		if ownerID.Valid {
			cc.OwnerID = &ownerID.String
		}
		centers = append(centers, &cc)
	}

	return centers, rows.Err()
}
