package repository

import (
	"database/sql"
	"fmt"

	"github.com/garyjia/procure-flow/internal/models"
	"go.uber.org/zap"
)

// AssetRepository handles asset ledger database operations
type AssetRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *sql.DB, logger *zap.Logger) *AssetRepository {
	return &AssetRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new asset
func (r *AssetRepository) Create(tx *sql.Tx, asset *models.Asset) error {
	query := `
		INSERT INTO assets (id, tag, name, cost_center_id, current_location)
		VALUES (?, ?, ?, ?, ?)
	`

	var ccID sql.NullString
	if asset.CostCenterID != nil {
		ccID = sql.NullString{String: *asset.CostCenterID, Valid: true}
	}

	_, err := pick(r.db, tx).Exec(query, asset.ID, asset.Tag, asset.Name, ccID, asset.CurrentLocation)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: asset tag %s", ErrDuplicate, asset.Tag)
	}
	if err != nil {
		r.logger.Error("Failed to create asset", zap.String("tag", asset.Tag), zap.Error(err))
		return fmt.Errorf("failed to create asset: %w", err)
	}

	return nil
}

// GetByID retrieves an asset by ID. Returns nil when not found.
func (r *AssetRepository) GetByID(tx *sql.Tx, id string) (*models.Asset, error) {
	query := `
		SELECT id, tag, name, cost_center_id, current_location, created_at, updated_at
		FROM assets
		WHERE id = ?
	`

	var asset models.Asset
	var ccID sql.NullString

	err := pick(r.db, tx).QueryRow(query, id).Scan(
		&asset.ID,
		&asset.Tag,
		&asset.Name,
		&ccID,
		&asset.CurrentLocation,
		&asset.CreatedAt,
		&asset.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get asset", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	if ccID.Valid {
		asset.CostCenterID = &ccID.String
	}

	return &asset, nil
}

// UpdateLocation moves an asset to a new current location
func (r *AssetRepository) UpdateLocation(tx *sql.Tx, id, location string) error {
	query := `
		UPDATE assets
		SET current_location = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := pick(r.db, tx).Exec(query, location, id)
	if err != nil {
		r.logger.Error("Failed to update asset location", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update asset location: %w", err)
	}

	return nil
}

// CreateMovement appends a movement row to the ledger
func (r *AssetRepository) CreateMovement(tx *sql.Tx, movement *models.AssetMovement) error {
	query := `
		INSERT INTO asset_movements (asset_id, movement_type, from_location, to_location, moved_by, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	var notes sql.NullString
	if movement.Notes != "" {
		notes = sql.NullString{String: movement.Notes, Valid: true}
	}

	result, err := pick(r.db, tx).Exec(query,
		movement.AssetID,
		movement.MovementType,
		movement.FromLocation,
		movement.ToLocation,
		movement.MovedBy,
		notes,
	)
	if err != nil {
		r.logger.Error("Failed to create asset movement",
			zap.String("asset_id", movement.AssetID),
			zap.Error(err))
		return fmt.Errorf("failed to create asset movement: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	movement.ID = id

	return nil
}

// ListMovements returns the movement history for an asset, oldest first
func (r *AssetRepository) ListMovements(tx *sql.Tx, assetID string) ([]*models.AssetMovement, error) {
	query := `
		SELECT id, asset_id, movement_type, from_location, to_location, moved_by, notes, created_at
		FROM asset_movements
		WHERE asset_id = ?
		ORDER BY id
	`

	rows, err := pick(r.db, tx).Query(query, assetID)
	if err != nil {
		r.logger.Error("Failed to list asset movements", zap.String("asset_id", assetID), zap.Error(err))
		return nil, fmt.Errorf("failed to list asset movements: %w", err)
	}
	defer rows.Close()

	var movements []*models.AssetMovement
	for rows.Next() {
		var m models.AssetMovement
		var notes sql.NullString

		err := rows.Scan(
			&m.ID,
			&m.AssetID,
			&m.MovementType,
			&m.FromLocation,
			&m.ToLocation,
			&m.MovedBy,
			&notes,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset movement: %w", err)
		}

		if notes.Valid {
			m.Notes = notes.String
		}

		movements = append(movements, &m)
	}

	return movements, rows.Err()
}
