// Package assets is the asset ledger: registration and movement bookkeeping.
// Movements are not gated by approvals; each record is a movement row plus
// the asset's current-location update in one transaction.
package assets

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/procure-flow/internal/models"
	"github.com/garyjia/procure-flow/internal/repository"
	"github.com/garyjia/procure-flow/pkg/database"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrAssetNotFound is returned when a movement references an unknown asset.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrMoverNotFound is returned when a movement names an unknown user.
	ErrMoverNotFound = errors.New("moving user not found")

	// ErrInvalidAsset marks malformed registration input.
	ErrInvalidAsset = errors.New("invalid asset")

	// ErrInvalidMovement marks malformed movement input.
	ErrInvalidMovement = errors.New("invalid movement")
)

// Service records asset registrations and movements.
type Service struct {
	db     *database.DB
	assets *repository.AssetRepository
	users  *repository.UserRepository
	logger *zap.Logger
}

// NewService creates a new asset ledger service
func NewService(db *database.DB, assets *repository.AssetRepository, users *repository.UserRepository, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		assets: assets,
		users:  users,
		logger: logger,
	}
}

// RegisterAssetInput carries asset registration parameters.
type RegisterAssetInput struct {
	Tag          string
	Name         string
	CostCenterID string
	Location     string
}

// RegisterAsset creates a new asset record.
func (s *Service) RegisterAsset(in RegisterAssetInput) (*models.Asset, error) {
	if in.Tag == "" || in.Name == "" {
		return nil, fmt.Errorf("%w: tag and name are required", ErrInvalidAsset)
	}

	asset := &models.Asset{
		ID:              uuid.NewString(),
		Tag:             in.Tag,
		Name:            in.Name,
		CurrentLocation: in.Location,
	}
	if in.CostCenterID != "" {
		asset.CostCenterID = &in.CostCenterID
	}

	if err := s.assets.Create(nil, asset); err != nil {
		return nil, err
	}

	s.logger.Info("Asset registered", zap.String("id", asset.ID), zap.String("tag", asset.Tag))
	return asset, nil
}

// RecordMovementInput carries movement parameters.
type RecordMovementInput struct {
	AssetID      string
	MovementType string
	ToLocation   string
	MovedBy      string
	Notes        string
}

// RecordMovement appends a ledger movement and updates the asset's current
// location atomically. The from-location is always the asset's location at
// the time of the movement.
func (s *Service) RecordMovement(in RecordMovementInput) (*models.AssetMovement, error) {
	switch in.MovementType {
	case models.MovementCheckIn, models.MovementCheckOut, models.MovementTransfer:
	default:
		return nil, fmt.Errorf("%w: unknown movement type %q", ErrInvalidMovement, in.MovementType)
	}
	if in.MovedBy == "" {
		return nil, fmt.Errorf("%w: moved_by is required", ErrInvalidMovement)
	}

	var movement *models.AssetMovement

	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		asset, err := s.assets.GetByID(tx, in.AssetID)
		if err != nil {
			return err
		}
		if asset == nil {
			return ErrAssetNotFound
		}

		mover, err := s.users.GetByID(tx, in.MovedBy)
		if err != nil {
			return err
		}
		if mover == nil {
			return ErrMoverNotFound
		}

		movement = &models.AssetMovement{
			AssetID:      in.AssetID,
			MovementType: in.MovementType,
			FromLocation: asset.CurrentLocation,
			ToLocation:   in.ToLocation,
			MovedBy:      in.MovedBy,
			Notes:        in.Notes,
		}

		if err := s.assets.CreateMovement(tx, movement); err != nil {
			return err
		}

		return s.assets.UpdateLocation(tx, in.AssetID, in.ToLocation)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Asset movement recorded",
		zap.String("asset_id", in.AssetID),
		zap.String("movement_type", in.MovementType),
		zap.String("to_location", in.ToLocation))

	return movement, nil
}

// GetAsset returns an asset by ID.
func (s *Service) GetAsset(id string) (*models.Asset, error) {
	asset, err := s.assets.GetByID(nil, id)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, ErrAssetNotFound
	}
	return asset, nil
}

// ListMovements returns the movement history for an asset, oldest first.
func (s *Service) ListMovements(assetID string) ([]*models.AssetMovement, error) {
	return s.assets.ListMovements(nil, assetID)
}
