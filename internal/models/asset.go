package models

import "time"

// Asset is a tracked item in the asset ledger.
type Asset struct {
	ID              string    `json:"id"`
	Tag             string    `json:"tag"`
	Name            string    `json:"name"`
	CostCenterID    *string   `json:"cost_center_id,omitempty"`
	CurrentLocation string    `json:"current_location"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// AssetMovement records a single ledger movement for an asset.
// Movements are bookkeeping only; they are not gated by approvals.
type AssetMovement struct {
	ID           int64     `json:"id"`
	AssetID      string    `json:"asset_id"`
	MovementType string    `json:"movement_type"` // CHECK_IN, CHECK_OUT, TRANSFER
	FromLocation string    `json:"from_location"`
	ToLocation   string    `json:"to_location"`
	MovedBy      string    `json:"moved_by"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Movement type constants
const (
	MovementCheckIn  = "CHECK_IN"
	MovementCheckOut = "CHECK_OUT"
	MovementTransfer = "TRANSFER"
)
