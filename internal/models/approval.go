package models

import (
	"fmt"
	"time"
)

// EntityType tags the governed entity kind an approval chain belongs to.
type EntityType string

// Governed entity types
const (
	EntityTypePR      EntityType = "PR"
	EntityTypePO      EntityType = "PO"
	EntityTypeInvoice EntityType = "INVOICE"
)

// ParseEntityType validates a wire value into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case EntityTypePR, EntityTypePO, EntityTypeInvoice:
		return EntityType(s), nil
	}
	return "", fmt.Errorf("unknown entity type: %q", s)
}

// Approval is one step of the ordered approval chain for a governed entity.
// Steps for a fixed (entity_type, entity_id) are contiguous integers from 1.
type Approval struct {
	ID             int64      `json:"id"`
	EntityType     EntityType `json:"entity_type"`
	EntityID       string     `json:"entity_id"`
	Step           int        `json:"step"`
	ApproverID     string     `json:"approver_id"`
	Status         string     `json:"status"` // PENDING, APPROVED, REJECTED
	DecidedAt      *time.Time `json:"decided_at,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	IdempotencyKey string     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Approval status constants
const (
	ApprovalStatusPending  = "PENDING"
	ApprovalStatusApproved = "APPROVED"
	ApprovalStatusRejected = "REJECTED"
)

// Decision values accepted by the decision processor.
const (
	DecisionApprove = "APPROVE"
	DecisionReject  = "REJECT"
)

// ChainSlotKey returns the deterministic idempotency key for a chain slot,
// e.g. "approval:PR:<id>:step:2". Chain creation upserts on this key format.
func ChainSlotKey(entityType EntityType, entityID string, step int) string {
	return fmt.Sprintf("approval:%s:%s:step:%d", entityType, entityID, step)
}
