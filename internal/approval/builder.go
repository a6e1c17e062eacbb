package approval

import (
	"database/sql"
	"fmt"

	"github.com/garyjia/procure-flow/internal/models"
	"github.com/garyjia/procure-flow/internal/repository"
	"go.uber.org/zap"
)

// ApproverResolver computes the ordered approver list for a requester.
type ApproverResolver interface {
	ResolveApprovers(tx *sql.Tx, requesterID string) ([]string, error)
}

// ChainBuilder persists the ordered approval chain for a governed entity.
// Each step upsert is independently idempotent, so a retried build leaves an
// existing chain untouched.
type ChainBuilder struct {
	approvals *repository.ApprovalRepository
	resolver  ApproverResolver
	logger    *zap.Logger
}

// NewChainBuilder creates a new chain builder
func NewChainBuilder(approvals *repository.ApprovalRepository, resolver ApproverResolver, logger *zap.Logger) *ChainBuilder {
	return &ChainBuilder{
		approvals: approvals,
		resolver:  resolver,
		logger:    logger,
	}
}

// Build resolves approvers for the requester and upserts PENDING steps
// 1..N for the entity, inside the caller's transaction. Returns the full
// chain as persisted.
func (b *ChainBuilder) Build(tx *sql.Tx, entityType models.EntityType, entityID, requesterID string) ([]*models.Approval, error) {
	approvers, err := b.resolver.ResolveApprovers(tx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve approvers: %w", err)
	}

	for i, approverID := range approvers {
		step := i + 1
		slot := &models.Approval{
			EntityType:     entityType,
			EntityID:       entityID,
			Step:           step,
			ApproverID:     approverID,
			Status:         models.ApprovalStatusPending,
			IdempotencyKey: models.ChainSlotKey(entityType, entityID, step),
		}
		if err := b.approvals.UpsertStep(tx, slot); err != nil {
			return nil, err
		}
	}

	chain, err := b.approvals.ListByEntity(tx, entityType, entityID)
	if err != nil {
		return nil, err
	}

	b.logger.Info("Approval chain built",
		zap.String("entity_type", string(entityType)),
		zap.String("entity_id", entityID),
		zap.Int("steps", len(chain)))

	return chain, nil
}
