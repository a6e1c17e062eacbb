// Package approval implements the sequential approval workflow engine:
// ordered chains of human approvers over procurement documents, with
// idempotent chain creation and exactly-once decision side effects.
package approval

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/procure-flow/internal/models"
	"github.com/garyjia/procure-flow/internal/repository"
	"github.com/garyjia/procure-flow/pkg/database"
	"go.uber.org/zap"
)

// AuditSink receives post-commit events. May be nil.
type AuditSink interface {
	Record(event repository.AuditEvent)
}

// DecisionInput describes one approver's decision call.
type DecisionInput struct {
	ActorID        string
	EntityType     models.EntityType
	EntityID       string
	Decision       string // APPROVE or REJECT
	Notes          string
	IdempotencyKey string
}

// Engine is the decision processor. All mutation for one decision happens in
// a single transaction; the current step is derived inside it as the lowest
// pending step, never cached.
type Engine struct {
	db        *database.DB
	approvals *repository.ApprovalRepository
	registry  Registry
	audit     AuditSink
	logger    *zap.Logger
}

// NewEngine creates a new decision engine
func NewEngine(
	db *database.DB,
	approvals *repository.ApprovalRepository,
	registry Registry,
	audit AuditSink,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		db:        db,
		approvals: approvals,
		registry:  registry,
		audit:     audit,
		logger:    logger,
	}
}

// Decide validates and records a single decision on the entity's current
// step. Replays under the same idempotency key return the original row
// without re-executing side effects.
func (e *Engine) Decide(in DecisionInput) (*models.Approval, error) {
	if in.Decision != models.DecisionApprove && in.Decision != models.DecisionReject {
		return nil, ErrInvalidDecision
	}
	entity, ok := e.registry[in.EntityType]
	if !ok {
		return nil, ErrUnknownEntityType
	}

	var result *models.Approval
	var replayed bool

	err := e.db.WithTransaction(func(tx *sql.Tx) error {
		// Outer replay guard for the whole decision call.
		if in.IdempotencyKey != "" {
			existing, err := e.approvals.GetByIdempotencyKey(tx, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				result = existing
				replayed = true
				return nil
			}
		}

		pending, err := e.approvals.ListPending(tx, in.EntityType, in.EntityID)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return ErrNoPendingApprovals
		}

		current := pending[0]
		if current.ApproverID != in.ActorID {
			return ErrNotCurrentApprover
		}

		now := time.Now().UTC()
		status := models.ApprovalStatusApproved
		if in.Decision == models.DecisionReject {
			status = models.ApprovalStatusRejected
		}

		// Re-check inside the transaction: a racing decision that committed
		// first leaves this step non-PENDING and the update touches no rows.
		affected, err := e.approvals.Decide(tx, current.ID, status, in.Notes, in.IdempotencyKey, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrStepAlreadyDecided
		}

		if in.Decision == models.DecisionReject {
			note := fmt.Sprintf("auto-rejected: step %d was rejected", current.Step)
			if err := e.approvals.RejectPending(tx, in.EntityType, in.EntityID, note, now); err != nil {
				return err
			}
			changed, err := entity.markRejected(tx, in.EntityID)
			if err != nil {
				return err
			}
			if changed == 0 {
				return ErrStateConflict
			}
		} else {
			remaining, err := e.approvals.CountPending(tx, in.EntityType, in.EntityID)
			if err != nil {
				return err
			}
			if remaining == 0 {
				changed, err := entity.markApproved(tx, in.EntityID, in.ActorID, now)
				if err != nil {
					return err
				}
				if changed == 0 {
					return ErrStateConflict
				}
			}
		}

		result, err = e.approvals.GetByID(tx, current.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !replayed {
		e.logger.Info("Decision recorded",
			zap.String("entity_type", string(in.EntityType)),
			zap.String("entity_id", in.EntityID),
			zap.Int("step", result.Step),
			zap.String("decision", in.Decision),
			zap.String("actor_id", in.ActorID))

		if e.audit != nil {
			e.audit.Record(repository.AuditEvent{
				EntityType: string(in.EntityType),
				EntityID:   in.EntityID,
				Action:     "DECISION_" + in.Decision,
				ActorID:    in.ActorID,
				Detail:     fmt.Sprintf("step %d", result.Step),
			})
		}
	}

	return result, nil
}

// ListApprovals returns the full chain for an entity, ordered by step.
func (e *Engine) ListApprovals(entityType models.EntityType, entityID string) ([]*models.Approval, error) {
	if _, ok := e.registry[entityType]; !ok {
		return nil, ErrUnknownEntityType
	}
	return e.approvals.ListByEntity(nil, entityType, entityID)
}
