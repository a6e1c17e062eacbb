package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// AuditEvent is a post-commit record of a state-changing operation.
type AuditEvent struct {
	EntityType string
	EntityID   string
	Action     string
	ActorID    string
	Detail     string
}

// AuditEventRepository persists audit events. Writes happen outside any
// business transaction; the sink is fire-and-forget.
type AuditEventRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditEventRepository creates a new audit event repository
func NewAuditEventRepository(db *sql.DB, logger *zap.Logger) *AuditEventRepository {
	return &AuditEventRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends an audit event
func (r *AuditEventRepository) Insert(event AuditEvent) error {
	query := `
		INSERT INTO audit_events (entity_type, entity_id, action, actor_id, detail)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, event.EntityType, event.EntityID, event.Action, event.ActorID, event.Detail)
	if err != nil {
		r.logger.Error("Failed to insert audit event",
			zap.String("entity_type", event.EntityType),
			zap.String("entity_id", event.EntityID),
			zap.Error(err))
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	return nil
}
