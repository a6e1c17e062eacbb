// Package audit is a fire-and-forget sink for post-commit events. Events are
// recorded strictly after the originating transaction has committed and are
// never part of it; a dropped event does not affect workflow correctness.
package audit

import (
	"sync"

	"github.com/garyjia/procure-flow/internal/repository"
	"go.uber.org/zap"
)

// Recorder buffers audit events and persists them on a background goroutine.
type Recorder struct {
	repo   *repository.AuditEventRepository
	events chan repository.AuditEvent
	logger *zap.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewRecorder creates a recorder and starts its writer goroutine.
func NewRecorder(repo *repository.AuditEventRepository, bufferSize int, logger *zap.Logger) *Recorder {
	r := &Recorder{
		repo:   repo,
		events: make(chan repository.AuditEvent, bufferSize),
		logger: logger,
	}

	r.wg.Add(1)
	go r.run()

	return r
}

// Record enqueues an event without blocking the request path. Events are
// dropped with a warning when the buffer is full.
func (r *Recorder) Record(event repository.AuditEvent) {
	select {
	case r.events <- event:
	default:
		r.logger.Warn("Audit buffer full, dropping event",
			zap.String("entity_type", event.EntityType),
			zap.String("entity_id", event.EntityID),
			zap.String("action", event.Action))
	}
}

// Close drains buffered events and stops the writer.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.events)
	})
	r.wg.Wait()
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for event := range r.events {
		if err := r.repo.Insert(event); err != nil {
			r.logger.Error("Failed to persist audit event", zap.Error(err))
		}
	}
}
