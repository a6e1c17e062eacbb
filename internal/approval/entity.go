package approval

import (
	"database/sql"
	"time"

	"github.com/garyjia/procure-flow/internal/models"
	"github.com/garyjia/procure-flow/internal/repository"
)

// governedEntity drives the terminal transition of one entity kind. The three
// procurement state machines are structurally identical, so the engine
// dispatches over this table instead of duplicating cascade logic per kind.
type governedEntity interface {
	markApproved(tx *sql.Tx, id, approverID string, at time.Time) (int64, error)
	markRejected(tx *sql.Tx, id string) (int64, error)
}

// Registry maps entity-type tags to their state machine bindings.
type Registry map[models.EntityType]governedEntity

// NewRegistry binds the three governed entity kinds to their repositories.
func NewRegistry(
	prs *repository.PurchaseRequestRepository,
	pos *repository.PurchaseOrderRepository,
	invoices *repository.InvoiceRepository,
) Registry {
	return Registry{
		models.EntityTypePR:      purchaseRequestEntity{repo: prs},
		models.EntityTypePO:      purchaseOrderEntity{repo: pos},
		models.EntityTypeInvoice: invoiceEntity{repo: invoices},
	}
}

// PR: SUBMITTED -> APPROVED | REJECTED
type purchaseRequestEntity struct {
	repo *repository.PurchaseRequestRepository
}

func (e purchaseRequestEntity) markApproved(tx *sql.Tx, id, _ string, _ time.Time) (int64, error) {
	return e.repo.SetStatus(tx, id, models.PRStatusSubmitted, models.PRStatusApproved)
}

func (e purchaseRequestEntity) markRejected(tx *sql.Tx, id string) (int64, error) {
	return e.repo.SetStatus(tx, id, models.PRStatusSubmitted, models.PRStatusRejected)
}

// PO: DRAFT -> APPROVED | REJECTED, with approver stamp on approval
type purchaseOrderEntity struct {
	repo *repository.PurchaseOrderRepository
}

func (e purchaseOrderEntity) markApproved(tx *sql.Tx, id, approverID string, at time.Time) (int64, error) {
	return e.repo.MarkApproved(tx, id, approverID, at)
}

func (e purchaseOrderEntity) markRejected(tx *sql.Tx, id string) (int64, error) {
	return e.repo.SetStatus(tx, id, models.POStatusDraft, models.POStatusRejected)
}

// Invoice: REGISTERED -> APPROVED | REJECTED
type invoiceEntity struct {
	repo *repository.InvoiceRepository
}

func (e invoiceEntity) markApproved(tx *sql.Tx, id, _ string, _ time.Time) (int64, error) {
	return e.repo.SetStatus(tx, id, models.InvoiceStatusRegistered, models.InvoiceStatusApproved)
}

func (e invoiceEntity) markRejected(tx *sql.Tx, id string) (int64, error) {
	return e.repo.SetStatus(tx, id, models.InvoiceStatusRegistered, models.InvoiceStatusRejected)
}
