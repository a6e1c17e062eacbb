// Package procurement holds the document factories for the three governed
// entities. A factory validates references, persists the root record and
// builds the approval chain in one transaction, so a document is never
// observable without its chain.
package procurement

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/procure-flow/internal/approval"
	"github.com/garyjia/procure-flow/internal/models"
	"github.com/garyjia/procure-flow/internal/repository"
	"github.com/garyjia/procure-flow/pkg/database"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service creates purchase requests, purchase orders and invoices.
type Service struct {
	db          *database.DB
	users       *repository.UserRepository
	costCenters *repository.CostCenterRepository
	vendors     *repository.VendorRepository
	requests    *repository.PurchaseRequestRepository
	orders      *repository.PurchaseOrderRepository
	invoices    *repository.InvoiceRepository
	chains      *approval.ChainBuilder
	audit       approval.AuditSink
	logger      *zap.Logger
}

// NewService creates a new document factory service
func NewService(
	db *database.DB,
	users *repository.UserRepository,
	costCenters *repository.CostCenterRepository,
	vendors *repository.VendorRepository,
	requests *repository.PurchaseRequestRepository,
	orders *repository.PurchaseOrderRepository,
	invoices *repository.InvoiceRepository,
	chains *approval.ChainBuilder,
	audit approval.AuditSink,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:          db,
		users:       users,
		costCenters: costCenters,
		vendors:     vendors,
		requests:    requests,
		orders:      orders,
		invoices:    invoices,
		chains:      chains,
		audit:       audit,
		logger:      logger,
	}
}

// LineItemInput is one requested line on a purchase request.
type LineItemInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// CreatePurchaseRequestInput carries the PR factory parameters.
type CreatePurchaseRequestInput struct {
	RequesterID    string
	CostCenterID   string
	Description    string
	Items          []LineItemInput
	IdempotencyKey string
}

// CreatePurchaseRequest creates a SUBMITTED purchase request with its
// approval chain. A replay under the same idempotency key returns the
// original record.
func (s *Service) CreatePurchaseRequest(in CreatePurchaseRequestInput) (*models.PurchaseRequest, error) {
	if in.RequesterID == "" {
		return nil, fmt.Errorf("%w: requester_id is required", ErrValidation)
	}
	if in.CostCenterID == "" {
		return nil, fmt.Errorf("%w: cost_center_id is required", ErrValidation)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one line item is required", ErrValidation)
	}
	for i, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d quantity must be positive", ErrValidation, i+1)
		}
		if item.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: item %d unit price must not be negative", ErrValidation, i+1)
		}
	}

	var pr *models.PurchaseRequest
	var replayed bool

	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		if in.IdempotencyKey != "" {
			existing, err := s.requests.GetByIdempotencyKey(tx, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				pr = existing
				replayed = true
				return nil
			}
		}

		requester, err := s.users.GetByID(tx, in.RequesterID)
		if err != nil {
			return err
		}
		if requester == nil {
			return ErrRequesterNotFound
		}

		cc, err := s.costCenters.GetByID(tx, in.CostCenterID)
		if err != nil {
			return err
		}
		if cc == nil {
			return ErrCostCenterNotFound
		}

		var total float64
		items := make([]models.LineItem, 0, len(in.Items))
		for _, item := range in.Items {
			items = append(items, models.LineItem{
				Description: item.Description,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
			})
			total += item.Quantity * item.UnitPrice
		}

		pr = &models.PurchaseRequest{
			ID:             uuid.NewString(),
			RequesterID:    in.RequesterID,
			CostCenterID:   in.CostCenterID,
			Description:    in.Description,
			TotalAmount:    total,
			Status:         models.PRStatusSubmitted,
			IdempotencyKey: in.IdempotencyKey,
			Items:          items,
		}

		if err := s.requests.Create(tx, pr); err != nil {
			return err
		}

		_, err = s.chains.Build(tx, models.EntityTypePR, pr.ID, in.RequesterID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !replayed {
		s.logger.Info("Purchase request created",
			zap.String("id", pr.ID),
			zap.String("requester_id", in.RequesterID),
			zap.Float64("total", pr.TotalAmount))
		s.recordAudit(string(models.EntityTypePR), pr.ID, "CREATED", in.RequesterID, pr.Description)
	}

	return pr, nil
}

// CreatePurchaseOrderInput carries the PO factory parameters.
type CreatePurchaseOrderInput struct {
	PurchaseRequestID string
	VendorID          string
	RequesterID       string
	IdempotencyKey    string
}

// CreatePurchaseOrder creates a DRAFT purchase order with its approval chain.
// When a source PR is given it must be APPROVED; it is flipped to
// CONVERTED_TO_PO in the same transaction and its total is copied.
func (s *Service) CreatePurchaseOrder(in CreatePurchaseOrderInput) (*models.PurchaseOrder, error) {
	if in.VendorID == "" {
		return nil, fmt.Errorf("%w: vendor_id is required", ErrValidation)
	}
	if in.RequesterID == "" {
		return nil, fmt.Errorf("%w: requester_id is required", ErrValidation)
	}

	var po *models.PurchaseOrder
	var replayed bool

	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		if in.IdempotencyKey != "" {
			existing, err := s.orders.GetByIdempotencyKey(tx, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				po = existing
				replayed = true
				return nil
			}
		}

		vendor, err := s.vendors.GetByID(tx, in.VendorID)
		if err != nil {
			return err
		}
		if vendor == nil {
			return ErrVendorNotFound
		}

		var total float64
		var prRef *string
		if in.PurchaseRequestID != "" {
			pr, err := s.requests.GetByID(tx, in.PurchaseRequestID)
			if err != nil {
				return err
			}
			if pr == nil {
				return ErrPurchaseRequestNotFound
			}
			// The guarded update is the state check: zero rows means the PR
			// is not APPROVED (or a concurrent conversion won).
			changed, err := s.requests.SetStatus(tx, pr.ID, models.PRStatusApproved, models.PRStatusConvertedToPO)
			if err != nil {
				return err
			}
			if changed == 0 {
				return ErrSourcePRNotApproved
			}
			total = pr.TotalAmount
			prRef = &pr.ID
		}

		po = &models.PurchaseOrder{
			ID:                uuid.NewString(),
			PurchaseRequestID: prRef,
			VendorID:          in.VendorID,
			TotalAmount:       total,
			Status:            models.POStatusDraft,
			IdempotencyKey:    in.IdempotencyKey,
		}

		if err := s.orders.Create(tx, po); err != nil {
			return err
		}

		_, err = s.chains.Build(tx, models.EntityTypePO, po.ID, in.RequesterID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !replayed {
		s.logger.Info("Purchase order created",
			zap.String("id", po.ID),
			zap.String("vendor_id", in.VendorID))
		s.recordAudit(string(models.EntityTypePO), po.ID, "CREATED", in.RequesterID, "")
	}

	return po, nil
}

// CreateInvoiceInput carries the invoice factory parameters.
type CreateInvoiceInput struct {
	PurchaseOrderID string
	VendorID        string
	InvoiceNumber   string
	IssueDate       time.Time
	TotalAmount     float64
	RequesterID     string
	IdempotencyKey  string
}

// CreateInvoice registers an invoice with its approval chain. When a source
// PO is given it must be APPROVED.
func (s *Service) CreateInvoice(in CreateInvoiceInput) (*models.Invoice, error) {
	if in.VendorID == "" {
		return nil, fmt.Errorf("%w: vendor_id is required", ErrValidation)
	}
	if in.InvoiceNumber == "" {
		return nil, fmt.Errorf("%w: invoice_number is required", ErrValidation)
	}
	if in.IssueDate.IsZero() {
		return nil, fmt.Errorf("%w: issue_date is required", ErrValidation)
	}
	if in.TotalAmount < 0 {
		return nil, fmt.Errorf("%w: total_amount must not be negative", ErrValidation)
	}
	if in.RequesterID == "" {
		return nil, fmt.Errorf("%w: requester_id is required", ErrValidation)
	}

	var inv *models.Invoice
	var replayed bool

	err := s.db.WithTransaction(func(tx *sql.Tx) error {
		if in.IdempotencyKey != "" {
			existing, err := s.invoices.GetByIdempotencyKey(tx, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				inv = existing
				replayed = true
				return nil
			}
		}

		vendor, err := s.vendors.GetByID(tx, in.VendorID)
		if err != nil {
			return err
		}
		if vendor == nil {
			return ErrVendorNotFound
		}

		var poRef *string
		if in.PurchaseOrderID != "" {
			po, err := s.orders.GetByID(tx, in.PurchaseOrderID)
			if err != nil {
				return err
			}
			if po == nil {
				return ErrPurchaseOrderNotFound
			}
			if po.Status != models.POStatusApproved {
				return ErrSourcePONotApproved
			}
			poRef = &po.ID
		}

		inv = &models.Invoice{
			ID:              uuid.NewString(),
			PurchaseOrderID: poRef,
			VendorID:        in.VendorID,
			InvoiceNumber:   in.InvoiceNumber,
			IssueDate:       in.IssueDate,
			TotalAmount:     in.TotalAmount,
			Status:          models.InvoiceStatusRegistered,
			IdempotencyKey:  in.IdempotencyKey,
		}

		if err := s.invoices.Create(tx, inv); err != nil {
			return err
		}

		_, err = s.chains.Build(tx, models.EntityTypeInvoice, inv.ID, in.RequesterID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !replayed {
		s.logger.Info("Invoice registered",
			zap.String("id", inv.ID),
			zap.String("invoice_number", in.InvoiceNumber))
		s.recordAudit(string(models.EntityTypeInvoice), inv.ID, "CREATED", in.RequesterID, in.InvoiceNumber)
	}

	return inv, nil
}

func (s *Service) recordAudit(entityType, entityID, action, actorID, detail string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(repository.AuditEvent{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Detail:     detail,
	})
}
