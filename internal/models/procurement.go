package models

import "time"

// CostCenter is a budget bucket referenced by purchase requests.
// Treated as immutable once referenced.
type CostCenter struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	OwnerID   *string   `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Vendor is a supplier referenced by purchase orders and invoices.
type Vendor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	TaxID     string    `json:"tax_id,omitempty"`
	Contact   string    `json:"contact,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PurchaseRequest is the root document of the procurement chain.
type PurchaseRequest struct {
	ID             string     `json:"id"`
	RequesterID    string     `json:"requester_id"`
	CostCenterID   string     `json:"cost_center_id"`
	Description    string     `json:"description"`
	TotalAmount    float64    `json:"total_amount"`
	Status         string     `json:"status"` // SUBMITTED, APPROVED, REJECTED, CONVERTED_TO_PO
	IdempotencyKey string     `json:"-"`
	Items          []LineItem `json:"items,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// LineItem is a single line of a purchase request.
type LineItem struct {
	ID                int64   `json:"id"`
	PurchaseRequestID string  `json:"purchase_request_id"`
	Description       string  `json:"description"`
	Quantity          float64 `json:"quantity"`
	UnitPrice         float64 `json:"unit_price"`
}

// Total returns quantity * unit price for the line.
func (li LineItem) Total() float64 {
	return li.Quantity * li.UnitPrice
}

// PurchaseOrder is a commitment to a vendor, optionally sourced from a PR.
type PurchaseOrder struct {
	ID                string     `json:"id"`
	PurchaseRequestID *string    `json:"purchase_request_id,omitempty"`
	VendorID          string     `json:"vendor_id"`
	TotalAmount       float64    `json:"total_amount"`
	Status            string     `json:"status"` // DRAFT, APPROVED, REJECTED
	ApprovedBy        *string    `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time `json:"approved_at,omitempty"`
	IdempotencyKey    string     `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Invoice is a vendor bill, optionally sourced from a PO.
type Invoice struct {
	ID              string    `json:"id"`
	PurchaseOrderID *string   `json:"purchase_order_id,omitempty"`
	VendorID        string    `json:"vendor_id"`
	InvoiceNumber   string    `json:"invoice_number"`
	IssueDate       time.Time `json:"issue_date"`
	TotalAmount     float64   `json:"total_amount"`
	Status          string    `json:"status"` // REGISTERED, APPROVED, REJECTED
	IdempotencyKey  string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Purchase request status constants
const (
	PRStatusSubmitted     = "SUBMITTED"
	PRStatusApproved      = "APPROVED"
	PRStatusRejected      = "REJECTED"
	PRStatusConvertedToPO = "CONVERTED_TO_PO"
)

// Purchase order status constants
const (
	POStatusDraft    = "DRAFT"
	POStatusApproved = "APPROVED"
	POStatusRejected = "REJECTED"
)

// Invoice status constants
const (
	InvoiceStatusRegistered = "REGISTERED"
	InvoiceStatusApproved   = "APPROVED"
	InvoiceStatusRejected   = "REJECTED"
)
