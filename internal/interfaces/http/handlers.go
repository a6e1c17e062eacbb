package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/procure-flow/internal/approval"
	"github.com/garyjia/procure-flow/internal/assets"
	"github.com/garyjia/procure-flow/internal/directory"
	"github.com/garyjia/procure-flow/internal/models"
	"github.com/garyjia/procure-flow/internal/procurement"
	"github.com/garyjia/procure-flow/internal/repository"
)

// Idempotency-Key and actor headers used by the decision and factory routes.
const (
	headerIdempotencyKey = "Idempotency-Key"
	headerActorID        = "X-Actor-ID"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	documents   *procurement.Service
	engine      *approval.Engine
	ledger      *assets.Service
	users       *repository.UserRepository
	costCenters *repository.CostCenterRepository
	vendors     *repository.VendorRepository
	requests    *repository.PurchaseRequestRepository
	orders      *repository.PurchaseOrderRepository
	invoices    *repository.InvoiceRepository
	logger      *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	documents *procurement.Service,
	engine *approval.Engine,
	ledger *assets.Service,
	users *repository.UserRepository,
	costCenters *repository.CostCenterRepository,
	vendors *repository.VendorRepository,
	requests *repository.PurchaseRequestRepository,
	orders *repository.PurchaseOrderRepository,
	invoices *repository.InvoiceRepository,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		documents:   documents,
		engine:      engine,
		ledger:      ledger,
		users:       users,
		costCenters: costCenters,
		vendors:     vendors,
		requests:    requests,
		orders:      orders,
		invoices:    invoices,
		logger:      logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// respondError maps domain sentinels to HTTP status codes. Validation and
// authorization failures are terminal for the caller; conflicts signal that
// a retry with the same idempotency key is safe.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, procurement.ErrValidation),
		errors.Is(err, approval.ErrInvalidDecision),
		errors.Is(err, approval.ErrUnknownEntityType),
		errors.Is(err, assets.ErrInvalidAsset),
		errors.Is(err, assets.ErrInvalidMovement):
		status = http.StatusBadRequest
	case errors.Is(err, procurement.ErrCostCenterNotFound),
		errors.Is(err, procurement.ErrVendorNotFound),
		errors.Is(err, procurement.ErrRequesterNotFound),
		errors.Is(err, procurement.ErrPurchaseRequestNotFound),
		errors.Is(err, procurement.ErrPurchaseOrderNotFound),
		errors.Is(err, assets.ErrAssetNotFound),
		errors.Is(err, assets.ErrMoverNotFound):
		status = http.StatusNotFound
	case errors.Is(err, approval.ErrNotCurrentApprover):
		status = http.StatusForbidden
	case errors.Is(err, approval.ErrNoPendingApprovals),
		errors.Is(err, approval.ErrStepAlreadyDecided),
		errors.Is(err, approval.ErrStateConflict),
		errors.Is(err, procurement.ErrSourcePRNotApproved),
		errors.Is(err, procurement.ErrSourcePONotApproved),
		errors.Is(err, directory.ErrNoApprovers),
		errors.Is(err, repository.ErrDuplicate):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.Error(err))
		c.JSON(status, Response{Success: false, Error: "internal error"})
		return
	}

	c.JSON(status, Response{Success: false, Error: err.Error()})
}

func newID() string {
	return uuid.NewString()
}

func pagination(c *gin.Context) (limit, offset int) {
	var q struct {
		Limit  int `form:"limit"`
		Offset int `form:"offset"`
	}
	_ = c.ShouldBindQuery(&q)
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q.Limit, q.Offset
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":  "healthy",
			"service": "procure-flow",
			"time":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// CreateUserRequest is the body for POST /users
type CreateUserRequest struct {
	ID        string  `json:"id"`
	Name      string  `json:"name" binding:"required"`
	Email     string  `json:"email" binding:"required"`
	Role      string  `json:"role"`
	ManagerID *string `json:"manager_id"`
}

// CreateUser handles POST /api/v1/users
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	user := &models.User{
		ID:        req.ID,
		Name:      req.Name,
		Email:     req.Email,
		Role:      req.Role,
		ManagerID: req.ManagerID,
	}
	if user.ID == "" {
		user.ID = newID()
	}
	if user.Role == "" {
		user.Role = models.RoleEmployee
	}

	if err := h.users.Create(nil, user); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: user})
}

// ListUsers handles GET /api/v1/users
func (h *Handlers) ListUsers(c *gin.Context) {
	limit, offset := pagination(c)
	users, err := h.users.List(limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: users})
}

// CreateCostCenterRequest is the body for POST /cost-centers
type CreateCostCenterRequest struct {
	Code    string  `json:"code" binding:"required"`
	Name    string  `json:"name" binding:"required"`
	OwnerID *string `json:"owner_id"`
}

// CreateCostCenter handles POST /api/v1/cost-centers
func (h *Handlers) CreateCostCenter(c *gin.Context) {
	var req CreateCostCenterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	cc := &models.CostCenter{
		ID:      newID(),
		Code:    req.Code,
		Name:    req.Name,
		OwnerID: req.OwnerID,
	}

	if err := h.costCenters.Create(nil, cc); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: cc})
}

// ListCostCenters handles GET /api/v1/cost-centers
func (h *Handlers) ListCostCenters(c *gin.Context) {
	limit, offset := pagination(c)
	centers, err := h.costCenters.List(limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: centers})
}

// CreateVendorRequest is the body for POST /vendors
type CreateVendorRequest struct {
	Name    string `json:"name" binding:"required"`
	TaxID   string `json:"tax_id"`
	Contact string `json:"contact"`
}

// CreateVendor handles POST /api/v1/vendors
func (h *Handlers) CreateVendor(c *gin.Context) {
	var req CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	vendor := &models.Vendor{
		ID:      newID(),
		Name:    req.Name,
		TaxID:   req.TaxID,
		Contact: req.Contact,
	}

	if err := h.vendors.Create(nil, vendor); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: vendor})
}

// ListVendors handles GET /api/v1/vendors
func (h *Handlers) ListVendors(c *gin.Context) {
	limit, offset := pagination(c)
	vendors, err := h.vendors.List(limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: vendors})
}

// CreatePurchaseRequestBody is the body for POST /purchase-requests
type CreatePurchaseRequestBody struct {
	RequesterID  string                      `json:"requester_id" binding:"required"`
	CostCenterID string                      `json:"cost_center_id" binding:"required"`
	Description  string                      `json:"description"`
	Items        []procurement.LineItemInput `json:"items" binding:"required"`
}

// CreatePurchaseRequest handles POST /api/v1/purchase-requests
func (h *Handlers) CreatePurchaseRequest(c *gin.Context) {
	var req CreatePurchaseRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	pr, err := h.documents.CreatePurchaseRequest(procurement.CreatePurchaseRequestInput{
		RequesterID:    req.RequesterID,
		CostCenterID:   req.CostCenterID,
		Description:    req.Description,
		Items:          req.Items,
		IdempotencyKey: c.GetHeader(headerIdempotencyKey),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: pr})
}

// ListPurchaseRequests handles GET /api/v1/purchase-requests
func (h *Handlers) ListPurchaseRequests(c *gin.Context) {
	limit, offset := pagination(c)
	requests, err := h.requests.List(limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// GetPurchaseRequest handles GET /api/v1/purchase-requests/:id
func (h *Handlers) GetPurchaseRequest(c *gin.Context) {
	pr, err := h.requests.GetByID(nil, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if pr == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "purchase request not found"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: pr})
}

// CreatePurchaseOrderBody is the body for POST /purchase-orders
type CreatePurchaseOrderBody struct {
	PurchaseRequestID string `json:"purchase_request_id"`
	VendorID          string `json:"vendor_id" binding:"required"`
	RequesterID       string `json:"requester_id" binding:"required"`
}

// CreatePurchaseOrder handles POST /api/v1/purchase-orders
func (h *Handlers) CreatePurchaseOrder(c *gin.Context) {
	var req CreatePurchaseOrderBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	po, err := h.documents.CreatePurchaseOrder(procurement.CreatePurchaseOrderInput{
		PurchaseRequestID: req.PurchaseRequestID,
		VendorID:          req.VendorID,
		RequesterID:       req.RequesterID,
		IdempotencyKey:    c.GetHeader(headerIdempotencyKey),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: po})
}

// ListPurchaseOrders handles GET /api/v1/purchase-orders
func (h *Handlers) ListPurchaseOrders(c *gin.Context) {
	limit, offset := pagination(c)
	orders, err := h.orders.List(limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: orders})
}

// GetPurchaseOrder handles GET /api/v1/purchase-orders/:id
func (h *Handlers) GetPurchaseOrder(c *gin.Context) {
	po, err := h.orders.GetByID(nil, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if po == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "purchase order not found"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: po})
}

// CreateInvoiceBody is the body for POST /invoices
type CreateInvoiceBody struct {
	PurchaseOrderID string    `json:"purchase_order_id"`
	VendorID        string    `json:"vendor_id" binding:"required"`
	InvoiceNumber   string    `json:"invoice_number" binding:"required"`
	IssueDate       time.Time `json:"issue_date" binding:"required"`
	TotalAmount     float64   `json:"total_amount"`
	RequesterID     string    `json:"requester_id" binding:"required"`
}

// CreateInvoice handles POST /api/v1/invoices
func (h *Handlers) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	inv, err := h.documents.CreateInvoice(procurement.CreateInvoiceInput{
		PurchaseOrderID: req.PurchaseOrderID,
		VendorID:        req.VendorID,
		InvoiceNumber:   req.InvoiceNumber,
		IssueDate:       req.IssueDate,
		TotalAmount:     req.TotalAmount,
		RequesterID:     req.RequesterID,
		IdempotencyKey:  c.GetHeader(headerIdempotencyKey),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: inv})
}

// ListInvoices handles GET /api/v1/invoices
func (h *Handlers) ListInvoices(c *gin.Context) {
	limit, offset := pagination(c)
	invoices, err := h.invoices.List(limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: invoices})
}

// GetInvoice handles GET /api/v1/invoices/:id
func (h *Handlers) GetInvoice(c *gin.Context) {
	inv, err := h.invoices.GetByID(nil, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if inv == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "invoice not found"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: inv})
}

// ListApprovals handles GET /api/v1/approvals/:entityType/:entityID
func (h *Handlers) ListApprovals(c *gin.Context) {
	entityType, err := models.ParseEntityType(c.Param("entityType"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	chain, err := h.engine.ListApprovals(entityType, c.Param("entityID"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: chain})
}

// DecideApprovalBody is the body for POST /approvals/:entityType/:entityID/decisions
type DecideApprovalBody struct {
	Decision string `json:"decision" binding:"required"`
	Notes    string `json:"notes"`
}

// DecideApproval handles POST /api/v1/approvals/:entityType/:entityID/decisions
func (h *Handlers) DecideApproval(c *gin.Context) {
	entityType, err := models.ParseEntityType(c.Param("entityType"))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: err.Error()})
		return
	}

	actorID := c.GetHeader(headerActorID)
	if actorID == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "X-Actor-ID header is required"})
		return
	}

	var req DecideApprovalBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	decision, err := h.engine.Decide(approval.DecisionInput{
		ActorID:        actorID,
		EntityType:     entityType,
		EntityID:       c.Param("entityID"),
		Decision:       req.Decision,
		Notes:          req.Notes,
		IdempotencyKey: c.GetHeader(headerIdempotencyKey),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: decision})
}

// RegisterAssetBody is the body for POST /assets
type RegisterAssetBody struct {
	Tag          string `json:"tag" binding:"required"`
	Name         string `json:"name" binding:"required"`
	CostCenterID string `json:"cost_center_id"`
	Location     string `json:"location"`
}

// RegisterAsset handles POST /api/v1/assets
func (h *Handlers) RegisterAsset(c *gin.Context) {
	var req RegisterAssetBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	asset, err := h.ledger.RegisterAsset(assets.RegisterAssetInput{
		Tag:          req.Tag,
		Name:         req.Name,
		CostCenterID: req.CostCenterID,
		Location:     req.Location,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: asset})
}

// GetAsset handles GET /api/v1/assets/:id
func (h *Handlers) GetAsset(c *gin.Context) {
	asset, err := h.ledger.GetAsset(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: asset})
}

// RecordAssetMovementBody is the body for POST /assets/:id/movements
type RecordAssetMovementBody struct {
	MovementType string `json:"movement_type" binding:"required"`
	ToLocation   string `json:"to_location"`
	MovedBy      string `json:"moved_by" binding:"required"`
	Notes        string `json:"notes"`
}

// RecordAssetMovement handles POST /api/v1/assets/:id/movements
func (h *Handlers) RecordAssetMovement(c *gin.Context) {
	var req RecordAssetMovementBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	movement, err := h.ledger.RecordMovement(assets.RecordMovementInput{
		AssetID:      c.Param("id"),
		MovementType: req.MovementType,
		ToLocation:   req.ToLocation,
		MovedBy:      req.MovedBy,
		Notes:        req.Notes,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: movement})
}

// ListAssetMovements handles GET /api/v1/assets/:id/movements
func (h *Handlers) ListAssetMovements(c *gin.Context) {
	movements, err := h.ledger.ListMovements(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: movements})
}
