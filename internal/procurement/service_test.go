package procurement_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/procure-flow/internal/approval"
	"github.com/garyjia/procure-flow/internal/directory"
	"github.com/garyjia/procure-flow/internal/models"
	"github.com/garyjia/procure-flow/internal/procurement"
	"github.com/garyjia/procure-flow/internal/repository"
	"github.com/garyjia/procure-flow/migrations"
	"github.com/garyjia/procure-flow/pkg/database"
)

type factoryEnv struct {
	requests  *repository.PurchaseRequestRepository
	orders    *repository.PurchaseOrderRepository
	approvals *repository.ApprovalRepository
	documents *procurement.Service
	engine    *approval.Engine

	requesterID string
	managerID   string
	financeID   string
	costCenter  string
	vendorID    string
}

func newFactoryEnv(t *testing.T) *factoryEnv {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).Run(migrations.FS))

	users := repository.NewUserRepository(db.DB, logger)
	costCenters := repository.NewCostCenterRepository(db.DB, logger)
	vendors := repository.NewVendorRepository(db.DB, logger)
	requests := repository.NewPurchaseRequestRepository(db.DB, logger)
	orders := repository.NewPurchaseOrderRepository(db.DB, logger)
	invoices := repository.NewInvoiceRepository(db.DB, logger)
	approvals := repository.NewApprovalRepository(db.DB, logger)

	resolver := directory.NewResolver(users, logger)
	builder := approval.NewChainBuilder(approvals, resolver, logger)
	registry := approval.NewRegistry(requests, orders, invoices)
	engine := approval.NewEngine(db, approvals, registry, nil, logger)

	documents := procurement.NewService(
		db, users, costCenters, vendors,
		requests, orders, invoices,
		builder, nil, logger,
	)

	mgr := &models.User{ID: "u-manager", Name: "Mara", Email: "mara@example.com", Role: models.RoleEmployee}
	require.NoError(t, users.Create(nil, mgr))
	fin := &models.User{ID: "u-finance", Name: "Finn", Email: "finn@example.com", Role: models.RoleFinance}
	require.NoError(t, users.Create(nil, fin))
	req := &models.User{ID: "u-requester", Name: "Rei", Email: "rei@example.com", Role: models.RoleEmployee, ManagerID: &mgr.ID}
	require.NoError(t, users.Create(nil, req))

	cc := &models.CostCenter{ID: "cc-1", Code: "CC-1", Name: "Engineering"}
	require.NoError(t, costCenters.Create(nil, cc))
	vendor := &models.Vendor{ID: "v-1", Name: "Acme Supplies"}
	require.NoError(t, vendors.Create(nil, vendor))

	return &factoryEnv{
		requests:    requests,
		orders:      orders,
		approvals:   approvals,
		documents:   documents,
		engine:      engine,
		requesterID: req.ID,
		managerID:   mgr.ID,
		financeID:   fin.ID,
		costCenter:  cc.ID,
		vendorID:    vendor.ID,
	}
}

func (env *factoryEnv) createPR(t *testing.T, key string) *models.PurchaseRequest {
	t.Helper()
	pr, err := env.documents.CreatePurchaseRequest(procurement.CreatePurchaseRequestInput{
		RequesterID:    env.requesterID,
		CostCenterID:   env.costCenter,
		Description:    "monitors",
		IdempotencyKey: key,
		Items: []procurement.LineItemInput{
			{Description: "monitor", Quantity: 3, UnitPrice: 250},
		},
	})
	require.NoError(t, err)
	return pr
}

func (env *factoryEnv) approve(t *testing.T, entityType models.EntityType, entityID string) {
	t.Helper()
	for _, actor := range []string{env.managerID, env.financeID} {
		_, err := env.engine.Decide(approval.DecisionInput{
			ActorID:    actor,
			EntityType: entityType,
			EntityID:   entityID,
			Decision:   models.DecisionApprove,
		})
		require.NoError(t, err)
	}
}

func TestCreatePurchaseRequestIdempotent(t *testing.T) {
	env := newFactoryEnv(t)

	first := env.createPR(t, "pr-key-1")
	second := env.createPR(t, "pr-key-1")

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 750.0, second.TotalAmount)

	// The replay must not have grown the chain.
	chain, err := env.approvals.ListByEntity(nil, models.EntityTypePR, first.ID)
	require.NoError(t, err)
	assert.Len(t, chain, 2)
}

func TestCreatePurchaseRequestValidation(t *testing.T) {
	env := newFactoryEnv(t)

	_, err := env.documents.CreatePurchaseRequest(procurement.CreatePurchaseRequestInput{
		RequesterID:  env.requesterID,
		CostCenterID: env.costCenter,
	})
	assert.ErrorIs(t, err, procurement.ErrValidation)

	_, err = env.documents.CreatePurchaseRequest(procurement.CreatePurchaseRequestInput{
		RequesterID:  env.requesterID,
		CostCenterID: env.costCenter,
		Items:        []procurement.LineItemInput{{Description: "x", Quantity: 0, UnitPrice: 10}},
	})
	assert.ErrorIs(t, err, procurement.ErrValidation)

	_, err = env.documents.CreatePurchaseRequest(procurement.CreatePurchaseRequestInput{
		RequesterID:  env.requesterID,
		CostCenterID: "cc-missing",
		Items:        []procurement.LineItemInput{{Description: "x", Quantity: 1, UnitPrice: 10}},
	})
	assert.ErrorIs(t, err, procurement.ErrCostCenterNotFound)
}

func TestCreatePurchaseOrderFromApprovedPR(t *testing.T) {
	env := newFactoryEnv(t)

	pr := env.createPR(t, "")
	env.approve(t, models.EntityTypePR, pr.ID)

	po, err := env.documents.CreatePurchaseOrder(procurement.CreatePurchaseOrderInput{
		PurchaseRequestID: pr.ID,
		VendorID:          env.vendorID,
		RequesterID:       env.requesterID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.POStatusDraft, po.Status)
	assert.Equal(t, pr.TotalAmount, po.TotalAmount)
	require.NotNil(t, po.PurchaseRequestID)
	assert.Equal(t, pr.ID, *po.PurchaseRequestID)

	// Conversion flips the source PR.
	got, err := env.requests.GetByID(nil, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PRStatusConvertedToPO, got.Status)

	// The PO carries its own fresh chain.
	chain, err := env.approvals.ListByEntity(nil, models.EntityTypePO, po.ID)
	require.NoError(t, err)
	assert.Len(t, chain, 2)
}

func TestCreatePurchaseOrderFromSubmittedPR(t *testing.T) {
	env := newFactoryEnv(t)
	pr := env.createPR(t, "")

	_, err := env.documents.CreatePurchaseOrder(procurement.CreatePurchaseOrderInput{
		PurchaseRequestID: pr.ID,
		VendorID:          env.vendorID,
		RequesterID:       env.requesterID,
	})
	assert.ErrorIs(t, err, procurement.ErrSourcePRNotApproved)

	// The failed attempt must leave nothing behind.
	pos, err := env.orders.List(100, 0)
	require.NoError(t, err)
	assert.Empty(t, pos)

	got, err := env.requests.GetByID(nil, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PRStatusSubmitted, got.Status)
}

func TestCreatePurchaseOrderConvertOnlyOnce(t *testing.T) {
	env := newFactoryEnv(t)
	pr := env.createPR(t, "")
	env.approve(t, models.EntityTypePR, pr.ID)

	_, err := env.documents.CreatePurchaseOrder(procurement.CreatePurchaseOrderInput{
		PurchaseRequestID: pr.ID,
		VendorID:          env.vendorID,
		RequesterID:       env.requesterID,
	})
	require.NoError(t, err)

	_, err = env.documents.CreatePurchaseOrder(procurement.CreatePurchaseOrderInput{
		PurchaseRequestID: pr.ID,
		VendorID:          env.vendorID,
		RequesterID:       env.requesterID,
	})
	assert.ErrorIs(t, err, procurement.ErrSourcePRNotApproved)
}

func TestPurchaseOrderApprovalStampsApprover(t *testing.T) {
	env := newFactoryEnv(t)

	po, err := env.documents.CreatePurchaseOrder(procurement.CreatePurchaseOrderInput{
		VendorID:    env.vendorID,
		RequesterID: env.requesterID,
	})
	require.NoError(t, err)

	env.approve(t, models.EntityTypePO, po.ID)

	got, err := env.orders.GetByID(nil, po.ID)
	require.NoError(t, err)
	assert.Equal(t, models.POStatusApproved, got.Status)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, env.financeID, *got.ApprovedBy)
	assert.NotNil(t, got.ApprovedAt)
}

func TestCreateInvoiceRequiresApprovedPO(t *testing.T) {
	env := newFactoryEnv(t)

	po, err := env.documents.CreatePurchaseOrder(procurement.CreatePurchaseOrderInput{
		VendorID:    env.vendorID,
		RequesterID: env.requesterID,
	})
	require.NoError(t, err)

	_, err = env.documents.CreateInvoice(procurement.CreateInvoiceInput{
		PurchaseOrderID: po.ID,
		VendorID:        env.vendorID,
		InvoiceNumber:   "INV-001",
		IssueDate:       time.Now(),
		TotalAmount:     750,
		RequesterID:     env.requesterID,
	})
	assert.ErrorIs(t, err, procurement.ErrSourcePONotApproved)

	env.approve(t, models.EntityTypePO, po.ID)

	inv, err := env.documents.CreateInvoice(procurement.CreateInvoiceInput{
		PurchaseOrderID: po.ID,
		VendorID:        env.vendorID,
		InvoiceNumber:   "INV-001",
		IssueDate:       time.Now(),
		TotalAmount:     750,
		RequesterID:     env.requesterID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusRegistered, inv.Status)
}

func TestCreateInvoiceIdempotent(t *testing.T) {
	env := newFactoryEnv(t)

	in := procurement.CreateInvoiceInput{
		VendorID:       env.vendorID,
		InvoiceNumber:  "INV-007",
		IssueDate:      time.Now(),
		TotalAmount:    100,
		RequesterID:    env.requesterID,
		IdempotencyKey: "inv-key-1",
	}

	first, err := env.documents.CreateInvoice(in)
	require.NoError(t, err)
	second, err := env.documents.CreateInvoice(in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestCreatePurchaseOrderUnknownVendor(t *testing.T) {
	env := newFactoryEnv(t)

	_, err := env.documents.CreatePurchaseOrder(procurement.CreatePurchaseOrderInput{
		VendorID:    "v-missing",
		RequesterID: env.requesterID,
	})
	assert.ErrorIs(t, err, procurement.ErrVendorNotFound)
}
