package approval_test

import (
	"errors"
	"path/filepath"
	"sync"
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

type testEnv struct {
	db        *database.DB
	users     *repository.UserRepository
	requests  *repository.PurchaseRequestRepository
	orders    *repository.PurchaseOrderRepository
	invoices  *repository.InvoiceRepository
	approvals *repository.ApprovalRepository
	documents *procurement.Service
	engine    *approval.Engine
}

func newTestEnv(t *testing.T) *testEnv {
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

	return &testEnv{
		db:        db,
		users:     users,
		requests:  requests,
		orders:    orders,
		invoices:  invoices,
		approvals: approvals,
		documents: documents,
		engine:    engine,
	}
}

// seedDirectory creates a requester reporting to a manager, plus a finance
// approver, and a cost center. Returns requester, manager, finance, cost
// center IDs.
func (env *testEnv) seedDirectory(t *testing.T) (requester, manager, finance, costCenter string) {
	t.Helper()

	mgr := &models.User{ID: "u-manager", Name: "Mara", Email: "mara@example.com", Role: models.RoleEmployee}
	require.NoError(t, env.users.Create(nil, mgr))

	fin := &models.User{ID: "u-finance", Name: "Finn", Email: "finn@example.com", Role: models.RoleFinance}
	require.NoError(t, env.users.Create(nil, fin))

	req := &models.User{ID: "u-requester", Name: "Rei", Email: "rei@example.com", Role: models.RoleEmployee, ManagerID: &mgr.ID}
	require.NoError(t, env.users.Create(nil, req))

	ccRepo := repository.NewCostCenterRepository(env.db.DB, zap.NewNop())
	cc := &models.CostCenter{ID: "cc-1", Code: "CC-1", Name: "Engineering"}
	require.NoError(t, ccRepo.Create(nil, cc))

	return req.ID, mgr.ID, fin.ID, cc.ID
}

func (env *testEnv) createPR(t *testing.T, requester, costCenter string) *models.PurchaseRequest {
	t.Helper()
	pr, err := env.documents.CreatePurchaseRequest(procurement.CreatePurchaseRequestInput{
		RequesterID:  requester,
		CostCenterID: costCenter,
		Description:  "laptops",
		Items: []procurement.LineItemInput{
			{Description: "laptop", Quantity: 2, UnitPrice: 100},
		},
	})
	require.NoError(t, err)
	return pr
}

func TestChainCompleteness(t *testing.T) {
	env := newTestEnv(t)
	requester, manager, finance, cc := env.seedDirectory(t)

	pr := env.createPR(t, requester, cc)
	assert.Equal(t, models.PRStatusSubmitted, pr.Status)
	assert.Equal(t, 200.0, pr.TotalAmount)

	chain, err := env.engine.ListApprovals(models.EntityTypePR, pr.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)

	assert.Equal(t, 1, chain[0].Step)
	assert.Equal(t, manager, chain[0].ApproverID)
	assert.Equal(t, models.ApprovalStatusPending, chain[0].Status)

	assert.Equal(t, 2, chain[1].Step)
	assert.Equal(t, finance, chain[1].ApproverID)
	assert.Equal(t, models.ApprovalStatusPending, chain[1].Status)
}

func TestSequentialEnforcement(t *testing.T) {
	env := newTestEnv(t)
	requester, _, finance, cc := env.seedDirectory(t)
	pr := env.createPR(t, requester, cc)

	// Step 2's approver may not decide while step 1 is pending.
	_, err := env.engine.Decide(approval.DecisionInput{
		ActorID:    finance,
		EntityType: models.EntityTypePR,
		EntityID:   pr.ID,
		Decision:   models.DecisionApprove,
	})
	assert.ErrorIs(t, err, approval.ErrNotCurrentApprover)
}

func TestApproveAdvancesWithoutTerminalTransition(t *testing.T) {
	env := newTestEnv(t)
	requester, manager, _, cc := env.seedDirectory(t)
	pr := env.createPR(t, requester, cc)

	decision, err := env.engine.Decide(approval.DecisionInput{
		ActorID:    manager,
		EntityType: models.EntityTypePR,
		EntityID:   pr.ID,
		Decision:   models.DecisionApprove,
		Notes:      "fine by me",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, decision.Status)
	assert.NotNil(t, decision.DecidedAt)

	// One pending step remains, so the PR must still be SUBMITTED.
	got, err := env.requests.GetByID(nil, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PRStatusSubmitted, got.Status)
}

func TestTerminalApprovalOnLastStep(t *testing.T) {
	env := newTestEnv(t)
	requester, manager, finance, cc := env.seedDirectory(t)
	pr := env.createPR(t, requester, cc)

	_, err := env.engine.Decide(approval.DecisionInput{
		ActorID:    manager,
		EntityType: models.EntityTypePR,
		EntityID:   pr.ID,
		Decision:   models.DecisionApprove,
	})
	require.NoError(t, err)

	_, err = env.engine.Decide(approval.DecisionInput{
		ActorID:    finance,
		EntityType: models.EntityTypePR,
		EntityID:   pr.ID,
		Decision:   models.DecisionApprove,
	})
	require.NoError(t, err)

	got, err := env.requests.GetByID(nil, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PRStatusApproved, got.Status)
}

func TestRejectionCascade(t *testing.T) {
	env := newTestEnv(t)
	requester, manager, finance, cc := env.seedDirectory(t)
	pr := env.createPR(t, requester, cc)

	_, err := env.engine.Decide(approval.DecisionInput{
		ActorID:    manager,
		EntityType: models.EntityTypePR,
		EntityID:   pr.ID,
		Decision:   models.DecisionReject,
		Notes:      "over budget",
	})
	require.NoError(t, err)

	got, err := env.requests.GetByID(nil, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PRStatusRejected, got.Status)

	chain, err := env.engine.ListApprovals(models.EntityTypePR, pr.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, models.ApprovalStatusRejected, chain[0].Status)
	assert.Equal(t, "over budget", chain[0].Notes)
	assert.Equal(t, models.ApprovalStatusRejected, chain[1].Status)
	assert.Contains(t, chain[1].Notes, "auto-rejected")

	// The auto-rejected approver cannot decide afterwards.
	_, err = env.engine.Decide(approval.DecisionInput{
		ActorID:    finance,
		EntityType: models.EntityTypePR,
		EntityID:   pr.ID,
		Decision:   models.DecisionApprove,
	})
	assert.ErrorIs(t, err, approval.ErrNoPendingApprovals)
}

func TestIdempotentDecision(t *testing.T) {
	env := newTestEnv(t)
	requester, manager, _, cc := env.seedDirectory(t)
	pr := env.createPR(t, requester, cc)

	first, err := env.engine.Decide(approval.DecisionInput{
		ActorID:        manager,
		EntityType:     models.EntityTypePR,
		EntityID:       pr.ID,
		Decision:       models.DecisionApprove,
		IdempotencyKey: "decision-key-1",
	})
	require.NoError(t, err)

	// Replay with the same key returns the original row without advancing
	// anything or requiring the actor to still own the current step.
	second, err := env.engine.Decide(approval.DecisionInput{
		ActorID:        manager,
		EntityType:     models.EntityTypePR,
		EntityID:       pr.ID,
		Decision:       models.DecisionApprove,
		IdempotencyKey: "decision-key-1",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Step, second.Step)
	assert.Equal(t, first.Status, second.Status)

	pending, err := env.approvals.CountPending(nil, models.EntityTypePR, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestDecideOnResolvedEntity(t *testing.T) {
	env := newTestEnv(t)
	requester, manager, finance, cc := env.seedDirectory(t)
	pr := env.createPR(t, requester, cc)

	for _, actor := range []string{manager, finance} {
		_, err := env.engine.Decide(approval.DecisionInput{
			ActorID:    actor,
			EntityType: models.EntityTypePR,
			EntityID:   pr.ID,
			Decision:   models.DecisionApprove,
		})
		require.NoError(t, err)
	}

	_, err := env.engine.Decide(approval.DecisionInput{
		ActorID:    manager,
		EntityType: models.EntityTypePR,
		EntityID:   pr.ID,
		Decision:   models.DecisionApprove,
	})
	assert.ErrorIs(t, err, approval.ErrNoPendingApprovals)
}

func TestInvalidDecisionInput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Decide(approval.DecisionInput{
		ActorID:    "u-anyone",
		EntityType: models.EntityTypePR,
		EntityID:   "pr-x",
		Decision:   "MAYBE",
	})
	assert.ErrorIs(t, err, approval.ErrInvalidDecision)

	_, err = env.engine.Decide(approval.DecisionInput{
		ActorID:    "u-anyone",
		EntityType: models.EntityType("TICKET"),
		EntityID:   "t-1",
		Decision:   models.DecisionApprove,
	})
	assert.ErrorIs(t, err, approval.ErrUnknownEntityType)
}

func TestConcurrentDecisionsSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	requester, manager, _, cc := env.seedDirectory(t)
	pr := env.createPR(t, requester, cc)

	// Race several identical decisions on step 1. Exactly one may land; the
	// rest must fail with a clean conflict sentinel, never a driver error.
	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.engine.Decide(approval.DecisionInput{
				ActorID:    manager,
				EntityType: models.EntityTypePR,
				EntityID:   pr.ID,
				Decision:   models.DecisionApprove,
			})
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		conflict := errors.Is(err, approval.ErrNotCurrentApprover) ||
			errors.Is(err, approval.ErrStepAlreadyDecided) ||
			errors.Is(err, approval.ErrNoPendingApprovals)
		assert.True(t, conflict, "unexpected error: %v", err)
	}
	assert.Equal(t, 1, wins)

	// Step 2 is untouched and the entity has not advanced.
	pending, err := env.approvals.CountPending(nil, models.EntityTypePR, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	got, err := env.requests.GetByID(nil, pr.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PRStatusSubmitted, got.Status)
}

func TestDecisionTimestampStored(t *testing.T) {
	env := newTestEnv(t)
	requester, manager, _, cc := env.seedDirectory(t)
	pr := env.createPR(t, requester, cc)

	before := time.Now().UTC().Add(-time.Second)
	decision, err := env.engine.Decide(approval.DecisionInput{
		ActorID:    manager,
		EntityType: models.EntityTypePR,
		EntityID:   pr.ID,
		Decision:   models.DecisionApprove,
	})
	require.NoError(t, err)
	require.NotNil(t, decision.DecidedAt)
	assert.True(t, decision.DecidedAt.After(before))
}
