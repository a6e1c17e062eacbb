package directory_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/procure-flow/internal/directory"
	"github.com/garyjia/procure-flow/internal/models"
	"github.com/garyjia/procure-flow/internal/repository"
	"github.com/garyjia/procure-flow/migrations"
	"github.com/garyjia/procure-flow/pkg/database"
)

func newResolverEnv(t *testing.T) (*repository.UserRepository, *directory.Resolver) {
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
	return users, directory.NewResolver(users, logger)
}

func TestResolveManagerThenFinance(t *testing.T) {
	users, resolver := newResolverEnv(t)

	mgr := &models.User{ID: "u-mgr", Name: "Mara", Email: "mara@example.com", Role: models.RoleEmployee}
	require.NoError(t, users.Create(nil, mgr))
	fin := &models.User{ID: "u-fin", Name: "Finn", Email: "finn@example.com", Role: models.RoleFinance}
	require.NoError(t, users.Create(nil, fin))
	req := &models.User{ID: "u-req", Name: "Rei", Email: "rei@example.com", Role: models.RoleEmployee, ManagerID: &mgr.ID}
	require.NoError(t, users.Create(nil, req))

	approvers, err := resolver.ResolveApprovers(nil, req.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{mgr.ID, fin.ID}, approvers)
}

func TestResolveWithoutManager(t *testing.T) {
	users, resolver := newResolverEnv(t)

	fin := &models.User{ID: "u-fin", Name: "Finn", Email: "finn@example.com", Role: models.RoleFinance}
	require.NoError(t, users.Create(nil, fin))
	req := &models.User{ID: "u-req", Name: "Rei", Email: "rei@example.com", Role: models.RoleEmployee}
	require.NoError(t, users.Create(nil, req))

	approvers, err := resolver.ResolveApprovers(nil, req.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{fin.ID}, approvers)
}

func TestResolveManagerIsFinance(t *testing.T) {
	users, resolver := newResolverEnv(t)

	// Manager doubles as the only finance approver; the list must not
	// contain the same identity twice.
	mgr := &models.User{ID: "u-mgr", Name: "Mara", Email: "mara@example.com", Role: models.RoleFinance}
	require.NoError(t, users.Create(nil, mgr))
	req := &models.User{ID: "u-req", Name: "Rei", Email: "rei@example.com", Role: models.RoleEmployee, ManagerID: &mgr.ID}
	require.NoError(t, users.Create(nil, req))

	approvers, err := resolver.ResolveApprovers(nil, req.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{mgr.ID}, approvers)
}

func TestResolveFallsBackToAdmin(t *testing.T) {
	users, resolver := newResolverEnv(t)

	admin := &models.User{ID: "u-admin", Name: "Ada", Email: "ada@example.com", Role: models.RoleAdmin}
	require.NoError(t, users.Create(nil, admin))
	req := &models.User{ID: "u-req", Name: "Rei", Email: "rei@example.com", Role: models.RoleEmployee}
	require.NoError(t, users.Create(nil, req))

	approvers, err := resolver.ResolveApprovers(nil, req.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{admin.ID}, approvers)
}

func TestResolveSelfApprovalExcluded(t *testing.T) {
	users, resolver := newResolverEnv(t)

	mgr := &models.User{ID: "u-mgr", Name: "Mara", Email: "mara@example.com", Role: models.RoleEmployee}
	require.NoError(t, users.Create(nil, mgr))
	// The requester is the finance approver; only the manager remains.
	req := &models.User{ID: "u-req", Name: "Rei", Email: "rei@example.com", Role: models.RoleFinance, ManagerID: &mgr.ID}
	require.NoError(t, users.Create(nil, req))

	approvers, err := resolver.ResolveApprovers(nil, req.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{mgr.ID}, approvers)
}

func TestResolveNoApprovers(t *testing.T) {
	users, resolver := newResolverEnv(t)

	req := &models.User{ID: "u-req", Name: "Rei", Email: "rei@example.com", Role: models.RoleEmployee}
	require.NoError(t, users.Create(nil, req))

	_, err := resolver.ResolveApprovers(nil, req.ID)
	assert.ErrorIs(t, err, directory.ErrNoApprovers)
}
