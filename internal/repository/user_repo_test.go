package repository_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/procure-flow/internal/models"
	"github.com/garyjia/procure-flow/internal/repository"
	"github.com/garyjia/procure-flow/migrations"
	"github.com/garyjia/procure-flow/pkg/database"
)

func newUserRepo(t *testing.T) *repository.UserRepository {
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

	return repository.NewUserRepository(db.DB, logger)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	users := newUserRepo(t)

	first := &models.User{ID: "u-1", Name: "Mara", Email: "mara@example.com", Role: models.RoleEmployee}
	require.NoError(t, users.Create(nil, first))

	second := &models.User{ID: "u-2", Name: "Mara Two", Email: "mara@example.com", Role: models.RoleEmployee}
	err := users.Create(nil, second)
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestFirstByRoleOrdering(t *testing.T) {
	users := newUserRepo(t)

	a := &models.User{ID: "u-a", Name: "Ana", Email: "ana@example.com", Role: models.RoleFinance}
	require.NoError(t, users.Create(nil, a))
	b := &models.User{ID: "u-b", Name: "Ben", Email: "ben@example.com", Role: models.RoleFinance}
	require.NoError(t, users.Create(nil, b))

	got, err := users.FirstByRole(nil, models.RoleFinance)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u-a", got.ID)
}
