package repository

import (
	"database/sql"
	"fmt"

	"github.com/garyjia/procure-flow/internal/models"
	"go.uber.org/zap"
)

// UserRepository handles directory user database operations
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user
func (r *UserRepository) Create(tx *sql.Tx, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, role, manager_id)
		VALUES (?, ?, ?, ?, ?)
	`

	var managerID sql.NullString
	if user.ManagerID != nil {
		managerID = sql.NullString{String: *user.ManagerID, Valid: true}
	}

	_, err := pick(r.db, tx).Exec(query, user.ID, user.Name, user.Email, user.Role, managerID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: user email %s", ErrDuplicate, user.Email)
	}
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("email", user.Email), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by ID. Returns nil when not found.
func (r *UserRepository) GetByID(tx *sql.Tx, id string) (*models.User, error) {
	query := `
		SELECT id, name, email, role, manager_id, created_at
		FROM users
		WHERE id = ?
	`

	user, err := scanUser(pick(r.db, tx).QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// FirstByRole returns the earliest-created user holding the given role.
// Returns nil when no user holds it.
func (r *UserRepository) FirstByRole(tx *sql.Tx, role string) (*models.User, error) {
	query := `
		SELECT id, name, email, role, manager_id, created_at
		FROM users
		WHERE role = ?
		ORDER BY created_at, id
		LIMIT 1
	`

	user, err := scanUser(pick(r.db, tx).QueryRow(query, role))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by role", zap.String("role", role), zap.Error(err))
		return nil, fmt.Errorf("failed to get user by role: %w", err)
	}

	return user, nil
}

// List returns users with pagination
func (r *UserRepository) List(limit, offset int) ([]*models.User, error) {
	query := `
		SELECT id, name, email, role, manager_id, created_at
		FROM users
		ORDER BY created_at, id
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		var managerID sql.NullString
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.Role, &managerID, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if managerID.Valid {
			user.ManagerID = &managerID.String
		}
		users = append(users, &user)
	}

	return users, rows.Err()
}

func scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	var managerID sql.NullString

	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Role, &managerID, &user.CreatedAt)
	if err != nil {
		return nil, err
	}

	if managerID.Valid {
		user.ManagerID = &managerID.String
	}

	return &user, nil
}
