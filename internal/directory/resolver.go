// Package directory resolves approver identities from the user directory.
// The approval engine only sees the resolver interface, so the lookup can be
// swapped for an external identity service without touching chain logic.
package directory

import (
	"database/sql"
	"fmt"

	"github.com/garyjia/procure-flow/internal/models"
	"github.com/garyjia/procure-flow/internal/repository"
	"go.uber.org/zap"
)

// ErrNoApprovers is returned when neither a manager nor a finance/admin
// identity can be resolved for a requester. A governed entity must never be
// created without at least one approver.
var ErrNoApprovers = fmt.Errorf("no approvers resolvable for requester")

// Resolver computes the ordered approver list for a requester: the direct
// manager first (when present and distinct from the requester), then a single
// finance approver, falling back to an administrator.
type Resolver struct {
	users  *repository.UserRepository
	logger *zap.Logger
}

// NewResolver creates a new resolver backed by the user repository
func NewResolver(users *repository.UserRepository, logger *zap.Logger) *Resolver {
	return &Resolver{
		users:  users,
		logger: logger,
	}
}

// ResolveApprovers returns an ordered, de-duplicated list of approver IDs.
// Runs inside the caller's transaction so chain creation sees a consistent
// directory snapshot.
func (r *Resolver) ResolveApprovers(tx *sql.Tx, requesterID string) ([]string, error) {
	requester, err := r.users.GetByID(tx, requesterID)
	if err != nil {
		return nil, err
	}
	if requester == nil {
		return nil, fmt.Errorf("requester %s not found", requesterID)
	}

	var approvers []string
	seen := make(map[string]bool)

	if requester.ManagerID != nil && *requester.ManagerID != requesterID {
		approvers = append(approvers, *requester.ManagerID)
		seen[*requester.ManagerID] = true
	}

	finance, err := r.financeApprover(tx)
	if err != nil {
		return nil, err
	}
	if finance != "" && finance != requesterID && !seen[finance] {
		approvers = append(approvers, finance)
	}

	if len(approvers) == 0 {
		r.logger.Warn("No approvers resolvable", zap.String("requester_id", requesterID))
		return nil, ErrNoApprovers
	}

	return approvers, nil
}

// financeApprover returns the first finance-role user, falling back to any
// administrator. Empty when neither exists.
func (r *Resolver) financeApprover(tx *sql.Tx) (string, error) {
	user, err := r.users.FirstByRole(tx, models.RoleFinance)
	if err != nil {
		return "", err
	}
	if user == nil {
		user, err = r.users.FirstByRole(tx, models.RoleAdmin)
		if err != nil {
			return "", err
		}
	}
	if user == nil {
		return "", nil
	}
	return user.ID, nil
}
