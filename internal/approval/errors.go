package approval

import "errors"

var (
	// ErrNoPendingApprovals is returned when an entity has no PENDING chain
	// rows: the chain is fully resolved or was never built.
	ErrNoPendingApprovals = errors.New("no pending approvals for entity")

	// ErrNotCurrentApprover is returned when the actor does not own the
	// lowest-numbered pending step.
	ErrNotCurrentApprover = errors.New("actor is not the current-step approver")

	// ErrStepAlreadyDecided is returned when a concurrent decision landed on
	// the current step first.
	ErrStepAlreadyDecided = errors.New("current step is no longer pending")

	// ErrInvalidDecision is returned for decisions other than APPROVE/REJECT.
	ErrInvalidDecision = errors.New("decision must be APPROVE or REJECT")

	// ErrStateConflict is returned when a governed entity cannot leave its
	// active status, e.g. it already reached a terminal state.
	ErrStateConflict = errors.New("entity is not in a transitionable state")

	// ErrUnknownEntityType is returned for entity types outside PR/PO/INVOICE.
	ErrUnknownEntityType = errors.New("unknown governed entity type")
)
