package procurement

import "errors"

var (
	// ErrValidation marks malformed input, rejected before any transaction.
	ErrValidation = errors.New("validation failed")

	// Referenced entity lookups
	ErrCostCenterNotFound      = errors.New("cost center not found")
	ErrVendorNotFound          = errors.New("vendor not found")
	ErrRequesterNotFound       = errors.New("requester not found")
	ErrPurchaseRequestNotFound = errors.New("purchase request not found")
	ErrPurchaseOrderNotFound   = errors.New("purchase order not found")

	// State conflicts on referenced documents
	ErrSourcePRNotApproved = errors.New("source purchase request is not approved")
	ErrSourcePONotApproved = errors.New("source purchase order is not approved")
)
