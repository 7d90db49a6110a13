package types

import "errors"

// Failure taxonomy shared by the store, the payment reconciler and the
// check-in gate. Handlers map these onto HTTP statuses in one place.
var (
	ErrNotFound           = errors.New("record not found")
	ErrConflict           = errors.New("conflict with existing record")
	ErrForbidden          = errors.New("not allowed for this caller")
	ErrInvalidState       = errors.New("operation not valid in current state")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayRejected    = errors.New("payment gateway rejected the request")
	ErrBadSignature       = errors.New("webhook signature verification failed")
)
