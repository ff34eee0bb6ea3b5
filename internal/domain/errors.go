package domain

import "errors"

var (
	// ErrValidation is returned for bad or missing input; never retried.
	ErrValidation = errors.New("invalid input")
	// ErrUnreachable indicates a transport-level failure talking to the
	// central service. A sweep treats it as global and aborts.
	ErrUnreachable = errors.New("central service unreachable")
	// ErrServerRejected indicates the central service accepted the
	// connection but refused the operation (storage fault, 5xx).
	ErrServerRejected = errors.New("central service rejected request")
	// ErrNotFound indicates the target submission does not exist.
	ErrNotFound = errors.New("submission not found")
	// ErrCatalogNotFound indicates the question catalog could not be loaded.
	ErrCatalogNotFound = errors.New("catalog not found")
)
