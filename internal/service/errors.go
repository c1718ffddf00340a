package service

import "errors"

var (
	ErrUnauthenticated = errors.New("user is not logged in")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	// ErrStoreUnavailable is returned by the read paths when storage or the
	// catalog cannot be reached.
	ErrStoreUnavailable = errors.New("cart store unavailable")
	// ErrOperationFailed is the only error AddItem and RemoveItem report
	// for a failed write. The transaction was rolled back and the cause is
	// logged, not returned.
	ErrOperationFailed = errors.New("cart operation failed")
)
