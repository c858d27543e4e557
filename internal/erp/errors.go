package erp

import (
	"errors"
	"fmt"
)

// ErrNotConnected means no credential has been registered for the role yet.
// Callers map this to 503: an administrator must log in to the remote system.
var ErrNotConnected = errors.New("erp: not connected")

// ErrSessionExpired means a credential exists but the remote system no longer
// accepts it. Callers map this to 401: the session must be re-established.
var ErrSessionExpired = errors.New("erp: session expired")

// ErrNoEndpoint means the deployment has no URL configured for the requested
// endpoint, so there is nothing to connect to.
var ErrNoEndpoint = errors.New("erp: endpoint url not configured")

// ErrNegativeStock is returned by ReduceStock when the computed new quantity
// would go below zero. This is the one invariant violation that aborts an
// in-flight confirmation instead of degrading to a per-line failure.
var ErrNegativeStock = errors.New("erp: stock reduction would go negative")

// OpError wraps a failure of one of the RPC primitives after the allowed
// retry. It carries the operation name and the remote-supplied message.
type OpError struct {
	Op      string // e.g. "product.product.search_read"
	Message string
}

func (e *OpError) Error() string {
	return fmt.Sprintf("erp: %s failed: %s", e.Op, e.Message)
}

func opErr(model, method, msg string) *OpError {
	return &OpError{Op: model + "." + method, Message: msg}
}
