package funding

import (
	"errors"
	"fmt"
)

var (
	// ErrUserCancelled is returned when the user closes the funding dialog
	ErrUserCancelled = errors.New("funding cancelled by user")

	// ErrCompletionTimeout is returned when a paid purchase is not
	// acknowledged within the polling bound
	ErrCompletionTimeout = errors.New("purchase was not acknowledged in time")

	// ErrNoPurchaseOptions is returned when no amount fits the shop limits
	ErrNoPurchaseOptions = errors.New("no purchase amount fits the shop limits")
)

// PurchaseServiceError wraps a failed call to the purchase service. It is
// shown inline in the dialog and only returned when the session ends.
type PurchaseServiceError struct {
	Op        string
	Reference string
	Err       error
}

func (e *PurchaseServiceError) Error() string {
	if e.Reference != "" {
		return fmt.Sprintf("purchase service %s (%s) failed: %v", e.Op, e.Reference, e.Err)
	}
	return fmt.Sprintf("purchase service %s failed: %v", e.Op, e.Err)
}

func (e *PurchaseServiceError) Unwrap() error {
	return e.Err
}
