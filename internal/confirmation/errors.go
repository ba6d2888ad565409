package confirmation

import (
	"fmt"

	"github.com/joao-fontenele/storefront/internal/domain"
)

// NoReferenceError means the confirmation request carried no reference id;
// the customer reached the page without coming back from the gateway.
type NoReferenceError struct{}

func (e *NoReferenceError) Error() string { return "no session ID found in the URL" }

func (e *NoReferenceError) Is(target error) bool { return target == domain.ErrConfiguration }

// ConfirmationError is a failed confirm-payment call.
type ConfirmationError struct {
	Status  int
	Message string
	Err     error
}

func (e *ConfirmationError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Status != 0:
		return fmt.Sprintf("HTTP error! status: %d", e.Status)
	case e.Err != nil:
		return "failed to confirm payment: " + e.Err.Error()
	default:
		return "failed to confirm payment"
	}
}

func (e *ConfirmationError) Unwrap() error { return e.Err }

type NoOrderDataError struct{}

func (e *NoOrderDataError) Error() string { return "no order data received" }

func (e *NoOrderDataError) Is(target error) bool { return target == domain.ErrNotFound }
