package checkout

import (
	"errors"
	"strings"

	"github.com/joao-fontenele/storefront/internal/domain"
)

// ErrNoPaymentLink is returned when the order API accepted the checkout but
// returned no payment link. The customer may retry.
var ErrNoPaymentLink = errors.New("could not create payment link")

type EmptyCartError struct{}

func (e *EmptyCartError) Error() string { return "cart is empty" }

func (e *EmptyCartError) Is(target error) bool { return target == domain.ErrValidation }

type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *MissingFieldsError) Is(target error) bool { return target == domain.ErrValidation }
