package cart

import (
	"fmt"

	"github.com/joao-fontenele/storefront/internal/domain"
)

type InvalidQuantityError struct {
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1, got %d", e.Quantity)
}

func (e *InvalidQuantityError) Is(target error) bool { return target == domain.ErrValidation }

type InvalidDeltaError struct {
	Delta int
}

func (e *InvalidDeltaError) Error() string {
	return fmt.Sprintf("quantity delta must be +1 or -1, got %d", e.Delta)
}

func (e *InvalidDeltaError) Is(target error) bool { return target == domain.ErrValidation }

// VariantRequiredError is returned when a product offers a variant that was
// not selected.
type VariantRequiredError struct {
	Variant string
}

func (e *VariantRequiredError) Error() string {
	return fmt.Sprintf("%s must be selected", e.Variant)
}

func (e *VariantRequiredError) Is(target error) bool { return target == domain.ErrValidation }
