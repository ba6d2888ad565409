package checkout

import (
	"strings"

	"github.com/joao-fontenele/storefront/internal/cart"
	"github.com/joao-fontenele/storefront/internal/domain"
)

// Customer holds the fields entered on the checkout form.
type Customer struct {
	Name    string `json:"customerName"`
	Phone   string `json:"customerPhone"`
	Email   string `json:"email"`
	Wilayat string `json:"wilayat"`
	Address string `json:"address"`
	Note    string `json:"note"`
}

// Validate checks the cart first, then reports every missing customer field
// at once.
func Validate(state cart.State, c Customer) error {
	if state.Empty() {
		return &EmptyCartError{}
	}

	required := []struct {
		field string
		value string
	}{
		{"customerName", c.Name},
		{"customerPhone", c.Phone},
		{"email", c.Email},
		{"wilayat", c.Wilayat},
		{"address", c.Address},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.field)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

// Build validates and assembles the order payload. Prices stay in the base
// currency whatever the display currency is.
func Build(state cart.State, c Customer) (domain.CheckoutPayload, error) {
	if err := Validate(state, c); err != nil {
		return domain.CheckoutPayload{}, err
	}

	products := make([]domain.CheckoutProduct, 0, len(state.Lines))
	for _, l := range state.Lines {
		products = append(products, domain.CheckoutProduct{
			ProductID:     l.ProductID,
			Name:          l.Name,
			Price:         l.UnitPriceBase,
			Quantity:      l.Quantity,
			Image:         l.Image,
			SelectedSize:  l.SelectedSize,
			SelectedColor: l.SelectedColor,
		})
	}

	return domain.CheckoutPayload{
		Products:      products,
		CustomerName:  strings.TrimSpace(c.Name),
		CustomerPhone: strings.TrimSpace(c.Phone),
		Email:         strings.TrimSpace(c.Email),
		Country:       state.Country,
		Wilayat:       strings.TrimSpace(c.Wilayat),
		Address:       strings.TrimSpace(c.Address),
		ShippingFee:   state.ShippingFee,
		Note:          c.Note,
	}, nil
}
