package orderapi

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront/internal/domain"
)

type orderItemWire struct {
	ProductID     string `json:"productId"`
	LegacyID      string `json:"_id"`
	Name          string `json:"name"`
	Quantity      int    `json:"quantity"`
	Image         string `json:"image"`
	SelectedSize  string `json:"selectedSize"`
	SelectedColor string `json:"selectedColor"`
}

type orderWire struct {
	ID            string          `json:"id"`
	LegacyID      string          `json:"_id"`
	OrderID       string          `json:"orderId"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	ShippingFee   decimal.Decimal `json:"shippingFee"`
	CustomerName  string          `json:"customerName"`
	CustomerPhone string          `json:"customerPhone"`
	Email         string          `json:"email"`
	Country       string          `json:"country"`
	Wilayat       string          `json:"wilayat"`
	Products      []orderItemWire `json:"products"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (w *orderWire) toDomain() *domain.Order {
	order := &domain.Order{
		ID:            firstNonEmpty(w.ID, w.OrderID, w.LegacyID),
		Status:        domain.OrderStatus(w.Status),
		Amount:        w.Amount,
		ShippingFee:   w.ShippingFee,
		CustomerName:  w.CustomerName,
		CustomerPhone: w.CustomerPhone,
		Email:         w.Email,
		Country:       w.Country,
		Wilayat:       w.Wilayat,
		CreatedAt:     w.CreatedAt,
		Products:      make([]domain.OrderItem, 0, len(w.Products)),
	}
	for _, p := range w.Products {
		order.Products = append(order.Products, domain.OrderItem{
			ProductID:     firstNonEmpty(p.ProductID, p.LegacyID),
			Name:          p.Name,
			Quantity:      p.Quantity,
			Image:         p.Image,
			SelectedSize:  p.SelectedSize,
			SelectedColor: p.SelectedColor,
		})
	}
	return order
}

type productWire struct {
	ID           string           `json:"id"`
	LegacyID     string           `json:"_id"`
	Name         string           `json:"name"`
	Category     string           `json:"category"`
	Description  string           `json:"description"`
	Price        decimal.Decimal  `json:"price"`
	RegularPrice *decimal.Decimal `json:"regularPrice"`
	OldPrice     json.RawMessage  `json:"oldPrice"`
	Image        json.RawMessage  `json:"image"`
	Size         json.RawMessage  `json:"size"`
	Sizes        []string         `json:"sizes"`
	Colors       []string         `json:"colors"`
}

var errEmptyProduct = errors.New("empty product")

func decodeProduct(data []byte) (*domain.Product, error) {
	var envelope struct {
		Product json.RawMessage `json:"product"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Product) > 0 && string(envelope.Product) != "null" {
		data = envelope.Product
	}

	var w productWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}

	id := firstNonEmpty(w.ID, w.LegacyID)
	if id == "" && w.Name == "" {
		return nil, errEmptyProduct
	}

	product := &domain.Product{
		ID:           id,
		Name:         w.Name,
		Category:     w.Category,
		Description:  w.Description,
		Price:        w.Price,
		RegularPrice: w.RegularPrice,
		Image:        stringList(w.Image),
		Sizes:        w.Sizes,
		Colors:       w.Colors,
	}
	if oldPrice, ok := optionalDecimal(w.OldPrice); ok {
		product.OldPrice = &oldPrice
	}
	if len(product.Sizes) == 0 {
		product.Sizes = stringList(w.Size)
	}
	if product.Image == nil {
		product.Image = []string{}
	}
	if product.Sizes == nil {
		product.Sizes = []string{}
	}
	if product.Colors == nil {
		product.Colors = []string{}
	}
	return product, nil
}

// stringList accepts a JSON string, number or array of strings. Empty values
// are dropped.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, s := range list {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single = strings.TrimSpace(single); single != "" {
			return []string{single}
		}
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		return []string{number.String()}
	}
	return nil
}

// optionalDecimal reads a number or numeric string; "" and null mean absent.
func optionalDecimal(raw json.RawMessage) (decimal.Decimal, bool) {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == `""` {
		return decimal.Decimal{}, false
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
