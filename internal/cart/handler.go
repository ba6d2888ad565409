package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront/internal/currency"
	"github.com/joao-fontenele/storefront/internal/domain"
)

type ProductFetcher interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// ShippingPolicy returns the shipping fee, in the base currency, for country.
type ShippingPolicy func(country string) decimal.Decimal

type Handler struct {
	sessions *Sessions
	products ProductFetcher
	shipping ShippingPolicy
	logger   *slog.Logger
}

func NewHandler(sessions *Sessions, products ProductFetcher, shipping ShippingPolicy, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		products: products,
		shipping: shipping,
		logger:   logger,
	}
}

type LineView struct {
	domain.CartLine
	UnitPrice currency.Amount `json:"unitPrice"`
	LineTotal currency.Amount `json:"lineTotal"`
}

type View struct {
	Lines       []LineView      `json:"lines"`
	Country     string          `json:"country"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
	ShippingFee decimal.Decimal `json:"shippingFee"`
	Subtotal    currency.Amount `json:"subtotalDisplay"`
	Shipping    currency.Amount `json:"shippingDisplay"`
	GrandTotal  currency.Amount `json:"grandTotalDisplay"`
}

// NewView renders state with every amount converted for the cart's country.
func NewView(state State) View {
	lines := make([]LineView, 0, len(state.Lines))
	for _, l := range state.Lines {
		lines = append(lines, LineView{
			CartLine:  l,
			UnitPrice: currency.Display(l.UnitPriceBase, state.Country),
			LineTotal: currency.Display(l.Total(), state.Country),
		})
	}

	total := state.TotalPrice()
	return View{
		Lines:       lines,
		Country:     state.Country,
		Quantity:    state.Quantity(),
		TotalPrice:  total,
		ShippingFee: state.ShippingFee,
		Subtotal:    currency.Display(total, state.Country),
		Shipping:    currency.Display(state.ShippingFee, state.Country),
		GrandTotal:  currency.Display(total.Add(state.ShippingFee), state.Country),
	}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, NewView(sess.Snapshot()))
}

type addLineRequest struct {
	ProductID     string `json:"productId"`
	Quantity      int    `json:"quantity"`
	SelectedSize  string `json:"selectedSize"`
	SelectedColor string `json:"selectedColor"`
}

func (h *Handler) HandleAddLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, err := h.products.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		h.writeFailure(w, err, "product_id", req.ProductID)
		return
	}

	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	err = sess.Update(r.Context(), func(s *Store) error {
		return s.AddLine(*product, req.Quantity, req.SelectedSize, req.SelectedColor)
	})
	if err != nil {
		h.writeFailure(w, err, "product_id", req.ProductID)
		return
	}

	h.logger.Info("cart line added", "session_id", sess.ID, "product_id", req.ProductID, "quantity", req.Quantity)
	h.respond(w, sess)
}

func (h *Handler) HandleRemoveLine(w http.ResponseWriter, r *http.Request) {
	var key domain.LineKey
	if err := json.NewDecoder(r.Body).Decode(&key); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	err := sess.Update(r.Context(), func(s *Store) error {
		s.RemoveLine(key)
		return nil
	})
	if err != nil {
		h.writeFailure(w, err, "product_id", key.ProductID)
		return
	}

	h.logger.Info("cart line removed", "session_id", sess.ID, "product_id", key.ProductID)
	h.respond(w, sess)
}

type changeQuantityRequest struct {
	domain.LineKey
	Delta int `json:"delta"`
}

func (h *Handler) HandleChangeQuantity(w http.ResponseWriter, r *http.Request) {
	var req changeQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	err := sess.Update(r.Context(), func(s *Store) error {
		return s.ChangeQuantity(req.LineKey, req.Delta)
	})
	if err != nil {
		h.writeFailure(w, err, "product_id", req.ProductID)
		return
	}

	h.respond(w, sess)
}

type destinationRequest struct {
	Country string `json:"country"`
}

func (h *Handler) HandleSetDestination(w http.ResponseWriter, r *http.Request) {
	var req destinationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	fee := h.shipping(req.Country)
	err := sess.Update(r.Context(), func(s *Store) error {
		s.SetDestination(req.Country, fee)
		return nil
	})
	if err != nil {
		h.writeFailure(w, err, "country", req.Country)
		return
	}

	h.logger.Info("cart destination set", "session_id", sess.ID, "country", req.Country)
	h.respond(w, sess)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.open(w, r)
	if !ok {
		return
	}
	err := sess.Update(r.Context(), func(s *Store) error {
		s.Clear()
		return nil
	})
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	h.logger.Info("cart cleared", "session_id", sess.ID)
	h.respond(w, sess)
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := SessionID(r.Context())
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing session")
		return nil, false
	}

	sess, err := h.sessions.Open(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err, "session_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	return sess, true
}

func (h *Handler) respond(w http.ResponseWriter, sess *Session) {
	h.writeJSON(w, http.StatusOK, NewView(sess.Snapshot()))
}

func (h *Handler) writeFailure(w http.ResponseWriter, err error, args ...any) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, domain.ErrNetwork):
		h.logger.Error("product lookup failed", append([]any{"error", err}, args...)...)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
	default:
		h.logger.Error("cart operation failed", append([]any{"error", err}, args...)...)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
