package confirmation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/joao-fontenele/storefront/internal/cart"
	"github.com/joao-fontenele/storefront/internal/domain"
)

type Ledger interface {
	// Record stores a completed order once and reports whether its confirmed
	// event is still unpublished.
	Record(ctx context.Context, referenceID string, order *domain.Order) (bool, error)
	MarkPublished(ctx context.Context, orderID string) error
	GetByOrderID(ctx context.Context, orderID string) (*domain.Confirmation, error)
	ListRecent(ctx context.Context, limit int) ([]domain.Confirmation, error)
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Handler struct {
	reconciler *Reconciler
	sessions   *cart.Sessions
	ledger     Ledger
	publisher  Publisher
	logger     *slog.Logger
}

// NewHandler wires the confirmation page. ledger and publisher may be nil.
func NewHandler(reconciler *Reconciler, sessions *cart.Sessions, ledger Ledger, publisher Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		reconciler: reconciler,
		sessions:   sessions,
		ledger:     ledger,
		publisher:  publisher,
		logger:     logger,
	}
}

func (h *Handler) HandlePaymentSuccess(w http.ResponseWriter, r *http.Request) {
	referenceID := ReferenceID(r)
	if referenceID == "" {
		h.writeError(w, http.StatusBadRequest, (&NoReferenceError{}).Error())
		return
	}

	sessionID := cart.SessionID(r.Context())
	sess, err := h.sessions.Open(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err, "session_id", sessionID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	flow := h.reconciler.NewFlow(sess)
	result, err := flow.Run(r.Context(), referenceID)
	if err != nil {
		var confirmErr *ConfirmationError
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.writeError(w, http.StatusNotFound, err.Error())
		case errors.As(err, &confirmErr):
			h.writeError(w, http.StatusBadGateway, err.Error())
		default:
			h.writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	if err := flow.ClearErr(); err != nil {
		h.logger.Warn("cart not cleared after completed order", "error", err, "order_id", result.Order.ID, "session_id", sessionID)
	}
	if result.Order.Completed() {
		h.recordCompleted(r.Context(), referenceID, result.Order)
	}

	h.writeJSON(w, http.StatusOK, result)
}

// recordCompleted writes the ledger row and announces the order until one
// publish succeeds. Failures are logged; the customer still gets the page.
func (h *Handler) recordCompleted(ctx context.Context, referenceID string, order *domain.Order) {
	if h.ledger == nil {
		return
	}

	pending, err := h.ledger.Record(ctx, referenceID, order)
	if err != nil {
		h.logger.Error("failed to record confirmation", "error", err, "order_id", order.ID)
		return
	}
	if !pending || h.publisher == nil {
		return
	}

	event := domain.OrderConfirmedEvent{
		OrderID:      order.ID,
		ReferenceID:  referenceID,
		Email:        order.Email,
		CustomerName: order.CustomerName,
		Country:      order.Country,
		Amount:       order.Amount,
		ShippingFee:  order.ShippingFee,
		Items:        order.Products,
		Timestamp:    time.Now().UTC(),
	}
	if err := h.publisher.Publish(ctx, order.ID, event); err != nil {
		h.logger.Error("failed to publish order confirmed event", "error", err, "order_id", order.ID)
		return
	}
	if err := h.ledger.MarkPublished(ctx, order.ID); err != nil {
		h.logger.Error("failed to mark confirmation published", "error", err, "order_id", order.ID)
	}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderId")
	if orderID == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}
	if h.ledger == nil {
		h.writeError(w, http.StatusNotFound, "confirmation not found")
		return
	}

	c, err := h.ledger.GetByOrderID(r.Context(), orderID)
	if err != nil {
		h.logger.Error("failed to get confirmation", "error", err, "order_id", orderID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if c == nil {
		h.writeError(w, http.StatusNotFound, "confirmation not found")
		return
	}

	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	if h.ledger == nil {
		h.writeJSON(w, http.StatusOK, []domain.Confirmation{})
		return
	}

	confirmations, err := h.ledger.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list confirmations", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("confirmations listed", "count", len(confirmations))
	h.writeJSON(w, http.StatusOK, confirmations)
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
