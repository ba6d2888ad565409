package checkout

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storefront/internal/cart"
)

type Handler struct {
	service  *Service
	sessions *cart.Sessions
	logger   *slog.Logger
}

func NewHandler(service *Service, sessions *cart.Sessions, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		logger:   logger,
	}
}

type checkoutResponse struct {
	PaymentLink string `json:"paymentLink"`
}

type validationResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req Customer
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := cart.SessionID(r.Context())
	sess, err := h.sessions.Open(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("failed to load cart", "error", err, "session_id", sessionID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	link, err := h.service.Submit(r.Context(), sess.Snapshot(), req)
	if err != nil {
		var missing *MissingFieldsError
		var empty *EmptyCartError
		var submit *SubmitError
		switch {
		case errors.As(err, &missing):
			h.writeJSON(w, http.StatusBadRequest, validationResponse{Error: err.Error(), Fields: missing.Fields})
		case errors.As(err, &empty):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNoPaymentLink):
			h.writeError(w, http.StatusBadGateway, err.Error())
		case errors.As(err, &submit):
			h.writeError(w, http.StatusBadGateway, submit.Message)
		default:
			h.logger.Error("checkout failed", "error", err, "session_id", sessionID)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, checkoutResponse{PaymentLink: link})
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
