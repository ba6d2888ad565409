// Package mailsink is a local stand-in for the mail service. It accepts the
// same POST /send body and keeps the latest messages for inspection.
package mailsink

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

type Message struct {
	To         string    `json:"to"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"receivedAt"`
}

type Handler struct {
	logger   *slog.Logger
	capacity int

	mu     sync.Mutex
	outbox []Message
}

// NewHandler keeps at most capacity messages, dropping the oldest.
func NewHandler(capacity int, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		capacity: capacity,
	}
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(msg.To) == "" || strings.TrimSpace(msg.Subject) == "" {
		h.writeError(w, http.StatusUnprocessableEntity, "to and subject are required")
		return
	}
	msg.ReceivedAt = time.Now().UTC()

	h.mu.Lock()
	h.outbox = append(h.outbox, msg)
	if over := len(h.outbox) - h.capacity; over > 0 {
		h.outbox = append([]Message(nil), h.outbox[over:]...)
	}
	h.mu.Unlock()

	h.logger.Info("email accepted", "to", msg.To, "subject", msg.Subject)

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *Handler) HandleOutbox(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.Outbox())
}

// Outbox returns the retained messages, oldest first.
func (h *Handler) Outbox() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message{}, h.outbox...)
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
