// Package worker turns order.confirmed events into customer receipts.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/storefront/internal/currency"
	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/messaging"
)

type ReceiptHandler struct {
	emailServiceURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewReceiptHandler(emailServiceURL string, client *http.Client, logger *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		emailServiceURL: strings.TrimRight(emailServiceURL, "/"),
		httpClient:      client,
		logger:          logger,
	}
}

// Email is the mail service request body.
type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Handle sends the receipt for one confirmed order. Malformed events and
// events without a recipient are skipped; mail service failures are retried
// by redelivery.
func (h *ReceiptHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderConfirmedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return messaging.Permanent(fmt.Errorf("unmarshal order confirmed event: %w", err))
	}
	if event.OrderID == "" {
		return messaging.Permanent(errors.New("order confirmed event without order id"))
	}

	h.logger.Info("processing order confirmed event", "order_id", event.OrderID, "reference_id", event.ReferenceID)

	if strings.TrimSpace(event.Email) == "" {
		h.logger.Warn("no recipient for receipt, skipping", "order_id", event.OrderID)
		return nil
	}

	if err := h.sendEmail(ctx, Receipt(event)); err != nil {
		h.logger.Error("failed to send receipt", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send receipt: %w", err)
	}

	h.logger.Info("receipt sent", "order_id", event.OrderID)
	return nil
}

// Receipt renders the email for event. Amounts are shown in the currency of
// the order's country.
func Receipt(event domain.OrderConfirmedEvent) Email {
	var b strings.Builder
	name := event.CustomerName
	if name == "" {
		name = "customer"
	}
	fmt.Fprintf(&b, "Hello %s,\n\nYour order %s is confirmed.\n\n", name, event.OrderID)

	for _, item := range event.Items {
		fmt.Fprintf(&b, "- %s x%d", item.Name, item.Quantity)
		if variant := variantLabel(item); variant != "" {
			fmt.Fprintf(&b, " (%s)", variant)
		}
		b.WriteString("\n")
	}

	subtotal := event.Amount.Sub(event.ShippingFee)
	fmt.Fprintf(&b, "\nSubtotal: %s\n", currency.Format(subtotal, event.Country))
	fmt.Fprintf(&b, "Shipping: %s\n", currency.Format(event.ShippingFee, event.Country))
	fmt.Fprintf(&b, "Total: %s\n", currency.Format(event.Amount, event.Country))

	return Email{
		To:      event.Email,
		Subject: "Order Confirmation: " + event.OrderID,
		Body:    b.String(),
	}
}

func variantLabel(item domain.OrderItem) string {
	var parts []string
	if item.SelectedSize != "" {
		parts = append(parts, item.SelectedSize)
	}
	if item.SelectedColor != "" {
		parts = append(parts, item.SelectedColor)
	}
	return strings.Join(parts, ", ")
}

func (h *ReceiptHandler) sendEmail(ctx context.Context, body Email) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return messaging.Permanent(fmt.Errorf("email service rejected receipt with status %d", resp.StatusCode))
	default:
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}
}
